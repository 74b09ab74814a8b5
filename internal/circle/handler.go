package circle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hiroyukim/warikan/pkg/middleware"
	"github.com/hiroyukim/warikan/pkg/response"
)

// Handler handles HTTP requests for circle operations
type Handler struct {
	service *Service
}

// NewHandler creates a new circle handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for circle endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/search", h.Search)
	r.Post("/join", h.Join)
	r.Get("/{id}/members", h.Members)
	r.Post("/{id}/leave", h.Leave)
	r.Delete("/{id}/members/{userId}", h.RemoveMember)
	r.Post("/{id}/primary", h.SetPrimary)

	return r
}

// Create handles POST /circles
// @Summary      Create a new circle
// @Description  Create a circle, enroll the creator and set it as primary if they had none
// @Tags         circles
// @Accept       json
// @Produce      json
// @Param        request body CreateCircleRequest true "Circle creation request"
// @Success      201 {object} response.APIResponse{data=Circle}
// @Failure      400 {object} response.APIResponse
// @Router       /circles [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	var req CreateCircleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	c, err := h.service.Create(r.Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, ErrInvalidName) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create circle")
		return
	}

	response.JSON(w, http.StatusCreated, c)
}

// List handles GET /circles
// @Summary      List my circles
// @Description  Circles the current user belongs to, with the primary circle id
// @Tags         circles
// @Produce      json
// @Success      200 {object} response.APIResponse{data=CirclesResponse}
// @Router       /circles [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	circles, primaryID, hasPrimary, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list circles")
		return
	}

	resp := &CirclesResponse{Circles: circles}
	if hasPrimary {
		resp.PrimaryCircleID = &primaryID
	}

	response.JSON(w, http.StatusOK, resp)
}

// Search handles GET /circles/search
// @Summary      Search circles by name
// @Tags         circles
// @Produce      json
// @Param        q query string true "Substring to match, case-insensitive"
// @Success      200 {object} response.APIResponse{data=[]Circle}
// @Failure      400 {object} response.APIResponse
// @Router       /circles/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, "Search query is required")
		return
	}

	circles, err := h.service.Search(r.Context(), query)
	if err != nil {
		response.InternalError(w, "Failed to search circles")
		return
	}
	if circles == nil {
		circles = []*Circle{}
	}

	response.JSON(w, http.StatusOK, circles)
}

// Join handles POST /circles/join
// @Summary      Join a circle
// @Description  Join by circle id, or by name when the name resolves to exactly one circle
// @Tags         circles
// @Accept       json
// @Produce      json
// @Param        request body JoinCircleRequest true "Join request"
// @Success      200 {object} response.APIResponse{data=Circle}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /circles/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	var req JoinCircleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	var c *Circle
	var err error
	switch {
	case req.CircleID != nil:
		c, err = h.service.Join(r.Context(), userID, *req.CircleID)
	case req.CircleName != "":
		c, err = h.service.JoinByName(r.Context(), userID, req.CircleName)
	default:
		response.BadRequest(w, "Circle name or id is required")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, ErrCircleNotFound), errors.Is(err, ErrAmbiguousName):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrAlreadyMember):
			response.Conflict(w, err.Error())
		case errors.Is(err, ErrInvalidName):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w, "Failed to join circle")
		}
		return
	}

	response.JSON(w, http.StatusOK, c)
}

// Members handles GET /circles/{id}/members
// @Summary      List circle members
// @Tags         circles
// @Produce      json
// @Param        id path int true "Circle ID"
// @Param        exclude_myself query bool false "Exclude the caller from the listing"
// @Success      200 {object} response.APIResponse{data=MembersResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /circles/{id}/members [get]
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	circleID, err := parseID(r)
	if err != nil {
		response.BadRequest(w, "Invalid circle ID")
		return
	}

	excludeSelf := r.URL.Query().Get("exclude_myself") == "true"

	c, members, err := h.service.Members(r.Context(), userID, circleID, excludeSelf)
	if err != nil {
		switch {
		case errors.Is(err, ErrCircleNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to get members")
		}
		return
	}
	if members == nil {
		members = []*Member{}
	}

	response.JSON(w, http.StatusOK, &MembersResponse{Circle: c, Members: members})
}

// Leave handles POST /circles/{id}/leave
// @Summary      Leave a circle
// @Description  Marks the caller's membership as left; a primary pointer at this circle is cleared
// @Tags         circles
// @Produce      json
// @Param        id path int true "Circle ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /circles/{id}/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	circleID, err := parseID(r)
	if err != nil {
		response.BadRequest(w, "Invalid circle ID")
		return
	}

	if err := h.service.Leave(r.Context(), userID, circleID); err != nil {
		if errors.Is(err, ErrNotMember) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to leave circle")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "left circle"})
}

// RemoveMember handles DELETE /circles/{id}/members/{userId}
// @Summary      Remove a member from a circle
// @Description  Only the circle creator may remove other members
// @Tags         circles
// @Produce      json
// @Param        id path int true "Circle ID"
// @Param        userId path string true "Target user ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /circles/{id}/members/{userId} [delete]
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	circleID, err := parseID(r)
	if err != nil {
		response.BadRequest(w, "Invalid circle ID")
		return
	}

	targetUserID := chi.URLParam(r, "userId")
	if targetUserID == "" {
		response.BadRequest(w, "Target user ID is required")
		return
	}

	if err := h.service.RemoveMember(r.Context(), userID, circleID, targetUserID); err != nil {
		switch {
		case errors.Is(err, ErrCircleNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotAuthorized):
			response.Forbidden(w, err.Error())
		case errors.Is(err, ErrCannotRemoveSelf):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrNotMember):
			response.NotFound(w, err.Error())
		default:
			response.InternalError(w, "Failed to remove member")
		}
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}

// SetPrimary handles POST /circles/{id}/primary
// @Summary      Set the primary circle
// @Tags         circles
// @Produce      json
// @Param        id path int true "Circle ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /circles/{id}/primary [post]
func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	circleID, err := parseID(r)
	if err != nil {
		response.BadRequest(w, "Invalid circle ID")
		return
	}

	if err := h.service.SetPrimary(r.Context(), userID, circleID); err != nil {
		if errors.Is(err, ErrNotMember) {
			response.Forbidden(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to set primary circle")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "primary circle set"})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
