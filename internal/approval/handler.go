package approval

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hiroyukim/warikan/pkg/middleware"
	"github.com/hiroyukim/warikan/pkg/response"
)

// Handler handles HTTP requests for approval operations
type Handler struct {
	service *Service
}

// NewHandler creates a new approval handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for approval endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListPending)
	r.Post("/", h.Approve)

	return r
}

// ListPending handles GET /approvals
// @Summary      List pending approvals
// @Description  Reported-but-unapproved payments across the caller's events
// @Tags         approvals
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Approval}
// @Router       /approvals [get]
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	approvals, err := h.service.ListPending(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list pending approvals")
		return
	}
	if approvals == nil {
		approvals = []*Approval{}
	}

	response.JSON(w, http.StatusOK, approvals)
}

// Approve handles POST /approvals
// @Summary      Approve reported payments
// @Description  Approve the selected payments and complete fully approved events
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        request body ApproveRequest true "Participant IDs to approve"
// @Success      200 {object} response.APIResponse{data=ApproveResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /approvals [post]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	count, err := h.service.Approve(r.Context(), userID, req.ParticipantIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoneSelected):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrParticipantNotFound):
			response.NotFound(w, err.Error())
		case errors.Is(err, ErrNotOrganizer):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to approve payments")
		}
		return
	}

	response.JSON(w, http.StatusOK, &ApproveResponse{ApprovedCount: count})
}
