package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hiroyukim/warikan/pkg/middleware"
	"github.com/hiroyukim/warikan/pkg/response"
)

// Handler handles HTTP requests for event operations
type Handler struct {
	service *Service
}

// NewHandler creates a new event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for event endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/status", h.PaymentStatuses)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/report", h.Report)

	return r
}

// Create handles POST /events
// @Summary      Create a shared-expense event
// @Description  Split the total evenly among the selected circle members and notify them
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body CreateEventRequest true "Event creation request"
// @Success      201 {object} response.APIResponse{data=EventResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, participants, err := h.service.Create(r.Context(), req.CircleID, userID, req.Name, req.TotalAmount, req.ParticipantIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNoParticipants):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrNotCircleMember):
			response.Forbidden(w, err.Error())
		default:
			response.InternalError(w, "Failed to create event")
		}
		return
	}

	response.JSON(w, http.StatusCreated, &EventResponse{Event: e, Participants: participants})
}

// List handles GET /events
// @Summary      List my events
// @Description  Events the current user organizes or participates in, newest first
// @Tags         events
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]Event}
// @Router       /events [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	events, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to list events")
		return
	}
	if events == nil {
		events = []*Event{}
	}

	response.JSON(w, http.StatusOK, events)
}

// Get handles GET /events/{id}
// @Summary      Get an event with its participants
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse{data=EventResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /events/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	e, participants, err := h.service.Get(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to get event")
		return
	}

	response.JSON(w, http.StatusOK, &EventResponse{Event: e, Participants: participants})
}

// Report handles POST /events/{id}/report
// @Summary      Report a payment
// @Description  Mark the caller's share as paid; repeating the report is a no-op
// @Tags         events
// @Produce      json
// @Param        id path int true "Event ID"
// @Success      200 {object} response.APIResponse{data=Participant}
// @Failure      404 {object} response.APIResponse
// @Router       /events/{id}/report [post]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	p, err := h.service.Report(r.Context(), eventID, userID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) || errors.Is(err, ErrParticipantNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to report payment")
		return
	}

	response.JSON(w, http.StatusOK, p)
}

// PaymentStatuses handles GET /events/status
// @Summary      Get my payment overview
// @Tags         events
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]PaymentStatus}
// @Router       /events/status [get]
func (h *Handler) PaymentStatuses(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Not authenticated")
		return
	}

	statuses, err := h.service.PaymentStatuses(r.Context(), userID)
	if err != nil {
		response.InternalError(w, "Failed to get payment statuses")
		return
	}
	if statuses == nil {
		statuses = []*PaymentStatus{}
	}

	response.JSON(w, http.StatusOK, statuses)
}
