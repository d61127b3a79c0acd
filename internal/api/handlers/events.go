package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/campus-events/server/internal/api/problem"
	"github.com/campus-events/server/internal/audit"
	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/domain/ids"
	"github.com/campus-events/server/internal/domain/registrations"
	"github.com/campus-events/server/internal/metrics"
	"github.com/campus-events/server/internal/sanitize"
	"github.com/rs/zerolog"
)

const msgEventNotFound = "Event not found"

type EventsHandler struct {
	Service       *events.Service
	Registrations *registrations.Service
	Audit         *audit.Logger
	Env           string
	BaseURL       string
}

func NewEventsHandler(service *events.Service, regs *registrations.Service, auditLogger *audit.Logger, env, baseURL string) *EventsHandler {
	return &EventsHandler{
		Service:       service,
		Registrations: regs,
		Audit:         auditLogger,
		Env:           env,
		BaseURL:       baseURL,
	}
}

// eventRequest is the create-event body. Capacity is a pointer so a missing
// value is distinguishable from zero.
type eventRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=5000"`
	Category    string `json:"category" validate:"required,max=50"`
	Date        string `json:"date" validate:"required,max=100"`
	Time        string `json:"time" validate:"required,max=100"`
	Location    string `json:"location" validate:"required,max=200"`
	Capacity    *int   `json:"capacity" validate:"required,min=0"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,max=2048"`
}

func (req *eventRequest) sanitize() {
	req.Title = sanitize.Text(req.Title)
	req.Description = sanitize.Text(req.Description)
	req.Category = sanitize.Text(req.Category)
	req.Date = sanitize.Text(req.Date)
	req.Time = sanitize.Text(req.Time)
	req.Location = sanitize.Text(req.Location)
	req.ImageURL = sanitize.Text(req.ImageURL)
}

func (req eventRequest) params() events.EventCreateParams {
	return events.EventCreateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Time:        req.Time,
		Location:    req.Location,
		Capacity:    *req.Capacity,
		ImageURL:    req.ImageURL,
	}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, envOf(h))
		return
	}

	filters, err := events.ParseFilters(r.URL.Query(), h.Service.StrictCategories())
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
			problem.WithDetail(err.Error()))
		return
	}

	items, err := h.Service.List(r.Context(), filters)
	if err != nil {
		writeServerError(w, r, err, h.Env)
		return
	}
	if items == nil {
		items = []events.Event{}
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, envOf(h))
		return
	}

	id := pathParam(r, "id")
	if !ids.IsULID(id) {
		writeNotFound(w, r, msgEventNotFound, events.ErrNotFound, h.Env)
		return
	}

	item, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			writeNotFound(w, r, msgEventNotFound, err, h.Env)
			return
		}
		writeServerError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, envOf(h))
		return
	}

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Audit.LogFromRequest(r, "event.create", "event", "", "failure", map[string]string{"reason": err.Error()})
		writeRequestError(w, r, err, h.Env)
		return
	}
	req.sanitize()
	if err := validateStruct(req); err != nil {
		h.Audit.LogFromRequest(r, "event.create", "event", "", "failure", map[string]string{"reason": err.Error()})
		if !writeRequestError(w, r, err, h.Env) {
			writeServerError(w, r, err, h.Env)
		}
		return
	}

	created, err := h.Service.Create(r.Context(), req.params())
	if err != nil {
		var filterErr events.FilterError
		if errors.As(err, &filterErr) {
			h.Audit.LogFromRequest(r, "event.create", "event", "", "failure", map[string]string{"reason": err.Error()})
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithDetail(filterErr.Error()))
			return
		}
		writeServerError(w, r, err, h.Env)
		return
	}

	metrics.EventMutations.WithLabelValues("create").Inc()
	h.Audit.LogFromRequest(r, "event.create", "event", created.ID, "success", map[string]string{
		"title":    created.Title,
		"category": created.Category,
		"capacity": strconv.Itoa(created.Capacity),
	})

	if location, err := ids.ResourceURL(h.BaseURL, "api/events", created.ID); err == nil {
		w.Header().Set("Location", location)
	} else {
		zerolog.Ctx(r.Context()).Debug().Err(err).Str("event_id", created.ID).Msg("skipping Location header")
	}
	writeJSON(w, http.StatusCreated, created)
}

// Delete removes an event and its registrations. Unknown ids also answer 204.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, envOf(h))
		return
	}

	id := pathParam(r, "id")
	if !ids.IsULID(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	result, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		h.Audit.LogFromRequest(r, "event.delete", "event", id, "failure", map[string]string{"reason": err.Error()})
		writeServerError(w, r, err, h.Env)
		return
	}

	if result.Existed {
		metrics.EventMutations.WithLabelValues("delete").Inc()
		h.Audit.LogFromRequest(r, "event.delete", "event", id, "success", map[string]string{
			"registrations_removed": strconv.Itoa(result.RegistrationsRemoved),
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRegistrations returns the registrations of one event.
func (h *EventsHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Registrations == nil {
		writeServerError(w, r, nil, envOf(h))
		return
	}

	id := pathParam(r, "id")
	if !ids.IsULID(id) {
		writeNotFound(w, r, msgEventNotFound, events.ErrNotFound, h.Env)
		return
	}

	regs, err := h.Registrations.ListForEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			writeNotFound(w, r, msgEventNotFound, err, h.Env)
			return
		}
		writeServerError(w, r, err, h.Env)
		return
	}
	if regs == nil {
		regs = []registrations.Registration{}
	}

	writeJSON(w, http.StatusOK, regs)
}

func envOf(h *EventsHandler) string {
	if h == nil {
		return ""
	}
	return h.Env
}
