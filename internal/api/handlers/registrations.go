package handlers

import (
	"errors"
	"net/http"

	"github.com/campus-events/server/internal/api/problem"
	"github.com/campus-events/server/internal/domain/events"
	"github.com/campus-events/server/internal/domain/registrations"
	"github.com/campus-events/server/internal/metrics"
	"github.com/campus-events/server/internal/sanitize"
)

const (
	msgEventFull         = "Event is fully booked"
	msgAlreadyRegistered = "You are already registered for this event"
)

type RegistrationsHandler struct {
	Service *registrations.Service
	Env     string
}

func NewRegistrationsHandler(service *registrations.Service, env string) *RegistrationsHandler {
	return &RegistrationsHandler{Service: service, Env: env}
}

type registrationRequest struct {
	EventID      string  `json:"eventId" validate:"required,max=64"`
	StudentName  string  `json:"studentName" validate:"required,max=200"`
	StudentEmail string  `json:"studentEmail" validate:"required,email,max=254"`
	StudentID    string  `json:"studentId" validate:"required,max=64"`
	PhoneNumber  *string `json:"phoneNumber" validate:"omitempty,max=40"`
}

func (req *registrationRequest) sanitize() {
	req.EventID = sanitize.Text(req.EventID)
	req.StudentName = sanitize.Text(req.StudentName)
	req.StudentEmail = sanitize.Text(req.StudentEmail)
	req.StudentID = sanitize.Text(req.StudentID)
	req.PhoneNumber = sanitize.OptionalText(req.PhoneNumber)
}

func (h *RegistrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, h.env())
		return
	}

	var req registrationRequest
	if err := decodeJSON(r, &req); err != nil {
		metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		writeRequestError(w, r, err, h.Env)
		return
	}
	req.sanitize()
	if err := validateStruct(req); err != nil {
		metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		if !writeRequestError(w, r, err, h.Env) {
			writeServerError(w, r, err, h.Env)
		}
		return
	}

	reg, err := h.Service.Register(r.Context(), registrations.RegistrationCreateParams{
		EventID:      req.EventID,
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
		StudentID:    req.StudentID,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeEventNotFound).Inc()
			writeNotFound(w, r, msgEventNotFound, err, h.Env)
		case errors.Is(err, registrations.ErrEventFull):
			metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeEventFull).Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeEventFull, "Event full", err, h.Env,
				problem.WithDetail(msgEventFull))
		case errors.Is(err, registrations.ErrAlreadyRegistered):
			metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeAlreadyRegistered).Inc()
			problem.Write(w, r, http.StatusBadRequest, problem.TypeAlreadyRegistered, "Already registered", err, h.Env,
				problem.WithDetail(msgAlreadyRegistered))
		default:
			metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeError).Inc()
			writeServerError(w, r, err, h.Env)
		}
		return
	}

	metrics.RegistrationAttempts.WithLabelValues(metrics.OutcomeCreated).Inc()
	writeJSON(w, http.StatusCreated, reg)
}

// ListForStudent returns a student's registrations joined with their events.
// An unknown email yields an empty array.
func (h *RegistrationsHandler) ListForStudent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, h.env())
		return
	}

	email := pathParam(r, "email")
	if email == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", nil, h.Env,
			problem.WithDetail("email is required"))
		return
	}

	items, err := h.Service.ListForStudent(r.Context(), email)
	if err != nil {
		writeServerError(w, r, err, h.Env)
		return
	}
	if items == nil {
		items = []registrations.WithEvent{}
	}

	writeJSON(w, http.StatusOK, items)
}

// Delete cancels a registration. Unknown ids also answer 204.
func (h *RegistrationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		writeServerError(w, r, nil, h.env())
		return
	}

	removed, err := h.Service.Cancel(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeServerError(w, r, err, h.Env)
		return
	}
	if removed {
		metrics.RegistrationsCancelled.Inc()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationsHandler) env() string {
	if h == nil {
		return ""
	}
	return h.Env
}
