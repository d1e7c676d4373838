// internal/api/handler/intake.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mandir-fund/internal/domain"
	"mandir-fund/internal/service"
)

// IntakeHandler handles HTTP requests for the donation wizard.
type IntakeHandler struct {
	service service.IntakeService
	logger  *zerolog.Logger
}

// NewIntakeHandler creates a new IntakeHandler.
func NewIntakeHandler(svc service.IntakeService, logger *zerolog.Logger) *IntakeHandler {
	return &IntakeHandler{
		service: svc,
		logger:  logger,
	}
}

// DetailsRequest represents the request body for the details step.
type DetailsRequest struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Start opens a new donation wizard.
// POST /api/intakes
func (h *IntakeHandler) Start(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Start(r.Context())
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, snap)
}

// Get returns the wizard state.
// GET /api/intakes/{intakeID}
func (h *IntakeHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Get(r.Context(), chi.URLParam(r, "intakeID"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, snap)
}

// SetAmount selects the amount and continues to the details step.
// PUT /api/intakes/{intakeID}/amount
func (h *IntakeHandler) SetAmount(w http.ResponseWriter, r *http.Request) {
	var req service.AmountSelection
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	snap, err := h.service.SetAmount(r.Context(), chi.URLParam(r, "intakeID"), req)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, snap)
}

// Back returns to the amount step.
// POST /api/intakes/{intakeID}/back
func (h *IntakeHandler) Back(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Back(r.Context(), chi.URLParam(r, "intakeID"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, snap)
}

// SubmitDetails validates donor details and returns the payment redirect.
// POST /api/intakes/{intakeID}/details
func (h *IntakeHandler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	var req DetailsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	snap, err := h.service.SubmitDetails(r.Context(), chi.URLParam(r, "intakeID"), domain.DonorDetails{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, snap)
}
