// internal/api/handler/admin.go
package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"mandir-fund/internal/api/types"
	"mandir-fund/internal/domain"
	"mandir-fund/internal/service"
	"mandir-fund/internal/util"
)

// AdminHandler handles the operator endpoints for reconciling UPI payments.
type AdminHandler struct {
	service service.DonationService
	logger  *zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc service.DonationService, logger *zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: svc,
		logger:  logger,
	}
}

// ConfirmRequest represents the request body for confirming a payment.
type ConfirmRequest struct {
	BankReference string `json:"bank_reference"`
}

// RecordDonationRequest represents the request body for an offline donation.
type RecordDonationRequest struct {
	DetailsRequest
	Amount int64 `json:"amount"`
}

// ListPayments returns payment intents by status.
// GET /api/admin/payments?status=PENDING&limit=20&offset=0
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := domain.PaymentIntentStatusPending
	if s := q.Get("status"); s != "" {
		parsed, ok := domain.ParsePaymentIntentStatus(s)
		if !ok {
			respondWithError(w, h.logger, fmt.Errorf("%w: unknown status %q", util.ErrInvalidInput, s))
			return
		}
		status = parsed
	}

	limit, err := queryInt(q.Get("limit"), 20)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	intents, total, err := h.service.ListPaymentIntents(r.Context(), status, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, types.NewPage(intents, limit, offset, total))
}

// ConfirmPayment records the donation for a payment seen on the bank statement.
// POST /api/admin/payments/{reference}/confirm
func (h *AdminHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	intent, donation, err := h.service.ConfirmPayment(r.Context(), chi.URLParam(r, "reference"), req.BankReference)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":  "Payment confirmed",
		"intent":   intent,
		"donation": donation,
	})
}

// CancelPayment abandons a pending payment.
// POST /api/admin/payments/{reference}/cancel
func (h *AdminHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	intent, err := h.service.CancelPayment(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message": "Payment cancelled",
		"intent":  intent,
	})
}

// RecordDonation records a donation received outside the UPI flow.
// POST /api/admin/donations
func (h *AdminHandler) RecordDonation(w http.ResponseWriter, r *http.Request) {
	var req RecordDonationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	donation, err := h.service.RecordDonation(r.Context(), domain.DonorDetails{
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	}, req.Amount)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, donation)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", util.ErrInvalidInput, raw)
	}
	return v, nil
}
