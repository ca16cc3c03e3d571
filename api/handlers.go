/*
handlers.go - HTTP handlers for the deposit command surface

PURPOSE:
  Translates HTTP commands into orchestrator calls and engine errors into
  status codes:
    422 - validation error bundle (all violations at once)
    409 - illegal state transition
    404 - unknown account
    400 - malformed payload
  The handlers own no business logic; everything interesting happens in the
  deposit package.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ledger"
)

type Handler struct {
	Closures *deposit.Service
	Ledger   *ledger.Service
	Log      *zap.Logger
}

func NewHandler(closures *deposit.Service, ledgerSvc *ledger.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Closures: closures, Ledger: ledgerSvc, Log: log}
}

// =============================================================================
// QUERIES
// =============================================================================

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.Closures.Accounts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(a))
}

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.Closures.Accounts.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Ledger.Account(r.Context(), a.ID, a.Currency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTransactionResponses(view.Transactions))
}

// =============================================================================
// COMMANDS
// =============================================================================

func (h *Handler) PreviewClosure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	closureDate, err := parseDate(req.ClosureDate, req.DateFormat)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	result, err := h.Closures.PreviewClosure(r.Context(), id, closureDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, previewResponse{
		Locale:         req.Locale,
		DateFormat:     req.DateFormat,
		ClosureDate:    closureDate.String(),
		MaturityAmount: result.MaturityAmount.Value.StringFixed(2),
		TotalInterest:  result.TotalInterest().Value.StringFixed(2),
	})
}

func (h *Handler) PrematureClose(w http.ResponseWriter, r *http.Request) {
	h.handleClosure(w, r, h.Closures.PrematureClosure)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.handleClosure(w, r, h.Closures.Close)
}

type closureOp func(ctx context.Context, accountID string, cmd deposit.ClosureCommand) (*deposit.ClosureResult, error)

func (h *Handler) handleClosure(w http.ResponseWriter, r *http.Request, op closureOp) {
	id := chi.URLParam(r, "id")
	var req closureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadRequest(w, err)
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	result, err := op(r.Context(), id, cmd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Log.Info("deposit account closed",
		zap.String("account_id", id),
		zap.String("disposition", string(cmd.Disposition)),
		zap.String("status", string(result.Account.Status)))
	h.writeJSON(w, http.StatusOK, closureResponse{
		AccountID:           result.Account.ID,
		Status:              string(result.Account.Status),
		MaturityAmount:      result.MaturityAmount.Value.StringFixed(2),
		PayoutTransactionID: string(result.PayoutTransactionID),
		ReinvestedAccountID: result.ReinvestedAccountID,
		Locale:              cmd.Locale,
		DateFormat:          cmd.DateFormat,
	})
}

func (h *Handler) UpdateMaturity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.Closures.UpdateMaturityStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAccountResponse(a))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Log.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validation *deposit.ValidationErrors
	if errors.As(err, &validation) {
		violations := make([]violationDTO, len(validation.Violations))
		for i, v := range validation.Violations {
			violations[i] = violationDTO{Code: v.Code, Field: v.Field, Message: v.Message}
		}
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      "validation failed",
			Violations: violations,
		})
		return
	}

	switch {
	case errors.Is(err, deposit.ErrInvalidState), errors.Is(err, deposit.ErrReinvestNotAllowed):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, deposit.ErrAccountNotFound), errors.Is(err, deposit.ErrProductNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		h.Log.Error("internal error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
