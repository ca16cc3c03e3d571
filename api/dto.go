/*
dto.go - Request/response shapes for the command surface

PURPOSE:
  JSON payloads for the closure commands and account queries. Dates arrive
  in the caller's declared dateFormat (Go layout not exposed: formats are
  the usual dd MMMM yyyy / yyyy-MM-dd style and mapped here); locale and
  dateFormat are echoed back in responses for human-readable change logs.
*/
package api

import (
	"fmt"
	"time"

	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

type closureRequest struct {
	ClosureDate            string `json:"closureDate"`
	Locale                 string `json:"locale"`
	DateFormat             string `json:"dateFormat"`
	Disposition            string `json:"onAccountClosureType"` // withdraw | transfer_to_savings | reinvest
	TargetSavingsAccountID string `json:"toSavingsAccountId"`
	TransferDescription    string `json:"transferDescription"`
	ClosedBy               string `json:"closedBy"`
}

type previewRequest struct {
	ClosureDate string `json:"closureDate"`
	Locale      string `json:"locale"`
	DateFormat  string `json:"dateFormat"`
}

// dateFormats maps the externally-used format names onto Go layouts.
var dateFormats = map[string]string{
	"":             "2006-01-02",
	"yyyy-MM-dd":   "2006-01-02",
	"dd MMMM yyyy": "02 January 2006",
	"dd/MM/yyyy":   "02/01/2006",
}

func parseDate(value, format string) (ledger.Date, error) {
	layout, ok := dateFormats[format]
	if !ok {
		return ledger.Date{}, fmt.Errorf("unsupported date format %q", format)
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return ledger.Date{}, fmt.Errorf("invalid date %q for format %q", value, format)
	}
	return ledger.DateOf(t), nil
}

func (r closureRequest) toCommand() (deposit.ClosureCommand, error) {
	date, err := parseDate(r.ClosureDate, r.DateFormat)
	if err != nil {
		return deposit.ClosureCommand{}, err
	}
	disposition := deposit.Disposition(r.Disposition)
	switch disposition {
	case deposit.DispositionWithdraw, deposit.DispositionTransferToSavings, deposit.DispositionReinvest:
	case "":
		disposition = deposit.DispositionWithdraw
	default:
		return deposit.ClosureCommand{}, fmt.Errorf("unknown closure disposition %q", r.Disposition)
	}
	return deposit.ClosureCommand{
		ClosureDate:            date,
		Disposition:            disposition,
		TargetSavingsAccountID: r.TargetSavingsAccountID,
		TransferDescription:    r.TransferDescription,
		Locale:                 r.Locale,
		DateFormat:             r.DateFormat,
		ClosedBy:               r.ClosedBy,
	}, nil
}

// =============================================================================
// RESPONSES
// =============================================================================

type violationDTO struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error      string         `json:"error"`
	Violations []violationDTO `json:"violations,omitempty"`
}

type accountResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"productId"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	Currency       string `json:"currency"`
	DepositAmount  string `json:"depositAmount"`
	DepositPeriod  string `json:"depositPeriod"`
	MaturityAmount string `json:"maturityAmount"`
	MaturityDate   string `json:"maturityDate"`
	ActivationDate string `json:"activationDate,omitempty"`
	ClosedDate     string `json:"closedDate,omitempty"`
}

func toAccountResponse(a *deposit.Account) accountResponse {
	out := accountResponse{
		ID:             a.ID,
		ProductID:      a.ProductID,
		Kind:           string(a.Kind),
		Status:         string(a.Status),
		Currency:       a.Currency,
		DepositAmount:  a.Term.DepositAmount.String(),
		DepositPeriod:  fmt.Sprintf("%d %s", a.Term.DepositPeriod.Length, a.Term.DepositPeriod.Unit),
		MaturityAmount: a.Term.MaturityAmount.String(),
	}
	if !a.Term.MaturityDate.IsZero() {
		out.MaturityDate = a.Term.MaturityDate.String()
	}
	if !a.ActivationDate.IsZero() {
		out.ActivationDate = a.ActivationDate.String()
	}
	if !a.Term.ClosedDate.IsZero() {
		out.ClosedDate = a.Term.ClosedDate.String()
	}
	return out
}

type previewResponse struct {
	Locale         string `json:"locale,omitempty"`
	DateFormat     string `json:"dateFormat,omitempty"`
	ClosureDate    string `json:"closureDate"`
	MaturityAmount string `json:"prematureAmount"`
	TotalInterest  string `json:"totalInterest"`
}

type closureResponse struct {
	AccountID           string `json:"accountId"`
	Status              string `json:"status"`
	MaturityAmount      string `json:"maturityAmount"`
	PayoutTransactionID string `json:"payoutTransactionId,omitempty"`
	ReinvestedAccountID string `json:"reinvestedAccountId,omitempty"`
	Locale              string `json:"locale,omitempty"`
	DateFormat          string `json:"dateFormat,omitempty"`
}

type transactionResponse struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	RunningBalance string `json:"runningBalance"`
	Reversed       bool   `json:"reversed"`
	Description    string `json:"description,omitempty"`
}

func toTransactionResponses(txs []ledger.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = transactionResponse{
			ID:             string(tx.ID),
			Type:           string(tx.Type),
			Date:           tx.Date.String(),
			Amount:         tx.Amount.Value.StringFixed(2),
			RunningBalance: tx.RunningBalance.Value.StringFixed(2),
			Reversed:       tx.Reversed,
			Description:    tx.Description,
		}
	}
	return out
}
