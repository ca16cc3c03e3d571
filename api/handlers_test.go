/*
handlers_test.go - Tests for the HTTP command surface

Tests for:
- Premature closure over HTTP (happy path and validation mapping)
- Closure preview
- Error status mapping (422 validation, 409 state, 404 unknown account)
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/deposit-engine/accrual"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/journal"
	"github.com/warp/deposit-engine/ledger"
	"github.com/warp/deposit-engine/ledger/store"
	"github.com/warp/deposit-engine/transfer"
)

// newTestServer wires a full orchestrator over in-memory stores and returns
// the router plus the clock it reads.
func newTestServer(t *testing.T) (*httptest.Server, *deposit.Service, *ledger.Date) {
	t.Helper()

	clock := ledger.NewDate(2025, 1, 1)
	ledgerSvc := ledger.NewService(store.NewMemory())
	svc := &deposit.Service{
		Accounts: deposit.NewMemoryRepository(),
		Products: deposit.NewStaticProducts(&deposit.Product{
			ID:       "fd-standard",
			Currency: "USD",
			Kind:     deposit.KindFixed,
			Chart: deposit.InterestRateChart{Slabs: []deposit.RateSlab{
				{FromDate: ledger.NewDate(2020, 1, 1), AnnualRatePercent: decimal.NewFromInt(10)},
			}},
			PostingPeriodType: accrual.PostingAnnual,
			Compounding:       accrual.CompoundingNone,
		}),
		Ledger:    ledgerSvc,
		Calc:      deposit.NewMaturityCalculator(accrual.DailyBalanceCalculator{}),
		Transfers: transfer.NewService(ledgerSvc),
		Bridge:    journal.NewBridge(&journal.MemorySink{}),
		Now:       func() ledger.Date { return clock },
	}

	server := httptest.NewServer(NewRouter(NewHandler(svc, ledgerSvc, nil)))
	t.Cleanup(server.Close)
	return server, svc, &clock
}

// openActiveAccount submits, approves, and activates a one-year 10,000
// deposit on January 1, 2025.
func openActiveAccount(t *testing.T, svc *deposit.Service, accountID string) {
	t.Helper()
	ctx := context.Background()
	jan1 := ledger.NewDate(2025, 1, 1)

	_, err := svc.Submit(ctx, "fd-standard", deposit.OpenCommand{
		AccountID:     accountID,
		DepositAmount: decimal.NewFromInt(10000),
		DepositPeriod: deposit.Term{Length: 1, Unit: deposit.UnitYears},
		SubmittedDate: jan1,
	})
	if err != nil {
		t.Fatalf("Failed to submit account: %v", err)
	}
	if _, err := svc.Approve(ctx, accountID, jan1); err != nil {
		t.Fatalf("Failed to approve account: %v", err)
	}
	if _, err := svc.Activate(ctx, accountID, jan1); err != nil {
		t.Fatalf("Failed to activate account: %v", err)
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func TestPrematureClose_HappyPath(t *testing.T) {
	server, svc, clock := newTestServer(t)
	openActiveAccount(t, svc, "td-100")
	*clock = ledger.NewDate(2025, 7, 1)

	resp := postJSON(t, server.URL+"/api/accounts/td-100/premature-close", map[string]string{
		"closureDate":          "2025-07-01",
		"dateFormat":           "yyyy-MM-dd",
		"onAccountClosureType": "withdraw",
		"closedBy":             "teller-1",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body closureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Status != string(deposit.StatusPreMatureClosed) {
		t.Errorf("Expected premature_closed status, got %s", body.Status)
	}
	// 181 days at 10% on 10,000.
	if body.MaturityAmount != "10495.89" {
		t.Errorf("Expected maturity amount 10495.89, got %s", body.MaturityAmount)
	}
	if body.PayoutTransactionID == "" {
		t.Error("Expected a payout transaction id")
	}
}

func TestPrematureClose_ValidationBundle_Returns422(t *testing.T) {
	server, svc, clock := newTestServer(t)
	openActiveAccount(t, svc, "td-100")
	*clock = ledger.NewDate(2025, 2, 1)

	// Closure date in the future relative to the clock.
	resp := postJSON(t, server.URL+"/api/accounts/td-100/premature-close", map[string]string{
		"closureDate":          "2025-03-01",
		"onAccountClosureType": "transfer_to_savings",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", resp.StatusCode)
	}

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	codes := map[string]bool{}
	for _, v := range body.Violations {
		codes[v.Code] = true
	}
	if !codes[deposit.CodeClosureInFuture] {
		t.Error("Expected closure-in-future violation")
	}
	if !codes[deposit.CodeTransferTargetMissing] {
		t.Error("Expected transfer-target-missing violation")
	}
}

func TestClose_WrongState_Returns409(t *testing.T) {
	server, svc, clock := newTestServer(t)
	openActiveAccount(t, svc, "td-100")
	*clock = ledger.NewDate(2025, 7, 1)

	// Final closure on an account that is still active.
	resp := postJSON(t, server.URL+"/api/accounts/td-100/close", map[string]string{
		"closureDate": "2025-07-01",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}
}

func TestGetAccount_Unknown_Returns404(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/accounts/no-such-account")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestPreviewClosure_ReturnsProjection(t *testing.T) {
	server, svc, clock := newTestServer(t)
	openActiveAccount(t, svc, "td-100")
	*clock = ledger.NewDate(2025, 7, 1)

	resp := postJSON(t, server.URL+"/api/accounts/td-100/preview-closure", map[string]string{
		"closureDate": "01 July 2025",
		"dateFormat":  "dd MMMM yyyy",
		"locale":      "en",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var body previewResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.MaturityAmount != "10495.89" {
		t.Errorf("Expected premature amount 10495.89, got %s", body.MaturityAmount)
	}
	if body.TotalInterest != "495.89" {
		t.Errorf("Expected total interest 495.89, got %s", body.TotalInterest)
	}
	if body.ClosureDate != "2025-07-01" {
		t.Errorf("Expected normalized closure date, got %s", body.ClosureDate)
	}

	// Preview must not have closed the account.
	a, err := svc.Accounts.Get(context.Background(), "td-100")
	if err != nil {
		t.Fatalf("Failed to load account: %v", err)
	}
	if a.Status != deposit.StatusActive {
		t.Errorf("Expected account still active, got %s", a.Status)
	}
}

func TestPrematureClose_MalformedDate_Returns400(t *testing.T) {
	server, svc, _ := newTestServer(t)
	openActiveAccount(t, svc, "td-100")

	resp := postJSON(t, server.URL+"/api/accounts/td-100/premature-close", map[string]string{
		"closureDate": "07/01/2025",
		"dateFormat":  "yyyy-MM-dd",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}
