package workflow

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{"valid quote", Request{Type: TypeQuote, Items: []Item{{Name: "A4 paper", Quantity: 10}}}, ""},
		{"valid sale", Request{Type: TypeSale, Items: []Item{{Name: "A4 paper", Quantity: 1}}}, ""},
		{"valid inquiry", Request{Type: TypeInquiry, Question: "price of cardstock?"}, ""},
		{"unknown type passes", Request{Type: "complaint"}, ""},
		{"missing type", Request{}, "type is required"},
		{"quote without items", Request{Type: TypeQuote}, "items must not be empty"},
		{"sale without items", Request{Type: TypeSale, Items: []Item{}}, "items must not be empty"},
		{"zero quantity", Request{Type: TypeSale, Items: []Item{{Name: "A4 paper"}}}, "quantity must be > 0"},
		{"blank item name", Request{Type: TypeQuote, Items: []Item{{Name: " ", Quantity: 1}}}, "name is required"},
		{"inquiry without question", Request{Type: TypeInquiry, Question: "  "}, "question is required"},
		{"bad delivery date", Request{Type: TypeInquiry, Question: "q", DeliveryDate: "tomorrow"}, "delivery_date"},
		{"bad as_of_date", Request{Type: TypeInquiry, Question: "q", AsOfDate: "2025/01/01"}, "as_of_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRequestAggregates(t *testing.T) {
	req := Request{Items: []Item{{Name: "A4 paper", Quantity: 100}, {Name: "Cardstock", Quantity: 250}}}
	if got := req.TotalQuantity(); got != 350 {
		t.Errorf("TotalQuantity = %d, want 350", got)
	}
	if got := req.MaxQuantity(); got != 250 {
		t.Errorf("MaxQuantity = %d, want 250", got)
	}
	if got := req.ItemNames(); !reflect.DeepEqual(got, []string{"A4 paper", "Cardstock"}) {
		t.Errorf("ItemNames = %v", got)
	}
}

func TestSequence(t *testing.T) {
	tests := []struct {
		typ  RequestType
		want []Agent
	}{
		{TypeQuote, []Agent{AgentQuoting, AgentInventory, AgentFinance}},
		{TypeSale, []Agent{AgentSales, AgentInventory, AgentFinance}},
		{TypeInquiry, []Agent{AgentCustomerService, AgentInventory, AgentQuoting}},
		{"refund", []Agent{AgentCustomerService}},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := Sequence(tt.typ); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sequence(%q) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestRecordTerminalTransitions(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := NewRecord("wf-1", Request{Type: TypeQuote}, now)

	if rec.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", rec.Status)
	}
	if err := rec.AppendStep(Step{Agent: AgentQuoting, Success: true}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := rec.Reject("cannot fulfill", now); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rec.RejectionReason != "cannot fulfill" || rec.FinishedAt == nil {
		t.Errorf("unexpected record after reject: %+v", rec)
	}

	if err := rec.Complete(now); !errors.Is(err, ErrTerminal) {
		t.Errorf("Complete on terminal record: expected ErrTerminal, got %v", err)
	}
	if err := rec.Fail("boom", now); !errors.Is(err, ErrTerminal) {
		t.Errorf("Fail on terminal record: expected ErrTerminal, got %v", err)
	}
	if err := rec.AppendStep(Step{Agent: AgentFinance}); !errors.Is(err, ErrTerminal) {
		t.Errorf("AppendStep on terminal record: expected ErrTerminal, got %v", err)
	}
	if rec.Status != StatusRejected || rec.Error != "" || len(rec.Steps) != 1 {
		t.Errorf("terminal record was mutated: %+v", rec)
	}
}

func TestRecordSetBalances(t *testing.T) {
	initial, final := 1000.0, 1001.5
	rec := NewRecord("wf", Request{}, time.Now())

	rec.SetBalances(&initial, &final)
	if !rec.CashBalanceChanged || rec.CashBalanceChange != 1.5 {
		t.Errorf("expected change 1.5, got changed=%v change=%v", rec.CashBalanceChanged, rec.CashBalanceChange)
	}

	rec.SetBalances(&initial, &initial)
	if rec.CashBalanceChanged {
		t.Error("identical balances must not report a change")
	}

	rec.SetBalances(&initial, nil)
	if rec.CashBalanceChanged || rec.FinalCashBalance != nil {
		t.Error("missing final balance must not report a change")
	}
}

func TestContextItemsFor(t *testing.T) {
	wctx := NewContext("wf", "2025-01-01")
	wctx.InquiryItems = []Item{{Name: "Cardstock", Quantity: 1}}

	if got := wctx.ItemsFor(&Request{Type: TypeInquiry}); len(got) != 1 || got[0].Name != "Cardstock" {
		t.Errorf("expected inquiry items, got %v", got)
	}
	own := []Item{{Name: "A3 paper", Quantity: 5}}
	if got := wctx.ItemsFor(&Request{Items: own}); got[0].Name != "A3 paper" {
		t.Errorf("request items must take precedence, got %v", got)
	}

	wctx.MarkCommitted("A3 paper")
	if !wctx.Committed("A3 paper") || wctx.Committed("A4 paper") {
		t.Error("committed tracking mismatch")
	}
}
