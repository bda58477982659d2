// Package workflow defines the request, workflow record and per-run context
// that the coordinator drives through the worker pipeline.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/PaperDesk/internal/domain"
)

// RequestType tags the kind of customer request.
type RequestType string

const (
	TypeQuote   RequestType = "quote_request"
	TypeSale    RequestType = "sale_request"
	TypeInquiry RequestType = "inquiry"
)

// Valid reports whether t is one of the recognized request types.
func (t RequestType) Valid() bool {
	switch t {
	case TypeQuote, TypeSale, TypeInquiry:
		return true
	}
	return false
}

// Item is a single requested line.
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Request is an incoming customer request. It is read-only to the core.
type Request struct {
	Type          RequestType `json:"type"`
	CustomerID    string      `json:"customer_id,omitempty"`
	Items         []Item      `json:"items,omitempty"`
	DeliveryDate  string      `json:"delivery_date,omitempty"` // YYYY-MM-DD
	PaymentMethod string      `json:"payment_method,omitempty"`
	EventType     string      `json:"event_type,omitempty"`
	JobType       string      `json:"job_type,omitempty"`
	NeedSize      string      `json:"need_size,omitempty"`
	Question      string      `json:"question,omitempty"`
	Priority      int         `json:"priority,omitempty"`
	// AsOfDate pins the ledger date used for stock, balance and transactions.
	// Empty means "today" as decided by the coordinator.
	AsOfDate string `json:"as_of_date,omitempty"`
}

// Validate checks the request invariants: items are required for quotes and
// sales, a question is required for inquiries. Unknown types pass here and
// are routed to customer service by the coordinator.
func (r *Request) Validate() error {
	switch r.Type {
	case TypeQuote, TypeSale:
		if err := ValidateItems(r.Items); err != nil {
			return err
		}
	case TypeInquiry:
		if strings.TrimSpace(r.Question) == "" {
			return fmt.Errorf("%w: question is required for inquiry", domain.ErrValidation)
		}
	case "":
		return fmt.Errorf("%w: type is required", domain.ErrValidation)
	}
	if r.DeliveryDate != "" {
		if _, err := time.Parse(time.DateOnly, r.DeliveryDate); err != nil {
			return fmt.Errorf("%w: delivery_date %q: expected YYYY-MM-DD", domain.ErrValidation, r.DeliveryDate)
		}
	}
	if r.AsOfDate != "" {
		if _, err := time.Parse(time.DateOnly, r.AsOfDate); err != nil {
			return fmt.Errorf("%w: as_of_date %q: expected YYYY-MM-DD", domain.ErrValidation, r.AsOfDate)
		}
	}
	return nil
}

// ValidateItems checks that items is non-empty and every line is well formed.
func ValidateItems(items []Item) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items must not be empty", domain.ErrValidation)
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: items[%d].name is required", domain.ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: items[%d].quantity must be > 0", domain.ErrValidation, i)
		}
	}
	return nil
}

// TotalQuantity sums the quantities of all items.
func (r *Request) TotalQuantity() int {
	n := 0
	for _, it := range r.Items {
		n += it.Quantity
	}
	return n
}

// MaxQuantity returns the largest single-line quantity, or 0.
func (r *Request) MaxQuantity() int {
	m := 0
	for _, it := range r.Items {
		if it.Quantity > m {
			m = it.Quantity
		}
	}
	return m
}

// ItemNames returns the requested item names in order.
func (r *Request) ItemNames() []string {
	names := make([]string, len(r.Items))
	for i, it := range r.Items {
		names[i] = it.Name
	}
	return names
}
