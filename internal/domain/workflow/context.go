package workflow

// QuoteLine is one priced line of a quote.
type QuoteLine struct {
	ItemName     string  `json:"item_name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	ItemTotal    float64 `json:"item_total"`
	CurrentStock int     `json:"current_stock"`
	InStock      bool    `json:"in_stock"`
}

// Handoff is a message the previous step left for the current one.
type Handoff struct {
	MessageID string
	From      Agent
	Priority  int
	Content   map[string]any
}

// Context carries step outputs forward within a single run. The coordinator
// owns it and fills it from each step's result before the next step starts.
type Context struct {
	WorkflowID string
	AsOfDate   string // YYYY-MM-DD used for every ledger call in the run

	QuoteDetails []QuoteLine
	TotalAmount  float64
	CanFulfill   *bool
	HasQuote     bool

	// InquiryItems are the items customer service recognized in a question.
	InquiryItems []Item

	// CommittedItems are item names whose sale transaction was already
	// written earlier in this run.
	CommittedItems map[string]bool

	// Outputs holds the raw data of every successful step.
	Outputs map[Agent]map[string]any

	// Inbox holds the handoffs delivered to the step that is running now.
	// It is replaced before every step.
	Inbox []Handoff
}

// NewContext returns an empty context for one run.
func NewContext(workflowID, asOf string) *Context {
	return &Context{
		WorkflowID:     workflowID,
		AsOfDate:       asOf,
		CommittedItems: make(map[string]bool),
		Outputs:        make(map[Agent]map[string]any),
	}
}

// ItemsFor returns the request items, or the items recognized by customer
// service when the request carries none.
func (c *Context) ItemsFor(req *Request) []Item {
	if len(req.Items) > 0 {
		return req.Items
	}
	if c == nil {
		return nil
	}
	return c.InquiryItems
}

// MarkCommitted records that a sale transaction for name was written.
func (c *Context) MarkCommitted(name string) {
	if c.CommittedItems == nil {
		c.CommittedItems = make(map[string]bool)
	}
	c.CommittedItems[name] = true
}

// Committed reports whether a sale transaction for name was already written.
func (c *Context) Committed(name string) bool {
	return c != nil && c.CommittedItems[name]
}
