package rule

// MaxLineQuantity bounds a single order line in the default preset.
const MaxLineQuantity = 1_000_000

// PaymentMethods are the payment methods the default preset accepts for sales.
var PaymentMethods = []string{"invoice", "cash", "card", "credit_card", "debit_card", "bank_transfer", "check"}

// Default returns the built-in rule set used when no rules file exists.
func Default() Set {
	return Set{
		Name: "default",
		Rules: []Rule{
			{
				ID:          "reject-oversized-line",
				Description: "single line exceeds the maximum order quantity",
				Condition:   Condition{Field: FieldMaxQuantity, Op: OpGt, Value: float64(MaxLineQuantity)},
				Action:      ActionReject,
				Parameters:  map[string]any{"max_quantity": MaxLineQuantity},
			},
			{
				ID:          "reject-unknown-payment",
				Description: "sale with an unsupported payment method",
				Condition: Condition{All: []Condition{
					{Field: FieldType, Op: OpEq, Value: "sale_request"},
					{Field: FieldPaymentMethod, Op: OpExists},
					{Not: &Condition{Field: FieldPaymentMethod, Op: OpIn, Value: paymentValues()}},
				}},
				Action: ActionReject,
			},
			{
				ID:          "accept-inquiry",
				Description: "inquiries never touch the ledger",
				Condition:   Condition{Field: FieldType, Op: OpEq, Value: "inquiry"},
				Action:      ActionAccept,
			},
		},
	}
}

func paymentValues() []any {
	out := make([]any, len(PaymentMethods))
	for i, m := range PaymentMethods {
		out[i] = m
	}
	return out
}
