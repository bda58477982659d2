package rule

import (
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// Fields a condition may reference.
const (
	FieldType          = "type"
	FieldCustomerID    = "customer_id"
	FieldPaymentMethod = "payment_method"
	FieldEventType     = "event_type"
	FieldJobType       = "job_type"
	FieldNeedSize      = "need_size"
	FieldQuestion      = "question"
	FieldDeliveryDate  = "delivery_date"
	FieldItemCount     = "item_count"
	FieldTotalQuantity = "total_quantity"
	FieldMaxQuantity   = "max_quantity"
	FieldItemNames     = "item_names"
)

// Facts flattens a request into the values conditions are evaluated against.
func Facts(req *workflow.Request) map[string]any {
	return map[string]any{
		FieldType:          string(req.Type),
		FieldCustomerID:    req.CustomerID,
		FieldPaymentMethod: req.PaymentMethod,
		FieldEventType:     req.EventType,
		FieldJobType:       req.JobType,
		FieldNeedSize:      req.NeedSize,
		FieldQuestion:      req.Question,
		FieldDeliveryDate:  req.DeliveryDate,
		FieldItemCount:     float64(len(req.Items)),
		FieldTotalQuantity: float64(req.TotalQuantity()),
		FieldMaxQuantity:   float64(req.MaxQuantity()),
		FieldItemNames:     req.ItemNames(),
	}
}
