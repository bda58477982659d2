package workflow

// Agent names a worker role in the pipeline.
type Agent string

const (
	AgentInventory       Agent = "inventory"
	AgentQuoting         Agent = "quoting"
	AgentSales           Agent = "sales"
	AgentFinance         Agent = "finance"
	AgentCustomerService Agent = "customer_service"
)

// AllAgents lists every worker role.
var AllAgents = []Agent{AgentInventory, AgentQuoting, AgentSales, AgentFinance, AgentCustomerService}

// Sequence returns the fixed worker order for a request type.
// Unknown types are triaged by customer service alone.
func Sequence(t RequestType) []Agent {
	switch t {
	case TypeQuote:
		return []Agent{AgentQuoting, AgentInventory, AgentFinance}
	case TypeSale:
		return []Agent{AgentSales, AgentInventory, AgentFinance}
	case TypeInquiry:
		return []Agent{AgentCustomerService, AgentInventory, AgentQuoting}
	default:
		return []Agent{AgentCustomerService}
	}
}
