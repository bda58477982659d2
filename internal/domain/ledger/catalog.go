package ledger

import "time"

// Catalog is the product list with list prices.
var Catalog = []CatalogItem{
	{Name: "A4 paper", Category: "paper", UnitPrice: 0.05},
	{Name: "A3 paper", Category: "paper", UnitPrice: 0.10},
	{Name: "Letter-sized paper", Category: "paper", UnitPrice: 0.06},
	{Name: "Cardstock", Category: "paper", UnitPrice: 0.15},
	{Name: "Colored paper", Category: "paper", UnitPrice: 0.10},
	{Name: "Glossy paper", Category: "paper", UnitPrice: 0.20},
	{Name: "Matte paper", Category: "paper", UnitPrice: 0.18},
	{Name: "Recycled paper", Category: "paper", UnitPrice: 0.08},
	{Name: "Crepe paper", Category: "specialty", UnitPrice: 0.05},
	{Name: "Kraft paper", Category: "specialty", UnitPrice: 0.10},
	{Name: "Poster paper", Category: "large_format", UnitPrice: 0.25},
	{Name: "Banner paper", Category: "large_format", UnitPrice: 0.30},
	{Name: "Paper plates", Category: "product", UnitPrice: 0.10},
	{Name: "Paper cups", Category: "product", UnitPrice: 0.08},
	{Name: "Envelopes", Category: "product", UnitPrice: 0.05},
}

// OpeningCash is the starting capital booked when seeding.
const OpeningCash = 50000.0

// SeedDate is the first day of the ledger; opening balances are booked on it.
var SeedDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// OpeningStock is the seeded on-hand quantity per catalog item.
var OpeningStock = map[string]int{
	"A4 paper":           5000,
	"A3 paper":           2000,
	"Letter-sized paper": 3000,
	"Cardstock":          1500,
	"Colored paper":      1200,
	"Glossy paper":       800,
	"Matte paper":        600,
	"Recycled paper":     2500,
	"Crepe paper":        0,
	"Kraft paper":        700,
	"Poster paper":       300,
	"Banner paper":       200,
	"Paper plates":       1000,
	"Paper cups":         1000,
	"Envelopes":          4000,
}

// SampleQuotes seeds the quote history.
var SampleQuotes = []Quote{
	{RequestText: "Need 1000 sheets of A4 paper for office use", TotalAmount: 50, Explanation: "A4 paper bulk office order at list price", JobType: "office manager", OrderSize: "medium", EventType: "office use"},
	{RequestText: "500 sheets of A3 paper for a presentation", TotalAmount: 50, Explanation: "A3 paper for presentation handouts", JobType: "presentation manager", OrderSize: "small", EventType: "presentation"},
	{RequestText: "Cardstock for conference badges, 300 sheets", TotalAmount: 45, Explanation: "Cardstock conference order", JobType: "event planner", OrderSize: "small", EventType: "conference"},
	{RequestText: "Glossy paper for a product brochure, 2000 sheets", TotalAmount: 380, Explanation: "Glossy paper bulk discount 5 percent", JobType: "marketing lead", OrderSize: "large", EventType: "product launch"},
	{RequestText: "Crepe paper and paper plates for a party", TotalAmount: 35, Explanation: "Party supplies bundle with crepe paper", JobType: "teacher", OrderSize: "small", EventType: "party"},
}
