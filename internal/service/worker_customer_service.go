package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
	"github.com/Strob0t/PaperDesk/internal/domain/worker"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// Inquiry intents.
const (
	IntentDelivery = "delivery"
	IntentPrice    = "price"
)

var (
	deliveryKeywords = []string{"delivery", "deliver", "ship", "shipping", "when", "time", "arrive", "available", "availability", "stock"}
	priceKeywords    = []string{"price", "cost", "how much", "quote", "rate", "charge"}
)

// itemAliases extend the catalog names with the short forms customers use.
var itemAliases = map[string]string{
	"paper":        "A4 paper",
	"a4":           "A4 paper",
	"a3":           "A3 paper",
	"letter":       "Letter-sized paper",
	"card stock":   "Cardstock",
	"glossy":       "Glossy paper",
	"matte":        "Matte paper",
	"recycled":     "Recycled paper",
	"crepe":        "Crepe paper",
	"kraft":        "Kraft paper",
	"poster":       "Poster paper",
	"banner":       "Banner paper",
	"plates":       "Paper plates",
	"cups":         "Paper cups",
	"envelope":     "Envelopes",
	"coloured":     "Colored paper",
	"color paper":  "Colored paper",
	"colour paper": "Colored paper",
}

type vocabEntry struct {
	keyword string
	item    string
}

// vocabulary is matched longest keyword first so that "glossy paper"
// wins over the bare "paper" alias.
var vocabulary = buildVocabulary()

func buildVocabulary() []vocabEntry {
	var v []vocabEntry
	for _, c := range ledger.Catalog {
		v = append(v, vocabEntry{keyword: normalizeText(c.Name), item: c.Name})
	}
	for k, item := range itemAliases {
		v = append(v, vocabEntry{keyword: k, item: item})
	}
	slices.SortFunc(v, func(a, b vocabEntry) int {
		if c := cmp.Compare(len(b.keyword), len(a.keyword)); c != 0 {
			return c
		}
		return cmp.Compare(a.keyword, b.keyword)
	})
	return v
}

// normalizeText lowercases s and turns punctuation into spaces.
func normalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// containsWord reports whether phrase occurs in text on word boundaries.
func containsWord(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// MatchItem returns the catalog item a question refers to.
func MatchItem(question string) (string, bool) {
	q := normalizeText(question)
	for _, e := range vocabulary {
		if containsWord(q, e.keyword) {
			return e.item, true
		}
	}
	return "", false
}

// ClassifyIntent returns the inquiry intents present in question.
func ClassifyIntent(question string) (delivery, price bool) {
	q := normalizeText(question)
	for _, k := range deliveryKeywords {
		if containsWord(q, k) {
			delivery = true
			break
		}
	}
	for _, k := range priceKeywords {
		if containsWord(q, k) {
			price = true
			break
		}
	}
	return delivery, price
}

// CustomerServiceWorker answers delivery and price questions about catalog items.
type CustomerServiceWorker struct {
	gw Dispatcher
}

// NewCustomerServiceWorker creates a CustomerServiceWorker.
func NewCustomerServiceWorker(gw Dispatcher) *CustomerServiceWorker {
	return &CustomerServiceWorker{gw: gw}
}

func (w *CustomerServiceWorker) Name() workflow.Agent { return workflow.AgentCustomerService }

func (w *CustomerServiceWorker) Process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) worker.Result {
	return runWorker(ctx, w.Name(), req, wctx, w.process)
}

func (w *CustomerServiceWorker) process(ctx context.Context, req *workflow.Request, wctx *workflow.Context) (worker.Result, error) {
	op := string(w.Name())
	if strings.TrimSpace(req.Question) == "" {
		return nil, worker.Errorf(worker.KindValidation, op, "question is required")
	}

	item, ok := MatchItem(req.Question)
	if !ok {
		return nil, worker.Errorf(worker.KindValidation, op,
			"could not identify a product in the question; please rephrase naming the item")
	}
	delivery, price := ClassifyIntent(req.Question)
	if !delivery && !price {
		return nil, worker.Errorf(worker.KindValidation, op,
			"please rephrase: ask about delivery time or price for %s", item)
	}

	date := asOfDate(req, wctx)
	out := worker.Result{"status": "answered", "item_name": item}
	var answer []string

	if delivery {
		stock, err := stockOf(ctx, w.gw, item, date)
		if err != nil {
			return nil, err
		}
		out["current_stock"] = stock
		if stock <= 0 {
			out["delivery_time"] = "out of stock"
			answer = append(answer, fmt.Sprintf("%s is currently out of stock.", item))
		} else {
			out["delivery_time"] = "immediate"
			answer = append(answer, fmt.Sprintf("%s is in stock (%d units) and ships immediately.", item, stock))
		}
	}
	if price {
		unit, err := priceOf(ctx, w.gw, item)
		if err != nil {
			return nil, err
		}
		out["unit_price"] = unit
		answer = append(answer, fmt.Sprintf("%s costs $%.2f per unit.", item, unit))
	}
	out["answer"] = strings.Join(answer, " ")
	return out, nil
}
