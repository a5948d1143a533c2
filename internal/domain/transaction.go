package domain

// Status reports which pipeline path produced a record.
type Status string

const (
	StatusOK       Status = "ok"       // completion path validated
	StatusDegraded Status = "degraded" // heuristic fallback only
	StatusEmpty    Status = "empty"    // every strategy failed
)

const (
	DefaultMerchant     = "Unknown Merchant"
	DefaultLineMerchant = "Chat expense"
	DefaultCurrency     = "NGN"

	MaxMerchantLen    = 100
	MaxItemLen        = 50
	MaxItems          = 20
	MaxDescriptionLen = 500
)

// ExtractedTransaction is the canonical record handed to callers. Its JSON
// shape is the wire format shared with persistence and UI collaborators.
type ExtractedTransaction struct {
	Merchant    string   `json:"merchant"`
	Amount      float64  `json:"amount"`
	Currency    string   `json:"currency"`
	Date        *string  `json:"date"` // YYYY-MM-DD, or the raw matched text when unparsable
	Items       []string `json:"items"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
}

// Candidate renders the record back into the loosely-typed shape accepted by
// the normalizer.
func (t ExtractedTransaction) Candidate() map[string]any {
	items := make([]any, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, it)
	}
	var date any
	if t.Date != nil {
		date = *t.Date
	}
	return map[string]any{
		"merchant":    t.Merchant,
		"amount":      t.Amount,
		"currency":    t.Currency,
		"date":        date,
		"items":       items,
		"category":    t.Category,
		"description": t.Description,
	}
}

// Mode selects the heuristic extraction rules.
type Mode int

const (
	ModeReceipt Mode = iota
	ModeSingleLine
)

func (m Mode) String() string {
	switch m {
	case ModeReceipt:
		return "receipt"
	case ModeSingleLine:
		return "single_line"
	default:
		return "unknown"
	}
}

// PartialRecord is what the heuristic extractor found. Zero values and nil
// pointers mean the field was not found.
type PartialRecord struct {
	Merchant string
	Amount   *float64
	Currency string
	Date     *string
	Items    []string
	Category string
}

// Empty reports whether nothing at all was extracted.
func (p PartialRecord) Empty() bool {
	return p.Merchant == "" && p.Amount == nil && p.Date == nil && len(p.Items) == 0
}

// Candidate converts the partial record into a normalizer candidate, leaving
// absent fields out so that defaults apply.
func (p PartialRecord) Candidate() map[string]any {
	c := map[string]any{}
	if p.Merchant != "" {
		c["merchant"] = p.Merchant
	}
	if p.Amount != nil {
		c["amount"] = *p.Amount
	}
	if p.Currency != "" {
		c["currency"] = p.Currency
	}
	if p.Date != nil {
		c["date"] = *p.Date
	}
	if len(p.Items) > 0 {
		items := make([]any, 0, len(p.Items))
		for _, it := range p.Items {
			items = append(items, it)
		}
		c["items"] = items
	}
	if p.Category != "" {
		c["category"] = p.Category
	}
	return c
}

// LineExpense is the result of parsing a short free-form expense entry.
type LineExpense struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}
