// Package normalizer coerces loosely-typed candidate records into canonical
// transactions. Every value it returns satisfies the record invariants.
package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

var placeholderMerchants = map[string]bool{
	"unknown merchant": true,
	"merchant":         true,
	"n/a":              true,
	"none":             true,
	"":                 true,
}

var nullDates = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"n/a":  true,
}

var currencySymbols = map[string]string{
	"₦": "NGN",
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

type Normalizer struct {
	taxonomy        domain.Taxonomy
	defaultCurrency string
	log             zerolog.Logger
}

// New returns a normalizer bound to taxonomy. An invalid defaultCurrency falls
// back to domain.DefaultCurrency.
func New(taxonomy domain.Taxonomy, defaultCurrency string, log zerolog.Logger) *Normalizer {
	cur := strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if !isCurrencyCode(cur) {
		cur = domain.DefaultCurrency
	}
	return &Normalizer{taxonomy: taxonomy, defaultCurrency: cur, log: log}
}

func (n *Normalizer) DefaultCurrency() string { return n.defaultCurrency }

// Normalize never fails: missing or malformed fields are replaced by their
// defaults and each substitution is logged at debug level.
func (n *Normalizer) Normalize(candidate map[string]any, status domain.Status) domain.ExtractedTransaction {
	tx := domain.ExtractedTransaction{
		Merchant: n.merchant(candidate["merchant"]),
		Amount:   n.amount(candidate["amount"]),
		Currency: n.currency(candidate["currency"]),
		Date:     date(candidate["date"]),
		Items:    n.items(candidate["items"]),
		Category: n.category(candidate["category"]),
		Status:   status,
	}
	tx.Description = description(tx.Items, tx.Merchant)
	return tx
}

func (n *Normalizer) downgrade(field string, raw any, def any) {
	n.log.Debug().
		Str("kind", string(domain.KindValidationDowngrade)).
		Str("field", field).
		Str("raw", truncate(fmt.Sprint(raw), 80)).
		Interface("default", def).
		Msg("field replaced by default")
}

func (n *Normalizer) merchant(v any) string {
	s := truncate(strings.TrimSpace(stringify(v)), domain.MaxMerchantLen)
	if placeholderMerchants[strings.ToLower(s)] {
		if v != nil {
			n.downgrade("merchant", v, domain.DefaultMerchant)
		}
		return domain.DefaultMerchant
	}
	return s
}

func (n *Normalizer) amount(v any) float64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		if v != nil {
			n.downgrade("amount", v, 0)
		}
		return 0
	}
	if f < 0 {
		n.downgrade("amount", v, 0)
		return 0
	}
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}

func (n *Normalizer) currency(v any) string {
	s := strings.TrimSpace(stringify(v))
	if code, ok := currencySymbols[s]; ok {
		return code
	}
	s = strings.ToUpper(s)
	if utf8.RuneCountInString(s) > 3 {
		s = string([]rune(s)[:3])
	}
	if !isCurrencyCode(s) {
		if v != nil {
			n.downgrade("currency", v, n.defaultCurrency)
		}
		return n.defaultCurrency
	}
	return s
}

func date(v any) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(stringify(v))
	if nullDates[strings.ToLower(s)] {
		return nil
	}
	s = truncate(s, 10)
	return &s
}

func (n *Normalizer) items(v any) []string {
	var raw []any
	switch t := v.(type) {
	case nil:
	case []any:
		raw = t
	case []string:
		for _, s := range t {
			raw = append(raw, s)
		}
	default:
		raw = []any{t}
	}

	out := make([]string, 0, min(len(raw), domain.MaxItems))
	for _, r := range raw {
		if len(out) == domain.MaxItems {
			n.downgrade("items", len(raw), domain.MaxItems)
			break
		}
		if falsy(r) {
			continue
		}
		s := strings.TrimSpace(itemText(r))
		if s == "" {
			continue
		}
		out = append(out, truncate(s, domain.MaxItemLen))
	}
	return out
}

func (n *Normalizer) category(v any) string {
	s := stringify(v)
	c := n.taxonomy.Match(s)
	if c == domain.FallbackCategory && !strings.EqualFold(strings.TrimSpace(s), c) && v != nil {
		n.downgrade("category", v, c)
	}
	return c
}

func description(items []string, merchant string) string {
	if len(items) > 0 {
		return truncate(strings.Join(items[:min(3, len(items))], ", "), domain.MaxDescriptionLen)
	}
	return truncate(merchant, domain.MaxDescriptionLen)
}

// itemText renders an item; objects are shown by their most name-like field.
func itemText(v any) string {
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"name", "description", "title"} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		for sym := range currencySymbols {
			s = strings.TrimPrefix(s, sym)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case float64:
		return t == 0
	case json.Number:
		return t.String() == "0"
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimRightFunc(string([]rune(s)[:n]), unicode.IsSpace)
}
