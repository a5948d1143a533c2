package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

// RulesParser is the regex-based fallback extractor. It is stateless apart
// from the taxonomy used for category hints and safe for concurrent use.
type RulesParser struct {
	categories []categoryPattern
}

type categoryPattern struct {
	name string
	re   *regexp.Regexp
}

func NewRulesParser(taxonomy domain.Taxonomy) *RulesParser {
	p := &RulesParser{}
	for _, c := range taxonomy.Names() {
		if c == domain.FallbackCategory {
			continue
		}
		p.categories = append(p.categories, categoryPattern{
			name: c,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c) + `\b`),
		})
	}
	return p
}

const (
	number     = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`
	lineNumber = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?`
	currencies = `(?:[₦$€£]|\b(?:NGN|USD|EUR|GBP)\b)`
	months     = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

	currencySymbols = "₦$€£"

	merchantLines  = 5
	maxLineAmount  = 1e9
	minLineTextLen = 3
)

var (
	keywordAmountRe = regexp.MustCompile(`(?i)\b(?:grand\s*total|net\s*total|total|amount|sum|pay)\b[\s:]*` + currencies + `?\s*(` + number + `)`)
	symbolAmountRe  = regexp.MustCompile(`(?i)` + currencies + `\s*(` + number + `)`)
	suffixAmountRe  = regexp.MustCompile(`(?i)(` + number + `)\s*\b(?:NGN|USD|EUR|GBP)\b`)
	numberRe        = regexp.MustCompile(number)
	lineNumberRe    = regexp.MustCompile(lineNumber)
	thousandsRe     = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)

	itemRe        = regexp.MustCompile(`^(.+?)\s+[₦$€£]?\s*(` + number + `)\s*$`)
	summaryLineRe = regexp.MustCompile(`(?i)\b(?:sub\s*total|total|tax|vat|change|cash|balance|tel|phone)\b`)

	merchantNoiseRe = regexp.MustCompile(`[^\p{L}\s&'\-]`)
	headerWordRe    = regexp.MustCompile(`(?i)\b(?:receipt|invoice|tax|vat|date)\b`)

	// DD-MM-YYYY, YYYY-MM-DD, 1 Jan 2025, Jan 1, 2025; first pattern found wins.
	dateRes = []struct {
		re    *regexp.Regexp
		order string
	}{
		{regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})\b`), "dmy"},
		{regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`), "ymd"},
		{regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + months + `)[a-z]*\.?,?\s+(\d{2,4})\b`), "dMy"},
		{regexp.MustCompile(`(?i)\b(` + months + `)[a-z]*\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`), "Mdy"},
	}

	currencyHints = []struct {
		re   *regexp.Regexp
		code string
	}{
		{regexp.MustCompile(`(?i)₦|\bNGN\b|\bnaira\b`), "NGN"},
		{regexp.MustCompile(`(?i)\$|\bUSD\b`), "USD"},
		{regexp.MustCompile(`(?i)€|\bEUR\b`), "EUR"},
		{regexp.MustCompile(`(?i)£|\bGBP\b`), "GBP"},
	}
)

func (p *RulesParser) Extract(text string, mode domain.Mode) domain.PartialRecord {
	if mode == domain.ModeSingleLine {
		rec := domain.PartialRecord{
			Currency: guessCurrency(text),
			Category: p.guessCategory(text),
		}
		if line, ok := p.ParseLine(text); ok {
			amt := line.Amount
			rec.Merchant = line.Merchant
			rec.Amount = &amt
		}
		return rec
	}

	lines := nonEmptyLines(text)
	rec := domain.PartialRecord{
		Merchant: guessMerchant(lines),
		Amount:   guessAmount(text),
		Currency: guessCurrency(text),
		Date:     guessDate(text),
		Items:    guessItems(lines),
		Category: p.guessCategory(text),
	}
	return rec
}

// ParseLine takes the last number in the line as the amount and the rest as
// the merchant, so "Uber 4500", "4500 Uber" and "Food 5000 Restaurant" all work.
func (p *RulesParser) ParseLine(text string) (domain.LineExpense, bool) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minLineTextLen {
		return domain.LineExpense{}, false
	}
	locs := lineNumberRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return domain.LineExpense{}, false
	}
	last := locs[len(locs)-1]
	amount, err := parseLineNumber(text[last[0]:last[1]])
	if err != nil || amount <= 0 || amount >= maxLineAmount {
		return domain.LineExpense{}, false
	}

	start, end := attachedSymbol(text, last[0], last[1])
	merchant := strings.Join(strings.Fields(text[:start]+" "+text[end:]), " ")
	if merchant == "" {
		merchant = domain.DefaultLineMerchant
	}
	return domain.LineExpense{Merchant: merchant, Amount: amount}, true
}

// attachedSymbol widens the amount span [start, end) over a currency symbol
// written directly before or after the number, as in "₦4,500" or "12€".
func attachedSymbol(text string, start, end int) (int, int) {
	if r, size := utf8.DecodeLastRuneInString(text[:start]); strings.ContainsRune(currencySymbols, r) {
		start -= size
	}
	if r, size := utf8.DecodeRuneInString(text[end:]); strings.ContainsRune(currencySymbols, r) {
		end += size
	}
	return start, end
}

func guessMerchant(lines []string) string {
	for _, l := range lines[:min(merchantLines, len(lines))] {
		if headerWordRe.MatchString(l) {
			continue
		}
		cleaned := strings.Join(strings.Fields(merchantNoiseRe.ReplaceAllString(l, "")), " ")
		if n := utf8.RuneCountInString(cleaned); n >= 4 && n < 40 {
			return cleaned
		}
	}
	return ""
}

// guessAmount prefers figures anchored by a total keyword or a currency
// marker and takes the largest of them; otherwise the largest number in the
// text outside of dates.
func guessAmount(txt string) *float64 {
	var anchored []float64
	for _, re := range []*regexp.Regexp{keywordAmountRe, symbolAmountRe, suffixAmountRe} {
		for _, m := range re.FindAllStringSubmatch(txt, -1) {
			if v, err := parseNumber(m[1]); err == nil {
				anchored = append(anchored, v)
			}
		}
	}
	if v, ok := maxOf(anchored); ok {
		return &v
	}

	stripped := txt
	for _, d := range dateRes {
		stripped = d.re.ReplaceAllString(stripped, " ")
	}
	var all []float64
	for _, tok := range numberRe.FindAllString(stripped, -1) {
		if v, err := parseNumber(tok); err == nil {
			all = append(all, v)
		}
	}
	if v, ok := maxOf(all); ok {
		return &v
	}
	return nil
}

func guessDate(txt string) *string {
	for _, d := range dateRes {
		m := d.re.FindStringSubmatch(txt)
		if m == nil {
			continue
		}
		var y, mo, day int
		switch d.order {
		case "dmy":
			day, mo, y = atoi(m[1]), atoi(m[2]), atoi(m[3])
		case "ymd":
			y, mo, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
		case "dMy":
			day, mo, y = atoi(m[1]), monthFromName(m[2]), atoi(m[3])
		case "Mdy":
			mo, day, y = monthFromName(m[1]), atoi(m[2]), atoi(m[3])
		}
		out := m[0]
		if iso, ok := isoDate(y, mo, day); ok {
			out = iso
		}
		return &out
	}
	return nil
}

func guessItems(lines []string) []string {
	var items []string
	for _, l := range lines {
		if len(items) >= domain.MaxItems {
			break
		}
		m := itemRe.FindStringSubmatch(l)
		if m == nil || summaryLineRe.MatchString(l) {
			continue
		}
		desc := strings.TrimSpace(m[1])
		amt, err := parseNumber(m[2])
		if err != nil || amt <= 0 || utf8.RuneCountInString(desc) <= 2 {
			continue
		}
		items = append(items, desc)
	}
	return items
}

func guessCurrency(txt string) string {
	for _, h := range currencyHints {
		if h.re.MatchString(txt) {
			return h.code
		}
	}
	return ""
}

// guessCategory returns the first taxonomy term named in the text.
func (p *RulesParser) guessCategory(txt string) string {
	for _, c := range p.categories {
		if c.re.MatchString(txt) {
			return c.name
		}
	}
	return ""
}

func nonEmptyLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := strings.TrimSpace(r)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func isoDate(y, m, d int) (string, bool) {
	if y < 100 {
		y += 2000
	}
	if y < 1900 || y > 2100 || m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

func monthFromName(m string) int {
	m = strings.ToLower(m)
	for i, name := range strings.Split(months, "|") {
		if strings.HasPrefix(m, name) {
			return i + 1
		}
	}
	return 0
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// parseLineNumber reads "4,500" as a thousands group and "12,5" as a decimal comma.
func parseLineNumber(s string) (float64, error) {
	if thousandsRe.MatchString(s) {
		return parseNumber(s)
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

func maxOf(vs []float64) (float64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}
