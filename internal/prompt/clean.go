package prompt

import (
	"regexp"
	"strings"
)

var (
	pipeRe     = regexp.MustCompile(`[|]+`)
	ruleRe     = regexp.MustCompile(`[-_=]{2,}`)
	boxRe      = regexp.MustCompile(`[│─┼┌┐└┘╔╗╚╝═]+`)
	blankRe    = regexp.MustCompile(`\n\s*\n+`)
	spacesRe   = regexp.MustCompile(`[ \t]{2,}`)
	splitNumRe = regexp.MustCompile(`(\d),[ \t]+(\d{3})\b`)
	qtyLineRe  = regexp.MustCompile(`^\s*\d+(\.\d+)?\s*[@xX]\s*\d+(\.\d+)?`)
)

// Clean removes table drawing noise from OCR output, collapses blank lines and
// runs of spaces, rejoins split thousands groups and folds quantity lines
// ("2 @ 350.00") into the product line above them.
func Clean(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = pipeRe.ReplaceAllString(s, " ")
	s = ruleRe.ReplaceAllString(s, " ")
	s = boxRe.ReplaceAllString(s, " ")
	s = blankRe.ReplaceAllString(s, "\n")
	s = spacesRe.ReplaceAllString(s, " ")
	s = splitNumRe.ReplaceAllString(s, "$1,$2")
	return strings.TrimSpace(mergeQtyLines(s))
}

func mergeQtyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if qtyLineRe.MatchString(l) && len(out) > 0 {
			out[len(out)-1] += " " + l
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}
