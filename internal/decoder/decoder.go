// Package decoder turns a free-form completion into a JSON object.
package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

type Strategy string

const (
	StrategyVerbatim Strategy = "verbatim"
	StrategyBraces   Strategy = "braces"
	StrategyRepaired Strategy = "repaired"
)

// Result is the decoded object and the strategy that produced it.
type Result struct {
	Object   map[string]any
	Strategy Strategy
}

var fenceRe = regexp.MustCompile("```(?:json|JSON)?")

// Decode tries the strategies in order and returns the first one that yields
// a JSON object. Arrays, scalars and null never count as success.
func Decode(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)

	if obj, ok := parseObject(trimmed); ok {
		return Result{Object: obj, Strategy: StrategyVerbatim}, nil
	}

	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		if obj, ok := parseObject(trimmed[start : end+1]); ok {
			return Result{Object: obj, Strategy: StrategyBraces}, nil
		}
	}

	if obj, ok := parseObject(repair(trimmed)); ok {
		return Result{Object: obj, Strategy: StrategyRepaired}, nil
	}

	return Result{}, domain.NewStageError(domain.KindDecodeFailure,
		fmt.Errorf("%w: no JSON object in %d bytes of completion", domain.ErrDecodeFailure, len(raw)))
}

func repair(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "'", `"`)
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	s = strings.TrimSpace(s)
	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

func parseObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	// anything after the object means the candidate was not pure JSON
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return obj, true
}
