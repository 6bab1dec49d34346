// Package scanner provides the content scanner backends: an external command,
// an HTTP scanning service, and a no-op scanner for development.
package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/coachmart/preview-worker/internal/domain/model"
)

// ErrInvalidVerdict is returned when a backend's response cannot be mapped to a ScanResult.
var ErrInvalidVerdict = errors.New("invalid scanner verdict")

// Extractor maps a scanner's JSON document onto a ScanResult with JMESPath expressions.
type Extractor struct {
	RiskScoreExpr string
	FlagsExpr     string
}

func (e Extractor) identity() string {
	return "risk=" + e.RiskScoreExpr + " flags=" + e.FlagsExpr
}

// DefaultExtractor reads top-level "risk_score" and "flags".
func DefaultExtractor() Extractor {
	return Extractor{RiskScoreExpr: "risk_score", FlagsExpr: "flags"}
}

// Validate compiles both expressions.
func (e Extractor) Validate() error {
	if _, err := jmespath.Compile(e.RiskScoreExpr); err != nil {
		return fmt.Errorf("risk score expression: %w", err)
	}
	if _, err := jmespath.Compile(e.FlagsExpr); err != nil {
		return fmt.Errorf("flags expression: %w", err)
	}
	return nil
}

// Extract decodes raw JSON and evaluates the expressions. A missing flags value is
// an empty list; a missing or non-numeric score is an error.
func (e Extractor) Extract(raw []byte) (model.ScanResult, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.ScanResult{}, fmt.Errorf("%w: decode json: %w", ErrInvalidVerdict, err)
	}

	scoreVal, err := jmespath.Search(e.RiskScoreExpr, doc)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("evaluate risk score: %w", err)
	}
	score, ok := scoreVal.(float64)
	if !ok {
		return model.ScanResult{}, fmt.Errorf("%w: risk score %v is not a number", ErrInvalidVerdict, scoreVal)
	}

	flagsVal, err := jmespath.Search(e.FlagsExpr, doc)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("evaluate flags: %w", err)
	}
	flags, err := toFlags(flagsVal)
	if err != nil {
		return model.ScanResult{}, err
	}

	return model.ScanResult{RiskScore: score, Flags: flags}, nil
}

func toFlags(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: flag %v is not a string", ErrInvalidVerdict, item)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: flags must be a list, got %T", ErrInvalidVerdict, v)
	}
}
