package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/substratehq/substrate/internal/domain"
)

// stageProbabilities maps pipeline stages to close probability. Stages not
// listed default to 0.5; an object without a stage module counts in full.
var stageProbabilities = map[string]float64{
	"lead":        0.10,
	"qualified":   0.25,
	"proposal":    0.50,
	"negotiation": 0.75,
	"won":         1.00,
	"closed":      1.00,
	"completed":   1.00,
	"lost":        0.00,
	"rejected":    0.00,
}

const unknownStageProbability = 0.5

// Revenue computes the probability-weighted value of anything carrying a
// monetary module.
type Revenue struct{}

// NewRevenue creates the revenue processor.
func NewRevenue() *Revenue { return &Revenue{} }

func (*Revenue) Spec() Spec {
	return Spec{
		Name:            "revenue",
		Description:     "Weights monetary value by pipeline stage probability.",
		RequiredModules: []string{domain.ModuleMonetary},
		OptionalModules: []string{domain.ModuleStage},
	}
}

func (*Revenue) Process(_ context.Context, pc *Context) (map[string]any, error) {
	monetary, _ := pc.Module(domain.ModuleMonetary)

	amount, ok := recordNumber(monetary, "amount")
	if !ok {
		return nil, fmt.Errorf("monetary module has no numeric amount")
	}

	probability := 1.0
	var stage string
	if stageData, hasStage := pc.Module(domain.ModuleStage); hasStage {
		stage = recordString(stageData, "stage")
		p, known := stageProbabilities[stage]
		if !known {
			p = unknownStageProbability
		}
		probability = p
	}

	out := map[string]any{
		"amount":         amount,
		"probability":    probability,
		"weighted_value": amount * probability,
	}
	if stage != "" {
		out["stage"] = stage
	}
	if currency := recordString(monetary, "currency"); currency != "" {
		out["currency"] = currency
	}

	return out, nil
}

// recordNumber reads a numeric field, widening the types JSON decoding and
// direct Go callers produce.
func recordNumber(rec domain.Record, key string) (float64, bool) {
	switch v := rec[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func recordString(rec domain.Record, key string) string {
	s, _ := rec[key].(string)
	return s
}
