package processor

import (
	"context"
	"strings"
	"time"

	"github.com/substratehq/substrate/internal/domain"
)

const (
	weightStage        = 0.30
	weightCompleteness = 0.30
	weightRecency      = 0.20
	weightAssignment   = 0.20

	recencyDecayPerDay = 5.0

	healthyThreshold = 60.0
	atRiskThreshold  = 30.0
)

// Health scores project-like objects carrying organization and stage
// modules. The score blends stage progress, data completeness, update
// recency, and assignment presence into a 0-100 value with a label.
type Health struct {
	now func() time.Time
}

// NewHealth creates the health processor.
func NewHealth() *Health {
	return &Health{now: time.Now}
}

func (*Health) Spec() Spec {
	return Spec{
		Name:            "health",
		Description:     "Scores project health from stage, completeness, recency, and assignment.",
		RequiredModules: []string{domain.ModuleOrganization, domain.ModuleStage},
	}
}

func (h *Health) Process(_ context.Context, pc *Context) (map[string]any, error) {
	stageData, _ := pc.Module(domain.ModuleStage)
	stage := recordString(stageData, "stage")

	stageScore := stageProgress(stage)
	completenessScore := completeness(pc.Modules)
	recencyScore := recency(h.now(), pc.Object.UpdatedAt)
	assignmentScore := assignment(pc)

	score := stageScore*weightStage +
		completenessScore*weightCompleteness +
		recencyScore*weightRecency +
		assignmentScore*weightAssignment

	return map[string]any{
		"score":        score,
		"label":        healthLabel(score),
		"stage":        stageScore,
		"completeness": completenessScore,
		"recency":      recencyScore,
		"assignment":   assignmentScore,
	}, nil
}

func healthLabel(score float64) string {
	switch {
	case score >= healthyThreshold:
		return "healthy"
	case score >= atRiskThreshold:
		return "at-risk"
	default:
		return "critical"
	}
}

// stageProgress maps the pipeline stage onto 0-100 via the shared
// probability table; unlisted stages sit in the middle.
func stageProgress(stage string) float64 {
	p, ok := stageProbabilities[stage]
	if !ok {
		p = unknownStageProbability
	}
	return p * 100
}

// completeness is the share of non-empty field values across all attached
// module data.
func completeness(modules map[string]domain.Record) float64 {
	var total, filled int
	for _, rec := range modules {
		for _, v := range rec {
			total++
			if !emptyValue(v) {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total) * 100
}

// recency decays from 100 by 5 points per day since the last update.
func recency(now, updatedAt time.Time) float64 {
	days := now.Sub(updatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	score := 100 - days*recencyDecayPerDay
	if score < 0 {
		score = 0
	}
	return score
}

// assignment is all-or-nothing: an owner on the object or a non-empty
// assigned_to field in any module counts.
func assignment(pc *Context) float64 {
	if pc.Object.OwnerID != nil {
		return 100
	}
	for _, rec := range pc.Modules {
		if !emptyValue(rec["assigned_to"]) {
			return 100
		}
	}
	return 0
}

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}
