package processor

import (
	"context"
	"time"

	"github.com/substratehq/substrate/internal/domain"
)

// ticketTransitions is the fixed stage adjacency map for ticket-style
// workflows. A stage with no successors is terminal.
var ticketTransitions = map[string][]string{
	"new":      {"open"},
	"open":     {"pending", "resolved"},
	"pending":  {"open", "resolved"},
	"resolved": {"closed", "open"},
	"closed":   {},
}

const staleAfter = 7 * 24 * time.Hour

// Ticket reports workflow position for anything carrying a stage module:
// the allowed next stages and whether the ticket has gone stale.
type Ticket struct {
	now func() time.Time
}

// NewTicket creates the ticket processor.
func NewTicket() *Ticket {
	return &Ticket{now: time.Now}
}

func (*Ticket) Spec() Spec {
	return Spec{
		Name:            "ticket",
		Description:     "Tracks stage transitions and staleness for ticket workflows.",
		RequiredModules: []string{domain.ModuleStage},
	}
}

func (t *Ticket) Process(_ context.Context, pc *Context) (map[string]any, error) {
	stageData, _ := pc.Module(domain.ModuleStage)
	stage := recordString(stageData, "stage")

	next, known := ticketTransitions[stage]
	if next == nil {
		next = []string{}
	}
	terminal := known && len(next) == 0

	// Staleness counts from the last stage write, approximated by the stage
	// module's updated_at. Terminal tickets never go stale.
	var stale bool
	var idleDays float64
	if att, ok := pc.Object.Module(domain.ModuleStage); ok {
		idle := t.now().Sub(att.UpdatedAt)
		idleDays = idle.Hours() / 24
		stale = !terminal && idle > staleAfter
	}

	return map[string]any{
		"stage":               stage,
		"stage_known":         known,
		"allowed_transitions": next,
		"is_terminal":         terminal,
		"is_stale":            stale,
		"idle_days":           idleDays,
	}, nil
}

// CanTransition reports whether the fixed adjacency map allows moving from
// one stage to another.
func CanTransition(from, to string) bool {
	for _, next := range ticketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
