// Package filter decides which stories reach readers. Every item runs
// through a fixed sequence of accept/reject stages; the first rejection
// wins and there is no scoring.
package filter

import (
	"log/slog"

	"github.com/sudandialogue/newsdesk/internal/models"
)

// Stage names a rejection step.
type Stage string

const (
	StageBlocklist         Stage = "blocklist"
	StageSourceSignal      Stage = "source_signal"
	StageRelevance         Stage = "relevance"
	StageNoise             Stage = "noise"
	StageArmedNarrative    Stage = "armed_narrative"
	StageMovementNarrative Stage = "movement_narrative"
)

// Stages lists the steps in evaluation order.
var Stages = []Stage{
	StageBlocklist,
	StageSourceSignal,
	StageRelevance,
	StageNoise,
	StageArmedNarrative,
	StageMovementNarrative,
}

// Check returns the stage that rejects item, or ok=true when it passes.
func (r *Rules) Check(item models.NewsItem) (Stage, bool) {
	c := CandidateOf(item)
	switch {
	case r.Blocked(c):
		return StageBlocklist, false
	case !r.HasSourceSignal(c):
		return StageSourceSignal, false
	case !r.Relevant(c.Text):
		return StageRelevance, false
	case r.Noise(c.Text) && !r.Trusted(c):
		return StageNoise, false
	case r.OneSidedArmedNarrative(c.Text):
		return StageArmedNarrative, false
	case r.OneSidedMovementNarrative(c.Text):
		return StageMovementNarrative, false
	}
	return "", true
}

// Apply keeps the items that pass every stage, preserving their order.
func (r *Rules) Apply(items []models.NewsItem) ([]models.NewsItem, Report) {
	rep := Report{Total: len(items), Rejected: make(map[Stage]int)}
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if stage, ok := r.Check(item); !ok {
			rep.Rejected[stage]++
			continue
		}
		out = append(out, item)
	}
	rep.Accepted = len(out)
	return out, rep
}

// Report counts the outcome of one Apply call.
type Report struct {
	Total    int
	Accepted int
	Rejected map[Stage]int
}

// LogValue implements slog.LogValuer.
func (rep Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("total", rep.Total),
		slog.Int("accepted", rep.Accepted),
	}
	for _, s := range Stages {
		if n := rep.Rejected[s]; n > 0 {
			attrs = append(attrs, slog.Int(string(s), n))
		}
	}
	return slog.GroupValue(attrs...)
}
