package engine

import (
	"slices"

	"github.com/pr0mega/BCLLDraft/internal/division"
	"github.com/pr0mega/BCLLDraft/internal/roster"
)

// NewEmptyState is the pre-ingest state: no players, the given divisions with
// no teams, no draft and an empty log.
func NewEmptyState(divs []division.Division) State {
	return State{
		Step:      StepUpload,
		Players:   roster.Index{},
		Divisions: division.CloneAll(divs),
		Draft:     nil,
		Log:       []LogEntry{},
	}
}

// Clone deep-copies the parts of s that Apply changes.
func (s State) Clone() State {
	out := s
	out.Players = s.Players.Clone()
	out.Divisions = division.CloneAll(s.Divisions)
	out.Draft = s.Draft.Clone()
	if s.Log != nil {
		out.Log = make([]LogEntry, len(s.Log))
		for i, e := range s.Log {
			e.Players = slices.Clone(e.Players)
			out.Log[i] = e
		}
	}
	return out
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func CountEvents(events []Event, eventType EventType) int {
	n := 0
	for _, event := range events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}
