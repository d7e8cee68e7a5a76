package engine

import (
	"slices"
	"strings"
	"time"

	"github.com/pr0mega/BCLLDraft/internal/roster"
)

type Team struct {
	Name   string          `json:"name"`
	Roster []roster.Player `json:"roster"`
}

// PickRecord is one turn of the draft. Siblings placed with the player share
// the record and use no slot of their own.
type PickRecord struct {
	Round      int       `json:"round"`
	Pick       int       `json:"pick"` // 1-based
	Team       string    `json:"team"`
	Player     string    `json:"player"` // evaluation id
	PlayerID   string    `json:"playerId"`
	Siblings   []string  `json:"siblings"`
	SiblingIDs []string  `json:"siblingIds"`
	At         time.Time `json:"at"`
}

type LogPlayer struct {
	ID        string `json:"id"`
	EvalID    string `json:"evalId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LogEntry is the persistent record of a pick, covering the drafted player and
// every sibling placed with them.
type LogEntry struct {
	At       time.Time   `json:"ts"`
	Division string      `json:"division"`
	Round    int         `json:"round"`
	Pick     int         `json:"pick"`
	Team     string      `json:"team"`
	Players  []LogPlayer `json:"players"`
}

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusExhausted  Status = "exhausted"
)

// Session is the live draft of one division. Teams are indexed in draft order
// and DraftOrder holds one team index per pick slot.
type Session struct {
	Division     string          `json:"division"`
	Teams        []Team          `json:"teams"`
	Available    []roster.Player `json:"availablePlayers"`
	CurrentRound int             `json:"currentRound"`
	CurrentPick  int             `json:"currentPick"`
	DraftOrder   []int           `json:"draftOrder"`
	PickHistory  []PickRecord    `json:"pickHistory"`
}

func newSession(division string, teamNames []string, available []roster.Player) *Session {
	teams := make([]Team, len(teamNames))
	for i, name := range teamNames {
		teams[i] = Team{Name: name, Roster: []roster.Player{}}
	}
	pool := slices.Clone(available)
	if pool == nil {
		pool = []roster.Player{}
	}
	roster.SortByIndex(pool)
	return &Session{
		Division:     division,
		Teams:        teams,
		Available:    pool,
		CurrentRound: 1,
		CurrentPick:  0,
		DraftOrder:   GenerateOrder(len(teams), len(pool)),
		PickHistory:  []PickRecord{},
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		out.Teams[i] = Team{Name: t.Name, Roster: slices.Clone(t.Roster)}
	}
	out.Available = slices.Clone(s.Available)
	out.DraftOrder = slices.Clone(s.DraftOrder)
	out.PickHistory = make([]PickRecord, len(s.PickHistory))
	for i, rec := range s.PickHistory {
		rec.Siblings = slices.Clone(rec.Siblings)
		rec.SiblingIDs = slices.Clone(rec.SiblingIDs)
		out.PickHistory[i] = rec
	}
	return &out
}

// slot returns the team index on the clock at pick, false once the order runs out.
func (s *Session) slot(pick int) (int, bool) {
	if pick < 0 || pick >= len(s.DraftOrder) {
		return 0, false
	}
	idx := s.DraftOrder[pick]
	if idx < 0 || idx >= len(s.Teams) {
		return 0, false
	}
	return idx, true
}

func (s *Session) availableIndex(id string) int {
	return slices.IndexFunc(s.Available, func(p roster.Player) bool { return p.ID == id })
}

func (s *Session) Status() Status {
	if s == nil {
		return StatusNotStarted
	}
	if _, ok := s.slot(s.CurrentPick); !ok {
		return StatusExhausted
	}
	return StatusInProgress
}

// CurrentTeam returns the team on the clock.
func (s *Session) CurrentTeam() (Team, bool) {
	if s == nil {
		return Team{}, false
	}
	idx, ok := s.slot(s.CurrentPick)
	if !ok {
		return Team{}, false
	}
	return s.Teams[idx], true
}

// OldestAvailableAge returns the highest age still on the board. Players at that
// age are highlighted; it never restricts who may be picked.
func (s *Session) OldestAvailableAge() (int, bool) {
	if s == nil || len(s.Available) == 0 {
		return 0, false
	}
	oldest := s.Available[0].Age
	for _, p := range s.Available[1:] {
		oldest = max(oldest, p.Age)
	}
	return oldest, true
}

// Search filters the board by evaluation id, case-insensitively, oldest first.
func (s *Session) Search(term string) []roster.Player {
	if s == nil {
		return nil
	}
	term = strings.ToLower(strings.TrimSpace(term))
	out := []roster.Player{}
	for _, p := range s.Available {
		if term == "" || strings.Contains(strings.ToLower(p.EvalID), term) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b roster.Player) int { return b.Age - a.Age })
	return out
}
