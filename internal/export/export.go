// Package export writes the CSV files the league office downloads after a
// draft: team rosters and the pick log.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pr0mega/BCLLDraft/internal/engine"
	"github.com/pr0mega/BCLLDraft/internal/roster"
)

var RosterHeader = []string{
	"Team", "Evaluation ID", "Player First Name", "Player Last Name", "Birth Date", "Gender",
	"Jersey Size", "Allergies", "Parent Email", "Cellphone", "Address",
}

var DraftLogHeader = []string{
	"Timestamp", "Division", "Round", "Pick", "Team", "Evaluation ID", "First Name", "Last Name",
}

// WriteRosters writes one row per player on every team of the current session.
// Age is derived data and never exported.
func WriteRosters(w io.Writer, s *engine.Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RosterHeader); err != nil {
		return fmt.Errorf("write roster header: %w", err)
	}
	if s != nil {
		for _, team := range s.Teams {
			for _, p := range team.Roster {
				if err := cw.Write(rosterRow(team.Name, p)); err != nil {
					return fmt.Errorf("write roster row %s: %w", p.ID, err)
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func rosterRow(team string, p roster.Player) []string {
	return []string{
		team, p.EvalID, p.FirstName, p.LastName, p.BirthDate, p.Gender,
		p.JerseySize, p.Allergies, p.Email, p.Phone, p.Address(),
	}
}

// WriteDraftLog writes one row per player per log entry, siblings included,
// in pick order.
func WriteDraftLog(w io.Writer, log []engine.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DraftLogHeader); err != nil {
		return fmt.Errorf("write draft log header: %w", err)
	}
	for _, e := range log {
		for _, p := range e.Players {
			row := []string{
				e.At.UTC().Format(time.RFC3339),
				e.Division,
				strconv.Itoa(e.Round),
				strconv.Itoa(e.Pick),
				e.Team,
				p.EvalID,
				p.FirstName,
				p.LastName,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write draft log row %s: %w", p.ID, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
