package division

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrUnknownDivision = errors.New("unknown division")
var ErrTeamNamesIncomplete = errors.New("team names incomplete")
var ErrInvalidTeamCount = errors.New("invalid team count")
var ErrNotPermutation = errors.New("draft order must list every team exactly once")

// Division is one age bracket. Teams keeps the order names were entered in;
// DraftOrderTeams is the same set of names in pick order.
type Division struct {
	Name            string   `json:"name" yaml:"name"`
	Order           int      `json:"order" yaml:"order"`
	Teams           []string `json:"teams" yaml:"teams"`
	DraftOrderTeams []string `json:"draftOrderTeams" yaml:"draftOrderTeams"`
}

// Defaults returns the league's stock divisions, all without teams.
func Defaults() []Division {
	return []Division{
		{Name: "Rookies", Order: 1, Teams: []string{}, DraftOrderTeams: []string{}},
		{Name: "Majors", Order: 2, Teams: []string{}, DraftOrderTeams: []string{}},
		{Name: "Minors", Order: 3, Teams: []string{}, DraftOrderTeams: []string{}},
		{Name: "Intermediate", Order: 4, Teams: []string{}, DraftOrderTeams: []string{}},
		{Name: "Juniors", Order: 5, Teams: []string{}, DraftOrderTeams: []string{}},
	}
}

// Skipped reports whether the division has no teams and takes no part in the draft.
func (d Division) Skipped() bool { return len(d.Teams) == 0 }

// PickOrder returns the team names in draft order, falling back to entry order
// when no draft order was set.
func (d Division) PickOrder() []string {
	if len(d.DraftOrderTeams) > 0 {
		return slices.Clone(d.DraftOrderTeams)
	}
	return slices.Clone(d.Teams)
}

func (d Division) Clone() Division {
	d.Teams = cloneNames(d.Teams)
	d.DraftOrderTeams = cloneNames(d.DraftOrderTeams)
	return d
}

func cloneNames(names []string) []string {
	if names == nil {
		return nil
	}
	return slices.Clone(names)
}

func CloneAll(divs []Division) []Division {
	if divs == nil {
		return nil
	}
	out := make([]Division, len(divs))
	for i, d := range divs {
		out[i] = d.Clone()
	}
	return out
}

// Sorted returns a copy of divs ordered by rank.
func Sorted(divs []Division) []Division {
	out := CloneAll(divs)
	slices.SortStableFunc(out, func(a, b Division) int { return a.Order - b.Order })
	return out
}

func Find(divs []Division, name string) (Division, bool) {
	for _, d := range divs {
		if d.Name == name {
			return d, true
		}
	}
	return Division{}, false
}

// SetTeams applies team setup for every division. counts holds the declared
// number of teams; names must supply exactly that many non-blank names. A
// division absent from counts gets zero teams. DraftOrderTeams is reset to the
// entered order.
func SetTeams(divs []Division, names map[string][]string, counts map[string]int) ([]Division, error) {
	out := CloneAll(divs)
	for i, d := range out {
		count := counts[d.Name]
		if count < 0 {
			return divs, fmt.Errorf("%s: %w", d.Name, ErrInvalidTeamCount)
		}
		entered := names[d.Name]
		if len(entered) != count {
			return divs, fmt.Errorf("%s: %d of %d teams named: %w", d.Name, len(entered), count, ErrTeamNamesIncomplete)
		}
		teams := make([]string, 0, count)
		for _, n := range entered {
			n = strings.TrimSpace(n)
			if n == "" {
				return divs, fmt.Errorf("%s: blank team name: %w", d.Name, ErrTeamNamesIncomplete)
			}
			teams = append(teams, n)
		}
		out[i].Teams = teams
		out[i].DraftOrderTeams = slices.Clone(teams)
	}
	return out, nil
}

// SetDraftOrder replaces the pick order of the named division. order must be a
// permutation of the division's teams.
func SetDraftOrder(divs []Division, name string, order []string) ([]Division, error) {
	idx := slices.IndexFunc(divs, func(d Division) bool { return d.Name == name })
	if idx < 0 {
		return divs, fmt.Errorf("%s: %w", name, ErrUnknownDivision)
	}
	if !IsPermutation(divs[idx].Teams, order) {
		return divs, fmt.Errorf("%s: %w", name, ErrNotPermutation)
	}
	out := CloneAll(divs)
	out[idx].DraftOrderTeams = slices.Clone(order)
	return out, nil
}

// ResetDraftOrder sets the pick order of the named division back to entry order.
func ResetDraftOrder(divs []Division, name string) ([]Division, error) {
	idx := slices.IndexFunc(divs, func(d Division) bool { return d.Name == name })
	if idx < 0 {
		return divs, fmt.Errorf("%s: %w", name, ErrUnknownDivision)
	}
	out := CloneAll(divs)
	out[idx].DraftOrderTeams = slices.Clone(out[idx].Teams)
	return out, nil
}

// IsPermutation reports whether b holds the same multiset of names as a.
func IsPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, n := range a {
		seen[n]++
	}
	for _, n := range b {
		seen[n]--
		if seen[n] < 0 {
			return false
		}
	}
	return true
}
