package roster

import "slices"

// Index is the league-wide player list in ingest order. Methods that change
// players return a new Index and leave the receiver untouched.
type Index []Player

func (ix Index) Clone() Index {
	if ix == nil {
		return nil
	}
	out := make(Index, len(ix))
	copy(out, ix)
	return out
}

func (ix Index) Find(id string) (Player, bool) {
	for _, p := range ix {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// Undrafted returns the players of division that are still on the board, in
// ingest order.
func (ix Index) Undrafted(division string) []Player {
	out := []Player{}
	for _, p := range ix {
		if p.Division == division && !p.Drafted {
			out = append(out, p)
		}
	}
	return out
}

// InDivision returns every player of division regardless of drafted status.
func (ix Index) InDivision(division string) []Player {
	out := []Player{}
	for _, p := range ix {
		if p.Division == division {
			out = append(out, p)
		}
	}
	return out
}

// Unassigned returns players that still need a division picked by hand.
func (ix Index) Unassigned() []Player {
	out := []Player{}
	for _, p := range ix {
		if p.Division == "" {
			out = append(out, p)
		}
	}
	return out
}

func (ix Index) WithDrafted(ids []string, drafted bool) Index {
	out := ix.Clone()
	for i := range out {
		if slices.Contains(ids, out[i].ID) {
			out[i].Drafted = drafted
		}
	}
	return out
}

// WithDivisionReset marks every player of division undrafted.
func (ix Index) WithDivisionReset(division string) Index {
	out := ix.Clone()
	for i := range out {
		if out[i].Division == division {
			out[i].Drafted = false
		}
	}
	return out
}

func (ix Index) WithDivision(id, division string) Index {
	out := ix.Clone()
	for i := range out {
		if out[i].ID == id {
			out[i].Division = NormalizeDivision(division)
		}
	}
	return out
}

// CountUndrafted returns the number of players left on the board per division.
// Players without a division are not counted.
func (ix Index) CountUndrafted() map[string]int {
	counts := make(map[string]int)
	for _, p := range ix {
		if !p.Drafted && p.Division != "" {
			counts[p.Division]++
		}
	}
	return counts
}

// SortByIndex orders players by ingest position.
func SortByIndex(players []Player) {
	slices.SortStableFunc(players, func(a, b Player) int { return a.Index - b.Index })
}
