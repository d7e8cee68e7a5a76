package roster

import (
	"slices"
	"strings"
)

// HouseholdKey groups players registered under the same account surname at the
// same street address. Comparison is case-insensitive.
func HouseholdKey(p Player) string {
	return strings.ToLower(p.AccountLastName) + "-" + strings.ToLower(p.Street)
}

// FindSiblings returns the ids of players sharing a household key, one group per
// household with at least two members. Groups come out in the order their first
// member appears in players. Players with neither a surname nor a street have no
// household and are never grouped.
func FindSiblings(players []Player) [][]string {
	var keys []string
	groups := make(map[string][]string)
	for _, p := range players {
		if strings.TrimSpace(p.AccountLastName) == "" && strings.TrimSpace(p.Street) == "" {
			continue
		}
		key := HouseholdKey(p)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], p.ID)
	}

	out := [][]string{}
	for _, key := range keys {
		if g := groups[key]; len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// GroupOf returns the sibling group containing id, or nil.
func GroupOf(groups [][]string, id string) []string {
	for _, g := range groups {
		if slices.Contains(g, id) {
			return g
		}
	}
	return nil
}
