package engine

// GenerateOrder returns the serpentine pick order for a division: one entry per
// pick slot holding a team index. Even rounds run 0..teamCount-1, odd rounds run
// back down. There are enough rounds for every player to be picked one at a
// time; sibling co-picks free up slots, so the draft may end with slots unused.
func GenerateOrder(teamCount, playerCount int) []int {
	order := []int{}
	if teamCount <= 0 {
		return order
	}
	rounds := (playerCount + teamCount - 1) / teamCount
	for r := 0; r < rounds; r++ {
		if r%2 == 0 {
			for t := 0; t < teamCount; t++ {
				order = append(order, t)
			}
		} else {
			for t := teamCount - 1; t >= 0; t-- {
				order = append(order, t)
			}
		}
	}
	return order
}

// RoundFor returns the 1-based round of the 0-based pick.
func RoundFor(pick, teamCount int) int {
	if teamCount <= 0 {
		return 1
	}
	return pick/teamCount + 1
}
