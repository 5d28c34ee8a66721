package poker

import "sort"

// Pot is one pot (main or side) and the set of player IDs eligible to win it.
type Pot struct {
	Amount     int64
	Eligible   map[string]bool
}

// PotManager tracks betting contributions across a hand and builds side pots
// at all-in boundaries using the canonical algorithm: sort the distinct total
// contribution levels, and for each level carve out the pot made of every
// player's contribution up to that level (capped at the level itself),
// restricted to players who contributed at least that much.
type PotManager struct {
	// TotalBet is each player's cumulative contribution across the whole hand.
	TotalBet map[string]int64
	// CurrentBet is each player's contribution in the current betting round.
	CurrentBet map[string]int64

	order []string // seat order, for stable iteration
}

// NewPotManager creates an empty pot manager for the given player IDs, in seat order.
func NewPotManager(playerIDs []string) *PotManager {
	pm := &PotManager{
		TotalBet:   make(map[string]int64, len(playerIDs)),
		CurrentBet: make(map[string]int64, len(playerIDs)),
		order:      append([]string{}, playerIDs...),
	}
	return pm
}

// AddBet records amount committed by playerID, in both the round and hand totals.
func (pm *PotManager) AddBet(playerID string, amount int64) {
	pm.CurrentBet[playerID] += amount
	pm.TotalBet[playerID] += amount
}

// ResetRound clears per-round contributions ahead of the next street; hand
// totals (used for side-pot construction) are untouched.
func (pm *PotManager) ResetRound() {
	pm.CurrentBet = make(map[string]int64, len(pm.order))
}

// ReturnUncalledBet returns the amount of the highest bettor's contribution
// that no other player matched, so it can be refunded to them instead of
// entering a pot no one could possibly contest. Folded players' contributions
// count toward the match; the folded map is not consulted.
func (pm *PotManager) ReturnUncalledBet(folded map[string]bool) (playerID string, amount int64) {
	var highPlayer string
	var high, secondHigh int64
	for _, id := range pm.order {
		bet := pm.TotalBet[id]
		if bet > high {
			secondHigh = high
			high = bet
			highPlayer = id
		} else if bet > secondHigh {
			secondHigh = bet
		}
	}
	if highPlayer == "" || high <= secondHigh {
		return "", 0
	}
	return highPlayer, high - secondHigh
}

// BuildSidePots partitions all contributions into a main pot plus side pots
// at each distinct all-in contribution level. folded excludes folded
// players from eligibility but still counts their chips into the pots.
func (pm *PotManager) BuildSidePots(folded map[string]bool) []Pot {
	levels := distinctLevels(pm.TotalBet)
	if len(levels) == 0 {
		return nil
	}

	var pots []Pot
	var prevLevel int64
	for _, level := range levels {
		slice := level - prevLevel
		if slice <= 0 {
			continue
		}
		var amount int64
		eligible := make(map[string]bool)
		for _, id := range pm.order {
			contributed := pm.TotalBet[id]
			if contributed <= prevLevel {
				continue
			}
			take := contributed - prevLevel
			if take > slice {
				take = slice
			}
			amount += take
			if contributed >= level && !folded[id] {
				eligible[id] = true
			}
		}
		if amount > 0 {
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
		prevLevel = level
	}
	return pots
}

func distinctLevels(totalBet map[string]int64) []int64 {
	seen := make(map[int64]bool)
	var levels []int64
	for _, v := range totalBet {
		if v > 0 && !seen[v] {
			seen[v] = true
			levels = append(levels, v)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// DistributePots awards each pot to the eligible player(s) with the best
// hand, splitting ties evenly with any odd remainder going to the first
// winner in seat order after the dealer (the standard "earliest position"
// rule). It returns each winning player's total award across all pots.
func DistributePots(pots []Pot, hands map[string]HandValue, seatOrder []string) map[string]int64 {
	awards := make(map[string]int64)
	for _, pot := range pots {
		if pot.Amount == 0 || len(pot.Eligible) == 0 {
			continue
		}

		var contenders []string
		for _, id := range seatOrder {
			if pot.Eligible[id] {
				contenders = append(contenders, id)
			}
		}
		if len(contenders) == 0 {
			for id := range pot.Eligible {
				contenders = append(contenders, id)
			}
		}
		if len(contenders) == 1 {
			awards[contenders[0]] += pot.Amount
			continue
		}

		var hvs []HandValue
		for _, id := range contenders {
			hvs = append(hvs, hands[id])
		}
		winnerIdx := FindWinners(hvs)

		share := pot.Amount / int64(len(winnerIdx))
		remainder := pot.Amount % int64(len(winnerIdx))
		for i, idx := range winnerIdx {
			amount := share
			if int64(i) < remainder {
				amount++
			}
			awards[contenders[idx]] += amount
		}
	}
	return awards
}
