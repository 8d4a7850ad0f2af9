// Package reward implements the emission schedule for block subsidies. The
// subsidy halves each time the cumulative issuance crosses another geometric
// threshold of the supply cap, and never lets issuance exceed the cap.
package reward

import "github.com/shopspring/decimal"

// maxHalvings bounds the threshold search. After 63 halvings the threshold
// is indistinguishable from the cap for any practical supply.
const maxHalvings = 63

// half is used to halve amounts exactly. Multiplying by 0.5 never loses
// precision with decimal arithmetic.
var half = decimal.New(5, -1)

// Halvings returns the number of halvings that have occurred for the specified
// cumulative issuance. This is the largest n for which issuance has reached
// maxSupply * (1 - 1/2^n).
func Halvings(totalIssued decimal.Decimal, maxSupply decimal.Decimal) int {
	var count int

	// remaining holds maxSupply / 2^n so the threshold is maxSupply - remaining.
	remaining := maxSupply
	for n := 1; n <= maxHalvings; n++ {
		remaining = remaining.Mul(half)

		threshold := maxSupply.Sub(remaining)
		if totalIssued.LessThan(threshold) {
			break
		}
		count = n
	}

	return count
}

// Current returns the subsidy for the next block given the cumulative
// issuance so far. The result is never negative and never pushes issuance
// past maxSupply.
func Current(totalIssued decimal.Decimal, baseReward decimal.Decimal, maxSupply decimal.Decimal) decimal.Decimal {
	if totalIssued.GreaterThanOrEqual(maxSupply) {
		return decimal.Zero
	}

	reward := baseReward
	for i, n := 0, Halvings(totalIssued, maxSupply); i < n; i++ {
		reward = reward.Mul(half)
	}

	if left := maxSupply.Sub(totalIssued); reward.GreaterThan(left) {
		reward = left
	}

	return reward
}
