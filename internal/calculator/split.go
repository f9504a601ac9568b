// Package calculator holds the pure split math for group orders.
// Nothing in here touches storage or the clock; everything is unit testable
// on its own.
package calculator

import (
	"errors"
	"fmt"
	"math"
)

// Tolerance is the maximum absolute difference between the sum of custom
// amounts and the order total for the split to be considered reconciled.
const Tolerance = 0.01

var ErrNoMembers = errors.New("split requires at least one member")

// MismatchError reports that custom amounts do not reconcile to the total.
// Delta = sum(amounts) - total.
type MismatchError struct {
	Delta float64
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("split amounts do not match order total (delta: %+.2f)", e.Delta)
}

// EqualSplit divides total equally among the given members.
//
// The division is exact in the smallest currency unit: the total is converted
// to minor units, divided, and any remainder is assigned one minor unit at a
// time to members in the order given (join order). The returned amounts
// always sum to total exactly.
func EqualSplit(total float64, memberIDs []string) (map[string]float64, error) {
	if len(memberIDs) == 0 {
		return nil, ErrNoMembers
	}

	cents := int64(math.Round(total * 100))
	n := int64(len(memberIDs))
	base := cents / n
	remainder := cents % n

	amounts := make(map[string]float64, len(memberIDs))
	for i, id := range memberIDs {
		share := base
		if int64(i) < remainder {
			share++
		}
		amounts[id] = float64(share) / 100
	}
	return amounts, nil
}

// SplitDelta returns sum(amounts) - total, computed in minor units so float
// accumulation noise never shows up in the result.
func SplitDelta(total float64, amounts map[string]float64) float64 {
	var sumCents int64
	for _, a := range amounts {
		sumCents += int64(math.Round(a * 100))
	}
	return float64(sumCents-int64(math.Round(total*100))) / 100
}

// ValidateCustomSplit checks that the assigned amounts reconcile to the order
// total. Returns nil when |sum(amounts) - total| < Tolerance, otherwise a
// *MismatchError carrying the delta.
func ValidateCustomSplit(total float64, amounts map[string]float64) error {
	delta := SplitDelta(total, amounts)
	if math.Abs(delta) < Tolerance {
		return nil
	}
	return &MismatchError{Delta: delta}
}
