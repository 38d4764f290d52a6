// Package guard holds the pure admission checks applied before
// membership- and stock-mutating writes. The checks read like the
// error messages they produce; controllers re-run them against fresh
// state and pair them with a conditional update so a lost race is
// re-reported from current counts.
package guard

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/models"
)

// CheckEnrollment rejects when adding incoming students would push a
// roster past its bound. A bound of zero means unlimited. The batch is
// all-or-nothing; callers dedupe before counting.
func CheckEnrollment(current, incoming, max int) error {
	if max > 0 && current+incoming > max {
		return fmt.Errorf("enrollment capacity exceeded: %d enrolled + %d new exceeds max %d", current, incoming, max)
	}
	return nil
}

// CheckTransportAssignment rejects assignment to a route that is not
// active, then applies the vehicle capacity bound.
func CheckTransportAssignment(status string, current, incoming, capacity int) error {
	if status != models.TransportActive {
		return fmt.Errorf("transport route is %s, assignment requires an active route", status)
	}
	if capacity > 0 && current+incoming > capacity {
		return fmt.Errorf("vehicle capacity exceeded: %d assigned + %d new exceeds capacity %d", current, incoming, capacity)
	}
	return nil
}

// ApplyStockDelta clamps the resulting quantity at a floor of zero
// and derives the stock status for the new quantity.
func ApplyStockDelta(quantity, delta, minStockLevel int) (int, string) {
	q := quantity + delta
	if q < 0 {
		q = 0
	}
	return q, StockStatus(q, minStockLevel)
}

// StockStatus is out_of_stock at zero, low_stock below the minimum
// level, in_stock otherwise.
func StockStatus(quantity, minStockLevel int) string {
	switch {
	case quantity <= 0:
		return models.StockOut
	case quantity < minStockLevel:
		return models.StockLow
	default:
		return models.StockIn
	}
}

// NewMembers filters candidates down to ids not already in the
// roster, deduplicating the batch itself. Order is preserved.
func NewMembers(roster, candidates []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(roster)+len(candidates))
	for _, id := range roster {
		seen[id] = struct{}{}
	}
	out := make([]primitive.ObjectID, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
