package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Awais68/school-lms-backend/internal/models"
)

func TestCheckEnrollment(t *testing.T) {
	// Full course: 2 of 2 seats taken, one more must be rejected with
	// the exact counts in the message.
	err := CheckEnrollment(2, 1, 2)
	assert.EqualError(t, err, "enrollment capacity exceeded: 2 enrolled + 1 new exceeds max 2")

	// After freeing a seat the same admission passes.
	assert.NoError(t, CheckEnrollment(1, 1, 2))

	// The batch is all-or-nothing: 3 incoming with 1 seat free fails
	// as a whole.
	err = CheckEnrollment(1, 3, 2)
	assert.EqualError(t, err, "enrollment capacity exceeded: 1 enrolled + 3 new exceeds max 2")

	// Exactly filling the course is allowed.
	assert.NoError(t, CheckEnrollment(0, 2, 2))

	// Zero max means unlimited.
	assert.NoError(t, CheckEnrollment(500, 100, 0))
}

func TestCheckTransportAssignment(t *testing.T) {
	err := CheckTransportAssignment(models.TransportMaintenance, 0, 1, 40)
	assert.EqualError(t, err, "transport route is maintenance, assignment requires an active route")

	err = CheckTransportAssignment(models.TransportInactive, 0, 1, 40)
	assert.EqualError(t, err, "transport route is inactive, assignment requires an active route")

	err = CheckTransportAssignment(models.TransportActive, 39, 2, 40)
	assert.EqualError(t, err, "vehicle capacity exceeded: 39 assigned + 2 new exceeds capacity 40")

	assert.NoError(t, CheckTransportAssignment(models.TransportActive, 39, 1, 40))
	assert.NoError(t, CheckTransportAssignment(models.TransportActive, 100, 50, 0))
}

func TestApplyStockDelta(t *testing.T) {
	tests := []struct {
		name       string
		quantity   int
		delta      int
		min        int
		wantQty    int
		wantStatus string
	}{
		{"restock keeps in_stock", 20, 10, 5, 30, models.StockIn},
		{"consume to low", 20, -17, 5, 3, models.StockLow},
		{"consume to zero", 3, -3, 5, 0, models.StockOut},
		{"overdraw clamps at zero", 3, -10, 5, 0, models.StockOut},
		{"restock from zero", 0, 4, 5, 4, models.StockLow},
		{"boundary: quantity equal to min is in_stock", 2, 3, 5, 5, models.StockIn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, status := ApplyStockDelta(tt.quantity, tt.delta, tt.min)
			assert.Equal(t, tt.wantQty, qty)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestStockStatus(t *testing.T) {
	assert.Equal(t, models.StockOut, StockStatus(0, 5))
	assert.Equal(t, models.StockLow, StockStatus(4, 5))
	assert.Equal(t, models.StockIn, StockStatus(5, 5))
	assert.Equal(t, models.StockIn, StockStatus(50, 5))
}

func TestNewMembers(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	c := primitive.NewObjectID()
	d := primitive.NewObjectID()

	// Already-rostered ids and in-batch duplicates are both filtered;
	// order of the remainder is preserved.
	got := NewMembers([]primitive.ObjectID{a, b}, []primitive.ObjectID{c, a, d, c, b})
	assert.Equal(t, []primitive.ObjectID{c, d}, got)

	assert.Empty(t, NewMembers([]primitive.ObjectID{a}, []primitive.ObjectID{a, a}))
	assert.Equal(t, []primitive.ObjectID{a}, NewMembers(nil, []primitive.ObjectID{a}))
	assert.Empty(t, NewMembers(nil, nil))
}
