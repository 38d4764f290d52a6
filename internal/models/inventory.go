package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Inventory stock statuses, derived from quantity vs. minStockLevel.
const (
	StockIn  = "in_stock"
	StockLow = "low_stock"
	StockOut = "out_of_stock"
)

type InventoryItem struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Category      string             `bson:"category,omitempty" json:"category,omitempty"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	MinStockLevel int                `bson:"minStockLevel" json:"minStockLevel"`
	UnitPrice     float64            `bson:"unitPrice" json:"unitPrice"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
