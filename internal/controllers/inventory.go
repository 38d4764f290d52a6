package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Awais68/school-lms-backend/internal/guard"
	"github.com/Awais68/school-lms-backend/internal/httperr"
	"github.com/Awais68/school-lms-backend/internal/models"
	"github.com/Awais68/school-lms-backend/internal/ws"
)

type InventoryController struct {
	DB  *mongo.Database
	Hub *ws.Hub
}

func NewInventoryController(db *mongo.Database, hub *ws.Hub) *InventoryController {
	return &InventoryController{DB: db, Hub: hub}
}

type createItemRequest struct {
	Name          string  `json:"name" binding:"required"`
	Category      string  `json:"category"`
	Quantity      int     `json:"quantity" binding:"gte=0"`
	MinStockLevel int     `json:"minStockLevel" binding:"gte=0"`
	UnitPrice     float64 `json:"unitPrice" binding:"gte=0"`
}

// Create adds an inventory item with its status derived from the
// initial quantity. Admin only.
func (ic *InventoryController) Create(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("name is required; quantity, minStockLevel and unitPrice must not be negative"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	item := models.InventoryItem{
		ID:            primitive.NewObjectID(),
		Name:          req.Name,
		Category:      req.Category,
		Quantity:      req.Quantity,
		MinStockLevel: req.MinStockLevel,
		UnitPrice:     req.UnitPrice,
		Status:        guard.StockStatus(req.Quantity, req.MinStockLevel),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := ic.DB.Collection("inventory").InsertOne(ctx, item); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// List returns items with category/status filters, paginated. Admin
// only.
func (ic *InventoryController) List(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("category"); v != "" {
		filter["category"] = v
	}
	if v := c.Query("status"); v != "" {
		filter["status"] = v
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	page, limit, skip := pagination(c)
	coll := ic.DB.Collection("inventory")
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	cur, err := coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	items := []models.InventoryItem{}
	if err := cur.All(ctx, &items); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "total": total, "page": page, "limit": limit})
}

func (ic *InventoryController) Get(c *gin.Context) {
	itemID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var item models.InventoryItem
	err := ic.DB.Collection("inventory").FindOne(ctx, bson.M{"_id": itemID}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("inventory item"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

type updateItemRequest struct {
	Name          *string  `json:"name"`
	Category      *string  `json:"category"`
	MinStockLevel *int     `json:"minStockLevel"`
	UnitPrice     *float64 `json:"unitPrice"`
}

// Update patches item details. Quantity moves only through the stock
// endpoint; changing minStockLevel re-derives the status against the
// current quantity. Admin only.
func (ic *InventoryController) Update(c *gin.Context) {
	itemID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var existing models.InventoryItem
	err := ic.DB.Collection("inventory").FindOne(ctx, bson.M{"_id": itemID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("inventory item"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Category != nil {
		set["category"] = *req.Category
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice < 0 {
			httperr.Respond(c, httperr.Validation("unitPrice must not be negative"))
			return
		}
		set["unitPrice"] = *req.UnitPrice
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			httperr.Respond(c, httperr.Validation("minStockLevel must not be negative"))
			return
		}
		set["minStockLevel"] = *req.MinStockLevel
		set["status"] = guard.StockStatus(existing.Quantity, *req.MinStockLevel)
	}

	var item models.InventoryItem
	err = ic.DB.Collection("inventory").FindOneAndUpdate(ctx,
		bson.M{"_id": itemID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (ic *InventoryController) Delete(c *gin.Context) {
	itemID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := ic.DB.Collection("inventory").DeleteOne(ctx, bson.M{"_id": itemID})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.DeletedCount == 0 {
		httperr.Respond(c, httperr.NotFound("inventory item"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type stockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// UpdateStock applies a signed quantity delta. The resulting quantity
// is clamped at zero and the status re-derived; when the item leaves
// in_stock a low-stock alert is broadcast to connected staff. Admin
// only.
func (ic *InventoryController) UpdateStock(c *gin.Context) {
	itemID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("a non-zero delta is required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var existing models.InventoryItem
	err := ic.DB.Collection("inventory").FindOne(ctx, bson.M{"_id": itemID}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("inventory item"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	quantity, status := guard.ApplyStockDelta(existing.Quantity, req.Delta, existing.MinStockLevel)

	var item models.InventoryItem
	err = ic.DB.Collection("inventory").FindOneAndUpdate(ctx,
		bson.M{"_id": itemID},
		bson.M{"$set": bson.M{
			"quantity":  quantity,
			"status":    status,
			"updatedAt": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&item)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	// Alert once, on the in_stock boundary crossing, not on every
	// write to an already-low item.
	if ic.Hub != nil && existing.Status == models.StockIn && status != models.StockIn {
		ic.Hub.Emit(ws.EventInventoryLowStock, gin.H{
			"item":          item.ID.Hex(),
			"name":          item.Name,
			"quantity":      item.Quantity,
			"minStockLevel": item.MinStockLevel,
			"status":        item.Status,
		})
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}
