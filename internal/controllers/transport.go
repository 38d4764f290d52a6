package controllers

import (
	"context"
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

type TransportController struct {
	DB  *mongo.Database
	Hub *ws.Hub
}

func NewTransportController(db *mongo.Database, hub *ws.Hub) *TransportController {
	return &TransportController{DB: db, Hub: hub}
}

// routeView adds the seat count so clients need not count ids.
type routeView struct {
	models.TransportRoute
	AssignedCount int `json:"assignedCount"`
}

func routeViewOf(r models.TransportRoute) routeView {
	return routeView{TransportRoute: r, AssignedCount: len(r.AssignedStudents)}
}

type createRouteRequest struct {
	RouteName       string                 `json:"routeName" binding:"required"`
	RouteNo         string                 `json:"routeNo" binding:"required"`
	VehicleNo       string                 `json:"vehicleNo" binding:"required"`
	DriverName      string                 `json:"driverName" binding:"required"`
	DriverPhone     string                 `json:"driverPhone"`
	VehicleCapacity int                    `json:"vehicleCapacity" binding:"required,gt=0"`
	Stops           []models.TransportStop `json:"stops"`
}

// Create registers a transport route. Routes start active with an
// empty seat list. Admin only.
func (t *TransportController) Create(c *gin.Context) {
	var req createRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("routeName, routeNo, vehicleNo, driverName and a positive vehicleCapacity are required"))
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	now := time.Now().UTC()
	route := models.TransportRoute{
		ID:               primitive.NewObjectID(),
		RouteName:        req.RouteName,
		RouteNo:          req.RouteNo,
		VehicleNo:        req.VehicleNo,
		DriverName:       req.DriverName,
		DriverPhone:      req.DriverPhone,
		VehicleCapacity:  req.VehicleCapacity,
		AssignedStudents: []primitive.ObjectID{},
		Status:           models.TransportActive,
		Stops:            req.Stops,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := t.DB.Collection("transport_routes").InsertOne(ctx, route); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			httperr.Respond(c, httperr.Conflict("route number %s already exists", req.RouteNo))
			return
		}
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": routeViewOf(route)})
}

// List returns routes, optionally filtered by status. Admin only.
func (t *TransportController) List(c *gin.Context) {
	filter := bson.M{}
	if v := c.Query("status"); v != "" {
		filter["status"] = v
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cur, err := t.DB.Collection("transport_routes").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "routeNo", Value: 1}}))
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	routes := []models.TransportRoute{}
	if err := cur.All(ctx, &routes); err != nil {
		httperr.Respond(c, err)
		return
	}
	views := make([]routeView, 0, len(routes))
	for _, r := range routes {
		views = append(views, routeViewOf(r))
	}
	c.JSON(http.StatusOK, gin.H{"routes": views, "total": len(views)})
}

func (t *TransportController) Get(c *gin.Context) {
	routeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var route models.TransportRoute
	err := t.DB.Collection("transport_routes").FindOne(ctx, bson.M{"_id": routeID}).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("transport route"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": routeViewOf(route)})
}

type updateRouteRequest struct {
	RouteName       *string                 `json:"routeName"`
	VehicleNo       *string                 `json:"vehicleNo"`
	DriverName      *string                 `json:"driverName"`
	DriverPhone     *string                 `json:"driverPhone"`
	VehicleCapacity *int                    `json:"vehicleCapacity"`
	Status          *string                 `json:"status"`
	Stops           *[]models.TransportStop `json:"stops"`
}

// Update patches route details. Capacity may be lowered below the
// current seat count; only future assignments are bounded. Admin only.
func (t *TransportController) Update(c *gin.Context) {
	routeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req updateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("invalid request body"))
		return
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if req.RouteName != nil {
		set["routeName"] = *req.RouteName
	}
	if req.VehicleNo != nil {
		set["vehicleNo"] = *req.VehicleNo
	}
	if req.DriverName != nil {
		set["driverName"] = *req.DriverName
	}
	if req.DriverPhone != nil {
		set["driverPhone"] = *req.DriverPhone
	}
	if req.VehicleCapacity != nil {
		if *req.VehicleCapacity <= 0 {
			httperr.Respond(c, httperr.Validation("vehicleCapacity must be positive"))
			return
		}
		set["vehicleCapacity"] = *req.VehicleCapacity
	}
	if req.Status != nil {
		if !models.IsValidTransportStatus(*req.Status) {
			httperr.Respond(c, httperr.Validation("invalid status %q", *req.Status))
			return
		}
		set["status"] = *req.Status
	}
	if req.Stops != nil {
		set["stops"] = *req.Stops
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var route models.TransportRoute
	err := t.DB.Collection("transport_routes").FindOneAndUpdate(ctx,
		bson.M{"_id": routeID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("transport route"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": routeViewOf(route)})
}

// Delete removes a route with no assigned students. Admin only.
func (t *TransportController) Delete(c *gin.Context) {
	routeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	var route models.TransportRoute
	err := t.DB.Collection("transport_routes").FindOne(ctx, bson.M{"_id": routeID}).Decode(&route)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(c, httperr.NotFound("transport route"))
		return
	}
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if len(route.AssignedStudents) > 0 {
		httperr.Respond(c, httperr.Validation("route has %d assigned students and cannot be deleted", len(route.AssignedStudents)))
		return
	}
	if _, err := t.DB.Collection("transport_routes").DeleteOne(ctx, bson.M{"_id": routeID}); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type assignRequest struct {
	StudentIDs []string `json:"studentIds" binding:"required,min=1"`
}

// Assign seats a batch of students on a route, all-or-nothing. Only
// active routes accept assignments. As with course enrollment the
// capacity check runs against fresh state and the write re-asserts
// both the bound and the active status, so racing assignments cannot
// overfill the vehicle. Admin only.
func (t *TransportController) Assign(c *gin.Context) {
	routeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.Respond(c, httperr.Validation("studentIds is required"))
		return
	}
	ids, err := parseObjectIDs("student", req.StudentIDs)
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	unique := guard.NewMembers(nil, ids)

	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := t.DB.Collection("students").CountDocuments(ctx, bson.M{"_id": bson.M{"$in": unique}, "active": true})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if n != int64(len(unique)) {
		httperr.Respond(c, httperr.NotFound("one or more students"))
		return
	}

	coll := t.DB.Collection("transport_routes")
	for attempt := 0; attempt < 2; attempt++ {
		var route models.TransportRoute
		err := coll.FindOne(ctx, bson.M{"_id": routeID}).Decode(&route)
		if errors.Is(err, mongo.ErrNoDocuments) {
			httperr.Respond(c, httperr.NotFound("transport route"))
			return
		}
		if err != nil {
			httperr.Respond(c, err)
			return
		}

		newIDs := guard.NewMembers(route.AssignedStudents, unique)
		if len(newIDs) == 0 {
			c.JSON(http.StatusOK, gin.H{"route": routeViewOf(route), "assigned": 0, "message": "all students already assigned"})
			return
		}
		if err := guard.CheckTransportAssignment(route.Status, len(route.AssignedStudents), len(newIDs), route.VehicleCapacity); err != nil {
			httperr.Respond(c, httperr.Validation("%s", err))
			return
		}

		filter := bson.M{"_id": routeID, "status": models.TransportActive}
		if route.VehicleCapacity > 0 {
			filter["$expr"] = bson.M{"$lte": bson.A{
				bson.M{"$add": bson.A{bson.M{"$size": "$assignedStudents"}, len(newIDs)}},
				route.VehicleCapacity,
			}}
		}
		res, err := coll.UpdateOne(ctx, filter, bson.M{
			"$addToSet": bson.M{"assignedStudents": bson.M{"$each": newIDs}},
			"$set":      bson.M{"updatedAt": time.Now().UTC()},
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		if res.MatchedCount == 1 {
			if err := coll.FindOne(ctx, bson.M{"_id": routeID}).Decode(&route); err != nil {
				httperr.Respond(c, err)
				return
			}
			t.notifyAssigned(ctx, route, newIDs)
			c.JSON(http.StatusOK, gin.H{"route": routeViewOf(route), "assigned": len(newIDs)})
			return
		}
		// Lost an admission race; re-read and re-report from fresh
		// counts.
	}
	httperr.Respond(c, httperr.Conflict("route assignment changed concurrently, please retry"))
}

// Unassign frees one seat. Admin only.
func (t *TransportController) Unassign(c *gin.Context) {
	routeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	studentID, ok := objectIDParam(c, "studentId")
	if !ok {
		return
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := t.DB.Collection("transport_routes").UpdateOne(ctx,
		bson.M{"_id": routeID},
		bson.M{
			"$pull": bson.M{"assignedStudents": studentID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		httperr.Respond(c, err)
		return
	}
	if res.MatchedCount == 0 {
		httperr.Respond(c, httperr.NotFound("transport route"))
		return
	}
	if res.ModifiedCount == 0 {
		httperr.Respond(c, httperr.NotFound("assignment"))
		return
	}

	var route models.TransportRoute
	if err := t.DB.Collection("transport_routes").FindOne(ctx, bson.M{"_id": routeID}).Decode(&route); err != nil {
		httperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": routeViewOf(route)})
}

func (t *TransportController) notifyAssigned(ctx context.Context, route models.TransportRoute, studentIDs []primitive.ObjectID) {
	if t.Hub == nil {
		return
	}
	cur, err := t.DB.Collection("students").Find(ctx, bson.M{"_id": bson.M{"$in": studentIDs}})
	if err != nil {
		return
	}
	var students []models.Student
	if err := cur.All(ctx, &students); err != nil {
		return
	}
	for _, s := range students {
		payload := gin.H{
			"route":     route.ID.Hex(),
			"routeNo":   route.RouteNo,
			"routeName": route.RouteName,
			"vehicleNo": route.VehicleNo,
		}
		t.Hub.EmitTo(s.User, ws.EventTransportAssigned, payload)
		if !s.Parent.IsZero() {
			t.Hub.EmitTo(s.Parent, ws.EventTransportAssigned, payload)
		}
	}
}
