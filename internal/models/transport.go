package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transport route statuses. Assignment is only allowed to active routes.
const (
	TransportActive      = "active"
	TransportMaintenance = "maintenance"
	TransportInactive    = "inactive"
)

func IsValidTransportStatus(s string) bool {
	switch s {
	case TransportActive, TransportMaintenance, TransportInactive:
		return true
	}
	return false
}

type TransportStop struct {
	Name string `bson:"name" json:"name"`
	Time string `bson:"time" json:"time"`
}

type TransportRoute struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	RouteName        string               `bson:"routeName" json:"routeName"`
	RouteNo          string               `bson:"routeNo" json:"routeNo"`
	VehicleNo        string               `bson:"vehicleNo" json:"vehicleNo"`
	DriverName       string               `bson:"driverName" json:"driverName"`
	DriverPhone      string               `bson:"driverPhone,omitempty" json:"driverPhone,omitempty"`
	VehicleCapacity  int                  `bson:"vehicleCapacity" json:"vehicleCapacity"`
	AssignedStudents []primitive.ObjectID `bson:"assignedStudents" json:"assignedStudents"`
	Status           string               `bson:"status" json:"status"`
	Stops            []TransportStop      `bson:"stops,omitempty" json:"stops,omitempty"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt" json:"updatedAt"`
}
