package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// Marking methods.
const (
	MethodManual    = "manual"
	MethodBiometric = "biometric"
	MethodGPS       = "gps"
)

func IsValidAttendanceStatus(s string) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

func IsValidAttendanceMethod(m string) bool {
	switch m {
	case MethodManual, MethodBiometric, MethodGPS:
		return true
	}
	return false
}

type GeoPoint struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// AttendanceRecord is unique per (student, course, date); the
// collection carries a compound unique index enforcing it. Date is
// stored normalized to UTC midnight of the calendar day.
type AttendanceRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Student   primitive.ObjectID `bson:"student" json:"student"`
	Course    primitive.ObjectID `bson:"course" json:"course"`
	Date      time.Time          `bson:"date" json:"date"`
	Status    string             `bson:"status" json:"status"`
	Method    string             `bson:"method" json:"method"`
	MarkedBy  primitive.ObjectID `bson:"markedBy" json:"markedBy"`
	DeviceID  string             `bson:"deviceId,omitempty" json:"deviceId,omitempty"`
	Location  *GeoPoint          `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
