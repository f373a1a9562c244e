package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RouteStatus string

const (
	RouteActive      RouteStatus = "active"
	RouteInactive    RouteStatus = "inactive"
	RouteMaintenance RouteStatus = "maintenance"
	RouteSuspended   RouteStatus = "suspended"
)

func (s RouteStatus) Valid() bool {
	switch s {
	case RouteActive, RouteInactive, RouteMaintenance, RouteSuspended:
		return true
	}
	return false
}

// RouteSchedule is the weekly window in which a route runs. Times are HH:MM.
type RouteSchedule struct {
	Days      []string `bson:"days" json:"days"`
	StartTime string   `bson:"startTime" json:"startTime"`
	EndTime   string   `bson:"endTime" json:"endTime"`
}

type Waypoint struct {
	Order         int     `bson:"order" json:"order"`
	Address       string  `bson:"address" json:"address"`
	Latitude      float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude     float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	EstimatedTime string  `bson:"estimatedTime,omitempty" json:"estimatedTime,omitempty"`
}

type RouteMetrics struct {
	CompletedPickups int64   `bson:"completedPickups" json:"completedPickups"`
	TotalPickups     int64   `bson:"totalPickups" json:"totalPickups"`
	Efficiency       float64 `bson:"efficiency" json:"efficiency"`
}

type Route struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Communities []primitive.ObjectID `bson:"communities" json:"communities"`
	Driver      *primitive.ObjectID  `bson:"driver,omitempty" json:"driver,omitempty"`
	Vehicle     Vehicle              `bson:"vehicle" json:"vehicle"`
	Schedule    RouteSchedule        `bson:"schedule" json:"schedule"`
	WasteTypes  []WasteType          `bson:"wasteTypes" json:"wasteTypes"`
	Waypoints   []Waypoint           `bson:"waypoints,omitempty" json:"waypoints,omitempty"`
	Status      RouteStatus          `bson:"status" json:"status"`
	Metrics     RouteMetrics         `bson:"metrics" json:"metrics"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Weekday is the lowercase day name stored in route and community schedules.
func Weekday(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// ValidWeekday reports whether day is a lowercase English weekday name.
func ValidWeekday(day string) bool {
	switch day {
	case "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday":
		return true
	}
	return false
}

// Validate checks the route invariants: known days and waste types, and an
// end time strictly after the start time.
func (r Route) Validate() error {
	var fields []FieldError
	if strings.TrimSpace(r.Name) == "" {
		fields = append(fields, FieldError{Field: "name", Message: "is required"})
	}
	if len(r.Schedule.Days) == 0 {
		fields = append(fields, FieldError{Field: "schedule.days", Message: "at least one day is required"})
	}
	for _, d := range r.Schedule.Days {
		if !ValidWeekday(d) {
			fields = append(fields, FieldError{Field: "schedule.days", Message: "unknown day " + d})
		}
	}
	start, errStart := time.Parse("15:04", r.Schedule.StartTime)
	end, errEnd := time.Parse("15:04", r.Schedule.EndTime)
	switch {
	case errStart != nil:
		fields = append(fields, FieldError{Field: "schedule.startTime", Message: "must be HH:MM"})
	case errEnd != nil:
		fields = append(fields, FieldError{Field: "schedule.endTime", Message: "must be HH:MM"})
	case !end.After(start):
		fields = append(fields, FieldError{Field: "schedule.endTime", Message: "must be after start time"})
	}
	if len(r.WasteTypes) == 0 {
		fields = append(fields, FieldError{Field: "wasteTypes", Message: "at least one waste type is required"})
	}
	for _, w := range r.WasteTypes {
		if !w.Valid() {
			fields = append(fields, FieldError{Field: "wasteTypes", Message: "unsupported waste type " + string(w)})
		}
	}
	if r.Status != "" && !r.Status.Valid() {
		fields = append(fields, FieldError{Field: "status", Message: "unknown status"})
	}
	if len(fields) > 0 {
		return NewValidationError("Invalid route", fields...)
	}
	return nil
}

// Serves reports whether the route is active and collects waste of the given
// type from the community on the weekday of date.
func (r Route) Serves(date time.Time, waste WasteType, community primitive.ObjectID) bool {
	if r.Status != RouteActive {
		return false
	}
	day := Weekday(date)
	dayOK := false
	for _, d := range r.Schedule.Days {
		if d == day {
			dayOK = true
			break
		}
	}
	if !dayOK {
		return false
	}
	wasteOK := false
	for _, w := range r.WasteTypes {
		if w == waste {
			wasteOK = true
			break
		}
	}
	if !wasteOK {
		return false
	}
	for _, c := range r.Communities {
		if c == community {
			return true
		}
	}
	return false
}
