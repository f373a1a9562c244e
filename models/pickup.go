package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PickupStatus string

const (
	PickupScheduled  PickupStatus = "scheduled"
	PickupInProgress PickupStatus = "in_progress"
	PickupCompleted  PickupStatus = "completed"
	PickupCancelled  PickupStatus = "cancelled"
	PickupMissed     PickupStatus = "missed"
)

var pickupTransitions = map[PickupStatus][]PickupStatus{
	PickupScheduled:  {PickupInProgress, PickupCompleted, PickupCancelled, PickupMissed},
	PickupInProgress: {PickupCompleted, PickupCancelled, PickupMissed},
}

func (s PickupStatus) Valid() bool {
	switch s {
	case PickupScheduled, PickupInProgress, PickupCompleted, PickupCancelled, PickupMissed:
		return true
	}
	return false
}

// Active pickups can still be worked on; deleting one cancels it instead.
func (s PickupStatus) Active() bool {
	return s == PickupScheduled || s == PickupInProgress
}

// CanTransitionTo reports whether moving from s to next is allowed. Writing
// the current status again is always allowed and changes nothing.
func (s PickupStatus) CanTransitionTo(next PickupStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range pickupTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

var TimeSlots = []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening}

func (t TimeSlot) Valid() bool {
	return t == SlotMorning || t == SlotAfternoon || t == SlotEvening
}

type WasteType string

const (
	WasteGeneral    WasteType = "general"
	WasteRecyclable WasteType = "recyclable"
	WasteOrganic    WasteType = "organic"
	WasteHazardous  WasteType = "hazardous"
	WasteElectronic WasteType = "electronic"
)

var WasteTypes = []WasteType{WasteGeneral, WasteRecyclable, WasteOrganic, WasteHazardous, WasteElectronic}

func (w WasteType) Valid() bool {
	for _, t := range WasteTypes {
		if t == w {
			return true
		}
	}
	return false
}

// Diverted waste types count towards the recycling rate.
func (w WasteType) Diverted() bool {
	return w == WasteRecyclable || w == WasteOrganic || w == WasteElectronic
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Vehicle struct {
	Number   string  `bson:"number" json:"number"`
	Type     string  `bson:"type,omitempty" json:"type,omitempty"`
	Capacity float64 `bson:"capacity,omitempty" json:"capacity,omitempty"`
}

type Pickup struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User               primitive.ObjectID  `bson:"user" json:"user"`
	Community          primitive.ObjectID  `bson:"community" json:"community"`
	Route              *primitive.ObjectID `bson:"route,omitempty" json:"route,omitempty"`
	ScheduledDate      time.Time           `bson:"scheduledDate" json:"scheduledDate"`
	TimeSlot           TimeSlot            `bson:"timeSlot" json:"timeSlot"`
	WasteType          WasteType           `bson:"wasteType" json:"wasteType"`
	Address            string              `bson:"address" json:"address"`
	Notes              string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Status             PickupStatus        `bson:"status" json:"status"`
	Priority           Priority            `bson:"priority" json:"priority"`
	EstimatedWeight    float64             `bson:"estimatedWeight,omitempty" json:"estimatedWeight,omitempty"`
	ActualWeight       float64             `bson:"actualWeight,omitempty" json:"actualWeight,omitempty"`
	Driver             *primitive.ObjectID `bson:"driver,omitempty" json:"driver,omitempty"`
	Vehicle            *Vehicle            `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	CompletedAt        *time.Time          `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt        *time.Time          `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancellationReason string              `bson:"cancellationReason,omitempty" json:"cancellationReason,omitempty"`
	CreatedAt          time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NewPickup builds a scheduled pickup. The date must lie strictly after now.
func NewPickup(user, community primitive.ObjectID, date time.Time, slot TimeSlot, waste WasteType, address string, now time.Time) (Pickup, error) {
	if !date.After(now) {
		return Pickup{}, NewValidationError("Scheduled date must be in the future",
			FieldError{Field: "scheduledDate", Message: "must be in the future"})
	}
	if !slot.Valid() {
		return Pickup{}, NewValidationError("Invalid time slot", FieldError{Field: "timeSlot", Message: "must be morning, afternoon or evening"})
	}
	if !waste.Valid() {
		return Pickup{}, NewValidationError("Invalid waste type", FieldError{Field: "wasteType", Message: "unsupported waste type"})
	}
	return Pickup{
		User:          user,
		Community:     community,
		ScheduledDate: date,
		TimeSlot:      slot,
		WasteType:     waste,
		Address:       address,
		Status:        PickupScheduled,
		Priority:      PriorityMedium,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// WithStatus returns p moved to next. completedAt follows the status: it is
// stamped when entering completed and cleared for every other status.
func (p Pickup) WithStatus(next PickupStatus, now time.Time) (Pickup, error) {
	if !next.Valid() {
		return p, NewValidationError("Invalid status", FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", next)})
	}
	if !p.Status.CanTransitionTo(next) {
		return p, NewConflictError(fmt.Sprintf("Cannot change pickup status from %s to %s", p.Status, next))
	}
	if p.Status == next {
		return p, nil
	}
	p.Status = next
	if next == PickupCompleted {
		stamp := now
		p.CompletedAt = &stamp
	} else {
		p.CompletedAt = nil
	}
	if next == PickupCancelled {
		stamp := now
		p.CancelledAt = &stamp
	}
	p.UpdatedAt = now
	return p, nil
}

// Reschedule moves the pickup to a new date. A scheduled pickup cannot be
// moved into the past.
func (p Pickup) Reschedule(date time.Time, now time.Time) (Pickup, error) {
	if p.Status == PickupScheduled && !date.After(now) {
		return p, NewValidationError("Cannot schedule pickup in the past",
			FieldError{Field: "scheduledDate", Message: "must be in the future"})
	}
	p.ScheduledDate = date
	p.UpdatedAt = now
	return p, nil
}

// Completion carries the optional details recorded when a pickup is completed.
type Completion struct {
	Driver       *primitive.ObjectID
	Vehicle      *Vehicle
	ActualWeight *float64
}

// Complete marks the pickup completed and records the completion details.
func (p Pickup) Complete(details Completion, now time.Time) (Pickup, error) {
	next, err := p.WithStatus(PickupCompleted, now)
	if err != nil {
		return p, err
	}
	if details.Driver != nil {
		next.Driver = details.Driver
	}
	if details.Vehicle != nil {
		next.Vehicle = details.Vehicle
	}
	if details.ActualWeight != nil {
		if *details.ActualWeight < 0 {
			return p, NewValidationError("Actual weight cannot be negative", FieldError{Field: "actualWeight", Message: "must be >= 0"})
		}
		next.ActualWeight = *details.ActualWeight
	}
	return next, nil
}

// Cancel marks the pickup cancelled and appends the reason to its notes.
// The route assignment is left untouched.
func (p Pickup) Cancel(reason string, now time.Time) (Pickup, error) {
	next, err := p.WithStatus(PickupCancelled, now)
	if err != nil {
		return p, err
	}
	if reason == "" {
		reason = "Cancelled"
	}
	next.CancellationReason = reason
	note := fmt.Sprintf("[%s] %s", now.Format("2006-01-02 15:04"), reason)
	if next.Notes == "" {
		next.Notes = note
	} else {
		next.Notes = next.Notes + "\n" + note
	}
	return next, nil
}

// IsAssignedDriver reports whether userID is the driver recorded on p.
func (p Pickup) IsAssignedDriver(userID primitive.ObjectID) bool {
	return p.Driver != nil && *p.Driver == userID
}

// PickupSummary aggregates pickups for statistics.
type PickupSummary struct {
	Total           int64                  `json:"total"`
	ByStatus        map[PickupStatus]int64 `json:"byStatus"`
	ByWasteType     map[WasteType]int64    `json:"byWasteType"`
	CollectedWeight float64                `json:"collectedWeight"`
	DivertedWeight  float64                `json:"divertedWeight"`
}

func NewPickupSummary() PickupSummary {
	return PickupSummary{ByStatus: map[PickupStatus]int64{}, ByWasteType: map[WasteType]int64{}}
}

// Add folds count pickups of one status and waste type, weighing weight in
// total, into the summary. Only completed pickups contribute weight.
func (s *PickupSummary) Add(status PickupStatus, waste WasteType, count int64, weight float64) {
	s.Total += count
	s.ByStatus[status] += count
	s.ByWasteType[waste] += count
	if status != PickupCompleted {
		return
	}
	s.CollectedWeight += weight
	if waste.Diverted() {
		s.DivertedWeight += weight
	}
}

// CompletionRate is the percentage of pickups that were completed.
func (s PickupSummary) CompletionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return round2(float64(s.ByStatus[PickupCompleted]) / float64(s.Total) * 100)
}

// RecyclingRate is the percentage of collected weight diverted from landfill.
func (s PickupSummary) RecyclingRate() float64 {
	if s.CollectedWeight == 0 {
		return 0
	}
	return round2(s.DivertedWeight / s.CollectedWeight * 100)
}

// TrendPoint is the collected weight of one waste type in one month.
type TrendPoint struct {
	Year      int       `bson:"year" json:"year"`
	Month     int       `bson:"month" json:"month"`
	WasteType WasteType `bson:"wasteType" json:"wasteType"`
	Pickups   int64     `bson:"pickups" json:"pickups"`
	Weight    float64   `bson:"weight" json:"weight"`
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
