package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SystemSettingsKey is the _id of the single system settings document.
const SystemSettingsKey = "system"

type SystemSettings struct {
	Key                string              `bson:"_id" json:"-"`
	PickupCutoffHours  int                 `bson:"pickupCutoffHours" json:"pickupCutoffHours"`
	MaxPickupsPerDay   int                 `bson:"maxPickupsPerDay" json:"maxPickupsPerDay"`
	IssueAutoCloseDays int                 `bson:"issueAutoCloseDays" json:"issueAutoCloseDays"`
	MaintenanceMode    bool                `bson:"maintenanceMode" json:"maintenanceMode"`
	WasteTypes         []WasteType         `bson:"wasteTypes" json:"wasteTypes"`
	UpdatedBy          *primitive.ObjectID `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt          time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func DefaultSystemSettings() SystemSettings {
	return SystemSettings{
		Key:                SystemSettingsKey,
		PickupCutoffHours:  24,
		MaxPickupsPerDay:   3,
		IssueAutoCloseDays: 30,
		WasteTypes:         append([]WasteType(nil), WasteTypes...),
	}
}

// Validate checks that the numeric limits are usable.
func (s SystemSettings) Validate() error {
	var fields []FieldError
	if s.MaxPickupsPerDay < 0 {
		fields = append(fields, FieldError{Field: "maxPickupsPerDay", Message: "must be >= 0"})
	}
	if s.PickupCutoffHours < 0 {
		fields = append(fields, FieldError{Field: "pickupCutoffHours", Message: "must be >= 0"})
	}
	if s.IssueAutoCloseDays < 0 {
		fields = append(fields, FieldError{Field: "issueAutoCloseDays", Message: "must be >= 0"})
	}
	for _, w := range s.WasteTypes {
		if !w.Valid() {
			fields = append(fields, FieldError{Field: "wasteTypes", Message: "unsupported waste type " + string(w)})
		}
	}
	if len(fields) > 0 {
		return NewValidationError("Invalid settings", fields...)
	}
	return nil
}

// Accepts reports whether pickups of the given waste type are currently offered.
func (s SystemSettings) Accepts(w WasteType) bool {
	if len(s.WasteTypes) == 0 {
		return w.Valid()
	}
	for _, t := range s.WasteTypes {
		if t == w {
			return true
		}
	}
	return false
}
