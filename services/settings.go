package services

import (
	"context"
	"time"

	"wastewise-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Version is reported by the app-info endpoint.
const Version = "1.0.0"

type SettingsService struct {
	*base
	started time.Time
}

func (s *SettingsService) UserPreferences(ctx context.Context, p models.Principal) (*models.NotificationPreferences, error) {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return &user.Notifications, nil
}

func (s *SettingsService) UpdateUserPreferences(ctx context.Context, p models.Principal, prefs models.NotificationPreferences) (*models.NotificationPreferences, error) {
	user, err := s.store.Users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	user.Notifications = prefs
	user.UpdatedAt = s.now()
	if err := s.store.Users.Update(ctx, user); err != nil {
		return nil, notFound(err, "User")
	}
	return &user.Notifications, nil
}

func (s *SettingsService) System(ctx context.Context, p models.Principal) (*models.SystemSettings, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.store.Settings.GetSystem(ctx)
}

// SystemSettingsUpdate carries the fields an admin may change; nil leaves a
// field as it is.
type SystemSettingsUpdate struct {
	PickupCutoffHours  *int
	MaxPickupsPerDay   *int
	IssueAutoCloseDays *int
	MaintenanceMode    *bool
	WasteTypes         []models.WasteType
}

func (s *SettingsService) UpdateSystem(ctx context.Context, p models.Principal, in SystemSettingsUpdate) (*models.SystemSettings, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	settings, err := s.store.Settings.GetSystem(ctx)
	if err != nil {
		return nil, err
	}
	if in.PickupCutoffHours != nil {
		settings.PickupCutoffHours = *in.PickupCutoffHours
	}
	if in.MaxPickupsPerDay != nil {
		settings.MaxPickupsPerDay = *in.MaxPickupsPerDay
	}
	if in.IssueAutoCloseDays != nil {
		settings.IssueAutoCloseDays = *in.IssueAutoCloseDays
	}
	if in.MaintenanceMode != nil {
		settings.MaintenanceMode = *in.MaintenanceMode
	}
	if in.WasteTypes != nil {
		settings.WasteTypes = in.WasteTypes
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	settings.Key = models.SystemSettingsKey
	settings.UpdatedBy = idPtr(p.UserID)
	settings.UpdatedAt = s.now()
	if err := s.store.Settings.SaveSystem(ctx, settings); err != nil {
		return nil, err
	}
	s.publish(ctx, "settings.updated", map[string]interface{}{
		"updatedBy":       p.UserID.Hex(),
		"maintenanceMode": settings.MaintenanceMode,
	})
	return settings, nil
}

type CommunitySchedule struct {
	Community primitive.ObjectID                        `json:"community"`
	Name      string                                    `json:"name"`
	Schedule  map[models.WasteType]models.CollectionDay `json:"schedule"`
}

func (s *SettingsService) managedCommunity(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Community, error) {
	if !p.ManagesCommunity(id) {
		return nil, forbidden()
	}
	community, err := s.store.Communities.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Community")
	}
	return community, nil
}

func (s *SettingsService) CommunitySchedule(ctx context.Context, p models.Principal, id primitive.ObjectID) (*CommunitySchedule, error) {
	community, err := s.managedCommunity(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return scheduleOf(community), nil
}

func (s *SettingsService) UpdateCommunitySchedule(ctx context.Context, p models.Principal, id primitive.ObjectID, schedule map[models.WasteType]models.CollectionDay) (*CommunitySchedule, error) {
	community, err := s.managedCommunity(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}
	community.Schedule = schedule
	community.UpdatedAt = s.now()
	if err := s.store.Communities.Update(ctx, community); err != nil {
		return nil, notFound(err, "Community")
	}
	return scheduleOf(community), nil
}

func scheduleOf(c *models.Community) *CommunitySchedule {
	schedule := c.Schedule
	if schedule == nil {
		schedule = map[models.WasteType]models.CollectionDay{}
	}
	return &CommunitySchedule{Community: c.ID, Name: c.Name, Schedule: schedule}
}

type AppInfo struct {
	Name        string             `json:"name"`
	Version     string             `json:"version"`
	Storage     string             `json:"storage"`
	WasteTypes  []models.WasteType `json:"wasteTypes"`
	TimeSlots   []models.TimeSlot  `json:"timeSlots"`
	Maintenance bool               `json:"maintenanceMode"`
	Uptime      string             `json:"uptime"`
}

// AppInfo is public; it tells clients which options the booking form offers.
func (s *SettingsService) AppInfo(ctx context.Context) (*AppInfo, error) {
	settings, err := s.store.Settings.GetSystem(ctx)
	if err != nil {
		return nil, err
	}
	wasteTypes := settings.WasteTypes
	if len(wasteTypes) == 0 {
		wasteTypes = models.WasteTypes
	}
	return &AppInfo{
		Name:        "WasteWise",
		Version:     Version,
		Storage:     s.store.Backend,
		WasteTypes:  wasteTypes,
		TimeSlots:   models.TimeSlots,
		Maintenance: settings.MaintenanceMode,
		Uptime:      s.now().Sub(s.started).Round(time.Second).String(),
	}, nil
}
