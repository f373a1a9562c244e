package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"wastewise-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection         = "users"
	communitiesCollection   = "communities"
	routesCollection        = "routes"
	pickupsCollection       = "pickups"
	issuesCollection        = "issues"
	notificationsCollection = "notifications"
	settingsCollection      = "settings"
	countersCollection      = "counters"
)

// NewMongo builds a Store backed by the given database.
func NewMongo(db *mongo.Database) *Store {
	return &Store{
		Users:         &mongoUsers{baseRepository[models.User, *models.User]{db.Collection(usersCollection)}},
		Communities:   &mongoCommunities{baseRepository[models.Community, *models.Community]{db.Collection(communitiesCollection)}},
		Routes:        &mongoRoutes{baseRepository[models.Route, *models.Route]{db.Collection(routesCollection)}},
		Pickups:       &mongoPickups{baseRepository[models.Pickup, *models.Pickup]{db.Collection(pickupsCollection)}},
		Issues:        &mongoIssues{baseRepository[models.Issue, *models.Issue]{db.Collection(issuesCollection)}},
		Notifications: &mongoNotifications{baseRepository[models.Notification, *models.Notification]{db.Collection(notificationsCollection)}},
		Settings:      &mongoSettings{collection: db.Collection(settingsCollection)},
		Sequences:     &mongoSequencer{collection: db.Collection(countersCollection)},
		Ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		},
		Backend: "mongodb",
	}
}

// caseInsensitive compares strings ignoring case, matching FindByName.
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, idx := range indexModels() {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "community", Value: 1}, {Key: "isActive", Value: 1}}},
		},
		communitiesCollection: {
			{
				Keys:    bson.D{{Key: "name", Value: 1}},
				Options: options.Index().SetName("name_ci_unique").SetUnique(true).SetCollation(caseInsensitive),
			},
		},
		routesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "schedule.days", Value: 1}}},
		},
		pickupsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "scheduledDate", Value: -1}}},
			{Keys: bson.D{{Key: "community", Value: 1}, {Key: "status", Value: 1}}},
		},
		issuesCollection: {
			{Keys: bson.D{{Key: "issueId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "reporter", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "community", Value: 1}, {Key: "status", Value: 1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
}

// Users

type mongoUsers struct {
	baseRepository[models.User, *models.User]
}

func (r *mongoUsers) Create(ctx context.Context, user *models.User) error {
	return r.insert(ctx, user)
}

func (r *mongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findByID(ctx, id)
}

func (r *mongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *mongoUsers) Update(ctx context.Context, user *models.User) error {
	return r.replace(ctx, user)
}

func (r *mongoUsers) List(ctx context.Context, f UserFilter, page Page) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Community != nil {
		filter["community"] = *f.Community
	}
	if f.Active != nil {
		filter["isActive"] = *f.Active
	}
	if f.Search != "" {
		filter["$or"] = []bson.M{
			{"name": containsPattern(f.Search)},
			{"email": containsPattern(f.Search)},
		}
	}
	return r.list(ctx, filter, page, newestFirst)
}

func (r *mongoUsers) CountByCommunity(ctx context.Context, community primitive.ObjectID) (models.UserCounts, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{"community": community})
	if err != nil {
		return models.UserCounts{}, err
	}
	active, err := r.collection.CountDocuments(ctx, bson.M{"community": community, "isActive": true})
	if err != nil {
		return models.UserCounts{}, err
	}
	return models.UserCounts{Total: total, Active: active}, nil
}

func (r *mongoUsers) CountByRole(ctx context.Context) (map[models.Role]int64, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Role  models.Role `bson:"_id"`
		Count int64       `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[models.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// Communities

type mongoCommunities struct {
	baseRepository[models.Community, *models.Community]
}

func (r *mongoCommunities) Create(ctx context.Context, c *models.Community) error {
	return r.insert(ctx, c)
}

func (r *mongoCommunities) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	return r.findByID(ctx, id)
}

// FindByName matches the name case-insensitively.
func (r *mongoCommunities) FindByName(ctx context.Context, name string) (*models.Community, error) {
	pattern := "^" + regexp.QuoteMeta(strings.TrimSpace(name)) + "$"
	return r.findOne(ctx, bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}})
}

func (r *mongoCommunities) Update(ctx context.Context, c *models.Community) error {
	return r.replace(ctx, c)
}

func (r *mongoCommunities) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

func (r *mongoCommunities) List(ctx context.Context, f CommunityFilter, page Page) ([]models.Community, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		filter["name"] = containsPattern(f.Search)
	}
	return r.list(ctx, filter, page, bson.D{{Key: "name", Value: 1}})
}

// Routes

type mongoRoutes struct {
	baseRepository[models.Route, *models.Route]
}

func (r *mongoRoutes) Create(ctx context.Context, route *models.Route) error {
	return r.insert(ctx, route)
}

func (r *mongoRoutes) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Route, error) {
	return r.findByID(ctx, id)
}

func (r *mongoRoutes) Update(ctx context.Context, route *models.Route) error {
	return r.replace(ctx, route)
}

func (r *mongoRoutes) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

func (r *mongoRoutes) List(ctx context.Context, f RouteFilter, page Page) ([]models.Route, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Community != nil {
		filter["communities"] = *f.Community
	}
	if f.Driver != nil {
		filter["driver"] = *f.Driver
	}
	return r.list(ctx, filter, page, bson.D{{Key: "name", Value: 1}})
}

// FindAvailable is a plain read: the route is not reserved, so concurrent
// callers may all receive the same route.
func (r *mongoRoutes) FindAvailable(ctx context.Context, date time.Time, waste models.WasteType, community primitive.ObjectID) (*models.Route, error) {
	filter := bson.M{
		"status":        models.RouteActive,
		"schedule.days": models.Weekday(date),
		"wasteTypes":    waste,
		"communities":   community,
	}
	var route models.Route
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&route); err != nil {
		return nil, translateError(err)
	}
	return &route, nil
}

// Pickups

type mongoPickups struct {
	baseRepository[models.Pickup, *models.Pickup]
}

func pickupQuery(f PickupFilter) bson.M {
	filter := bson.M{}
	if f.User != nil {
		filter["user"] = *f.User
	}
	if f.Community != nil {
		filter["community"] = *f.Community
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.WasteType != "" {
		filter["wasteType"] = f.WasteType
	}
	if f.From != nil || f.To != nil {
		dateRange := bson.M{}
		if f.From != nil {
			dateRange["$gte"] = *f.From
		}
		if f.To != nil {
			dateRange["$lte"] = *f.To
		}
		filter["scheduledDate"] = dateRange
	}
	return filter
}

func (r *mongoPickups) Create(ctx context.Context, p *models.Pickup) error {
	return r.insert(ctx, p)
}

func (r *mongoPickups) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pickup, error) {
	return r.findByID(ctx, id)
}

func (r *mongoPickups) Update(ctx context.Context, p *models.Pickup) error {
	return r.replace(ctx, p)
}

func (r *mongoPickups) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

func (r *mongoPickups) List(ctx context.Context, f PickupFilter, page Page) ([]models.Pickup, int64, error) {
	return r.list(ctx, pickupQuery(f), page, bson.D{{Key: "scheduledDate", Value: -1}})
}

func (r *mongoPickups) Count(ctx context.Context, f PickupFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, pickupQuery(f))
}

func (r *mongoPickups) Summary(ctx context.Context, f PickupFilter) (models.PickupSummary, error) {
	pipeline := []bson.M{
		{"$match": pickupQuery(f)},
		{"$group": bson.M{
			"_id":    bson.M{"status": "$status", "wasteType": "$wasteType"},
			"count":  bson.M{"$sum": 1},
			"weight": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$actualWeight", 0}}},
		}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return models.PickupSummary{}, fmt.Errorf("aggregate pickups: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			Status    models.PickupStatus `bson:"status"`
			WasteType models.WasteType    `bson:"wasteType"`
		} `bson:"_id"`
		Count  int64   `bson:"count"`
		Weight float64 `bson:"weight"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return models.PickupSummary{}, err
	}
	summary := models.NewPickupSummary()
	for _, row := range rows {
		summary.Add(row.ID.Status, row.ID.WasteType, row.Count, row.Weight)
	}
	return summary, nil
}

func (r *mongoPickups) Trends(ctx context.Context, f PickupFilter) ([]models.TrendPoint, error) {
	f.Status = models.PickupCompleted
	match := pickupQuery(f)
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id": bson.M{
				"year":      bson.M{"$year": "$scheduledDate"},
				"month":     bson.M{"$month": "$scheduledDate"},
				"wasteType": "$wasteType",
			},
			"pickups": bson.M{"$sum": 1},
			"weight":  bson.M{"$sum": bson.M{"$ifNull": bson.A{"$actualWeight", 0}}},
		}},
		{"$project": bson.M{
			"_id":       0,
			"year":      "$_id.year",
			"month":     "$_id.month",
			"wasteType": "$_id.wasteType",
			"pickups":   1,
			"weight":    1,
		}},
		{"$sort": bson.D{{Key: "year", Value: 1}, {Key: "month", Value: 1}, {Key: "wasteType", Value: 1}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate trends: %w", err)
	}
	defer cursor.Close(ctx)

	points := make([]models.TrendPoint, 0)
	if err := cursor.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// Issues

type mongoIssues struct {
	baseRepository[models.Issue, *models.Issue]
}

func issueQuery(f IssueFilter) bson.M {
	filter := bson.M{}
	if f.Reporter != nil {
		filter["reporter"] = *f.Reporter
	}
	if f.Community != nil {
		filter["community"] = *f.Community
	}
	if f.AssignedTo != nil {
		filter["assignedTo"] = *f.AssignedTo
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.Search != "" {
		filter["$or"] = []bson.M{
			{"title": containsPattern(f.Search)},
			{"description": containsPattern(f.Search)},
			{"issueId": containsPattern(f.Search)},
		}
	}
	return filter
}

func (r *mongoIssues) Create(ctx context.Context, i *models.Issue) error {
	return r.insert(ctx, i)
}

func (r *mongoIssues) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	return r.findByID(ctx, id)
}

func (r *mongoIssues) Update(ctx context.Context, i *models.Issue) error {
	return r.replace(ctx, i)
}

func (r *mongoIssues) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

func (r *mongoIssues) List(ctx context.Context, f IssueFilter, page Page) ([]models.Issue, int64, error) {
	return r.list(ctx, issueQuery(f), page, newestFirst)
}

func (r *mongoIssues) Summary(ctx context.Context, f IssueFilter) (models.IssueSummary, error) {
	resolved := bson.M{"$gt": bson.A{"$resolution.resolvedAt", nil}}
	pipeline := []bson.M{
		{"$match": issueQuery(f)},
		{"$group": bson.M{
			"_id":      bson.M{"status": "$status", "type": "$type", "priority": "$priority"},
			"count":    bson.M{"$sum": 1},
			"resolved": bson.M{"$sum": bson.M{"$cond": bson.A{resolved, 1, 0}}},
			"hours": bson.M{"$sum": bson.M{"$cond": bson.A{
				resolved,
				bson.M{"$divide": bson.A{bson.M{"$subtract": bson.A{"$resolution.resolvedAt", "$createdAt"}}, 3600000}},
				0,
			}}},
		}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return models.IssueSummary{}, fmt.Errorf("aggregate issues: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID struct {
			Status   models.IssueStatus `bson:"status"`
			Type     models.IssueType   `bson:"type"`
			Priority models.Priority    `bson:"priority"`
		} `bson:"_id"`
		Count    int64   `bson:"count"`
		Resolved int64   `bson:"resolved"`
		Hours    float64 `bson:"hours"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return models.IssueSummary{}, err
	}
	summary := models.NewIssueSummary()
	for _, row := range rows {
		summary.AddGroup(row.ID.Status, row.ID.Type, row.ID.Priority, row.Count, row.Resolved, row.Hours)
	}
	return summary, nil
}

// Notifications

type mongoNotifications struct {
	baseRepository[models.Notification, *models.Notification]
}

func (r *mongoNotifications) Create(ctx context.Context, n *models.Notification) error {
	return r.insert(ctx, n)
}

func (r *mongoNotifications) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	return r.findByID(ctx, id)
}

func (r *mongoNotifications) Update(ctx context.Context, n *models.Notification) error {
	return r.replace(ctx, n)
}

func (r *mongoNotifications) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.delete(ctx, id)
}

func (r *mongoNotifications) List(ctx context.Context, f NotificationFilter, page Page) ([]models.Notification, int64, error) {
	filter := bson.M{"user": f.User}
	if f.UnreadOnly {
		filter["isRead"] = false
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	return r.list(ctx, filter, page, newestFirst)
}

func (r *mongoNotifications) MarkAllRead(ctx context.Context, user primitive.ObjectID, at time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"user": user, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *mongoNotifications) CountUnread(ctx context.Context, user primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user": user, "isRead": false})
}

// Settings

type mongoSettings struct {
	collection *mongo.Collection
}

func (r *mongoSettings) GetSystem(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := r.collection.FindOne(ctx, bson.M{"_id": models.SystemSettingsKey}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		defaults := models.DefaultSystemSettings()
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *mongoSettings) SaveSystem(ctx context.Context, settings *models.SystemSettings) error {
	settings.Key = models.SystemSettingsKey
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": models.SystemSettingsKey},
		settings,
		options.Replace().SetUpsert(true),
	)
	return err
}

// Sequences

type mongoSequencer struct {
	collection *mongo.Collection
}

// Next increments the counter document in a single atomic upsert.
func (s *mongoSequencer) Next(ctx context.Context, key string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next sequence %s: %w", key, err)
	}
	return counter.Seq, nil
}
