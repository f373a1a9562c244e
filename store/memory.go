package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wastewise-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryTable is a mutex-guarded map of documents keyed by ObjectID. Values
// are stored and returned by copy so callers never share state with the table.
type memoryTable[V any, P entityPtr[V]] struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]V
	order []primitive.ObjectID
}

func newMemoryTable[V any, P entityPtr[V]]() *memoryTable[V, P] {
	return &memoryTable[V, P]{items: make(map[primitive.ObjectID]V)}
}

func (t *memoryTable[V, P]) insert(entity P, unique func(existing V) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if unique != nil {
		for _, existing := range t.items {
			if unique(existing) {
				return ErrDuplicate
			}
		}
	}
	if entity.GetID().IsZero() {
		entity.SetID(primitive.NewObjectID())
	}
	id := entity.GetID()
	if _, ok := t.items[id]; ok {
		return ErrDuplicate
	}
	t.items[id] = *entity
	t.order = append(t.order, id)
	return nil
}

func (t *memoryTable[V, P]) get(id primitive.ObjectID) (P, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (t *memoryTable[V, P]) replace(entity P, unique func(existing V) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := entity.GetID()
	if _, ok := t.items[id]; !ok {
		return ErrNotFound
	}
	if unique != nil {
		for otherID, existing := range t.items {
			if otherID != id && unique(existing) {
				return ErrDuplicate
			}
		}
	}
	t.items[id] = *entity
	return nil
}

func (t *memoryTable[V, P]) delete(id primitive.ObjectID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return ErrNotFound
	}
	delete(t.items, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// find returns copies of all matching documents in insertion order.
func (t *memoryTable[V, P]) find(match func(v V) bool) []V {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]V, 0)
	for _, id := range t.order {
		v := t.items[id]
		if match == nil || match(v) {
			out = append(out, v)
		}
	}
	return out
}

// update applies fn to every matching document under one lock.
func (t *memoryTable[V, P]) update(match func(v V) bool, fn func(v *V) bool) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var changed int64
	for _, id := range t.order {
		v := t.items[id]
		if !match(v) {
			continue
		}
		if fn(&v) {
			t.items[id] = v
			changed++
		}
	}
	return changed
}

func paginate[V any](items []V, page Page) ([]V, int64) {
	start, end := page.Bounds(len(items))
	return items[start:end], int64(len(items))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func sameRef(ref *primitive.ObjectID, id primitive.ObjectID) bool {
	return ref != nil && *ref == id
}

// NewMemory builds a Store that keeps everything in process memory. It backs
// demo mode and tests; nothing survives a restart.
func NewMemory() *Store {
	return &Store{
		Users:         &memoryUsers{table: newMemoryTable[models.User, *models.User]()},
		Communities:   &memoryCommunities{table: newMemoryTable[models.Community, *models.Community]()},
		Routes:        &memoryRoutes{table: newMemoryTable[models.Route, *models.Route]()},
		Pickups:       &memoryPickups{table: newMemoryTable[models.Pickup, *models.Pickup]()},
		Issues:        &memoryIssues{table: newMemoryTable[models.Issue, *models.Issue]()},
		Notifications: &memoryNotifications{table: newMemoryTable[models.Notification, *models.Notification]()},
		Settings:      &memorySettings{},
		Sequences:     &memorySequencer{counters: map[string]int64{}},
		Backend:       "memory",
	}
}

type memoryUsers struct {
	table *memoryTable[models.User, *models.User]
}

func (r *memoryUsers) sameEmail(email string) func(models.User) bool {
	return func(existing models.User) bool { return strings.EqualFold(existing.Email, email) }
}

func (r *memoryUsers) Create(_ context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.table.insert(user, r.sameEmail(user.Email))
}

func (r *memoryUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.table.get(id)
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	matches := r.table.find(r.sameEmail(strings.TrimSpace(email)))
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

func (r *memoryUsers) Update(_ context.Context, user *models.User) error {
	return r.table.replace(user, r.sameEmail(user.Email))
}

func (r *memoryUsers) List(_ context.Context, f UserFilter, page Page) ([]models.User, int64, error) {
	items := r.table.find(func(u models.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.Community != nil && !sameRef(u.Community, *f.Community) {
			return false
		}
		if f.Active != nil && u.IsActive != *f.Active {
			return false
		}
		if f.Search != "" && !containsFold(u.Name, f.Search) && !containsFold(u.Email, f.Search) {
			return false
		}
		return true
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	out, total := paginate(items, page)
	return out, total, nil
}

func (r *memoryUsers) CountByCommunity(_ context.Context, community primitive.ObjectID) (models.UserCounts, error) {
	var counts models.UserCounts
	for _, u := range r.table.find(func(u models.User) bool { return sameRef(u.Community, community) }) {
		counts.Total++
		if u.IsActive {
			counts.Active++
		}
	}
	return counts, nil
}

func (r *memoryUsers) CountByRole(_ context.Context) (map[models.Role]int64, error) {
	counts := map[models.Role]int64{}
	for _, u := range r.table.find(nil) {
		counts[u.Role]++
	}
	return counts, nil
}

type memoryCommunities struct {
	table *memoryTable[models.Community, *models.Community]
}

func sameName(name string) func(models.Community) bool {
	return func(existing models.Community) bool {
		return strings.EqualFold(existing.Name, strings.TrimSpace(name))
	}
}

func (r *memoryCommunities) Create(_ context.Context, c *models.Community) error {
	return r.table.insert(c, sameName(c.Name))
}

func (r *memoryCommunities) FindByID(_ context.Context, id primitive.ObjectID) (*models.Community, error) {
	return r.table.get(id)
}

func (r *memoryCommunities) FindByName(_ context.Context, name string) (*models.Community, error) {
	matches := r.table.find(sameName(name))
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

func (r *memoryCommunities) Update(_ context.Context, c *models.Community) error {
	return r.table.replace(c, sameName(c.Name))
}

func (r *memoryCommunities) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.table.delete(id)
}

func (r *memoryCommunities) List(_ context.Context, f CommunityFilter, page Page) ([]models.Community, int64, error) {
	items := r.table.find(func(c models.Community) bool {
		if f.Status != "" && c.Status != f.Status {
			return false
		}
		return f.Search == "" || containsFold(c.Name, f.Search)
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	out, total := paginate(items, page)
	return out, total, nil
}

type memoryRoutes struct {
	table *memoryTable[models.Route, *models.Route]
}

func (r *memoryRoutes) Create(_ context.Context, route *models.Route) error {
	return r.table.insert(route, nil)
}

func (r *memoryRoutes) FindByID(_ context.Context, id primitive.ObjectID) (*models.Route, error) {
	return r.table.get(id)
}

func (r *memoryRoutes) Update(_ context.Context, route *models.Route) error {
	return r.table.replace(route, nil)
}

func (r *memoryRoutes) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.table.delete(id)
}

func (r *memoryRoutes) List(_ context.Context, f RouteFilter, page Page) ([]models.Route, int64, error) {
	items := r.table.find(func(route models.Route) bool {
		if f.Status != "" && route.Status != f.Status {
			return false
		}
		if f.Driver != nil && !sameRef(route.Driver, *f.Driver) {
			return false
		}
		if f.Community != nil {
			for _, c := range route.Communities {
				if c == *f.Community {
					return true
				}
			}
			return false
		}
		return true
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	out, total := paginate(items, page)
	return out, total, nil
}

func (r *memoryRoutes) FindAvailable(_ context.Context, date time.Time, waste models.WasteType, community primitive.ObjectID) (*models.Route, error) {
	matches := r.table.find(func(route models.Route) bool { return route.Serves(date, waste, community) })
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	return &matches[0], nil
}

type memoryPickups struct {
	table *memoryTable[models.Pickup, *models.Pickup]
}

func matchPickup(f PickupFilter) func(models.Pickup) bool {
	return func(p models.Pickup) bool {
		if f.User != nil && p.User != *f.User {
			return false
		}
		if f.Community != nil && p.Community != *f.Community {
			return false
		}
		if f.Status != "" && p.Status != f.Status {
			return false
		}
		if f.WasteType != "" && p.WasteType != f.WasteType {
			return false
		}
		if f.From != nil && p.ScheduledDate.Before(*f.From) {
			return false
		}
		if f.To != nil && p.ScheduledDate.After(*f.To) {
			return false
		}
		return true
	}
}

func (r *memoryPickups) Create(_ context.Context, p *models.Pickup) error {
	return r.table.insert(p, nil)
}

func (r *memoryPickups) FindByID(_ context.Context, id primitive.ObjectID) (*models.Pickup, error) {
	return r.table.get(id)
}

func (r *memoryPickups) Update(_ context.Context, p *models.Pickup) error {
	return r.table.replace(p, nil)
}

func (r *memoryPickups) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.table.delete(id)
}

func (r *memoryPickups) List(_ context.Context, f PickupFilter, page Page) ([]models.Pickup, int64, error) {
	items := r.table.find(matchPickup(f))
	sort.SliceStable(items, func(i, j int) bool { return items[i].ScheduledDate.After(items[j].ScheduledDate) })
	out, total := paginate(items, page)
	return out, total, nil
}

func (r *memoryPickups) Count(_ context.Context, f PickupFilter) (int64, error) {
	return int64(len(r.table.find(matchPickup(f)))), nil
}

func (r *memoryPickups) Summary(_ context.Context, f PickupFilter) (models.PickupSummary, error) {
	summary := models.NewPickupSummary()
	for _, p := range r.table.find(matchPickup(f)) {
		summary.Add(p.Status, p.WasteType, 1, p.ActualWeight)
	}
	return summary, nil
}

func (r *memoryPickups) Trends(_ context.Context, f PickupFilter) ([]models.TrendPoint, error) {
	f.Status = models.PickupCompleted
	type key struct {
		year, month int
		waste       models.WasteType
	}
	groups := map[key]*models.TrendPoint{}
	for _, p := range r.table.find(matchPickup(f)) {
		k := key{p.ScheduledDate.Year(), int(p.ScheduledDate.Month()), p.WasteType}
		point, ok := groups[k]
		if !ok {
			point = &models.TrendPoint{Year: k.year, Month: k.month, WasteType: k.waste}
			groups[k] = point
		}
		point.Pickups++
		point.Weight += p.ActualWeight
	}
	points := make([]models.TrendPoint, 0, len(groups))
	for _, point := range groups {
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.WasteType < b.WasteType
	})
	return points, nil
}

type memoryIssues struct {
	table *memoryTable[models.Issue, *models.Issue]
}

func matchIssue(f IssueFilter) func(models.Issue) bool {
	return func(i models.Issue) bool {
		if f.Reporter != nil && i.Reporter != *f.Reporter {
			return false
		}
		if f.Community != nil && i.Community != *f.Community {
			return false
		}
		if f.AssignedTo != nil && !sameRef(i.AssignedTo, *f.AssignedTo) {
			return false
		}
		if f.Status != "" && i.Status != f.Status {
			return false
		}
		if f.Type != "" && i.Type != f.Type {
			return false
		}
		if f.Priority != "" && i.Priority != f.Priority {
			return false
		}
		if f.Search != "" && !containsFold(i.Title, f.Search) && !containsFold(i.Description, f.Search) && !containsFold(i.IssueID, f.Search) {
			return false
		}
		return true
	}
}

func sameIssueID(issueID string) func(models.Issue) bool {
	return func(existing models.Issue) bool { return existing.IssueID == issueID }
}

func (r *memoryIssues) Create(_ context.Context, i *models.Issue) error {
	return r.table.insert(i, sameIssueID(i.IssueID))
}

func (r *memoryIssues) FindByID(_ context.Context, id primitive.ObjectID) (*models.Issue, error) {
	return r.table.get(id)
}

func (r *memoryIssues) Update(_ context.Context, i *models.Issue) error {
	return r.table.replace(i, sameIssueID(i.IssueID))
}

func (r *memoryIssues) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.table.delete(id)
}

func (r *memoryIssues) List(_ context.Context, f IssueFilter, page Page) ([]models.Issue, int64, error) {
	items := r.table.find(matchIssue(f))
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	out, total := paginate(items, page)
	return out, total, nil
}

func (r *memoryIssues) Summary(_ context.Context, f IssueFilter) (models.IssueSummary, error) {
	summary := models.NewIssueSummary()
	for _, i := range r.table.find(matchIssue(f)) {
		summary.Add(i)
	}
	return summary, nil
}

type memoryNotifications struct {
	table *memoryTable[models.Notification, *models.Notification]
}

func (r *memoryNotifications) Create(_ context.Context, n *models.Notification) error {
	return r.table.insert(n, nil)
}

func (r *memoryNotifications) FindByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	return r.table.get(id)
}

func (r *memoryNotifications) Update(_ context.Context, n *models.Notification) error {
	return r.table.replace(n, nil)
}

func (r *memoryNotifications) Delete(_ context.Context, id primitive.ObjectID) error {
	return r.table.delete(id)
}

func (r *memoryNotifications) List(_ context.Context, f NotificationFilter, page Page) ([]models.Notification, int64, error) {
	items := r.table.find(func(n models.Notification) bool {
		if n.User != f.User {
			return false
		}
		if f.UnreadOnly && n.IsRead {
			return false
		}
		return f.Type == "" || n.Type == f.Type
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	out, total := paginate(items, page)
	return out, total, nil
}

func (r *memoryNotifications) MarkAllRead(_ context.Context, user primitive.ObjectID, at time.Time) (int64, error) {
	changed := r.table.update(
		func(n models.Notification) bool { return n.User == user && !n.IsRead },
		func(n *models.Notification) bool {
			*n = n.MarkRead(at)
			return true
		},
	)
	return changed, nil
}

func (r *memoryNotifications) CountUnread(_ context.Context, user primitive.ObjectID) (int64, error) {
	unread := r.table.find(func(n models.Notification) bool { return n.User == user && !n.IsRead })
	return int64(len(unread)), nil
}

type memorySettings struct {
	mu     sync.RWMutex
	system *models.SystemSettings
}

func (r *memorySettings) GetSystem(_ context.Context) (*models.SystemSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.system == nil {
		defaults := models.DefaultSystemSettings()
		return &defaults, nil
	}
	copied := *r.system
	copied.WasteTypes = append([]models.WasteType(nil), r.system.WasteTypes...)
	return &copied, nil
}

func (r *memorySettings) SaveSystem(_ context.Context, settings *models.SystemSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *settings
	copied.Key = models.SystemSettingsKey
	copied.WasteTypes = append([]models.WasteType(nil), settings.WasteTypes...)
	r.system = &copied
	return nil
}

type memorySequencer struct {
	mu       sync.Mutex
	counters map[string]int64
}

func (s *memorySequencer) Next(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}
