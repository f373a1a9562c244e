package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wastewise-be/models"
	"wastewise-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IssueService struct {
	*base
	stats         *StatsService
	notifications *NotificationService
}

type IssueInput struct {
	Type        models.IssueType
	Title       string
	Description string
	Location    string
	Priority    models.Priority
	Images      []string
	Tags        []string
	// Community lets admins file an issue for a community they do not belong to.
	Community *primitive.ObjectID
}

// Create files an issue. The issue ID comes from a per-day counter, so
// concurrent creates on the same day never share a number.
func (s *IssueService) Create(ctx context.Context, p models.Principal, in IssueInput) (*models.Issue, error) {
	community := p.Community
	if p.IsAdmin() && in.Community != nil {
		community = in.Community
	}
	if community == nil {
		return nil, models.NewValidationError("You must belong to a community to report issues",
			models.FieldError{Field: "community", Message: "is required"})
	}

	now := s.now()
	// validate before consuming a sequence number
	if _, err := models.NewIssue("", p.UserID, *community, in.Type, in.Title, in.Description, in.Location, in.Priority, now); err != nil {
		return nil, err
	}
	seq, err := s.store.Sequences.Next(ctx, models.IssueSequenceKey(now))
	if err != nil {
		return nil, err
	}
	issue, err := models.NewIssue(models.FormatIssueID(now, seq), p.UserID, *community, in.Type, in.Title, in.Description, in.Location, in.Priority, now)
	if err != nil {
		return nil, err
	}
	issue.Images = cleanList(in.Images)
	issue.Tags = cleanList(in.Tags)

	if err := s.store.Issues.Create(ctx, &issue); err != nil {
		return nil, duplicate(err, "Issue ID already exists")
	}
	s.stats.afterMutation(ctx, &issue.Community)
	s.publish(ctx, "issue.new", issueEventData(issue))
	return &issue, nil
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *IssueService) scope(p models.Principal, filter store.IssueFilter) (store.IssueFilter, error) {
	switch p.Role {
	case models.RoleAdmin:
		return filter, nil
	case models.RoleCommunityAdmin:
		if p.Community == nil {
			return filter, forbidden()
		}
		filter.Community = p.Community
		return filter, nil
	default:
		filter.Reporter = idPtr(p.UserID)
		filter.Community = nil
		return filter, nil
	}
}

func (s *IssueService) List(ctx context.Context, p models.Principal, filter store.IssueFilter, page store.Page) (ListResult[models.Issue], error) {
	filter, err := s.scope(p, filter)
	if err != nil {
		return ListResult[models.Issue]{}, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	items, total, err := s.store.Issues.List(ctx, filter, page)
	if err != nil {
		return ListResult[models.Issue]{}, err
	}
	for i := range items {
		items[i] = items[i].ForViewer(p)
	}
	return newListResult(items, page, total), nil
}

func canSeeIssue(p models.Principal, issue *models.Issue) bool {
	if p.IsAdmin() || issue.Reporter == p.UserID || sameID(issue.AssignedTo, &p.UserID) {
		return true
	}
	return p.Role == models.RoleCommunityAdmin && p.ManagesCommunity(issue.Community)
}

func (s *IssueService) load(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.store.Issues.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Issue")
	}
	return issue, nil
}

func (s *IssueService) Get(ctx context.Context, p models.Principal, id primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeIssue(p, issue) {
		return nil, forbidden()
	}
	viewed := issue.ForViewer(p)
	return &viewed, nil
}

type ResolutionInput struct {
	Solution         *string
	FollowUpRequired *bool
	FollowUpDate     *time.Time
}

// IssueUpdate lists every writable issue field. Reporters may edit the
// description fields while the issue is new; the rest are admin-only and
// ignored for everyone else.
type IssueUpdate struct {
	Title       *string
	Description *string
	Location    *string

	Status     *models.IssueStatus
	Priority   *models.Priority
	AssignedTo *primitive.ObjectID
	Notes      *string
	Resolution *ResolutionInput
	Message    string
	Internal   bool
}

func (s *IssueService) Update(ctx context.Context, p models.Principal, id primitive.ObjectID, in IssueUpdate) (*models.Issue, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var next models.Issue
	if p.IsAdmin() {
		next, err = s.adminUpdate(*current, p, in, now)
	} else {
		if current.Reporter != p.UserID {
			return nil, forbidden()
		}
		next, err = current.EditByReporter(in.Title, in.Description, in.Location, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.Issues.Update(ctx, &next); err != nil {
		return nil, notFound(err, "Issue")
	}
	s.afterUpdate(ctx, p, current, &next)
	viewed := next.ForViewer(p)
	return &viewed, nil
}

func (s *IssueService) adminUpdate(issue models.Issue, p models.Principal, in IssueUpdate, now time.Time) (models.Issue, error) {
	var err error
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		issue.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		issue.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		issue.Location = strings.TrimSpace(*in.Location)
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return issue, models.NewValidationError("Invalid priority", models.FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
		}
		issue.Priority = *in.Priority
	}
	if in.AssignedTo != nil {
		issue.AssignedTo = in.AssignedTo
	}
	if in.Notes != nil {
		issue.Notes = strings.TrimSpace(*in.Notes)
	}

	if in.Status != nil {
		if *in.Status == models.IssueResolved {
			solution := ""
			if in.Resolution != nil && in.Resolution.Solution != nil {
				solution = strings.TrimSpace(*in.Resolution.Solution)
			}
			issue, err = issue.Resolve(p.UserID, solution, now)
		} else {
			issue, err = issue.ChangeStatus(*in.Status, p.UserID, strings.TrimSpace(in.Message), in.Internal, now)
		}
		if err != nil {
			return issue, err
		}
	}

	if r := in.Resolution; r != nil {
		if r.Solution != nil && strings.TrimSpace(*r.Solution) != "" {
			issue.Resolution.Solution = strings.TrimSpace(*r.Solution)
		}
		if r.FollowUpRequired != nil {
			issue.Resolution.FollowUpRequired = *r.FollowUpRequired
		}
		if r.FollowUpDate != nil {
			issue.Resolution.FollowUpDate = r.FollowUpDate
		}
	}
	issue.UpdatedAt = now
	return issue, nil
}

type CommentInput struct {
	Message  string
	Status   *models.IssueStatus
	Internal bool
}

// AddComment appends to the update log. Only admins may attach a status
// change or post internal notes.
func (s *IssueService) AddComment(ctx context.Context, p models.Principal, id primitive.ObjectID, in CommentInput) (*models.Issue, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSeeIssue(p, current) {
		return nil, forbidden()
	}
	if !p.IsAdmin() && (in.Status != nil || in.Internal) {
		return nil, models.NewForbiddenError("Only admins can change the status or post internal notes")
	}

	next, err := current.AddUpdate(p.UserID, in.Message, in.Status, in.Internal, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Issues.Update(ctx, &next); err != nil {
		return nil, notFound(err, "Issue")
	}
	s.afterUpdate(ctx, p, current, &next)
	viewed := next.ForViewer(p)
	return &viewed, nil
}

// Resolve moves the issue to resolved. Resolving twice keeps the original
// resolvedAt.
func (s *IssueService) Resolve(ctx context.Context, p models.Principal, id primitive.ObjectID, solution string) (*models.Issue, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	status := models.IssueResolved
	return s.Update(ctx, p, id, IssueUpdate{Status: &status, Resolution: &ResolutionInput{Solution: &solution}})
}

func (s *IssueService) SubmitFeedback(ctx context.Context, p models.Principal, id primitive.ObjectID, rating int, comment string) (*models.Issue, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Reporter != p.UserID {
		return nil, models.NewForbiddenError("Only the reporter can rate the resolution")
	}
	next, err := current.SubmitFeedback(rating, comment, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Issues.Update(ctx, &next); err != nil {
		return nil, notFound(err, "Issue")
	}
	viewed := next.ForViewer(p)
	return &viewed, nil
}

// Delete is open to admins at any time and to the reporter while the issue
// is still new.
func (s *IssueService) Delete(ctx context.Context, p models.Principal, id primitive.ObjectID) error {
	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsAdmin() {
		if current.Reporter != p.UserID {
			return forbidden()
		}
		if !current.EditableByReporter() {
			return models.NewConflictError("Issue can only be deleted while it is still pending")
		}
	}
	if err := s.store.Issues.Delete(ctx, id); err != nil {
		return notFound(err, "Issue")
	}
	s.stats.afterMutation(ctx, &current.Community)
	s.publish(ctx, "issue.deleted", issueEventData(*current))
	return nil
}

// afterUpdate tells the reporter about staff activity and publishes status changes.
func (s *IssueService) afterUpdate(ctx context.Context, p models.Principal, before, after *models.Issue) {
	statusChanged := before.Status != after.Status
	if statusChanged {
		s.stats.afterMutation(ctx, &after.Community)
		s.publish(ctx, "issue."+string(after.Status), issueEventData(*after))
	}
	if !p.IsAdmin() || after.Reporter == p.UserID {
		return
	}
	if latest := lastUpdate(after); latest != nil && latest.Internal && !statusChanged {
		return
	}

	title := fmt.Sprintf("Issue %s updated", after.IssueID)
	message := fmt.Sprintf("Your issue %q has been updated.", after.Title)
	if statusChanged {
		message = fmt.Sprintf("Your issue %q is now %s.", after.Title, humanize(string(after.Status)))
	}
	s.notifications.notify(ctx, after.Reporter, models.NotificationIssue, title, message,
		map[string]interface{}{"issueId": after.IssueID, "id": after.ID.Hex(), "status": after.Status},
		after.Priority,
	)
}

func lastUpdate(i *models.Issue) *models.IssueUpdate {
	if len(i.Updates) == 0 {
		return nil
	}
	return &i.Updates[len(i.Updates)-1]
}

type IssueStats struct {
	models.IssueSummary
	OpenIssues             int64   `json:"open"`
	AverageResolutionHours float64 `json:"averageResolutionHours"`
}

func (s *IssueService) Stats(ctx context.Context, p models.Principal, filter store.IssueFilter) (*IssueStats, error) {
	filter, err := s.scope(p, filter)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.Issues.Summary(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &IssueStats{
		IssueSummary:           summary,
		OpenIssues:             summary.Open(),
		AverageResolutionHours: summary.AverageResolutionHours(),
	}, nil
}

func issueEventData(i models.Issue) map[string]interface{} {
	return map[string]interface{}{
		"id":          i.ID.Hex(),
		"issueId":     i.IssueID,
		"reporterId":  i.Reporter.Hex(),
		"communityId": i.Community.Hex(),
		"type":        i.Type,
		"status":      i.Status,
		"priority":    i.Priority,
	}
}
