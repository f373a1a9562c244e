package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type IssueType string

const (
	IssueMissedPickup   IssueType = "missed_pickup"
	IssueOverflowingBin IssueType = "overflowing_bin"
	IssueDamagedBin     IssueType = "damaged_bin"
	IssueIllegalDumping IssueType = "illegal_dumping"
	IssueVehicle        IssueType = "vehicle_issue"
	IssueRouteProblem   IssueType = "route_problem"
	IssueOther          IssueType = "other"
)

func (t IssueType) Valid() bool {
	switch t {
	case IssueMissedPickup, IssueOverflowingBin, IssueDamagedBin, IssueIllegalDumping,
		IssueVehicle, IssueRouteProblem, IssueOther:
		return true
	}
	return false
}

type IssueStatus string

const (
	IssueNew          IssueStatus = "new"
	IssueAcknowledged IssueStatus = "acknowledged"
	IssueInProgress   IssueStatus = "in_progress"
	IssueResolved     IssueStatus = "resolved"
	IssueClosed       IssueStatus = "closed"
	IssueRejected     IssueStatus = "rejected"
)

var issueTransitions = map[IssueStatus][]IssueStatus{
	IssueNew:          {IssueAcknowledged, IssueInProgress, IssueResolved, IssueClosed, IssueRejected},
	IssueAcknowledged: {IssueInProgress, IssueResolved, IssueClosed, IssueRejected},
	IssueInProgress:   {IssueAcknowledged, IssueResolved, IssueClosed, IssueRejected},
	IssueResolved:     {IssueClosed, IssueInProgress},
}

// ParseIssueStatus accepts the legacy "pending" spelling for new issues.
func ParseIssueStatus(s string) (IssueStatus, bool) {
	status := IssueStatus(strings.ToLower(strings.TrimSpace(s)))
	if status == "pending" {
		return IssueNew, true
	}
	return status, status.Valid()
}

func (s IssueStatus) Valid() bool {
	switch s {
	case IssueNew, IssueAcknowledged, IssueInProgress, IssueResolved, IssueClosed, IssueRejected:
		return true
	}
	return false
}

// Open statuses still need work.
func (s IssueStatus) Open() bool {
	return s == IssueNew || s == IssueAcknowledged || s == IssueInProgress
}

func (s IssueStatus) CanTransitionTo(next IssueStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range issueTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type StatusChange struct {
	From IssueStatus `bson:"from" json:"from"`
	To   IssueStatus `bson:"to" json:"to"`
}

// IssueUpdate is one entry of the append-only update log.
type IssueUpdate struct {
	Author       primitive.ObjectID `bson:"author" json:"author"`
	Message      string             `bson:"message" json:"message"`
	StatusChange *StatusChange      `bson:"statusChange,omitempty" json:"statusChange,omitempty"`
	Internal     bool               `bson:"isInternal" json:"isInternal"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

type Resolution struct {
	Solution         string              `bson:"solution,omitempty" json:"solution,omitempty"`
	ResolvedBy       *primitive.ObjectID `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt       *time.Time          `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	FollowUpRequired bool                `bson:"followUpRequired" json:"followUpRequired"`
	FollowUpDate     *time.Time          `bson:"followUpDate,omitempty" json:"followUpDate,omitempty"`
}

type Feedback struct {
	Rating      int       `bson:"rating" json:"rating"`
	Comment     string    `bson:"comment,omitempty" json:"comment,omitempty"`
	SubmittedAt time.Time `bson:"submittedAt" json:"submittedAt"`
}

type Issue struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	IssueID     string              `bson:"issueId" json:"issueId"`
	Reporter    primitive.ObjectID  `bson:"reporter" json:"reporter"`
	Community   primitive.ObjectID  `bson:"community" json:"community"`
	Type        IssueType           `bson:"type" json:"type"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Location    string              `bson:"location" json:"location"`
	Priority    Priority            `bson:"priority" json:"priority"`
	Status      IssueStatus         `bson:"status" json:"status"`
	AssignedTo  *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Updates     []IssueUpdate       `bson:"updates" json:"updates"`
	Resolution  Resolution          `bson:"resolution" json:"resolution"`
	Feedback    *Feedback           `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Images      []string            `bson:"images,omitempty" json:"images,omitempty"`
	Tags        []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IssueSequenceKey names the counter that numbers issues created on day t.
func IssueSequenceKey(t time.Time) string {
	return "issue:" + t.Format("20060102")
}

// FormatIssueID renders ISS + yymmdd + a three digit sequence within the day.
func FormatIssueID(t time.Time, seq int64) string {
	return fmt.Sprintf("ISS%s%03d", t.Format("060102"), seq)
}

// NewIssue builds a new issue with an already allocated issue ID.
func NewIssue(issueID string, reporter, community primitive.ObjectID, kind IssueType, title, description, location string, priority Priority, now time.Time) (Issue, error) {
	var fields []FieldError
	if !kind.Valid() {
		fields = append(fields, FieldError{Field: "type", Message: "unsupported issue type"})
	}
	if strings.TrimSpace(title) == "" {
		fields = append(fields, FieldError{Field: "title", Message: "is required"})
	}
	if strings.TrimSpace(description) == "" {
		fields = append(fields, FieldError{Field: "description", Message: "is required"})
	}
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		fields = append(fields, FieldError{Field: "priority", Message: "must be low, medium, high or urgent"})
	}
	if len(fields) > 0 {
		return Issue{}, NewValidationError("Validation failed", fields...)
	}
	return Issue{
		IssueID:     issueID,
		Reporter:    reporter,
		Community:   community,
		Type:        kind,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Location:    strings.TrimSpace(location),
		Priority:    priority,
		Status:      IssueNew,
		Updates:     []IssueUpdate{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// EditableByReporter reports whether the reporter may still edit or delete the issue.
func (i Issue) EditableByReporter() bool {
	return i.Status == IssueNew
}

// ChangeStatus moves the issue to next and logs the change. The first move
// into resolved stamps resolution.resolvedAt; later moves never touch it.
func (i Issue) ChangeStatus(next IssueStatus, author primitive.ObjectID, message string, internal bool, now time.Time) (Issue, error) {
	if !next.Valid() {
		return i, NewValidationError("Invalid status", FieldError{Field: "status", Message: fmt.Sprintf("unknown status %q", next)})
	}
	if !i.Status.CanTransitionTo(next) {
		return i, NewConflictError(fmt.Sprintf("Cannot change issue status from %s to %s", i.Status, next))
	}
	if i.Status == next {
		return i, nil
	}
	if message == "" {
		message = fmt.Sprintf("Status changed from %s to %s", i.Status, next)
	}
	change := &StatusChange{From: i.Status, To: next}
	i.Status = next
	if next == IssueResolved && i.Resolution.ResolvedAt == nil {
		stamp := now
		i.Resolution.ResolvedAt = &stamp
	}
	i.Updates = appendUpdate(i.Updates, IssueUpdate{
		Author:       author,
		Message:      message,
		StatusChange: change,
		Internal:     internal,
		CreatedAt:    now,
	})
	i.UpdatedAt = now
	return i, nil
}

// Resolve records the solution and moves the issue to resolved.
func (i Issue) Resolve(resolver primitive.ObjectID, solution string, now time.Time) (Issue, error) {
	next, err := i.ChangeStatus(IssueResolved, resolver, "Issue resolved", false, now)
	if err != nil {
		return i, err
	}
	if solution != "" {
		next.Resolution.Solution = solution
	}
	if next.Resolution.ResolvedBy == nil {
		by := resolver
		next.Resolution.ResolvedBy = &by
	}
	next.UpdatedAt = now
	return next, nil
}

// AddUpdate appends a comment. A non-nil status advances the issue as well.
func (i Issue) AddUpdate(author primitive.ObjectID, message string, status *IssueStatus, internal bool, now time.Time) (Issue, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return i, NewValidationError("Message is required", FieldError{Field: "message", Message: "is required"})
	}
	if status != nil && *status != i.Status {
		return i.ChangeStatus(*status, author, message, internal, now)
	}
	i.Updates = appendUpdate(i.Updates, IssueUpdate{
		Author:    author,
		Message:   message,
		Internal:  internal,
		CreatedAt: now,
	})
	i.UpdatedAt = now
	return i, nil
}

// EditByReporter applies the reporter's edits, which are only allowed while the issue is new.
func (i Issue) EditByReporter(title, description, location *string, now time.Time) (Issue, error) {
	if !i.EditableByReporter() {
		return i, NewConflictError("Issue can only be edited while it is still pending")
	}
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return i, NewValidationError("Title cannot be empty", FieldError{Field: "title", Message: "is required"})
		}
		i.Title = strings.TrimSpace(*title)
	}
	if description != nil {
		if strings.TrimSpace(*description) == "" {
			return i, NewValidationError("Description cannot be empty", FieldError{Field: "description", Message: "is required"})
		}
		i.Description = strings.TrimSpace(*description)
	}
	if location != nil {
		i.Location = strings.TrimSpace(*location)
	}
	i.UpdatedAt = now
	return i, nil
}

// SubmitFeedback attaches the reporter's rating once the issue is resolved or closed.
func (i Issue) SubmitFeedback(rating int, comment string, now time.Time) (Issue, error) {
	if i.Status != IssueResolved && i.Status != IssueClosed {
		return i, NewConflictError("Feedback can only be given on resolved or closed issues")
	}
	if i.Feedback != nil {
		return i, NewConflictError("Feedback has already been submitted")
	}
	if rating < 1 || rating > 5 {
		return i, NewValidationError("Rating must be between 1 and 5", FieldError{Field: "rating", Message: "must be between 1 and 5"})
	}
	i.Feedback = &Feedback{Rating: rating, Comment: strings.TrimSpace(comment), SubmittedAt: now}
	i.UpdatedAt = now
	return i, nil
}

// ForViewer hides internal updates from non-staff readers.
func (i Issue) ForViewer(p Principal) Issue {
	if p.IsAdmin() {
		return i
	}
	visible := make([]IssueUpdate, 0, len(i.Updates))
	for _, u := range i.Updates {
		if !u.Internal {
			visible = append(visible, u)
		}
	}
	i.Updates = visible
	return i
}

// appendUpdate copies the log so snapshots never share a backing array.
func appendUpdate(log []IssueUpdate, entry IssueUpdate) []IssueUpdate {
	out := make([]IssueUpdate, len(log), len(log)+1)
	copy(out, log)
	return append(out, entry)
}

// IssueSummary aggregates issues for statistics.
type IssueSummary struct {
	Total                int64                 `json:"total"`
	ByStatus             map[IssueStatus]int64 `json:"byStatus"`
	ByType               map[IssueType]int64   `json:"byType"`
	ByPriority           map[Priority]int64    `json:"byPriority"`
	ResolvedWithTime     int64                 `json:"-"`
	TotalResolutionHours float64               `json:"-"`
}

func NewIssueSummary() IssueSummary {
	return IssueSummary{
		ByStatus:   map[IssueStatus]int64{},
		ByType:     map[IssueType]int64{},
		ByPriority: map[Priority]int64{},
	}
}

// Add folds one issue into the summary.
func (s *IssueSummary) Add(i Issue) {
	var resolved int64
	var hours float64
	if i.Resolution.ResolvedAt != nil {
		resolved = 1
		hours = i.Resolution.ResolvedAt.Sub(i.CreatedAt).Hours()
	}
	s.AddGroup(i.Status, i.Type, i.Priority, 1, resolved, hours)
}

// AddGroup folds count issues sharing status, type and priority into the
// summary; resolved of them took resolutionHours in total to resolve.
func (s *IssueSummary) AddGroup(status IssueStatus, kind IssueType, priority Priority, count, resolved int64, resolutionHours float64) {
	s.Total += count
	s.ByStatus[status] += count
	s.ByType[kind] += count
	s.ByPriority[priority] += count
	s.ResolvedWithTime += resolved
	s.TotalResolutionHours += resolutionHours
}

// Open counts issues that still need work.
func (s IssueSummary) Open() int64 {
	return s.ByStatus[IssueNew] + s.ByStatus[IssueAcknowledged] + s.ByStatus[IssueInProgress]
}

func (s IssueSummary) AverageResolutionHours() float64 {
	if s.ResolvedWithTime == 0 {
		return 0
	}
	return round2(s.TotalResolutionHours / float64(s.ResolvedWithTime))
}
