package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestIssue(t *testing.T) Issue {
	t.Helper()
	issue, err := NewIssue(FormatIssueID(now, 7), primitive.NewObjectID(), primitive.NewObjectID(),
		IssueOverflowingBin, " Bin full ", "Bin on 5th street is overflowing", "", "", now)
	require.NoError(t, err)
	return issue
}

func TestFormatIssueID(t *testing.T) {
	id := FormatIssueID(now, 7)
	assert.Equal(t, "ISS260310007", id)
	assert.Regexp(t, regexp.MustCompile(`^ISS\d{8}`), id)
	assert.Equal(t, "issue:20260310", IssueSequenceKey(now))
}

func TestNewIssueValidation(t *testing.T) {
	_, err := NewIssue("ISS1", primitive.NewObjectID(), primitive.NewObjectID(), "noise", "", "", "", "critical", now)
	appErr, ok := AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Len(t, appErr.Fields, 4)

	issue := newTestIssue(t)
	assert.Equal(t, "Bin full", issue.Title)
	assert.Equal(t, PriorityMedium, issue.Priority)
	assert.Equal(t, IssueNew, issue.Status)
	assert.True(t, issue.EditableByReporter())
}

func TestParseIssueStatus(t *testing.T) {
	status, ok := ParseIssueStatus("Pending")
	assert.True(t, ok)
	assert.Equal(t, IssueNew, status)

	_, ok = ParseIssueStatus("reopened")
	assert.False(t, ok)
}

func TestIssueResolvedAtIsStampedOnce(t *testing.T) {
	admin := primitive.NewObjectID()
	issue := newTestIssue(t)

	resolved, err := issue.Resolve(admin, "Emptied the bin", now)
	require.NoError(t, err)
	require.NotNil(t, resolved.Resolution.ResolvedAt)
	first := *resolved.Resolution.ResolvedAt
	assert.Equal(t, &admin, resolved.Resolution.ResolvedBy)
	require.Len(t, resolved.Updates, 1)
	assert.Equal(t, &StatusChange{From: IssueNew, To: IssueResolved}, resolved.Updates[0].StatusChange)

	reopened, err := resolved.ChangeStatus(IssueInProgress, admin, "", false, now.Add(time.Hour))
	require.NoError(t, err)
	again, err := reopened.Resolve(admin, "", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, *again.Resolution.ResolvedAt)
	assert.Equal(t, "Emptied the bin", again.Resolution.Solution)
	assert.Len(t, again.Updates, 3)
	assert.Len(t, issue.Updates, 0, "snapshots do not share the update log")

	closed, err := again.ChangeStatus(IssueClosed, admin, "", false, now)
	require.NoError(t, err)
	_, err = closed.ChangeStatus(IssueNew, admin, "", false, now)
	assert.True(t, IsKind(err, KindConflict))
}

func TestIssueReporterEditsOnlyWhileNew(t *testing.T) {
	issue := newTestIssue(t)
	title := "Bin overflowing"
	edited, err := issue.EditByReporter(&title, nil, nil, now)
	require.NoError(t, err)
	assert.Equal(t, title, edited.Title)

	blank := "  "
	_, err = issue.EditByReporter(nil, &blank, nil, now)
	assert.True(t, IsKind(err, KindValidation))

	acked, err := issue.ChangeStatus(IssueAcknowledged, primitive.NewObjectID(), "", false, now)
	require.NoError(t, err)
	_, err = acked.EditByReporter(&title, nil, nil, now)
	assert.True(t, IsKind(err, KindConflict))
}

func TestIssueFeedback(t *testing.T) {
	issue := newTestIssue(t)
	_, err := issue.SubmitFeedback(5, "", now)
	assert.True(t, IsKind(err, KindConflict))

	resolved, err := issue.Resolve(primitive.NewObjectID(), "done", now)
	require.NoError(t, err)
	_, err = resolved.SubmitFeedback(6, "", now)
	assert.True(t, IsKind(err, KindValidation))

	rated, err := resolved.SubmitFeedback(4, " quick fix ", now)
	require.NoError(t, err)
	assert.Equal(t, "quick fix", rated.Feedback.Comment)
	_, err = rated.SubmitFeedback(5, "", now)
	assert.True(t, IsKind(err, KindConflict))
}

func TestIssueForViewerHidesInternalUpdates(t *testing.T) {
	staff := primitive.NewObjectID()
	issue := newTestIssue(t)
	issue, err := issue.AddUpdate(staff, "crew notified", nil, true, now)
	require.NoError(t, err)
	issue, err = issue.AddUpdate(staff, "on our way", nil, false, now)
	require.NoError(t, err)

	_, err = issue.AddUpdate(staff, "   ", nil, false, now)
	assert.True(t, IsKind(err, KindValidation))

	resident := issue.ForViewer(Principal{UserID: issue.Reporter, Role: RoleUser})
	require.Len(t, resident.Updates, 1)
	assert.Equal(t, "on our way", resident.Updates[0].Message)
	assert.Len(t, issue.ForViewer(Principal{Role: RoleAdmin}).Updates, 2)
}
