package controllers

import (
	"net/http"

	"wastewise-be/models"
	"wastewise-be/services"
	"wastewise-be/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IssueController struct {
	base
}

func NewIssueController(svc *services.Services, logger *zap.Logger) *IssueController {
	useJSONFieldNames()
	return &IssueController{base{svc: svc, logger: logger}}
}

// parseStatus accepts the legacy "pending" spelling for new issues.
func parseStatus(c *gin.Context, field string, value *string) (*models.IssueStatus, bool) {
	if value == nil {
		return nil, true
	}
	status, ok := models.ParseIssueStatus(*value)
	if !ok {
		badRequest(c, field, "must be new, acknowledged, in_progress, resolved, closed or rejected")
		return nil, false
	}
	return &status, true
}

// CreateIssue handles the creation of a new issue
func (ctl *IssueController) CreateIssue(c *gin.Context) {
	var input struct {
		Type        models.IssueType `json:"type" binding:"required"`
		Title       string           `json:"title" binding:"required,max=100"`
		Description string           `json:"description" binding:"required,max=1000"`
		Location    string           `json:"location"`
		Priority    models.Priority  `json:"priority"`
		Images      []string         `json:"images" binding:"omitempty,max=5,dive,url"`
		Tags        []string         `json:"tags" binding:"omitempty,max=10"`
		Community   string           `json:"community"`
	}
	if !bindJSON(c, &input) {
		return
	}
	community, ok := optionalID(c, "community", input.Community)
	if !ok {
		return
	}

	issue, err := ctl.svc.Issues.Create(c.Request.Context(), principal(c), services.IssueInput{
		Type:        input.Type,
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Priority:    input.Priority,
		Images:      input.Images,
		Tags:        input.Tags,
		Community:   community,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Issue reported successfully", issue)
}

func (ctl *IssueController) issueFilter(c *gin.Context) (store.IssueFilter, bool) {
	var filter store.IssueFilter
	var ok bool
	if filter.Community, ok = optionalID(c, "community", c.Query("community")); !ok {
		return filter, false
	}
	if filter.Reporter, ok = optionalID(c, "reporter", c.Query("reporter")); !ok {
		return filter, false
	}
	if filter.AssignedTo, ok = optionalID(c, "assignedTo", c.Query("assignedTo")); !ok {
		return filter, false
	}
	if status := c.Query("status"); status != "" {
		parsed, ok := parseStatus(c, "status", &status)
		if !ok {
			return filter, false
		}
		filter.Status = *parsed
	}
	filter.Type = models.IssueType(c.Query("type"))
	filter.Priority = models.Priority(c.Query("priority"))
	filter.Search = c.Query("search")
	return filter, true
}

// GetAllIssues lists the issues visible to the caller.
func (ctl *IssueController) GetAllIssues(c *gin.Context) {
	filter, ok := ctl.issueFilter(c)
	if !ok {
		return
	}
	res, err := ctl.svc.Issues.List(c.Request.Context(), principal(c), filter, page(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respondList(c, res)
}

// GetIssue retrieves an issue by its ID
func (ctl *IssueController) GetIssue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	issue, err := ctl.svc.Issues.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", issue)
}

type resolutionRequest struct {
	Solution         *string `json:"solution" binding:"omitempty,max=1000"`
	FollowUpRequired *bool   `json:"followUpRequired"`
	FollowUpDate     string  `json:"followUpDate"`
}

// UpdateIssue lets admins manage an issue and reporters edit it while it is new.
func (ctl *IssueController) UpdateIssue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Title       *string            `json:"title" binding:"omitempty,max=100"`
		Description *string            `json:"description" binding:"omitempty,max=1000"`
		Location    *string            `json:"location"`
		Status      *string            `json:"status"`
		Priority    *models.Priority   `json:"priority"`
		AssignedTo  *string            `json:"assignedTo"`
		Notes       *string            `json:"notes"`
		Resolution  *resolutionRequest `json:"resolution"`
		Message     string             `json:"message"`
		Internal    bool               `json:"isInternal"`
	}
	if !bindJSON(c, &input) {
		return
	}

	update := services.IssueUpdate{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Priority:    input.Priority,
		Notes:       input.Notes,
		Message:     input.Message,
		Internal:    input.Internal,
	}
	if update.Status, ok = parseStatus(c, "status", input.Status); !ok {
		return
	}
	if input.AssignedTo != nil {
		if update.AssignedTo, ok = optionalID(c, "assignedTo", *input.AssignedTo); !ok {
			return
		}
	}
	if input.Resolution != nil {
		followUp, ok := optionalDate(c, "resolution.followUpDate", input.Resolution.FollowUpDate)
		if !ok {
			return
		}
		update.Resolution = &services.ResolutionInput{
			Solution:         input.Resolution.Solution,
			FollowUpRequired: input.Resolution.FollowUpRequired,
			FollowUpDate:     followUp,
		}
	}

	issue, err := ctl.svc.Issues.Update(c.Request.Context(), principal(c), id, update)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Issue updated successfully", issue)
}

// DeleteIssue removes an issue. Reporters may only delete issues that are still new.
func (ctl *IssueController) DeleteIssue(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Issues.Delete(c.Request.Context(), principal(c), id); err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Issue deleted successfully", nil)
}

// AddComment appends an entry to the issue's update log.
func (ctl *IssueController) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Message  string  `json:"message" binding:"required,max=1000"`
		Status   *string `json:"status"`
		Internal bool    `json:"isInternal"`
	}
	if !bindJSON(c, &input) {
		return
	}
	status, ok := parseStatus(c, "status", input.Status)
	if !ok {
		return
	}

	issue, err := ctl.svc.Issues.AddComment(c.Request.Context(), principal(c), id, services.CommentInput{
		Message:  input.Message,
		Status:   status,
		Internal: input.Internal,
	})
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Update added successfully", issue)
}

func (ctl *IssueController) SubmitFeedback(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Rating  int    `json:"rating" binding:"required,min=1,max=5"`
		Comment string `json:"comment" binding:"max=500"`
	}
	if !bindJSON(c, &input) {
		return
	}

	issue, err := ctl.svc.Issues.SubmitFeedback(c.Request.Context(), principal(c), id, input.Rating, input.Comment)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Feedback submitted successfully", issue)
}

// GetIssueStats returns counts by status, type and priority plus the
// average resolution time.
func (ctl *IssueController) GetIssueStats(c *gin.Context) {
	filter, ok := ctl.issueFilter(c)
	if !ok {
		return
	}
	stats, err := ctl.svc.Issues.Stats(c.Request.Context(), principal(c), filter)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}
