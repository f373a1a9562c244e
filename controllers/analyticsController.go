package controllers

import (
	"net/http"
	"strconv"

	"wastewise-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AnalyticsController serves admins and community admins. The community
// query parameter is honoured for admins only.
type AnalyticsController struct {
	base
}

func NewAnalyticsController(svc *services.Services, logger *zap.Logger) *AnalyticsController {
	useJSONFieldNames()
	return &AnalyticsController{base{svc: svc, logger: logger}}
}

func community(c *gin.Context) (*primitive.ObjectID, bool) {
	return optionalID(c, "community", c.Query("community"))
}

func (ctl *AnalyticsController) Overview(c *gin.Context) {
	id, ok := community(c)
	if !ok {
		return
	}
	overview, err := ctl.svc.Analytics.Overview(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", overview)
}

func (ctl *AnalyticsController) WasteTrends(c *gin.Context) {
	id, ok := community(c)
	if !ok {
		return
	}
	months := 0
	if raw := c.Query("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "months", "must be a positive number")
			return
		}
		months = n
	}

	trends, err := ctl.svc.Analytics.WasteTrends(c.Request.Context(), principal(c), id, months)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", trends)
}

func (ctl *AnalyticsController) PickupStats(c *gin.Context) {
	id, ok := community(c)
	if !ok {
		return
	}
	from, ok := optionalDate(c, "startDate", c.Query("startDate"))
	if !ok {
		return
	}
	to, ok := optionalDate(c, "endDate", c.Query("endDate"))
	if !ok {
		return
	}

	stats, err := ctl.svc.Analytics.PickupStats(c.Request.Context(), principal(c), id, from, to)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

func (ctl *AnalyticsController) IssueAnalytics(c *gin.Context) {
	id, ok := community(c)
	if !ok {
		return
	}
	analytics, err := ctl.svc.Analytics.IssueAnalytics(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", analytics)
}

func (ctl *AnalyticsController) EnvironmentalImpact(c *gin.Context) {
	id, ok := community(c)
	if !ok {
		return
	}
	impact, err := ctl.svc.Analytics.EnvironmentalImpact(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", impact)
}

func (ctl *AnalyticsController) GenerateReport(c *gin.Context) {
	var input struct {
		Type      services.ReportType `json:"type"`
		Community string              `json:"community"`
		StartDate string              `json:"startDate"`
		EndDate   string              `json:"endDate"`
	}
	if !bindJSON(c, &input) {
		return
	}
	in := services.ReportInput{Type: input.Type}
	var ok bool
	if in.Community, ok = optionalID(c, "community", input.Community); !ok {
		return
	}
	if in.From, ok = optionalDate(c, "startDate", input.StartDate); !ok {
		return
	}
	if in.To, ok = optionalDate(c, "endDate", input.EndDate); !ok {
		return
	}

	report, err := ctl.svc.Analytics.GenerateReport(c.Request.Context(), principal(c), in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Report generated successfully", report)
}
