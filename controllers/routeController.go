package controllers

import (
	"net/http"
	"time"

	"wastewise-be/models"
	"wastewise-be/services"
	"wastewise-be/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouteController struct {
	base
}

func NewRouteController(svc *services.Services, logger *zap.Logger) *RouteController {
	useJSONFieldNames()
	return &RouteController{base{svc: svc, logger: logger}}
}

type routeRequest struct {
	Name        *string               `json:"name" binding:"omitempty,max=100"`
	Description *string               `json:"description" binding:"omitempty,max=500"`
	Communities []string              `json:"communities"`
	Driver      *string               `json:"driver"`
	Vehicle     *models.Vehicle       `json:"vehicle"`
	Schedule    *models.RouteSchedule `json:"schedule"`
	WasteTypes  []models.WasteType    `json:"wasteTypes"`
	Waypoints   []models.Waypoint     `json:"waypoints"`
	Status      *models.RouteStatus   `json:"status"`
}

func (r routeRequest) input(c *gin.Context) (services.RouteInput, bool) {
	in := services.RouteInput{
		Name:        r.Name,
		Description: r.Description,
		Vehicle:     r.Vehicle,
		Schedule:    r.Schedule,
		WasteTypes:  r.WasteTypes,
		Waypoints:   r.Waypoints,
		Status:      r.Status,
	}
	var ok bool
	if in.Communities, ok = optionalIDs(c, "communities", r.Communities); !ok {
		return in, false
	}
	if r.Driver != nil {
		if in.Driver, ok = optionalID(c, "driver", *r.Driver); !ok {
			return in, false
		}
	}
	return in, true
}

func (ctl *RouteController) GetRoutes(c *gin.Context) {
	var filter store.RouteFilter
	var ok bool
	if filter.Community, ok = optionalID(c, "community", c.Query("community")); !ok {
		return
	}
	if filter.Driver, ok = optionalID(c, "driver", c.Query("driver")); !ok {
		return
	}
	filter.Status = models.RouteStatus(c.Query("status"))

	res, err := ctl.svc.Routes.List(c.Request.Context(), principal(c), filter, page(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respondList(c, res)
}

// GetAvailableRoute finds the route that would serve a pickup on the given
// date. The date defaults to today.
func (ctl *RouteController) GetAvailableRoute(c *gin.Context) {
	date, ok := optionalDate(c, "date", c.Query("date"))
	if !ok {
		return
	}
	if date == nil {
		date = ptr(time.Now())
	}
	community, ok := optionalID(c, "community", c.Query("community"))
	if !ok {
		return
	}

	route, err := ctl.svc.Routes.Available(c.Request.Context(), principal(c), *date, models.WasteType(c.Query("wasteType")), community)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", route)
}

func (ctl *RouteController) GetRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	route, err := ctl.svc.Routes.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", route)
}

func (ctl *RouteController) CreateRoute(c *gin.Context) {
	var req routeRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}

	route, err := ctl.svc.Routes.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Route created successfully", route)
}

func (ctl *RouteController) UpdateRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req routeRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}

	route, err := ctl.svc.Routes.Update(c.Request.Context(), principal(c), id, in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Route updated successfully", route)
}

func (ctl *RouteController) DeleteRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Routes.Delete(c.Request.Context(), principal(c), id); err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Route deleted successfully", nil)
}
