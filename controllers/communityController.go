package controllers

import (
	"net/http"

	"wastewise-be/models"
	"wastewise-be/services"
	"wastewise-be/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CommunityController struct {
	base
}

func NewCommunityController(svc *services.Services, logger *zap.Logger) *CommunityController {
	useJSONFieldNames()
	return &CommunityController{base{svc: svc, logger: logger}}
}

type communityRequest struct {
	Name        *string                                   `json:"name" binding:"omitempty,max=100"`
	Description *string                                   `json:"description" binding:"omitempty,max=500"`
	Address     *models.Address                           `json:"address"`
	Admin       *string                                   `json:"admin"`
	Schedule    map[models.WasteType]models.CollectionDay `json:"schedule"`
	Status      *models.CommunityStatus                   `json:"status"`
}

func (r communityRequest) input(c *gin.Context) (services.CommunityInput, bool) {
	in := services.CommunityInput{
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		Schedule:    r.Schedule,
		Status:      r.Status,
	}
	if r.Admin != nil {
		admin, ok := optionalID(c, "admin", *r.Admin)
		if !ok {
			return in, false
		}
		in.Admin = admin
	}
	return in, true
}

// GetCommunities is public so the registration form can offer existing communities.
func (ctl *CommunityController) GetCommunities(c *gin.Context) {
	filter := store.CommunityFilter{
		Status: models.CommunityStatus(c.Query("status")),
		Search: c.Query("search"),
	}
	res, err := ctl.svc.Communities.List(c.Request.Context(), filter, page(c))
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respondList(c, res)
}

func (ctl *CommunityController) GetCommunity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	community, err := ctl.svc.Communities.Get(c.Request.Context(), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", community)
}

func (ctl *CommunityController) CreateCommunity(c *gin.Context) {
	var req communityRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}

	community, err := ctl.svc.Communities.Create(c.Request.Context(), principal(c), in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Community created successfully", community)
}

func (ctl *CommunityController) UpdateCommunity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req communityRequest
	if !bindJSON(c, &req) {
		return
	}
	in, ok := req.input(c)
	if !ok {
		return
	}

	community, err := ctl.svc.Communities.Update(c.Request.Context(), principal(c), id, in)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Community updated successfully", community)
}

// DeleteCommunity removes the community record only. Users, pickups and
// issues that reference it are left in place.
func (ctl *CommunityController) DeleteCommunity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := ctl.svc.Communities.Delete(c.Request.Context(), principal(c), id); err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Community deleted successfully", nil)
}

// GetCommunityStats recomputes the community's statistics before returning them.
func (ctl *CommunityController) GetCommunityStats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	community, err := ctl.svc.Communities.Stats(c.Request.Context(), principal(c), id)
	if err != nil {
		ctl.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", community.Stats)
}
