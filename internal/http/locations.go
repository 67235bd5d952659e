package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/services"
)

// LocationsController handles locations and their memberships.
type LocationsController struct {
	locations LocationManager
}

func NewLocationsController(locations LocationManager) *LocationsController {
	return &LocationsController{locations: locations}
}

type locationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type transferRequest struct {
	UserID uint `json:"user_id"`
}

// List handles GET /api/locations
func (lc *LocationsController) List(c *gin.Context) {
	locations, err := lc.locations.List(currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "list locations")
		return
	}
	respondList(c, locations)
}

// Create handles POST /api/locations
func (lc *LocationsController) Create(c *gin.Context) {
	var req locationRequest
	if !bindJSON(c, &req) {
		return
	}
	location, err := lc.locations.Create(currentUserID(c), req.Name, req.Description)
	if err != nil {
		respondServiceError(c, err, "create location")
		return
	}
	respondCreated(c, location)
}

// Get handles GET /api/locations/:id
func (lc *LocationsController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	location, err := lc.locations.Get(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "get location")
		return
	}
	c.JSON(http.StatusOK, location)
}

// Update handles PATCH /api/locations/:id
func (lc *LocationsController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.LocationUpdate
	if !bindJSON(c, &req) {
		return
	}
	location, err := lc.locations.Update(currentUserID(c), id, req)
	if err != nil {
		respondServiceError(c, err, "update location")
		return
	}
	c.JSON(http.StatusOK, location)
}

// Delete handles DELETE /api/locations/:id
func (lc *LocationsController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := lc.locations.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "delete location")
		return
	}
	c.Status(http.StatusNoContent)
}

// Members handles GET /api/locations/:id/members
func (lc *LocationsController) Members(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	members, err := lc.locations.Members(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "list members")
		return
	}
	respondList(c, members)
}

// RemoveMember handles DELETE /api/locations/:id/members/:userId
func (lc *LocationsController) RemoveMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	if err := lc.locations.RemoveMember(currentUserID(c), id, memberID); err != nil {
		respondServiceError(c, err, "remove member")
		return
	}
	c.Status(http.StatusNoContent)
}

// Leave handles POST /api/locations/:id/leave
func (lc *LocationsController) Leave(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := lc.locations.Leave(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "leave location")
		return
	}
	respondSuccess(c, "left location")
}

// Transfer handles POST /api/locations/:id/transfer
func (lc *LocationsController) Transfer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req transferRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.UserID == 0 {
		respondBadRequest(c, "user_id is required")
		return
	}
	if err := lc.locations.Transfer(currentUserID(c), id, req.UserID); err != nil {
		respondServiceError(c, err, "transfer ownership")
		return
	}
	respondSuccess(c, "ownership transferred")
}
