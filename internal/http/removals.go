package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/entities"
)

// RemovalsController handles requests from members to take a book off the shelves.
type RemovalsController struct {
	removals RemovalManager
}

func NewRemovalsController(removals RemovalManager) *RemovalsController {
	return &RemovalsController{removals: removals}
}

type removalRequest struct {
	Reason string `json:"reason"`
}

// Request handles POST /api/books/:id/removal-requests
func (rc *RemovalsController) Request(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req removalRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	request, err := rc.removals.Request(currentUserID(c), bookID, req.Reason)
	if err != nil {
		respondServiceError(c, err, "request removal")
		return
	}
	respondCreated(c, request)
}

// ListForBook handles GET /api/books/:id/removal-requests
func (rc *RemovalsController) ListForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	requests, err := rc.removals.ListForBook(currentUserID(c), bookID)
	if err != nil {
		respondServiceError(c, err, "list book removal requests")
		return
	}
	respondList(c, requests)
}

// ListForLocation handles GET /api/locations/:id/removal-requests?status=
func (rc *RemovalsController) ListForLocation(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	status := entities.RequestStatus(c.DefaultQuery("status", string(entities.RequestStatusPending)))
	if !status.Valid() {
		respondBadRequest(c, "invalid status")
		return
	}
	requests, err := rc.removals.ListForLocation(currentUserID(c), locationID, status)
	if err != nil {
		respondServiceError(c, err, "list location removal requests")
		return
	}
	respondList(c, requests)
}

// Approve handles POST /api/removal-requests/:id/approve
func (rc *RemovalsController) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.removals.Approve(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "approve removal")
		return
	}
	respondSuccess(c, "book removed")
}

// Deny handles POST /api/removal-requests/:id/deny
func (rc *RemovalsController) Deny(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.removals.Deny(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "deny removal")
		return
	}
	respondSuccess(c, "removal request denied")
}

// Cancel handles DELETE /api/removal-requests/:id
func (rc *RemovalsController) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.removals.Cancel(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "cancel removal")
		return
	}
	c.Status(http.StatusNoContent)
}
