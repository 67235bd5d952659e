package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// InvitationsController handles location invitations. Inspect is public so
// the invite page can render before the visitor signs in.
type InvitationsController struct {
	invitations InvitationManager
}

func NewInvitationsController(invitations InvitationManager) *InvitationsController {
	return &InvitationsController{invitations: invitations}
}

type invitationRequest struct {
	Email string `json:"email"`
}

// List handles GET /api/locations/:id/invitations
func (ic *InvitationsController) List(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	invitations, err := ic.invitations.List(currentUserID(c), locationID)
	if err != nil {
		respondServiceError(c, err, "list invitations")
		return
	}
	respondList(c, invitations)
}

// Create handles POST /api/locations/:id/invitations
func (ic *InvitationsController) Create(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req invitationRequest
	if !bindJSON(c, &req) {
		return
	}
	invitation, err := ic.invitations.Create(currentUserID(c), locationID, req.Email)
	if err != nil {
		respondServiceError(c, err, "create invitation")
		return
	}
	respondCreated(c, invitation)
}

// Revoke handles DELETE /api/locations/:id/invitations/:invitationId
func (ic *InvitationsController) Revoke(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	invitationID, ok := parseIDParam(c, "invitationId")
	if !ok {
		return
	}
	if err := ic.invitations.Revoke(currentUserID(c), locationID, invitationID); err != nil {
		respondServiceError(c, err, "revoke invitation")
		return
	}
	c.Status(http.StatusNoContent)
}

// Inspect handles GET /api/invitations/:token
func (ic *InvitationsController) Inspect(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	view, err := ic.invitations.Inspect(token)
	if err != nil {
		respondServiceError(c, err, "inspect invitation")
		return
	}
	c.JSON(http.StatusOK, view)
}

// Accept handles POST /api/invitations/:token/accept
func (ic *InvitationsController) Accept(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	member, err := ic.invitations.Accept(currentUserID(c), token)
	if err != nil {
		respondServiceError(c, err, "accept invitation")
		return
	}
	respondCreated(c, member)
}
