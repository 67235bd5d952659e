package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/services"
)

// AdminController covers signup review, user roles and instance settings.
// Every route sits behind RequireRole(admin).
type AdminController struct {
	admin AdminManager
}

func NewAdminController(admin AdminManager) *AdminController {
	return &AdminController{admin: admin}
}

type decisionRequest struct {
	Note string `json:"note"`
}

type roleRequest struct {
	Role entities.UserRole `json:"role"`
}

// Signups handles GET /api/admin/signups?status=
func (ac *AdminController) Signups(c *gin.Context) {
	requests, err := ac.admin.Signups(entities.RequestStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err, "list signups")
		return
	}
	respondList(c, requests)
}

// ApproveSignup handles POST /api/admin/signups/:id/approve
func (ac *AdminController) ApproveSignup(c *gin.Context) {
	ac.decide(c, ac.admin.ApproveSignup)
}

// DenySignup handles POST /api/admin/signups/:id/deny
func (ac *AdminController) DenySignup(c *gin.Context) {
	ac.decide(c, ac.admin.DenySignup)
}

func (ac *AdminController) decide(c *gin.Context, fn func(adminID, requestID uint, note string) (*entities.SignupApprovalRequest, error)) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req decisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	request, err := fn(currentUserID(c), id, req.Note)
	if err != nil {
		respondServiceError(c, err, "decide signup")
		return
	}
	c.JSON(http.StatusOK, request)
}

// Users handles GET /api/admin/users?status=
func (ac *AdminController) Users(c *gin.Context) {
	users, err := ac.admin.Users(entities.UserStatus(c.Query("status")))
	if err != nil {
		respondServiceError(c, err, "list users")
		return
	}
	respondList(c, users)
}

// SetRole handles PATCH /api/admin/users/:id/role
func (ac *AdminController) SetRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := ac.admin.SetRole(currentUserID(c), id, req.Role)
	if err != nil {
		respondServiceError(c, err, "set role")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Settings handles GET /api/admin/settings
func (ac *AdminController) Settings(c *gin.Context) {
	settings, err := ac.admin.Settings()
	if err != nil {
		respondServiceError(c, err, "get settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/admin/settings
func (ac *AdminController) UpdateSettings(c *gin.Context) {
	var req services.AdminSettings
	if !bindJSON(c, &req) {
		return
	}
	settings, err := ac.admin.UpdateSettings(currentUserID(c), req)
	if err != nil {
		respondServiceError(c, err, "update settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}
