package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/database/audit"
	"github.com/mrlokans/shelfshare/internal/entities"
)

const (
	defaultAuditLimit = 25
	maxAuditLimit     = 100
)

type AuditController struct {
	events AuditReader
}

func NewAuditController(events AuditReader) *AuditController {
	return &AuditController{events: events}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/admin/audit?type=&user_id=&limit=&offset=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, ok := parseQueryInt(c, "limit", defaultAuditLimit)
	if !ok {
		return
	}
	offset, ok := parseQueryInt(c, "offset", 0)
	if !ok {
		return
	}
	userID, ok := parseQueryInt(c, "user_id", 0)
	if !ok {
		return
	}
	if limit < 1 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}

	filter := audit.EventFilter{
		UserID:    uint(userID),
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     limit,
		Offset:    offset,
	}
	events, total, err := ac.events.GetEvents(filter)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}
	if events == nil {
		events = []entities.AuditEvent{}
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
