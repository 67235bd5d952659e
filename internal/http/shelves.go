package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ShelvesController struct {
	shelves ShelfManager
}

func NewShelvesController(shelves ShelfManager) *ShelvesController {
	return &ShelvesController{shelves: shelves}
}

type shelfRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/locations/:id/shelves
func (sc *ShelvesController) List(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	shelves, err := sc.shelves.List(currentUserID(c), locationID)
	if err != nil {
		respondServiceError(c, err, "list shelves")
		return
	}
	respondList(c, shelves)
}

// Create handles POST /api/locations/:id/shelves
func (sc *ShelvesController) Create(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req shelfRequest
	if !bindJSON(c, &req) {
		return
	}
	shelf, err := sc.shelves.Create(currentUserID(c), locationID, req.Name)
	if err != nil {
		respondServiceError(c, err, "create shelf")
		return
	}
	respondCreated(c, shelf)
}

// Rename handles PATCH /api/shelves/:id
func (sc *ShelvesController) Rename(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req shelfRequest
	if !bindJSON(c, &req) {
		return
	}
	shelf, err := sc.shelves.Rename(currentUserID(c), id, req.Name)
	if err != nil {
		respondServiceError(c, err, "rename shelf")
		return
	}
	c.JSON(http.StatusOK, shelf)
}

// Delete handles DELETE /api/shelves/:id. Only empty shelves can be removed.
func (sc *ShelvesController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := sc.shelves.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "delete shelf")
		return
	}
	c.Status(http.StatusNoContent)
}
