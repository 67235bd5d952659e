package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RatingsController struct {
	ratings RatingManager
}

func NewRatingsController(ratings RatingManager) *RatingsController {
	return &RatingsController{ratings: ratings}
}

type ratingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// Rate handles PUT /api/books/:id/rating
func (rc *RatingsController) Rate(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ratingRequest
	if !bindJSON(c, &req) {
		return
	}
	rating, err := rc.ratings.Rate(currentUserID(c), bookID, req.Rating, req.Review)
	if err != nil {
		respondServiceError(c, err, "rate book")
		return
	}
	c.JSON(http.StatusOK, rating)
}

// Delete handles DELETE /api/books/:id/rating
func (rc *RatingsController) Delete(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := rc.ratings.Delete(currentUserID(c), bookID); err != nil {
		respondServiceError(c, err, "delete rating")
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /api/books/:id/ratings
func (rc *RatingsController) List(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	summary, err := rc.ratings.List(currentUserID(c), bookID)
	if err != nil {
		respondServiceError(c, err, "list ratings")
		return
	}
	c.JSON(http.StatusOK, summary)
}
