package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/covers"
)

// CoversController handles book cover requests.
type CoversController struct {
	cache CoverSource
	books BookGetter
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache CoverSource, books BookGetter) *CoversController {
	return &CoversController{
		cache: cache,
		books: books,
	}
}

// GetCover serves a cached book cover image.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.books.Get(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "get cover")
		return
	}
	if book.CoverURL == "" {
		respondNotFound(c, "cover")
		return
	}

	cachePath, err := cc.cache.Get(c.Request.Context(), book.ID, book.CoverURL)
	switch {
	case err == nil:
		c.Header("Cache-Control", "private, max-age=86400")
		c.File(cachePath)
	case errors.Is(err, covers.ErrNotAnImage), errors.Is(err, covers.ErrCoverTooLarge):
		respondError(c, http.StatusBadGateway, "bad_cover", err.Error())
	default:
		// Fallback: let the browser fetch the original
		logrus.WithError(err).WithField("book_id", book.ID).Warn("cover cache miss")
		c.Redirect(http.StatusTemporaryRedirect, book.CoverURL)
	}
}
