package http

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/ocr"
)

const (
	lookupTimeout      = 15 * time.Second
	defaultSearchLimit = 10
	maxSearchLimit     = 40

	// multipartOverhead covers boundaries and part headers around the image.
	multipartOverhead = 16 << 10
)

// LookupController exposes ISBN, title and photo lookups. The scanner is
// optional; without a Vision key the OCR route answers 404.
type LookupController struct {
	lookup  MetadataLookup
	scanner ImageScanner
}

func NewLookupController(lookup MetadataLookup, scanner ImageScanner) *LookupController {
	return &LookupController{lookup: lookup, scanner: scanner}
}

type ocrRequest struct {
	Image string `json:"image"`
}

// ISBN handles GET /api/lookup/isbn/:isbn
func (lc *LookupController) ISBN(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	result, err := lc.lookup.LookupISBN(ctx, c.Param("isbn"))
	if err != nil {
		respondServiceError(c, err, "lookup isbn")
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search handles GET /api/lookup/search?q=&limit=
func (lc *LookupController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}
	limit, ok := parseQueryInt(c, "limit", defaultSearchLimit)
	if !ok {
		return
	}
	if limit == 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	results, err := lc.lookup.Search(ctx, query, limit)
	if err != nil {
		respondServiceError(c, err, "lookup search")
		return
	}
	respondList(c, results)
}

// OCR handles POST /api/lookup/ocr with either a multipart "image" field or a
// JSON body carrying the image as base64.
func (lc *LookupController) OCR(c *gin.Context) {
	if lc.scanner == nil {
		respondNotFound(c, "ocr")
		return
	}

	image, ok := lc.readImage(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), lookupTimeout)
	defer cancel()

	result, err := lc.scanner.Scan(ctx, image)
	if err != nil {
		respondServiceError(c, err, "ocr scan")
		return
	}
	c.JSON(http.StatusOK, result)
}

// readImage returns at most MaxBytes+1 bytes so the scanner can tell an
// oversized upload apart from one that is exactly at the limit. The request
// body itself is capped before anything is parsed.
func (lc *LookupController) readImage(c *gin.Context) ([]byte, bool) {
	limit := lc.scanner.MaxBytes()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if !lc.capBody(c, limit+multipartOverhead) {
			return nil, false
		}
		header, err := c.FormFile("image")
		if err != nil {
			if isBodyTooLarge(err) {
				respondImageTooLarge(c)
				return nil, false
			}
			respondBadRequest(c, "image file is required")
			return nil, false
		}
		f, err := header.Open()
		if err != nil {
			respondBadRequest(c, "unreadable image upload")
			return nil, false
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, limit+1))
		if err != nil {
			respondBadRequest(c, "unreadable image upload")
			return nil, false
		}
		return data, true
	}

	// base64 inflates by 4/3; leave room for the JSON envelope
	if !lc.capBody(c, limit*4/3+1024) {
		return nil, false
	}
	var req ocrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respondImageTooLarge(c)
			return nil, false
		}
		respondBadRequest(c, "invalid request body: "+err.Error())
		return nil, false
	}
	encoded := req.Image
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		respondBadRequest(c, "image must be base64 encoded")
		return nil, false
	}
	return data, true
}

// capBody rejects requests that announce a larger body than max and limits
// the rest, including chunked uploads, with http.MaxBytesReader.
func (lc *LookupController) capBody(c *gin.Context, max int64) bool {
	if c.Request.ContentLength > max {
		respondImageTooLarge(c)
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
	return true
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func respondImageTooLarge(c *gin.Context) {
	respondError(c, http.StatusRequestEntityTooLarge, "image_too_large", ocr.ErrImageTooLarge.Error())
}
