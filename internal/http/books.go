package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/services"
)

const enrichTimeout = 30 * time.Second

// BooksController handles books, circulation and metadata refresh.
type BooksController struct {
	books BookManager
}

func NewBooksController(books BookManager) *BooksController {
	return &BooksController{books: books}
}

type checkoutRequest struct {
	DueAt *time.Time `json:"due_at"`
}

type moveRequest struct {
	ShelfID uint `json:"shelf_id"`
}

// EnrichBookResponse is the response for an enrichment operation.
type EnrichBookResponse struct {
	Success       bool     `json:"success"`
	Book          any      `json:"book,omitempty"`
	FieldsUpdated []string `json:"fields_updated"`
	Source        string   `json:"source,omitempty"`
	SearchMethod  string   `json:"search_method,omitempty"`
}

// Search handles GET /api/books?q=
func (bc *BooksController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}
	books, err := bc.books.Search(currentUserID(c), query)
	if err != nil {
		respondServiceError(c, err, "search books")
		return
	}
	respondList(c, books)
}

// Get handles GET /api/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.books.Get(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// ListByShelf handles GET /api/shelves/:id/books
func (bc *BooksController) ListByShelf(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	books, err := bc.books.ListByShelf(currentUserID(c), shelfID)
	if err != nil {
		respondServiceError(c, err, "list shelf books")
		return
	}
	respondList(c, books)
}

// ListByLocation handles GET /api/locations/:id/books
func (bc *BooksController) ListByLocation(c *gin.Context) {
	locationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	books, err := bc.books.ListByLocation(currentUserID(c), locationID)
	if err != nil {
		respondServiceError(c, err, "list location books")
		return
	}
	respondList(c, books)
}

// Add handles POST /api/shelves/:id/books
func (bc *BooksController) Add(c *gin.Context) {
	shelfID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.BookInput
	if !bindJSON(c, &req) {
		return
	}
	book, err := bc.books.Add(c.Request.Context(), currentUserID(c), shelfID, req)
	if err != nil {
		respondServiceError(c, err, "add book")
		return
	}
	respondCreated(c, book)
}

// Update handles PATCH /api/books/:id
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.BookUpdate
	if !bindJSON(c, &req) {
		return
	}
	book, err := bc.books.Update(currentUserID(c), id, req)
	if err != nil {
		respondServiceError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Move handles POST /api/books/:id/move
func (bc *BooksController) Move(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req moveRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ShelfID == 0 {
		respondBadRequest(c, "shelf_id is required")
		return
	}
	book, err := bc.books.Move(currentUserID(c), id, req.ShelfID)
	if err != nil {
		respondServiceError(c, err, "move book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /api/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.books.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, "delete book")
		return
	}
	c.Status(http.StatusNoContent)
}

// Checkout handles POST /api/books/:id/checkout
func (bc *BooksController) Checkout(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req checkoutRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	book, err := bc.books.Checkout(currentUserID(c), id, req.DueAt)
	if err != nil {
		respondServiceError(c, err, "checkout book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Checkin handles POST /api/books/:id/checkin
func (bc *BooksController) Checkin(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.books.Checkin(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "checkin book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// History handles GET /api/books/:id/history
func (bc *BooksController) History(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	loans, err := bc.books.History(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "book history")
		return
	}
	respondList(c, loans)
}

// MyCheckouts handles GET /api/me/checkouts
func (bc *BooksController) MyCheckouts(c *gin.Context) {
	books, err := bc.books.MyCheckouts(currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "my checkouts")
		return
	}
	respondList(c, books)
}

// Enrich handles POST /api/books/:id/enrich
// It fetches metadata synchronously and fills the empty fields of the book.
func (bc *BooksController) Enrich(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), enrichTimeout)
	defer cancel()

	result, err := bc.books.Enrich(ctx, currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "enrich book")
		return
	}

	fields := result.FieldsUpdated
	if fields == nil {
		fields = []string{}
	}
	c.JSON(http.StatusOK, EnrichBookResponse{
		Success:       true,
		Book:          result.Book,
		FieldsUpdated: fields,
		Source:        result.Source,
		SearchMethod:  result.SearchMethod,
	})
}
