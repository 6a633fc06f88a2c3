package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivkhr/bookshelf/internal/audit"
	"github.com/ivkhr/bookshelf/internal/database/books"
	"github.com/ivkhr/bookshelf/internal/database/users"
	"github.com/ivkhr/bookshelf/internal/entities"
)

// BooksController handles book CRUD endpoints.
type BooksController struct {
	books    *books.Repository
	users    *users.Repository
	auditor  *audit.Service
	requests *audit.Auditor
}

func NewBooksController(bookRepo *books.Repository, userRepo *users.Repository, auditor *audit.Service, requests *audit.Auditor) *BooksController {
	return &BooksController{
		books:    bookRepo,
		users:    userRepo,
		auditor:  auditor,
		requests: requests,
	}
}

type bookRequest struct {
	Title          string `json:"title" binding:"required"`
	Author         string `json:"author"`
	Description    string `json:"description"`
	CoverURL       string `json:"cover_url"`
	PageCount      int    `json:"page_count"`
	SeriesID       *uint  `json:"series_id"`
	SeriesPosition *int   `json:"series_position"`
	ShelvesIDs     []uint `json:"shelves_ids"`
}

func (r bookRequest) params() books.BookParams {
	return books.BookParams{
		Title:          r.Title,
		Author:         r.Author,
		Description:    r.Description,
		CoverURL:       r.CoverURL,
		PageCount:      r.PageCount,
		SeriesID:       r.SeriesID,
		SeriesPosition: r.SeriesPosition,
		ShelfIDs:       r.ShelvesIDs,
	}
}

// AddBook creates a book and assigns it to the supplied shelves.
// POST /book/add
func (bc *BooksController) AddBook(c *gin.Context) {
	var req struct {
		bookRequest
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and user_id are required")
		return
	}

	if bc.requests != nil {
		if _, err := bc.requests.SaveJSON(req); err != nil {
			log.Printf("Failed to save book payload audit: %v", err)
		}
	}

	book, err := bc.books.Create(req.UserID, req.params())
	if err != nil {
		bc.respondBookError(c, err, "create book")
		return
	}

	if bc.auditor != nil {
		bc.auditor.LogMutation(book.UserID, entities.AuditEventCreate, "book", book.ID,
			fmt.Sprintf("book %q added to %d shelves", book.Title, len(req.ShelvesIDs)), c.ClientIP(), nil)
	}

	owner, err := bc.users.GetByID(book.UserID)
	if err != nil {
		respondInternalError(c, err, "load book owner")
		return
	}
	respondCreated(c, OwnedItem{User: owner, Item: book})
}

// GetAllBooks lists all books with their owners and shelves.
// GET /book/get
func (bc *BooksController) GetAllBooks(c *gin.Context) {
	all, err := bc.books.List()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	out := make([]OwnedItem, 0, len(all))
	for i := range all {
		out = append(out, OwnedItem{User: all[i].User, Item: all[i]})
	}
	c.JSON(http.StatusOK, out)
}

// UpdateBook overwrites the book's fields and replaces its shelf membership
// with the supplied shelves_ids.
// PUT /book/update/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title is required")
		return
	}

	book, err := bc.books.Update(id, req.params())
	if err != nil {
		bc.respondBookError(c, err, "update book")
		return
	}

	if bc.auditor != nil {
		bc.auditor.LogMutation(book.UserID, entities.AuditEventUpdate, "book", book.ID,
			fmt.Sprintf("book %q updated, now on %d shelves", book.Title, len(req.ShelvesIDs)), c.ClientIP(), nil)
	}

	owner, err := bc.users.GetByID(book.UserID)
	if err != nil {
		respondInternalError(c, err, "load book owner")
		return
	}
	c.JSON(http.StatusOK, OwnedItem{User: owner, Item: book})
}

// DeleteBook removes a book and its shelf memberships.
// DELETE /book/delete/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.books.Delete(id)
	if err != nil {
		bc.respondBookError(c, err, "delete book")
		return
	}

	if bc.auditor != nil {
		bc.auditor.LogMutation(book.UserID, entities.AuditEventDelete, "book", book.ID,
			fmt.Sprintf("book %q deleted", book.Title), c.ClientIP(), nil)
	}

	owner, err := bc.users.GetByID(book.UserID)
	if err != nil {
		respondInternalError(c, err, "load book owner")
		return
	}
	c.JSON(http.StatusOK, OwnedItem{User: owner, Item: book})
}

func (bc *BooksController) respondBookError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, books.ErrNotFound):
		respondNotFound(c, "book not found")
	case errors.Is(err, books.ErrUserNotFound):
		respondNotFound(c, "user not found")
	case errors.Is(err, books.ErrShelfNotFound):
		respondNotFound(c, "shelf not found")
	case errors.Is(err, books.ErrSeriesNotFound):
		respondNotFound(c, "series not found")
	default:
		respondInternalError(c, err, context)
	}
}
