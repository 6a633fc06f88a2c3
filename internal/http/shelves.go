package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivkhr/bookshelf/internal/audit"
	"github.com/ivkhr/bookshelf/internal/database/shelves"
	"github.com/ivkhr/bookshelf/internal/database/users"
	"github.com/ivkhr/bookshelf/internal/entities"
	"github.com/ivkhr/bookshelf/internal/ordering"
)

// ShelvesController handles shelf CRUD endpoints.
type ShelvesController struct {
	shelves *shelves.Repository
	users   *users.Repository
	auditor *audit.Service
}

func NewShelvesController(shelfRepo *shelves.Repository, userRepo *users.Repository, auditor *audit.Service) *ShelvesController {
	return &ShelvesController{
		shelves: shelfRepo,
		users:   userRepo,
		auditor: auditor,
	}
}

// AddShelf creates a shelf at the caller-supplied position.
// POST /shelf/add
func (sc *ShelvesController) AddShelf(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Position int    `json:"position"`
		UserID   uint   `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name and user_id are required")
		return
	}

	shelf, err := sc.shelves.Create(req.UserID, req.Name, req.Position)
	if err != nil {
		sc.respondShelfError(c, err, "create shelf")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogMutation(shelf.UserID, entities.AuditEventCreate, "shelf", shelf.ID,
			fmt.Sprintf("shelf %q created at position %d", shelf.Name, shelf.Position), c.ClientIP(), nil)
	}

	owner, err := sc.users.GetByID(shelf.UserID)
	if err != nil {
		respondInternalError(c, err, "load shelf owner")
		return
	}
	respondCreated(c, OwnedItem{User: owner, Item: shelf})
}

// GetAllShelves lists all shelves with their owners.
// GET /shelf/get
func (sc *ShelvesController) GetAllShelves(c *gin.Context) {
	all, err := sc.shelves.List()
	if err != nil {
		respondInternalError(c, err, "list shelves")
		return
	}

	out := make([]OwnedItem, 0, len(all))
	for i := range all {
		owner := all[i].User
		out = append(out, OwnedItem{User: owner, Item: all[i]})
	}
	c.JSON(http.StatusOK, out)
}

// UpdateShelf renames and/or moves a shelf. An absent position means no
// reorder.
// PUT /shelf/update/:id
func (sc *ShelvesController) UpdateShelf(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Position *int    `json:"position"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	shelf, err := sc.shelves.Update(id, req.Name, req.Position)
	if err != nil {
		sc.respondShelfError(c, err, "update shelf")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogMutation(shelf.UserID, entities.AuditEventUpdate, "shelf", shelf.ID,
			fmt.Sprintf("shelf %q updated", shelf.Name), c.ClientIP(), nil)
	}

	owner, err := sc.users.GetByID(shelf.UserID)
	if err != nil {
		respondInternalError(c, err, "load shelf owner")
		return
	}
	c.JSON(http.StatusOK, OwnedItem{User: owner, Item: shelf})
}

// DeleteShelf removes a shelf, compacting sibling positions. Member books
// survive; only their membership in this shelf is dropped.
// DELETE /shelf/delete/:id
func (sc *ShelvesController) DeleteShelf(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	shelf, err := sc.shelves.Delete(id)
	if err != nil {
		sc.respondShelfError(c, err, "delete shelf")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogMutation(shelf.UserID, entities.AuditEventDelete, "shelf", shelf.ID,
			fmt.Sprintf("shelf %q deleted", shelf.Name), c.ClientIP(), nil)
	}

	owner, err := sc.users.GetByID(shelf.UserID)
	if err != nil {
		respondInternalError(c, err, "load shelf owner")
		return
	}
	c.JSON(http.StatusOK, OwnedItem{User: owner, Item: shelf})
}

func (sc *ShelvesController) respondShelfError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, shelves.ErrNotFound):
		respondNotFound(c, "shelf not found")
	case errors.Is(err, shelves.ErrUserNotFound):
		respondNotFound(c, "user not found")
	case errors.Is(err, shelves.ErrDuplicateName):
		respondConflict(c, "a shelf with this name already exists")
	case errors.Is(err, ordering.ErrPositionOutOfRange):
		respondBadRequest(c, "position out of range")
	default:
		respondInternalError(c, err, context)
	}
}
