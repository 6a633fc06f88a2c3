package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivkhr/bookshelf/internal/audit"
	"github.com/ivkhr/bookshelf/internal/database/series"
	"github.com/ivkhr/bookshelf/internal/database/users"
	"github.com/ivkhr/bookshelf/internal/entities"
)

// SeriesController handles series CRUD endpoints.
type SeriesController struct {
	series  *series.Repository
	users   *users.Repository
	auditor *audit.Service
}

func NewSeriesController(seriesRepo *series.Repository, userRepo *users.Repository, auditor *audit.Service) *SeriesController {
	return &SeriesController{
		series:  seriesRepo,
		users:   userRepo,
		auditor: auditor,
	}
}

// AddSeries creates a series for the user.
// POST /series/add
func (sc *SeriesController) AddSeries(c *gin.Context) {
	var req struct {
		Name   string `json:"name" binding:"required"`
		UserID uint   `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name and user_id are required")
		return
	}

	s, err := sc.series.Create(req.UserID, req.Name)
	if err != nil {
		sc.respondSeriesError(c, err, "create series")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogMutation(s.UserID, entities.AuditEventCreate, "series", s.ID,
			fmt.Sprintf("series %q created", s.Name), c.ClientIP(), nil)
	}

	owner, err := sc.users.GetByID(s.UserID)
	if err != nil {
		respondInternalError(c, err, "load series owner")
		return
	}
	respondCreated(c, OwnedItem{User: owner, Item: s})
}

// GetAllSeries lists all series with their owners.
// GET /series/get
func (sc *SeriesController) GetAllSeries(c *gin.Context) {
	all, err := sc.series.List()
	if err != nil {
		respondInternalError(c, err, "list series")
		return
	}

	out := make([]OwnedItem, 0, len(all))
	for i := range all {
		out = append(out, OwnedItem{User: all[i].User, Item: all[i]})
	}
	c.JSON(http.StatusOK, out)
}

// UpdateSeries renames a series and/or applies a batch of caller-supplied
// book positions. Position values are written as given.
// PUT /series/update/:id
func (sc *SeriesController) UpdateSeries(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name          *string               `json:"name"`
		BookPositions []series.BookPosition `json:"book_positions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	s, err := sc.series.Update(id, req.Name, req.BookPositions)
	if err != nil {
		sc.respondSeriesError(c, err, "update series")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogMutation(s.UserID, entities.AuditEventUpdate, "series", s.ID,
			fmt.Sprintf("series %q updated (%d book positions)", s.Name, len(req.BookPositions)), c.ClientIP(), nil)
	}

	owner, err := sc.users.GetByID(s.UserID)
	if err != nil {
		respondInternalError(c, err, "load series owner")
		return
	}
	c.JSON(http.StatusOK, OwnedItem{User: owner, Item: s})
}

// DeleteSeries removes a series and cascade-deletes the books it contains.
// DELETE /series/delete/:id
func (sc *SeriesController) DeleteSeries(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	s, err := sc.series.Delete(id)
	if err != nil {
		sc.respondSeriesError(c, err, "delete series")
		return
	}

	if sc.auditor != nil {
		sc.auditor.LogMutation(s.UserID, entities.AuditEventDelete, "series", s.ID,
			fmt.Sprintf("series %q deleted with its books", s.Name), c.ClientIP(), nil)
	}

	owner, err := sc.users.GetByID(s.UserID)
	if err != nil {
		respondInternalError(c, err, "load series owner")
		return
	}
	c.JSON(http.StatusOK, OwnedItem{User: owner, Item: s})
}

func (sc *SeriesController) respondSeriesError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, series.ErrNotFound):
		respondNotFound(c, "series not found")
	case errors.Is(err, series.ErrBookNotFound):
		respondNotFound(c, "book not found")
	case errors.Is(err, series.ErrUserNotFound):
		respondNotFound(c, "user not found")
	case errors.Is(err, series.ErrDuplicateName):
		respondConflict(c, "a series with this name already exists")
	default:
		respondInternalError(c, err, context)
	}
}
