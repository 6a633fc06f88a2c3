package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ivkhr/bookshelf/internal/audit"
	"github.com/ivkhr/bookshelf/internal/auth"
	"github.com/ivkhr/bookshelf/internal/database"
	"github.com/ivkhr/bookshelf/internal/database/books"
	"github.com/ivkhr/bookshelf/internal/database/series"
	"github.com/ivkhr/bookshelf/internal/database/shelves"
	"github.com/ivkhr/bookshelf/internal/database/users"
)

// RouterConfig carries all controller dependencies, improving testability
// and reducing parameter count.
type RouterConfig struct {
	Database    *database.Database
	AuthService *auth.Service

	Users   *users.Repository
	Shelves *shelves.Repository
	Series  *series.Repository
	Books   *books.Repository

	AuditService   *audit.Service
	RequestAuditor *audit.Auditor

	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
// POST and PUT routes only accept application/json bodies.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	usersController := NewUsersController(cfg.AuthService, cfg.Users, cfg.AuditService)
	shelvesController := NewShelvesController(cfg.Shelves, cfg.Users, cfg.AuditService)
	seriesController := NewSeriesController(cfg.Series, cfg.Users, cfg.AuditService)
	booksController := NewBooksController(cfg.Books, cfg.Users, cfg.AuditService, cfg.RequestAuditor)

	router.GET("/health", health.Status)

	jsonOnly := RequireJSON()

	router.POST("/user/add", jsonOnly, usersController.AddUser)
	router.GET("/user/get", usersController.GetAllUsers)
	router.GET("/user/get/:token", usersController.GetUserByToken)
	router.POST("/user/login", jsonOnly, usersController.LoginUser)
	router.PUT("/user/update/shelves_display/:id", jsonOnly, usersController.UpdateShelvesDisplay)
	router.DELETE("/user/logout/:token", usersController.LogoutUser)
	router.DELETE("/user/delete/:id", usersController.DeleteUser)

	router.POST("/shelf/add", jsonOnly, shelvesController.AddShelf)
	router.GET("/shelf/get", shelvesController.GetAllShelves)
	router.PUT("/shelf/update/:id", jsonOnly, shelvesController.UpdateShelf)
	router.DELETE("/shelf/delete/:id", shelvesController.DeleteShelf)

	router.POST("/series/add", jsonOnly, seriesController.AddSeries)
	router.GET("/series/get", seriesController.GetAllSeries)
	router.PUT("/series/update/:id", jsonOnly, seriesController.UpdateSeries)
	router.DELETE("/series/delete/:id", seriesController.DeleteSeries)

	router.POST("/book/add", jsonOnly, booksController.AddBook)
	router.GET("/book/get", booksController.GetAllBooks)
	router.PUT("/book/update/:id", jsonOnly, booksController.UpdateBook)
	router.DELETE("/book/delete/:id", booksController.DeleteBook)

	return router
}
