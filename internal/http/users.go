package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivkhr/bookshelf/internal/audit"
	"github.com/ivkhr/bookshelf/internal/auth"
	"github.com/ivkhr/bookshelf/internal/database/users"
	"github.com/ivkhr/bookshelf/internal/entities"
)

// UsersController handles registration, session and user preference endpoints.
type UsersController struct {
	auth    *auth.Service
	users   *users.Repository
	auditor *audit.Service
}

func NewUsersController(authService *auth.Service, repo *users.Repository, auditor *audit.Service) *UsersController {
	return &UsersController{
		auth:    authService,
		users:   repo,
		auditor: auditor,
	}
}

// AddUser registers a new user.
// POST /user/add
func (uc *UsersController) AddUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	user, err := uc.auth.Register(req.Username, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondConflict(c, "username is already taken")
			return
		}
		respondInternalError(c, err, "register user")
		return
	}

	if uc.auditor != nil {
		uc.auditor.LogAuth(user.ID, "user_register", c.ClientIP(), nil)
	}

	respondCreated(c, user)
}

// GetAllUsers lists all users (shallow).
// GET /user/get
func (uc *UsersController) GetAllUsers(c *gin.Context) {
	all, err := uc.users.List()
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, all)
}

// GetUserByToken resolves a session token, rotating it. The presented client
// address must match the one the token was bound to at issuance.
// GET /user/get/:token
func (uc *UsersController) GetUserByToken(c *gin.Context) {
	user, rotated, err := uc.auth.ResolveSession(c.Param("token"), c.ClientIP())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			respondUnauthorized(c, "invalid session")
			return
		}
		respondInternalError(c, err, "resolve session")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": rotated})
}

// LoginUser authenticates credentials and issues a token bound to the caller IP.
// POST /user/login
func (uc *UsersController) LoginUser(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	user, token, err := uc.auth.Login(req.Username, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			if uc.auditor != nil {
				uc.auditor.LogAuth(0, "user_login", c.ClientIP(), err)
			}
			respondUnauthorized(c, "invalid username or password")
			return
		}
		respondInternalError(c, err, "login user")
		return
	}

	if uc.auditor != nil {
		uc.auditor.LogAuth(user.ID, "user_login", c.ClientIP(), nil)
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

// UpdateShelvesDisplay sets the user's shelves display preference.
// PUT /user/update/shelves_display/:id
func (uc *UsersController) UpdateShelvesDisplay(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		ShelvesDisplay string `json:"shelves_display" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "shelves_display is required")
		return
	}

	user, err := uc.users.UpdateShelvesDisplay(id, entities.ShelvesDisplay(req.ShelvesDisplay))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respondNotFound(c, "user not found")
			return
		}
		respondInternalError(c, err, "update shelves display")
		return
	}

	c.JSON(http.StatusOK, user)
}

// LogoutUser clears the session token and its address binding.
// DELETE /user/logout/:token
func (uc *UsersController) LogoutUser(c *gin.Context) {
	if err := uc.auth.Logout(c.Param("token")); err != nil {
		if errors.Is(err, auth.ErrInvalidSession) {
			respondUnauthorized(c, "invalid session")
			return
		}
		respondInternalError(c, err, "logout user")
		return
	}

	respondSuccess(c, "logged out")
}

// DeleteUser removes a user and everything the user owns.
// DELETE /user/delete/:id
func (uc *UsersController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := uc.users.Delete(id); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			respondNotFound(c, "user not found")
			return
		}
		respondInternalError(c, err, "delete user")
		return
	}

	if uc.auditor != nil {
		uc.auditor.LogMutation(id, entities.AuditEventDelete, "user", id, "user deleted with owned shelves, series and books", c.ClientIP(), nil)
	}

	respondSuccess(c, "user deleted")
}
