package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ivkhr/bookshelf/internal/auth"
	"github.com/ivkhr/bookshelf/internal/config"
	"github.com/ivkhr/bookshelf/internal/database"
	"github.com/ivkhr/bookshelf/internal/database/books"
	"github.com/ivkhr/bookshelf/internal/database/series"
	"github.com/ivkhr/bookshelf/internal/database/shelves"
	"github.com/ivkhr/bookshelf/internal/database/users"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *database.Database, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	authService := auth.NewService(db.DB, config.Auth{
		BcryptCost:  bcrypt.MinCost,
		TokenLength: 32,
	})

	router := NewRouter(RouterConfig{
		Database:    db,
		AuthService: authService,
		Users:       users.NewRepository(db.DB),
		Shelves:     shelves.NewRepository(db.DB),
		Series:      series.NewRepository(db.DB),
		Books:       books.NewRepository(db.DB),
		Version:     "test",
	})

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return router, db, cleanup
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// jsonID renders a numeric id decoded from JSON as a path segment.
func jsonID(v interface{}) string {
	return strconv.Itoa(int(v.(float64)))
}

func registerTestUser(t *testing.T, router *gin.Engine, username string) map[string]interface{} {
	t.Helper()
	w := doJSON(t, router, "POST", "/user/add", `{"username":"`+username+`","password":"sekret"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var user map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	return user
}

func TestUsersController_AddUser(t *testing.T) {
	t.Run("creates user", func(t *testing.T) {
		router, db, cleanup := setupTestRouter(t)
		defer cleanup()

		w := doJSON(t, router, "POST", "/user/add", `{"username":"alice","password":"sekret"}`)
		assert.Equal(t, http.StatusCreated, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "alice", response["username"])
		// Credentials and tokens never leave the server.
		assert.NotContains(t, response, "token")
		assert.NotContains(t, response, "password_hash")

		// Registration seeds the default shelf.
		shelfRepo := shelves.NewRepository(db.DB)
		listed, err := shelfRepo.List()
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, auth.DefaultShelfName, listed[0].Name)
	})

	t.Run("rejects duplicate username", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		registerTestUser(t, router, "alice")

		w := doJSON(t, router, "POST", "/user/add", `{"username":"alice","password":"other"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "already taken")
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		w := doJSON(t, router, "POST", "/user/add", `{"username":"alice"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-json content type", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		req, _ := http.NewRequest("POST", "/user/add", strings.NewReader("username=alice"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Contains(t, w.Body.String(), "data must be sent as JSON")
	})
}

func TestUsersController_Sessions(t *testing.T) {
	t.Run("login and resolve rotates token", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		registerTestUser(t, router, "alice")

		w := doJSON(t, router, "POST", "/user/login", `{"username":"alice","password":"sekret"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var loginResponse map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResponse))
		token := loginResponse["token"].(string)
		require.NotEmpty(t, token)

		w = doJSON(t, router, "GET", "/user/get/"+token, "")
		require.Equal(t, http.StatusOK, w.Code)

		var resolveResponse map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolveResponse))
		rotated := resolveResponse["token"].(string)
		assert.NotEqual(t, token, rotated)

		// The presented token was spent by the resolve.
		w = doJSON(t, router, "GET", "/user/get/"+token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login rejects bad credentials", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		registerTestUser(t, router, "alice")

		w := doJSON(t, router, "POST", "/user/login", `{"username":"alice","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("resolve rejects address mismatch", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		registerTestUser(t, router, "alice")

		w := doJSON(t, router, "POST", "/user/login", `{"username":"alice","password":"sekret"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var loginResponse map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResponse))
		token := loginResponse["token"].(string)

		req, _ := http.NewRequest("GET", "/user/get/"+token, nil)
		req.RemoteAddr = "198.51.100.7:1234"
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		// The mismatch burned the token for the original address too.
		w = doJSON(t, router, "GET", "/user/get/"+token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout invalidates token", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		registerTestUser(t, router, "alice")

		w := doJSON(t, router, "POST", "/user/login", `{"username":"alice","password":"sekret"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var loginResponse map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResponse))
		token := loginResponse["token"].(string)

		w = doJSON(t, router, "DELETE", "/user/logout/"+token, "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, "GET", "/user/get/"+token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUsersController_UpdateShelvesDisplay(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	user := registerTestUser(t, router, "alice")
	id := jsonID(user["id"])

	w := doJSON(t, router, "PUT", "/user/update/shelves_display/"+id, `{"shelves_display":"list"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "list", response["shelves_display"])

	w = doJSON(t, router, "PUT", "/user/update/shelves_display/999", `{"shelves_display":"list"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsersController_DeleteUser(t *testing.T) {
	router, db, cleanup := setupTestRouter(t)
	defer cleanup()

	user := registerTestUser(t, router, "alice")
	id := jsonID(user["id"])

	w := doJSON(t, router, "DELETE", "/user/delete/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	userRepo := users.NewRepository(db.DB)
	listed, err := userRepo.List()
	require.NoError(t, err)
	assert.Empty(t, listed)

	// The default shelf went with the user.
	shelfRepo := shelves.NewRepository(db.DB)
	remaining, err := shelfRepo.List()
	require.NoError(t, err)
	assert.Empty(t, remaining)

	w = doJSON(t, router, "DELETE", "/user/delete/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
