package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesController_AddSeries(t *testing.T) {
	t.Run("creates series", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		user := registerTestUser(t, router, "alice")
		id := jsonID(user["id"])

		w := doJSON(t, router, "POST", "/series/add", `{"name":"Barsetshire","user_id":`+id+`}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Barsetshire", response["item"].(map[string]interface{})["name"])
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		router, _, cleanup := setupTestRouter(t)
		defer cleanup()

		user := registerTestUser(t, router, "alice")
		id := jsonID(user["id"])

		w := doJSON(t, router, "POST", "/series/add", `{"name":"Barsetshire","user_id":`+id+`}`)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doJSON(t, router, "POST", "/series/add", `{"name":"Barsetshire","user_id":`+id+`}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSeriesController_UpdateSeries(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	user := registerTestUser(t, router, "alice")
	id := jsonID(user["id"])

	w := doJSON(t, router, "POST", "/series/add", `{"name":"Barsetshire","user_id":`+id+`}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	seriesID := jsonID(created["item"].(map[string]interface{})["id"])

	w = doJSON(t, router, "POST", "/book/add",
		`{"title":"The Warden","series_id":`+seriesID+`,"user_id":`+id+`}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var bookCreated map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bookCreated))
	bookID := jsonID(bookCreated["item"].(map[string]interface{})["id"])

	w = doJSON(t, router, "PUT", "/series/update/"+seriesID,
		`{"name":"Chronicles of Barsetshire","book_positions":[{"book_id":`+bookID+`,"position":1}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var updated map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Chronicles of Barsetshire", updated["item"].(map[string]interface{})["name"])

	w = doJSON(t, router, "GET", "/book/get", "")
	require.Equal(t, http.StatusOK, w.Code)

	var books []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
	require.Len(t, books, 1)
	assert.Equal(t, float64(1), books[0]["item"].(map[string]interface{})["series_position"])
}

func TestSeriesController_DeleteSeries(t *testing.T) {
	router, _, cleanup := setupTestRouter(t)
	defer cleanup()

	user := registerTestUser(t, router, "alice")
	id := jsonID(user["id"])

	w := doJSON(t, router, "POST", "/series/add", `{"name":"Barsetshire","user_id":`+id+`}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	seriesID := jsonID(created["item"].(map[string]interface{})["id"])

	w = doJSON(t, router, "POST", "/book/add",
		`{"title":"The Warden","series_id":`+seriesID+`,"user_id":`+id+`}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "DELETE", "/series/delete/"+seriesID, "")
	require.Equal(t, http.StatusOK, w.Code)

	// The series' books went with it.
	w = doJSON(t, router, "GET", "/book/get", "")
	require.Equal(t, http.StatusOK, w.Code)

	var books []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
	assert.Empty(t, books)

	w = doJSON(t, router, "DELETE", "/series/delete/"+seriesID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
