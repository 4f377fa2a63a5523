package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharpfeed/internal/auth"
	"sharpfeed/internal/service"
	"sharpfeed/internal/storage"
	"sharpfeed/internal/store/sqlite"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	kv := sqlite.NewKVStore(db)
	ctx := context.Background()
	require.NoError(t, kv.Init(ctx))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	identity := service.NewIdentityService(ctx, kv, logger)
	feed := service.NewFeedService(ctx, kv, "http://127.0.0.1:8080", logger)
	session := service.NewSessionService(issuer, identity, kv, logger)

	router := gin.New()
	NewHandler(feed, identity, session, storage.NewInlineService(0), issuer).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}

func registerUser(t *testing.T, router *gin.Engine, identifier, name string) string {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"identifier":   identifier,
		"password":     "pw123456",
		"display_name": name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAPI_RegisterLoginAndFeedFlow(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "a@x.com", "Alice")

	// duplicate registration conflicts
	w := doJSON(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"identifier": "a@x.com", "password": "pw123456", "display_name": "Clone",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// wrong password
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"identifier": "a@x.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// create a post
	w = doJSON(t, router, http.MethodPost, "/api/posts", alice, gin.H{"text": "hello world"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created PostResponse
	decode(t, w, &created)
	assert.Equal(t, "Alice", created.AuthorName)

	// the feed shows it
	w = doJSON(t, router, http.MethodGet, "/api/feed", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var posts []PostResponse
	decode(t, w, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello world", posts[0].Text)

	// like it and check stats
	w = doJSON(t, router, http.MethodPost, postPath(created.ID)+"/like", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var liked PostResponse
	decode(t, w, &liked)
	assert.Equal(t, 1, liked.Likes)
	assert.True(t, liked.Liked)

	w = doJSON(t, router, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		TotalPosts int `json:"total_posts"`
		TotalLikes int `json:"total_likes"`
	}
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.TotalPosts)
	assert.Equal(t, 1, stats.TotalLikes)

	// comment
	w = doJSON(t, router, http.MethodPost, postPath(created.ID)+"/comments", alice, gin.H{"text": "nice"})
	require.Equal(t, http.StatusCreated, w.Code)
	var comment CommentResponse
	decode(t, w, &comment)
	assert.Equal(t, "a@x.com", comment.Author)

	// share link
	w = doJSON(t, router, http.MethodGet, postPath(created.ID)+"/share", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var share struct {
		URL string `json:"url"`
	}
	decode(t, w, &share)
	assert.Contains(t, share.URL, "?post=")
}

func TestAPI_AuthorizationRules(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "a@x.com", "Alice")

	w := doJSON(t, router, http.MethodPost, "/api/posts", alice, gin.H{"text": "mine"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created PostResponse
	decode(t, w, &created)

	bob := registerUser(t, router, "b@x.com", "Bob")

	w = doJSON(t, router, http.MethodPut, postPath(created.ID), bob, gin.H{"text": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodDelete, postPath(created.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPut, postPath(created.ID), alice, gin.H{"text": "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	var edited PostResponse
	decode(t, w, &edited)
	assert.Equal(t, "edited", edited.Text)

	w = doJSON(t, router, http.MethodDelete, postPath(created.ID), alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// signed out and without a token, posting is rejected
	w = doJSON(t, router, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/posts", "", gin.H{"text": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPI_EmptyPostRejected(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "a@x.com", "Alice")

	w := doJSON(t, router, http.MethodPost, "/api/posts", alice, gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_EditingStateMachine(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "a@x.com", "Alice")

	w := doJSON(t, router, http.MethodPost, "/api/editing/7", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// entering edit on another post replaces the first
	w = doJSON(t, router, http.MethodPost, "/api/editing/9", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/editing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state struct {
		EditingID int64 `json:"editing_id"`
	}
	decode(t, w, &state)
	assert.Equal(t, int64(9), state.EditingID)

	w = doJSON(t, router, http.MethodDelete, "/api/editing", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/editing", "", nil)
	decode(t, w, &state)
	assert.Zero(t, state.EditingID)
}

func TestAPI_ThemeRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/theme", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var theme struct {
		Theme string `json:"theme"`
	}
	decode(t, w, &theme)
	assert.Equal(t, "light", theme.Theme)

	w = doJSON(t, router, http.MethodPut, "/api/theme", "", gin.H{"theme": "dark"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/theme", "", nil)
	decode(t, w, &theme)
	assert.Equal(t, "dark", theme.Theme)
}

func TestAPI_FeedSortAndFilter(t *testing.T) {
	router := newTestRouter(t)
	alice := registerUser(t, router, "a@x.com", "Alice")

	for _, text := range []string{"coffee first", "tea break", "coffee again"} {
		w := doJSON(t, router, http.MethodPost, "/api/posts", alice, gin.H{"text": text})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/feed?filter=coffee&sort=oldest", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var posts []PostResponse
	decode(t, w, &posts)
	require.Len(t, posts, 2)
	assert.Equal(t, "coffee first", posts[0].Text)
	assert.Equal(t, "coffee again", posts[1].Text)
}

func postPath(id int64) string {
	return "/api/posts/" + strconv.FormatInt(id, 10)
}
