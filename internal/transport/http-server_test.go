package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/Rogue-Bear-Innovations/forum-back/internal/auth"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/config"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/db"
	"github.com/Rogue-Bear-Innovations/forum-back/internal/service"
)

type testEnv struct {
	t      *testing.T
	server *HTTPServer
	svc    *service.General
	db     *gorm.DB
	issuer *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb, err := db.NewGormClient(&config.Config{
		DBDriver:   config.DriverSQLite,
		DBName:     "file:" + uuid.New().String() + "?mode=memory&cache=shared",
		DBLogLevel: "silent",
		Seed:       true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	issuer := auth.NewIssuer([]byte("test-secret-0123456789"), time.Hour)
	logger := zap.NewNop().Sugar()
	svc := service.NewGeneral(gdb, logger, issuer, service.WithBcryptCost(bcrypt.MinCost))

	return &testEnv{
		t:      t,
		server: newHTTPServer(svc, logger, rate.Limit(1000)),
		svc:    svc,
		db:     gdb,
		issuer: issuer,
	}
}

// user creates a user holding roleName and returns it with a bearer token.
func (e *testEnv) user(roleName string) (*db.User, string) {
	e.t.Helper()

	role := db.Role{}
	require.NoError(e.t, e.db.Where("name = ?", roleName).First(&role).Error)
	user := db.User{
		Name:     "user",
		Email:    uuid.New().String() + "@example.com",
		Password: "x",
		Token:    uuid.New().String(),
		RoleID:   role.ID,
	}
	require.NoError(e.t, e.db.Create(&user).Error)

	token, err := e.issuer.Generate(user.ID, user.Token)
	require.NoError(e.t, err)
	return &user, token
}

func (e *testEnv) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestCensorBody(t *testing.T) {
	b := `{
		"email": "email@email.com",
		"password": "123456789123"
	}`

	got := censorBody([]byte(b))
	assert.JSONEq(t, `{
		"email": "email@email.com",
		"password": "$censored"
	}`, string(got))

	nested := `{"user": {"new_password": "secret"}, "list": [{"password": "x"}]}`
	assert.JSONEq(t, `{"user": {"new_password": "$censored"}, "list": [{"password": "$censored"}]}`,
		string(censorBody([]byte(nested))))

	assert.Equal(t, "not json", string(censorBody([]byte("not json"))))
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestPostUpdate(t *testing.T) {
	env := newTestEnv(t)
	author, authorToken := env.user(db.RoleUser)
	_, strangerToken := env.user(db.RoleUser)

	post := db.Post{Title: "Old", Content: "Old body", UserID: author.ID}
	require.NoError(t, env.db.Create(&post).Error)
	path := "/posts/" + strconv.FormatUint(post.ID, 10)

	t.Run("unauthenticated", func(t *testing.T) {
		code, body := env.do(http.MethodPut, path, "", map[string]interface{}{"title": "New"})
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("stranger is denied", func(t *testing.T) {
		code, body := env.do(http.MethodPut, path, strangerToken, map[string]interface{}{"title": "New"})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "Access denied.", body["message"])
	})

	t.Run("validation", func(t *testing.T) {
		code, body := env.do(http.MethodPut, path, authorToken, map[string]interface{}{"title": ""})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Validation Error.", body["message"])
		data := body["data"].(map[string]interface{})
		assert.Contains(t, data["errors"], "title")
	})

	t.Run("unknown post", func(t *testing.T) {
		code, body := env.do(http.MethodPut, "/posts/999", authorToken, map[string]interface{}{"title": "New"})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, "Post does not exist.", body["message"])
	})

	t.Run("author without approve permission", func(t *testing.T) {
		code, body := env.do(http.MethodPut, path, authorToken, map[string]interface{}{
			"title":   "New",
			"content": "Body",
			"approve": true,
		})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Post updated successfully.", body["message"])

		data := body["data"].(map[string]interface{})
		updated := data["post"].(map[string]interface{})
		assert.Equal(t, "New", updated["title"])
		assert.Equal(t, "Body", updated["content"])
		assert.Nil(t, updated["approved_by"])

		history := data["history_post"].(map[string]interface{})
		assert.Equal(t, "Old", history["title"])
		assert.Equal(t, "Old body", history["content"])
	})

	t.Run("stranger with malformed body is denied", func(t *testing.T) {
		code, body := env.do(http.MethodPut, path, strangerToken, map[string]interface{}{"title": 5})
		assert.Equal(t, http.StatusForbidden, code)
		assert.Equal(t, "Access denied.", body["message"])
	})

	t.Run("wrong type is keyed by field", func(t *testing.T) {
		code, body := env.do(http.MethodPut, path, authorToken, map[string]interface{}{"title": 5})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Validation Error.", body["message"])
		errs := body["data"].(map[string]interface{})["errors"].(map[string]interface{})
		assert.Equal(t, []interface{}{"The title must be a string."}, errs["title"])
		assert.NotContains(t, errs, "body")

		code, body = env.do(http.MethodPut, path, authorToken, map[string]interface{}{"title": "New", "approve": "yes"})
		assert.Equal(t, http.StatusBadRequest, code)
		errs = body["data"].(map[string]interface{})["errors"].(map[string]interface{})
		assert.Equal(t, []interface{}{"The approve field must be true or false."}, errs["approve"])
	})

	t.Run("approve accepts 1 and 0", func(t *testing.T) {
		for _, approve := range []interface{}{1, 0, "1", "0"} {
			code, body := env.do(http.MethodPut, path, authorToken, map[string]interface{}{"title": "Again", "approve": approve})
			assert.Equal(t, http.StatusOK, code, body)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		code, body := env.do(http.MethodPut, "/posts/abc", authorToken, map[string]interface{}{"title": "New"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body["data"].(map[string]interface{})["errors"], "id")
	})
}

func TestBookmarkListing(t *testing.T) {
	env := newTestEnv(t)
	author, token := env.user(db.RoleUser)
	other, _ := env.user(db.RoleUser)

	post := db.Post{Title: "p", UserID: author.ID}
	require.NoError(t, env.db.Create(&post).Error)
	for _, u := range []*db.User{author, other} {
		_, err := env.svc.BookmarkCreate(context.Background(), u, service.BookmarkReq{PostID: &post.ID})
		require.NoError(t, err)
	}
	path := "/bookmarks/posts/" + strconv.FormatUint(post.ID, 10)

	t.Run("paginated with additional", func(t *testing.T) {
		code, body := env.do(http.MethodGet, path+"?per_page=1&additional[foo]=bar&additional[data]=x", token, nil)
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, "bar", body["foo"])
		assert.Equal(t, "Successfully retrieved bookmarks", body["message"])
		assert.Len(t, body["data"], 1)

		meta := body["meta"].(map[string]interface{})
		assert.Equal(t, float64(2), meta["total"])
		assert.Equal(t, float64(2), meta["last_page"])
	})

	t.Run("unpaginated", func(t *testing.T) {
		code, body := env.do(http.MethodGet, path+"?paginate=0&sort[column]=id&sort[method]=desc", token, nil)
		require.Equal(t, http.StatusOK, code, body)
		assert.Len(t, body["data"], 2)
		assert.NotContains(t, body, "meta")

		first := body["data"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, float64(other.ID), first["user_id"])
	})

	t.Run("bad query", func(t *testing.T) {
		code, body := env.do(http.MethodGet, path+"?per_page=abc", token, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body["data"].(map[string]interface{})["errors"], "per_page")

		code, body = env.do(http.MethodGet, path+"?sort[column]=id", token, nil)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, body["data"].(map[string]interface{})["errors"], "sort[method]")
	})

	t.Run("create needs a target", func(t *testing.T) {
		code, body := env.do(http.MethodPost, "/bookmarks", token, map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, code)
		errs := body["data"].(map[string]interface{})["errors"]
		assert.Contains(t, errs, "post_id")
		assert.Contains(t, errs, "category_id")
	})

	t.Run("flags accept 0 and 1", func(t *testing.T) {
		category := db.Category{Name: "flags"}
		require.NoError(t, env.db.Create(&category).Error)

		code, body := env.do(http.MethodPost, "/bookmarks", token, map[string]interface{}{
			"is_category": 1,
			"category_id": category.ID,
			"is_post":     "0",
		})
		require.Equal(t, http.StatusCreated, code, body)
		assert.Equal(t, true, body["data"].(map[string]interface{})["is_category"])

		code, body = env.do(http.MethodPost, "/bookmarks", token, map[string]interface{}{"is_post": "yes"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]interface{}{"is_post": []interface{}{"The is post field must be true or false."}},
			body["data"].(map[string]interface{})["errors"])
	})
}

func TestPermissions(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.user(db.RoleAdministrator)
	_, userToken := env.user(db.RoleUser)

	code, _ := env.do(http.MethodPost, "/permissions", userToken, map[string]interface{}{"name": "comments_pin"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body := env.do(http.MethodPost, "/permissions", adminToken, map[string]interface{}{"name": "comments_pin"})
	require.Equal(t, http.StatusCreated, code, body)
	id := int(body["data"].(map[string]interface{})["id"].(float64))
	path := "/permissions/" + strconv.Itoa(id)

	code, body = env.do(http.MethodPost, "/permissions", adminToken, map[string]interface{}{"name": "comments_pin"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, map[string]interface{}{"name": []interface{}{"The name has already been taken."}},
		body["data"].(map[string]interface{})["errors"])

	code, body = env.do(http.MethodDelete, path, adminToken, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Permission soft-deleted successfully.", body["message"])

	code, _ = env.do(http.MethodGet, path, userToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = env.do(http.MethodGet, path+"?with_trashed=true", userToken, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "comments_pin", body["data"].(map[string]interface{})["name"])

	code, body = env.do(http.MethodGet, "/permissions?per_page=5", userToken, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["data"], 5)
	assert.Equal(t, float64(8), body["meta"].(map[string]interface{})["total"])
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(http.MethodPost, "/auth/register", "", map[string]interface{}{
		"email":    "new@example.com",
		"password": "111111111111",
		"name":     "New",
	})
	require.Equal(t, http.StatusCreated, code, body)
	data := body["data"].(map[string]interface{})
	token := data["token"].(string)
	assert.NotContains(t, data["user"], "password")

	code, body = env.do(http.MethodGet, "/users/me", token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "new@example.com", body["data"].(map[string]interface{})["email"])

	code, _ = env.do(http.MethodPost, "/auth/login", "", map[string]interface{}{
		"email":    "new@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = env.do(http.MethodPost, "/auth/login", "", map[string]interface{}{
		"email":    "new@example.com",
		"password": "111111111111",
	})
	require.Equal(t, http.StatusOK, code, body)
	fresh := body["data"].(map[string]interface{})["token"].(string)

	code, _ = env.do(http.MethodGet, "/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "login rotates the session")

	code, _ = env.do(http.MethodPost, "/auth/logout", fresh, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = env.do(http.MethodGet, "/users/me", fresh, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(http.MethodGet, "/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.server = newHTTPServer(env.svc, zap.NewNop().Sugar(), rate.Limit(1))

	login := map[string]interface{}{"email": "nobody@example.com", "password": "x"}
	code, _ := env.do(http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(http.MethodPost, "/auth/login", "", login)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = env.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code, "only /auth is limited")
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		code, body := env.do(method, "/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, code, method)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Not found.", body["message"])
	}

	_, token := env.user(db.RoleUser)
	code, body := env.do(http.MethodGet, "/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not found.", body["message"])
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/ping", "", nil)
	env.do(http.MethodGet, "/nope/1", "", nil)
	env.do(http.MethodGet, "/nope/2", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `forum_http_requests_total{method="GET",path="/ping",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `forum_http_requests_total{method="GET",path="unmatched",status="404"} 2`)
	assert.NotContains(t, rec.Body.String(), "/nope")
}
