package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"campusnet/internal/bootstrap"
	"campusnet/internal/config"
	"campusnet/internal/database"
	"campusnet/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "test",
		Port:            "0",
		JWTSecret:       "test-secret-test-secret-test-secret",
		SessionTTLHours: 24,
		DBDriver:        config.DriverSQLite,
		AllowedOrigins:  "http://localhost:5173",
		UploadDir:       t.TempDir(),
		MediaPrefix:     "/uploads",
		MaxUploadMB:     1,
	}
}

func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	rt := bootstrap.NewRuntime(config.DriverSQLite, repository.NewUserRepository(db), repository.NewPostRepository(db), nil)
	srv, err := NewServerWithDeps(testConfig(t), rt)
	require.NoError(t, err)
	return srv, srv.App()
}

type apiResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	Token      string            `json:"token"`
	Following  bool              `json:"following"`
	Liked      bool              `json:"liked"`
	Bookmarked bool              `json:"bookmarked"`
	User       map[string]any    `json:"user"`
	Users      []map[string]any  `json:"users"`
	Post       map[string]any    `json:"post"`
	Posts      []map[string]any  `json:"posts"`
	Checks     map[string]string `json:"checks"`
}

// call issues a request with an optional JSON body and Bearer token.
func call(t *testing.T, app *fiber.App, method, path string, body any, token string) (*http.Response, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, apiResponse) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

// signUp registers and logs in username, returning its id and session token.
func signUp(t *testing.T, app *fiber.App, username string) (string, string) {
	t.Helper()
	resp, _ := call(t, app, http.MethodPost, "/api/user/register", map[string]string{
		"email":    username + "@x.com",
		"password": "pw123",
		"name":     username,
		"username": username,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := call(t, app, http.MethodPost, "/api/user/login", map[string]string{
		"email":    username + "@x.com",
		"password": "pw123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body.Token)
	return body.User["id"].(string), body.Token
}

func postIDsOf(posts []map[string]any) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p["id"].(string))
	}
	return ids
}
