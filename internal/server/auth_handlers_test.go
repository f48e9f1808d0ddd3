package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	_, app := newTestServer(t)

	resp, body := call(t, app, http.MethodPost, "/api/user/register", map[string]string{
		"email":    "u1@x.com",
		"password": "pw123",
		"name":     "User One",
		"username": "u1",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, body.Success)
	assert.Equal(t, "u1", body.User["username"])
	assert.NotContains(t, body.User, "password")

	resp, body = call(t, app, http.MethodPost, "/api/user/login", map[string]string{
		"email":    "u1@x.com",
		"password": "pw123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Token)
	assert.NotContains(t, body.User, "password")

	cookie := findCookie(resp, sessionCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, body.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	_, app := newTestServer(t)
	signUp(t, app, "u1")

	resp, body := call(t, app, http.MethodPost, "/api/user/register", map[string]string{
		"email": "u1@x.com", "password": "pw123", "name": "again", "username": "again",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CONFLICT", body.Code)

	resp, body = call(t, app, http.MethodPost, "/api/user/register", map[string]string{
		"email": "club@x.com", "password": "pw123", "name": "Club", "username": "club", "user_type": "club",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)

	resp, body = call(t, app, http.MethodPost, "/api/user/register", map[string]string{
		"email": "not-an-email", "password": "pw123", "name": "x", "username": "x",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
}

func TestLoginFailures(t *testing.T) {
	_, app := newTestServer(t)
	signUp(t, app, "u1")

	resp, body := call(t, app, http.MethodPost, "/api/user/login", map[string]string{"email": "u1@x.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", body.Message)

	resp, body = call(t, app, http.MethodPost, "/api/user/login", map[string]string{"email": "ghost@x.com", "password": "pw123"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User does not exist", body.Message)
	assert.Nil(t, findCookie(resp, sessionCookie))
}

func TestCookieSessionAndLogout(t *testing.T) {
	_, app := newTestServer(t)
	_, token := signUp(t, app, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	resp, body := send(t, app, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", body.User["username"])

	resp, body = call(t, app, http.MethodPost, "/api/user/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Success)
	cleared := findCookie(resp, sessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.True(t, strings.Contains(resp.Header.Get("Set-Cookie"), "expires="))

	resp, _ = call(t, app, http.MethodGet, "/api/user/logout", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	_, app := newTestServer(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/user/me"},
		{http.MethodGet, "/api/user/search?q=a"},
		{http.MethodPost, "/api/user/togglefollow/00000000-0000-0000-0000-000000000000"},
		{http.MethodPost, "/api/post/create"},
		{http.MethodGet, "/api/post/all"},
		{http.MethodGet, "/api/post/following"},
		{http.MethodGet, "/api/post/bookmarked"},
		{http.MethodPut, "/api/post/like/00000000-0000-0000-0000-000000000000"},
		{http.MethodGet, "/api/ws"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp, body := call(t, app, r.method, r.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "UNAUTHORIZED", body.Code)
		})
	}

	resp, body := call(t, app, http.MethodGet, "/api/user/me", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body.Code)
}
