package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/paged", func(c *fiber.Ctx) error {
		return c.JSON(parsePagination(c, 20))
	})
	app.Get("/feed", func(c *fiber.Ctx) error {
		return c.JSON(parsePagination(c, unpaged))
	})

	tests := []struct {
		path   string
		limit  int
		offset int
	}{
		{"/paged", 20, 0},
		{"/paged?limit=5&offset=10", 5, 10},
		{"/paged?limit=1000", maxPaginationLimit, 0},
		{"/paged?limit=-3&offset=-1", 20, 0},
		{"/paged?limit=abc", 20, 0},
		{"/feed", unpaged, 0},
		{"/feed?offset=3", unpaged, 3},
		{"/feed?limit=500", maxPaginationLimit, 0},
		{"/feed?limit=0", unpaged, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer resp.Body.Close()

			var p Pagination
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
			assert.Equal(t, tt.limit, p.Limit)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestParseIDRejectsMalformedValues(t *testing.T) {
	app := fiber.New()
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c, "id", "Thing not found")
		if err != nil {
			return nil
		}
		return c.SendString(id)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/things/123", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/things/6f1c2a52-4d7e-4b8e-9a61-0c3b9d1f7e22", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
