package server

import (
	"errors"

	"campusnet/internal/models"
	"campusnet/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	// unpaged asks the store for every matching row.
	unpaged            = 0
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
// A missing or non-positive limit falls back to defaultLimit; an explicit one is capped.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter holding a UUID.
// On failure it writes a 404 JSON response and returns errResponseWritten, since
// a malformed identifier can never resolve.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param, notFound string) (string, error) {
	id := c.Params(param)
	if _, err := uuid.Parse(id); err != nil {
		_ = models.RespondWithError(c, models.NewNotFoundError(notFound))
		return "", errResponseWritten
	}
	return id, nil
}

// bindBody parses the request body into req and runs its validate tags.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func bindBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	if err := validation.Struct(req); err != nil {
		_ = models.RespondWithError(c, models.NewValidationError(err.Error()))
		return errResponseWritten
	}
	return nil
}

// currentUserID returns the user resolved by AuthRequired.
func currentUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
