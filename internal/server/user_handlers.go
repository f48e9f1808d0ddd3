package server

import (
	"campusnet/internal/middleware"
	"campusnet/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/user/me
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} object{success=bool,user=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// SearchUsers handles GET /api/user/search?q=
// @Summary Search users
// @Description Case-insensitive match on username, name and club name. At most 20 results.
// @Tags users
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} object{success=bool,users=[]models.User}
// @Security BearerAuth
// @Router /user/search [get]
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.userService.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}

// GetProfile handles GET /api/user/profile/:id
// @Summary User profile
// @Description Public projection of a user plus their posts, newest first.
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} object{success=bool,message=string,user=models.User,posts=[]models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/profile/{id} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id", "User not found")
	if err != nil {
		return nil
	}

	profile, err := s.userService.Profile(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User profile fetched successfully",
		"user":    profile.User,
		"posts":   profile.Posts,
	})
}

// ToggleFollow handles POST /api/user/togglefollow/:id
// @Summary Follow or unfollow a user
// @Tags users
// @Produce json
// @Param id path string true "Target user ID"
// @Success 200 {object} object{success=bool,message=string,following=bool,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/togglefollow/{id} [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id", "User not found")
	if err != nil {
		return nil
	}

	result, err := s.followService.ToggleFollow(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	middleware.TagSpan(c, middleware.AttrToggleOn.Bool(result.Following))
	message := "User unfollowed successfully"
	if result.Following {
		message = "User followed successfully"
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   message,
		"following": result.Following,
		"user":      result.User,
		"target":    result.Target,
	})
}
