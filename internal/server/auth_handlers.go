package server

import (
	"campusnet/internal/models"
	"campusnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
	Name     string `json:"name" form:"name" validate:"required,notblank,max=100"`
	Username string `json:"username" form:"username" validate:"required,username"`
	Kind     string `json:"user_type" form:"user_type" validate:"omitempty,oneof=user club"`
	ClubName string `json:"club_name" form:"club_name" validate:"required_if=Kind club,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Register handles POST /api/user/register
// @Summary Register an account
// @Description Creates a user or club account. Does not open a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration"
// @Success 201 {object} object{success=bool,message=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /user/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Username: req.Username,
		Kind:     models.UserKind(req.Kind),
		ClubName: req.ClubName,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Account registered successfully",
		"user":    user,
	})
}

// Login handles POST /api/user/login
// @Summary Log in
// @Description Verifies credentials, sets the session cookie and echoes the token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Credentials"
// @Success 200 {object} object{success=bool,message=string,token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /user/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	user, session, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	s.setSessionCookie(c, session)
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    "Login successful",
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

// Logout handles GET|POST /api/user/logout
// @Summary Log out
// @Description Expires the session cookie. Sessions are stateless, nothing is revoked server side.
// @Tags auth
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Router /user/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logout successful",
	})
}
