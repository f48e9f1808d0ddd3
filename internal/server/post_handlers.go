package server

import (
	"io"
	"mime/multipart"
	"strings"

	"campusnet/internal/middleware"
	"campusnet/internal/models"
	"campusnet/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Description string   `json:"description" form:"description"`
	Media       []string `json:"media" form:"media"`
}

type commentRequest struct {
	Text string `json:"text" form:"text"`
}

type shareRequest struct {
	Description string `json:"description" form:"description"`
}

// CreatePost handles POST /api/post/create
// @Summary Create a post
// @Description Accepts JSON, or multipart with an optional "image" file and a "description" field.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param description formData string true "Post text"
// @Param image formData file false "Image (jpeg, png, gif, webp)"
// @Success 201 {object} object{success=bool,message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/create [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := currentUserID(c)

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
	}

	media := req.Media
	uploaded := ""
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if fh, err := c.FormFile("image"); err == nil {
			path, saveErr := s.saveUpload(c, userID, fh)
			if saveErr != nil {
				return models.RespondWithError(c, saveErr)
			}
			uploaded = path
			media = append(media, path)
		}
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:      userID,
		Description: req.Description,
		Media:       media,
	})
	if err != nil {
		if uploaded != "" {
			s.mediaService.Discard(uploaded)
		}
		return models.RespondWithError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Post created successfully",
		"post":    post,
	})
}

func (s *Server) saveUpload(c *fiber.Ctx, userID string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", models.NewValidationError("Invalid upload")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", models.NewValidationError("Invalid upload")
	}
	return s.mediaService.Save(c.UserContext(), service.UploadMediaInput{
		UserID:      userID,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	})
}

// DeletePost handles DELETE /api/post/delete/:id
// @Summary Delete a post
// @Description Only the author can delete. Missing and foreign posts answer the same 404.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/delete/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post not found or not authorized")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUserID(c),
		PostID: postID,
	}); err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post deleted successfully",
	})
}

// ToggleLike handles PUT /api/post/like/:id
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string,liked=bool,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/like/{id} [put]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post not found")
	if err != nil {
		return nil
	}

	post, liked, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	middleware.TagSpan(c, middleware.AttrToggleOn.Bool(liked))
	message := "Post disliked successfully"
	if liked {
		message = "Post liked successfully"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"liked":   liked,
		"post":    post,
	})
}

// ToggleBookmark handles PUT /api/post/bookmark/:id
// @Summary Bookmark or unbookmark a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,message=string,bookmarked=bool,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/bookmark/{id} [put]
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post not found")
	if err != nil {
		return nil
	}

	post, bookmarked, err := s.postService.ToggleBookmark(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	middleware.TagSpan(c, middleware.AttrToggleOn.Bool(bookmarked))
	message := "Post removed from bookmarks"
	if bookmarked {
		message = "Post bookmarked successfully"
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"message":    message,
		"bookmarked": bookmarked,
		"post":       post,
	})
}

// AddComment handles PUT /api/post/comment/:id
// @Summary Comment on a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body commentRequest true "Comment"
// @Success 200 {object} object{success=bool,message=string,post=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/comment/{id} [put]
func (s *Server) AddComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post not found")
	if err != nil {
		return nil
	}

	var req commentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
		}
	}

	post, err := s.postService.AddComment(c.UserContext(), service.CommentInput{
		UserID: currentUserID(c),
		PostID: postID,
		Text:   req.Text,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Comment added successfully",
		"post":    post,
	})
}

// SharePost handles POST /api/post/share/:id
// @Summary Share a post
// @Description Creates a new post that references the original. The description defaults to the original's.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Original post ID"
// @Param request body shareRequest false "Optional description"
// @Success 201 {object} object{success=bool,message=string,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/share/{id} [post]
func (s *Server) SharePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Original post not found")
	if err != nil {
		return nil
	}

	var req shareRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, models.NewValidationError("Invalid request body"))
		}
	}

	post, err := s.postService.SharePost(c.UserContext(), service.SharePostInput{
		UserID:      currentUserID(c),
		PostID:      postID,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Post shared successfully",
		"post":    post,
	})
}

// GetGlobalFeed handles GET /api/post/all
// @Summary Global feed
// @Description Posts by the requester and everyone they follow, newest first.
// @Tags feeds
// @Produce json
// @Param limit query int false "Page size (max 100); omitted returns every post"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Security BearerAuth
// @Router /post/all [get]
func (s *Server) GetGlobalFeed(c *fiber.Ctx) error {
	page := parsePagination(c, unpaged)
	posts, err := s.postService.GlobalFeed(c.UserContext(), service.FeedInput{
		UserID: currentUserID(c),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	return respondPosts(c, posts, err)
}

// GetFollowingFeed handles GET /api/post/following
// @Summary Following feed
// @Description Posts by accounts the requester follows, excluding their own.
// @Tags feeds
// @Produce json
// @Param limit query int false "Page size (max 100); omitted returns every post"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Security BearerAuth
// @Router /post/following [get]
func (s *Server) GetFollowingFeed(c *fiber.Ctx) error {
	page := parsePagination(c, unpaged)
	posts, err := s.postService.FollowingFeed(c.UserContext(), service.FeedInput{
		UserID: currentUserID(c),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	return respondPosts(c, posts, err)
}

// GetBookmarkedFeed handles GET /api/post/bookmarked
// @Summary Bookmarked feed
// @Tags feeds
// @Produce json
// @Param limit query int false "Page size (max 100); omitted returns every post"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Security BearerAuth
// @Router /post/bookmarked [get]
func (s *Server) GetBookmarkedFeed(c *fiber.Ctx) error {
	page := parsePagination(c, unpaged)
	posts, err := s.postService.BookmarkedFeed(c.UserContext(), service.FeedInput{
		UserID: currentUserID(c),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	return respondPosts(c, posts, err)
}

// GetAuthorFeed handles GET /api/post/user/:userId
// @Summary Posts by one author
// @Tags feeds
// @Produce json
// @Param userId path string true "Author ID"
// @Param limit query int false "Page size (max 100); omitted returns every post"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,posts=[]models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/user/{userId} [get]
func (s *Server) GetAuthorFeed(c *fiber.Ctx) error {
	authorID, err := parseID(c, "userId", "User not found")
	if err != nil {
		return nil
	}
	page := parsePagination(c, unpaged)
	posts, err := s.postService.AuthorFeed(c.UserContext(), authorID, page.Limit, page.Offset)
	return respondPosts(c, posts, err)
}

// GetPost handles GET /api/post/:id
// @Summary Single post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} object{success=bool,post=models.Post}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /post/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id", "Post not found")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"post":    post,
	})
}

func respondPosts(c *fiber.Ctx, posts []models.Post, err error) error {
	if err != nil {
		return models.RespondWithError(c, err)
	}
	middleware.TagSpan(c, middleware.AttrFeedSize.Int(len(posts)))
	return c.JSON(fiber.Map{
		"success": true,
		"posts":   posts,
	})
}
