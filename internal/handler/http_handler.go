package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/vlog-interaction-service/internal/service"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
	"github.com/weiawesome/vlog-interaction-service/pkg/middleware"
	"github.com/weiawesome/vlog-interaction-service/pkg/response"
)

// Handler handles HTTP requests for the interaction service.
type Handler struct {
	svc            service.InteractionService
	authMiddleware *middleware.AuthMiddleware
	privilegedRole string
}

// NewHandler creates a new HTTP handler. Callers carrying privilegedRole may
// delete any comment.
func NewHandler(svc service.InteractionService, authMiddleware *middleware.AuthMiddleware, privilegedRole string) *Handler {
	return &Handler{
		svc:            svc,
		authMiddleware: authMiddleware,
		privilegedRole: privilegedRole,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		contents := api.Group("/contents/:content_id")
		{
			// POST /api/v1/contents/:content_id/like: auth required
			contents.POST("/like", h.authMiddleware.RequireAuth(), h.ToggleLike)
			// POST /api/v1/contents/:content_id/dislike: auth required
			contents.POST("/dislike", h.authMiddleware.RequireAuth(), h.ToggleDislike)
			// GET /api/v1/contents/:content_id/reaction: optional auth
			contents.GET("/reaction", h.authMiddleware.OptionalAuth(), h.ReactionStatus)
			// POST /api/v1/contents/:content_id/views: optional auth
			contents.POST("/views", h.authMiddleware.OptionalAuth(), h.RecordView)
			// POST /api/v1/contents/:content_id/comments: auth required
			contents.POST("/comments", h.authMiddleware.RequireAuth(), h.AddComment)
			// DELETE /api/v1/contents/:content_id/comments/:comment_id: auth required
			contents.DELETE("/comments/:comment_id", h.authMiddleware.RequireAuth(), h.DeleteComment)
		}

		users := api.Group("/users/:user_id")
		{
			// POST /api/v1/users/:user_id/follow: auth required
			users.POST("/follow", h.authMiddleware.RequireAuth(), h.Follow)
			// DELETE /api/v1/users/:user_id/follow: auth required
			users.DELETE("/follow", h.authMiddleware.RequireAuth(), h.Unfollow)
			// GET /api/v1/users/:user_id/follow: optional auth
			users.GET("/follow", h.authMiddleware.OptionalAuth(), h.FollowStatus)
		}
	}
}

// ToggleLike handles POST /api/v1/contents/:content_id/like.
func (h *Handler) ToggleLike(c *gin.Context) {
	state, err := h.svc.ToggleLike(c.Request.Context(), c.Param("content_id"), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "toggle like failed")
		return
	}
	response.Success(c, state)
}

// ToggleDislike handles POST /api/v1/contents/:content_id/dislike.
func (h *Handler) ToggleDislike(c *gin.Context) {
	state, err := h.svc.ToggleDislike(c.Request.Context(), c.Param("content_id"), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "toggle dislike failed")
		return
	}
	response.Success(c, state)
}

// ReactionStatus handles GET /api/v1/contents/:content_id/reaction.
func (h *Handler) ReactionStatus(c *gin.Context) {
	state, err := h.svc.ReactionStatus(c.Request.Context(), c.Param("content_id"), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "reaction status failed")
		return
	}
	response.Success(c, state)
}

// RecordView handles POST /api/v1/contents/:content_id/views.
// Anonymous viewers are identified by client IP.
func (h *Handler) RecordView(c *gin.Context) {
	viewerID := middleware.GetUserID(c)
	if viewerID == "" {
		viewerID = "ip:" + c.ClientIP()
	}

	res, err := h.svc.RecordView(c.Request.Context(), c.Param("content_id"), viewerID)
	if err != nil {
		h.fail(c, err, "record view failed")
		return
	}
	response.Success(c, res)
}

// addCommentRequest is the request body for POST /contents/:content_id/comments.
type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment handles POST /api/v1/contents/:content_id/comments.
func (h *Handler) AddComment(c *gin.Context) {
	ctx := c.Request.Context()
	l := pkglog.Ctx(ctx)

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid add comment request")
		response.BadRequest(c, "text is required")
		return
	}

	res, err := h.svc.AddComment(ctx, c.Param("content_id"), middleware.GetUserID(c), req.Text)
	if err != nil {
		h.fail(c, err, "add comment failed")
		return
	}
	response.Created(c, res)
}

// DeleteComment handles DELETE /api/v1/contents/:content_id/comments/:comment_id.
func (h *Handler) DeleteComment(c *gin.Context) {
	privileged := h.privilegedRole != "" && middleware.HasRole(c, h.privilegedRole)

	res, err := h.svc.DeleteComment(c.Request.Context(), c.Param("content_id"), c.Param("comment_id"), middleware.GetUserID(c), privileged)
	if err != nil {
		h.fail(c, err, "delete comment failed")
		return
	}
	response.Success(c, res)
}

// Follow handles POST /api/v1/users/:user_id/follow.
// The authenticated user follows the target user.
func (h *Handler) Follow(c *gin.Context) {
	state, err := h.svc.FollowUser(c.Request.Context(), middleware.GetUserID(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, err, "follow failed")
		return
	}
	response.Created(c, state)
}

// Unfollow handles DELETE /api/v1/users/:user_id/follow.
// The authenticated user unfollows the target user.
func (h *Handler) Unfollow(c *gin.Context) {
	state, err := h.svc.UnfollowUser(c.Request.Context(), middleware.GetUserID(c), c.Param("user_id"))
	if err != nil {
		h.fail(c, err, "unfollow failed")
		return
	}
	response.Success(c, state)
}

// FollowStatus handles GET /api/v1/users/:user_id/follow.
func (h *Handler) FollowStatus(c *gin.Context) {
	state, err := h.svc.FollowStatus(c.Request.Context(), c.Param("user_id"), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "follow status failed")
		return
	}
	response.Success(c, state)
}

// fail writes the error response for err. Only the public message of typed
// errors reaches the client.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	status, code := statusFor(err)

	message := "internal error"
	var typed *service.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}

	// 503s are logged by the engine already and again as the request line.
	if status == http.StatusInternalServerError {
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).
			Str(pkglog.FieldContentID, c.Param("content_id")).
			Str(pkglog.FieldTargetID, c.Param("user_id")).
			Msg(msg)
	}
	if errors.Is(err, service.ErrTransactionAborted) {
		c.Header("Retry-After", "1")
	}
	response.Error(c, status, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, service.ErrInvalidOperation):
		return http.StatusConflict, response.CodeConflict
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, response.CodeForbidden
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, response.CodeBadRequest
	case errors.Is(err, service.ErrTransactionAborted), errors.Is(err, service.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, response.CodeUnavailable
	default:
		return http.StatusInternalServerError, response.CodeInternal
	}
}
