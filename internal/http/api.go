package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sharpfeed/internal/auth"
	"sharpfeed/internal/domain"
	"sharpfeed/internal/service"
	"sharpfeed/internal/storage"
)

const identifierKey = "identifier"

// Handler wires HTTP routes to domain services.
type Handler struct {
	feed     service.FeedService
	identity service.IdentityService
	session  *service.SessionService
	media    storage.Service
	issuer   *auth.TokenIssuer
}

func NewHandler(feed service.FeedService, identity service.IdentityService, session *service.SessionService, media storage.Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{
		feed:     feed,
		identity: identity,
		session:  session,
		media:    media,
		issuer:   issuer,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.identifyMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)

		api.GET("/feed", h.getFeed)
		api.GET("/stats", h.getStats)

		api.POST("/posts", h.createPost)
		api.PUT("/posts/:id", h.editPost)
		api.DELETE("/posts/:id", h.deletePost)
		api.POST("/posts/:id/like", h.toggleLike)
		api.POST("/posts/:id/comments", h.addComment)
		api.GET("/posts/:id/share", h.sharePost)

		api.PUT("/profile", h.updateProfile)

		api.GET("/editing", h.getEditing)
		api.POST("/editing/:id", h.startEdit)
		api.DELETE("/editing", h.cancelEdit)

		api.GET("/theme", h.getTheme)
		api.PUT("/theme", h.setTheme)

		api.POST("/images", h.uploadImage)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// identifyMiddleware resolves the acting user: a valid bearer token wins,
// otherwise the process-wide restored session applies.
func (h *Handler) identifyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			if identifier, err := h.issuer.Validate(strings.TrimPrefix(header, "Bearer ")); err == nil {
				c.Set(identifierKey, identifier)
				c.Next()
				return
			}
		}
		if current := h.session.Current(); current != "" {
			c.Set(identifierKey, current)
		}
		c.Next()
	}
}

func (h *Handler) actor(c *gin.Context) string {
	return c.GetString(identifierKey)
}

type registerRequest struct {
	Identifier  string `json:"identifier" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.identity.Register(c.Request.Context(), req.Identifier, req.Password, req.DisplayName)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}

	// signup signs the new user in right away
	token, err := h.session.SignIn(c.Request.Context(), user.Identifier)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": userToResponse(user)})
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.identity.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}

	token, err := h.session.SignIn(c.Request.Context(), user.Identifier)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": userToResponse(user)})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.session.SignOut(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signed_out": true})
}

func (h *Handler) getFeed(c *gin.Context) {
	filter := c.Query("filter")
	mode := domain.SortMode(c.DefaultQuery("sort", string(domain.SortLatest)))

	posts := h.feed.Feed(filter, mode)
	viewer := h.actor(c)

	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = h.postToResponse(&posts[i], viewer)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.Stats())
}

type createPostRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.feed.CreatePost(c.Request.Context(), h.actor(c), req.Text, req.Image)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h.postToResponse(post, h.actor(c)))
}

type editPostRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) editPost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var req editPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.feed.EditPost(c.Request.Context(), h.actor(c), id, req.Text)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}

	// a saved edit leaves the editing state
	if h.session.EditingID() == id {
		h.session.CancelEdit()
	}
	c.JSON(http.StatusOK, h.postToResponse(post, h.actor(c)))
}

func (h *Handler) deletePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	if err := h.feed.DeletePost(c.Request.Context(), h.actor(c), id); err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) toggleLike(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	actor := h.actor(c)
	if actor == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error()})
		return
	}

	post, err := h.feed.ToggleLike(c.Request.Context(), actor, id)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.postToResponse(post, actor))
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) addComment(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.feed.AddComment(c.Request.Context(), h.actor(c), id, req.Text)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h.commentToResponse(comment))
}

func (h *Handler) sharePost(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}

	url, err := h.feed.ShareLink(id)
	if err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Avatar      string `json:"avatar"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	actor := h.actor(c)
	if actor == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error()})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.identity.UpdateProfile(c.Request.Context(), actor, req.DisplayName, req.Avatar); err != nil {
		c.JSON(statusFromErr(err), gin.H{"error": err.Error()})
		return
	}

	user, _ := h.identity.Lookup(actor)
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) getEditing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"editing_id": h.session.EditingID()})
}

func (h *Handler) startEdit(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if h.actor(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error()})
		return
	}

	h.session.StartEdit(id)
	c.JSON(http.StatusOK, gin.H{"editing_id": id})
}

func (h *Handler) cancelEdit(c *gin.Context) {
	h.session.CancelEdit()
	c.JSON(http.StatusOK, gin.H{"editing_id": int64(0)})
}

func (h *Handler) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": h.session.Theme(c.Request.Context())})
}

type setThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func (h *Handler) setTheme(c *gin.Context) {
	var req setThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.SetTheme(c.Request.Context(), req.Theme); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": req.Theme})
}

func (h *Handler) uploadImage(c *gin.Context) {
	if h.actor(c) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.ErrUnauthenticated.Error()})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := h.media.UploadImage(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

type PostResponse struct {
	ID           int64             `json:"id"`
	Author       string            `json:"author"`
	AuthorName   string            `json:"author_name"`
	AuthorAvatar string            `json:"author_avatar,omitempty"`
	Text         string            `json:"text"`
	Image        string            `json:"image,omitempty"`
	CreatedAt    string            `json:"created_at"`
	Likes        int               `json:"likes"`
	Liked        bool              `json:"liked"`
	Comments     []CommentResponse `json:"comments"`
}

type CommentResponse struct {
	ID         int64  `json:"id"`
	Author     string `json:"author"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

func (h *Handler) postToResponse(post *domain.Post, viewer string) PostResponse {
	resp := PostResponse{
		ID:           post.ID,
		Author:       post.Author,
		AuthorName:   h.identity.ResolveUsername(post.Author),
		AuthorAvatar: h.identity.ResolveAvatar(post.Author),
		Text:         post.Text,
		Image:        post.Image,
		CreatedAt:    post.CreatedAt.Format(time.RFC3339),
		Likes:        post.LikeCount(),
		Liked:        viewer != "" && post.LikedByUser(viewer),
		Comments:     make([]CommentResponse, len(post.Comments)),
	}
	for i := range post.Comments {
		resp.Comments[i] = h.commentToResponse(&post.Comments[i])
	}
	return resp
}

func (h *Handler) commentToResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		Author:     comment.Author,
		AuthorName: h.identity.ResolveUsername(comment.Author),
		Text:       comment.Text,
		CreatedAt:  comment.CreatedAt.Format(time.RFC3339),
	}
}

type UserResponse struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		Identifier:  user.Identifier,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
	}
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return 0, false
	}
	return id, true
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotAuthor):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
