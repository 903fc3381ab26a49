package httpapi

import (
	"net/http"
	"strconv"

	postPort "crosspost/internal/ports/post"

	"github.com/gin-gonic/gin"
)

type PostController struct{ pc PostUseCase }

func NewPostController(pc PostUseCase) *PostController { return &PostController{pc: pc} }

// ListRecent آخرین انتشارهای موفق کاربر
func (ctl *PostController) ListRecent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	posts, err := ctl.pc.ListRecent(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// PublishNow انتشار فوری بدون زمان‌بندی
func (ctl *PostController) PublishNow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req postPort.PublishInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	post, err := ctl.pc.PublishNow(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}
