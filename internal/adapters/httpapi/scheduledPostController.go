package httpapi

import (
	"net/http"

	spPort "crosspost/internal/ports/scheduledpost"

	"github.com/gin-gonic/gin"
)

type ScheduledPostController struct{ sc ScheduledPostUseCase }

func NewScheduledPostController(sc ScheduledPostUseCase) *ScheduledPostController {
	return &ScheduledPostController{sc: sc}
}

func (ctl *ScheduledPostController) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req spPort.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	res, err := ctl.sc.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// List با پارامتر اختیاری status
func (ctl *ScheduledPostController) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := ctl.sc.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduled_posts": res})
}

func (ctl *ScheduledPostController) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := ctl.sc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *ScheduledPostController) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req spPort.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	res, err := ctl.sc.Update(c.Request.Context(), c.Param("id"), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *ScheduledPostController) Cancel(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := ctl.sc.Cancel(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctl *ScheduledPostController) TriggerNow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := ctl.sc.TriggerNow(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}
