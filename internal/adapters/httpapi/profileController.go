package httpapi

import (
	"net/http"

	profilePort "crosspost/internal/ports/profile"

	"github.com/gin-gonic/gin"
)

type ProfileController struct{ pc ProfileUseCase }

func NewProfileController(pc ProfileUseCase) *ProfileController { return &ProfileController{pc: pc} }

func (ctl *ProfileController) Connect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req profilePort.ConnectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	res, err := ctl.pc.Connect(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (ctl *ProfileController) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := ctl.pc.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": res})
}

func (ctl *ProfileController) Disconnect(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := ctl.pc.Disconnect(c.Request.Context(), userID, c.Param("platform")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
