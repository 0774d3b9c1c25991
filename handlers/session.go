package handlers

import (
	"errors"
	"net/http"

	"busmitra/services/session"
	"busmitra/utils"

	"github.com/gin-gonic/gin"
)

// GetSessionHandler returns the live session state for debugging and support.
func (hb *HandlerBundle) GetSessionHandler(c *gin.Context) {
	sess, err := hb.AgentService.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load session", err.Error())
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EndSessionHandler abandons a conversation, releasing any provider hold.
func (hb *HandlerBundle) EndSessionHandler(c *gin.Context) {
	err := hb.AgentService.EndSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", "")
			return
		}
		if errors.Is(err, session.ErrLocked) {
			utils.JSONError(c, http.StatusConflict, "session busy", "")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to end session", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
}
