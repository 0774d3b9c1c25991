package handlers

import (
	"errors"
	"net/http"

	"busmitra/models"
	"busmitra/services/agent"
	"busmitra/services/escalation"
	"busmitra/services/session"
	"busmitra/utils"

	"github.com/gin-gonic/gin"
)

// HandlerBundle carries the wired services into the HTTP layer.
type HandlerBundle struct {
	AgentService      agent.Service
	EscalationService escalation.Service
}

// ChatHandler processes one conversational turn.
func (hb *HandlerBundle) ChatHandler(c *gin.Context) {
	var req models.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	resp, err := hb.AgentService.Chat(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, session.ErrLocked) {
			utils.JSONError(c, http.StatusConflict, "session busy",
				"another message for this session is still being processed")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}
