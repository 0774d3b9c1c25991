package handlers

import (
	"net/http"
	"time"

	"busmitra/config"
	"busmitra/models"
	"busmitra/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OperatorTokenHandler exchanges the shared operator access key for a JWT.
// Disabled when no access key is configured.
func (hb *HandlerBundle) OperatorTokenHandler(c *gin.Context) {
	var input struct {
		OperatorID string `json:"operator_id" binding:"required"`
		AccessKey  string `json:"access_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	key := config.AppConfig.OperatorAccessKey
	if key == "" || input.AccessKey != key {
		utils.JSONError(c, http.StatusUnauthorized, "invalid access key", "")
		return
	}

	token, err := utils.GenerateOperatorToken(input.OperatorID, 12*time.Hour)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to issue token", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ListTicketsHandler returns all unresolved escalation tickets.
func (hb *HandlerBundle) ListTicketsHandler(c *gin.Context) {
	tickets, err := hb.EscalationService.ListOpen(c.Request.Context())
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to list tickets", err.Error())
		return
	}
	if tickets == nil {
		tickets = []models.EscalationTicket{}
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// GetTicketHandler returns one ticket with its session snapshot.
func (hb *HandlerBundle) GetTicketHandler(c *gin.Context) {
	ticket, err := hb.EscalationService.Ticket(c.Request.Context(), c.Param("ticketID"))
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "ticket not found", err.Error())
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ResolveTicketHandler applies an operator's decision to an escalated session.
func (hb *HandlerBundle) ResolveTicketHandler(c *gin.Context) {
	var event models.ResolutionEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}
	event.TicketID = c.Param("ticketID")

	resp, err := hb.AgentService.ResolveTicket(c.Request.Context(), event)
	if err != nil {
		utils.JSONError(c, http.StatusUnprocessableEntity, "failed to resolve ticket", err.Error())
		return
	}

	operatorID := c.GetString("operatorID")
	utils.GetLogger().Info("ticket resolved",
		zap.String("ticket", event.TicketID), zap.String("operator", operatorID))
	c.JSON(http.StatusOK, resp)
}
