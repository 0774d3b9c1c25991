package routes

import (
	"net/http"
	"time"

	"busmitra/handlers"
	"busmitra/middleware"
	"busmitra/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine with middleware and all route groups.
func SetupRouter(hb *handlers.HandlerBundle) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.ErrorHandler())
	r.Use(gin.Logger())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterAgentRoutes(r, hb)
	RegisterOperatorRoutes(r, hb)
	RegisterHealthRoute(r)
	return r
}

// RegisterAgentRoutes registers the conversational endpoints.
func RegisterAgentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/agent")
	{
		api.POST("/chat", hb.ChatHandler)
		api.GET("/session/:sessionID", hb.GetSessionHandler)
		api.DELETE("/session/:sessionID", hb.EndSessionHandler)
	}
}

// RegisterOperatorRoutes registers the human-in-the-loop endpoints.
func RegisterOperatorRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/operators")
	{
		api.POST("/token", hb.OperatorTokenHandler)

		// Ticket handling requires an operator token.
		api.Use(middleware.OperatorAuthMiddleware())
		api.GET("/tickets", hb.ListTicketsHandler)
		api.GET("/tickets/:ticketID", hb.GetTicketHandler)
		api.POST("/tickets/:ticketID/resolve", hb.ResolveTicketHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}
