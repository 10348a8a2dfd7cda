// server/internal/api/routes/routes.go
package routes

import (
	"context"
	"net/http"
	"time"

	"recycle-pickup-api-server/internal/api/handlers"
	"recycle-pickup-api-server/internal/api/middleware"
	"recycle-pickup-api-server/internal/auth"
	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/leaderboard"
	"recycle-pickup-api-server/internal/logger"
	"recycle-pickup-api-server/internal/metrics"
	"recycle-pickup-api-server/internal/models"
	"recycle-pickup-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the components the router wires into handlers. Evidence, Metrics
// and Health are optional.
type Deps struct {
	Engine           *engine.Engine
	Leaderboard      *leaderboard.Aggregator
	LeaderboardLimit int
	Users            handlers.UserStore
	Tokens           *auth.TokenService
	Hub              *socket.Hub
	Evidence         handlers.EvidenceStore
	Metrics          *metrics.Metrics
	Log              logrus.FieldLogger
	Health           func(ctx context.Context) error
}

func SetupRouter(d Deps) *gin.Engine {
	handlers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(d.Log))
	if d.Metrics != nil {
		router.Use(d.Metrics.Middleware())
	}
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	pickupHandler := &handlers.PickupHandler{Engine: d.Engine, Evidence: d.Evidence}
	campaignHandler := &handlers.CampaignHandler{Engine: d.Engine}
	donationHandler := &handlers.DonationHandler{Engine: d.Engine}
	impactHandler := &handlers.ImpactHandler{Engine: d.Engine}
	leaderboardHandler := &handlers.LeaderboardHandler{Aggregator: d.Leaderboard, DefaultLimit: d.LeaderboardLimit}
	userHandler := &handlers.UserHandler{Users: d.Users, Tokens: d.Tokens}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Tokens: d.Tokens, Log: d.Log}

	router.GET("/healthz", func(c *gin.Context) {
		if d.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", d.Metrics.Handler())
	}

	authenticate := middleware.Authenticate(d.Tokens)
	onlyUsers := middleware.Authorize(models.RoleUser)
	onlyAgents := middleware.Authorize(models.RoleAgent)
	onlyAdmins := middleware.Authorize(models.RoleAdmin)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		// === Public ===
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", userHandler.Register)
			authRoutes.POST("/login", userHandler.Login)
		}
		apiV1.GET("/badges", impactHandler.ListBadges)

		// === Authenticated ===
		protected := apiV1.Group("")
		protected.Use(authenticate)
		{
			pickups := protected.Group("/pickups")
			{
				pickups.POST("", onlyUsers, pickupHandler.CreatePickup)
				pickups.GET("", onlyAdmins, pickupHandler.ListPickups)
				pickups.GET("/mine", onlyUsers, pickupHandler.ListPickups)
				pickups.GET("/:id", pickupHandler.GetPickup)

				pickups.POST("/:id/assign", onlyAdmins, pickupHandler.AssignAgent)
				pickups.POST("/:id/start", onlyAgents, pickupHandler.StartPickup)
				pickups.POST("/:id/evidence", onlyAgents, pickupHandler.UploadEvidence)
				pickups.POST("/:id/collect", onlyAgents, pickupHandler.CollectPickup)
				pickups.POST("/:id/complete", onlyAdmins, pickupHandler.CompletePickup)
				pickups.POST("/:id/cancel", middleware.Authorize(models.RoleUser, models.RoleAdmin), pickupHandler.CancelPickup)
			}

			protected.GET("/agents/me/pickups", onlyAgents, pickupHandler.ListPickups)

			donations := protected.Group("/donations")
			{
				donations.GET("/mine", onlyUsers, donationHandler.ListDonations)
				donations.GET("/:id", donationHandler.GetDonation)
			}

			protected.GET("/users/me/impact", onlyUsers, impactHandler.GetMyImpact)
			protected.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		}

		// === Admin ===
		admin := apiV1.Group("/admin")
		admin.Use(authenticate, onlyAdmins)
		{
			admin.POST("/users", userHandler.CreateUser)
			admin.GET("/users/:id/impact", impactHandler.GetUserImpact)

			campaigns := admin.Group("/campaigns")
			{
				campaigns.POST("", campaignHandler.CreateCampaign)
				campaigns.GET("", campaignHandler.ListCampaigns)
				campaigns.POST("/:id/deactivate", campaignHandler.DeactivateCampaign)
			}

			admin.GET("/donations", donationHandler.ListDonations)
			admin.PATCH("/donations/:id/status", donationHandler.AdvanceDonation)
		}
	}

	return router
}
