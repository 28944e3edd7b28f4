package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/yearbook-server/controllers"
	"github.com/vnkhanh/yearbook-server/middleware"
)

func SetupRoutes(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", controllers.HealthCheck)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.RegisterStaff)
			auth.POST("/login", controllers.Login)
			auth.POST("/google/login", controllers.GoogleLoginHandler)
		}
		protected := api.Group("/")
		protected.Use(middleware.AuthJWT())
		{
			protected.GET("/me", controllers.Me)
		}

		// Staff-facing workspace administration.
		workspaces := api.Group("/workspaces")
		workspaces.Use(middleware.AuthJWT())
		{
			workspaces.POST("", controllers.CreateWorkspace)
			workspaces.GET("", controllers.ListWorkspaces)
			workspaces.GET("/:id", middleware.CheckWorkspaceOwner(), controllers.GetWorkspaceDetail)
			workspaces.PUT("/:id/archive", middleware.CheckWorkspaceOwner(), controllers.ArchiveWorkspace)
			workspaces.PUT("/:id/restore", middleware.CheckWorkspaceOwner(), controllers.RestoreWorkspace)

			workspaces.POST("/:id/roster", middleware.CheckWorkspaceOwner(), controllers.AddRosterEntry)
			workspaces.GET("/:id/roster", middleware.CheckWorkspaceOwner(), controllers.ListRosterEntries)
			workspaces.POST("/:id/roster/import", middleware.CheckWorkspaceOwner(), controllers.ImportRoster)
			workspaces.DELETE("/:id/roster/:entryId", middleware.CheckWorkspaceOwner(), controllers.DeleteRosterEntry)
			workspaces.POST("/:id/roster/:entryId/photo", middleware.CheckWorkspaceOwner(), controllers.UploadRosterPhoto)

			// Claim arbitration.
			workspaces.GET("/:id/pending", middleware.CheckWorkspaceOwner(), controllers.ListPendingClaims)
			workspaces.PUT("/:id/pending/:sessionId/approve", middleware.CheckWorkspaceOwner(), controllers.ApproveClaim)
			workspaces.PUT("/:id/pending/:sessionId/reject", middleware.CheckWorkspaceOwner(), controllers.RejectClaim)

			workspaces.GET("/:id/guests", middleware.CheckWorkspaceOwner(), controllers.ListGuests)
			workspaces.PUT("/:id/guests/:sessionId/ban", middleware.CheckWorkspaceOwner(), controllers.BanGuest)
			workspaces.PUT("/:id/guests/:sessionId/unban", middleware.CheckWorkspaceOwner(), controllers.UnbanGuest)
			workspaces.PUT("/:id/guests/:sessionId/extra", middleware.CheckWorkspaceOwner(), controllers.MarkGuestExtra)

			workspaces.POST("/:id/export", middleware.CheckWorkspaceOwner(), controllers.CreateExport)
		}
		api.GET("/workspaces/share/:shareCode", controllers.GetWorkspaceByShareCode)

		// Platform administration, admin accounts only.
		admin := api.Group("/admin")
		admin.Use(middleware.AuthJWT(), middleware.RequireAdmin())
		{
			admin.GET("/workspaces", controllers.ListAllWorkspaces)
		}

		api.GET("/exports/:job_id", middleware.AuthJWT(), controllers.GetExport)

		// Guest-facing surface, token-authenticated per workspace.
		guest := api.Group("/guest/:workspaceId")
		{
			guest.POST("/register", middleware.RateLimitRegister(), controllers.RegisterGuest)
			guest.POST("/identify", middleware.RateLimitRegister(), controllers.IdentifyGuest)
			guest.GET("/roster", controllers.ListRosterEntries)
			guest.POST("/restore/request", middleware.RateLimitRegister(), controllers.RequestRestore)
			guest.POST("/restore/redeem", controllers.RedeemRestore)

			authed := guest.Group("/")
			authed.Use(middleware.GuestAuth())
			{
				authed.GET("/me", controllers.GuestMe)
				authed.POST("/heartbeat", controllers.Heartbeat)
				authed.GET("/members", controllers.ListMembers)
				authed.GET("/presets", controllers.ListPokePresets)

				authed.POST("/pokes", controllers.SendPoke)
				authed.POST("/pokes/eligibility", controllers.BatchEligibility)
				authed.GET("/pokes/remaining", controllers.PokeRemaining)
				authed.GET("/pokes/inbox", controllers.PokeInbox)
				authed.GET("/pokes/sent", controllers.PokeSent)
				authed.PUT("/pokes/:pokeId/read", controllers.MarkPokeRead)
				authed.PUT("/pokes/:pokeId/reaction", controllers.ReactToPoke)
			}
		}
	}
}
