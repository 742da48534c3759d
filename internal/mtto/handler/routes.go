package handler

import (
	"github.com/OscarR093/reportesMtto/internal/middleware"
	"github.com/OscarR093/reportesMtto/internal/mtto/entity"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes monta la API bajo /api
func RegisterRoutes(r *gin.Engine, h *Handlers, jwtSecret string) {
	api := r.Group("/api")

	// autenticación sin token
	auth := api.Group("/auth")
	{
		auth.GET("/google", h.Auth.GoogleLogin)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", h.Auth.Logout)
	}

	// SSE acepta ?token= porque EventSource no manda headers
	api.GET("/sse/events", middleware.JWTAuth(jwtSecret), h.SSE.Stream)

	authorized := api.Group("")
	authorized.Use(middleware.JWTAuth(jwtSecret))
	{
		authorized.GET("/auth/me", h.Auth.Me)
		authorized.POST("/upload", h.Upload.Upload)

		reports := authorized.Group("/reports")
		{
			reports.GET("/options", h.Report.Options)
			reports.POST("", h.Report.Create)
			reports.GET("", h.Report.List)
			reports.GET("/stats", h.Report.Stats)
			reports.GET("/high-priority", h.Report.HighPriority)
			reports.GET("/export", h.Report.Export)
			reports.GET("/my", h.Report.Mine)
			reports.GET("/assigned", h.Report.Assigned)
			reports.GET("/equipment/:areaKey", h.Report.ByArea)
			reports.GET("/:id", h.Report.Get)
			reports.PUT("/:id", h.Report.Update)
			reports.PATCH("/:id/assign", h.Report.Assign)
			reports.PATCH("/:id/status", h.Report.ChangeStatus)
			reports.DELETE("/:id", h.Report.Delete)
			reports.POST("/:id/evidence", h.Report.AttachEvidence)
		}

		// el detalle lo puede ver cualquier usuario; el resto es de administración
		authorized.GET("/pending/:id", h.Pending.Get)
		pending := authorized.Group("/pending", middleware.RequireRole(entity.RoleAdmin))
		{
			pending.POST("", h.Pending.Create)
			pending.GET("", h.Pending.List)
			pending.GET("/export", h.Pending.Export)
			pending.PUT("/:id", h.Pending.Update)
			pending.DELETE("/:id", h.Pending.Delete)
			pending.PATCH("/:id/assign", h.Pending.Assign)
		}

		myPending := authorized.Group("/my-pending")
		{
			myPending.GET("/my", h.Pending.Mine)
			myPending.PATCH("/my/:id/complete", h.Pending.Complete)
		}

		equipment := authorized.Group("/equipment")
		{
			equipment.GET("/hierarchy", h.Equipment.Hierarchy)
			equipment.GET("/areas", h.Equipment.Areas)
			equipment.GET("/metadata", h.Equipment.Metadata)
			equipment.GET("/stats", h.Equipment.Stats)
			equipment.GET("/search", h.Equipment.Search)
			equipment.GET("/path", h.Equipment.Path)
			equipment.GET("/validate", h.Equipment.Validate)
			equipment.GET("/areas/:area/machines", h.Equipment.Machines)
			equipment.GET("/areas/:area/machines/:machine/elements", h.Equipment.Elements)
			equipment.GET("/areas/:area/machines/:machine/elements/:element/components", h.Equipment.Components)
		}

		users := authorized.Group("/users", middleware.RequireRole(entity.RoleAdmin))
		{
			users.GET("", h.User.List)
			users.GET("/pending", h.User.Pending)
			users.GET("/technicians", h.User.Technicians)
			users.PATCH("/:id/approve", h.User.Approve)
			users.PATCH("/:id/reject", h.User.Reject)
			users.PATCH("/:id/role", h.User.ChangeRole)
			users.PATCH("/:id/deactivate", h.User.Deactivate)
		}
	}
}
