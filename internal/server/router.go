package server

import (
	"crew-connect/internal/changeorder"
	"crew-connect/internal/config"
	"crew-connect/internal/handlers"
	"crew-connect/internal/middleware"
	"crew-connect/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(cfg *config.Config, db *gorm.DB, workflow *changeorder.Workflow, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Instrument())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 12 * 60 * 60})
	r.Use(sessions.Sessions("crew_session", store))

	r.Use(middleware.InjectUser(db))

	h := handlers.New(db, workflow, log)

	// AUTH
	r.POST("/login", h.Login)
	r.GET("/logout", handlers.Logout)

	// HEALTHCHECK / METRICS
	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	editors := middleware.RequireRole(models.RoleAdmin, models.RoleProjectManager)
	requesters := middleware.RequireRole(models.RoleAdmin, models.RoleProjectManager, models.RoleEstimator)

	// USERS
	auth.POST("/users", middleware.RequireRole(models.RoleAdmin), h.CreateUser)

	// PROJECTS
	auth.GET("/projects", h.ListProjects)
	auth.POST("/projects", editors, h.CreateProject)
	auth.GET("/projects/:id", h.GetProject)
	auth.GET("/projects/:id/budget-items", h.ListBudgetItems)
	auth.GET("/projects/:id/history", editors, h.ShowProjectHistory)

	// WORK ORDERS
	auth.GET("/work-orders", h.ListWorkOrders)
	auth.POST("/work-orders", editors, h.CreateWorkOrder)
	auth.GET("/work-orders/:id", h.GetWorkOrder)

	// CHANGE ORDERS
	// finer-grained transition rules live in the workflow
	auth.GET("/change-orders", h.ListChangeOrders)
	auth.POST("/change-orders", requesters, h.CreateChangeOrder)
	auth.GET("/change-orders/:id", h.GetChangeOrder)
	auth.POST("/change-orders/:id/status", requesters, h.ChangeChangeOrderStatus)

	// AUDIT
	auth.GET("/audit", middleware.RequireRole(models.RoleAdmin, models.RoleViewer), h.ListAuditLogs)

	return r
}
