package router

import (
	"github.com/blues/cfp/internal/handler"
	"github.com/blues/cfp/internal/logic"
	"github.com/gin-gonic/gin"
)

func Setup(projectLogic *logic.ProjectLogic, rewardLogic *logic.RewardLogic,
	backingLogic *logic.BackingLogic, settlementLogic *logic.SettlementLogic,
	dashboardLogic *logic.DashboardLogic) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "crowdfunding-platform",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 项目相关路由
		projectHandler := handler.NewProjectHandler(projectLogic, rewardLogic)
		backingHandler := handler.NewBackingHandler(backingLogic, settlementLogic)
		dashboardHandler := handler.NewDashboardHandler(dashboardLogic)

		projects := v1.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.GetProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("/:id/submit", projectHandler.SubmitForReview)
			projects.POST("/:id/approve", projectHandler.ApproveProject)
			projects.POST("/:id/reject", projectHandler.RejectProject)
			projects.POST("/:id/cancel", projectHandler.CancelProject)
			projects.POST("/:id/rewards", projectHandler.CreateReward)
			projects.GET("/:id/rewards", projectHandler.GetProjectRewards)
			projects.POST("/:id/updates", projectHandler.CreateProjectUpdate)
			projects.GET("/:id/updates", projectHandler.GetProjectUpdates)
			projects.POST("/:id/backings", backingHandler.CreateBacking)
			projects.POST("/:id/settle", backingHandler.EndFunding)
			projects.GET("/:id/details", dashboardHandler.GetProjectDetails)
		}

		// 支持记录相关路由
		backings := v1.Group("/backings")
		{
			backings.GET("/:id", backingHandler.GetBacking)
			backings.POST("/:id/confirm", backingHandler.ConfirmPayment)
			backings.POST("/:id/cancel", backingHandler.CancelBacking)
		}

		// 看板相关路由
		dashboards := v1.Group("/dashboards")
		{
			dashboards.GET("/creators/:creatorId", dashboardHandler.GetCreatorDashboard)
			dashboards.GET("/backers/:backerId", dashboardHandler.GetBackerDashboard)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
