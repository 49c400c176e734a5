package router

import (
	"fmt"
	"strings"

	"github.com/movelink-next/internal/cache"
	"github.com/movelink-next/internal/config"
	adminhandlers "github.com/movelink-next/internal/http/handlers/admin"
	publichandlers "github.com/movelink-next/internal/http/handlers/public"
	"github.com/movelink-next/internal/logger"
	"github.com/movelink-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ml"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetCurrentUser)

			// 站内通知
			user.GET("/me/notifications", publicHandler.GetMyNotifications)
			user.GET("/me/notifications/unread-count", publicHandler.GetUnreadNotificationCount)
			user.POST("/me/notifications/:id/read", publicHandler.MarkNotificationRead)
			user.POST("/me/notifications/read-all", publicHandler.MarkAllNotificationsRead)

			// 托管资金（双方可查）
			user.GET("/payments/:id", publicHandler.GetPayment)
			user.GET("/payments/by-quote/:quote_id", publicHandler.GetPaymentByQuoteID)
			user.GET("/payments/:id/refundable", publicHandler.GetRemainingRefundable)

			// 放款申请（搬家公司）
			user.POST("/payments/:id/release-requests", publicHandler.CreateReleaseRequest)
			user.GET("/release-requests/:id", publicHandler.GetReleaseRequest)

			// 退款申请（客户）
			user.POST("/payments/:id/refunds", publicHandler.CreateRefund)
			user.GET("/refunds", publicHandler.ListMyRefunds)
			user.GET("/refunds/:id", publicHandler.GetRefund)

			// 搬家任务进度
			user.POST("/missions/ensure", publicHandler.EnsureMission)
			user.GET("/missions/:id", publicHandler.GetMission)
			user.GET("/missions/by-quote/:quote_id", publicHandler.GetMissionByQuoteID)
			user.POST("/missions/:id/transition", publicHandler.TransitionMission)
			user.POST("/missions/:id/evidence", publicHandler.AttachMissionEvidence)
			user.GET("/missions/:id/evidence", publicHandler.ListMissionEvidence)

			// 损坏报告
			user.POST("/missions/:id/damage-reports", publicHandler.FileDamageReport)
			user.GET("/damage-reports/:id", publicHandler.GetDamageReport)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 仪表盘
				authorized.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				authorized.GET("/dashboard/trends", adminHandler.GetDashboardTrends)

				// 托管资金管理
				authorized.POST("/payments", adminHandler.CreatePayment)
				authorized.GET("/payments", adminHandler.ListPayments)
				authorized.GET("/payments/:id", adminHandler.GetPayment)
				authorized.GET("/payments/:id/audit-logs", adminHandler.ListPaymentAuditLogs)
				authorized.POST("/payments/:id/mark-deposit-paid", adminHandler.MarkDepositPaid)
				authorized.POST("/payments/:id/mark-fully-paid", adminHandler.MarkFullyPaid)

				// 保证金裁决
				authorized.POST("/payments/:id/guarantee-decision", adminHandler.DecideGuarantee)
				authorized.GET("/payments/:id/guarantee-decisions", adminHandler.ListGuaranteeDecisions)

				// 放款申请审批
				authorized.GET("/release-requests", adminHandler.ListReleaseRequests)
				authorized.GET("/release-requests/:id", adminHandler.GetReleaseRequest)
				authorized.POST("/release-requests/:id/approve", adminHandler.ApproveReleaseRequest)
				authorized.POST("/release-requests/:id/reject", adminHandler.RejectReleaseRequest)

				// 退款审批
				authorized.GET("/refunds", adminHandler.ListRefunds)
				authorized.GET("/refunds/:id", adminHandler.GetRefund)
				authorized.POST("/refunds/:id/approve", adminHandler.ApproveRefund)
				authorized.POST("/refunds/:id/reject", adminHandler.RejectRefund)

				// 损坏报告处理
				authorized.GET("/damage-reports", adminHandler.ListDamageReports)
				authorized.GET("/damage-reports/:id", adminHandler.GetDamageReport)
				authorized.POST("/damage-reports/:id/review", adminHandler.ReviewDamageReport)
				authorized.POST("/damage-reports/:id/resolve", adminHandler.ResolveDamageReport)
				authorized.POST("/damage-reports/:id/reject", adminHandler.RejectDamageReport)

				// 任务与用户
				authorized.GET("/missions", adminHandler.ListMissions)
				authorized.GET("/missions/:id", adminHandler.GetMission)
				authorized.GET("/users", adminHandler.ListUsers)
				authorized.GET("/users/:id", adminHandler.GetUser)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
