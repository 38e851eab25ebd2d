package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"efs-platform/backend/config"
	"efs-platform/backend/internal/api/handler"
	"efs-platform/backend/internal/api/middleware"
	"efs-platform/backend/pkg/jwt"
	"efs-platform/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// db 仅用于健康检查，可为 nil
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(db))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		calendar := v1.Group("/calendar")
		calendar.Use(middleware.JWTAuth(jwtMgr, rdb))
		calendar.Use(middleware.RateLimit(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window))
		{
			// 课程目录与日历
			calendar.GET("/sessions", h.Calendar.ListSessions)
			calendar.GET("/occurrences", h.Calendar.ListOccurrences)
			calendar.POST("/conflicts", h.Calendar.CheckConflicts)
			calendar.DELETE("/catalog/cache", middleware.RoleAuth("admin"), h.Calendar.InvalidateCatalog)

			// 个人课表（学号取自 Token）
			me := calendar.Group("/me")
			{
				me.GET("", h.Calendar.GetMyTimetable)
				me.PUT("", h.Calendar.SaveTimetable)
				me.POST("/sessions/:id", h.Calendar.AddSession)
				me.DELETE("/sessions/:id", h.Calendar.RemoveSession)
				me.DELETE("/sessions", h.Calendar.ClearSessions)
				me.GET("/export.xlsx", h.Export.ExportXLSX)
				me.GET("/export.ics", h.Export.ExportICS)
			}
		}
	}

	return r
}

// healthCheck 数据库不可达时返回 503，供负载均衡摘除实例
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
				defer cancel()
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
