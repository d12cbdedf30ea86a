package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fpiersk/config"
	"fpiersk/internal/handler"
	"fpiersk/internal/service"
	"fpiersk/internal/session"
	"fpiersk/internal/store"
	"fpiersk/pkg/jwt"
	"fpiersk/pkg/logger"
	"fpiersk/pkg/redis"
	"fpiersk/pkg/response"
	"fpiersk/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== Fpiersk服务启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("store_path", cfg.Store.Path),
		zap.String("images_dir", cfg.Store.ImagesDir),
		zap.Duration("poll_interval", cfg.Store.PollInterval),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化Redis（仅在线状态，失败时降级运行）
	if err := redis.InitRedis(cfg.Redis); err != nil {
		log.Warn("Redis不可用，在线状态功能降级", zap.Error(err))
	} else {
		defer redis.Close()
		log.Info("Redis连接成功")
	}

	// 3.1 初始化存储与业务服务
	userStore := store.NewUserStore(cfg.Store.Path)
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	friendSvc := service.NewFriendService(userStore)
	messageSvc := service.NewMessageService(userStore)
	attachmentSvc := service.NewAttachmentService(cfg.Store.ImagesDir)
	userSvc := service.NewUserService(userStore, jwtSvc)
	sessions := session.NewManager(userStore, friendSvc, messageSvc, cfg.Store.PollInterval)
	defer sessions.StopAll()

	userHandler := handler.NewUserHandler(userSvc, sessions)
	messageHandler := handler.NewMessageHandler(sessions, attachmentSvc)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()

	// 注入配置与会话管理器到Gin context，供WebSocket使用
	router.Use(func(c *gin.Context) {
		c.Set("jwt_config", cfg.JWT)
		c.Set("ws_config", cfg.WebSocket)
		c.Set("session_manager", sessions)
		c.Next()
	})

	// 使用中间件
	router.Use(logger.LoggerMiddleware())      // 自定义日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // 错误日志中间件

	// 6. 设置基础路由
	setupBasicRoutes(router, userStore)

	// 6.1 绑定业务路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的接口
			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.POST("/logout", userHandler.Logout)
				authUsers.GET("/online", userHandler.GetOnlineUsers)
			}
		}

		// 好友路由（需要认证）
		friends := v1.Group("/friends")
		friends.Use(jwtSvc.AuthMiddleware())
		{
			friends.GET("", userHandler.GetFriends)
			friends.POST("", userHandler.AddFriend)
		}

		// 消息路由（需要认证）
		messages := v1.Group("/messages")
		messages.Use(jwtSvc.AuthMiddleware())
		{
			messages.POST("/send", messageHandler.SendMessage) // 发送文本消息
			messages.POST("/image", messageHandler.SendImage)  // 发送图片消息
		}

		// 会话历史（需要认证）
		conversations := v1.Group("/conversations")
		conversations.Use(jwtSvc.AuthMiddleware())
		{
			conversations.GET("/:nick/messages", messageHandler.GetConversation)
		}
	}

	// 图片附件静态访问
	router.Static("/images", cfg.Store.ImagesDir)

	// WebSocket路由
	router.GET("/ws", websocket.WsHandler)

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, userStore *store.UserStore) {
	// 健康检查
	// 完整url为：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := userStore.HealthCheck(); err != nil {
			status = "store-down"
		}
		response.Success(c, gin.H{
			"status":  status,
			"message": "Fpiersk运行状态",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// 根路径
	// 完整url为：http://localhost:8080/
	router.GET("/", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "欢迎使用Fpiersk",
			"version": "1.0.0",
		})
	})
}
