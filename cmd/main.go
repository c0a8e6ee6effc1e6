package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"HoldemSync/config"
	"HoldemSync/internal/chat"
	"HoldemSync/internal/fanout"
	"HoldemSync/internal/game/dealer"
	"HoldemSync/internal/game/manager"
	"HoldemSync/internal/middleware"
	"HoldemSync/internal/presence"
	"HoldemSync/internal/push"
	"HoldemSync/internal/relay"
	"HoldemSync/internal/storage"
	"HoldemSync/internal/tablestore"
	"HoldemSync/internal/utils"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	if err := config.Load(*configPath); err != nil {
		log.Fatal("load config", "err", err)
	}
	logger := utils.NewLogger(config.C.Log.Level)
	logger.Info("starting node", "node", config.C.Node.ID, "store", config.C.Store.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//-------------------------------------------------------
	// 1. 初始化 Redis（注册表和 relay 必须依赖 Redis）
	//-------------------------------------------------------
	rdb, err := storage.ConnectRedis(ctx, &redis.Options{
		Addr:     config.C.Redis.Addr,
		Password: config.C.Redis.Password,
		DB:       config.C.Redis.DB,
	}, config.C.Retry, logger)
	if err != nil {
		logger.Fatal("redis init failed", "err", err)
	}
	defer rdb.Close()

	//-------------------------------------------------------
	// 2. 牌桌存储
	//-------------------------------------------------------
	repo, closeRepo := openStore(ctx, rdb, logger)
	defer closeRepo()

	//-------------------------------------------------------
	// 3. 注册表、relay、Hub
	//-------------------------------------------------------
	reg := presence.NewRedisRegistry(rdb)
	rl := relay.New(rdb, config.C.Retry, logger)

	hub := push.NewHub(reg, push.Options{
		Heartbeat:  config.C.Stream.Heartbeat,
		SendBuffer: config.C.Stream.SendBuffer,
	}, logger)
	chatSvc := chat.NewService(rl, reg, logger)
	hub.OnIncoming = chatSvc.IncomingHandler(hub)
	go hub.Run()

	msgs, err := rl.Subscribe(ctx, relay.AllPatterns...)
	if err != nil {
		logger.Fatal("relay subscribe failed", "err", err)
	}
	dispatcher := fanout.NewDispatcher(hub, reg, logger)
	go func() {
		if err := dispatcher.Run(ctx, msgs); err != nil {
			// relay 断开后本节点无法保证推送，直接退出
			logger.Fatal("fan-out stopped", "err", err)
		}
	}()

	//-------------------------------------------------------
	// 4. 牌桌服务
	//-------------------------------------------------------
	mgr := manager.New(repo, dealer.NewDealer(time.Now().UnixNano()), rl, reg, manager.Options{
		Defaults: manager.Defaults{
			SmallBlind: config.C.Table.SmallBlind,
			BigBlind:   config.C.Table.BigBlind,
			MaxPlayers: config.C.Table.MaxPlayers,
			MinPlayers: config.C.Table.MinPlayers,
			Stack:      config.C.Table.Stack,
		},
		RetryAttempts: config.C.Retry.MaxAttempts,
	}, logger)

	//-------------------------------------------------------
	// 5. Gin + CORS + 路由
	//-------------------------------------------------------
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": config.C.Node.ID})
	})

	secret := []byte(config.C.JWT.Secret)
	auth := r.Group("/", middleware.JwtAuthMiddleware(secret))
	{
		ph := push.NewHandler(hub, reg, rl, config.C.Node.ID, logger)
		auth.GET("/ws", ph.ServeWS)
		auth.GET("/api/events", ph.ServeSSE)

		manager.NewHandler(mgr).Register(auth)

		ch := chat.NewHandler(chatSvc)
		auth.POST("/api/chat/global", ch.Global)
		auth.POST("/api/chat/rooms/:roomId", ch.Room)
		auth.POST("/api/chat/private/:userId", ch.Private)

		pr := presence.NewHandler(reg)
		auth.GET("/api/presence/online", pr.Online)
		auth.GET("/api/presence/rooms/:roomId", pr.RoomMembers)
	}

	//-------------------------------------------------------
	// 6. 启动服务器，收到信号后优雅退出
	//-------------------------------------------------------
	srv := &http.Server{Addr: ":" + config.C.Server.Port, Handler: r}
	go func() {
		logger.Info("server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	// 先关 Hub：SSE 请求在连接关闭前不会返回
	hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "err", err)
	}
}

func openStore(ctx context.Context, rdb *redis.Client, logger *log.Logger) (tablestore.Repo, func()) {
	switch config.C.Store.Backend {
	case "postgres":
		db, err := storage.InitPostgres(ctx, config.C.Database.DSN, config.C.Retry, logger)
		if err != nil {
			logger.Fatal("postgres init failed", "err", err)
		}
		if err := tablestore.EnsureSchema(ctx, db); err != nil {
			logger.Fatal("postgres schema", "err", err)
		}
		return tablestore.NewPostgresRepo(db), func() { _ = db.Close() }
	case "memory":
		logger.Warn("memory store: tables are not shared between nodes")
		return tablestore.NewMemoryRepo(), func() {}
	}
	return tablestore.NewRedisRepo(rdb), func() {}
}
