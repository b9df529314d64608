package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RoomFM/config"
	"RoomFM/core/coin"
	"RoomFM/core/moderation"
	"RoomFM/core/notify"
	"RoomFM/core/playlist"
	"RoomFM/core/request"
	"RoomFM/core/resolve"
	"RoomFM/core/room"
	"RoomFM/core/suggest"
	"RoomFM/db"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/repository"
	"RoomFM/storage"
	"RoomFM/store"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/roomfm.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseDB()

	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect GORM: %v", err)
	}
	defer db.CloseGormDB()
	if err := db.AutoMigrateModels(&model.CoinPurchase{}); err != nil {
		log.Fatalf("Failed to migrate models: %v", err)
	}

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	// Exports need object storage, everything else does not. Keep the
	// server up when MinIO is absent.
	var exporter *storage.Exporter
	if err := storage.InitMinio(cfg); err != nil {
		logger.Warn("MinIO unavailable, dataset exports disabled", logger.ErrorField(err))
	}

	roomStore := store.NewRoomStore(db.RedisClient)
	coinStore := store.NewCoinStore(db.RedisClient)
	requestStore := store.NewRequestStore(db.RedisClient)
	notificationStore := store.NewNotificationStore(db.RedisClient)

	if storage.GetMinioClient() != nil {
		exporter = storage.NewExporter(roomStore, requestStore, cfg.MinioBucket)
	}

	userRepo := repository.NewMySQLUserRepository(db.DB)
	purchaseRepo := repository.NewGormPurchaseRepository(db.GormDB)

	suggester := suggest.NewClient(&suggest.ClientConfig{
		APIBaseURL:  cfg.LLMAPIBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})
	resolver := resolve.NewClient(cfg.CatalogAPIURL)
	scorer := moderation.NewLLMScorer(&moderation.LLMScorerConfig{
		APIBaseURL:  cfg.LLMAPIBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	})

	builder := playlist.NewBuilder(suggester, resolver)
	ordering := playlist.NewOrdering(roomStore)
	ledger := coin.NewLedger(coinStore)
	purchases := coin.NewPurchaseService(ledger, purchaseRepo)
	moderator := moderation.NewModerator(scorer)
	notifier := notify.NewNotifier(notificationStore)
	roomService := room.NewService(roomStore, builder, ordering, cfg)
	requestService := request.NewService(roomStore, requestStore, ledger, ordering, moderator, notifier)

	hub := room.NewHub(roomStore)
	go hub.Run()
	defer hub.Stop()

	apiHandler := NewAPIHandler(userRepo, roomService, requestService, ledger, purchases,
		ordering, notifier, exporter, hub, roomStore, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// 房间相关的API端点
	router.HandleFunc("/api/rooms", apiHandler.ListRoomsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms", apiHandler.AuthMiddleware(apiHandler.CreateRoomHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{room}", apiHandler.GetRoomHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{room}", apiHandler.AuthMiddleware(apiHandler.DeleteRoomHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/rooms/{room}/settings", apiHandler.AuthMiddleware(apiHandler.UpdateRoomSettingsHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/rooms/{room}/prices", apiHandler.AuthMiddleware(apiHandler.SetPricesHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/rooms/{room}/extend", apiHandler.AuthMiddleware(apiHandler.ExtendPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{room}/ws", apiHandler.RoomWSHandler).Methods(http.MethodGet)

	// 播放列表相关的API端点
	router.HandleFunc("/api/rooms/{room}/playlist", apiHandler.PlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{room}/playlist/pin", apiHandler.AuthMiddleware(apiHandler.PinTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{room}/playlist/remove", apiHandler.AuthMiddleware(apiHandler.RemoveTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{room}/playback", apiHandler.PlaybackStateHandler).Methods(http.MethodGet)

	// 点歌相关的API端点
	router.HandleFunc("/api/rooms/{room}/requests", apiHandler.SubmitRequestHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/rooms/{room}/requests/pending", apiHandler.AuthMiddleware(apiHandler.PendingRequestsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{room}/requests/history", apiHandler.RequestHistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/requests/{id}/approve", apiHandler.AuthMiddleware(apiHandler.ApproveRequestHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/requests/{id}/reject", apiHandler.AuthMiddleware(apiHandler.RejectRequestHandler)).Methods(http.MethodPost)

	// 金币相关的API端点
	router.HandleFunc("/api/coins/balance", apiHandler.AuthMiddleware(apiHandler.BalanceHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/coins/activity", apiHandler.AuthMiddleware(apiHandler.CoinActivityHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/coins/purchases", apiHandler.AuthMiddleware(apiHandler.PurchaseHistoryHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/payment/webhook", apiHandler.PaymentWebhookHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/admin/coins/{username}", apiHandler.AuthMiddleware(apiHandler.AdminMiddleware(apiHandler.SetBalanceHandler))).Methods(http.MethodPut)
	router.HandleFunc("/api/admin/users/{username}/role", apiHandler.AuthMiddleware(apiHandler.AdminMiddleware(apiHandler.UpdateRoleHandler))).Methods(http.MethodPut)

	// 通知相关的API端点
	router.HandleFunc("/api/notifications", apiHandler.AuthMiddleware(apiHandler.NotificationsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/notifications/unread", apiHandler.AuthMiddleware(apiHandler.UnreadCountHandler)).Methods(http.MethodGet)

	// 数据导出
	router.HandleFunc("/api/admin/export", apiHandler.AuthMiddleware(apiHandler.AdminMiddleware(apiHandler.ExportHandler))).Methods(http.MethodPost)

	server.Handler = router

	// Reload prices and LLM settings when .env changes.
	closeWatch, err := config.Watch(".env", func(fresh *config.Config) {
		roomService.SetDefaultPrices(fresh.DefaultRequestPrice, fresh.DefaultPinPrice)
		suggester.UpdateConfig(&suggest.ClientConfig{
			APIBaseURL:  fresh.LLMAPIBaseURL,
			APIKey:      fresh.LLMAPIKey,
			Model:       fresh.LLMModel,
			MaxTokens:   fresh.LLMMaxTokens,
			Temperature: fresh.LLMTemperature,
		})
		scorer.UpdateConfig(&moderation.LLMScorerConfig{
			APIBaseURL:  fresh.LLMAPIBaseURL,
			APIKey:      fresh.LLMAPIKey,
			Model:       fresh.LLMModel,
			MaxTokens:   fresh.LLMMaxTokens,
			Temperature: fresh.LLMTemperature,
		})
		logger.Info("Configuration reloaded",
			logger.Int("default_request_price", fresh.DefaultRequestPrice),
			logger.Int("default_pin_price", fresh.DefaultPinPrice),
			logger.String("llm_model", fresh.LLMModel))
	})
	if err != nil {
		logger.Warn("Config watch unavailable", logger.ErrorField(err))
	} else {
		defer closeWatch()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s...", cfg.ServerAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
