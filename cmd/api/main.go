package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/80bir/marketplace-api/internal/config"
	"github.com/80bir/marketplace-api/internal/handler"
	"github.com/80bir/marketplace-api/internal/middleware"
	pgRepo "github.com/80bir/marketplace-api/internal/repository/postgres"
	"github.com/80bir/marketplace-api/internal/service"
	"github.com/80bir/marketplace-api/pkg/database"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Loading configuration from %s", configPath)

	// All required secrets are validated here; a misconfigured process never
	// reaches the point of serving requests.
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Repositories
	otpRepo := pgRepo.NewLoginOTPRepo(db)
	trustRepo := pgRepo.NewTrustedIPRepo(db)
	pushTokenRepo := pgRepo.NewPushTokenRepo(db)

	// Email provider: Resend in production, noop when disabled for local work.
	var emailService service.EmailService
	if cfg.Email.Enabled {
		resendService, err := service.NewResendEmailService(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	} else {
		log.Println("Email delivery disabled, using noop sender")
		emailService = &service.NoopEmailService{}
	}

	// Services
	otpService, err := service.NewOTPService(
		otpRepo,
		emailService,
		cfg.OTP.CodeTTL(),
		cfg.OTP.ResendCooldown(),
		cfg.OTP.MaxAttempts,
		cfg.OTP.Pepper,
	)
	if err != nil {
		log.Printf("Failed to initialize OTPService: %v", err)
		os.Exit(1)
	}

	trustService, err := service.NewTrustService(trustRepo, cfg.Trust.Window(), cfg.OTP.Pepper)
	if err != nil {
		log.Printf("Failed to initialize TrustService: %v", err)
		os.Exit(1)
	}

	tokenService, err := service.NewTokenService(cfg.Token.Secret, time.Duration(cfg.Token.ExpirySec)*time.Second)
	if err != nil {
		log.Printf("Failed to initialize TokenService: %v", err)
		os.Exit(1)
	}

	pushTokenService, err := service.NewPushTokenService(pushTokenRepo)
	if err != nil {
		log.Printf("Failed to initialize PushTokenService: %v", err)
		os.Exit(1)
	}

	mailService, err := service.NewMailService(emailService)
	if err != nil {
		log.Printf("Failed to initialize MailService: %v", err)
		os.Exit(1)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(otpService, trustService, tokenService)
	notificationHandler := handler.NewNotificationHandler(pushTokenService)
	mailHandler := handler.NewMailHandler(mailService)
	healthHandler := handler.NewHealthHandler(db)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()

	// Trusted proxy setup matters here: the trust checker derives the client
	// IP from forwarded headers. In production only the edge proxy is trusted.
	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(middleware.RequestID())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://80bir.com.tr", "https://www.80bir.com.tr", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api")
	{
		otpGroup := api.Group("/otp")
		otpGroup.Use(rateLimiter.LimitByIP(middleware.DefaultAuthRateLimitConfig()))
		{
			strict := rateLimiter.Limit(middleware.StrictOTPRateLimitConfig())
			otpGroup.POST("/start", strict, authHandler.StartOTP)
			otpGroup.POST("/verify", strict, authHandler.VerifyOTP)
			otpGroup.GET("/status", authHandler.OTPStatus)
		}

		authGroup := api.Group("/auth")
		authGroup.Use(rateLimiter.LimitByIP(middleware.DefaultAuthRateLimitConfig()))
		{
			authGroup.GET("/trust-check", authHandler.TrustCheck)
			authGroup.POST("/trust-check", authHandler.TrustCheck)
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("/register-token", notificationHandler.RegisterToken)
			notifications.DELETE("/token", notificationHandler.UnregisterToken)
			notifications.GET("/tokens/:user_id", notificationHandler.ListTokens)
		}

		mail := api.Group("/mail")
		mail.Use(rateLimiter.Limit(middleware.MailRateLimitConfig()))
		{
			mail.POST("/send", mailHandler.SendMail)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
