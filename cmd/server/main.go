package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epicstrade/rifas/internal/clock"
	"github.com/epicstrade/rifas/internal/config"
	"github.com/epicstrade/rifas/internal/database"
	"github.com/epicstrade/rifas/internal/handler"
	"github.com/epicstrade/rifas/internal/jobs"
	"github.com/epicstrade/rifas/internal/middleware"
	"github.com/epicstrade/rifas/internal/notify"
	"github.com/epicstrade/rifas/internal/repository"
	"github.com/epicstrade/rifas/internal/service"
	"github.com/epicstrade/rifas/internal/steam"
	"github.com/epicstrade/rifas/pkg/jwt"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			slog.Error("failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	notifier, err := notify.New(cfg.Telegram, logger)
	if err != nil {
		slog.Error("failed to initialize telegram notifier", slog.String("error", err.Error()))
		os.Exit(1)
	}

	clk := clock.NewSystem()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	raffleRepo := repository.NewRaffleRepository(db)
	auctionRepo := repository.NewAuctionRepository(db)
	moderationRepo := repository.NewModerationRepository(db)
	supportRepo := repository.NewSupportRepository(db)

	// Steam
	steamHTTP := &http.Client{Timeout: 15 * time.Second}
	steamClient := steam.NewClient(steam.Config{
		APIKey:     cfg.Steam.APIKey,
		Currency:   cfg.Steam.Currency,
		HTTPClient: steamHTTP,
	})
	openID := steam.NewOpenID(cfg.Steam.Realm, cfg.Steam.CallbackURL, steamHTTP)

	// Services
	hub := service.NewEventHub()

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService: jwtService,
		TokenRepo:  tokenRepo,
		Clock:      clk,
	})

	walletService := service.NewWalletService(walletRepo, hub, logger)

	raffleService := service.NewRaffleService(service.RaffleServiceConfig{
		Raffles:         raffleRepo,
		Users:           userRepo,
		Wallets:         walletRepo,
		Events:          hub,
		Notifier:        notifier,
		Clock:           clk,
		Logger:          logger,
		MaxTickets:      cfg.Raffle.MaxTickets,
		MaxPerPurchase:  cfg.Raffle.MaxPerPurchase,
		PointsPerTicket: cfg.Wallet.PointsPerTicket,
		FeePercent:      cfg.Raffle.FeePercent,
	})

	auctionService := service.NewAuctionService(service.AuctionServiceConfig{
		Auctions:        auctionRepo,
		Users:           userRepo,
		Wallets:         walletRepo,
		Events:          hub,
		Notifier:        notifier,
		Clock:           clk,
		Logger:          logger,
		MinIncrement:    cfg.Auction.MinIncrement,
		AntiSnipeWindow: cfg.Auction.AntiSnipeWindow,
		AntiSnipeExtend: cfg.Auction.AntiSnipeExtend,
		FeePercent:      cfg.Auction.FeePercent,
		MinDuration:     cfg.Auction.MinDuration,
		MaxDuration:     cfg.Auction.MaxDuration,
	})

	authService := service.NewAuthService(service.AuthServiceConfig{
		Users:           userRepo,
		OpenID:          openID,
		Profiles:        steamClient,
		Tokens:          tokenService,
		Admins:          cfg.Admin,
		StartingBalance: cfg.Wallet.StartingBalance,
		Logger:          logger,
	})

	inventoryService := service.NewInventoryService(steamClient, cfg.Steam.PriceTTL, clk, logger)

	moderationService := service.NewModerationService(service.ModerationServiceConfig{
		Reports:  moderationRepo,
		Support:  supportRepo,
		Users:    userRepo,
		Raffles:  raffleRepo,
		Auctions: auctionRepo,
		Events:   hub,
		Notifier: notifier,
		Logger:   logger,
	})

	adminService := service.NewAdminService(service.AdminServiceConfig{
		Users:      userRepo,
		Wallets:    walletService,
		Raffles:    raffleService,
		Auctions:   auctionService,
		Moderation: moderationRepo,
		Support:    supportRepo,
		Tokens:     tokenService,
		Clock:      clk,
		Logger:     logger,
	})

	faqService := service.NewFAQService(service.DefaultFAQ)

	// Background jobs
	backgroundJobs := []*jobs.Periodic{
		jobs.NewRaffleDrawer(raffleService, cfg.Raffle.DrawInterval),
		jobs.NewAuctionSettler(auctionService, cfg.Auction.SettleInterval),
		jobs.NewTokenCleanup(tokenService, time.Hour),
		jobs.NewPricePurge(inventoryService, cfg.Steam.PriceTTL),
	}
	for _, job := range backgroundJobs {
		job.Start()
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{Clock: clk})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{Clock: clk})
	defer idempotencyStore.Stop()

	mux := http.NewServeMux()
	registerRoutes(mux, routeDeps{
		auth: handler.NewAuthHandler(handler.AuthHandlerConfig{
			Auth:          authService,
			FrontendURL:   cfg.Server.FrontendURL,
			SecureCookies: cfg.IsProduction(),
		}),
		wallet:     handler.NewWalletHandler(walletService),
		raffle:     handler.NewRaffleHandler(raffleService),
		auction:    handler.NewAuctionHandler(auctionService),
		steam:      handler.NewSteamHandler(inventoryService),
		moderation: handler.NewModerationHandler(moderationService),
		admin:      handler.NewAdminHandler(adminService),
		faq:        handler.NewFAQHandler(faqService),
		events: handler.NewEventsHandler(handler.EventsHandlerConfig{
			Hub:      hub,
			Raffles:  raffleService,
			Auctions: auctionService,
		}),
		db:          db,
		tokens:      tokenService,
		rateLimiter: rateLimiter,
		idempotency: idempotencyStore,
	})

	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	for _, job := range backgroundJobs {
		job.Stop()
	}
	// Ends open SSE streams so Shutdown does not wait on them
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	if closer, ok := notifier.(interface{ Close() }); ok {
		closer.Close()
	}

	slog.Info("server exited")
}
