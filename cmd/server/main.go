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

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Yoseph1994/adventurehub/internal/config"
	"github.com/Yoseph1994/adventurehub/internal/database"
	"github.com/Yoseph1994/adventurehub/internal/handler"
	"github.com/Yoseph1994/adventurehub/internal/mail"
	"github.com/Yoseph1994/adventurehub/internal/middleware"
	"github.com/Yoseph1994/adventurehub/internal/payment"
	"github.com/Yoseph1994/adventurehub/internal/queue"
	"github.com/Yoseph1994/adventurehub/internal/repository"
	"github.com/Yoseph1994/adventurehub/internal/router"
	"github.com/Yoseph1994/adventurehub/internal/service"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	rdb := config.NewRedisClient(context.Background(), config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	smtp, err := mail.NewSMTPSender(cfg.SMTP)
	if err != nil {
		logger.Fatal("init smtp", zap.Error(err))
	}

	pub := queue.NewPublisher(cfg.RabbitURL)
	defer pub.Close()
	go queue.StartConsumer(ctx, cfg.RabbitURL, queue.EmailQueue, queue.EmailHandler(smtp))
	go queue.StartConsumer(ctx, cfg.RabbitURL, queue.BookingPaidQueue, queue.BookingLog{Dir: "logs"}.Handle)

	users := repository.NewUserRepo(db, cfg.BcryptCost)
	tours := repository.NewTourRepo(db)
	reviews := repository.NewReviewRepo(db)
	bookings := repository.NewBookingRepo(db)

	// verification and reset links are mailed inline so signup can roll back
	auth := service.NewAuthService(users, mail.NewMailer(smtp), cfg.JWTSecret, cfg.JWTExpiresIn, cfg.FrontendDomain)
	auth.Notify = queue.NewNotifier(pub)
	ratings := service.NewRatingAggregator(reviews, tours)
	stripe := payment.NewStripeClient(payment.Config{SecretKey: cfg.StripeSecretKey, APIURL: cfg.StripeAPIURL, MaxRetries: 2})

	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, auth),
		Users:    handler.NewUserHandler(auth),
		Tours:    handler.NewTourHandler(service.NewTourService(tours, reviews)),
		Reviews:  handler.NewReviewHandler(service.NewReviewService(reviews, tours, ratings)),
		Bookings: handler.NewBookingHandler(service.NewBookingService(bookings, tours, stripe, pub, cfg.PaymentCurrency, cfg.PublicURL)),
	}
	limits := router.Limits{
		API:   config.LoadRateLimitConfig(),
		Auth:  config.LoadAuthRateLimitConfig(),
		Cache: config.LoadCacheConfig(),
		Redis: rdb,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewErrorHandler(cfg)
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("10M"))

	router.RegisterRoutes(e)
	router.RegisterAPI(e, handlers, auth, limits)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
