package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"meal-journal/config"
	"meal-journal/handlers"
	"meal-journal/logging"
	"meal-journal/metrics"
	"meal-journal/middleware"
	"meal-journal/models"
	"meal-journal/services"
	"meal-journal/utils"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Meal{},
		&models.Tag{},
		&models.MealTag{},
		&models.Ingredient{},
		&models.MealIngredient{},
		&models.Ranking{},
	); err != nil {
		logging.Fatal().Err(err).Msg("failed to migrate database")
	}

	photos, err := newPhotoStore(ctx, cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize photo storage")
	}

	ratings := services.NewRatingStore(db)
	mealService := services.NewMealService(db, services.NewStreakTracker())
	comparisonService := services.NewComparisonService(db, ratings, mealService)
	leaderboardService := services.NewLeaderboardService(db, ratings)
	userService := services.NewUserService(db, mealService, leaderboardService)
	authService := services.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var janitor *services.CatalogJanitor
	if cfg.Janitor.Enabled {
		janitor = services.NewCatalogJanitor(db, cfg.Janitor.Interval)
		if err := janitor.Start(ctx); err != nil {
			logging.Fatal().Err(err).Msg("failed to start catalog janitor")
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:   cfg.Server.BodyLimitMB * 1024 * 1024,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOriginsList(), ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := middleware.UserContextMiddleware(authService)
	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupMealRoutes(app, auth, mealService, photos)
	handlers.SetupRankingRoutes(app, auth, comparisonService, leaderboardService)
	handlers.SetupUserRoutes(app, auth, userService, photos)

	if cfg.Storage.Driver == "local" {
		app.Static("/uploads", cfg.Storage.LocalDir)
	}

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
			logging.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	logging.Info().
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Bool("janitor", cfg.Janitor.Enabled).
		Strs("allowed_origins", cfg.Server.AllowedOriginsList()).
		Msg("server running")

	<-ctx.Done()
	logging.Info().Msg("shutting down server")

	if janitor != nil {
		if err := janitor.Stop(); err != nil {
			logging.Warn().Err(err).Msg("failed to stop catalog janitor")
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logging.Warn().Err(err).Msg("server shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

func newPhotoStore(ctx context.Context, cfg config.StorageConfig) (utils.PhotoStore, error) {
	maxBytes := int64(cfg.MaxPhotoMB) * 1024 * 1024
	if cfg.Driver == "r2" {
		return utils.NewR2Store(ctx, utils.R2Options{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
			MaxBytes:        maxBytes,
		})
	}
	return utils.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL, maxBytes)
}
