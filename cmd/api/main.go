package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tefamart/tefamart-backend/api/routes"
	"github.com/tefamart/tefamart-backend/internal/auctions"
	"github.com/tefamart/tefamart-backend/internal/auth"
	"github.com/tefamart/tefamart-backend/internal/campuses"
	"github.com/tefamart/tefamart-backend/internal/categories"
	"github.com/tefamart/tefamart-backend/internal/comments"
	"github.com/tefamart/tefamart-backend/internal/memberships"
	"github.com/tefamart/tefamart-backend/internal/notifications"
	"github.com/tefamart/tefamart-backend/internal/products"
	"github.com/tefamart/tefamart-backend/internal/requests"
	"github.com/tefamart/tefamart-backend/internal/tefas"
	"github.com/tefamart/tefamart-backend/internal/users"
	"github.com/tefamart/tefamart-backend/pkg/auth/session"
	"github.com/tefamart/tefamart-backend/pkg/config"
	"github.com/tefamart/tefamart-backend/pkg/db"
	"github.com/tefamart/tefamart-backend/pkg/logger"
	"github.com/tefamart/tefamart-backend/pkg/metrics"
	"github.com/tefamart/tefamart-backend/pkg/migrate"
	"github.com/tefamart/tefamart-backend/pkg/outbox"
	"github.com/tefamart/tefamart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	membershipRepo := memberships.NewRepository(dbClient.DB())
	campusRepo := campuses.NewRepository(dbClient.DB())
	categoryRepo := categories.NewRepository(dbClient.DB())
	tefaRepo := tefas.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	requestRepo := requests.NewRepository(dbClient.DB())
	auctionRepo := auctions.NewRepository(dbClient.DB())
	commentRepo := comments.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:        userRepo,
		MembershipsRepo: membershipRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	switchTefaService, err := auth.NewSwitchTefaService(auth.SwitchTefaServiceParams{
		MembershipsRepo: membershipRepo,
		SessionManager:  sessionManager,
		JWTConfig:       cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create switch-tefa service", err)
		os.Exit(1)
	}

	campusService, err := campuses.NewService(campusRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create campus service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(categoryRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create category service", err)
		os.Exit(1)
	}

	tefaService, err := tefas.NewService(tefas.ServiceParams{
		DB:              dbClient,
		Repo:            tefaRepo,
		MembershipsRepo: membershipRepo,
		UsersRepo:       userRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tefa service", err)
		os.Exit(1)
	}

	productService, err := products.NewService(products.ServiceParams{
		Repo:            productRepo,
		MembershipsRepo: membershipRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	requestService, err := requests.NewService(requests.ServiceParams{
		DB:              dbClient,
		Repo:            requestRepo,
		ProductsRepo:    productRepo,
		TefasRepo:       tefaRepo,
		MembershipsRepo: membershipRepo,
		Notifications:   notificationService,
		Outbox:          outboxService,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create request service", err)
		os.Exit(1)
	}

	auctionMetrics := metrics.NewAuctionMetrics(prometheus.DefaultRegisterer)
	auctionService, err := auctions.NewService(auctions.ServiceParams{
		DB:              dbClient,
		Config:          cfg.Auction,
		Repo:            auctionRepo,
		ProductsRepo:    productRepo,
		MembershipsRepo: membershipRepo,
		Notifications:   notificationService,
		Outbox:          outboxService,
		Metrics:         auctionMetrics,
		Logger:          logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auction service", err)
		os.Exit(1)
	}

	commentService, err := comments.NewService(comments.ServiceParams{
		Repo:            commentRepo,
		ProductsRepo:    productRepo,
		MembershipsRepo: membershipRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create comment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:            cfg,
			Logger:            logg,
			DB:                dbClient,
			Redis:             redisClient,
			SessionManager:    sessionManager,
			MembershipChecker: membershipRepo,

			AuthService:       authService,
			RegisterService:   registerService,
			SwitchTefaService: switchTefaService,

			CampusService:       campusService,
			CategoryService:     categoryService,
			TefaService:         tefaService,
			ProductService:      productService,
			RequestService:      requestService,
			AuctionService:      auctionService,
			CommentService:      commentService,
			NotificationService: notificationService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
