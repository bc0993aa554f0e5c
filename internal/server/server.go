package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"techstore-api/internal/config"
	"techstore-api/internal/database"
	custommiddleware "techstore-api/internal/middleware"
	"techstore-api/internal/payment"
	"techstore-api/internal/repository"
	"techstore-api/internal/service"
	"techstore-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config          *config.Config
	logger          *zap.Logger
	db              *sql.DB
	redisClient     *redis.Client
	OrderService    service.OrderService
	CheckoutService service.CheckoutService
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, redisClient *redis.Client) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(database.Health(db))
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	checkoutRepo := repository.NewCheckoutRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret)
	catalogService := service.NewCatalogService(productRepo)
	orderService := service.NewOrderService(orderRepo, productRepo, cfg.Orders.PendingExpiry, logger)
	checkoutService := service.NewCheckoutService(checkoutRepo, logger)

	// The gateway is in-memory; sessions do not survive a restart, which is
	// acceptable for a simulated provider.
	gateway := payment.NewVNPayGateway(payment.Options{
		SuccessRate:     cfg.VNPay.SuccessRate,
		ProcessingDelay: cfg.VNPay.ProcessingDelay,
		OTPValidity:     cfg.VNPay.OTPValidity,
	})

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	productHandler := transport.NewProductHandler(catalogService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	paymentHandler := transport.NewPaymentHandler(gateway, orderService, logger)
	checkoutHandler := transport.NewCheckoutHandler(checkoutService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	// Rate limit the endpoints that either take credentials or mutate stock.
	rateLimited := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 30,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger)

	// Register routes
	router.Group(func(r chi.Router) {
		r.Use(rateLimited)
		userHandler.RegisterRoutes(r, authMiddleware)
		orderHandler.RegisterRoutes(r, authMiddleware)
	})
	productHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	paymentHandler.RegisterRoutes(router, authMiddleware, adminMiddleware)
	checkoutHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:          cfg,
		logger:          logger,
		db:              db,
		redisClient:     redisClient,
		OrderService:    orderService,
		CheckoutService: checkoutService,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
