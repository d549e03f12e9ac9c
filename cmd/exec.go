package cmd

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"tickethub/config"
	"tickethub/internal/cache"
	"tickethub/internal/handlers"
	"tickethub/internal/notify"
	"tickethub/internal/orders"
	"tickethub/internal/payment"
	"tickethub/internal/store"
	"tickethub/monitoring"
	"tickethub/security"
	"tickethub/utils"

	_ "tickethub/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub (optional; without keys orders still work, just
	// without realtime updates)
	var notifier *notify.Notifier
	if cfg.PubNubEnabled() {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey

		notifier = notify.New(pubnub.NewPubNub(pnConfig))
	} else {
		slog.Info("pubnub keys not configured, realtime notifications disabled")
	}

	// Initialize core collaborators
	st := store.New(app)
	queryCache := cache.NewQueryCache(redisClient, cfg.CacheTTL)
	invalidator := cache.NewInvalidator(queryCache)
	gateway := payment.WithBreaker(payment.NewMockGateway())

	createService := orders.NewCreateService(st, invalidator, notifier)
	cancelService := orders.NewCancelService(st, invalidator, notifier)
	payService := orders.NewPayService(st, gateway, invalidator, notifier)

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(app, st, queryCache, createService, cancelService, payService)
	eventHandler := handlers.NewEventHandler(app, queryCache, invalidator)
	batchHandler := handlers.NewBatchHandler(app, invalidator)

	limiter := security.NewRateLimiter(redisClient, cfg)

	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient)
	}

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Register routes
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Event catalog (public)
		e.Router.GET("/api/events", eventHandler.List).BindFunc(limiter.AntiBot())
		e.Router.GET("/api/events/{eventId}", eventHandler.Get).BindFunc(limiter.AntiBot())

		// Order lifecycle
		e.Router.POST("/api/orders", orderHandler.Create).
			Bind(apis.RequireAuth()).
			BindFunc(limiter.Middleware())
		e.Router.POST("/api/orders/{orderId}/pay", orderHandler.Pay).
			Bind(apis.RequireAuth()).
			BindFunc(limiter.Middleware())
		e.Router.POST("/api/orders/{orderId}/cancel", orderHandler.Cancel).
			Bind(apis.RequireAuth()).
			BindFunc(limiter.Middleware())

		// Order queries
		e.Router.GET("/api/orders", orderHandler.MyOrders).Bind(apis.RequireAuth())
		e.Router.GET("/api/orders/{orderId}", orderHandler.Show).Bind(apis.RequireAuth())
		e.Router.GET("/api/tickets", orderHandler.MyTickets).Bind(apis.RequireAuth())

		// Admin endpoints (is_admin checked in the handlers)
		e.Router.GET("/api/admin/orders", orderHandler.AllOrders).Bind(apis.RequireAuth())
		e.Router.POST("/api/admin/events", eventHandler.Create).Bind(apis.RequireAuth())
		e.Router.PATCH("/api/admin/events/{eventId}", eventHandler.Update).Bind(apis.RequireAuth())
		e.Router.DELETE("/api/admin/events/{eventId}", eventHandler.Delete).Bind(apis.RequireAuth())
		e.Router.POST("/api/admin/ticket-batches", batchHandler.Create).Bind(apis.RequireAuth())
		e.Router.PATCH("/api/admin/ticket-batches/{batchId}", batchHandler.Update).Bind(apis.RequireAuth())
		e.Router.DELETE("/api/admin/ticket-batches/{batchId}", batchHandler.Delete).Bind(apis.RequireAuth())

		// Monitoring
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(http.StatusOK, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	return app.Start()
}
