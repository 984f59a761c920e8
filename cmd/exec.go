package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cinebook/clients/tmdb"
	"cinebook/config"
	"cinebook/handlers"
	_ "cinebook/migrations"
	"cinebook/models"
	"cinebook/monitoring"
	"cinebook/realtime"
	"cinebook/security"
	"cinebook/services"
	"cinebook/store"
	"cinebook/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize realtime publisher
	publisher := realtime.New(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey, cfg.PubNubSecretKey, "cinebook-server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize monitoring
	var monitor *monitoring.Monitor
	if cfg.EnableMetrics {
		monitor = monitoring.NewMonitor(redisClient)
	}

	// Initialize services
	storeClient := store.New(app)
	tmdbClient := tmdb.New(cfg.TMDBBaseURL, cfg.TMDBAPIKey, cfg.TMDBTimeout)
	identityService := services.NewIdentityService(storeClient)
	catalogService := services.NewCatalogService(storeClient, tmdbClient, metricsOrNil(monitor))
	seatService := services.NewSeatService(redisClient, storeClient, publisher, cfg.SeatLockTTL)
	seatService.Metrics = lockMetricsOrNil(monitor)
	bookingService := services.NewBookingService(storeClient, seatService, catalogService, publisher, bookingMetricsOrNil(monitor), cfg.SeatPrice, cfg.ServiceFee)

	// Initialize handlers
	rateLimiter := security.NewRateLimiter(redisClient)
	authHandler := handlers.NewAuthHandler(app, identityService)
	catalogHandler := handlers.NewCatalogHandler(app, catalogService)
	seatHandler := handlers.NewSeatHandler(app, seatService, seatMetricsOrNil(monitor), cfg.SeatRows, cfg.SeatCols)
	bookingHandler := handlers.NewBookingHandler(app, bookingService)
	adminHandler := handlers.NewAdminHandler(app, storeClient, catalogService, identityService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go seatService.StartJanitor(ctx, cfg.JanitorInterval)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Materialize the seat grid for showtimes created through the admin
	// surface or the collection UI.
	app.OnRecordAfterCreateSuccess("showtimes").BindFunc(func(e *core.RecordEvent) error {
		if err := seatService.MaterializeSeats(e.Record.Id, cfg.SeatRows, cfg.SeatCols); err != nil {
			slog.Error("seat grid materialization failed", "showtime", e.Record.Id, "error", err)
		}
		return e.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Auth endpoints
		se.Router.POST("/api/cine/auth/signup", authHandler.SignUp)
		se.Router.POST("/api/cine/auth/signin", authHandler.SignIn)
		se.Router.GET("/api/cine/auth/me", authHandler.Me).Bind(apis.RequireAuth())

		// Catalog endpoints
		se.Router.GET("/api/cine/movies", catalogHandler.ListMovies)
		se.Router.GET("/api/cine/movies/search", catalogHandler.SearchMovies)
		se.Router.GET("/api/cine/movies/{id}", catalogHandler.GetMovie)
		se.Router.GET("/api/cine/theatres", catalogHandler.ListTheatres)
		se.Router.GET("/api/cine/showtimes", catalogHandler.ListShowtimes)
		se.Router.GET("/api/cine/showtimes/{id}", catalogHandler.GetShowtime)

		// Seat endpoints
		se.Router.GET("/api/cine/showtimes/{id}/seats", seatHandler.GetSeatMap)
		se.Router.POST("/api/cine/showtimes/{id}/seats/lock", seatHandler.LockSeats).
			Bind(apis.RequireAuth()).
			Bind(rateLimiter.Limit("seat-lock", cfg.LockRateLimit, cfg.LockRateWindow)).
			Bind(rateLimiter.AntiBot())
		se.Router.POST("/api/cine/showtimes/{id}/seats/release", seatHandler.ReleaseSeats).
			Bind(apis.RequireAuth())

		// Booking endpoints
		se.Router.POST("/api/cine/bookings/quote", bookingHandler.Quote).Bind(apis.RequireAuth())
		se.Router.POST("/api/cine/bookings", bookingHandler.Confirm).
			Bind(apis.RequireAuth()).
			Bind(rateLimiter.Limit("booking", cfg.LockRateLimit, cfg.LockRateWindow))
		se.Router.GET("/api/cine/bookings", bookingHandler.MyBookings).Bind(apis.RequireAuth())
		se.Router.GET("/api/cine/bookings/{id}", bookingHandler.GetBooking).Bind(apis.RequireAuth())

		// Admin endpoints
		admin := se.Router.Group("/api/cine/admin")
		admin.Bind(apis.RequireAuth(), handlers.RequireRole(models.RoleAdmin))
		admin.POST("/movies", adminHandler.CreateMovie)
		admin.PATCH("/movies/{id}", adminHandler.UpdateMovie)
		admin.DELETE("/movies/{id}", adminHandler.DeleteMovie)
		admin.POST("/movies/import", adminHandler.ImportMovie)
		admin.POST("/showtimes", adminHandler.CreateShowtime)
		admin.GET("/users", adminHandler.ListUsers)
		admin.POST("/users/{id}/role", adminHandler.SetUserRole)

		// Metrics
		if cfg.EnableMetrics {
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		// Fan catalog changes out to browsing clients.
		go bridgeCatalogFeed(ctx, storeClient, publisher)

		log.Println("Server routes registered")

		return se.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// The monitor is optional; a typed nil must not leak into the service
// interfaces.
func metricsOrNil(m *monitoring.Monitor) services.CatalogMetrics {
	if m == nil {
		return nil
	}
	return m
}

func bookingMetricsOrNil(m *monitoring.Monitor) services.BookingMetrics {
	if m == nil {
		return nil
	}
	return m
}

func seatMetricsOrNil(m *monitoring.Monitor) handlers.SeatMetrics {
	if m == nil {
		return nil
	}
	return m
}

func lockMetricsOrNil(m *monitoring.Monitor) services.SeatMetricsSink {
	if m == nil {
		return nil
	}
	return m
}

// bridgeCatalogFeed republishes movie catalog changes on the realtime
// catalog channel until ctx is cancelled.
func bridgeCatalogFeed(ctx context.Context, st *store.Client, publisher *realtime.Publisher) {
	if !publisher.Enabled() {
		return
	}

	feed, err := st.Subscribe(ctx, "movies", "-created")
	if err != nil {
		slog.Error("catalog feed subscription failed", "error", err)
		return
	}

	// Drop the initial snapshot; clients already have it from the API.
	<-feed

	for snapshot := range feed {
		publisher.PublishCatalogUpdate("movies", len(snapshot))
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
