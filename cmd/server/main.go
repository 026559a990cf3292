package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/router"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/utils"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- storage ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	seed(ctx, cfg, db)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	go sweepTokens(ctx, tokens, time.Hour)
	products := repository.NewProductRepo(db)
	carts := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)
	wishlist := repository.NewWishlistRepo(db)
	reviews := repository.NewReviewRepo(db)
	notes := repository.NewNotificationRepo(db)

	// ---- order events ----
	var events service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		events = service.NewAMQPPublisher(cfg.AMQPURL)
		go func() {
			err := queue.StartOrderConsumer(ctx, cfg.AMQPURL, queue.Notifier{Notes: notes, Admins: users})
			if err != nil && !errors.Is(err, context.Canceled) {
				glog.Errorf("order consumer stopped: %v", err)
			}
		}()
	} else {
		glog.Warn("RABBITMQ_URL not set; order events are not published")
	}

	checkout := service.NewCheckoutService(db, carts, products, orders, events)
	lifecycle := service.NewOrderService(db, orders, products, events)
	cartSvc := service.NewCartService(db, carts, products)

	// ---- redis ----
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	// ---- http ----
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(glog.INFO)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			c.Logger().Infof("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
			return nil
		},
	}))

	auth := handler.NewAuthHandler(cfg, users, tokens)
	productH := &handler.ProductHandler{Products: products, Reviews: reviews, Cache: cache}
	reviewH := &handler.ReviewHandler{Reviews: reviews, Products: products}
	userH := &handler.UserHandler{Users: users, BcryptCost: cfg.BcryptCost}
	noteH := &handler.NotificationHandler{Notes: notes, Users: users}

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db})
	router.RegisterPublic(e, auth, productH, reviewH, cfg.JWTSecret, limiter, cache.Middleware())
	router.RegisterStore(e, router.Store{
		Auth:          auth,
		Cart:          &handler.CartHandler{Carts: cartSvc},
		Orders:        &handler.OrderHandler{Orders: orders, Checkout: checkout, Flow: lifecycle, Cache: cache},
		Wishlist:      &handler.WishlistHandler{Wishlist: wishlist, Products: products},
		Reviews:       reviewH,
		Notifications: noteH,
		Users:         userH,
	}, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, productH, userH, noteH, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	go func() {
		e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
}

// seed creates the bootstrap admin and the demo catalog when configured.
func seed(ctx context.Context, cfg config.Config, db *sql.DB) {
	if cfg.AdminPassword != "" {
		hash, err := utils.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("hash admin password: %v", err)
		}
		created, err := database.SeedAdmin(ctx, db, cfg.AdminUsername, cfg.AdminEmail, hash)
		if err != nil {
			log.Fatalf("seed admin: %v", err)
		}
		if created {
			glog.Infof("created admin account %q", cfg.AdminUsername)
		}
	}
	if cfg.SeedSampleProducts {
		n, err := database.SeedSampleProducts(ctx, db)
		if err != nil {
			log.Fatalf("seed products: %v", err)
		}
		if n > 0 {
			glog.Infof("seeded %d sample products", n)
		}
	}
}

// sweepTokens periodically deletes refresh tokens that are no longer usable.
func sweepTokens(ctx context.Context, tokens *repository.TokenRepo, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := tokens.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				glog.Warnf("purge refresh tokens: %v", err)
				continue
			}
			if n > 0 {
				glog.Debugf("purged %d refresh tokens", n)
			}
		}
	}
}
