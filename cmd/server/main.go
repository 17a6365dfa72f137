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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vberezin/storehub/internal/config"
	"github.com/vberezin/storehub/internal/es"
	"github.com/vberezin/storehub/internal/handlers"
	"github.com/vberezin/storehub/internal/logging"
	"github.com/vberezin/storehub/internal/mailer"
	"github.com/vberezin/storehub/internal/metrics"
	authmw "github.com/vberezin/storehub/internal/middleware/auth"
	"github.com/vberezin/storehub/internal/mykafka"
	"github.com/vberezin/storehub/internal/notify"
	httpserver "github.com/vberezin/storehub/internal/transport/http"
)

const productIndex = "product"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	if len(jwtSecret) == 0 {
		log.Fatal("JWT_SECRET is required")
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	var mail mailer.Mailer = mailer.Noop{}
	if configuration.SMTP_ADDR != "" {
		mail = &mailer.SMTPMailer{
			Addr:     configuration.SMTP_ADDR,
			Host:     configuration.SMTP_HOST,
			Username: configuration.SMTP_USER,
			Password: configuration.SMTP_PASSWORD,
			From:     configuration.SMTP_FROM,
		}
	} else {
		logger.Warn("SMTP_ADDR not set, outgoing email disabled")
	}

	dispatcher := notify.New(db, mail, prod, logger)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(logging.Middleware(logger))

	serverMetrics := metrics.NewServerMetrics("api")
	e.Use(serverMetrics.Middleware())

	deps := httpserver.Deps{
		DB:      db,
		AuthMW:  &authmw.Middleware{JWTSecret: jwtSecret},
		Metrics: serverMetrics,
		AuthHandler: &handlers.AuthHandler{
			DB: db, JWTSecret: jwtSecret, Producer: prod,
		},
		CatalogHandler: &handlers.CatalogHandler{
			DB: db, Producer: prod, Index: productIndex, UploadDir: configuration.UPLOAD_DIR,
		},
		CartHandler: &handlers.CartHandler{DB: db, Producer: prod},
		OrderHandler: &handlers.OrderHandler{
			DB: db, Producer: prod, Dispatcher: dispatcher,
			UploadDir: configuration.UPLOAD_DIR, AdminEmail: configuration.ADMIN_EMAIL,
		},
		DeliveryHandler:     &handlers.DeliveryHandler{DB: db, Producer: prod, Dispatcher: dispatcher},
		ReviewHandler:       &handlers.ReviewHandler{DB: db},
		SupportHandler:      &handlers.SupportHandler{DB: db, Dispatcher: dispatcher},
		NotificationHandler: &handlers.NotificationHandler{DB: db},
		SearchHandler:       &handlers.SearchHandler{Index: productIndex},
	}

	if configuration.ES_URL != "" {
		client, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		deps.CatalogHandler.ES = client
		deps.SearchHandler.ES = client
	} else {
		logger.Warn("ES_URL not set, product search disabled")
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	dispatcher.Close()

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
