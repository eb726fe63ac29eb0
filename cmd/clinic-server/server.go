package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medassist/clinic/internal/config"
	"github.com/medassist/clinic/internal/domain/billing"
	"github.com/medassist/clinic/internal/domain/catalog"
	"github.com/medassist/clinic/internal/domain/patient"
	"github.com/medassist/clinic/internal/domain/pharmacy"
	"github.com/medassist/clinic/internal/domain/prescription"
	"github.com/medassist/clinic/internal/platform/ai"
	"github.com/medassist/clinic/internal/platform/awsutil"
	"github.com/medassist/clinic/internal/platform/blobstore"
	"github.com/medassist/clinic/internal/platform/db"
	"github.com/medassist/clinic/internal/platform/events"
	"github.com/medassist/clinic/internal/platform/middleware"
	"github.com/medassist/clinic/internal/platform/reporting"
	"github.com/medassist/clinic/internal/platform/textextract"
)

const version = "0.1.0"

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV") == "development")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	loc, _ := cfg.Location()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// -- adapters --

	var sess *session.Session
	if cfg.BlobBackend == "s3" || cfg.EventsTopicARN != "" {
		if sess, err = awsutil.NewSession(cfg.AWSRegion, cfg.AWSAccessKey, cfg.AWSSecretKey); err != nil {
			logger.Fatal().Err(err).Msg("failed to create AWS session")
		}
	}

	blobs, err := newBlobStore(cfg, sess, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure blob store")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventsTopicARN != "" {
		publisher = events.NewSNSPublisher(sns.New(sess), cfg.EventsTopicARN)
		logger.Info().Str("topic", cfg.EventsTopicARN).Msg("publishing events to SNS")
	}

	prompts, err := ai.LoadCatalogue()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load prompt catalogue")
	}
	var (
		clinical    *ai.Clinical
		transcriber ai.Transcriber
	)
	oc, err := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		TextModel:   cfg.AITextModel,
		VisionModel: cfg.AIVisionModel,
		Timeout:     cfg.AITimeout,
	})
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn().Msg("OPENAI_API_KEY not set; AI analysis and transcription are disabled")
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to configure OpenAI client")
	default:
		clinical = ai.NewClinical(oc, prompts)
		transcriber = oc
	}

	// -- domain services --

	tx := db.NewTxRunner(pool)

	patientSvc := patient.NewService(patient.NewRepoPG(pool), tx, loc, logger)
	patientSvc.SetBlobStore(blobs)
	patientSvc.SetExtractor(textextract.NewPDFExtractor())
	patientSvc.SetPublisher(publisher)
	if clinical != nil {
		patientSvc.SetAnalyzer(clinical)
	}

	rxSvc := prescription.NewService(prescription.NewRepoPG(pool), patientSvc, tx, blobs, loc, logger)
	rxSvc.SetPublisher(publisher)
	rxSvc.SetURLTTL(cfg.SignedURLTTL)
	if clinical != nil {
		rxSvc.SetAnalyzer(clinical)
	}

	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool), logger)

	billingSvc := billing.NewService(billing.NewRepoPG(pool), catalogSvc, patientSvc, tx, loc, logger)
	billingSvc.SetClinic(billing.Clinic{Name: cfg.ClinicName, Address: cfg.ClinicAddress})
	billingSvc.SetPublisher(publisher)

	pharmacySvc := pharmacy.NewService(pharmacy.NewRepoPG(pool), tx, loc, logger)
	pharmacySvc.SetLetterhead(pharmacy.Letterhead{Name: cfg.ClinicName + " Pharmacy", Address: cfg.ClinicAddress})
	pharmacySvc.SetPublisher(publisher)

	// -- HTTP --

	e := newEcho(cfg, logger)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	api := e.Group("/api")
	api.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	api.Use(middleware.PatientAccess(logger))

	patient.NewHandler(patientSvc).RegisterRoutes(api)
	prescription.NewHandler(rxSvc).RegisterRoutes(api)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api)
	blobstore.NewHandler(blobs, cfg.SignedURLTTL).RegisterRoutes(api)
	ai.NewHandler(transcriber, logger).RegisterRoutes(api)
	reporting.NewHandler(reporting.NewStorePG(pool), logger).RegisterRoutes(api)

	return serve(e, cfg, logger)
}

func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	return e
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func newBlobStore(cfg *config.Config, sess *session.Session, logger zerolog.Logger) (blobstore.Store, error) {
	if cfg.BlobBackend == "s3" {
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("using S3 blob store")
		return blobstore.NewS3Store(sess, cfg.S3Bucket, cfg.AWSRegion, cfg.BlobTimeout), nil
	}
	key, random, err := resolveBlobSigningKey(cfg.BlobSigningKey)
	if err != nil {
		return nil, err
	}
	if random {
		logger.Warn().Msg("BLOB_SIGNING_KEY not set; signed blob URLs will not survive a restart")
	}
	return blobstore.NewMemoryStore(cfg.PublicBaseURL, key), nil
}

// resolveBlobSigningKey decodes the hex BLOB_SIGNING_KEY or generates a
// random 32-byte key. The second return value is true when a random key was
// generated.
func resolveBlobSigningKey(envValue string) ([]byte, bool, error) {
	if envValue != "" {
		decoded, err := hex.DecodeString(envValue)
		if err != nil {
			return nil, false, fmt.Errorf("invalid BLOB_SIGNING_KEY hex value: %w", err)
		}
		if len(decoded) < 16 {
			return nil, false, fmt.Errorf("BLOB_SIGNING_KEY must be at least 16 bytes")
		}
		return decoded, false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random blob signing key: %w", err)
	}
	return key, true, nil
}

func serve(e *echo.Echo, cfg *config.Config, logger zerolog.Logger) error {
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
