package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oftalmonet/valeda-app/internal/api"
	"oftalmonet/valeda-app/internal/config"
	"oftalmonet/valeda-app/internal/logger"
	"oftalmonet/valeda-app/internal/metrics"
	"oftalmonet/valeda-app/internal/repository"
	"oftalmonet/valeda-app/internal/repository/memory"
	"oftalmonet/valeda-app/internal/repository/mongo"
	"oftalmonet/valeda-app/internal/service"
	"oftalmonet/valeda-app/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title Valeda Treatment API
// @version 1.0
// @description API for recording photobiomodulation treatments, their sessions, and the doctors who prescribe them.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api
func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "valeda",
		Short:         "Valeda treatment records server and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(seedDoctorsCmd(&configPath))
	rootCmd.AddCommand(searchCmd(&configPath))
	rootCmd.AddCommand(recordSessionCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the treatment API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func seedDoctorsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-doctors",
		Short: "Insert the sample doctors that are missing and list the active ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			st, err := openStores(cfg.Database, log)
			if err != nil {
				return err
			}
			defer st.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if st.ensureIndexes != nil {
				if err := st.ensureIndexes(ctx); err != nil {
					return fmt.Errorf("ensure indexes: %w", err)
				}
			}

			doctors, err := service.NewDoctorService(st.doctors, log).GetOrSeedSample(ctx)
			if err != nil {
				return err
			}
			for _, d := range doctors {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", d.ID.Hex(), d.Name, d.Specialization)
			}
			return nil
		},
	}
}

// stores bundles the repositories selected by the database driver.
type stores struct {
	treatments    repository.TreatmentRepository
	doctors       repository.DoctorRepository
	pinger        repository.Pinger
	ensureIndexes func(ctx context.Context) error
	close         func()
}

func openStores(cfg config.DatabaseConfig, log *zap.Logger) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on exit")
		return &stores{
			treatments: memory.NewTreatmentRepository(),
			doctors:    memory.NewDoctorRepository(),
			pinger:     memory.Pinger{},
			close:      func() {},
		}, nil

	case config.DriverMongo:
		dbClient, err := mongo.ConnectDB(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		appDB := dbClient.Database(cfg.Name)
		log.Info("database connection established", zap.String("database", cfg.Name))
		return &stores{
			treatments: mongo.NewMongoTreatmentRepository(appDB),
			doctors:    mongo.NewMongoDoctorRepository(appDB),
			pinger:     mongo.NewPinger(dbClient),
			ensureIndexes: func(ctx context.Context) error {
				return mongo.EnsureIndexes(ctx, appDB)
			},
			close: func() {
				log.Info("disconnecting MongoDB")
				if err := mongo.DisconnectDB(dbClient); err != nil {
					log.Error("failed to disconnect MongoDB", zap.Error(err))
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func runServer(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting valeda server", zap.String("version", version), zap.String("driver", cfg.Database.Driver))

	st, err := openStores(cfg.Database, log)
	if err != nil {
		return err
	}
	defer st.close()

	if st.ensureIndexes != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := st.ensureIndexes(ctx); err != nil {
				log.Error("index creation failed", zap.Error(err))
				return
			}
			log.Info("index creation completed")
		}()
	}

	collector := metrics.NewCollector()

	treatmentService := service.NewTreatmentService(st.treatments, log, collector)
	doctorService := service.NewDoctorService(st.doctors, log)

	var archiveService service.ArchiveService
	if cfg.S3.Enabled() {
		initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		fileStorage, err := storage.NewS3Storage(initCtx, cfg.S3, log)
		cancel()
		if err != nil {
			return fmt.Errorf("init S3 storage: %w", err)
		}
		archiveService = service.NewArchiveService(st.treatments, fileStorage, log, collector)
	} else {
		log.Info("S3 bucket not configured, archive export disabled")
	}

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Dependencies{
		Treatments:  treatmentService,
		Doctors:     doctorService,
		Archive:     archiveService,
		Pinger:      st.pinger,
		Metrics:     collector,
		Logger:      log,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     version,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exiting")
	return nil
}
