package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/payflow/internal"
	"github.com/frahmantamala/payflow/internal/auth"
	authPostgres "github.com/frahmantamala/payflow/internal/auth/postgres"
	"github.com/frahmantamala/payflow/internal/core/events"
	"github.com/frahmantamala/payflow/internal/department"
	departmentPostgres "github.com/frahmantamala/payflow/internal/department/postgres"
	"github.com/frahmantamala/payflow/internal/notification"
	"github.com/frahmantamala/payflow/internal/storage"
	"github.com/frahmantamala/payflow/internal/transaction"
	transactionPostgres "github.com/frahmantamala/payflow/internal/transaction/postgres"
	"github.com/frahmantamala/payflow/internal/transport"
	"github.com/frahmantamala/payflow/internal/transport/rest"
	"github.com/frahmantamala/payflow/internal/transport/swagger"
	"github.com/frahmantamala/payflow/internal/user"
	userPostgres "github.com/frahmantamala/payflow/internal/user/postgres"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer(cmd.Context())
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Redis  *redis.Client
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.close()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Server.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
		d.Redis = nil
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
		d.DB = nil
	}
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := initLogger(cfg)

	sqlxDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(sqlxDB, cfg.Server.Env)
	if err != nil {
		_ = sqlxDB.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config: cfg,
		DB:     sqlxDB,
		Gorm:   gormDB,
		Logger: logger,
	}

	local, err := storage.NewLocalStorage(cfg.Storage.Root, cfg.Storage.PublicPrefix, logger)
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	images := storage.NewImageValidator(cfg.Storage.MaxUploadKB)
	authorizer := auth.NewPermissionChecker()
	bus := events.NewEventBus(logger)

	var inbox notification.Inbox
	if cfg.Redis.Enabled {
		client, err := notification.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		deps.Redis = client
		inbox = notification.NewRedisInbox(client, cfg.Redis.InboxSize, cfg.Redis.NotificationTTL)
	} else {
		logger.Warn("redis disabled, notifications are kept in memory")
		inbox = notification.NewMemoryInbox(int(cfg.Redis.InboxSize))
	}
	notificationService := notification.NewService(inbox, authorizer, logger)
	notificationService.Register(bus)

	userRepo := userPostgres.NewUserRepository(gormDB)
	departmentRepo := departmentPostgres.NewDepartmentRepository(gormDB)
	transactionRepo := transactionPostgres.NewTransactionRepository(gormDB)
	summaryRepo := transactionPostgres.NewSummaryRepository(sqlxDB)
	authRepo := authPostgres.NewRepository(gormDB)

	tokens := auth.NewJWTTokenGenerator(cfg.Security)
	authService := auth.NewService(authRepo, tokens, logger)
	userService := user.NewService(userRepo, authorizer, local, cfg.Security.BCryptCost, logger)
	departmentService := department.NewService(departmentRepo, authorizer, local, logger)
	transactionService := transaction.NewService(transactionRepo, transaction.Collaborators{
		Departments: departmentService,
		Users:       userRepo,
		Authorizer:  authorizer,
		Files:       local,
		Events:      bus,
		Summary:     summaryRepo,
	}, cfg.Transaction, cfg.Storage.MaxUploadKB, logger)

	spec, err := swagger.Load(ctx, cfg.Server.OpenAPIPath)
	if err != nil {
		logger.Warn("openapi document not served", "path", cfg.Server.OpenAPIPath, "error", err)
		spec = nil
	}

	base := transport.NewBaseHandler(logger)
	deps.Router = chi.NewRouter()
	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:       rest.NewHealthHandler(sqlxDB, deps.Redis),
		Auth:         auth.NewHandler(base, authService),
		User:         user.NewHandler(base, userService, images, local),
		Department:   department.NewHandler(base, departmentService),
		Transaction:  transaction.NewHandler(base, transactionService, images),
		Notification: notification.NewHandler(base, notificationService),
		RBAC:         auth.NewRBACAuthorization(authorizer, logger),
		Spec:         spec,
		Files:        http.FileServer(local.FileSystem()),
	}, rest.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StoragePrefix:  cfg.Storage.PublicPrefix,
	}, logger)

	return deps, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm.
func initGorm(db *sqlx.DB, env string) (*gorm.DB, error) {
	level := gormLogger.Warn
	if env == "development" {
		level = gormLogger.Info
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormLogger.Default.LogMode(level),
	})
}
