package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/admin"
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditRepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/database/users"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// OpenDatabase connects to the configured store, creates the schema and
// seeds the default administrator when it is missing.
func OpenDatabase(cfg *config.Config) (*database.Database, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	exists, err := db.AdminExists()
	if err != nil {
		db.Close()
		return nil, err
	}
	if !exists {
		hash, err := auth.HashPassword(cfg.Auth.AdminPassword, cfg.Auth.BcryptCost)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
		if _, err := db.SeedAdmin(cfg.Auth.AdminUsername, hash); err != nil {
			db.Close()
			return nil, err
		}
		if cfg.Auth.AdminPassword == config.DefaultAdminPassword {
			log.Printf("WARNING: admin account %q uses the default password, change it with create-user or ADMIN_PASSWORD", cfg.Auth.AdminUsername)
		}
	}
	return db, nil
}

// Services bundles the domain services built on top of one database.
type Services struct {
	Auth        *auth.Service
	Audit       *audit.Service
	Admin       *admin.Service
	Circulation *circulation.Service
}

// NewServices builds the domain services for db.
func NewServices(db *database.Database, cfg *config.Config) *Services {
	bookRepo := books.NewRepository(db.DB)
	loanRepo := loans.NewRepository(db.DB)
	authService := auth.NewService(db.DB, cfg.Auth)
	auditService := audit.NewService(auditRepo.NewRepository(db.DB))

	return &Services{
		Auth:        authService,
		Audit:       auditService,
		Admin:       admin.NewService(bookRepo, loanRepo, authService, users.NewRepository(db.DB), auditService),
		Circulation: circulation.NewService(db.DB, bookRepo, loanRepo, cfg.Loans),
	}
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill sends SIGTERM; SIGKILL cannot be caught
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop producers and workers before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Library v%s", version)

	db, err := OpenDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	services := NewServices(db, cfg)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, db.Driver, cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		if cfg.Auth.SessionSecret != "" {
			csrfSecret, err = hex.DecodeString(cfg.Auth.SessionSecret)
			if err != nil {
				// Not hex, use as raw bytes
				csrfSecret = []byte(cfg.Auth.SessionSecret)
			}
		} else {
			secret, err := auth.GenerateSessionSecret()
			if err != nil {
				log.Fatalf("Failed to generate CSRF secret: %v", err)
			}
			csrfSecret, _ = hex.DecodeString(secret)
			log.Printf("Generated session secret (set AUTH_SESSION_SECRET to persist)")
		}
	} else {
		log.Printf("WARNING: CSRF protection is disabled")
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.TasksDatabasePath(), tasks.FromConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewArchiveLogsQueue(services.Audit, cfg.Maintenance.ArchiveDir),
			tasks.NewOverdueReportQueue(services.Admin),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)

		maintenance = scheduler.NewMaintenanceScheduler(taskClient, cfg.Maintenance)
		if err := maintenance.Start(taskCtx); err != nil {
			log.Printf("WARNING: maintenance scheduler not started: %v", err)
		}
	} else if cfg.Maintenance.Enabled {
		log.Printf("WARNING: maintenance is enabled but the task queue is off, nothing will be archived")
	}

	routerCfg := http_controllers.RouterConfig{
		Database:         db,
		Circulation:      services.Circulation,
		Librarian:        services.Admin,
		Actions:          services.Audit,
		AuthService:      services.Auth,
		SessionManager:   sessionManager,
		AuthConfig:       cfg.Auth,
		CSRFSecret:       csrfSecret,
		Loans:            cfg.Loans,
		Throttle:         cfg.Throttle,
		LogRetentionDays: cfg.Maintenance.LogRetentionDays,
		Version:          version,
	}
	if taskClient != nil {
		routerCfg.TaskRunner = taskClient
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
