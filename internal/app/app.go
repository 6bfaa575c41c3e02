package app

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/sailing-innocent/SailZen/internal/data/db"
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *server.Server
	Cfg      Config
	Repos    Repos
	Services Services
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	theDB, err := openDatabase(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet)
	if err != nil {
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(theDB, log, serviceset)
	srv := wireServer(handlerset)

	return &App{
		Log:      log,
		DB:       theDB,
		Server:   srv,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
	}, nil
}

func openDatabase(cfg Config, log *logger.Logger) (*gorm.DB, error) {
	switch strings.ToLower(cfg.DBDriver) {
	case "sqlite":
		svc, err := db.NewSQLiteService(log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("sqlite automigrate: %w", err)
		}
		return svc.DB(), nil
	default:
		svc, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
		return svc.DB(), nil
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(a.Cfg.ListenAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
