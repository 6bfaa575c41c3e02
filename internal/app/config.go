package app

import (
	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
	"github.com/sailing-innocent/SailZen/internal/utils"
)

type Config struct {
	ListenAddr        string
	DBDriver          string
	ExtractorProvider string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		ListenAddr:        utils.GetEnv("LISTEN_ADDR", ":8080", log),
		DBDriver:          utils.GetEnv("DB_DRIVER", "postgres", log),
		ExtractorProvider: utils.GetEnv("EXTRACTOR_PROVIDER", "mock", log),
	}
}
