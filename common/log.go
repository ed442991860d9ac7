package common

import (
	"os"

	"go.uber.org/zap"
)

const LOG_LEVEL_ENV = "ASTRASCAN_LOG_LEVEL"

func initZapLogger() *zap.Logger {
	switch ASTRASCAN_LOG_LEVEL {
	case "development":
		logger, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return logger
	case "silent":
		return zap.NewNop()
	case "production":
		fallthrough
	default:
		cfg := zap.NewProductionConfig()
		// progress bars own stdout
		cfg.OutputPaths = []string{"stderr"}
		logger, err := cfg.Build()
		if err != nil {
			panic(err)
		}
		return logger
	}
}

var (
	ASTRASCAN_LOG_LEVEL             = os.Getenv(LOG_LEVEL_ENV)
	logger              *zap.Logger = initZapLogger()
)

// GetLogger returns the process logger. Packages keep the returned pointer,
// so a level change swaps the value behind it instead of the pointer.
func GetLogger() *zap.Logger {
	if ASTRASCAN_LOG_LEVEL != os.Getenv(LOG_LEVEL_ENV) {
		ASTRASCAN_LOG_LEVEL = os.Getenv(LOG_LEVEL_ENV)
		*logger = *initZapLogger()
	}
	return logger
}
