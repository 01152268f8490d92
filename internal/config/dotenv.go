package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	HostGraceSeconds         int
	PlayerGraceSeconds       int
	MaxPlayers               int
	MaxTimerMinutes          int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

// Default returns the built-in tuning. The host grace period is kept much
// shorter than the player grace period because an absent host stalls the game.
func Default() Config {
	return Config{
		HostGraceSeconds:         12,
		PlayerGraceSeconds:       60,
		MaxPlayers:               12,
		MaxTimerMinutes:          30,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	cfg.HostGraceSeconds = intEnv("HOST_GRACE_SECONDS", cfg.HostGraceSeconds)
	cfg.PlayerGraceSeconds = intEnv("PLAYER_GRACE_SECONDS", cfg.PlayerGraceSeconds)
	cfg.MaxPlayers = intEnv("MAX_PLAYERS", cfg.MaxPlayers)
	cfg.MaxTimerMinutes = intEnv("MAX_TIMER_MINUTES", cfg.MaxTimerMinutes)
	cfg.DBMaxOpenConns = intEnv("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.DBMaxIdleConns = intEnv("DB_MAX_IDLE_CONNS", cfg.DBMaxIdleConns)
	cfg.DBConnMaxLifetimeSeconds = intEnv("DB_CONN_MAX_LIFETIME_SECONDS", cfg.DBConnMaxLifetimeSeconds)
	cfg.DBConnMaxIdleTimeSeconds = intEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", cfg.DBConnMaxIdleTimeSeconds)
	return cfg
}

func intEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
