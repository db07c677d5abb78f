package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Server is the process configuration for cmd/server. An empty DBDSN keeps
// everything in memory; an empty WSAddr disables the websocket transport.
type Server struct {
	HTTPAddr      string        `env:"AGENTWORLD_HTTP_ADDR" envDefault:":8080"`
	WSAddr        string        `env:"AGENTWORLD_WS_ADDR" envDefault:":8081"`
	DBDSN         string        `env:"AGENTWORLD_DB_DSN"`
	AutoMigrate   bool          `env:"AGENTWORLD_AUTO_MIGRATE" envDefault:"true"`
	DBMaxOpen     int           `env:"AGENTWORLD_DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdle     int           `env:"AGENTWORLD_DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxLifetime time.Duration `env:"AGENTWORLD_DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	MaxTurns      int           `env:"AGENTWORLD_MAX_TURNS" envDefault:"20"`
	TurnTimeout   time.Duration `env:"AGENTWORLD_TURN_TIMEOUT" envDefault:"30s"`
	ObserveRadius int           `env:"AGENTWORLD_OBSERVE_RADIUS" envDefault:"2"`
	ToolsFile     string        `env:"AGENTWORLD_TOOLS_FILE" envDefault:"./data/tools.yaml"`
	WorldsFile    string        `env:"AGENTWORLD_WORLDS_FILE" envDefault:"./data/worlds.yaml"`
	ArchiveDir    string        `env:"AGENTWORLD_ARCHIVE_DIR"`
	LogLevel      string        `env:"AGENTWORLD_LOG_LEVEL" envDefault:"info"`
	CORSOrigins   []string      `env:"AGENTWORLD_CORS_ORIGINS" envSeparator:","`
}

func LoadServer() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	if cfg.MaxTurns <= 0 {
		return Server{}, fmt.Errorf("parse env: AGENTWORLD_MAX_TURNS must be positive, got %d", cfg.MaxTurns)
	}
	if cfg.TurnTimeout < 0 {
		return Server{}, fmt.Errorf("parse env: AGENTWORLD_TURN_TIMEOUT must not be negative, got %s", cfg.TurnTimeout)
	}
	return cfg, nil
}
