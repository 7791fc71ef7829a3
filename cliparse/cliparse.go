package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port           int
	DatabaseURL    string
	DatabaseType   string
	OwnerKeySalt   string
	AccessCodeSalt string
	VoterJWTSecret string
	VoterJWTTTL    time.Duration
}

// ParseFlags validates flags and sets port number
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var jwtTTL string

	fs := flag.NewFlagSet("votex", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.OwnerKeySalt, "owner-salt", "", "Owner key salt (prefer env)")
	fs.StringVar(&cfg.AccessCodeSalt, "code-salt", "", "Access code salt (prefer env)")
	fs.StringVar(&cfg.VoterJWTSecret, "jwt-secret", "", "Voter session JWT secret (prefer env)")
	fs.StringVar(&jwtTTL, "jwt-ttl", "", "Voter session lifetime, e.g. 15m")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3425 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, errors.New("DATABASE_TYPE must be sqlite or postgres")
	}

	// Secrets - MUST be provided
	if cfg.OwnerKeySalt == "" {
		cfg.OwnerKeySalt = os.Getenv("OWNER_KEY_SALT")
	}
	if cfg.OwnerKeySalt == "" {
		return Config{}, errors.New("OWNER_KEY_SALT required")
	}

	if cfg.AccessCodeSalt == "" {
		cfg.AccessCodeSalt = os.Getenv("ACCESS_CODE_SALT")
	}
	if cfg.AccessCodeSalt == "" {
		return Config{}, errors.New("ACCESS_CODE_SALT required")
	}

	if cfg.VoterJWTSecret == "" {
		cfg.VoterJWTSecret = os.Getenv("VOTER_JWT_SECRET")
	}
	if cfg.VoterJWTSecret == "" {
		return Config{}, errors.New("VOTER_JWT_SECRET required")
	}

	if jwtTTL == "" {
		jwtTTL = os.Getenv("VOTER_JWT_TTL")
	}
	if jwtTTL == "" {
		cfg.VoterJWTTTL = 15 * time.Minute
	} else {
		ttl, err := time.ParseDuration(jwtTTL)
		if err != nil || ttl <= 0 {
			return Config{}, errors.New("invalid VOTER_JWT_TTL (expect a positive duration, e.g. 15m)")
		}
		cfg.VoterJWTTTL = ttl
	}

	return cfg, nil
}
