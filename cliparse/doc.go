// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3425)
  - DatabaseURL: sqlite path or PostgreSQL connection string (required)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - OwnerKeySalt: Secret for owner key HMAC (required)
  - AccessCodeSalt: Secret for live/preview access codes (required)
  - VoterJWTSecret: Signing secret for voter session tokens (required)
  - VoterJWTTTL: Session token lifetime (default: 15m)

# CLI Flags

	-p          Server port
	-d          Database URL
	-t          Database type
	-owner-salt Owner key salt
	-code-salt  Access code salt
	-jwt-secret Voter session JWT secret
	-jwt-ttl    Voter session lifetime, e.g. 15m

# Environment Variables

Flags fall back to environment variables:

	PORT             → -p
	DATABASE_URL     → -d
	DATABASE_TYPE    → -t
	OWNER_KEY_SALT   → -owner-salt
	ACCESS_CODE_SALT → -code-salt
	VOTER_JWT_SECRET → -jwt-secret
	VOTER_JWT_TTL    → -jwt-ttl

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - DATABASE_TYPE must name a supported driver
  - OWNER_KEY_SALT, ACCESS_CODE_SALT, and VOTER_JWT_SECRET must be provided
  - VOTER_JWT_TTL must parse as a positive duration

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(db, cfg, mailer.NewLogMailer())
*/
package cliparse
