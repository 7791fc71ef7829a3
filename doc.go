// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Votex API server.

Votex is an election management service: owners build an election out of
ballot questions and options, register voters, and launch it; verified
voters log in with one-time credentials and cast atomic ballot batches
against an append-only vote ledger.

# Starting the Server

The server reads a .env file when present, then environment variables or
CLI flags:

	DATABASE_URL=elections.db DATABASE_TYPE=sqlite go run main.go

Or with flags:

	go run main.go -p 3425 -d "postgres://..." -t postgres

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file path or PostgreSQL connection string
  - OWNER_KEY_SALT (-owner-salt): Secret for owner key HMAC
  - ACCESS_CODE_SALT (-code-salt): Secret for live/preview access codes
  - VOTER_JWT_SECRET (-jwt-secret): Signing secret for voter session tokens

Optional settings:

  - PORT (-p): Server port (default: 3425)
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - VOTER_JWT_TTL (-jwt-ttl): Session token lifetime (default: 15m)

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (elections, questions, voters, voting, tally)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, bearer token extraction
  - models: Request/response types
  - auth: Keys, credentials, and session tokens
  - db: Schema creation
  - cliparse: Configuration parsing
  - mailer: Fire-and-forget verification mail dispatch

See package documentation for each component.
*/
package main
