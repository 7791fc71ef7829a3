// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is restricted to the dialect shared by SQLite and PostgreSQL.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL UNIQUE,
    description TEXT,
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NOT NULL,
    timezone TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'BUILDING' CHECK (status IN ('BUILDING', 'LIVE')),
    live_code TEXT UNIQUE,
    preview_code TEXT UNIQUE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_election_live_code ON election(live_code);
CREATE INDEX IF NOT EXISTS idx_election_preview_code ON election(preview_code);
CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);

-- Ballot questions
CREATE TABLE IF NOT EXISTS ballot_question (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT,
    choice_min INTEGER NOT NULL DEFAULT 1,
    choice_max INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (election_id, title),
    CHECK (choice_min >= 1 AND choice_min <= choice_max)
);

CREATE INDEX IF NOT EXISTS idx_ballot_question_election_id ON ballot_question(election_id);

-- Options
CREATE TABLE IF NOT EXISTS option (
    id TEXT PRIMARY KEY,
    question_id TEXT NOT NULL REFERENCES ballot_question(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (question_id, title)
);

CREATE INDEX IF NOT EXISTS idx_option_question_id ON option(question_id);

-- Voters
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    email TEXT NOT NULL,
    phone TEXT,
    pass_name TEXT NOT NULL UNIQUE,
    pass_key_hash TEXT NOT NULL,
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (election_id, email),
    UNIQUE (election_id, phone)
);

CREATE INDEX IF NOT EXISTS idx_voter_election_id ON voter(election_id);
CREATE INDEX IF NOT EXISTS idx_voter_pass_name ON voter(pass_name);

-- Vote ledger (append-only; no update or delete path)
-- slot is the voter's 0-based selection index within a question. The primary
-- key makes the eligibility check a compare-and-commit: two casts that read
-- the same current count collide on (voter, question, slot) and exactly one
-- commits.
CREATE TABLE IF NOT EXISTS vote (
    voter_id TEXT NOT NULL REFERENCES voter(id) ON DELETE CASCADE,
    question_id TEXT NOT NULL REFERENCES ballot_question(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES option(id) ON DELETE CASCADE,
    slot INTEGER NOT NULL,
    cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (voter_id, question_id, slot),
    UNIQUE (voter_id, question_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_option_id ON vote(option_id);
CREATE INDEX IF NOT EXISTS idx_vote_question_id ON vote(question_id);
`
