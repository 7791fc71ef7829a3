// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - election: Election metadata, time window, and lifecycle state
  - ballot_question: Questions per election with min/max selection bounds
  - option: Selectable choices per question
  - voter: Per-election roster with credentials and verification state
  - vote: Append-only ledger of (voter, question, option, slot) selections

# Relationships

	election 1──* ballot_question
	election 1──* voter
	ballot_question 1──* option
	voter *──* option (via vote)

All foreign keys use ON DELETE CASCADE.

# Vote Ledger

The vote table's primary key (voter_id, question_id, slot) serializes
concurrent casts for the same voter and question: both transactions compute
the same next slot, and the second insert fails the unique constraint.
The (voter_id, question_id, option_id) constraint rejects repeat selections
of the same option.

# Indexes

Performance indexes on:

  - election.live_code, election.preview_code (unique)
  - election.status
  - ballot_question.election_id
  - option.question_id
  - voter.election_id
  - voter.pass_name (unique)
  - vote.option_id, vote.question_id
*/
package db
