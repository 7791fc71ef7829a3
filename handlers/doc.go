// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Votex API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: Election lifecycle (create, update, launch, code lookup)
  - QuestionHandler: Ballot composition (questions and options)
  - VoterHandler: Voter registration, verification, and login
  - VoteHandler: Vote casting and vote recall
  - ResultsHandler: Tally retrieval

Handlers are created via constructor functions that accept *sql.DB and Config:

	electionHandler := handlers.NewElectionHandler(db, cfg)

# Election Lifecycle

Elections progress through two states: BUILDING → LIVE

	POST /elections                → CreateElection (returns owner_key)
	POST /elections/{id}/questions → CreateQuestion (BUILDING only)
	POST /elections/{id}/voters    → RegisterVoter
	POST /elections/{id}/launch    → LaunchElection (generates access codes)

Owner operations require the X-Owner-Key header. The ballot cannot change
once an election is LIVE.

# Voting Flow

Voters log in with the credentials generated at registration and cast one
atomic ballot batch:

	POST /voters/{vid}/verify?token=.. → VerifyVoter (proof from the mailed link)
	POST /elections/{id}/voters/login  → Login (returns a session token)
	POST /elections/{id}/votes         → CastVote
	GET  /elections/{id}/votes         → GetMyVotes

Voting operations require an Authorization: Bearer header carrying the
session token. A batch either fully commits or fully rolls back; votes are
never retracted. Eligibility is re-checked against stored state inside the
casting transaction, and the vote table's keys guarantee that concurrent
casts for the same question cannot jointly exceed choice_max.

# Tally

Results are computed on demand in tally.go:

	result, err := computeElectionResults(db, electionID, title)

Each option gets a count, a percentage of participating voters, and a
pie-chart degree. The participating-voter denominator counts distinct
voters with at least one recorded vote anywhere in the election.
*/
package handlers
