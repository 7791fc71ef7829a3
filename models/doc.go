// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateElectionRequest: title, description, start_date, end_date, timezone
  - UpdateElectionRequest: pointer fields for partial updates
  - CreateQuestionRequest: title, description, choice_min, choice_max
  - AddOptionRequest: title, description
  - RegisterVoterRequest: email, phone
  - BulkRegisterRequest: voters
  - VoterLoginRequest: pass_name, pass_key
  - QuestionSubmission: ballot_question_id, option_ids (cast bodies are
    arrays of these)

# Response Types

Types for JSON responses:

  - CreateElectionResponse: election_id, owner_key
  - LaunchElectionResponse: status, live_code, preview_code
  - RegisterVoterResponse: voter_id, pass_name, pass_key (plaintext, once)
  - VoterLoginResponse: token, expires_at
  - CastVoteResponse: recorded choices
  - ElectionResult: per-question tallies plus participation counters
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Election: metadata, lifecycle status, access codes
  - BallotQuestion: selection bounds choice_min..choice_max
  - Option: candidate answer for a question
  - Voter: registration record; the pass-key hash stays out of this type
  - QuestionWithOptions, ElectionDetail: aggregate read shapes
  - OptionTally, QuestionResult: tally output

# Constants

Status values:

	StatusBuilding = "BUILDING"
	StatusLive     = "LIVE"
*/
package models
