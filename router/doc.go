// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Votex API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, mailer.NewLogMailer())

# Endpoints

Health:

	GET /health

Election management (owner, requires X-Owner-Key):

	POST   /elections             - Create election
	GET    /elections/{id}        - Get election with its ballot
	PUT    /elections/{id}        - Update metadata (BUILDING only)
	DELETE /elections/{id}        - Delete election
	POST   /elections/{id}/launch - Go live, generate access codes

Ballot composition (owner, BUILDING only):

	POST   /elections/{id}/questions                     - Add question
	GET    /elections/{id}/questions                     - List questions with options
	PUT    /elections/{id}/questions/{qid}               - Update question
	DELETE /elections/{id}/questions/{qid}               - Remove question
	POST   /elections/{id}/questions/{qid}/options       - Add option
	DELETE /elections/{id}/questions/{qid}/options/{oid} - Remove option

Voter directory:

	POST   /elections/{id}/voters       - Register voter (owner)
	POST   /elections/{id}/voters/bulk  - Batch registration (owner)
	GET    /elections/{id}/voters       - List voters (owner)
	DELETE /voters/{vid}                - Remove voter (owner)
	POST   /voters/{vid}/verify         - Mark verified (proof token from mail link)
	POST   /elections/{id}/voters/login - Exchange credentials for a token

Voting (requires Authorization: Bearer):

	POST /elections/{id}/votes - Cast an atomic ballot batch
	GET  /elections/{id}/votes - Recall own recorded votes

Results (owner):

	GET /elections/{id}/results - Per-question tallies

Public:

	GET /elections/code/{code} - Look up an election by access code

# Handler Initialization

The router creates handler instances with dependency injection:

	electionHandler := handlers.NewElectionHandler(db, cfg)
	voterHandler := handlers.NewVoterHandler(db, cfg, m)
	voteHandler := handlers.NewVoteHandler(db, cfg)

All handlers receive the database connection and configuration; the voter
handler additionally takes the mail dispatcher.
*/
package router
