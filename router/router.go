// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/votexhq/votex/cliparse"
	"github.com/votexhq/votex/handlers"
	"github.com/votexhq/votex/mailer"
	"github.com/votexhq/votex/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, m mailer.Mailer) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg)
	questionHandler := handlers.NewQuestionHandler(db, cfg)
	voterHandler := handlers.NewVoterHandler(db, cfg, m)
	voteHandler := handlers.NewVoteHandler(db, cfg)
	resultsHandler := handlers.NewResultsHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Election management (owner operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("PUT /elections/{id}", middleware.WithLogging(electionHandler.UpdateElection))
	mux.HandleFunc("DELETE /elections/{id}", middleware.WithLogging(electionHandler.DeleteElection))
	mux.HandleFunc("POST /elections/{id}/launch", middleware.WithLogging(electionHandler.LaunchElection))

	// Ballot composition (owner operations, BUILDING only)
	mux.HandleFunc("POST /elections/{id}/questions", middleware.WithLogging(questionHandler.CreateQuestion))
	mux.HandleFunc("GET /elections/{id}/questions", middleware.WithLogging(questionHandler.ListQuestions))
	mux.HandleFunc("PUT /elections/{id}/questions/{qid}", middleware.WithLogging(questionHandler.UpdateQuestion))
	mux.HandleFunc("DELETE /elections/{id}/questions/{qid}", middleware.WithLogging(questionHandler.DeleteQuestion))
	mux.HandleFunc("POST /elections/{id}/questions/{qid}/options", middleware.WithLogging(questionHandler.AddOption))
	mux.HandleFunc("DELETE /elections/{id}/questions/{qid}/options/{oid}", middleware.WithLogging(questionHandler.DeleteOption))

	// Voter directory
	mux.HandleFunc("POST /elections/{id}/voters", middleware.WithLogging(voterHandler.RegisterVoter))
	mux.HandleFunc("POST /elections/{id}/voters/bulk", middleware.WithLogging(voterHandler.BulkRegisterVoters))
	mux.HandleFunc("GET /elections/{id}/voters", middleware.WithLogging(voterHandler.ListVoters))
	mux.HandleFunc("DELETE /voters/{vid}", middleware.WithLogging(voterHandler.DeleteVoter))
	mux.HandleFunc("POST /voters/{vid}/verify", middleware.WithLogging(voterHandler.VerifyVoter))
	mux.HandleFunc("POST /elections/{id}/voters/login", middleware.WithLogging(voterHandler.Login))

	// Voting (authenticated voters)
	mux.HandleFunc("POST /elections/{id}/votes", middleware.WithLogging(voteHandler.CastVote))
	mux.HandleFunc("GET /elections/{id}/votes", middleware.WithLogging(voteHandler.GetMyVotes))

	// Results (owner only)
	mux.HandleFunc("GET /elections/{id}/results", middleware.WithLogging(resultsHandler.GetResults))

	// Public access-code lookup
	mux.HandleFunc("GET /elections/code/{code}", middleware.WithLogging(electionHandler.GetElectionByCode))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("votex API v1"))
	})

	return mux
}
