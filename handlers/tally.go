// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"math"
	"net/http"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/cliparse"
	"github.com/votexhq/votex/middleware"
	"github.com/votexhq/votex/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// tallyShares converts a raw option count into a percentage of voters and
// the matching pie-chart angle. A zero denominator yields zeros, never NaN.
func tallyShares(count, voters int) (percentage, degree float64) {
	if voters == 0 {
		return 0, 0
	}
	percentage = float64(count) / float64(voters) * 100
	percentage = math.Round(percentage*100) / 100
	degree = math.Round(percentage/100*360*100) / 100
	return percentage, degree
}

// GetResults handles GET /elections/:id/results, owner-only.
//
// Percentages are relative to the number of distinct voters who cast at
// least one vote anywhere in the election, so "60% for option A" reads as
// "60% of participating voters chose A". With multi-choice questions the
// percentages of one question can legitimately sum past 100.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	ownerKey := r.Header.Get("X-Owner-Key")
	if err := auth.ValidateOwnerKey(electionID, ownerKey, h.cfg.OwnerKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid owner key")
		return
	}

	var title string
	err := h.db.QueryRow(`SELECT title FROM election WHERE id = $1`, electionID).Scan(&title)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	result, err := computeElectionResults(h.db, electionID, title)
	if err != nil {
		slog.Error("failed to compute results", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, result)
}

// computeElectionResults aggregates the vote ledger into per-question
// option tallies plus election-wide participation counters
func computeElectionResults(db *sql.DB, electionID, title string) (*models.ElectionResult, error) {
	var totalVoters, eligibleVoters, votersWhoVoted int
	err := db.QueryRow(`
		SELECT COUNT(*),
		       COUNT(CASE WHEN verified THEN 1 END)
		FROM voter WHERE election_id = $1
	`, electionID).Scan(&totalVoters, &eligibleVoters)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow(`
		SELECT COUNT(DISTINCT v.voter_id)
		FROM vote v
		JOIN ballot_question q ON q.id = v.question_id
		WHERE q.election_id = $1
	`, electionID).Scan(&votersWhoVoted)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT q.id, q.title, o.id, o.title, COUNT(v.option_id)
		FROM ballot_question q
		JOIN option o ON o.question_id = q.id
		LEFT JOIN vote v ON v.option_id = o.id
		WHERE q.election_id = $1
		GROUP BY q.id, q.title, o.id, o.title, q.created_at, o.created_at
		ORDER BY q.created_at, q.id, o.created_at, o.id
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []models.QuestionResult{}
	index := map[string]int{}
	for rows.Next() {
		var questionID, questionTitle, optionID, optionTitle string
		var count int
		if err := rows.Scan(&questionID, &questionTitle, &optionID, &optionTitle, &count); err != nil {
			return nil, err
		}

		i, ok := index[questionID]
		if !ok {
			i = len(questions)
			index[questionID] = i
			questions = append(questions, models.QuestionResult{
				QuestionID: questionID,
				Title:      questionTitle,
				Options:    []models.OptionTally{},
			})
		}

		pct, deg := tallyShares(count, votersWhoVoted)
		questions[i].TotalVotes += count
		questions[i].Options = append(questions[i].Options, models.OptionTally{
			OptionID:   optionID,
			Title:      optionTitle,
			Count:      count,
			Percentage: pct,
			Degree:     deg,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.ElectionResult{
		Title:               title,
		Questions:           questions,
		EligibleVoterCount:  eligibleVoters,
		TotalVoterCount:     totalVoters,
		VotersWhoVotedCount: votersWhoVoted,
	}, nil
}
