// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/cliparse"
	"github.com/votexhq/votex/middleware"
	"github.com/votexhq/votex/models"
)

// voteTxTimeout bounds the casting transaction. A commit that outlives it
// may or may not have been applied, which callers see as a distinct
// "vote state unknown" error rather than a retryable failure.
const voteTxTimeout = 5 * time.Second

type VoteHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewVoteHandler(db *sql.DB, cfg cliparse.Config) *VoteHandler {
	return &VoteHandler{db: db, cfg: cfg}
}

// CastVote handles POST /elections/:id/votes
//
// The body is a batch of per-question submissions. The whole batch commits
// or rolls back as one unit; there is no partial ballot and no un-vote.
// Eligibility is enforced against live state: ledger rows for a
// (voter, question) pair occupy consecutive slots, and the slot is part of
// the primary key, so two concurrent casts that both read the same current
// count collide on insert and exactly one wins.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	claims, err := auth.ParseSessionToken(middleware.BearerToken(r), h.cfg.VoterJWTSecret)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session token")
		return
	}
	if claims.ElectionID != electionID {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session token is not valid for this election")
		return
	}
	voterID := claims.VoterID

	var submissions []models.QuestionSubmission
	if err := middleware.ParseJSONBody(r, &submissions); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(submissions) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "At least one submission is required")
		return
	}

	// A batch may not name the same question twice or repeat an option
	seenQuestions := make(map[string]bool, len(submissions))
	for _, sub := range submissions {
		if sub.BallotQuestionID == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "ballot_question_id is required")
			return
		}
		if seenQuestions[sub.BallotQuestionID] {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Duplicate question in batch")
			return
		}
		seenQuestions[sub.BallotQuestionID] = true

		seenOptions := make(map[string]bool, len(sub.OptionIDs))
		for _, optID := range sub.OptionIDs {
			if seenOptions[optID] {
				middleware.ErrorResponse(w, http.StatusBadRequest, "Duplicate option in submission")
				return
			}
			seenOptions[optID] = true
		}
	}

	var status string
	var startDate, endDate time.Time
	err = h.db.QueryRow(`
		SELECT status, start_date, end_date FROM election WHERE id = $1
	`, electionID).Scan(&status, &startDate, &endDate)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := time.Now()
	if status != models.StatusLive || now.Before(startDate) || !now.Before(endDate) {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	// Validate the ballot shape before touching the ledger
	type checkedSubmission struct {
		questionID string
		optionIDs  []string
		choiceMax  int
	}
	checked := make([]checkedSubmission, 0, len(submissions))
	for _, sub := range submissions {
		var choiceMin, choiceMax int
		err := h.db.QueryRow(`
			SELECT choice_min, choice_max FROM ballot_question
			WHERE id = $1 AND election_id = $2
		`, sub.BallotQuestionID, electionID).Scan(&choiceMin, &choiceMax)
		if err == sql.ErrNoRows {
			middleware.ErrorResponse(w, http.StatusNotFound, "Question does not belong to this election")
			return
		}
		if err != nil {
			slog.Error("failed to query question", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		if len(sub.OptionIDs) < choiceMin || len(sub.OptionIDs) > choiceMax {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid number of choices for question")
			return
		}

		for _, optID := range sub.OptionIDs {
			var belongs bool
			err := h.db.QueryRow(`
				SELECT EXISTS(SELECT 1 FROM option WHERE id = $1 AND question_id = $2)
			`, optID, sub.BallotQuestionID).Scan(&belongs)
			if err != nil {
				slog.Error("failed to query option", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
			if !belongs {
				middleware.ErrorResponse(w, http.StatusNotFound, "Option does not belong to question")
				return
			}
		}

		checked = append(checked, checkedSubmission{
			questionID: sub.BallotQuestionID,
			optionIDs:  sub.OptionIDs,
			choiceMax:  choiceMax,
		})
	}

	ctx, cancel := context.WithTimeout(r.Context(), voteTxTimeout)
	defer cancel()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin vote transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	for _, sub := range checked {
		var current int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM vote WHERE voter_id = $1 AND question_id = $2
		`, voterID, sub.questionID).Scan(&current)
		if err != nil {
			slog.Error("failed to count existing votes", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		if current+len(sub.optionIDs) > sub.choiceMax {
			middleware.ErrorResponse(w, http.StatusConflict, "Already voted on this question")
			return
		}

		// Slots fill consecutively from the current count. If another cast
		// committed between the count above and these inserts, the slot
		// primary key collides and this whole batch rolls back.
		for i, optID := range sub.optionIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO vote (voter_id, question_id, option_id, slot, cast_at)
				VALUES ($1, $2, $3, $4, $5)
			`, voterID, sub.questionID, optID, current+i, time.Now())
			if err != nil {
				if isUniqueViolation(err) {
					middleware.ErrorResponse(w, http.StatusConflict, "Already voted on this question")
					return
				}
				slog.Error("failed to insert vote", "error", err, "voter_id", voterID, "question_id", sub.questionID)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Already voted on this question")
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// The commit may or may not have landed. Never retry here; the
			// voter must query current state before trying again.
			slog.Error("vote commit timed out", "voter_id", voterID, "election_id", electionID)
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Vote state unknown; check recorded votes before retrying")
			return
		}
		slog.Error("failed to commit votes", "error", err, "voter_id", voterID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	slog.Info("ballot recorded", "voter_id", voterID, "election_id", electionID, "questions", len(checked))

	recorded := make([]models.RecordedChoice, 0, len(checked))
	for _, sub := range checked {
		recorded = append(recorded, models.RecordedChoice{
			BallotQuestionID: sub.questionID,
			OptionIDs:        sub.optionIDs,
		})
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{Recorded: recorded})
}

// GetMyVotes handles GET /elections/:id/votes
// Returns the authenticated voter's recorded choices so a client can
// recover after an ambiguous cast result.
func (h *VoteHandler) GetMyVotes(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	claims, err := auth.ParseSessionToken(middleware.BearerToken(r), h.cfg.VoterJWTSecret)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired session token")
		return
	}
	if claims.ElectionID != electionID {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Session token is not valid for this election")
		return
	}

	rows, err := h.db.Query(`
		SELECT v.question_id, v.option_id
		FROM vote v
		JOIN ballot_question q ON q.id = v.question_id
		WHERE v.voter_id = $1 AND q.election_id = $2
		ORDER BY v.question_id, v.slot
	`, claims.VoterID, electionID)
	if err != nil {
		slog.Error("failed to query votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	byQuestion := map[string][]string{}
	order := []string{}
	for rows.Next() {
		var questionID, optionID string
		if err := rows.Scan(&questionID, &optionID); err != nil {
			slog.Error("failed to scan vote", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if _, ok := byQuestion[questionID]; !ok {
			order = append(order, questionID)
		}
		byQuestion[questionID] = append(byQuestion[questionID], optionID)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	recorded := make([]models.RecordedChoice, 0, len(order))
	for _, questionID := range order {
		recorded = append(recorded, models.RecordedChoice{
			BallotQuestionID: questionID,
			OptionIDs:        byQuestion[questionID],
		})
	}

	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{Recorded: recorded})
}
