// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/cliparse"
	"github.com/votexhq/votex/middleware"
	"github.com/votexhq/votex/models"
)

type ElectionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg}
}

// isUniqueViolation reports whether err is a unique-constraint failure
// from either the sqlite or postgres driver
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Timezone == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "timezone is required")
		return
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	if !req.StartDate.Before(req.EndDate) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start_date must be before end_date")
		return
	}

	electionID := auth.NewID()
	ownerKey := auth.GenerateOwnerKey(electionID, h.cfg.OwnerKeySalt)

	// New elections start in BUILDING with no access codes; codes are
	// assigned at launch. This is the whole of default initialization -
	// there are no hidden post-create hooks.
	_, err := h.db.Exec(`
		INSERT INTO election (id, title, description, start_date, end_date, timezone, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, electionID, req.Title, req.Description, req.StartDate, req.EndDate, req.Timezone, models.StatusBuilding, time.Now())

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "An election with this title already exists")
			return
		}
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "title", req.Title)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		OwnerKey:   ownerKey,
	})
}

// GetElection handles GET /elections/:id
// Returns the election with its questions and options, owner-only
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	// Validate owner key
	ownerKey := r.Header.Get("X-Owner-Key")
	if err := auth.ValidateOwnerKey(electionID, ownerKey, h.cfg.OwnerKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid owner key")
		return
	}

	detail, err := loadElectionDetail(h.db, electionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to load election", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

// UpdateElection handles PUT /elections/:id
// Metadata can only change while the election is still BUILDING
func (h *ElectionHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
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

	var req models.UpdateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var election models.Election
	err := h.db.QueryRow(`
		SELECT id, title, description, start_date, end_date, timezone, status, created_at
		FROM election
		WHERE id = $1
	`, electionID).Scan(
		&election.ID, &election.Title, &election.Description, &election.StartDate,
		&election.EndDate, &election.Timezone, &election.Status, &election.CreatedAt,
	)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if election.Status != models.StatusBuilding {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot modify a live election")
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "title cannot be empty")
			return
		}
		election.Title = *req.Title
	}
	if req.Description != nil {
		election.Description = *req.Description
	}
	if req.StartDate != nil {
		election.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		election.EndDate = *req.EndDate
	}
	if req.Timezone != nil {
		if *req.Timezone == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "timezone cannot be empty")
			return
		}
		election.Timezone = *req.Timezone
	}

	if !election.StartDate.Before(election.EndDate) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start_date must be before end_date")
		return
	}

	_, err = h.db.Exec(`
		UPDATE election
		SET title = $1, description = $2, start_date = $3, end_date = $4, timezone = $5
		WHERE id = $6
	`, election.Title, election.Description, election.StartDate, election.EndDate, election.Timezone, electionID)

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "An election with this title already exists")
			return
		}
		slog.Error("failed to update election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update election")
		return
	}

	slog.Info("election updated", "election_id", electionID)

	middleware.JSONResponse(w, http.StatusOK, election)
}

// DeleteElection handles DELETE /elections/:id
// Questions, options, voters, and votes cascade
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.db.Exec(`DELETE FROM election WHERE id = $1`, electionID)
	if err != nil {
		slog.Error("failed to delete election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete election")
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	slog.Info("election deleted", "election_id", electionID)

	w.WriteHeader(http.StatusNoContent)
}

// LaunchElection handles POST /elections/:id/launch
// Transitions BUILDING -> LIVE. Requires at least one voter and at least one
// question that has options. Launching an already-live election is a no-op
// that returns the existing access codes.
func (h *ElectionHandler) LaunchElection(w http.ResponseWriter, r *http.Request) {
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

	var status string
	var liveCode, previewCode sql.NullString
	err := h.db.QueryRow(`
		SELECT status, live_code, preview_code FROM election WHERE id = $1
	`, electionID).Scan(&status, &liveCode, &previewCode)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Idempotent re-launch
	if status == models.StatusLive {
		middleware.JSONResponse(w, http.StatusOK, models.LaunchElectionResponse{
			Status:      status,
			LiveCode:    liveCode.String,
			PreviewCode: previewCode.String,
		})
		return
	}

	// Launch preconditions
	var voterCount int
	err = h.db.QueryRow(`SELECT COUNT(*) FROM voter WHERE election_id = $1`, electionID).Scan(&voterCount)
	if err != nil {
		slog.Error("failed to count voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if voterCount == 0 {
		middleware.ErrorResponse(w, http.StatusPreconditionFailed, "Election has no voters")
		return
	}

	var readyQuestions int
	err = h.db.QueryRow(`
		SELECT COUNT(*) FROM ballot_question q
		WHERE q.election_id = $1
		  AND EXISTS (SELECT 1 FROM option o WHERE o.question_id = q.id)
	`, electionID).Scan(&readyQuestions)
	if err != nil {
		slog.Error("failed to count ready questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if readyQuestions == 0 {
		middleware.ErrorResponse(w, http.StatusPreconditionFailed, "Election needs at least one question with options")
		return
	}

	newLive := auth.GenerateAccessCode(electionID, "live", h.cfg.AccessCodeSalt)
	newPreview := auth.GenerateAccessCode(electionID, "preview", h.cfg.AccessCodeSalt)

	// The status guard makes concurrent launches converge on one transition
	result, err := h.db.Exec(`
		UPDATE election
		SET status = $1, live_code = $2, preview_code = $3
		WHERE id = $4 AND status = $5
	`, models.StatusLive, newLive, newPreview, electionID, models.StatusBuilding)

	if err != nil {
		slog.Error("failed to launch election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to launch election")
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		// Lost a launch race; codes are deterministic so just return them
		slog.Info("election already launched concurrently", "election_id", electionID)
	} else {
		slog.Info("election launched", "election_id", electionID, "live_code", newLive)
	}

	middleware.JSONResponse(w, http.StatusOK, models.LaunchElectionResponse{
		Status:      models.StatusLive,
		LiveCode:    newLive,
		PreviewCode: newPreview,
	})
}

// GetElectionByCode handles GET /elections/code/:code
// Public lookup by live or preview access code
func (h *ElectionHandler) GetElectionByCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "code is required")
		return
	}

	var electionID string
	var liveCode sql.NullString
	err := h.db.QueryRow(`
		SELECT id, live_code FROM election
		WHERE live_code = $1 OR preview_code = $1
	`, code).Scan(&electionID, &liveCode)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election with this code does not exist")
		return
	}
	if err != nil {
		slog.Error("failed to query election by code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	detail, err := loadElectionDetail(h.db, electionID)
	if err != nil {
		slog.Error("failed to load election", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	mode := "preview"
	if liveCode.Valid && liveCode.String == code {
		mode = "live"
	}

	response := map[string]interface{}{
		"election":  detail.Election,
		"questions": detail.Questions,
		"mode":      mode,
	}

	middleware.JSONResponse(w, http.StatusOK, response)
}

// loadElectionDetail fetches an election with its questions and options
func loadElectionDetail(db *sql.DB, electionID string) (*models.ElectionDetail, error) {
	var election models.Election
	err := db.QueryRow(`
		SELECT id, title, description, start_date, end_date, timezone, status,
		       live_code, preview_code, created_at
		FROM election
		WHERE id = $1
	`, electionID).Scan(
		&election.ID, &election.Title, &election.Description, &election.StartDate,
		&election.EndDate, &election.Timezone, &election.Status,
		&election.LiveCode, &election.PreviewCode, &election.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	questions, err := loadQuestions(db, electionID)
	if err != nil {
		return nil, err
	}

	return &models.ElectionDetail{Election: election, Questions: questions}, nil
}

// loadQuestions fetches an election's questions with their options,
// ordered by creation time
func loadQuestions(db *sql.DB, electionID string) ([]models.QuestionWithOptions, error) {
	rows, err := db.Query(`
		SELECT id, election_id, title, description, choice_min, choice_max, created_at
		FROM ballot_question
		WHERE election_id = $1
		ORDER BY created_at, id
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []models.QuestionWithOptions{}
	for rows.Next() {
		var q models.BallotQuestion
		if err := rows.Scan(&q.ID, &q.ElectionID, &q.Title, &q.Description, &q.ChoiceMin, &q.ChoiceMax, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, models.QuestionWithOptions{Question: q, Options: []models.Option{}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		optRows, err := db.Query(`
			SELECT id, question_id, title, description, created_at
			FROM option
			WHERE question_id = $1
			ORDER BY created_at, id
		`, questions[i].Question.ID)
		if err != nil {
			return nil, err
		}
		for optRows.Next() {
			var opt models.Option
			if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Title, &opt.Description, &opt.CreatedAt); err != nil {
				optRows.Close()
				return nil, err
			}
			questions[i].Options = append(questions[i].Options, opt)
		}
		if err := optRows.Err(); err != nil {
			optRows.Close()
			return nil, err
		}
		optRows.Close()
	}

	return questions, nil
}
