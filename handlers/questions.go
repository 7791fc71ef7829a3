// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/cliparse"
	"github.com/votexhq/votex/middleware"
	"github.com/votexhq/votex/models"
)

type QuestionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewQuestionHandler(db *sql.DB, cfg cliparse.Config) *QuestionHandler {
	return &QuestionHandler{db: db, cfg: cfg}
}

// requireBuildingElection validates the owner key and confirms the election
// exists and is still BUILDING. Writes the error response itself and returns
// false when the request should not proceed.
func requireBuildingElection(w http.ResponseWriter, r *http.Request, db *sql.DB, electionID, salt string) bool {
	ownerKey := r.Header.Get("X-Owner-Key")
	if err := auth.ValidateOwnerKey(electionID, ownerKey, salt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid owner key")
		return false
	}

	var status string
	err := db.QueryRow(`SELECT status FROM election WHERE id = $1`, electionID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}

	if status != models.StatusBuilding {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot modify the ballot of a live election")
		return false
	}

	return true
}

// CreateQuestion handles POST /elections/:id/questions
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	var req models.CreateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	// Selection bounds default to single-choice
	if req.ChoiceMin == 0 {
		req.ChoiceMin = 1
	}
	if req.ChoiceMax == 0 {
		req.ChoiceMax = 1
	}
	if req.ChoiceMin < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choice_min must be at least 1")
		return
	}
	if req.ChoiceMin > req.ChoiceMax {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choice_min cannot exceed choice_max")
		return
	}

	if !requireBuildingElection(w, r, h.db, electionID, h.cfg.OwnerKeySalt) {
		return
	}

	questionID := auth.NewID()
	_, err := h.db.Exec(`
		INSERT INTO ballot_question (id, election_id, title, description, choice_min, choice_max, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, questionID, electionID, req.Title, req.Description, req.ChoiceMin, req.ChoiceMax, time.Now())

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "A question with this title already exists in this election")
			return
		}
		slog.Error("failed to insert question", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create question")
		return
	}

	slog.Info("question created", "election_id", electionID, "question_id", questionID)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateQuestionResponse{
		QuestionID: questionID,
	})
}

// ListQuestions handles GET /elections/:id/questions
// Owner view of the ballot, available in any lifecycle state
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
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

	var exists bool
	err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM election WHERE id = $1)`, electionID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	questions, err := loadQuestions(h.db, electionID)
	if err != nil {
		slog.Error("failed to load questions", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, questions)
}

// UpdateQuestion handles PUT /elections/:id/questions/:qid
func (h *QuestionHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	questionID := r.PathValue("qid")
	if electionID == "" || questionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id and question_id are required")
		return
	}

	var req models.UpdateQuestionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !requireBuildingElection(w, r, h.db, electionID, h.cfg.OwnerKeySalt) {
		return
	}

	var q models.BallotQuestion
	err := h.db.QueryRow(`
		SELECT id, election_id, title, description, choice_min, choice_max, created_at
		FROM ballot_question
		WHERE id = $1 AND election_id = $2
	`, questionID, electionID).Scan(
		&q.ID, &q.ElectionID, &q.Title, &q.Description, &q.ChoiceMin, &q.ChoiceMax, &q.CreatedAt,
	)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "title cannot be empty")
			return
		}
		q.Title = *req.Title
	}
	if req.Description != nil {
		q.Description = *req.Description
	}
	if req.ChoiceMin != nil {
		q.ChoiceMin = *req.ChoiceMin
	}
	if req.ChoiceMax != nil {
		q.ChoiceMax = *req.ChoiceMax
	}

	if q.ChoiceMin < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choice_min must be at least 1")
		return
	}
	if q.ChoiceMin > q.ChoiceMax {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choice_min cannot exceed choice_max")
		return
	}

	_, err = h.db.Exec(`
		UPDATE ballot_question
		SET title = $1, description = $2, choice_min = $3, choice_max = $4
		WHERE id = $5
	`, q.Title, q.Description, q.ChoiceMin, q.ChoiceMax, questionID)

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "A question with this title already exists in this election")
			return
		}
		slog.Error("failed to update question", "error", err, "question_id", questionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update question")
		return
	}

	slog.Info("question updated", "election_id", electionID, "question_id", questionID)

	middleware.JSONResponse(w, http.StatusOK, q)
}

// DeleteQuestion handles DELETE /elections/:id/questions/:qid
// Options and votes cascade
func (h *QuestionHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	questionID := r.PathValue("qid")
	if electionID == "" || questionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id and question_id are required")
		return
	}

	if !requireBuildingElection(w, r, h.db, electionID, h.cfg.OwnerKeySalt) {
		return
	}

	result, err := h.db.Exec(`
		DELETE FROM ballot_question WHERE id = $1 AND election_id = $2
	`, questionID, electionID)
	if err != nil {
		slog.Error("failed to delete question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete question")
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	slog.Info("question deleted", "election_id", electionID, "question_id", questionID)

	w.WriteHeader(http.StatusNoContent)
}

// AddOption handles POST /elections/:id/questions/:qid/options
func (h *QuestionHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	questionID := r.PathValue("qid")
	if electionID == "" || questionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id and question_id are required")
		return
	}

	var req models.AddOptionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}

	if !requireBuildingElection(w, r, h.db, electionID, h.cfg.OwnerKeySalt) {
		return
	}

	// The question must belong to this election
	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM ballot_question WHERE id = $1 AND election_id = $2)
	`, questionID, electionID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	optionID := auth.NewID()
	_, err = h.db.Exec(`
		INSERT INTO option (id, question_id, title, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, optionID, questionID, req.Title, req.Description, time.Now())

	if err != nil {
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "An option with this title already exists for this question")
			return
		}
		slog.Error("failed to insert option", "error", err, "question_id", questionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create option")
		return
	}

	slog.Info("option added", "question_id", questionID, "option_id", optionID)

	middleware.JSONResponse(w, http.StatusCreated, models.AddOptionResponse{
		OptionID: optionID,
	})
}

// DeleteOption handles DELETE /elections/:id/questions/:qid/options/:oid
func (h *QuestionHandler) DeleteOption(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	questionID := r.PathValue("qid")
	optionID := r.PathValue("oid")
	if electionID == "" || questionID == "" || optionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id, question_id, and option_id are required")
		return
	}

	if !requireBuildingElection(w, r, h.db, electionID, h.cfg.OwnerKeySalt) {
		return
	}

	result, err := h.db.Exec(`
		DELETE FROM option
		WHERE id = $1 AND question_id IN (
			SELECT id FROM ballot_question WHERE id = $2 AND election_id = $3
		)
	`, optionID, questionID, electionID)
	if err != nil {
		slog.Error("failed to delete option", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete option")
		return
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
		return
	}

	slog.Info("option deleted", "question_id", questionID, "option_id", optionID)

	w.WriteHeader(http.StatusNoContent)
}
