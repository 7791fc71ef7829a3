// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/cliparse"
	"github.com/votexhq/votex/mailer"
	"github.com/votexhq/votex/middleware"
	"github.com/votexhq/votex/models"
)

// passNameAttempts caps the collision-retry loop during registration.
// Collisions on an 8-char alphanumeric token are vanishingly rare, so
// hitting the cap means something is wrong with the RNG or the table.
const passNameAttempts = 10

type VoterHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	mailer mailer.Mailer
}

func NewVoterHandler(db *sql.DB, cfg cliparse.Config, m mailer.Mailer) *VoterHandler {
	return &VoterHandler{db: db, cfg: cfg, mailer: m}
}

// isPassNameCollision reports whether a unique violation is specifically
// on the voter pass_name index. Both drivers name the column in the error.
func isPassNameCollision(err error) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), "pass_name")
}

// nullableString maps "" to NULL so optional unique columns do not
// collide on empty values
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// RegisterVoter handles POST /elections/:id/voters
func (h *VoterHandler) RegisterVoter(w http.ResponseWriter, r *http.Request) {
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

	var req models.RegisterVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	var electionTitle string
	err := h.db.QueryRow(`SELECT title FROM election WHERE id = $1`, electionID).Scan(&electionTitle)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	passKey, err := auth.GeneratePassKey()
	if err != nil {
		slog.Error("failed to generate pass key", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}
	passKeyHash, err := auth.HashPassKey(passKey)
	if err != nil {
		slog.Error("failed to hash pass key", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	voterID := auth.NewID()
	passName, err := auth.GeneratePassName()
	if err != nil {
		slog.Error("failed to generate pass name", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	// Insert-and-retry: the unique index on pass_name arbitrates collisions,
	// so two racing registrations can never share a pass name. Each retry
	// extends the candidate with fresh entropy.
	for attempt := 0; ; attempt++ {
		_, err = h.db.Exec(`
			INSERT INTO voter (id, election_id, email, phone, pass_name, pass_key_hash, verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, voterID, electionID, req.Email, nullableString(req.Phone), passName, passKeyHash, false, time.Now())

		if err == nil {
			break
		}
		if isPassNameCollision(err) {
			if attempt >= passNameAttempts {
				slog.Error("pass name generation exhausted retries", "election_id", electionID)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
				return
			}
			passName, err = auth.ExtendPassName(passName)
			if err != nil {
				slog.Error("failed to extend pass name", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
				return
			}
			continue
		}
		if isUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "A voter with this email or phone is already registered")
			return
		}
		slog.Error("failed to insert voter", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voter")
		return
	}

	slog.Info("voter registered", "election_id", electionID, "voter_id", voterID)

	verifyToken := auth.GenerateVerifyToken(voterID, req.Email, h.cfg.OwnerKeySalt)
	h.mailer.SendVerification(req.Email, electionTitle, fmt.Sprintf("/voters/%s/verify?token=%s", voterID, verifyToken))

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterVoterResponse{
		VoterID:  voterID,
		PassName: passName,
		PassKey:  passKey,
	})
}

// BulkRegisterVoters handles POST /elections/:id/voters/bulk
// The whole batch commits or none of it does
func (h *VoterHandler) BulkRegisterVoters(w http.ResponseWriter, r *http.Request) {
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

	var req models.BulkRegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Voters) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voters list is empty")
		return
	}
	for _, v := range req.Voters {
		if v.Email == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "every voter needs an email")
			return
		}
	}

	var electionTitle string
	err := h.db.QueryRow(`SELECT title FROM election WHERE id = $1`, electionID).Scan(&electionTitle)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	registered := make([]models.RegisterVoterResponse, 0, len(req.Voters))
	for _, v := range req.Voters {
		passKey, err := auth.GeneratePassKey()
		if err != nil {
			slog.Error("failed to generate pass key", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
			return
		}
		passKeyHash, err := auth.HashPassKey(passKey)
		if err != nil {
			slog.Error("failed to hash pass key", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
			return
		}

		// Postgres aborts a transaction on any statement error, so inside
		// the batch the pass name is settled with reads instead of
		// insert-and-retry. The unique index still backstops the rare race.
		passName, err := auth.GeneratePassName()
		if err != nil {
			slog.Error("failed to generate pass name", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
			return
		}
		for attempt := 0; ; attempt++ {
			var taken bool
			if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM voter WHERE pass_name = $1)`, passName).Scan(&taken); err != nil {
				slog.Error("failed to check pass name", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
				return
			}
			if !taken {
				break
			}
			if attempt >= passNameAttempts {
				slog.Error("pass name generation exhausted retries", "election_id", electionID)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
				return
			}
			passName, err = auth.ExtendPassName(passName)
			if err != nil {
				slog.Error("failed to extend pass name", "error", err)
				middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
				return
			}
		}

		voterID := auth.NewID()
		_, err = tx.Exec(`
			INSERT INTO voter (id, election_id, email, phone, pass_name, pass_key_hash, verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, voterID, electionID, v.Email, nullableString(v.Phone), passName, passKeyHash, false, time.Now())
		if err != nil {
			if isUniqueViolation(err) {
				middleware.ErrorResponse(w, http.StatusConflict, fmt.Sprintf("Voter %s is already registered", v.Email))
				return
			}
			slog.Error("failed to insert voter", "error", err, "election_id", electionID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
			return
		}

		registered = append(registered, models.RegisterVoterResponse{
			VoterID:  voterID,
			PassName: passName,
			PassKey:  passKey,
		})
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit voter batch", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register voters")
		return
	}

	slog.Info("voters registered in bulk", "election_id", electionID, "count", len(registered))

	for i, v := range req.Voters {
		verifyToken := auth.GenerateVerifyToken(registered[i].VoterID, v.Email, h.cfg.OwnerKeySalt)
		h.mailer.SendVerification(v.Email, electionTitle, fmt.Sprintf("/voters/%s/verify?token=%s", registered[i].VoterID, verifyToken))
	}

	middleware.JSONResponse(w, http.StatusCreated, models.BulkRegisterResponse{Voters: registered})
}

// ListVoters handles GET /elections/:id/voters
func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
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
	if err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM election WHERE id = $1)`, electionID).Scan(&exists); err != nil {
		slog.Error("failed to query election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, election_id, email, phone, pass_name, verified, created_at
		FROM voter
		WHERE election_id = $1
		ORDER BY created_at, id
	`, electionID)
	if err != nil {
		slog.Error("failed to query voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		var v models.Voter
		var phone sql.NullString
		if err := rows.Scan(&v.ID, &v.ElectionID, &v.Email, &phone, &v.PassName, &v.Verified, &v.CreatedAt); err != nil {
			slog.Error("failed to scan voter", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		v.Phone = phone.String
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate voters", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, voters)
}

// DeleteVoter handles DELETE /voters/:vid
// The owner key is checked against the voter's election
func (h *VoterHandler) DeleteVoter(w http.ResponseWriter, r *http.Request) {
	voterID := r.PathValue("vid")
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_id is required")
		return
	}

	var electionID string
	err := h.db.QueryRow(`SELECT election_id FROM voter WHERE id = $1`, voterID).Scan(&electionID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	ownerKey := r.Header.Get("X-Owner-Key")
	if err := auth.ValidateOwnerKey(electionID, ownerKey, h.cfg.OwnerKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid owner key")
		return
	}

	if _, err := h.db.Exec(`DELETE FROM voter WHERE id = $1`, voterID); err != nil {
		slog.Error("failed to delete voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete voter")
		return
	}

	slog.Info("voter deleted", "voter_id", voterID, "election_id", electionID)

	w.WriteHeader(http.StatusNoContent)
}

// VerifyVoter handles POST /voters/:vid/verify?token=...
// The token is the HMAC proof mailed at registration; without it the voter
// id alone is not enough to flip the verified flag. Verification is
// idempotent; re-verifying an already verified voter succeeds without
// changing anything.
func (h *VoterHandler) VerifyVoter(w http.ResponseWriter, r *http.Request) {
	voterID := r.PathValue("vid")
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_id is required")
		return
	}

	verifyToken := r.URL.Query().Get("token")
	if verifyToken == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "verification token is required")
		return
	}

	var email string
	err := h.db.QueryRow(`SELECT email FROM voter WHERE id = $1`, voterID).Scan(&email)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voter not found")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.ValidateVerifyToken(voterID, email, verifyToken, h.cfg.OwnerKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid verification token")
		return
	}

	if _, err := h.db.Exec(`UPDATE voter SET verified = $1 WHERE id = $2`, true, voterID); err != nil {
		slog.Error("failed to verify voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to verify voter")
		return
	}

	slog.Info("voter verified", "voter_id", voterID)

	middleware.JSONResponse(w, http.StatusOK, models.VerifyVoterResponse{
		VoterID:  voterID,
		Verified: true,
	})
}

// Login handles POST /elections/:id/voters/login
// Only verified voters receive a session token. Invalid credentials and
// unknown pass names are indistinguishable to the caller.
func (h *VoterHandler) Login(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id is required")
		return
	}

	var req models.VoterLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.PassName == "" || req.PassKey == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pass_name and pass_key are required")
		return
	}

	var voterID, passKeyHash string
	var verified bool
	err := h.db.QueryRow(`
		SELECT id, pass_key_hash, verified
		FROM voter
		WHERE pass_name = $1 AND election_id = $2
	`, req.PassName, electionID).Scan(&voterID, &passKeyHash, &verified)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		slog.Error("failed to query voter", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassKey(passKeyHash, req.PassKey); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !verified {
		middleware.ErrorResponse(w, http.StatusForbidden, "Voter is not verified")
		return
	}

	token, expiresAt, err := auth.GenerateSessionToken(voterID, electionID, h.cfg.VoterJWTSecret, h.cfg.VoterJWTTTL)
	if err != nil {
		slog.Error("failed to issue session token", "error", err, "voter_id", voterID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("voter logged in", "voter_id", voterID, "election_id", electionID)

	middleware.JSONResponse(w, http.StatusOK, models.VoterLoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
