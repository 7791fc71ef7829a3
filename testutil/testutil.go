// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/cliparse"
	votexdb "github.com/votexhq/votex/db"
	"github.com/votexhq/votex/models"
)

// SetupTestDB opens a fresh in-memory sqlite database with the full schema.
// A single connection is forced so every query sees the same in-memory
// database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := votexdb.CreateSchema(db); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3425,
		DatabaseURL:    "file::memory:",
		DatabaseType:   "sqlite",
		OwnerKeySalt:   "test-owner-salt",
		AccessCodeSalt: "test-code-salt",
		VoterJWTSecret: "test-jwt-secret",
		VoterJWTTTL:    15 * time.Minute,
	}
}

// CreateTestElection inserts an election and returns its ID and owner key.
// status should be models.StatusBuilding or models.StatusLive; live
// elections get access codes and a voting window spanning now.
func CreateTestElection(t *testing.T, db *sql.DB, cfg cliparse.Config, status string) (electionID, ownerKey string) {
	t.Helper()

	electionID = auth.NewID()
	ownerKey = auth.GenerateOwnerKey(electionID, cfg.OwnerKeySalt)

	var liveCode, previewCode *string
	if status == models.StatusLive {
		lc := auth.GenerateAccessCode(electionID, "live", cfg.AccessCodeSalt)
		pc := auth.GenerateAccessCode(electionID, "preview", cfg.AccessCodeSalt)
		liveCode, previewCode = &lc, &pc
	}

	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO election (id, title, description, start_date, end_date, timezone, status, live_code, preview_code, created_at)
		VALUES ($1, $2, 'A test election', $3, $4, 'UTC', $5, $6, $7, $8)
	`, electionID, "Test Election "+electionID[:8], now.Add(-time.Hour), now.Add(time.Hour), status, liveCode, previewCode, now)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	return electionID, ownerKey
}

// SetElectionWindow overrides the voting window of an election
func SetElectionWindow(t *testing.T, db *sql.DB, electionID string, start, end time.Time) {
	t.Helper()

	if _, err := db.Exec(`UPDATE election SET start_date = $1, end_date = $2 WHERE id = $3`, start, end, electionID); err != nil {
		t.Fatalf("Failed to set election window: %v", err)
	}
}

// AddTestQuestion adds a ballot question and returns its ID
func AddTestQuestion(t *testing.T, db *sql.DB, electionID, title string, choiceMin, choiceMax int) string {
	t.Helper()

	questionID := auth.NewID()
	_, err := db.Exec(`
		INSERT INTO ballot_question (id, election_id, title, description, choice_min, choice_max, created_at)
		VALUES ($1, $2, $3, '', $4, $5, $6)
	`, questionID, electionID, title, choiceMin, choiceMax, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}

	return questionID
}

// AddTestOption adds an option to a question and returns the option ID
func AddTestOption(t *testing.T, db *sql.DB, questionID, title string) string {
	t.Helper()

	optionID := auth.NewID()
	_, err := db.Exec(`
		INSERT INTO option (id, question_id, title, description, created_at)
		VALUES ($1, $2, $3, '', $4)
	`, optionID, questionID, title, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// CreateTestVoter registers a verified voter and returns its ID plus the
// plaintext pass key the voter would have been shown once
func CreateTestVoter(t *testing.T, db *sql.DB, electionID, email string) (voterID, passName, passKey string) {
	t.Helper()

	voterID = auth.NewID()
	passName, err := auth.GeneratePassName()
	if err != nil {
		t.Fatalf("Failed to generate pass name: %v", err)
	}
	passKey, err = auth.GeneratePassKey()
	if err != nil {
		t.Fatalf("Failed to generate pass key: %v", err)
	}
	hash, err := auth.HashPassKey(passKey)
	if err != nil {
		t.Fatalf("Failed to hash pass key: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO voter (id, election_id, email, phone, pass_name, pass_key_hash, verified, created_at)
		VALUES ($1, $2, $3, NULL, $4, $5, $6, $7)
	`, voterID, electionID, email, passName, hash, true, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return voterID, passName, passKey
}

// VoterToken issues a session token the way login does
func VoterToken(t *testing.T, cfg cliparse.Config, voterID, electionID string) string {
	t.Helper()

	token, _, err := auth.GenerateSessionToken(voterID, electionID, cfg.VoterJWTSecret, cfg.VoterJWTTTL)
	if err != nil {
		t.Fatalf("Failed to issue session token: %v", err)
	}
	return token
}

// CastTestVotes writes ledger rows directly, bypassing the handler
func CastTestVotes(t *testing.T, db *sql.DB, voterID, questionID string, optionIDs []string) {
	t.Helper()

	var current int
	if err := db.QueryRow(`SELECT COUNT(*) FROM vote WHERE voter_id = $1 AND question_id = $2`, voterID, questionID).Scan(&current); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}

	for i, optionID := range optionIDs {
		_, err := db.Exec(`
			INSERT INTO vote (voter_id, question_id, option_id, slot, cast_at)
			VALUES ($1, $2, $3, $4, $5)
		`, voterID, questionID, optionID, current+i, time.Now())
		if err != nil {
			t.Fatalf("Failed to cast test vote: %v", err)
		}
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
