// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode"

	"github.com/votexhq/votex/auth"
	"github.com/votexhq/votex/mailer"
	"github.com/votexhq/votex/models"
	"github.com/votexhq/votex/testutil"
)

func TestRegisterVoter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVoterHandler(db, cfg, mailer.NewLogMailer())

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)

	tests := []struct {
		name           string
		ownerKey       string
		requestBody    models.RegisterVoterRequest
		expectedStatus int
	}{
		{
			name:           "valid registration",
			ownerKey:       ownerKey,
			requestBody:    models.RegisterVoterRequest{Email: "alice@example.com", Phone: "+15550100"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "duplicate email",
			ownerKey:       ownerKey,
			requestBody:    models.RegisterVoterRequest{Email: "alice@example.com"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "duplicate phone",
			ownerKey:       ownerKey,
			requestBody:    models.RegisterVoterRequest{Email: "alice2@example.com", Phone: "+15550100"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing email",
			ownerKey:       ownerKey,
			requestBody:    models.RegisterVoterRequest{Phone: "+15550101"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid owner key",
			ownerKey:       "bogus",
			requestBody:    models.RegisterVoterRequest{Email: "eve@example.com"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/voters", tt.requestBody, map[string]string{"X-Owner-Key": tt.ownerKey})
			req.SetPathValue("id", electionID)
			w := httptest.NewRecorder()

			handler.RegisterVoter(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var resp models.RegisterVoterResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.VoterID == "" || resp.PassName == "" || resp.PassKey == "" {
					t.Fatal("Expected voter_id, pass_name, and pass_key in response")
				}
				if len(resp.PassName) != 8 {
					t.Errorf("Expected 8-char pass name, got %q", resp.PassName)
				}
				checkPassKeyShape(t, resp.PassKey)

				// The stored hash must verify the plaintext returned once
				var hash string
				var verified bool
				err := db.QueryRow("SELECT pass_key_hash, verified FROM voter WHERE id = $1", resp.VoterID).Scan(&hash, &verified)
				if err != nil {
					t.Fatalf("Failed to query voter: %v", err)
				}
				if hash == resp.PassKey {
					t.Error("Pass key must not be stored in plaintext")
				}
				if err := auth.CheckPassKey(hash, resp.PassKey); err != nil {
					t.Error("Stored hash does not verify the returned pass key")
				}
				if verified {
					t.Error("New voters must start unverified")
				}
			}
		})
	}
}

func checkPassKeyShape(t *testing.T, passKey string) {
	t.Helper()

	if len(passKey) != 8 {
		t.Fatalf("Expected 8-char pass key, got %q", passKey)
	}
	var lower, upper, digits int
	for _, c := range passKey {
		switch {
		case unicode.IsLower(c):
			lower++
		case unicode.IsUpper(c):
			upper++
		case unicode.IsDigit(c):
			digits++
		}
	}
	if lower < 1 || upper < 1 || digits < 3 {
		t.Errorf("Pass key %q does not satisfy charset rule (lower=%d upper=%d digits=%d)", passKey, lower, upper, digits)
	}
}

func TestRegisterVoterUnknownElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVoterHandler(db, cfg, mailer.NewLogMailer())

	ownerKey := auth.GenerateOwnerKey("nonexistent", cfg.OwnerKeySalt)
	req := testutil.MakeRequest("POST", "/elections/nonexistent/voters", models.RegisterVoterRequest{Email: "x@example.com"}, map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", "nonexistent")
	w := httptest.NewRecorder()

	handler.RegisterVoter(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestBulkRegisterVoters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVoterHandler(db, cfg, mailer.NewLogMailer())

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)

	bulk := func(body models.BulkRegisterRequest) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/voters/bulk", body, map[string]string{"X-Owner-Key": ownerKey})
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.BulkRegisterVoters(w, req)
		return w
	}

	t.Run("successful batch", func(t *testing.T) {
		w := bulk(models.BulkRegisterRequest{Voters: []models.RegisterVoterRequest{
			{Email: "a@example.com"},
			{Email: "b@example.com"},
			{Email: "c@example.com"},
		}})
		testutil.AssertStatus(t, w, http.StatusCreated)

		var resp models.BulkRegisterResponse
		testutil.AssertJSON(t, w, &resp)
		if len(resp.Voters) != 3 {
			t.Fatalf("Expected 3 registered voters, got %d", len(resp.Voters))
		}

		seen := map[string]bool{}
		for _, v := range resp.Voters {
			if seen[v.PassName] {
				t.Errorf("Duplicate pass name %q in batch", v.PassName)
			}
			seen[v.PassName] = true
		}
	})

	t.Run("all or nothing on duplicate", func(t *testing.T) {
		w := bulk(models.BulkRegisterRequest{Voters: []models.RegisterVoterRequest{
			{Email: "d@example.com"},
			{Email: "a@example.com"}, // already registered above
		}})
		testutil.AssertStatus(t, w, http.StatusConflict)

		// The valid half of the batch must not have been committed
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM voter WHERE email = 'd@example.com'").Scan(&count); err != nil {
			t.Fatalf("Failed to count voters: %v", err)
		}
		if count != 0 {
			t.Error("Batch partially committed despite conflict")
		}
	})

	t.Run("empty batch", func(t *testing.T) {
		w := bulk(models.BulkRegisterRequest{})
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestVerifyVoter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVoterHandler(db, cfg, mailer.NewLogMailer())

	electionID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)

	voterID := auth.NewID()
	passName, _ := auth.GeneratePassName()
	hash, _ := auth.HashPassKey("Aa345678")
	if _, err := db.Exec(`
		INSERT INTO voter (id, election_id, email, pass_name, pass_key_hash, verified, created_at)
		VALUES ($1, $2, 'u@example.com', $3, $4, 0, CURRENT_TIMESTAMP)
	`, voterID, electionID, passName, hash); err != nil {
		t.Fatalf("Failed to insert voter: %v", err)
	}

	verify := func(vid, token string) *httptest.ResponseRecorder {
		url := "/voters/" + vid + "/verify"
		if token != "" {
			url += "?token=" + token
		}
		req := testutil.MakeRequest("POST", url, nil, nil)
		req.SetPathValue("vid", vid)
		w := httptest.NewRecorder()
		handler.VerifyVoter(w, req)
		return w
	}

	assertUnverified := func() {
		t.Helper()
		var verified bool
		if err := db.QueryRow("SELECT verified FROM voter WHERE id = $1", voterID).Scan(&verified); err != nil {
			t.Fatalf("Failed to query voter: %v", err)
		}
		if verified {
			t.Error("Voter should not be verified")
		}
	}

	token := auth.GenerateVerifyToken(voterID, "u@example.com", cfg.OwnerKeySalt)

	// The voter id alone is not a credential
	testutil.AssertStatus(t, verify(voterID, ""), http.StatusBadRequest)
	assertUnverified()

	testutil.AssertStatus(t, verify(voterID, "forged-token"), http.StatusUnauthorized)
	assertUnverified()

	// A token minted for another voter does not transfer
	otherToken := auth.GenerateVerifyToken(auth.NewID(), "u@example.com", cfg.OwnerKeySalt)
	testutil.AssertStatus(t, verify(voterID, otherToken), http.StatusUnauthorized)
	assertUnverified()

	w := verify(voterID, token)
	testutil.AssertStatus(t, w, http.StatusOK)

	var verified bool
	if err := db.QueryRow("SELECT verified FROM voter WHERE id = $1", voterID).Scan(&verified); err != nil {
		t.Fatalf("Failed to query voter: %v", err)
	}
	if !verified {
		t.Error("Voter should be verified")
	}

	// Verifying again is a no-op, not an error
	testutil.AssertStatus(t, verify(voterID, token), http.StatusOK)

	testutil.AssertStatus(t, verify("nonexistent", token), http.StatusNotFound)
}

func TestRegisterVoterMailsVerifyToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	recorder := &recordingMailer{}
	handler := NewVoterHandler(db, cfg, recorder)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)

	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/voters",
		models.RegisterVoterRequest{Email: "mail@example.com"},
		map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.RegisterVoter(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.RegisterVoterResponse
	testutil.AssertJSON(t, w, &resp)

	if len(recorder.urls) != 1 {
		t.Fatalf("Expected 1 verification mail, got %d", len(recorder.urls))
	}
	wantToken := auth.GenerateVerifyToken(resp.VoterID, "mail@example.com", cfg.OwnerKeySalt)
	wantURL := "/voters/" + resp.VoterID + "/verify?token=" + wantToken
	if recorder.urls[0] != wantURL {
		t.Errorf("Mailed verify URL = %q, want %q", recorder.urls[0], wantURL)
	}
}

// recordingMailer captures dispatched verify URLs for assertions
type recordingMailer struct {
	urls []string
}

func (m *recordingMailer) SendVerification(recipient, electionTitle, verifyURL string) {
	m.urls = append(m.urls, verifyURL)
}

func TestVoterLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVoterHandler(db, cfg, mailer.NewLogMailer())

	electionID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusLive)
	voterID, passName, passKey := testutil.CreateTestVoter(t, db, electionID, "login@example.com")

	login := func(electionID string, body models.VoterLoginRequest) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/elections/"+electionID+"/voters/login", body, nil)
		req.SetPathValue("id", electionID)
		w := httptest.NewRecorder()
		handler.Login(w, req)
		return w
	}

	t.Run("valid credentials", func(t *testing.T) {
		w := login(electionID, models.VoterLoginRequest{PassName: passName, PassKey: passKey})
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.VoterLoginResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Token == "" {
			t.Fatal("Expected a session token")
		}

		claims, err := auth.ParseSessionToken(resp.Token, cfg.VoterJWTSecret)
		if err != nil {
			t.Fatalf("Issued token does not parse: %v", err)
		}
		if claims.VoterID != voterID || claims.ElectionID != electionID {
			t.Error("Token claims do not match the voter")
		}
	})

	t.Run("wrong pass key", func(t *testing.T) {
		w := login(electionID, models.VoterLoginRequest{PassName: passName, PassKey: "Wr0ngKey"})
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("unknown pass name", func(t *testing.T) {
		w := login(electionID, models.VoterLoginRequest{PassName: "n0suchnm", PassKey: passKey})
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("wrong election", func(t *testing.T) {
		otherID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusLive)
		w := login(otherID, models.VoterLoginRequest{PassName: passName, PassKey: passKey})
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	})

	t.Run("unverified voter", func(t *testing.T) {
		if _, err := db.Exec("UPDATE voter SET verified = 0 WHERE id = $1", voterID); err != nil {
			t.Fatalf("Failed to unverify voter: %v", err)
		}
		w := login(electionID, models.VoterLoginRequest{PassName: passName, PassKey: passKey})
		testutil.AssertStatus(t, w, http.StatusForbidden)
	})
}

func TestListAndDeleteVoters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewVoterHandler(db, cfg, mailer.NewLogMailer())

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	voterID, _, _ := testutil.CreateTestVoter(t, db, electionID, "one@example.com")
	testutil.CreateTestVoter(t, db, electionID, "two@example.com")

	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/voters", nil, map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	handler.ListVoters(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var voters []models.Voter
	testutil.AssertJSON(t, w, &voters)
	if len(voters) != 2 {
		t.Fatalf("Expected 2 voters, got %d", len(voters))
	}
	for _, v := range voters {
		if v.PassName == "" {
			t.Error("Expected pass names in the owner listing")
		}
	}

	// Delete checks the owner key against the voter's election
	delReq := testutil.MakeRequest("DELETE", "/voters/"+voterID, nil, map[string]string{"X-Owner-Key": "bogus"})
	delReq.SetPathValue("vid", voterID)
	w = httptest.NewRecorder()
	handler.DeleteVoter(w, delReq)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)

	delReq = testutil.MakeRequest("DELETE", "/voters/"+voterID, nil, map[string]string{"X-Owner-Key": ownerKey})
	delReq.SetPathValue("vid", voterID)
	w = httptest.NewRecorder()
	handler.DeleteVoter(w, delReq)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM voter WHERE election_id = $1", electionID).Scan(&count); err != nil {
		t.Fatalf("Failed to count voters: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 voter left, got %d", count)
	}
}
