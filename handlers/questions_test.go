// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/votexhq/votex/models"
	"github.com/votexhq/votex/testutil"
)

func TestCreateQuestion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)

	tests := []struct {
		name           string
		ownerKey       string
		requestBody    models.CreateQuestionRequest
		expectedStatus int
	}{
		{
			name:           "valid single choice question",
			ownerKey:       ownerKey,
			requestBody:    models.CreateQuestionRequest{Title: "Chairperson"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "valid multi choice question",
			ownerKey:       ownerKey,
			requestBody:    models.CreateQuestionRequest{Title: "Board Members", ChoiceMin: 1, ChoiceMax: 3},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing title",
			ownerKey:       ownerKey,
			requestBody:    models.CreateQuestionRequest{ChoiceMin: 1, ChoiceMax: 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "min above max",
			ownerKey:       ownerKey,
			requestBody:    models.CreateQuestionRequest{Title: "Bad Bounds", ChoiceMin: 3, ChoiceMax: 2},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative min",
			ownerKey:       ownerKey,
			requestBody:    models.CreateQuestionRequest{Title: "Negative", ChoiceMin: -1, ChoiceMax: 2},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate title in election",
			ownerKey:       ownerKey,
			requestBody:    models.CreateQuestionRequest{Title: "Chairperson"},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid owner key",
			ownerKey:       "bogus",
			requestBody:    models.CreateQuestionRequest{Title: "Unauthorized"},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/questions", tt.requestBody, map[string]string{"X-Owner-Key": tt.ownerKey})
			req.SetPathValue("id", electionID)
			w := httptest.NewRecorder()

			handler.CreateQuestion(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)

			if tt.expectedStatus == http.StatusCreated {
				var resp models.CreateQuestionResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.QuestionID == "" {
					t.Error("Expected non-empty question_id")
				}

				var choiceMin, choiceMax int
				err := db.QueryRow("SELECT choice_min, choice_max FROM ballot_question WHERE id = $1", resp.QuestionID).Scan(&choiceMin, &choiceMax)
				if err != nil {
					t.Fatalf("Failed to query question: %v", err)
				}
				if choiceMin < 1 || choiceMin > choiceMax {
					t.Errorf("Stored bounds are invalid: min=%d max=%d", choiceMin, choiceMax)
				}
			}
		})
	}
}

func TestCreateQuestionOnLiveElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusLive)

	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/questions", models.CreateQuestionRequest{Title: "Too Late"}, map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.CreateQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestAddOptionToQuestion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	questionID := testutil.AddTestQuestion(t, db, electionID, "Chair", 1, 1)

	otherElectionID, _ := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	foreignQuestionID := testutil.AddTestQuestion(t, db, otherElectionID, "Foreign", 1, 1)

	tests := []struct {
		name           string
		questionID     string
		requestBody    models.AddOptionRequest
		expectedStatus int
	}{
		{"valid option", questionID, models.AddOptionRequest{Title: "Alice"}, http.StatusCreated},
		{"second option", questionID, models.AddOptionRequest{Title: "Bob"}, http.StatusCreated},
		{"duplicate option title", questionID, models.AddOptionRequest{Title: "Alice"}, http.StatusConflict},
		{"missing title", questionID, models.AddOptionRequest{}, http.StatusBadRequest},
		{"question from another election", foreignQuestionID, models.AddOptionRequest{Title: "Mallory"}, http.StatusNotFound},
		{"unknown question", "nonexistent", models.AddOptionRequest{Title: "Ghost"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/elections/"+electionID+"/questions/"+tt.questionID+"/options", tt.requestBody, map[string]string{"X-Owner-Key": ownerKey})
			req.SetPathValue("id", electionID)
			req.SetPathValue("qid", tt.questionID)
			w := httptest.NewRecorder()

			handler.AddOption(w, req)

			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}

func TestListQuestions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	q1 := testutil.AddTestQuestion(t, db, electionID, "Chair", 1, 1)
	testutil.AddTestOption(t, db, q1, "Alice")
	testutil.AddTestOption(t, db, q1, "Bob")
	testutil.AddTestQuestion(t, db, electionID, "Board", 1, 3)

	req := testutil.MakeRequest("GET", "/elections/"+electionID+"/questions", nil, map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()

	handler.ListQuestions(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var questions []models.QuestionWithOptions
	testutil.AssertJSON(t, w, &questions)

	if len(questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(questions))
	}
	if questions[0].Question.Title != "Chair" {
		t.Errorf("Expected first question 'Chair', got '%s'", questions[0].Question.Title)
	}
	if len(questions[0].Options) != 2 {
		t.Errorf("Expected 2 options on first question, got %d", len(questions[0].Options))
	}
	if len(questions[1].Options) != 0 {
		t.Errorf("Expected no options on second question, got %d", len(questions[1].Options))
	}

	// Requires the owner key
	req = testutil.MakeRequest("GET", "/elections/"+electionID+"/questions", nil, map[string]string{"X-Owner-Key": "bogus"})
	req.SetPathValue("id", electionID)
	w = httptest.NewRecorder()
	handler.ListQuestions(w, req)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

func TestUpdateQuestion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	questionID := testutil.AddTestQuestion(t, db, electionID, "Chair", 1, 1)

	newTitle := "Chairperson"
	newMax := 2
	req := testutil.MakeRequest("PUT", "/elections/"+electionID+"/questions/"+questionID,
		models.UpdateQuestionRequest{Title: &newTitle, ChoiceMax: &newMax},
		map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	req.SetPathValue("qid", questionID)
	w := httptest.NewRecorder()

	handler.UpdateQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var updated models.BallotQuestion
	testutil.AssertJSON(t, w, &updated)
	if updated.Title != "Chairperson" {
		t.Errorf("Expected title 'Chairperson', got '%s'", updated.Title)
	}
	if updated.ChoiceMin != 1 || updated.ChoiceMax != 2 {
		t.Errorf("Expected bounds 1..2, got %d..%d", updated.ChoiceMin, updated.ChoiceMax)
	}

	// Partial update must not clobber untouched fields
	var storedMin int
	if err := db.QueryRow("SELECT choice_min FROM ballot_question WHERE id = $1", questionID).Scan(&storedMin); err != nil {
		t.Fatalf("Failed to query question: %v", err)
	}
	if storedMin != 1 {
		t.Errorf("Expected choice_min to remain 1, got %d", storedMin)
	}

	// Bounds are validated against the merged state
	badMin := 5
	req = testutil.MakeRequest("PUT", "/elections/"+electionID+"/questions/"+questionID,
		models.UpdateQuestionRequest{ChoiceMin: &badMin},
		map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	req.SetPathValue("qid", questionID)
	w = httptest.NewRecorder()
	handler.UpdateQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	// Unknown question
	req = testutil.MakeRequest("PUT", "/elections/"+electionID+"/questions/nonexistent",
		models.UpdateQuestionRequest{Title: &newTitle},
		map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	req.SetPathValue("qid", "nonexistent")
	w = httptest.NewRecorder()
	handler.UpdateQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUpdateQuestionOnLiveElection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusLive)
	questionID := testutil.AddTestQuestion(t, db, electionID, "Frozen", 1, 1)

	newTitle := "Thawed"
	req := testutil.MakeRequest("PUT", "/elections/"+electionID+"/questions/"+questionID,
		models.UpdateQuestionRequest{Title: &newTitle},
		map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	req.SetPathValue("qid", questionID)
	w := httptest.NewRecorder()

	handler.UpdateQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestDeleteQuestion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	questionID := testutil.AddTestQuestion(t, db, electionID, "Doomed", 1, 1)
	testutil.AddTestOption(t, db, questionID, "Alice")

	req := testutil.MakeRequest("DELETE", "/elections/"+electionID+"/questions/"+questionID, nil, map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	req.SetPathValue("qid", questionID)
	w := httptest.NewRecorder()

	handler.DeleteQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	var optionCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM option WHERE question_id = $1", questionID).Scan(&optionCount); err != nil {
		t.Fatalf("Failed to count options: %v", err)
	}
	if optionCount != 0 {
		t.Errorf("Expected options to cascade, found %d", optionCount)
	}

	// Gone means gone
	w = httptest.NewRecorder()
	req = testutil.MakeRequest("DELETE", "/elections/"+electionID+"/questions/"+questionID, nil, map[string]string{"X-Owner-Key": ownerKey})
	req.SetPathValue("id", electionID)
	req.SetPathValue("qid", questionID)
	handler.DeleteQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestDeleteOption(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewQuestionHandler(db, cfg)

	electionID, ownerKey := testutil.CreateTestElection(t, db, cfg, models.StatusBuilding)
	questionID := testutil.AddTestQuestion(t, db, electionID, "Chair", 1, 1)
	optionID := testutil.AddTestOption(t, db, questionID, "Alice")

	del := func(oid string) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("DELETE", "/elections/"+electionID+"/questions/"+questionID+"/options/"+oid, nil, map[string]string{"X-Owner-Key": ownerKey})
		req.SetPathValue("id", electionID)
		req.SetPathValue("qid", questionID)
		req.SetPathValue("oid", oid)
		w := httptest.NewRecorder()
		handler.DeleteOption(w, req)
		return w
	}

	testutil.AssertStatus(t, del(optionID), http.StatusNoContent)
	testutil.AssertStatus(t, del(optionID), http.StatusNotFound)
}
