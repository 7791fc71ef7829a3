package models

import "time"

// Election status constants
const (
	StatusBuilding = "BUILDING"
	StatusLive     = "LIVE"
)

// Request types

type CreateElectionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Timezone    string    `json:"timezone"`
}

type UpdateElectionRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Timezone    *string    `json:"timezone,omitempty"`
}

type CreateQuestionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ChoiceMin   int    `json:"choice_min"`
	ChoiceMax   int    `json:"choice_max"`
}

type UpdateQuestionRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	ChoiceMin   *int    `json:"choice_min,omitempty"`
	ChoiceMax   *int    `json:"choice_max,omitempty"`
}

type AddOptionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type RegisterVoterRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BulkRegisterRequest struct {
	Voters []RegisterVoterRequest `json:"voters"`
}

type VoterLoginRequest struct {
	PassName string `json:"pass_name"`
	PassKey  string `json:"pass_key"`
}

// QuestionSubmission is one per-question entry inside a ballot. A cast
// request body is a JSON array of these.
type QuestionSubmission struct {
	BallotQuestionID string   `json:"ballot_question_id"`
	OptionIDs        []string `json:"option_ids"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	OwnerKey   string `json:"owner_key"`
}

type CreateQuestionResponse struct {
	QuestionID string `json:"question_id"`
}

type AddOptionResponse struct {
	OptionID string `json:"option_id"`
}

type LaunchElectionResponse struct {
	Status      string `json:"status"`
	LiveCode    string `json:"live_code"`
	PreviewCode string `json:"preview_code"`
}

type RegisterVoterResponse struct {
	VoterID  string `json:"voter_id"`
	PassName string `json:"pass_name"`
	PassKey  string `json:"pass_key"` // plaintext, shown exactly once
}

type BulkRegisterResponse struct {
	Voters []RegisterVoterResponse `json:"voters"`
}

type VerifyVoterResponse struct {
	VoterID  string `json:"voter_id"`
	Verified bool   `json:"verified"`
}

type VoterLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RecordedChoice struct {
	BallotQuestionID string   `json:"ballot_question_id"`
	OptionIDs        []string `json:"option_ids"`
}

type CastVoteResponse struct {
	Recorded []RecordedChoice `json:"recorded"`
}

// Domain types

type Election struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Timezone    string    `json:"timezone"`
	Status      string    `json:"status"`
	LiveCode    *string   `json:"live_code,omitempty"`
	PreviewCode *string   `json:"preview_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type BallotQuestion struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ChoiceMin   int       `json:"choice_min"`
	ChoiceMax   int       `json:"choice_max"`
	CreatedAt   time.Time `json:"created_at"`
}

type Option struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"question_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Voter struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	PassName   string    `json:"pass_name"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}

type QuestionWithOptions struct {
	Question BallotQuestion `json:"question"`
	Options  []Option       `json:"options"`
}

type ElectionDetail struct {
	Election  Election              `json:"election"`
	Questions []QuestionWithOptions `json:"questions"`
}

// Tally types

type OptionTally struct {
	OptionID   string  `json:"option_id"`
	Title      string  `json:"title"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	Degree     float64 `json:"degree"`
}

type QuestionResult struct {
	QuestionID string        `json:"question_id"`
	Title      string        `json:"title"`
	TotalVotes int           `json:"total_votes"`
	Options    []OptionTally `json:"options"`
}

type ElectionResult struct {
	Title               string           `json:"title"`
	Questions           []QuestionResult `json:"questions"`
	EligibleVoterCount  int              `json:"eligible_voter_count"`
	TotalVoterCount     int              `json:"total_voter_count"`
	VotersWhoVotedCount int              `json:"voters_who_voted_count"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
