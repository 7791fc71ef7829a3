// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidOwnerKey    = errors.New("invalid owner key")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidVerifyToken = errors.New("invalid verification token")
)

const passNameLength = 8

const alnumChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewID returns a random opaque identifier for a database record
func NewID() string {
	return uuid.NewString()
}

// GenerateOwnerKey creates an HMAC-based owner key for an election
// This is deterministic and verifiable
func GenerateOwnerKey(electionID, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(electionID))
	sum := h.Sum(nil)
	// Use URL-safe base64 and trim padding for cleaner keys
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateOwnerKey checks if the provided owner key is valid for the election
func ValidateOwnerKey(electionID, ownerKey, salt string) error {
	expected := GenerateOwnerKey(electionID, salt)
	if !hmac.Equal([]byte(ownerKey), []byte(expected)) {
		return ErrInvalidOwnerKey
	}
	return nil
}

// GenerateVerifyToken derives the proof a voter must present to confirm
// their registration. The token is bound to the voter id and registered
// email, so the link mailed at registration only works for that voter.
func GenerateVerifyToken(voterID, email, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte("verify:"))
	h.Write([]byte(voterID))
	h.Write([]byte(":"))
	h.Write([]byte(email))
	sum := h.Sum(nil)
	return strings.TrimRight(base64.URLEncoding.EncodeToString(sum), "=")
}

// ValidateVerifyToken checks a verification proof against the voter it
// claims to verify
func ValidateVerifyToken(voterID, email, token, salt string) error {
	expected := GenerateVerifyToken(voterID, email, salt)
	if !hmac.Equal([]byte(token), []byte(expected)) {
		return ErrInvalidVerifyToken
	}
	return nil
}

// GenerateAccessCode creates a short public code for a launched election.
// Codes are derived per mode ("live" or "preview") so the same election
// always maps to the same pair, and the two modes never collide.
func GenerateAccessCode(electionID, mode, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(electionID))
	h.Write([]byte(":"))
	h.Write([]byte(mode))
	sum := h.Sum(nil)

	// Take first 8 bytes for a shorter code
	return base62Encode(sum[:8])
}

// base62Encode converts bytes to base62 (0-9, a-z, A-Z)
// This creates URL-friendly codes without special characters
func base62Encode(data []byte) string {
	// Convert bytes to a big integer
	var num uint64
	for i := 0; i < len(data) && i < 8; i++ {
		num = num<<8 | uint64(data[i])
	}

	if num == 0 {
		return "0"
	}

	// Convert to base62
	result := make([]byte, 0, 11) // max length for uint64
	for num > 0 {
		result = append(result, alnumChars[num%62])
		num /= 62
	}

	// Reverse the string
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}

// GeneratePassName draws a random 8-character alphanumeric pass-name.
// Global uniqueness is enforced by the caller against the voter table;
// on collision use ExtendPassName and retry.
func GeneratePassName() (string, error) {
	return randomAlnum(passNameLength)
}

// ExtendPassName appends 4 hex characters of fresh entropy to a pass-name
// that collided with an existing voter
func ExtendPassName(passName string) (string, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to extend pass-name: %w", err)
	}
	return passName + hex.EncodeToString(b), nil
}

// GeneratePassKey creates a random 8-character voter credential containing
// at least one lowercase letter, one uppercase letter, and three digits.
// The plaintext is shown to the voter once; only the hash is stored.
func GeneratePassKey() (string, error) {
	for {
		key, err := randomAlnum(8)
		if err != nil {
			return "", err
		}

		var lower, upper bool
		digits := 0
		for _, c := range key {
			switch {
			case c >= 'a' && c <= 'z':
				lower = true
			case c >= 'A' && c <= 'Z':
				upper = true
			case c >= '0' && c <= '9':
				digits++
			}
		}
		if lower && upper && digits >= 3 {
			return key, nil
		}
	}
}

// HashPassKey returns the bcrypt hash of a voter pass-key
func HashPassKey(passKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pass-key: %w", err)
	}
	return string(hash), nil
}

// CheckPassKey compares a plaintext pass-key against its stored hash
func CheckPassKey(hash, passKey string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(passKey))
}

func randomAlnum(length int) (string, error) {
	max := big.NewInt(int64(len(alnumChars)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random string: %w", err)
		}
		b[i] = alnumChars[n.Int64()]
	}
	return string(b), nil
}

// VoterClaims bind a voting session to one voter within one election
type VoterClaims struct {
	jwt.RegisteredClaims
	VoterID    string `json:"voter_id"`
	ElectionID string `json:"election_id"`
}

// GenerateSessionToken issues a short-lived signed token for a verified voter
func GenerateSessionToken(voterID, electionID, secret string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, VoterClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		VoterID:    voterID,
		ElectionID: electionID,
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSessionToken validates a voter session token and returns its claims
func ParseSessionToken(tokenString, secret string) (*VoterClaims, error) {
	claims := &VoterClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
