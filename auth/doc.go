// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential generation and validation utilities.

# Owner Keys

Owner keys use HMAC-SHA256 to create deterministic, verifiable keys:

	ownerKey := auth.GenerateOwnerKey(electionID, salt)
	err := auth.ValidateOwnerKey(electionID, ownerKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same election ID and salt always produce the same key. This allows
validation without storing the key in the database.

# Access Codes

Access codes create short public identifiers for launched elections:

	liveCode := auth.GenerateAccessCode(electionID, "live", salt)
	previewCode := auth.GenerateAccessCode(electionID, "preview", salt)

Codes are base62 encoded (alphanumeric only) for easy sharing. Like owner
keys, they're deterministic from the election ID, mode, and salt.

# Voter Credentials

Each voter gets a public pass-name (login handle) and a private pass-key:

	passName, err := auth.GeneratePassName()   // 8 alphanumeric chars
	passKey, err := auth.GeneratePassKey()     // mixed-case, >= 3 digits

Pass-names must be globally unique; callers resolve collisions with
ExtendPassName, which appends fresh entropy. Pass-keys are stored as bcrypt
hashes via HashPassKey and checked with CheckPassKey; the plaintext is shown
to the voter exactly once at registration.

# Verification Proofs

Registration mails each voter a verify link carrying an HMAC proof bound to
the voter id and email; VerifyVoter requires it before flipping the
verified flag:

	token := auth.GenerateVerifyToken(voterID, email, salt)
	err := auth.ValidateVerifyToken(voterID, email, token, salt)

# Session Tokens

Verified voters authenticate with short-lived HS256 JWTs that bind the voter
to one election:

	token, expiresAt, err := auth.GenerateSessionToken(voterID, electionID, secret, ttl)
	claims, err := auth.ParseSessionToken(token, secret)

# ID Generation

Opaque UUIDs for database records:

	id := auth.NewID()
*/
package auth
