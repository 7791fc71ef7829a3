// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import "log/slog"

// Mailer dispatches voter verification mail. Delivery is handled by an
// external service; implementations must not block the caller.
type Mailer interface {
	SendVerification(recipient, electionTitle, verifyURL string)
}

// LogMailer records outbound mail via slog instead of delivering it.
// Used in development and tests, and as the default when no delivery
// backend is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendVerification logs the dispatch asynchronously, mirroring the
// fire-and-forget contract of a real delivery backend.
func (m *LogMailer) SendVerification(recipient, electionTitle, verifyURL string) {
	go func() {
		slog.Info("verification mail dispatched",
			"recipient", recipient,
			"election", electionTitle,
			"verify_url", verifyURL,
		)
	}()
}
