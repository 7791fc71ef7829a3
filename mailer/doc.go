// Copyright (c) 2025 Votex Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package mailer defines the outbound mail boundary.

Voter registration triggers a verification mail. Actual delivery belongs to
an external service; this package only defines the fire-and-forget contract
and a slog-backed implementation for development:

	m := mailer.NewLogMailer()
	m.SendVerification(voter.Email, election.Title, verifyURL)

SendVerification must never block the request path. Failures are logged,
not surfaced: a voter who misses the mail is re-sent one by re-registering
through the owner.
*/
package mailer
