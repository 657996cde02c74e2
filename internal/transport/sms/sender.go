package sms

import "context"

// CodeSender delivers a one-time code to a phone number. Send returns the
// provider's correlation id when an external service handled the delivery,
// or "" when delivery happened locally.
type CodeSender interface {
	Send(ctx context.Context, phone, code string) (providerRef string, err error)
}

// CodeChecker verifies a submitted code against an external verification
// provider. Only provider-backed senders implement it; when the checker is
// absent the engine falls back to its own stored hash.
type CodeChecker interface {
	Check(ctx context.Context, phone, code string) (bool, error)
}
