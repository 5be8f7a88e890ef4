// Package mailer implements the email sink contract of §6: a function
// (to, from_name, subject, text) -> error, with templated bodies for the
// local-password provider's register, register-confirm, reset-password,
// reset-password-confirm, update-email and update-password flows. The
// register body ends with a confirm URL, the reset-password body carries
// its reset URL, the register-confirm body has no URL, and the other three
// end with a Revoke URL. Two sinks satisfy the same interface: a
// RabbitMQ publisher (grounded directly on the teacher's own
// internal/infrastructure/messaging/rabbitmq/publisher.go) for production,
// and a synchronous Direct sender for local development and tests.
package mailer

import "context"

// Message is one rendered email ready for a sink to deliver.
type Message struct {
	To       string
	FromName string
	Subject  string
	Text     string
}

// Sink delivers a rendered message. Implementations never block the
// caller on the mail transport being healthy for longer than the
// context's deadline allows (§4.6: reset_password failures are logged
// only, never surfaced to the caller).
type Sink interface {
	Send(ctx context.Context, msg Message) error
}
