package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransaction marks ledger lifecycle events.
	KindTransaction = "transaction"
	// KindSecurity marks login and card events.
	KindSecurity = "security"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Title       string
	Body        string
}

// Notifier delivers notifications to downstream channels.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"title", message.Title,
		"body", message.Body)
	return nil
}

// Emitter wraps a Notifier with the fire-and-forget contract: delivery
// failures are logged and never surface to the ledger operation that
// triggered them.
type Emitter struct {
	notifier Notifier
	logger   *slog.Logger
}

// NewEmitter builds an emitter around the given channel.
func NewEmitter(notifier Notifier, logger *slog.Logger) *Emitter {
	return &Emitter{notifier: notifier, logger: logger}
}

// Notify delivers best-effort and reports success only.
func (e *Emitter) Notify(ctx context.Context, destination, title, body, kind string) bool {
	if e == nil || e.notifier == nil {
		return false
	}
	msg := Message{Kind: kind, Destination: destination, Title: title, Body: body}
	if err := e.notifier.Send(ctx, msg); err != nil {
		e.logger.Warn("notification delivery failed",
			"kind", kind, "destination", destination, "error", err)
		return false
	}
	return true
}
