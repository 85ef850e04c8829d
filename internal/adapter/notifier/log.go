package notifier

import (
	"context"
	"log/slog"

	"taskhive/internal/core/port"
)

// LogNotifier satisfies the notifier contract by logging deliveries. Template
// rendering and SMTP transport live outside this core; swapping in a real
// sender only requires another implementation of port.Notifier.
type LogNotifier struct{}

func NewLogNotifier() port.Notifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, kind port.EmailKind, recipient string, data map[string]any) error {
	slog.Info("email dispatched", "kind", kind, "recipient", recipient, "fields", len(data))
	return nil
}
