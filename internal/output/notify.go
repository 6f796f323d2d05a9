package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const notifyTimeout = 5 * time.Second

// ContactNotifier alerts trusted contacts through a configured command that
// reads the message on stdin.
type ContactNotifier struct {
	argv   []string
	logger *slog.Logger
}

// NewContactNotifier returns a notifier; an empty argv only logs the alert.
func NewContactNotifier(argv []string, logger *slog.Logger) *ContactNotifier {
	return &ContactNotifier{argv: append([]string(nil), argv...), logger: logger}
}

// Configured reports whether a notify command is set.
func (n *ContactNotifier) Configured() bool {
	return len(n.argv) > 0
}

// Notify delivers message to trusted contacts.
func (n *ContactNotifier) Notify(ctx context.Context, message string) error {
	if !n.Configured() {
		n.log(slog.LevelWarn, "emergency notify command not configured; alert not delivered", "message", message)
		return nil
	}

	notifyCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := RunWithInput(notifyCtx, n.argv, message); err != nil {
		return fmt.Errorf("notify trusted contacts: %w", err)
	}
	n.log(slog.LevelInfo, "trusted contacts notified", "command", n.argv[0])
	return nil
}

func (n *ContactNotifier) log(level slog.Level, msg string, args ...any) {
	if n.logger == nil {
		return
	}
	n.logger.Log(context.Background(), level, msg, args...)
}
