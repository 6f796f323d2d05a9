package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Speaker speaks text and returns once playback finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Chain speaks through Primary and retries once through Fallback when
// Primary could not produce audio.
type Chain struct {
	Primary  Speaker
	Fallback Speaker
	// OnFallback is called after the fallback voice carried a message.
	OnFallback func()
	Logger     *slog.Logger
}

// Speak reports an error only when every configured voice failed.
func (c Chain) Speak(ctx context.Context, text string) error {
	if c.Primary == nil {
		return c.speakFallback(ctx, text, ErrNotConfigured)
	}
	err := c.Primary.Speak(ctx, text)
	if err == nil {
		return nil
	}
	if c.Logger != nil {
		c.Logger.Warn("primary speech failed", "error", err.Error())
	}
	if errors.Is(err, ErrPlayback) || ctx.Err() != nil {
		return err
	}
	return c.speakFallback(ctx, text, err)
}

func (c Chain) speakFallback(ctx context.Context, text string, primaryErr error) error {
	if c.Fallback == nil {
		return primaryErr
	}
	if err := c.Fallback.Speak(ctx, text); err != nil {
		return errors.Join(primaryErr, fmt.Errorf("fallback voice: %w", err))
	}
	if c.OnFallback != nil {
		c.OnFallback()
	}
	return nil
}
