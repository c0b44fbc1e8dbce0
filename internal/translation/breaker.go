package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// BreakerProvider fails fast after repeated API failures instead of letting
// every remaining row wait for its timeout
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker that opens after failures
// consecutive errors and lets a probe through after cooldown. A zero
// failures count disables the breaker and returns next unchanged.
func NewBreaker(next Provider, failures uint32, cooldown time.Duration, logger *slog.Logger) Provider {
	if failures == 0 {
		return next
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a client going away says nothing about the API's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("translation circuit breaker state changed",
				"provider", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerProvider{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

// Translate forwards to the wrapped provider unless the breaker is open
func (b *BreakerProvider) Translate(ctx context.Context, text string) (survey.Translation, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Translate(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return survey.Translation{}, fmt.Errorf("%w (%s)", ErrCircuitOpen, b.next.Name())
	}
	if err != nil {
		return survey.Translation{}, err
	}
	return res.(survey.Translation), nil
}

// Name returns the wrapped provider's name
func (b *BreakerProvider) Name() string {
	return b.next.Name()
}

// IsAvailable reports an open breaker as unavailable
func (b *BreakerProvider) IsAvailable() error {
	if b.cb.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return b.next.IsAvailable()
}

// State returns the breaker state, e.g. "closed" or "open"
func (b *BreakerProvider) State() string {
	return b.cb.State().String()
}
