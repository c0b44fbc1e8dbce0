package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/snonux/surveytranslate/internal/survey"
	"codeberg.org/snonux/surveytranslate/internal/translation"
)

// DefaultTimeout bounds a single API call
const DefaultTimeout = 30 * time.Second

// Reporter receives progress updates while questions are processed
type Reporter interface {
	Processing(total int)
	Question(current, total int)
	Completed(total int)
}

// Processor handles the sequential translation of a batch of questions
type Processor struct {
	provider translation.Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProcessor creates a new processor. A non-positive timeout selects
// DefaultTimeout.
func NewProcessor(provider translation.Provider, timeout time.Duration, logger *slog.Logger) *Processor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// ProcessQuestions translates every question in order and returns one
// record per question. A failing row gets the failure marker and processing
// continues with the next one. If ctx is done the run stops before the next
// row and the context error is returned together with the records so far.
func (p *Processor) ProcessQuestions(ctx context.Context, questions []survey.Question, reporter Reporter) ([]survey.Record, error) {
	if reporter == nil {
		reporter = nopReporter{}
	}

	total := len(questions)
	records := make([]survey.Record, 0, total)
	start := time.Now()

	reporter.Processing(total)

	for i, q := range questions {
		if err := ctx.Err(); err != nil {
			p.logger.Info("translation run cancelled",
				"processed", len(records), "total", total, "error", err)
			return records, err
		}

		number := i + 1
		reporter.Question(number, total)

		record := p.processQuestion(ctx, q, number)
		if record.Failed && errors.Is(ctx.Err(), context.Canceled) {
			// the client went away mid-call; the row was never really tried
			p.logger.Info("translation run cancelled",
				"processed", len(records), "total", total)
			return records, ctx.Err()
		}
		records = append(records, record)
	}

	summary := survey.Summarize(records)
	p.logger.Info("translation run finished",
		"provider", p.provider.Name(),
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	reporter.Completed(total)
	return records, nil
}

func (p *Processor) processQuestion(ctx context.Context, q survey.Question, number int) survey.Record {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	tr, err := p.provider.Translate(callCtx, q.Text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Timeout: p.timeout, Err: err}
		}
		p.logger.Warn("error processing question",
			"question", number, "row", q.Row, "error", err)
		return survey.FailedRecord(q, number, err)
	}

	p.logger.Debug("question translated",
		"question", number,
		"row", q.Row,
		"language", tr.Language,
		"confidence", tr.Confidence,
		"elapsed", time.Since(started).Round(time.Millisecond).String())

	return survey.NewRecord(q, number, tr)
}

// TimeoutError marks an API call that exceeded the per-row timeout
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return "request timed out after " + e.Timeout.String()
}

func (e *TimeoutError) Unwrap() error { return e.Err }

type nopReporter struct{}

func (nopReporter) Processing(int)    {}
func (nopReporter) Question(int, int) {}
func (nopReporter) Completed(int)     {}
