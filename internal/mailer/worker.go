package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/Clark-Hu/movie-directory/internal/domain"
	"github.com/Clark-Hu/movie-directory/internal/notify"
)

// CancelReason is recorded on entries that ran out of attempts.
const CancelReason = "Max retry attempts reached. Stopping."

// Options tune the worker.
type Options struct {
	RetryInterval  time.Duration
	MaxAttempts    int
	SendsPerSecond int
}

// Worker sends queued notifications and retries failed ones.
type Worker struct {
	logs    *LogStore
	sender  Sender
	limiter *rate.Limiter
	opts    Options
	logger  *log.Logger
	now     func() time.Time
}

func NewWorker(logs *LogStore, sender Sender, opts Options, logger *log.Logger) *Worker {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	if opts.SendsPerSecond <= 0 {
		opts.SendsPerSecond = 5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		logs:    logs,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(opts.SendsPerSecond), 1),
		opts:    opts,
		logger:  logger.WithPrefix("mailer"),
		now:     time.Now,
	}
}

// Process logs msg as PENDING and makes the first delivery attempt.
// Delivery failures are recorded, not returned; only storage errors are.
// The returned entry has an empty ID when msg could not be logged at all.
func (w *Worker) Process(ctx context.Context, msg domain.EmailMessage) (domain.EmailLog, error) {
	entry, err := w.logs.Insert(ctx, msg)
	if err != nil {
		return domain.EmailLog{}, err
	}
	if err := w.attempt(ctx, entry); err != nil {
		return entry, err
	}
	got, err := w.logs.Get(ctx, entry.ID)
	if err != nil {
		return entry, err
	}
	return got, nil
}

func (w *Worker) attempt(ctx context.Context, entry domain.EmailLog) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := domain.EmailMessage{Recipient: entry.Recipient, Subject: entry.Subject, Body: entry.Content}
	sendErr := w.sender.Send(ctx, msg)
	if sendErr != nil {
		w.logger.Warn("send failed", "id", entry.ID, "to", entry.Recipient, "attempt", entry.AttemptCount+1, "err", sendErr)
	} else {
		w.logger.Info("email sent", "id", entry.ID, "to", entry.Recipient)
	}
	if err := w.logs.RecordAttempt(ctx, entry.ID, w.now(), sendErr); err != nil {
		return fmt.Errorf("record attempt %s: %w", entry.ID, err)
	}
	return nil
}

// RetryFailed makes one pass over FAILED entries, plus PENDING ones whose
// first attempt never got recorded within a retry interval. Exhausted entries
// are cancelled, the rest get another attempt.
func (w *Worker) RetryFailed(ctx context.Context) error {
	failed, err := w.logs.ByStatus(ctx, domain.EmailFailed)
	if err != nil {
		return err
	}
	pending, err := w.logs.ByStatus(ctx, domain.EmailPending)
	if err != nil {
		return err
	}
	cutoff := w.now().Add(-w.opts.RetryInterval)
	for _, entry := range pending {
		if entry.CreatedAt.Before(cutoff) {
			failed = append(failed, entry)
		}
	}
	for _, entry := range failed {
		if entry.AttemptCount >= w.opts.MaxAttempts {
			w.logger.Warn("giving up on email", "id", entry.ID, "attempts", entry.AttemptCount)
			if err := w.logs.Cancel(ctx, entry.ID, CancelReason); err != nil {
				return err
			}
			continue
		}
		if err := w.attempt(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// Run consumes deliveries and runs the retry scheduler until ctx is done or
// the delivery channel closes. Each delivery is acked once it is logged and
// requeued when it could not be logged.
func (w *Worker) Run(ctx context.Context, deliveries <-chan notify.Delivery) error {
	ticker := time.NewTicker(w.opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.RetryFailed(ctx); err != nil && ctx.Err() == nil {
				w.logger.Error("retry pass failed", "err", err)
			}
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d notify.Delivery) {
	entry, err := w.Process(ctx, d.Message)
	if err != nil && entry.ID == "" {
		if ctx.Err() == nil {
			w.logger.Error("log email", "to", d.Message.Recipient, "err", err)
		}
		if err := d.Requeue(); err != nil {
			w.logger.Warn("requeue failed", "err", err)
		}
		return
	}
	if err != nil && ctx.Err() == nil {
		// logged entries are picked up again by RetryFailed
		w.logger.Error("process email", "id", entry.ID, "to", d.Message.Recipient, "err", err)
	}
	if err := d.Ack(); err != nil {
		w.logger.Warn("ack failed", "err", err)
	}
}
