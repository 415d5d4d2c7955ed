package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

// RecurringStore is the persistence the batch processor needs.
type RecurringStore interface {
	ListDueRules(ctx context.Context, today core.Date) ([]core.RecurringRule, error)
	MaterializeOccurrences(ctx context.Context, rule core.RecurringRule, dates []core.Date) ([]core.Transaction, error)
}

// ProcessResult summarizes one batch run. Processed counts transactions
// created; Errors holds one "ID <rule>: <reason>" entry per failed rule.
type ProcessResult struct {
	Processed  int
	TotalRules int
	Errors     []string
}

// RecurringProcessor materializes due occurrences of every active rule.
type RecurringProcessor struct {
	store       RecurringStore
	scheduler   *Scheduler
	publisher   EventPublisher
	invalidator CacheInvalidator
	metrics     *metrics.Metrics
	workers     int
}

// NewRecurringProcessor creates a processor. publisher, invalidator and m
// may be nil; workers below 1 processes rules one at a time.
func NewRecurringProcessor(store RecurringStore, scheduler *Scheduler, publisher EventPublisher, invalidator CacheInvalidator, m *metrics.Metrics, workers int) *RecurringProcessor {
	if scheduler == nil {
		scheduler = defaultScheduler
	}
	if workers < 1 {
		workers = 1
	}
	return &RecurringProcessor{
		store:       store,
		scheduler:   scheduler,
		publisher:   publisher,
		invalidator: invalidator,
		metrics:     m,
		workers:     workers,
	}
}

// ProcessDue catches every due rule up to today. A failing rule is reported
// in the result and never stops the others; the returned error is only set
// when the rules could not be loaded at all.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, today core.Date) (ProcessResult, error) {
	start := time.Now()
	logger := log.FromContext(ctx).WithComponent(log.ComponentScheduler)

	rules, err := p.store.ListDueRules(ctx, today)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("list due rules: %w", err)
	}

	logger.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(rules),
		"processing_date", today.String())

	var (
		mu     sync.Mutex
		result = ProcessResult{TotalRules: len(rules)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, rule := range rules {
		g.Go(func() error {
			created, err := p.processRule(gctx, logger, rule, today)

			mu.Lock()
			defer mu.Unlock()
			result.Processed += created
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("ID %s: %s", rule.ID, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Errors)
	p.metrics.ObserveProcessRun(result.Processed, time.Since(start))

	logger.InfoContext(ctx, "Recurring transaction processing complete",
		"processed", result.Processed,
		"total_checked", result.TotalRules,
		"failed", len(result.Errors),
		log.FieldDuration, time.Since(start).Milliseconds())

	return result, nil
}

// processRule returns how many transactions it created for rule.
func (p *RecurringProcessor) processRule(ctx context.Context, logger *log.Logger, rule core.RecurringRule, today core.Date) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dates, err := p.scheduler.PendingOccurrences(rule, today)
	if err != nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			// stored rule is broken; retrying will not help
			p.metrics.IncrRuleFailure("configuration")
			logger.ErrorContext(ctx, "Recurring rule has invalid configuration",
				log.FieldRuleID, rule.ID,
				log.FieldFrequency, string(rule.Frequency),
				log.FieldErrorType, log.ErrorTypeConfiguration,
				log.FieldError, err)
			return 0, err
		}
		p.metrics.IncrRuleFailure("schedule")
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	created, err := p.store.MaterializeOccurrences(ctx, rule, dates)
	if err != nil {
		if errors.Is(err, storage.ErrStaleRule) {
			// another run advanced the rule first
			p.metrics.IncrRuleFailure("stale")
			logger.WarnContext(ctx, "Recurring rule changed concurrently, skipping",
				log.FieldRuleID, rule.ID)
			return 0, nil
		}
		p.metrics.IncrRuleFailure("storage")
		logger.ErrorContext(ctx, "Failed to materialize occurrences",
			log.FieldRuleID, rule.ID,
			"pending", len(dates),
			log.FieldError, err)
		return 0, err
	}

	for _, t := range created {
		publishEvent(ctx, p.publisher, p.metrics, amqp.EventTransactionCreated, t.UserID, amqp.TransactionCreated{
			TransactionID: t.ID,
			RuleID:        rule.ID,
			Type:          string(t.Type),
			AmountCents:   t.Amount.Cents,
			Date:          t.Date.String(),
		})
	}
	if p.invalidator != nil {
		p.invalidator.Invalidate(rule.UserID)
	}

	logger.InfoContext(ctx, "Created transactions from recurring rule",
		log.FieldRuleID, rule.ID,
		log.FieldFrequency, string(rule.Frequency),
		log.FieldAmountCents, rule.Amount.Cents,
		"created", len(created),
		"last_date", dates[len(dates)-1].String())

	return len(created), nil
}

// RecurringRunnerConfig controls the background processing loop.
type RecurringRunnerConfig struct {
	Interval time.Duration
	Location *time.Location
}

// RecurringRunner runs ProcessDue on a ticker until stopped.
type RecurringRunner struct {
	processor *RecurringProcessor
	config    RecurringRunnerConfig
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRecurringRunner(processor *RecurringProcessor, config RecurringRunnerConfig) *RecurringRunner {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &RecurringRunner{
		processor: processor,
		config:    config,
		now:       time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (r *RecurringRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("recurring runner is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	slog.InfoContext(ctx, "Recurring runner started",
		"interval", r.config.Interval,
		"timezone", r.config.Location.String())
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (r *RecurringRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Recurring runner stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Recurring runner stop timed out")
		return ctx.Err()
	}
}

func (r *RecurringRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run blocks until ctx is cancelled, for use under an errgroup.
func (r *RecurringRunner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return r.Stop(stopCtx)
}

func (r *RecurringRunner) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// catch up immediately on startup
	r.runOnce(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *RecurringRunner) runOnce(ctx context.Context) {
	today := core.DateOf(r.now().In(r.config.Location))
	result, err := r.processor.ProcessDue(ctx, today)
	if err != nil {
		slog.ErrorContext(ctx, "Recurring processing failed", "error", err)
		return
	}
	if len(result.Errors) > 0 {
		slog.WarnContext(ctx, "Recurring processing finished with errors",
			"processed", result.Processed,
			"errors", result.Errors)
	}
}
