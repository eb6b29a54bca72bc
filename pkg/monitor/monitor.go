package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"oblige-hq/warden/pkg/archive"
	"oblige-hq/warden/pkg/compiler"
	"oblige-hq/warden/pkg/engine"
	"oblige-hq/warden/pkg/ledger"
	"oblige-hq/warden/pkg/model"
	"oblige-hq/warden/pkg/store"
	"oblige-hq/warden/pkg/telemetry/metrics"
)

// Summarizer is the seam for the external explanation collaborator: it may
// attach a human-readable summary to a violation before ledger persistence.
// The pipeline never requires it.
type Summarizer interface {
	Summarize(ctx context.Context, v model.Violation) (string, error)
}

// Options configures optional monitor collaborators.
type Options struct {
	// Compiler used by CompileAndStore. Nil gets the default compiler.
	Compiler *compiler.Compiler

	// Archive mirrors ledger entries for querying. Nil disables
	// mirroring.
	Archive archive.Storage

	// Summarizer enriches violations before they reach the ledger.
	Summarizer Summarizer

	// Metrics records operational counters. Nil disables instrumentation.
	Metrics *metrics.Metrics

	// ArchiveBuffer is the async mirror channel capacity. Default: 256.
	ArchiveBuffer int

	// ArchiveTimeout bounds each archive write. Default: 5 seconds.
	ArchiveTimeout time.Duration
}

// Monitor wires the pipeline together: clause batches are compiled and
// stored as a rule bundle; fact events are validated, violations enriched,
// appended to the ledger in arrival order, and mirrored to the archive by a
// background worker so archive latency never delays the ledger.
type Monitor struct {
	compiler *compiler.Compiler
	store    *store.Store
	engine   *engine.Engine
	ledger   *ledger.Ledger

	archive        archive.Storage
	archiveCh      chan model.Violation
	archiveTimeout time.Duration

	summarizer Summarizer
	metrics    *metrics.Metrics
	logger     *slog.Logger

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a monitor over the given rule store and ledger.
func New(rules *store.Store, led *ledger.Ledger, opts *Options) *Monitor {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Compiler == nil {
		opts.Compiler = compiler.NewCompiler(nil)
	}
	if opts.ArchiveBuffer <= 0 {
		opts.ArchiveBuffer = 256
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 5 * time.Second
	}

	m := &Monitor{
		compiler:       opts.Compiler,
		store:          rules,
		engine:         engine.New(rules),
		ledger:         led,
		archive:        opts.Archive,
		archiveTimeout: opts.ArchiveTimeout,
		summarizer:     opts.Summarizer,
		metrics:        opts.Metrics,
		logger:         slog.Default().With("component", "monitor"),
		done:           make(chan struct{}),
	}

	if m.archive != nil {
		m.archiveCh = make(chan model.Violation, opts.ArchiveBuffer)
		m.wg.Add(1)
		go m.archiveWorker()
	}

	return m
}

// CompileAndStore compiles a clause batch and persists the resulting rule
// bundle, replacing the previous generation. Malformed clauses are skipped
// and reported in the batch result.
func (m *Monitor) CompileAndStore(frames []model.ClauseFrame) (compiler.BatchResult, *store.Bundle, error) {
	result := m.compiler.CompileBatch(frames)

	if m.metrics != nil {
		for _, r := range result.Rules {
			m.metrics.RecordCompiled(string(r.Severity))
		}
		for range result.Skipped {
			m.metrics.RecordSkipped()
		}
	}

	bundle, err := m.store.Write(result.Rules)
	if err != nil {
		return result, nil, err
	}

	return result, bundle, nil
}

// HandleEvent validates one fact event, records every resulting violation
// on the ledger in arrival order, and mirrors them to the archive
// asynchronously. The returned violations carry any summaries the
// enrichment collaborator attached.
func (m *Monitor) HandleEvent(ctx context.Context, event model.FactEvent) ([]model.Violation, error) {
	start := time.Now()

	violations, err := m.engine.Validate(event)
	if err != nil {
		return nil, err
	}

	if m.metrics != nil {
		m.metrics.RecordEvaluation(event.Type, time.Since(start))
	}

	for i := range violations {
		if m.summarizer != nil {
			summary, err := m.summarizer.Summarize(ctx, violations[i])
			if err != nil {
				m.logger.Warn("violation summarization failed",
					"violation_id", violations[i].ID,
					"error", err,
				)
			} else {
				violations[i].Summary = summary
			}
		}

		if err := m.ledger.Append(violations[i]); err != nil {
			if m.metrics != nil {
				m.metrics.RecordLedgerAppend("error")
			}
			return violations[:i], err
		}
		if m.metrics != nil {
			m.metrics.RecordLedgerAppend("ok")
			m.metrics.RecordViolation(violations[i].RuleID, string(violations[i].Severity))
		}

		m.enqueueArchive(violations[i])
	}

	return violations, nil
}

// enqueueArchive hands a violation to the async mirror worker. A full
// buffer drops the mirror write — the ledger already holds the record and
// the archive can be rebuilt from it.
func (m *Monitor) enqueueArchive(v model.Violation) {
	if m.archiveCh == nil {
		return
	}

	select {
	case m.archiveCh <- v:
	default:
		m.logger.Warn("archive buffer full, dropping mirror write",
			"violation_id", v.ID,
		)
	}
}

// archiveWorker drains the mirror channel and writes to the archive.
func (m *Monitor) archiveWorker() {
	defer m.wg.Done()

	for {
		select {
		case v := <-m.archiveCh:
			m.mirror(v)

		case <-m.done:
			// Drain remaining mirror writes before exit.
			for {
				select {
				case v := <-m.archiveCh:
					m.mirror(v)
				default:
					return
				}
			}
		}
	}
}

func (m *Monitor) mirror(v model.Violation) {
	ctx, cancel := context.WithTimeout(context.Background(), m.archiveTimeout)
	defer cancel()

	if err := m.archive.Store(ctx, v); err != nil {
		m.logger.Error("failed to mirror violation to archive",
			"violation_id", v.ID,
			"error", err,
		)
	}
}

// Close drains pending archive writes and stops the worker. Safe to call
// more than once.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
	return nil
}
