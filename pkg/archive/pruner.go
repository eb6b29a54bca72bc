package archive

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls archive pruning. The ledger is never pruned;
// retention applies to the queryable mirror only.
type RetentionConfig struct {
	// RetentionDays removes violations detected more than this many days
	// ago. 0 disables age-based pruning.
	RetentionDays int

	// MaxRecords caps the archive size; the oldest records beyond the cap
	// are removed. 0 disables count-based pruning.
	MaxRecords int64

	// PruneSchedule is a cron expression for scheduled pruning, e.g.
	// "0 3 * * *" for daily at 3 AM. Empty disables the scheduler.
	PruneSchedule string
}

// DefaultRetentionConfig returns the default retention configuration:
// 90 days, no record cap, daily pruning at 3 AM.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RetentionDays: 90,
		MaxRecords:    0,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces the retention policy against an archive backend.
type Pruner struct {
	storage Storage
	config  *RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a pruner over the given archive backend.
func NewPruner(storage Storage, config *RetentionConfig) *Pruner {
	if config == nil {
		config = DefaultRetentionConfig()
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "archive.pruner"),
		now:     time.Now,
	}
}

// Prune runs one retention cycle and returns how many records were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.Delete(ctx, Query{Until: &cutoff})
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted > 0 {
			p.logger.Info("pruned aged violations",
				"deleted", deleted,
				"cutoff", cutoff.UTC().Format(time.RFC3339),
			)
		}
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneExcess(ctx)
		if err != nil {
			return total, err
		}
		total += deleted
	}

	return total, nil
}

// pruneExcess removes the oldest records beyond MaxRecords.
func (p *Pruner) pruneExcess(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, Query{})
	if err != nil {
		return 0, err
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}

	oldest, err := p.storage.Query(ctx, Query{Limit: int(excess)})
	if err != nil {
		return 0, err
	}

	var deleted int64
	for _, v := range oldest {
		n, err := p.storage.Delete(ctx, Query{ID: v.ID})
		if err != nil {
			return deleted, err
		}
		deleted += n
	}

	if deleted > 0 {
		p.logger.Info("pruned excess violations",
			"deleted", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	return deleted, nil
}
