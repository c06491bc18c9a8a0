package reaper

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const timeoutMessage = "Processing timed out"

// Reaper fails jobs stuck in a non-terminal state past a deadline. A worker
// crash between claiming a job and recording its outcome leaves it
// "processing" forever; a delivery lost after its offset was committed
// leaves it "queued" forever. Either way polling clients would never see a
// terminal state.
type Reaper struct {
	db         *pgxpool.Pool
	staleAfter time.Duration
	interval   time.Duration
	logger     *zap.Logger
}

func New(db *pgxpool.Pool, staleAfter, interval time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		db:         db,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.reap(ctx); err != nil {
				r.logger.Error("Reaper sweep failed", zap.Error(err))
			}
		}
	}
}

func (r *Reaper) reap(ctx context.Context) error {
	query := `
		UPDATE jobs
		SET status = 'failed', error_message = $1,
		    updated_at = NOW(), completed_at = NOW()
		WHERE status IN ('queued', 'processing') AND updated_at < NOW() - $2::interval
	`

	tag, err := r.db.Exec(ctx, query, timeoutMessage, r.staleAfter.String())
	if err != nil {
		return err
	}

	if n := tag.RowsAffected(); n > 0 {
		r.logger.Warn("Failed stale processing jobs",
			zap.Int64("count", n),
			zap.Duration("stale_after", r.staleAfter),
		)
	}
	return nil
}
