// package barjournal contains the PostgreSQL bar journal
package barjournal

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/domain"
	querybuilder "gitlab.com/quantport.net/internal/utils"
)

var _ secondary.BarRepository = (*BarRepository)(nil)

// BarRepository implements the BarRepository interface with PostgreSQL
type BarRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewBarRepository creates a new PostgreSQL bar repository
func NewBarRepository(db *sqlx.DB, logger primary.Logger) *BarRepository {
	return &BarRepository{
		db:     db,
		logger: logger,
	}
}

// SaveBars journals a batch of closed bars in a single insert. A bar that
// was already journaled for the same period is overwritten.
func (r *BarRepository) SaveBars(ctx context.Context, bars []*domain.BarRecord) error {
	if len(bars) == 0 {
		return nil
	}

	barTbl := domain.GetBarTable()
	qb := querybuilder.NewQueryBuilder("public").
		Insert(
			barTbl.Ticker,
			barTbl.Freq,
			barTbl.Open,
			barTbl.High,
			barTbl.Low,
			barTbl.Close,
			barTbl.StartedAt,
		).Into(barTbl.TableName())
	for _, bar := range bars {
		qb = qb.Values(bar.Ticker, bar.Freq, bar.Open, bar.High, bar.Low, bar.Close, bar.StartedAt)
	}
	query, args := qb.
		OnConflict(barTbl.Ticker, barTbl.Freq, barTbl.StartedAt).
		SetExclude(barTbl.Open, barTbl.High, barTbl.Low, barTbl.Close).
		Build()
	if query == "" {
		return fmt.Errorf("failed to build bar insert")
	}

	// Execute the query
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to save bars", "count", len(bars), "error", err)
		return fmt.Errorf("failed to save bars: %w", err)
	}

	return nil
}

// GetBars retrieves journaled bars for a ticker and frequency within [from, to)
func (r *BarRepository) GetBars(ctx context.Context, ticker, freq string, from, to time.Time) ([]*domain.BarRecord, error) {
	// Prepare the query
	query := `
		SELECT ticker, freq, open, high, low, close, started_at
		FROM bars
		WHERE ticker = $1 AND freq = $2 AND started_at >= $3 AND started_at < $4
		ORDER BY started_at ASC
	`

	// Execute the query
	bars := make([]*domain.BarRecord, 0)
	if err := r.db.SelectContext(ctx, &bars, query, ticker, freq, from, to); err != nil {
		r.logger.Error("Failed to get bars", "ticker", ticker, "freq", freq, "error", err)
		return nil, fmt.Errorf("failed to get bars: %w", err)
	}

	return bars, nil
}
