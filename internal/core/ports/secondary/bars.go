package secondary

import (
	"context"
	"time"

	"gitlab.com/quantport.net/internal/domain"
)

type BarRepository interface {
	// SaveBars journals a batch of closed bars
	SaveBars(ctx context.Context, bars []*domain.BarRecord) error

	// GetBars retrieves journaled bars for a ticker and frequency, ordered by
	// start time, within [from, to)
	GetBars(ctx context.Context, ticker, freq string, from, to time.Time) ([]*domain.BarRecord, error)
}
