// Package datafeed pumps broker ticks through the bar aggregator and
// journals closed bars to storage.
package datafeed

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/core/ports/primary"
	"gitlab.com/quantport.net/internal/core/ports/secondary"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/marketdata"
)

const sourceRetryDelay = 1 * time.Second

// Feed consumes a tick source, cuts ticks into bars, keeps the rolling
// panel strategies read, and journals every closed bar. A nil repository
// turns journaling off.
type Feed struct {
	cfg    *config.DatafeedCfg
	repo   secondary.BarRepository
	logger primary.Logger

	mu         sync.Mutex
	bars       *marketdata.TimedBars
	panel      *marketdata.BarPanel
	pending    []*domain.BarRecord
	tickCount  int64
	barCount   int64
	lastTickAt time.Time
}

func NewFeed(cfg *config.DatafeedCfg, repo secondary.BarRepository, logger primary.Logger) (*Feed, error) {
	freq, ok := marketdata.ParseFreq(cfg.Freq)
	if !ok {
		return nil, fmt.Errorf("unknown bar frequency %q", cfg.Freq)
	}
	if len(cfg.Tickers) == 0 {
		return nil, fmt.Errorf("no tickers configured")
	}
	bars, err := marketdata.NewTimedBars(cfg.Tickers, freq)
	if err != nil {
		return nil, err
	}
	return &Feed{
		cfg:    cfg,
		repo:   repo,
		logger: logger,
		bars:   bars,
		panel:  marketdata.NewBarPanel(cfg.Tickers, cfg.Lookback),
	}, nil
}

// Run consumes the tick source until ctx is cancelled, flushing journaled
// bars on the configured interval. Source failures are retried, they never
// take the feed down.
func (f *Feed) Run(ctx context.Context) {
	go f.runSource(ctx)

	flushTicker := time.NewTicker(f.cfg.FlushInterval)
	defer flushTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Last chance to persist what already closed.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			f.Flush(flushCtx)
			cancel()
			return
		case <-flushTicker.C:
			f.Flush(ctx)
		}
	}
}

func (f *Feed) runSource(ctx context.Context) {
	if f.cfg.TickSourceURL == "" {
		f.logger.Info("No tick source configured, generating mock ticks", "tickers", f.cfg.Tickers)
		f.runMockSource(ctx)
		return
	}
	for ctx.Err() == nil {
		if err := f.consumeSource(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn("Tick source failed, reconnecting", "source", f.cfg.TickSourceURL, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sourceRetryDelay):
		}
	}
}

func (f *Feed) consumeSource(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", f.cfg.TickSourceURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		// Unblock the read when the feed is being stopped.
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		tick, err := marketdata.ParseTickLine(line)
		if err != nil {
			f.logger.Warn("Dropped malformed tick", "error", err)
			continue
		}
		f.handleTick(time.Now().UTC(), tick)
	}
}

// runMockSource random-walks each ticker from a common starting price. It
// keeps the rest of the pipeline exercised when no broker bridge is
// reachable.
func (f *Feed) runMockSource(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	prices := make(map[string]float64, len(f.cfg.Tickers))
	for _, name := range f.cfg.Tickers {
		prices[name] = 100.0
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, name := range f.cfg.Tickers {
				prices[name] += rng.NormFloat64() * 0.05
				f.handleTick(time.Now().UTC(), marketdata.Tick{Ticker: name, Price: prices[name]})
			}
		}
	}
}

func (f *Feed) handleTick(ts time.Time, tick marketdata.Tick) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tickCount++
	f.lastTickAt = ts
	closed := f.bars.Update(ts, tick.Ticker, tick.Price)
	if len(closed) == 0 {
		return
	}
	f.panel.Push(closed)
	for _, cb := range closed {
		if cb.Bar.Count == 0 {
			continue
		}
		f.barCount++
		if f.repo == nil {
			continue
		}
		f.pending = append(f.pending, &domain.BarRecord{
			Ticker:    cb.Ticker,
			Freq:      string(f.bars.Freq()),
			Open:      cb.Bar.Open,
			High:      cb.Bar.High,
			Low:       cb.Bar.Low,
			Close:     cb.Bar.Close,
			StartedAt: cb.Start,
		})
	}
}

// Flush journals all pending closed bars. A failed batch stays pending for
// the next flush.
func (f *Feed) Flush(ctx context.Context) {
	if f.repo == nil {
		return
	}
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if err := f.repo.SaveBars(ctx, batch); err != nil {
		f.logger.Error("Failed to journal bars, keeping batch", "count", len(batch), "error", err)
		f.mu.Lock()
		f.pending = append(batch, f.pending...)
		f.mu.Unlock()
		return
	}
	f.logger.Info("Journaled bars", "count", len(batch))
}

// Status reports the feed counters as a single line for the command channel.
func (f *Feed) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	last := "never"
	if !f.lastTickAt.IsZero() {
		last = f.lastTickAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("broker=%s freq=%s ticks=%d bars=%d pending=%d last_tick=%s",
		f.cfg.Broker, f.cfg.Freq, f.tickCount, f.barCount, len(f.pending), last)
}

// Panel returns the rolling window of closed bars.
func (f *Feed) Panel() marketdata.PanelSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.panel.Snapshot()
}
