package datafeed

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/quantport.net/internal/config"
	"gitlab.com/quantport.net/internal/domain"
	"gitlab.com/quantport.net/internal/marketdata"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...interface{})  {}
func (noopLogger) Error(msg string, args ...interface{}) {}
func (noopLogger) Debug(msg string, args ...interface{}) {}
func (noopLogger) Warn(msg string, args ...interface{})  {}

type fakeBarRepo struct {
	saved    []*domain.BarRecord
	failNext bool
}

func (r *fakeBarRepo) SaveBars(ctx context.Context, bars []*domain.BarRecord) error {
	if r.failNext {
		r.failNext = false
		return assert.AnError
	}
	r.saved = append(r.saved, bars...)
	return nil
}

func (r *fakeBarRepo) GetBars(ctx context.Context, ticker, freq string, from, to time.Time) ([]*domain.BarRecord, error) {
	return nil, nil
}

func testCfg() *config.DatafeedCfg {
	return &config.DatafeedCfg{
		Broker:        "MOCK",
		Tickers:       []string{"EURUSD", "USDJPY"},
		Freq:          "1min",
		FlushInterval: 50 * time.Millisecond,
	}
}

func TestNewFeed_Validation(t *testing.T) {
	cfg := testCfg()
	cfg.Freq = "bogus"
	_, err := NewFeed(cfg, nil, noopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bar frequency")

	cfg = testCfg()
	cfg.Freq = "month"
	_, err = NewFeed(cfg, nil, noopLogger{})
	require.Error(t, err)

	cfg = testCfg()
	cfg.Tickers = nil
	_, err = NewFeed(cfg, nil, noopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tickers")
}

func TestFeedJournalsClosedBars(t *testing.T) {
	repo := &fakeBarRepo{}
	feed, err := NewFeed(testCfg(), repo, noopLogger{})
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	feed.handleTick(base, marketdata.Tick{Ticker: "EURUSD", Price: 10})
	feed.handleTick(base.Add(30*time.Second), marketdata.Tick{Ticker: "EURUSD", Price: 12})
	feed.handleTick(base.Add(time.Minute), marketdata.Tick{Ticker: "EURUSD", Price: 11})

	feed.Flush(context.Background())
	require.Len(t, repo.saved, 1)

	record := repo.saved[0]
	assert.Equal(t, "EURUSD", record.Ticker)
	assert.Equal(t, "1min", record.Freq)
	assert.Equal(t, 10.0, record.Open)
	assert.Equal(t, 12.0, record.High)
	assert.Equal(t, 10.0, record.Low)
	assert.Equal(t, 12.0, record.Close)
	assert.True(t, record.StartedAt.Equal(base))

	// USDJPY never ticked, its empty bar is not journaled.
	for _, r := range repo.saved {
		assert.NotEqual(t, "USDJPY", r.Ticker)
	}
}

func TestFlushFailureKeepsBatch(t *testing.T) {
	repo := &fakeBarRepo{failNext: true}
	feed, err := NewFeed(testCfg(), repo, noopLogger{})
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	feed.handleTick(base, marketdata.Tick{Ticker: "EURUSD", Price: 10})
	feed.handleTick(base.Add(time.Minute), marketdata.Tick{Ticker: "EURUSD", Price: 11})

	feed.Flush(context.Background())
	assert.Empty(t, repo.saved)
	assert.Contains(t, feed.Status(), "pending=1")

	feed.Flush(context.Background())
	require.Len(t, repo.saved, 1)
	assert.Contains(t, feed.Status(), "pending=0")
}

func TestFeedPanelTracksClosedBars(t *testing.T) {
	cfg := testCfg()
	cfg.Lookback = 2
	feed, err := NewFeed(cfg, nil, noopLogger{})
	require.NoError(t, err)

	assert.Equal(t, 0, feed.Panel().Rows())

	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	feed.handleTick(base, marketdata.Tick{Ticker: "EURUSD", Price: 10})
	feed.handleTick(base.Add(time.Minute), marketdata.Tick{Ticker: "EURUSD", Price: 11})
	feed.handleTick(base.Add(2*time.Minute), marketdata.Tick{Ticker: "EURUSD", Price: 12})
	feed.handleTick(base.Add(3*time.Minute), marketdata.Tick{Ticker: "EURUSD", Price: 13})

	snap := feed.Panel()
	require.Equal(t, 2, snap.Rows())
	assert.Equal(t, []string{"EURUSD", "USDJPY"}, snap.Tickers)
	assert.Equal(t, []float64{11, 0}, snap.Close[0])
	assert.Equal(t, []float64{12, 0}, snap.Close[1])
}

func TestFeedWithoutJournal(t *testing.T) {
	feed, err := NewFeed(testCfg(), nil, noopLogger{})
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	feed.handleTick(base, marketdata.Tick{Ticker: "EURUSD", Price: 10})
	feed.handleTick(base.Add(time.Minute), marketdata.Tick{Ticker: "EURUSD", Price: 11})

	// Flush with no repository is a no-op, bars are still counted.
	feed.Flush(context.Background())
	assert.Contains(t, feed.Status(), "bars=1")
	assert.Contains(t, feed.Status(), "pending=0")
}

func TestStatus(t *testing.T) {
	feed, err := NewFeed(testCfg(), nil, noopLogger{})
	require.NoError(t, err)

	status := feed.Status()
	assert.Contains(t, status, "broker=MOCK")
	assert.Contains(t, status, "freq=1min")
	assert.Contains(t, status, "ticks=0")
	assert.Contains(t, status, "last_tick=never")

	feed.handleTick(time.Now().UTC(), marketdata.Tick{Ticker: "EURUSD", Price: 10})
	status = feed.Status()
	assert.Contains(t, status, "ticks=1")
	assert.NotContains(t, status, "last_tick=never")
}

func TestRunConsumesTickSource(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("EURUSD 1.1000;1.1002\nUSDJPY 110.50;110.52\nGARBAGE\n"))
		<-hold
	}()

	cfg := testCfg()
	cfg.TickSourceURL = ln.Addr().String()
	feed, err := NewFeed(cfg, nil, noopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	// Two parseable lines, the garbage one is dropped.
	require.Eventually(t, func() bool {
		return strings.Contains(feed.Status(), "ticks=2")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop on cancel")
	}
}

func TestRunMockSource(t *testing.T) {
	cfg := testCfg()
	cfg.Freq = "1S"
	feed, err := NewFeed(cfg, nil, noopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return !strings.Contains(feed.Status(), "ticks=0")
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop on cancel")
	}
}
