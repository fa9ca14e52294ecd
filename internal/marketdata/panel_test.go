package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedRow(start time.Time, closes ...float64) []ClosedBar {
	row := make([]ClosedBar, len(closes))
	tickers := []string{"EURUSD", "USDJPY"}
	for i, c := range closes {
		row[i] = ClosedBar{
			Ticker: tickers[i],
			Start:  start,
			Bar:    Bar{Open: c, High: c, Low: c, Close: c, Count: 1},
		}
	}
	return row
}

func TestBarPanel_WindowGrowsAndTrims(t *testing.T) {
	panel := NewBarPanel([]string{"EURUSD", "USDJPY"}, 2)
	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	snap := panel.Push(closedRow(base, 10, 100))
	assert.Equal(t, 1, snap.Rows())
	assert.Equal(t, []string{"EURUSD", "USDJPY"}, snap.Tickers)
	assert.Equal(t, base, snap.Time)
	assert.Equal(t, []float64{10, 100}, snap.Close[0])

	snap = panel.Push(closedRow(base.Add(time.Minute), 11, 101))
	assert.Equal(t, 2, snap.Rows())
	assert.Equal(t, []float64{10, 100}, snap.Close[0])
	assert.Equal(t, []float64{11, 101}, snap.Close[1])

	// A third row pushes the oldest out of the two-row window.
	snap = panel.Push(closedRow(base.Add(2*time.Minute), 12, 102))
	assert.Equal(t, 2, snap.Rows())
	assert.Equal(t, []float64{11, 101}, snap.Close[0])
	assert.Equal(t, []float64{12, 102}, snap.Close[1])
	assert.Equal(t, []float64{12, 102}, snap.Open[1])
	assert.Equal(t, []float64{12, 102}, snap.High[1])
	assert.Equal(t, []float64{12, 102}, snap.Low[1])
	assert.Equal(t, base.Add(2*time.Minute), snap.Time)
}

func TestBarPanel_FedFromTimedBars(t *testing.T) {
	tickers := []string{"EURUSD", "USDJPY"}
	bars, err := NewTimedBars(tickers, FreqMinute)
	require.NoError(t, err)
	panel := NewBarPanel(tickers, 4)

	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)
	require.Nil(t, bars.Update(base, "EURUSD", 10))
	require.Nil(t, bars.Update(base.Add(time.Second), "USDJPY", 100))

	closed := bars.Update(base.Add(time.Minute), "EURUSD", 11)
	require.Len(t, closed, 2)

	snap := panel.Push(closed)
	assert.Equal(t, 1, snap.Rows())
	assert.Equal(t, []float64{10, 100}, snap.Close[0])
	assert.Equal(t, base, snap.Time)
}

func TestBarPanel_SnapshotIsolation(t *testing.T) {
	panel := NewBarPanel([]string{"EURUSD"}, 4)
	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	snap := panel.Push(closedRow(base, 10))
	snap.Close[0][0] = -1

	next := panel.Snapshot()
	assert.Equal(t, []float64{10}, next.Close[0])
}

func TestBarPanel_UnboundedLookback(t *testing.T) {
	panel := NewBarPanel([]string{"EURUSD"}, 0)
	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		panel.Push([]ClosedBar{{
			Ticker: "EURUSD",
			Start:  base.Add(time.Duration(i) * time.Minute),
			Bar:    Bar{Count: 1},
		}})
	}
	assert.Equal(t, 10, panel.Snapshot().Rows())
}

func TestBarPanel_EmptyPushKeepsWindow(t *testing.T) {
	panel := NewBarPanel([]string{"EURUSD"}, 4)
	base := time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

	panel.Push(closedRow(base, 10))
	snap := panel.Push(nil)
	assert.Equal(t, 1, snap.Rows())
}
