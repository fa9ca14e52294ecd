package marketdata

import (
	"time"
)

// PanelSnapshot is a rolling window of closed bars, rows ordered oldest to
// newest and columns aligned with Tickers.
type PanelSnapshot struct {
	Time    time.Time   `json:"time"`
	Tickers []string    `json:"tickers"`
	Open    [][]float64 `json:"open"`
	High    [][]float64 `json:"high"`
	Low     [][]float64 `json:"low"`
	Close   [][]float64 `json:"close"`
}

// Rows returns the number of closed periods in the window.
func (ps PanelSnapshot) Rows() int {
	return len(ps.Open)
}

// BarPanel keeps a bounded history of closed bars. Each closed period pushed
// in becomes one row and the window is trimmed to the lookback, so a strategy
// always sees the last N bars per ticker.
type BarPanel struct {
	tickers  []string
	lookback int
	time     time.Time

	open  [][]float64
	high  [][]float64
	low   [][]float64
	close [][]float64
}

// NewBarPanel builds a panel keeping at most lookback closed periods. A zero
// or negative lookback keeps the full history.
func NewBarPanel(tickers []string, lookback int) *BarPanel {
	return &BarPanel{tickers: tickers, lookback: lookback}
}

// Push appends one closed period, bars in the panel's ticker order as
// TimedBars emits them, and returns the updated window.
func (bp *BarPanel) Push(closed []ClosedBar) PanelSnapshot {
	if len(closed) > 0 {
		row := make([]Bar, len(closed))
		for i, cb := range closed {
			row[i] = cb.Bar
		}
		bp.time = closed[0].Start
		bp.open = appendTrimmed(bp.open, pick(row, func(b Bar) float64 { return b.Open }), bp.lookback)
		bp.high = appendTrimmed(bp.high, pick(row, func(b Bar) float64 { return b.High }), bp.lookback)
		bp.low = appendTrimmed(bp.low, pick(row, func(b Bar) float64 { return b.Low }), bp.lookback)
		bp.close = appendTrimmed(bp.close, pick(row, func(b Bar) float64 { return b.Close }), bp.lookback)
	}
	return bp.Snapshot()
}

// Snapshot returns a copy of the current window.
func (bp *BarPanel) Snapshot() PanelSnapshot {
	return PanelSnapshot{
		Time:    bp.time,
		Tickers: bp.tickers,
		Open:    copyRows(bp.open),
		High:    copyRows(bp.high),
		Low:     copyRows(bp.low),
		Close:   copyRows(bp.close),
	}
}

func pick(row []Bar, field func(Bar) float64) []float64 {
	out := make([]float64, len(row))
	for i, b := range row {
		out[i] = field(b)
	}
	return out
}

func appendTrimmed(rows [][]float64, row []float64, lookback int) [][]float64 {
	rows = append(rows, row)
	if lookback > 0 && len(rows) > lookback {
		rows = rows[len(rows)-lookback:]
	}
	return rows
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
