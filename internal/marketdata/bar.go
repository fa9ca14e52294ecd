package marketdata

import (
	"time"
)

// Bar accumulates ticks into a single OHLC bar. The zero value is an empty
// bar, Count tells them apart from a bar that traded at zero.
type Bar struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
	Count int     `json:"count"`
}

// Update folds one trade price into the bar.
func (b *Bar) Update(price float64) {
	if b.Count == 0 {
		b.Open, b.High, b.Low, b.Close = price, price, price, price
		b.Count = 1
		return
	}
	if price > b.High {
		b.High = price
	}
	if price < b.Low {
		b.Low = price
	}
	b.Close = price
	b.Count++
}

// Clear returns the accumulated bar and resets the receiver for the next
// period.
func (b *Bar) Clear() Bar {
	out := *b
	*b = Bar{}
	return out
}

// ClosedBar is one ticker's finished bar together with the period it covers.
type ClosedBar struct {
	Ticker string
	Start  time.Time
	Bar    Bar
}

// TimedBars cuts a tick stream into fixed-period bars for a set of tickers.
// All tickers share one period clock: the first tick anchors the period on
// its floored timestamp, and the first tick at or past the boundary closes
// the bars of every ticker at once. A ticker with no ticks in a period
// closes with Count zero.
type TimedBars struct {
	tickers []string
	freq    Freq
	period  time.Duration
	start   time.Time
	bars    map[string]*Bar
}

// NewTimedBars builds an aggregator for the given tickers and frequency.
func NewTimedBars(tickers []string, freq Freq) (*TimedBars, error) {
	period, err := freq.Duration()
	if err != nil {
		return nil, err
	}
	bars := make(map[string]*Bar, len(tickers))
	for _, ticker := range tickers {
		bars[ticker] = &Bar{}
	}
	return &TimedBars{tickers: tickers, freq: freq, period: period, bars: bars}, nil
}

// Tickers returns the tickers this aggregator tracks, in input order.
func (tb *TimedBars) Tickers() []string {
	return tb.tickers
}

// Freq returns the bar frequency.
func (tb *TimedBars) Freq() Freq {
	return tb.freq
}

// Update folds one tick in. When the tick starts a new period it returns the
// finished period's bars, one ClosedBar per ticker in input order, before the
// tick itself is applied to the new period. Ticks for unknown tickers are
// dropped.
func (tb *TimedBars) Update(ts time.Time, ticker string, price float64) []ClosedBar {
	bar, ok := tb.bars[ticker]
	if !ok {
		return nil
	}

	if tb.start.IsZero() {
		tb.start = ts.Truncate(tb.period)
		bar.Update(price)
		return nil
	}

	var closed []ClosedBar
	if ts.Sub(tb.start) >= tb.period {
		closed = tb.closeAll()
		tb.start = ts.Truncate(tb.period)
	}
	bar.Update(price)
	return closed
}

func (tb *TimedBars) closeAll() []ClosedBar {
	closed := make([]ClosedBar, 0, len(tb.tickers))
	for _, ticker := range tb.tickers {
		closed = append(closed, ClosedBar{
			Ticker: ticker,
			Start:  tb.start,
			Bar:    tb.bars[ticker].Clear(),
		})
	}
	return closed
}
