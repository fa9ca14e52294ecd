// Package marketdata aggregates raw price ticks into fixed-period OHLC bars
// and bounded rolling panels, the data a strategy worker consumes.
package marketdata

import (
	"fmt"
	"time"
)

// Freq is a bar frequency. The string values are wire- and storage-stable.
type Freq string

const (
	FreqMonthly Freq = "month"
	FreqDaily   Freq = "1D"
	FreqHourly  Freq = "1H"
	FreqMinute  Freq = "1min"
	Freq5Min    Freq = "5min"
	FreqSecond  Freq = "1S"
	Freq5Sec    Freq = "5S"
	Freq10Sec   Freq = "10S"
	FreqTick    Freq = "tick"
)

// ParseFreq maps a frequency string to a Freq.
func ParseFreq(s string) (Freq, bool) {
	switch Freq(s) {
	case FreqMonthly, FreqDaily, FreqHourly, FreqMinute, Freq5Min,
		FreqSecond, Freq5Sec, Freq10Sec, FreqTick:
		return Freq(s), true
	}
	return "", false
}

// Duration returns the bar period. Tick frequency has a zero period, every
// tick closes a bar.
func (f Freq) Duration() (time.Duration, error) {
	switch f {
	case FreqTick:
		return 0, nil
	case FreqSecond:
		return time.Second, nil
	case Freq5Sec:
		return 5 * time.Second, nil
	case Freq10Sec:
		return 10 * time.Second, nil
	case FreqMinute:
		return time.Minute, nil
	case Freq5Min:
		return 5 * time.Minute, nil
	case FreqHourly:
		return time.Hour, nil
	case FreqDaily:
		return 24 * time.Hour, nil
	case FreqMonthly:
		// TODO: monthly bars need calendar-aware flooring, a fixed duration
		// cannot represent them
		return 0, fmt.Errorf("monthly bars are not supported")
	}
	return 0, fmt.Errorf("unknown frequency %q", string(f))
}
