package marketdata

import (
	"fmt"
	"strconv"
	"strings"
)

// Tick is one quote for a ticker. Price is the bid/ask midpoint.
type Tick struct {
	Ticker string
	Price  float64
}

// ParseTickLine parses one line of the quote feed, "TICKER bid;ask", as the
// MT4 bridge publishes it.
func ParseTickLine(line string) (Tick, error) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	if len(parts) != 2 || parts[0] == "" {
		return Tick{}, fmt.Errorf("malformed tick line %q", line)
	}
	quote := strings.SplitN(parts[1], ";", 2)
	if len(quote) != 2 {
		return Tick{}, fmt.Errorf("malformed quote %q in tick line", parts[1])
	}
	bid, err := strconv.ParseFloat(quote[0], 64)
	if err != nil {
		return Tick{}, fmt.Errorf("bad bid in tick line %q: %w", line, err)
	}
	ask, err := strconv.ParseFloat(quote[1], 64)
	if err != nil {
		return Tick{}, fmt.Errorf("bad ask in tick line %q: %w", line, err)
	}
	return Tick{Ticker: parts[0], Price: (bid + ask) / 2}, nil
}
