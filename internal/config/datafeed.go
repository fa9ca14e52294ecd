package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type DatafeedCfg struct {
	Broker        string
	TickSourceURL string
	Tickers       []string
	Freq          string
	FlushInterval time.Duration
	Lookback      int
}

func NewDatafeedCfg() *DatafeedCfg {
	broker := os.Getenv("DATAFEED_BROKER")
	if broker == "" {
		broker = "MOCK"
	}
	freq := os.Getenv("DATAFEED_FREQ")
	if freq == "" {
		freq = "1min"
	}

	var tickers []string
	if raw := os.Getenv("DATAFEED_TICKERS"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, t)
			}
		}
	}
	if len(tickers) == 0 {
		tickers = []string{"EURUSD", "USDJPY"}
	}

	flushIntervalSec, err := strconv.Atoi(os.Getenv("DATAFEED_FLUSH_INTERVAL_SEC"))
	if err != nil {
		flushIntervalSec = 60
	}
	lookback, err := strconv.Atoi(os.Getenv("DATAFEED_LOOKBACK"))
	if err != nil {
		lookback = 500
	}

	return &DatafeedCfg{
		Broker:        broker,
		TickSourceURL: os.Getenv("DATAFEED_TICK_SOURCE"),
		Tickers:       tickers,
		Freq:          freq,
		FlushInterval: time.Duration(flushIntervalSec) * time.Second,
		Lookback:      lookback,
	}
}
