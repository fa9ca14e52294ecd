package domain

import "time"

// BarRecord is one closed OHLC bar as journaled to storage.
type BarRecord struct {
	Ticker    string    `db:"ticker" json:"ticker"`
	Freq      string    `db:"freq" json:"freq"`
	Open      float64   `db:"open" json:"open"`
	High      float64   `db:"high" json:"high"`
	Low       float64   `db:"low" json:"low"`
	Close     float64   `db:"close" json:"close"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
}

// BarTable holds the bars table column names
type BarTable struct {
	Ticker    string
	Freq      string
	Open      string
	High      string
	Low       string
	Close     string
	StartedAt string
}

func GetBarTable() BarTable {
	return BarTable{
		Ticker:    "ticker",
		Freq:      "freq",
		Open:      "open",
		High:      "high",
		Low:       "low",
		Close:     "close",
		StartedAt: "started_at",
	}
}

func (BarTable) TableName() string {
	return "bars"
}
