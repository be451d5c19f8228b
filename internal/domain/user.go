package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an address-keyed activity aggregate. Users are never registered
// explicitly; the store creates one the first time an address is seen.
type User struct {
	Address           string          `json:"address"`
	Username          string          `json:"username"`
	CreatedAt         time.Time       `json:"created_at"`
	TotalTrades       int             `json:"total_trades"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	TournamentsJoined int             `json:"tournaments_joined"`
	InsightsStaked    int             `json:"insights_staked"`
}

// NewUser returns a zeroed aggregate for address.
func NewUser(address string, now time.Time) *User {
	short := address
	if len(short) > 8 {
		short = short[:8]
	}
	return &User{
		Address:     address,
		Username:    "user_" + short,
		CreatedAt:   now.UTC(),
		TotalVolume: decimal.Zero,
	}
}

// Clone returns a copy safe to mutate.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// RecordTrade bumps the trade counters.
func (u *User) RecordTrade(amount decimal.Decimal) {
	u.TotalTrades++
	u.TotalVolume = u.TotalVolume.Add(amount)
}

// LeaderboardEntry is one row of the platform leaderboard.
type LeaderboardEntry struct {
	Rank              int             `json:"rank"`
	Address           string          `json:"address"`
	Username          string          `json:"username"`
	TotalTrades       int             `json:"total_trades"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	TournamentsJoined int             `json:"tournaments_joined"`
	InsightsStaked    int             `json:"insights_staked"`
}
