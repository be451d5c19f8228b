package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a purchase of outcome shares. It is written once and never
// updated; Price is the outcome price in force before the trade moved it.
type Trade struct {
	ID            string          `json:"id"`
	MarketID      string          `json:"market_id"`
	TraderAddress string          `json:"trader_address"`
	Outcome       string          `json:"outcome"`
	Amount        decimal.Decimal `json:"amount"`
	Shares        decimal.Decimal `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	TxnID         string          `json:"txn_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TradeRequest carries the inputs of ExecuteTrade.
type TradeRequest struct {
	MarketID      string
	TraderAddress string
	Outcome       string
	Amount        decimal.Decimal
}

// TradeReceipt is returned to the trader after execution.
type TradeReceipt struct {
	TradeID        string          `json:"trade_id"`
	SharesReceived decimal.Decimal `json:"shares_received"`
	NewPrice       decimal.Decimal `json:"new_price"`
	TxnID          string          `json:"txn_id"`
}
