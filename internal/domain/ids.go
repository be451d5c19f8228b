package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes. Every entity and reference id has the form <prefix>_<12 hex>.
const (
	PrefixMarket     = "market"
	PrefixTrade      = "trade"
	PrefixStake      = "stake"
	PrefixTournament = "tournament"
	PrefixTxn        = "txn"
	PrefixRewardTxn  = "reward_txn"
	PrefixEvent      = "evt"
)

// NewID returns a fresh random identifier with the given prefix.
func NewID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + hex[:12]
}
