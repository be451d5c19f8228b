package domain

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Error taxonomy
// ──────────────────────────────────────────────────────────────────────────────

// ErrorKind groups domain errors into the classes callers react to.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidArgument   ErrorKind = "INVALID_ARGUMENT"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindConflict          ErrorKind = "CONFLICT"
	KindInvariantViolated ErrorKind = "COMPUTATION_INVARIANT_VIOLATION"
)

// Error is the single concrete error type returned by the engine.
// Code is stable and safe to show to API clients; Field names the offending
// input when there is one.
type Error struct {
	Kind    ErrorKind
	Code    string
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is matches on Code so that field-specific copies of a sentinel still
// satisfy errors.Is(err, ErrX).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Lookup errors
var (
	ErrMarketNotFound     = &Error{Kind: KindNotFound, Code: "MARKET_NOT_FOUND", Message: "market not found"}
	ErrTradeNotFound      = &Error{Kind: KindNotFound, Code: "TRADE_NOT_FOUND", Message: "trade not found"}
	ErrStakeNotFound      = &Error{Kind: KindNotFound, Code: "STAKE_NOT_FOUND", Message: "stake not found"}
	ErrTournamentNotFound = &Error{Kind: KindNotFound, Code: "TOURNAMENT_NOT_FOUND", Message: "tournament not found"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Code: "USER_NOT_FOUND", Message: "user not found"}
)

// Market and stake errors
var (
	// ErrDuplicateEntity is returned by the store when an ID is inserted twice.
	ErrDuplicateEntity = &Error{Kind: KindConflict, Code: "DUPLICATE_ENTITY", Message: "entity already exists"}

	// ErrMarketNotActive is returned when trading or staking on a market that
	// is not accepting positions.
	ErrMarketNotActive = &Error{Kind: KindConflict, Code: "MARKET_NOT_ACTIVE", Message: "market is not active"}

	// ErrMarketAlreadyResolved is returned when trying to resolve an already-
	// resolved market.
	ErrMarketAlreadyResolved = &Error{Kind: KindConflict, Code: "MARKET_ALREADY_RESOLVED", Message: "market is already resolved"}

	ErrMarketNotResolved = &Error{Kind: KindConflict, Code: "MARKET_NOT_RESOLVED", Message: "market is not resolved yet"}
	ErrAlreadyClaimed    = &Error{Kind: KindConflict, Code: "ALREADY_CLAIMED", Message: "reward already claimed"}

	ErrNotWinning = &Error{Kind: KindInvalidArgument, Code: "NOT_WINNING", Message: "stake did not predict the winning outcome"}
	ErrNoReward   = &Error{Kind: KindInvalidArgument, Code: "NO_REWARD", Message: "no reward available"}

	// ErrNotMarketCreator is returned when someone other than the creator
	// tries to resolve a market.
	ErrNotMarketCreator = &Error{Kind: KindUnauthorized, Code: "NOT_MARKET_CREATOR", Message: "only the market creator can resolve"}
	ErrNotStakeOwner    = &Error{Kind: KindUnauthorized, Code: "NOT_STAKE_OWNER", Message: "only the staker can claim this reward"}
)

// Tournament errors
var (
	ErrTournamentNotPending  = &Error{Kind: KindConflict, Code: "TOURNAMENT_NOT_PENDING", Message: "tournament has already started"}
	ErrTournamentNotActive   = &Error{Kind: KindConflict, Code: "TOURNAMENT_NOT_ACTIVE", Message: "tournament is not active"}
	ErrTournamentCompleted   = &Error{Kind: KindConflict, Code: "TOURNAMENT_COMPLETED", Message: "tournament is already completed"}
	ErrTournamentFull        = &Error{Kind: KindConflict, Code: "TOURNAMENT_FULL", Message: "tournament is full"}
	ErrAlreadyJoined         = &Error{Kind: KindConflict, Code: "ALREADY_JOINED", Message: "already joined this tournament"}
	ErrNotEnoughParticipants = &Error{Kind: KindConflict, Code: "NOT_ENOUGH_PARTICIPANTS", Message: "at least two participants are required"}
	ErrNotTournamentCreator  = &Error{Kind: KindUnauthorized, Code: "NOT_TOURNAMENT_CREATOR", Message: "only the tournament creator can do this"}
	ErrNotParticipant        = &Error{Kind: KindUnauthorized, Code: "NOT_PARTICIPANT", Message: "address has not joined this tournament"}
)

// Auth errors
var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: "unauthorized"}
	ErrTokenInvalid       = &Error{Kind: KindUnauthorized, Code: "TOKEN_INVALID", Message: "token is invalid"}
	ErrAddressMismatch    = &Error{Kind: KindUnauthorized, Code: "ADDRESS_MISMATCH", Message: "address does not match the authenticated caller"}
	ErrChallengeNotFound  = &Error{Kind: KindUnauthorized, Code: "CHALLENGE_NOT_FOUND", Message: "no pending login challenge for this address"}
	ErrSignatureInvalid   = &Error{Kind: KindUnauthorized, Code: "SIGNATURE_INVALID", Message: "signature does not match the address"}
	ErrAdminSecretInvalid = &Error{Kind: KindUnauthorized, Code: "ADMIN_SECRET_INVALID", Message: "admin secret rejected"}
)

// ErrPriceInvariant signals that normalized prices no longer sum to one.
// It is a bug, never a caller mistake.
var ErrPriceInvariant = &Error{Kind: KindInvariantViolated, Code: "PRICE_INVARIANT_VIOLATED", Message: "market prices do not sum to one"}

// ──────────────────────────────────────────────────────────────────────────────
// Constructors
// ──────────────────────────────────────────────────────────────────────────────

// NotFound returns a lookup error for entity/id. The code is derived from the
// entity name so it still matches the corresponding sentinel.
func NotFound(entity, id string) error {
	base := notFoundByEntity[entity]
	if base == nil {
		return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Field: "id", Message: fmt.Sprintf("%s %s not found", entity, id)}
	}
	return &Error{Kind: KindNotFound, Code: base.Code, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

var notFoundByEntity = map[string]*Error{
	"market":     ErrMarketNotFound,
	"trade":      ErrTradeNotFound,
	"stake":      ErrStakeNotFound,
	"tournament": ErrTournamentNotFound,
	"user":       ErrUserNotFound,
}

// InvalidArgument returns a validation error naming the offending field.
func InvalidArgument(field, reason string) error {
	return &Error{Kind: KindInvalidArgument, Code: "INVALID_ARGUMENT", Field: field, Message: reason}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// KindOf returns the kind of the first *Error in err's chain, or "" when err
// did not originate in the domain.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// CodeOf returns the stable code of the first *Error in err's chain.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsNotFound returns true when err (or any error in its chain) is a domain
// "not found" error. Use this to translate to HTTP 404.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict returns true for errors that represent a state conflict (e.g.
// double resolution or a second claim).
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsAuthError returns true for authorisation errors.
func IsAuthError(err error) bool { return KindOf(err) == KindUnauthorized }

// IsInvalidArgument returns true for caller input errors.
func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }

// IsInvariantViolation returns true when a computation produced an impossible state.
func IsInvariantViolation(err error) bool { return KindOf(err) == KindInvariantViolated }
