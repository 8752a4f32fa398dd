package market

import "errors"

// Validation failures raised by ledger operations. All are local to the
// offending operation — the ledger never partially applies a mutation,
// and none of these abort a round. The tool boundary converts them to
// error strings fed back to the acting agent's decision context.
var (
	ErrInsufficientGoods   = errors.New("insufficient goods")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrOfferNotFound       = errors.New("offer not found")
	ErrNotOwner            = errors.New("offer belongs to another agent")
	ErrSelfTrade           = errors.New("cannot accept own offer")
	ErrWrongOfferDirection = errors.New("wrong offer direction")
	ErrInvalidOffer        = errors.New("quantity and price must be positive")
	ErrUnknownAgent        = errors.New("unknown agent")
)
