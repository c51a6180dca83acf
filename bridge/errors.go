package bridge

import "errors"

var (
	// ErrUnauthorized: a gateway-only entry point was invoked by a caller
	// other than the pinned gateway identity.
	ErrUnauthorized = errors.New("bridge: caller is not the gateway authority")

	// ErrLedgerOperation wraps a failure of the underlying token-ledger
	// collaborator. Always propagated, never swallowed.
	ErrLedgerOperation = errors.New("bridge: token ledger operation failed")

	// ErrGatewaySend wraps a synchronous gateway send failure after the
	// local burn already happened; the bridge rolls back before returning
	// this.
	ErrGatewaySend = errors.New("bridge: gateway send failed")
)
