package engine

import "time"

// =============================================================================
// ACCOUNT - The balance-bearing entity instruments attach to
// =============================================================================
// Instruments reference their owning account by number, never by object
// reference, so the state machines stay free of persistence concerns.

type Account struct {
	Number    string
	HolderID  string
	Balance   Money
	CreatedAt time.Time
}
