package carpark

import (
	"github.com/xraph/carpark/id"
	"github.com/xraph/carpark/session"
	"github.com/xraph/carpark/types"
)

// Re-export common types so callers of the ledger API need not import the
// leaf packages.

// SessionID is re-exported from the id package.
type SessionID = id.SessionID

// Session is re-exported from the session package.
type Session = session.Session

// Money is re-exported from the types package.
type Money = types.Money

// Re-export constructors and parsers.
var (
	ParseSessionID   = id.ParseSessionID
	NormalizeLicense = session.NormalizeLicense
	USD              = types.USD
	FromMajor        = types.FromMajor
)
