package core

import (
	"github.com/pkg/errors"

	"github.com/catnames/catctl/internal/wallet"
)

// Errors returned by the workflow. Classify with errors.Is.
var (
	ErrNoProvider   = wallet.ErrNoProvider
	ErrNotConnected = errors.New("wallet not connected")
	ErrEmptyName    = errors.New("name is empty")
	ErrNameTooShort = errors.Errorf("name must be at least %d characters", MinNameLength)
	ErrEmptyRecord  = errors.New("record is empty")
	ErrWrongNetwork = errors.New("wallet is not on the required network")
	ErrTxFailed     = errors.New("transaction failed")
	ErrBusy         = errors.New("a transaction is already in progress")
	ErrNotOwner     = errors.New("only the owner can edit this name")
)

// Notice is the one-line message shown to the user for err.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoProvider):
		return "No wallet found. Create one with `catctl wallet new` or pick one with `catctl wallet use`."
	case errors.Is(err, ErrEmptyName):
		return "Enter a name first."
	case errors.Is(err, ErrNameTooShort):
		return "Domain must be at least 3 characters long."
	case errors.Is(err, ErrEmptyRecord):
		return "Enter a record first."
	case errors.Is(err, ErrNotConnected):
		return "Connect your wallet first."
	case errors.Is(err, ErrWrongNetwork):
		return "Switch to " + RequiredNetwork().DisplayName + " first."
	case errors.Is(err, ErrTxFailed):
		return "Transaction failed, please try again."
	case errors.Is(err, ErrBusy):
		return "A transaction is already in progress."
	case errors.Is(err, ErrNotOwner):
		return "Only the owner can edit this name."
	case wallet.IsUserRejected(err):
		return "Request rejected in wallet."
	case wallet.IsUnrecognizedChain(err):
		return "Wallet does not know " + RequiredNetwork().DisplayName + "."
	case wallet.ErrorCode(err) == wallet.CodeUnauthorized:
		return "Wallet account is not connected."
	}
	return "Something went wrong: " + err.Error()
}
