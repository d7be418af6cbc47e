// Package wallet implements the wallet side of catctl: the EIP-1193 style provider contract,
// the session manager built on it, and a keystore-backed local provider.
package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Provider request methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
)

// Provider error codes (EIP-1193, EIP-3326).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
)

// RequestArguments is the single argument of Provider.Request.
type RequestArguments struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

// Provider is an injected wallet.
type Provider interface {
	// Request performs a wallet request and returns the raw JSON result.
	Request(ctx context.Context, args RequestArguments) (json.RawMessage, error)
	// ChainChanged delivers the new hex chain id every time the wallet switches chains.
	ChainChanged() <-chan string
}

// ProviderError is the error shape returned by providers.
type ProviderError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// NewProviderError creates a ProviderError.
func NewProviderError(code int, format string, args ...any) *ProviderError {
	return &ProviderError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the provider code carried by err, or 0.
func ErrorCode(err error) int {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return 0
}

// IsUserRejected reports whether the user declined a wallet prompt.
func IsUserRejected(err error) bool {
	return ErrorCode(err) == CodeUserRejected
}

// IsUnrecognizedChain reports whether the wallet does not know the requested chain.
func IsUnrecognizedChain(err error) bool {
	return ErrorCode(err) == CodeUnrecognizedChain
}

// NativeCurrency is the nativeCurrency member of AddChainParams.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// AddChainParams is the EIP-3085 wallet_addEthereumChain parameter.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// Validate checks the fields a wallet needs to add a chain.
func (p AddChainParams) Validate() error {
	switch {
	case p.ChainID == "":
		return NewProviderError(CodeInvalidParams, "chainId is required")
	case p.ChainName == "":
		return NewProviderError(CodeInvalidParams, "chainName is required")
	case len(p.RPCURLs) == 0:
		return NewProviderError(CodeInvalidParams, "at least one rpcUrl is required")
	case p.NativeCurrency.Symbol == "":
		return NewProviderError(CodeInvalidParams, "nativeCurrency.symbol is required")
	case p.NativeCurrency.Decimals != 18:
		return NewProviderError(CodeInvalidParams, "nativeCurrency.decimals must be 18")
	}
	return nil
}

// SwitchChainParams is the EIP-3326 wallet_switchEthereumChain parameter.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// decodeParam re-decodes a loosely typed request parameter into dst.
func decodeParam(args RequestArguments, dst any) error {
	if len(args.Params) == 0 {
		return NewProviderError(CodeInvalidParams, "%s expects one parameter", args.Method)
	}
	raw, err := json.Marshal(args.Params[0])
	if err != nil {
		return NewProviderError(CodeInvalidParams, "invalid parameter: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewProviderError(CodeInvalidParams, "invalid parameter: %v", err)
	}
	return nil
}
