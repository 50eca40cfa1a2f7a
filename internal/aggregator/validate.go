package aggregator

import (
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

func invalid(format string, args ...any) error {
	return &apierr.InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// Validate checks the request before any network traffic.
func (r *QuoteRequest) Validate() error {
	if !domain.ChainID(r.ChainID).IsSupported() {
		return &apierr.UnsupportedChainError{ChainID: r.ChainID}
	}
	if len(r.InputTokens) == 0 {
		return invalid("at least one input token is required")
	}
	if len(r.OutputTokens) == 0 {
		return invalid("at least one output token is required")
	}
	for _, in := range r.InputTokens {
		if err := validateAddress("input token", in.TokenAddress); err != nil {
			return err
		}
		if err := validateAmount(in.Amount); err != nil {
			return err
		}
	}
	var total float64
	for _, out := range r.OutputTokens {
		if err := validateAddress("output token", out.TokenAddress); err != nil {
			return err
		}
		if out.Proportion <= 0 {
			return invalid("output proportion must be positive, got %v", out.Proportion)
		}
		total += out.Proportion
	}
	if math.Abs(total-1) > 1e-9 {
		return invalid("output proportions must sum to 1, got %v", total)
	}
	if r.SlippageLimitPercent <= 0 || r.SlippageLimitPercent > 100 {
		return invalid("slippage must be in (0, 100], got %v", r.SlippageLimitPercent)
	}
	return validateAddress("user", r.UserAddr)
}

// Validate checks the request before any network traffic.
func (r *AssembleRequest) Validate() error {
	if strings.TrimSpace(r.PathID) == "" {
		return invalid("path id is required")
	}
	if err := validateAddress("user", r.UserAddr); err != nil {
		return err
	}
	if r.Receiver != "" {
		return validateAddress("receiver", r.Receiver)
	}
	return nil
}

func validateAddress(field, addr string) error {
	s, ok := strings.CutPrefix(addr, "0x")
	if !ok || len(s) != 40 {
		return invalid("%s address must be 0x followed by 40 hex digits, got %q", field, addr)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return &apierr.HexError{Err: fmt.Errorf("%s address: %w", field, err)}
	}
	return nil
}

func validateAmount(amount string) error {
	if amount == "" || len(amount) >= 64 {
		return invalid("amount should be positive integer in string form with < 64 digits, got %q", amount)
	}
	nonZero := false
	for _, r := range amount {
		if r < '0' || r > '9' {
			return invalid("amount should be positive integer in string form with < 64 digits, got %q", amount)
		}
		if r != '0' {
			nonZero = true
		}
	}
	if !nonZero {
		return invalid("amount must be positive")
	}
	return nil
}

// DecodeData returns the calldata bytes.
func (t *Transaction) DecodeData() ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(t.Data, "0x"))
	if err != nil {
		return nil, &apierr.HexError{Err: err}
	}
	return b, nil
}
