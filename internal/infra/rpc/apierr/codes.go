package apierr

import (
	"fmt"
	"math"
)

// ErrorCode is the aggregator's numeric error code.
//
// Codes missing from the documented table are kept verbatim; IsKnown reports
// false for them and String renders them as Unknown(n). Code 0 is what the
// classifier uses when the body carried no code at all.
type ErrorCode uint16

// CodeGroup is the documented range a code falls into.
type CodeGroup int

const (
	GroupUnknown         CodeGroup = iota
	GroupGeneral                   // 1XXX
	GroupAlgo                      // 2XXX
	GroupInternalService           // 3XXX
	GroupValidation                // 4XXX
	GroupInternal                  // 5XXX
)

const (
	CodeUnknown ErrorCode = 0

	// General API errors (1XXX)
	CodeAPIError ErrorCode = 1000

	// Algo/quote errors (2XXX)
	CodeNoViablePath        ErrorCode = 2000
	CodeAlgoValidationError ErrorCode = 2400
	CodeAlgoConnectionError ErrorCode = 2997
	CodeAlgoTimeout         ErrorCode = 2998
	CodeAlgoInternal        ErrorCode = 2999

	// Internal service errors (3XXX)
	CodeInternalServiceError       ErrorCode = 3000
	CodeConfigInternal             ErrorCode = 3100
	CodeConfigConnectionError      ErrorCode = 3101
	CodeConfigTimeout              ErrorCode = 3102
	CodeTxnAssemblyInternal        ErrorCode = 3110
	CodeTxnAssemblyConnectionError ErrorCode = 3111
	CodeTxnAssemblyTimeout         ErrorCode = 3112
	CodeChainDataInternal          ErrorCode = 3120
	CodeChainDataConnectionError   ErrorCode = 3121
	CodeChainDataTimeout           ErrorCode = 3122
	CodePricingInternal            ErrorCode = 3130
	CodePricingConnectionError     ErrorCode = 3131
	CodePricingTimeout             ErrorCode = 3132
	CodeGasInternal                ErrorCode = 3140
	CodeGasConnectionError         ErrorCode = 3141
	CodeGasTimeout                 ErrorCode = 3142
	CodeGasUnavailable             ErrorCode = 3143

	// Validation errors (4XXX)
	CodeInvalidRequest          ErrorCode = 4000
	CodeInvalidChainID          ErrorCode = 4001
	CodeInvalidInputTokens      ErrorCode = 4002
	CodeInvalidOutputTokens     ErrorCode = 4003
	CodeInvalidUserAddr         ErrorCode = 4004
	CodeBlockedUserAddr         ErrorCode = 4005
	CodeTooSlippery             ErrorCode = 4006
	CodeSameInputOutput         ErrorCode = 4007
	CodeMultiZapOutput          ErrorCode = 4008
	CodeInvalidTokenCount       ErrorCode = 4009
	CodeInvalidTokenAddr        ErrorCode = 4010
	CodeNonIntegerTokenAmount   ErrorCode = 4011
	CodeNegativeTokenAmount     ErrorCode = 4012
	CodeSameInputOutputTokens   ErrorCode = 4013
	CodeTokenBlacklisted        ErrorCode = 4014
	CodeInvalidTokenProportions ErrorCode = 4015
	CodeTokenRoutingUnavailable ErrorCode = 4016
	CodeInvalidReferralCode     ErrorCode = 4017
	CodeInvalidTokenAmount      ErrorCode = 4018
	CodeNonStringTokenAmount    ErrorCode = 4019
	CodeInvalidAssemblyRequest  ErrorCode = 4100
	CodeInvalidAssemblyUserAddr ErrorCode = 4101
	CodeInvalidReceiverAddr     ErrorCode = 4102
	CodeInvalidSwapRequest      ErrorCode = 4200
	CodeUserAddrRequired        ErrorCode = 4201

	// Internal errors (5XXX)
	CodeInternalError     ErrorCode = 5000
	CodeSwapUnavailable   ErrorCode = 5001
	CodePriceCheckFailure ErrorCode = 5002
	CodeDefaultGasFailure ErrorCode = 5003
)

var codeNames = map[ErrorCode]string{
	CodeAPIError:                   "ApiError",
	CodeNoViablePath:               "NoViablePath",
	CodeAlgoValidationError:        "AlgoValidationError",
	CodeAlgoConnectionError:        "AlgoConnectionError",
	CodeAlgoTimeout:                "AlgoTimeout",
	CodeAlgoInternal:               "AlgoInternal",
	CodeInternalServiceError:       "InternalServiceError",
	CodeConfigInternal:             "ConfigInternal",
	CodeConfigConnectionError:      "ConfigConnectionError",
	CodeConfigTimeout:              "ConfigTimeout",
	CodeTxnAssemblyInternal:        "TxnAssemblyInternal",
	CodeTxnAssemblyConnectionError: "TxnAssemblyConnectionError",
	CodeTxnAssemblyTimeout:         "TxnAssemblyTimeout",
	CodeChainDataInternal:          "ChainDataInternal",
	CodeChainDataConnectionError:   "ChainDataConnectionError",
	CodeChainDataTimeout:           "ChainDataTimeout",
	CodePricingInternal:            "PricingInternal",
	CodePricingConnectionError:     "PricingConnectionError",
	CodePricingTimeout:             "PricingTimeout",
	CodeGasInternal:                "GasInternal",
	CodeGasConnectionError:         "GasConnectionError",
	CodeGasTimeout:                 "GasTimeout",
	CodeGasUnavailable:             "GasUnavailable",
	CodeInvalidRequest:             "InvalidRequest",
	CodeInvalidChainID:             "InvalidChainId",
	CodeInvalidInputTokens:         "InvalidInputTokens",
	CodeInvalidOutputTokens:        "InvalidOutputTokens",
	CodeInvalidUserAddr:            "InvalidUserAddr",
	CodeBlockedUserAddr:            "BlockedUserAddr",
	CodeTooSlippery:                "TooSlippery",
	CodeSameInputOutput:            "SameInputOutput",
	CodeMultiZapOutput:             "MultiZapOutput",
	CodeInvalidTokenCount:          "InvalidTokenCount",
	CodeInvalidTokenAddr:           "InvalidTokenAddr",
	CodeNonIntegerTokenAmount:      "NonIntegerTokenAmount",
	CodeNegativeTokenAmount:        "NegativeTokenAmount",
	CodeSameInputOutputTokens:      "SameInputOutputTokens",
	CodeTokenBlacklisted:           "TokenBlacklisted",
	CodeInvalidTokenProportions:    "InvalidTokenProportions",
	CodeTokenRoutingUnavailable:    "TokenRoutingUnavailable",
	CodeInvalidReferralCode:        "InvalidReferralCode",
	CodeInvalidTokenAmount:         "InvalidTokenAmount",
	CodeNonStringTokenAmount:       "NonStringTokenAmount",
	CodeInvalidAssemblyRequest:     "InvalidAssemblyRequest",
	CodeInvalidAssemblyUserAddr:    "InvalidAssemblyUserAddr",
	CodeInvalidReceiverAddr:        "InvalidReceiverAddr",
	CodeInvalidSwapRequest:         "InvalidSwapRequest",
	CodeUserAddrRequired:           "UserAddrRequired",
	CodeInternalError:              "InternalError",
	CodeSwapUnavailable:            "SwapUnavailable",
	CodePriceCheckFailure:          "PriceCheckFailure",
	CodeDefaultGasFailure:          "DefaultGasFailure",
}

// CodeFromNumber maps a raw number from an error body. Values outside the
// uint16 range cannot be represented and are reported as not ok.
func CodeFromNumber(n int64) (ErrorCode, bool) {
	if n < 0 || n > math.MaxUint16 {
		return CodeUnknown, false
	}
	return ErrorCode(n), true
}

// IsKnown reports whether the code is in the documented table.
func (c ErrorCode) IsKnown() bool {
	_, ok := codeNames[c]
	return ok
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return fmt.Sprintf("%s(%d)", name, uint16(c))
	}
	return fmt.Sprintf("Unknown(%d)", uint16(c))
}

// Group returns the documented range of the code.
func (c ErrorCode) Group() CodeGroup {
	switch {
	case c >= 1000 && c <= 1999:
		return GroupGeneral
	case c >= 2000 && c <= 2999:
		return GroupAlgo
	case c >= 3000 && c <= 3999:
		return GroupInternalService
	case c >= 4000 && c <= 4999:
		return GroupValidation
	case c >= 5000 && c <= 5999:
		return GroupInternal
	default:
		return GroupUnknown
	}
}

func (c ErrorCode) IsValidationError() bool {
	return c.Group() == GroupValidation
}

func (c ErrorCode) IsNoViablePath() bool {
	return c == CodeNoViablePath
}

func (c ErrorCode) IsInvalidChainID() bool {
	return c == CodeInvalidChainID
}

func (c ErrorCode) IsBlockedUser() bool {
	return c == CodeBlockedUserAddr
}

// IsTimeout reports an upstream service timeout.
func (c ErrorCode) IsTimeout() bool {
	switch c {
	case CodeAlgoTimeout, CodeConfigTimeout, CodeTxnAssemblyTimeout,
		CodeChainDataTimeout, CodePricingTimeout, CodeGasTimeout:
		return true
	}
	return false
}

// IsConnectionError reports an upstream service connection failure.
func (c ErrorCode) IsConnectionError() bool {
	switch c {
	case CodeAlgoConnectionError, CodeConfigConnectionError, CodeTxnAssemblyConnectionError,
		CodeChainDataConnectionError, CodePricingConnectionError, CodeGasConnectionError:
		return true
	}
	return false
}

// IsRetryable is the per-code retry flag: upstream timeouts, connection
// errors and internal failures are transient, everything else is not.
func (c ErrorCode) IsRetryable() bool {
	if c.IsTimeout() || c.IsConnectionError() {
		return true
	}
	switch c {
	case CodeAlgoInternal, CodeConfigInternal, CodeTxnAssemblyInternal,
		CodeChainDataInternal, CodePricingInternal, CodeGasInternal,
		CodeGasUnavailable, CodeInternalServiceError, CodeInternalError:
		return true
	}
	return false
}

// IsUnroutableToken reports codes that mean the aggregator correctly refused
// to route a token. They are answers rather than faults.
func (c ErrorCode) IsUnroutableToken() bool {
	switch c {
	case CodeTokenRoutingUnavailable, CodeTokenBlacklisted,
		CodeInvalidInputTokens, CodeInvalidOutputTokens, CodeNoViablePath:
		return true
	}
	return false
}
