package aggregator

// InputToken is one token sold in a quote. Amount is a base-unit integer string.
type InputToken struct {
	TokenAddress string `json:"tokenAddress"`
	Amount       string `json:"amount"`
}

// OutputToken is one token bought in a quote. Proportions across all
// outputs must add up to 1.
type OutputToken struct {
	TokenAddress string  `json:"tokenAddress"`
	Proportion   float64 `json:"proportion"`
}

// QuoteRequest is the body of POST /sor/quote/<version>.
type QuoteRequest struct {
	ChainID              uint64        `json:"chainId"`
	InputTokens          []InputToken  `json:"inputTokens"`
	OutputTokens         []OutputToken `json:"outputTokens"`
	SlippageLimitPercent float64       `json:"slippageLimitPercent"`
	UserAddr             string        `json:"userAddr"`
	ReferralCode         uint32        `json:"referralCode"`
	Compact              bool          `json:"compact"`
	Simple               bool          `json:"simple"`
	DisableRFQs          bool          `json:"disableRFQs"`
}

// QuoteResponse is a single quote.
type QuoteResponse struct {
	BlockNumber       uint64    `json:"blockNumber"`
	DataGasEstimate   uint64    `json:"dataGasEstimate"`
	GasEstimate       float64   `json:"gasEstimate"`
	GasEstimateValue  float64   `json:"gasEstimateValue"`
	GweiPerGas        float64   `json:"gweiPerGas"`
	InAmounts         []string  `json:"inAmounts"`
	InTokens          []string  `json:"inTokens"`
	InValues          []float64 `json:"inValues"`
	NetOutValue       float64   `json:"netOutValue"`
	OutAmounts        []string  `json:"outAmounts"`
	OutTokens         []string  `json:"outTokens"`
	OutValues         []float64 `json:"outValues"`
	PartnerFeePercent float64   `json:"partnerFeePercent"`
	PathID            string    `json:"pathId"`
	PercentDiff       float64   `json:"percentDiff"`
	PriceImpact       float64   `json:"priceImpact"`
}

// OutAmount returns the first output amount, or "" when there is none.
func (q *QuoteResponse) OutAmount() string {
	if len(q.OutAmounts) == 0 {
		return ""
	}
	return q.OutAmounts[0]
}

// AssembleRequest is the body of POST /sor/assemble.
type AssembleRequest struct {
	UserAddr string `json:"userAddr"`
	PathID   string `json:"pathId"`
	Simulate bool   `json:"simulate"`
	Receiver string `json:"receiver,omitempty"`
}

// AssembleResponse carries the ready-to-sign router transaction.
type AssembleResponse struct {
	Transaction Transaction `json:"transaction"`
	Simulation  *Simulation `json:"simulation,omitempty"`
}

// Transaction is the router call produced by assemble.
type Transaction struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      int64  `json:"gas"`
	GasPrice uint64 `json:"gasPrice"`
	ChainID  uint64 `json:"chainId"`
	Nonce    uint64 `json:"nonce"`
}

// Simulation is returned when AssembleRequest.Simulate is set.
type Simulation struct {
	IsSuccess       bool            `json:"isSuccess"`
	AmountsOut      []string        `json:"amountsOut"`
	GasEstimate     int64           `json:"gasEstimate"`
	SimulationError SimulationError `json:"simulationError"`
}

type SimulationError struct {
	Type         string `json:"type"`
	ErrorMessage string `json:"errorMessage"`
}
