package domain

import "strconv"

// ChainID is the numeric EVM chain id the aggregator routes on.
type ChainID uint64

type ChainName string

const (
	ChainIDEthereum  ChainID = 1
	ChainIDOptimism  ChainID = 10
	ChainIDBSC       ChainID = 56
	ChainIDPolygon   ChainID = 137
	ChainIDSonic     ChainID = 146
	ChainIDFraxtal   ChainID = 252
	ChainIDZkSync    ChainID = 324
	ChainIDMantle    ChainID = 5000
	ChainIDBase      ChainID = 8453
	ChainIDMode      ChainID = 34443
	ChainIDArbitrum  ChainID = 42161
	ChainIDAvalanche ChainID = 43114
	ChainIDLinea     ChainID = 59144
	ChainIDScroll    ChainID = 534352

	ChainNameEthereum  ChainName = "ethereum"
	ChainNameOptimism  ChainName = "optimism"
	ChainNameBSC       ChainName = "bsc"
	ChainNamePolygon   ChainName = "polygon"
	ChainNameSonic     ChainName = "sonic"
	ChainNameFraxtal   ChainName = "fraxtal"
	ChainNameZkSync    ChainName = "zksync"
	ChainNameMantle    ChainName = "mantle"
	ChainNameBase      ChainName = "base"
	ChainNameMode      ChainName = "mode"
	ChainNameArbitrum  ChainName = "arbitrum"
	ChainNameAvalanche ChainName = "avalanche"
	ChainNameLinea     ChainName = "linea"
	ChainNameScroll    ChainName = "scroll"
)

// ChainIDToName maps ChainID to its human-readable name.
var ChainIDToName = map[ChainID]ChainName{
	ChainIDEthereum:  ChainNameEthereum,
	ChainIDOptimism:  ChainNameOptimism,
	ChainIDBSC:       ChainNameBSC,
	ChainIDPolygon:   ChainNamePolygon,
	ChainIDSonic:     ChainNameSonic,
	ChainIDFraxtal:   ChainNameFraxtal,
	ChainIDZkSync:    ChainNameZkSync,
	ChainIDMantle:    ChainNameMantle,
	ChainIDBase:      ChainNameBase,
	ChainIDMode:      ChainNameMode,
	ChainIDArbitrum:  ChainNameArbitrum,
	ChainIDAvalanche: ChainNameAvalanche,
	ChainIDLinea:     ChainNameLinea,
	ChainIDScroll:    ChainNameScroll,
}

// ChainNameToID maps Chain Name to its ID.
var ChainNameToID = func() map[ChainName]ChainID {
	m := make(map[ChainName]ChainID, len(ChainIDToName))
	for id, name := range ChainIDToName {
		m[name] = id
	}
	return m
}()

// IsSupported reports whether the aggregator is known to route on this chain.
func (c ChainID) IsSupported() bool {
	_, ok := ChainIDToName[c]
	return ok
}

func (c ChainID) String() string {
	if name, ok := ChainIDToName[c]; ok {
		return string(name)
	}
	return strconv.FormatUint(uint64(c), 10)
}

// ParseChain accepts either a numeric chain id or a known chain name.
func ParseChain(s string) (ChainID, bool) {
	if id, ok := ChainNameToID[ChainName(s)]; ok {
		return id, true
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return ChainID(n), true
}
