package config

import "time"

// Price sources.
const (
	PriceSourceStatic    = "static"
	PriceSourceChainlink = "chainlink"
	PriceSourceCoinGecko = "coingecko"
)

// Timeout constants used across cmd.
const (
	RPCDialTimeout   = 10 * time.Second // dialing the aggregator's chain
	PriceReadTimeout = 15 * time.Second // one price feed round trip
)
