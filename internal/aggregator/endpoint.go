// Package aggregator is a thin client for the quote and assemble endpoints.
// Every call goes through rpc.Client, so it inherits classification,
// retries and the rate-limit gate.
package aggregator

import "strings"

const (
	HostPublic     = "https://api.odos.xyz"
	HostEnterprise = "https://enterprise-api.odos.xyz"
)

// Version is the quote API version.
type Version string

const (
	V2 Version = "v2"
	V3 Version = "v3"
)

// Endpoint is an aggregator deployment.
type Endpoint struct {
	Host    string  `json:"host"`
	Version Version `json:"version"`
}

// PublicEndpoint returns the public v2 endpoint.
func PublicEndpoint() Endpoint {
	return Endpoint{Host: HostPublic, Version: V2}
}

// EnterpriseEndpoint returns the enterprise v2 endpoint. It requires an API key.
func EnterpriseEndpoint() Endpoint {
	return Endpoint{Host: HostEnterprise, Version: V2}
}

// QuoteURL returns <host>/sor/quote/<version>.
func (e Endpoint) QuoteURL() string {
	v := e.Version
	if v == "" {
		v = V2
	}
	return e.base() + "/sor/quote/" + string(v)
}

// AssembleURL returns <host>/sor/assemble.
func (e Endpoint) AssembleURL() string {
	return e.base() + "/sor/assemble"
}

// Scope is the key under which rate-limit cooldowns are shared.
func (e Endpoint) Scope() string {
	return strings.TrimPrefix(strings.TrimPrefix(e.base(), "https://"), "http://")
}

func (e Endpoint) base() string {
	host := e.Host
	if host == "" {
		host = HostPublic
	}
	return strings.TrimRight(host, "/")
}
