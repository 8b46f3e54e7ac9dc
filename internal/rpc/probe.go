// Package rpc chooses which JSON-RPC endpoint the Chainlink aggregator is
// read through.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/w3fund/internal/chain"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentProbes = 8

// Probe is one endpoint's measured state.
type Probe struct {
	URL     string
	Latency time.Duration
	Block   uint64
	ChainID int64
	Err     error
}

// OK reports whether the endpoint answered every probe call.
func (p Probe) OK() bool { return p.Err == nil }

// ProbeAll dials every URL concurrently and measures it. Results keep the
// order of urls.
func ProbeAll(ctx context.Context, urls []string, timeout time.Duration) []Probe {
	out := make([]Probe, len(urls))
	var g errgroup.Group
	g.SetLimit(maxConcurrentProbes)
	for i, u := range urls {
		g.Go(func() error {
			out[i] = probe(ctx, u, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func probe(ctx context.Context, url string, timeout time.Duration) Probe {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := Probe{URL: url}
	c, err := chain.Dial(ctx, url)
	if err != nil {
		p.Err = err
		return p
	}
	defer c.Close()

	if p.Latency, p.Block, err = c.Ping(ctx); err != nil {
		p.Err = fmt.Errorf("block number: %w", err)
		return p
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		p.Err = err
		return p
	}
	if !id.IsInt64() {
		p.Err = errors.New("chain id out of range")
		return p
	}
	p.ChainID = id.Int64()
	return p
}

// Best probes urls and returns the one algo picks. A single URL is
// returned without probing.
func Best(ctx context.Context, urls []string, algo Algorithm, wantChainID int64, timeout time.Duration) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}
	winner, err := Pick(ProbeAll(ctx, urls, timeout), algo, wantChainID)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}
