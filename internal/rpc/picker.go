package rpc

import (
	"errors"
	"fmt"
)

// Errors.
var (
	ErrNoHealthyRPC     = errors.New("no healthy RPC endpoint available")
	ErrUnknownAlgorithm = errors.New("unknown RPC algorithm")
)

// Algorithm decides how an endpoint is chosen among healthy probes.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Probes more than this many blocks behind the best are stale.
	staleBlockThreshold = 3
)

// ParseAlgorithm validates an algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", AlgorithmFastest:
		return AlgorithmFastest, nil
	case AlgorithmFailover:
		return AlgorithmFailover, nil
	}
	return "", fmt.Errorf("%w: %q (use fastest or failover)", ErrUnknownAlgorithm, s)
}

// Pick chooses a probe. Failed probes, probes on another chain (when
// wantChainID is non-zero) and stale probes are never chosen. Fastest takes
// the best latency/recency score; failover takes the first eligible probe
// in the given order.
func Pick(probes []Probe, algo Algorithm, wantChainID int64) (*Probe, error) {
	eligible := Eligible(probes, wantChainID)
	if len(eligible) == 0 {
		return nil, ErrNoHealthyRPC
	}
	if algo == AlgorithmFailover {
		return eligible[0], nil
	}

	best := bestBlock(eligible)
	winner := eligible[0]
	for _, p := range eligible[1:] {
		if score(p, best) > score(winner, best) {
			winner = p
		}
	}
	return winner, nil
}

// Eligible returns the probes Pick may choose from, in order.
func Eligible(probes []Probe, wantChainID int64) []*Probe {
	var ok []*Probe
	for i := range probes {
		p := &probes[i]
		if !p.OK() || (wantChainID != 0 && p.ChainID != wantChainID) {
			continue
		}
		ok = append(ok, p)
	}
	best := bestBlock(ok)
	out := ok[:0]
	for _, p := range ok {
		if best-p.Block <= staleBlockThreshold {
			out = append(out, p)
		}
	}
	return out
}

func bestBlock(probes []*Probe) uint64 {
	var best uint64
	for _, p := range probes {
		best = max(best, p.Block)
	}
	return best
}

// score favours low latency; each block behind costs one point.
func score(p *Probe, best uint64) float64 {
	var s float64
	if ms := p.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else {
		s += 1000.0
	}
	return s - float64(best-p.Block)
}
