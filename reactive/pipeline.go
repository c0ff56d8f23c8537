package reactive

import (
	"sync"
	"time"
)

// Pattern is one registered responder within a Tier: an activation
// threshold/weight pair plus the identity returned in a matching
// Response.
type Pattern struct {
	ID        string
	Threshold float64
	Weight    float64
}

// Response is what a firing Pattern produces: which pattern fired, at
// which tier, and its activation strength (spec.md §9 unifies "strength"
// and "activation" into the one value).
type Response struct {
	PatternID string
	Tier      Tier
	Strength  float64
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithClock overrides the pipeline's time source, letting tests drive
// process deterministically instead of depending on wall-clock jitter
// (spec.md §8: "measured as wall-clock budget ... use injected clock").
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// Pipeline holds the registered pattern set for every tier. Pattern
// registration takes an exclusive lock; Process only reads the pattern
// set and is safe to call concurrently from many goroutines (spec.md §5).
type Pipeline struct {
	mu       sync.RWMutex
	patterns map[Tier][]Pattern
	clock    func() time.Time
}

// New constructs an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		patterns: make(map[Tier][]Pattern),
		clock:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}

	return p
}

// Register adds pat to tier's pattern set. Intended to be called at
// startup, before any concurrent Process calls begin (spec.md §5).
func (p *Pipeline) Register(tier Tier, pat Pattern) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.patterns[tier] = append(p.patterns[tier], pat)
}

// Process evaluates input against each tier in order. A tier that fires
// but does not bypass is discarded outright — later tiers are not
// compared against it, matching the original reference engine's
// should_bypass gate. The first tier whose response bypasses wins;
// ConsciousDeliberation always bypasses, so the walk never silently
// exhausts without an answer once it fires there. If no tier ever
// bypasses, Process reports no response (spec.md §4.6).
func (p *Pipeline) Process(input Input) (Response, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	t0 := p.clock()

	for _, tier := range orderedTiers {
		elapsed := p.clock().Sub(t0)
		low, high := tier.Window()
		if elapsed < low || elapsed > high {
			continue
		}

		resp, ok := p.evaluateTier(tier, input)
		if !ok {
			continue
		}

		if tier.Bypasses(resp.Strength) {
			return resp, true
		}
	}

	return Response{}, false
}

// evaluateTier scores every pattern registered under tier against input,
// returning the highest-activation pattern that cleared its own
// threshold.
func (p *Pipeline) evaluateTier(tier Tier, input Input) (Response, bool) {
	feature := input.Feature()

	var best Response
	found := false

	for _, pat := range p.patterns[tier] {
		activation := pat.Weight * feature
		if activation <= pat.Threshold {
			continue
		}

		if !found || activation > best.Strength {
			best = Response{PatternID: pat.ID, Tier: tier, Strength: activation}
			found = true
		}
	}

	return best, found
}
