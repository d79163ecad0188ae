package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/nao1215/attrguard/internal/model"
	"golang.org/x/sync/errgroup"
)

// Default simulated latency bounds, per URL.
const (
	DefaultSimMinLatency = 500 * time.Millisecond
	DefaultSimMaxLatency = 2 * time.Second
)

// keywordClass groups URL keywords that trigger one detection template.
type keywordClass struct {
	kind     model.Kind
	keywords []string
}

// simulatedClasses are evaluated in order; each matching class contributes one candidate template.
var simulatedClasses = []keywordClass{
	{kind: model.KindRequest, keywords: []string{"track", "click", "ref", "redirect"}},
	{kind: model.KindCookie, keywords: []string{"affiliate", "partner", "offer"}},
	{kind: model.KindIframe, keywords: []string{"frame", "embed", "popunder"}},
}

// Simulated is a provider that fabricates detections from URL keywords.
// For a fixed seed its output is fully deterministic.
type Simulated struct {
	seed        uint64
	minLatency  time.Duration
	maxLatency  time.Duration
	concurrency int
}

// SimulatedOption configures a Simulated provider.
type SimulatedOption func(*Simulated)

// WithSeed sets the PRNG seed mixed into every per-URL generator.
func WithSeed(seed uint64) SimulatedOption {
	return func(s *Simulated) {
		s.seed = seed
	}
}

// WithLatency sets the per-URL latency range. Zero disables waiting.
func WithLatency(minLatency, maxLatency time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if minLatency < 0 {
			minLatency = 0
		}
		if maxLatency < minLatency {
			maxLatency = minLatency
		}
		s.minLatency = minLatency
		s.maxLatency = maxLatency
	}
}

// WithSimulatedConcurrency sets the number of URLs "scanned" at once.
func WithSimulatedConcurrency(n int) SimulatedOption {
	return func(s *Simulated) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSimulated creates a simulated provider.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		minLatency:  DefaultSimMinLatency,
		maxLatency:  DefaultSimMaxLatency,
		concurrency: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind implements Provider.
func (s *Simulated) Kind() model.ProviderKind {
	return model.ProviderSimulated
}

// Scan implements Provider.
func (s *Simulated) Scan(ctx context.Context, urls []string) ([]model.DetectionRecord, error) {
	perURL := make([][]model.DetectionRecord, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			rng := s.rngFor(u)
			if err := s.wait(ctx, rng); err != nil {
				return err
			}
			perURL[i] = simulateURL(u, rng)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulated scan interrupted: %w", err)
	}
	return flatten(perURL), nil
}

// rngFor returns the deterministic generator for one URL.
func (s *Simulated) rngFor(u string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(u)) //nolint:errcheck // hash.Hash never returns an error
	seed := h.Sum64() ^ s.seed
	return rand.New(rand.NewPCG(seed, seed>>1|1)) //nolint:gosec // not used for security
}

func (s *Simulated) wait(ctx context.Context, rng *rand.Rand) error {
	d := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		d += time.Duration(rng.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// simulateURL derives 1..min(2, candidates) detections for a URL that
// contains a keyword, or none otherwise.
func simulateURL(u string, rng *rand.Rand) []model.DetectionRecord {
	lower := strings.ToLower(u)

	candidates := make([]model.DetectionRecord, 0, len(simulatedClasses))
	for _, class := range simulatedClasses {
		if containsAny(lower, class.keywords) {
			candidates = append(candidates, simulatedTemplate(class.kind, u, rng))
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	n := 1 + rng.IntN(min(2, len(candidates)))
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates[:n]
}

func simulatedTemplate(kind model.Kind, u string, rng *rand.Rand) model.DetectionRecord {
	switch kind {
	case model.KindCookie:
		return model.DetectionRecord{
			Kind:    model.KindCookie,
			URL:     u,
			Detail:  "affiliate_id=12345; tracking_pixel=true; partner_ref=abc123",
			Origin:  "https://tracking-domain.com",
			Referer: u,
		}
	case model.KindIframe:
		return model.DetectionRecord{
			Kind:    model.KindIframe,
			URL:     u,
			Detail:  fmt.Sprintf("https://ads.tracking-domain.com/frame?slot=%d", 1000+rng.IntN(9000)),
			Origin:  u,
			Referer: u,
		}
	default:
		return model.DetectionRecord{
			Kind:    model.KindRequest,
			URL:     u,
			Detail:  fmt.Sprintf("http://suspicious-tracker.com/click?ref=%d", 1000+rng.IntN(9000)),
			Origin:  u,
			Referer: "direct",
		}
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
