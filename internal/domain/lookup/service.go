package lookup

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/refdata/internal/platform/cache"
	"github.com/ehr/refdata/internal/platform/ratelimit"
)

// Cache key operation names.
const (
	OpDiagnosis   = "icd10"
	OpProcedure   = "cpt"
	OpTerminology = "terminology"
	OpProviderNPI = "npi"
	OpProviders   = "providers"
)

// Limits keys per-window call budgets by registry name for ratelimit.New.
func Limits(icd10, cpt, terminology, npi int) map[string]int {
	return map[string]int{
		RegistryICD10.String():       icd10,
		RegistryCPT.String():         cpt,
		RegistryTerminology.String(): terminology,
		RegistryNPI.String():         npi,
	}
}

// Service fronts the reference-data registries. Every operation consults the
// cache, then the registry's rate limit, then the registry itself, and falls
// back to the knowledge base when the registry call fails. Operations never
// return an error; the outcome is always a Result.
type Service struct {
	cache   *cache.Store
	limiter *ratelimit.Limiter
	kb      *KnowledgeBase
	logger  zerolog.Logger

	icd10       Fetcher[[]RawDiagnosisCode]
	procedures  Fetcher[[]ProcedureCode]
	terminology Fetcher[[]TerminologyEntry]
	npi         Fetcher[*RawNPIResponse]

	warmConcurrency int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithWarmConcurrency bounds the number of concurrent lookups run by Warm.
func WithWarmConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.warmConcurrency = n
		}
	}
}

// NewService creates a Service owning store and limiter. The procedure and
// terminology registries have no live endpoint and always resolve from kb.
func NewService(store *cache.Store, limiter *ratelimit.Limiter, kb *KnowledgeBase,
	icd10 Fetcher[[]RawDiagnosisCode], npi Fetcher[*RawNPIResponse], opts ...ServiceOption) *Service {
	s := &Service{
		cache:           store,
		limiter:         limiter,
		kb:              kb,
		logger:          zerolog.Nop(),
		icd10:           icd10,
		procedures:      NewUnwired[[]ProcedureCode](RegistryCPT),
		terminology:     NewUnwired[[]TerminologyEntry](RegistryTerminology),
		npi:             npi,
		warmConcurrency: 4,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func identity[T any](v T) T { return v }

// search runs the cache, rate limit, fetch, normalize, fallback sequence for
// a list-valued operation.
func search[R, T any](ctx context.Context, s *Service, op, query string, f Fetcher[R],
	normalize func(R) []T, fallback func(string) []T) Result[[]T] {
	if strings.TrimSpace(query) == "" {
		return fail[[]T](MsgQueryMissing, ErrInvalidQuery)
	}

	key := cache.Key(op, query)
	if v, hit := s.cache.Get(key); hit {
		if data, ok := v.([]T); ok {
			return succeed(slices.Clone(data), true)
		}
	}

	registry := f.Registry().String()
	if !s.admit(f, registry) {
		s.logger.Warn().Str("registry", registry).Str("op", op).Msg("registry rate limit exceeded")
		return fail[[]T](MsgRateLimited, ErrRateLimited)
	}

	raw, err := f.Fetch(ctx, query)
	if err != nil {
		data := fallback(query)
		// A cancelled caller says nothing about the registry.
		if ctx.Err() == nil {
			s.cache.Set(key, slices.Clone(data))
		}
		evt := s.logger.Warn()
		if errors.Is(err, ErrNoLiveClient) {
			evt = s.logger.Debug()
		}
		evt.Err(err).Str("registry", registry).Str("op", op).Int("results", len(data)).
			Msg("serving knowledge base results")
		return degrade(data, err)
	}

	data := normalize(raw)
	s.cache.Set(key, slices.Clone(data))
	s.logger.Debug().Str("registry", registry).Str("op", op).Int("results", len(data)).Msg("registry lookup")
	return succeed(data, false)
}

// admit applies the rate limit before a fetch. Live registries consume budget;
// registries without a live client are checked but never recorded.
func (s *Service) admit(f any, registry string) bool {
	if _, unwired := f.(interface{ unwired() }); unwired {
		return s.limiter.CanCall(registry)
	}
	return s.limiter.Acquire(registry)
}

// SearchDiagnosisCodes searches diagnosis codes by free text.
func (s *Service) SearchDiagnosisCodes(ctx context.Context, query string) Result[[]DiagnosisCode] {
	return search(ctx, s, OpDiagnosis, query, s.icd10, NormalizeDiagnosisCodes, s.kb.DiagnosisCodes)
}

// SearchProcedureCodes searches procedure codes by free text.
func (s *Service) SearchProcedureCodes(ctx context.Context, query string) Result[[]ProcedureCode] {
	return search(ctx, s, OpProcedure, query, s.procedures, identity[[]ProcedureCode], s.kb.ProcedureCodes)
}

// SearchTerminology searches clinical terms and abbreviations.
func (s *Service) SearchTerminology(ctx context.Context, query string) Result[[]TerminologyEntry] {
	return search(ctx, s, OpTerminology, query, s.terminology, identity[[]TerminologyEntry], s.kb.Terminology)
}

// LookupProviderByNPI resolves a provider by its 10-digit identifier. A
// registry that reports no match yields a successful result with nil data.
// There is no fallback: a failed registry call is a failed result.
func (s *Service) LookupProviderByNPI(ctx context.Context, npi string) Result[*ProviderRecord] {
	if !ValidNPI(npi) {
		return fail[*ProviderRecord](MsgInvalidNPI, ErrInvalidQuery)
	}

	key := cache.Key(OpProviderNPI, npi)
	if v, hit := s.cache.Get(key); hit {
		if rec, ok := v.(*ProviderRecord); ok {
			return succeed(rec.clone(), true)
		}
	}

	registry := s.npi.Registry().String()
	if !s.admit(s.npi, registry) {
		s.logger.Warn().Str("registry", registry).Msg("registry rate limit exceeded")
		return fail[*ProviderRecord](MsgRateLimited, ErrRateLimited)
	}

	raw, err := s.npi.Fetch(ctx, npi)
	if err != nil {
		s.logger.Warn().Err(err).Str("registry", registry).Str("npi", npi).Msg("provider lookup failed")
		return fail[*ProviderRecord](MsgUnverified, errors.Join(ErrProviderUnverified, err))
	}

	// A registry miss is cached as a nil record.
	rec := NormalizeNPIResponse(raw)
	s.cache.Set(key, rec.clone())
	return succeed(rec, false)
}

// SearchProviders returns the sample provider set for query.
func (s *Service) SearchProviders(_ context.Context, query string) Result[[]ProviderRecord] {
	if strings.TrimSpace(query) == "" {
		return fail[[]ProviderRecord](MsgQueryMissing, ErrInvalidQuery)
	}

	key := cache.Key(OpProviders, query)
	if v, hit := s.cache.Get(key); hit {
		if data, ok := v.([]ProviderRecord); ok {
			return succeed(cloneRecords(data), true)
		}
	}

	data := s.kb.Providers(query)
	s.cache.Set(key, cloneRecords(data))
	return succeed(data, false)
}

// ClearCache empties the cache store.
func (s *Service) ClearCache() {
	size := s.cache.Stats().Size
	s.cache.Clear()
	s.logger.Info().Int("entries", size).Msg("lookup cache cleared")
}

// CacheStats reports cache size and keys.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// RateLimits reports the current window of every registry.
func (s *Service) RateLimits() map[string]ratelimit.WindowState {
	return s.limiter.Snapshot()
}

// Warm runs the diagnosis, procedure and terminology searches for each query
// so later callers are served from the cache. It returns the number of
// successful lookups. Warm-up goes through the normal path, so diagnosis
// lookups consume registry budget.
func (s *Service) Warm(ctx context.Context, queries []string) (int, error) {
	var succeeded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.warmConcurrency)

	count := func(ok bool) {
		if ok {
			succeeded.Add(1)
		}
	}
	for _, q := range queries {
		q := strings.TrimSpace(q)
		if q == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			count(s.SearchDiagnosisCodes(gctx, q).Success)
			count(s.SearchProcedureCodes(gctx, q).Success)
			count(s.SearchTerminology(gctx, q).Success)
			return nil
		})
	}
	err := g.Wait()
	s.logger.Info().Int("queries", len(queries)).Int64("succeeded", succeeded.Load()).Msg("lookup cache warmed")
	return int(succeeded.Load()), err
}

// ValidNPI reports whether s is a 10-digit provider identifier.
func ValidNPI(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
