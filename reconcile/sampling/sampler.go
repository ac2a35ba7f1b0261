// Package sampling chooses which keys of a dataset are compared.
package sampling

import (
	"context"
	"math/rand"
	"sort"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/batch"
	"github.com/argodata/argo/reconcile/querybuild"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

const DefaultSeed int64 = 42

type Method string

const (
	MethodRandom  Method = "random"
	MethodOrdered Method = "ordered"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodRandom, MethodOrdered:
		return m, nil
	}
	return "", errors.Newf("unknown sampling method %q", s)
}

// Sample draws size key tuples from universe using a generator seeded with
// seed. The same universe and seed always yield the same sample, in universe
// order. If the universe is no larger than size, all of it is returned.
func Sample(universe []rowset.KeyTuple, size int, seed int64) []rowset.KeyTuple {
	if size < 0 {
		size = 0
	}
	if len(universe) <= size {
		return append([]rowset.KeyTuple(nil), universe...)
	}
	idxs := rand.New(rand.NewSource(seed)).Perm(len(universe))[:size]
	sort.Ints(idxs)
	ret := make([]rowset.KeyTuple, size)
	for i, idx := range idxs {
		ret[i] = universe[idx]
	}
	return ret
}

// Selection describes the keys chosen and the rows retrieved for them.
type Selection struct {
	Requested Method
	Used      Method
	// FallbackReason is set when random sampling failed and ordered sampling
	// was used instead.
	FallbackReason  string
	SampleSize      int
	KeyUniverseSize int
	Seed            int64
	Keys            []rowset.KeyTuple
	Rows            batch.Result
}

// Degraded is true if the selection only covers a key-ordered prefix.
func (s Selection) Degraded() bool {
	return s.Used == MethodOrdered
}

type Sampler struct {
	source    dbconn.Source
	datasetID string
	processor *batch.Processor

	logger          zerolog.Logger
	seed            int64
	method          Method
	orderedFallback bool
}

type Opt func(*Sampler)

func WithSeed(seed int64) Opt {
	return func(s *Sampler) {
		s.seed = seed
	}
}

func WithMethod(m Method) Opt {
	return func(s *Sampler) {
		s.method = m
	}
}

// WithOrderedFallback controls whether a failed random selection is retried
// once in ordered mode. It is enabled by default.
func WithOrderedFallback(b bool) Opt {
	return func(s *Sampler) {
		s.orderedFallback = b
	}
}

func WithLogger(l zerolog.Logger) Opt {
	return func(s *Sampler) {
		s.logger = l
	}
}

func NewSampler(src dbconn.Source, datasetID string, processor *batch.Processor, opts ...Opt) *Sampler {
	s := &Sampler{
		source:          src,
		datasetID:       datasetID,
		processor:       processor,
		logger:          zerolog.Nop(),
		seed:            DefaultSeed,
		method:          MethodRandom,
		orderedFallback: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select picks up to sampleSize keys and retrieves their rows from both
// systems.
func (s *Sampler) Select(ctx context.Context, cols batch.KeyColumns, sampleSize int) (Selection, error) {
	if sampleSize <= 0 {
		return Selection{}, errors.AssertionFailedf("sample size must be positive, got %d", sampleSize)
	}
	if s.method == MethodOrdered {
		sel, err := s.selectOrdered(ctx, cols, sampleSize)
		sel.Requested = MethodOrdered
		return sel, err
	}

	sel, err := s.selectRandom(ctx, cols, sampleSize)
	if err == nil {
		sel.Requested = MethodRandom
		return sel, nil
	}
	if !s.orderedFallback || ctx.Err() != nil {
		return Selection{}, err
	}
	s.logger.Warn().Err(err).Msgf("random sampling failed, falling back to ordered sampling")
	sel, orderedErr := s.selectOrdered(ctx, cols, sampleSize)
	if orderedErr != nil {
		return Selection{}, errors.WithSecondaryError(
			errors.Wrap(orderedErr, "ordered sampling fallback failed"),
			err,
		)
	}
	sel.Requested = MethodRandom
	sel.FallbackReason = err.Error()
	return sel, nil
}

func (s *Sampler) selectRandom(ctx context.Context, cols batch.KeyColumns, sampleSize int) (Selection, error) {
	universe, err := FetchKeyUniverse(ctx, s.source, s.datasetID, cols.Source)
	if err != nil {
		return Selection{}, err
	}
	keys := Sample(universe, sampleSize, s.seed)
	s.logger.Info().
		Int("universe", len(universe)).
		Int("sample", len(keys)).
		Int64("seed", s.seed).
		Msgf("selected random key sample")
	rows, err := s.processor.FetchAligned(ctx, cols, keys)
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Used:            MethodRandom,
		SampleSize:      sampleSize,
		KeyUniverseSize: len(universe),
		Seed:            s.seed,
		Keys:            keys,
		Rows:            rows,
	}, nil
}

// selectOrdered takes the first sampleSize distinct keys in ascending key
// order from the source, then retrieves them from both systems.
func (s *Sampler) selectOrdered(ctx context.Context, cols batch.KeyColumns, sampleSize int) (Selection, error) {
	d, err := querybuild.LookupDialect(s.source.Dialect())
	if err != nil {
		return Selection{}, err
	}
	t, err := s.source.Execute(
		ctx,
		s.datasetID,
		querybuild.SelectOrderedKeys(d, dbtable.Name{}, cols.Source, sampleSize),
	)
	if err != nil {
		return Selection{}, errors.Wrapf(err, "error selecting ordered keys from dataset %s", s.datasetID)
	}
	if t.Len() == 0 {
		return Selection{}, errors.Newf("no keys returned from dataset %s", s.datasetID)
	}
	keys, err := keyTuples(t, cols.Source)
	if err != nil {
		return Selection{}, err
	}
	s.logger.Info().Int("sample", len(keys)).Msgf("selected ordered key sample")
	rows, err := s.processor.FetchAligned(ctx, cols, keys)
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Used:       MethodOrdered,
		SampleSize: sampleSize,
		Keys:       keys,
		Rows:       rows,
	}, nil
}
