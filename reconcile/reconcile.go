// Package reconcile compares a source dataset with its warehouse replica by
// sampling rows from both.
package reconcile

import (
	"context"
	"math"
	"time"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/batch"
	"github.com/argodata/argo/reconcile/colmap"
	"github.com/argodata/argo/reconcile/datadiff"
	"github.com/argodata/argo/reconcile/inconsistency"
	"github.com/argodata/argo/reconcile/report"
	"github.com/argodata/argo/reconcile/rowcount"
	"github.com/argodata/argo/reconcile/sampling"
	"github.com/argodata/argo/store"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Target names the dataset, the warehouse table it was replicated to, and
// the columns identifying a row in both.
type Target struct {
	DatasetID  string
	Table      dbtable.Name
	KeyColumns []string
}

type Opt func(*opts)

type opts struct {
	session         Session
	matcher         colmap.Matcher
	transformNames  bool
	filter          colmap.FilterConfig
	policy          rowcount.Policy
	confidence      float64
	margin          float64
	sampleSize      int
	seed            int64
	method          sampling.Method
	orderedFallback bool
	batchSize       int
	batchesPerSec   float64
	emptyEqualsNull bool
	debugStore      store.Store
}

func WithSession(s Session) Opt {
	return func(o *opts) {
		o.session = s
	}
}

func WithMatcher(m colmap.Matcher) Opt {
	return func(o *opts) {
		o.matcher = m
	}
}

func WithTransformNames(b bool) Opt {
	return func(o *opts) {
		o.transformNames = b
	}
}

func WithColumnFilter(f colmap.FilterConfig) Opt {
	return func(o *opts) {
		o.filter = f
	}
}

func WithRowCountPolicy(p rowcount.Policy) Opt {
	return func(o *opts) {
		o.policy = p
	}
}

func WithConfidence(confidence, margin float64) Opt {
	return func(o *opts) {
		o.confidence = confidence
		o.margin = margin
	}
}

// WithSampleSize overrides the computed sample size. Zero computes it from
// the source row count.
func WithSampleSize(n int) Opt {
	return func(o *opts) {
		o.sampleSize = n
	}
}

func WithSeed(seed int64) Opt {
	return func(o *opts) {
		o.seed = seed
	}
}

func WithSamplingMethod(m sampling.Method, orderedFallback bool) Opt {
	return func(o *opts) {
		o.method = m
		o.orderedFallback = orderedFallback
	}
}

func WithBatchSize(n int) Opt {
	return func(o *opts) {
		o.batchSize = n
	}
}

func WithBatchesPerSecond(n float64) Opt {
	return func(o *opts) {
		o.batchesPerSec = n
	}
}

func WithEmptyEqualsNull(b bool) Opt {
	return func(o *opts) {
		o.emptyEqualsNull = b
	}
}

// WithDebugStore exports the compared row sets to s.
func WithDebugStore(s store.Store) Opt {
	return func(o *opts) {
		o.debugStore = s
	}
}

var comparisonsRunning = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "argo",
	Subsystem: "reconcile",
	Name:      "comparisons_running",
	Help:      "Number of comparisons that are running.",
})

// unknownPopulation sizes the sample when the source row count could not be
// determined.
const unknownPopulation = math.MaxInt32

// Reconcile compares the schema, row count and a sample of rows of a dataset
// and its warehouse replica. Failures are recorded in the returned report;
// an error is only returned for an invalid target.
func Reconcile(
	ctx context.Context,
	conns dbconn.Conns,
	logger zerolog.Logger,
	reporter inconsistency.Reporter,
	target Target,
	inOpts ...Opt,
) (report.ComparisonReport, error) {
	o := opts{
		matcher:         colmap.ExactMatch{},
		transformNames:  true,
		filter:          colmap.DefaultFilterConfig(),
		policy:          rowcount.DefaultPolicy(),
		confidence:      sampling.DefaultConfidence,
		margin:          sampling.DefaultMargin,
		seed:            sampling.DefaultSeed,
		method:          sampling.MethodRandom,
		orderedFallback: true,
		batchSize:       batch.DefaultBatchSize,
		emptyEqualsNull: true,
	}
	for _, applyOpt := range inOpts {
		applyOpt(&o)
	}
	if o.session == (Session{}) {
		o.session = NewSession()
	}
	if target.DatasetID == "" || target.Table.Table == "" {
		return report.ComparisonReport{}, errors.AssertionFailedf("target must name a dataset and a table")
	}

	comparisonsRunning.Inc()
	defer comparisonsRunning.Dec()

	logger = logger.With().
		Str("session", o.session.ID.String()).
		Str("dataset_id", target.DatasetID).
		Str("table", target.Table.String()).
		Logger()
	c := &comparison{
		opts:     o,
		conns:    conns,
		logger:   logger,
		reporter: reporter,
		target:   target,
		ref:      inconsistency.Target{DatasetID: target.DatasetID, Table: target.Table},
		b: report.NewBuilder(report.Header{
			SessionID:      o.session.ID.String(),
			SourceID:       string(conns.Source.ID()),
			DatasetID:      target.DatasetID,
			WarehouseID:    string(conns.Warehouse.ID()),
			Table:          target.Table.String(),
			KeyColumns:     target.KeyColumns,
			Timestamp:      o.session.Started,
			TransformNames: o.transformNames,
		}),
	}
	c.run(ctx)
	r := c.b.Build()
	ev := logger.Info()
	if !r.OverallMatch {
		ev = logger.Warn()
	}
	ev.Bool("overall_match", r.OverallMatch).Int("errors", len(r.Errors)).Msgf("comparison complete")
	return r, nil
}

type comparison struct {
	opts
	conns    dbconn.Conns
	logger   zerolog.Logger
	reporter inconsistency.Reporter
	target   Target
	ref      inconsistency.Target
	b        *report.Builder
}

func (c *comparison) fail(section string, err error) {
	c.logger.Error().Err(err).Str("section", section).Msgf("comparison step failed")
	c.b.AddError(section, err)
}

func (c *comparison) run(ctx context.Context) {
	schema, ok := c.compareSchema(ctx)
	if !ok {
		return
	}
	keys, err := schema.RequireKeys(c.target.KeyColumns)
	if err != nil {
		c.fail(report.SectionSchema, err)
		return
	}

	population := int64(unknownPopulation)
	counts, err := rowcount.Compare(ctx, c.conns, c.target.DatasetID, c.target.Table, c.policy)
	if err != nil {
		c.fail(report.SectionRowCount, err)
	} else {
		c.b.SetRowCount(counts)
		population = counts.SourceCount
		if !counts.Match {
			c.reporter.Report(inconsistency.RowCountMismatch{
				Target:         c.ref,
				SourceCount:    counts.SourceCount,
				WarehouseCount: counts.WarehouseCount,
				Negligible:     counts.Analysis.IsNegligible,
				Reason:         counts.Analysis.Reason,
			})
		}
	}
	if ctx.Err() != nil {
		c.fail(report.SectionSampling, ctx.Err())
		return
	}
	if population == 0 {
		c.logger.Info().Msgf("source dataset is empty, skipping data comparison")
		c.b.SetData(datadiff.Result{KeyColumns: keys})
		return
	}

	sel, ok := c.sample(ctx, schema, keys, population)
	if !ok {
		return
	}
	c.compareData(ctx, schema, keys, sel)
}

func (c *comparison) compareSchema(ctx context.Context) (colmap.Result, bool) {
	srcCols, err := c.conns.Source.Schema(ctx, c.target.DatasetID)
	if err != nil {
		c.fail(report.SectionSchema, err)
		return colmap.Result{}, false
	}
	whCols, err := c.conns.Warehouse.Columns(ctx, c.target.Table)
	if err != nil {
		c.fail(report.SectionSchema, err)
		return colmap.Result{}, false
	}
	schema, err := colmap.Reconcile(
		srcCols,
		whCols,
		colmap.WithMatcher(c.matcher),
		colmap.WithTransformNames(c.transformNames),
	)
	if err != nil {
		c.fail(report.SectionSchema, err)
		return colmap.Result{}, false
	}
	c.b.SetSchema(schema)

	srcTypes := make(map[string]string, len(srcCols))
	for _, col := range srcCols {
		srcTypes[col.Name] = col.Type
	}
	for _, n := range schema.MissingInWarehouse {
		native := schema.Mapping.SourceName(n)
		c.reporter.Report(inconsistency.MissingColumn{Target: c.ref, Normalized: n, Column: native, Type: srcTypes[native]})
	}
	whTypes := make(map[string]string, len(whCols))
	for _, col := range whCols {
		whTypes[col.Name] = col.Type
	}
	for _, n := range schema.ExtraInWarehouse {
		native := schema.Mapping.WarehouseName(n)
		c.reporter.Report(inconsistency.ExtraneousColumn{Target: c.ref, Normalized: n, Column: native, Type: whTypes[native]})
	}
	for _, m := range schema.TypeMismatches {
		c.reporter.Report(inconsistency.MismatchingColumnType{
			Target:          c.ref,
			Normalized:      m.Column,
			SourceColumn:    schema.Mapping.SourceName(m.Column),
			SourceType:      m.SourceType,
			WarehouseColumn: schema.Mapping.WarehouseName(m.Column),
			WarehouseType:   m.WarehouseType,
		})
	}
	for _, matches := range [][]colmap.FuzzyMatch{schema.FuzzyMatches, schema.Suggestions} {
		for _, m := range matches {
			c.reporter.Report(inconsistency.FuzzyColumnMatch{
				Target:          c.ref,
				SourceColumn:    m.Source.Name,
				WarehouseColumn: m.Warehouse.Name,
				Confidence:      m.Confidence,
				Applied:         m.Applied,
			})
		}
	}
	for _, col := range schema.Collisions {
		c.logger.Warn().
			Str("system", col.System).
			Str("normalized", col.Normalized).
			Strs("columns", col.Natives).
			Msgf("columns normalize to the same name, only the first is compared")
	}
	return schema, true
}

func (c *comparison) sample(
	ctx context.Context, schema colmap.Result, keys []string, population int64,
) (sampling.Selection, bool) {
	size := c.sampleSize
	if size <= 0 {
		size = sampling.SampleSize(int(population), c.confidence, c.margin)
	}
	c.logger.Info().
		Int64("population", population).
		Int("sample_size", size).
		Msgf("sampling rows")

	processor, err := batch.NewProcessor(
		c.conns,
		c.target.DatasetID,
		c.target.Table,
		batch.WithBatchSize(c.batchSize),
		batch.WithBatchesPerSecond(c.batchesPerSec),
		batch.WithLogger(c.logger),
	)
	if err != nil {
		c.fail(report.SectionSampling, err)
		return sampling.Selection{}, false
	}
	sampler := sampling.NewSampler(
		c.conns.Source,
		c.target.DatasetID,
		processor,
		sampling.WithSeed(c.seed),
		sampling.WithMethod(c.method),
		sampling.WithOrderedFallback(c.orderedFallback),
		sampling.WithLogger(c.logger),
	)
	sel, err := sampler.Select(ctx, batch.KeyColumns{
		Source:    schema.Mapping.SourceNames(keys),
		Warehouse: schema.Mapping.WarehouseNames(keys),
	}, size)
	if err != nil {
		c.fail(report.SectionSampling, err)
		return sampling.Selection{}, false
	}
	if sel.Degraded() && sel.Requested != sel.Used {
		c.reporter.Report(inconsistency.StatusReport{
			Info: "random sampling failed, compared an ordered sample instead: " + sel.FallbackReason,
		})
	}
	c.b.SetSampling(sel)
	return sel, true
}

func (c *comparison) compareData(
	ctx context.Context, schema colmap.Result, keys []string, sel sampling.Selection,
) {
	src := sel.Rows.Source.WithColumnNames(func(n string) string {
		if norm, ok := schema.Mapping.NormalizedSource(n); ok {
			return norm
		}
		return schema.NormalizeName(n)
	})
	wh := sel.Rows.Warehouse.WithColumnNames(func(n string) string {
		if norm, ok := schema.Mapping.NormalizedWarehouse(n); ok {
			return norm
		}
		return schema.NormalizeName(n)
	})

	if c.debugStore != nil {
		res, err := report.ExportDebug(ctx, c.debugStore, report.DebugInput{
			DatasetID:  c.target.DatasetID,
			Table:      c.target.Table,
			KeyColumns: keys,
			Source:     src,
			Warehouse:  wh,
		}, time.Now())
		if err != nil {
			c.logger.Warn().Err(err).Msgf("failed to export debug tables")
		}
		for _, r := range res {
			c.logger.Info().Str("location", r.Location()).Msgf("exported debug file")
		}
	}

	cols, err := c.filter.Apply(schema.Common, keys...)
	if err != nil {
		c.fail(report.SectionData, errors.Wrap(err, "invalid column filter"))
		return
	}
	diff, err := datadiff.Compare(
		src,
		wh,
		keys,
		datadiff.WithColumns(cols),
		datadiff.WithEmptyEqualsNull(c.emptyEqualsNull),
		datadiff.WithLogger(c.logger),
		datadiff.WithReporter(c.reporter, c.ref),
	)
	if err != nil {
		c.fail(report.SectionData, err)
		return
	}
	c.b.SetData(diff)
}
