// Package batch retrieves the rows identified by a set of sampled keys from
// both systems, a bounded batch at a time.
package batch

import (
	"context"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/querybuild"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultBatchSize = 50

// lowRetrievalRatio is the fraction of expected rows below which a system
// is flagged as under-retrieved.
const lowRetrievalRatio = 0.8

var (
	ErrFirstBatchEmpty = errors.New("first batch returned no data")
	ErrBatchEmpty      = errors.New("batch returned no data from either system")
)

var (
	batchesMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "argo",
		Subsystem: "reconcile",
		Name:      "batches_fetched",
		Help:      "Number of key batches fetched, by system.",
	}, []string{"system"})
	rowsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "argo",
		Subsystem: "reconcile",
		Name:      "rows_retrieved",
		Help:      "Number of sampled rows retrieved, by system.",
	}, []string{"system"})
)

func init() {
	for _, s := range []string{"source", "warehouse"} {
		batchesMetric.WithLabelValues(s)
		rowsMetric.WithLabelValues(s)
	}
}

// KeyColumns holds the native key column names of each system, in key order.
type KeyColumns struct {
	Source    []string
	Warehouse []string
}

type Count struct {
	Batch         int `json:"batch"`
	Keys          int `json:"keys"`
	SourceRows    int `json:"source_rows"`
	WarehouseRows int `json:"warehouse_rows"`
}

type Result struct {
	Source    *rowset.Table
	Warehouse *rowset.Table

	Batches     int
	BatchCounts []Count
	// OneSided lists batches for which only one system returned rows.
	OneSided []int

	SourceRows    int
	WarehouseRows int
	// Expected is the number of keys requested.
	Expected int
}

// LowRetrieval reports whether either system returned fewer than 80% of the
// expected rows.
func (r Result) LowRetrieval() (source bool, warehouse bool) {
	threshold := float64(r.Expected) * lowRetrievalRatio
	return float64(r.SourceRows) < threshold, float64(r.WarehouseRows) < threshold
}

type Processor struct {
	conns     dbconn.Conns
	datasetID string
	table     dbtable.Name

	srcDialect querybuild.Dialect
	whDialect  querybuild.Dialect

	logger    zerolog.Logger
	batchSize int
	limiter   *rate.Limiter
}

type Opt func(*Processor)

func WithBatchSize(n int) Opt {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithBatchesPerSecond throttles batch retrieval. Zero disables throttling.
func WithBatchesPerSecond(n float64) Opt {
	return func(p *Processor) {
		if n > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

func WithLogger(l zerolog.Logger) Opt {
	return func(p *Processor) {
		p.logger = l
	}
}

func NewProcessor(
	conns dbconn.Conns, datasetID string, table dbtable.Name, opts ...Opt,
) (*Processor, error) {
	srcDialect, err := querybuild.LookupDialect(conns.Source.Dialect())
	if err != nil {
		return nil, err
	}
	whDialect, err := querybuild.LookupDialect(conns.Warehouse.Dialect())
	if err != nil {
		return nil, err
	}
	p := &Processor{
		conns:      conns,
		datasetID:  datasetID,
		table:      table,
		srcDialect: srcDialect,
		whDialect:  whDialect,
		logger:     zerolog.Nop(),
		batchSize:  DefaultBatchSize,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Processor) BatchSize() int {
	return p.batchSize
}

// FetchAligned retrieves every row matching keys from the source and then
// the warehouse, one batch at a time. Results are concatenated in batch
// order.
//
// If the first batch returns no rows from either system, or a later batch
// returns no rows from both, retrieval stops with an error. Any error
// discards all results.
func (p *Processor) FetchAligned(
	ctx context.Context, cols KeyColumns, keys []rowset.KeyTuple,
) (Result, error) {
	if len(cols.Source) == 0 || len(cols.Source) != len(cols.Warehouse) {
		return Result{}, errors.AssertionFailedf(
			"mismatched key columns: source %v, warehouse %v", cols.Source, cols.Warehouse,
		)
	}
	if len(keys) == 0 {
		return Result{}, errors.AssertionFailedf("no keys to fetch")
	}
	res := Result{
		Source:    &rowset.Table{},
		Warehouse: &rowset.Table{},
		Expected:  len(keys),
	}
	total := (len(keys) + p.batchSize - 1) / p.batchSize
	for start := 0; start < len(keys); start += p.batchSize {
		end := start + p.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		batchNum := start/p.batchSize + 1
		logger := p.logger.With().Int("batch", batchNum).Int("batches", total).Logger()
		if err := p.limiter.Wait(ctx); err != nil {
			return Result{}, err
		}

		srcRows, whRows, err := p.fetchBatch(ctx, logger, batchNum, cols, keys[start:end])
		if err != nil {
			return Result{}, err
		}
		hasSrc, hasWh := srcRows.Len() > 0, whRows.Len() > 0
		if batchNum == 1 && (!hasSrc || !hasWh) {
			which := "either source or warehouse"
			switch {
			case hasWh:
				which = "source"
			case hasSrc:
				which = "warehouse"
			}
			logger.Error().Msgf("first batch returned no data from %s", which)
			return Result{}, errors.Mark(
				errors.Newf("FIRST BATCH FAILURE - no data returned from %s", which),
				ErrFirstBatchEmpty,
			)
		}
		if !hasSrc && !hasWh {
			logger.Error().Msgf("batch returned no data from either system")
			return Result{}, errors.Mark(
				errors.Newf("batch %d returned no data from either source or warehouse", batchNum),
				ErrBatchEmpty,
			)
		}
		if !hasSrc || !hasWh {
			logger.Warn().
				Int("source_rows", srcRows.Len()).
				Int("warehouse_rows", whRows.Len()).
				Msgf("batch returned data from only one system")
			res.OneSided = append(res.OneSided, batchNum)
		}
		if err := res.Source.Append(srcRows); err != nil {
			return Result{}, errors.Wrapf(err, "error combining source batch %d", batchNum)
		}
		if err := res.Warehouse.Append(whRows); err != nil {
			return Result{}, errors.Wrapf(err, "error combining warehouse batch %d", batchNum)
		}
		res.Batches++
		res.BatchCounts = append(res.BatchCounts, Count{
			Batch:         batchNum,
			Keys:          end - start,
			SourceRows:    srcRows.Len(),
			WarehouseRows: whRows.Len(),
		})
		res.SourceRows += srcRows.Len()
		res.WarehouseRows += whRows.Len()
		logger.Debug().
			Int("source_rows", srcRows.Len()).
			Int("warehouse_rows", whRows.Len()).
			Msgf("batch complete")
	}

	lowSrc, lowWh := res.LowRetrieval()
	if lowSrc {
		p.logger.Warn().Int("rows", res.SourceRows).Int("expected", res.Expected).
			Msgf("source returned fewer rows than expected")
	}
	if lowWh {
		p.logger.Warn().Int("rows", res.WarehouseRows).Int("expected", res.Expected).
			Msgf("warehouse returned fewer rows than expected")
	}
	return res, nil
}

func (p *Processor) fetchBatch(
	ctx context.Context,
	logger zerolog.Logger,
	batchNum int,
	cols KeyColumns,
	keys []rowset.KeyTuple,
) (*rowset.Table, *rowset.Table, error) {
	srcFilter, err := querybuild.BuildFilter(p.srcDialect, cols.Source, keys)
	if err != nil {
		return nil, nil, err
	}
	whFilter, err := querybuild.BuildFilter(p.whDialect, cols.Warehouse, keys)
	if err != nil {
		return nil, nil, err
	}

	logger.Debug().Int("keys", len(keys)).Msgf("fetching batch from source")
	srcRows, err := p.conns.Source.Execute(
		ctx,
		p.datasetID,
		querybuild.SelectWhere(p.srcDialect, dbtable.Name{}, srcFilter),
	)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error executing source query in batch %d", batchNum)
	}
	batchesMetric.WithLabelValues("source").Inc()
	rowsMetric.WithLabelValues("source").Add(float64(srcRows.Len()))

	logger.Debug().Int("keys", len(keys)).Msgf("fetching batch from warehouse")
	whRows, err := p.conns.Warehouse.Execute(
		ctx,
		querybuild.SelectWhere(p.whDialect, p.table, whFilter),
	)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error executing warehouse query in batch %d", batchNum)
	}
	batchesMetric.WithLabelValues("warehouse").Inc()
	rowsMetric.WithLabelValues("warehouse").Add(float64(whRows.Len()))
	return srcRows, whRows, nil
}
