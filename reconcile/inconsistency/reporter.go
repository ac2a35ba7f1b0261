package inconsistency

import (
	"fmt"
	"sync"

	"github.com/argodata/argo/rowset"
	"github.com/rs/zerolog"
)

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

type StatusReport struct {
	Info string
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case MissingColumn:
		l.Warn().
			Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Str("column", obj.Column).
			Str("type", obj.Type).
			Msgf("column missing from warehouse")
	case ExtraneousColumn:
		l.Warn().
			Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Str("column", obj.Column).
			Str("type", obj.Type).
			Msgf("extra column in warehouse")
	case MismatchingColumnType:
		l.Warn().
			Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Str("column", obj.Normalized).
			Str("source_type", obj.SourceType).
			Str("warehouse_type", obj.WarehouseType).
			Msgf("mismatching column type")
	case FuzzyColumnMatch:
		msg := "suggested fuzzy column match"
		if obj.Applied {
			msg = "applied fuzzy column match"
		}
		l.Info().
			Str("dataset_id", obj.DatasetID).
			Str("source_column", obj.SourceColumn).
			Str("warehouse_column", obj.WarehouseColumn).
			Float64("confidence", obj.Confidence).
			Msg(msg)
	case RowCountMismatch:
		ev := l.Warn()
		if obj.Negligible {
			ev = l.Info()
		}
		ev.Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Int64("source_count", obj.SourceCount).
			Int64("warehouse_count", obj.WarehouseCount).
			Str("reason", obj.Reason).
			Msgf("row count mismatch")
	case StatusReport:
		l.Info().Msg(obj.Info)
	case MismatchingRow:
		sourceVals := zerolog.Dict()
		warehouseVals := zerolog.Dict()
		for i, col := range obj.MismatchingColumns {
			sourceVals = sourceVals.Str(col, obj.SourceVals[i].String())
			warehouseVals = warehouseVals.Str(col, obj.WarehouseVals[i].String())
		}
		l.Warn().
			Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Dict("source_values", sourceVals).
			Dict("warehouse_values", warehouseVals).
			Strs("key", reportableKey(obj.KeyValues)).
			Msgf("mismatching row value")
	case MissingRow:
		l.Warn().
			Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Strs("key", reportableKey(obj.KeyValues)).
			Msgf("missing row")
	case ExtraneousRow:
		l.Warn().
			Str("dataset_id", obj.DatasetID).
			Str("table", obj.Table.String()).
			Strs("key", reportableKey(obj.KeyValues)).
			Msgf("extraneous row")
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func reportableKey(k rowset.KeyTuple) []string {
	return k.Strings()
}

func (l LogReporter) Close() {
}

// CollectingReporter keeps every reported object in memory.
type CollectingReporter struct {
	mu      sync.Mutex
	objects []ReportableObject
}

func (c *CollectingReporter) Report(obj ReportableObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = append(c.objects, obj)
}

func (c *CollectingReporter) Close() {
}

func (c *CollectingReporter) Objects() []ReportableObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ReportableObject(nil), c.objects...)
}
