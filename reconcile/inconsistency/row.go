package inconsistency

import (
	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/rowset"
)

type ReportableObject interface{}

// Target identifies the pair of objects being reconciled.
type Target struct {
	DatasetID string
	Table     dbtable.Name
}

type MissingRow struct {
	Target

	KeyColumns []string
	KeyValues  rowset.KeyTuple

	Columns []string
	Values  rowset.Row
}

type ExtraneousRow struct {
	Target

	KeyColumns []string
	KeyValues  rowset.KeyTuple
}

type MismatchingRow struct {
	Target

	KeyColumns []string
	KeyValues  rowset.KeyTuple

	MismatchingColumns []string
	SourceVals         []rowset.Value
	WarehouseVals      []rowset.Value
}
