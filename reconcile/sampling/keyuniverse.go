package sampling

import (
	"context"

	"github.com/argodata/argo/dbconn"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

// ErrKeyUniverseUnavailable marks failures to enumerate the distinct keys of
// a dataset.
var ErrKeyUniverseUnavailable = errors.New("key universe unavailable")

// FetchKeyUniverse returns every distinct combination of the given native key
// columns present in the source dataset.
func FetchKeyUniverse(
	ctx context.Context, src dbconn.Source, datasetID string, keyColumns []string,
) ([]rowset.KeyTuple, error) {
	t, err := src.DistinctKeys(ctx, datasetID, keyColumns)
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "could not retrieve unique keys from dataset %s", datasetID),
			ErrKeyUniverseUnavailable,
		)
	}
	if t.Len() == 0 {
		return nil, errors.Mark(
			errors.Newf("dataset %s returned no unique keys", datasetID),
			ErrKeyUniverseUnavailable,
		)
	}
	keys, err := keyTuples(t, keyColumns)
	if err != nil {
		return nil, errors.Mark(err, ErrKeyUniverseUnavailable)
	}
	return keys, nil
}

// keyTuples reads key tuples from a table selecting exactly the key columns,
// matching by name where possible and by position otherwise.
func keyTuples(t *rowset.Table, keyColumns []string) ([]rowset.KeyTuple, error) {
	if keys, err := t.Keys(keyColumns); err == nil {
		return keys, nil
	}
	if len(t.Columns) != len(keyColumns) {
		return nil, errors.Newf(
			"expected %d key columns, got %d (%v)", len(keyColumns), len(t.Columns), t.ColumnNames(),
		)
	}
	positions := make([]int, len(keyColumns))
	for i := range positions {
		positions[i] = i
	}
	ret := make([]rowset.KeyTuple, len(t.Rows))
	for i, r := range t.Rows {
		ret[i] = t.Key(r, positions)
	}
	return ret, nil
}
