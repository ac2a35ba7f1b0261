package dbconn

import (
	"context"
	"sync"

	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/reconcile/querybuild"
	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
)

// FakeSource is an in-memory Source for tests. Execute delegates to
// ExecuteFn, and every query is recorded.
type FakeSource struct {
	id ID

	ExecuteFn      func(ctx context.Context, datasetID string, query string) (*rowset.Table, error)
	DistinctKeysFn func(ctx context.Context, datasetID string, keyColumns []string) (*rowset.Table, error)
	SchemaColumns  []rowset.Column
	SchemaErr      error

	mu      sync.Mutex
	queries []string
}

var _ Source = (*FakeSource)(nil)

func NewFakeSource(id ID) *FakeSource {
	return &FakeSource{id: id}
}

func (f *FakeSource) ID() ID {
	return f.id
}

func (f *FakeSource) Dialect() string {
	return querybuild.Domo.Name()
}

func (f *FakeSource) Execute(ctx context.Context, datasetID string, query string) (*rowset.Table, error) {
	f.record(query)
	if f.ExecuteFn == nil {
		return nil, errors.Newf("fake source %s has no data", f.id)
	}
	return f.ExecuteFn(ctx, datasetID, query)
}

func (f *FakeSource) DistinctKeys(
	ctx context.Context, datasetID string, keyColumns []string,
) (*rowset.Table, error) {
	if f.DistinctKeysFn != nil {
		return f.DistinctKeysFn(ctx, datasetID, keyColumns)
	}
	return f.Execute(
		ctx,
		datasetID,
		querybuild.SelectDistinct(querybuild.Domo, dbtable.Name{}, keyColumns),
	)
}

func (f *FakeSource) Schema(ctx context.Context, datasetID string) ([]rowset.Column, error) {
	return f.SchemaColumns, f.SchemaErr
}

func (f *FakeSource) Close(ctx context.Context) error {
	return nil
}

func (f *FakeSource) record(q string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
}

// Queries returns every query executed so far.
func (f *FakeSource) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// FakeWarehouse is an in-memory Warehouse for tests.
type FakeWarehouse struct {
	id ID

	ExecuteFn    func(ctx context.Context, query string) (*rowset.Table, error)
	TableColumns []rowset.Column
	ColumnsErr   error

	mu      sync.Mutex
	queries []string
}

var _ Warehouse = (*FakeWarehouse)(nil)

func NewFakeWarehouse(id ID) *FakeWarehouse {
	return &FakeWarehouse{id: id}
}

func (f *FakeWarehouse) ID() ID {
	return f.id
}

func (f *FakeWarehouse) Dialect() string {
	return querybuild.Snowflake.Name()
}

func (f *FakeWarehouse) Execute(ctx context.Context, query string) (*rowset.Table, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.ExecuteFn == nil {
		return nil, errors.Newf("fake warehouse %s has no data", f.id)
	}
	return f.ExecuteFn(ctx, query)
}

func (f *FakeWarehouse) Columns(ctx context.Context, table dbtable.Name) ([]rowset.Column, error) {
	return f.TableColumns, f.ColumnsErr
}

func (f *FakeWarehouse) Close(ctx context.Context) error {
	return nil
}

func (f *FakeWarehouse) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}
