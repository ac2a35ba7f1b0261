package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/argodata/argo/dbtable"
	"github.com/argodata/argo/rowset"
	"github.com/argodata/argo/store"
	"github.com/cockroachdb/errors"
)

const timestampLayout = "20060102_150405"

// DebugInput holds the exact row sets that were compared.
type DebugInput struct {
	DatasetID  string
	Table      dbtable.Name
	KeyColumns []string
	Source     *rowset.Table
	Warehouse  *rowset.Table
}

func safeTable(t dbtable.Name) string {
	if s := t.SafeString(); s != "" {
		return s
	}
	return "unknown_table"
}

// ExportDebug writes both row sets as CSV alongside an info file under
// debug/<timestamp>/.
func ExportDebug(ctx context.Context, st store.Store, in DebugInput, now time.Time) ([]store.Resource, error) {
	dir := path.Join("debug", now.UTC().Format(timestampLayout))
	base := safeTable(in.Table)
	files := []struct {
		name  string
		write func(*bytes.Buffer) error
	}{
		{name: base + "_source.csv", write: func(b *bytes.Buffer) error { return writeCSV(b, in.Source) }},
		{name: base + "_warehouse.csv", write: func(b *bytes.Buffer) error { return writeCSV(b, in.Warehouse) }},
		{name: base + "_info.txt", write: func(b *bytes.Buffer) error { return writeInfo(b, in, base, now) }},
	}
	var ret []store.Resource
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.write(&buf); err != nil {
			return ret, errors.Wrapf(err, "error rendering %s", f.name)
		}
		res, err := st.Put(ctx, path.Join(dir, f.name), &buf)
		if err != nil {
			return ret, errors.Wrapf(err, "error writing %s", f.name)
		}
		ret = append(ret, res)
	}
	return ret, nil
}

func writeCSV(b *bytes.Buffer, t *rowset.Table) error {
	w := csv.NewWriter(b)
	if t == nil {
		t = &rowset.Table{}
	}
	if err := w.Write(t.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for i, v := range r {
			rec[i] = v.Text()
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeInfo(b *bytes.Buffer, in DebugInput, base string, now time.Time) error {
	p := func(format string, args ...interface{}) {
		fmt.Fprintf(b, format+"\n", args...)
	}
	src, wh := in.Source, in.Warehouse
	if src == nil {
		src = &rowset.Table{}
	}
	if wh == nil {
		wh = &rowset.Table{}
	}
	p("COMPARISON DEBUG INFO")
	p("==================================================")
	p("Generated: %s", now.UTC().Format(time.RFC3339))
	p("Source dataset: %s", in.DatasetID)
	p("Warehouse table: %s", in.Table)
	p("Key columns: %v", in.KeyColumns)
	p("Source shape: %d rows x %d columns", src.Len(), len(src.Columns))
	p("Warehouse shape: %d rows x %d columns", wh.Len(), len(wh.Columns))
	p("")
	p("Source columns: %v", src.ColumnNames())
	p("Warehouse columns: %v", wh.ColumnNames())
	p("")
	p("Key column sample values (first 10):")
	for _, k := range in.KeyColumns {
		for _, side := range []struct {
			label string
			t     *rowset.Table
		}{{"source", src}, {"warehouse", wh}} {
			idx := side.t.ColumnIndex(k)
			if idx == -1 {
				continue
			}
			var vals []string
			for i, r := range side.t.Rows {
				if i == 10 {
					break
				}
				vals = append(vals, r[idx].String())
			}
			p("%s %q: %v", side.label, k, vals)
		}
	}
	p("")
	p("Files: %s_source.csv, %s_warehouse.csv, %s_info.txt", base, base, base)
	return nil
}

// ExportReport writes the report as JSON and as a text document under
// reports/<timestamp>/.
func ExportReport(ctx context.Context, st store.Store, r ComparisonReport) ([]store.Resource, error) {
	dir := path.Join("reports", r.Timestamp.UTC().Format(timestampLayout))
	table, err := dbtable.ParseName(r.Table)
	base := "unknown_table"
	if err == nil {
		base = safeTable(table)
	}

	js, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	var doc bytes.Buffer
	if err := WriteDocument(&doc, r); err != nil {
		return nil, err
	}
	var ret []store.Resource
	for _, f := range []struct {
		name string
		body []byte
	}{
		{name: base + "_report.json", body: js},
		{name: base + "_report.txt", body: doc.Bytes()},
	} {
		res, err := st.Put(ctx, path.Join(dir, f.name), bytes.NewReader(f.body))
		if err != nil {
			return ret, errors.Wrapf(err, "error writing %s", f.name)
		}
		ret = append(ret, res)
	}
	return ret, nil
}
