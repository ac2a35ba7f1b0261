package colmap

import (
	"testing"

	"github.com/argodata/argo/rowset"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected string
	}{
		{in: "Sales $", expected: "SALES"},
		{in: "Product Name", expected: "PRODUCT_NAME"},
		{in: "Order No.", expected: "ORDER_NUMBER"},
		{in: "Order No. 5", expected: "ORDER_NUMBER_5"},
		{in: "Item #", expected: "ITEM_NUMBER"},
		{in: "Parts & Labour", expected: "PARTS_AND_LABOUR"},
		{in: "Rate (%)", expected: "RATE"},
		{in: "first-name/last.name?", expected: "FIRST_NAME_LAST_NAME"},
		{in: "  __Leading__ ", expected: "LEADING"},
		{in: "ALREADY_NORMAL", expected: "ALREADY_NORMAL"},
		{in: "Casino", expected: "CASINO"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			n := Normalize(tc.in)
			require.Equal(t, tc.expected, n)
			require.Equal(t, n, Normalize(n))
		})
	}
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("ORDER_ID", "ORDER_ID"))
	require.Equal(t, 0.0, Similarity("", ""))
	require.InDelta(t, 1-3.0/7, Similarity("KITTEN", "SITTING"), 1e-9)
}

func cols(nameTypes ...string) []rowset.Column {
	var ret []rowset.Column
	for i := 0; i < len(nameTypes); i += 2 {
		ret = append(ret, rowset.Column{Name: nameTypes[i], Type: nameTypes[i+1]})
	}
	return ret
}

func TestReconcileExact(t *testing.T) {
	res, err := Reconcile(
		cols("Order ID", "LONG", "Product Name", "STRING", "Sales $", "DOUBLE", "Region", "STRING"),
		cols("ORDER_ID", "NUMBER(38,0)", "PRODUCT_NAME", "VARCHAR(16777216)", "SALES", "FLOAT", "LOADED_AT", "TIMESTAMP_NTZ"),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"ORDER_ID", "PRODUCT_NAME", "SALES"}, res.Common)
	require.Equal(t, []string{"REGION"}, res.MissingInWarehouse)
	require.Equal(t, []string{"LOADED_AT"}, res.ExtraInWarehouse)
	require.Empty(t, res.TypeMismatches)
	require.False(t, res.SchemaMatch())
	require.Equal(t, 4, res.SourceColumnCount)
	require.Equal(t, 4, res.WarehouseColumnCount)

	require.Equal(t, "Order ID", res.Mapping.SourceName("ORDER_ID"))
	require.Equal(t, "Sales $", res.Mapping.SourceName("SALES"))
	require.Equal(t, "SALES", res.Mapping.WarehouseName("SALES"))
	require.Equal(t, "UNKNOWN", res.Mapping.SourceName("UNKNOWN"))
	require.Equal(t, []string{"Order ID", "Product Name"}, res.Mapping.SourceNames([]string{"ORDER_ID", "PRODUCT_NAME"}))
	n, ok := res.Mapping.NormalizedSource("Product Name")
	require.True(t, ok)
	require.Equal(t, "PRODUCT_NAME", n)
}

func TestReconcileTypes(t *testing.T) {
	res, err := Reconcile(
		cols("id", "LONG", "amount", "STRING", "shape", "GEOGRAPHY"),
		cols("ID", "NUMBER", "AMOUNT", "FLOAT", "SHAPE", "VARIANT"),
	)
	require.NoError(t, err)
	require.Equal(t, []TypeMismatch{
		{Column: "AMOUNT", SourceType: "STRING", WarehouseType: "FLOAT"},
	}, res.TypeMismatches)
	require.False(t, res.SchemaMatch())

	res, err = Reconcile(cols("id", "LONG"), cols("ID", "NUMBER(38,0)"))
	require.NoError(t, err)
	require.True(t, res.SchemaMatch())
}

func TestReconcileFuzzy(t *testing.T) {
	src := cols("Customer Name", "STRING", "id", "LONG", "Amount", "DOUBLE")
	wh := cols("CUSTOMR_NAME", "TEXT", "ID", "NUMBER", "AMOUNTS", "BOOLEAN")

	t.Run("exact leaves names unmatched", func(t *testing.T) {
		res, err := Reconcile(src, wh)
		require.NoError(t, err)
		require.Equal(t, []string{"ID"}, res.Common)
		require.Equal(t, []string{"CUSTOMER_NAME", "AMOUNT"}, res.MissingInWarehouse)
		require.Empty(t, res.FuzzyMatches)
	})

	t.Run("fuzzy applies compatible matches", func(t *testing.T) {
		res, err := Reconcile(src, wh, WithMatcher(DefaultFuzzyMatch()))
		require.NoError(t, err)
		require.Equal(t, []string{"CUSTOMER_NAME", "ID"}, res.Common)
		require.Equal(t, []string{"AMOUNT"}, res.MissingInWarehouse)
		require.Equal(t, []string{"AMOUNTS"}, res.ExtraInWarehouse)
		require.Equal(t, "CUSTOMR_NAME", res.Mapping.WarehouseName("CUSTOMER_NAME"))

		require.Len(t, res.FuzzyMatches, 1)
		require.Equal(t, "CUSTOMR_NAME", res.FuzzyMatches[0].Warehouse.Name)
		require.InDelta(t, 1-1.0/13, res.FuzzyMatches[0].Confidence, 1e-9)

		require.Len(t, res.Suggestions, 1)
		require.Equal(t, "Amount", res.Suggestions[0].Source.Name)
		require.False(t, res.Suggestions[0].Applied)

		require.Equal(t, MappingStats{Total: 2, Successful: 1, HighConfidence: 1, SuccessRate: 0.5}, res.Stats)
	})
}

func TestReconcileCollisions(t *testing.T) {
	res, err := Reconcile(cols("Order ID", "LONG", "order_id", "LONG"), cols("ORDER_ID", "NUMBER"))
	require.NoError(t, err)
	require.Equal(t, []Collision{
		{System: SystemSource, Normalized: "ORDER_ID", Natives: []string{"Order ID", "order_id"}},
	}, res.Collisions)
	require.Equal(t, "Order ID", res.Mapping.SourceName("ORDER_ID"))
}

func TestReconcileFoldCase(t *testing.T) {
	res, err := Reconcile(
		cols("Product Name", "STRING"),
		cols("PRODUCT NAME", "TEXT"),
		WithTransformNames(false),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"PRODUCT NAME"}, res.Common)
	keys, err := res.RequireKeys([]string{"product name"})
	require.NoError(t, err)
	require.Equal(t, []string{"PRODUCT NAME"}, keys)
}

func TestReconcileErrors(t *testing.T) {
	_, err := Reconcile(nil, cols("ID", "NUMBER"))
	require.EqualError(t, err, "source schema has no columns")
	_, err = Reconcile(cols("id", "LONG"), nil)
	require.EqualError(t, err, "warehouse schema has no columns")
}

func TestRequireKeys(t *testing.T) {
	res, err := Reconcile(
		cols("Order ID", "LONG", "Region", "STRING"),
		cols("ORDER_ID", "NUMBER", "LOADED_AT", "TIMESTAMP_NTZ"),
	)
	require.NoError(t, err)

	keys, err := res.RequireKeys([]string{"Order ID"})
	require.NoError(t, err)
	require.Equal(t, []string{"ORDER_ID"}, keys)

	_, err = res.RequireKeys([]string{"Region"})
	require.True(t, errors.Is(err, ErrMissingKeyColumn))
	require.EqualError(t, err, `key column "Region" (REGION) is missing from the warehouse schema`)

	_, err = res.RequireKeys([]string{"loaded_at"})
	require.EqualError(t, err, `key column "loaded_at" (LOADED_AT) is missing from the source schema`)

	_, err = res.RequireKeys(nil)
	require.True(t, errors.Is(err, ErrMissingKeyColumn))
}

func TestFilterConfig(t *testing.T) {
	names := []string{"ID", "NAME", "SECRET_TOKEN", "AMOUNT"}
	for _, tc := range []struct {
		desc     string
		cfg      FilterConfig
		expected []string
	}{
		{desc: "default", cfg: DefaultFilterConfig(), expected: names},
		{
			desc:     "include and exclude",
			cfg:      FilterConfig{Include: "^(NAME|AMOUNT|SECRET.*)$", Exclude: "^SECRET"},
			expected: []string{"ID", "NAME", "AMOUNT"},
		},
		{
			desc:     "exclude only",
			cfg:      FilterConfig{Include: DefaultFilterString, Exclude: "TOKEN$"},
			expected: []string{"ID", "NAME", "AMOUNT"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ret, err := tc.cfg.Apply(names, "ID")
			require.NoError(t, err)
			require.Equal(t, tc.expected, ret)
		})
	}

	_, err := FilterConfig{Include: "("}.Apply(names)
	require.Error(t, err)
}
