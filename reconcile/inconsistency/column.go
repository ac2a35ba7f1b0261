package inconsistency

// MissingColumn is a source column with no warehouse counterpart.
type MissingColumn struct {
	Target
	Normalized string
	Column     string
	Type       string
}

// ExtraneousColumn is a warehouse column with no source counterpart.
type ExtraneousColumn struct {
	Target
	Normalized string
	Column     string
	Type       string
}

type MismatchingColumnType struct {
	Target
	Normalized      string
	SourceColumn    string
	SourceType      string
	WarehouseColumn string
	WarehouseType   string
}

// FuzzyColumnMatch is a source and warehouse column pair aligned by name
// similarity rather than by normalized name.
type FuzzyColumnMatch struct {
	Target
	SourceColumn    string
	WarehouseColumn string
	Confidence      float64
	Applied         bool
}

type RowCountMismatch struct {
	Target
	SourceCount    int64
	WarehouseCount int64
	Negligible     bool
	Reason         string
}
