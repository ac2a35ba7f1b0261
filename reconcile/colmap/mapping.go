package colmap

import "sort"

// ColumnMapping associates each normalized column name with the native name
// used by the source and by the warehouse. It is immutable once built.
type ColumnMapping struct {
	source    map[string]string
	warehouse map[string]string

	sourceNormalized    map[string]string
	warehouseNormalized map[string]string
}

// Collision records native names on one system which normalize to the same
// name. Only the first native name is mapped.
type Collision struct {
	System     string
	Normalized string
	Natives    []string
}

type mappingBuilder struct {
	m          ColumnMapping
	collisions map[string]*Collision
}

func newMappingBuilder() *mappingBuilder {
	return &mappingBuilder{
		m: ColumnMapping{
			source:              make(map[string]string),
			warehouse:           make(map[string]string),
			sourceNormalized:    make(map[string]string),
			warehouseNormalized: make(map[string]string),
		},
		collisions: make(map[string]*Collision),
	}
}

func (b *mappingBuilder) add(system string, normalized, native string) bool {
	fwd, rev := b.m.source, b.m.sourceNormalized
	if system == SystemWarehouse {
		fwd, rev = b.m.warehouse, b.m.warehouseNormalized
	}
	if existing, ok := fwd[normalized]; ok {
		k := system + "\x00" + normalized
		c, ok := b.collisions[k]
		if !ok {
			c = &Collision{System: system, Normalized: normalized, Natives: []string{existing}}
			b.collisions[k] = c
		}
		c.Natives = append(c.Natives, native)
		return false
	}
	fwd[normalized] = native
	rev[native] = normalized
	return true
}

// alias maps a warehouse column onto a source column's normalized name.
func (b *mappingBuilder) alias(normalized, warehouseNative string) {
	if old, ok := b.m.warehouseNormalized[warehouseNative]; ok {
		delete(b.m.warehouse, old)
	}
	b.m.warehouse[normalized] = warehouseNative
	b.m.warehouseNormalized[warehouseNative] = normalized
}

func (b *mappingBuilder) build() (*ColumnMapping, []Collision) {
	var cs []Collision
	for _, c := range b.collisions {
		cs = append(cs, *c)
	}
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].System != cs[j].System {
			return cs[i].System < cs[j].System
		}
		return cs[i].Normalized < cs[j].Normalized
	})
	m := b.m
	return &m, cs
}

// SourceName returns the source-native name for a normalized name, or the
// normalized name itself if it is unknown.
func (m *ColumnMapping) SourceName(normalized string) string {
	if n, ok := m.source[normalized]; ok {
		return n
	}
	return normalized
}

func (m *ColumnMapping) WarehouseName(normalized string) string {
	if n, ok := m.warehouse[normalized]; ok {
		return n
	}
	return normalized
}

func (m *ColumnMapping) SourceNames(normalized []string) []string {
	ret := make([]string, len(normalized))
	for i, n := range normalized {
		ret[i] = m.SourceName(n)
	}
	return ret
}

func (m *ColumnMapping) WarehouseNames(normalized []string) []string {
	ret := make([]string, len(normalized))
	for i, n := range normalized {
		ret[i] = m.WarehouseName(n)
	}
	return ret
}

// NormalizedSource maps a source-native name back to its normalized name.
func (m *ColumnMapping) NormalizedSource(native string) (string, bool) {
	n, ok := m.sourceNormalized[native]
	return n, ok
}

func (m *ColumnMapping) NormalizedWarehouse(native string) (string, bool) {
	n, ok := m.warehouseNormalized[native]
	return n, ok
}
