package rowset

import (
	"strconv"
	"strings"
)

// TypeGroup is a coarse family of native column types used to decide whether
// two systems agree on a column's type.
type TypeGroup int

const (
	GroupUnknown TypeGroup = iota
	GroupText
	GroupInt
	GroupFloat
	GroupBool
	GroupDatetime
)

func (g TypeGroup) String() string {
	switch g {
	case GroupText:
		return "text"
	case GroupInt:
		return "int"
	case GroupFloat:
		return "float"
	case GroupBool:
		return "bool"
	case GroupDatetime:
		return "datetime"
	}
	return "unknown"
}

var typeGroups = map[string]TypeGroup{
	"STRING":            GroupText,
	"TEXT":              GroupText,
	"CHAR":              GroupText,
	"CHARACTER":         GroupText,
	"VARCHAR":           GroupText,
	"CHARACTER VARYING": GroupText,
	"BPCHAR":            GroupText,

	"LONG":     GroupInt,
	"INTEGER":  GroupInt,
	"INT":      GroupInt,
	"BIGINT":   GroupInt,
	"SMALLINT": GroupInt,
	"TINYINT":  GroupInt,
	"INT2":     GroupInt,
	"INT4":     GroupInt,
	"INT8":     GroupInt,
	"NUMBER":   GroupInt,
	"FIXED":    GroupInt,

	"DOUBLE":           GroupFloat,
	"DOUBLE PRECISION": GroupFloat,
	"FLOAT":            GroupFloat,
	"FLOAT4":           GroupFloat,
	"FLOAT8":           GroupFloat,
	"REAL":             GroupFloat,
	"DECIMAL":          GroupFloat,
	"NUMERIC":          GroupFloat,

	"BOOLEAN": GroupBool,
	"BOOL":    GroupBool,

	"DATETIME": GroupDatetime,
	"DATE":     GroupDatetime,
	"TIME":     GroupDatetime,
}

// ClassifyType maps a native type name such as "VARCHAR(16777216)" or
// "NUMBER(38,2)" to its TypeGroup.
func ClassifyType(typeName string) TypeGroup {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	if t == "" {
		return GroupUnknown
	}
	base, params := t, ""
	if idx := strings.IndexByte(t, '('); idx >= 0 {
		base = strings.TrimSpace(t[:idx])
		params = strings.TrimSuffix(strings.TrimSpace(t[idx+1:]), ")")
	}
	if strings.HasPrefix(base, "TIMESTAMP") {
		return GroupDatetime
	}
	g, ok := typeGroups[base]
	if !ok {
		return GroupUnknown
	}
	if g == GroupInt && (base == "NUMBER" || base == "FIXED") && params != "" {
		if parts := strings.Split(params, ","); len(parts) == 2 {
			if scale, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && scale > 0 {
				return GroupFloat
			}
		}
	}
	return g
}

// TypesCompatible reports whether two native types belong to the same group.
// Types that cannot be classified are treated as compatible.
func TypesCompatible(a, b string) bool {
	ga, gb := ClassifyType(a), ClassifyType(b)
	if ga == GroupUnknown || gb == GroupUnknown {
		return true
	}
	return ga == gb
}
