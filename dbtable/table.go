package dbtable

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// Name identifies a warehouse table. Database and Schema may be empty, in
// which case the connection defaults apply.
type Name struct {
	Database string
	Schema   string
	Table    string
}

// ParseName parses "table", "schema.table" or "database.schema.table".
// Parts may be double-quoted to contain dots.
func ParseName(s string) (Name, error) {
	parts, err := splitQualified(s)
	if err != nil {
		return Name{}, err
	}
	switch len(parts) {
	case 1:
		return Name{Table: parts[0]}, nil
	case 2:
		return Name{Schema: parts[0], Table: parts[1]}, nil
	case 3:
		return Name{Database: parts[0], Schema: parts[1], Table: parts[2]}, nil
	}
	return Name{}, errors.Newf("table name %q has too many parts", s)
}

func splitQualified(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && inQuotes && i+1 < len(s) && s[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuotes = !inQuotes
		case c == '.' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, errors.Newf("unterminated quote in table name %q", s)
	}
	parts = append(parts, cur.String())
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, errors.Newf("empty identifier in table name %q", s)
		}
	}
	return parts, nil
}

// Parts returns the non-empty qualified parts of the name.
func (n Name) Parts() []string {
	var ret []string
	for _, p := range []string{n.Database, n.Schema, n.Table} {
		if p != "" {
			ret = append(ret, p)
		}
	}
	return ret
}

func (n Name) String() string {
	return strings.Join(n.Parts(), ".")
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// SafeString returns the name with every run of characters unsafe for file
// names replaced by "_".
func (n Name) SafeString() string {
	return unsafeChars.ReplaceAllString(n.String(), "_")
}

// SafeFileName applies the same replacement as SafeString to an arbitrary
// label.
func SafeFileName(s string) string {
	return unsafeChars.ReplaceAllString(s, "_")
}

func (n Name) Compare(o Name) int {
	if c := strings.Compare(strings.ToLower(n.Database), strings.ToLower(o.Database)); c != 0 {
		return c
	}
	if c := strings.Compare(strings.ToLower(n.Schema), strings.ToLower(o.Schema)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(n.Table), strings.ToLower(o.Table))
}

func (n Name) Less(o Name) bool {
	return n.Compare(o) < 0
}
