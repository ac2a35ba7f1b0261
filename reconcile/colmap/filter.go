package colmap

import "regexp"

const DefaultFilterString = ".*"

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{Include: DefaultFilterString}
}

// FilterConfig restricts which normalized columns have their values compared.
// Both filters are POSIX regular expressions. An empty Exclude excludes
// nothing.
type FilterConfig struct {
	Include string
	Exclude string
}

// Apply returns the names matching the filter, preserving order. Names in
// keep are always returned.
func (cfg FilterConfig) Apply(names []string, keep ...string) ([]string, error) {
	if (cfg.Include == DefaultFilterString || cfg.Include == "") && cfg.Exclude == "" {
		return names, nil
	}
	include := cfg.Include
	if include == "" {
		include = DefaultFilterString
	}
	includeRe, err := regexp.CompilePOSIX(include)
	if err != nil {
		return nil, err
	}
	var excludeRe *regexp.Regexp
	if cfg.Exclude != "" {
		if excludeRe, err = regexp.CompilePOSIX(cfg.Exclude); err != nil {
			return nil, err
		}
	}
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}
	var ret []string
	for _, n := range names {
		if _, ok := kept[n]; ok {
			ret = append(ret, n)
			continue
		}
		if !includeRe.MatchString(n) {
			continue
		}
		if excludeRe != nil && excludeRe.MatchString(n) {
			continue
		}
		ret = append(ret, n)
	}
	return ret, nil
}
