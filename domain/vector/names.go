package vector

import "strings"

const (
	PerDayPrefix      = "PER_DAY_"
	PerIntervalPrefix = "PER_INTVL_"
)

// Kind is the derivation path a requested vector name resolves to.
type Kind int

const (
	KindUnknown Kind = iota
	KindRaw
	KindPerInterval
	KindPerDay
	KindCalculated
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindPerInterval:
		return "per_interval"
	case KindPerDay:
		return "per_day"
	case KindCalculated:
		return "calculated"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying one requested vector name.
// Base is the cumulative source vector for per-interval and per-day
// vectors, and the name itself otherwise.
type Classification struct {
	Name string
	Kind Kind
	Base string
}

// Catalog answers what a provider can deliver directly.
type Catalog interface {
	HasVector(name string) bool
	IsTotal(name string) bool
}

// Classify decides the derivation path of name. Per-interval/per-day
// prefixes are checked first and require a cumulative base vector, then
// calculated expression names, then raw provider vectors.
func Classify(name string, catalog Catalog, calculated map[string]bool) Classification {
	for _, p := range []struct {
		prefix string
		kind   Kind
	}{
		{PerDayPrefix, KindPerDay},
		{PerIntervalPrefix, KindPerInterval},
	} {
		if !strings.HasPrefix(name, p.prefix) {
			continue
		}
		base := strings.TrimPrefix(name, p.prefix)
		if catalog.HasVector(base) && catalog.IsTotal(base) {
			return Classification{Name: name, Kind: p.kind, Base: base}
		}
		return Classification{Name: name, Kind: KindUnknown, Base: base}
	}
	if calculated[name] {
		return Classification{Name: name, Kind: KindCalculated, Base: name}
	}
	if catalog.HasVector(name) {
		return Classification{Name: name, Kind: KindRaw, Base: name}
	}
	return Classification{Name: name, Kind: KindUnknown, Base: name}
}

// ClassifyAll classifies every distinct name, preserving request order.
func ClassifyAll(names []string, catalog Catalog, calculated map[string]bool) []Classification {
	seen := make(map[string]struct{}, len(names))
	out := make([]Classification, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Classify(name, catalog, calculated))
	}
	return out
}

// OfKind returns the classifications with one of the given kinds.
func OfKind(classes []Classification, kinds ...Kind) []Classification {
	var out []Classification
	for _, c := range classes {
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// PerDayName returns the per-day vector name derived from base.
func PerDayName(base string) string { return PerDayPrefix + base }

// PerIntervalName returns the per-interval vector name derived from base.
func PerIntervalName(base string) string { return PerIntervalPrefix + base }
