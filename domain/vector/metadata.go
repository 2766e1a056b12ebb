package vector

import "strings"

// Metadata describes one provider vector.
type Metadata struct {
	Name    string `json:"name" yaml:"name"`
	Unit    string `json:"unit,omitempty" yaml:"unit,omitempty"`
	IsTotal bool   `json:"is_total" yaml:"is_total"`
}

// Keyword returns the summary keyword part of an Eclipse style vector name,
// e.g. WOPT for WOPT:OP_1.
func Keyword(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// InferIsTotal guesses whether a vector is cumulative from its keyword:
// totals end in T (or TH for history) except water cut.
func InferIsTotal(name string) bool {
	kw := strings.ToUpper(Keyword(name))
	if strings.HasSuffix(kw, "WCT") || strings.HasSuffix(kw, "WCTH") {
		return false
	}
	return strings.HasSuffix(kw, "T") || strings.HasSuffix(kw, "TH")
}

// InferMetadata builds metadata for a vector with no explicit description.
func InferMetadata(name string) Metadata {
	return Metadata{Name: name, IsTotal: InferIsTotal(name)}
}
