package product

import (
	"fmt"
	"strings"
)

// Selection maps option names to chosen values. It may be partial (some
// options unset) or empty. Unset options act as wildcards in matrix queries.
type Selection map[string]string

// Clone returns an independent copy of the selection.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Complete reports whether the selection sets every option of the given list.
func (s Selection) Complete(options []Option) bool {
	for _, opt := range options {
		if _, ok := s[opt.Name]; !ok {
			return false
		}
	}
	return true
}

// Matrix answers membership and matching queries over a product's
// option/variant space. It is read-only after construction and may be shared
// across concurrently rendered cards of the same product.
type Matrix struct {
	product  *Product
	position map[string]int // option name -> index into variant tuples
}

// NewMatrix validates the product's option/variant data and builds the query
// index. Any structural inconsistency is a *ConfigError.
func NewMatrix(p *Product) (*Matrix, error) {
	if len(p.Variants) == 0 {
		return nil, &ConfigError{ProductID: p.ID, Reason: "product has no variants"}
	}

	position := make(map[string]int, len(p.Options))
	for i, opt := range p.Options {
		if _, dup := position[opt.Name]; dup {
			return nil, &ConfigError{ProductID: p.ID, Reason: fmt.Sprintf("duplicate option %q", opt.Name)}
		}
		position[opt.Name] = i
	}

	seen := make(map[string]string, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		if len(v.OptionValues) != len(p.Options) {
			return nil, &ConfigError{
				ProductID: p.ID,
				Reason:    fmt.Sprintf("variant %s has %d option values, product defines %d options", v.ID, len(v.OptionValues), len(p.Options)),
			}
		}
		key := strings.Join(v.OptionValues, "\x00")
		if other, dup := seen[key]; dup {
			return nil, &ConfigError{
				ProductID: p.ID,
				Reason:    fmt.Sprintf("variants %s and %s share the same option tuple", other, v.ID),
			}
		}
		seen[key] = v.ID
	}

	return &Matrix{product: p, position: position}, nil
}

// Product returns the product this matrix was built from.
func (m *Matrix) Product() *Product {
	return m.product
}

// Options returns the product's options in declared order.
func (m *Matrix) Options() []Option {
	return m.product.Options
}

// Values returns the ordered values of the named option. The second return
// is false when the product does not define the option.
func (m *Matrix) Values(option string) ([]string, bool) {
	i, ok := m.position[option]
	if !ok {
		return nil, false
	}
	return m.product.Options[i].Values, true
}

// HasValue reports whether the named option defines the given value.
func (m *Matrix) HasValue(option, value string) bool {
	values, ok := m.Values(option)
	if !ok {
		return false
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

// Matching returns all variants whose tuple agrees with every set entry of
// the selection. Unset options are wildcards, so an empty selection matches
// every variant.
func (m *Matrix) Matching(sel Selection) []*Variant {
	var out []*Variant
	for i := range m.product.Variants {
		v := &m.product.Variants[i]
		if m.matches(v, sel) {
			out = append(out, v)
		}
	}
	return out
}

func (m *Matrix) matches(v *Variant, sel Selection) bool {
	for name, want := range sel {
		pos, ok := m.position[name]
		if !ok {
			return false
		}
		if v.OptionValues[pos] != want {
			return false
		}
	}
	return true
}
