package product

// ValueState classifies a single option value against the rest of the
// current selection.
type ValueState uint8

const (
	// ValueSelectable means at least one available variant matches the
	// current selection with this value forced in.
	ValueSelectable ValueState = iota
	// ValueSoldOut means matching variants exist but every one of them is
	// marked unavailable.
	ValueSoldOut
	// ValueUnavailable means no variant at all combines this value with the
	// rest of the current selection.
	ValueUnavailable
)

// String returns the wire/display name of the state.
func (s ValueState) String() string {
	switch s {
	case ValueSelectable:
		return "selectable"
	case ValueSoldOut:
		return "sold_out"
	case ValueUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ValueView is one option value annotated for rendering.
type ValueView struct {
	Value    string
	State    ValueState
	Selected bool
}

// OptionView is one option with all of its values classified against the
// other chosen options.
type OptionView struct {
	Name          string
	SelectedValue string // empty when unset
	Values        []ValueView
}

// Resolution is the outcome of resolving a selection against a matrix.
type Resolution struct {
	// Variant is the uniquely matching variant, or nil when the selection is
	// partial, ambiguous, or matches nothing.
	Variant *Variant

	// HasSelection reports whether the selection sets at least one option.
	HasSelection bool

	// FirstUnset names the first option (in declared order) without a chosen
	// value. Empty when every option is set.
	FirstUnset string

	Options []OptionView
}

// Resolve computes the resolved variant and the per-value classification for
// the given selection. It is pure: it never mutates the matrix or selection.
//
// Classification is relative: each value is judged with the value forced into
// a copy of the selection, overriding any prior choice for that option, so
// changing one option can reclassify values on every other option.
func Resolve(m *Matrix, sel Selection) Resolution {
	p := m.Product()

	res := Resolution{
		HasSelection: len(sel) > 0,
		Options:      make([]OptionView, 0, len(p.Options)),
	}

	for _, opt := range p.Options {
		view := OptionView{
			Name:   opt.Name,
			Values: make([]ValueView, 0, len(opt.Values)),
		}
		if chosen, ok := sel[opt.Name]; ok {
			view.SelectedValue = chosen
		} else if res.FirstUnset == "" {
			res.FirstUnset = opt.Name
		}

		for _, value := range opt.Values {
			trial := sel.Clone()
			trial[opt.Name] = value

			view.Values = append(view.Values, ValueView{
				Value:    value,
				State:    classify(m, trial),
				Selected: view.SelectedValue == value,
			})
		}
		res.Options = append(res.Options, view)
	}

	// Products with a single implicit variant resolve to it unconditionally.
	if p.HasOnlyDefaultVariant {
		res.Variant = &p.Variants[0]
		return res
	}

	if !sel.Complete(p.Options) {
		return res
	}
	if matching := m.Matching(sel); len(matching) == 1 {
		res.Variant = matching[0]
	}
	return res
}

// classify rates one trial selection: unavailable when nothing matches,
// sold out when matches exist but none is purchasable, selectable otherwise.
func classify(m *Matrix, trial Selection) ValueState {
	matching := m.Matching(trial)
	if len(matching) == 0 {
		return ValueUnavailable
	}
	for _, v := range matching {
		if v.Available {
			return ValueSelectable
		}
	}
	return ValueSoldOut
}
