package product

// AutoSelectSettings holds the two independently configurable auto-select
// triggers. OnInit forces a sensible default when a card first mounts with no
// persisted variant; OnChange completes a partial selection after each
// explicit user choice. Either can be enabled without the other.
type AutoSelectSettings struct {
	OnInit   bool
	OnChange bool
}

// AutoSelect greedily fills every unset option of the selection with its
// first selectable value, walking the declared option order. The selection is
// re-examined after each fill, so later fills only see combinations that are
// still reachable. Options with no selectable value are left unset.
//
// The returned selection is a copy; the input is never mutated.
func AutoSelect(m *Matrix, sel Selection) Selection {
	filled := sel.Clone()

	for _, opt := range m.Options() {
		if _, ok := filled[opt.Name]; ok {
			continue
		}
		for _, value := range opt.Values {
			trial := filled.Clone()
			trial[opt.Name] = value
			if classify(m, trial) == ValueSelectable {
				filled[opt.Name] = value
				break
			}
		}
	}
	return filled
}
