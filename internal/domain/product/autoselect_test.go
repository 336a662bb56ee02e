package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoSelect_FillsAllOptionsGreedily(t *testing.T) {
	m := mustMatrix(t, newShirt())

	filled := AutoSelect(m, Selection{})

	assert.Equal(t, Selection{"Colour": "Red", "Size": "S"}, filled)

	res := Resolve(m, filled)
	require.NotNil(t, res.Variant)
	assert.Equal(t, "v-red-s", res.Variant.ID)
}

func TestAutoSelect_CompletesPartialSelection(t *testing.T) {
	m := mustMatrix(t, newShirt())

	filled := AutoSelect(m, Selection{"Colour": "Blue"})

	assert.Equal(t, Selection{"Colour": "Blue", "Size": "S"}, filled)
}

func TestAutoSelect_LaterFillsSeeNarrowedMatrix(t *testing.T) {
	// Red/S is sold out here, so filling Colour=Red first must steer the
	// Size fill to M rather than the globally-first value S.
	p := newShirt()
	p.Variants = []Variant{
		newVariant("v-red-s", false, "Red", "S"),
		newVariant("v-red-m", true, "Red", "M"),
		newVariant("v-blue-s", true, "Blue", "S"),
	}
	m := mustMatrix(t, p)

	filled := AutoSelect(m, Selection{"Colour": "Red"})

	assert.Equal(t, Selection{"Colour": "Red", "Size": "M"}, filled)
}

func TestAutoSelect_SkipsOptionWithNoSelectableValue(t *testing.T) {
	p := newShirt()
	for i := range p.Variants {
		p.Variants[i].Available = false
	}
	m := mustMatrix(t, p)

	filled := AutoSelect(m, Selection{})

	assert.Empty(t, filled)
}

func TestAutoSelect_DoesNotMutateInput(t *testing.T) {
	m := mustMatrix(t, newShirt())
	sel := Selection{"Colour": "Blue"}

	_ = AutoSelect(m, sel)

	assert.Equal(t, Selection{"Colour": "Blue"}, sel)
}

func TestAutoSelect_KeepsExistingChoices(t *testing.T) {
	m := mustMatrix(t, newShirt())

	filled := AutoSelect(m, Selection{"Size": "S"})

	assert.Equal(t, "S", filled["Size"])
	assert.Equal(t, "Red", filled["Colour"])
}
