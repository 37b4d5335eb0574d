package bubbletea

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/planreview"
)

func TestParseInput(t *testing.T) {
	t.Parallel()

	t.Run("text keeps the string", func(t *testing.T) {
		t.Parallel()

		v, err := parseInput(planreview.TypeText, "  a title  ")
		require.NoError(t, err)
		assert.Equal(t, "a title", v.Canonical())
	})

	t.Run("array splits on commas", func(t *testing.T) {
		t.Parallel()

		v, err := parseInput(planreview.TypeArray, "noir, classic , restored,")
		require.NoError(t, err)
		assert.Equal(t, []string{"noir", "classic", "restored"}, v.Array)

		v, err = parseInput(planreview.TypeArray, "")
		require.NoError(t, err)
		assert.Empty(t, v.Array)
	})

	t.Run("object expects key-value pairs", func(t *testing.T) {
		t.Parallel()

		v, err := parseInput(planreview.TypeObject, "studio: A24; country: US")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"studio": "A24", "country": "US"}, v.Object)

		_, err = parseInput(planreview.TypeObject, "just words")
		assert.Error(t, err)
	})

	t.Run("date requires the canonical layout", func(t *testing.T) {
		t.Parallel()

		v, err := parseInput(planreview.TypeDate, "2024-03-15")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", v.Canonical())

		_, err = parseInput(planreview.TypeDate, "15/03/2024")
		assert.Error(t, err)
	})

	t.Run("number parses floats", func(t *testing.T) {
		t.Parallel()

		v, err := parseInput(planreview.TypeNumber, "4.5")
		require.NoError(t, err)
		assert.Equal(t, 4.5, v.Number)

		_, err = parseInput(planreview.TypeNumber, "not a number")
		assert.Error(t, err)
	})
}
