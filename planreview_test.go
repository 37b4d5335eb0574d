package planreview_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/planreview"
)

func TestValue_Canonical(t *testing.T) {
	t.Parallel()

	t.Run("nil value is the empty string", func(t *testing.T) {
		t.Parallel()

		var v *planreview.Value
		assert.Equal(t, "", v.Canonical())
	})

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "The Long Goodbye", planreview.TextValue("The Long Goodbye").Canonical())
	})

	t.Run("array joins items", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "noir, classic", planreview.ArrayValue("noir", "classic").Canonical())
	})

	t.Run("object sorts keys", func(t *testing.T) {
		t.Parallel()

		v := planreview.ObjectValue(map[string]string{"studio": "Neon", "country": "US"})
		assert.Equal(t, "country: US; studio: Neon", v.Canonical())
	})

	t.Run("date uses the canonical layout", func(t *testing.T) {
		t.Parallel()

		d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-03-15", planreview.DateValue(d).Canonical())
	})

	t.Run("number uses the shortest form", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "4.5", planreview.NumberValue(4.5).Canonical())
		assert.Equal(t, "120", planreview.NumberValue(120).Canonical())
	})
}

func TestValue_Equal(t *testing.T) {
	t.Parallel()

	t.Run("nil equals nil only", func(t *testing.T) {
		t.Parallel()

		var a *planreview.Value
		assert.True(t, a.Equal(nil))
		assert.False(t, a.Equal(planreview.TextValue("")))
		assert.False(t, planreview.TextValue("").Equal(nil))
	})

	t.Run("array order matters", func(t *testing.T) {
		t.Parallel()

		assert.True(t, planreview.ArrayValue("a", "b").Equal(planreview.ArrayValue("a", "b")))
		assert.False(t, planreview.ArrayValue("a", "b").Equal(planreview.ArrayValue("b", "a")))
	})

	t.Run("type mismatch is never equal", func(t *testing.T) {
		t.Parallel()

		assert.False(t, planreview.TextValue("1").Equal(planreview.NumberValue(1)))
	})
}

func TestValue_Clone(t *testing.T) {
	t.Parallel()

	v := planreview.ArrayValue("a", "b")
	clone := v.Clone()
	clone.Array[0] = "changed"

	assert.Equal(t, "a", v.Array[0], "clone must not share the backing array")

	var nilValue *planreview.Value
	assert.Nil(t, nilValue.Clone())
}

func TestChange_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	changes := []*planreview.Change{
		{
			ID: "c1", SceneID: "s1", Field: "title", Type: planreview.TypeText,
			Current: planreview.TextValue("old title"), Proposed: planreview.TextValue("new title"),
			Confidence: 0.9, Accepted: true,
		},
		{
			ID: "c2", SceneID: "s1", Field: "tags", Type: planreview.TypeArray,
			Current:  planreview.ArrayValue("noir"),
			Proposed: planreview.ArrayValue("noir", "classic"),
			Edited:   planreview.ArrayValue("noir", "restored"),
		},
		{
			ID: "c3", SceneID: "s2", Field: "date", Type: planreview.TypeDate,
			Proposed:   planreview.DateValue(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
			Confidence: 0.4,
		},
		{
			ID: "c4", SceneID: "s2", Field: "rating", Type: planreview.TypeNumber,
			Current: planreview.NumberValue(3), Proposed: planreview.NumberValue(4.5),
			Applied: true,
		},
	}

	data, err := json.Marshal(changes)
	require.NoError(t, err)

	var decoded []*planreview.Change
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(changes))
	for i := range changes {
		assert.Equal(t, changes[i].ID, decoded[i].ID)
		assert.Equal(t, changes[i].Type, decoded[i].Type)
		assert.True(t, changes[i].Current.Equal(decoded[i].Current), "current of %s", changes[i].ID)
		assert.True(t, changes[i].Proposed.Equal(decoded[i].Proposed), "proposed of %s", changes[i].ID)
		assert.True(t, changes[i].Edited.Equal(decoded[i].Edited), "edited of %s", changes[i].ID)
		assert.Equal(t, changes[i].Accepted, decoded[i].Accepted)
		assert.Equal(t, changes[i].Applied, decoded[i].Applied)
	}
}

func TestChange_UnmarshalNaturalShapes(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": "c1", "scene_id": "s1", "field": "tags", "type": "array",
		"current": null,
		"proposed": ["noir", "classic"],
		"confidence": 0.75,
		"accepted": false, "rejected": false, "applied": false
	}`

	var c planreview.Change
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Nil(t, c.Current, "JSON null decodes to an absent value")
	require.NotNil(t, c.Proposed)
	assert.Equal(t, []string{"noir", "classic"}, c.Proposed.Array)
}

func TestChange_UnmarshalRejectsUnknownType(t *testing.T) {
	t.Parallel()

	raw := `{"id": "c1", "type": "blob", "current": null, "proposed": null}`
	var c planreview.Change
	assert.Error(t, json.Unmarshal([]byte(raw), &c))
}

func TestChange_EffectiveValue(t *testing.T) {
	t.Parallel()

	c := &planreview.Change{
		Type:     planreview.TypeText,
		Proposed: planreview.TextValue("proposed"),
	}
	assert.Equal(t, "proposed", c.EffectiveValue().Canonical())

	c.Edited = planreview.TextValue("edited")
	assert.Equal(t, "edited", c.EffectiveValue().Canonical())
}

func TestComputeStatistics(t *testing.T) {
	t.Parallel()

	t.Run("empty plan yields zeros", func(t *testing.T) {
		t.Parallel()

		stats := planreview.ComputeStatistics(nil)
		assert.Equal(t, planreview.Statistics{}, stats)
	})

	t.Run("rates are derived from counts", func(t *testing.T) {
		t.Parallel()

		changes := []*planreview.Change{
			{Confidence: 0.9, Accepted: true},
			{Confidence: 0.6, Accepted: true},
			{Confidence: 0.3},
		}
		stats := planreview.ComputeStatistics(changes)

		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.Accepted)
		assert.Equal(t, 0, stats.Rejected)
		assert.Equal(t, 1, stats.Pending)
		assert.InDelta(t, 66.67, stats.AcceptanceRate, 0.001)
		assert.InDelta(t, 0.6, stats.AverageConfidence, 0.0001)
	})
}

func TestPlan_Change(t *testing.T) {
	t.Parallel()

	plan := &planreview.Plan{
		ID: "p1",
		Scenes: []*planreview.Scene{
			{ID: "s1", Changes: []*planreview.Change{{ID: "c1", SceneID: "s1"}}},
			{ID: "s2", Changes: []*planreview.Change{{ID: "c2", SceneID: "s2"}}},
		},
	}

	c, ok := plan.Change("c2")
	require.True(t, ok)
	assert.Equal(t, "s2", c.SceneID)

	_, ok = plan.Change("missing")
	assert.False(t, ok)

	assert.Len(t, plan.Changes(), 2)
}

func TestDiffResult_HasChanges(t *testing.T) {
	t.Parallel()

	var nilResult *planreview.DiffResult
	assert.False(t, nilResult.HasChanges())

	assert.False(t, (&planreview.DiffResult{}).HasChanges())
	assert.True(t, (&planreview.DiffResult{Additions: 1}).HasChanges())

	reorder := &planreview.DiffResult{
		Array: &planreview.ArrayDiff{Moved: []planreview.Move{{Item: "a", From: 0, To: 1}}},
	}
	assert.True(t, reorder.HasChanges(), "a pure reorder is still a change")
}
