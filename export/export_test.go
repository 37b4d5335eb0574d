package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/export"
	"github.com/fwojciec/planreview/mem"
)

func testStore() *mem.Store {
	s := mem.NewStore()
	s.Load(&planreview.Plan{
		ID: "plan-1",
		Scenes: []*planreview.Scene{
			{
				ID:    "s1",
				Label: "Opening Scene",
				Changes: []*planreview.Change{
					{ID: "c1", SceneID: "s1", Field: "title", Type: planreview.TypeText,
						Current:  planreview.TextValue("old, quoted \"title\""),
						Proposed: planreview.TextValue("new title"),
						Accepted: true, Confidence: 0.85},
					{ID: "c2", SceneID: "s1", Field: "tags", Type: planreview.TypeArray,
						Current:  planreview.ArrayValue("noir"),
						Proposed: planreview.ArrayValue("noir", "classic"),
						Edited:   planreview.ArrayValue("noir", "restored"),
						Accepted: true, Confidence: 0.6},
					{ID: "c3", SceneID: "s1", Field: "rating", Type: planreview.TypeNumber,
						Proposed: planreview.NumberValue(4.5),
						Rejected: true, Confidence: 0.4},
				},
			},
			{
				ID: "s2",
				Changes: []*planreview.Change{
					{ID: "c4", SceneID: "s2", Field: "studio", Type: planreview.TypeText,
						Proposed: planreview.TextValue("A24"), Confidence: 0.3},
				},
			},
		},
	})
	return s
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"json", "csv", "markdown", "xlsx"} {
		f, err := export.ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, export.Format(name), f)
	}

	_, err := export.ParseFormat("yaml")
	var verr *planreview.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, planreview.ErrBadFormat, verr.Reason)
}

func TestExporter_JSON(t *testing.T) {
	t.Parallel()

	content, err := export.NewExporter(testStore()).Export(export.FormatJSON)
	require.NoError(t, err)

	var decoded []*planreview.Change
	require.NoError(t, json.Unmarshal(content, &decoded))
	require.Len(t, decoded, 2, "only accepted changes are exported")
	assert.Equal(t, "c1", decoded[0].ID)
	assert.Equal(t, "c2", decoded[1].ID)
	require.NotNil(t, decoded[1].Edited)
	assert.Equal(t, []string{"noir", "restored"}, decoded[1].Edited.Array)
}

func TestExporter_JSON_EmptyIsAnArray(t *testing.T) {
	t.Parallel()

	content, err := export.NewExporter(mem.NewStore()).Export(export.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(content))
}

func TestExporter_CSV(t *testing.T) {
	t.Parallel()

	content, err := export.NewExporter(testStore()).Export(export.FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two accepted changes")

	assert.Equal(t, []string{"Scene ID", "Field", "Current Value", "Proposed Value", "Confidence"}, records[0])
	assert.Equal(t, []string{"s1", "title", `old, quoted "title"`, "new title", "0.85"}, records[1])
	assert.Equal(t, []string{"s1", "tags", "noir", "noir, restored", "0.6"}, records[2],
		"the edited value wins over the proposed one")
}

func TestExporter_Markdown(t *testing.T) {
	t.Parallel()

	content, err := export.NewExporter(testStore()).Export(export.FormatMarkdown)
	require.NoError(t, err)
	out := string(content)

	assert.Contains(t, out, "# Accepted Changes")
	assert.Contains(t, out, "Total: 2")
	assert.Contains(t, out, "## Opening Scene", "the scene label heads the section")
	assert.Contains(t, out, "- **tags**: noir → noir, restored (60%)")
	assert.NotContains(t, out, "## s2", "scenes without accepted changes are omitted")
	assert.NotContains(t, out, "rating", "rejected changes are omitted")
}

func TestExporter_XLSX(t *testing.T) {
	t.Parallel()

	content, err := export.NewExporter(testStore()).Export(export.FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Scene ID", "Field", "Current Value", "Proposed Value", "Confidence"}, rows[0])
	assert.Equal(t, "title", rows[1][1])
	assert.Equal(t, "noir, restored", rows[2][3])
}

func TestExporter_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := export.NewExporter(testStore()).Export(export.Format("yaml"))
	var verr *planreview.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, planreview.ErrBadFormat, verr.Reason)
}
