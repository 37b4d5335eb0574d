// Package export serializes the accepted changes of a review session into
// transfer formats. Handing the output to a download or display surface is
// the caller's concern.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fwojciec/planreview"
)

// Format identifies an export format.
type Format string

// Supported formats.
const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatXLSX:
		return Format(s), nil
	}
	return "", &planreview.ValidationError{Op: "export", Reason: planreview.ErrBadFormat, Detail: s}
}

// csvHeader is the column layout shared by the csv and xlsx formats.
var csvHeader = []string{"Scene ID", "Field", "Current Value", "Proposed Value", "Confidence"}

// Exporter serializes accepted changes from a store.
type Exporter struct {
	store planreview.Store
}

// NewExporter creates an Exporter over the given store.
func NewExporter(store planreview.Store) *Exporter {
	return &Exporter{store: store}
}

// Export serializes all accepted changes in the given format.
func (e *Exporter) Export(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return e.exportJSON()
	case FormatCSV:
		return e.exportCSV()
	case FormatMarkdown:
		return e.exportMarkdown()
	case FormatXLSX:
		return e.exportXLSX()
	}
	return nil, &planreview.ValidationError{Op: "export", Reason: planreview.ErrBadFormat, Detail: string(format)}
}

// exportJSON emits the accepted change records verbatim.
func (e *Exporter) exportJSON() ([]byte, error) {
	accepted := e.store.Accepted()
	if accepted == nil {
		accepted = []*planreview.Change{}
	}
	return json.MarshalIndent(accepted, "", "  ")
}

func (e *Exporter) exportCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, c := range e.store.Accepted() {
		row := []string{
			c.SceneID,
			c.Field,
			c.Current.Canonical(),
			c.EffectiveValue().Canonical(),
			strconv.FormatFloat(c.Confidence, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// exportMarkdown produces a grouped human-readable report: a heading, the
// total count, then one section per scene.
func (e *Exporter) exportMarkdown() ([]byte, error) {
	accepted := e.store.Accepted()

	var b strings.Builder
	b.WriteString("# Accepted Changes\n\n")
	fmt.Fprintf(&b, "Total: %d\n", len(accepted))

	for _, scene := range e.store.Scenes() {
		var lines []string
		for _, c := range scene.Changes {
			if !c.Accepted {
				continue
			}
			lines = append(lines, fmt.Sprintf("- **%s**: %s → %s (%d%%)",
				c.Field,
				c.Current.Canonical(),
				c.EffectiveValue().Canonical(),
				int(math.Round(c.Confidence*100)),
			))
		}
		if len(lines) == 0 {
			continue
		}
		label := scene.Label
		if label == "" {
			label = scene.ID
		}
		fmt.Fprintf(&b, "\n## %s\n\n", label)
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// exportXLSX writes a single-sheet workbook with the csv column layout.
func (e *Exporter) exportXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	for col, name := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, err
		}
	}

	for i, c := range e.store.Accepted() {
		values := []any{
			c.SceneID,
			c.Field,
			c.Current.Canonical(),
			c.EffectiveValue().Canonical(),
			c.Confidence,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
