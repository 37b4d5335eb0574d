package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/triage"
)

// Viewer runs the interactive review UI over a loaded engine.
type Viewer struct {
	theme planreview.Theme
}

// NewViewer creates a Viewer with the given theme.
func NewViewer(theme planreview.Theme) *Viewer {
	return &Viewer{theme: theme}
}

// Review displays the plan for triage and blocks until the user exits.
func (v *Viewer) Review(ctx context.Context, engine *triage.Engine, differ planreview.Differ, opts ...ReviewModelOption) error {
	m := NewReviewModel(engine, differ, v.theme, opts...)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
