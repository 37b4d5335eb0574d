package bubbletea_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/bubbletea"
	pl "github.com/fwojciec/planreview/lipgloss"
	"github.com/fwojciec/planreview/mem"
	"github.com/fwojciec/planreview/mock"
	"github.com/fwojciec/planreview/triage"
	"github.com/fwojciec/planreview/valuediff"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// trueColorRenderer creates a lipgloss renderer that outputs true colors.
// This is useful for testing color output without affecting global state.
func trueColorRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	return r
}

func testEngine(t *testing.T) *triage.Engine {
	t.Helper()
	svc := &mock.PlanService{
		FetchPlanFn: func(ctx context.Context, planID string) (*planreview.Plan, error) {
			return &planreview.Plan{
				ID: "plan-1",
				Scenes: []*planreview.Scene{
					{
						ID:    "s1",
						Label: "Opening Scene",
						Changes: []*planreview.Change{
							{ID: "c1", SceneID: "s1", Field: "title", Type: planreview.TypeText,
								Current:  planreview.TextValue("old title"),
								Proposed: planreview.TextValue("new title"), Confidence: 0.9},
							{ID: "c2", SceneID: "s1", Field: "tags", Type: planreview.TypeArray,
								Proposed: planreview.ArrayValue("noir", "classic"), Confidence: 0.6},
						},
					},
				},
			}, nil
		},
		SetChangeStatusFn: func(ctx context.Context, changeID string, accepted, rejected bool) error {
			return nil
		},
		SetChangeValueFn: func(ctx context.Context, changeID string, value *planreview.Value) error {
			return nil
		},
		BulkUpdateFn: func(ctx context.Context, planID string, req planreview.BulkRequest) (int, error) {
			return 0, nil
		},
	}
	engine := triage.NewEngine(mem.NewStore(), svc, triage.WithLogger(discard))
	require.NoError(t, engine.LoadPlan(context.Background(), "plan-1"))
	return engine
}

func newTestModel(t *testing.T) tea.Model {
	t.Helper()
	m := bubbletea.NewReviewModel(testEngine(t), valuediff.NewDiffer(), pl.DarkTheme())
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return sized
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// drain runs a command and feeds its message back into the model, the way the
// runtime would.
func drain(m tea.Model, cmd tea.Cmd) tea.Model {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		m, cmd = m.Update(msg)
	}
	return m
}

func TestReviewModel_RendersCurrentChange(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)
	view := m.View()

	assert.Contains(t, view, "Opening Scene")
	assert.Contains(t, view, "title")
	assert.Contains(t, view, "% similar", "text changes show a quick-glance similarity score")
	assert.Contains(t, view, "[1/2]")
	assert.Contains(t, view, "pending")
}

func TestReviewModel_Navigation(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m, _ = m.Update(keyMsg('j'))
	assert.Contains(t, m.View(), "[2/2]")

	// Already at the end.
	m, _ = m.Update(keyMsg('j'))
	assert.Contains(t, m.View(), "[2/2]")

	m, _ = m.Update(keyMsg('k'))
	assert.Contains(t, m.View(), "[1/2]")
}

func TestReviewModel_AcceptAdvancesStatus(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m2, cmd := m.Update(keyMsg('a'))
	require.NotNil(t, cmd)
	m = drain(m2, cmd)

	assert.Contains(t, m.View(), "✓ accepted")
}

func TestReviewModel_RejectThenUndo(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m2, cmd := m.Update(keyMsg('r'))
	m = drain(m2, cmd)
	assert.Contains(t, m.View(), "✗ rejected")

	m2, cmd = m.Update(keyMsg('u'))
	m = drain(m2, cmd)
	assert.Contains(t, m.View(), "· pending")
}

func TestReviewModel_NextPendingSkipsDecided(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m2, cmd := m.Update(keyMsg('a'))
	m = drain(m2, cmd)

	// The only pending change left is the second one.
	m, _ = m.Update(keyMsg('n'))
	assert.Contains(t, m.View(), "[2/2]")
	assert.Contains(t, m.View(), "tags")
}

func TestReviewModel_EditFlow(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m, _ = m.Update(keyMsg('e'))
	view := m.View()
	assert.Contains(t, view, "new title", "the input is seeded from the effective value")

	// Clear the seeded value, type a replacement, and submit.
	for i := 0; i < len("new title"); i++ {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("manual title")})
	m2, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = drain(m2, cmd)

	assert.Contains(t, m.View(), "manual title")
	assert.Contains(t, m.View(), "edited by reviewer")
}

func TestReviewModel_EditEscapeCancels(t *testing.T) {
	t.Parallel()

	m := newTestModel(t)

	m, _ = m.Update(keyMsg('e'))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("discarded")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.NotContains(t, m.View(), "edited by reviewer")
}

func TestReviewModel_QuitOnQ(t *testing.T) {
	t.Parallel()

	m := bubbletea.NewReviewModel(testEngine(t), valuediff.NewDiffer(), pl.DarkTheme())
	tm := teatest.NewTestModel(t, m,
		teatest.WithInitialTermSize(80, 24),
	)

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("title"))
	})

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(0))
}

func TestReviewModel_RefreshSignal(t *testing.T) {
	t.Parallel()

	engine := testEngine(t)
	refresh := make(chan struct{}, 1)
	m := bubbletea.NewReviewModel(engine, valuediff.NewDiffer(), pl.DarkTheme(),
		bubbletea.WithRefreshSignal(refresh))
	tm := teatest.NewTestModel(t, m,
		teatest.WithInitialTermSize(80, 24),
	)

	refresh <- struct{}{}
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return bytes.Contains(out, []byte("plan refreshed"))
	})

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(0))
}

func TestThemeColorsRender(t *testing.T) {
	t.Parallel()

	r := trueColorRenderer()
	styles := pl.DarkTheme().Styles()

	out := r.NewStyle().Foreground(lipgloss.Color(styles.Added.Foreground)).Render("added")
	assert.Contains(t, out, "\x1b[", "theme colors produce ANSI output under true color")

	light := pl.LightTheme().Styles()
	assert.NotEqual(t, styles.Added.Foreground, light.Added.Foreground)
}
