// Package bubbletea provides the interactive triage UI for reviewing
// proposed metadata changes using the Bubble Tea framework.
package bubbletea

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/triage"
	"github.com/fwojciec/planreview/valuediff"
)

// Mode identifies the current interaction mode.
type Mode int

// Mode constants.
const (
	ModeTriage Mode = iota
	ModeEdit
)

// triageDoneMsg reports the outcome of an engine operation.
type triageDoneMsg struct {
	action string
	err    error
}

// refreshSignalMsg signals that the backend announced a plan update.
type refreshSignalMsg struct{}

// planRefreshedMsg reports the outcome of the refetch that follows.
type planRefreshedMsg struct {
	err error
}

// ReviewModel is the Bubble Tea model for triaging a plan one change at a
// time.
type ReviewModel struct {
	engine *triage.Engine
	differ planreview.Differ

	ids          []string
	currentIndex int

	viewport  viewport.Model
	editInput textinput.Model
	mode      Mode
	ready     bool

	width, height int
	status        string

	refresh <-chan struct{}
	styles  styleSet
	keymap  ReviewKeyMap
}

// ReviewModelOption configures a ReviewModel.
type ReviewModelOption func(*ReviewModel)

// WithRefreshSignal makes the model refetch the plan whenever the channel
// delivers, for wiring a push-notification listener. The refetch runs as a
// command from the update loop so it never races the triage commands'
// goroutines.
func WithRefreshSignal(ch <-chan struct{}) ReviewModelOption {
	return func(m *ReviewModel) { m.refresh = ch }
}

// NewReviewModel creates a ReviewModel over a loaded engine.
func NewReviewModel(engine *triage.Engine, differ planreview.Differ, theme planreview.Theme, opts ...ReviewModelOption) ReviewModel {
	input := textinput.New()
	input.Prompt = "> "

	m := ReviewModel{
		engine:    engine,
		differ:    differ,
		editInput: input,
		styles:    newStyleSet(theme),
		keymap:    DefaultReviewKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.ids = changeIDs(engine.Store())
	return m
}

func changeIDs(store planreview.Store) []string {
	var ids []string
	for _, scene := range store.Scenes() {
		for _, c := range scene.Changes {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Init implements tea.Model.
func (m ReviewModel) Init() tea.Cmd {
	return m.waitForRefresh()
}

func (m ReviewModel) waitForRefresh() tea.Cmd {
	if m.refresh == nil {
		return nil
	}
	ch := m.refresh
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return refreshSignalMsg{}
	}
}

// Update implements tea.Model.
func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == ModeEdit {
			return m.handleEditKeys(msg)
		}
		return m.handleTriageKeys(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case triageDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = msg.action
		}
		m.updateViewportContent()
		return m, nil

	case refreshSignalMsg:
		engine := m.engine
		refetch := func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return planRefreshedMsg{err: engine.Refresh(ctx)}
		}
		return m, tea.Batch(refetch, m.waitForRefresh())

	case planRefreshedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("refresh failed: %v", msg.err)
			return m, nil
		}
		m.ids = changeIDs(m.engine.Store())
		if m.currentIndex >= len(m.ids) {
			m.currentIndex = len(m.ids) - 1
		}
		if m.currentIndex < 0 {
			m.currentIndex = 0
		}
		m.status = "plan refreshed"
		m.updateViewportContent()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ReviewModel) handleTriageKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Next):
		if m.currentIndex < len(m.ids)-1 {
			m.currentIndex++
			m.updateViewportContent()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Prev):
		if m.currentIndex > 0 {
			m.currentIndex--
			m.updateViewportContent()
		}
		return m, nil

	case key.Matches(msg, m.keymap.NextPending):
		if idx := m.findNextPending(); idx != -1 {
			m.currentIndex = idx
			m.updateViewportContent()
		}
		return m, nil

	case key.Matches(msg, m.keymap.Accept):
		return m.runTriage("accepted", func(ctx context.Context, id string) error {
			return m.engine.Accept(ctx, id)
		})

	case key.Matches(msg, m.keymap.Reject):
		return m.runTriage("rejected", func(ctx context.Context, id string) error {
			return m.engine.Reject(ctx, id)
		})

	case key.Matches(msg, m.keymap.Edit):
		return m.enterEditMode()

	case key.Matches(msg, m.keymap.Undo):
		engine := m.engine
		return m, func() tea.Msg {
			return triageDoneMsg{action: "undone", err: engine.Undo(context.Background())}
		}

	case key.Matches(msg, m.keymap.Redo):
		engine := m.engine
		return m, func() tea.Msg {
			return triageDoneMsg{action: "redone", err: engine.Redo(context.Background())}
		}

	case key.Matches(msg, m.keymap.HalfPageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keymap.HalfPageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m, nil
}

func (m ReviewModel) runTriage(action string, fn func(ctx context.Context, id string) error) (tea.Model, tea.Cmd) {
	c, ok := m.currentChange()
	if !ok {
		return m, nil
	}
	id := c.ID
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return triageDoneMsg{action: action, err: fn(ctx, id)}
	}
}

func (m ReviewModel) enterEditMode() (tea.Model, tea.Cmd) {
	c, ok := m.currentChange()
	if !ok {
		return m, nil
	}
	m.mode = ModeEdit
	m.editInput.SetValue(c.EffectiveValue().Canonical())
	m.editInput.CursorEnd()
	m.editInput.Focus()
	return m, textinput.Blink
}

func (m ReviewModel) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeTriage
		m.editInput.Blur()
		return m, nil

	case "enter":
		c, ok := m.currentChange()
		if !ok {
			m.mode = ModeTriage
			return m, nil
		}
		value, err := parseInput(c.Type, m.editInput.Value())
		if err != nil {
			m.status = fmt.Sprintf("invalid value: %v", err)
			return m, nil
		}
		m.mode = ModeTriage
		m.editInput.Blur()
		id := c.ID
		engine := m.engine
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return triageDoneMsg{action: "edited", err: engine.Edit(ctx, id, value)}
		}
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

func (m ReviewModel) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	headerHeight := 3
	footerHeight := 3
	bodyHeight := msg.Height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	if !m.ready {
		m.viewport = viewport.New(msg.Width, bodyHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = bodyHeight
	}
	m.updateViewportContent()
	return m, nil
}

func (m *ReviewModel) updateViewportContent() {
	if !m.ready {
		return
	}
	c, ok := m.currentChange()
	if !ok {
		m.viewport.SetContent("No changes to review.")
		return
	}
	m.viewport.SetContent(m.renderDiff(c))
}

func (m ReviewModel) currentChange() (*planreview.Change, bool) {
	if m.currentIndex < 0 || m.currentIndex >= len(m.ids) {
		return nil, false
	}
	return m.engine.Store().Change(m.ids[m.currentIndex])
}

func (m ReviewModel) findNextPending() int {
	store := m.engine.Store()
	n := len(m.ids)
	for offset := 1; offset <= n; offset++ {
		idx := (m.currentIndex + offset) % n
		if c, ok := store.Change(m.ids[idx]); ok && c.Pending() && !c.Applied {
			return idx
		}
	}
	return -1
}

// View implements tea.Model.
func (m ReviewModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.mode == ModeEdit {
		b.WriteString(m.editInput.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m ReviewModel) renderHeader() string {
	c, ok := m.currentChange()
	if !ok {
		return m.styles.header.Render("planreview")
	}
	scene := c.SceneID
	if s, ok := m.engine.Store().SceneOf(c.ID); ok && s.Label != "" {
		scene = s.Label
	}
	title := fmt.Sprintf(" %s · %s · %d%%", scene, c.Field, int(c.Confidence*100+0.5))
	if c.Type == planreview.TypeText {
		title += fmt.Sprintf(" · %d%% similar",
			valuediff.Similarity(c.Current.Canonical(), c.EffectiveValue().Canonical()))
	}
	title += fmt.Sprintf(" [%d/%d] %s", m.currentIndex+1, len(m.ids), m.statusMarker(c))
	return m.styles.header.Width(m.width).Render(title)
}

func (m ReviewModel) statusMarker(c *planreview.Change) string {
	switch {
	case c.Applied:
		return m.styles.accepted.Render("applied")
	case c.Accepted:
		return m.styles.accepted.Render("✓ accepted")
	case c.Rejected:
		return m.styles.rejected.Render("✗ rejected")
	default:
		return m.styles.pending.Render("· pending")
	}
}

func (m ReviewModel) renderDiff(c *planreview.Change) string {
	result, err := m.differ.Diff(c.Current, c.EffectiveValue(), c.Type)
	if err != nil {
		return fmt.Sprintf("cannot diff: %v", err)
	}

	var b strings.Builder
	for _, part := range result.Parts {
		switch part.Kind {
		case planreview.DiffAdd:
			b.WriteString(m.styles.added.Render(part.Text))
		case planreview.DiffRemove:
			b.WriteString(m.styles.removed.Render(part.Text))
		default:
			b.WriteString(m.styles.context.Render(part.Text))
		}
	}
	if result.Array != nil && len(result.Array.Moved) > 0 {
		b.WriteString("\n\n")
		for _, mv := range result.Array.Moved {
			b.WriteString(m.styles.moved.Render(fmt.Sprintf("~ %s moved %d → %d\n", mv.Item, mv.From, mv.To)))
		}
	}
	if c.Edited != nil {
		b.WriteString("\n\n")
		b.WriteString(m.styles.moved.Render("(edited by reviewer)"))
	}
	return b.String()
}

func (m ReviewModel) renderFooter() string {
	stats := m.engine.Store().Statistics()
	line := fmt.Sprintf(" %d pending · %d accepted · %d rejected · %.0f%% accepted",
		stats.Pending, stats.Accepted, stats.Rejected, stats.AcceptanceRate)
	if m.status != "" {
		line += " · " + m.status
	}
	help := " a accept · r reject · e edit · u undo · n next pending · q quit"
	return m.styles.footer.Width(m.width).Render(line) + "\n" + m.styles.context.Render(help)
}

// styleSet precomputes lipgloss styles from a theme.
type styleSet struct {
	added    lipgloss.Style
	removed  lipgloss.Style
	context  lipgloss.Style
	moved    lipgloss.Style
	header   lipgloss.Style
	accepted lipgloss.Style
	rejected lipgloss.Style
	pending  lipgloss.Style
	footer   lipgloss.Style
}

func newStyleSet(theme planreview.Theme) styleSet {
	s := theme.Styles()
	return styleSet{
		added:    styleFor(s.Added),
		removed:  styleFor(s.Removed),
		context:  styleFor(s.Context),
		moved:    styleFor(s.Moved),
		header:   styleFor(s.Header).Bold(true),
		accepted: styleFor(s.Accepted),
		rejected: styleFor(s.Rejected),
		pending:  styleFor(s.Pending),
		footer:   styleFor(s.Footer),
	}
}

func styleFor(pair planreview.ColorPair) lipgloss.Style {
	style := lipgloss.NewStyle()
	if pair.Foreground != "" {
		style = style.Foreground(lipgloss.Color(pair.Foreground))
	}
	if pair.Background != "" {
		style = style.Background(lipgloss.Color(pair.Background))
	}
	return style
}

// parseInput converts the edit-input string into a value of the change's
// declared type.
func parseInput(t planreview.ValueType, s string) (*planreview.Value, error) {
	s = strings.TrimSpace(s)
	switch t {
	case planreview.TypeText:
		return planreview.TextValue(s), nil
	case planreview.TypeArray:
		if s == "" {
			return planreview.ArrayValue(), nil
		}
		parts := strings.Split(s, ",")
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		return planreview.ArrayValue(items...), nil
	case planreview.TypeObject:
		fields := map[string]string{}
		if s == "" {
			return planreview.ObjectValue(fields), nil
		}
		for _, pair := range strings.Split(s, ";") {
			k, v, ok := strings.Cut(pair, ":")
			if !ok {
				return nil, fmt.Errorf("expected key: value pairs separated by %q", ";")
			}
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		return planreview.ObjectValue(fields), nil
	case planreview.TypeDate:
		d, err := time.Parse(planreview.DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("expected date as %s", planreview.DateLayout)
		}
		return planreview.DateValue(d), nil
	case planreview.TypeNumber:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number")
		}
		return planreview.NumberValue(n), nil
	}
	return nil, fmt.Errorf("unsupported value type %q", t)
}
