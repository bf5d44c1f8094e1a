// Package tui provides the Bubble Tea counter interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/mantra/internal/counter"
	"github.com/verte-zerg/mantra/internal/logger"
	"github.com/verte-zerg/mantra/internal/model"
	"github.com/verte-zerg/mantra/internal/session"
	"github.com/verte-zerg/mantra/internal/store"
)

// InvalidNumberMessage is shown when an adjustment is rejected.
const InvalidNumberMessage = "Please enter a valid number"

// Repository is the persistence the counter screen needs.
type Repository interface {
	session.Repository
	ListMantras(ctx context.Context, filter model.MantraFilter) ([]model.Mantra, error)
}

type mode int

const (
	modeCounter mode = iota
	modeInput
	modeConfirmUndo
)

// changeMsg reports that the database was modified outside this screen.
type changeMsg struct{}

// Model implements the Bubble Tea counter UI.
type Model struct {
	ctx     context.Context
	repo    Repository
	session *session.Session
	opts    []session.Option
	keys    KeyMap
	help    help.Model

	mantras []model.Mantra
	index   int
	sort    model.MantraSort

	mode     mode
	kind     counter.Kind
	input    textinput.Model
	progress progress.Model

	status    string
	statusErr bool
	congrats  string

	changes        <-chan struct{}
	statsRequested bool

	width  int
	height int
}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	countStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	goalStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	congratsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#51CF66")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	favoriteMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD43B")).Render("★")
)

// NewModel constructs a counter TUI model showing the mantra with id current,
// or the first listed mantra when current is empty. Switching mantras follows
// the list in sort order.
func NewModel(ctx context.Context, repo Repository, current string, sort model.MantraSort, changes <-chan struct{}, opts ...session.Option) (*Model, error) {
	mantras, err := repo.ListMantras(ctx, model.MantraFilter{Sort: sort})
	if err != nil {
		return nil, err
	}
	if len(mantras) == 0 {
		return nil, errors.New("no mantras yet; add one with `mantra add <title>` or `mantra preload`")
	}

	input := textinput.New()
	input.CharLimit = 10
	input.Width = 12

	m := &Model{
		ctx:      ctx,
		repo:     repo,
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		mantras:  mantras,
		sort:     sort,
		input:    input,
		progress: progress.New(progress.WithScaledGradient("#ff6b6b", "#51cf66"), progress.WithWidth(40)),
		changes:  changes,
	}
	for i, item := range mantras {
		if item.ID == current {
			m.index = i
		}
	}
	m.session = session.New(mantras[m.index], repo, opts...)
	return m, nil
}

// StatsRequested reports whether the user left the counter to open statistics.
func (m *Model) StatsRequested() bool {
	return m.statsRequested
}

// Current returns the mantra on screen.
func (m *Model) Current() model.Mantra {
	return m.session.Mantra()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = progressWidth(msg.Width)
		return m, nil
	case changeMsg:
		m.refresh()
		return m, m.waitForChange()
	case tea.KeyMsg:
		switch m.mode {
		case modeInput:
			return m.updateInput(msg)
		case modeConfirmUndo:
			return m.updateConfirm(msg)
		default:
			return m.updateCounter(msg)
		}
	default:
		return m, nil
	}
}

func (m *Model) updateCounter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Increment):
		m.apply(counter.Reads(1))
	case key.Matches(msg, m.keys.AddReads):
		return m, m.startInput(counter.KindReads)
	case key.Matches(msg, m.keys.AddRounds):
		return m, m.startInput(counter.KindRounds)
	case key.Matches(msg, m.keys.SetValue):
		return m, m.startInput(counter.KindValue)
	case key.Matches(msg, m.keys.SetGoal):
		return m, m.startInput(counter.KindGoal)
	case key.Matches(msg, m.keys.Undo):
		if !m.session.CanUndo() {
			m.setStatus("Nothing to undo", false)
			return m, nil
		}
		m.mode = modeConfirmUndo
	case key.Matches(msg, m.keys.Favorite):
		updated, err := m.session.ToggleFavorite(m.ctx)
		if err != nil {
			m.fail("toggle favorite", err)
			return m, nil
		}
		m.mantras[m.index] = updated
		if updated.IsFavorite {
			m.setStatus("Added to favorites", false)
		} else {
			m.setStatus("Removed from favorites", false)
		}
	case key.Matches(msg, m.keys.Next):
		m.switchTo(m.index + 1)
	case key.Matches(msg, m.keys.Prev):
		m.switchTo(m.index - 1)
	case key.Matches(msg, m.keys.Stats):
		m.statsRequested = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case msg.Type == tea.KeyEsc:
		m.endInput()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		kind := m.kind
		m.endInput()
		req, err := counter.ParseRequest(kind, text)
		if err != nil {
			m.setStatus(InvalidNumberMessage, true)
			return m, nil
		}
		m.apply(req)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		return m, tea.Quit
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeCounter
		res, err := m.session.Undo(m.ctx)
		if err != nil {
			if errors.Is(err, counter.ErrEmptyHistory) {
				m.setStatus("Nothing to undo", false)
				return m, nil
			}
			m.fail("undo", err)
			return m, nil
		}
		m.mantras[m.index] = res.Mantra
		m.congrats = ""
		m.setStatus("Undone", false)
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeCounter
		m.setStatus("", false)
	}
	return m, nil
}

func (m *Model) startInput(kind counter.Kind) tea.Cmd {
	m.mode = modeInput
	m.kind = kind
	m.input.Reset()
	m.input.Placeholder = "0"
	m.input.Prompt = inputPrompt(kind)
	m.setStatus("", false)
	return m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = modeCounter
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) apply(req counter.Request) {
	res, err := m.session.Adjust(m.ctx, req)
	if err != nil {
		if errors.Is(err, counter.ErrInvalidAdjustment) || errors.Is(err, counter.ErrArithmeticOverflow) {
			m.setStatus(InvalidNumberMessage, true)
			return
		}
		m.fail("save", err)
		return
	}
	m.mantras[m.index] = res.Mantra
	m.setStatus("", false)
	if res.GoalReached {
		m.congrats = fmt.Sprintf("Congratulations! You reached your goal of %d.", res.Mantra.Goal)
	} else if res.Mantra.Goal == 0 || res.Mantra.Reads < res.Mantra.Goal {
		m.congrats = ""
	}
}

// switchTo moves to another mantra. The undo history belongs to the mantra on
// screen, so switching clears it.
func (m *Model) switchTo(index int) {
	if len(m.mantras) < 2 {
		return
	}
	index = (index + len(m.mantras)) % len(m.mantras)
	fresh, err := m.repo.GetMantra(m.ctx, m.mantras[index].ID)
	if err != nil {
		m.fail("load mantra", err)
		return
	}
	m.index = index
	m.mantras[index] = fresh
	m.session.Reload(fresh)
	m.congrats = ""
	m.setStatus("", false)
}

// refresh reloads the list and the current mantra after an external change.
func (m *Model) refresh() {
	current := m.session.Mantra()
	fresh, err := m.repo.GetMantra(m.ctx, current.ID)
	deleted := errors.Is(err, store.ErrNotFound)
	if err != nil && !deleted {
		logger.Warn("reload mantra failed", "mantra", current.ID, "error", err)
		return
	}

	mantras, err := m.repo.ListMantras(m.ctx, model.MantraFilter{Sort: m.sort})
	if err != nil {
		logger.Warn("reload mantras failed", "error", err)
		return
	}
	if len(mantras) == 0 {
		m.session.Close()
		m.mantras = nil
		m.setStatus("All mantras were deleted", true)
		return
	}
	m.mantras = mantras

	if deleted {
		m.session.Close()
		m.index = 0
		m.session.Reload(mantras[0])
		m.congrats = ""
		m.setStatus(fmt.Sprintf("%q was deleted", current.Title), true)
		return
	}
	for i, item := range mantras {
		if item.ID == fresh.ID {
			m.index = i
		}
	}
	m.session.Reload(fresh)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) fail(action string, err error) {
	logger.Error("counter action failed", "action", action, "error", err)
	m.setStatus(fmt.Sprintf("Failed to %s: %v", action, err), true)
}

// View implements tea.Model.
func (m *Model) View() string {
	if len(m.mantras) == 0 {
		return m.renderStatus() + "\n"
	}
	current := m.session.Mantra()
	contentWidth := m.width * 70 / 100
	if contentWidth < 20 {
		contentWidth = 20
	}

	var lines []string
	title := wrapStyledRunes(styleRunes(current.Title, titleStyle), contentWidth)
	if current.IsFavorite {
		title = favoriteMark + " " + title
	}
	lines = append(lines, title, "")
	lines = append(lines, countStyle.Render(formatCount(current.Reads)))
	if current.Goal > 0 {
		lines = append(lines,
			goalStyle.Render(fmt.Sprintf("of %s · %s left", formatCount(current.Goal), formatCount(counter.Remaining(current.CounterState)))),
			m.progress.ViewAs(clampPercent(counter.Progress(current.CounterState))),
		)
	} else {
		lines = append(lines, goalStyle.Render("no goal set"))
	}
	lines = append(lines, "")
	if m.congrats != "" {
		lines = append(lines, congratsStyle.Render(m.congrats))
	}
	switch m.mode {
	case modeInput:
		lines = append(lines, m.input.View())
	case modeConfirmUndo:
		lines = append(lines, "Undo the last change? (y/n)")
	}
	if status := m.renderStatus(); status != "" {
		lines = append(lines, status)
	}

	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + footer
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return goalStyle.Render(m.status)
}

func (m *Model) renderFooter() string {
	position := fmt.Sprintf("%d/%d", m.index+1, len(m.mantras))
	segments := []string{position}
	if n := m.session.HistoryLen(); n > 0 {
		segments = append(segments, fmt.Sprintf("undo %d", n))
	}
	return footerStyle.Render(strings.Join(segments, "  ")) + "  " + m.help.View(m.keys)
}

func inputPrompt(kind counter.Kind) string {
	switch kind {
	case counter.KindReads:
		return "Add reads: "
	case counter.KindRounds:
		return "Add rounds: "
	case counter.KindValue:
		return "Set value: "
	default:
		return "Set goal: "
	}
}

func formatCount(n int32) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 || len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func progressWidth(total int) int {
	w := total / 2
	if w < 10 {
		return 10
	}
	if w > 60 {
		return 60
	}
	return w
}
