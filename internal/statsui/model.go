// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/verte-zerg/mantra/internal/counter"
	"github.com/verte-zerg/mantra/internal/logger"
	"github.com/verte-zerg/mantra/internal/model"
	"github.com/verte-zerg/mantra/internal/stats"
)

const (
	tabWeek = iota
	tabMonth
	tabYear
	tabMantras
)

const (
	plotHeight = 10
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the data the stats screen reads.
type Source interface {
	stats.ReadingSource
	ListMantras(ctx context.Context, filter model.MantraFilter) ([]model.Mantra, error)
}

// changeMsg reports that the database was modified.
type changeMsg struct{}

// Model implements the Bubble Tea stats UI.
type Model struct {
	ctx context.Context
	src Source
	cal stats.Calendar
	cfg model.StatsConfig

	mantras   []model.Mantra
	report    stats.Report
	summaries []stats.MantraSummary
	errMsg    string
	notice    string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	mantraTable table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	changes <-chan struct{}
}

// NewModel constructs a stats UI model. cfg.MantraID selects one mantra; empty
// means every mantra.
func NewModel(ctx context.Context, src Source, cal stats.Calendar, cfg model.StatsConfig, changes <-chan struct{}) *Model {
	m := &Model{
		ctx:     ctx,
		src:     src,
		cal:     cal,
		cfg:     cfg,
		tabs:    []string{"Week", "Month", "Year", "Mantras"},
		changes: changes,
	}
	m.initInputs()
	m.initMantraTable()
	m.initViewports()
	m.refreshReport()
	return m
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
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case changeMsg:
		m.refreshReport()
		return m, m.waitForChange()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.activeTab == tabMantras {
			m.mantraTable.Focus()
		} else {
			m.mantraTable.Blur()
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[", ",":
			m.stepPeriod(1)
			return m, nil
		case "]", ".":
			m.stepPeriod(-1)
			return m, nil
		case "0":
			m.resetPeriod()
			return m, nil
		case "m":
			m.cycleMantra()
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabMantras {
				m.mantraTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabMantras {
				m.mantraTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabMantras {
				var cmd tea.Cmd
				m.mantraTable, cmd = m.mantraTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// Config returns the current selection.
func (m *Model) Config() model.StatsConfig {
	return m.cfg
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, tabMantras)
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	_, week := m.cal.CurrentWeek()
	m.filterInputs = []textinput.Model{
		newFilterInput(fmt.Sprintf("Week (0-%d): ", week)),
		newFilterInput("Month (0-12): "),
		newFilterInput(fmt.Sprintf("Year (0 or %d-%d): ", stats.EpochYear, m.cal.CurrentYear())),
	}
	m.setInputsFromConfig()
}

func (m *Model) initMantraTable() {
	m.mantraTable = buildMantraTable(nil, 0, 1)
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && (m.errMsg != "" || m.notice != "") {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 4
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	m.filterInputs[0].SetValue(strconv.Itoa(m.cfg.Week))
	m.filterInputs[1].SetValue(strconv.Itoa(m.cfg.Month))
	m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.Year))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.mantraTable.SetWidth(m.width)
	m.mantraTable.SetHeight(maxInt(1, vpHeight-1))
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(6, minInt(10, m.width-promptWidth-2))
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabMantras {
		m.mantraTable.Focus()
	} else {
		m.mantraTable.Blur()
	}
}

// stepPeriod moves the active tab's selector through the browsing order:
// positive delta goes to older periods.
func (m *Model) stepPeriod(delta int) {
	g, ok := granularityFor(m.activeTab)
	if !ok {
		return
	}
	selectors := m.cal.Selectors(g)
	current := m.selectorN(g)
	idx := 0
	for i, sel := range selectors {
		if sel.N == current {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 || idx >= len(selectors) {
		return
	}
	m.setSelectorN(g, selectors[idx].N)
	m.refreshReport()
}

func (m *Model) resetPeriod() {
	g, ok := granularityFor(m.activeTab)
	if !ok {
		return
	}
	m.setSelectorN(g, 0)
	m.refreshReport()
}

func (m *Model) selectorN(g stats.Granularity) int {
	switch g {
	case stats.Week:
		return m.cfg.Week
	case stats.Month:
		return m.cfg.Month
	default:
		return m.cfg.Year
	}
}

func (m *Model) setSelectorN(g stats.Granularity, n int) {
	switch g {
	case stats.Week:
		m.cfg.Week = n
	case stats.Month:
		m.cfg.Month = n
	default:
		m.cfg.Year = n
	}
}

func granularityFor(tab int) (stats.Granularity, bool) {
	switch tab {
	case tabWeek:
		return stats.Week, true
	case tabMonth:
		return stats.Month, true
	case tabYear:
		return stats.Year, true
	default:
		return 0, false
	}
}

// cycleMantra moves the scope from all mantras through each mantra and back.
func (m *Model) cycleMantra() {
	if len(m.mantras) == 0 {
		return
	}
	next := 0
	if m.cfg.MantraID != "" {
		next = len(m.mantras)
		for i, item := range m.mantras {
			if item.ID == m.cfg.MantraID {
				next = i + 1
				break
			}
		}
	}
	if next >= len(m.mantras) {
		m.cfg.MantraID = ""
	} else {
		m.cfg.MantraID = m.mantras[next].ID
	}
	m.refreshReport()
}

func (m *Model) scopeTitle() string {
	if m.cfg.MantraID == "" {
		return "All mantras"
	}
	for _, item := range m.mantras {
		if item.ID == m.cfg.MantraID {
			return item.Title
		}
	}
	return m.cfg.MantraID
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	summary := fmt.Sprintf("Scope: %s  week=%s  month=%s  year=%s",
		m.scopeTitle(),
		m.cal.Title(stats.WeekOf(m.cfg.Week)),
		m.cal.Title(stats.MonthOf(m.cfg.Month)),
		m.cal.Title(stats.YearOf(m.cfg.Year)),
	)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Period: [/] (0 resets)  Mantra: m  Select: /  Scroll: up/down  Quit: q"
	if m.activeTab == tabMantras {
		help = "Nav: left/right  Rows: up/down  Refresh: r  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFilterHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return m.renderFilterHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	if m.notice != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.notice)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Periods (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabMantras {
		if len(m.summaries) == 0 {
			return fitLines("No mantras found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.mantraTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	m.notice = m.resetStaleSelectors()
	mantras, err := m.src.ListMantras(m.ctx, model.MantraFilter{})
	if err != nil {
		m.fail(err)
		return
	}
	m.mantras = mantras

	report, err := stats.BuildReport(m.ctx, m.src, m.cal, m.cfg)
	if err != nil {
		m.fail(err)
		return
	}
	summaries, err := stats.Summaries(m.ctx, m.src, m.cal, mantras)
	if err != nil {
		m.fail(err)
		return
	}
	m.errMsg = ""
	m.report = report
	m.summaries = summaries
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	cols, rows := buildMantraTableData(summaries)
	m.mantraTable.SetColumns(cols)
	m.mantraTable.SetRows(rows)
	m.mantraTable.SetWidth(width)
	m.mantraTable.SetHeight(maxInt(1, bodyHeight-1))
	m.renderTabContents()
}

// resetStaleSelectors moves any browsed period the calendar no longer accepts
// back to its rolling window, as happens to a week number once the year rolls
// over. It returns a notice naming what was reset, or "".
func (m *Model) resetStaleSelectors() string {
	fields := []struct {
		sel    stats.Selector
		target *int
	}{
		{stats.WeekOf(m.cfg.Week), &m.cfg.Week},
		{stats.MonthOf(m.cfg.Month), &m.cfg.Month},
		{stats.YearOf(m.cfg.Year), &m.cfg.Year},
	}
	var reset []string
	for _, f := range fields {
		if err := m.cal.Validate(f.sel); err != nil {
			logger.Warn("stats period out of range, using rolling window", "error", err)
			reset = append(reset, err.Error())
			*f.target = 0
		}
	}
	if len(reset) == 0 {
		return ""
	}
	return "Showing rolling window instead: " + strings.Join(reset, "; ")
}

func (m *Model) fail(err error) {
	logger.Error("failed to load stats", "error", err)
	m.errMsg = err.Error()
	for i := range m.viewports {
		m.viewports[i].SetContent("Failed to load stats.")
	}
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabWeek].SetContent(renderSection(m.report.Week, width))
	m.viewports[tabMonth].SetContent(renderSection(m.report.Month, width))
	m.viewports[tabYear].SetContent(renderSection(m.report.Year, width))
}

func renderSection(section stats.Section, width int) string {
	cards := renderSummaryCards(section, width)
	var buf bytes.Buffer
	opts := stats.RenderOptions{Width: width, Height: plotHeight, Table: true, Color: true}
	if err := stats.RenderSection(&buf, section, opts); err != nil {
		return fmt.Sprintf("Failed to render chart: %v", err)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(section stats.Section, width int) string {
	series := section.Series
	total := series.Total()
	avg := 0.0
	active := 0
	if len(series) > 0 {
		avg = float64(total) / float64(len(series))
	}
	for _, b := range series {
		if b.Total > 0 {
			active++
		}
	}
	unit := "day"
	if section.Selector.Granularity == stats.Year {
		unit = "month"
	}
	cards := []string{
		metricCard("Total", strconv.Itoa(total)),
		metricCard("Best "+unit, strconv.Itoa(series.Max())),
		metricCard("Avg / "+unit, fmt.Sprintf("%.1f", avg)),
		metricCard("Rounds", fmt.Sprintf("%.1f", float64(total)/counter.RoundSize)),
		metricCard("Active "+unit+"s", fmt.Sprintf("%d/%d", active, len(series))),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func buildMantraTable(summaries []stats.MantraSummary, width, height int) table.Model {
	cols, rows := buildMantraTableData(summaries)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(mantraTableStyles())
	return t
}

func buildMantraTableData(summaries []stats.MantraSummary) ([]table.Column, []table.Row) {
	columns := []table.Column{
		{Title: "", Width: 1},
		{Title: "Title", Width: 32},
		{Title: "Reads", Width: 9},
		{Title: "Goal", Width: 9},
		{Title: "Progress", Width: 8},
		{Title: "7 days", Width: 7},
		{Title: "Trend", Width: 7},
	}
	rows := make([]table.Row, 0, len(summaries))
	for _, s := range summaries {
		fav := ""
		if s.Mantra.IsFavorite {
			fav = "*"
		}
		goal := "-"
		progress := "-"
		if s.Mantra.Goal > 0 {
			goal = strconv.Itoa(int(s.Mantra.Goal))
			progress = fmt.Sprintf("%.0f%%", counter.Progress(s.Mantra.CounterState)*100)
		}
		rows = append(rows, table.Row{
			fav,
			truncateLine(s.Mantra.Title, 32),
			strconv.Itoa(int(s.Mantra.Reads)),
			goal,
			progress,
			strconv.Itoa(s.Recent.Total()),
			stats.Sparkline(s.Recent.Values()),
		})
	}
	return columns, rows
}

func mantraTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

// applyFilter parses and validates the period inputs. Invalid selectors leave
// the current selection untouched.
func (m *Model) applyFilter() error {
	values := make([]int, len(m.filterInputs))
	for i, input := range m.filterInputs {
		text := strings.TrimSpace(input.Value())
		if text == "" {
			continue
		}
		n, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("invalid number %q", text)
		}
		values[i] = n
	}
	selectors := []stats.Selector{stats.WeekOf(values[0]), stats.MonthOf(values[1]), stats.YearOf(values[2])}
	for _, sel := range selectors {
		if err := m.cal.Validate(sel); err != nil {
			return err
		}
	}
	m.cfg.Week = values[0]
	m.cfg.Month = values[1]
	m.cfg.Year = values[2]
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}
