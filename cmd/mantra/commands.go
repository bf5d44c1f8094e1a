package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/mantra/internal/catalog"
	"github.com/verte-zerg/mantra/internal/counter"
	"github.com/verte-zerg/mantra/internal/logger"
	"github.com/verte-zerg/mantra/internal/model"
	"github.com/verte-zerg/mantra/internal/notify"
	"github.com/verte-zerg/mantra/internal/session"
	"github.com/verte-zerg/mantra/internal/stats"
	"github.com/verte-zerg/mantra/internal/statsui"
	"github.com/verte-zerg/mantra/internal/store"
	"github.com/verte-zerg/mantra/internal/tui"
	"github.com/verte-zerg/mantra/internal/watch"
)

const (
	defaultTopMantras = 5
	plainPlotHeight   = 8
)

var (
	counterMantra string

	addGoal int

	listFavorites bool
	listQuery     string

	statsMantra string
	statsWeek   int
	statsMonth  int
	statsYear   int
	statsPlain  bool

	preloadAll  bool
	preloadFile string
)

func runCounterCmd(cmd *cobra.Command, _ []string) error {
	s, st, cleanup, err := prepare(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	current := ""
	if counterMantra != "" {
		m, err := st.FindMantra(ctx, counterMantra)
		if err != nil {
			return mantraLookupError(counterMantra, err)
		}
		current = m.ID
	}

	w := startWatcher(st.Path())
	if w != nil {
		defer closeWatcher(w)
	}

	notifier := notify.NewDesktop(s.Notify)
	cal := stats.NewCalendar(s.Location)
	statsCfg := model.StatsConfig{}
	for {
		// One subscription per program. Unsubscribing releases its pending receive.
		changes, unsubscribe := subscribe(w)
		counterModel, err := tui.NewModel(ctx, st, current, s.Sort, changes, session.WithNotifier(notifier))
		if err != nil {
			unsubscribe()
			return err
		}
		program := tea.NewProgram(counterModel, tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = program.Run()
		unsubscribe()
		if err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		if !counterModel.StatsRequested() {
			return nil
		}

		current = counterModel.Current().ID
		statsCfg.MantraID = current
		changes, unsubscribe = subscribe(w)
		statsModel := statsui.NewModel(ctx, st, cal, statsCfg, changes)
		program = tea.NewProgram(statsModel, tea.WithAltScreen(), tea.WithContext(ctx))
		_, err = program.Run()
		unsubscribe()
		if err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		statsCfg = statsModel.Config()
	}
}

// startWatcher watches the database for writes by other processes. Screens
// still work without it, they just do not refresh on their own.
func startWatcher(path string) *watch.Watcher {
	w, err := watch.New(path, 0)
	if err != nil {
		logger.Warn("failed to watch database", "error", err)
		return nil
	}
	return w
}

func closeWatcher(w *watch.Watcher) {
	if err := w.Close(); err != nil {
		logger.Error("failed to close watcher", "error", err)
	}
}

func subscribe(w *watch.Watcher) (<-chan struct{}, func()) {
	if w == nil {
		return nil, func() {}
	}
	return w.Subscribe()
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a mantra",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAddCmd,
	}
	cmd.Flags().IntVar(&addGoal, "goal", defaultGoal, "reading goal (0 means none)")
	return cmd
}

func runAddCmd(cmd *cobra.Command, args []string) error {
	s, st, cleanup, err := prepare(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	goal := addGoal
	applyIntConfig(cmd, "goal", &goal, &s.DefaultGoal)
	if goal < 0 || goal > counter.MaxValue {
		return fmt.Errorf("--goal must be between 0 and %d", counter.MaxValue)
	}
	title := strings.Join(args, " ")
	m, err := st.CreateMantra(cmd.Context(), title, int32(goal))
	if err != nil {
		return fmt.Errorf("failed to add %q: %w", title, err)
	}
	logger.Info("mantra added", "id", m.ID, "title", m.Title)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", m.Title, m.ID)
	return err
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mantras with recent readings",
		Args:  cobra.NoArgs,
		RunE:  runListCmd,
	}
	cmd.Flags().BoolVar(&listFavorites, "favorites", false, "show favorites only")
	cmd.Flags().StringVar(&listQuery, "query", "", "filter by title substring")
	return cmd
}

func runListCmd(cmd *cobra.Command, _ []string) error {
	s, st, cleanup, err := prepare(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	mantras, err := st.ListMantras(ctx, model.MantraFilter{FavoritesOnly: listFavorites, Query: listQuery, Sort: s.Sort})
	if err != nil {
		return fmt.Errorf("failed to list mantras: %w", err)
	}
	summaries, err := stats.Summaries(ctx, st, stats.NewCalendar(s.Location), mantras)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}
	return stats.RenderSummary(cmd.OutOrStdout(), summaries)
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <mantra>",
		Short: "Delete a mantra and its readings",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeleteCmd,
	}
}

func runDeleteCmd(cmd *cobra.Command, args []string) error {
	_, st, cleanup, err := prepare(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	m, err := st.FindMantra(ctx, args[0])
	if err != nil {
		return mantraLookupError(args[0], err)
	}
	if err := st.DeleteMantra(ctx, m.ID); err != nil {
		return fmt.Errorf("failed to delete %q: %w", m.Title, err)
	}
	logger.Info("mantra deleted", "id", m.ID, "title", m.Title)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", m.Title)
	return err
}

func newFavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <mantra>",
		Short: "Toggle the favorite flag of a mantra",
		Args:  cobra.ExactArgs(1),
		RunE:  runFavoriteCmd,
	}
}

func runFavoriteCmd(cmd *cobra.Command, args []string) error {
	_, st, cleanup, err := prepare(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	m, err := st.FindMantra(ctx, args[0])
	if err != nil {
		return mantraLookupError(args[0], err)
	}
	updated, err := session.New(m, st).ToggleFavorite(ctx)
	if err != nil {
		return err
	}
	state := "removed from favorites"
	if updated.IsFavorite {
		state = "added to favorites"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", updated.Title, state)
	return err
}

// newAdjustCmd builds a one-shot adjustment command. There is no undo outside
// the counter screen.
func newAdjustCmd(kind counter.Kind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <mantra> <n>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdjustCmd(cmd, kind, args[0], args[1])
		},
	}
}

func runAdjustCmd(cmd *cobra.Command, kind counter.Kind, ref, value string) error {
	s, st, cleanup, err := prepare(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	req, err := counter.ParseRequest(kind, value)
	if err != nil {
		return err
	}
	m, err := st.FindMantra(ctx, ref)
	if err != nil {
		return mantraLookupError(ref, err)
	}
	res, err := session.New(m, st, session.WithNotifier(notify.NewDesktop(s.Notify))).Adjust(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "%s: %s\n", res.Mantra.Title, formatProgress(res.Mantra.CounterState)); err != nil {
		return err
	}
	if res.GoalReached {
		_, body := notify.GoalMessage(res.Mantra)
		if _, err := fmt.Fprintln(out, body); err != nil {
			return err
		}
	}
	return nil
}

func formatProgress(state model.CounterState) string {
	if state.Goal <= 0 {
		return fmt.Sprintf("%d reads", state.Reads)
	}
	return fmt.Sprintf("%d / %d reads (%.0f%%)", state.Reads, state.Goal, counter.Progress(state)*100)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show reading statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsMantra, "mantra", "", "mantra title or id (default: all mantras)")
	cmd.Flags().IntVar(&statsWeek, "week", 0, "ISO week of this year (0: last 7 days)")
	cmd.Flags().IntVar(&statsMonth, "month", 0, "month 1-12 (0: last 30 days; later than now means last year)")
	cmd.Flags().IntVar(&statsYear, "year", 0, "calendar year (0: last 12 months)")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print text output instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	plain := statsPlain || !isTerminal(os.Stdout)
	s, st, cleanup, err := prepare(cmd, !plain)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	cal := stats.NewCalendar(s.Location)
	cfg := model.StatsConfig{Week: statsWeek, Month: statsMonth, Year: statsYear}
	for _, sel := range []stats.Selector{stats.WeekOf(cfg.Week), stats.MonthOf(cfg.Month), stats.YearOf(cfg.Year)} {
		if err := cal.Validate(sel); err != nil {
			return err
		}
	}

	title := "All mantras"
	if statsMantra != "" {
		m, err := st.FindMantra(ctx, statsMantra)
		if err != nil {
			return mantraLookupError(statsMantra, err)
		}
		cfg.MantraID = m.ID
		title = m.Title
	}

	if !plain {
		w := startWatcher(st.Path())
		if w != nil {
			defer closeWatcher(w)
		}
		changes, unsubscribe := subscribe(w)
		defer unsubscribe()
		program := tea.NewProgram(statsui.NewModel(ctx, st, cal, cfg, changes), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run stats TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(ctx, st, cal, cfg)
	if err != nil {
		return fmt.Errorf("failed to build stats: %w", err)
	}
	out := cmd.OutOrStdout()
	opts := stats.RenderOptions{Height: plainPlotHeight, Table: true}
	if err := stats.RenderReport(out, title, report, opts); err != nil {
		return err
	}
	if cfg.MantraID != "" {
		return nil
	}

	mantras, err := st.ListMantras(ctx, model.MantraFilter{})
	if err != nil {
		return fmt.Errorf("failed to list mantras: %w", err)
	}
	summaries, err := stats.Summaries(ctx, st, cal, mantras)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}
	top := stats.TopMantras(summaries, defaultTopMantras)
	if len(top) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(out, "Top mantras (last 7 days)"); err != nil {
		return err
	}
	return stats.RenderSummary(out, top)
}

func newPreloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preload [title...]",
		Short: "Add well-known mantras from the built-in catalog",
		Long:  "Without arguments, lists the catalog. Titles already tracked are skipped.",
		RunE:  runPreloadCmd,
	}
	cmd.Flags().BoolVar(&preloadAll, "all", false, "add every catalog title")
	cmd.Flags().StringVar(&preloadFile, "file", "", "read the catalog from a file (one title per line)")
	return cmd
}

func runPreloadCmd(cmd *cobra.Command, args []string) error {
	s, st, cleanup, err := prepare(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	titles := catalog.Default()
	if preloadFile != "" {
		titles, err = catalog.LoadTitles(preloadFile)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	existing, err := st.ListMantras(ctx, model.MantraFilter{})
	if err != nil {
		return fmt.Errorf("failed to list mantras: %w", err)
	}
	existingTitles := make([]string, 0, len(existing))
	for _, m := range existing {
		existingTitles = append(existingTitles, m.Title)
	}

	out := cmd.OutOrStdout()
	if len(args) == 0 && !preloadAll {
		missing := catalog.Missing(existingTitles)
		for _, t := range titles {
			mark := "*"
			if missing(t) {
				mark = " "
			}
			if _, err := fmt.Fprintf(out, "%s %s\n", mark, t); err != nil {
				return err
			}
		}
		return nil
	}

	selected := titles
	if len(args) > 0 {
		selected, err = catalog.Select(titles, args)
		if err != nil {
			return err
		}
	}
	toAdd := catalog.Filter(selected, catalog.Missing(existingTitles))
	for _, t := range toAdd {
		m, err := st.CreateMantra(ctx, t, int32(s.DefaultGoal))
		if err != nil {
			return fmt.Errorf("failed to add %q: %w", t, err)
		}
		logger.Info("mantra preloaded", "id", m.ID, "title", m.Title)
	}
	_, err = fmt.Fprintf(out, "Added %d of %d mantras\n", len(toAdd), len(selected))
	return err
}

func mantraLookupError(ref string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("mantra %q not found", ref)
	}
	return fmt.Errorf("failed to find mantra %q: %w", ref, err)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
