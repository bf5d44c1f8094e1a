package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/mantra/internal/model"
	"github.com/verte-zerg/mantra/internal/store"
)

func openStore(t *testing.T, titles ...string) (*store.Store, []model.Mantra) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "mantra.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	var created []model.Mantra
	for _, title := range titles {
		m, err := st.CreateMantra(context.Background(), title, 0)
		require.NoError(t, err)
		created = append(created, m)
	}
	return st, created
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func typeText(t *testing.T, m *Model, text string) {
	t.Helper()
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewModelRequiresMantras(t *testing.T) {
	st, _ := openStore(t)
	_, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	assert.Error(t, err)
}

func TestIncrementAndUndo(t *testing.T) {
	st, created := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "space", "space", "enter")
	assert.Equal(t, int32(3), m.Current().Reads)

	press(t, m, "u")
	assert.Equal(t, modeConfirmUndo, m.mode)
	press(t, m, "y")
	assert.Equal(t, int32(2), m.Current().Reads)

	saved, err := st.GetMantra(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), saved.Reads)

	events, err := st.ListReadings(context.Background(), model.ReadingFilter{MantraID: created[0].ID})
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestUndoCancelled(t *testing.T) {
	st, _ := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "space", "u", "esc")
	assert.Equal(t, modeCounter, m.mode)
	assert.Equal(t, int32(1), m.Current().Reads)

	press(t, m, "u", "y", "u")
	assert.Equal(t, modeCounter, m.mode)
	assert.Equal(t, "Nothing to undo", m.status)
}

func TestRoundsInput(t *testing.T) {
	st, _ := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "o")
	assert.Equal(t, modeInput, m.mode)
	typeText(t, m, "2")
	press(t, m, "enter")
	assert.Equal(t, modeCounter, m.mode)
	assert.Equal(t, int32(216), m.Current().Reads)
}

func TestInvalidInputShowsMessage(t *testing.T) {
	st, _ := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "r")
	typeText(t, m, "abc")
	press(t, m, "enter")
	assert.Equal(t, InvalidNumberMessage, m.status)
	assert.True(t, m.statusErr)
	assert.Equal(t, int32(0), m.Current().Reads)

	press(t, m, "v")
	typeText(t, m, "1000001")
	press(t, m, "enter")
	assert.Equal(t, InvalidNumberMessage, m.status)
	assert.Equal(t, int32(0), m.Current().Reads)
}

func TestGoalReachedShowsCongratulations(t *testing.T) {
	st, _ := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "g")
	typeText(t, m, "2")
	press(t, m, "enter")
	assert.Equal(t, int32(2), m.Current().Goal)

	press(t, m, "space")
	assert.Empty(t, m.congrats)
	press(t, m, "space")
	assert.Contains(t, m.congrats, "Congratulations")
	assert.Contains(t, m.View(), "Congratulations")
}

func TestSwitchFollowsSortOrder(t *testing.T) {
	st, created := openStore(t, "Om", "Gate", "Amrita")
	ctx := context.Background()
	require.NoError(t, st.SaveCounter(ctx, created[0].ID, model.CounterState{}, model.CounterState{Reads: 3}, time.Now()))
	require.NoError(t, st.SaveCounter(ctx, created[2].ID, model.CounterState{}, model.CounterState{Reads: 9}, time.Now()))

	m, err := NewModel(ctx, st, "", model.SortTitle, nil)
	require.NoError(t, err)
	assert.Equal(t, "Amrita", m.Current().Title)
	press(t, m, "n")
	assert.Equal(t, "Gate", m.Current().Title)
	press(t, m, "n")
	assert.Equal(t, "Om", m.Current().Title)

	m, err = NewModel(ctx, st, "", model.SortReads, nil)
	require.NoError(t, err)
	assert.Equal(t, "Amrita", m.Current().Title)
	press(t, m, "n")
	assert.Equal(t, "Om", m.Current().Title)
	press(t, m, "n")
	assert.Equal(t, "Gate", m.Current().Title)

	for i := 0; i < 7; i++ {
		press(t, m, "space")
	}
	m.Update(changeMsg{})
	assert.Equal(t, "Gate", m.Current().Title)
	press(t, m, "p")
	assert.Equal(t, "Amrita", m.Current().Title)
	press(t, m, "n", "n")
	assert.Equal(t, "Om", m.Current().Title)
}

func TestSwitchClearsHistory(t *testing.T) {
	st, created := openStore(t, "Om", "Gate")
	m, err := NewModel(context.Background(), st, created[1].ID, model.SortPosition, nil)
	require.NoError(t, err)
	assert.Equal(t, "Gate", m.Current().Title)

	press(t, m, "space")
	assert.True(t, m.session.CanUndo())
	press(t, m, "n")
	assert.Equal(t, "Om", m.Current().Title)
	assert.False(t, m.session.CanUndo())
	press(t, m, "p")
	assert.Equal(t, "Gate", m.Current().Title)
	assert.Equal(t, int32(1), m.Current().Reads)
}

func TestFavoriteToggle(t *testing.T) {
	st, created := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "f")
	assert.True(t, m.Current().IsFavorite)
	saved, err := st.GetMantra(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.True(t, saved.IsFavorite)
}

func TestExternalChangeKeepsHistory(t *testing.T) {
	st, created := openStore(t, "Om")
	ctx := context.Background()
	m, err := NewModel(ctx, st, "", model.SortPosition, nil)
	require.NoError(t, err)

	press(t, m, "space")
	prior := m.Current().CounterState
	next := prior
	next.Reads = 500
	require.NoError(t, st.SaveCounter(ctx, created[0].ID, prior, next, time.Now()))

	m.Update(changeMsg{})
	assert.Equal(t, int32(500), m.Current().Reads)
	assert.True(t, m.session.CanUndo())
}

func TestExternalDeleteSwitchesMantra(t *testing.T) {
	st, created := openStore(t, "Om", "Gate")
	ctx := context.Background()
	m, err := NewModel(ctx, st, created[0].ID, model.SortPosition, nil)
	require.NoError(t, err)
	press(t, m, "space")

	require.NoError(t, st.DeleteMantra(ctx, created[0].ID))
	m.Update(changeMsg{})
	assert.Equal(t, "Gate", m.Current().Title)
	assert.False(t, m.session.CanUndo())
	assert.Contains(t, m.status, "was deleted")
}

func TestStatsRequestQuits(t *testing.T) {
	st, _ := openStore(t, "Om")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.NotNil(t, cmd)
	assert.True(t, m.StatsRequested())
}

func TestViewShowsCounter(t *testing.T) {
	st, _ := openStore(t, "Om Mani Padme Hum")
	m, err := NewModel(context.Background(), st, "", model.SortPosition, nil)
	require.NoError(t, err)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	press(t, m, "v")
	typeText(t, m, "1234")
	press(t, m, "enter")
	view := m.View()
	assert.Contains(t, view, "1,234")
	assert.Contains(t, view, "no goal set")
	assert.Contains(t, view, "1/1")
	assert.True(t, strings.Contains(view, "undo 1"))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "108", formatCount(108))
	assert.Equal(t, "1,080", formatCount(1080))
	assert.Equal(t, "1,000,000", formatCount(1000000))
	assert.Equal(t, "-5", formatCount(-5))
}
