package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fishls/internal/analysis"
)

func TestModelTracksProgress(t *testing.T) {
	events := make(chan analysis.Progress)
	m := NewProgressModel("indexing", events).(*progressModel)

	m.Update(eventMsg(analysis.Progress{Total: 20}))
	for i := 1; i <= 10; i++ {
		ev := analysis.Progress{Done: i, Total: 20, Path: fmt.Sprintf("/ws/f%02d.fish", i)}
		if i == 4 {
			ev.Err = errors.New("permission denied")
		}
		m.Update(eventMsg(ev))
	}

	assert.Equal(t, 10, m.done)
	assert.Equal(t, 20, m.total)
	assert.Equal(t, 1, m.failed)
	require.Len(t, m.recent, recentLimit)
	assert.Equal(t, "/ws/f10.fish", m.recent[len(m.recent)-1].path)

	view := m.View()
	assert.Contains(t, view, "indexing (10/20), 1 failed")
	assert.Contains(t, view, "f10.fish")
	assert.NotContains(t, view, "f01.fish")
}

func TestModelQuitsWhenEventsClose(t *testing.T) {
	events := make(chan analysis.Progress)
	close(events)
	m := NewProgressModel("indexing", events).(*progressModel)

	msg := m.listenForEvent()()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.finished)
	assert.True(t, strings.Contains(m.View(), "done: indexing"))
}

func TestTruncateLeft(t *testing.T) {
	long := "/home/user/.config/fish/functions/very_long_function_name.fish"
	got := truncateLeft(long, 24)
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "function_name.fish"))
	assert.LessOrEqual(t, runewidth.StringWidth(got), 24)

	assert.Equal(t, "short.fish", truncateLeft("short.fish", 24))
	assert.Equal(t, "ab", truncateLeft("abcdef", 2))
}
