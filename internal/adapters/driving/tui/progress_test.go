package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/certsync/internal/core/domain"
)

func newTestProgress(t *testing.T, st *domain.SyncStatus) (*Progress, *MockSyncEngine) {
	t.Helper()
	engine := &MockSyncEngine{}
	p, err := NewProgress(NewPorts(engine, &MockStatusReporter{Status: st}))
	require.NoError(t, err)
	return p, engine
}

func running(fetched int) *domain.SyncStatus {
	return &domain.SyncStatus{
		RunID:   "run-1",
		State:   domain.RunRunning,
		Mode:    domain.ModeFull,
		Fetched: fetched,
		Pages:   fetched / 2,
		Records: fetched,
		Cursor:  "2024-01-01T00:00:00Z",
	}
}

// isQuit reports whether cmd produces tea.QuitMsg.
func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewProgress_InvalidPorts(t *testing.T) {
	_, err := NewProgress(&Ports{})

	assert.ErrorIs(t, err, ErrMissingSyncEngine)
}

func TestProgress_WithPollInterval(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	p.WithPollInterval(0)
	assert.Equal(t, DefaultPollInterval, p.interval)

	p.WithPollInterval(time.Second)
	assert.Equal(t, time.Second, p.interval)
}

func TestProgress_InitPollsStatus(t *testing.T) {
	st := running(4)
	p, _ := newTestProgress(t, st)

	// The poll command is self-contained and can be run directly.
	msg := p.poll()()
	polled, ok := msg.(messages.StatusPolled)
	require.True(t, ok)
	assert.Equal(t, st, polled.Status)
	assert.NotNil(t, p.Init())
}

func TestProgress_StatusPolled_Running(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	_, cmd := p.Update(messages.StatusPolled{Status: running(6)})

	assert.False(t, p.Done())
	assert.NotNil(t, cmd)
	assert.False(t, isQuit(cmd))
	assert.Equal(t, 6, p.Status().Fetched)
	assert.Contains(t, p.View(), "running")
	assert.Contains(t, p.View(), "2024-01-01T00:00:00Z")
}

func TestProgress_StatusPolled_TerminalQuits(t *testing.T) {
	p, _ := newTestProgress(t, nil)
	st := running(6)
	st.State = domain.RunCompleted

	_, cmd := p.Update(messages.StatusPolled{Status: st})

	assert.True(t, p.Done())
	assert.True(t, isQuit(cmd))
	assert.Contains(t, p.View(), "completed")
}

func TestProgress_StatusPolled_ShowsRunError(t *testing.T) {
	p, _ := newTestProgress(t, nil)
	st := running(2)
	st.State = domain.RunFailed
	st.LastError = &domain.RunError{Kind: domain.KindTransport, Message: "503 from server"}

	p.Update(messages.StatusPolled{Status: st})

	view := p.View()
	assert.Contains(t, view, "failed")
	assert.Contains(t, view, "transport: 503 from server")
}

func TestProgress_StatusPolled_ErrorKeepsPolling(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	_, cmd := p.Update(messages.StatusPolled{Err: errors.New("database is locked")})

	assert.False(t, p.Done())
	assert.NotNil(t, cmd)
	assert.EqualError(t, p.Err(), "database is locked")
	assert.Contains(t, p.View(), "database is locked")
}

func TestProgress_StopKeyCancelsEngine(t *testing.T) {
	p, engine := newTestProgress(t, nil)
	p.Update(messages.StatusPolled{Status: running(2)})

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.True(t, p.Stopping())
	assert.Contains(t, p.View(), "Stopping after current page")

	msg := cmd()
	assert.Equal(t, messages.StopCompleted{}, msg)
	assert.Equal(t, 1, engine.Cancels())
}

func TestProgress_SecondStopAborts(t *testing.T) {
	p, engine := newTestProgress(t, nil)
	p.Update(messages.StatusPolled{Status: running(2)})

	p.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, p.Aborted())
	assert.True(t, isQuit(cmd))
	assert.Equal(t, 0, engine.Cancels(), "stop command was never run")
}

func TestProgress_StopCompletedRecordsError(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	_, cmd := p.Update(messages.StopCompleted{Err: errors.New("cancel failed")})

	assert.EqualError(t, p.Err(), "cancel failed")
	assert.NotNil(t, cmd)
}

func TestProgress_QuitAfterDone(t *testing.T) {
	p, engine := newTestProgress(t, nil)
	st := running(2)
	st.State = domain.RunPaused
	p.Update(messages.StatusPolled{Status: st})

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	assert.True(t, isQuit(cmd))
	assert.False(t, p.Stopping())
	assert.Equal(t, 0, engine.Cancels())
}

func TestProgress_OtherKeysIgnored(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})

	assert.Nil(t, cmd)
	assert.False(t, p.Stopping())
}

func TestProgress_WindowSize(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	p.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, 100, p.width)
	assert.Equal(t, 100, p.bar.Width())
}

func TestProgress_ViewBeforeFirstPoll(t *testing.T) {
	p, _ := newTestProgress(t, nil)

	assert.Contains(t, p.View(), "Waiting for status")
}
