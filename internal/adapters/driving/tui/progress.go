package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/certsync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/certsync/internal/core/domain"
)

// DefaultPollInterval is how often the view polls the status reporter.
const DefaultPollInterval = 250 * time.Millisecond

// Progress renders a live view of the active sync run.
// It implements tea.Model and quits once the run reaches a terminal state.
type Progress struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	spinner spinner.Model
	bar     *status.Bar

	interval time.Duration
	status   *domain.SyncStatus
	err      error

	stopping bool
	aborted  bool
	done     bool
	width    int
}

// Ensure Progress implements tea.Model.
var _ tea.Model = (*Progress)(nil)

// NewProgress creates a progress view over the given ports.
func NewProgress(ports *Ports) (*Progress, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating progress view: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &Progress{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(s.Spinner)),
		bar:      status.NewBar(s, km),
		interval: DefaultPollInterval,
		width:    60,
	}, nil
}

// WithContext sets the context used for status polls and stop requests.
func (p *Progress) WithContext(ctx context.Context) *Progress {
	p.ctx = ctx
	return p
}

// WithPollInterval overrides the status poll interval.
func (p *Progress) WithPollInterval(d time.Duration) *Progress {
	if d > 0 {
		p.interval = d
	}
	return p
}

// Init implements tea.Model.
func (p *Progress) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, p.poll())
}

// Update implements tea.Model.
func (p *Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.bar.SetWidth(msg.Width)
		return p, nil

	case tea.KeyMsg:
		return p.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case messages.Tick:
		return p, p.poll()

	case messages.StatusPolled:
		return p.handleStatus(msg)

	case messages.StopCompleted:
		if msg.Err != nil {
			p.err = msg.Err
		}
		return p, p.poll()
	}

	return p, nil
}

func (p *Progress) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if p.done {
		if keymap.Matches(k, p.keymap.Quit) || keymap.Matches(k, p.keymap.Stop) {
			return p, tea.Quit
		}
		return p, nil
	}

	if keymap.Matches(k, p.keymap.Stop) || keymap.Matches(k, p.keymap.Quit) {
		if p.stopping {
			// Second press: stop waiting for the page boundary.
			p.aborted = true
			return p, tea.Quit
		}
		p.stopping = true
		p.bar.SetStopping(true)
		return p, p.stop()
	}

	return p, nil
}

func (p *Progress) handleStatus(msg messages.StatusPolled) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		p.err = msg.Err
		return p, p.tick()
	}
	if msg.Status == nil {
		return p, p.tick()
	}

	p.status = msg.Status
	p.bar.SetState(msg.Status.State)
	p.bar.SetMessage(fmt.Sprintf("%d records", msg.Status.Records))

	if msg.Status.State.IsTerminal() {
		p.done = true
		return p, tea.Quit
	}
	return p, p.tick()
}

func (p *Progress) poll() tea.Cmd {
	reporter := p.ports.Status
	ctx := p.ctx
	return func() tea.Msg {
		st, err := reporter.CurrentStatus(ctx)
		return messages.StatusPolled{Status: st, Err: err}
	}
}

func (p *Progress) tick() tea.Cmd {
	return tea.Tick(p.interval, func(t time.Time) tea.Msg {
		return messages.Tick{At: t}
	})
}

func (p *Progress) stop() tea.Cmd {
	engine := p.ports.Engine
	ctx := p.ctx
	return func() tea.Msg {
		return messages.StopCompleted{Err: engine.Cancel(ctx)}
	}
}

// View implements tea.Model.
func (p *Progress) View() string {
	var b strings.Builder

	header := p.styles.Title.Render("certsync")
	if !p.done {
		header = p.spinner.View() + " " + header
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if p.status == nil {
		b.WriteString(p.styles.Help.Render("Waiting for status..."))
	} else {
		b.WriteString(p.renderStatus(p.status))
	}

	if p.err != nil {
		b.WriteString("\n")
		b.WriteString(p.styles.Error.Render(fmt.Sprintf("Error: %v", p.err)))
	}

	panel := p.styles.Border.Render(b.String())
	return lipgloss.JoinVertical(lipgloss.Left, panel, p.bar.View()) + "\n"
}

func (p *Progress) renderStatus(st *domain.SyncStatus) string {
	rows := []string{
		p.row("State", p.styles.ForState(st.State).Render(st.State.String())),
		p.row("Mode", p.styles.Value.Render(string(st.Mode))),
		p.row("Fetched", p.styles.Counter.Render(fmt.Sprintf("%d", st.Fetched))),
		p.row("Pages", p.styles.Counter.Render(fmt.Sprintf("%d", st.Pages))),
		p.row("Stored", p.styles.Value.Render(fmt.Sprintf("%d", st.Records))),
	}
	if st.Cursor != "" {
		rows = append(rows, p.row("Cursor", p.styles.Value.Render(st.Cursor)))
	}
	if st.LastError != nil {
		msg := fmt.Sprintf("%s: %s", st.LastError.Kind, st.LastError.Message)
		rows = append(rows, p.row("Error", p.styles.Error.Render(msg)))
	}
	return strings.Join(rows, "\n")
}

func (p *Progress) row(label, value string) string {
	return p.styles.Label.Render(label) + value
}

// Run starts the progress view and blocks until it quits.
func (p *Progress) Run() error {
	prog := tea.NewProgram(p, tea.WithContext(p.ctx))
	_, err := prog.Run()
	return err
}

// Status returns the last polled status.
func (p *Progress) Status() *domain.SyncStatus {
	return p.status
}

// Stopping reports whether a stop was requested.
func (p *Progress) Stopping() bool {
	return p.stopping
}

// Aborted reports whether the user gave up waiting for the stop.
func (p *Progress) Aborted() bool {
	return p.aborted
}

// Done reports whether the run reached a terminal state.
func (p *Progress) Done() bool {
	return p.done
}

// Err returns the last polling or stop error.
func (p *Progress) Err() error {
	return p.err
}
