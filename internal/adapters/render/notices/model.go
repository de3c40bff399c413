package notices

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hms-project/hmsctl/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

const syncLabel = "Checking payments and registrations..."

type renderReadyMsg struct{}

type syncDoneMsg struct {
	err error
}

// model either renders a known notice list right away, or first waits for a sync while a
// spinner runs and then renders whatever the sync left behind.
type model struct {
	opts    RenderOptions
	styles  styles
	notices []domain.Notice

	syncing bool
	spinner spinner.Model
	sync    tea.Cmd
	load    func() []domain.Notice
	err     error

	output string
}

func newModel(notices []domain.Notice, opts RenderOptions) model {
	return model{
		notices: notices,
		opts:    opts,
		styles:  newStyles(),
	}
}

func newSyncModel(sync tea.Cmd, load func() []domain.Notice, opts RenderOptions) model {
	m := newModel(nil, opts)
	m.syncing = true
	m.sync = sync
	m.load = load
	m.spinner = spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(m.styles.spinner),
	)
	return m
}

func (m model) Init() tea.Cmd {
	if m.syncing {
		return tea.Batch(m.spinner.Tick, m.sync)
	}
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case syncDoneMsg:
		m.syncing = false
		m.err = msg.err
		if m.err != nil {
			return m, tea.Quit
		}
		m.notices = m.load()
		m.output = renderView(m.notices, m.opts, m.styles)
		return m, tea.Quit
	case renderReadyMsg:
		m.output = renderView(m.notices, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

// View is the live frame: the spinner during a sync, then a one-line summary. The full list is
// returned to the caller instead of being drawn.
func (m model) View() string {
	switch {
	case m.syncing:
		return fmt.Sprintf("%s %s", m.spinner.View(), syncLabel)
	case m.err != nil:
		return ""
	default:
		return m.styles.header.Render(fmt.Sprintf("%d notice(s) up to date", len(m.notices)))
	}
}

func Render(notices []domain.Notice, opts RenderOptions) (string, error) {
	rendered, err := run(context.Background(), newModel(notices, opts), io.Discard)
	if err != nil {
		return "", err
	}
	return rendered.output, nil
}

// SyncAndRender shows a spinner on progress while sync runs, then renders the list returned by load.
// A sync error is returned as is and nothing is rendered.
func SyncAndRender(ctx context.Context, progress io.Writer, sync func(context.Context) error, load func() []domain.Notice, opts RenderOptions) (string, error) {
	syncCmd := func() tea.Msg {
		return syncDoneMsg{err: sync(ctx)}
	}

	rendered, err := run(ctx, newSyncModel(syncCmd, load, opts), progress)
	if err != nil {
		return "", err
	}
	if rendered.err != nil {
		return "", rendered.err
	}
	return rendered.output, nil
}

func run(ctx context.Context, m model, output io.Writer) (model, error) {
	p := tea.NewProgram(
		m,
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return model{}, err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return model{}, ErrUnexpectedRenderModel
	}

	return rendered, nil
}
