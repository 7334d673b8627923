// Package tui implements the card-style annotation browser: one
// annotation at a time, with navigation, editor jump, and deletion. It
// is pure glue over the scanner service's query API.
package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/colonyops/marker/internal/core/annotation"
	"github.com/colonyops/marker/internal/core/config"
	"github.com/colonyops/marker/internal/core/styles"
	"github.com/colonyops/marker/internal/scanner"
)

// statusBuffer bounds queued status snapshots between renders; older
// snapshots are dropped since only the latest matters to the view.
const statusBuffer = 64

type (
	scanStartedMsg struct {
		anns []annotation.Annotation
		err  error
	}
	statusMsg         scanner.Status
	removeDoneMsg     struct{ err error }
	editorFinishedMsg struct{ err error }
)

// Model is the Bubble Tea model for the card browser.
type Model struct {
	svc *scanner.Service
	cfg *config.Config
	log zerolog.Logger

	anns   []annotation.Annotation
	idx    int
	status scanner.Status

	statusCh    chan scanner.Status
	unsubscribe func()

	spin    spinner.Model
	keys    keyMap
	help    help.Model
	confirm *ConfirmModal
	notice  string

	width  int
	height int
}

// New creates the card browser model and subscribes it to scan status
// updates.
func New(svc *scanner.Service, cfg *config.Config, log zerolog.Logger) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.TextPrimaryStyle

	m := &Model{
		svc:      svc,
		cfg:      cfg,
		log:      log.With().Str("component", "tui").Logger(),
		spin:     sp,
		keys:     defaultKeyMap(),
		help:     help.New(),
		statusCh: make(chan scanner.Status, statusBuffer),
	}

	m.unsubscribe = svc.SubscribeStatus(func(st scanner.Status) {
		select {
		case m.statusCh <- st:
		default:
			// Buffer full; the view only needs the latest snapshot.
		}
	})

	return m
}

// Init starts the initial scan and the status pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.startScan, m.waitStatus())
}

// startScan runs the synchronous first batch; the service continues in
// the background on its own.
func (m *Model) startScan() tea.Msg {
	anns, err := m.svc.InitializeScan(context.Background())
	return scanStartedMsg{anns: anns, err: err}
}

// waitStatus blocks until the next status snapshot arrives. The cmd is
// re-armed after every statusMsg.
func (m *Model) waitStatus() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.statusCh
		if !ok {
			return nil
		}
		return statusMsg(st)
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case scanStartedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.anns = msg.anns
		m.clampIndex()
		m.notice = ""
		return m, nil

	case statusMsg:
		m.status = scanner.Status(msg)
		if m.status.State == scanner.StateComplete {
			m.growWindow()
		}
		return m, m.waitStatus()

	case removeDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		// The rescan rebuilt the index; reload the browsing window.
		m.anns = m.svc.NextBatch(0, max(len(m.anns), m.cfg.BatchSize))
		m.clampIndex()
		m.notice = "annotation deleted"
		return m, nil

	case editorFinishedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("editor: %v", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		updated, cmd := m.confirm.Update(msg)
		m.confirm = &updated

		switch {
		case updated.Confirmed():
			m.confirm = nil
			return m, m.removeCurrent()
		case updated.Cancelled():
			m.confirm = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Next):
		m.next()

	case key.Matches(msg, m.keys.Prev):
		if m.idx > 0 {
			m.idx--
		}

	case key.Matches(msg, m.keys.Open):
		if len(m.anns) > 0 {
			return m, m.openEditor(m.anns[m.idx])
		}

	case key.Matches(msg, m.keys.Delete):
		if len(m.anns) > 0 {
			a := m.anns[m.idx]
			modal := NewConfirmModal(fmt.Sprintf("Delete %s at %s:%d?", a.Kind, a.File, a.Line+1))
			m.confirm = &modal
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

// next advances to the following card, growing the loaded window from
// the store when the user reaches its edge.
func (m *Model) next() {
	if m.idx+1 < len(m.anns) {
		m.idx++
		return
	}

	batch := m.svc.NextBatch(len(m.anns), m.cfg.BatchSize)
	if len(batch) == 0 {
		return
	}
	m.anns = append(m.anns, batch...)
	m.idx++
}

// growWindow pulls any remaining material once the scan completes, so
// the card counter reflects the full result set.
func (m *Model) growWindow() {
	for {
		batch := m.svc.NextBatch(len(m.anns), m.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}
		m.anns = append(m.anns, batch...)
	}
}

func (m *Model) clampIndex() {
	if m.idx >= len(m.anns) {
		m.idx = len(m.anns) - 1
	}
	if m.idx < 0 {
		m.idx = 0
	}
}

func (m *Model) refresh() tea.Msg {
	anns, err := m.svc.Refresh(context.Background())
	return scanStartedMsg{anns: anns, err: err}
}

func (m *Model) removeCurrent() tea.Cmd {
	a := m.anns[m.idx]
	return func() tea.Msg {
		ok, err := m.svc.Remove(context.Background(), a)
		if !ok {
			return removeDoneMsg{err: err}
		}
		return removeDoneMsg{}
	}
}

// openEditor suspends the TUI and opens the annotation's file at its
// line.
func (m *Model) openEditor(a annotation.Annotation) tea.Cmd {
	editor := m.cfg.Editor
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	abs := filepath.Join(m.cfg.Root, filepath.FromSlash(a.File))
	c := exec.Command(editor, fmt.Sprintf("+%d", a.Line+1), abs)
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}
