package tui

import (
	"context"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/suiscope/tableview"
)

// Table is the part of a tableview.TableView the browser drives.
type Table interface {
	Start()
	Render() *tableview.View
	NextPage() (bool, error)
	PrevPage() (bool, error)
	FirstPage() error
	SetPageSize(limit uint64) error
	Refresh(ctx context.Context) error
	OnChange(fn func()) func()
	Close()
}

// Key bindings.
const (
	keyNext      = "n"
	keyRight     = "right"
	keyPrev      = "p"
	keyLeft      = "left"
	keyFirst     = "home"
	keyGrow      = "+"
	keyShrink    = "-"
	keyRefresh   = "r"
	keyQuit      = "q"
	keyCtrlC     = "ctrl+c"
	helpText     = "n/→ next • p/← back • home first • +/- page size • r refresh • q quit"
	clockTimeout = time.Second
)

// viewChangedMsg signals a state change of the hosted table.
type viewChangedMsg struct{}

// refreshDoneMsg carries the result of a forced refetch.
type refreshDoneMsg struct {
	err error
}

// tickMsg re-renders relative timestamps.
type tickMsg time.Time

// BrowserModel is a bubbletea model hosting a live table view.
type BrowserModel struct {
	ctx     context.Context
	table   Table
	title   string
	logger  logrus.FieldLogger
	changes chan struct{}
	unsub   func()
	now     func() time.Time

	width    int
	status   string
	lastErr  error
	quitting bool
}

// NewBrowserModel creates a browser for table. The table is started by Init
// and closed when the browser quits.
func NewBrowserModel(ctx context.Context, table Table, title string, logger logrus.FieldLogger) *BrowserModel {
	m := &BrowserModel{
		ctx:     ctx,
		table:   table,
		title:   title,
		logger:  logger,
		changes: make(chan struct{}, 1),
		now:     time.Now,
	}
	m.unsub = table.OnChange(m.signalChange)
	return m
}

func (m *BrowserModel) signalChange() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *BrowserModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return viewChangedMsg{}
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(clockTimeout, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the table and the change listener.
func (m *BrowserModel) Init() tea.Cmd {
	m.table.Start()
	return tea.Batch(m.waitForChange(), tick())
}

// Update handles key presses and table notifications.
func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case viewChangedMsg:
		return m, m.waitForChange()
	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tick()
	case refreshDoneMsg:
		m.lastErr = msg.err
		if msg.err != nil {
			m.logger.WithError(msg.err).Debug("table refresh failed")
			m.status = "refresh failed"
		} else {
			m.status = "refreshed"
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *BrowserModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	m.lastErr = nil

	switch msg.String() {
	case keyQuit, keyCtrlC:
		m.quit()
		return m, tea.Quit
	case keyNext, keyRight:
		ok, err := m.table.NextPage()
		m.setNavStatus(ok, err, "no next page")
	case keyPrev, keyLeft:
		ok, err := m.table.PrevPage()
		m.setNavStatus(ok, err, "already on the first page")
	case keyFirst:
		m.lastErr = m.table.FirstPage()
	case keyGrow:
		m.stepPageSize(1)
	case keyShrink:
		m.stepPageSize(-1)
	case keyRefresh:
		m.status = "refreshing..."
		return m, m.refresh()
	}
	return m, nil
}

func (m *BrowserModel) setNavStatus(ok bool, err error, blocked string) {
	if err != nil {
		m.lastErr = err
		return
	}
	if !ok {
		m.status = blocked
	}
}

func (m *BrowserModel) refresh() tea.Cmd {
	ctx := m.ctx
	table := m.table
	return func() tea.Msg {
		return refreshDoneMsg{err: table.Refresh(ctx)}
	}
}

// stepPageSize moves to the neighbouring entry of the limit options.
func (m *BrowserModel) stepPageSize(direction int) {
	footer := m.table.Render().Footer
	if footer == nil || len(footer.LimitOptions) == 0 {
		return
	}
	idx := slices.Index(footer.LimitOptions, footer.Limit)
	if idx < 0 {
		return
	}
	idx += direction
	if idx < 0 || idx >= len(footer.LimitOptions) {
		return
	}
	if err := m.table.SetPageSize(footer.LimitOptions[idx]); err != nil {
		m.lastErr = err
	}
}

func (m *BrowserModel) quit() {
	if m.quitting {
		return
	}
	m.quitting = true
	if m.unsub != nil {
		m.unsub()
	}
	m.table.Close()
}

// View renders the title, the table and the key help.
func (m *BrowserModel) View() string {
	if m.quitting {
		return ""
	}

	view := m.table.Render()
	title := headerStyle.Render(m.title)
	if view.AutoRefresh {
		title += " " + mutedStyle.Render("(live)")
	}

	sections := []string{title, "", RenderView(view, m.now())}
	if m.lastErr != nil {
		sections = append(sections, errorStyle.Render(m.lastErr.Error()))
	} else if m.status != "" {
		sections = append(sections, mutedStyle.Render(m.status))
	}
	sections = append(sections, mutedStyle.Render(helpText))

	out := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width > 0 {
		lines := strings.Split(out, "\n")
		for i, line := range lines {
			if lipgloss.Width(line) > m.width {
				lines[i] = truncateWidth(line, m.width)
			}
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func truncateWidth(line string, width int) string {
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

// Quitting reports whether the user closed the browser.
func (m *BrowserModel) Quitting() bool {
	return m.quitting
}
