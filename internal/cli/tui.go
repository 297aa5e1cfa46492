package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/apresai/podcastos/internal/model"
)

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	watchStageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	watchBarFilledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7D56F4"))

	watchBarEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555"))

	watchErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	watchDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// statusMsg carries a polled status snapshot, or the error from fetching it.
type statusMsg struct {
	snapshot model.StatusSnapshot
	err      error
}

// tickMsg triggers the next poll.
type tickMsg time.Time

// watchModel is the Bubble Tea model driving `podcasterctl watch`: it polls
// the daemon's status endpoint on an interval and renders the snapshot as a
// styled progress bar, grounded on the teacher's interactive-menu TUI shape
// (bubbletea Model/Update/View, lipgloss-styled accents) adapted from a
// configuration menu to a read-only status poller.
type watchModel struct {
	client   *apiClient
	jobID    string
	snapshot model.StatusSnapshot
	err      error
	quit     bool
	width    int
}

func newWatchModel(client *apiClient, jobID string) watchModel {
	return watchModel{client: client, jobID: jobID, width: 80}
}

func (m watchModel) Init() tea.Cmd {
	return m.pollCmd()
}

func (m watchModel) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.client.getStatus(m.jobID)
		return statusMsg{snapshot: snapshot, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quit = true
			return m, tea.Quit
		}
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.snapshot = msg.snapshot
		if terminalOrPaused(m.snapshot.Status) {
			return m, tea.Quit
		}
		return m, tickCmd()

	case tickMsg:
		return m, m.pollCmd()
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return watchErrStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n"
	}
	if m.snapshot.JobID == "" {
		return watchDimStyle.Render("connecting...") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", watchTitleStyle.Render("job"), m.snapshot.JobID)
	fmt.Fprintf(&b, "%s  %s\n", watchStageStyle.Render(string(m.snapshot.CurrentStage)), m.snapshot.CurrentActivity)
	fmt.Fprintf(&b, "%s %3d%%\n", renderWatchBar(m.snapshot.ProgressPercent, m.barWidth()), m.snapshot.ProgressPercent)

	if terminalOrPaused(m.snapshot.Status) {
		b.WriteString("\n")
		if err := summarize(m.snapshot); err != nil {
			b.WriteString(watchErrStyle.Render(err.Error()) + "\n")
		}
		return b.String()
	}

	b.WriteString(watchDimStyle.Render("press q to stop watching") + "\n")
	return b.String()
}

func (m watchModel) barWidth() int {
	w := m.width - 8
	if w < 20 {
		w = 20
	}
	if w > 50 {
		w = 50
	}
	return w
}

func renderWatchBar(percent int, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := width * percent / 100
	empty := width - filled
	return "[" + watchBarFilledStyle.Render(strings.Repeat("=", filled)) + watchBarEmptyStyle.Render(strings.Repeat(".", empty)) + "]"
}

// stdoutIsTTY reports whether os.Stdout is an interactive terminal, the
// condition under which watchJob drives the Bubble Tea program instead of
// the plain line-oriented bar renderer (used for piped/redirected output).
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
