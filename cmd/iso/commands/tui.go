package commands

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/isotranslate/iso/pkg/cli"
	"github.com/isotranslate/iso/pkg/iso"
)

// tickMsg drives periodic redraws of the session view.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sessionModel renders the live session: the merged transcript on top,
// the rolling event log below.
type sessionModel struct {
	ctrl     *iso.Controller
	frame    cli.Frame
	width    int
	height   int
	wasLive  bool
	stopping bool
}

func newSessionModel(ctrl *iso.Controller, provider string) sessionModel {
	lang1, lang2 := ctrl.Languages()
	return sessionModel{
		ctrl: ctrl,
		frame: cli.Frame{
			Styles: cli.NewStyles(cli.DefaultTheme),
			Title:  fmt.Sprintf("iso %s/%s (%s)", lang1.Code, lang2.Code, provider),
			Help:   "q: stop session   ctrl+c: quit",
			Sections: []cli.Section{
				{Label: " Transcript ", Content: func() []string {
					return segmentLines(ctrl.MergedSegments())
				}},
				{Label: " Events ", Content: func() []string {
					return eventLines(ctrl.Events())
				}},
			},
		},
	}
}

func (m sessionModel) Init() tea.Cmd {
	return tick()
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.stopping = true
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		state := m.ctrl.State()
		if state != iso.StateIdle {
			m.wasLive = true
		}
		// The channel dropped on its own; leave the TUI so the shell
		// shows the final usage summary and close reason.
		if m.wasLive && state == iso.StateIdle && !m.stopping {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

func (m sessionModel) View() string {
	frame := m.frame
	frame.Status = m.ctrl.State().String()
	return frame.Render(m.width, m.height)
}
