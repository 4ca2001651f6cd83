package commands

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/terra-femme/MedJournee/pkg/cli"
	"github.com/terra-femme/MedJournee/pkg/session"
)

// liveModel is the bubbletea model for the live session view.
type liveModel struct {
	sessionID string
	pipe      *livePipeline
	logWriter *cli.LogWriter
	endFn     func() (*session.Session, error)

	captions     []string
	translations []string

	styles cli.Styles
	width  int
	height int
	status string

	quitting bool
}

func newLiveModel(sessionID string, pipe *livePipeline, logWriter *cli.LogWriter, endFn func() (*session.Session, error)) liveModel {
	return liveModel{
		sessionID: sessionID,
		pipe:      pipe,
		logWriter: logWriter,
		endFn:     endFn,
		styles:    cli.NewStyles(cli.DefaultTheme),
		status:    "capturing",
	}
}

// pipelineMsg wraps pipeline events for bubbletea.
type pipelineMsg liveEvent

// logMsg wraps captured log lines.
type logMsg string

// tickMsg is sent periodically to refresh the UI.
type tickMsg time.Time

// endedMsg carries the result of ending the session.
type endedMsg struct {
	session *session.Session
	err     error
}

func (m liveModel) Init() tea.Cmd {
	return tea.Batch(m.listenPipeline(), m.listenLogs(), m.tick())
}

func (m liveModel) listenPipeline() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.pipe.Events()
		if !ok {
			return nil
		}
		return pipelineMsg(event)
	}
}

func (m liveModel) listenLogs() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-m.logWriter.Channel()
		if !ok {
			return nil
		}
		return logMsg(line)
	}
}

func (m liveModel) tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m liveModel) endSession() tea.Cmd {
	return func() tea.Msg {
		s, err := m.endFn()
		return endedMsg{session: s, err: err}
	}
}

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "e":
			if m.status != "ending" {
				m.status = "ending"
				return m, m.endSession()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case pipelineMsg:
		switch {
		case msg.err != nil:
			m.status = "error"
			m.captions = append(m.captions, fmt.Sprintf("pipeline error: %v", msg.err))
		case msg.done:
			m.status = "recording finished"
		default:
			if msg.caption != "" {
				m.captions = append(m.captions, msg.caption)
			}
			if msg.translation != "" {
				m.translations = append(m.translations, msg.translation)
			}
		}
		return m, m.listenPipeline()

	case logMsg:
		return m, m.listenLogs()

	case tickMsg:
		return m, m.tick()

	case endedMsg:
		if msg.err != nil {
			m.status = "end failed"
			m.captions = append(m.captions, fmt.Sprintf("end session: %v", msg.err))
		} else {
			m.status = string(msg.session.Status)
		}
	}

	return m, nil
}

func (m liveModel) View() string {
	if m.quitting {
		return ""
	}

	frame := cli.Frame{
		Styles: m.styles,
		Title:  "MedJournee Live " + m.sessionID,
		Status: m.status,
		Sections: []cli.Section{
			{Label: "Captions", Content: func() []string { return m.captions }},
			{Label: "Translation", Content: func() []string { return m.translations }},
			{Label: "Log", Content: m.logWriter.Lines},
		},
		Help: "e: end session and generate journal • q: quit and finish the session",
	}
	return frame.Render(m.width, m.height)
}
