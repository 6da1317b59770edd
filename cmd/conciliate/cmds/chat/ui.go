package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/go-go-golems/conciliate/pkg/dialogue"
	"github.com/go-go-golems/conciliate/pkg/events"
	"github.com/go-go-golems/conciliate/pkg/transcript"
)

// Controller is what the chat UI needs from a dialogue controller.
type Controller interface {
	Start(ctx context.Context) (dialogue.Outcome, error)
	Stop() bool
	SendManual(ctx context.Context, text string) (dialogue.Outcome, error)
	Reset(seed ...transcript.Turn) bool
	Transcript() []transcript.Turn
	IsAutomationActive() bool
	IsTerminated() bool
	IsBusy() bool
	Status() dialogue.Status
	SessionID() string
	Rounds() int
}

var _ Controller = (*dialogue.Controller)(nil)

// eventMsg carries a dialogue event from the router into the program.
type eventMsg struct {
	event events.Event
}

// doneMsg reports the return of a Start or SendManual call.
type doneMsg struct {
	op      string
	outcome dialogue.Outcome
	err     error
}

type model struct {
	ctx  context.Context
	ctrl Controller
	seed []transcript.Turn

	textArea textarea.Model
	viewport viewport.Model
	help     help.Model
	keyMap   KeyMap
	style    *Style

	notice string
	width  int
	height int
}

func initialModel(ctx context.Context, ctrl Controller, seed []transcript.Turn) model {
	ret := model{
		ctx:    ctx,
		ctrl:   ctrl,
		seed:   seed,
		style:  DefaultStyles(),
		keyMap: DefaultKeyMap,
		help:   help.New(),
	}

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Ask a yes/no question..."
	ret.textArea.SetHeight(3)
	ret.textArea.Focus()

	ret.viewport = viewport.New(80, 20)
	ret.updateKeyBindings()
	ret.refresh()

	return ret
}

// manual input is only offered while the operator could actually send
func (m *model) inputEnabled() bool {
	return !m.ctrl.IsAutomationActive() && !m.ctrl.IsTerminated()
}

func (m *model) updateKeyBindings() {
	active := m.ctrl.IsAutomationActive()
	terminated := m.ctrl.IsTerminated()
	m.keyMap.StartAutomation.SetEnabled(!active && !terminated && m.ctrl.Status() != dialogue.StatusFailed)
	m.keyMap.StopAutomation.SetEnabled(active)
	m.keyMap.SubmitMessage.SetEnabled(m.inputEnabled())
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			m.ctrl.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.StartAutomation):
			m.notice = ""
			cmds = append(cmds, m.startCmd())

		case key.Matches(msg, m.keyMap.StopAutomation):
			if m.ctrl.Stop() {
				m.notice = "automation stopped"
			}

		case key.Matches(msg, m.keyMap.SubmitMessage):
			text := strings.TrimSpace(m.textArea.Value())
			if text != "" {
				m.textArea.Reset()
				m.notice = ""
				cmds = append(cmds, m.sendCmd(text))
			}

		case key.Matches(msg, m.keyMap.Reset):
			if m.ctrl.Reset(m.seed...) {
				m.notice = "new session " + shortID(m.ctrl.SessionID())
			} else {
				m.notice = "cannot reset while a round is in flight"
			}

		case key.Matches(msg, m.keyMap.ScrollUp):
			m.viewport.HalfViewUp()

		case key.Matches(msg, m.keyMap.ScrollDown):
			m.viewport.HalfViewDown()

		default:
			if m.inputEnabled() {
				m.textArea, cmd = m.textArea.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case eventMsg:
		switch e := msg.event.(type) {
		case *events.EventFailed:
			m.notice = fmt.Sprintf("%s failed: %s", e.Phase, e.Error)
		case *events.EventRejected:
			m.notice = fmt.Sprintf("%s rejected: %s", e.Operation, e.Reason)
		}

	case doneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("%s: %s", msg.op, msg.err)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, _ := m.style.Input.GetFrameSize()
		m.textArea.SetWidth(msg.Width - h)
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		// status bar, input box, notice, help
		m.viewport.Height = max(msg.Height-m.textArea.Height()-6, 3)
	}

	m.updateKeyBindings()
	m.refresh()

	return m, tea.Batch(cmds...)
}

func (m model) startCmd() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.ctrl.Start(m.ctx)
		return doneMsg{op: "start", outcome: outcome, err: err}
	}
}

func (m model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.ctrl.SendManual(m.ctx, text)
		return doneMsg{op: "send", outcome: outcome, err: err}
	}
}

func (m *model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *model) renderTranscript() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	frame, _ := m.style.SeekerTurn.GetFrameSize()

	var b strings.Builder
	for _, t := range m.ctrl.Transcript() {
		d := transcript.Display(t)
		text := d.Text
		if d.Rating != "" {
			text = fmt.Sprintf("%s (%s/10)", text, d.Rating)
		}

		label := string(t.Role)
		if t.Origin == transcript.OriginHuman {
			label = "you"
		}
		text = wordwrap.String(label+": "+text, max(width-frame, 10))

		var style = m.style.SystemTurn
		switch {
		case d.Kind == transcript.DisplayClosing || d.Kind == transcript.DisplayLimit:
			style = m.style.Closing
		case t.Role == transcript.RoleSeeker:
			style = m.style.SeekerTurn
		case t.Role == transcript.RoleResponder:
			style = m.style.ResponderTurn
		}
		b.WriteString(style.Render(text))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) statusLine() string {
	busy := ""
	if m.ctrl.IsBusy() {
		busy = " | thinking..."
	}
	return fmt.Sprintf("session %s | %s | round %d%s",
		shortID(m.ctrl.SessionID()), m.ctrl.Status(), m.ctrl.Rounds(), busy)
}

func (m model) View() string {
	ret := m.style.StatusBar.Render(m.statusLine()) + "\n"
	ret += m.viewport.View() + "\n"

	v := m.textArea.View()
	if m.inputEnabled() {
		v = m.style.Input.Render(v)
	} else {
		v = m.style.DisabledInput.Render(v)
	}
	ret += v + "\n"

	if m.notice != "" {
		ret += m.style.Notice.Render(m.notice) + "\n"
	}
	ret += m.style.Help.Render(m.help.View(m.keyMap))
	return ret
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
