package chatcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/docrag/api"
	"github.com/papercomputeco/docrag/pkg/cliui"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

var (
	chatUserStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	chatErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	chatMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	chatSourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	chatTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
)

// inputHeight covers the status line, the help line and the prompt.
const inputHeight = 4

// asker answers one question.
type asker interface {
	Ask(ctx context.Context, question string) (*api.ChatResponse, error)
}

type chatTurn struct {
	question string
	answer   string
	sources  []string
	err      error
	pending  bool
}

type answerMsg struct {
	resp *api.ChatResponse
	err  error
}

type chatKeyMap struct {
	Ask    key.Binding
	Scroll key.Binding
	Quit   key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Scroll, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Ask, k.Scroll, k.Quit}}
}

func defaultChatKeyMap() chatKeyMap {
	return chatKeyMap{
		Ask:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		Scroll: key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

type chatModel struct {
	ctx    context.Context
	asker  asker
	target string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     chatKeyMap

	turns   []chatTurn
	waiting bool
	width   int
	height  int
}

func newChatModel(ctx context.Context, a asker, target string) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask a question about your documents"
	input.Prompt = chatUserStyle.Render("you> ")
	input.CharLimit = 2000
	input.Focus()

	return chatModel{
		ctx:      ctx,
		asker:    a,
		target:   target,
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(chatUserStyle)),
		help:     help.New(),
		keys:     defaultChatKeyMap(),
		width:    80,
		height:   20 + inputHeight,
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight, 1)
		m.input.Width = max(msg.Width-8, 10)
		m.refresh()
		return m, nil

	case bubbletea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, bubbletea.Quit
		case key.Matches(msg, m.keys.Ask):
			return m.ask()
		case key.Matches(msg, m.keys.Scroll):
			var cmd bubbletea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.waiting = false
		last := &m.turns[len(m.turns)-1]
		last.pending = false
		if msg.err != nil {
			last.err = msg.err
		} else {
			last.answer = msg.resp.Answer
			last.sources = msg.resp.Sources
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask sends the typed question unless one is already in flight.
func (m chatModel) ask() (bubbletea.Model, bubbletea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.waiting {
		return m, nil
	}
	if question == "/exit" {
		return m, bubbletea.Quit
	}

	m.input.Reset()
	m.turns = append(m.turns, chatTurn{question: question, pending: true})
	m.waiting = true
	m.refresh()

	return m, bubbletea.Batch(m.askCmd(question), m.spinner.Tick)
}

func (m chatModel) askCmd(question string) bubbletea.Cmd {
	a, ctx := m.asker, m.ctx
	return func() bubbletea.Msg {
		resp, err := a.Ask(ctx, question)
		return answerMsg{resp: resp, err: err}
	}
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *chatModel) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m chatModel) transcript() string {
	if len(m.turns) == 0 {
		return chatMutedStyle.Render(fmt.Sprintf("Connected to %s. Ask anything about your documents.", m.target))
	}

	width := max(m.width-4, 20)

	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(chatUserStyle.Render("you> "))
		b.WriteString(ansi.Wordwrap(t.question, width, ""))
		b.WriteString("\n")

		switch {
		case t.pending:
			b.WriteString(chatMutedStyle.Render("thinking..."))
			b.WriteString("\n")
		case t.err != nil:
			b.WriteString(chatErrorStyle.Render(ansi.Wordwrap(t.err.Error(), width, "")))
			b.WriteString("\n")
		default:
			rendered, err := cliui.RenderMarkdownWidth(t.answer, width)
			if err != nil {
				rendered = ansi.Wordwrap(t.answer, width, "")
			}
			b.WriteString(strings.TrimRight(rendered, "\n"))
			b.WriteString("\n")
			if len(t.sources) > 0 {
				b.WriteString(chatMutedStyle.Render("sources: "))
				b.WriteString(chatSourceStyle.Render(strings.Join(t.sources, ", ")))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func (m chatModel) View() string {
	status := chatTitleStyle.Render("docrag")
	if m.waiting {
		status = m.spinner.View() + " " + chatMutedStyle.Render("answering...")
	}

	return strings.Join([]string{
		m.viewport.View(),
		status,
		m.input.View(),
		chatMutedStyle.Render(m.help.View(m.keys)),
	}, "\n")
}
