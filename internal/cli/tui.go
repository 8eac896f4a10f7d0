package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Novip1906/todo-api/internal/models"
	"github.com/Novip1906/todo-api/internal/session"
)

func (e *env) tui(ctx context.Context) error {
	if !isTTY(os.Stdout) {
		return errors.New("tui requires a TTY")
	}
	if err := e.signIn(); err != nil {
		return err
	}

	model := newTUIModel(ctx, e.sess)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := e.sess.Subscribe(func(st session.State) {
		program.Send(stateMsg(st))
	})
	defer unsubscribe()

	finalModel, err := program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if m, ok := finalModel.(*tuiModel); ok && m.state.View == session.ViewLogin {
		return errSessionExpired
	}
	return nil
}

type stateMsg session.State

type opDoneMsg struct{}

type tuiModel struct {
	ctx    context.Context
	sess   *session.Session
	state  session.State
	cursor int
	adding bool
	input  []rune
	busy   bool
}

func newTUIModel(ctx context.Context, sess *session.Session) *tuiModel {
	return &tuiModel{ctx: ctx, sess: sess, state: sess.State()}
}

func (m *tuiModel) Init() tea.Cmd {
	return m.run(m.sess.Refresh)
}

// run executes op off the UI goroutine. State changes arrive through the
// session subscription.
func (m *tuiModel) run(op func(context.Context) error) tea.Cmd {
	m.busy = true
	return func() tea.Msg {
		op(m.ctx)
		return opDoneMsg{}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = session.State(msg)
		if m.cursor >= len(m.state.Tasks) {
			m.cursor = max(len(m.state.Tasks)-1, 0)
		}
		if m.state.View == session.ViewLogin {
			return m, tea.Quit
		}
	case opDoneMsg:
		m.busy = false
	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m *tuiModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.adding = false
		m.input = nil
	case tea.KeyEnter:
		text := string(m.input)
		m.adding = false
		m.input = nil
		return m, m.run(func(ctx context.Context) error { return m.sess.Add(ctx, text) })
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

func (m *tuiModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Tasks)-1 {
			m.cursor++
		}
	case "a":
		m.adding = true
	case "r":
		return m, m.run(m.sess.Refresh)
	case "esc":
		m.sess.DismissNotice()
	case "1":
		return m, m.filter(models.FilterAll)
	case "2":
		return m, m.filter(models.FilterCompleted)
	case "3":
		return m, m.filter(models.FilterIncomplete)
	case "D":
		return m, m.run(m.sess.Clear)
	case " ", "x":
		if t := m.selected(); t != nil {
			id := t.Id
			return m, m.run(func(ctx context.Context) error { return m.sess.Toggle(ctx, id) })
		}
	case "d":
		if t := m.selected(); t != nil {
			id := t.Id
			return m, m.run(func(ctx context.Context) error { return m.sess.Remove(ctx, id) })
		}
	}
	return m, nil
}

func (m *tuiModel) filter(f models.Filter) tea.Cmd {
	return m.run(func(ctx context.Context) error { return m.sess.SetFilter(ctx, f) })
}

func (m *tuiModel) selected() *models.Task {
	if m.cursor < 0 || m.cursor >= len(m.state.Tasks) {
		return nil
	}
	return m.state.Tasks[m.cursor]
}

func (m *tuiModel) View() string {
	var b strings.Builder

	title := "To-Do List"
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")

	if m.state.Identity != nil {
		fmt.Fprintf(&b, "Signed in as %s | filter: %s\n\n", m.state.Identity.Email, m.state.Filter)
	}

	if len(m.state.Tasks) == 0 {
		b.WriteString("  no tasks\n")
	}
	for i, t := range m.state.Tasks {
		pointer := " "
		if i == m.cursor {
			pointer = ">"
		}
		fmt.Fprintf(&b, "%s %s %s\n", pointer, checkbox(t.Completed), t.Text)
	}
	b.WriteString("\n")

	if m.adding {
		fmt.Fprintf(&b, "New task: %s_\n\n", string(m.input))
	}
	if m.state.Notice != "" {
		fmt.Fprintf(&b, "! %s (esc to dismiss)\n\n", m.state.Notice)
	}
	if m.busy {
		b.WriteString("working...\n\n")
	}

	b.WriteString("a add  space toggle  d delete  D clear  1/2/3 all/completed/incomplete  r refresh  q quit\n")
	return b.String()
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
