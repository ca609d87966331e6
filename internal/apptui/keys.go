package apptui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/anyrun/internal/editor"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/view"
)

func (m model) updateMainMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.mode = modeHelp
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "n", "pgdown", "right", "l":
		m.setPage(m.proj.Page + 1)
	case "p", "pgup", "left", "h":
		m.setPage(m.proj.Page - 1)
	case "g", "home":
		m.setPage(1)
		m.cursor = 0
	case "G", "end":
		m.setPage(m.proj.PageCount)
		m.cursor = maxInt(0, len(m.proj.Items)-1)
	case "tab":
		m.setTab(m.viewState.Tab.Next())
	case "1", "2", "3":
		m.setTab(view.Tabs[int(msg.String()[0]-'1')])
	case "o":
		m.viewState.SortKey = m.viewState.SortKey.Next()
		m.project()
	case "O":
		m.viewState.SortDesc = !m.viewState.SortDesc
		m.project()
	case "/":
		m.mode = modeSearch
		m.search.SetValue(m.viewState.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case " ", "space":
		if v, ok := m.current(); ok {
			m.selection.Toggle(v.Name(), m.proj.Matched)
		}
	case "ctrl+a":
		m.selection.SelectAll(m.proj.Matched)
	case "esc":
		m.selection.Clear()
	case "s":
		return m.lifecycle(models.ActionStart)
	case "S":
		return m.lifecycle(models.ActionStop)
	case "R":
		return m.lifecycle(models.ActionRestart)
	case "a":
		m.form = newAppForm(m.prefs.Language, nil)
		m.mode = modeForm
		return m, textinput.Blink
	case "e":
		if v, ok := m.current(); ok {
			cfg := v.Config
			m.form = newAppForm(m.prefs.Language, &cfg)
			m.mode = modeForm
			return m, textinput.Blink
		}
	case "D":
		return m.confirmDelete()
	case "r":
		backend := m.backend
		return m, m.runOp(func(ctx context.Context) opResultMsg {
			return opResultMsg{err: backend.Refresh(ctx), report: true}
		})
	case "t":
		backend, ctx := m.backend, m.ctx
		return m, func() tea.Msg {
			prefs, err := backend.CycleTheme(ctx)
			return prefsMsg{prefs: prefs, err: err}
		}
	case "L":
		backend, ctx := m.backend, m.ctx
		return m, func() tea.Msg {
			prefs, err := backend.ToggleLanguage(ctx)
			return prefsMsg{prefs: prefs, err: err}
		}
	case "P":
		m.form = newPasswdForm(m.prefs.Language)
		m.mode = modeForm
		return m, textinput.Blink
	case "X":
		backend := m.backend
		m.askConfirm("Log out?", func(m *model) tea.Cmd {
			return m.runOp(func(ctx context.Context) opResultMsg {
				return opResultMsg{err: backend.Logout(ctx), loggedOut: true, report: true}
			})
		})
	}
	return m, nil
}

// moveCursor moves within the page and spills onto the neighbouring page.
func (m *model) moveCursor(delta int) {
	next := m.cursor + delta
	switch {
	case next >= len(m.proj.Items):
		if m.proj.Page < m.proj.PageCount {
			m.setPage(m.proj.Page + 1)
			m.cursor = 0
		}
	case next < 0:
		if m.proj.Page > 1 {
			m.setPage(m.proj.Page - 1)
			m.cursor = maxInt(0, len(m.proj.Items)-1)
		}
	default:
		m.cursor = next
	}
}

func (m *model) setPage(page int) {
	if page < 1 || page > maxInt(1, m.proj.PageCount) || page == m.proj.Page {
		return
	}
	m.viewState.Page = page
	m.cursor = 0
	m.project()
}

func (m *model) setTab(tab view.Tab) {
	m.viewState.Tab = tab
	m.viewState.Page = 1
	m.cursor = 0
	m.project()
}

func (m *model) askConfirm(prompt string, run func(m *model) tea.Cmd) {
	m.confirm = &confirmState{prompt: prompt, run: run}
	m.mode = modeConfirm
}

// lifecycle applies kind to the selection, or to the row under the cursor
// when nothing is selected. Batches ask first.
func (m model) lifecycle(kind models.ActionKind) (tea.Model, tea.Cmd) {
	backend := m.backend
	names := m.selection.Ordered(m.proj.Matched)
	if len(names) == 0 {
		v, ok := m.current()
		if !ok {
			return m, nil
		}
		name := v.Name()
		return m, m.runOp(func(ctx context.Context) opResultMsg {
			return opResultMsg{err: backend.Do(ctx, name, kind)}
		})
	}

	prompt := fmt.Sprintf("%s %d selected applications?", capitalize(string(kind)), len(names))
	m.askConfirm(prompt, func(m *model) tea.Cmd {
		return m.runOp(func(ctx context.Context) opResultMsg {
			return opResultMsg{err: backend.Batch(ctx, kind, names).Err()}
		})
	})
	return m, nil
}

func (m model) confirmDelete() (tea.Model, tea.Cmd) {
	backend := m.backend
	names := m.selection.Ordered(m.proj.Matched)
	if len(names) > 0 {
		prompt := fmt.Sprintf("Delete %d selected applications? Running ones are stopped first.", len(names))
		m.askConfirm(prompt, func(m *model) tea.Cmd {
			m.selection.Clear()
			return m.runOp(func(ctx context.Context) opResultMsg {
				return opResultMsg{err: backend.DeleteSelected(ctx, names, true).Err()}
			})
		})
		return m, nil
	}

	v, ok := m.current()
	if !ok {
		return m, nil
	}
	name, running := v.Name(), v.IsRunning()
	prompt := fmt.Sprintf("Delete %s?", name)
	if running {
		prompt = fmt.Sprintf("Delete %s? It is running and will be stopped first.", name)
	}
	m.askConfirm(prompt, func(m *model) tea.Cmd {
		return m.runOp(func(ctx context.Context) opResultMsg {
			return opResultMsg{err: backend.Remove(ctx, name, editor.RemoveOptions{StopFirst: running})}
		})
	})
	return m, nil
}

func (m model) updateConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		pending := m.confirm
		m.confirm = nil
		m.mode = modeMain
		if pending == nil {
			return m, nil
		}
		cmd := pending.run(&m)
		return m, cmd
	case "n", "N", "esc", "q":
		m.confirm = nil
		m.mode = modeMain
	}
	return m, nil
}

func (m model) updateSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.search.Blur()
		m.mode = modeMain
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if value := m.search.Value(); value != m.viewState.Search {
		m.viewState.Search = value
		m.viewState.Page = 1
		m.cursor = 0
		m.project()
	}
	return m, cmd
}

func (m model) updateHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q", "enter":
		m.mode = modeMain
	}
	return m, nil
}

func (m model) updateFormMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeMain
		return m, nil
	}
	switch msg.String() {
	case "esc":
		if m.form.kind == formLogin {
			return m, nil
		}
		m.form = nil
		m.mode = modeMain
		return m, nil
	case "ctrl+s":
		return m.submitForm()
	case "enter":
		// Short forms advance field by field.
		if (m.form.kind == formLogin || m.form.kind == formPasswd) && !m.form.onLast() {
			m.form.move(1)
			return m, nil
		}
		return m.submitForm()
	}
	return m, m.form.update(msg)
}

func (m model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	if m.busy > 0 && f.kind == formLogin {
		return m, nil
	}
	f.err = ""
	backend := m.backend

	switch f.kind {
	case formLogin:
		username, password := strings.TrimSpace(f.value("username")), f.value("password")
		if username == "" || password == "" {
			f.err = "username and password are required"
			return m, nil
		}
		m.busy++
		ctx := m.ctx
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, actionTimeout)
			defer cancel()
			sess, err := backend.Login(ctx, username, password)
			return loginResultMsg{session: sess, err: err}
		}

	case formPasswd:
		oldPassword, newPassword, confirm := f.value("old"), f.value("new"), f.value("confirm")
		return m, m.runOp(func(ctx context.Context) opResultMsg {
			err := backend.ChangePassword(ctx, oldPassword, newPassword, confirm)
			return opResultMsg{err: err, closeForm: true, message: "Password changed"}
		})

	case formAdd:
		cfg, err := f.appConfig()
		if err != nil {
			f.err = errorText(err)
			return m, nil
		}
		opts := editor.AddOptions{StartAfter: f.toggled("after")}
		return m, m.runOp(func(ctx context.Context) opResultMsg {
			return opResultMsg{err: backend.Add(ctx, cfg, opts), closeForm: true}
		})

	case formEdit:
		cfg, err := f.appConfig()
		if err != nil {
			f.err = errorText(err)
			return m, nil
		}
		name := f.original
		opts := editor.EditOptions{RestartAfter: f.toggled("after")}
		return m, m.runOp(func(ctx context.Context) opResultMsg {
			return opResultMsg{err: backend.Edit(ctx, name, cfg, opts), closeForm: true}
		})
	}
	return m, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
