package apptui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/anyrun/internal/models"
)

type formKind int

const (
	formLogin formKind = iota
	formAdd
	formEdit
	formPasswd
)

type fieldKind int

const (
	fieldText fieldKind = iota
	fieldSecret
	fieldToggle
	fieldReadOnly
)

type formField struct {
	key   string
	label string
	kind  fieldKind
	input textinput.Model
	on    bool
}

// form is a vertical list of inputs. Read-only fields are skipped by focus.
type form struct {
	kind   formKind
	title  string
	fields []formField
	focus  int
	err    string

	// original is the edited app's name.
	original string
}

func newTextField(key, label, value string, secret bool) formField {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = ""
	ti.SetValue(value)
	ti.CursorEnd()
	kind := fieldText
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
		kind = fieldSecret
	}
	return formField{key: key, label: label, kind: kind, input: ti}
}

func newToggleField(key, label string, on bool) formField {
	return formField{key: key, label: label, kind: fieldToggle, input: textinput.New(), on: on}
}

func newLoginForm(lang models.Language, username string) *form {
	f := &form{kind: formLogin, title: tr(lang, msgLoginTitle), fields: []formField{
		newTextField("username", tr(lang, msgUsername), username, false),
		newTextField("password", tr(lang, msgPassword), "", true),
	}}
	if username != "" {
		f.focus = 1
	}
	f.syncFocus()
	return f
}

func newPasswdForm(lang models.Language) *form {
	f := &form{kind: formPasswd, title: tr(lang, msgPasswdTitle), fields: []formField{
		newTextField("old", tr(lang, msgOldPassword), "", true),
		newTextField("new", tr(lang, msgNewPassword), "", true),
		newTextField("confirm", tr(lang, msgConfirmPassword), "", true),
	}}
	f.syncFocus()
	return f
}

// newAppForm builds the add form, or the edit form when existing is set.
func newAppForm(lang models.Language, existing *models.AppConfig) *form {
	cfg := models.AppConfig{TimeoutSeconds: models.DefaultTimeoutSeconds}
	f := &form{kind: formAdd, title: tr(lang, msgAddTitle)}
	if existing != nil {
		cfg = existing.Clone()
		f.kind = formEdit
		f.title = tr(lang, msgEditTitle)
		f.original = cfg.Name
	}

	port := ""
	if cfg.Port > 0 {
		port = strconv.Itoa(cfg.Port)
	}
	name := newTextField("name", "name", cfg.Name, false)
	if f.kind == formEdit {
		name.kind = fieldReadOnly
	}
	after := newToggleField("after", "start after saving", false)
	if f.kind == formEdit {
		after.label = "restart after saving"
	}
	f.fields = []formField{
		name,
		newTextField("execute", "execute", cfg.Execute, false),
		newTextField("dir", "working dir", cfg.WorkingDirectory, false),
		newTextField("type", "type (java/python/npm/node/go/other)", string(cfg.AppType), false),
		newTextField("args", "arguments", strings.Join(cfg.Arguments, " "), false),
		newTextField("timeout", "timeout (s)", strconv.Itoa(cfg.TimeoutSeconds), false),
		newTextField("port", "port", port, false),
		newToggleField("daemon", "daemon", cfg.Daemon),
		newToggleField("autostart", "autostart", cfg.Autostart),
		after,
	}
	f.syncFocus()
	return f
}

func (f *form) field(key string) *formField {
	for i := range f.fields {
		if f.fields[i].key == key {
			return &f.fields[i]
		}
	}
	return nil
}

func (f *form) value(key string) string {
	if fld := f.field(key); fld != nil {
		return fld.input.Value()
	}
	return ""
}

func (f *form) toggled(key string) bool {
	if fld := f.field(key); fld != nil {
		return fld.on
	}
	return false
}

func (f *form) move(delta int) {
	n := len(f.fields)
	for i := 0; i < n; i++ {
		f.focus = (f.focus + delta + n) % n
		if f.fields[f.focus].kind != fieldReadOnly {
			break
		}
	}
	f.syncFocus()
}

func (f *form) syncFocus() {
	if f.fields[f.focus].kind == fieldReadOnly {
		f.move(1)
		return
	}
	for i := range f.fields {
		if i == f.focus && f.fields[i].kind != fieldToggle {
			f.fields[i].input.Focus()
		} else {
			f.fields[i].input.Blur()
		}
	}
}

// onLast reports whether focus is on the last editable field.
func (f *form) onLast() bool {
	for i := len(f.fields) - 1; i >= 0; i-- {
		if f.fields[i].kind != fieldReadOnly {
			return i == f.focus
		}
	}
	return true
}

// update handles navigation and edits. Submission is left to the caller.
func (f *form) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		f.move(1)
		return nil
	case "shift+tab", "up":
		f.move(-1)
		return nil
	}

	fld := &f.fields[f.focus]
	if fld.kind == fieldToggle {
		if msg.String() == " " || msg.String() == "space" || msg.String() == "x" {
			fld.on = !fld.on
		}
		return nil
	}
	var cmd tea.Cmd
	fld.input, cmd = fld.input.Update(msg)
	return cmd
}

// appConfig builds the config the add/edit form describes.
func (f *form) appConfig() (models.AppConfig, error) {
	cfg := models.AppConfig{
		Name:             strings.TrimSpace(f.value("name")),
		Execute:          strings.TrimSpace(f.value("execute")),
		WorkingDirectory: strings.TrimSpace(f.value("dir")),
		AppType:          models.NormalizeAppType(f.value("type")),
		Arguments:        models.SplitArguments(f.value("args")),
		Daemon:           f.toggled("daemon"),
		Autostart:        f.toggled("autostart"),
	}
	if f.kind == formEdit {
		cfg.Name = f.original
	}

	timeout, err := models.ParseTimeout(f.value("timeout"))
	if err != nil {
		return cfg, err
	}
	cfg.TimeoutSeconds = timeout

	if raw := strings.TrimSpace(f.value("port")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, &models.Error{Kind: models.KindValidationFailure, Op: "parse port", Message: "port must be a number", Err: err}
		}
		cfg.Port = port
	}
	return cfg, nil
}

func (f *form) view(p tuiPalette, hint string, width int) string {
	labelWidth := 0
	for _, fld := range f.fields {
		labelWidth = maxInt(labelWidth, lipgloss.Width(fld.label))
	}

	lines := []string{p.fg(p.Text).Bold(true).Render(f.title), ""}
	for i, fld := range f.fields {
		label := padRight(fld.label, labelWidth)
		marker := "  "
		labelStyle := p.fg(p.TextMuted)
		if i == f.focus {
			marker = p.fg(p.Focus).Bold(true).Render("> ")
			labelStyle = p.fg(p.Focus)
		}
		var value string
		switch fld.kind {
		case fieldToggle:
			value = "[ ]"
			if fld.on {
				value = "[x]"
			}
		case fieldReadOnly:
			value = p.fg(p.TextMuted).Render(fld.input.Value())
		default:
			value = fld.input.View()
		}
		lines = append(lines, marker+labelStyle.Render(label)+"  "+value)
	}
	if f.err != "" {
		lines = append(lines, "", p.fg(p.Error).Bold(true).Render(truncateLine(f.err, maxInt(1, width-6))))
	}
	lines = append(lines, "", p.fg(p.TextMuted).Render(hint))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.Focus)).
		Padding(0, 1).
		Width(maxInt(40, width-2)).
		Render(strings.Join(lines, "\n"))
}
