package apptui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/view"
)

const (
	colMark   = 2
	colSel    = 4
	colStatus = 10
	colPID    = 8
	colPort   = 7
	colType   = 8
	colUptime = 8
)

var helpLines = [][2]string{
	{"j/k, up/down", "move"},
	{"n/p, pgdn/pgup", "next / previous page"},
	{"g/G", "first / last page"},
	{"tab, 1-3", "switch tab"},
	{"o / O", "sort key / direction"},
	{"/", "search by name or type"},
	{"space", "select row"},
	{"ctrl+a / esc", "select all matching / clear"},
	{"s S R", "start, stop or restart"},
	{"a / e", "add / edit application"},
	{"D", "delete"},
	{"r", "refresh now"},
	{"t / L", "theme / language"},
	{"P", "change password"},
	{"X", "log out"},
	{"q, ctrl+c", "quit"},
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	width := maxInt(m.width, minWindowWidth)
	height := maxInt(m.height, minWindowHeight)

	if m.mode == modeLogin {
		return m.renderLogin(width, height)
	}

	parts := []string{m.renderHeader(width), m.renderTabBar(width), m.renderToolbar(width)}
	switch m.mode {
	case modeForm:
		parts = append(parts, m.form.view(m.palette, tr(m.prefs.Language, msgFormHint), width))
	case modeHelp:
		parts = append(parts, m.renderHelp(width))
	default:
		parts = append(parts, m.renderList(width), m.renderDetail(width))
		if m.mode == modeConfirm && m.confirm != nil {
			parts = append(parts, m.renderConfirm(width))
		}
	}
	parts = append(parts, m.renderNotes(width), m.renderFooter(width))

	kept := parts[:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}

func (m model) renderLogin(width, height int) string {
	p := m.palette
	title := p.fg(p.Accent).Bold(true).Render(tr(m.prefs.Language, msgTitle))
	if m.opts.Version != "" {
		title += p.fg(p.TextMuted).Render("  " + m.opts.Version)
	}
	box := m.form.view(p, tr(m.prefs.Language, msgLoginHint), minInt(64, width-4))
	body := title + "\n\n" + box
	if m.busy > 0 {
		body += "\n" + m.spinner.View() + " " + tr(m.prefs.Language, msgBusy)
	}
	if notes := m.renderNotes(minInt(64, width-4)); notes != "" {
		body += "\n" + notes
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func (m model) renderHeader(width int) string {
	p := m.palette
	lang := m.prefs.Language

	running := 0
	for _, v := range m.snap.Views {
		if v.IsRunning() {
			running++
		}
	}

	left := p.fg(p.Accent).Bold(true).Render(tr(lang, msgTitle))
	if m.opts.Version != "" {
		left += p.fg(p.TextMuted).Render(" " + m.opts.Version)
	}

	segments := []string{
		fmt.Sprintf("%d/%d %s", running, len(m.snap.Views), tr(lang, msgStatusRunning)),
	}
	if m.session.Username != "" {
		segments = append([]string{m.session.Username}, segments...)
	}
	segments = append(segments, m.pollText(), m.prefs.Theme, string(lang))
	right := p.fg(p.TextMuted).Render(strings.Join(segments, " | "))
	if m.busy > 0 {
		right = m.spinner.View() + " " + right
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncateLine(left+" "+right, width)
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m model) pollText() string {
	lang := m.prefs.Language
	last, err := m.backend.LastPoll()
	if err != nil {
		return m.palette.fg(m.palette.Error).Render("poll: " + errorText(err))
	}
	if last.IsZero() {
		return tr(lang, msgNeverPolled)
	}
	age := m.now().Sub(last).Truncate(time.Second)
	if age < 0 {
		age = 0
	}
	return fmt.Sprintf("%s %s", tr(lang, msgLastPoll), age)
}

func (m model) renderTabBar(width int) string {
	p := m.palette
	lang := m.prefs.Language
	labels := map[view.Tab]string{
		view.TabAll:     tr(lang, msgTabAll),
		view.TabRunning: tr(lang, msgTabRunning),
		view.TabStopped: tr(lang, msgTabStopped),
	}
	active := lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Background)).
		Background(lipgloss.Color(p.Accent)).
		Bold(true).
		Padding(0, 1)
	inactive := p.fg(p.TextMuted).Padding(0, 1)

	tabs := make([]string, 0, len(view.Tabs))
	for i, tab := range view.Tabs {
		label := fmt.Sprintf("%d %s", i+1, labels[tab])
		if tab == m.viewState.Tab {
			tabs = append(tabs, active.Render(label))
		} else {
			tabs = append(tabs, inactive.Render(label))
		}
	}
	return truncateLine(lipgloss.JoinHorizontal(lipgloss.Top, tabs...), width)
}

func (m model) renderToolbar(width int) string {
	p := m.palette
	lang := m.prefs.Language

	search := p.fg(p.TextMuted).Render("-")
	if m.mode == modeSearch {
		search = m.search.View()
	} else if m.viewState.Search != "" {
		search = p.fg(p.Text).Render(m.viewState.Search)
	}

	arrow := "asc"
	if m.viewState.SortDesc {
		arrow = "desc"
	}
	segments := []string{
		tr(lang, msgSearch) + ": " + search,
		fmt.Sprintf("%s: %s %s", tr(lang, msgSort), m.viewState.SortKey, arrow),
		fmt.Sprintf("%s %d/%d", tr(lang, msgPage), m.proj.Page, maxInt(1, m.proj.PageCount)),
	}
	if n := m.selection.Len(); n > 0 {
		segments = append(segments, p.fg(p.Warning).Render(fmt.Sprintf("%s: %d", tr(lang, msgSelected), n)))
	}
	return truncateLine(strings.Join(segments, "  "), width)
}

func (m model) nameWidth(width int) int {
	fixed := colMark + colSel + colStatus + colPID + colPort + colType + colUptime
	return maxInt(8, width-fixed-1)
}

func (m model) renderList(width int) string {
	p := m.palette
	lang := m.prefs.Language
	nameW := m.nameWidth(width)

	header := strings.Repeat(" ", colMark+colSel) +
		padRight(tr(lang, msgColName), nameW) +
		padRight(tr(lang, msgColStatus), colStatus) +
		padRight(tr(lang, msgColPID), colPID) +
		padRight(tr(lang, msgColPort), colPort) +
		padRight(tr(lang, msgColType), colType) +
		padRight(tr(lang, msgColUptime), colUptime)
	lines := []string{p.fg(p.TextMuted).Bold(true).Render(truncateLine(header, width))}

	if len(m.proj.Items) == 0 {
		empty := tr(lang, msgNoApps)
		if len(m.snap.Views) > 0 {
			empty = tr(lang, msgNoMatch)
		}
		lines = append(lines, p.fg(p.TextMuted).Render("  "+empty))
		return strings.Join(lines, "\n")
	}

	now := m.now()
	for i, v := range m.proj.Items {
		name := v.Name()
		mark := "  "
		if i == m.cursor {
			mark = p.fg(p.Focus).Bold(true).Render("> ")
		}
		sel := "[ ] "
		if m.selection.Has(name) {
			sel = p.fg(p.Warning).Render("[x] ")
		}

		status := statusText(lang, v.Status)
		if m.backend.IsPending(name) {
			status = "~" + status
		}
		statusCell := m.palette.statusStyle(v.Status).Render(padRight(truncateLine(status, colStatus-1), colStatus))

		nameStyle := p.fg(p.Text)
		if i == m.cursor {
			nameStyle = nameStyle.Bold(true)
		}
		row := mark + sel +
			nameStyle.Render(padRight(truncateLine(name, nameW-1), nameW)) +
			statusCell +
			padRight(formatOptionalInt(v.PID), colPID) +
			padRight(formatOptionalInt(v.Port), colPort) +
			padRight(truncateLine(string(v.Config.AppType), colType-1), colType) +
			padRight(formatUptime(v.StartedAt, now), colUptime)
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderDetail(width int) string {
	v, ok := m.current()
	if !ok {
		return ""
	}
	p := m.palette
	cfg := v.Config

	command := cfg.Execute
	if len(cfg.Arguments) > 0 {
		command += " " + strings.Join(cfg.Arguments, " ")
	}
	dir := cfg.WorkingDirectory
	if dir == "" {
		dir = "-"
	}
	flags := fmt.Sprintf("daemon: %s  autostart: %s  timeout: %ds", yesNo(cfg.Daemon), yesNo(cfg.Autostart), cfg.TimeoutSeconds)

	lines := []string{
		p.fg(p.Text).Bold(true).Render(cfg.Name) + p.fg(p.TextMuted).Render("  "+string(cfg.AppType)),
		p.fg(p.TextMuted).Render("cmd: ") + truncateLine(command, maxInt(1, width-9)),
		p.fg(p.TextMuted).Render("dir: ") + truncateLine(dir, maxInt(1, width-9)),
		p.fg(p.TextMuted).Render(flags),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(lipgloss.Color(p.Border)).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

func (m model) renderConfirm(width int) string {
	p := m.palette
	text := p.fg(p.Warning).Bold(true).Render(m.confirm.prompt) + "  " +
		p.fg(p.TextMuted).Render(tr(m.prefs.Language, msgConfirmHint))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.Warning)).
		Padding(0, 1).
		Render(truncateLine(text, maxInt(10, width-4)))
}

func (m model) renderHelp(width int) string {
	p := m.palette
	keyWidth := 0
	for _, line := range helpLines {
		keyWidth = maxInt(keyWidth, lipgloss.Width(line[0]))
	}
	lines := []string{p.fg(p.Text).Bold(true).Render(tr(m.prefs.Language, msgHelpTitle)), ""}
	for _, line := range helpLines {
		lines = append(lines, p.fg(p.Accent).Render(padRight(line[0], keyWidth))+"  "+line[1])
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(p.Border)).
		Padding(0, 1).
		Width(maxInt(30, minInt(width-2, 60))).
		Render(strings.Join(lines, "\n"))
}

func (m model) renderNotes(width int) string {
	if len(m.notes) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.notes))
	for _, n := range m.notes {
		text := n.Message
		if n.App != "" && !strings.Contains(text, n.App) {
			text = n.App + ": " + text
		}
		lines = append(lines, m.palette.levelStyle(n.Level).Render(truncateLine(noteIcon(n.Level)+" "+text, width)))
	}
	return strings.Join(lines, "\n")
}

func (m model) renderFooter(width int) string {
	hint := tr(m.prefs.Language, msgKeysShort)
	if m.mode == modeSearch {
		hint = "enter/esc done"
	}
	return m.palette.fg(m.palette.TextMuted).Render(truncateLine(hint, width))
}

func noteIcon(level models.NotificationLevel) string {
	switch level {
	case models.LevelError:
		return "x"
	case models.LevelSuccess:
		return "ok"
	default:
		return "i"
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
