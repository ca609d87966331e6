// Package apptui implements the interactive console: a live application
// list with search, tabs, sorting, paging, selection and batch actions.
package apptui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/anyrun/internal/console"
	"github.com/tOgg1/anyrun/internal/models"
	"github.com/tOgg1/anyrun/internal/state"
	"github.com/tOgg1/anyrun/internal/view"
)

const (
	defaultRefreshInterval = time.Second
	notificationTTL        = 5 * time.Second
	errorNotificationTTL   = 10 * time.Second
	maxNotifications       = 3
	actionTimeout          = 30 * time.Second
	inboxSize              = 64

	minWindowWidth  = 60
	minWindowHeight = 16
)

// Options controls the console screen.
type Options struct {
	Version  string
	Username string

	// RefreshInterval is how often the screen re-reads the snapshot and
	// expires notifications.
	RefreshInterval time.Duration

	PageSize int
	Sort     view.SortKey
}

// Run shows the console until the user quits or ctx is cancelled.
func Run(ctx context.Context, c *console.Console, opts Options) error {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = c.Config.TUI.RefreshInterval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = c.Config.View.PageSize
	}
	if opts.Sort == "" {
		if key, err := view.ParseSortKey(c.Config.View.DefaultSort); err == nil {
			opts.Sort = key
		}
	}

	m := newModel(ctx, NewBackend(c), opts)
	cancel, err := m.subscribe()
	if err != nil {
		return err
	}
	defer cancel()

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type uiMode int

const (
	modeMain uiMode = iota
	modeLogin
	modeSearch
	modeForm
	modeConfirm
	modeHelp
)

type note struct {
	models.Notification
	expires time.Time
}

type confirmState struct {
	prompt string
	run    func(m *model) tea.Cmd
}

type model struct {
	ctx     context.Context
	backend Backend
	opts    Options
	inbox   chan tea.Msg
	now     func() time.Time

	palette tuiPalette
	prefs   models.Preferences
	width   int
	height  int

	snap      state.Snapshot
	viewState view.ViewState
	proj      view.Projection
	selection *view.Selection
	cursor    int

	mode     uiMode
	form     *form
	search   textinput.Model
	confirm  *confirmState
	session  models.Session
	loggedIn bool

	notes    []note
	busy     int
	spinner  spinner.Model
	quitting bool
}

type (
	snapshotMsg    struct{}
	notifyMsg      struct{ n models.Notification }
	sessionEndMsg  struct{ reason string }
	tickMsg        time.Time
	pollStartedMsg struct{ err error }
	prefsMsg       struct {
		prefs models.Preferences
		err   error
	}
	loginResultMsg struct {
		session models.Session
		err     error
	}
	opResultMsg struct {
		err       error
		message   string
		closeForm bool
		loggedOut bool

		// report adds a notification for err; operations that publish
		// their own notifications leave it unset.
		report bool
	}
)

func newModel(ctx context.Context, backend Backend, opts Options) model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefreshInterval
	}
	prefs := backend.Preferences()

	search := textinput.New()
	search.Prompt = ""
	search.Placeholder = "name or type"
	search.CharLimit = 64
	search.Width = 24

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	st := view.DefaultState()
	if opts.PageSize > 0 {
		st.PageSize = opts.PageSize
	}
	if opts.Sort != "" {
		st.SortKey = opts.Sort
	}

	m := model{
		ctx:       ctx,
		backend:   backend,
		opts:      opts,
		inbox:     make(chan tea.Msg, inboxSize),
		now:       time.Now,
		palette:   resolvePalette(prefs.Theme),
		prefs:     prefs,
		viewState: st,
		selection: view.NewSelection(),
		search:    search,
		spinner:   spin,
	}
	m.spinner.Style = m.palette.fg(m.palette.Accent)

	if sess, ok := backend.Session(); ok {
		m.session = sess
		m.loggedIn = true
		if sess.FirstLogin {
			m.addNote(models.Notification{Level: models.LevelInfo, Message: tr(prefs.Language, msgFirstLogin)})
		}
	} else {
		m.mode = modeLogin
		m.form = newLoginForm(prefs.Language, opts.Username)
	}
	m.reload()
	return m
}

func (m model) subscribe() (func(), error) {
	return m.backend.Watch(
		func(state.Snapshot) { m.send(snapshotMsg{}) },
		func(n models.Notification) { m.send(notifyMsg{n: n}) },
		func(reason string) { m.send(sessionEndMsg{reason: reason}) },
	)
}

// send never blocks; a dropped snapshotMsg is covered by the next tick.
func (m model) send(msg tea.Msg) {
	select {
	case m.inbox <- msg:
	default:
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent(), m.tickCmd(), m.spinner.Tick}
	if m.loggedIn {
		cmds = append(cmds, m.startPollingCmd())
	} else {
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case snapshotMsg:
		m.reload()
		return m, m.waitForEvent()
	case notifyMsg:
		m.addNote(msg.n)
		return m, m.waitForEvent()
	case sessionEndMsg:
		m.endSession(msg.reason)
		return m, tea.Batch(m.waitForEvent(), textinput.Blink)
	case tickMsg:
		m.expireNotes()
		m.reload()
		return m, m.tickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pollStartedMsg:
		if msg.err != nil && !errors.Is(msg.err, state.ErrPollerAlreadyRunning) {
			m.addNote(models.NotificationFromError("poll", "", msg.err))
		}
		return m, nil
	case prefsMsg:
		m.prefs = msg.prefs
		m.palette = resolvePalette(msg.prefs.Theme)
		m.spinner.Style = m.palette.fg(m.palette.Accent)
		if msg.err != nil {
			m.addNote(models.NotificationFromError("save preferences", "", msg.err))
		}
		return m, nil
	case loginResultMsg:
		m.done()
		if msg.err != nil {
			if m.form != nil {
				m.form.err = errorText(msg.err)
			}
			return m, nil
		}
		m.session = msg.session
		m.loggedIn = true
		m.mode = modeMain
		m.form = nil
		if msg.session.FirstLogin {
			m.addNote(models.Notification{Level: models.LevelInfo, Message: tr(m.prefs.Language, msgFirstLogin)})
		}
		return m, m.startPollingCmd()
	case opResultMsg:
		return m.handleOpResult(msg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeLogin, modeForm:
			return m.updateFormMode(msg)
		case modeSearch:
			return m.updateSearchMode(msg)
		case modeConfirm:
			return m.updateConfirmMode(msg)
		case modeHelp:
			return m.updateHelpMode(msg)
		default:
			return m.updateMainMode(msg)
		}
	}
	return m, nil
}

func (m model) handleOpResult(msg opResultMsg) (tea.Model, tea.Cmd) {
	m.done()
	if msg.err != nil {
		if m.form != nil && (m.mode == modeForm || m.mode == modeLogin) {
			m.form.err = errorText(msg.err)
		} else if msg.report {
			m.addNote(models.NotificationFromError("", "", msg.err))
		}
		return m, nil
	}
	if msg.closeForm && m.mode == modeForm {
		m.form = nil
		m.mode = modeMain
	}
	if msg.message != "" {
		m.addNote(models.Notification{Level: models.LevelSuccess, Message: msg.message})
	}
	if msg.loggedOut {
		m.endSession("")
		return m, textinput.Blink
	}
	return m, nil
}

// reload re-reads the snapshot and re-projects it.
func (m *model) reload() {
	m.snap = m.backend.Snapshot()
	m.project()
}

func (m *model) project() {
	m.proj = view.Project(m.snap.Views, m.viewState)
	m.viewState.Page = m.proj.Page
	m.selection.Prune(m.proj.Matched)
	if m.cursor >= len(m.proj.Items) {
		m.cursor = maxInt(0, len(m.proj.Items)-1)
	}
}

func (m model) current() (models.AppView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.proj.Items) {
		return models.AppView{}, false
	}
	return m.proj.Items[m.cursor], true
}

func (m *model) endSession(reason string) {
	m.loggedIn = false
	m.session = models.Session{}
	m.selection.Clear()
	m.confirm = nil
	m.mode = modeLogin
	m.form = newLoginForm(m.prefs.Language, m.opts.Username)
	m.form.err = reason
}

func (m *model) addNote(n models.Notification) {
	if n.Time.IsZero() {
		n.Time = m.now()
	}
	ttl := notificationTTL
	if n.Level == models.LevelError {
		ttl = errorNotificationTTL
	}
	m.notes = append(m.notes, note{Notification: n, expires: m.now().Add(ttl)})
	if len(m.notes) > maxNotifications {
		m.notes = m.notes[len(m.notes)-maxNotifications:]
	}
}

func (m *model) expireNotes() {
	now := m.now()
	kept := m.notes[:0]
	for _, n := range m.notes {
		if now.Before(n.expires) {
			kept = append(kept, n)
		}
	}
	m.notes = kept
}

func (m *model) done() {
	if m.busy > 0 {
		m.busy--
	}
}

// runOp runs fn off the update loop with a bounded context.
func (m *model) runOp(fn func(ctx context.Context) opResultMsg) tea.Cmd {
	m.busy++
	parent := m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, actionTimeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m model) waitForEvent() tea.Cmd {
	inbox := m.inbox
	return func() tea.Msg {
		return <-inbox
	}
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.opts.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) startPollingCmd() tea.Cmd {
	backend, ctx := m.backend, m.ctx
	return func() tea.Msg {
		return pollStartedMsg{err: backend.StartPolling(ctx)}
	}
}

func errorText(err error) string {
	var e *models.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
