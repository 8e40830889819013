package ui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/auth"
	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/config"
	"github.com/freshcart/basket/internal/monitor"
	"github.com/freshcart/basket/internal/ui/alerts"
	"github.com/freshcart/basket/internal/ui/login"
	"github.com/freshcart/basket/internal/ui/messages"
	"github.com/freshcart/basket/internal/ui/product"
	"github.com/freshcart/basket/internal/ui/register"
	"github.com/freshcart/basket/internal/ui/scan"
	"github.com/freshcart/basket/internal/ui/statusbar"
	"github.com/freshcart/basket/internal/ui/watchlist"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewWatchlist ViewType = iota
	ViewProduct
	ViewLogin
	ViewRegister
	ViewScan
	ViewAlerts
)

var viewLabels = map[ViewType]string{
	ViewWatchlist: "Watchlist",
	ViewProduct:   "Product",
	ViewLogin:     "Sign in",
	ViewRegister:  "Register",
	ViewScan:      "Scan",
	ViewAlerts:    "Alerts",
}

// Sessions is the session manager as the UI uses it.
type Sessions interface {
	Session() auth.Session
	Subscribe(fn auth.Observer) func()
	Login(ctx context.Context, c auth.Credentials) (auth.Session, error)
	Register(ctx context.Context, u auth.NewUser) (auth.Session, error)
	Logout(ctx context.Context) auth.Session
	Restore(ctx context.Context) (auth.Session, error)
}

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType
	showHelp      bool

	// Child models
	watchlist watchlist.Model
	product   product.Model
	loginForm login.Model
	regForm   register.Model
	scanner   scan.Model
	alerts    alerts.Model
	statusBar statusbar.Model
	help      help.Model

	// Shared state
	cfg      config.Config
	client   *api.Client
	cache    *cache.DB
	sessions Sessions
	session  auth.Session
	monitor  *monitor.Monitor
	log      logrus.FieldLogger

	// Session transitions arrive here from the manager's observer and are
	// read one at a time by waitForSession.
	sessionCh   chan auth.Session
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	// Dimensions
	width  int
	height int

	// For passing program reference to monitor
	program *tea.Program
}

// NewApp creates the root application model and subscribes it to sessions.
// Call Shutdown once the program has exited.
func NewApp(cfg config.Config, client *api.Client, db *cache.DB, sessions Sessions, log logrus.FieldLogger) *App {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	h := help.New()
	h.ShowAll = true

	a := &App{
		activeView: ViewWatchlist,
		watchlist:  watchlist.New(db),
		alerts:     alerts.New(db, cfg.FetchPageSize),
		statusBar:  statusbar.New(),
		help:       h,
		cfg:        cfg,
		client:     client,
		cache:      db,
		sessions:   sessions,
		session:    sessions.Session(),
		monitor:    monitor.New(cfg, client, db, log),
		log:        log.WithField("component", "ui"),
		sessionCh:  make(chan auth.Session, 16),
		done:       make(chan struct{}),
	}
	a.statusBar.SetSession(a.session)

	ch, done := a.sessionCh, a.done
	a.unsubscribe = sessions.Subscribe(func(s auth.Session) {
		select {
		case ch <- s:
		case <-done:
		}
	})
	return a
}

// SetProgram stores the tea.Program reference for the background monitor.
func (a *App) SetProgram(p *tea.Program) {
	a.program = p
}

// Shutdown detaches the app from the session manager and stops the price
// monitor. It is safe to call more than once.
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		close(a.done)
		a.unsubscribe()
	})
	a.monitor.Stop()
}

// Init starts the application.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.watchlist.Init(), a.waitForSession(), a.restoreSession(), a.loadUnread())
}

// waitForSession delivers the next session transition as a message. It is
// re-armed after every SessionChangedMsg so transitions arrive in order.
func (a *App) waitForSession() tea.Cmd {
	ch, done := a.sessionCh, a.done
	return func() tea.Msg {
		select {
		case s := <-ch:
			return messages.SessionChangedMsg{Session: s}
		case <-done:
			return nil
		}
	}
}

func (a *App) restoreSession() tea.Cmd {
	sessions := a.sessions
	return func() tea.Msg {
		if _, err := sessions.Restore(context.Background()); err != nil {
			return messages.StatusMsg{Text: "Could not restore session: " + auth.DisplayMessage(err), IsError: true}
		}
		return nil
	}
}

func (a *App) loadUnread() tea.Cmd {
	db := a.cache
	return func() tea.Msg {
		return messages.PriceAlertMsg{UnreadCount: db.UnreadAlertCount()}
	}
}

func (a *App) logout() tea.Cmd {
	sessions := a.sessions
	return func() tea.Msg {
		sessions.Logout(context.Background())
		return messages.StatusMsg{Text: "Signed out"}
	}
}

func (a *App) stopMonitor() tea.Cmd {
	mon := a.monitor
	return func() tea.Msg {
		mon.Stop()
		return nil
	}
}

// textEntry reports whether the active view takes free text input.
func (a *App) textEntry() bool {
	switch a.activeView {
	case ViewLogin, ViewRegister, ViewScan:
		return true
	case ViewWatchlist:
		return a.watchlist.Filtering()
	}
	return false
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - 1 // Reserve 1 line for status bar.
		a.watchlist.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		a.help.Width = msg.Width
		switch a.activeView {
		case ViewProduct:
			a.product.SetSize(msg.Width, contentHeight)
		case ViewLogin:
			a.loginForm.SetSize(msg.Width, contentHeight)
		case ViewRegister:
			a.regForm.SetSize(msg.Width, contentHeight)
		case ViewScan:
			a.scanner.SetSize(msg.Width, contentHeight)
		case ViewAlerts:
			a.alerts.SetSize(msg.Width, contentHeight)
		}
		return a, nil

	case tea.KeyMsg:
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		if a.textEntry() {
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			if key.Matches(msg, Keys.Back) && a.activeView != ViewWatchlist {
				return a, a.goBack()
			}
			break
		}
		switch {
		case msg.String() == "ctrl+c":
			return a, tea.Quit
		case key.Matches(msg, Keys.Quit):
			if a.activeView == ViewWatchlist {
				return a, tea.Quit
			}
			return a, a.goBack()
		case key.Matches(msg, Keys.Back):
			if len(a.previousViews) > 0 {
				return a, a.goBack()
			}
		case key.Matches(msg, Keys.Help):
			a.showHelp = true
			return a, nil
		case key.Matches(msg, Keys.Login):
			if !a.session.Authenticated() {
				return a, a.openLogin()
			}
			return a, nil
		case key.Matches(msg, Keys.Register):
			if !a.session.Authenticated() {
				a.pushView(ViewRegister)
				a.regForm = register.New(a.sessions)
				a.regForm.SetSize(a.width, a.height-1)
			}
			return a, nil
		case key.Matches(msg, Keys.Logout):
			if a.session.Empty() {
				return a, nil
			}
			return a, a.logout()
		case key.Matches(msg, Keys.Scan):
			a.pushView(ViewScan)
			a.scanner = scan.New(a.client, a.cache, a.cfg.ProductTTL)
			a.scanner.SetSize(a.width, a.height-1)
			return a, nil
		case key.Matches(msg, Keys.Alerts):
			if a.activeView != ViewAlerts {
				a.pushView(ViewAlerts)
				a.alerts.SetSize(a.width, a.height-1)
			}
			return a, alerts.Load(a.cache, a.cfg.FetchPageSize)
		}

	// View transitions.
	case messages.OpenProductMsg:
		if a.activeView == ViewScan {
			// The scan screen is replaced by the product it found.
			a.activeView = ViewProduct
		} else {
			a.pushView(ViewProduct)
		}
		a.product = product.New(msg.ProductID, a.session.Authenticated(), a.client, a.cache, a.cfg.ProductTTL)
		a.product.SetSize(a.width, a.height-1)
		return a, a.product.Init()

	case messages.OpenLoginMsg:
		return a, a.openLogin()

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.SessionChangedMsg:
		cmds = append(cmds, a.waitForSession(), a.applySession(msg.Session))

	case messages.PriceAlertMsg:
		a.statusBar.SetUnread(msg.UnreadCount)

	case messages.WatchToggledMsg:
		// The watchlist reloads even when it is not the visible view.
		var cmd tea.Cmd
		a.watchlist, cmd = a.watchlist.Update(msg)
		cmds = append(cmds, cmd)

	case messages.WatchlistLoadedMsg:
		var cmd tea.Cmd
		a.watchlist, cmd = a.watchlist.Update(msg)
		return a, cmd

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
	}

	// Route to active view.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewWatchlist:
		if _, ok := msg.(messages.WatchToggledMsg); !ok {
			a.watchlist, cmd = a.watchlist.Update(msg)
		}
	case ViewProduct:
		a.product, cmd = a.product.Update(msg)
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
	case ViewRegister:
		a.regForm, cmd = a.regForm.Update(msg)
	case ViewScan:
		a.scanner, cmd = a.scanner.Update(msg)
	case ViewAlerts:
		a.alerts, cmd = a.alerts.Update(msg)
	}
	cmds = append(cmds, cmd)

	a.statusBar.SetView(viewLabels[a.activeView])
	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// applySession reacts to a session transition: the status bar shows it, a
// completed sign-in closes the form and starts the price monitor, and
// losing the credential stops the monitor.
func (a *App) applySession(s auth.Session) tea.Cmd {
	prev := a.session
	a.session = s
	a.statusBar.SetSession(s)
	a.product.SetSignedIn(s.Authenticated())

	var cmd tea.Cmd
	switch s.Status {
	case auth.StatusSucceeded:
		if a.activeView == ViewLogin || a.activeView == ViewRegister {
			cmd = a.goBack()
		}
		if a.program != nil {
			a.monitor.Start(a.program)
		}
		if !prev.Authenticated() && s.User != nil {
			a.log.WithField("user", s.User.Name).Debug("signed in")
		}
	case auth.StatusIdle, auth.StatusFailed:
		if a.monitor.Running() {
			return a.stopMonitor()
		}
	}
	return cmd
}

// View renders the application.
func (a *App) View() string {
	var content string
	if a.showHelp {
		content = TitleStyle.Render("Keys") + "\n" + HelpStyle.Render(a.help.View(Keys))
		if a.height > 1 {
			content = lipgloss.NewStyle().Height(a.height - 1).Render(content)
		}
		return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
	}

	switch a.activeView {
	case ViewWatchlist:
		content = a.watchlist.View()
	case ViewProduct:
		content = a.product.View()
	case ViewLogin:
		content = a.loginForm.View()
	case ViewRegister:
		content = a.regForm.View()
	case ViewScan:
		content = a.scanner.View()
	case ViewAlerts:
		content = a.alerts.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

// ActiveView returns the view currently shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

func (a *App) openLogin() tea.Cmd {
	if a.activeView == ViewLogin {
		return nil
	}
	a.pushView(ViewLogin)
	a.loginForm = login.New(a.sessions)
	a.loginForm.SetSize(a.width, a.height-1)
	return nil
}

func (a *App) pushView(v ViewType) {
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
	}
	if a.activeView == ViewWatchlist {
		return watchlist.Load(a.cache)
	}
	return nil
}
