// Package tui is the terminal chat client: sign-in form, conversation list
// and chat page driven by a chat.Controller and its bus events.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/murmur/internal/bus"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/delivery"
	"github.com/matheus3301/murmur/internal/session"
	"github.com/matheus3301/murmur/internal/tui/keys"
	"github.com/matheus3301/murmur/internal/tui/ui"
	"github.com/matheus3301/murmur/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	pageLogin         = "login"
	pageConversations = "conversations"
	pageChat          = "chat"
	pageDetails       = "details"
	pageHelp          = "help"

	headerHeight = 5
	eventBuffer  = 256
	tickInterval = time.Second
)

// Starter builds the chat controller for a signed-in user. It is called
// again after every sign-in.
type Starter func(ctx context.Context, self chat.User) (*chat.Controller, error)

// Options configures the App.
type Options struct {
	Profile     string
	ReplySource string
	Session     *session.Session
	Bus         *bus.Bus
	Start       Starter
	Logger      *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *ui.Pages
	registry *keys.Registry
	theme    *ui.Theme
	flash    *ui.FlashModel

	info      *ui.SessionInfo
	menu      *ui.Menu
	crumbs    *ui.Crumbs
	prompt    *ui.Prompt
	flashBar  *ui.FlashBar
	statusBar *views.StatusBar
	login     *views.LoginView
	list      *views.ConversationList
	thread    *views.MessageThread
	details   *views.ConversationInfo
	help      *views.HelpView

	opts    Options
	logger  *zap.Logger
	ctrl    *chat.Controller
	self    chat.User
	replies *replyTracker

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := ui.DefaultTheme()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     ui.NewPages(),
		registry:  keys.NewRegistry(),
		theme:     theme,
		flash:     ui.NewFlashModel(),
		info:      ui.NewSessionInfo(theme),
		menu:      ui.NewMenu(theme, headerHeight),
		crumbs:    ui.NewCrumbs(theme),
		prompt:    ui.NewPrompt(theme),
		flashBar:  ui.NewFlashBar(theme),
		statusBar: views.NewStatusBar(theme, opts.Profile),
		login:     views.NewLoginView(theme),
		list:      views.NewConversationList(theme),
		thread:    views.NewMessageThread(theme),
		details:   views.NewConversationInfo(theme),
		help:      views.NewHelpView(theme),
		opts:      opts,
		logger:    logger.With(zap.String("component", "tui")),
		replies:   newReplyTracker(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Name: "command", Key: tcell.KeyRune, Rune: ':',
		Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "help", Key: tcell.KeyRune, Rune: '?',
		Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "back", KeyLabel: "Esc", Key: tcell.KeyEscape,
		Description: "Back", Visible: true,
		Handler: a.back,
	})
	a.registry.AddGlobal(&keys.Action{
		Name: "quit", Key: tcell.KeyRune, Rune: 'q',
		Description: "Quit", Visible: true,
		Handler: a.app.Stop,
	})

	a.registry.AddPage(pageConversations, &keys.Action{
		Name: "open", KeyLabel: "Enter", Key: tcell.KeyEnter,
		Description: "Open", Visible: true,
		Handler: func() { a.openConversation(a.list.SelectedID()) },
	})
	a.registry.AddPage(pageConversations, &keys.Action{
		Name: "filter", Key: tcell.KeyRune, Rune: '/',
		Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	a.registry.AddPage(pageConversations, &keys.Action{
		Name: "new", Key: tcell.KeyRune, Rune: 'n',
		Description: "New chat", Visible: true,
		Handler: a.newChat,
	})
	for i := 1; i <= 9; i++ {
		a.registry.AddPage(pageConversations, &keys.Action{
			Name: fmt.Sprintf("jump%d", i), KeyLabel: "1-9", Key: tcell.KeyRune, Rune: rune('0' + i),
			Description: "Jump", Visible: i == 1,
			Handler: func() { a.openConversation(a.list.ByIndex(i)) },
		})
	}

	a.registry.AddPage(pageChat, &keys.Action{
		Name: "compose", Key: tcell.KeyRune, Rune: 'i',
		Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Name: "details", Key: tcell.KeyRune, Rune: 'd',
		Description: "Details", Visible: true,
		Handler: a.showDetails,
	})
	a.registry.AddPage(pageChat, &keys.Action{
		Name: "new", Key: tcell.KeyRune, Rune: 'n',
		Description: "New chat", Visible: true,
		Handler: a.newChat,
	})
}

func (a *App) setupCallbacks() {
	a.login.SetOnSubmit(a.signIn)
	a.login.SetOnQuit(a.app.Stop)

	a.thread.SetOnSend(a.send)
	a.thread.SetOnBlocked(func() {
		a.warn(fmt.Sprintf("%s is typing, wait for the reply", a.thread.Peer().Name))
	})

	a.prompt.SetOnChange(func(mode ui.PromptMode, text string) {
		if mode == ui.PromptFilter {
			a.list.SetFilter(text)
		}
	})
	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		if mode == ui.PromptCommand && strings.TrimSpace(text) != "" {
			a.runCommand(text)
		}
	})
	a.prompt.SetOnCancel(func() {
		if a.prompt.Mode() == ui.PromptFilter {
			a.list.SetFilter("")
		}
		a.hidePrompt()
	})

	a.pages.SetOnChange(func([]string) { a.updateChrome() })
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageLogin, a.login, true, false)
	a.pages.AddPage(pageConversations, a.list, true, false)
	a.pages.AddPage(pageChat, a.thread, true, false)
	a.pages.AddPage(pageDetails, a.details, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	header := tview.NewFlex().
		AddItem(a.info, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 22, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)
	a.app.SetRoot(a.root, true)

	a.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		page := a.pages.Current()
		if page == pageLogin || a.prompt.HasFocus() {
			return ev
		}
		if a.thread.Composer().HasFocus() {
			if ev.Key() == tcell.KeyEscape {
				a.app.SetFocus(a.thread.Messages())
				return nil
			}
			return ev
		}
		if a.registry.HandleEvent(page, ev) {
			return nil
		}
		return ev
	})
}

// Run starts the TUI and blocks until it exits.
func (a *App) Run() error {
	events, unsubscribe := a.opts.Bus.Subscribe("", eventBuffer)
	defer unsubscribe()
	go a.watchEvents(events)
	go a.tick()

	user, err := a.opts.Session.Load()
	switch {
	case err == nil:
		a.statusBar.SetUser(user.Name)
		a.pages.Reset(pageConversations)
		go a.begin(user)
	case errors.Is(err, chat.ErrNoSession):
		a.showLogin()
	default:
		a.cancel()
		return fmt.Errorf("load session: %w", err)
	}

	err = a.app.Run()
	a.cancel()
	a.closeController()
	return err
}

// Stop shuts the TUI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}

func (a *App) watchEvents(events <-chan bus.Event) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-events:
			a.app.QueueUpdateDraw(func() { a.handleEvent(evt) })
		}
	}
}

func (a *App) tick() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.app.QueueUpdateDraw(func() {
				a.flashBar.Update(a.flash.Current())
				a.statusBar.Tick()
			})
		}
	}
}

func (a *App) handleEvent(evt bus.Event) {
	if a.ctrl == nil {
		return
	}
	switch evt.Kind {
	case bus.KindMessageAppended:
		p, ok := evt.Payload.(chat.MessageAppended)
		if ok && !p.Active && p.Message.SenderID != a.self.ID {
			if conv, found := a.ctrl.Conversation(p.ConversationID); found {
				a.notify(fmt.Sprintf("New message from %s", conv.User.Name))
			}
		}
	case bus.KindReplyStateChanged:
		ch, ok := evt.Payload.(delivery.StateChange)
		if ok && a.replies.apply(ch) {
			if conv, found := a.ctrl.Conversation(ch.ConversationID); found {
				a.warn(fmt.Sprintf("No reply from %s", conv.User.Name))
			}
		}
	}
	a.refresh()
}

// begin runs the Starter off the UI goroutine and shows the result.
func (a *App) begin(user chat.User) {
	ctrl, err := a.opts.Start(a.ctx, user)
	a.app.QueueUpdateDraw(func() {
		if err != nil {
			a.logger.Error("failed to start chat session", zap.Error(err))
			a.showLogin()
			a.login.ShowError(err)
			return
		}
		a.ctrl = ctrl
		a.self = user
		a.statusBar.SetUser(user.Name)
		a.pages.Reset(pageConversations)
		if ctrl.State().ActiveConversationID != "" {
			a.pages.Push(pageChat)
		}
		a.refresh()
		a.focusCurrent()
		a.notify(fmt.Sprintf("Signed in as %s", user.Name))
	})
}

func (a *App) signIn(name, email string) {
	user, err := a.opts.Session.Begin(name, email)
	if err != nil {
		a.login.ShowError(err)
		return
	}
	a.logger.Info("signed in", zap.String("user_id", user.ID))
	a.login.ShowMessage("Loading conversations...")
	go a.begin(user)
}

func (a *App) logout() {
	if err := a.opts.Session.End(); err != nil {
		a.fail(err)
		return
	}
	a.logger.Info("signed out", zap.String("user_id", a.self.ID))
	a.closeController()
	a.self = chat.User{}
	a.replies.reset()
	a.statusBar.SetUser("")
	a.statusBar.SetTyping("")
	a.list.SetFilter("")
	a.list.Update("", nil, "", nil)
	a.thread.Update(chat.User{}, chat.User{}, nil)
	a.thread.SetTyping(false)
	a.info.Update(ui.SessionData{Profile: a.opts.Profile, Replies: a.opts.ReplySource})
	a.showLogin()
	a.notify("Signed out")
}

func (a *App) closeController() {
	if a.ctrl != nil {
		a.ctrl.Close()
		a.ctrl = nil
	}
}

func (a *App) showLogin() {
	a.login.Reset()
	a.pages.Reset(pageLogin)
	a.focusCurrent()
}

func (a *App) openConversation(id string) {
	ctrl := a.ctrl
	if ctrl == nil || id == "" {
		return
	}
	go func() {
		err := ctrl.SelectConversation(a.ctx, id)
		a.app.QueueUpdateDraw(func() {
			if err != nil {
				a.logger.Error("failed to open conversation", zap.String("conversation_id", id), zap.Error(err))
				a.fail(err)
				return
			}
			a.pages.Reset(pageConversations)
			a.pages.Push(pageChat)
			a.refresh()
			a.focusCurrent()
		})
	}()
}

func (a *App) newChat() {
	if a.ctrl == nil {
		return
	}
	a.ctrl.StartNewConversation()
	a.pages.Reset(pageConversations)
	a.refresh()
	a.focusCurrent()
	a.notify("Pick a contact to start a new chat")
}

func (a *App) send(text string) bool {
	if a.ctrl == nil {
		return false
	}
	if a.ctrl.SendMessage(a.ctx, text) {
		return true
	}
	if strings.TrimSpace(text) != "" && a.ctrl.State().ActiveConversationID == "" {
		a.warn("Open a conversation first")
	}
	return false
}

func (a *App) showDetails() {
	if a.ctrl == nil {
		return
	}
	conv, ok := a.ctrl.Conversation(a.ctrl.State().ActiveConversationID)
	if !ok {
		a.warn("No conversation open")
		return
	}
	a.details.Update(conv)
	a.push(pageDetails)
}

func (a *App) runCommand(text string) {
	cmd := ParseCommand(text)
	switch cmd.Kind {
	case CmdQuit:
		a.app.Stop()
	case CmdLogout:
		a.logout()
	case CmdNew:
		a.newChat()
	case CmdHelp:
		a.push(pageHelp)
	case CmdInfo:
		a.showDetails()
	case CmdOpen:
		conv, ok := a.list.Find(cmd.Args)
		if !ok {
			a.warn(fmt.Sprintf("No contact matches %q", cmd.Args))
			return
		}
		a.openConversation(conv.ID)
	default:
		a.warn(fmt.Sprintf("Unknown command %q", cmd.Name))
	}
}

func (a *App) refresh() {
	if a.ctrl == nil {
		return
	}
	st := a.ctrl.State()
	convs := a.ctrl.Conversations()

	a.list.Update(a.self.ID, convs, st.ActiveConversationID, a.replies.typing())

	active, _ := a.ctrl.Conversation(st.ActiveConversationID)
	a.thread.Update(a.self, active.User, st.Messages)
	a.thread.SetTyping(st.IsTyping)
	typing := ""
	if st.IsTyping {
		typing = active.User.Name
	}
	a.statusBar.SetTyping(typing)

	unread := 0
	for _, c := range convs {
		unread += c.Unread
	}
	a.info.Update(ui.SessionData{
		Profile:       a.opts.Profile,
		Name:          a.self.Name,
		Email:         a.self.Email,
		Replies:       a.opts.ReplySource,
		Conversations: len(convs),
		Unread:        unread,
	})
	if a.pages.Current() == pageDetails && active.ID != "" {
		a.details.Update(active)
	}
	a.updateChrome()
}

func (a *App) updateChrome() {
	stack := a.pages.Stack()
	labels := make([]string, 0, len(stack))
	for _, p := range stack {
		labels = append(labels, a.pageLabel(p))
	}
	a.crumbs.Update(labels)

	page := a.pages.Current()
	if page == pageLogin {
		a.menu.Update([]ui.MenuHint{
			{Key: "Tab", Description: "Next field"},
			{Key: "Enter", Description: "Confirm"},
			{Key: "Ctrl-C", Description: "Quit"},
		})
		return
	}
	actions := a.registry.Visible(page)
	hints := make([]ui.MenuHint, 0, len(actions))
	for _, act := range actions {
		hints = append(hints, ui.MenuHint{Key: act.Label(), Description: act.Description})
	}
	a.menu.Update(hints)
}

func (a *App) pageLabel(page string) string {
	switch page {
	case pageLogin:
		return "Sign in"
	case pageConversations:
		return "Conversations"
	case pageChat:
		if name := a.thread.Peer().Name; name != "" {
			return name
		}
		return "New chat"
	case pageDetails:
		return "Details"
	case pageHelp:
		return "Help"
	default:
		return page
	}
}

func (a *App) push(page string) {
	if a.pages.Current() == pageLogin {
		return
	}
	a.pages.Push(page)
	a.focusCurrent()
}

func (a *App) back() {
	if a.pages.Current() == pageConversations && a.list.Filter() != "" {
		a.list.SetFilter("")
		return
	}
	a.pages.Pop()
	a.focusCurrent()
}

func (a *App) focusCurrent() {
	switch a.pages.Current() {
	case pageLogin:
		a.app.SetFocus(a.login.Form())
	case pageConversations:
		a.app.SetFocus(a.list)
	case pageChat:
		a.app.SetFocus(a.thread.Composer())
	case pageDetails:
		a.app.SetFocus(a.details)
	case pageHelp:
		a.app.SetFocus(a.help)
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.list.Filter())
	}
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusCurrent()
}

func (a *App) notify(msg string) {
	a.flash.Info(msg)
	a.flashBar.Update(a.flash.Current())
}

func (a *App) warn(msg string) {
	a.flash.Warn(msg)
	a.flashBar.Update(a.flash.Current())
}

func (a *App) fail(err error) {
	a.flash.Err(err)
	a.flashBar.Update(a.flash.Current())
}
