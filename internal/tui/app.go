// Package tui is a terminal client for chatd: a chat list, a message thread
// with a composer, archive search and a command prompt.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/client"
	"github.com/matheus3301/chatsync/internal/tui/keys"
	"github.com/matheus3301/chatsync/internal/tui/model"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/matheus3301/chatsync/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageChats  = "chats"
	pageThread = "thread"
	pageSearch = "search"
	pageHelp   = "help"
)

// requestTimeout bounds each daemon call made from the UI.
const requestTimeout = 10 * time.Second

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	registry *keys.Registry
	profile  string

	pages      *ui.Pages
	components map[string]ui.Component
	body       *tview.Flex
	info       *ui.ProfileInfo
	menu       *ui.Menu
	crumbs     *ui.Crumbs
	flash      *ui.FlashBar
	prompt     *ui.Prompt
	promptOpen bool

	chats  *views.ChatList
	thread *views.Thread
	search *views.Search
	help   *views.Help

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI for the daemon behind c.
func NewApp(c *client.Client, profile string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:      tview.NewApplication(),
		theme:    theme,
		vm:       model.NewViewModel(c),
		registry: keys.NewRegistry(),
		profile:  profile,
		pages:    ui.NewPages(),
		info:     ui.NewProfileInfo(theme),
		menu:     ui.NewMenu(theme),
		crumbs:   ui.NewCrumbs(theme),
		flash:    ui.NewFlashBar(theme),
		prompt:   ui.NewPrompt(theme),
		chats:    views.NewChatList(theme),
		thread:   views.NewThread(theme),
		search:   views.NewSearch(theme),
		help:     views.NewHelp(theme),
		ctx:      ctx,
		cancel:   cancel,
	}
	a.components = map[string]ui.Component{
		pageChats:  a.chats,
		pageThread: a.thread,
		pageSearch: a.search,
		pageHelp:   a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	r := a.registry
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: '?', Label: "?", Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: ':', Label: ":", Description: "Command", Visible: true,
		Handler: func() { a.openPrompt(ui.PromptCommand) }})
	r.AddGlobal(&keys.Action{Key: tcell.KeyCtrlR, Label: "Ctrl-R", Description: "Refresh", Visible: true,
		Handler: a.refreshChats})
	r.AddGlobal(&keys.Action{Key: tcell.KeyRune, Rune: 'q', Label: "q", Description: "Quit", Visible: true,
		Handler: a.Stop})

	r.AddPage(pageChats, &keys.Action{Key: tcell.KeyRune, Rune: '/', Label: "/", Description: "Filter", Visible: true,
		Handler: func() { a.openPrompt(ui.PromptFilter) }})
	for n := 1; n <= 9; n++ {
		r.AddPage(pageChats, &keys.Action{Key: tcell.KeyRune, Rune: rune('0' + n),
			Handler: func() {
				if id := a.chats.ChatAt(n); id != "" {
					a.openChat(id)
				}
			}})
	}

	r.AddPage(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'i', Label: "i", Description: "Compose", Visible: true,
		Handler: func() { a.app.SetFocus(a.thread.Composer()) }})
	r.AddPage(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'o', Label: "o", Description: "Older", Visible: true,
		Handler: a.loadOlder})
	r.AddPage(pageThread, &keys.Action{Key: tcell.KeyRune, Rune: 'r', Label: "r", Description: "Mark read", Visible: true,
		Handler: a.markRead})
}

func (a *App) setupCallbacks() {
	a.chats.SetSelectedFunc(func(row, _ int) {
		if id := a.chats.ChatAt(row); id != "" {
			a.openChat(id)
		}
	})

	a.thread.SetOnSend(func(text string) {
		a.do(func(ctx context.Context) error { return a.vm.SendText(ctx, text) },
			func() { a.redraw(model.ChangeThread | model.ChangeStatus) })
	})

	a.search.SetOnQuery(func(query string) {
		a.do(func(ctx context.Context) error {
			results, err := a.vm.Search(ctx, query)
			if err != nil {
				return err
			}
			a.app.QueueUpdateDraw(func() {
				a.search.Update(results)
				if len(results) == 0 {
					a.vm.Flash.Info("No matches")
					a.flash.Update(a.vm.Flash.Current())
					return
				}
				a.app.SetFocus(a.search.Results())
			})
			return nil
		}, nil)
	})
	a.search.SetOnOpen(a.openChat)

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.closePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chats.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.closePrompt)

	a.pages.SetOnChange(func(stack []string) {
		trail := make([]string, 0, len(stack))
		for _, name := range stack {
			trail = append(trail, a.components[name].Name())
		}
		a.crumbs.Update(trail)
		a.updateMenu()
	})
}

func (a *App) setupLayout() {
	header := tview.NewFlex().
		AddItem(a.info, 34, 0, false).
		AddItem(a.menu, 0, 1, false)

	a.pages.AddPage(pageChats, a.chats, true, false)
	a.pages.AddPage(pageThread, a.thread, true, false)
	a.pages.AddPage(pageSearch, a.search, true, false)
	a.pages.AddPage(pageHelp, a.help, true, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.flash, 1, 0, false)
	a.app.SetRoot(a.body, true)
	a.pages.Reset(pageChats)

	a.app.SetInputCapture(a.handleKey)
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	if a.promptOpen {
		return ev
	}
	page := a.pages.Current()

	if _, typing := a.app.GetFocus().(*tview.InputField); typing {
		if ev.Key() != tcell.KeyEscape {
			return ev
		}
		if page == pageThread {
			a.app.SetFocus(a.thread.FocusTarget())
			return nil
		}
	}

	if ev.Key() == tcell.KeyEscape {
		a.back()
		return nil
	}
	if a.registry.HandleEvent(page, ev) {
		return nil
	}
	return ev
}

func (a *App) push(page string) {
	a.pages.Push(page)
	a.focusPage(page)
}

func (a *App) back() {
	if a.pages.Current() == pageChats && a.chats.Filter() != "" {
		a.chats.SetFilter("")
		return
	}
	if a.pages.Pop() == pageThread {
		a.do(a.vm.CloseChat, nil)
	}
	a.focusPage(a.pages.Current())
}

func (a *App) focusPage(page string) {
	if c, ok := a.components[page]; ok {
		a.app.SetFocus(c.FocusTarget())
	}
}

func (a *App) openPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.promptOpen = true
	a.body.AddItem(a.prompt, 3, 0, true)
	a.app.SetFocus(a.prompt)
}

func (a *App) closePrompt() {
	a.promptOpen = false
	a.body.RemoveItem(a.prompt)
	a.focusPage(a.pages.Current())
}

func (a *App) updateMenu() {
	var page, global []ui.MenuHint
	if c, ok := a.components[a.pages.Current()]; ok {
		page = c.Hints()
	}
	for _, act := range a.registry.Hints("") {
		global = append(global, ui.MenuHint{Key: act.Label, Description: act.Description})
	}
	a.menu.Update(page, global)
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "chat":
		id, ok := a.vm.FindChat(cmd.Args)
		if !ok {
			a.vm.Flash.Warn(fmt.Sprintf("No chat matches %q", cmd.Args))
			a.flash.Update(a.vm.Flash.Current())
			return
		}
		a.openChat(id)
	case "start":
		if cmd.Args == "" {
			a.vm.Flash.Warn("usage: :start <user-id>")
			a.flash.Update(a.vm.Flash.Current())
			return
		}
		a.do(func(ctx context.Context) error {
			id, err := a.vm.StartChat(ctx, cmd.Args)
			if err != nil {
				return err
			}
			_ = a.vm.LoadChats(ctx)
			a.app.QueueUpdateDraw(func() {
				a.chats.Update(a.vm.Chats())
				a.openChat(id)
			})
			return nil
		}, nil)
	case "search":
		a.push(pageSearch)
		if cmd.Args != "" {
			a.search.SetQuery(cmd.Args)
		}
	case "reconnect":
		a.do(func(ctx context.Context) error {
			state, err := a.vm.Reconnect(ctx)
			if err != nil {
				return err
			}
			a.vm.Flash.Info("Connection " + state)
			return a.vm.LoadStatus(ctx)
		}, func() { a.redraw(model.ChangeStatus) })
	case "refresh":
		a.refreshChats()
	case "":
	default:
		a.vm.Flash.Warn(fmt.Sprintf("Unknown command %q", cmd.Name))
		a.flash.Update(a.vm.Flash.Current())
	}
}

func (a *App) openChat(chatID string) {
	a.do(func(ctx context.Context) error { return a.vm.OpenChat(ctx, chatID) }, func() {
		a.thread.SetPeer(a.vm.ChatTitle(chatID))
		a.thread.Update(a.vm.Messages(), a.vm.HasMore(), true)
		if a.pages.Current() != pageChats {
			a.pages.Reset(pageChats)
		}
		a.push(pageThread)
		a.redraw(model.ChangeChats | model.ChangeStatus)
	})
}

func (a *App) loadOlder() {
	if !a.vm.HasMore() {
		a.vm.Flash.Info("No older messages")
		a.flash.Update(a.vm.Flash.Current())
		return
	}
	a.do(func(ctx context.Context) error {
		_, err := a.vm.LoadOlder(ctx)
		return err
	}, func() { a.thread.Update(a.vm.Messages(), a.vm.HasMore(), false) })
}

func (a *App) markRead() {
	a.do(func(ctx context.Context) error {
		n, err := a.vm.MarkRead(ctx)
		if err == nil && n > 0 {
			a.vm.Flash.Info(fmt.Sprintf("Marked %d message(s) read", n))
		}
		return err
	}, nil)
}

func (a *App) refreshChats() {
	a.do(a.vm.RefreshChats, func() { a.redraw(model.ChangeChats) })
}

// do runs fn off the UI goroutine, flashes its error and then runs after on
// the UI goroutine when fn succeeded.
func (a *App) do(fn func(ctx context.Context) error, after func()) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		err := fn(ctx)
		if err != nil {
			a.vm.Flash.Err(err)
		}
		a.app.QueueUpdateDraw(func() {
			if err == nil && after != nil {
				after()
			}
			a.flash.Update(a.vm.Flash.Current())
		})
	}()
}

func (a *App) redraw(change model.Change) {
	if change.Has(model.ChangeChats) {
		a.chats.Update(a.vm.Chats())
	}
	if change.Has(model.ChangeThread) && a.vm.Active() != "" {
		a.thread.Update(a.vm.Messages(), a.vm.HasMore(), true)
	}
	if change.Has(model.ChangeStatus) {
		a.info.Update(a.profileData())
	}
	a.flash.Update(a.vm.Flash.Current())
}

func (a *App) profileData() *ui.ProfileData {
	st := a.vm.Status()
	if st == nil {
		return &ui.ProfileData{Profile: a.profile, State: "UNKNOWN"}
	}
	user := st.UserName
	if user == "" {
		user = st.UserID
	}
	a.thread.SetUser(st.UserID)
	return &ui.ProfileData{
		Profile:  st.Profile,
		User:     user,
		State:    st.State,
		Chats:    st.ChatCount,
		Archived: st.ArchivedMessageCount,
		Queued:   st.QueuedSends,
		Uptime:   time.Duration(st.UptimeMs) * time.Millisecond,
	}
}

// Run loads the initial state, follows daemon events and blocks until the
// user quits.
func (a *App) Run() error {
	a.updateMenu()
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		if err := a.vm.LoadStatus(ctx); err != nil {
			a.vm.Flash.Err(err)
		}
		if err := a.vm.LoadChats(ctx); err != nil {
			a.vm.Flash.Err(err)
		}
		cancel()
		a.app.QueueUpdateDraw(func() { a.redraw(model.ChangeChats | model.ChangeStatus) })

		go a.vm.Watch(a.ctx, func(change model.Change) {
			a.app.QueueUpdateDraw(func() { a.redraw(change) })
		})
		a.tick()
	}()
	return a.app.Run()
}

// tick keeps the uptime and flash bar current between events.
func (a *App) tick() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for n := 1; ; n++ {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}
		change := model.Change(0)
		if n%30 == 0 {
			ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
			if a.vm.LoadStatus(ctx) == nil {
				change |= model.ChangeStatus
			}
			cancel()
		}
		a.app.QueueUpdateDraw(func() { a.redraw(change) })
	}
}

// Stop shuts the TUI down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
