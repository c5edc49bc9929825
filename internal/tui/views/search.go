package views

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/chatsync/internal/apiv1"
	"github.com/matheus3301/chatsync/internal/tui/ui"
	"github.com/rivo/tview"
)

// Search is a query input over a results table of archived messages.
type Search struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	data    []apiv1.SearchResult
}

// NewSearch creates the search page.
func NewSearch(theme *ui.Theme) *Search {
	input := tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	return &Search{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
	}
}

// Name implements ui.Component.
func (s *Search) Name() string { return "Search" }

// FocusTarget implements ui.Component: the query input.
func (s *Search) FocusTarget() tview.Primitive { return s.input }

// Hints implements ui.Component.
func (s *Search) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Open"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetOnQuery sets the callback run when a query is submitted.
func (s *Search) SetOnQuery(fn func(query string)) {
	s.input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			if q := s.input.GetText(); q != "" {
				fn(q)
			}
		case tcell.KeyTab:
			s.results.Select(1, 0)
		}
	})
}

// SetOnOpen sets the callback run when a result row is chosen.
func (s *Search) SetOnOpen(fn func(chatID string)) {
	s.results.SetSelectedFunc(func(row, _ int) {
		if idx := row - 1; idx >= 0 && idx < len(s.data) {
			fn(s.data[idx].Message.ChatID)
		}
	})
}

// SetQuery fills the input without running it.
func (s *Search) SetQuery(q string) { s.input.SetText(q) }

// Update replaces the result rows.
func (s *Search) Update(results []apiv1.SearchResult) {
	s.data = results
	s.results.Clear()

	for col, h := range []string{" FROM", " SNIPPET", " TIME"} {
		s.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(s.theme.TableHeaderFg).
			SetAttributes(tcell.AttrBold))
	}
	now := time.Now()
	for i, r := range results {
		row := i + 1
		from := r.Message.SenderName
		if from == "" {
			from = r.Message.SenderID
		}
		s.results.SetCell(row, 0, tview.NewTableCell(" "+clean(from)).SetMaxWidth(20).SetTextColor(s.theme.FgColor))
		s.results.SetCell(row, 1, tview.NewTableCell(" "+clean(r.Snippet)).SetExpansion(1).SetTextColor(s.theme.FgColor))
		s.results.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(r.Message.CreatedAtUnixMs, now)).SetTextColor(s.theme.MutedColor))
	}
}

// Results returns the results table for focus management.
func (s *Search) Results() *tview.Table { return s.results }
