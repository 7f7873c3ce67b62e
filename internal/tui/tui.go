// Package tui is the interactive full-screen view. It holds no todo state of
// its own: every key press becomes a facade call inside a tea.Cmd, and the
// list is redrawn from the facade once the follow-up fetch lands.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todosync/internal/facade"
	"github.com/idilsaglam/todosync/internal/model"
)

// listItem adapts model.Todo to bubbles/list.Item
type listItem struct {
	model.Todo
}

func (i listItem) FilterValue() string { return i.Title }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)

	box := mutedStyle.Render(boxUnchecked)
	text := it.Title
	if it.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := fmt.Sprintf("%s %s  %s %s", box, text,
		tagStyle.Render("#"+it.Category),
		priorityStyle(it.Priority).Render(strings.ToUpper(string(it.Priority.OrDefault()))))
	if it.Description != "" {
		line += "  " + mutedStyle.Render(it.Description)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

type mode int

const (
	browsing mode = iota
	adding
	editing
	searching
	categories
	addingCategory
)

// Messages produced by the facade commands.
type (
	fetchedMsg struct{ ok bool }
	mutatedMsg struct {
		ok   bool
		what string
	}
	categoryMsg struct{ ok bool }
)

type Model struct {
	ctx    context.Context
	f      *facade.Facade
	notes  *Notifier
	list   list.Model
	ti     textinput.Model
	mode   mode
	search string

	editRec  model.Todo
	inputErr string
	catIndex int

	status    string
	statusErr bool
	width     int
	height    int
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "done"))
	delBind    = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	searchBind = key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search"))
	pageBind   = key.NewBinding(key.WithKeys("left", "right"), key.WithHelp("←/→", "page"))
	catBind    = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "categories"))
)

// New builds the view. notes must be the notifier the facade was built
// with, or nil.
func New(ctx context.Context, f *facade.Facade, notes *Notifier) Model {
	l := list.New(nil, itemDelegate{}, 80, 20)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{addBind, editBind, toggleBind, delBind, searchBind, pageBind, catBind}
	}
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys

	// shared text input for add, edit, search and category names
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	if notes == nil {
		notes = NewNotifier()
	}
	return Model{ctx: ctx, f: f, notes: notes, list: l, ti: ti, width: 80, height: 24}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, f *facade.Facade, notes *Notifier) error {
	p := tea.NewProgram(New(ctx, f, notes), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(1), m.notes.wait())
}

// -------------- facade commands ----------------

func (m Model) fetch(page int) tea.Cmd {
	ctx, f, search := m.ctx, m.f, m.search
	return func() tea.Msg { return fetchedMsg{ok: f.FetchTodos(ctx, page, search)} }
}

// refresh reloads the page on screen with the search text in use.
func (m Model) refresh() tea.Cmd {
	return m.fetch(m.f.Pagination().Current)
}

func (m Model) mutate(what string, fn func(ctx context.Context, f *facade.Facade) bool) tea.Cmd {
	ctx, f := m.ctx, m.f
	return func() tea.Msg { return mutatedMsg{ok: fn(ctx, f), what: what} }
}

func (m Model) category(action facade.CategoryAction, value string) tea.Cmd {
	ctx, f := m.ctx, m.f
	return func() tea.Msg { return categoryMsg{ok: f.CategoryAction(ctx, action, value)} }
}

// -------------- update ----------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, m.listHeight())
		return m, nil

	case noticeMsg:
		m.status, m.statusErr = msg.text, msg.failure
		return m, m.notes.wait()

	case fetchedMsg:
		if !msg.ok {
			return m, nil
		}
		ps := m.f.Pagination()
		items := m.f.Todos()
		// the last item of the last page went away: step back
		if len(items) == 0 && ps.Current > 1 && ps.Total > 0 {
			return m, m.fetch(ps.Pages())
		}
		cmd := m.setItems(items)
		return m, cmd

	case mutatedMsg:
		if !msg.ok {
			m.status, m.statusErr = msg.what+" failed", true
			return m, nil
		}
		return m, m.refresh()

	case categoryMsg:
		if !msg.ok {
			m.status, m.statusErr = "category change failed", true
		}
		if n := len(m.f.Categories()); m.catIndex >= n {
			m.catIndex = max(n-1, 0)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case adding, editing, addingCategory:
			return m.updateInput(msg)
		case searching:
			return m.updateSearch(msg)
		case categories:
			return m.updateCategories(msg)
		}
		return m.updateBrowse(msg)
	}

	var cmd tea.Cmd
	if m.mode == browsing {
		m.list, cmd = m.list.Update(msg)
	} else {
		m.ti, cmd = m.ti.Update(msg)
	}
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ps := m.f.Pagination()
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case " ":
		if it, ok := m.selected(); ok {
			return m, m.mutate("toggle", func(ctx context.Context, f *facade.Facade) bool {
				return f.ToggleStatus(ctx, it.Todo, !it.Completed)
			})
		}
		return m, nil
	case "d":
		if it, ok := m.selected(); ok {
			return m, m.mutate("delete", func(ctx context.Context, f *facade.Facade) bool {
				return f.DeleteTodo(ctx, it.ID)
			})
		}
		return m, nil
	case "a":
		m.editRec = model.Todo{}
		cmd := m.openInput(adding, "", "Buy milk #errands !low -- note")
		return m, cmd
	case "e":
		if it, ok := m.selected(); ok {
			m.editRec = it.Todo
			cmd := m.openInput(editing, model.FormatEntry(model.ValuesOf(it.Todo)), "Edit item...")
			return m, cmd
		}
		return m, nil
	case "/":
		cmd := m.openInput(searching, m.search, "Search titles...")
		return m, cmd
	case "c":
		m.mode = categories
		m.catIndex = 0
		return m, nil
	case "r":
		return m, m.refresh()
	case "right", "l", "n":
		if ps.Current < ps.Pages() {
			return m, m.fetch(ps.Current + 1)
		}
		return m, nil
	case "left", "h", "p":
		if ps.Current > 1 {
			return m, m.fetch(ps.Current - 1)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		if m.mode == addingCategory {
			m.mode = categories
		} else {
			m.mode = browsing
		}
		return m, nil
	case "enter":
		if m.mode == addingCategory {
			name := strings.TrimSpace(m.ti.Value())
			if name == "" {
				m.inputErr = "Name cannot be empty"
				return m, nil
			}
			m.closeInput()
			m.mode = categories
			return m, m.category(facade.CategoryAdd, name)
		}

		v := model.ParseEntry(m.ti.Value())
		switch {
		case strings.TrimSpace(v.Title) == "":
			m.inputErr = "Title cannot be empty"
			return m, nil
		case strings.TrimSpace(v.Category) == "":
			m.inputErr = "Category is required (#name)"
			return m, nil
		}
		isEdit, id := m.mode == editing, m.editRec.ID
		if isEdit {
			v = keepUnedited(v, m.editRec)
		}
		v.Completed = m.editRec.Completed
		m.closeInput()
		m.mode = browsing
		return m, m.mutate("save", func(ctx context.Context, f *facade.Facade) bool {
			return f.SaveTodo(ctx, v, isEdit, id)
		})
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// updateSearch fetches page 1 on every change of the search text.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.closeInput()
		m.mode = browsing
		return m, nil
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	if s := m.ti.Value(); s != m.search {
		m.search = s
		return m, tea.Batch(cmd, m.fetch(1))
	}
	return m, cmd
}

func (m Model) updateCategories(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cats := m.f.Categories()
	switch msg.String() {
	case "esc", "c", "q":
		m.mode = browsing
	case "up", "k":
		if m.catIndex > 0 {
			m.catIndex--
		}
	case "down", "j":
		if m.catIndex < len(cats)-1 {
			m.catIndex++
		}
	case "a":
		cmd := m.openInput(addingCategory, "", "Category name...")
		return m, cmd
	case "d":
		if m.catIndex < len(cats) {
			return m, m.category(facade.CategoryDelete, cats[m.catIndex].ID.String())
		}
	}
	return m, nil
}

// -------------- helpers ----------------

func (m *Model) openInput(md mode, value, placeholder string) tea.Cmd {
	m.mode = md
	m.inputErr = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	return m.ti.Focus()
}

func (m *Model) closeInput() {
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m *Model) setItems(todos []model.Todo) tea.Cmd {
	li := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		li = append(li, listItem{Todo: t})
	}
	return m.list.SetItems(li)
}

// keepUnedited puts back the fields of rec whose prefilled text came back
// unchanged, so whitespace the entry line cannot show survives an edit.
func keepUnedited(v model.Values, rec model.Todo) model.Values {
	orig := model.ValuesOf(rec)
	shown := model.ParseEntry(model.FormatEntry(orig))
	if v.Title == shown.Title {
		v.Title = orig.Title
	}
	if v.Description == shown.Description {
		v.Description = orig.Description
	}
	if v.Category == shown.Category {
		v.Category = orig.Category
	}
	if v.Priority == shown.Priority {
		v.Priority = orig.Priority
	}
	return v
}

func (m Model) selected() (listItem, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it, ok
}

func (m Model) listHeight() int {
	h := m.height - 4
	if m.mode != browsing {
		h -= 3
	}
	return max(h, 3)
}

// -------------- view ----------------

func (m Model) header() string {
	items, ps := m.f.Todos(), m.f.Pagination()
	dn, pn := model.Stats(items)
	h := fmt.Sprintf("%s   %s %d  %s %d  %s %d  %s",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), dn,
		pendingStyle.Render("•"), pn,
		accentStyle.Render("Total"), ps.Total,
		mutedStyle.Render(fmt.Sprintf("page %d/%d", ps.Current, ps.Pages())),
	)
	if m.search != "" {
		h += "  " + accentStyle.Render("/"+m.search)
	}
	if m.f.Loading() {
		h += "  " + mutedStyle.Render("loading…")
	}
	return h
}

func (m Model) View() string {
	m.list.Title = m.header()
	m.list.SetSize(m.width-4, m.listHeight())

	content := m.list.View()
	switch m.mode {
	case categories, addingCategory:
		content = m.categoriesView()
	}
	if bar := m.inputView(); bar != "" {
		content += "\n" + bar
	}
	if m.status != "" {
		st := successStyle
		if m.statusErr {
			st = errorStyle
		}
		content += "\n" + st.Render(m.status)
	}
	return panelString(content)
}

func (m Model) inputView() string {
	var title string
	switch m.mode {
	case adding:
		title = "Add new item"
	case editing:
		title = "Edit item"
	case searching:
		title = "Search"
	case addingCategory:
		title = "Add category"
	default:
		return ""
	}
	if m.inputErr != "" {
		title += ": " + errorStyle.Render(m.inputErr)
	}
	bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	return bar.Render(title + "\n" + m.ti.View())
}

func (m Model) categoriesView() string {
	lines := []string{titleStyle.Render("Categories")}
	cats := m.f.Categories()
	if len(cats) == 0 {
		lines = append(lines, mutedStyle.Render("no categories"))
	}
	for i, c := range cats {
		prefix := "  "
		if i == m.catIndex {
			prefix = selectedStyle.Render("> ")
		}
		lines = append(lines, prefix+tagStyle.Render("#"+c.Name))
	}
	lines = append(lines, "", helpStyle.Render("a add • d delete • esc back"))
	return strings.Join(lines, "\n")
}
