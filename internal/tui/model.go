// Package tui is the terminal movie browser: a paged, filterable list with a
// detail form for viewing, editing and creating movies.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/Clark-Hu/movie-directory/internal/browse"
	"github.com/Clark-Hu/movie-directory/internal/client"
)

// ViewState is the screen currently shown.
type ViewState int

const (
	ListView ViewState = iota
	FilterView
	ConfirmView
	DetailView
)

const (
	filterYear = iota
	filterGenre
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx     context.Context
	dir     browse.Directory
	mailbox *browse.MemoryMailbox
	logger  *log.Logger

	view    ViewState
	list    *browse.ListView
	form    *browse.EditForm
	loading bool

	table    table.Model
	filters  []textinput.Model
	director string
	inputs   []textinput.Model
	focus    int

	width  int
	height int
	help   help.Model
	keys   keyMap
}

type searchDoneMsg struct {
	call browse.SearchCall
	page client.MoviePage
	err  error
}

type directorsMsg struct {
	directors []client.Director
	err       error
}

type movieLoadedMsg struct {
	movie client.Movie
	err   error
}

type deleteDoneMsg struct {
	id  string
	err error
}

type saveDoneMsg struct {
	movie client.Movie
	err   error
}

// expireMsg triggers a redraw once a notification may have timed out.
type expireMsg struct{}

// NewModel returns a browser over dir starting at q.
func NewModel(ctx context.Context, dir browse.Directory, q browse.Query, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.Default()
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Title", Width: 32},
			{Title: "Year", Width: 6},
			{Title: "Genre", Width: 14},
			{Title: "Director", Width: 24},
		}),
		table.WithFocused(true),
		table.WithHeight(client.DefaultPageSize+1),
	)
	return &Model{
		ctx:     ctx,
		dir:     dir,
		mailbox: &browse.MemoryMailbox{},
		logger:  logger,
		view:    ListView,
		list:    browse.NewListView(q, nil, logger),
		table:   t,
		filters: newInputs("Year", "Genre"),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

func newInputs(placeholders ...string) []textinput.Model {
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.CharLimit = 200
		inputs[i] = ti
	}
	return inputs
}

// Init loads the first page and the director options.
func (m *Model) Init() tea.Cmd {
	return m.mount()
}

// Location is the encoded query of the list, suitable for --query.
func (m *Model) Location() string {
	return m.list.Location()
}

// View returns the active screen.
func (m *Model) View() string {
	switch m.view {
	case FilterView:
		return m.renderFilter()
	case ConfirmView:
		return m.renderConfirm()
	case DetailView:
		return m.renderDetail()
	default:
		return m.renderList()
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case searchDoneMsg:
		m.loading = false
		if m.list.ResolveSearch(msg.call, msg.page, msg.err) {
			m.syncTable()
		}
		return m, nil

	case directorsMsg:
		m.list.SetDirectors(msg.directors, msg.err)
		return m, nil

	case movieLoadedMsg:
		if msg.err != nil {
			m.logger.Error("load movie", "err", msg.err)
			m.list.Notifier.Error("Load error")
			m.view = ListView
			return m, expireLater()
		}
		return m, m.openForm(browse.LoadMovieForm(msg.movie, nil, m.mailbox, m.logger))

	case deleteDoneMsg:
		call, ok := m.list.ResolveDelete(msg.id, msg.err)
		if !ok {
			return m, expireLater()
		}
		m.view = ListView
		return m, tea.Batch(m.search(call), expireLater())

	case saveDoneMsg:
		if m.form == nil {
			return m, nil
		}
		out := m.form.ResolveSave(msg.movie, msg.err)
		if out.Leave {
			return m, m.leaveForm()
		}
		m.syncInputs()
		return m, expireLater()

	case expireMsg:
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case FilterView:
			return m.handleFilterKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		default:
			return m.handleListKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if mv, ok := m.selected(); ok {
			return m, m.loadMovie(mv.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		load := m.openForm(browse.NewMovieForm(nil, m.mailbox, m.logger))
		return m, tea.Batch(load, m.inputs[0].Focus())
	case key.Matches(msg, m.keys.remove):
		if mv, ok := m.selected(); ok {
			m.list.RequestDelete(mv.ID)
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.filter):
		q := m.list.Query()
		m.filters[filterYear].SetValue(q.Year)
		m.filters[filterGenre].SetValue(q.Genre)
		m.director = q.DirectorID
		m.view = FilterView
		return m, m.focusInput(m.filters, 0)
	case key.Matches(msg, m.keys.prev):
		if p := m.list.Query().Page; p > 1 {
			return m, m.search(m.list.GoToPage(p - 1))
		}
		return m, nil
	case key.Matches(msg, m.keys.next):
		if p := m.list.Query().Page; p < m.list.TotalPages() {
			return m, m.search(m.list.GoToPage(p + 1))
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.search(m.list.Refresh())
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.view = ListView
		return m, nil
	case "enter":
		m.view = ListView
		call := m.list.ApplyFilter(
			m.filters[filterYear].Value(),
			m.filters[filterGenre].Value(),
			m.director,
		)
		return m, m.search(call)
	case "tab", "down", "shift+tab", "up":
		return m, m.focusInput(m.filters, step(m.focus, msg.String(), len(m.filters)))
	case "ctrl+n", "ctrl+p":
		m.director = cycle(m.list.DirectorOptions(), m.director, msg.String() == "ctrl+n")
		return m, nil
	}

	var cmd tea.Cmd
	m.filters[m.focus], cmd = m.filters[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		id, ok := m.list.PendingDelete()
		if !ok {
			m.view = ListView
			return m, nil
		}
		return m, m.remove(id)
	case key.Matches(msg, m.keys.no):
		m.list.CancelDelete()
		m.view = ListView
	}
	return m, nil
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.Mode() == browse.ModeView {
		switch {
		case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
			return m, m.leaveForm()
		case key.Matches(msg, m.keys.edit):
			m.form.Edit()
			return m, m.focusInput(m.inputs, 0)
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if out := m.form.Cancel(); out.Leave {
			return m, m.leaveForm()
		}
		m.syncInputs()
		m.blurInputs()
		return m, nil
	case "ctrl+s", "enter":
		return m, m.save()
	case "tab", "down", "shift+tab", "up":
		return m, m.focusInput(m.inputs, step(m.focus, msg.String(), len(m.inputs)))
	case "ctrl+n", "ctrl+p":
		if browse.Fields[m.focus] == browse.FieldDirectorID {
			m.pickDirector(msg.String() == "ctrl+n")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.form.Set(browse.Fields[m.focus], m.inputs[m.focus].Value())
	return m, cmd
}

func step(cur int, dir string, n int) int {
	if dir == "shift+tab" || dir == "up" {
		return (cur - 1 + n) % n
	}
	return (cur + 1) % n
}

func (m *Model) focusInput(inputs []textinput.Model, i int) tea.Cmd {
	for j := range inputs {
		inputs[j].Blur()
	}
	m.focus = i
	return inputs[i].Focus()
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focus = 0
}

// openForm shows f and reloads the director options for it.
func (m *Model) openForm(f *browse.EditForm) tea.Cmd {
	m.form = f
	m.inputs = newInputs("Title", "Year", "Genre", "Director ID")
	m.focus = 0
	m.syncInputs()
	m.view = DetailView
	return m.loadDirectors()
}

func (m *Model) syncInputs() {
	v := m.form.Values()
	for i, s := range []string{v.Title, v.Year, v.Genre, v.DirectorID} {
		m.inputs[i].SetValue(s)
	}
}

// pickDirector cycles the director field through the loaded directors.
// Unlike the filter there is no "All" choice.
func (m *Model) pickDirector(forward bool) {
	opts := m.list.DirectorOptions()[1:]
	if len(opts) == 0 {
		return
	}
	id := cycle(opts, m.form.Values().DirectorID, forward)
	m.inputs[len(browse.Fields)-1].SetValue(id)
	m.form.Set(browse.FieldDirectorID, id)
}

// cycle returns the option after (or before) the one with id. An unknown id
// starts from the first option going forward and the last going back.
func cycle(opts []browse.DirectorOption, id string, forward bool) string {
	if len(opts) == 0 {
		return id
	}
	cur := -1
	for i, o := range opts {
		if o.ID == id {
			cur = i
			break
		}
	}
	next := 0
	switch {
	case cur < 0 && !forward:
		next = len(opts) - 1
	case cur >= 0 && forward:
		next = (cur + 1) % len(opts)
	case cur >= 0:
		next = (cur - 1 + len(opts)) % len(opts)
	}
	return opts[next].ID
}

func (m *Model) leaveForm() tea.Cmd {
	m.form = nil
	m.inputs = nil
	m.view = ListView
	return tea.Batch(m.mount(), expireLater())
}

func (m *Model) selected() (client.Movie, bool) {
	items := m.list.Items()
	i := m.table.Cursor()
	if i < 0 || i >= len(items) {
		return client.Movie{}, false
	}
	return items[i], true
}

func (m *Model) syncTable() {
	items := m.list.Items()
	rows := make([]table.Row, len(items))
	for i, mv := range items {
		rows[i] = table.Row{mv.Title, strconv.Itoa(mv.Year), mv.Genre, mv.Director.Name}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(0)
	}
}

// mount shows the list with a fresh page and fresh director options.
func (m *Model) mount() tea.Cmd {
	return tea.Batch(m.search(m.list.Mount(m.mailbox)), m.loadDirectors())
}

func (m *Model) search(call browse.SearchCall) tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		page, err := m.dir.Search(m.ctx, call.Request)
		return searchDoneMsg{call: call, page: page, err: err}
	}
}

func (m *Model) loadDirectors() tea.Cmd {
	return func() tea.Msg {
		ds, err := m.dir.Directors(m.ctx)
		return directorsMsg{directors: ds, err: err}
	}
}

func (m *Model) loadMovie(id string) tea.Cmd {
	return func() tea.Msg {
		mv, err := m.dir.Get(m.ctx, id)
		return movieLoadedMsg{movie: mv, err: err}
	}
}

func (m *Model) remove(id string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{id: id, err: m.dir.Delete(m.ctx, id)}
	}
}

// save validates synchronously and only issues a request for valid input.
func (m *Model) save() tea.Cmd {
	in, ok := m.form.Validate()
	if !ok {
		return nil
	}
	id, isNew := m.form.ID(), m.form.IsNew()
	return func() tea.Msg {
		var (
			mv  client.Movie
			err error
		)
		if isNew {
			mv, err = m.dir.Create(m.ctx, in)
		} else {
			mv, err = m.dir.Update(m.ctx, id, in)
		}
		return saveDoneMsg{movie: mv, err: err}
	}
}

func expireLater() tea.Cmd {
	return tea.Tick(browse.NotificationTTL+100*time.Millisecond, func(time.Time) tea.Msg { return expireMsg{} })
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Movies"))
	b.WriteString("\n")
	if f := m.filterSummary(); f != "" {
		b.WriteString(styles.help.Render(f) + "\n")
	}
	b.WriteString(m.table.View())
	b.WriteString("\n")
	if len(m.list.Items()) == 0 && !m.loading {
		b.WriteString(styles.warn.Render("No movies found") + "\n")
	}
	status := fmt.Sprintf("Page %d of %d", m.list.Query().Page, m.list.TotalPages())
	if loc := m.list.Location(); loc != "" {
		status += styles.help.Render("  ?" + loc)
	}
	b.WriteString(status + "\n")
	if n := renderNotification(m.list.Notifier.Current()); n != "" {
		b.WriteString("\n" + n + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{
		m.keys.open, m.keys.create, m.keys.remove, m.keys.filter,
		m.keys.prev, m.keys.next, m.keys.quit,
	}))
	return b.String()
}

func (m *Model) filterSummary() string {
	q := m.list.Query()
	var parts []string
	if q.Year != "" {
		parts = append(parts, "year="+q.Year)
	}
	if q.Genre != "" {
		parts = append(parts, "genre="+q.Genre)
	}
	if q.DirectorID != "" {
		name := q.DirectorID
		for _, d := range m.list.Directors() {
			if d.ID == q.DirectorID {
				name = d.Name
			}
		}
		parts = append(parts, "director="+name)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Filters: " + strings.Join(parts, ", ")
}

func (m *Model) renderFilter() string {
	labels := []string{"Year", "Genre"}
	var b strings.Builder
	b.WriteString(styles.title.Render("Filter movies"))
	b.WriteString("\n")
	for i, in := range m.filters {
		b.WriteString(styles.label.Render(labels[i]) + in.View() + "\n")
	}
	name := m.director
	for _, o := range m.list.DirectorOptions() {
		if o.ID == m.director {
			name = o.Name
		}
	}
	b.WriteString(styles.label.Render("Director") + "‹ " + name + " ›\n")
	b.WriteString("\n" + styles.help.Render("enter apply • tab next field • ctrl+n/p director • esc back"))
	return b.String()
}

func (m *Model) renderConfirm() string {
	id, _ := m.list.PendingDelete()
	title := id
	for _, mv := range m.list.Items() {
		if mv.ID == id {
			title = mv.Title
		}
	}
	var b strings.Builder
	b.WriteString(styles.title.Render("Confirm deletion"))
	b.WriteString("\n")
	b.WriteString(styles.warn.Render(fmt.Sprintf("Delete %q?", title)) + "\n")
	if n := renderNotification(m.list.Notifier.Current()); n != "" {
		b.WriteString("\n" + n + "\n")
	}
	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	return b.String()
}

func (m *Model) renderDetail() string {
	if m.form == nil {
		return ""
	}
	heading := "Movie"
	if m.form.IsNew() {
		heading = "New movie"
	}
	var b strings.Builder
	b.WriteString(styles.title.Render(heading))
	b.WriteString("\n")
	labels := []string{"Title", "Year", "Genre", "Director"}
	for i, field := range browse.Fields {
		value := m.inputs[i].View()
		if m.form.Mode() == browse.ModeView {
			value = m.inputs[i].Value()
			if field == browse.FieldDirectorID {
				value = m.directorName(value)
			}
		}
		b.WriteString(styles.label.Render(labels[i]) + value + "\n")
		if msg := m.form.FieldError(field); msg != "" {
			b.WriteString(strings.Repeat(" ", 10) + styles.err.Render(msg) + "\n")
		}
	}
	if m.form.Mode() == browse.ModeEdit {
		b.WriteString(m.renderDirectorHint())
	}
	if n := renderNotification(m.form.Notifier.Current()); n != "" {
		b.WriteString("\n" + n + "\n")
	}
	b.WriteString("\n")
	if m.form.Mode() == browse.ModeView {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.edit, m.keys.back}))
	} else {
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.save, m.keys.tab, m.keys.pick, m.keys.back}))
	}
	return b.String()
}

func (m *Model) directorName(id string) string {
	for _, d := range m.list.Directors() {
		if d.ID == id {
			return d.Name
		}
	}
	return id
}

func (m *Model) renderDirectorHint() string {
	ds := m.list.Directors()
	if len(ds) == 0 {
		return ""
	}
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = fmt.Sprintf("%s (%s)", d.Name, d.ID)
	}
	return styles.help.Render("Directors: "+strings.Join(names, ", ")) + "\n"
}
