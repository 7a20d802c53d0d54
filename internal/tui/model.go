// Package tui is a terminal dashboard over the food price dataset: a
// sidebar of filters and tabbed result tables that are recomputed on
// every selection change.
package tui

import (
	"context"

	"foodprices/internal/models"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Backend is the query surface the dashboard needs.
type Backend interface {
	Options(ctx context.Context) (models.FilterOptions, error)
	Summarize(ctx context.Context, sel models.FilterSelection, previewRows int) (*models.Summary, error)
}

// Focus targets.
const (
	FocusCountries = iota
	FocusCommodities
)

// Result tabs.
const (
	TabPreview = iota
	TabCounts
	TabMeans
	TabDistribution
	TabDescribe
)

var tabNames = []string{"Preview", "Counts", "Average price", "Distribution", "Describe"}

// Model is the main Bubble Tea model for the dashboard.
type Model struct {
	ctx         context.Context
	backend     Backend
	previewRows int

	options     models.FilterOptions
	countries   Picker
	commodities Picker
	yearFrom    int
	yearTo      int

	focus   int
	tab     int
	table   table.Model
	summary *models.Summary
	err     error
	width   int
	height  int

	// seq numbers summary requests; replies for older ones are dropped.
	seq int
}

// NewModel loads the filter options and starts with everything selected.
func NewModel(ctx context.Context, backend Backend, previewRows int) (Model, error) {
	opts, err := backend.Options(ctx)
	if err != nil {
		return Model{}, err
	}
	m := Model{
		ctx:         ctx,
		backend:     backend,
		previewRows: previewRows,
		options:     opts,
		countries:   NewPicker("Countries", opts.Countries),
		commodities: NewPicker("Commodities", opts.Commodities),
		yearFrom:    opts.MinYear,
		yearTo:      opts.MaxYear,
		height:      24,
	}
	m.table = BuildTable(m.tab, nil, m.tableHeight())
	return m, nil
}

// Selection returns the filter currently shown in the sidebar.
func (m Model) Selection() models.FilterSelection {
	return models.FilterSelection{
		Countries:   m.countries.Selected(),
		Commodities: m.commodities.Selected(),
		YearFrom:    m.yearFrom,
		YearTo:      m.yearTo,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.refresh()
}

// refresh recomputes the summary for the current selection.
func (m Model) refresh() tea.Cmd {
	ctx, backend, sel, preview, seq := m.ctx, m.backend, m.Selection(), m.previewRows, m.seq
	return func() tea.Msg {
		sum, err := backend.Summarize(ctx, sel, preview)
		if err != nil {
			return ErrorMsg{Err: err, Seq: seq}
		}
		return SummaryMsg{Summary: sum, Seq: seq}
	}
}

// requery starts a new summary request, superseding any in flight.
func (m Model) requery() (tea.Model, tea.Cmd) {
	m.seq++
	cmd := m.refresh()
	return m, cmd
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = BuildTable(m.tab, m.summary, m.tableHeight())
		return m, nil

	case SummaryMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.summary = msg.Summary
		m.err = nil
		m.table = BuildTable(m.tab, m.summary, m.tableHeight())
		return m, nil

	case ErrorMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "tab":
		if m.focus == FocusCountries {
			m.focus = FocusCommodities
		} else {
			m.focus = FocusCountries
		}
		return m, nil

	case "up", "k":
		m.picker().Up()
		return m, nil
	case "down", "j":
		m.picker().Down()
		return m, nil

	case " ", "space":
		m.picker().Toggle()
		return m.requery()
	case "a":
		m.picker().All()
		return m.requery()
	case "n":
		m.picker().None()
		return m.requery()

	case "[":
		m.yearFrom = m.clampYear(m.yearFrom - 1)
		return m.requery()
	case "]":
		m.yearFrom = m.clampYear(m.yearFrom + 1)
		return m.requery()
	case "{":
		m.yearTo = m.clampYear(m.yearTo - 1)
		return m.requery()
	case "}":
		m.yearTo = m.clampYear(m.yearTo + 1)
		return m.requery()

	case "1", "2", "3", "4", "5":
		m.tab = int(msg.String()[0] - '1')
		m.table = BuildTable(m.tab, m.summary, m.tableHeight())
		return m, nil
	case "right", "l":
		m.tab = (m.tab + 1) % len(tabNames)
		m.table = BuildTable(m.tab, m.summary, m.tableHeight())
		return m, nil
	case "left", "h":
		m.tab = (m.tab + len(tabNames) - 1) % len(tabNames)
		m.table = BuildTable(m.tab, m.summary, m.tableHeight())
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) picker() *Picker {
	if m.focus == FocusCommodities {
		return &m.commodities
	}
	return &m.countries
}

// clampYear keeps year bounds inside the observed range.
func (m Model) clampYear(y int) int {
	if y < m.options.MinYear {
		return m.options.MinYear
	}
	if y > m.options.MaxYear {
		return m.options.MaxYear
	}
	return y
}

func (m Model) tableHeight() int {
	h := m.height - 8
	if h < 5 {
		h = 5
	}
	return h
}
