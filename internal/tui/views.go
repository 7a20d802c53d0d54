package tui

import (
	"fmt"
	"strconv"
	"strings"

	"foodprices/internal/models"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Picker is a multi-select list of names with a cursor.
type Picker struct {
	Title    string
	items    []string
	selected map[string]bool
	cursor   int
}

// NewPicker creates a picker with every item selected.
func NewPicker(title string, items []string) Picker {
	p := Picker{Title: title, items: items, selected: make(map[string]bool, len(items))}
	p.All()
	return p
}

func (p *Picker) Up() {
	if p.cursor > 0 {
		p.cursor--
	}
}

func (p *Picker) Down() {
	if p.cursor < len(p.items)-1 {
		p.cursor++
	}
}

// Toggle flips the item under the cursor.
func (p *Picker) Toggle() {
	if len(p.items) == 0 {
		return
	}
	name := p.items[p.cursor]
	p.selected[name] = !p.selected[name]
}

func (p *Picker) All() {
	for _, it := range p.items {
		p.selected[it] = true
	}
}

func (p *Picker) None() {
	for _, it := range p.items {
		p.selected[it] = false
	}
}

// Selected returns the chosen items in list order.
func (p Picker) Selected() []string {
	out := make([]string, 0, len(p.items))
	for _, it := range p.items {
		if p.selected[it] {
			out = append(out, it)
		}
	}
	return out
}

// View renders up to rows lines around the cursor.
func (p Picker) View(rows int, focused bool) string {
	var b strings.Builder
	title := fmt.Sprintf("%s (%d/%d)", p.Title, len(p.Selected()), len(p.items))
	if focused {
		b.WriteString(FocusedStyle.Render(title))
	} else {
		b.WriteString(TitleStyle.Render(title))
	}
	b.WriteString("\n")

	start := p.cursor - rows/2
	if start < 0 {
		start = 0
	}
	end := start + rows
	if end > len(p.items) {
		end = len(p.items)
	}
	for i := start; i < end; i++ {
		cursor := "  "
		if focused && i == p.cursor {
			cursor = "> "
		}
		mark := "[ ]"
		if p.selected[p.items[i]] {
			mark = "[x]"
		}
		b.WriteString(cursor + mark + " " + p.items[i] + "\n")
	}
	return b.String()
}

// View implements tea.Model.
func (m Model) View() string {
	pickerRows := (m.height - 10) / 2
	if pickerRows < 3 {
		pickerRows = 3
	}

	sidebar := SidebarStyle.Render(strings.Join([]string{
		TitleStyle.Render("Filter Options"),
		m.countries.View(pickerRows, m.focus == FocusCountries),
		m.commodities.View(pickerRows, m.focus == FocusCommodities),
		fmt.Sprintf("Years: %d - %d", m.yearFrom, m.yearTo),
	}, "\n"))

	var main strings.Builder
	main.WriteString(TitleStyle.Render("Global Food Prices Exploratory Data Analysis"))
	main.WriteString("\n")
	if m.summary != nil {
		main.WriteString(fmt.Sprintf("Summary of Filtered Data (%d rows)\n", m.summary.Rows))
	} else {
		main.WriteString("Loading...\n")
	}
	main.WriteString(renderTabs(m.tab))
	main.WriteString("\n")
	main.WriteString(m.table.View())
	main.WriteString("\n")
	if m.err != nil {
		main.WriteString(ErrorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	main.WriteString(HelpStyle.Render("tab: switch list • space: toggle • a/n: all/none • [ ]: from year • { }: to year • 1-5: tabs • q: quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main.String())
}

func renderTabs(active int) string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if i == active {
			parts[i] = ActiveTabStyle.Render(label)
		} else {
			parts[i] = HelpStyle.Render(label)
		}
	}
	return strings.Join(parts, "  ")
}

// BuildTable renders the given tab of a summary as a table.
func BuildTable(tab int, sum *models.Summary, height int) table.Model {
	cols, rows := tableData(tab, sum)
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(height),
		table.WithFocused(true),
	)
	return t
}

func tableData(tab int, sum *models.Summary) ([]table.Column, []table.Row) {
	switch tab {
	case TabCounts:
		cols := []table.Column{{Title: "Country", Width: 24}, {Title: "Price Type", Width: 14}, {Title: "Count", Width: 8}}
		if sum == nil {
			return cols, nil
		}
		rows := make([]table.Row, 0, len(sum.Counts))
		for _, c := range sum.Counts {
			rows = append(rows, table.Row{c.Country, c.PriceType, strconv.Itoa(c.Count)})
		}
		return cols, rows

	case TabMeans:
		cols := []table.Column{{Title: "Year", Width: 6}, {Title: "Commodity", Width: 30}, {Title: "Average Price", Width: 14}}
		if sum == nil {
			return cols, nil
		}
		rows := make([]table.Row, 0, len(sum.Means))
		for _, r := range sum.Means {
			rows = append(rows, table.Row{strconv.Itoa(r.Year), r.Commodity, FormatFloat(r.MeanPrice)})
		}
		return cols, rows

	case TabDistribution:
		cols := []table.Column{
			{Title: "Country", Width: 18}, {Title: "Commodity", Width: 22}, {Title: "N", Width: 6},
			{Title: "Min", Width: 9}, {Title: "Q1", Width: 9}, {Title: "Median", Width: 9},
			{Title: "Q3", Width: 9}, {Title: "Max", Width: 9},
		}
		if sum == nil {
			return cols, nil
		}
		rows := make([]table.Row, 0, len(sum.Distribution))
		for _, d := range sum.Distribution {
			rows = append(rows, table.Row{
				d.Country, d.Commodity, strconv.Itoa(d.Count),
				FormatFloat(d.Min), FormatFloat(d.Q1), FormatFloat(d.Median), FormatFloat(d.Q3), FormatFloat(d.Max),
			})
		}
		return cols, rows

	case TabDescribe:
		cols := []table.Column{{Title: "", Width: 6}, {Title: "year", Width: 12}, {Title: "price", Width: 12}}
		if sum == nil {
			return cols, nil
		}
		y, p := sum.Description.Year, sum.Description.Price
		rows := []table.Row{
			{"count", strconv.Itoa(y.Count), strconv.Itoa(p.Count)},
			{"mean", FormatFloat(y.Mean), FormatFloat(p.Mean)},
			{"std", FormatFloat(y.Std), FormatFloat(p.Std)},
			{"min", FormatFloat(y.Min), FormatFloat(p.Min)},
			{"25%", FormatFloat(y.P25), FormatFloat(p.P25)},
			{"50%", FormatFloat(y.P50), FormatFloat(p.P50)},
			{"75%", FormatFloat(y.P75), FormatFloat(p.P75)},
			{"max", FormatFloat(y.Max), FormatFloat(p.Max)},
		}
		return cols, rows

	default:
		cols := []table.Column{
			{Title: "Country", Width: 16}, {Title: "Market", Width: 14}, {Title: "Commodity", Width: 22},
			{Title: "Price Type", Width: 10}, {Title: "Year", Width: 5}, {Title: "Month", Width: 5},
			{Title: "Price", Width: 10}, {Title: "Currency", Width: 8},
		}
		if sum == nil {
			return cols, nil
		}
		rows := make([]table.Row, 0, len(sum.Preview))
		for _, r := range sum.Preview {
			rows = append(rows, table.Row{
				r.Country, r.Market, r.Commodity, r.PriceType,
				strconv.Itoa(r.Year), strconv.Itoa(r.Month), FormatFloat(r.Price), r.Currency,
			})
		}
		return cols, rows
	}
}
