package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/avfe/dlg4vtmb/pkg/dialogue"
	"github.com/avfe/dlg4vtmb/pkg/pipeline"
)

// browseCommand creates the browse command, a read-only terminal viewer.
func (c *CLI) browseCommand() *cobra.Command {
	var showSeparators bool

	cmd := &cobra.Command{
		Use:   "browse [file]",
		Short: "Browse a dialogue file in the terminal",
		Long: `Browse a dialogue file in the terminal.

Shows the rows in file order with a detail pane for the selected row.
Press / to filter by index or text, enter to apply, esc to clear.
Browsing never modifies the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, _, err := pipeline.Load(args[0])
			if err != nil {
				return err
			}
			dialogue.FillMissingParents(rows)
			model := newBrowseModel(args[0], dialogue.VisibleRows(rows, showSeparators))
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().BoolVar(&showSeparators, "show-separators", false, "include blank separator rows")

	return cmd
}

// Browse styles.
var (
	browseSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	browseDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	browseDetailStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// browseModel is the bubbletea model for the read-only row browser.
type browseModel struct {
	path    string
	rows    []dialogue.Row // all rows, file order
	visible []int          // positions into rows matching the filter

	cursor  int
	offset  int
	height  int
	width   int
	finding bool
	query   string
}

func newBrowseModel(path string, rows []dialogue.Row) browseModel {
	m := browseModel{
		path:   path,
		rows:   rows,
		height: 15,
		width:  80,
	}
	m.applyFilter("")
	return m
}

// applyFilter rebuilds the visible list. An all-digit query matches row
// indices, anything else matches the display text case-insensitively
// (Male, falling back to Female), mirroring the table's Find rule.
func (m *browseModel) applyFilter(query string) {
	m.query = query
	m.visible = m.visible[:0]
	needle := strings.ToLower(query)
	for i, r := range m.rows {
		if query == "" || browseMatch(r, query, needle) {
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = 0
	m.offset = 0
}

func browseMatch(r dialogue.Row, query, needle string) bool {
	if isAllDigits(query) {
		return fmt.Sprintf("%d", r.Index) == query
	}
	text := r.Male
	if text == "" {
		text = r.Female
	}
	return strings.Contains(strings.ToLower(text), needle)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.finding {
			return m.updateFinding(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.query != "" && msg.String() == "esc" {
				m.applyFilter("")
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.visible)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "g", "home":
			m.cursor = 0
			m.offset = 0
		case "G", "end":
			if len(m.visible) > 0 {
				m.cursor = len(m.visible) - 1
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "/":
			m.finding = true
			m.query = ""
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height - 14 // title, help, detail pane
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m browseModel) updateFinding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.finding = false
		m.applyFilter(m.query)
	case "esc", "ctrl+c":
		m.finding = false
		m.query = ""
	case "backspace":
		if len(m.query) > 0 {
			m.query = m.query[:len(m.query)-1]
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.query += string(msg.Runes)
		}
	}
	return m, nil
}

func (m browseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.path))
	b.WriteString("\n")
	if m.finding {
		b.WriteString(browseDimStyle.Render("find: ") + StyleValue.Render(m.query+"▏"))
	} else if m.query != "" {
		b.WriteString(browseDimStyle.Render(fmt.Sprintf("↑/↓ navigate  / find  esc clear filter (%q)  q quit", m.query)))
	} else {
		b.WriteString(browseDimStyle.Render("↑/↓ navigate  / find  q quit"))
	}
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.visible) {
		end = len(m.visible)
	}
	for i := m.offset; i < end; i++ {
		r := m.rows[m.visible[i]]
		line := browseLine(r, m.width-4)
		if i == m.cursor {
			b.WriteString(browseSelectedStyle.Render("▸ " + line))
		} else if r.IsEmptySeparator() {
			b.WriteString(browseDimStyle.Render("  " + line))
		} else {
			b.WriteString(browseNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	if len(m.visible) == 0 {
		b.WriteString(browseDimStyle.Render("  no rows match"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.cursor < len(m.visible) {
		b.WriteString(m.detailView(m.rows[m.visible[m.cursor]]))
	}
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.visible))))

	return b.String()
}

// browseLine formats one list entry: index, kind tag, and leading text.
func browseLine(r dialogue.Row, width int) string {
	kind := "npc"
	if r.IsReply() {
		kind = fmt.Sprintf("pc %s%d", iconArrow, *r.Next)
	}
	text := r.Male
	if text == "" {
		text = r.Female
	}
	line := fmt.Sprintf("#%-5d %-9s %s", r.Index, kind, text)
	if width > 8 && len(line) > width {
		line = line[:width-1] + "…"
	}
	return line
}

// detailView renders the selected row's full fields in a bordered pane.
func (m browseModel) detailView(r dialogue.Row) string {
	var b strings.Builder

	kind := "NPC line"
	if r.IsReply() {
		kind = fmt.Sprintf("player reply %s #%d", iconArrow, *r.Next)
	}
	b.WriteString(StyleHighlight.Render(fmt.Sprintf("#%d", r.Index)) + "  " + browseDimStyle.Render(kind))
	if r.ParentLine != nil {
		b.WriteString(browseDimStyle.Render(fmt.Sprintf("  answers #%d", *r.ParentLine)))
	}
	b.WriteString("\n")

	if r.Male != "" {
		b.WriteString(browseField("male", r.Male))
	}
	if r.Female != "" && r.Female != r.Male {
		b.WriteString(browseField("female", r.Female))
	}
	if r.Condition != "" {
		b.WriteString(browseField("condition", r.Condition))
	}
	if r.Action != "" {
		b.WriteString(browseField("action", r.Action))
	}
	for _, key := range dialogue.VariantKeys {
		if v, _ := r.Variant(key); v != "" {
			b.WriteString(browseField(key, v))
		}
	}
	if r.IsEmptySeparator() {
		b.WriteString(browseDimStyle.Render("(blank separator row)"))
		b.WriteString("\n")
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	return browseDetailStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func browseField(key, value string) string {
	return browseDimStyle.Render(key+": ") + StyleValue.Render(value) + "\n"
}
