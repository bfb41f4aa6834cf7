package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/packforge/pkg/workload"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PackListModel - Interactive browser of installed packs
// =============================================================================

// packRow is one installed pack and where it lives.
type packRow struct {
	Ref     workload.PackRef
	Dir     string
	Present bool
}

// PackListModel is the bubbletea model for browsing installed packs.
type PackListModel struct {
	Band      workload.FeatureBand
	Workloads []string
	Rows      []packRow
	Cursor    int
	Height    int
	Offset    int
	// Detail shows the directory of the pack under the cursor.
	Detail bool
}

// NewPackListModel creates a browser over the packs recorded for band.
// Pack directories are looked up under root; a record whose directory is
// gone is shown dimmed.
func NewPackListModel(band workload.FeatureBand, root string, workloads []string, refs []workload.PackRef) PackListModel {
	rows := make([]packRow, len(refs))
	for i, r := range refs {
		dir, ok := packDir(root, r)
		rows[i] = packRow{Ref: r, Dir: dir, Present: ok}
	}
	return PackListModel{Band: band, Workloads: workloads, Rows: rows, Height: 15}
}

func (m PackListModel) Init() tea.Cmd {
	return nil
}

func (m PackListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m PackListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Installed packs · band " + m.Band.String()))
	b.WriteString("\n")
	workloads := "none"
	if len(m.Workloads) > 0 {
		workloads = strings.Join(m.Workloads, ", ")
	}
	b.WriteString(listDimStyle.Render("workloads: " + workloads))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.Rows) == 0 {
		b.WriteString(listDimStyle.Render("  no packs recorded"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Rows))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		status := "✓"
		if !r.Present {
			status = "missing"
		}
		rows = append(rows, []string{cursor, r.Ref.ID, r.Ref.Version, status})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Pack", "Version", "On disk").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if !m.Rows[idx].Present {
				base = base.Foreground(colorRed)
			} else if col == 2 || col == 3 {
				base = base.Foreground(colorGray)
			}
			if idx == m.Cursor {
				return base.Inherit(StyleHighlight).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	if m.Detail {
		b.WriteString("  " + StyleValue.Render(m.Rows[m.Cursor].Dir))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString("  " + StyleNumber.Render(fmt.Sprintf("[%d/%d]", m.Cursor+1, len(m.Rows))))

	return b.String()
}

// packDir finds a recorded pack under root. Records do not carry the
// pack kind, so every layout is tried.
func packDir(root string, r workload.PackRef) (string, bool) {
	var first string
	for _, kind := range []workload.PackKind{workload.KindSdk, workload.KindTool, workload.KindTemplate} {
		p := workload.PackInfo{ID: r.ID, Version: r.Version, Kind: kind}.Path(root)
		if first == "" {
			first = p
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return first, false
}

// runPackBrowser shows the browser until the user quits.
func runPackBrowser(band workload.FeatureBand, root string, workloads []string, refs []workload.PackRef) error {
	_, err := tea.NewProgram(NewPackListModel(band, root, workloads, refs)).Run()
	return err
}
