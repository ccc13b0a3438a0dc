package markdown

import (
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// TablePlugin renders tables as GFM pipe tables. Cells spanning several rows
// or columns are repeated in every position they cover, which keeps each row
// self-contained (the help center's parameter tables use rowspan heavily).
func TablePlugin() md.Plugin {
	return func(conv *md.Converter) []md.Rule {
		return []md.Rule{{
			Filter: []string{"table"},
			Replacement: func(_ string, selec *goquery.Selection, _ *md.Options) *string {
				g := newGrid()
				selec.Find("tr").Each(func(r int, tr *goquery.Selection) {
					g.fillRow(conv, tr, r)
				})
				if g.rows == 0 {
					return nil
				}
				out := g.render()
				return &out
			},
		}}
	}
}

type cellPos struct{ row, col int }

type grid struct {
	cells map[cellPos]string
	rows  int
	cols  int
}

func newGrid() *grid {
	return &grid{cells: map[cellPos]string{}}
}

func (g *grid) fillRow(conv *md.Converter, tr *goquery.Selection, row int) {
	if row+1 > g.rows {
		g.rows = row + 1
	}
	col := 0
	tr.Children().Filter("td, th").Each(func(_ int, td *goquery.Selection) {
		for g.taken(row, col) {
			col++
		}
		text := cellText(conv.Convert(td))
		rs, cs := span(td, "rowspan"), span(td, "colspan")
		for dr := 0; dr < rs; dr++ {
			for dc := 0; dc < cs; dc++ {
				g.set(row+dr, col+dc, text)
			}
		}
		col += cs
	})
}

func (g *grid) taken(row, col int) bool {
	_, ok := g.cells[cellPos{row, col}]
	return ok
}

func (g *grid) set(row, col int, text string) {
	g.cells[cellPos{row, col}] = text
	if row+1 > g.rows {
		g.rows = row + 1
	}
	if col+1 > g.cols {
		g.cols = col + 1
	}
}

func (g *grid) render() string {
	var b strings.Builder
	b.WriteString("\n")
	for r := 0; r < g.rows; r++ {
		b.WriteString("|")
		for c := 0; c < g.cols; c++ {
			b.WriteString(" " + g.cells[cellPos{r, c}] + " |")
		}
		b.WriteString("\n")
		if r == 0 {
			b.WriteString("|" + strings.Repeat(" --- |", g.cols) + "\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func span(td *goquery.Selection, attr string) int {
	n, err := strconv.Atoi(strings.TrimSpace(td.AttrOr(attr, "1")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func cellText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}
