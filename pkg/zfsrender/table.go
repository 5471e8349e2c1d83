// Renders dataset views as text tables, and an interactive terminal viewer on top of that
package zfsrender

import (
	"bytes"
	"io"
	"strings"

	"github.com/function61/zfsview/pkg/zfsbrowser"
	"github.com/function61/zfsview/pkg/zfstree"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// name column is indented by tree depth; snapshot names get "@" so they stand out
func Table(w io.Writer, view zfsbrowser.View) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetAutoWrapText(false)
	tbl.SetBorder(false)
	tbl.SetAlignment(tablewriter.ALIGN_LEFT)
	tbl.SetHeader(view.Columns)

	tbl.AppendBulk(lo.Map(view.Rows, func(row zfsbrowser.Row, _ int) []string {
		return TableRow(row)
	}))

	tbl.Render()
}

func TableLines(view zfsbrowser.View) []string {
	rendered := &bytes.Buffer{}

	Table(rendered, view)

	return strings.Split(strings.TrimRight(rendered.String(), "\n"), "\n")
}

func TableRow(row zfsbrowser.Row) []string {
	cells := append([]string{}, row.Cells...)

	if len(cells) > 0 {
		name := cells[0]
		if row.Kind == zfstree.KindSnapshot {
			name = "@" + name
		}

		cells[0] = strings.Repeat("  ", row.Depth) + name
	}

	return cells
}
