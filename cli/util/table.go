package util

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/wkalt/ckpt/catalog"
)

// Table is a set of string rows under a header. It prints as aligned columns
// when it fits the terminal and as one block per record when it does not.
type Table struct {
	Headers []string
	Rows    [][]string
}

// EntryTable renders catalog entries as a table.
func EntryTable(entries []catalog.Entry) *Table {
	t := &Table{Headers: []string{"Name", "ID", "Checkpoints", "Events", "Pushed At", "Store"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			e.Name,
			e.ID,
			strconv.FormatInt(e.Checkpoints, 10),
			strconv.FormatInt(e.NbEvents, 10),
			e.PushedAt.Format(time.RFC3339),
			e.Store,
		})
	}
	return t
}

// widths returns the width of each column including one space of padding on
// either side.
func (t *Table) widths() []int {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h) + 2
	}
	for _, row := range t.Rows {
		for i, col := range row {
			widths[i] = max(widths[i], len(col)+2)
		}
	}
	return widths
}

// Width returns the number of characters in one line of the column layout.
func (t *Table) Width() int {
	total := len(t.Headers) + 1
	for _, w := range t.widths() {
		total += w
	}
	return total
}

// WriteColumns writes the table as
//
//	| Name          | ID    | Checkpoints |
//	|---------------|-------|-------------|
//	| traces/kernel | 7f3c… | 1000        |
func (t *Table) WriteColumns(w io.Writer) {
	widths := t.widths()
	line := func(cells []string) {
		sb := strings.Builder{}
		sb.WriteString("|")
		for i, cell := range cells {
			fmt.Fprintf(&sb, " %-*s|", widths[i]-1, cell)
		}
		fmt.Fprintln(w, sb.String())
	}
	line(t.Headers)
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width-2)
	}
	fmt.Fprintln(w, "|-"+strings.Join(sep, "-|-")+"-|")
	for _, row := range t.Rows {
		line(row)
	}
}

// WriteRecords writes one block per row, for tables too wide for the
// terminal:
//
//	-[ 1 ]------+---------------
//	Name        | traces/kernel
//	Checkpoints | 1000
func (t *Table) WriteRecords(w io.Writer, termWidth int) {
	keyWidth := 0
	for _, h := range t.Headers {
		keyWidth = max(keyWidth, len(h)+1)
	}
	keyWidth = max(keyWidth, len(fmt.Sprintf("-[ %d ]", len(t.Rows))))
	valueWidth := 0
	for _, row := range t.Rows {
		for _, col := range row {
			valueWidth = max(valueWidth, len(col))
		}
	}
	dashes := strings.Repeat("-", max(min(valueWidth+2, termWidth-keyWidth-1), 1))
	for i, row := range t.Rows {
		label := fmt.Sprintf("-[ %d ]", i+1)
		fmt.Fprintf(w, "%s%s+%s\n", label, strings.Repeat("-", keyWidth-len(label)), dashes)
		for j, col := range row {
			fmt.Fprintf(w, "%-*s| %s\n", keyWidth, t.Headers[j], col)
		}
	}
}

// Print picks the layout for a terminal termWidth characters wide.
func (t *Table) Print(w io.Writer, termWidth int) {
	if t.Width() > termWidth {
		t.WriteRecords(w, termWidth)
		return
	}
	t.WriteColumns(w)
}

// TermWidth returns the width of the controlling terminal, or 80 if it cannot
// be determined.
func TermWidth() int {
	cmd := exec.Command("stty", "size")
	cmd.Stdin = os.Stdin
	out, err := cmd.Output()
	if err != nil {
		return 80
	}
	var rows, cols int
	if _, err := fmt.Sscanf(string(out), "%d %d", &rows, &cols); err != nil {
		return 80
	}
	return cols
}
