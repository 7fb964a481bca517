package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/Chahine-tech/minisql-go/internal/display"
	"github.com/Chahine-tech/minisql-go/pkg/storage"
)

// renderTable draws a bordered result table:
//
//	+----+-------+
//	| id | name  |
//	+----+-------+
//	| 1  | Alice |
//	+----+-------+
//
// Column widths follow the widest cell; cells are colored, borders cyan.
func renderTable(header []string, records []storage.Record) string {
	widths := make([]int, len(header))
	for i, col := range header {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, record := range records {
		for i := range header {
			if n := utf8.RuneCountInString(record.Value(i)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	border := borderLine(widths)

	b.WriteString(border)
	b.WriteString("\n")
	b.WriteString(display.Border("|"))
	for i, col := range header {
		b.WriteString(" " + display.Header(pad(col, widths[i])) + " ")
		b.WriteString(display.Border("|"))
	}
	b.WriteString("\n")
	b.WriteString(border)
	b.WriteString("\n")

	if len(records) == 0 {
		b.WriteString(display.Border("|") + " " + display.Dim("(no records found)") + "\n")
	} else {
		for _, record := range records {
			b.WriteString(display.Border("|"))
			for i := range header {
				b.WriteString(" " + display.Cell(pad(record.Value(i), widths[i])) + " ")
				b.WriteString(display.Border("|"))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(border)

	return b.String()
}

// renderList draws a one-column table, used by SHOW TABLES / SHOW DATABASES.
func renderList(header string, names []string) string {
	records := make([]storage.Record, 0, len(names))
	for _, name := range names {
		records = append(records, storage.NewRecord([]string{name}))
	}
	return renderTable([]string{header}, records)
}

func borderLine(widths []int) string {
	var b strings.Builder
	b.WriteString("+")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteString("+")
	}
	return display.Border(b.String())
}

func pad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
