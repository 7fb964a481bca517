package storage

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Chahine-tech/minisql-go/pkg/index"
)

// TableFileExt is the suffix of per-table files inside a database directory.
const TableFileExt = ".tbl"

// Condition is a single column/operator/literal predicate.
type Condition struct {
	Column string
	Op     string
	Value  string
}

// Assignment is one column = value pair applied by UpdateWhere.
type Assignment struct {
	Column string
	Value  string
}

// Table holds an ordered column list, rows in insertion order, and two
// indices per column: an AVL tree keyed by the textual value and a B+ tree
// keyed by its numeric interpretation. Both map to row positions, which stay
// stable between two consecutive mutations but not across them.
type Table struct {
	name    string
	columns []string
	rows    []Record

	avlIndexes map[string]*index.AVLTree[int]
	bptIndexes map[string]*index.BPlusTree
}

func NewTable(name string, columns []string) *Table {
	t := &Table{
		name:       name,
		columns:    columns,
		avlIndexes: make(map[string]*index.AVLTree[int], len(columns)),
		bptIndexes: make(map[string]*index.BPlusTree, len(columns)),
	}
	for _, col := range columns {
		t.avlIndexes[col] = index.NewAVLTree[int]()
		t.bptIndexes[col] = index.NewBPlusTree()
	}
	return t
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Columns() []string {
	return t.columns
}

func (t *Table) Rows() []Record {
	return t.rows
}

// ColumnIndex resolves a column name case-insensitively to its position,
// or -1 when the table has no such column.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// ToNumber interprets a field numerically. Malformed values count as 0.
func ToNumber(value string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return n
}

// EvaluateCondition reports whether record satisfies cond. Equality compares
// strings; ordering operators compare numeric interpretations.
func (t *Table) EvaluateCondition(record Record, cond Condition) bool {
	colIndex := t.ColumnIndex(cond.Column)
	if colIndex < 0 {
		return false
	}

	recordValue := record.Value(colIndex)

	switch cond.Op {
	case "=", "==":
		return recordValue == cond.Value
	case "!=":
		return recordValue != cond.Value
	case ">":
		return ToNumber(recordValue) > ToNumber(cond.Value)
	case "<":
		return ToNumber(recordValue) < ToNumber(cond.Value)
	case ">=":
		return ToNumber(recordValue) >= ToNumber(cond.Value)
	case "<=":
		return ToNumber(recordValue) <= ToNumber(cond.Value)
	}
	return false
}

// Insert appends record and updates every column index incrementally.
func (t *Table) Insert(record Record) error {
	if record.Size() != len(t.columns) {
		return fmt.Errorf("column count mismatch: table %q has %d columns, record has %d values",
			t.name, len(t.columns), record.Size())
	}

	t.rows = append(t.rows, record)
	t.indexRow(len(t.rows) - 1)
	return nil
}

func (t *Table) indexRow(rowIndex int) {
	record := t.rows[rowIndex]
	for i, col := range t.columns {
		value := record.Value(i)
		t.avlIndexes[col].Insert(value, rowIndex)
		t.bptIndexes[col].Insert(ToNumber(value), rowIndex)
	}
}

// RebuildIndexes drops and re-creates all per-column indices from the
// current row set. Row positions shift after deletes and updates, so both
// paths rebuild wholesale rather than patching.
func (t *Table) RebuildIndexes() {
	for _, col := range t.columns {
		t.avlIndexes[col].Clear()
		t.bptIndexes[col].Clear()
	}
	for i := range t.rows {
		t.indexRow(i)
	}
}

// DeleteWhere removes every row matching cond and returns how many went.
func (t *Table) DeleteWhere(cond Condition) int {
	kept := t.rows[:0]
	removed := 0
	for _, record := range t.rows {
		if t.EvaluateCondition(record, cond) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	t.rows = kept

	if removed > 0 {
		t.RebuildIndexes()
	}
	return removed
}

// UpdateWhere applies the assignments, in order, to every row matching cond
// and returns the number of rows touched.
func (t *Table) UpdateWhere(assignments []Assignment, cond Condition) int {
	updated := 0
	for i := range t.rows {
		if !t.EvaluateCondition(t.rows[i], cond) {
			continue
		}
		for _, assign := range assignments {
			if colIndex := t.ColumnIndex(assign.Column); colIndex >= 0 {
				t.rows[i].SetValue(colIndex, assign.Value)
			}
		}
		updated++
	}

	if updated > 0 {
		t.RebuildIndexes()
	}
	return updated
}

// SelectAll returns the rows in insertion order.
func (t *Table) SelectAll() []Record {
	result := make([]Record, len(t.rows))
	copy(result, t.rows)
	return result
}

// SelectWhere picks the cheapest access path for cond:
//
//	= ==        AVL exact lookup; zero or one row (last insert wins on
//	            duplicate keys)
//	> < >= <=   B+ tree range scan over the numeric interpretation
//	!=          linear scan
func (t *Table) SelectWhere(cond Condition) []Record {
	colIndex := t.ColumnIndex(cond.Column)
	if colIndex < 0 {
		return nil
	}

	switch cond.Op {
	case "=", "==":
		rowIndex, ok := t.avlIndexes[t.columns[colIndex]].Find(cond.Value)
		if !ok || rowIndex >= len(t.rows) {
			return nil
		}
		return []Record{t.rows[rowIndex]}

	case ">", "<", ">=", "<=":
		return t.rangeScan(colIndex, cond)

	case "!=":
		result := make([]Record, 0)
		for _, record := range t.rows {
			if t.EvaluateCondition(record, cond) {
				result = append(result, record)
			}
		}
		return result
	}

	return nil
}

func (t *Table) rangeScan(colIndex int, cond Condition) []Record {
	key := ToNumber(cond.Value)
	lo, hi := math.Inf(-1), math.Inf(1)
	switch cond.Op {
	case ">", ">=":
		lo = key
	case "<", "<=":
		hi = key
	}

	// The leaf walk is inclusive on both ends; the predicate re-check
	// enforces the strict bounds of > and <.
	result := make([]Record, 0)
	for _, rowIndex := range t.bptIndexes[t.columns[colIndex]].Range(lo, hi) {
		if rowIndex < len(t.rows) && t.EvaluateCondition(t.rows[rowIndex], cond) {
			result = append(result, t.rows[rowIndex])
		}
	}
	return result
}

// SelectOrderBy returns all rows ordered by the column's string value,
// ascending unless desc. Rows with equal keys keep insertion order; desc
// reverses the whole sequence.
func (t *Table) SelectOrderBy(column string, desc bool) []Record {
	colIndex := t.ColumnIndex(column)
	if colIndex < 0 {
		return t.SelectAll()
	}

	tree := index.NewAVLTree[[]int]()
	for i, record := range t.rows {
		existing, _ := tree.Find(record.Value(colIndex))
		tree.Insert(record.Value(colIndex), append(existing, i))
	}

	result := make([]Record, 0, len(t.rows))
	for _, entry := range tree.InOrder() {
		for _, rowIndex := range entry.Value {
			result = append(result, t.rows[rowIndex])
		}
	}

	if desc {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result
}

// SelectGroupBy returns one synthetic (value, count) row per distinct value
// of the column, ordered by value ascending.
func (t *Table) SelectGroupBy(column string) []Record {
	colIndex := t.ColumnIndex(column)
	if colIndex < 0 {
		return nil
	}

	counts := index.NewAVLTree[int]()
	for _, record := range t.rows {
		n, _ := counts.Find(record.Value(colIndex))
		counts.Insert(record.Value(colIndex), n+1)
	}

	result := make([]Record, 0)
	for _, entry := range counts.InOrder() {
		result = append(result, NewRecord([]string{entry.Key, strconv.Itoa(entry.Value)}))
	}
	return result
}

// Save writes the table whole: a header line of column names, then one CSV
// line per row.
func (t *Table) Save(path string) error {
	lines := make([]string, 0, len(t.rows)+1)
	lines = append(lines, strings.Join(t.columns, ","))
	for _, record := range t.rows {
		lines = append(lines, record.ToCSV())
	}

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("saving table %q: %w", t.name, err)
	}
	return nil
}

// Load reads a .tbl file back into a table named after the file. The header
// line recovers the column list; rows shorter than it are padded with empty
// fields, longer ones truncated, so every row has exactly one field per
// column. Empty lines are skipped. All indices are rebuilt.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading table file %q: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("table file %q has no header line", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), TableFileExt)
	columns := strings.Split(strings.TrimSpace(lines[0]), ",")
	t := NewTable(name, columns)

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		record := RecordFromCSV(line)
		for record.Size() < len(columns) {
			record.AddValue("")
		}
		if record.Size() > len(columns) {
			record = NewRecord(record.Fields()[:len(columns)])
		}
		t.rows = append(t.rows, record)
	}
	t.RebuildIndexes()

	return t, nil
}
