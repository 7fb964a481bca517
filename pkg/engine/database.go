package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Chahine-tech/minisql-go/pkg/index"
	"github.com/Chahine-tech/minisql-go/pkg/parser"
	"github.com/Chahine-tech/minisql-go/pkg/storage"
)

// Database is one named collection of tables backed by a directory of .tbl
// files. Every successful mutation rewrites the affected table file whole.
type Database struct {
	name   string
	dir    string
	tables map[string]*storage.Table
	logger *zap.Logger
}

// OpenDatabase binds a database to its directory and loads every .tbl file
// found there. Files with other suffixes are ignored; unreadable tables are
// skipped with a warning.
func OpenDatabase(name, dir string, logger *zap.Logger) (*Database, error) {
	db := &Database{
		name:   name,
		dir:    dir,
		tables: make(map[string]*storage.Table),
		logger: logger,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning database directory %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), storage.TableFileExt) {
			continue
		}
		table, err := storage.Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("skipping unreadable table file",
				zap.String("database", name), zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		db.tables[table.Name()] = table
		logger.Debug("loaded table",
			zap.String("database", name), zap.String("table", table.Name()),
			zap.Int("rows", len(table.Rows())))
	}

	return db, nil
}

func (db *Database) Name() string {
	return db.name
}

// TableNames returns the table names sorted for stable display.
func (db *Database) TableNames() []string {
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (db *Database) Table(name string) (*storage.Table, bool) {
	table, ok := db.tables[name]
	return table, ok
}

func (db *Database) tableFilePath(tableName string) string {
	return filepath.Join(db.dir, tableName+storage.TableFileExt)
}

func (db *Database) save(table *storage.Table) error {
	return table.Save(db.tableFilePath(table.Name()))
}

// CreateTable registers a new empty table and persists it immediately.
func (db *Database) CreateTable(tableName string, columns []string) error {
	if _, ok := db.tables[tableName]; ok {
		return ErrTableExists
	}

	table := storage.NewTable(tableName, columns)
	db.tables[tableName] = table
	return db.save(table)
}

// DropTable removes the table and its backing file.
func (db *Database) DropTable(tableName string) error {
	if _, ok := db.tables[tableName]; !ok {
		return ErrTableNotFound
	}
	delete(db.tables, tableName)

	if err := os.Remove(db.tableFilePath(tableName)); err != nil {
		return fmt.Errorf("removing table file: %w", err)
	}
	return nil
}

// Insert appends one row and persists the table.
func (db *Database) Insert(tableName string, values []string) error {
	table, ok := db.tables[tableName]
	if !ok {
		return ErrTableNotFound
	}

	if err := table.Insert(storage.NewRecord(values)); err != nil {
		return err
	}
	return db.save(table)
}

// Delete removes the rows matching cond and persists the table.
func (db *Database) Delete(tableName string, cond storage.Condition) (int, error) {
	table, ok := db.tables[tableName]
	if !ok {
		return 0, ErrTableNotFound
	}

	removed := table.DeleteWhere(cond)
	if removed == 0 {
		return 0, nil
	}
	return removed, db.save(table)
}

// Update applies the assignments to the rows matching cond and persists.
func (db *Database) Update(tableName string, assignments []storage.Assignment, cond storage.Condition) (int, error) {
	table, ok := db.tables[tableName]
	if !ok {
		return 0, ErrTableNotFound
	}

	updated := table.UpdateWhere(assignments, cond)
	if updated == 0 {
		return 0, nil
	}
	return updated, db.save(table)
}

// Alter rebuilds the table with the changed column list. ADD appends the
// column, padding existing rows with an empty field; DROP strips the column
// and its field from every row; MODIFY leaves the data untouched since
// declared types are informational.
func (db *Database) Alter(tableName string, action parser.AlterAction, columnName string) error {
	table, ok := db.tables[tableName]
	if !ok {
		return ErrTableNotFound
	}

	switch action {
	case parser.AlterAdd:
		columns := append(append([]string{}, table.Columns()...), columnName)
		rebuilt := storage.NewTable(tableName, columns)
		for _, record := range table.Rows() {
			fields := append(append([]string{}, record.Fields()...), "")
			if err := rebuilt.Insert(storage.NewRecord(fields)); err != nil {
				return err
			}
		}
		db.tables[tableName] = rebuilt
		return db.save(rebuilt)

	case parser.AlterDrop:
		colIndex := table.ColumnIndex(columnName)
		if colIndex < 0 {
			return ErrColumnNotFound
		}
		columns := make([]string, 0, len(table.Columns())-1)
		for i, col := range table.Columns() {
			if i != colIndex {
				columns = append(columns, col)
			}
		}
		rebuilt := storage.NewTable(tableName, columns)
		for _, record := range table.Rows() {
			fields := make([]string, 0, len(columns))
			for i := range table.Columns() {
				if i != colIndex {
					fields = append(fields, record.Value(i))
				}
			}
			if err := rebuilt.Insert(storage.NewRecord(fields)); err != nil {
				return err
			}
		}
		db.tables[tableName] = rebuilt
		return db.save(rebuilt)

	case parser.AlterModify:
		if table.ColumnIndex(columnName) < 0 {
			return ErrColumnNotFound
		}
		return db.save(table)
	}

	return fmt.Errorf("unsupported ALTER action %q", action)
}

// Select computes the record set for one SELECT. The first WHERE condition
// picks the access path; ORDER BY and GROUP BY run on top, GROUP BY winning
// when both are present. Projection applies last unless selecting all; a
// GROUP BY result is always the (value, count) pair and is not projected.
func (db *Database) Select(q parser.ParsedQuery) ([]string, []storage.Record, error) {
	table, ok := db.tables[q.TableName]
	if !ok {
		return nil, nil, ErrTableNotFound
	}

	// GROUP BY wins when both it and ORDER BY appear.
	if q.GroupByColumn != "" {
		source := table
		if len(q.Conditions) > 0 {
			source = storage.NewTable(table.Name(), table.Columns())
			for _, record := range table.SelectWhere(condition(q.Conditions[0])) {
				_ = source.Insert(record)
			}
		}
		return []string{q.GroupByColumn, "count"}, source.SelectGroupBy(q.GroupByColumn), nil
	}

	var records []storage.Record
	switch {
	case len(q.Conditions) > 0:
		records = table.SelectWhere(condition(q.Conditions[0]))
		if q.OrderByColumn != "" {
			records = orderRecords(table, records, q.OrderByColumn, q.OrderByDesc)
		}
	case q.OrderByColumn != "":
		records = table.SelectOrderBy(q.OrderByColumn, q.OrderByDesc)
	default:
		records = table.SelectAll()
	}

	if q.SelectAll || len(q.SelectColumns) == 0 {
		return table.Columns(), records, nil
	}

	// Project onto the requested columns; unknown names are dropped, and an
	// all-unknown list is a user error.
	indices := make([]int, 0, len(q.SelectColumns))
	header := make([]string, 0, len(q.SelectColumns))
	for _, col := range q.SelectColumns {
		if idx := table.ColumnIndex(col); idx >= 0 {
			indices = append(indices, idx)
			header = append(header, table.Columns()[idx])
		}
	}
	if len(indices) == 0 {
		return nil, nil, ErrColumnNotFound
	}

	projected := make([]storage.Record, 0, len(records))
	for _, record := range records {
		fields := make([]string, 0, len(indices))
		for _, idx := range indices {
			fields = append(fields, record.Value(idx))
		}
		projected = append(projected, storage.NewRecord(fields))
	}
	return header, projected, nil
}

// orderRecords sorts an already-computed record set the same way
// Table.SelectOrderBy sorts the whole table: an AVL tree keyed by the
// column's string value, equal keys kept in input order, the sequence
// reversed for descending.
func orderRecords(table *storage.Table, records []storage.Record, column string, desc bool) []storage.Record {
	colIndex := table.ColumnIndex(column)
	if colIndex < 0 {
		return records
	}

	tree := index.NewAVLTree[[]int]()
	for i, record := range records {
		existing, _ := tree.Find(record.Value(colIndex))
		tree.Insert(record.Value(colIndex), append(existing, i))
	}

	result := make([]storage.Record, 0, len(records))
	for _, entry := range tree.InOrder() {
		for _, i := range entry.Value {
			result = append(result, records[i])
		}
	}
	if desc {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	return result
}

func condition(c parser.Condition) storage.Condition {
	return storage.Condition{Column: c.Column, Op: c.Op, Value: c.Value}
}
