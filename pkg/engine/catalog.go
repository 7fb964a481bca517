// Package engine holds the catalog of databases and the statement executor.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Chahine-tech/minisql-go/internal/display"
	"github.com/Chahine-tech/minisql-go/pkg/parser"
	"github.com/Chahine-tech/minisql-go/pkg/storage"
)

// Catalog maps database names to databases and tracks the currently
// selected one. It is the single entry point the CLI talks to: Execute
// takes one statement and returns the display string; errors never cross
// the boundary as Go errors.
type Catalog struct {
	baseDir   string
	databases map[string]*Database
	current   string
	logger    *zap.Logger
}

// NewCatalog scans the base directory: every subdirectory becomes a
// database, every .tbl file inside becomes a table. A missing base
// directory is an empty catalog. No database is selected at start.
func NewCatalog(baseDir string, logger *zap.Logger) (*Catalog, error) {
	c := &Catalog{
		baseDir:   baseDir,
		databases: make(map[string]*Database),
		logger:    logger,
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("scanning base directory %q: %w", baseDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		db, err := OpenDatabase(entry.Name(), filepath.Join(baseDir, entry.Name()), logger)
		if err != nil {
			logger.Warn("skipping unreadable database directory",
				zap.String("database", entry.Name()), zap.Error(err))
			continue
		}
		c.databases[entry.Name()] = db
	}

	logger.Debug("catalog ready",
		zap.String("base_dir", baseDir), zap.Int("databases", len(c.databases)))
	return c, nil
}

// CurrentDatabase returns the selected database name, or "" before USE.
func (c *Catalog) CurrentDatabase() string {
	return c.current
}

// DatabaseNames returns all database names sorted for stable display.
func (c *Catalog) DatabaseNames() []string {
	names := make([]string, 0, len(c.databases))
	for name := range c.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse exposes the lexer+parser pipeline for callers that want to inspect
// the statement record, such as the CLI's AST dump mode.
func (c *Catalog) Parse(queryText string) parser.ParsedQuery {
	return parser.Parse(strings.TrimSpace(queryText))
}

// Execute runs one statement and renders its outcome as human-readable
// text. Every failure is reported as a one-line message.
func (c *Catalog) Execute(queryText string) string {
	trimmed := strings.TrimSpace(queryText)
	if trimmed == "" {
		return display.Error("Error: Empty query.")
	}

	query := parser.Parse(trimmed)
	c.logger.Debug("executing statement", zap.Stringer("type", query.Type))

	switch query.Type {
	case parser.CreateDatabase:
		return c.executeCreateDatabase(query)
	case parser.UseDatabase:
		return c.executeUseDatabase(query)
	case parser.DropDatabase:
		return c.executeDropDatabase(query)
	case parser.CreateTable:
		return c.executeCreateTable(query)
	case parser.DropTable:
		return c.executeDropTable(query)
	case parser.Insert:
		return c.executeInsert(query)
	case parser.Select:
		return c.executeSelect(query)
	case parser.Delete:
		return c.executeDelete(query)
	case parser.Update:
		return c.executeUpdate(query)
	case parser.AlterTable:
		return c.executeAlterTable(query)
	case parser.ShowTables:
		return c.executeShowTables()
	case parser.ShowDatabases:
		return renderList("database", c.DatabaseNames())
	}

	return display.Error("Error: Invalid query.")
}

func (c *Catalog) executeCreateDatabase(q parser.ParsedQuery) string {
	if q.DatabaseName == "" {
		return display.Error("Error: Invalid query.")
	}
	if _, ok := c.databases[q.DatabaseName]; ok {
		return display.Error(fmt.Sprintf("Error: Database '%s' already exists.", display.Highlight(q.DatabaseName)))
	}

	dir := filepath.Join(c.baseDir, q.DatabaseName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.logger.Warn("create database failed", zap.String("database", q.DatabaseName), zap.Error(err))
		return display.Error(fmt.Sprintf("Error: Could not create database '%s'.", q.DatabaseName))
	}

	c.databases[q.DatabaseName] = &Database{
		name:   q.DatabaseName,
		dir:    dir,
		tables: make(map[string]*storage.Table),
		logger: c.logger,
	}
	return display.Success(fmt.Sprintf("Database '%s' created successfully.", display.Highlight(q.DatabaseName)))
}

func (c *Catalog) executeUseDatabase(q parser.ParsedQuery) string {
	if _, ok := c.databases[q.DatabaseName]; !ok {
		return display.Error(fmt.Sprintf("Error: Database '%s' does not exist.", q.DatabaseName))
	}
	c.current = q.DatabaseName
	return display.Success(fmt.Sprintf("Switched to database '%s'.", display.Highlight(q.DatabaseName)))
}

func (c *Catalog) executeDropDatabase(q parser.ParsedQuery) string {
	if _, ok := c.databases[q.DatabaseName]; !ok {
		return display.Error(fmt.Sprintf("Error: Database '%s' does not exist.", q.DatabaseName))
	}

	if err := os.RemoveAll(filepath.Join(c.baseDir, q.DatabaseName)); err != nil {
		c.logger.Warn("drop database failed", zap.String("database", q.DatabaseName), zap.Error(err))
		return display.Error(fmt.Sprintf("Error: Could not drop database '%s'.", q.DatabaseName))
	}

	delete(c.databases, q.DatabaseName)
	if c.current == q.DatabaseName {
		c.current = ""
	}
	return display.Success(fmt.Sprintf("Database '%s' dropped successfully.", display.Highlight(q.DatabaseName)))
}

// selected returns the current database, or a rendered error message.
func (c *Catalog) selected() (*Database, string) {
	if c.current == "" {
		return nil, display.Error("Error: No database selected. Use 'USE <database>;' first.")
	}
	db, ok := c.databases[c.current]
	if !ok {
		return nil, display.Error(fmt.Sprintf("Error: Database '%s' does not exist.", c.current))
	}
	return db, ""
}

func (c *Catalog) executeCreateTable(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}
	if q.TableName == "" || len(q.Columns) == 0 {
		return display.Error("Error: Invalid query.")
	}

	if err := db.CreateTable(q.TableName, q.Columns); err != nil {
		c.logger.Warn("create table failed", zap.String("table", q.TableName), zap.Error(err))
		return display.Error(fmt.Sprintf("Error: Could not create table '%s'.", q.TableName))
	}
	return display.Success(fmt.Sprintf("Table '%s' created successfully.", display.Highlight(q.TableName)))
}

func (c *Catalog) executeDropTable(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}

	if err := db.DropTable(q.TableName); err != nil {
		c.logger.Warn("drop table failed", zap.String("table", q.TableName), zap.Error(err))
		return display.Error(fmt.Sprintf("Error: Could not drop table '%s'.", q.TableName))
	}
	return display.Success(fmt.Sprintf("Table '%s' dropped successfully.", display.Highlight(q.TableName)))
}

func (c *Catalog) executeInsert(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}

	if err := db.Insert(q.TableName, q.Values); err != nil {
		c.logger.Warn("insert failed", zap.String("table", q.TableName), zap.Error(err))
		return display.Error(fmt.Sprintf("Error: Could not insert record into '%s'.", q.TableName))
	}
	return display.Success("Record inserted successfully.")
}

func (c *Catalog) executeSelect(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}

	header, records, err := db.Select(q)
	if err != nil {
		return display.Error(fmt.Sprintf("Error: %s.", selectErrorText(err, q.TableName)))
	}
	return "\n" + renderTable(header, records)
}

func selectErrorText(err error, tableName string) string {
	switch err {
	case ErrTableNotFound:
		return fmt.Sprintf("Table '%s' does not exist", tableName)
	case ErrColumnNotFound:
		return "Unknown column in select list"
	}
	return "Could not run SELECT"
}

func (c *Catalog) executeDelete(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}
	if len(q.Conditions) == 0 {
		return display.Error("Error: DELETE requires a WHERE clause.")
	}

	removed, err := db.Delete(q.TableName, condition(q.Conditions[0]))
	if err != nil {
		c.logger.Warn("delete failed", zap.String("table", q.TableName), zap.Error(err))
		return display.Error("Error: Could not delete records.")
	}
	return display.Success(fmt.Sprintf("%d record(s) deleted.", removed))
}

func (c *Catalog) executeUpdate(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}
	if len(q.Conditions) == 0 || len(q.Assignments) == 0 {
		return display.Error("Error: UPDATE requires SET and WHERE clauses.")
	}

	assignments := make([]storage.Assignment, 0, len(q.Assignments))
	for _, a := range q.Assignments {
		assignments = append(assignments, storage.Assignment{Column: a.Column, Value: a.Value})
	}

	updated, err := db.Update(q.TableName, assignments, condition(q.Conditions[0]))
	if err != nil {
		c.logger.Warn("update failed", zap.String("table", q.TableName), zap.Error(err))
		return display.Error("Error: Could not update records.")
	}
	return display.Success(fmt.Sprintf("%d record(s) updated.", updated))
}

func (c *Catalog) executeAlterTable(q parser.ParsedQuery) string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}
	if q.AlterColumnName == "" {
		return display.Error("Error: Invalid query.")
	}

	if err := db.Alter(q.TableName, q.AlterType, q.AlterColumnName); err != nil {
		c.logger.Warn("alter table failed",
			zap.String("table", q.TableName), zap.String("action", string(q.AlterType)), zap.Error(err))
		return display.Error(fmt.Sprintf("Error: Could not alter table '%s'.", q.TableName))
	}
	return display.Success(fmt.Sprintf("Table '%s' altered successfully.", display.Highlight(q.TableName)))
}

func (c *Catalog) executeShowTables() string {
	db, errMsg := c.selected()
	if db == nil {
		return errMsg
	}
	return renderList("table", db.TableNames())
}
