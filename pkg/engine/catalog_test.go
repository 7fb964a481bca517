package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chahine-tech/minisql-go/internal/display"
	"github.com/Chahine-tech/minisql-go/pkg/logger"
)

func TestMain(m *testing.M) {
	display.SetEnabled(false)
	os.Exit(m.Run())
}

func newCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := NewCatalog(dir, logger.Nop())
	require.NoError(t, err)
	return c, dir
}

func mustExecute(t *testing.T, c *Catalog, statements ...string) string {
	t.Helper()
	var last string
	for _, stmt := range statements {
		last = c.Execute(stmt)
		require.NotContainsf(t, last, "Error", "statement %q failed: %s", stmt, last)
	}
	return last
}

// resultRows parses the data rows out of a rendered bordered table.
func resultRows(out string) [][]string {
	rows := make([][]string, 0)
	header := true
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		if header {
			header = false
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		row := make([]string, 0, len(cells))
		for _, cell := range cells {
			row = append(row, strings.TrimSpace(cell))
		}
		rows = append(rows, row)
	}
	return rows
}

func setupUsers(t *testing.T, c *Catalog) {
	t.Helper()
	mustExecute(t, c,
		"CREATE DATABASE test",
		"USE test",
		"CREATE TABLE t (id INT, name TEXT)",
		"INSERT INTO t VALUES (1, 'a')",
		"INSERT INTO t VALUES (2, 'b')",
	)
}

func TestScenarioRangeSelect(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	out := c.Execute("SELECT * FROM t WHERE id > 1")
	assert.Equal(t, [][]string{{"2", "b"}}, resultRows(out))
}

func TestScenarioExactMatchSelect(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	out := c.Execute("SELECT * FROM t WHERE name = 'a'")
	assert.Equal(t, [][]string{{"1", "a"}}, resultRows(out))
}

func TestScenarioOrderByDesc(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)
	mustExecute(t, c, "INSERT INTO t VALUES (3, 'a')")

	rows := resultRows(c.Execute("SELECT * FROM t ORDER BY name DESC"))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2", "b"}, rows[0])
	// Order among the equal 'a' keys is unspecified.
	assert.ElementsMatch(t, [][]string{{"1", "a"}, {"3", "a"}}, rows[1:])
}

func TestScenarioGroupBy(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)
	mustExecute(t, c, "INSERT INTO t VALUES (3, 'a')")

	rows := resultRows(c.Execute("SELECT * FROM t GROUP BY name"))
	assert.Equal(t, [][]string{{"a", "2"}, {"b", "1"}}, rows)
}

func TestScenarioDeleteWithoutWhereRejected(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	out := c.Execute("DELETE FROM t")
	assert.Contains(t, out, "WHERE")

	rows := resultRows(c.Execute("SELECT * FROM t"))
	assert.Len(t, rows, 2, "table must be unchanged")
}

func TestScenarioUpdateThenSelectColumn(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	mustExecute(t, c, "UPDATE t SET name = 'z' WHERE id = 2")
	rows := resultRows(c.Execute("SELECT name FROM t WHERE id = 2"))
	assert.Equal(t, [][]string{{"z"}}, rows)
}

func TestCaseInsensitiveKeywords(t *testing.T) {
	c, _ := newCatalog(t)
	mustExecute(t, c,
		"create DATABASE Test",
		"uSe test",
		"CREATE table T (Id INT, Name TEXT)",
		"insert INTO t values (1, 'a')",
	)

	rows := resultRows(c.Execute("SeLeCt * fRoM t WhErE id = 1"))
	assert.Equal(t, [][]string{{"1", "a"}}, rows)
}

func TestUpdateWithoutWhereRejected(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	out := c.Execute("UPDATE t SET name = 'z'")
	assert.Contains(t, out, "WHERE")
}

func TestInsertArityMismatch(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	out := c.Execute("INSERT INTO t VALUES (7)")
	assert.Contains(t, out, "Error")

	rows := resultRows(c.Execute("SELECT * FROM t"))
	assert.Len(t, rows, 2)
}

func TestStatementsRequireSelectedDatabase(t *testing.T) {
	c, _ := newCatalog(t)

	for _, stmt := range []string{
		"CREATE TABLE t (id INT)",
		"INSERT INTO t VALUES (1)",
		"SELECT * FROM t",
	} {
		assert.Containsf(t, c.Execute(stmt), "No database selected", "statement %q", stmt)
	}
}

func TestUnknownObjects(t *testing.T) {
	c, _ := newCatalog(t)
	mustExecute(t, c, "CREATE DATABASE test", "USE test")

	assert.Contains(t, c.Execute("SELECT * FROM ghost"), "does not exist")
	assert.Contains(t, c.Execute("USE nowhere"), "does not exist")
	assert.Contains(t, c.Execute("DROP TABLE ghost"), "Error")
}

func TestDuplicateCreation(t *testing.T) {
	c, _ := newCatalog(t)
	mustExecute(t, c, "CREATE DATABASE test", "USE test", "CREATE TABLE t (id INT)")

	assert.Contains(t, c.Execute("CREATE DATABASE test"), "already exists")
	assert.Contains(t, c.Execute("CREATE TABLE t (id INT)"), "Error")
}

func TestInvalidQuery(t *testing.T) {
	c, _ := newCatalog(t)
	assert.Contains(t, c.Execute("FROBNICATE"), "Invalid query")
	assert.Contains(t, c.Execute("   "), "Empty query")
}

func TestCurrentDatabaseTracking(t *testing.T) {
	c, _ := newCatalog(t)
	assert.Equal(t, "", c.CurrentDatabase())

	mustExecute(t, c, "CREATE DATABASE test", "USE test")
	assert.Equal(t, "test", c.CurrentDatabase())

	mustExecute(t, c, "DROP DATABASE test")
	assert.Equal(t, "", c.CurrentDatabase(), "dropping the selected database clears the selection")
}

func TestPersistenceAcrossRestart(t *testing.T) {
	c, dir := newCatalog(t)
	setupUsers(t, c)

	// Table file layout: <base>/<db>/<table>.tbl with a header line.
	data, err := os.ReadFile(filepath.Join(dir, "test", "t.tbl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "id,name", lines[0])
	assert.Equal(t, []string{"1,a", "2,b"}, lines[1:])

	// A fresh catalog over the same directory sees the same data.
	reopened, err := NewCatalog(dir, logger.Nop())
	require.NoError(t, err)
	mustExecute(t, reopened, "USE test")
	rows := resultRows(reopened.Execute("SELECT * FROM t"))
	assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}}, rows)
}

func TestDropTableRemovesFile(t *testing.T) {
	c, dir := newCatalog(t)
	setupUsers(t, c)

	mustExecute(t, c, "DROP TABLE t")
	_, err := os.Stat(filepath.Join(dir, "test", "t.tbl"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, c.Execute("SELECT * FROM t"), "does not exist")
}

func TestDropDatabaseRemovesDirectory(t *testing.T) {
	c, dir := newCatalog(t)
	setupUsers(t, c)

	mustExecute(t, c, "DROP DATABASE test")
	_, err := os.Stat(filepath.Join(dir, "test"))
	assert.True(t, os.IsNotExist(err))
}

func TestAlterTableAdd(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	mustExecute(t, c, "ALTER TABLE t ADD email TEXT")
	rows := resultRows(c.Execute("SELECT * FROM t"))
	assert.Equal(t, [][]string{{"1", "a", ""}, {"2", "b", ""}}, rows)

	mustExecute(t, c, "UPDATE t SET email = 'a@example.com' WHERE id = 1")
	rows = resultRows(c.Execute("SELECT email FROM t WHERE id = 1"))
	assert.Equal(t, [][]string{{"a@example.com"}}, rows)
}

func TestAlterTableDrop(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	mustExecute(t, c, "ALTER TABLE t DROP name")
	rows := resultRows(c.Execute("SELECT * FROM t"))
	assert.Equal(t, [][]string{{"1"}, {"2"}}, rows)
}

func TestAlterTableModifyKeepsData(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	mustExecute(t, c, "ALTER TABLE t MODIFY name VARCHAR")
	rows := resultRows(c.Execute("SELECT * FROM t"))
	assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}}, rows)
}

func TestShowTablesAndDatabases(t *testing.T) {
	c, _ := newCatalog(t)
	mustExecute(t, c, "CREATE DATABASE d1", "CREATE DATABASE d2", "USE d1",
		"CREATE TABLE zeta (id INT)", "CREATE TABLE alpha (id INT)")

	assert.Equal(t, [][]string{{"alpha"}, {"zeta"}}, resultRows(c.Execute("SHOW TABLES")))
	assert.Equal(t, [][]string{{"d1"}, {"d2"}}, resultRows(c.Execute("SHOW DATABASES")))
}

func TestSelectEmptyTableRendersPlaceholder(t *testing.T) {
	c, _ := newCatalog(t)
	mustExecute(t, c, "CREATE DATABASE test", "USE test", "CREATE TABLE t (id INT)")

	out := c.Execute("SELECT * FROM t")
	assert.Contains(t, out, "no records found")
}

func TestSelectUnknownColumnProjection(t *testing.T) {
	c, _ := newCatalog(t)
	setupUsers(t, c)

	assert.Contains(t, c.Execute("SELECT salary FROM t"), "Error")
}
