package commands

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/cmd/relq/internal/ui"
	"github.com/satishbabariya/relq/internal/config"
)

const contributorCSV = `id,name,country
1,kasper,denmark
2,asbjorn,denmark
3,johny,israel
`

// workspace writes a CSV datasource and a config file selecting it.
func workspace(t *testing.T) (dir, cfgFile string) {
	t.Helper()
	dir = t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(data, "contributor.csv"), []byte(contributorCSV), 0o644))

	cfgFile = filepath.Join(dir, "relq.yaml")
	content := "datasource:\n  provider: csv\n  path: " + data + "\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))
	return dir, cfgFile
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ui.DisableStyling()
	var buf bytes.Buffer
	out, errOut := ui.Out, ui.Err
	ui.Out, ui.Err = &buf, &buf
	defer func() { ui.Out, ui.Err = out, errOut }()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestQueryCSV(t *testing.T) {
	_, cfgFile := workspace(t)

	out, err := run(t, "--config", cfgFile, "query", "SELECT name FROM contributor WHERE country = ? ORDER BY name", "denmark", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name\nasbjorn\nkasper\n", out)
}

func TestQueryMemoryTable(t *testing.T) {
	dir, cfgFile := workspace(t)

	out, err := run(t, "--config", cfgFile, "--provider", "memory", "--path", filepath.Join(dir, "data"),
		"query", "SELECT COUNT(*) AS n FROM contributor WHERE id > ?", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "n")
	assert.Contains(t, out, "2")
	assert.Contains(t, out, "(1 row)")
}

func TestQuerySQLite(t *testing.T) {
	_, cfgFile := workspace(t)
	dsn := filepath.Join(t.TempDir(), "oss.db")
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE contributor (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
		INSERT INTO contributor VALUES (1, 'kasper'), (2, 'asbjorn');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, "--config", cfgFile, "--provider", "sqlite", "--dsn", dsn,
		"query", "SELECT name FROM contributor ORDER BY id DESC LIMIT 1", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "name\nasbjorn\n", out)
}

func TestSchemaCommand(t *testing.T) {
	_, cfgFile := workspace(t)

	out, err := run(t, "--config", cfgFile, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "contributor")
	assert.Contains(t, out, "Relationships")

	out, err = run(t, "--config", cfgFile, "schema", "contributor")
	require.NoError(t, err)
	assert.Contains(t, out, "country")
	assert.Contains(t, out, "BIGINT")

	_, err = run(t, "--config", cfgFile, "schema", "nope")
	assert.Error(t, err)
}

func TestExplainCommand(t *testing.T) {
	_, cfgFile := workspace(t)

	out, err := run(t, "--config", cfgFile, "explain", "--plain", "SELECT name FROM contributor")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = run(t, "--config", cfgFile, "explain", "SELECT FROM")
	assert.Error(t, err)
}

func TestInitWritesConfig(t *testing.T) {
	dir, cfgFile := workspace(t)
	target := filepath.Join(dir, "out", ".relq.yaml")

	out, err := run(t, "--config", cfgFile, "--provider", "memory", "init", "--yes", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")

	cfg, err := config.LoadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Datasource.Provider)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Datasource.Path)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "relq version")

	_, err = run(t, "version", "--require", ">= 100.0")
	assert.Error(t, err)
}

func TestUnsupportedProvider(t *testing.T) {
	_, cfgFile := workspace(t)
	_, err := run(t, "--config", cfgFile, "--provider", "oracle", "query", "SELECT 1")
	assert.ErrorContains(t, err, "unsupported provider")

	_, err = run(t, "--config", cfgFile, "--provider", "sqlite", "--dsn", "", "schema")
	assert.ErrorContains(t, err, "needs a dsn")
}

func TestParseArg(t *testing.T) {
	assert.Equal(t, int64(7), parseArg("7"))
	assert.Equal(t, 2.5, parseArg("2.5"))
	assert.Equal(t, true, parseArg("TRUE"))
	assert.Equal(t, "denmark", parseArg("denmark"))
}
