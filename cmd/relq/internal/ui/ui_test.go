package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/relq/dataset"
	"github.com/satishbabariya/relq/schema"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	DisableStyling()
	var buf bytes.Buffer
	out, errOut := Out, Err
	Out, Err = &buf, &buf
	t.Cleanup(func() { Out, Err = out, errOut })
	return &buf
}

func TestFormatValue(t *testing.T) {
	DisableStyling()
	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "2020-01-02", FormatValue(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"a", "NULL"}, FormatRow([]any{"a", nil}))
}

func TestPrintDataSet(t *testing.T) {
	buf := capture(t)

	b := schema.NewBuilder("oss")
	b.Table("contributor").
		Column("id", schema.TypeInteger, schema.PrimaryKey()).
		Column("name", schema.TypeVarchar)
	contributor := b.MustBuild().MustTable("contributor")

	ds := dataset.FromValues(dataset.HeaderOf(contributor.Columns()...), [][]any{{1, "kasper"}, {2, nil}})
	require.NoError(t, PrintDataSet(ds))

	out := buf.String()
	assert.Contains(t, out, "kasper")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
}

func TestPrintMessages(t *testing.T) {
	buf := capture(t)
	PrintSuccess("saved %s", "config")
	PrintError("failed")
	assert.Contains(t, buf.String(), "saved config")
	assert.Contains(t, buf.String(), "failed")
}
