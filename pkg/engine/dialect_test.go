package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-logscope/pkg/adapters/backend"
	"github.com/ekaya-inc/ekaya-logscope/pkg/models"
	"github.com/ekaya-inc/ekaya-logscope/pkg/sql"
)

func TestFormatRow_Scalars(t *testing.T) {
	fields := []models.OutField{{Name: "date"}, {Name: "msg"}}
	got := FormatRow([]any{"2024-01-01", "ERR1"}, []string{"CREATED", "MESSAGE"}, fields)
	assert.Equal(t, "date:'2024-01-01' msg:'ERR1' \n--------------------------------------\n", got)
}

func TestFormatRow_Markup(t *testing.T) {
	fields := []models.OutField{{Name: "id"}, {Name: "payload", IsMarkup: true}}
	got := FormatRow([]any{int64(7), "<a><b>1</b></a>"}, nil, fields)
	assert.Equal(t, "id:'7' \npayload:\n<a>\n  <b>1</b>\n</a>\n"+RowSeparator, got)

	got = FormatRow([]any{int64(8), "not xml"}, nil, fields)
	assert.Equal(t, "id:'8' \npayload:\nnot xml\n"+RowSeparator, got, "malformed markup is printed as is")
}

func TestFormatRow_ExtraColumnsUseBackendNames(t *testing.T) {
	fields := []models.OutField{{Name: "date"}}
	got := FormatRow([]any{"2024-01-01", "ERR1", nil}, []string{"created", "message"}, fields)
	assert.Equal(t, "date:'2024-01-01' message:'ERR1' col3:'NULL' "+RowSeparator, got)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "NULL", FormatValue(nil))
	assert.Equal(t, "abc", FormatValue([]byte("abc")))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "2024-01-02 03:04:05", FormatValue(time.Date(2024, 1, 2, 3, 4, 5, 999, time.UTC)))
}

func TestShellDialect(t *testing.T) {
	d := newDialect(backend.KindShell, backend.Params{models.ParamRemoteDir: "/opt/app/log"})

	cmd, err := d.prepareIn(appSource, "ls -1")
	require.NoError(t, err)
	assert.Equal(t, "cd /opt/app/log\nls -1", cmd)

	assert.Equal(t, []string{"a", "b"}, d.prepareOut(&backend.Result{Lines: []string{"a", "b"}}, appSource))
	assert.Nil(t, d.prepareOut(nil, appSource))

	noDir := newDialect(backend.KindShell, backend.Params{})
	cmd, err = noDir.prepareIn(appSource, "ls -1")
	require.NoError(t, err)
	assert.Equal(t, "ls -1", cmd)
}

func TestQueryDialect(t *testing.T) {
	d := newDialect(backend.KindQuery, backend.Params{})
	src := models.Source{Name: "events", Fields: []models.OutField{{Name: "date"}, {Name: "msg"}}}

	stmt, err := d.prepareIn(src, "select created, message from events;")
	require.NoError(t, err)
	assert.Equal(t, "select created, message from events", stmt)

	_, err = d.prepareIn(src, "select 1 from dual; delete from events")
	assert.ErrorIs(t, err, sql.ErrMultipleStatements)

	res := &backend.Result{
		Columns: []string{"created", "message"},
		Rows:    [][]any{{"2024-01-01", "ERR1"}, {"2024-01-02", "ERR2"}},
	}
	lines := d.prepareOut(res, src)
	assert.Equal(t, []string{
		"date:'2024-01-01' msg:'ERR1' " + RowSeparator,
		"date:'2024-01-02' msg:'ERR2' " + RowSeparator,
	}, lines)

	assert.Nil(t, d.prepareOut(&backend.Result{Columns: []string{"created"}}, src), "no rows, no lines")
	assert.Nil(t, d.prepareOut(nil, src))
}
