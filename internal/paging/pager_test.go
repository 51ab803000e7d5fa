package paging

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterspec/internal/filter"
	"github.com/roach88/filterspec/internal/sqlgen"
)

// recordingSource records the commands it receives and returns canned
// results.
type recordingSource struct {
	total    int64
	countErr error
	counts   []Command
	selects  []Command
}

func (s *recordingSource) Count(_ context.Context, cmd Command) (int64, error) {
	s.counts = append(s.counts, cmd)
	return s.total, s.countErr
}

func (s *recordingSource) Select(_ context.Context, dest any, cmd Command) error {
	s.selects = append(s.selects, cmd)
	if rows, ok := dest.(*[]int); ok {
		*rows = []int{len(s.selects)}
	}
	return nil
}

var people = Table{Name: "people", Key: "ID"}

func adults() filter.Condition {
	return filter.NewCondition(filter.NewGroup(filter.NewRule("Age", filter.GreaterOrEqual, 18)))
}

func TestCommands(t *testing.T) {
	p := New(&recordingSource{})
	cmds, err := p.Commands(filter.NewPagination(2, 10), adults(), filter.NewSort(filter.Asc("Name")), people)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM [people] WHERE ([Age] >= @p1)", cmds.Count.SQL)
	assert.Equal(t, []filter.Parameter{{Name: "p1", Value: int64(18)}}, cmds.Count.Params)

	assert.Equal(t, "SELECT * FROM [people] WHERE ([Age] >= @p1) ORDER BY [Name] ASC, [ID] ASC LIMIT @p2 OFFSET @p3", cmds.Data.SQL)
	assert.Equal(t, []filter.Parameter{
		{Name: "p1", Value: int64(18)},
		{Name: "p2", Value: int64(10)},
		{Name: "p3", Value: int64(10)},
	}, cmds.Data.Params)

	assert.Equal(t, "([Age] >= @p1)", cmds.Where)
	assert.Equal(t, "[Name] ASC, [ID] ASC", cmds.OrderBy)
}

func TestCommands_NoFilterNoSort(t *testing.T) {
	p := New(&recordingSource{})
	cmds, err := p.Commands(filter.NewPagination(1, 5), filter.Condition{}, filter.SortGroup{},
		Table{Name: "people", Columns: []string{"ID", "Name"}, Key: "ID"})
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM [people] WHERE (1 = 1)", cmds.Count.SQL)
	assert.Empty(t, cmds.Count.Params)
	assert.Equal(t, "SELECT [ID], [Name] FROM [people] WHERE (1 = 1) ORDER BY [ID] ASC LIMIT @p1 OFFSET @p2", cmds.Data.SQL)
	assert.Equal(t, []any{int64(5), int64(0)}, []any{cmds.Data.Params[0].Value, cmds.Data.Params[1].Value})
}

func TestCommands_KeyAlreadySorted(t *testing.T) {
	p := New(&recordingSource{})
	cmds, err := p.Commands(filter.NewPagination(1, 5), filter.Condition{}, filter.NewSort(filter.Desc("ID")), people)
	require.NoError(t, err)
	assert.Contains(t, cmds.Data.SQL, "ORDER BY [ID] DESC LIMIT")
}

func TestCommands_ParamsNotShared(t *testing.T) {
	p := New(&recordingSource{})
	cmds, err := p.Commands(filter.NewPagination(3, 4), adults(), filter.SortGroup{}, people)
	require.NoError(t, err)

	cmds.Count.Params[0].Value = "changed"
	assert.Equal(t, int64(18), cmds.Data.Params[0].Value)
	assert.Len(t, cmds.Count.Params, 1)
	assert.Len(t, cmds.Data.Params, 3)

	again, err := p.Commands(filter.NewPagination(3, 4), adults(), filter.SortGroup{}, people)
	require.NoError(t, err)
	assert.Equal(t, cmds.Data.SQL, again.Data.SQL)
	assert.Len(t, again.Data.Params, 3, "buffer is cleared between requests")
}

func TestCommands_Errors(t *testing.T) {
	p := New(&recordingSource{})
	page := filter.NewPagination(1, 10)

	_, err := p.Commands(filter.NewPagination(0, 10), adults(), filter.SortGroup{}, people)
	assert.ErrorIs(t, err, filter.ErrInvalidPagination)

	_, err = p.Commands(page, adults(), filter.SortGroup{}, Table{Name: "people"})
	assert.ErrorContains(t, err, "key column is required")

	_, err = p.Commands(page, adults(), filter.SortGroup{}, Table{Key: "ID"})
	assert.ErrorContains(t, err, "table name is required")

	bad := filter.NewCondition(filter.NewGroup(filter.NewRule("Age", filter.Between, 1)))
	_, err = p.Commands(page, bad, filter.SortGroup{}, people)
	assert.ErrorIs(t, err, filter.ErrMalformedRule)

	restricted := Table{Name: "people", Columns: []string{"Name"}, Key: "ID"}
	_, err = p.Commands(page, adults(), filter.NewSort(filter.Asc("Password")), restricted)
	assert.ErrorIs(t, err, filter.ErrUnknownField)

	_, err = p.Commands(page, adults(), filter.NewSort(filter.Asc("ID")), restricted)
	assert.NoError(t, err, "key is always sortable")
}

func TestGetPage_CountsOnce(t *testing.T) {
	src := &recordingSource{total: 42}
	p := New(src)
	page := filter.NewPagination(1, 10)

	for n := 1; n <= 3; n++ {
		page.PageNumber = n
		var rows []int
		total, err := p.GetPage(context.Background(), page, adults(), filter.NewSort(filter.Asc("Name")), people, &rows)
		require.NoError(t, err)
		assert.Equal(t, int64(42), total)
		assert.Equal(t, []int{n}, rows)
	}

	assert.Len(t, src.counts, 1)
	assert.Len(t, src.selects, 3)
	assert.Equal(t, int64(20), src.selects[2].Params[2].Value, "offset of page 3")

	page.ClearTotal()
	var rows []int
	_, err := p.GetPage(context.Background(), page, adults(), filter.SortGroup{}, people, &rows)
	require.NoError(t, err)
	assert.Len(t, src.counts, 2, "cleared total is recounted")
}

func TestGetPage_CountError(t *testing.T) {
	boom := errors.New("disk on fire")
	src := &recordingSource{countErr: boom}
	page := filter.NewPagination(1, 10)

	var rows []int
	_, err := New(src).GetPage(context.Background(), page, adults(), filter.SortGroup{}, people, &rows)
	require.ErrorIs(t, err, boom)
	assert.False(t, page.HasTotal())
	assert.Empty(t, src.selects)
}

func TestGetPage_Macros(t *testing.T) {
	src := &recordingSource{}
	p := New(src, WithMacros(sqlgen.Macros{"{min}": sqlgen.Static(21)}))

	cond := filter.NewCondition(filter.NewGroup(filter.NewRule("Age", filter.GreaterOrEqual, "{min}")))
	var rows []int
	_, err := p.GetPage(context.Background(), filter.NewPagination(1, 10), cond, filter.SortGroup{}, people, &rows)
	require.NoError(t, err)
	assert.Equal(t, 21, src.counts[0].Params[0].Value)
	assert.Equal(t, 21, src.selects[0].Params[0].Value)
}

func TestGetPage_LogsCommands(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	var rows []int
	_, err := New(&recordingSource{}, WithLogger(logger)).
		GetPage(context.Background(), filter.NewPagination(1, 10), adults(), filter.SortGroup{}, people, &rows)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"message":"count"`)
	assert.Contains(t, out, `"message":"select"`)
	assert.Contains(t, out, `"table":"people"`)
	assert.Contains(t, out, `"params":{"p1":18,"p2":10,"p3":0}`)
}

func TestCommand_NamedArgs(t *testing.T) {
	cmd := Command{Params: []filter.Parameter{{Name: "p1", Value: 1}, {Name: "p2", Value: "x"}}}
	args := cmd.NamedArgs()
	assert.Equal(t, []any{sql.Named("p1", 1), sql.Named("p2", "x")}, args)
}
