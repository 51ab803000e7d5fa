package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterspec/internal/store"
	"github.com/roach88/filterspec/internal/testutil"
)

// execute runs the root command with args and captures both streams.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// seededDB writes the fixture people into a fresh database file.
func seededDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, testutil.Seed(context.Background(), s, testutil.People()))
	require.NoError(t, s.Close())
	return path
}

type sqlResponse struct {
	Status  string    `json:"status"`
	Data    SQLResult `json:"data"`
	Error   *CLIError `json:"error"`
	TraceID string    `json:"trace_id"`
}

type pageResponse struct {
	Status string     `json:"status"`
	Data   PageResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func names(rows []map[string]any) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["Name"].(string)
	}
	return out
}

func TestSQLCommand_Text(t *testing.T) {
	stdout, _, err := execute(t, "sql", "testdata/adults.yaml")
	require.NoError(t, err)
	newGolden(t).Assert(t, "sql_text", []byte(stdout))
}

func TestSQLCommand_FormatsAgree(t *testing.T) {
	want, _, err := execute(t, "sql", "testdata/adults.yaml")
	require.NoError(t, err)

	for _, name := range []string{"adults.json", "adults.cue"} {
		t.Run(name, func(t *testing.T) {
			got, _, err := execute(t, "sql", filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSQLCommand_JSON(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "sql", "testdata/adults.yaml")
	require.NoError(t, err)

	var resp sqlResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, "([Age] >= @p1 AND [Status] in (@p2,@p3))", resp.Data.Where)
	assert.Equal(t, "[Name] DESC", resp.Data.OrderBy)
	require.Len(t, resp.Data.Params, 3)
	assert.Equal(t, "p1", resp.Data.Params[0].Name)
	assert.Equal(t, float64(18), resp.Data.Params[0].Value)
	assert.Nil(t, resp.Data.Count)
	assert.Nil(t, resp.Data.Data)
}

func TestSQLCommand_Page(t *testing.T) {
	stdout, _, err := execute(t, "sql", "--page", "testdata/adults.yaml")
	require.NoError(t, err)
	newGolden(t).Assert(t, "sql_page", []byte(stdout))
}

func TestSQLCommand_PageColumnsRejectSort(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "sql", "--page", "--columns", "Age", "testdata/adults.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp sqlResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnknownField, resp.Error.Code)
}

func TestSQLCommand_Macros(t *testing.T) {
	stdout, _, err := execute(t, "--config", "testdata/config.yaml", "--format", "json", "sql", "testdata/macros.yaml")
	require.NoError(t, err)

	var resp sqlResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "([Status] = @p1 OR [Name] = @p2)", resp.Data.Where)
	require.Len(t, resp.Data.Params, 2)
	assert.Equal(t, float64(1), resp.Data.Params[0].Value)
	assert.Equal(t, "Ann", resp.Data.Params[1].Value)
}

func TestSQLCommand_MalformedRule(t *testing.T) {
	stdout, _, err := execute(t, "sql", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E101]")
	assert.Contains(t, stdout, "Between requires exactly 2 value(s), got 1")
}

func TestSQLCommand_MissingSpec(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "sql", "testdata/missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp sqlResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestValidateCommand_Valid(t *testing.T) {
	stdout, _, err := execute(t, "validate", "testdata/adults.cue")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Spec valid (2 rule(s), 1 sort rule(s))")
}

func TestValidateCommand_ReportsEveryProblem(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "validate", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Rules)

	want := []ValidationIssue{
		{Code: ErrCodeMalformedRule, Path: "groups[0].rules[0]", Field: "Age", Message: "Between requires exactly 2 value(s), got 1"},
		{Code: ErrCodeMalformedRule, Path: "groups[0].rules[1]", Message: "rule has an empty field"},
		{Code: ErrCodeMalformedRule, Path: "groups[0].groups[0].rules[0]", Field: "Nickname", Message: "IsNull requires exactly 0 value(s), got 1"},
		{Code: ErrCodeMalformedRule, Path: "sort.rules[0]", Message: "sort rule has an empty field"},
		{Code: ErrCodeInvalidPagination, Message: "page number must be >= 1, got 0"},
	}
	assert.Equal(t, want, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, want[0].Code, resp.Error.Code)
}

func TestValidateCommand_Text(t *testing.T) {
	stdout, _, err := execute(t, "validate", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, stdout, "✗ Validation failed")
	assert.Contains(t, stdout, "groups[0].groups[0].rules[0]\n  E101: IsNull requires exactly 0 value(s), got 1")
}

func TestValidateCommand_Columns(t *testing.T) {
	stdout, _, err := execute(t, "--format", "json", "validate", "--columns", "Age,Status", "testdata/adults.yaml")
	require.Error(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, ErrCodeUnknownField, resp.Data.Errors[0].Code)
	assert.Equal(t, "sort.rules[0]", resp.Data.Errors[0].Path)
	assert.Equal(t, "Name", resp.Data.Errors[0].Field)
}

func TestValidateCommand_ParseError(t *testing.T) {
	stdout, _, err := execute(t, "validate", "testdata/unknown_key.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stdout, "Error [E003]")
}

func TestPageCommand_JSON(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "--format", "json", "page", "--db", db, "testdata/adults.yaml")
	require.NoError(t, err)

	var resp pageResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "people", resp.Data.Table)
	assert.Equal(t, 2, resp.Data.PageNumber)
	assert.Equal(t, 4, resp.Data.PageSize)
	assert.Equal(t, int64(6), resp.Data.Total)
	assert.Equal(t, int64(2), resp.Data.PageCount)
	assert.Equal(t, []string{"Ann", "Alice"}, names(resp.Data.Rows))
}

func TestPageCommand_FlagsOverrideSpec(t *testing.T) {
	db := seededDB(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"first page", []string{"--page-number", "1"}, []string{"Ivy", "Hal", "Finn", "Eve"}},
		{"resized", []string{"--page-number", "2", "--page-size", "3"}, []string{"Eve", "Ann", "Alice"}},
		{"past the end", []string{"--page-number", "9"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "page", "--db", db}, tt.args...)
			args = append(args, "testdata/adults.yaml")
			stdout, _, err := execute(t, args...)
			require.NoError(t, err)

			var resp pageResponse
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			assert.Equal(t, int64(6), resp.Data.Total)
			assert.Equal(t, tt.want, names(resp.Data.Rows))
		})
	}
}

func TestPageCommand_Text(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "page", "--db", db, "--columns", "ID,Name,Age", "testdata/adults.yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "people: page 2 of 2 (6 row(s) total)\n")
	assert.Contains(t, stdout, `{"Age":41,"ID":1,"Name":"Ann"}`)
	assert.Contains(t, stdout, `{"Age":30,"ID":3,"Name":"Alice"}`)
	assert.NotContains(t, stdout, "Email")
}

func TestPageCommand_VerboseLogsToStderr(t *testing.T) {
	db := seededDB(t)

	stdout, stderr, err := execute(t, "--verbose", "--format", "json", "page", "--db", db, "testdata/adults.yaml")
	require.NoError(t, err)

	var resp pageResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), "stdout should hold only the JSON response")
	assert.Contains(t, stderr, "SELECT COUNT(*) FROM [people]")
	assert.Contains(t, stderr, "trace_id")
}

func TestPageCommand_InvalidPage(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "--format", "json", "page", "--db", db, "testdata/invalid.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp pageResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidPagination, resp.Error.Code)
}

func TestPageCommand_UnknownTable(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "--format", "json", "page", "--db", db, "--table", "robots", "testdata/adults.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp pageResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "robots")
}
