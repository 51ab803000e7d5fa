package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterspec/internal/filter"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)

	_, err = uuid.Parse(resp.TraceID)
	assert.NoError(t, err, "trace_id should be a UUID")
}

func TestOutputFormatter_TraceIDStable(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success("first"))
	require.NoError(t, formatter.Error("E001", "second", nil))

	dec := json.NewDecoder(buf)
	var first, second CLIResponse
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.NotEmpty(t, first.TraceID)
	assert.Equal(t, first.TraceID, second.TraceID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "compilation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Spec valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Spec valid")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"path": "groups[0].rules[1]"}
	err := formatter.Error("E101", "Between requires exactly 2 value(s), got 1", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E101]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := filter.NewError(filter.CodeMalformedRule, "Age", "Between requires exactly 2 value(s), got 1").At("groups[0].rules[0]")
	err := formatter.Fail(ExitFailure, "compiling filter", cause)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, filter.ErrMalformedRule)

	var resp struct {
		Error struct {
			Code    string          `json:"code"`
			Details ValidationIssue `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, ErrCodeMalformedRule, resp.Error.Code)
	assert.Equal(t, "groups[0].rules[0]", resp.Error.Details.Path)
	assert.Equal(t, "Age", resp.Error.Details.Field)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: diag,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Loaded %s", "spec.yaml")

			assert.Empty(t, out.String(), "verbose logs must not corrupt JSON output")
			if tt.wantLog {
				assert.Contains(t, diag.String(), "Loaded spec.yaml")
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"malformed", filter.NewError(filter.CodeMalformedRule, "", "x"), ErrCodeMalformedRule},
		{"unresolvable", filter.NewError(filter.CodeUnresolvableField, "", "x"), ErrCodeUnresolvableField},
		{"empty condition", filter.NewError(filter.CodeEmptyCondition, "", "x"), ErrCodeEmptyCondition},
		{"empty sort", filter.NewError(filter.CodeEmptySort, "", "x"), ErrCodeEmptySort},
		{"unknown field", filter.NewError(filter.CodeUnknownField, "", "x"), ErrCodeUnknownField},
		{"coercion", filter.NewError(filter.CodeCoercion, "", "x"), ErrCodeCoercion},
		{"macro", filter.NewError(filter.CodeMacro, "", "x"), ErrCodeMacro},
		{"pagination", filter.NewError(filter.CodeInvalidPagination, "", "x"), ErrCodeInvalidPagination},
		{"wrapped", fmt.Errorf("outer: %w", filter.NewError(filter.CodeMacro, "", "x")), ErrCodeMacro},
		{"load", &LoadError{Code: ErrCodeParse, Message: "bad"}, ErrCodeParse},
		{"other", errors.New("boom"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeFor(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("run: %w", WrapExitError(ExitCommandError, "open", errors.New("denied")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "open: denied")
}
