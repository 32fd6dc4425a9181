package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "query", "posts_0020"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseFieldArgs(t *testing.T) {
	fields, err := parseFieldArgs([]string{
		"title=hello world",
		"views=7",
		"rating=4.5",
		"draft=true",
		"note=not=split=again",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", fields["title"])
	assert.Equal(t, int64(7), fields["views"])
	assert.Equal(t, 4.5, fields["rating"])
	assert.Equal(t, true, fields["draft"])
	// Only the first = separates name from value.
	assert.Equal(t, "not=split=again", fields["note"])
}

func TestParseFieldArgsRejectsMalformed(t *testing.T) {
	_, err := parseFieldArgs([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseFieldArgs([]string{"=value"})
	assert.Error(t, err)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad path", nil)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := WrapExitError(ExitCommandError, "outer", errors.New("inner"))
	assert.Contains(t, wrapped.Error(), "outer")
	assert.Contains(t, wrapped.Error(), "inner")
}

func TestPrintDocumentsJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf, ErrWriter: &bytes.Buffer{}}

	require.NoError(t, f.PrintDocuments(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("fetched %d entries", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "fetched 3 entries\n", errOut.String())

	f.Verbose = false
	f.VerboseLog("silent")
	assert.Equal(t, "fetched 3 entries\n", errOut.String())
}
