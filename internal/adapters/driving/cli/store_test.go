package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

func TestCacheSetGet(t *testing.T) {
	setupCLI(t)

	tests := []struct {
		name string
		set  []string
		want string
	}{
		{name: "text", set: []string{"cache", "set", "k", "hello"}, want: "hello"},
		{name: "int type", set: []string{"cache", "set", "k", "42", "--type", "int"}, want: "42"},
		{name: "bool type", set: []string{"cache", "set", "k", "true", "-t", "bool"}, want: "true"},
		{name: "json list", set: []string{"cache", "set", "k", `[1,"a"]`, "--json"}, want: `[1,"a"]`},
		{name: "bytes", set: []string{"cache", "set", "k", "aGk=", "--type", "bytes"}, want: "aGk="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.set...)
			require.NoError(t, err)

			out, err := runCLI(t, "cache", "get", "k")
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestCacheGet_Missing(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "cache", "get", "absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key not found: absent")

	out, err := runCLI(t, "cache", "get", "absent", "--default", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback\n", out)
}

func TestCacheRemoveExistsKeys(t *testing.T) {
	setupCLI(t)

	for _, key := range []string{"b", "a"} {
		_, err := runCLI(t, "cache", "set", key, "v")
		require.NoError(t, err)
	}

	out, err := runCLI(t, "cache", "keys")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)

	out, err = runCLI(t, "cache", "exists", "a")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = runCLI(t, "cache", "remove", "a")
	require.NoError(t, err)

	out, err = runCLI(t, "cache", "exists", "a")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)

	// Removing a missing key is not an error.
	_, err = runCLI(t, "cache", "rm", "a")
	assert.NoError(t, err)
}

func TestCacheClear(t *testing.T) {
	setupCLI(t)
	origTerminal, origStdin := isTerminal, stdin
	t.Cleanup(func() {
		isTerminal = origTerminal
		stdin = origStdin
	})

	_, err := runCLI(t, "cache", "set", "k", "v")
	require.NoError(t, err)

	t.Run("declined on terminal", func(t *testing.T) {
		isTerminal = func() bool { return true }
		stdin = strings.NewReader("n\n")

		out, err := runCLI(t, "cache", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Remove all 1 keys from cache?")
		assert.Contains(t, out, "Aborted.")

		out, err = runCLI(t, "cache", "exists", "k")
		require.NoError(t, err)
		assert.Equal(t, "true\n", out)
	})

	t.Run("yes flag skips prompt", func(t *testing.T) {
		isTerminal = func() bool { return true }
		stdin = strings.NewReader("")

		out, err := runCLI(t, "cache", "clear", "--yes")
		require.NoError(t, err)
		assert.NotContains(t, out, "[y/N]")
		assert.Contains(t, out, "Cleared cache.")

		out, err = runCLI(t, "cache", "keys")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("no prompt without terminal", func(t *testing.T) {
		isTerminal = func() bool { return false }
		_, err := runCLI(t, "cache", "set", "k", "v")
		require.NoError(t, err)

		out, err := runCLI(t, "cache", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Cleared cache.")
	})
}

func TestCacheDump(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "cache", "set", "n", "3", "--type", "int")
	require.NoError(t, err)
	_, err = runCLI(t, "cache", "set", "a", "x")
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		out, err := runCLI(t, "cache", "dump")
		require.NoError(t, err)
		assert.Equal(t, "a = x (text)\nn = 3 (int)\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := runCLI(t, "cache", "dump", "--format", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"key":"a","type":"text","value":"x"},{"key":"n","type":"int","value":3}]`, out)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := runCLI(t, "cache", "dump", "-f", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "- key: a\n  type: text\n  value: x\n")
		// YAML 1.1 reads a bare n as a boolean, so the key is quoted.
		assert.Contains(t, out, "- key: \"n\"\n  type: int\n  value: 3\n")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := runCLI(t, "cache", "dump", "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format: xml")
	})
}

func TestStoreCommandsWriteDataToStdout(t *testing.T) {
	setupCLI(t)

	_, _, err := runCLIStreams(t, "cache", "set", "lang", "en")
	require.NoError(t, err)

	for _, args := range [][]string{
		{"cache", "get", "lang"},
		{"cache", "keys"},
		{"cache", "exists", "lang"},
		{"cache", "dump", "--format", "json"},
	} {
		stdout, stderr, err := runCLIStreams(t, args...)
		require.NoError(t, err, args)
		assert.NotEmpty(t, stdout, args)
		assert.Empty(t, stderr, args)
	}
}

func TestStoreCommandsDefaultToProcessStdout(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "cache", "set", "lang", "en")
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	resetFlags(rootCmd)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"cache", "get", "lang"})
	defer rootCmd.SetArgs(nil)

	err = Execute(context.Background())
	require.NoError(t, w.Close())
	os.Stdout = origStdout
	require.NoError(t, err)

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "en\n", string(data))
}

func TestCacheDump_Empty(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "cache", "dump")
	require.NoError(t, err)
	assert.Equal(t, "No keys in cache.\n", out)
}

func TestSettingsStoreText(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "settings", "set", "port", "8080", "--type", "int")
	require.NoError(t, err)

	out, err := runCLI(t, "settings", "dump")
	require.NoError(t, err)
	assert.Equal(t, "port = 8080 (text)\n", out)
}

func TestTableFlag(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "--table", "custom", "cache", "set", "k", "v")
	require.NoError(t, err)

	out, err := runCLI(t, "cache", "keys")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runCLI(t, "--table", "custom", "cache", "keys")
	require.NoError(t, err)
	assert.Equal(t, "k\n", out)

	_, err = runCLI(t, "--table", "bad name", "cache", "keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestExecuteClosesStores(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "cache", "set", "k", "v")
	require.NoError(t, err)
	assert.Nil(t, cacheStore)
	assert.Nil(t, settingsStore)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		asJSON  bool
		kind    string
		want    domain.Value
		wantErr bool
	}{
		{name: "plain text", raw: "42", want: domain.Text("42")},
		{name: "json number", raw: "42", asJSON: true, want: domain.Int(42)},
		{name: "json object", raw: `{"a":true}`, asJSON: true, want: domain.Map{"a": domain.Bool(true)}},
		{name: "float type", raw: "1.5", kind: "float", want: domain.Float(1.5)},
		{name: "null type", raw: "", kind: "null", want: domain.Null{}},
		{name: "map type", raw: `{"a":"b"}`, kind: "map", want: domain.Map{"a": domain.Text("b")}},
		{name: "map type given list", raw: `[1]`, kind: "map", wantErr: true},
		{name: "invalid json", raw: `{`, asJSON: true, wantErr: true},
		{name: "invalid int", raw: "x", kind: "int", wantErr: true},
		{name: "unknown type", raw: "x", kind: "decimal", wantErr: true},
		{name: "json and type", raw: "1", asJSON: true, kind: "int", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.raw, tt.asJSON, tt.kind)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, domain.Equal(tt.want, got), "got %#v", got)
		})
	}
}
