package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	file := filepath.Join(t.TempDir(), "s.db")
	ctl := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		err := run(append([]string{"settingsctl", "--file", file}, args...), &out)
		require.NoError(t, err, strings.Join(args, " "))
		return out.String()
	}

	ctl("set", "http.port", "8080")
	ctl("set", "http.host", "example.com")
	ctl("set", "db.opts", `{"pool": 4, "ratio": 0.25, "tags": ["a"]}`)

	require.Equal(t, "8080\n", ctl("get", "http.port"))
	require.Equal(t, "\"example.com\"\n", ctl("get", "http.host"))
	require.Equal(t, `{"pool":4,"ratio":0.25,"tags":["a"]}`+"\n", ctl("get", "db.opts"))

	require.Equal(t, "db.opts\nhttp.host\nhttp.port\n", ctl("list"))
	require.Equal(t, "http.host\nhttp.port\n", ctl("list", "http."))

	sum := ctl("checksum")
	require.Len(t, strings.TrimSpace(sum), 16)

	ctl("delete", "http.host", "missing")
	require.Equal(t, "db.opts\nhttp.port\n", ctl("list"))
	require.NotEqual(t, sum, ctl("checksum"))

	dump := ctl("dump")
	require.Contains(t, dump, `"http.port"`)
	require.NotContains(t, dump, "=>")
	require.Contains(t, ctl("dump", "--values"), "=>")
}

func TestRunHistory(t *testing.T) {
	dir := t.TempDir()
	ctl := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		base := []string{"settingsctl", "--file", filepath.Join(dir, "s.db"), "--history", filepath.Join(dir, "h")}
		require.NoError(t, run(append(base, args...), &out))
		return out.String()
	}

	ctl("set", "a", "1")
	ctl("set", "a", "true")
	ctl("delete", "a")

	lines := strings.Split(strings.TrimSpace(ctl("history")), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasSuffix(lines[0], " put a 1"), lines[0])
	require.True(t, strings.HasSuffix(lines[1], " put a true"), lines[1])
	require.True(t, strings.HasSuffix(lines[2], " delete a"), lines[2])
}

func TestRunHistoryDisabled(t *testing.T) {
	file := filepath.Join(t.TempDir(), "s.db")
	var out bytes.Buffer
	err := run([]string{"settingsctl", "--file", file, "history"}, &out)
	require.ErrorContains(t, err, "history not enabled")
}

func TestRunGetMissing(t *testing.T) {
	file := filepath.Join(t.TempDir(), "s.db")
	var out bytes.Buffer
	err := run([]string{"settingsctl", "--file", file, "get", "nope"}, &out)
	require.ErrorContains(t, err, "setting not found")
}

func TestParseValue(t *testing.T) {
	require.Equal(t, int64(12), parseValue("12"))
	require.Equal(t, 1.5, parseValue("1.5"))
	require.Equal(t, true, parseValue("true"))
	require.Equal(t, "hello world", parseValue("hello world"))
	require.Equal(t, "quoted", parseValue(`"quoted"`))
	require.Equal(t, "1 2", parseValue("1 2"))
	require.Equal(t, []any{int64(1), "x"}, parseValue(`[1, "x"]`))
}
