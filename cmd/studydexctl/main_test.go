package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studydex/internal/engine"
)

type cli struct {
	t    *testing.T
	base []string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{t: t, base: []string{
		"--store", "file",
		"--db-path", filepath.Join(dir, "state.json"),
		"--env-file", filepath.Join(dir, "missing.env"),
		"--log-level", "error",
	}}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	full := append(append([]string{}, args...), c.base...)
	err := run(context.Background(), full, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	require.NoError(c.t, err, "args=%v", args)
	return out
}

var instancePattern = regexp.MustCompile(`instance=([0-9a-f-]{36})`)

func TestCLIStudyCatchAndReports(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.mustRun("init"), "initialized store=file")
	assert.Contains(t, c.mustRun("log", "4.5"), "coins=4.5")

	out := c.mustRun("catch")
	m := instancePattern.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	assert.Contains(t, c.mustRun("favorite", id[:8]), "favorite=true")
	assert.Contains(t, c.mustRun("nickname", id, "Buddy"), `nickname="Buddy"`)

	inv := c.mustRun("inventory", "--csv")
	lines := strings.Split(strings.TrimSpace(inv), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], id)
	assert.Contains(t, lines[1], "Buddy")

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("status", "--json")), &status))
	assert.EqualValues(t, 1, status["owned"])
	assert.EqualValues(t, 1, status["discovered"])
	assert.EqualValues(t, 649, status["catalog_size"])

	dex := c.mustRun("dex")
	assert.Equal(t, 649, strings.Count(dex, "\n"))
	assert.Equal(t, 648, strings.Count(dex, `name="???"`))

	_, err := c.run("", "catch")
	require.ErrorIs(t, err, engine.ErrInsufficientFunds)

	_, err = c.run("", "log", "0")
	require.ErrorIs(t, err, engine.ErrInvalidHours)
	_, err = c.run("", "log", "lots")
	require.ErrorIs(t, err, engine.ErrInvalidHours)
}

func TestCLITradeConfirmationAndLimit(t *testing.T) {
	c := newCLI(t)
	c.mustRun("log", "6")
	first := instancePattern.FindStringSubmatch(c.mustRun("catch"))[1]
	second := instancePattern.FindStringSubmatch(c.mustRun("catch"))[1]

	assert.Contains(t, c.mustRun("trade", first, "--dry-run"), "trade available")

	out, err := c.run("n\n", "trade", first)
	require.NoError(t, err)
	assert.Contains(t, out, "trade cancelled")

	out, err = c.run("y\n", "trade", first)
	require.NoError(t, err)
	assert.Contains(t, out, "traded instance="+first)

	_, err = c.run("", "trade", second, "--yes")
	require.ErrorIs(t, err, engine.ErrRateLimited)
	assert.Contains(t, engine.Message(err), "You have already traded")

	inv := c.mustRun("inventory")
	assert.Contains(t, inv, second)
	assert.NotContains(t, inv, first)
}

func TestCLIExportImport(t *testing.T) {
	src := newCLI(t)
	src.mustRun("log", "3")
	src.mustRun("settings", "--daily-target", "5", "--dark-mode")

	backup := filepath.Join(t.TempDir(), "backup.json")
	assert.Contains(t, src.mustRun("export", "--out", backup), "exported path="+backup)

	dst := newCLI(t)
	assert.Contains(t, dst.mustRun("import", backup), "imported coins=3")
	settings := dst.mustRun("settings")
	assert.Contains(t, settings, "daily_target=5")
	assert.Contains(t, settings, "dark_mode=true")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"coins":"x"}`), 0o644))
	_, err := dst.run("", "import", bad)
	require.ErrorIs(t, err, engine.ErrMalformedImport)
	assert.Contains(t, dst.mustRun("status"), "coins=3")

	stdout := dst.mustRun("export", "--out", "-")
	assert.True(t, json.Valid([]byte(stdout)))
}

func TestCLISettingsValidation(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "settings", "--scale", "3")
	require.ErrorIs(t, err, engine.ErrInvalidSettings)
	assert.Contains(t, c.mustRun("settings", "--theme-color", "#112233"), "theme_color=#112233")
}

func TestCLIEvolveBranchNeedsChoice(t *testing.T) {
	c := newCLI(t)
	c.mustRun("log", "3")
	id := instancePattern.FindStringSubmatch(c.mustRun("catch"))[1]

	// Whatever was caught, asking for a form it cannot take is rejected.
	_, err := c.run("", "evolve", id, "--choose", "Mew")
	require.Error(t, err)
}

func TestCLIRejectsUnknownStore(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"status", "--store", "tape"}, strings.NewReader(""), &out, &out)
	require.Error(t, err)
}

func TestCLIVersion(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, strings.NewReader(""), &out, &out))
	assert.Contains(t, out.String(), "studydexctl version dev")
}
