package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/config"
	"strategy-lab/internal/leaderboard"
)

func TestParseFilterFlags(t *testing.T) {
	drafts, err := parseFilterFlags([]string{"return:min:0.1", "code:600000", "note:contains:a:b"})
	require.NoError(t, err)
	assert.Equal(t, []leaderboard.FilterDraft{
		{Column: "return", Predicate: "min", Value: "0.1"},
		{Column: "code", Value: "600000"},
		{Column: "note", Predicate: "contains", Value: "a:b"},
	}, drafts)

	_, err = parseFilterFlags([]string{"return"})
	assert.Error(t, err)

	_, err = parseFilterFlags([]string{"return:between:1"})
	assert.Error(t, err)
}

func TestRangeFlagsWindow(t *testing.T) {
	today := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

	r := rangeFlags{start: "2024-01-01", end: "2024-03-31"}
	window, err := r.window(today)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", window.StartText())
	assert.Equal(t, "2024-03-31", window.EndText())

	r = rangeFlags{preset: "one_year"}
	window, err = r.window(today)
	require.NoError(t, err)
	assert.Equal(t, "2023-06-30", window.StartText())
	assert.Equal(t, "2024-06-30", window.EndText())

	r = rangeFlags{preset: "decade"}
	_, err = r.window(today)
	assert.Error(t, err)
}

func TestWindowsCommand(t *testing.T) {
	a := &app{
		cfg: config.CLIConfig{Windows: config.WindowConfig{
			Count:        20,
			DurationDays: 15,
			Cutoff:       time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetArgs([]string{"windows", "--count", "3", "--days", "10"})
	require.NoError(t, root.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	today := time.Now().Format("2006-01-02")
	for _, line := range lines {
		assert.Contains(t, line, today)
	}
}

func TestQuietFlagRaisesLogLevel(t *testing.T) {
	level := new(slog.LevelVar)
	a := &app{
		cfg: config.CLIConfig{Windows: config.WindowConfig{
			Count:        1,
			DurationDays: 5,
			Cutoff:       time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
		logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})),
		level:  level,
	}

	root := newRootCmd(a)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"windows", "--quiet"})
	require.NoError(t, root.Execute())
	assert.Equal(t, slog.LevelError, level.Level())

	level.Set(slog.LevelWarn)
	root = newRootCmd(a)
	root.SetOut(io.Discard)
	root.SetArgs([]string{"windows"})
	require.NoError(t, root.Execute())
	assert.Equal(t, slog.LevelWarn, level.Level())
}

func TestTargetFlags(t *testing.T) {
	f := &targetFlags{instruments: []string{"600000"}, indexCode: "000300"}
	target := f.target()
	assert.Equal(t, []string{"600000"}, target.Instruments)
	assert.Equal(t, "000300", target.IndexCode)
}
