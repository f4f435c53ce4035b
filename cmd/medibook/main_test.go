package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/medibook/plugin/intake"
	"github.com/hrygo/medibook/plugin/intake/guardrail"
)

// Wednesday in Asia/Kolkata.
const testNow = "2026-10-14T10:30:00+05:30"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseCommand_JSON(t *testing.T) {
	out, err := execute(t, "", "parse", "--now", testNow, "--json",
		"Dentist appointment next Monday @ 3pm", "hello")
	require.NoError(t, err)

	var records []parseRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records), out)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].Result)
	assert.Equal(t, intake.StatusOK, records[0].Result.Status)
	assert.Equal(t, &intake.Appointment{
		Department: "Dentistry",
		Date:       "2026-10-19",
		Time:       "15:00",
		Timezone:   "Asia/Kolkata",
	}, records[0].Result.Appointment)
	assert.Nil(t, records[0].Clarification)

	assert.Equal(t, "hello", records[1].Input)
	require.NotNil(t, records[1].Clarification)
	assert.Equal(t, guardrail.MessageAmbiguousDepartment, records[1].Clarification.Message)
}

func TestParseCommand_Stdin(t *testing.T) {
	out, err := execute(t, "cardiology tomorrow 10am\n\n  \nneurology tomorrow\n", "parse", "--now", "2026-10-14 10:30")
	require.NoError(t, err)

	assert.Contains(t, out, "[1] cardiology tomorrow 10am")
	assert.Contains(t, out, "Appointment: Cardiology, Thu, 15 Oct 2026 10:00 IST (Asia/Kolkata)")
	assert.Contains(t, out, "[2] neurology tomorrow")
	assert.Contains(t, out, "Needs clarification: Ambiguous time")
	assert.NotContains(t, out, "[3]")
}

func TestParseCommand_Errors(t *testing.T) {
	_, err := execute(t, "", "parse", "--now", "yesterday-ish", "dentist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --now")

	_, err = execute(t, "", "parse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input")

	out, err := execute(t, "", "parse", "--image", filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 inputs failed")
	assert.Contains(t, out, "Error: failed to read")
}

func TestParseCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "medibook.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("default-time: \"10:45\"\ndefault-offset-days: 3\n"), 0o600))

	out, err := execute(t, "", "parse", "--config", cfg, "--now", testNow, "--json", "dentist next blorp at 25:99")
	require.NoError(t, err)

	var records []parseRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.NotNil(t, records[0].Result)
	assert.Equal(t, "2026-10-17", records[0].Result.Normalized.Date)
	assert.Equal(t, "10:45", records[0].Result.Normalized.Time)
}

func TestParseCommand_DefaultDepartmentFlag(t *testing.T) {
	out, err := execute(t, "", "parse", "--now", testNow, "--json", "--timezone", "UTC",
		"--default-department", "Family Practice", "doctor tomorrow 9am")
	require.NoError(t, err)

	var records []parseRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	// "doctor" maps to General Medicine explicitly; the fallback is not used.
	assert.Equal(t, "General Medicine", records[0].Result.Appointment.Department)
	assert.Equal(t, "UTC", records[0].Result.Appointment.Timezone)
	assert.Equal(t, "2026-10-15", records[0].Result.Appointment.Date)
}

func TestDepartmentsCommand(t *testing.T) {
	out, err := execute(t, "", "departments")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 2)
	assert.Regexp(t, `^KEYWORD\s+DEPARTMENT$`, lines[0])
	assert.Regexp(t, `^dentist\s+Dentistry$`, lines[1])
	assert.Regexp(t, `^\(fallback\)\s+General Medicine$`, lines[len(lines)-1])

	path := filepath.Join(t.TempDir(), "departments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fallback: Family Practice\ndepartments:\n  - keyword: skin\n    name: Dermatology\n"), 0o600))

	out, err = execute(t, "", "departments", "--departments-file", path, "--json")
	require.NoError(t, err)
	var got struct {
		Fallback    string `json:"fallback"`
		Departments []struct {
			Keyword string `json:"keyword"`
			Name    string `json:"name"`
		} `json:"departments"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Family Practice", got.Fallback)
	require.Len(t, got.Departments, 1)
	assert.Equal(t, "skin", got.Departments[0].Keyword)
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := execute(t, "", "departments", "--default-time", "noon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestParseReferenceTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	got, err := parseReferenceTime("2026-10-14T05:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-14 10:30", got.Format("2006-01-02 15:04"))
	assert.Equal(t, loc, got.Location())

	got, err = parseReferenceTime("2026-10-14 08:00", loc)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())
}

func TestPalette_PlainOutsideTerminal(t *testing.T) {
	pal := newPalette(&bytes.Buffer{})
	assert.Equal(t, "[OK]", pal.ok.Render("[OK]"))
	assert.Equal(t, "[WARN]", pal.warn.Render("[WARN]"))
	assert.Equal(t, "Error:", pal.fail.Render("Error:"))
}

func TestDepartmentsCommand_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "departments.toml")
	require.NoError(t, os.WriteFile(path, []byte("fallback = \"Family Practice\"\n\n[[departments]]\nkeyword = \"skin\"\nname = \"Dermatology\"\n"), 0o644))

	out, err := execute(t, "", "departments", "--departments-file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dermatology")
	assert.Contains(t, out, "Family Practice")
}
