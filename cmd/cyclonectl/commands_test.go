package main

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		pressure string
		want     string
	}{
		{"1012", "1012\tsafe\tthreshold\n"},
		{"970", "970\tstorm\tthreshold\n"},
		{"955", "955\tcyclone\tthreshold\n"},
	}
	for _, tt := range tests {
		t.Run(tt.pressure, func(t *testing.T) {
			out, err := run(t, "classify", "--pressure", tt.pressure)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestClassifyCommand_RequiresPressure(t *testing.T) {
	_, err := run(t, "classify")
	assert.ErrorContains(t, err, "pressure")
}

func TestClassifyCommand_RejectsNaN(t *testing.T) {
	_, err := run(t, "classify", "--pressure", "NaN")
	assert.ErrorIs(t, err, domain.ErrInvalidMeasurement)
}

func TestModelInitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")

	out, err := run(t, "model", "init", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = run(t, "model", "validate", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, "pressure-linear-v1\tok\n", out)

	out, err = run(t, "classify", "--pressure", "970", "--model", path)
	require.NoError(t, err)
	assert.Equal(t, "970\tstorm\tmodel:pressure-linear-v1\n", out)
}

func TestModelValidate_MissingFile(t *testing.T) {
	_, err := run(t, "model", "validate", "--file", filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorContains(t, err, "read model")
}

func TestNearestCommand(t *testing.T) {
	out, err := run(t, "nearest", "--lat", "17.6868", "--lon", "83.2185", "--limit", "3", "--seed", "42")
	require.NoError(t, err)

	rows := lines(out)
	require.Len(t, rows, 3)

	prev := -1.0
	for i, row := range rows {
		fields := strings.Split(row, "\t")
		require.Len(t, fields, 5, row)
		assert.Equal(t, strconv.Itoa(i+1), fields[0])
		d, err := strconv.ParseFloat(fields[4], 64)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}

	again, err := run(t, "nearest", "--lat", "17.6868", "--lon", "83.2185", "--limit", "3", "--seed", "42")
	require.NoError(t, err)
	assert.Equal(t, out, again, "fixed seed is reproducible")
}

func TestNearestCommand_InvalidOrigin(t *testing.T) {
	_, err := run(t, "nearest", "--lat", "91")
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestSheltersCommand(t *testing.T) {
	out, err := run(t, "shelters", "--lat", "17.6912", "--lon", "83.2105", "--radius", "0.5", "--satellites", "0")
	require.NoError(t, err)

	rows := lines(out)
	require.Len(t, rows, 1)
	assert.Equal(t, "1\tGajuwaka Cyclone Shelter\t17.691200\t83.210500\t0.000", rows[0])
}

func TestSheltersCommand_InvalidRadius(t *testing.T) {
	_, err := run(t, "shelters", "--radius", "0")
	assert.ErrorContains(t, err, "invalid radius")
}
