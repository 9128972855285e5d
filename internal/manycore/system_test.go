package manycore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

const fixture = "testdata/system_2x2.xml"

func loadFixture(t *testing.T) *System {
	t.Helper()
	sys, err := ParseFile(fixture)
	require.NoError(t, err)
	return sys
}

func TestParseFile(t *testing.T) {
	sys := loadFixture(t)

	assert.Equal(t, 2, sys.Rows)
	assert.Equal(t, 2, sys.Columns)
	assert.Equal(t, "RowFirst", sys.RoutingAlgo)
	require.Len(t, sys.Cores.Core, 4)
	assert.Len(t, sys.TaskGraph.Tasks, 3)
	assert.Len(t, sys.TaskGraph.Edges, 2)

	core, ok := sys.Core(3)
	require.True(t, ok)
	require.NotNil(t, core.AllocatedTask)
	assert.Equal(t, 2, *core.AllocatedTask)
	age, ok := Attr(core.Extra, "age")
	require.True(t, ok)
	assert.Equal(t, "120", age)

	assert.Equal(t, map[int]int{0: 0, 1: 1, 2: 3}, sys.TaskCore())
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.xml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryIO))
}

func TestMarshalIndent_RoundTrip(t *testing.T) {
	sys := loadFixture(t)

	first, err := MarshalIndent(sys)
	require.NoError(t, err)

	text := string(first)
	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `<ManycoreSystem xmlns="https://www.york.ac.uk/physics-engineering-technology/ManycoreSystems" rows="2" columns="2" routingAlgo="RowFirst" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	assert.Equal(t, 1, strings.Count(text, "xmlns="), "children inherit the default namespace")
	assert.Contains(t, text, "\n    <TaskGraph>\n        <Task id=\"0\"></Task>")
	assert.Contains(t, text, `actualComLoad="50"`)

	again, err := Parse(bytes.NewReader(first))
	require.NoError(t, err)
	second, err := MarshalIndent(again)
	require.NoError(t, err)
	assert.Equal(t, text, string(second))
}

func TestMarshalIndent_KeepsNamespacedAttributes(t *testing.T) {
	doc := `<ManycoreSystem xmlns="urn:mesh" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="urn:mesh mesh.xsd" rows="1" columns="1">
    <TaskGraph></TaskGraph>
    <Cores>
        <Core id="0" age="4">
            <Router></Router>
            <Channels></Channels>
        </Core>
    </Cores>
</ManycoreSystem>`
	sys, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "urn:mesh", sys.XMLName.Space)

	out, err := MarshalIndent(sys)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<ManycoreSystem xmlns="urn:mesh" rows="1" columns="1" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="urn:mesh mesh.xsd">`)

	_, ok := Attr(sys.Extra, "schemaLocation")
	assert.False(t, ok, "namespaced attributes are not part of the model")
	assert.Equal(t, map[string]string{"@id": "0", "@age": "4"}, sys.Cores.Core[0].Attributes())
}

func TestMarshalIndent_UnnamedSystem(t *testing.T) {
	out, err := MarshalIndent(&System{Rows: 1, Columns: 1})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<ManycoreSystem rows="1" columns="1">`)
}

func TestParse_RejectsOtherRoot(t *testing.T) {
	_, err := Parse(strings.NewReader(`<svg rows="1" columns="1"></svg>`))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestMarshalIndent_NilSystem(t *testing.T) {
	_, err := MarshalIndent(nil)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotLoaded))
}

func TestValidate(t *testing.T) {
	base, err := os.ReadFile(fixture)
	require.NoError(t, err)

	cases := []struct {
		name    string
		mutate  func(string) string
		message string
	}{
		{"bad grid", func(s string) string { return strings.Replace(s, `rows="2"`, `rows="0"`, 1) }, "rows and columns must be at least 1"},
		{"core count", func(s string) string { return strings.Replace(s, `rows="2"`, `rows="3"`, 1) }, "core count does not match grid size"},
		{"wrapping grid", func(s string) string {
			return strings.Replace(s, `rows="2" columns="2"`, `rows="4294967296" columns="4294967296"`, 1)
		}, "grid is too large"},
		{"oversized grid", func(s string) string {
			return strings.Replace(s, `rows="2" columns="2"`, `rows="257" columns="256"`, 1)
		}, "grid is too large"},
		{"duplicate core", func(s string) string { return strings.Replace(s, `<Core id="3"`, `<Core id="2"`, 1) }, "duplicate core id"},
		{"unknown task", func(s string) string { return strings.Replace(s, `allocatedTask="2"`, `allocatedTask="9"`, 1) }, "core allocated to unknown task"},
		{"edge task", func(s string) string { return strings.Replace(s, `to="2"`, `to="7"`, 1) }, "edge references unknown task"},
		{"off grid", func(s string) string {
			return strings.Replace(s, `direction="North" bandwidth="100" age="3"`, `direction="West" bandwidth="100" age="3"`, 1)
		}, "channel points outside the grid"},
		{"bad direction", func(s string) string { return strings.Replace(s, `direction="East"`, `direction="Up"`, 1) }, "invalid channel direction"},
		{"malformed", func(s string) string { return s[:len(s)/2] }, "failed to decode system document"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.mutate(string(base))))
			require.Error(t, err)
			c, ok := ferrors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, ferrors.CategoryValidation, c.Category())
			assert.Equal(t, tc.message, c.Message())
		})
	}
}

func TestNeighbour(t *testing.T) {
	sys := loadFixture(t)

	n, ok := sys.Neighbour(0, East)
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	n, ok = sys.Neighbour(1, South)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = sys.Neighbour(0, North)
	assert.False(t, ok)
	_, ok = sys.Neighbour(3, East)
	assert.False(t, ok)
}
