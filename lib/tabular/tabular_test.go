package tabular

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	var payload any
	err := json.Unmarshal([]byte(raw), &payload)
	require.NoError(t, err)
	return payload
}

func TestExtractRows(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    int
	}{
		{"bare list", `[{"a":1},{"a":2}]`, 2},
		{"data key", `{"data":[{"a":1}]}`, 1},
		{"records key", `{"code":200,"records":[{"a":1},{"a":2},{"a":3}]}`, 3},
		{"graph key", `{"@graph":[{"t":"x"}]}`, 1},
		{"items key", `{"items":[{"a":1}]}`, 1},
		{"unknown key fallback", `{"whatever":[{"a":1},{"a":2}]}`, 2},
		{"empty list", `{"data":[]}`, 0},
		{"scalar list ignored", `{"data":[1,2,3]}`, 0},
		{"no rows", `{"message":"nope"}`, 0},
		{"scalar payload", `42`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := ExtractRows(decode(t, tc.payload))
			require.NotNil(t, rows)
			require.Len(t, rows, tc.want)
		})
	}
}

func TestExtractRowsPrefersConventionalKeys(t *testing.T) {
	payload := decode(t, `{"aaa":[{"wrong":true}],"data":[{"right":true}]}`)
	rows := ExtractRows(payload)
	require.Len(t, rows, 1)
	require.Equal(t, true, rows[0]["right"])
}

func TestFlatten(t *testing.T) {
	payload := decode(t, `{
		"station": {"id": "28079004", "coords": {"lat": 40.42, "lon": -3.71}},
		"values": [1, 2],
		"medicion": [{"magnitud": "NO2"}],
		"ok": true
	}`)
	flat := Flatten(payload.(map[string]any))

	want := Row{
		"station.id":         "28079004",
		"station.coords.lat": 40.42,
		"station.coords.lon": -3.71,
		"values.0":           float64(1),
		"values.1":           float64(2),
		"medicion.0.magnitud": "NO2",
		"ok":                 true,
	}
	if diff := cmp.Diff(want, flat); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rows := []Row{
		{"a": "x", "b": float64(1)},
		{"a": "y", "c": true},
	}

	var buf bytes.Buffer
	err := WriteCSV(&buf, rows, WriteOptions{Fields: []string{"a", "b", "c"}})
	require.NoError(t, err)

	back, header, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, header)

	want := []Row{
		{"a": "x", "b": "1", "c": ""},
		{"a": "y", "b": "", "c": "true"},
	}
	if diff := cmp.Diff(want, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSVEmptyRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, WriteOptions{}))
	require.Zero(t, buf.Len())
}

func TestTypeRow(t *testing.T) {
	rows := []Row{
		{"s": "x", "n": float64(1), "b": true, "z": nil, "mixed": float64(2)},
		{"s": "y", "n": float64(2), "b": false, "z": nil, "mixed": "two"},
	}
	var buf bytes.Buffer
	err := WriteCSV(&buf, rows, WriteOptions{
		Fields:  []string{"s", "n", "b", "z", "mixed"},
		TypeRow: true,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "string,number,boolean,null,string", lines[1])
}

func TestParseSpanishFloat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.234,56", 1234.56, true},
		{"1,23", 1.23, true},
		{"12.345", 12345, true},
		{"8", 8, true},
		{" 7,5 ", 7.5, true},
		{"", 0, false},
		{".", 0, false},
		{"..", 0, false},
		{"...", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseSpanishFloat(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
		if ok {
			require.InDelta(t, tc.want, got, 1e-9, "input %q", tc.in)
		}
	}
}

func TestFieldUnion(t *testing.T) {
	rows := []Row{
		{"b": 1, "a": 2},
		{"c": 3, "a": 4},
	}
	require.Equal(t, []string{"a", "b", "c"}, FieldUnion(rows))
	require.Equal(t, []string{"c", "a", "b"}, FieldUnion(rows, "c", "a"))
}
