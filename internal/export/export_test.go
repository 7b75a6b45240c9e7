package export

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/electronjoe/photocoords/internal/photo"
)

func ptr[T any](v T) *T { return &v }

func sampleRecords(t *testing.T) []photo.Record {
	t.Helper()
	ts, err := photo.ParseTimestamp("2023-05-14 09:30:00")
	require.NoError(t, err)

	return []photo.Record{
		{
			FileName:   "a.jpg",
			CapturedAt: ts,
			Latitude:   ptr(40.4461),
			Longitude:  ptr(-79.9822),
			Address:    ptr("Carnegie Mellon University, Pittsburgh, Allegheny County, Pennsylvania, 15213, United States"),
		},
		{FileName: "b.png"},
		{
			FileName:  "praça & <sé>.jpeg",
			Latitude:  ptr(-23.5503),
			Longitude: ptr(-46.6339),
			Address:   ptr("Endereço não encontrado"),
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	records := sampleRecords(t)
	path := filepath.Join(t.TempDir(), "out", "metadados.json")

	require.NoError(t, WriteJSON(path, records))

	back, err := ReadJSON(path)
	require.NoError(t, err)
	if diff := cmp.Diff(records, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist), "temporary file left behind")
}

func TestMarshalJSONFormat(t *testing.T) {
	data, err := MarshalJSON(sampleRecords(t)[1:])
	require.NoError(t, err)

	want := `[
    {
        "Nome do Arquivo": "b.png",
        "Data e Hora": null,
        "Latitude": null,
        "Longitude": null,
        "Endereço": null
    },
    {
        "Nome do Arquivo": "praça & <sé>.jpeg",
        "Data e Hora": null,
        "Latitude": -23.5503,
        "Longitude": -46.6339,
        "Endereço": "Endereço não encontrado"
    }
]
`
	assert.Equal(t, want, string(data))
}

func TestMarshalJSONEmpty(t *testing.T) {
	data, err := MarshalJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestReadJSONErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadJSON(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "an array"}`), 0o644))
	_, err = ReadJSON(bad)
	assert.Error(t, err)
}

func TestWriteSpreadsheet(t *testing.T) {
	records := sampleRecords(t)
	path := filepath.Join(t.TempDir(), "metadados.xlsx")

	require.NoError(t, WriteSpreadsheet(path, records))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)

	assert.Equal(t, photo.Columns, rows[0])
	assert.Equal(t, []string{"a.jpg", "2023-05-14 09:30:00", "40.4461", "-79.9822", *records[0].Address}, rows[1])
	require.NotEmpty(t, rows[2])
	assert.Equal(t, "b.png", rows[2][0])
	for _, v := range rows[2][1:] {
		assert.Empty(t, v)
	}
	assert.Equal(t, "praça & <sé>.jpeg", rows[3][0])
	assert.Equal(t, "", rows[3][1])

	// Coordinates are stored as numbers, not text.
	typ, err := f.GetCellType(SheetName, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)

	addressWidth, err := f.GetColWidth(SheetName, "E")
	require.NoError(t, err)
	assert.InDelta(t, float64(len(*records[0].Address)+2)*1.2, addressWidth, 0.01)

	nameWidth, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	// "praça & <sé>.jpeg" is 17 runes, longer than the header.
	assert.InDelta(t, float64(17+2)*1.2, nameWidth, 0.01)

	for _, cell := range []string{"A1", "E1", "C2", "B3", "E4"} {
		styleID, err := f.GetCellStyle(SheetName, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(styleID)
		require.NoError(t, err)
		require.NotNil(t, style.Alignment, cell)
		assert.Equal(t, "center", style.Alignment.Horizontal, cell)
	}
}

func TestWriteSpreadsheetHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteSpreadsheet(path, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{photo.Columns}, rows)
}

func TestColumnWidthsCountRunes(t *testing.T) {
	rows := [][]any{
		{"ééé", nil, 1.5, nil, "x"},
		{"ab", "2023-05-14 09:30:00", nil, -79.9822, nil},
	}
	got := columnWidths(rows)
	want := []float64{(3 + 2) * 1.2, (19 + 2) * 1.2, (3 + 2) * 1.2, (8 + 2) * 1.2, (1 + 2) * 1.2}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "column %d", i)
	}
}

func TestEncodeImages(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "nested", "b64")

	contents := map[string][]byte{
		"a.jpg":  {0xFF, 0xD8, 0xFF, 0xD9},
		"b.PNG":  []byte("\x89PNG\r\n\x1a\n"),
		"c.jpeg": []byte("hello"),
	}
	var paths []string
	for _, name := range []string{"a.jpg", "b.PNG", "c.jpeg"} {
		p := filepath.Join(src, name)
		require.NoError(t, os.WriteFile(p, contents[name], 0o644))
		paths = append(paths, p)
	}

	written, err := EncodeImages(paths, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dst, "a.txt"),
		filepath.Join(dst, "b.txt"),
		filepath.Join(dst, "c.txt"),
	}, written)

	for name, data := range contents {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		got, err := os.ReadFile(filepath.Join(dst, stem+".txt"))
		require.NoError(t, err)
		assert.Equal(t, base64.StdEncoding.EncodeToString(data), string(got))
	}
}

func TestEncodeDir(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.jpg"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("n"), 0o644))

	written, err := EncodeDir(src, dst)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dst, "a.txt")}, written)
}

func TestEncodeDirMissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "dst")

	_, err := EncodeDir(filepath.Join(t.TempDir(), "missing"), dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceNotFound))

	_, statErr := os.Stat(dst)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "destination must not be created")
}
