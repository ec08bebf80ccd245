package dataset

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clinicalCSV = `sample_id,title,msi_status,tp53_status,CD8A_score,note
GSM1,Pt1_Pre,MSS,wildtype,1.5,first
GSM2,Pt2_Pre,MSI-H,mutant,NA,second
,,,,,
GSM3,Pt3_On,MSS,,"2,5",third
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestReadTableCSV(t *testing.T) {
	p := writeFile(t, "clinical.csv", []byte(clinicalCSV))
	tbl, err := ReadTable(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "clinical.csv", tbl.Name)
	assert.Equal(t, []string{"sample_id", "title", "msi_status", "tp53_status", "CD8A_score", "note"}, tbl.Header)
	require.Len(t, tbl.Rows, 3, "blank row should be skipped")
	assert.Equal(t, "2,5", tbl.Rows[2][4])
}

func TestReadTableSniffsSemicolonAndTab(t *testing.T) {
	p := writeFile(t, "expr.txt", []byte("gene\tS1\tS2\nHK2\t1\t2\n"))
	tbl, err := ReadTable(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gene", "S1", "S2"}, tbl.Header)

	p = writeFile(t, "semi.csv", []byte("a;b\n1;2\n"))
	tbl, err = ReadTable(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Header)
	assert.Equal(t, []string{"1", "2"}, tbl.Rows[0])
}

func TestReadTableGzip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "expr.tsv.gz")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("gene\tS1\tS2\nHK2\t1\t2\nTSPO\t3\t4\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	tbl, err := ReadTable(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "expr.tsv.gz", tbl.Name)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"TSPO", "3", "4"}, tbl.Rows[1])
}

// exprTSVXZ is "gene\tS1\tS2\nHK2\t1.5\t2\nTSPO\t3\t4\n" in an xz container (CRC32 check).
var exprTSVXZ = []byte{
	0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00, 0x01, 0x69, 0x22, 0xde, 0x36, 0x02, 0x00, 0x21, 0x01,
	0x16, 0x00, 0x00, 0x00, 0x74, 0x2f, 0xe5, 0xa3, 0x01, 0x00, 0x1d, 0x67, 0x65, 0x6e, 0x65, 0x09,
	0x53, 0x31, 0x09, 0x53, 0x32, 0x0a, 0x48, 0x4b, 0x32, 0x09, 0x31, 0x2e, 0x35, 0x09, 0x32, 0x0a,
	0x54, 0x53, 0x50, 0x4f, 0x09, 0x33, 0x09, 0x34, 0x0a, 0x00, 0x00, 0x00, 0x74, 0xa6, 0x8c, 0x62,
	0x00, 0x01, 0x32, 0x1e, 0x39, 0xdc, 0xf9, 0x37, 0x90, 0x42, 0x99, 0x0d, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x01, 0x59, 0x5a,
}

func TestReadTableXZ(t *testing.T) {
	p := writeFile(t, "expr.tsv.xz", exprTSVXZ)
	tbl, err := ReadTable(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "expr.tsv.xz", tbl.Name)
	assert.Equal(t, []string{"gene", "S1", "S2"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"HK2", "1.5", "2"}, tbl.Rows[0])
}

func TestReadTableXZCorrupt(t *testing.T) {
	p := writeFile(t, "expr.tsv.xz", []byte("gene\tS1\nHK2\t1\n"))
	_, err := ReadTable(p, ReadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xz")
}

func TestReadTableXLSNotBIFF(t *testing.T) {
	// supplementary files are often CSV renamed to .xls
	p := writeFile(t, "clinical.xls", []byte(strings.Repeat(clinicalCSV, 20)))
	_, err := ReadTable(p, ReadOptions{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupported))
	assert.Contains(t, err.Error(), "open xls")
}

func TestReadTableUnsupported(t *testing.T) {
	p := writeFile(t, "notes.pdf", []byte("%PDF"))
	_, err := ReadTable(p, ReadOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func writeXLSX(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clinical.xlsx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	add := func(name, body string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	add("xl/workbook.xml", `<?xml version="1.0"?><workbook xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><sheets>`+
		`<sheet name="Readme" sheetId="1" r:id="rId1"/><sheet name="Samples" sheetId="2" r:id="rId2"/></sheets></workbook>`)
	add("xl/_rels/workbook.xml.rels", `<?xml version="1.0"?><Relationships>`+
		`<Relationship Id="rId1" Target="worksheets/sheet1.xml"/><Relationship Id="rId2" Target="/xl/worksheets/sheet2.xml"/></Relationships>`)
	add("xl/sharedStrings.xml", `<?xml version="1.0"?><sst><si><t>sample_id</t></si><si><t>msi_status</t></si><si><t>S1</t></si><si><t>MSS</t></si></sst>`)
	add("xl/worksheets/sheet1.xml", `<?xml version="1.0"?><worksheet><sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>notes</t></is></c></row></sheetData></worksheet>`)
	add("xl/worksheets/sheet2.xml", `<?xml version="1.0"?><worksheet><sheetData>`+
		`<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c><c r="C1" t="inlineStr"><is><t>age</t></is></c></row>`+
		`<row r="2"><c r="A2" t="s"><v>2</v></c><c r="C2"><v>61</v></c></row>`+
		`</sheetData></worksheet>`)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return p
}

func TestReadTableXLSXSheetSelection(t *testing.T) {
	p := writeXLSX(t)

	byName, err := ReadTable(p, ReadOptions{SheetName: "samples"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sample_id", "msi_status", "age"}, byName.Header)
	require.Len(t, byName.Rows, 1)
	assert.Equal(t, []string{"S1", "", "61"}, byName.Rows[0])

	byIndex, err := ReadTable(p, ReadOptions{SheetIndex: 2})
	require.NoError(t, err)
	assert.Equal(t, byName.Header, byIndex.Header)

	first, err := ReadTable(p, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes"}, first.Header)

	_, err = ReadTable(p, ReadOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available sheets: Readme, Samples")
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.input); got != tt.want {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestColIndexFromRef(t *testing.T) {
	assert.Equal(t, 0, colIndexFromRef("A1"))
	assert.Equal(t, 2, colIndexFromRef("C12"))
	assert.Equal(t, 27, colIndexFromRef("AB3"))
	assert.Equal(t, -1, colIndexFromRef("12"))
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.5", 1.5, true},
		{" 2,5 ", 2.5, true},
		{"1e3", 1000, true},
		{"NA", 0, false},
		{"nan", 0, false},
		{"None", 0, false},
		{"-", 0, false},
		{"high", 0, false},
		{"1,000.5", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseValue(c.in)
		if ok != c.ok {
			t.Fatalf("ParseValue(%q) ok=%v, want %v", c.in, ok, c.ok)
		}
		if ok {
			assert.InDelta(t, c.want, got, 1e-12, c.in)
		}
	}
	assert.True(t, IsMissing(" n/a "))
	assert.False(t, IsMissing("0"))
}

func TestParseDelimitedPadsShortRows(t *testing.T) {
	tbl, err := ParseDelimited("mem", strings.NewReader("a,b,c\n1\n"), ',')
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", ""}, tbl.Rows[0])
}
