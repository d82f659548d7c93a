package dataset

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// Sheet "Data" (index 2) of the fixture holds a header plus 10 rows of
// semicolon-locale numbers stored as text.
const xlsxFixtureBase64 = `
UEsDBBQAAAAIAMEwN1vYAxPv/wAAALYCAAATABwAW0NvbnRlbnRfVHlwZXNdLnhtbFVUCQADyjjSaMo40mh1eAsAAQQAAAAABAAAAAC1ks1OwzAQhO95CsvX
Kt60B4RQkh74OQKH8gDG3iRW/CfbLeHtcVIEEqIIpHJaWTOz32jlejsZTQ4YonK2oWtWUYJWOKls39Cn3V15SbdtUe9ePUaSvTY2dEjJXwFEMaDhkTmPNiud
C4an/Aw9eC5G3iNsquoChLMJbSrTvIO2BSH1DXZ8rxO5nbJyRAfUkZLro3fGNZR7r5XgKetwsPILqHyHsJxcPHFQPq6ygcIpyCyeZnxGH/JFgpJIHnlI99xk
I0waXlwYn50b2c97vunquk4JlE7sTY6w6ANyGQfEZDRbJjNc2dWvKiz+CMtYn7nLx/6/V9n8d5Ualm/YFm9QSwMECgAAAAAAxDA3WwAAAAAAAAAAAAAAAAMA
HAB4bC9VVAkAA9A40mjyONJodXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIAMQwN1tM2kS6xQAAAEkBAAAPABwAeGwvd29ya2Jvb2sueG1sVVQJAAPQONJo0DjS
aHV4CwABBAAAAAAEAAAAAI1Qu27DMAzc/RUC90aOhyIwZGcJAnhvP0CxaVuIRRqk+vj8qjEMZOjQ7Y7k3ZF05++4mE8UDUwNHA8lGKSeh0BTA+9v15cTnNvC
fbHcb8x3k8dJG5hTWmtrtZ8xej3wipQ7I0v0KVOZrK6CftAZMcXFVmX5aqMPBJtDLf/x4HEMPV64/4hIaTMRXHzKy+ocVoW2MMY9QvQX7sSQj9hANxELgnnU
uiHfB0bqkIF0wxHsH5KLT/5JUD0Jqk3g7J7n7P6WtvgBUEsDBAoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABwAeGwvd29ya3NoZWV0cy9VVAkAA+s40mjyONJo
dXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIANIwN1u3fFZsqwIAAIASAAAYABwAeGwvd29ya3NoZWV0cy9zaGVldDIueG1sVVQJAAPrONJo6zjSaHV4CwABBAAA
AAAEAAAAAJ3YT26bQBiH4X1OgVilkguD/wEVJkoMzibKJukBJngMqGYGDeMkvVXP0JN1nEhVQ/r7QCxx/BDsV9/gIbl6bY7Os9BdreTGDTzmOkIWal/LcuN+
f9x9jdyr9CJ5UfpHVwlhHPt+2W3cypj2m+93RSUa3nmqFdL+5aB0w4091KXftVrw/Rtqjv6csbXf8Fq66YXjJG8vZ9zw85E91urF0fb/u+/H9pXifHwduI7Z
uLU81lI8GO2mSd2liUlvtTq1iW/SxD+/4Bcf3Q1yWyULIY3mxn5e57L0777gs2zRWR5F0zqXv3/tCJwh/FAoLbDLkbtTBT+K+1PzJDTmO/jJuRGl0j8xvUX0
Xpn/XHDi22gf8837+ebgjNdEOmTYbEWkQipkRCKEAjYjWA6Zxxgpd0jyY1txogxyh1p3ZlSaRT/NYkIaZNhsTaRBKgyINAgFAZkGMi8YSIPkUBrkOlEouR/V
Ztlvs5zQBhk7NtTcILaOiTgIxdSI5vAKvXigDZJPwlBpEDNVrceVWfXLrMApb4gyyLBZSIRBKiS+4gyhgFw8c8g8tqLLIDk0Ncgd1EmbalSbdb/NekIbZOyK
Rk0NYuGSiINQPIuINvAKvTii2yA5MDWIHerDyDJhv0w4oQwytgzxdW0RCxdEGYTs2MyJNJB5bE6nQXJobJDr6teRbaJ+m2jCvQYZu8oQ39cWMSpohlBETg28
Qi8amBokS940VBrkOvFsNxzj4sT9OPGEwUHG3m6oJQ2xkPhplyEUU7e2HF6hF4d0HCQHljTERF1WI9ME7NPWlE2YHIgW1OfeQhZTvwagom/qOXaDGxxIh1Y2
CGU9dnqCz08P0I6Wmh+I7J2H2uZAFxJrYgaVvfcQ+6McO4/R29cdpENLHIRmYIVL/H+e9yT+34dJ6cUfUEsDBBQAAAAIAMcwN1sqMey0swAAAPgAAAAYABwA
eGwvd29ya3NoZWV0cy9zaGVldDEueG1sVVQJAAPWONJo1jjSaHV4CwABBAAAAAAEAAAAAE2P3WrDMAxG7/MURverkl6MUhyXwegLrHsA46iNqf+QxbLHr5OO
0cvzSfoO0qffGNQPcfU5jTDselCUXJ58uo3wfTm/HeBkOr1kvteZSFTbT3WEWaQcEaubKdq6y4VSm1wzRysN+Ya1MNlpO4oB933/jtH6BKZTSm/xpxW7UmPO
i+Lmhye3xK38MYCSEXwKPtGXMBjtq9FiSrCO5hwmYo1iNK4xur82bHWbBl88Gv+fMN0DUEsDBAoAAAAAAMYwN1sAAAAAAAAAAAAAAAAJABwAeGwvX3JlbHMv
VVQJAAPTONJo8jjSaHV4CwABBAAAAAAEAAAAAFBLAwQUAAAACADGMDdbCmPblLYAAACtAQAAGgAcAHhsL19yZWxzL3dvcmtib29rLnhtbC5yZWxzVVQJAAPT
ONJo0zjSaHV4CwABBAAAAAAEAAAAAL2QSwrCMBBA9z1FmL2dtgsRadqNCN1KPUBIpx/aJiGJv9sbBMWCgitXw/zePCYvr/PEzmTdoBWHNE6AkZK6GVTH4Vjv
Vxsoiyg/0CR8GHH9YBwLO8px6L03W0Qne5qFi7UhFTqttrPwIbUdGiFH0RFmSbJG+86AImJsgWVVw8FWTQqsvhn6Ba/bdpC00/I0k/IfruBF29H1RD5Ahe3I
c3iVHD5CGgcq4Fef7M8+2dMnx8XXi+gOUEsDBAoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABwAX3JlbHMvVVQJAAPNONJo8jjSaHV4CwABBAAAAAAEAAAAAFBL
AwQUAAAACADDMDdbDxvLDKoAAAAcAQAACwAcAF9yZWxzLy5yZWxzVVQJAAPNONJozTjSaHV4CwABBAAAAAAEAAAAAI3PsQ6CMBAG4J2naG6XgoMxxsJiTFgN
PkAtRyHQXtNWxbe3oxgHx8v9913+Y72YmT3Qh5GsgDIvgKFV1I1WC7i2580e6io7XnCWMUXCMLrA0o0NAoYY3YHzoAY0MuTk0KZNT97ImEavuZNqkhr5tih2
3H8aUGWMrVjWdAJ805XA2pfDf3jq+1HhidTdoI0/vnwlkiy9xihgmfmT/HQjmvKEAk8d+apklb0BUEsBAh4DFAAAAAgAwTA3W9gDE+//AAAAtgIAABMAGAAA
AAAAAQAAAKSBAAAAAFtDb250ZW50X1R5cGVzXS54bWxVVAUAA8o40mh1eAsAAQQAAAAABAAAAABQSwECHgMKAAAAAADEMDdbAAAAAAAAAAAAAAAAAwAYAAAA
AAAAABAA7UFMAQAAeGwvVVQFAAPQONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DFAAAAAgAxDA3W0zaRLrFAAAASQEAAA8AGAAAAAAAAQAAAKSBiQEAAHhsL3dv
cmtib29rLnhtbFVUBQAD0DjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABgAAAAAAAAAEADtQZcCAAB4bC93b3Jrc2hl
ZXRzL1VUBQAD6zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIANIwN1u3fFZsqwIAAIASAAAYABgAAAAAAAEAAACkgd8CAAB4bC93b3Jrc2hlZXRzL3No
ZWV0Mi54bWxVVAUAA+s40mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADHMDdbKjHstLMAAAD4AAAAGAAYAAAAAAABAAAApIHcBQAAeGwvd29ya3NoZWV0
cy9zaGVldDEueG1sVVQFAAPWONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DCgAAAAAAxjA3WwAAAAAAAAAAAAAAAAkAGAAAAAAAAAAQAO1B4QYAAHhsL19yZWxz
L1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIAMYwN1sKY9uUtgAAAK0BAAAaABgAAAAAAAEAAACkgSQHAAB4bC9fcmVscy93b3JrYm9vay54
bWwucmVsc1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABgAAAAAAAAAEADtQS4IAABfcmVscy9VVAUAA804
0mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADDMDdbDxvLDKoAAAAcAQAACwAYAAAAAAABAAAApIFuCAAAX3JlbHMvLnJlbHNVVAUAA8040mh1eAsAAQQA
AAAABAAAAABQSwUGAAAAAAoACgBTAwAAXQkAAAAA
`

func writeXLSXFixture(t *testing.T) string {
	t.Helper()
	raw := strings.ReplaceAll(strings.TrimSpace(xlsxFixtureBase64), "\n", "")
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode xlsx fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "analysis_dataset.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write xlsx fixture: %v", err)
	}
	return path
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadCSV(t *testing.T) {
	p := writeFile(t, "people.csv", "name,age,email\nann,25,a@b.com\nbob,N/A,bad\ncat,40,\n")
	snap, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Name != "people.csv" {
		t.Fatalf("name = %q", snap.Name)
	}
	if snap.Rows() != 3 || len(snap.Columns) != 3 {
		t.Fatalf("shape = %dx%d, want 3x3", snap.Rows(), len(snap.Columns))
	}
	if got := snap.ColumnNames(); !reflect.DeepEqual(got, []string{"name", "age", "email"}) {
		t.Fatalf("columns = %#v", got)
	}
	age := snap.Columns[1]
	if age.Kind != KindNumeric {
		t.Fatalf("age kind = %v, want numeric", age.Kind)
	}
	if !age.Cells[1].Missing || age.Text(1) != "nan" {
		t.Fatalf("N/A should load as missing, got %#v", age.Cells[1])
	}
	if got := age.Floats(); !reflect.DeepEqual(got, []float64{25, 40}) {
		t.Fatalf("age floats = %v", got)
	}
	if snap.Columns[2].NonMissing() != 2 {
		t.Fatalf("email non-missing = %d, want 2", snap.Columns[2].NonMissing())
	}
	if snap.SizeBytes <= 0 || snap.Sampled() {
		t.Fatalf("size = %d sampled = %v", snap.SizeBytes, snap.Sampled())
	}
}

func TestLoadTSVAndBOM(t *testing.T) {
	p := writeFile(t, "scores.tsv", "\ufeffid\tscore\n1\t0.5\n2\t0.75\n")
	snap, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Columns[0].Name != "id" {
		t.Fatalf("BOM not stripped: %q", snap.Columns[0].Name)
	}
	if snap.Columns[1].Kind != KindNumeric {
		t.Fatalf("score kind = %v", snap.Columns[1].Kind)
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	p := writeFile(t, "big.csv", "a\n"+strings.Repeat("1\n", 100))
	opt := DefaultOptions()
	opt.MaxBytes = 10
	_, err := Load(p, opt)
	var se *SizeError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SizeError", err)
	}
	if !strings.Contains(se.Error(), "file too large") {
		t.Fatalf("message = %q", se.Error())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	p := writeFile(t, "empty.csv", "")
	if _, err := Load(p, DefaultOptions()); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}

func TestLoadHeaderOnly(t *testing.T) {
	p := writeFile(t, "header.csv", "a,b\n")
	snap, err := Load(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Rows() != 0 || len(snap.Columns) != 2 {
		t.Fatalf("shape = %dx%d, want 0x2", snap.Rows(), len(snap.Columns))
	}
}

func TestLoadSamplesReproducibly(t *testing.T) {
	var b strings.Builder
	b.WriteString("id\n")
	for i := 0; i < 500; i++ {
		b.WriteString(strings.Repeat("x", i%3))
		b.WriteString("1")
		b.WriteString("\n")
	}
	p := writeFile(t, "rows.csv", b.String())
	opt := DefaultOptions()
	opt.MaxRows = 50
	first, err := Load(p, opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := Load(p, opt)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Rows() != 50 || first.SourceRows != 500 || !first.Sampled() {
		t.Fatalf("rows = %d source = %d", first.Rows(), first.SourceRows)
	}
	if !reflect.DeepEqual(first.Columns, second.Columns) {
		t.Fatalf("sampling is not reproducible for a fixed seed")
	}
}

func TestSampleRecordsKeepsOrder(t *testing.T) {
	var recs [][]string
	for i := 0; i < 100; i++ {
		recs = append(recs, []string{string(rune('a' + i%26)), strings.Repeat("z", i)})
	}
	got := SampleRecords(recs, 10, 7)
	if len(got) != 10 {
		t.Fatalf("len = %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if len(got[i][1]) <= len(got[i-1][1]) {
			t.Fatalf("sample not in source order at %d", i)
		}
	}
	if again := SampleRecords(recs, 10, 7); !reflect.DeepEqual(got, again) {
		t.Fatalf("same seed picked different rows")
	}
	if all := SampleRecords(recs, 200, 7); len(all) != 100 {
		t.Fatalf("n >= len should return all rows, got %d", len(all))
	}
}

func TestLoadXLSXBySheetNameAndIndex(t *testing.T) {
	path := writeXLSXFixture(t)
	opt := DefaultOptions()
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	opt.SheetName = "Data"
	byName, err := Load(path, opt)
	if err != nil {
		t.Fatalf("Load by name: %v", err)
	}
	if byName.Rows() != 10 || len(byName.Columns) != 7 {
		t.Fatalf("shape = %dx%d, want 10x7", byName.Rows(), len(byName.Columns))
	}
	first := make([]string, len(byName.Columns))
	for j := range byName.Columns {
		first[j] = byName.Columns[j].Cells[0].Raw
	}
	want := []string{"A", "0,5", "70", "10,0", "1.000,0", "alpha", "first"}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("first row = %#v, want %#v", first, want)
	}
	if byName.Columns[4].Kind != KindNumeric || byName.Columns[4].Cells[0].Num != 1000 {
		t.Fatalf("locale number = %#v", byName.Columns[4].Cells[0])
	}
	if byName.Columns[5].Kind != KindText {
		t.Fatalf("category kind = %v", byName.Columns[5].Kind)
	}

	opt.SheetName = ""
	opt.SheetIndex = 2
	byIndex, err := Load(path, opt)
	if err != nil {
		t.Fatalf("Load by index: %v", err)
	}
	if !reflect.DeepEqual(byName.Columns, byIndex.Columns) {
		t.Fatalf("sheet name and index selected different data")
	}

	opt.SheetName = "Nope"
	if _, err := Load(path, opt); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("err = %v, want sheet not found", err)
	}
}

func TestNormalizeRelPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range tests {
		if got := normalizeRelPath(tt.input); got != tt.expected {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestColIndexFromRef(t *testing.T) {
	for ref, want := range map[string]int{"A1": 0, "C12": 2, "Z3": 25, "AA10": 26, "ab2": 27} {
		if got := colIndexFromRef(ref); got != want {
			t.Errorf("colIndexFromRef(%q) = %d, want %d", ref, got, want)
		}
	}
}
