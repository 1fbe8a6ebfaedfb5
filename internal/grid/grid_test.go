package grid

import (
	"reflect"
	"testing"

	"sheetlab/internal/value"
)

func TestColToName(t *testing.T) {
	tests := map[int]string{0: "A", 9: "J", 25: "Z", 26: "AA", -1: "?"}
	for col, want := range tests {
		if got := ColToName(col); got != want {
			t.Errorf("ColToName(%d) = %q, want %q", col, got, want)
		}
	}
	if got := ColRowToName(2, 4); got != "C5" {
		t.Errorf("ColRowToName(2, 4) = %q", got)
	}
}

func TestParseCellAddress(t *testing.T) {
	tests := []struct {
		in   string
		want CellAddress
		ok   bool
	}{
		{"A1", CellAddress{'A', 1}, true},
		{"Z99", CellAddress{'Z', 99}, true},
		{"B12", CellAddress{'B', 12}, true},
		{"a1", CellAddress{}, false},
		{"AA1", CellAddress{}, false},
		{"A0", CellAddress{}, false},
		{"A", CellAddress{}, false},
		{"1A", CellAddress{}, false},
		{"A1 ", CellAddress{}, false},
		{"A-1", CellAddress{}, false},
		{"", CellAddress{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseCellAddress(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseCellAddress(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseCellRefLenient(t *testing.T) {
	for _, in := range []string{"b3", "$B$3", "Sheet1!B3", " b3 "} {
		got, ok := ParseCellRef(in)
		if !ok || got != (CellAddress{'B', 3}) {
			t.Errorf("ParseCellRef(%q) = %v, %v", in, got, ok)
		}
	}
}

func TestRangeCellsRowMajor(t *testing.T) {
	r, ok := ParseRange("A1:B2")
	if !ok {
		t.Fatal("ParseRange failed")
	}
	want := []CellAddress{{'A', 1}, {'B', 1}, {'A', 2}, {'B', 2}}
	if got := r.Cells(); !reflect.DeepEqual(got, want) {
		t.Errorf("Cells() = %v, want %v", got, want)
	}

	reversed, _ := ParseRange("B2:A1")
	if got := reversed.Cells(); !reflect.DeepEqual(got, want) {
		t.Errorf("reversed Cells() = %v, want %v", got, want)
	}

	single, _ := ParseRange("C3:C3")
	if got := single.Cells(); len(got) != 1 || got[0] != (CellAddress{'C', 3}) {
		t.Errorf("single Cells() = %v", got)
	}
}

func TestParseRangeRejects(t *testing.T) {
	for _, in := range []string{"A1", "A1:", ":B2", "A1:XX", "A1-B2"} {
		if _, ok := ParseRange(in); ok {
			t.Errorf("ParseRange(%q) should fail", in)
		}
	}
}

func TestNewCellData(t *testing.T) {
	c := NewCellData("=SUM(A1:A2)")
	if !c.IsFormula() || c.Computed != nil {
		t.Errorf("formula cell = %+v", c)
	}
	c = NewCellData("42")
	if c.IsFormula() || c.Computed == nil || *c.Computed != value.Number(42) {
		t.Errorf("literal cell = %+v", c)
	}
}

func TestSheetCloneIsIndependent(t *testing.T) {
	s := NewSheet(2, 2)
	s.Set(CellAddress{'A', 1}, "1")
	c := s.Clone()
	c.Set(CellAddress{'A', 1}, "2")
	*c[CellAddress{'B', 1}].Computed = value.Text("changed")

	if s.Raw(CellAddress{'A', 1}) != "1" {
		t.Error("clone edit leaked into original")
	}
	if !s[CellAddress{'B', 1}].Computed.IsEmpty() {
		t.Error("clone computed value shares storage with original")
	}
}

func TestSheetAddressesAndBounds(t *testing.T) {
	s := Sheet{}
	s.Set(CellAddress{'C', 2}, "x")
	s.Set(CellAddress{'A', 2}, "y")
	s.Set(CellAddress{'B', 1}, "z")
	s.Set(CellAddress{'D', 9}, "")

	want := []CellAddress{{'B', 1}, {'A', 2}, {'C', 2}, {'D', 9}}
	if got := s.Addresses(); !reflect.DeepEqual(got, want) {
		t.Errorf("Addresses() = %v, want %v", got, want)
	}
	if c, r := s.Bounds(); c != 2 || r != 1 {
		t.Errorf("Bounds() = %d, %d", c, r)
	}
	if c, r := (Sheet{}).Bounds(); c != -1 || r != -1 {
		t.Errorf("empty Bounds() = %d, %d", c, r)
	}
}

func TestNewSheetSize(t *testing.T) {
	s := NewSheet(10, 20)
	if len(s) != 200 {
		t.Errorf("len = %d", len(s))
	}
	if _, ok := s[CellAddress{'J', 20}]; !ok {
		t.Error("J20 missing")
	}
	if _, ok := s[CellAddress{'K', 1}]; ok {
		t.Error("K1 should not exist")
	}
}
