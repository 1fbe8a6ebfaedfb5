package calc

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"sheetlab/internal/grid"
	"sheetlab/internal/value"
)

func sheetOf(t *testing.T, cells map[string]string) grid.Sheet {
	t.Helper()
	s := grid.Sheet{}
	for ref, raw := range cells {
		addr, ok := grid.ParseCellAddress(ref)
		if !ok {
			t.Fatalf("bad address %q", ref)
		}
		s.Set(addr, raw)
	}
	return s
}

func products(t *testing.T) grid.Sheet {
	return sheetOf(t, map[string]string{
		"A1": "Product ID", "B1": "Product Name", "C1": "Price",
		"A2": "101", "B2": "Apple", "C2": "1.20",
		"A3": "102", "B3": "Banana", "C3": "0.80",
		"A4": "103", "B4": "Cherry", "C4": "2.50",
		"A5": "104", "B5": "Date", "C5": "3.00",
		"E2": "103",
	})
}

type evalCase struct {
	formula string
	want    value.Value
}

func runCases(t *testing.T, sheet grid.Sheet, cases []evalCase) {
	t.Helper()
	for _, tc := range cases {
		if got := Evaluate(tc.formula, sheet); got != tc.want {
			t.Errorf("Evaluate(%q) = %#v (%s), want %#v (%s)", tc.formula, got, got, tc.want, tc.want)
		}
	}
}

func TestEvaluatePassThrough(t *testing.T) {
	sheet := products(t)
	runCases(t, sheet, []evalCase{
		{"5", value.Text("5")},
		{"hello", value.Text("hello")},
		{"SUM(A1:A3)", value.Text("SUM(A1:A3)")},
	})
}

func TestEvaluateAggregates(t *testing.T) {
	sheet := sheetOf(t, map[string]string{"A1": "1", "A2": "2", "A3": "x", "B1": ""})
	runCases(t, sheet, []evalCase{
		{"=SUM(A1:A3)", value.Number(3)},
		{"=SUM(A1:A3, 10)", value.Number(13)},
		{"=SUM(1,2)", value.Number(3)},
		{"=SUM(C1:C3)", value.Number(0)},
		{"=sum(A1:A2)", value.Number(3)},
		{"=AVERAGE(A1:A3)", value.Number(1.5)},
		{"=AVERAGE(B1:B1)", value.Err(value.DivByZero)},
		{"=AVERAGE(Z1:Z1)", value.Err(value.DivByZero)},
		{"=MAX(A1:A3)", value.Number(2)},
		{"=MIN(A1:A3)", value.Number(1)},
		{"=MAX(A3:A3)", value.Number(0)},
		{"=MIN(B1:B1)", value.Number(0)},
		{"=SUM(A1:A3)*2", value.Err(value.Generic)},
	})
}

func TestEvaluateXLookup(t *testing.T) {
	sheet := products(t)
	runCases(t, sheet, []evalCase{
		{"=XLOOKUP(102,A2:A5,C2:C5)", value.Number(0.8)},
		{`=XLOOKUP(999,A2:A5,C2:C5,"Missing")`, value.Text("Missing")},
		{"=XLOOKUP(999,A2:A5,C2:C5)", value.Err(value.NotApplicable)},
		{"=XLOOKUP(E2, A2:A5, B2:B5)", value.Text("Cherry")},
		{`=XLOOKUP("banana", B2:B5, A2:A5)`, value.Number(102)},
		{"=XLOOKUP(102,A2:A5)", value.Err(value.NotApplicable)},
		{"=XLOOKUP(102,A2:,C2:C5)", value.Err(value.InvalidReference)},
		{"=XLOOKUP(104,A2:A5,C2:C3)", value.Err(value.NotApplicable)},
		{`=XLOOKUP(104,A2:A5,C2:C3,"short")`, value.Text("short")},
		{`=XLOOKUP(102.5,A2:A5,B2:B5,"",-1)`, value.Text("Banana")},
		{`=XLOOKUP(103,A2:A5,B2:B5,"",-1)`, value.Text("Cherry")},
		{`=XLOOKUP(50,A2:A5,B2:B5,"none",-1)`, value.Text("none")},
		{`=XLOOKUP("abc",A2:A5,B2:B5,"",-1)`, value.Err(value.InvalidValue)},
		{`=XLOOKUP(102,A2:A5,B2:B5,"no",1)`, value.Text("no")},
		{`=XLOOKUP(102,A2:A5,B2:B5,"no",2)`, value.Text("no")},
	})
}

func TestEvaluateTaxBrackets(t *testing.T) {
	sheet := sheetOf(t, map[string]string{
		"A2": "0", "B2": "0%",
		"A3": "10000", "B3": "10%",
		"A4": "20000", "B4": "20%",
		"A5": "50000", "B5": "30%",
		"D2": "15000",
	})
	runCases(t, sheet, []evalCase{
		{`=XLOOKUP(D2, A2:A5, B2:B5, "", -1)`, value.Text("10%")},
	})
}

func TestEvaluateIf(t *testing.T) {
	sheet := sheetOf(t, map[string]string{
		"A2": "Tom", "B2": "85", "B3": "42", "B5": "92",
		"C4": "Yes", "D4": "25", "E1": "1200",
	})
	runCases(t, sheet, []evalCase{
		{`=IF(B2>=60,"Pass","Fail")`, value.Text("Pass")},
		{`=IF(B3>=60,"Pass","Fail")`, value.Text("Fail")},
		{`=IF(B3>=60,"Pass")`, value.Bool(false)},
		{`=IF(B2<>85,"x","y")`, value.Text("y")},
		{`=IF(B2=85,"x","y")`, value.Text("x")},
		{`=IF(B5>=90, "A", IF(B5>=80, "B", "C"))`, value.Text("A")},
		{`=IF(B2>=90, "A", IF(B2>=80, "B", "C"))`, value.Text("B")},
		{`=IF(D4<18, "Too Young", IF(C4="Yes", "Drive", "No Licence"))`, value.Text("Drive")},
		{`=IF(E1>1000, E1*2, 0)`, value.Number(2400)},
		{`=IF(SUM(B2:B3)>100, "big", "small")`, value.Text("big")},
		{`=IF(A2="Tom", CONCAT(A2, "!"), "")`, value.Text("Tom!")},
		{`=IF(TRUE, 1, 2)`, value.Number(1)},
		{`=IF(0, 1, 2)`, value.Number(2)},
		{`=IF(Z9, 1, 2)`, value.Number(2)},
		{`=IF(Z9=0, "blank", "set")`, value.Text("blank")},
		{`=IF(B2)`, value.Err(value.Generic)},
	})
}

func TestEvaluateCountIf(t *testing.T) {
	sheet := products(t)
	sheet.Set(grid.CellAddress{Col: 'F', Row: 1}, ">2.00")
	runCases(t, sheet, []evalCase{
		{`=COUNTIF(C2:C5, ">2.00")`, value.Number(2)},
		{`=COUNTIF(C2:C5, F1)`, value.Number(2)},
		{`=COUNTIF(C2:C5, "<=0.8")`, value.Number(1)},
		{`=COUNTIF(C2:C5, "<>3")`, value.Number(3)},
		{`=COUNTIF(B2:B5, "apple")`, value.Number(1)},
		{`=COUNTIF(B2:B5, ">c")`, value.Number(2)},
		{`=COUNTIF(A2:A5, 103)`, value.Number(1)},
		{`=COUNTIF(A2:A5)`, value.Err(value.Generic)},
	})
}

func TestEvaluateText(t *testing.T) {
	sheet := sheetOf(t, map[string]string{
		"A2": "john doe", "B2": "Doe", "A3": "REPORT_FINAL", "A4": "ID-12345-X",
		"C2": "E01", "C3": "E02", "C4": "E03", "B3": "Smith", "B4": "Brown", "A1": "John",
	})
	runCases(t, sheet, []evalCase{
		{`=CONCAT(A1, " ", B2)`, value.Text("John Doe")},
		{`=CONCAT("a,b", Z1, 3)`, value.Text("a,b3")},
		{`=CONCAT("Manager: ", XLOOKUP("E01", C2:C4, B2:B4))`, value.Text("Manager: Doe")},
		{`=CONCAT("(", A1, ")")`, value.Text("(John)")},
		{`=LEN(A4)`, value.Number(10)},
		{`=LEN(Z1)`, value.Number(0)},
		{`=LEN("héllo")`, value.Number(5)},
		{`=LEN(A1, A2)`, value.Err(value.Generic)},
		{`=UPPER(A2)`, value.Text("JOHN DOE")},
		{`=LOWER(A3)`, value.Text("report_final")},
		{`=PROPER(A2)`, value.Text("John Doe")},
		{`=PROPER(A4)`, value.Text("Id-12345-X")},
		{`=PROPER("hello_world o'neil")`, value.Text("Hello_world O'Neil")},
		{`=LEFT(A4, 2)`, value.Text("ID")},
		{`=RIGHT(A4, 1)`, value.Text("X")},
		{`=RIGHT(A4, 0)`, value.Text("")},
		{`=LEFT(A4, 99)`, value.Text("ID-12345-X")},
		{`=LEFT(A4, 1+1)`, value.Text("ID")},
		{`=LEFT(A4, "x")`, value.Err(value.InvalidValue)},
		{`=LEFT(A4, -1)`, value.Err(value.InvalidValue)},
		{`=RIGHT(A4)`, value.Err(value.Generic)},
	})
}

func TestEvaluateExpressions(t *testing.T) {
	sheet := sheetOf(t, map[string]string{
		"A1": "John", "B1": "Doe", "B2": "10", "C2": "5.50", "D2": "100",
		"E2": "2.00", "F2": "0.50", "G2": "-3",
	})
	runCases(t, sheet, []evalCase{
		{"=1+2*3", value.Number(7)},
		{"=(1+2)*3", value.Number(9)},
		{"=-2*-3", value.Number(6)},
		{"=B2*C2", value.Number(55)},
		{"=(E2-F2)*D2", value.Number(150)},
		{"=b2*2", value.Number(20)},
		{"=B2-G2", value.Number(13)},
		{"=G2*G2", value.Number(9)},
		{"=Z9+1", value.Number(1)},
		{"=B2", value.Number(10)},
		{"=A1", value.Text("John")},
		{`=A1&" "&B1`, value.Text("John Doe")},
		{`="Mr. "&B1`, value.Text("MR. Doe")},
		{`=B2&" items"`, value.Text("10 ITEMS")},
		{`="abc"&"def"`, value.Text("ABCDEF")},
		{`="b2"&B2`, value.Text("B210")},
		{"=5>3", value.Bool(true)},
		{"=B2=10", value.Bool(true)},
		{"=B2<>10", value.Bool(false)},
		{"=10/0", value.Err(value.DivByZero)},
		{"=B2/Z9", value.Err(value.DivByZero)},
		{"=1+", value.Err(value.InvalidValue)},
		{"=(1+2", value.Err(value.InvalidValue)},
		{"=1.2.3", value.Err(value.InvalidValue)},
		{`="open`, value.Err(value.InvalidValue)},
		{"=A1*2", value.Err(value.InvalidValue)},
		{"=FOO(1)", value.Err(value.Generic)},
		{"=SUM(B2)+SUM(C2)", value.Err(value.Generic)},
		{"=AA1", value.Err(value.Generic)},
		{"=", value.Err(value.InvalidValue)},
	})
}

func TestEvaluateDepthGuard(t *testing.T) {
	nested := func(n int) string {
		return "=" + strings.Repeat("IF(1,", n) + "7" + strings.Repeat(")", n)
	}
	sheet := grid.Sheet{}
	if got := Evaluate(nested(10), sheet); got != value.Number(7) {
		t.Errorf("shallow nesting = %v", got)
	}
	if got := Evaluate(nested(MaxDepth+5), sheet); got != value.Err(value.Generic) {
		t.Errorf("deep nesting = %v, want #ERROR", got)
	}
	concat := "=" + strings.Repeat("CONCAT(", MaxDepth+5) + "1" + strings.Repeat(")", MaxDepth+5)
	if got := Evaluate(concat, sheet); got != value.Text("#ERROR") {
		t.Errorf("deep CONCAT = %v, want the error rendered as text", got)
	}
}

func TestEvaluateDeepParentheses(t *testing.T) {
	wrap := func(open, n int) string {
		return "=" + strings.Repeat("(", open) + "1" + strings.Repeat(")", n)
	}
	sheet := grid.Sheet{}
	if got := Evaluate(wrap(MaxDepth, MaxDepth), sheet); got != value.Number(1) {
		t.Errorf("%d parentheses = %v", MaxDepth, got)
	}
	if got := Evaluate(wrap(MaxDepth+1, MaxDepth+1), sheet); got != value.Err(value.InvalidValue) {
		t.Errorf("%d parentheses = %v, want #VALUE!", MaxDepth+1, got)
	}
	if got := Evaluate(wrap(1_000_000, 1_000_000), sheet); got != value.Err(value.InvalidValue) {
		t.Errorf("a million parentheses = %v, want #VALUE!", got)
	}
	if got := Evaluate("="+strings.Repeat("-", 1_000_000)+"1", sheet); got != value.Err(value.InvalidValue) {
		t.Errorf("a million signs = %v, want #VALUE!", got)
	}
	if got := Evaluate("=--2+(-(3))", sheet); got != value.Number(-1) {
		t.Errorf("=--2+(-(3)) = %v", got)
	}
}

func TestEvaluateRecoversPanics(t *testing.T) {
	builtins["BOOM"] = func(*evaluator, []string) value.Value { panic("boom") }
	defer delete(builtins, "BOOM")

	if got := Evaluate("=BOOM()", grid.Sheet{}); got != value.Err(value.Generic) {
		t.Errorf("panicking builtin = %v, want #ERROR", got)
	}
	if got := Evaluate("=CONCAT(BOOM(), \"x\")", grid.Sheet{}); got != value.Text("#ERRORx") {
		t.Errorf("nested panicking builtin = %v", got)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	sheet := products(t)
	before := sheet.Clone()
	formulas := []string{
		"=XLOOKUP(102,A2:A5,C2:C5)",
		`=IF(C2>1,"hi","lo")`,
		"=SUM(C2:C5)",
		`=A2&B2`,
	}
	for _, f := range formulas {
		first := Evaluate(f, sheet)
		second := Evaluate(f, sheet)
		if first != second {
			t.Errorf("%s: %v then %v", f, first, second)
		}
	}
	if !reflect.DeepEqual(before, sheet) {
		t.Error("Evaluate mutated the sheet")
	}
}

func TestEvaluateConcurrentReaders(t *testing.T) {
	sheet := products(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if got := Evaluate("=SUM(C2:C5)", sheet); got != value.Number(7.5) {
					t.Errorf("SUM = %v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSplitCall(t *testing.T) {
	tests := []struct {
		body       string
		name, args string
		ok         bool
	}{
		{"SUM(A1:A3)", "SUM", "A1:A3", true},
		{"xlookup(1,A1:A2,B1:B2)", "XLOOKUP", "1,A1:A2,B1:B2", true},
		{`CONCAT(")", A1)`, "CONCAT", `")", A1`, true},
		{"SUM(A1)+SUM(A2)", "", "", false},
		{"FOO(1)", "", "", false},
		{"SUM (A1)", "", "", false},
		{"A1+1", "", "", false},
	}
	for _, tt := range tests {
		name, args, ok := splitCall(tt.body)
		if name != tt.name || args != tt.args || ok != tt.ok {
			t.Errorf("splitCall(%q) = %q, %q, %v", tt.body, name, args, ok)
		}
	}
}

func TestSplitArguments(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`"a,b", SUM(1,2)`, []string{`"a,b"`, "SUM(1,2)"}},
		{"A1, B2 ,C3", []string{"A1", "B2", "C3"}},
		{"A1,B2", []string{"A1", "B2"}},
		{`"(", A1, ")"`, []string{`"("`, "A1", `")"`}},
		{`IF(A1=")", 1, 2), 3`, []string{`IF(A1=")", 1, 2)`, "3"}},
		{"XLOOKUP(1,A1:A2,B1:B2),,x", []string{"XLOOKUP(1,A1:A2,B1:B2)", "", "x"}},
		{"A1,", []string{"A1"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitArguments(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitArguments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	sheet := sheetOf(t, map[string]string{
		"A1": "1", "B1": "two", "A2": "=A1+1", "B2": "TRUE",
	})
	sheet[grid.CellAddress{Col: 'A', Row: 2}] = sheet[grid.CellAddress{Col: 'A', Row: 2}].WithComputed(value.Number(2))
	a1 := grid.CellAddress{Col: 'A', Row: 1}

	if got := ResolveCell(a1, sheet); got != value.Number(1) {
		t.Errorf("ResolveCell(A1) = %v", got)
	}
	if got := ResolveCell(grid.CellAddress{Col: 'Z', Row: 9}, sheet); !got.IsEmpty() {
		t.Errorf("ResolveCell(Z9) = %v", got)
	}
	pending := grid.Sheet{a1: grid.CellData{RawInput: "3", Formula: "3"}}
	if got := ResolveCell(a1, pending); got != value.Number(3) {
		t.Errorf("uncached ResolveCell = %v", got)
	}

	ranges := []struct {
		text string
		want []value.Value
	}{
		{"A1:A1", []value.Value{ResolveCell(a1, sheet)}},
		{"A1:B2", []value.Value{value.Number(1), value.Text("two"), value.Number(2), value.Text("TRUE")}},
		{"B2:A1", []value.Value{value.Number(1), value.Text("two"), value.Number(2), value.Text("TRUE")}},
		{"A1", []value.Value{value.Number(1)}},
		{"A1:XX", nil},
		{":B2", nil},
		{"nope", []value.Value{value.Empty()}},
	}
	for _, tt := range ranges {
		if got := ResolveRange(tt.text, sheet); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ResolveRange(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	tokens := []struct {
		token string
		want  value.Value
	}{
		{`"A1"`, value.Text("A1")},
		{`"12"`, value.Text("12")},
		{`""`, value.Text("")},
		{"12.5", value.Number(12.5)},
		{"true", value.Bool(true)},
		{"FALSE", value.Bool(false)},
		{"B1", value.Text("two")},
		{"A2", value.Number(2)},
		{"b1", value.Text("b1")},
		{"hello", value.Text("hello")},
	}
	for _, tt := range tokens {
		if got := CellValue(tt.token, sheet); got != tt.want {
			t.Errorf("CellValue(%q) = %#v, want %#v", tt.token, got, tt.want)
		}
	}
}
