package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/ast"
	"checkdp/internal/parser"
	"checkdp/internal/typeenv"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	res := parser.Parse("t.c", src)
	require.Empty(t, res.Errors)
	return res.Program
}

func TestRunSumQuery(t *testing.T) {
	src := `int sum(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float total = 0;
  int i = 0;
  while (i < size) {
    total += query[i];
    i += 1;
  }
  float eta = Lap(2.0);
  OUTPUT(total + eta);
}`
	prog := mustParse(t, src)
	res, errs := Run("sum.c", prog)
	require.Empty(t, errs)
	require.NotNil(t, res)

	assert.Equal(t, AllDiffer, res.Precondition)

	qInfo, ok := res.Types.GetTypes("query")
	require.True(t, ok)
	assert.True(t, qInfo.Aligned.IsStar())
	assert.True(t, qInfo.Shadow.IsZero())

	sizeInfo, ok := res.Types.GetTypes("size")
	require.True(t, ok)
	assert.True(t, sizeInfo.Aligned.IsZero())

	goalInt, ok := res.Goal.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(2), goalInt.Value)

	assert.Len(t, res.Program.Func.Body.Stmts, 5)
}

func TestRunRejectsMissingParameterAnnotation(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<*,0>";
  "PRECONDITION:ONE_DIFFER";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`
	prog := mustParse(t, src)
	_, errs := Run("f.c", prog)
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if e.Code == "E1103" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunRejectsUnknownPrecondition(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<0,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:SOMETHING_ELSE";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`
	prog := mustParse(t, src)
	_, errs := Run("f2.c", prog)
	require.NotEmpty(t, errs)
	assert.Equal(t, "E1101", errs[0].Code)
}

func TestRunScalesLapCallsByLCM(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1/2)";
  float eta = Lap(1.0/3.0);
  OUTPUT(eta);
}`
	prog := mustParse(t, src)
	res, errs := Run("f3.c", prog)
	require.Empty(t, errs)
	require.NotNil(t, res)
	assert.Equal(t, "2", res.Scale.L.String())
}

func TestRunParsesAssumeClauses(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ONE_DIFFER;ASSUME(query[0] >= 0);ASSUME_HOLE(c1)";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`
	prog := mustParse(t, src)
	res, errs := Run("f4.c", prog)
	require.Empty(t, errs)
	require.Len(t, res.Assumes, 1)
	require.Len(t, res.AssumeHoles, 1)
}

func TestParseDistances(t *testing.T) {
	entries := parseDistances("query:<*,0>;size:<0,0>")
	require.Len(t, entries, 2)
	assert.Equal(t, "query", entries[0].name)
	assert.Equal(t, "*", entries[0].aligned)
	assert.Equal(t, "0", entries[0].shadow)
}

func TestDistanceLiteral(t *testing.T) {
	d := distanceLiteral("*")
	assert.True(t, d.IsStar())
	d2 := distanceLiteral("0")
	assert.Equal(t, typeenv.DistanceZero, d2)
}
