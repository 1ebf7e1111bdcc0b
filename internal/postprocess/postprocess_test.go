package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/parser"
	"checkdp/internal/preprocess"
	"checkdp/internal/transform"
)

func TestProcessAppendsDistanceAndArrayParams(t *testing.T) {
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
  float eta = Lap(1.0);
  OUTPUT(total + eta);
}`
	parsed := parser.Parse("t.c", src)
	require.Empty(t, parsed.Errors)
	res, errs := preprocess.Run("t.c", parsed.Program)
	require.Empty(t, errs)

	out, errs := transform.Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	pres := Process(out, res.Types, "query", "size", nil)
	names := make(map[string]bool)
	for _, p := range pres.FuncDef.Params {
		names[p.Name] = true
	}
	assert.True(t, names["aligned_query"])
	assert.False(t, names["shadow_query"])
	assert.True(t, names["sample_array"])
	assert.True(t, names["alignment_array"])
	assert.Equal(t, "int", pres.FuncDef.ReturnType)

	assert.Equal(t, 1, pres.SampleSize(5))
}

func TestProcessAddsHoleParams(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<0,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ONE_DIFFER";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`
	parsed := parser.Parse("t.c", src)
	require.Empty(t, parsed.Errors)
	res, errs := preprocess.Run("t.c", parsed.Program)
	require.Empty(t, errs)
	out, errs := transform.Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	pres := Process(out, res.Types, "query", "size", []string{"c1"})
	found := false
	for _, p := range pres.FuncDef.Params {
		if p.Name == "c1" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, 0, pres.SampleSize(10))
}
