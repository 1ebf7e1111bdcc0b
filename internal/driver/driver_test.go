package driver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/align"
	"checkdp/internal/parser"
	"checkdp/internal/postprocess"
	"checkdp/internal/preprocess"
	"checkdp/internal/transform"
)

func buildTemplate(t *testing.T, src string) *Template {
	t.Helper()
	parsed := parser.Parse("t.c", src)
	require.Empty(t, parsed.Errors)
	res, errs := preprocess.Run("t.c", parsed.Program)
	require.Empty(t, errs)

	out, errs := transform.Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	pres := postprocess.Process(out, res.Types, res.Program.Func.Params[0].Name, res.Program.Func.Params[1].Name, nil)
	_, arrayTypes := align.GenerateMacros(pres.FuncDef, res.Types, false)

	assumes := make([]string, len(res.Assumes))
	for i, e := range res.Assumes {
		assumes[i] = e.String()
	}

	return New(res.Types, pres.FuncDef, "", res.Goal.String(), arrayTypes, pres.SampleSize,
		res.Precondition, assumes, nil, nil)
}

func TestFillWithConcreteInputsSearchesAlignment(t *testing.T) {
	src := `int sum(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float eta = Lap(1.0);
  OUTPUT(query[0] + eta);
}`
	tmpl := buildTemplate(t, src)
	out, err := tmpl.Fill([]Binding{{tmpl.Func.Params[0].Name: Array([]int{1, 2, 3})}}, 3, true)
	require.NoError(t, err)
	assert.Contains(t, out, "klee_make_symbolic(alignment_array")
	assert.Contains(t, out, "int main(void)")
}

func TestFillRejectsEmptyBinding(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<0,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ONE_DIFFER";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`
	tmpl := buildTemplate(t, src)
	_, err := tmpl.Fill(nil, 3, true)
	assert.Error(t, err)
}

func TestDefaultAlignmentMatchesArrayTypeCount(t *testing.T) {
	src := `int sum(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float eta = Lap(1.0);
  OUTPUT(query[0] + eta);
}`
	tmpl := buildTemplate(t, src)
	binding := tmpl.DefaultAlignment()
	v := binding["alignment_array"]
	assert.True(t, v.IsArray)
	assert.Equal(t, len(tmpl.AlignmentTypes), len(v.Array))
	assert.True(t, strings.HasPrefix(tmpl.String(), "#include"))
}
