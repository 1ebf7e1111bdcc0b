package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumQuery = `int sum(int query[], int size, float epsilon) {
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

func TestRunBuildsTemplateForSumQuery(t *testing.T) {
	build, err := Run("sum.c", sumQuery, Options{})
	require.NoError(t, err)
	require.NotNil(t, build.Template)

	assert.True(t, strings.Contains(build.Source, "int sum("))
	assert.True(t, strings.Contains(build.Source, "aligned_query"))
	assert.True(t, strings.Contains(build.Source, "alignment_array"))
}

func TestRunReportsConfigErrorOnParseFailure(t *testing.T) {
	_, err := Run("bad.c", "int sum(", Options{})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "parse", cfgErr.Stage)
	assert.NotEmpty(t, cfgErr.Errors)
}

func TestRenderMacrosJoinsDefines(t *testing.T) {
	build, err := Run("sum.c", sumQuery, Options{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(build.Template.RandomDistances, "#define"))
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"hole_1", "hole_2"}, dedupe([]string{"hole_1", "hole_2", "hole_1"}))
	assert.Nil(t, dedupe(nil))
}

func TestExternalToolErrorUnwraps(t *testing.T) {
	inner := assert.AnError
	err := &ExternalToolError{Tool: "clang", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "clang")
}
