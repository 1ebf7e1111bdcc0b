package symex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeZ3(t *testing.T, stdout string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-z3.sh")
	script := "#!/bin/sh\ncat <<'EOF'\n" + stdout + "\nEOF\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestZ3SolveParsesSatModelBytes(t *testing.T) {
	bin := fakeZ3(t, "sat\n(((select x (_ bv0 32)) #x01))\n(((select x (_ bv1 32)) #x00))\n(((select x (_ bv2 32)) #x00))\n(((select x (_ bv3 32)) #x00))")
	z3, err := NewZ3(bin, t.TempDir())
	require.NoError(t, err)

	isSat, objects, err := z3.Solve(context.Background(), []string{"(assert true)"}, map[string]int{"x": 4})
	require.NoError(t, err)
	assert.True(t, isSat)
	require.Contains(t, objects, "x")
	assert.Equal(t, []int32{1}, objects["x"])
}

func TestZ3SolveReportsUnsat(t *testing.T) {
	bin := fakeZ3(t, "unsat")
	z3, err := NewZ3(bin, t.TempDir())
	require.NoError(t, err)

	isSat, _, err := z3.Solve(context.Background(), []string{"(assert false)"}, map[string]int{"x": 4})
	require.NoError(t, err)
	assert.False(t, isSat)
}

func TestArrayDeclPatternMatchesKqueryDeclarations(t *testing.T) {
	text := "array v_symbolic_cost[8] : bv32 -> bv8 = symbolic\narray query[12] : bv32 -> bv8 = symbolic\n"
	matches := arrayDeclPattern.FindAllStringSubmatch(text, -1)
	require.Len(t, matches, 2)
	assert.Equal(t, "v_symbolic_cost", matches[0][1])
	assert.Equal(t, "8", matches[0][2])
}
