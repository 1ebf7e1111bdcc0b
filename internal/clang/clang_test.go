package clang

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClang writes a trivial shell script standing in for the real
// clang binary so these tests never depend on a real toolchain being
// installed: one that always exits cleanly, one that prints "error:"
// to stderr the way clang does on a rejected translation unit.
func fakeClang(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-clang.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCompileBinarySucceeds(t *testing.T) {
	bin := fakeClang(t, "exit 0\n")
	c := New(bin, nil, nil)
	err := c.CompileBinary(context.Background(), "in.c", "out", nil, nil, nil)
	assert.NoError(t, err)
}

func TestCompileBinaryReportsToolError(t *testing.T) {
	bin := fakeClang(t, "echo 'error: unknown type name' 1>&2\n")
	c := New(bin, nil, nil)
	err := c.CompileBinary(context.Background(), "in.c", "out", nil, nil, nil)
	require.Error(t, err)
	var toolErr *ToolError
	assert.ErrorAs(t, err, &toolErr)
}

func TestSyntaxCheckPassesThroughExtraArgs(t *testing.T) {
	bin := fakeClang(t, `
for arg in "$@"; do
  if [ "$arg" = "-fsyntax-only" ]; then exit 0; fi
done
echo "error: missing -fsyntax-only" 1>&2
exit 1
`)
	c := New(bin, nil, nil)
	assert.NoError(t, c.SyntaxCheck(context.Background(), "in.c"))
}
