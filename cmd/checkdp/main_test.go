package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/cegis"
	"checkdp/internal/config"
	"checkdp/internal/driver"
)

func TestHoleSyntaxPatternReplacesPlaceholders(t *testing.T) {
	src := "ASSUME_HOLE(hole_0 + hole_12 > 0)"
	assert.Equal(t, "ASSUME_HOLE(1 + 1 > 0)", holeSyntaxPattern.ReplaceAllString(src, "1"))
}

// fakePSI writes an executable script that always answers the same PSI
// output regardless of input, standing in for a real psi binary.
func fakePSI(t *testing.T, stdout string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-psi.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho '"+stdout+"'\n"), 0o755))
	return path
}

func TestValidateCounterexampleFailsWhenRatioNeverExceeds(t *testing.T) {
	exitCode = 0
	t.Cleanup(func() { exitCode = 0 })

	outDir := t.TempDir()
	templatePath := filepath.Join(outDir, "template.psi")
	require.NoError(t, os.WriteFile(templatePath,
		[]byte("def foo() { out := ([]:R[]); q := $query$; return out; }"), 0o644))

	cfg := config.Default()
	cfg.PSI = fakePSI(t, "Boole(True) * (1/2)")
	cfg.PSISource = templatePath

	outcome := cegis.Outcome{
		Counterexample: driver.Binding{"query": driver.Array([]int{1, 2})},
		RelatedInputs:  driver.Binding{"query": driver.Array([]int{1, 3})},
		BadOutputs:     [][]float64{{1}},
	}

	err := validateCounterexample(context.Background(), cfg, outDir, outcome)
	require.NoError(t, err)
	assert.Equal(t, 1, exitCode)
}
