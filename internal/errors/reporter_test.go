package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"checkdp/internal/ast"
)

func TestErrorReporterFormatsDistanceAnnotation(t *testing.T) {
	source := `PRECONDITION:ALL_DIFFER
q : <*, 0>
CHECK:(1)`

	reporter := NewErrorReporter("partial_sum.c", source)

	err := MalformedDistanceAnnotation("q : <maybe, 0>", ast.Position{Line: 2, Column: 1})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorMalformedDistanceAnnotation+"]")
	assert.Contains(t, formatted, "malformed distance annotation")
	assert.Contains(t, formatted, "partial_sum.c:2:1")
	assert.Contains(t, formatted, "help")
}

func TestMissingParameterAnnotationError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 1}

	err := MissingParameterAnnotation("epsilon", pos)
	assert.Equal(t, ErrorMissingParameterAnnotation, err.Code)
	assert.Contains(t, err.Message, "epsilon")
	assert.Len(t, err.Suggestions, 1)
	assert.Contains(t, err.Suggestions[0].Message, "epsilon : <0, 0>")
}

func TestUnknownPreconditionError(t *testing.T) {
	pos := ast.Position{Line: 1, Column: 14}

	err := UnknownPrecondition("SOMETIMES_DIFFER", pos)
	assert.Equal(t, ErrorUnknownPrecondition, err.Code)
	assert.Contains(t, err.Message, "SOMETIMES_DIFFER")
	assert.Contains(t, err.Suggestions[0].Message, "ONE_DIFFER")
}

func TestReservedNameCollisionError(t *testing.T) {
	pos := ast.Position{Line: 4, Column: 5}

	err := ReservedNameCollision("aligned_total", pos)
	assert.Equal(t, ErrorReservedNameCollision, err.Code)
	assert.Equal(t, len("aligned_total"), err.Length)
	assert.Contains(t, err.Message, "aligned_total")
}

func TestUnsupportedCallError(t *testing.T) {
	pos := ast.Position{Line: 5, Column: 9}

	err := UnsupportedCall("printf", pos)
	assert.Equal(t, ErrorUnsupportedCall, err.Code)
	assert.Contains(t, err.Message, "printf")
	assert.Contains(t, err.Message, "Lap")
}

func TestFloatCoercionWarning(t *testing.T) {
	source := `float scale = 1;`
	reporter := NewErrorReporter("noisy_max.c", source)

	err := FloatCoercionWarning("scale", ast.Position{Line: 1, Column: 1})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning["+WarningFloatCoercion+"]")
	assert.Contains(t, formatted, "coerced to int")
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `int variable = 0;`
	reporter := NewErrorReporter("test.c", source)

	marker := reporter.createMarker(5, 8, Error) // "variable" is 8 chars at column 5

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces)
	carets := strings.Count(marker, "^")
	assert.Equal(t, 8, carets)
}

func TestErrorLevels(t *testing.T) {
	source := `test`
	reporter := NewErrorReporter("test.c", source)
	pos := ast.Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	assert.Contains(t, reporter.FormatError(errorErr), "error:")
	assert.Contains(t, reporter.FormatError(warningErr), "warning:")
}

func TestErrorCategoryAndWarningClassification(t *testing.T) {
	assert.Equal(t, "Preprocessor", GetErrorCategory(ErrorMalformedDistanceAnnotation))
	assert.Equal(t, "Transformer", GetErrorCategory(ErrorUnsupportedConstruct))
	assert.True(t, IsWarning(WarningFloatCoercion))
	assert.False(t, IsWarning(ErrorUnsupportedCall))
}
