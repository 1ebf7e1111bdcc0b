package errors

import (
	"fmt"

	"checkdp/internal/ast"
)

// ErrorBuilder provides a fluent interface for creating configuration errors
// with suggestions, mirroring the teacher's semantic-error builder.
type ErrorBuilder struct {
	err CompilerError
}

func NewConfigError(code, message string, pos ast.Position) *ErrorBuilder {
	return &ErrorBuilder{err: CompilerError{Level: Error, Code: code, Message: message, Position: pos, Length: 1}}
}

func NewConfigWarning(code, message string, pos ast.Position) *ErrorBuilder {
	return &ErrorBuilder{err: CompilerError{Level: Warning, Code: code, Message: message, Position: pos, Length: 1}}
}

func (b *ErrorBuilder) WithLength(length int) *ErrorBuilder {
	b.err.Length = length
	return b
}

func (b *ErrorBuilder) WithSuggestion(message string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

func (b *ErrorBuilder) Build() CompilerError {
	return b.err
}

// MalformedDistanceAnnotation reports a distance annotation that does not
// match "id : <D, D>" with D in {0, *} (spec.md §4.1).
func MalformedDistanceAnnotation(text string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorMalformedDistanceAnnotation,
		fmt.Sprintf("malformed distance annotation: %q", text), pos).
		WithSuggestion("use the form 'name : <0, *>' with 0 or * on each side").
		WithHelp("distances describe the initial aligned/shadow difference for one parameter").
		Build()
}

// MalformedGoal reports a CHECK: annotation that isn't a non-empty expression.
func MalformedGoal(text string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorMalformedGoal,
		fmt.Sprintf("malformed goal annotation: %q", text), pos).
		WithSuggestion("use the form 'CHECK:(expr)'").
		Build()
}

// UnknownPrecondition reports a PRECONDITION class outside the fixed set.
func UnknownPrecondition(class string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorUnknownPrecondition,
		fmt.Sprintf("unknown precondition class %q", class), pos).
		WithSuggestion("use one of ONE_DIFFER, ALL_DIFFER, DECREASING, INCREASING").
		Build()
}

// MissingParameterAnnotation reports a parameter lacking a distance entry.
func MissingParameterAnnotation(name string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorMissingParameterAnnotation,
		fmt.Sprintf("parameter %q has no distance annotation", name), pos).
		WithSuggestion(fmt.Sprintf("add '%s : <0, 0>' (or <*, *>) to the leading distance annotation", name)).
		WithNote("every parameter must have exactly one distance annotation").
		Build()
}

// ExtraAnnotation reports a distance annotation for a name that is not a parameter.
func ExtraAnnotation(name string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorExtraAnnotation,
		fmt.Sprintf("%q is not a parameter but has a distance annotation", name), pos).
		WithSuggestion("remove the annotation, or add the parameter to the function signature").
		Build()
}

// ParameterContractViolation reports a parameter-list shape violation.
func ParameterContractViolation(message string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorParameterContract, message, pos).
		WithHelp("the function must declare at least 3 parameters: query[], size, epsilon, ...").
		Build()
}

// ReservedNameCollision reports a user identifier colliding with the
// internally generated prefix (aligned_, shadow_, sample_array, ...).
func ReservedNameCollision(name string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorReservedNameCollision,
		fmt.Sprintf("identifier %q collides with an internally reserved prefix", name), pos).
		WithLength(len(name)).
		WithSuggestion("rename the identifier to avoid the aligned_/shadow_/sample_/v_epsilon prefixes").
		Build()
}

// UnsupportedCall reports a call to anything other than Lap or OUTPUT.
func UnsupportedCall(name string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorUnsupportedCall,
		fmt.Sprintf("call to %q is not permitted; only Lap and OUTPUT are intrinsics", name), pos).
		WithLength(len(name)).
		Build()
}

// AnnotationCountViolation reports a function body that does not open
// with exactly 3 leading string-literal annotation statements.
func AnnotationCountViolation(got int, pos ast.Position) CompilerError {
	return NewConfigError(ErrorAnnotationCount,
		fmt.Sprintf("function body must open with exactly 3 annotation statements (distances, precondition, goal); found %d", got), pos).
		WithSuggestion(`add the missing "name:<0,0>;..." / "PRECONDITION:..." / "CHECK:(...)" statement`).
		Build()
}

// NonConstantScale reports a Lap() scale argument or goal expression that
// does not reduce to a rational constant.
func NonConstantScale(text string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorNonConstantScale,
		fmt.Sprintf("%q is not a rational constant", text), pos).
		WithSuggestion("use a literal number, or a +-*/ combination of literals").
		Build()
}

// ReturnInUserCode reports a forbidden "return" statement in source code.
func ReturnInUserCode(pos ast.Position) CompilerError {
	return NewConfigError(ErrorReturnInUserCode, "return is forbidden in user code", pos).
		WithSuggestion("use OUTPUT(expr) to publish a value instead").
		Build()
}

// UnsupportedConstruct reports a construct the transformer cannot instrument.
func UnsupportedConstruct(what string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorUnsupportedConstruct,
		fmt.Sprintf("unsupported construct: %s", what), pos).
		Build()
}

// RandomUnderDivergence reports a Lap() declaration reached while pc holds.
func RandomUnderDivergence(name string, pos ast.Position) CompilerError {
	return NewConfigError(ErrorRandomUnderDivergence,
		fmt.Sprintf("random variable %q declared under a shadow-divergent branch", name), pos).
		WithNote("sampling under pc would make the shadow distance of the sample undefined").
		Build()
}

// FloatCoercionWarning reports a float base type silently coerced to int.
func FloatCoercionWarning(name string, pos ast.Position) CompilerError {
	return NewConfigWarning(WarningFloatCoercion,
		fmt.Sprintf("%q declared as float; coerced to int for search", name), pos).
		Build()
}
