package preprocess

import (
	"regexp"
	"strings"

	"checkdp/internal/ast"
	cherrors "checkdp/internal/errors"
	"checkdp/internal/parser"
	"checkdp/internal/typeenv"
)

// Precondition is one of the four input-relation classes the driver seeds
// symbolic inputs from (spec.md §4.5).
type Precondition string

const (
	OneDiffer  Precondition = "ONE_DIFFER"
	AllDiffer  Precondition = "ALL_DIFFER"
	Decreasing Precondition = "DECREASING"
	Increasing Precondition = "INCREASING"
)

func validPrecondition(s string) bool {
	switch Precondition(s) {
	case OneDiffer, AllDiffer, Decreasing, Increasing:
		return true
	}
	return false
}

// distanceEntry is one "name:<D,D>" pair lifted out of the first
// annotation statement.
type distanceEntry struct {
	name           string
	aligned, shadow string
}

// distancePattern mirrors preprocess.py's parse_annotation distance
// regex: an identifier followed by a <D,D> pair, D in {0,*}. The source
// grammar (spec.md §4.1) allows ';' as an optional separator and is
// otherwise whitespace-insensitive, so entries are matched anywhere in
// the string rather than split on a fixed delimiter first.
var distancePattern = regexp.MustCompile(`([a-zA-Z_]\w*)\s*:\s*<\s*([0*])\s*,\s*([0*])\s*>`)

func parseDistances(text string) []distanceEntry {
	matches := distancePattern.FindAllStringSubmatch(text, -1)
	entries := make([]distanceEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, distanceEntry{name: m[1], aligned: m[2], shadow: m[3]})
	}
	return entries
}

var preconditionPattern = regexp.MustCompile(`PRECONDITION\s*:\s*([A-Za-z_]+)`)

// assumePattern and assumeHolePattern find ASSUME(...) / ASSUME_HOLE(...) clauses. The
// dialect's expressions never contain parentheses-balancing tricks this
// simple non-greedy match can't handle (no nested calls other than the
// single-arg Lap, which never appears inside an ASSUME), mirroring the
// original implementation's own `ASSUME\(([^()]*)\)` regex.
var assumePattern = regexp.MustCompile(`ASSUME\(([^()]*)\)`)
var assumeHolePattern = regexp.MustCompile(`ASSUME_HOLE\(([^()]*)\)`)

var goalPrefixPattern = regexp.MustCompile(`^CHECK\s*:\s*`)

// extractGoal strips the "CHECK:" prefix and at most one matching pair of
// outer parentheses, e.g. "CHECK:(1/2)" -> "1/2". Done by hand rather than
// a single regex since a lazy capture bounded by an optional trailing
// ")" before "$" is ambiguous for goal expressions that themselves
// contain parens (e.g. "CHECK:((a+b)/2)").
func extractGoal(text string) (string, bool) {
	loc := goalPrefixPattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := strings.TrimSpace(text[loc[1]:])
	if len(rest) >= 2 && rest[0] == '(' && rest[len(rest)-1] == ')' {
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}
	return rest, rest != ""
}

// stripQuotes removes the surrounding double quotes the grammar keeps on
// a StringStmt's Text so the annotation regexes see the bare payload.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parsedAnnotations is the result of regex-parsing the three leading
// annotation statements, before any of it is cross-checked against the
// function's actual parameter list.
type parsedAnnotations struct {
	distances    []distanceEntry
	precondition Precondition
	assumeExprs  []string
	holeExprs    []string
	goalExpr     string
}

func (p *Preprocessor) parseAnnotations(fn *ast.FuncDef) (parsedAnnotations, bool) {
	if len(fn.Annotations) != 3 {
		p.fail(cherrors.AnnotationCountViolation(len(fn.Annotations), fn.Pos))
		return parsedAnnotations{}, false
	}

	distanceText := stripQuotes(fn.Annotations[0])
	preconditionText := stripQuotes(fn.Annotations[1])
	goalText := stripQuotes(fn.Annotations[2])

	distances := parseDistances(distanceText)
	if len(distances) == 0 {
		p.fail(cherrors.MalformedDistanceAnnotation(distanceText, fn.Pos))
	}

	precMatch := preconditionPattern.FindStringSubmatch(preconditionText)
	var precondition Precondition
	if precMatch == nil {
		p.fail(cherrors.UnknownPrecondition(preconditionText, fn.Pos))
	} else if !validPrecondition(precMatch[1]) {
		p.fail(cherrors.UnknownPrecondition(precMatch[1], fn.Pos))
	} else {
		precondition = Precondition(precMatch[1])
	}

	var assumeExprs, holeExprs []string
	for _, m := range assumePattern.FindAllStringSubmatch(preconditionText, -1) {
		assumeExprs = append(assumeExprs, strings.TrimSpace(m[1]))
	}
	for _, m := range assumeHolePattern.FindAllStringSubmatch(preconditionText, -1) {
		holeExprs = append(holeExprs, strings.TrimSpace(m[1]))
	}

	goalExpr, ok := extractGoal(goalText)
	if !ok {
		p.fail(cherrors.MalformedGoal(goalText, fn.Pos))
	}

	return parsedAnnotations{
		distances:    distances,
		precondition: precondition,
		assumeExprs:  assumeExprs,
		holeExprs:    holeExprs,
		goalExpr:     goalExpr,
	}, true
}

// buildTypeEnv reconciles the parsed distance entries against the
// function's actual parameter list: every parameter needs exactly one
// entry, and no entry may name a non-parameter (spec.md §4.1 contracts).
func (p *Preprocessor) buildTypeEnv(fn *ast.FuncDef, distances []distanceEntry) *typeenv.TypeSystem {
	params := make(map[string]*ast.Param, len(fn.Params))
	for _, param := range fn.Params {
		params[param.Name] = param
	}

	seen := make(map[string]bool, len(distances))
	types := typeenv.New()
	for _, d := range distances {
		param, ok := params[d.name]
		if !ok {
			p.fail(cherrors.ExtraAnnotation(d.name, fn.Pos))
			continue
		}
		seen[d.name] = true
		aligned := distanceLiteral(d.aligned)
		shadow := distanceLiteral(d.shadow)
		types.UpdateDistance(d.name, aligned, shadow)
		types.UpdateBaseType(d.name, param.BaseType, param.IsArray)
	}

	for _, param := range fn.Params {
		if !seen[param.Name] {
			p.fail(cherrors.MissingParameterAnnotation(param.Name, param.Pos))
		}
	}

	return types
}

func distanceLiteral(s string) typeenv.Distance {
	d, ok := typeenv.ParseDistanceLiteral(s)
	if !ok {
		return typeenv.DistanceZero
	}
	return d
}

// parseExprList parses each raw expression string (an ASSUME/ASSUME_HOLE
// payload or the goal) with the dialect's expression grammar, via
// internal/parser.ParseExpr, reporting a malformed-goal/precondition
// diagnostic on failure instead of propagating a raw parser error.
func (p *Preprocessor) parseExprList(filename string, exprs []string, onError func(text string, pos ast.Position)) []ast.Expr {
	out := make([]ast.Expr, 0, len(exprs))
	for _, text := range exprs {
		e, err := parser.ParseExpr(filename, text)
		if err != nil {
			onError(text, ast.Position{Filename: filename})
			continue
		}
		out = append(out, e)
	}
	return out
}
