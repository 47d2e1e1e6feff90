package errors

import (
	"fmt"
	"strings"

	"uc/internal/ast"
)

// SemanticErrorBuilder provides a fluent interface for creating semantic errors with suggestions.
type SemanticErrorBuilder struct {
	err CompilerError
}

// NewSemanticError creates a new semantic error builder.
func NewSemanticError(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewSemanticWarning creates a new semantic warning builder.
func NewSemanticWarning(code, message string, pos ast.Position) *SemanticErrorBuilder {
	return &SemanticErrorBuilder{
		err: CompilerError{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

func (b *SemanticErrorBuilder) WithLength(length int) *SemanticErrorBuilder {
	b.err.Length = length
	return b
}

func (b *SemanticErrorBuilder) WithSuggestion(message string) *SemanticErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

func (b *SemanticErrorBuilder) WithReplacement(message, replacement string, pos ast.Position, length int) *SemanticErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{
		Message:     message,
		Replacement: replacement,
		Position:    pos,
		Length:      length,
	})
	return b
}

func (b *SemanticErrorBuilder) WithNote(note string) *SemanticErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

func (b *SemanticErrorBuilder) WithHelp(help string) *SemanticErrorBuilder {
	b.err.HelpText = help
	return b
}

func (b *SemanticErrorBuilder) Build() CompilerError {
	return b.err
}

// UndefinedVariable creates an error for undefined variables with suggestions.
func UndefinedVariable(name string, pos ast.Position, similarNames []string) CompilerError {
	builder := NewSemanticError(ErrorUndefinedVariable, fmt.Sprintf("undefined variable '%s'", name), pos).
		WithLength(len(name))

	if len(similarNames) > 0 {
		if len(similarNames) == 1 {
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similarNames[0]))
		} else {
			suggestions := strings.Join(similarNames, "', '")
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", suggestions))
		}
	} else {
		builder = builder.WithSuggestion("make sure the variable is declared before use").
			WithNote("variables must be declared before the first statement that uses them")
	}

	return builder.Build()
}

// UndefinedFunction creates an error for calls to functions with no matching declaration.
func UndefinedFunction(name string, pos ast.Position, similarNames []string) CompilerError {
	builder := NewSemanticError(ErrorUndefinedFunction, fmt.Sprintf("function '%s' is not declared", name), pos).
		WithLength(len(name))

	if len(similarNames) > 0 {
		if len(similarNames) == 1 {
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similarNames[0]))
		} else {
			suggestions := strings.Join(similarNames, "', '")
			builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", suggestions))
		}
	}

	return builder.WithHelp("functions must be declared or defined before they are called").Build()
}

// TypeMismatch creates an error for type mismatches with conversion suggestions.
func TypeMismatch(expected, actual string, pos ast.Position) CompilerError {
	builder := NewSemanticError(ErrorTypeMismatch, fmt.Sprintf("type mismatch: expected %s, found %s", expected, actual), pos)

	if isNumericType(expected) && isNumericType(actual) {
		if canPromoteType(actual, expected) {
			builder = builder.WithSuggestion("the types are compatible, this should work automatically")
		} else {
			builder = builder.WithSuggestion(fmt.Sprintf("consider an explicit (%s) cast", expected)).
				WithNote("assigning a float to an int (or vice versa) requires an explicit cast")
		}
	}

	return builder.Build()
}

// UnusedVariable creates a warning for unused variables.
func UnusedVariable(name string, pos ast.Position) CompilerError {
	return NewSemanticWarning(WarningUnusedVariable, fmt.Sprintf("variable '%s' is declared but never used", name), pos).
		WithLength(len(name)).
		WithSuggestion("remove the variable declaration if it's not needed").
		Build()
}

// UnreachableCode creates a warning for unreachable code.
func UnreachableCode(pos ast.Position) CompilerError {
	return NewSemanticWarning(WarningUnreachableCode, "unreachable code", pos).
		WithSuggestion("remove the unreachable code").
		WithNote("code after a return or break statement will never be executed").
		Build()
}

// MissingReturnStatement creates an error for a function missing a return on some path.
func MissingReturnStatement(functionName, returnType string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidReturnType, fmt.Sprintf("function '%s' must return a value of type %s on every path", functionName, returnType), pos).
		WithSuggestion(fmt.Sprintf("add a return statement that returns a value of type %s", returnType)).
		WithNote("functions with a non-void return type must return a value on all code paths").
		Build()
}

// InvalidOperation creates an error for an operator unsupported by the operand types.
func InvalidOperation(op, leftType, rightType string, pos ast.Position) CompilerError {
	builder := NewSemanticError(ErrorInvalidBinaryOperation, fmt.Sprintf("invalid operation: %s %s %s", leftType, op, rightType), pos)

	switch op {
	case "+", "-", "*", "/", "%":
		if !isNumericType(leftType) || !isNumericType(rightType) {
			builder = builder.WithSuggestion("arithmetic operations require int or float operands")
		}
	case "&&", "||":
		builder = builder.WithSuggestion("logical operations require bool operands").
			WithSuggestion("use a relational operator (==, !=, <, >, <=, >=) to produce a bool")
	case "==", "!=", "<", "<=", ">", ">=":
		builder = builder.WithSuggestion("comparison operands must be of compatible types")
	}

	return builder.Build()
}

// DuplicateDeclaration creates an error for a name redeclared in the same scope.
func DuplicateDeclaration(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorDuplicateDeclaration, fmt.Sprintf("'%s' is already declared in this scope", name), pos).
		WithSuggestion(fmt.Sprintf("rename the duplicate '%s' to a unique name", name)).
		WithNote("identifiers must be unique within their scope").
		Build()
}

// InvalidArguments creates an error for a call whose argument count or types don't match the signature.
func InvalidArguments(functionName string, expected, actual int, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidArguments,
		fmt.Sprintf("function '%s' expects %d argument(s), got %d", functionName, expected, actual), pos).
		WithSuggestion(fmt.Sprintf("provide exactly %d argument(s)", expected)).
		WithHelp("check the function declaration for the correct number and types of parameters").
		Build()
}

// InvalidAssignment creates an error for an assignment whose target or operand types are invalid.
func InvalidAssignment(message string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorInvalidAssignment, message, pos).
		WithSuggestion("ensure the assignment target is a variable or array element").
		Build()
}

// ArraySizeMismatch creates an error for an initializer list whose length disagrees with the declared array size.
func ArraySizeMismatch(name string, declared, got int, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorArraySizeMismatch,
		fmt.Sprintf("array '%s' declared with size %d but initializer has %d element(s)", name, declared, got), pos).
		Build()
}

// ConditionNotBool creates an error for a non-bool condition expression.
func ConditionNotBool(actual string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorConditionNotBool, fmt.Sprintf("condition must be bool, found %s", actual), pos).
		WithSuggestion("use a relational or logical expression as the condition").
		Build()
}

// ArrayIndexNotInt creates an error for a non-int array index expression.
func ArrayIndexNotInt(actual string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorArrayIndexNotInt, fmt.Sprintf("array index must be int, found %s", actual), pos).
		Build()
}

// UnknownArrayStride creates an error when an inner array dimension needed to
// compute a multidimensional index cannot be determined statically.
func UnknownArrayStride(name string, pos ast.Position) CompilerError {
	return NewSemanticError(ErrorUnknownArrayStride,
		fmt.Sprintf("cannot determine the inner dimension of '%s' needed for this index", name), pos).
		WithNote("multidimensional indexing requires the inner array's length to be known at compile time").
		Build()
}

// MissingReturn creates an error for a function that declares a return type but has a path that ends without a return statement.
func MissingReturn(functionName, returnType string, pos ast.Position) CompilerError {
	message := fmt.Sprintf("function '%s' declares return type '%s' but does not return on every path", functionName, returnType)
	return NewSemanticError(ErrorMissingReturn, message, pos).
		WithSuggestion(fmt.Sprintf("add a return statement that returns a value of type '%s'", returnType)).
		Build()
}

// NewUnreachableCode creates a warning for code that cannot be reached, found during flow analysis.
func NewUnreachableCode(pos ast.Position) CompilerError {
	return NewSemanticWarning(ErrorUnreachableCode, "unreachable code", pos).
		WithSuggestion("remove this code").
		Build()
}

func isNumericType(typeName string) bool {
	return typeName == "int" || typeName == "float"
}

func canPromoteType(from, to string) bool {
	return from == "int" && to == "float"
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, candidate := range candidates {
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min3(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(a)][len(b)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
