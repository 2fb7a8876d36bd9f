package bubble

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrInvalidTraversal is returned when an AT string does not parse.
var ErrInvalidTraversal = errors.New("invalid allele traversal")

type traversalExpr struct {
	Steps []*stepExpr `parser:"@@+"`
}

type stepExpr struct {
	Dir string `parser:"@Dir"`
	ID  string `parser:"@Segment"`
}

var traversalLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Dir", Pattern: `[<>]`},
	{Name: "Segment", Pattern: `[^<>,\s]+`},
})

var parseTraversalExpr = participle.MustBuild[traversalExpr](
	participle.Lexer(traversalLexer),
)

// ParseTraversal parses an allele traversal such as ">21610<21611>21612".
func ParseTraversal(s string) (Traversal, error) {
	expr, err := parseTraversalExpr.ParseString("", s)
	if err != nil {
		return Traversal{}, fmt.Errorf("%w %q: %v", ErrInvalidTraversal, s, err)
	}

	t := Traversal{Steps: make([]Step, 0, len(expr.Steps))}
	for _, st := range expr.Steps {
		t.Steps = append(t.Steps, Step{ID: st.ID, Dir: Direction(st.Dir[0])})
	}
	return t, nil
}
