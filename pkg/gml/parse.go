// Package gml reads and writes the Graph Modelling Language text used to talk
// to the layout oracle.
package gml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrInvalidGML is returned for text that is not GML or lacks required keys.
var ErrInvalidGML = errors.New("invalid GML")

// Kind is the type of a GML value.
type Kind uint8

const (
	StringKind Kind = iota
	IntKind
	FloatKind
	ListKind
)

// Value is one GML scalar or nested list.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	List  *Object
}

// Number returns the value as a float for Int and Float kinds.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case IntKind:
		return float64(v.Int), true
	case FloatKind:
		return v.Float, true
	}
	return 0, false
}

func (v Value) String() string {
	switch v.Kind {
	case IntKind:
		return fmt.Sprintf("%d", v.Int)
	case FloatKind:
		return fmt.Sprintf("%g", v.Float)
	case ListKind:
		return fmt.Sprintf("[%d pairs]", len(v.List.Pairs))
	}
	return fmt.Sprintf("%q", v.Str)
}

// Pair is one key/value entry. Keys may repeat.
type Pair struct {
	Key   string
	Value Value
}

// Object is an ordered list of pairs.
type Object struct {
	Pairs []Pair
}

// Get returns the first value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	for _, p := range o.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// All returns every value stored under key, in order.
func (o *Object) All(key string) []Value {
	if o == nil {
		return nil
	}
	var out []Value
	for _, p := range o.Pairs {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

type listExpr struct {
	Pairs []*pairExpr `parser:"@@*"`
}

type pairExpr struct {
	Key   string     `parser:"@Ident"`
	Value *valueExpr `parser:"@@"`
}

type valueExpr struct {
	Float *float64  `parser:"  @Float"`
	Int   *int64    `parser:"| @Int"`
	Str   *string   `parser:"| @String"`
	List  *listExpr `parser:"| \"[\" @@ \"]\""`
}

var gmlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Float", Pattern: `[-+]?(\d+\.\d*|\.\d+)([eE][-+]?\d+)?|[-+]?\d+[eE][-+]?\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Punct", Pattern: `[\[\]]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parseGMLExpr = participle.MustBuild[listExpr](
	participle.Lexer(gmlLexer),
	participle.Elide("Comment", "Whitespace"),
)

// Parse reads GML text into a generic key/value tree.
func Parse(text string) (*Object, error) {
	expr, err := parseGMLExpr.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGML, err)
	}
	return expr.object(), nil
}

func (l *listExpr) object() *Object {
	if l == nil {
		return &Object{}
	}
	obj := &Object{Pairs: make([]Pair, 0, len(l.Pairs))}
	for _, p := range l.Pairs {
		obj.Pairs = append(obj.Pairs, Pair{Key: p.Key, Value: p.Value.value()})
	}
	return obj
}

func (v *valueExpr) value() Value {
	switch {
	case v.Float != nil:
		return Value{Kind: FloatKind, Float: *v.Float}
	case v.Int != nil:
		return Value{Kind: IntKind, Int: *v.Int}
	case v.Str != nil:
		return Value{Kind: StringKind, Str: unquote(*v.Str)}
	default:
		return Value{Kind: ListKind, List: v.List.object()}
	}
}

var entities = strings.NewReplacer("&quot;", `"`, "&amp;", "&")

func unquote(s string) string {
	return entities.Replace(strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`))
}
