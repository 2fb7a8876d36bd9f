package bubble

import (
	"fmt"
	"os"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

// Rule is a named selection condition, usually read from a rules file.
type Rule struct {
	ID        string `yaml:"id" json:"id"`
	Condition string `yaml:"condition" json:"condition"` // CEL: "alleles > 2 && chrom == 'chr1'"
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML document of the form `rules: [{id, condition}]`.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode rules file %s: %w", path, err)
	}
	for i, r := range f.Rules {
		if r.Condition == "" {
			return nil, fmt.Errorf("rule %d (%s) has no condition", i, r.ID)
		}
		if r.ID == "" {
			f.Rules[i].ID = fmt.Sprintf("rule-%d", i)
		}
	}
	return f.Rules, nil
}

// Filter selects bubbles with CEL expressions. A bubble is kept only when
// every compiled rule evaluates to true.
type Filter struct {
	env      *cel.Env
	rules    []Rule
	programs []cel.Program
}

// NewFilter compiles the given expressions. Each becomes an anonymous rule.
func NewFilter(exprs ...string) (*Filter, error) {
	rules := make([]Rule, 0, len(exprs))
	for i, e := range exprs {
		rules = append(rules, Rule{ID: fmt.Sprintf("expr-%d", i), Condition: e})
	}
	return NewRuleFilter(rules)
}

// NewRuleFilter compiles named rules.
func NewRuleFilter(rules []Rule) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("chrom", cel.StringType),
		cel.Variable("pos", cel.IntType),
		cel.Variable("alleles", cel.IntType),
		cel.Variable("nodes", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	f := &Filter{env: env}
	for _, r := range rules {
		ast, issues := env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %s must evaluate to bool, got %s", r.ID, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		f.rules = append(f.rules, r)
		f.programs = append(f.programs, prg)
	}
	return f, nil
}

// Len returns the number of compiled rules.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.programs)
}

// Match reports whether d passes every rule. A nil or empty filter matches everything.
func (f *Filter) Match(d *Descriptor) (bool, error) {
	if f.Len() == 0 {
		return true, nil
	}

	vars := map[string]any{
		"id":      d.ID,
		"chrom":   d.Chrom,
		"pos":     int64(d.Pos),
		"alleles": int64(len(d.Traversals)),
		"nodes":   int64(len(d.AllNodeIDs())),
	}
	for i, prg := range f.programs {
		out, _, err := prg.Eval(vars)
		if err != nil {
			return false, fmt.Errorf("rule %s evaluation failed: %w", f.rules[i].ID, err)
		}
		if keep, ok := out.Value().(bool); !ok || !keep {
			return false, nil
		}
	}
	return true, nil
}
