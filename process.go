package sez

import "strings"

const (
	procConstant = "Constant"
	procApply    = "Apply"
	procBind     = "Bind"
	procSpread   = "Spread"
	procIdentity = "Identity"
	procFlatten  = "Flatten"
	procText     = "Text"
	procVector   = "Vector"
	procTest     = "Test"
	procUnless   = "Unless"
)

// ApplyFunc transforms a rule's result value.
type ApplyFunc func(s *RuleScope, v Value) (Value, error)

// BindFunc produces a rule's result from destructured bindings,
// available through the scope.
type BindFunc func(s *RuleScope) (Value, error)

// SpreadFunc receives a list result spread into arguments; any other
// result arrives as a single argument.
type SpreadFunc func(s *RuleScope, args ...Value) (Value, error)

// PredFunc decides whether a rule's result stands.
type PredFunc func(s *RuleScope) bool

type processor struct {
	kind    string
	val     Value
	pattern Value
	apply   ApplyFunc
	bind    BindFunc
	spread  SpreadFunc
	pred    PredFunc
	flag    bool
}

// RuleDef chains variable declarations and processors onto a freshly
// defined rule. Processors run left to right over the rule's result;
// the first one to fail fails the rule.
type RuleDef struct {
	g   *Grammar
	r   *rule
	pos int
}

func (d *RuleDef) option(p processor) *RuleDef {
	if d.r != nil {
		d.r.procs = append(d.r.procs, p)
	}
	return d
}

// Let declares dynamically scoped variables on the rule, initially
// nil, visible to descendant rules that declare them External.
func (d *RuleDef) Let(names ...string) *RuleDef {
	if d.r != nil {
		for _, n := range names {
			d.r.lets = append(d.r.lets, letDecl{name: n, init: Nil})
		}
	}
	return d
}

// LetInit is Let with an initial value.
func (d *RuleDef) LetInit(name string, init Value) *RuleDef {
	if d.r != nil {
		d.r.lets = append(d.r.lets, letDecl{name: name, init: init})
	}
	return d
}

// External binds the named variables to the nearest ancestor's Let
// cells. Dispatching the rule without such an ancestor is fatal.
func (d *RuleDef) External(names ...string) *RuleDef {
	if d.r != nil {
		d.r.externals = append(d.r.externals, names...)
	}
	return d
}

// Constant discards the rule's result and produces v.
func (d *RuleDef) Constant(v Value) *RuleDef {
	return d.option(processor{kind: procConstant, val: v})
}

// Apply passes the result through fn.
func (d *RuleDef) Apply(fn ApplyFunc) *RuleDef {
	return d.option(processor{kind: procApply, apply: fn})
}

// Bind destructures the result against pattern and runs fn with the
// bindings in scope.
func (d *RuleDef) Bind(pattern Value, fn BindFunc) *RuleDef {
	return d.option(processor{kind: procBind, pattern: pattern, bind: fn})
}

// Fn applies fn to the result's elements as positional arguments.
func (d *RuleDef) Fn(fn SpreadFunc) *RuleDef {
	return d.option(processor{kind: procSpread, spread: fn})
}

// Identity passes the result through when flag is set, else nil.
func (d *RuleDef) Identity(flag bool) *RuleDef {
	return d.option(processor{kind: procIdentity, flag: flag})
}

// Flatten replaces a tree of lists by its non-list leaves.
func (d *RuleDef) Flatten() *RuleDef {
	return d.option(processor{kind: procFlatten})
}

// Text flattens the result and joins the leaves into a string: chars
// and strings as-is, bytes by character code, symbols by name.
func (d *RuleDef) Text() *RuleDef {
	return d.option(processor{kind: procText})
}

// Vector flattens the result into a vector of its leaves.
func (d *RuleDef) Vector() *RuleDef {
	return d.option(processor{kind: procVector})
}

// Test destructures the result against pattern and keeps the original
// result when pred holds; otherwise the rule fails.
func (d *RuleDef) Test(pattern Value, pred PredFunc) *RuleDef {
	return d.option(processor{kind: procTest, pattern: pattern, pred: pred})
}

// Unless is Test with the predicate negated.
func (d *RuleDef) Unless(pattern Value, pred PredFunc) *RuleDef {
	return d.option(processor{kind: procUnless, pattern: pattern, pred: pred})
}

// RuleScope is handed to processor callbacks: destructured bindings,
// and read/write access to the External variables of the rule being
// processed. Errors raised through the scope abort the parse.
type RuleScope struct {
	ctx  *context
	vars map[string]Value
	err  error
}

// Var reads a binding introduced by the current processor's pattern.
func (s *RuleScope) Var(name string) Value {
	if v, ok := s.vars[name]; ok {
		return v
	}
	s.fail(grammarErrf(s.ctx.ruleName(), "no binding %q in pattern", name))
	return Nil
}

// External reads a dynamically scoped variable declared External on
// the rule.
func (s *RuleScope) External(name string) Value {
	c, ok := s.ctx.ext[name]
	if !ok {
		s.fail(grammarErrf(s.ctx.ruleName(), "variable %q is not declared External here", name))
		return Nil
	}
	return c.v
}

// SetExternal writes a dynamically scoped variable; the write is
// visible to every rule sharing the ancestor's cell.
func (s *RuleScope) SetExternal(name string, v Value) {
	c, ok := s.ctx.ext[name]
	if !ok {
		s.fail(grammarErrf(s.ctx.ruleName(), "variable %q is not declared External here", name))
		return
	}
	c.v = v
}

func (s *RuleScope) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// valueItems expands a sequence into items; strings expand to chars.
func valueItems(v Value) []Value {
	switch v.Kind() {
	case KindVector, KindList:
		return v.items
	case KindString:
		var out []Value
		for _, r := range v.str {
			out = append(out, Char(r))
		}
		return out
	}
	return nil
}

// destructure matches v against pattern: symbols bind (underscore
// ignores), nested lists recurse, and the symbol &rest collects the
// tail. A pattern that does not fit the value shape is fatal.
func destructure(rule string, pattern, v Value, into map[string]Value) error {
	switch pattern.Kind() {
	case KindSymbol:
		if pattern.sym.Name != "_" {
			into[pattern.sym.Name] = v
		}
		return nil
	case KindNil:
		if !v.IsNil() {
			return grammarErrf(rule, "pattern expects nil, got %v", v)
		}
		return nil
	case KindList:
		if !v.IsSequence() && !v.IsNil() {
			return grammarErrf(rule, "pattern %v does not fit %v", pattern, v)
		}
		items := valueItems(v)
		i := 0
		subs := pattern.items
		for pi := 0; pi < len(subs); pi++ {
			sub := subs[pi]
			if sub.Kind() == KindSymbol && sub.sym.Name == "&rest" {
				if pi+1 >= len(subs) || subs[pi+1].Kind() != KindSymbol {
					return grammarErrf(rule, "&rest needs a trailing name in %v", pattern)
				}
				into[subs[pi+1].sym.Name] = List(items[i:]...)
				return nil
			}
			if i >= len(items) {
				return grammarErrf(rule, "pattern %v wants more items than %v has", pattern, v)
			}
			if err := destructure(rule, sub, items[i], into); err != nil {
				return err
			}
			i++
		}
		if i < len(items) {
			return grammarErrf(rule, "pattern %v leaves %v trailing items of %v unmatched", pattern, len(items)-i, v)
		}
		return nil
	}
	return grammarErrf(rule, "unsupported pattern %v", pattern)
}

// flattenValue walks a tree of lists depth-first, collecting the
// non-list leaves. Nil leaves vanish with their empty lists.
func flattenValue(v Value, into []Value) []Value {
	if v.IsNil() {
		return into
	}
	if v.Kind() == KindList {
		for _, it := range v.items {
			into = flattenValue(it, into)
		}
		return into
	}
	return append(into, v)
}

func joinText(leaves []Value) Value {
	var b strings.Builder
	for _, v := range leaves {
		switch v.Kind() {
		case KindChar:
			b.WriteRune(v.ch)
		case KindString:
			b.WriteString(v.str)
		case KindByte:
			b.WriteRune(rune(v.b))
		case KindSymbol:
			b.WriteString(v.sym.Name)
		default:
			b.WriteString(v.String())
		}
	}
	return Str(b.String())
}

// applyProcessors runs the rule's pipeline over the matched value.
// The bool verdict distinguishes predicate failure (the rule declines)
// from fatal errors.
func (r *run) applyProcessors(ctx *context, v Value) (Value, bool, error) {
	name := ctx.ruleName()
	for _, p := range ctx.rule.procs {
		scope := &RuleScope{ctx: ctx}
		switch p.kind {
		case procConstant:
			v = p.val
		case procApply:
			out, err := p.apply(scope, v)
			if err != nil {
				return Nil, false, nil
			}
			v = out
		case procBind:
			scope.vars = map[string]Value{}
			if err := destructure(name, p.pattern, v, scope.vars); err != nil {
				return Nil, false, err
			}
			out, err := p.bind(scope)
			if err != nil {
				return Nil, false, nil
			}
			v = out
		case procSpread:
			args := []Value{v}
			if v.Kind() == KindList || v.IsNil() {
				args = valueItems(v)
			}
			out, err := p.spread(scope, args...)
			if err != nil {
				return Nil, false, nil
			}
			v = out
		case procIdentity:
			if !p.flag {
				v = Nil
			}
		case procFlatten:
			v = List(flattenValue(v, nil)...)
		case procText:
			v = joinText(flattenValue(v, nil))
		case procVector:
			v = Vec(flattenValue(v, nil)...)
		case procTest:
			scope.vars = map[string]Value{}
			if err := destructure(name, p.pattern, v, scope.vars); err != nil {
				return Nil, false, err
			}
			if !p.pred(scope) && scope.err == nil {
				return Nil, false, nil
			}
		case procUnless:
			scope.vars = map[string]Value{}
			if err := destructure(name, p.pattern, v, scope.vars); err != nil {
				return Nil, false, err
			}
			if p.pred(scope) && scope.err == nil {
				return Nil, false, nil
			}
		}
		if scope.err != nil {
			return Nil, false, scope.err
		}
	}
	return v, true, nil
}
