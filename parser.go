package sez

import "strings"

// dispatch runs a named rule at pos: registry lookup, left-recursion
// guard, argument binding, Let/External wiring, body evaluation and
// the processor pipeline. Cleanup is symmetric on every exit path.
func (r *run) dispatch(name string, argNodes []*grammarNode, caller *context, pos Position) (Value, Position, bool, error) {
	rl, ok := r.rules[name]
	if !ok {
		return Nil, pos, false, grammarErrf(caller.ruleName(), "call to undefined rule %q", name)
	}
	if len(argNodes) != len(rl.formals) {
		return Nil, pos, false, grammarErrf(name, "have %v arguments for %v formals", len(argNodes), len(rl.formals))
	}

	key := name + "@" + pos.Key()
	if _, in := r.inProgress[key]; in {
		return Nil, pos, false, &LeftRecursionError{Rule: name, Pos: pos}
	}
	r.inProgress[key] = struct{}{}
	defer delete(r.inProgress, key)

	r.depth++
	defer func() { r.depth-- }()
	if r.depth > r.g.MaxDepth {
		return Nil, pos, false, grammarErrf(name, "rule nesting exceeded %v levels", r.g.MaxDepth)
	}

	ctx := &context{run: r, rule: rl, args: argNodes, parent: caller}

	if len(rl.externals) > 0 {
		ctx.ext = map[string]*cell{}
		for _, ex := range rl.externals {
			c, found := r.bindings.lookup(ex)
			if !found {
				return Nil, pos, false, grammarErrf(name, "external variable %q has no binding here", ex)
			}
			ctx.ext[ex] = c
		}
	}
	if len(rl.lets) > 0 {
		if ctx.ext == nil {
			ctx.ext = map[string]*cell{}
		}
		frame := &bindingFrame{cells: map[string]*cell{}, next: r.bindings}
		for _, l := range rl.lets {
			c := &cell{v: l.init}
			frame.cells[l.name] = c
			ctx.ext[l.name] = c
		}
		r.bindings = frame
		defer func() { r.bindings = frame.next }()
	}

	traced := rl.trace || r.tracing > 0
	if rl.traceRec {
		r.tracing++
		defer func() { r.tracing-- }()
	}
	if traced {
		r.g.LogFunc("%v> %v %v", strings.Repeat("  ", r.depth-1), name, pos)
	}

	v, next, matched, err := r.eval(rl.body, pos, ctx)
	if matched && err == nil {
		v, matched, err = r.applyProcessors(ctx, v)
	}

	if traced {
		indent := strings.Repeat("  ", r.depth-1)
		switch {
		case err != nil:
			r.g.LogFunc("%v! %v %v: %v", indent, name, pos, err)
		case matched:
			r.g.LogFunc("%v< %v %v = %v", indent, name, next, v)
		default:
			r.g.LogFunc("%v< %v %v failed", indent, name, pos)
		}
	}

	if err != nil || !matched {
		return Nil, pos, matched && err == nil, err
	}
	return v, next, true, nil
}

// Parse matches a rule against the whole input. Nil is the empty list
// and parses as empty input; other inputs that are not sequences are
// wrapped in a one-element list. A declined parse
// returns an error wrapping ErrNoParse; grammar misuse and left
// recursion return their own fatal types.
func (g *Grammar) Parse(rule string, input Value) (Value, error) {
	return g.parse(rule, input, false)
}

// ParsePartial is Parse but tolerates trailing input.
func (g *Grammar) ParsePartial(rule string, input Value) (Value, error) {
	return g.parse(rule, input, true)
}

// Accept reports whether the rule matches the whole input.
func (g *Grammar) Accept(rule string, input Value) bool {
	_, err := g.parse(rule, input, false)
	return err == nil
}

func (g *Grammar) parse(rule string, input Value, junk bool) (Value, error) {
	if g.err != nil {
		return Nil, g.err
	}
	if input.IsNil() {
		input = Value{kind: KindList}
	} else if !input.IsSequence() {
		input = Value{kind: KindList, items: []Value{input}}
	}
	pos := startPosition(input)
	r := &run{
		g:          g,
		rules:      g.rules,
		inProgress: map[string]struct{}{},
		furthest:   pos,
	}
	v, end, ok, err := r.dispatch(rule, nil, nil, pos)
	if err != nil {
		return Nil, err
	}
	if !ok {
		return Nil, &parseError{rule: rule, pos: r.furthest}
	}
	if junk || end.AtEnd() {
		return v, nil
	}
	return Nil, &parseError{rule: rule, pos: r.furthest}
}

// testRule checks that a rule accepts all of accept and none of
// reject, whole-input.
func (g *Grammar) testRule(name string, accept []Value, reject []Value) bool {
	for _, in := range accept {
		if !g.Accept(name, in) {
			return false
		}
	}
	for _, in := range reject {
		if g.Accept(name, in) {
			return false
		}
	}
	return true
}
