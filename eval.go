package sez

import "fmt"

// samePoint is cheap identity on positions from the same parse: equal
// frame index and the same parent chain.
func samePoint(a, b Position) bool {
	return a.idx == b.idx && a.parent == b.parent
}

// matchSubseq matches a string or vector literal element-wise against
// the next items of the current frame.
func matchSubseq(lit Value, pos Position) (Position, bool) {
	li, n := 0, lit.SeqLen()
	q := pos
	for li < n {
		want, lw, _ := lit.seqAt(li)
		got, ok := q.Peek()
		if !ok || !Equal(want, got) {
			return pos, false
		}
		q, _ = q.Advance(1)
		li += lw
	}
	return q, true
}

func matchLiteral(lit Value, pos Position) (Position, bool) {
	switch lit.Kind() {
	case KindString:
		if pos.seq.Kind() == KindString {
			rest := pos.seq.str[pos.idx:]
			if len(rest) >= len(lit.str) && rest[:len(lit.str)] == lit.str {
				return pos.advanceBytes(len(lit.str)), true
			}
			return pos, false
		}
		return matchSubseq(lit, pos)
	case KindVector:
		return matchSubseq(lit, pos)
	}
	got, ok := pos.Peek()
	if !ok || !Equal(lit, got) {
		return pos, false
	}
	next, _ := pos.Advance(1)
	return next, true
}

func countFromValue(v Value) (int, bool) {
	switch v.Kind() {
	case KindByte:
		return int(v.b), true
	case KindNumber:
		if v.IsInt() && v.IntVal() >= 0 {
			return int(v.IntVal()), true
		}
	}
	return 0, false
}

func matchClass(class string, item Value) bool {
	switch class {
	case classSymbol:
		return item.Kind() == KindSymbol
	case classChar:
		return item.Kind() == KindChar
	case classByte:
		return item.Kind() == KindByte
	case classNumber:
		return item.Kind() == KindNumber
	case classList:
		return item.Kind() == KindList || item.IsNil()
	case classVector:
		return item.Kind() == KindVector
	case classString:
		return item.Kind() == KindString
	case classForm:
		return true
	case classTruthy:
		return item.Truthy()
	case classNil:
		return item.IsNil()
	}
	return false
}

// eval matches one expression at pos. The bool is the parse verdict;
// the error carries only fatal conditions and aborts the whole parse.
func (r *run) eval(n *grammarNode, pos Position, ctx *context) (Value, Position, bool, error) {
	if n == nil {
		return Nil, pos, true, nil
	}
	switch n.kind {
	case printNode:
		p := r.g.posInfo[n.pos]
		msg := fmt.Sprint(n.message...)
		r.g.LogFunc("%v:%v: Print(%q) (inside %q %v)", p.file, p.line, msg, ctx.ruleName(), pos)
		return Nil, pos, true, nil

	case literalNode:
		next, ok := matchLiteral(n.lit, pos)
		if !ok {
			r.notePos(pos)
			return Nil, pos, false, nil
		}
		r.notePos(next)
		return n.lit, next, true, nil

	case itemNode:
		item, ok := pos.Peek()
		if !ok || !matchClass(n.class, item) {
			r.notePos(pos)
			return Nil, pos, false, nil
		}
		next, _ := pos.Advance(1)
		r.notePos(next)
		if n.class == classNil {
			return Nil, next, true, nil
		}
		return item, next, true, nil

	case sequenceNode:
		results := make([]Value, 0, len(n.args))
		q := pos
		for _, child := range n.args {
			v, next, ok, err := r.eval(child, q, ctx)
			if err != nil {
				return Nil, pos, false, err
			}
			if !ok {
				return Nil, pos, false, nil
			}
			results = append(results, v)
			q = next
		}
		return List(results...), q, true, nil

	case choiceNode:
		for _, child := range n.args {
			v, next, ok, err := r.eval(child, pos, ctx)
			if err != nil {
				return Nil, pos, false, err
			}
			if ok {
				return v, next, true, nil
			}
		}
		return Nil, pos, false, nil

	case optionalNode:
		v, next, ok, err := r.eval(n.args[0], pos, ctx)
		if err != nil {
			return Nil, pos, false, err
		}
		if !ok {
			return Nil, pos, true, nil
		}
		return v, next, true, nil

	case repeatNode:
		return r.evalRepeat(n.args[0], pos, ctx, n.min, n.max)

	case repeatArgNode:
		count, err := ctx.argValue(n.argIdx)
		if err != nil {
			return Nil, pos, false, err
		}
		c, ok := countFromValue(count)
		if !ok {
			return Nil, pos, false, grammarErrf(ctx.ruleName(),
				"repetition count %q must be a non-negative integer, got %v", n.name, count)
		}
		return r.evalRepeat(n.args[0], pos, ctx, c, c)

	case repeatVarNode:
		cl, found := ctx.ext[n.name]
		if !found {
			return Nil, pos, false, grammarErrf(ctx.ruleName(),
				"repetition count %q is not a Let or External variable here", n.name)
		}
		c, ok := countFromValue(cl.v)
		if !ok {
			return Nil, pos, false, grammarErrf(ctx.ruleName(),
				"repetition count %q must be a non-negative integer, got %v", n.name, cl.v)
		}
		return r.evalRepeat(n.args[0], pos, ctx, c, c)

	case lookaheadNode:
		v, _, ok, err := r.eval(n.args[0], pos, ctx)
		if err != nil {
			return Nil, pos, false, err
		}
		if !ok {
			return Nil, pos, false, nil
		}
		return v, pos, true, nil

	case rejectNode:
		_, _, ok, err := r.eval(n.args[0], pos, ctx)
		if err != nil {
			return Nil, pos, false, err
		}
		if ok {
			return Nil, pos, false, nil
		}
		item, _ := pos.Peek()
		return item, pos, true, nil

	case notNode:
		_, _, ok, err := r.eval(n.args[0], pos, ctx)
		if err != nil {
			return Nil, pos, false, err
		}
		if ok {
			return Nil, pos, false, nil
		}
		item, any := pos.Peek()
		if !any {
			return Nil, pos, false, nil
		}
		next, _ := pos.Advance(1)
		r.notePos(next)
		return item, next, true, nil

	case descendNode:
		item, ok := pos.Peek()
		if !ok || !matchClass(n.class, item) {
			r.notePos(pos)
			return Nil, pos, false, nil
		}
		inner := pos.Descend(item)
		v, end, ok, err := r.eval(n.args[0], inner, ctx)
		if err != nil {
			return Nil, pos, false, err
		}
		if !ok || end.parent != inner.parent || !end.atFrameEnd() {
			return Nil, pos, false, nil
		}
		next, _ := pos.Advance(1)
		r.notePos(next)
		return List(v), next, true, nil

	case callNode:
		return r.dispatch(n.name, n.args, ctx, pos)

	case argNode:
		if ctx == nil || n.argIdx >= len(ctx.args) {
			return Nil, pos, false, grammarErrf(ctx.ruleName(), "no argument bound for %q", n.name)
		}
		return r.eval(ctx.args[n.argIdx], pos, ctx.parent)

	case unorderedNode:
		return r.evalUnordered(n, pos, ctx)

	case unorderedRepNode:
		return r.evalUnorderedRep(n, pos, ctx)
	}
	return Nil, pos, false, grammarErrf(ctx.ruleName(), "unknown expression kind %q", n.kind)
}

// evalRepeat is the greedy loop shared by Star, Plus, Repeat and
// RepeatArg: match as many copies as allowed, never give one back. A
// copy that consumes nothing is kept once and ends the loop.
func (r *run) evalRepeat(child *grammarNode, pos Position, ctx *context, min, max int) (Value, Position, bool, error) {
	var results []Value
	q := pos
	for max == Unbounded || len(results) < max {
		v, next, ok, err := r.eval(child, q, ctx)
		if err != nil {
			return Nil, pos, false, err
		}
		if !ok {
			break
		}
		results = append(results, v)
		if samePoint(next, q) {
			break
		}
		q = next
	}
	if len(results) < min {
		return Nil, pos, false, nil
	}
	return List(results...), q, true, nil
}

// evalUnordered matches every branch exactly once, committing to the
// first still-unused branch that matches at each step. Results keep
// declaration order.
func (r *run) evalUnordered(n *grammarNode, pos Position, ctx *context) (Value, Position, bool, error) {
	count := len(n.args)
	used := make([]bool, count)
	results := make([]Value, count)
	q := pos
	for matched := 0; matched < count; matched++ {
		found := false
		for i, child := range n.args {
			if used[i] {
				continue
			}
			v, next, ok, err := r.eval(child, q, ctx)
			if err != nil {
				return Nil, pos, false, err
			}
			if ok {
				used[i] = true
				results[i] = v
				q = next
				found = true
				break
			}
		}
		if !found {
			return Nil, pos, false, nil
		}
	}
	return List(results...), q, true, nil
}

// evalUnorderedRep matches branches in any order under per-branch
// bounds: branches still short of their minimum get first claim, in
// declaration order, then branches below their maximum. It stops when
// nothing matches and succeeds iff every minimum was met. Each result
// slot lists that branch's matches in input order.
func (r *run) evalUnorderedRep(n *grammarNode, pos Position, ctx *context) (Value, Position, bool, error) {
	count := len(n.args)
	taken := make([]int, count)
	acc := make([][]Value, count)
	q := pos
	for {
		progressed := false
		for i, child := range n.args {
			if taken[i] >= n.specs[i].Min {
				continue
			}
			v, next, ok, err := r.eval(child, q, ctx)
			if err != nil {
				return Nil, pos, false, err
			}
			if ok {
				acc[i] = append(acc[i], v)
				taken[i]++
				q = next
				progressed = true
				break
			}
		}
		if !progressed {
			for i, child := range n.args {
				sp := n.specs[i]
				if taken[i] < sp.Min {
					continue
				}
				if sp.Max != Unbounded && taken[i] >= sp.Max {
					continue
				}
				v, next, ok, err := r.eval(child, q, ctx)
				if err != nil {
					return Nil, pos, false, err
				}
				if ok && !samePoint(next, q) {
					acc[i] = append(acc[i], v)
					taken[i]++
					q = next
					progressed = true
					break
				}
			}
		}
		if !progressed {
			break
		}
	}
	for i, sp := range n.specs {
		if taken[i] < sp.Min {
			return Nil, pos, false, nil
		}
	}
	results := make([]Value, count)
	for i := range acc {
		results[i] = List(acc[i]...)
	}
	return List(results...), q, true, nil
}
