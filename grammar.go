package sez

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
)

const (
	printNode = "DebugPrint"

	literalNode = "Literal"
	itemNode    = "Item"
	callNode    = "Call"
	argNode     = "Arg"

	choiceNode    = "Choice"
	sequenceNode  = "Sequence"
	lookaheadNode = "Lookahead"
	rejectNode    = "Reject"
	notNode       = "Not"
	optionalNode  = "Optional"
	repeatNode    = "Repeat"
	repeatArgNode = "RepeatArg"
	repeatVarNode = "RepeatVar"
	descendNode   = "Descend"

	unorderedNode    = "Unordered"
	unorderedRepNode = "UnorderedRepeat"
)

// item classes for itemNode
const (
	classSymbol = "symbol"
	classChar   = "char"
	classByte   = "byte"
	classNumber = "number"
	classList   = "list"
	classVector = "vector"
	classString = "string"
	classForm   = "form"
	classTruthy = "truthy"
	classNil    = "nil"
)

const (
	inDef       = "inside-definition"
	inChoice    = "inside-choice"
	inOptional  = "inside-optional"
	inRepeat    = "inside-repeat"
	inPredicate = "inside-predicate"
	inDescend   = "inside-descend"
	inUnordered = "inside-unordered"
	inCallArg   = "inside-call-argument"
)

// Unbounded marks a repetition with no upper limit.
const Unbounded = -1

// RepSpec gives the repetition bounds for one branch of an
// UnorderedRep. Max == Unbounded means no upper limit.
type RepSpec struct {
	Min int
	Max int
}

func Exactly(n int) RepSpec    { return RepSpec{Min: n, Max: n} }
func AtLeast(n int) RepSpec    { return RepSpec{Min: n, Max: Unbounded} }
func Between(m, n int) RepSpec { return RepSpec{Min: m, Max: n} }

type grammarNode struct {
	pos     int
	kind    string
	args    []*grammarNode
	lit     Value
	class   string
	name    string
	min     int
	max     int
	argIdx  int
	specs   []RepSpec
	message []any
}

type nodeBuilder struct {
	rule    *string
	formals []string
	context string
	args    []*grammarNode
}

func (b *nodeBuilder) buildNode(pos int) *grammarNode {
	if len(b.args) == 0 {
		return nil
	}
	if len(b.args) == 1 {
		return b.args[0]
	}
	return &grammarNode{kind: sequenceNode, args: b.args, pos: pos}
}

func (b *nodeBuilder) append(a *grammarNode) {
	b.args = append(b.args, a)
}

func (b *nodeBuilder) inRule() bool {
	return b != nil
}

type grammarError struct {
	g       *Grammar
	pos     int
	message string
}

type position struct {
	file string
	line int
	rule *string
}

func (e *grammarError) Error() string {
	p := e.g.posInfo[e.pos]
	if p.rule != nil {
		return fmt.Sprintf("%v:%v: %v (inside %q)", p.file, p.line, e.message, *p.rule)
	}
	return fmt.Sprintf("%v:%v: %v", p.file, p.line, e.message)
}

type letDecl struct {
	name string
	init Value
}

type rule struct {
	name      string
	formals   []string
	lets      []letDecl
	externals []string
	body      *grammarNode
	procs     []processor
	trace     bool
	traceRec  bool
	pos       int
}

// Grammar is a registry of named rules plus the builder used to
// define them. Rules are compiled as they are defined; calls resolve
// by name when the rule is dispatched, so cycles between rules are
// free. Defining rules during a parse is not supported.
type Grammar struct {
	// LogFunc receives Print and trace output. Defaults to the
	// standard logger.
	LogFunc func(format string, args ...any)

	// MaxDepth bounds rule nesting, catching runaway recursion
	// that consumes input too slowly to left-recurse.
	MaxDepth int

	rules   map[string]*rule
	nb      *nodeBuilder
	posInfo []position
	errors  []error
	err     error
}

func New() *Grammar {
	return &Grammar{
		LogFunc:  log.Printf,
		MaxDepth: 10_000,
		rules:    map[string]*rule{},
	}
}

// Build constructs a grammar from a definition stub, returning the
// first construction error, if any.
func Build(stub func(*Grammar)) (*Grammar, error) {
	g := New()
	stub(g)
	return g, g.err
}

func (g *Grammar) Err() error {
	return g.err
}

func (g *Grammar) Errors() []error {
	if g.errors == nil {
		return []error{}
	}
	return g.errors
}

func (g *Grammar) Error(pos int, args ...any) {
	msg := fmt.Sprint(args...)
	err := &grammarError{g: g, message: msg, pos: pos}
	if g.err == nil {
		g.err = err
	}
	g.errors = append(g.errors, err)
}

func (g *Grammar) Errorf(pos int, s string, args ...any) {
	g.Error(pos, fmt.Sprintf(s, args...))
}

func (g *Grammar) markPosition() int {
	return g.mark(3)
}

// mark records the grammar author's file:line; skip counts stack
// frames between the user's call and here.
func (g *Grammar) mark(skip int) int {
	_, file, no, ok := runtime.Caller(skip)
	if !ok {
		return -1
	}
	base, _ := os.Getwd()
	file, _ = filepath.Rel(base, file)
	var rule *string
	if g.nb != nil {
		rule = g.nb.rule
	}
	pos := position{file: file, line: no, rule: rule}
	p := len(g.posInfo)
	g.posInfo = append(g.posInfo, pos)
	return p
}

func (g *Grammar) shouldExit(pos int) bool {
	if g.err != nil {
		return true
	}
	if g.nb == nil || !g.nb.inRule() {
		g.Error(pos, "must call builder methods inside Define()")
		return true
	}
	return false
}

func (g *Grammar) buildStub(context string, stub func()) *nodeBuilder {
	oldNb := g.nb
	newNb := &nodeBuilder{context: context, rule: oldNb.rule, formals: oldNb.formals}
	g.nb = newNb
	stub()
	g.nb = oldNb
	return newNb
}

// Define registers a rule with no formal parameters. Redefining a
// name replaces the previous rule. The returned RuleDef attaches
// processors and variable declarations.
func (g *Grammar) Define(name string, stub func()) *RuleDef {
	return g.DefineArgs(name, nil, stub)
}

// DefineArgs registers a rule with formal parameters. Arguments are
// passed as expressions at call sites and referenced in the body with
// Arg.
func (g *Grammar) DefineArgs(name string, formals []string, stub func()) *RuleDef {
	p := g.markPosition()
	d := &RuleDef{g: g, pos: p}
	if g.err != nil {
		return d
	}
	if g.nb != nil {
		g.Error(p, "cant call Define inside Define")
		return d
	}

	newNb := &nodeBuilder{context: inDef, rule: &name, formals: formals}
	g.nb = newNb
	stub()
	g.nb = nil

	if g.err != nil {
		return d
	}

	r := &rule{
		name:    name,
		formals: formals,
		body:    newNb.buildNode(p),
		pos:     p,
	}
	g.rules[name] = r
	d.r = r
	return d
}

// Undefine removes a rule from the registry.
func (g *Grammar) Undefine(name string) {
	delete(g.rules, name)
}

// Isolated runs body against a fresh, empty registry. Outer rules are
// invisible inside; the outer registry is restored on exit.
func (g *Grammar) Isolated(body func()) {
	saved := g.rules
	g.rules = map[string]*rule{}
	defer func() { g.rules = saved }()
	body()
}

// Inherited runs body against a snapshot of the current registry.
// Definitions inside mutate only the snapshot; the pre-existing
// registry is restored on exit.
func (g *Grammar) Inherited(body func()) {
	saved := g.rules
	snap := make(map[string]*rule, len(saved))
	for k, v := range saved {
		snap[k] = v
	}
	g.rules = snap
	defer func() { g.rules = saved }()
	body()
}

func (n *grammarNode) calls(visit func(name string)) {
	if n == nil {
		return
	}
	if n.kind == callNode {
		visit(n.name)
	}
	for _, c := range n.args {
		c.calls(visit)
	}
}

// Check reports, without parsing, the registry defects reachable from
// root: an undefined root, calls to undefined rules, and rules that
// root can never dispatch. Rules are checked as currently defined;
// redefining or overlaying afterwards invalidates the result.
func (g *Grammar) Check(root string) []error {
	var errs []error
	if _, ok := g.rules[root]; !ok {
		return []error{grammarErrf(root, "root rule is not defined")}
	}

	reached := map[string]bool{}
	stack := []string{root}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[name] {
			continue
		}
		reached[name] = true
		rl, ok := g.rules[name]
		if !ok {
			continue
		}
		rl.body.calls(func(callee string) {
			if _, defined := g.rules[callee]; !defined {
				errs = append(errs, grammarErrf(name, "call to undefined rule %q", callee))
				return
			}
			stack = append(stack, callee)
		})
	}

	for name := range g.rules {
		if !reached[name] {
			errs = append(errs, grammarErrf(name, "rule is unreachable from %q", root))
		}
	}
	return errs
}

// Trace turns on entry/exit logging for a rule. With recursive set,
// every rule dispatched beneath it is logged too.
func (g *Grammar) Trace(name string, recursive bool) error {
	r, ok := g.rules[name]
	if !ok {
		return grammarErrf(name, "cant trace undefined rule")
	}
	r.trace = true
	r.traceRec = recursive
	return nil
}

func (g *Grammar) Untrace(name string) error {
	r, ok := g.rules[name]
	if !ok {
		return grammarErrf(name, "cant untrace undefined rule")
	}
	r.trace = false
	r.traceRec = false
	return nil
}

// --- builder operations, valid inside Define stubs ---

// Print logs a message through LogFunc whenever matching reaches it.
func (g *Grammar) Print(args ...any) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	g.nb.append(&grammarNode{kind: printNode, message: args, pos: p})
}

// Literal matches the given value at the cursor: strings and vectors
// as a subsequence, everything else as a single item. Multiple values
// build an ordered choice, first match wins.
func (g *Grammar) Literal(vals ...Value) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	if len(vals) == 0 {
		g.Error(p, "missing operand")
		return
	}
	if len(vals) == 1 {
		g.nb.append(&grammarNode{kind: literalNode, lit: vals[0], pos: p})
		return
	}
	args := make([]*grammarNode, len(vals))
	for i, v := range vals {
		args[i] = &grammarNode{kind: literalNode, lit: v, pos: p}
	}
	g.nb.append(&grammarNode{kind: choiceNode, args: args, pos: p})
}

func (g *Grammar) Sym(names ...string) {
	vals := make([]Value, len(names))
	for i, n := range names {
		vals[i] = Sym(n)
	}
	g.literalAt(vals)
}

func (g *Grammar) Str(ss ...string) {
	vals := make([]Value, len(ss))
	for i, s := range ss {
		vals[i] = Str(s)
	}
	g.literalAt(vals)
}

func (g *Grammar) Char(rs ...rune) {
	vals := make([]Value, len(rs))
	for i, r := range rs {
		vals[i] = Char(r)
	}
	g.literalAt(vals)
}

func (g *Grammar) Byte(bs ...byte) {
	vals := make([]Value, len(bs))
	for i, b := range bs {
		vals[i] = Byte(b)
	}
	g.literalAt(vals)
}

func (g *Grammar) Int(is ...int64) {
	vals := make([]Value, len(is))
	for i, n := range is {
		vals[i] = Int(n)
	}
	g.literalAt(vals)
}

// literalAt is Literal for the typed convenience wrappers; the extra
// wrapper frame stands in for markPosition's, so the skip is the same.
func (g *Grammar) literalAt(vals []Value) {
	p := g.mark(3)
	if g.shouldExit(p) {
		return
	}
	if len(vals) == 0 {
		g.Error(p, "missing operand")
		return
	}
	if len(vals) == 1 {
		g.nb.append(&grammarNode{kind: literalNode, lit: vals[0], pos: p})
		return
	}
	args := make([]*grammarNode, len(vals))
	for i, v := range vals {
		args[i] = &grammarNode{kind: literalNode, lit: v, pos: p}
	}
	g.nb.append(&grammarNode{kind: choiceNode, args: args, pos: p})
}

func (g *Grammar) itemClass(class string) {
	p := g.mark(3)
	if g.shouldExit(p) {
		return
	}
	g.nb.append(&grammarNode{kind: itemNode, class: class, pos: p})
}

func (g *Grammar) AnySymbol() { g.itemClass(classSymbol) }
func (g *Grammar) AnyChar()   { g.itemClass(classChar) }
func (g *Grammar) AnyByte()   { g.itemClass(classByte) }
func (g *Grammar) AnyNumber() { g.itemClass(classNumber) }
func (g *Grammar) AnyList()   { g.itemClass(classList) }
func (g *Grammar) AnyVector() { g.itemClass(classVector) }
func (g *Grammar) AnyString() { g.itemClass(classString) }
func (g *Grammar) AnyItem()   { g.itemClass(classForm) }
func (g *Grammar) Truthy()    { g.itemClass(classTruthy) }
func (g *Grammar) NilItem()   { g.itemClass(classNil) }

// Call dispatches a named rule. Argument stubs each build one
// expression, passed unevaluated to the rule's formals.
func (g *Grammar) Call(name string, argStubs ...func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	args := make([]*grammarNode, len(argStubs))
	for i, stub := range argStubs {
		r := g.buildStub(inCallArg, stub)
		if g.err != nil {
			return
		}
		n := r.buildNode(p)
		if n == nil {
			g.Errorf(p, "argument %v of call to %q is empty", i, name)
			return
		}
		args[i] = n
	}
	g.nb.append(&grammarNode{kind: callNode, name: name, args: args, pos: p})
}

// Arg references a formal parameter of the enclosing rule as an
// expression.
func (g *Grammar) Arg(name string) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	for i, f := range g.nb.formals {
		if f == name {
			g.nb.append(&grammarNode{kind: argNode, name: name, argIdx: i, pos: p})
			return
		}
	}
	g.Errorf(p, "no formal parameter %q", name)
}

func (g *Grammar) Choice(options ...func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	args := make([]*grammarNode, len(options))
	for i, stub := range options {
		r := g.buildStub(inChoice, stub)
		if g.err != nil {
			return
		}
		args[i] = r.buildNode(p)
	}
	g.nb.append(&grammarNode{kind: choiceNode, args: args, pos: p})
}

func (g *Grammar) Optional(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inOptional, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: optionalNode, args: []*grammarNode{r.buildNode(p)}, pos: p})
}

// Repeat matches between min and max copies of the stub. Matching is
// greedy and never gives copies back. Max == Unbounded lifts the
// upper limit.
func (g *Grammar) Repeat(min, max int, stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	if min < 0 || (max != Unbounded && max < min) {
		g.Errorf(p, "bad repetition bounds %v..%v", min, max)
		return
	}
	r := g.buildStub(inRepeat, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: repeatNode, args: []*grammarNode{r.buildNode(p)}, min: min, max: max, pos: p})
}

func (g *Grammar) Star(stub func()) { g.repeatShort(0, stub) }
func (g *Grammar) Plus(stub func()) { g.repeatShort(1, stub) }

func (g *Grammar) repeatShort(min int, stub func()) {
	p := g.mark(3)
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inRepeat, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: repeatNode, args: []*grammarNode{r.buildNode(p)}, min: min, max: Unbounded, pos: p})
}

// RepeatArg matches exactly as many copies as the named formal's
// argument value, which must be a literal non-negative integer or byte
// at the call site.
func (g *Grammar) RepeatArg(name string, stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	idx := -1
	for i, f := range g.nb.formals {
		if f == name {
			idx = i
		}
	}
	if idx < 0 {
		g.Errorf(p, "no formal parameter %q", name)
		return
	}
	r := g.buildStub(inRepeat, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: repeatArgNode, args: []*grammarNode{r.buildNode(p)}, name: name, argIdx: idx, pos: p})
}

// RepeatVar matches exactly as many copies as the current value of a
// Let or External variable of the enclosing rule, read when matching
// reaches it. The value must be a non-negative integer or a byte.
func (g *Grammar) RepeatVar(name string, stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inRepeat, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: repeatVarNode, args: []*grammarNode{r.buildNode(p)}, name: name, pos: p})
}

// Lookahead matches the stub without consuming input.
func (g *Grammar) Lookahead(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inPredicate, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: lookaheadNode, args: []*grammarNode{r.buildNode(p)}, pos: p})
}

// Reject succeeds, without consuming input, only where the stub fails.
func (g *Grammar) Reject(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inPredicate, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: rejectNode, args: []*grammarNode{r.buildNode(p)}, pos: p})
}

// Not consumes one item where the stub fails.
func (g *Grammar) Not(stub func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inPredicate, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: notNode, args: []*grammarNode{r.buildNode(p)}, pos: p})
}

// List matches a list item by descending into it: the stub must match
// its contents completely.
func (g *Grammar) List(stub func()) { g.descend(classList, stub) }

// Vector matches a vector item by descending into it.
func (g *Grammar) Vector(stub func()) { g.descend(classVector, stub) }

// Text matches a string item by descending into it; inside, items are
// characters.
func (g *Grammar) Text(stub func()) { g.descend(classString, stub) }

func (g *Grammar) descend(class string, stub func()) {
	p := g.mark(3)
	if g.shouldExit(p) {
		return
	}
	r := g.buildStub(inDescend, stub)
	if g.err != nil {
		return
	}
	g.nb.append(&grammarNode{kind: descendNode, class: class, args: []*grammarNode{r.buildNode(p)}, pos: p})
}

// Unordered matches each stub exactly once, in whatever order the
// input supplies them. Results keep declaration order.
func (g *Grammar) Unordered(stubs ...func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	args := make([]*grammarNode, len(stubs))
	for i, stub := range stubs {
		r := g.buildStub(inUnordered, stub)
		if g.err != nil {
			return
		}
		args[i] = r.buildNode(p)
	}
	g.nb.append(&grammarNode{kind: unorderedNode, args: args, pos: p})
}

// UnorderedRep is Unordered with per-stub repetition bounds. Each
// result slot collects that stub's matches in input order.
func (g *Grammar) UnorderedRep(specs []RepSpec, stubs ...func()) {
	p := g.markPosition()
	if g.shouldExit(p) {
		return
	}
	if len(specs) != len(stubs) {
		g.Errorf(p, "have %v repetition specs for %v branches", len(specs), len(stubs))
		return
	}
	for _, s := range specs {
		if s.Min < 0 || (s.Max != Unbounded && s.Max < s.Min) {
			g.Errorf(p, "bad repetition bounds %v..%v", s.Min, s.Max)
			return
		}
	}
	args := make([]*grammarNode, len(stubs))
	for i, stub := range stubs {
		r := g.buildStub(inUnordered, stub)
		if g.err != nil {
			return
		}
		args[i] = r.buildNode(p)
	}
	g.nb.append(&grammarNode{kind: unorderedRepNode, args: args, specs: specs, pos: p})
}
