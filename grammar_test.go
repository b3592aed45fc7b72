package sez

import (
	"testing"
)

// t.Log(...) / t.Logf("%v", err)
// t.Error(...) Errorf,  mark fail and continue
// t.Fatal(...) FatalF,  mark fail, exit

func TestBuilderErrors(t *testing.T) {
	var g *Grammar
	var err error

	// builder methods only work inside Define

	g, err = Build(func(g *Grammar) {
		g.Sym("a")
	})
	if err == nil {
		t.Error("builder outside Define should raise error")
	} else {
		t.Logf("test grammar raised error:\n %v", err)
	}

	// nested defines should fail
	g, err = Build(func(g *Grammar) {
		g.Define("expr", func() {
			g.Define("expr2", func() {
			})
		})
	})
	if err == nil {
		t.Error("nested Define should raise error")
	} else {
		t.Logf("test grammar raised error:\n %v", err)
	}

	// literals need an operand
	g, err = Build(func(g *Grammar) {
		g.Define("expr", func() {
			g.Literal()
		})
	})
	if err == nil {
		t.Error("empty Literal should raise error")
	} else {
		t.Logf("test grammar raised error:\n %v", err)
	}

	// Arg must name a formal
	g, err = Build(func(g *Grammar) {
		g.DefineArgs("expr", []string{"a"}, func() {
			g.Arg("b")
		})
	})
	if err == nil {
		t.Error("unknown formal should raise error")
	} else {
		t.Logf("test grammar raised error:\n %v", err)
	}

	// repetition bounds must be sane
	g, err = Build(func(g *Grammar) {
		g.Define("expr", func() {
			g.Repeat(5, 3, func() { g.Sym("a") })
		})
	})
	if err == nil {
		t.Error("bad bounds should raise error")
	} else {
		t.Logf("test grammar raised error:\n %v", err)
	}

	// spec count must match branch count
	g, err = Build(func(g *Grammar) {
		g.Define("expr", func() {
			g.UnorderedRep([]RepSpec{Exactly(1)},
				func() { g.Sym("a") },
				func() { g.Sym("b") })
		})
	})
	if err == nil {
		t.Error("mismatched UnorderedRep should raise error")
	} else {
		t.Logf("test grammar raised error:\n %v", err)
	}

	// a poisoned grammar refuses to parse
	if _, perr := g.Parse("expr", List(Sym("a"))); perr == nil {
		t.Error("parse on broken grammar should fail")
	}

	// calls to missing rules fail at dispatch, loudly
	g, err = Build(func(g *Grammar) {
		g.Define("expr", func() {
			g.Call("missing")
		})
	})
	if err != nil {
		t.Errorf("error defining grammar:\n%v", err)
	}
	_, perr := g.Parse("expr", List(Sym("a")))
	if _, isGrammar := perr.(*GrammarError); !isGrammar {
		t.Errorf("missing rule should be a grammar error, got %v", perr)
	}

	// parsing an undefined root is the same error
	_, perr = g.Parse("nope", List(Sym("a")))
	if _, isGrammar := perr.(*GrammarError); !isGrammar {
		t.Errorf("missing root should be a grammar error, got %v", perr)
	}
}

func TestLogger(t *testing.T) {
	var logMessages int

	g, err := Build(func(g *Grammar) {
		g.LogFunc = func(f string, o ...any) {
			t.Logf(f, o...)
			logMessages += 1
		}
		g.Define("expr", func() {
			g.Print("TEST")
			g.Sym("test")
		})
	})
	if err != nil {
		t.Fatalf("error defining grammar:\n%v", err)
	}

	if !g.Accept("expr", List(Sym("test"))) {
		t.Error("print test case failed to parse")
	}
	if logMessages < 1 {
		t.Error("print test case failed to log")
	}

	logMessages = 0
	if err := g.Trace("expr", false); err != nil {
		t.Fatalf("trace: %v", err)
	}
	if !g.Accept("expr", List(Sym("test"))) {
		t.Error("trace test case failed to parse")
	}
	if logMessages < 3 { // print plus enter and exit
		t.Error("trace test case failed to log")
	}

	// tracing never changes the outcome
	if g.Accept("expr", List(Sym("other"))) {
		t.Error("traced parse accepted bad input")
	}

	logMessages = 0
	if err := g.Untrace("expr"); err != nil {
		t.Fatalf("untrace: %v", err)
	}
	if !g.Accept("expr", List(Sym("test"))) {
		t.Error("untraced parse failed")
	}
	if logMessages > 1 { // just the print
		t.Error("untraced parse still logging")
	}
}

func TestRecursiveTrace(t *testing.T) {
	var logMessages int

	g, err := Build(func(g *Grammar) {
		g.LogFunc = func(f string, o ...any) {
			t.Logf(f, o...)
			logMessages += 1
		}
		g.Define("outer", func() {
			g.Call("inner")
		})
		g.Define("inner", func() {
			g.Sym("x")
		})
	})
	if err != nil {
		t.Fatalf("error defining grammar:\n%v", err)
	}

	if err := g.Trace("outer", true); err != nil {
		t.Fatalf("trace: %v", err)
	}
	if !g.Accept("outer", List(Sym("x"))) {
		t.Error("traced parse failed")
	}
	if logMessages < 4 { // enter/exit for both rules
		t.Errorf("recursive trace logged %v messages", logMessages)
	}
}

func TestGrammarShape(t *testing.T) {
	g, err := Build(func(g *Grammar) {
		g.Define("expr", func() {
			g.Choice(func() {
				g.Call("truerule")
			}, func() {
				g.Call("falserule")
			})
		})
		g.Define("truerule", func() {
			g.Sym("true")
		})
		g.Define("falserule", func() {
			g.Sym("false")
		})
	})
	if err != nil {
		t.Fatalf("error defining grammar:\n%v", err)
	}

	ok := g.testRule("expr",
		[]Value{List(Sym("true")), List(Sym("false"))},
		[]Value{Nil, List(Sym("null")), List(Sym("true"), Sym("true"))},
	)
	if !ok {
		t.Error("rules test case failed")
	}
}

func TestCheck(t *testing.T) {
	g, err := Build(func(g *Grammar) {
		g.Define("root", func() {
			g.Call("used")
			g.Call("missing")
		})
		g.Define("used", func() { g.Sym("a") })
		g.Define("orphan", func() { g.Sym("b") })
	})
	if err != nil {
		t.Fatalf("error defining grammar:\n%v", err)
	}

	errs := g.Check("root")
	if len(errs) != 2 {
		t.Errorf("want 2 defects, got %v", errs)
	}
	for _, e := range errs {
		t.Logf("check raised error:\n %v", e)
	}

	errs = g.Check("nope")
	if len(errs) != 1 {
		t.Errorf("undefined root should be one defect, got %v", errs)
	}

	g.Undefine("orphan")
	g.Define("missing", func() { g.Sym("c") })
	if errs := g.Check("root"); len(errs) != 0 {
		t.Errorf("repaired grammar still has defects: %v", errs)
	}
}

func TestRedefineAndUndefine(t *testing.T) {
	g, err := Build(func(g *Grammar) {
		g.Define("expr", func() { g.Sym("a") })
	})
	if err != nil {
		t.Fatalf("error defining grammar:\n%v", err)
	}
	if !g.Accept("expr", List(Sym("a"))) {
		t.Error("initial rule failed")
	}

	g.Define("expr", func() { g.Sym("b") })
	if g.Accept("expr", List(Sym("a"))) {
		t.Error("redefinition did not replace rule")
	}
	if !g.Accept("expr", List(Sym("b"))) {
		t.Error("redefined rule failed")
	}

	g.Undefine("expr")
	if _, perr := g.Parse("expr", List(Sym("b"))); perr == nil {
		t.Error("undefined rule still parses")
	}
}
