// Package sexpr evaluates small arithmetic forms written as nested
// lists, (add 1 (mul 2 3)) style. Operators descend into their list,
// evaluate operands recursively and fold the numbers.
package sexpr

import (
	"github.com/tef/sez"
)

func fold(args []sez.Value, op func(a, b sez.Value) sez.Value) sez.Value {
	acc := args[0]
	for _, a := range args[1:] {
		acc = op(acc, a)
	}
	return acc
}

func numeric(a, b sez.Value, ints func(x, y int64) int64, reals func(x, y float64) float64) sez.Value {
	if a.IsInt() && b.IsInt() {
		return sez.Int(ints(a.IntVal(), b.IntVal()))
	}
	return sez.Float(reals(a.FloatVal(), b.FloatVal()))
}

var Calc, buildErr = sez.Build(func(g *sez.Grammar) {
	g.Define("expr", func() {
		g.Choice(func() {
			g.AnyNumber()
		}, func() {
			g.Call("add")
		}, func() {
			g.Call("mul")
		}, func() {
			g.Call("sub")
		})
	})

	operands := func() {
		g.Plus(func() { g.Call("expr") })
	}

	g.Define("add", func() {
		g.List(func() {
			g.Sym("add")
			operands()
		})
	}).Bind(opPattern, func(s *sez.RuleScope) (sez.Value, error) {
		return fold(s.Var("args").Items(), func(a, b sez.Value) sez.Value {
			return numeric(a, b,
				func(x, y int64) int64 { return x + y },
				func(x, y float64) float64 { return x + y })
		}), nil
	})

	g.Define("mul", func() {
		g.List(func() {
			g.Sym("mul")
			operands()
		})
	}).Bind(opPattern, func(s *sez.RuleScope) (sez.Value, error) {
		return fold(s.Var("args").Items(), func(a, b sez.Value) sez.Value {
			return numeric(a, b,
				func(x, y int64) int64 { return x * y },
				func(x, y float64) float64 { return x * y })
		}), nil
	})

	g.Define("sub", func() {
		g.List(func() {
			g.Sym("sub")
			operands()
		})
	}).Bind(opPattern, func(s *sez.RuleScope) (sez.Value, error) {
		return fold(s.Var("args").Items(), func(a, b sez.Value) sez.Value {
			return numeric(a, b,
				func(x, y int64) int64 { return x - y },
				func(x, y float64) float64 { return x - y })
		}), nil
	})
})

// opPattern destructures a matched operator form: the operator symbol
// is dropped, the evaluated operands bind to args.
var opPattern = sez.List(sez.List(sez.Sym("_"), sez.Sym("args")))

// Eval parses and evaluates one arithmetic form.
func Eval(form sez.Value) (sez.Value, error) {
	if buildErr != nil {
		return sez.Nil, buildErr
	}
	return Calc.Parse("expr", sez.List(form))
}
