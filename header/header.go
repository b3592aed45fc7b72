// Package header validates and extracts routing headers given as a
// list of (key value) pairs. Field order is free: from appears exactly
// once, at least one to is required, subject is optional and via may
// repeat.
package header

import (
	"github.com/tef/sez"
)

// Header is the extracted, order-independent view of a routing header.
type Header struct {
	From    string
	To      []string
	Subject string
	Via     []string
}

var fieldPattern = sez.List(sez.List(sez.Sym("_"), sez.Sym("v")))

func field(g *sez.Grammar, key string) *sez.RuleDef {
	return g.Define(key, func() {
		g.List(func() {
			g.Sym(key)
			g.AnySymbol()
		})
	}).Bind(fieldPattern, func(s *sez.RuleScope) (sez.Value, error) {
		return s.Var("v"), nil
	})
}

var Headers, buildErr = sez.Build(func(g *sez.Grammar) {
	g.Define("header", func() {
		g.UnorderedRep(
			[]sez.RepSpec{
				sez.Exactly(1),
				sez.AtLeast(1),
				sez.Between(0, 1),
				sez.AtLeast(0),
			},
			func() { g.Call("from") },
			func() { g.Call("to") },
			func() { g.Call("subject") },
			func() { g.Call("via") },
		)
	})

	field(g, "from")
	field(g, "to")
	field(g, "subject")
	field(g, "via")
})

func names(v sez.Value) []string {
	var out []string
	for _, it := range v.Items() {
		out = append(out, it.Symbol().Name)
	}
	return out
}

// Parse validates a header form and extracts its fields.
func Parse(form sez.Value) (*Header, error) {
	if buildErr != nil {
		return nil, buildErr
	}
	v, err := Headers.Parse("header", form)
	if err != nil {
		return nil, err
	}
	slots := v.Items()
	h := &Header{
		To:  names(slots[1]),
		Via: names(slots[3]),
	}
	h.From = slots[0].Items()[0].Symbol().Name
	if subj := names(slots[2]); len(subj) > 0 {
		h.Subject = subj[0]
	}
	return h, nil
}
