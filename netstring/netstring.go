// Package netstring parses length-prefixed byte records: each record
// is a count byte followed by that many payload bytes. The count is
// carried through a dynamically scoped variable so the payload rule
// can size itself at parse time.
package netstring

import (
	"github.com/tef/sez"
)

var Records, buildErr = sez.Build(func(g *sez.Grammar) {
	g.Define("stream", func() {
		g.Star(func() { g.Call("record") })
	})

	g.Define("record", func() {
		g.Call("length")
		g.Call("payload")
	}).Let("len").Fn(func(s *sez.RuleScope, args ...sez.Value) (sez.Value, error) {
		return args[1], nil
	})

	g.Define("length", func() {
		g.AnyByte()
	}).External("len").Apply(func(s *sez.RuleScope, v sez.Value) (sez.Value, error) {
		s.SetExternal("len", v)
		return v, nil
	})

	g.Define("payload", func() {
		g.RepeatVar("len", func() { g.AnyByte() })
	}).External("len").Vector()
})

// Decode parses a whole byte stream into its payloads.
func Decode(data []byte) ([][]byte, error) {
	if buildErr != nil {
		return nil, buildErr
	}
	v, err := Records.Parse("stream", sez.Bytes(data...))
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for _, rec := range v.Items() {
		payload := make([]byte, 0, len(rec.Items()))
		for _, b := range rec.Items() {
			payload = append(payload, b.ByteVal())
		}
		out = append(out, payload)
	}
	return out, nil
}
