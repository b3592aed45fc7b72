package sez

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilIdentity(t *testing.T) {
	assert.True(t, Nil.IsNil())
	assert.True(t, List().IsNil())
	assert.True(t, Equal(Nil, List()))
	assert.False(t, Vec().IsNil(), "empty vector is not nil")
	assert.False(t, Str("").IsNil(), "empty string is not nil")
	assert.False(t, Nil.Truthy())
	assert.True(t, Int(0).Truthy(), "zero is truthy")
	assert.True(t, Str("").Truthy(), "empty string is truthy")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Sym("a"), Sym("a")))
	assert.False(t, Equal(Sym("a"), Sym("b")))
	assert.False(t, Equal(Sym("a"), SymIn("p", "a")), "package qualifies the name")
	assert.True(t, Equal(Char('x'), Char('x')))
	assert.False(t, Equal(Char('x'), Str("x")), "char and string differ in kind")
	assert.False(t, Equal(Byte(65), Char('A')))

	assert.True(t, Equal(Int(3), Float(3.0)), "int and real compare by magnitude")
	assert.True(t, Equal(Float(3.0), Int(3)))
	assert.False(t, Equal(Int(3), Float(3.5)))

	assert.True(t, Equal(List(Sym("a"), Int(1)), List(Sym("a"), Int(1))))
	assert.False(t, Equal(List(Sym("a")), Vec(Sym("a"))), "list and vector differ in kind")
	assert.True(t, Equal(List(List()), List(Nil)), "nested empty list is nil")
	assert.True(t, Equal(Vec(), Vec()))
}

func TestSequenceAccess(t *testing.T) {
	s := Str("aé")
	assert.Equal(t, 3, s.SeqLen(), "strings measure in bytes")

	v, w, ok := s.seqAt(0)
	assert.True(t, ok)
	assert.Equal(t, 1, w)
	assert.True(t, Equal(v, Char('a')))

	v, w, ok = s.seqAt(1)
	assert.True(t, ok)
	assert.Equal(t, 2, w, "é is two bytes")
	assert.True(t, Equal(v, Char('é')))

	_, _, ok = s.seqAt(3)
	assert.False(t, ok)

	l := List(Sym("a"), Sym("b"))
	assert.Equal(t, 2, l.SeqLen())
	v, w, ok = l.seqAt(1)
	assert.True(t, ok)
	assert.Equal(t, 1, w)
	assert.True(t, Equal(v, Sym("b")))

	assert.True(t, l.IsSequence())
	assert.True(t, s.IsSequence())
	assert.True(t, Vec().IsSequence())
	assert.False(t, Nil.IsSequence())
	assert.False(t, Int(1).IsSequence())
}

func TestBytesConstructor(t *testing.T) {
	b := Bytes(1, 2, 3)
	assert.Equal(t, KindVector, b.Kind())
	assert.Equal(t, 3, b.SeqLen())
	assert.True(t, Equal(b, Vec(Byte(1), Byte(2), Byte(3))))
}

func TestNumberAccessors(t *testing.T) {
	assert.True(t, Int(7).IsInt())
	assert.False(t, Float(7).IsInt())
	assert.Equal(t, int64(7), Int(7).IntVal())
	assert.Equal(t, 7.0, Int(7).FloatVal())
	assert.Equal(t, 2.5, Float(2.5).FloatVal())
}

func TestPrintForms(t *testing.T) {
	assert.Equal(t, "(a b)", List(Sym("a"), Sym("b")).String())
	assert.Equal(t, "#(1 2)", Bytes(1, 2).String())
	assert.Equal(t, `"hi"`, Str("hi").String())
	assert.Equal(t, "nil", Nil.String())
	assert.Equal(t, "p:a", SymIn("p", "a").String())
	assert.Equal(t, "3", Int(3).String())
	assert.Equal(t, "3.5", Float(3.5).String())
}
