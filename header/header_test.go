package header

import (
	"testing"

	"github.com/tef/sez"
)

func pair(k, v string) sez.Value {
	return sez.List(sez.Sym(k), sez.Sym(v))
}

func TestParse(t *testing.T) {
	if buildErr != nil {
		t.Fatal("error", buildErr)
	}

	h, err := Parse(sez.List(
		pair("to", "alice"),
		pair("from", "bob"),
		pair("via", "relay1"),
		pair("to", "carol"),
		pair("subject", "greetings"),
	))
	if err != nil {
		t.Fatal("bad header parse: ", err)
	}
	if h.From != "bob" {
		t.Errorf("bad from: %q", h.From)
	}
	if len(h.To) != 2 || h.To[0] != "alice" || h.To[1] != "carol" {
		t.Errorf("bad to: %q", h.To)
	}
	if h.Subject != "greetings" {
		t.Errorf("bad subject: %q", h.Subject)
	}
	if len(h.Via) != 1 || h.Via[0] != "relay1" {
		t.Errorf("bad via: %q", h.Via)
	}
}

func TestParseMinimal(t *testing.T) {
	h, err := Parse(sez.List(pair("from", "bob"), pair("to", "alice")))
	if err != nil {
		t.Fatal("bad header parse: ", err)
	}
	if h.Subject != "" || len(h.Via) != 0 {
		t.Errorf("optional fields should be empty: %+v", h)
	}
}

func TestParseRejects(t *testing.T) {
	bad := []sez.Value{
		// no from
		sez.List(pair("to", "alice")),
		// two froms
		sez.List(pair("from", "a"), pair("from", "b"), pair("to", "alice")),
		// no to
		sez.List(pair("from", "bob"), pair("subject", "x")),
		// two subjects
		sez.List(pair("from", "bob"), pair("to", "alice"),
			pair("subject", "x"), pair("subject", "y")),
		// unknown field
		sez.List(pair("from", "bob"), pair("to", "alice"), pair("cc", "dan")),
	}
	for _, form := range bad {
		if _, err := Parse(form); err == nil {
			t.Errorf("header %v should not parse", form)
		} else {
			t.Logf("header %v raised error:\n %v", form, err)
		}
	}
}
