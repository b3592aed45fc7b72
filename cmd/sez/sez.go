package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/tef/sez"
	"github.com/tef/sez/sexpr"
)

func toValue(arg string) sez.Value {
	if i, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return sez.Int(i)
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		return sez.Float(f)
	}
	return sez.Sym(arg)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: sez OP ARG... (e.g. sez add 1 2)")
		os.Exit(2)
	}

	items := make([]sez.Value, len(args))
	for i, a := range args {
		items[i] = toValue(a)
	}
	form := sez.List(items...)

	v, err := sexpr.Eval(form)
	if err != nil {
		color.Red("no parse: %v", err)
		fmt.Printf("input:  %v\n", form)
		os.Exit(1)
	}

	color.Green("parsed %v", strings.Join(args, " "))
	fmt.Printf("result: %v\n", v)
}
