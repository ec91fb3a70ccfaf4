package main

import (
	"sort"
	"strings"

	"github.com/zephyrtronium/formula"
)

// keypadFuncs are the functions a key can insert. Keys cannot close an empty
// argument list, so functions that take no arguments are left out.
var keypadFuncs = func() map[string]bool {
	m := make(map[string]bool)
	for name, fn := range formula.DefaultFuncs() {
		for n := 1; n <= 8; n++ {
			if fn.CanCall(n) {
				m[name] = true
				break
			}
		}
	}
	return m
}()

// applyKey applies one keypad press to a session. Digits and decimal points
// extend numbers, "back" and "clear" edit, a function name inserts the call,
// and anything else inserts a parameter name. It reports whether the session
// accepted the key.
func applyKey(s *formula.Session, key string) bool {
	switch key {
	case "":
		return false
	case "+", "-", "*", "/":
		return s.InsertOp(key)
	case "(":
		return s.InsertLParen()
	case ")":
		return s.InsertRParen()
	case ",":
		return s.InsertComma()
	case "back":
		return s.Backspace()
	case "clear":
		return s.Clear()
	}
	if strings.Trim(key, "0123456789.") == "" {
		return s.InsertNumber(key)
	}
	if name := strings.TrimSuffix(key, "("); keypadFuncs[name] {
		return s.InsertFunc(name)
	}
	return s.InsertName(key)
}

// completeKey completes a partial key from function and parameter names.
func completeKey(params []formula.Param) func(line string) []string {
	return func(line string) []string {
		head, word := "", line
		if i := strings.LastIndexByte(line, ' '); i >= 0 {
			head, word = line[:i+1], line[i+1:]
		}
		if word == "" {
			return nil
		}
		var r []string
		for name := range keypadFuncs {
			if strings.HasPrefix(name, word) {
				r = append(r, head+name)
			}
		}
		for _, p := range params {
			if strings.HasPrefix(p.Key, word) {
				r = append(r, head+p.Key)
			}
		}
		sort.Strings(r)
		return r
	}
}
