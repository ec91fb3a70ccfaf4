// Package formula builds arithmetic formulas from tokens and evaluates them
// against named parameters.
//
// A formula editor works like a calculator keypad. Each press appends a
// token to a Sequence: a parameter name, digits, an operator, a paren, a
// comma, or a function name with its open paren. Presses that could not lead
// to a well-formed formula are simply rejected, so a sequence is always a
// prefix of some valid formula. When a sequence is Ready, any parens left
// open are closed and the text is evaluated, e.g. "SUM(A1, B1" becomes
// "SUM(A1,B1)".
//
// Evaluation uses this package's own expression language, which also accepts
// typed formulas such as "ROUND(A1 / 3, 2) ^ 2" or "IF(A1 > 0, A1, 0)".
// Numbers are computed with math/big at a configurable precision, and the
// result must be a finite float64.
//
// A Session wraps a sequence with the editor's lifecycle: compute for a
// preview, then apply to deliver the result, or discard.
package formula
