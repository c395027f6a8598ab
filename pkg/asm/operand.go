package asm

import "strings"

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

var reg8Index = map[string]uint8{"B": 0, "C": 1, "D": 2, "E": 3, "H": 4, "L": 5, "A": 7}
var reg16Index = map[string]uint8{"BC": 0, "DE": 1, "HL": 2, "SP": 3}
var reg16PushIndex = map[string]uint8{"BC": 0, "DE": 1, "HL": 2, "AF": 3}
var condIndex = map[string]uint8{"NZ": 0, "Z": 1, "NC": 2, "C": 3, "PO": 4, "PE": 5, "P": 6, "M": 7}

func isReg8(op string) (uint8, bool) {
	v, ok := reg8Index[upper(op)]
	return v, ok
}

func isReg16(op string) (uint8, bool) {
	v, ok := reg16Index[upper(op)]
	return v, ok
}

func isReg16Push(op string) (uint8, bool) {
	v, ok := reg16PushIndex[upper(op)]
	return v, ok
}

func isCond(op string) (uint8, bool) {
	v, ok := condIndex[upper(op)]
	return v, ok
}

// indirect strips one layer of parens: "(HL)" -> "HL", ok. Not indirect if
// the operand isn't parenthesized.
func indirect(op string) (string, bool) {
	op = strings.TrimSpace(op)
	if len(op) >= 2 && op[0] == '(' && op[len(op)-1] == ')' {
		return strings.TrimSpace(op[1 : len(op)-1]), true
	}
	return "", false
}

// indexedOperand recognizes "(IX+d)" / "(IY-d)" and returns which index
// register (1=IX, 2=IY) and the displacement expression text.
func indexedOperand(op string) (ix int, dispExpr string, ok bool) {
	inner, isInd := indirect(op)
	if !isInd {
		return 0, "", false
	}
	u := upper(inner)
	switch {
	case u == "IX":
		return 1, "0", true
	case u == "IY":
		return 2, "0", true
	case strings.HasPrefix(u, "IX"):
		return 1, strings.TrimSpace(inner[2:]), true
	case strings.HasPrefix(u, "IY"):
		return 2, strings.TrimSpace(inner[2:]), true
	}
	return 0, "", false
}

func isIX(op string) bool { return upper(op) == "IX" }
func isIY(op string) bool { return upper(op) == "IY" }

// parseDisp evaluates a displacement expression to a signed byte, assembled
// value range -128..255 both accepted (the latter as the two's-complement
// wraparound an assembler author might type directly, e.g. "0FFh").
func (a *Assembler) parseDisp(expr string, pc uint16) (int8, bool, error) {
	if expr == "" {
		return 0, true, nil
	}
	neg := false
	if strings.HasPrefix(expr, "+") {
		expr = expr[1:]
	} else if strings.HasPrefix(expr, "-") {
		neg = true
		expr = expr[1:]
	}
	v, known, err := a.resolve(expr, pc)
	if err != nil {
		return 0, false, err
	}
	if neg {
		return int8(-int16(v)), known, nil
	}
	return int8(v), known, nil
}
