package asm

import (
	"strconv"
	"strings"
)

// resolve evaluates a numeric/label expression to a 16-bit value. Supports
// decimal ("10"), hex with a trailing h ("0Ah", leading digit required so
// "0FFh" rather than "FFh" when the first hex digit is a letter) or a 0x
// prefix ("0x0A"), a character literal ('A'), the current-address symbol
// "$", a defined label, and label+/-offset arithmetic ("loop+2").
//
// known is false only during pass 1 when the expression names a label not
// yet defined; callers in pass 1 tolerate that and re-resolve in pass 2.
func (a *Assembler) resolve(tok string, pc uint16) (value uint16, known bool, err error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, false, &Error{Kind: ErrBadOperand, Message: "empty expression"}
	}
	if tok == "$" {
		return pc, true, nil
	}

	if idx := splitAdditive(tok); idx >= 0 {
		lhs, lok, err := a.resolve(tok[:idx], pc)
		if err != nil {
			return 0, false, err
		}
		sign := tok[idx]
		rhs, rok, err := a.resolve(tok[idx+1:], pc)
		if err != nil {
			return 0, false, err
		}
		if sign == '-' {
			return lhs - rhs, lok && rok, nil
		}
		return lhs + rhs, lok && rok, nil
	}

	if v, ok := parseNumber(tok); ok {
		return v, true, nil
	}

	if len(tok) == 3 && tok[0] == '\'' && tok[2] == '\'' {
		return uint16(tok[1]), true, nil
	}

	// Anything that starts like a number but didn't parse is a malformed
	// literal, not a label: identifiers can't begin with a digit.
	if tok[0] >= '0' && tok[0] <= '9' || tok[0] == '%' {
		return 0, false, &Error{Kind: ErrBadNumber, Message: "malformed number " + tok}
	}

	if v, ok := a.labels[strings.ToUpper(tok)]; ok {
		return v, true, nil
	}
	return 0, false, nil
}

// splitAdditive finds a top-level +/- splitting a label-arithmetic
// expression, skipping a leading sign (so "-1" isn't split against itself).
func splitAdditive(tok string) int {
	for i := len(tok) - 1; i > 0; i-- {
		if tok[i] == '+' || tok[i] == '-' {
			return i
		}
	}
	return -1
}

func parseNumber(tok string) (uint16, bool) {
	lower := strings.ToLower(tok)
	switch {
	case strings.HasPrefix(lower, "0x"):
		v, err := strconv.ParseUint(tok[2:], 16, 16)
		return uint16(v), err == nil
	case strings.HasSuffix(lower, "h") && lower[0] >= '0' && lower[0] <= '9':
		body := tok[:len(tok)-1]
		v, err := strconv.ParseUint(body, 16, 16)
		return uint16(v), err == nil
	case strings.HasPrefix(lower, "%"):
		v, err := strconv.ParseUint(tok[1:], 2, 16)
		return uint16(v), err == nil
	default:
		v, err := strconv.ParseUint(tok, 10, 16)
		return uint16(v), err == nil
	}
}
