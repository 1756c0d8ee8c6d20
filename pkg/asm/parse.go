package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"goasm64/pkg/arm64"
)

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}

		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t") {
			break
		}

		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}

		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	if sp := strings.IndexAny(line, " \t"); sp >= 0 {
		p.mnemonic = strings.ToLower(line[:sp])
		p.operands = splitOperands(line[sp+1:])
	} else {
		p.mnemonic = strings.ToLower(line)
	}

	return p, nil
}

// stripComments cuts the line at the first comment marker. ';' and "//"
// start a comment anywhere outside a bracketed operand; '#' starts one
// only when it does not introduce an immediate such as #42, #-8, or #0x80.
func stripComments(line string) string {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ';':
			return line[:i]
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		case '#':
			if depth == 0 && !startsImmediate(line[i+1:]) {
				return line[:i]
			}
		}
	}
	return line
}

// startsImmediate reports whether the text following a '#' reads as a
// number rather than a comment.
func startsImmediate(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c >= '0' && c <= '9' || c == '-' || c == '+'
}

// splitOperands splits on commas sitting outside a bracketed memory
// operand, so "[sp, #16]" survives as a single token.
func splitOperands(s string) []string {
	var ops []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				if tok := strings.TrimSpace(s[start:i]); tok != "" {
					ops = append(ops, tok)
				}
				start = i + 1
			}
		}
	}
	if tok := strings.TrimSpace(s[start:]); tok != "" {
		ops = append(ops, tok)
	}
	return ops
}

func parseRegister(token string) (arm64.Register, error) {
	r, ok := arm64.LookupRegister(token)
	if !ok {
		return arm64.Register{}, &OperandError{Token: token, Reason: "invalid register name"}
	}
	return r, nil
}

func parseCondition(token string) (uint32, error) {
	c, ok := arm64.LookupCondition(token)
	if !ok {
		return 0, &OperandError{Token: token, Reason: "invalid condition"}
	}
	return c, nil
}

// parseImmediate accepts decimal, 0x hex, and 0b binary forms with an
// optional leading '#'. Hex constants above the int64 range are kept as
// their two's-complement bit pattern.
func parseImmediate(token string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(token), "#")
	if s == "" {
		return 0, &OperandError{Token: token, Reason: "empty immediate"}
	}

	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return int64(u), nil
	}

	return 0, &OperandError{Token: token, Reason: "malformed immediate"}
}

// parseShift parses a trailing shift operand of the form "lsl #n".
func parseShift(token string) (int64, error) {
	fields := strings.Fields(strings.ToLower(token))
	if len(fields) != 2 || fields[0] != "lsl" {
		return 0, &OperandError{Token: token, Reason: "expected 'lsl #n'"}
	}
	return parseImmediate(fields[1])
}

// memOperand is one of the three addressing shapes: [Xn], [Xn, #imm],
// and [Xn, Xm].
type memOperand struct {
	base     arm64.Register
	index    arm64.Register
	hasIndex bool
	offset   int64
}

func parseMemOperand(token string) (memOperand, error) {
	s := strings.TrimSpace(token)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return memOperand{}, &OperandError{Token: token, Reason: "malformed memory operand"}
	}

	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) > 2 {
		return memOperand{}, &OperandError{Token: token, Reason: "too many memory operand fields"}
	}

	base, err := parseRegister(strings.TrimSpace(parts[0]))
	if err != nil {
		return memOperand{}, err
	}

	m := memOperand{base: base}
	if len(parts) == 2 {
		second := strings.TrimSpace(parts[1])
		if idx, ok := arm64.LookupRegister(second); ok {
			m.index = idx
			m.hasIndex = true
			return m, nil
		}
		off, err := parseImmediate(second)
		if err != nil {
			return memOperand{}, err
		}
		m.offset = off
	}

	return m, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}

		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}
