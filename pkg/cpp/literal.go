package cpp

import (
	"fmt"
	"strconv"
	"strings"
)

// ConvertLiteral turns a PP_NUMBER, PP_CHAR, or PP_STRING token into a
// typed NUMBER or STRING token. It is only invoked for tokens the
// Driver hands to the parser-facing output; tokens destined for `-E`
// text output keep their original PP_* spelling untouched.
func ConvertLiteral(t Token) (Token, error) {
	switch t.Kind {
	case PP_NUMBER:
		return convertNumber(t)
	case PP_CHAR:
		return convertChar(t)
	case PP_STRING:
		return convertString(t)
	default:
		return t, nil
	}
}

func convertNumber(t Token) (Token, error) {
	s := t.Text
	if strings.ContainsAny(s, ".") || isFloatExponent(s) {
		return convertFloat(t, s)
	}
	// Hex floats: 0x1.8p3
	if (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) && strings.ContainsAny(s, "pP") {
		return convertFloat(t, s)
	}

	unsigned := false
	long := 0
	core := s
	for len(core) > 0 {
		c := core[len(core)-1]
		switch c {
		case 'u', 'U':
			unsigned = true
			core = core[:len(core)-1]
		case 'l', 'L':
			long++
			core = core[:len(core)-1]
		default:
			goto doneSuffix
		}
	}
doneSuffix:
	if core == "" {
		return t, fmt.Errorf("%s: invalid integer constant %q", t.Loc, s)
	}

	base := 10
	digits := core
	switch {
	case strings.HasPrefix(core, "0x") || strings.HasPrefix(core, "0X"):
		base = 16
		digits = core[2:]
	case strings.HasPrefix(core, "0b") || strings.HasPrefix(core, "0B"):
		base = 2
		digits = core[2:]
	case strings.HasPrefix(core, "0") && len(core) > 1:
		base = 8
		digits = core[1:]
	}

	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return t, fmt.Errorf("%s: invalid integer constant %q", t.Loc, s)
	}
	out := t
	out.Kind = NUMBER
	out.IntValue = v
	out.NumType = intTypeFor(v, unsigned, long, base == 10)
	out.IsUnsigned = out.NumType.IsUnsigned()
	return out, nil
}

// intTypeFor picks the smallest rung of the integer ladder that holds
// v, per C99 6.4.4.1: a decimal constant with no 'u' suffix only climbs
// the signed column, while hex and octal constants alternate signed and
// unsigned rungs. longCount is how many l/L suffix letters appeared.
func intTypeFor(v uint64, unsigned bool, longCount int, decimal bool) NumType {
	type rung struct {
		t   NumType
		max uint64
	}
	const (
		intMax  = 1<<31 - 1
		uintMax = 1<<32 - 1
		longMax = 1<<63 - 1
	)
	var ladder []rung
	switch {
	case unsigned:
		if longCount == 0 {
			ladder = append(ladder, rung{TypeUInt, uintMax})
		}
		if longCount <= 1 {
			ladder = append(ladder, rung{TypeULong, ^uint64(0)})
		}
		ladder = append(ladder, rung{TypeULongLong, ^uint64(0)})
	case decimal:
		if longCount == 0 {
			ladder = append(ladder, rung{TypeInt, intMax})
		}
		if longCount <= 1 {
			ladder = append(ladder, rung{TypeLong, longMax})
		}
		ladder = append(ladder, rung{TypeLongLong, longMax})
		// A decimal constant too big for long long has no signed home;
		// surfacing it as unsigned long long is what parsers rely on.
		ladder = append(ladder, rung{TypeULongLong, ^uint64(0)})
	default:
		if longCount == 0 {
			ladder = append(ladder, rung{TypeInt, intMax}, rung{TypeUInt, uintMax})
		}
		if longCount <= 1 {
			ladder = append(ladder, rung{TypeLong, longMax}, rung{TypeULong, ^uint64(0)})
		}
		ladder = append(ladder, rung{TypeLongLong, longMax}, rung{TypeULongLong, ^uint64(0)})
	}
	for _, r := range ladder {
		if v <= r.max {
			return r.t
		}
	}
	return TypeULongLong
}

func isFloatExponent(s string) bool {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return false
	}
	for i, c := range s {
		if (c == 'e' || c == 'E') && i > 0 {
			return true
		}
	}
	return false
}

func convertFloat(t Token, s string) (Token, error) {
	core := s
	numType := TypeDouble
	if len(core) > 0 {
		switch core[len(core)-1] {
		case 'f', 'F':
			numType = TypeFloat
			core = core[:len(core)-1]
		case 'l', 'L':
			numType = TypeLongDouble
			core = core[:len(core)-1]
		}
	}
	v, err := strconv.ParseFloat(core, 64)
	if err != nil {
		return t, fmt.Errorf("%s: invalid floating constant %q", t.Loc, s)
	}
	out := t
	out.Kind = NUMBER
	out.IsFloat = true
	out.FloatValue = v
	out.NumType = numType
	return out, nil
}

func convertChar(t Token) (Token, error) {
	n, err := decodeCharConst(t.Text)
	if err != nil {
		return t, err
	}
	out := t
	out.Kind = NUMBER
	out.IntValue = uint64(n)
	out.NumType = TypeInt
	return out, nil
}

// decodeCharConst decodes a 'c' or '\xNN' or multi-char 'ab' constant
// into its int value, following the same escape table as a hosted C
// implementation: \n \t \r \\ \' \" \0 \a \b \f \v, \ooo octal, \xHH
// hex. A multi-character constant folds left to right into one int,
// matching ordinary compiler behavior for e.g. 'ab'.
func decodeCharConst(text string) (int64, error) {
	s := text
	for len(s) > 0 && (s[0] == 'L' || s[0] == 'u' || s[0] == 'U') {
		s = s[1:]
	}
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, fmt.Errorf("invalid character constant %q", text)
	}
	body := s[1 : len(s)-1]

	var result int64
	i := 0
	for i < len(body) {
		var v byte
		if body[i] == '\\' && i+1 < len(body) {
			i++
			c := body[i]
			switch c {
			case 'n':
				v = '\n'
				i++
			case 't':
				v = '\t'
				i++
			case 'r':
				v = '\r'
				i++
			case '\\':
				v = '\\'
				i++
			case '\'':
				v = '\''
				i++
			case '"':
				v = '"'
				i++
			case 'a':
				v = '\a'
				i++
			case 'b':
				v = '\b'
				i++
			case 'f':
				v = '\f'
				i++
			case 'v':
				v = '\v'
				i++
			case '0', '1', '2', '3', '4', '5', '6', '7':
				start := i
				for i < len(body) && i-start < 3 && body[i] >= '0' && body[i] <= '7' {
					i++
				}
				n, _ := strconv.ParseUint(body[start:i], 8, 8)
				v = byte(n)
			case 'x':
				i++
				start := i
				for i < len(body) && isHexDigit(body[i]) {
					i++
				}
				n, err := strconv.ParseUint(body[start:i], 16, 8)
				if err != nil {
					return 0, fmt.Errorf("invalid hex escape in %q", text)
				}
				v = byte(n)
			default:
				v = c
				i++
			}
		} else {
			v = body[i]
			i++
		}
		result = result<<8 | int64(v)
	}
	return result, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func convertString(t Token) (Token, error) {
	s := t.Text
	prefix := ""
	for len(s) > 0 && s[0] != '"' {
		prefix += string(s[0])
		s = s[1:]
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return t, fmt.Errorf("%s: invalid string literal %q", t.Loc, t.Text)
	}
	body := s[1 : len(s)-1]

	var out []byte
	i := 0
	for i < len(body) {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			c := body[i]
			switch c {
			case 'n':
				out = append(out, '\n')
				i++
			case 't':
				out = append(out, '\t')
				i++
			case 'r':
				out = append(out, '\r')
				i++
			case '\\':
				out = append(out, '\\')
				i++
			case '\'':
				out = append(out, '\'')
				i++
			case '"':
				out = append(out, '"')
				i++
			case 'a':
				out = append(out, '\a')
				i++
			case 'b':
				out = append(out, '\b')
				i++
			case 'f':
				out = append(out, '\f')
				i++
			case 'v':
				out = append(out, '\v')
				i++
			case '0', '1', '2', '3', '4', '5', '6', '7':
				start := i
				for i < len(body) && i-start < 3 && body[i] >= '0' && body[i] <= '7' {
					i++
				}
				n, _ := strconv.ParseUint(body[start:i], 8, 8)
				out = append(out, byte(n))
			case 'x':
				i++
				start := i
				for i < len(body) && isHexDigit(body[i]) {
					i++
				}
				n, err := strconv.ParseUint(body[start:i], 16, 8)
				if err != nil {
					return t, fmt.Errorf("%s: invalid hex escape in string literal", t.Loc)
				}
				out = append(out, byte(n))
			default:
				out = append(out, c)
				i++
			}
		} else {
			out = append(out, body[i])
			i++
		}
	}

	result := t
	result.Kind = STRING
	result.Bytes = out
	return result, nil
}
