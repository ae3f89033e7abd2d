package lexer

import (
	"strconv"
	"strings"

	"ncc/token"
)

// ConvertPPTokens resolves every preprocessing number in the stream to a
// typed integer or floating literal. This runs after preprocessing so
// that token pasting can still build numbers out of fragments.
func ConvertPPTokens(tok *token.Token) (err error) {
	defer token.Recover(&err)

	for t := tok; t != nil && !t.IsEOF(); t = t.Next {
		if t.Kind == token.PPNUM {
			convertNumber(t)
		}
	}
	return nil
}

// convertNumber rewrites a pp-number token in place. The suffix decides
// signedness and width; a dot, exponent or `f` suffix makes it floating.
func convertNumber(tok *token.Token) {
	s := tok.Text()

	if convertInt(tok, s) {
		return
	}

	// Not a valid integer; try floating point.
	body := s
	numTy := token.NumDouble
	if strings.HasSuffix(body, "f") || strings.HasSuffix(body, "F") {
		body = body[:len(body)-1]
		numTy = token.NumFloat
	} else if strings.HasSuffix(body, "l") || strings.HasSuffix(body, "L") {
		body = body[:len(body)-1]
	}

	fval, ferr := strconv.ParseFloat(body, 64)
	if ferr != nil {
		token.Fail(tok, "invalid numeric constant")
	}

	tok.Kind = token.NUM
	tok.FVal = fval
	tok.NumTy = numTy
}

func convertInt(tok *token.Token, s string) bool {
	lower := strings.ToLower(s)
	base := 10
	digits := lower

	switch {
	case strings.HasPrefix(lower, "0x"):
		base, digits = 16, lower[2:]
	case strings.HasPrefix(lower, "0b"):
		base, digits = 2, lower[2:]
	case len(lower) > 1 && lower[0] == '0':
		base, digits = 8, lower[1:]
	}

	// Strip an integer suffix: u, l, ul, lu, ll, ull, llu.
	suffix := ""
	for _, sfx := range []string{"ull", "llu", "ul", "lu", "ll", "u", "l"} {
		if strings.HasSuffix(digits, sfx) {
			digits, suffix = digits[:len(digits)-len(sfx)], sfx
			break
		}
	}
	if digits == "" {
		return false
	}

	val, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return false
	}

	isUnsigned := strings.Contains(suffix, "u")
	isLong := strings.Contains(suffix, "l")

	var numTy token.NumType
	switch {
	case isUnsigned && (isLong || val>>32 != 0):
		numTy = token.NumULong
	case isUnsigned:
		if val>>31 != 0 {
			numTy = token.NumULong
		} else {
			numTy = token.NumUInt
		}
	case isLong:
		numTy = token.NumLong
	case base == 10:
		// Decimal constants without `u` stay signed.
		if val>>31 != 0 {
			numTy = token.NumLong
		} else {
			numTy = token.NumInt
		}
	default:
		// Hex/octal/binary constants may become unsigned.
		switch {
		case val>>63 != 0:
			numTy = token.NumULong
		case val>>32 != 0:
			numTy = token.NumLong
		case val>>31 != 0:
			numTy = token.NumUInt
		default:
			numTy = token.NumInt
		}
	}

	tok.Kind = token.NUM
	tok.Val = int64(val)
	tok.NumTy = numTy
	return true
}
