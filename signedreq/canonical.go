package signedreq

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxJSONDepth matches the default nesting limit of the PHP decoder used by
// existing peers. Deeper documents are treated as opaque text.
const maxJSONDepth = 512

var (
	errNotJSON       = errors.New("body is not a json document")
	errJSONTooDeep   = errors.New("json nesting too deep")
	errNonFiniteJSON = errors.New("json number is not finite")
)

// jsonObject keeps members in document order.
type jsonObject []jsonMember

type jsonMember struct {
	key   string
	value any
}

// canonicalJSON parses data and re-encodes it without insignificant
// whitespace, without escaping slashes or non-ASCII characters. ok is false
// when data is not a single JSON value or is the null literal.
func canonicalJSON(data []byte) (string, bool) {
	value, err := decodeJSON(data)
	if err != nil || value == nil {
		return "", false
	}

	var b bytes.Buffer
	writeJSON(&b, value)

	return b.String(), true
}

// canonicalContent returns the canonical JSON form of body, or body itself
// when it is not JSON.
func canonicalContent(body []byte) string {
	if content, ok := canonicalJSON(body); ok {
		return content
	}

	return string(body)
}

func decodeJSON(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, errNotJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec, 0)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errNotJSON
	}

	return value, nil
}

func decodeValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth+1 > maxJSONDepth {
			return nil, errJSONTooDeep
		}

		switch t {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		}

		return nil, fmt.Errorf("%w: unexpected %q", errNotJSON, t)
	case json.Number:
		if f, err := strconv.ParseFloat(string(t), 64); err != nil || math.IsInf(f, 0) {
			return nil, errNonFiniteJSON
		}

		return t, nil
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder, depth int) (jsonObject, error) {
	obj := jsonObject{}
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, errNotJSON
		}

		value, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}

		// Later duplicates overwrite the value but keep the first position.
		if i, seen := index[key]; seen {
			obj[i].value = value
			continue
		}

		index[key] = len(obj)
		obj = append(obj, jsonMember{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return obj, nil
}

func decodeArray(dec *json.Decoder, depth int) ([]any, error) {
	arr := []any{}

	for dec.More() {
		value, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}

		arr = append(arr, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return arr, nil
}

func writeJSON(b *bytes.Buffer, value any) {
	switch v := value.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case string:
		writeJSONString(b, v)
	case json.Number:
		b.WriteString(formatJSONNumber(v))
	case jsonObject:
		b.WriteByte('{')
		for i, m := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, m.key)
			b.WriteByte(':')
			writeJSON(b, m.value)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSON(b, item)
		}
		b.WriteByte(']')
	}
}

const hexDigits = "0123456789abcdef"

// writeJSONString escapes quotes, backslashes, control characters and the
// U+2028/U+2029 line terminators. Slashes and other non-ASCII characters are
// written verbatim. Invalid UTF-8 is replaced with U+FFFD.
func writeJSONString(b *bytes.Buffer, s string) {
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			b.WriteString(`\u202`)
			b.WriteByte(hexDigits[r&0xf])
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[r>>4])
				b.WriteByte(hexDigits[r&0xf])
				continue
			}

			b.WriteRune(r)
		}
	}

	b.WriteByte('"')
}

// formatJSONNumber prints integers that fit in 64 bits verbatim and every
// other number as the shortest round-trip float, switching to exponent form
// ("1.0e+25") when the decimal point falls outside [-3, 17].
func formatJSONNumber(n json.Number) string {
	s := string(n)

	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	return formatFloat(f)
}

func formatFloat(f float64) string {
	sci := strconv.FormatFloat(f, 'e', -1, 64)

	sign := ""
	if sci[0] == '-' {
		sign = "-"
		sci = sci[1:]
	}

	mantissa, expPart, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expPart)
	decpt := exp + 1

	if decpt >= -3 && decpt <= 17 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	digits := strings.Replace(mantissa, ".", "", 1)

	var b strings.Builder
	b.WriteString(sign)
	b.WriteByte(digits[0])
	b.WriteByte('.')

	if len(digits) > 1 {
		b.WriteString(digits[1:])
	} else {
		b.WriteByte('0')
	}

	b.WriteByte('e')

	if exp < 0 {
		b.WriteByte('-')
		exp = -exp
	} else {
		b.WriteByte('+')
	}

	b.WriteString(strconv.Itoa(exp))

	return b.String()
}
