package memdoc

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// ParseJSON builds a document from JSON.
func ParseJSON(r io.Reader, opts Options) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := readJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("memdoc: decoding JSON: %w", err)
	}
	return opts.build(v)
}

// ParseJSONBytes is ParseJSON over a byte slice.
func ParseJSONBytes(b []byte, opts Options) (*Node, error) {
	return ParseJSON(bytes.NewReader(b), opts)
}

func readJSONValue(dec *json.Decoder) (value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := value{kind: valueObject}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return value{}, fmt.Errorf("unexpected object key %v", kt)
				}
				mv, err := readJSONValue(dec)
				if err != nil {
					return value{}, err
				}
				v.members = append(v.members, member{name: key, value: mv})
			}
			if _, err := dec.Token(); err != nil {
				return value{}, err
			}
			return v, nil
		case '[':
			v := value{kind: valueArray}
			for dec.More() {
				ev, err := readJSONValue(dec)
				if err != nil {
					return value{}, err
				}
				v.elems = append(v.elems, ev)
			}
			if _, err := dec.Token(); err != nil {
				return value{}, err
			}
			return v, nil
		default:
			return value{}, fmt.Errorf("unexpected delimiter %q", rune(t))
		}
	case string:
		return value{kind: valueScalar, scalar: stringValue(t)}, nil
	case json.Number:
		return value{kind: valueScalar, scalar: numberValue(string(t))}, nil
	case bool:
		return value{kind: valueScalar, scalar: boolValue(t)}, nil
	case nil:
		return value{kind: valueNull}, nil
	default:
		return value{}, fmt.Errorf("unexpected token %v", tok)
	}
}
