package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/wandmagic/metapath/pkg/item"
)

// jsonItem is the JSON rendering of one result item.
type jsonItem struct {
	Type     string       `json:"type"`
	Value    *string      `json:"value,omitempty"`
	Path     string       `json:"path,omitempty"`
	Location string       `json:"location,omitempty"`
	Members  [][]jsonItem `json:"members,omitempty"`
	Entries  []jsonEntry  `json:"entries,omitempty"`
}

type jsonEntry struct {
	Key   jsonItem   `json:"key"`
	Value []jsonItem `json:"value"`
}

func toJSON(seq item.Sequence) ([]jsonItem, error) {
	out := make([]jsonItem, 0, len(seq))
	for _, it := range seq {
		j, err := itemToJSON(it)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func itemToJSON(it item.Item) (jsonItem, error) {
	switch v := it.(type) {
	case *item.Atomic:
		s := v.String()
		return jsonItem{Type: v.Type().String(), Value: &s}, nil
	case item.Node:
		j := jsonItem{Type: v.Kind().String(), Path: v.Path()}
		if val, ok := v.Value(); ok {
			j.Value = &val.Lexical
		}
		if loc, ok := v.Location(); ok {
			j.Location = loc.String()
		}
		return j, nil
	case *item.Array:
		j := jsonItem{Type: "array"}
		for _, m := range v.Members() {
			member, err := toJSON(m)
			if err != nil {
				return jsonItem{}, err
			}
			j.Members = append(j.Members, member)
		}
		return j, nil
	case *item.Map:
		j := jsonItem{Type: "map"}
		for _, e := range v.Entries() {
			key, err := itemToJSON(e.Key)
			if err != nil {
				return jsonItem{}, err
			}
			value, err := toJSON(e.Value)
			if err != nil {
				return jsonItem{}, err
			}
			j.Entries = append(j.Entries, jsonEntry{Key: key, Value: value})
		}
		return j, nil
	default:
		return jsonItem{Type: it.ItemKind().String()}, nil
	}
}

// writeResult renders seq as "text" (one string value per line) or "json".
func writeResult(w io.Writer, seq item.Sequence, format string) error {
	switch format {
	case "json":
		items, err := toJSON(seq)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	case "text", "":
		for _, it := range seq {
			if err := writeText(w, it); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, it item.Item) error {
	var line string
	switch v := it.(type) {
	case item.Node:
		if val, ok := v.Value(); ok {
			line = val.Lexical
		} else {
			line = v.Path()
		}
	case *item.Array, *item.Map:
		items, err := itemToJSON(v)
		if err != nil {
			return err
		}
		b, err := json.Marshal(items)
		if err != nil {
			return err
		}
		line = string(b)
	default:
		s, err := item.StringValue(it)
		if err != nil {
			return err
		}
		line = s
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
