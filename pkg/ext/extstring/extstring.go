// Package extstring provides string functions beyond the built-in library:
// case conversion, word splitting, repetition and simple templating.
//
//	ext:camel-case('control-id')          → "controlId"
//	ext:template('{id}: {title}', $map)   → "ac-1: Policy"
package extstring

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wandmagic/metapath/pkg/ext/extutil"
	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

const det = functions.Deterministic

// All returns every extended string function.
func All() []*functions.Function {
	return []*functions.Function{
		Capitalize(),
		TitleCase(),
		CamelCase(),
		SnakeCase(),
		KebabCase(),
		Repeat(),
		Words(),
		IndexOf(),
		LastIndexOf(),
		Template(),
	}
}

// Capitalize returns ext:capitalize($s): the first character upper-cased,
// the rest lower-cased.
func Capitalize() *functions.Function {
	return extutil.New("capitalize", "(string?) as string", det, stringFunc(func(s string) string {
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 {
			return s
		}
		return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
	}))
}

// TitleCase returns ext:title-case($s) using Unicode word boundaries.
func TitleCase() *functions.Function {
	return extutil.New("title-case", "(string?) as string", det, stringFunc(func(s string) string {
		return cases.Title(language.Und).String(s)
	}))
}

// CamelCase returns ext:camel-case($s).
func CamelCase() *functions.Function {
	return extutil.New("camel-case", "(string?) as string", det, stringFunc(func(s string) string {
		words := splitIntoWords(s)
		var b strings.Builder
		for i, w := range words {
			w = strings.ToLower(w)
			if i > 0 {
				r, size := utf8.DecodeRuneInString(w)
				w = string(unicode.ToUpper(r)) + w[size:]
			}
			b.WriteString(w)
		}
		return b.String()
	}))
}

// SnakeCase returns ext:snake-case($s).
func SnakeCase() *functions.Function {
	return extutil.New("snake-case", "(string?) as string", det, stringFunc(func(s string) string {
		return joinLower(splitIntoWords(s), "_")
	}))
}

// KebabCase returns ext:kebab-case($s).
func KebabCase() *functions.Function {
	return extutil.New("kebab-case", "(string?) as string", det, stringFunc(func(s string) string {
		return joinLower(splitIntoWords(s), "-")
	}))
}

// Repeat returns ext:repeat($s, $count).
func Repeat() *functions.Function {
	return extutil.New("repeat", "(string?, integer) as string", det,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			n, err := extutil.OptAtomic(args[1]).ToInt()
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, types.Errorf(types.ErrInvalidArgumentType, "repeat count must not be negative, found %d", n)
			}
			return extutil.String(strings.Repeat(extutil.OptString(args[0]), n)), nil
		})
}

// Words returns ext:words($s): the whitespace-separated words of $s.
func Words() *functions.Function {
	return extutil.New("words", "(string?) as string*", det,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			return extutil.Strings(strings.Fields(extutil.OptString(args[0]))), nil
		})
}

// IndexOf returns ext:index-of-string($s, $search): the 1-based character
// position of the first occurrence, or the empty sequence.
func IndexOf() *functions.Function {
	return extutil.New("index-of-string", "(string?, string) as integer?", det, indexFunc(strings.Index))
}

// LastIndexOf returns ext:last-index-of-string($s, $search).
func LastIndexOf() *functions.Function {
	return extutil.New("last-index-of-string", "(string?, string) as integer?", det, indexFunc(strings.LastIndex))
}

// Template returns ext:template($template, $bindings). Each {key}
// placeholder is replaced with the string value of the map entry with that
// key; unknown placeholders are left as they are.
func Template() *functions.Function {
	return extutil.New("template", "(string?, map(*)) as string", det,
		func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
			bindings, ok := args[1][0].(*item.Map)
			if !ok {
				return nil, types.Errorf(types.ErrType, "template bindings must be a map")
			}
			var firstErr error
			out := placeholderRe.ReplaceAllStringFunc(extutil.OptString(args[0]), func(match string) string {
				value, found := bindings.Get(item.String(match[1 : len(match)-1]))
				if !found {
					return match
				}
				parts := make([]string, 0, len(value))
				for _, it := range value {
					s, err := item.StringValue(it)
					if err != nil && firstErr == nil {
						firstErr = err
					}
					parts = append(parts, s)
				}
				return strings.Join(parts, " ")
			})
			if firstErr != nil {
				return nil, firstErr
			}
			return extutil.String(out), nil
		})
}

var (
	placeholderRe = regexp.MustCompile(`\{[\w.-]+\}`)
	wordBoundary  = regexp.MustCompile(`[_\-\s]+|([a-z0-9])([A-Z])`)
)

// splitIntoWords splits on camelCase humps, underscores, hyphens and
// whitespace.
func splitIntoWords(s string) []string {
	return strings.Fields(wordBoundary.ReplaceAllString(s, "$1 $2"))
}

func joinLower(words []string, sep string) string {
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

func stringFunc(fn func(string) string) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		return extutil.String(fn(extutil.OptString(args[0]))), nil
	}
}

func indexFunc(find func(s, substr string) int) functions.Handler {
	return func(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
		s := extutil.OptString(args[0])
		i := find(s, extutil.OptString(args[1]))
		if i < 0 {
			return nil, nil
		}
		return item.Sequence{item.Int(int64(utf8.RuneCountInString(s[:i]) + 1))}, nil
	}
}
