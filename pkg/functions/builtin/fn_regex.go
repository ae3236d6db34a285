package builtin

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

func regexFunctions() []*functions.Function {
	return []*functions.Function{
		mp("matches", "(string?, string) as boolean", det, fnMatches),
		mp("matches", "(string?, string, string) as boolean", det, fnMatches),
		mp("replace", "(string?, string, string) as string", det, fnReplace),
		mp("replace", "(string?, string, string, string) as string", det, fnReplace),
		mp("tokenize", "(string?) as string*", det, fnTokenize),
		mp("tokenize", "(string?, string) as string*", det, fnTokenize),
		mp("tokenize", "(string?, string, string) as string*", det, fnTokenize),
	}
}

type regexKey struct {
	pattern string
	flags   string
}

var regexCache sync.Map // regexKey -> *regexp.Regexp

// compileRegex translates a pattern and flag string into a Go regular
// expression. Supported flags are s, m, i, x and q.
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	key := regexKey{pattern, flags}
	if re, ok := regexCache.Load(key); ok {
		return re.(*regexp.Regexp), nil
	}

	var mode strings.Builder
	literal, extended := false, false
	for _, f := range flags {
		switch f {
		case 's', 'm', 'i':
			if !strings.ContainsRune(mode.String(), f) {
				mode.WriteRune(f)
			}
		case 'x':
			extended = true
		case 'q':
			literal = true
		default:
			return nil, types.Errorf(types.ErrRegexFlags, "invalid regular expression flag %q", f)
		}
	}

	expr := pattern
	switch {
	case literal:
		expr = regexp.QuoteMeta(pattern)
	case extended:
		expr = stripRegexSpace(pattern)
	}
	if mode.Len() > 0 {
		expr = "(?" + mode.String() + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, types.Errorf(types.ErrRegexPattern, "invalid regular expression %q", pattern).WithCause(err)
	}
	regexCache.Store(key, re)
	return re, nil
}

// stripRegexSpace removes whitespace outside character classes.
func stripRegexSpace(pattern string) string {
	var sb strings.Builder
	inClass, escaped := false, false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '[':
			inClass = true
		case r == ']':
			inClass = false
		case !inClass && isXMLSpace(r):
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func regexArgs(args []item.Sequence, flagIndex int) (*regexp.Regexp, error) {
	flags := ""
	if len(args) > flagIndex {
		flags = optString(args[flagIndex])
	}
	return compileRegex(optString(args[1]), flags)
}

func fnMatches(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	re, err := regexArgs(args, 2)
	if err != nil {
		return nil, err
	}
	return boolean(re.MatchString(optString(args[0]))), nil
}

func fnReplace(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	re, err := regexArgs(args, 3)
	if err != nil {
		return nil, err
	}
	if re.MatchString("") {
		return nil, types.Errorf(types.ErrRegexZeroLengthMatch, "pattern %q matches the empty string", optString(args[1]))
	}
	replacement := optString(args[2])
	literal := len(args) > 3 && strings.ContainsRune(optString(args[3]), 'q')
	if !literal {
		if err := checkReplacement(replacement); err != nil {
			return nil, err
		}
	}

	input := optString(args[0])
	var sb strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(input, -1) {
		sb.WriteString(input[last:m[0]])
		if literal {
			sb.WriteString(replacement)
		} else {
			expandReplacement(&sb, replacement, input, m)
		}
		last = m[1]
	}
	sb.WriteString(input[last:])
	return stringResult(sb.String()), nil
}

func checkReplacement(r string) error {
	for i := 0; i < len(r); i++ {
		switch r[i] {
		case '\\':
			if i+1 >= len(r) || (r[i+1] != '\\' && r[i+1] != '$') {
				return types.Errorf(types.ErrRegexReplacement, "invalid escape in replacement %q", r)
			}
			i++
		case '$':
			if i+1 >= len(r) || r[i+1] < '0' || r[i+1] > '9' {
				return types.Errorf(types.ErrRegexReplacement, "invalid group reference in replacement %q", r)
			}
		}
	}
	return nil
}

// expandReplacement writes the replacement for one match. $n refers to a
// captured group; further digits extend the group number while it stays
// within the number of groups.
func expandReplacement(sb *strings.Builder, r, input string, m []int) {
	groups := len(m)/2 - 1
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch c {
		case '\\':
			i++
			sb.WriteByte(r[i])
		case '$':
			n := int(r[i+1] - '0')
			i++
			for i+1 < len(r) && r[i+1] >= '0' && r[i+1] <= '9' {
				next := n*10 + int(r[i+1]-'0')
				if next > groups {
					break
				}
				n = next
				i++
			}
			if n <= groups && m[2*n] >= 0 {
				sb.WriteString(input[m[2*n]:m[2*n+1]])
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func fnTokenize(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	input := optString(args[0])
	if len(args) == 1 {
		fields := strings.FieldsFunc(input, isXMLSpace)
		out := make(item.Sequence, len(fields))
		for i, f := range fields {
			out[i] = item.String(f)
		}
		return out, nil
	}
	re, err := regexArgs(args, 2)
	if err != nil {
		return nil, err
	}
	if re.MatchString("") {
		return nil, types.Errorf(types.ErrRegexZeroLengthMatch, "pattern %q matches the empty string", optString(args[1]))
	}
	if input == "" {
		return nil, nil
	}
	parts := re.Split(input, -1)
	out := make(item.Sequence, len(parts))
	for i, p := range parts {
		out[i] = item.String(p)
	}
	return out, nil
}
