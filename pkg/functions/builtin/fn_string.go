package builtin

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/wandmagic/metapath/pkg/functions"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/types"
)

const codepointCollation = "http://www.w3.org/2005/xpath-functions/collation/codepoint"

var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

func stringFunctions() []*functions.Function {
	return []*functions.Function{
		mp("string", "() as string", usesFocus, fnString),
		mp("string", "(item()?) as string", det, fnString),
		mp("concat", "(any-atomic-type?, any-atomic-type?...) as string", det, fnConcat),
		mp("string-join", "(any-atomic-type*) as string", det, fnStringJoin),
		mp("string-join", "(any-atomic-type*, string) as string", det, fnStringJoin),
		mp("string-length", "() as integer", usesFocus, fnStringLength),
		mp("string-length", "(string?) as integer", det, fnStringLength),
		mp("substring", "(string?, decimal) as string", det, fnSubstring),
		mp("substring", "(string?, decimal, decimal) as string", det, fnSubstring),
		mp("substring-before", "(string?, string?) as string", det, fnSubstringBefore),
		mp("substring-after", "(string?, string?) as string", det, fnSubstringAfter),
		mp("normalize-space", "() as string", usesFocus, fnNormalizeSpace),
		mp("normalize-space", "(string?) as string", det, fnNormalizeSpace),
		mp("normalize-unicode", "(string?) as string", det, fnNormalizeUnicode),
		mp("normalize-unicode", "(string?, string) as string", det, fnNormalizeUnicode),
		mp("upper-case", "(string?) as string", det, fnUpperCase),
		mp("lower-case", "(string?) as string", det, fnLowerCase),
		mp("contains", "(string?, string?) as boolean", det, fnContains),
		mp("starts-with", "(string?, string?) as boolean", det, fnStartsWith),
		mp("ends-with", "(string?, string?) as boolean", det, fnEndsWith),
		mp("compare", "(string?, string?) as integer?", det, fnCompare),
		mp("compare", "(string?, string?, string) as integer?", det, fnCompare),
	}
}

func fnString(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	seq := contextArg(focus, args)
	if len(seq) == 0 {
		return stringResult(""), nil
	}
	s, err := item.StringValue(seq[0])
	if err != nil {
		return nil, err
	}
	return stringResult(s), nil
}

func fnConcat(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(optString(arg))
	}
	return stringResult(sb.String()), nil
}

func fnStringJoin(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	sep := ""
	if len(args) > 1 {
		sep = optString(args[1])
	}
	parts := make([]string, len(args[0]))
	for i, it := range args[0] {
		parts[i] = it.(*item.Atomic).String()
	}
	return stringResult(strings.Join(parts, sep)), nil
}

func fnStringLength(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	seq := contextArg(focus, args)
	if len(seq) == 0 {
		return intResult(0), nil
	}
	s, err := item.StringValue(seq[0])
	if err != nil {
		return nil, err
	}
	return intResult(utf8.RuneCountInString(s)), nil
}

// roundedFloat rounds a numeric item half-up and returns it as a float so
// that out-of-range positions compare correctly.
func roundedFloat(a *item.Atomic) float64 {
	f, err := item.Round(a, 0).Decimal().Float64()
	if err != nil {
		return 0
	}
	return f
}

func fnSubstring(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	runes := []rune(optString(args[0]))
	start := roundedFloat(optAtomic(args[1]))
	end := float64(len(runes)) + 1
	if len(args) > 2 {
		end = start + roundedFloat(optAtomic(args[2]))
	}
	var sb strings.Builder
	for i, r := range runes {
		pos := float64(i + 1)
		if pos >= start && pos < end {
			sb.WriteRune(r)
		}
	}
	return stringResult(sb.String()), nil
}

func fnSubstringBefore(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	s, sep := optString(args[0]), optString(args[1])
	before, _, found := strings.Cut(s, sep)
	if !found {
		return stringResult(""), nil
	}
	return stringResult(before), nil
}

func fnSubstringAfter(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	s, sep := optString(args[0]), optString(args[1])
	_, after, found := strings.Cut(s, sep)
	if !found {
		return stringResult(""), nil
	}
	return stringResult(after), nil
}

func isXMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func fnNormalizeSpace(_ context.Context, _ functions.Env, focus item.Item, args []item.Sequence) (item.Sequence, error) {
	seq := contextArg(focus, args)
	if len(seq) == 0 {
		return stringResult(""), nil
	}
	s, err := item.StringValue(seq[0])
	if err != nil {
		return nil, err
	}
	return stringResult(strings.Join(strings.FieldsFunc(s, isXMLSpace), " ")), nil
}

func fnNormalizeUnicode(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	s := optString(args[0])
	form := "NFC"
	if len(args) > 1 {
		form = strings.ToUpper(strings.TrimSpace(optString(args[1])))
	}
	switch form {
	case "":
		return stringResult(s), nil
	case "NFC":
		return stringResult(norm.NFC.String(s)), nil
	case "NFD":
		return stringResult(norm.NFD.String(s)), nil
	case "NFKC":
		return stringResult(norm.NFKC.String(s)), nil
	case "NFKD":
		return stringResult(norm.NFKD.String(s)), nil
	default:
		return nil, types.Errorf(types.ErrNormalizationForm, "unsupported normalization form %q", form)
	}
}

func fnUpperCase(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return stringResult(upperCaser.String(optString(args[0]))), nil
}

func fnLowerCase(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return stringResult(lowerCaser.String(optString(args[0]))), nil
}

func fnContains(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(strings.Contains(optString(args[0]), optString(args[1]))), nil
}

func fnStartsWith(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(strings.HasPrefix(optString(args[0]), optString(args[1]))), nil
}

func fnEndsWith(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	return boolean(strings.HasSuffix(optString(args[0]), optString(args[1]))), nil
}

func fnCompare(_ context.Context, _ functions.Env, _ item.Item, args []item.Sequence) (item.Sequence, error) {
	if len(args) > 2 {
		if c := optString(args[2]); c != codepointCollation {
			return nil, types.Errorf(types.ErrInvalidCollationOption, "unsupported collation %q", c)
		}
	}
	if len(args[0]) == 0 || len(args[1]) == 0 {
		return nil, nil
	}
	return intResult(strings.Compare(optString(args[0]), optString(args[1]))), nil
}
