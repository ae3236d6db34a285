package ext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/evaluator"
	"github.com/wandmagic/metapath/pkg/ext"
	"github.com/wandmagic/metapath/pkg/ext/extutil"
	"github.com/wandmagic/metapath/pkg/functions/builtin"
	"github.com/wandmagic/metapath/pkg/item"
	"github.com/wandmagic/metapath/pkg/model/memdoc"
	"github.com/wandmagic/metapath/pkg/static"
	"github.com/wandmagic/metapath/pkg/types"
)

const catalogYAML = `catalog:
  "@id": cat
  group:
    - "@id": ac
      title: Access Control
      control:
        - "@id": ac-1
          title: Policy
        - "@id": ac-2
          title: Accounts
`

const catalogJSON = `{"catalog": {"@id": "cat", "group": [{"@id": "ac", "title": "Access Control",
  "control": [{"@id": "ac-1", "title": "Policy"}, {"@id": "ac-2", "title": "Accounts"}]}]}}`

func loadYAML(t *testing.T) item.Node {
	t.Helper()
	doc, err := memdoc.ParseYAMLBytes([]byte(catalogYAML), memdoc.Options{BaseURI: "urn:cat"})
	require.NoError(t, err)
	return item.NodeOf(doc)
}

func eval(t *testing.T, sc *static.Context, src string, focus item.Item) (item.Sequence, error) {
	t.Helper()
	ev := evaluator.New()
	expr, err := ev.Compile(src, sc)
	if err != nil {
		return nil, err
	}
	return ev.Eval(context.Background(), expr, focus, nil)
}

func texts(t *testing.T, src string, focus item.Item) []string {
	t.Helper()
	seq, err := eval(t, ext.StaticContext(), src, focus)
	require.NoError(t, err, "evaluate %q", src)
	out := make([]string, len(seq))
	for i, it := range seq {
		s, err := item.StringValue(it)
		require.NoError(t, err)
		out[i] = s
	}
	return out
}

func TestModelFunctions(t *testing.T) {
	doc := loadYAML(t)
	tests := []struct {
		expr string
		want []string
	}{
		{"ext:kind(/)", []string{"document"}},
		{"ext:kind(/catalog)", []string{"assembly"}},
		{"ext:kind((//title)[1])", []string{"field"}},
		{"ext:kind((//@id)[1])", []string{"flag"}},
		{"/catalog/ext:kind()", []string{"assembly"}},
		{"ext:kind(())", nil},
		{"ext:depth(/)", []string{"0"}},
		{"ext:depth(/catalog)", []string{"1"}},
		{"ext:depth((//control)[1])", []string{"3"}},
		{"//control ! ext:sibling-position()", []string{"1", "2"}},
		{"ext:sibling-position(/catalog/group)", []string{"1"}},
		{"ext:flag-names(/catalog)", []string{"id"}},
		{"ext:flag-names((//title)[1])", nil},
		{"ext:has-flag(/catalog, 'id')", []string{"true"}},
		{"ext:has-flag(/catalog, 'nope')", []string{"false"}},
		{"count(//*[ext:has-flag('id')])", []string{"4"}},
		{"ext:line((//control)[2])", []string{"9"}},
		{"ext:column((//control)[2])", []string{"11"}},
		{"ext:location((//control)[2])", []string{"urn:cat:9:11"}},
		{"//control[ext:line() > 8]/@id", []string{"ac-2"}},
		{"ext:fingerprint((//control)[1]) = ext:fingerprint((//control)[2])", []string{"false"}},
		{"ext:fingerprint(/catalog) = ext:fingerprint(/catalog)", []string{"true"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := texts(t, tt.expr, doc)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFingerprintIgnoresSourceFormat(t *testing.T) {
	fromJSON, err := memdoc.ParseJSONBytes([]byte(catalogJSON), memdoc.Options{})
	require.NoError(t, err)

	yamlPrint := texts(t, "ext:fingerprint()", loadYAML(t))
	jsonPrint := texts(t, "ext:fingerprint()", item.NodeOf(fromJSON))
	require.Len(t, yamlPrint, 1)
	assert.Equal(t, yamlPrint, jsonPrint)
}

func TestModelFunctionErrors(t *testing.T) {
	_, err := eval(t, ext.StaticContext(), "ext:kind()", item.Int(1))
	assert.True(t, types.IsCode(err, types.ErrFocusNotNode))

	_, err = eval(t, ext.StaticContext(), "ext:has-flag('id')", nil)
	assert.True(t, types.IsCode(err, types.ErrContextAbsent))
}

func TestStringFunctions(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"ext:capitalize('hELLO wORLD')", []string{"Hello world"}},
		{"ext:title-case('access control')", []string{"Access Control"}},
		{"ext:camel-case('control-id')", []string{"controlId"}},
		{"ext:camel-case('Control ID')", []string{"controlId"}},
		{"ext:snake-case('controlId')", []string{"control_id"}},
		{"ext:kebab-case('Access Control')", []string{"access-control"}},
		{"ext:kebab-case(())", []string{""}},
		{"ext:repeat('ab', 3)", []string{"ababab"}},
		{"ext:words('  access   control ')", []string{"access", "control"}},
		{"ext:index-of-string('abcabc', 'bc')", []string{"2"}},
		{"ext:last-index-of-string('abcabc', 'bc')", []string{"5"}},
		{"ext:index-of-string('äbc', 'c')", []string{"3"}},
		{"ext:index-of-string('abc', 'z')", nil},
		{"ext:template('{id}: {title}', map{'id': 'ac-1', 'title': 'Policy'})", []string{"ac-1: Policy"}},
		{"ext:template('{missing}', map{})", []string{"{missing}"}},
		{"ext:template('{n}', map{'n': (1, 2)})", []string{"1 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := texts(t, tt.expr, nil)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := eval(t, ext.StaticContext(), "ext:repeat('a', -1)", nil)
	assert.True(t, types.IsCode(err, types.ErrInvalidArgumentType))
}

func TestCryptoFunctions(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"ext:hash('abc', 'sha256')", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{"ext:hash('abc', 'MD5')", "900150983cd24fb0d6963f7d28e17f72"},
		{"ext:hash('', 'xxh64')", "ef46db3751d8e999"},
		{"ext:hmac('The quick brown fox jumps over the lazy dog', 'key', 'sha256')", "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, []string{tt.want}, texts(t, tt.expr, nil))
		})
	}

	_, err := eval(t, ext.StaticContext(), "ext:hash('abc', 'crc32')", nil)
	assert.True(t, types.IsCode(err, types.ErrInvalidArgumentType))
}

func TestLibraryLayering(t *testing.T) {
	_, err := eval(t, nil, "ext:kind(.)", nil)
	assert.True(t, types.IsCode(err, types.ErrPrefixNotExpandable), "ext prefix is not bound by default")

	stringsOnly := ext.Bind(static.NewBuilder(), ext.String).Build()
	_, err = eval(t, stringsOnly, "ext:kind(.)", nil)
	assert.True(t, types.IsCode(err, types.ErrNoFunctionMatch))
	r, err := eval(t, stringsOnly, "upper-case(ext:camel-case('a-b'))", nil)
	require.NoError(t, err)
	assert.Equal(t, "AB", r[0].(*item.Atomic).String())

	kind := types.DefaultQNames.Intern(extutil.Namespace, "kind")
	assert.False(t, builtin.Library().HasName(kind), "built-in library must not be modified")
	assert.True(t, ext.Library().HasName(kind))
	assert.Len(t, ext.All(), len(ext.Library().Functions())-len(builtin.Library().Functions()))
}
