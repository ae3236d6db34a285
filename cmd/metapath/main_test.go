package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandmagic/metapath/pkg/ext/extutil"
)

const catalogJSON = `{
  "catalog": {
    "uuid": "c7a9b7c0-6a52-4b1a-9d3b-8e8f1b2c3d4e",
    "group": [
      {"@id": "ac", "title": "Access Control",
       "control": [{"@id": "ac-1", "title": "Policy"}, {"@id": "ac-2", "title": "Account Management"}]},
      {"@id": "au", "title": "Audit",
       "control": [{"@id": "au-1", "title": "Audit Policy"}]}
    ]
  }
}`

const catalogYAML = `catalog:
  group:
    - "@id": ac
      control:
        - "@id": ac-1
          title: Policy
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the CLI with an isolated home directory.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(ConfigEnv, "")

	cmd := rootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestEvalCommand(t *testing.T) {
	dir := t.TempDir()
	jsonFile := writeFile(t, dir, "catalog.json", catalogJSON)
	yamlFile := writeFile(t, dir, "catalog.yaml", catalogYAML)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"arithmetic", []string{"eval", "-e", "1 + 2"}, []string{"3"}},
		{"positional", []string{"eval", "concat('a', 'b')"}, []string{"ab"}},
		{"sequence", []string{"eval", "1 to 3"}, []string{"1", "2", "3"}},
		{"flags from json", []string{"eval", "-f", jsonFile, "-e", "//control/@id"}, []string{"ac-1", "ac-2", "au-1"}},
		{"fields from yaml", []string{"eval", "-f", yamlFile, "//title"}, []string{"Policy"}},
		{"assembly path", []string{"eval", "-f", jsonFile, "(//group)[2]"}, []string{"/catalog[1]/group[2]"}},
		{"variable", []string{"eval", "--var", "who=world", "-e", "'hello ' || $who"}, []string{"hello world"}},
		{"array", []string{"eval", "-e", "[1, 2]"}, nil},
		{"trailing string literal", []string{"eval", "-e", "'a' || 'b'"}, []string{"ab"}},
		{"decimal division", []string{"eval", "-e", "5 div 2"}, []string{"2.5"}},
		{"rounding", []string{"eval", "-e", "round(2.5), round(-3.7 cast as integer)"}, []string{"3", "-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			require.NoError(t, err)
			if tt.want != nil {
				assert.Equal(t, tt.want, lines(out))
			} else {
				assert.NotEmpty(t, out)
			}
		})
	}
}

func TestEvalRelativeDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.yaml", catalogYAML)
	catalog := writeFile(t, dir, "catalog.json", catalogJSON)

	out, _, err := execute(t, "eval", "-f", catalog, "-e", "count(doc('other.yaml')//control)")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestEvalJSONOutput(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.json", catalogJSON)

	out, _, err := execute(t, "eval", "-f", file, "-o", "json", "-e", "(//control)[1]/@id, 42")
	require.NoError(t, err)

	var items []jsonItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "flag", items[0].Type)
	require.NotNil(t, items[0].Value)
	assert.Equal(t, "ac-1", *items[0].Value)
	assert.Contains(t, items[0].Path, "@id")
	assert.Equal(t, "integer", items[1].Type)
	require.NotNil(t, items[1].Value)
	assert.Equal(t, "42", *items[1].Value)
}

func TestEvalErrors(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.json", catalogJSON)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"syntax", []string{"eval", "-e", "1 +"}, "MPST0003"},
		{"division", []string{"eval", "-e", "1 idiv 0"}, "FOAR0001"},
		{"no expression", []string{"eval"}, "no expression given"},
		{"both forms", []string{"eval", "-e", "1", "2"}, "not both"},
		{"bad var", []string{"eval", "--var", "novalue", "-e", "1"}, "invalid --var"},
		{"unknown output", []string{"eval", "-o", "xml", "-e", "1"}, "unknown output format"},
		{"missing file", []string{"eval", "-f", filepath.Join(dir, "absent.json"), "-e", "1"}, "absent.json"},
		{"ext disabled", []string{"eval", "-f", file, "-e", "ext:kind(/catalog)"}, "MPST0081"},
		{"bad timezone", []string{"--timezone", "nowhere", "eval", "-e", "1"}, "invalid configuration"},
		{"bad log level", []string{"--log-level", "loud", "eval", "-e", "1"}, "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestEvalExtensions(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "catalog.yaml", catalogYAML)

	out, _, err := execute(t, "--ext", "eval", "-f", file, "-e", "ext:location((//control)[1])")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), ":5:11"), out)
}

func TestEvalTimezone(t *testing.T) {
	out, _, err := execute(t, "--timezone", "+05:00", "eval", "-e", "string(implicit-timezone())")
	require.NoError(t, err)
	assert.Equal(t, "PT5H\n", out)
}

func TestEvalMetrics(t *testing.T) {
	out, stderr, err := execute(t, "eval", "--metrics", "-e", "1")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
	assert.Contains(t, stderr, "metapath_evaluations_total")
}

func TestEvalDebugLogging(t *testing.T) {
	_, stderr, err := execute(t, "--log-level", "debug", "--log-format", "json", "eval", "-e", "1 + 2")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"evaluating node"`)
}

func TestCheckCommand(t *testing.T) {
	out, _, err := execute(t, "check", "-e", "//control[@id = 'ac-1']")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, _, err = execute(t, "check", "--tree", "1 + 2")
	require.NoError(t, err)
	assert.Contains(t, out, "Arithmetic")

	_, _, err = execute(t, "check", "-e", "unknown-function()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MPST0017")
}

func TestFunctionsCommand(t *testing.T) {
	out, _, err := execute(t, "functions")
	require.NoError(t, err)
	assert.Contains(t, out, "mp:count(")
	assert.Contains(t, out, "array:size(")
	assert.NotContains(t, out, extutil.Prefix+":")

	out, _, err = execute(t, "--ext", "functions", "--prefix", "ext")
	require.NoError(t, err)
	for _, l := range lines(out) {
		assert.True(t, strings.HasPrefix(l, "ext:"), l)
	}
	assert.Contains(t, out, "ext:fingerprint(")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "metapath version "))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "metapath.yaml", `
namespaces:
  oscal: http://csrc.nist.gov/ns/oscal/1.0
extensions: true
timezone: "-03:00"
`)

	out, _, err := execute(t, "--config", cfgPath, "eval", "-e", "string(implicit-timezone())")
	require.NoError(t, err)
	assert.Equal(t, "-PT3H\n", out)

	out, _, err = execute(t, "--config", cfgPath, "functions", "-p", "ext")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, _, err = execute(t, "--config", filepath.Join(dir, "missing.yaml"), "eval", "-e", "1")
	require.Error(t, err)
}

func TestConfigMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{
		Namespaces: map[string]string{"a": "urn:a"},
		Timezone:   "Z",
		Log:        LogConfig{Level: "debug"},
	})
	cfg.Merge(&Config{
		Namespaces: map[string]string{"b": "urn:b"},
		Timeout:    time.Second,
		Extensions: true,
	})
	cfg.Merge(nil)

	assert.Equal(t, map[string]string{"a": "urn:a", "b": "urn:b"}, cfg.Namespaces)
	assert.Equal(t, "Z", cfg.Timezone)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Extensions)
	assert.False(t, cfg.ScalarsAsFlags)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Timezone = "+25:00"
	cfg.Log.Format = "xml"
	cfg.Timeout = -time.Second
	cfg.Namespaces = map[string]string{"a:b": "urn:x"}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"log format", "timeout", "namespace prefix"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestConfigStaticContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Namespaces = map[string]string{"o": "urn:o"}
	cfg.DefaultNamespace = "urn:o"

	sc := cfg.StaticContext("file:///doc.json")
	uri, ok := sc.Namespace("o")
	require.True(t, ok)
	assert.Equal(t, "urn:o", uri)
	assert.Equal(t, "urn:o", sc.DefaultModelNamespace())
	assert.Equal(t, "file:///doc.json", sc.BaseURI())
	_, ok = sc.Namespace(extutil.Prefix)
	assert.False(t, ok)

	cfg.BaseURI = "urn:base"
	cfg.Extensions = true
	sc = cfg.StaticContext("file:///doc.json")
	assert.Equal(t, "urn:base", sc.BaseURI())
	uri, ok = sc.Namespace(extutil.Prefix)
	require.True(t, ok)
	assert.Equal(t, extutil.Namespace, uri)
}

func TestLoaderPrecedence(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, UserConfigDir), 0o700))
	writeFile(t, filepath.Join(home, UserConfigDir), UserConfigFile, "timezone: Z\nlog:\n  level: info\n")
	envFile := writeFile(t, t.TempDir(), "env.yaml", "log:\n  level: error\n")

	l := NewLoader(nil)
	l.home = func() (string, error) { return home, nil }
	l.getenv = func(key string) string {
		if key == ConfigEnv {
			return envFile
		}
		return ""
	}

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "Z", cfg.Timezone)
	assert.Equal(t, "error", cfg.Log.Level)

	explicit := writeFile(t, t.TempDir(), "explicit.yaml", "log:\n  format: json\n")
	cfg, err = l.Load(explicit)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoaderIgnoresMissingUserConfig(t *testing.T) {
	l := NewLoader(nil)
	l.home = func() (string, error) { return "", errors.New("no home") }
	l.getenv = func(string) string { return "" }

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
