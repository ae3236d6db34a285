package memdoc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wandmagic/metapath/pkg/model"
)

// Format identifies a document serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("memdoc: cannot infer format of %q", path)
	}
}

// Parse reads a document in the given format.
func Parse(r io.Reader, format Format, opts Options) (*Node, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(r, opts)
	case FormatYAML:
		return ParseYAML(r, opts)
	default:
		return nil, fmt.Errorf("memdoc: unsupported format %q", format)
	}
}

// LoadFile reads a JSON or YAML file. The document's base URI is the
// file's absolute file: URI.
func LoadFile(path string, opts Options) (*Node, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if opts.BaseURI == "" {
		opts.BaseURI = FileURI(abs)
	}
	return Parse(f, format, opts)
}

// FileURI converts an absolute path to a file: URI.
func FileURI(abs string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// FileLoader loads documents from the local file system. Each URI is read
// at most once; later loads return the same document.
//
// Safe for concurrent use.
type FileLoader struct {
	opts   Options
	logger *slog.Logger

	mu   sync.Mutex
	docs map[string]*Node
}

var _ model.Loader = (*FileLoader)(nil)

// NewFileLoader creates a loader that maps documents with opts.
func NewFileLoader(opts Options, logger *slog.Logger) *FileLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileLoader{
		opts:   opts,
		logger: logger,
		docs:   make(map[string]*Node),
	}
}

// Load implements model.Loader. It accepts file: URIs and plain paths.
func (l *FileLoader) Load(ctx context.Context, uri string) (model.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := uri
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			return nil, fmt.Errorf("memdoc: unsupported URI scheme %q", u.Scheme)
		}
		path = filepath.FromSlash(u.Path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if doc, ok := l.docs[abs]; ok {
		return doc, nil
	}

	opts := l.opts
	opts.BaseURI = FileURI(abs)
	doc, err := LoadFile(abs, opts)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded document", "uri", opts.BaseURI)
	l.docs[abs] = doc
	return doc, nil
}
