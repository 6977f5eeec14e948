package yamldoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"dario.cat/mergo"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Document is a decoded YAML mapping.
type Document map[string]any

// DefaultFileMode is used for every document written by the launcher.
const DefaultFileMode os.FileMode = 0o644

// ErrNotMapping is returned when the top level of a document is not a mapping.
var ErrNotMapping = errors.New("document is not a key-value mapping")

// Load reads and decodes the document at path. An empty file yields an empty document.
func Load(fsys afero.Fs, path string) (Document, error) {
	contents, err := afero.ReadFile(fsys, filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	return Parse(contents)
}

// Parse decodes YAML bytes into a Document.
func Parse(contents []byte) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	if raw == nil {
		return Document{}, nil
	}

	doc, ok := asDocument(raw)
	if !ok {
		return nil, ErrNotMapping
	}

	return doc, nil
}

// Write encodes doc and stores it at path, creating parent folders.
func Write(fsys afero.Fs, doc Document, path string) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}

	path = filepath.Clean(path)
	if err = fsys.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create document folder: %w", err)
	}

	if err = afero.WriteFile(fsys, path, data, DefaultFileMode); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return nil
}

// Marshal encodes the document as YAML.
func (d Document) Marshal() ([]byte, error) {
	if d == nil {
		d = Document{}
	}

	data, err := yaml.Marshal(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	return data, nil
}

// Get walks the key path and returns the value found there.
func (d Document) Get(keys ...string) (any, bool) {
	var current any = d

	for _, key := range keys {
		m, ok := asDocument(current)
		if !ok {
			return nil, false
		}

		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// Has reports whether the key path holds a non-null value.
func (d Document) Has(keys ...string) bool {
	v, ok := d.Get(keys...)

	return ok && v != nil
}

// String returns the scalar at the key path formatted as text, or "".
func (d Document) String(keys ...string) string {
	v, ok := d.Get(keys...)
	if !ok || v == nil {
		return ""
	}

	switch value := v.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(value)
	}
}

// StringOr is String with a fallback for absent or empty values.
func (d Document) StringOr(fallback string, keys ...string) string {
	if s := d.String(keys...); s != "" {
		return s
	}

	return fallback
}

// Int returns the integer at the key path or fallback when absent or not numeric.
func (d Document) Int(fallback int, keys ...string) int {
	v, ok := d.Get(keys...)
	if !ok || v == nil {
		return fallback
	}

	switch value := v.(type) {
	case int:
		return value
	case float64:
		return int(value)
	case string:
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}

	return fallback
}

// Section returns the nested mapping at the key path, or nil.
func (d Document) Section(keys ...string) Document {
	v, ok := d.Get(keys...)
	if !ok {
		return nil
	}

	m, _ := asDocument(v)

	return m
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	out, _ := cloneValue(map[string]any(d)).(map[string]any)

	return out
}

// Nested builds a document holding value at the key path.
func Nested(value any, keys ...string) Document {
	if len(keys) == 0 {
		return Document{}
	}

	out := Document{keys[len(keys)-1]: value}
	for i := len(keys) - 2; i >= 0; i-- {
		out = Document{keys[i]: map[string]any(out)}
	}

	return out
}

// Merge returns a new document with overlay applied on top of base.
// Nested mappings are merged key by key; other overlay values replace base values.
// Neither input is modified.
func Merge(base, overlay Document) (Document, error) {
	dst := base.Clone()
	if dst == nil {
		dst = Document{}
	}

	src := overlay.Clone()
	if src == nil {
		return dst, nil
	}

	out := map[string]any(dst)
	if err := mergo.Merge(&out, map[string]any(src), mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}

	return Document(out), nil
}

// asDocument accepts both Document and the plain map type produced by yaml.v3.
func asDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}

// cloneValue copies maps and slices recursively; scalars are shared.
func cloneValue(v any) any {
	switch value := v.(type) {
	case Document:
		return cloneValue(map[string]any(value))
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}

		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return value
	}
}
