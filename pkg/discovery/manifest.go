package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v3"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/web"
)

// Manifest is the serialized form of a set of type records. It is written
// by the Scanner and read by the Generator and the CLI.
type Manifest struct {
	// Module is the Go module path the types belong to.
	Module string `json:"module" yaml:"module"`

	// Types are the discovered types in source order.
	Types []TypeSpec `json:"types" yaml:"types"`
}

// TypeSpec describes one type.
type TypeSpec struct {
	Package    string       `json:"package" yaml:"package"`
	Name       string       `json:"name" yaml:"name"`
	Markers    []string     `json:"markers" yaml:"markers"`
	Namespace  string       `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Suffix     string       `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	Component  string       `json:"component,omitempty" yaml:"component,omitempty"`
	Scope      string       `json:"scope,omitempty" yaml:"scope,omitempty"`
	Implements []string     `json:"implements,omitempty" yaml:"implements,omitempty"`
	Aspects    []string     `json:"aspects,omitempty" yaml:"aspects,omitempty"`
	Decorator  string       `json:"decorator,omitempty" yaml:"decorator,omitempty"`
	Fields     []FieldSpec  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods    []MethodSpec `json:"methods,omitempty" yaml:"methods,omitempty"`
	File       string       `json:"file,omitempty" yaml:"file,omitempty"`
	Line       int          `json:"line,omitempty" yaml:"line,omitempty"`
}

// Key returns the type key.
func (s TypeSpec) Key() string {
	return s.Package + "." + s.Name
}

// FieldSpec describes one injectable field.
type FieldSpec struct {
	Name string `json:"name" yaml:"name"`

	// TypePackage and TypeName identify the field's type. TypePackage is
	// empty for predeclared types.
	TypePackage string `json:"typePackage,omitempty" yaml:"typePackage,omitempty"`
	TypeName    string `json:"typeName" yaml:"typeName"`
	Pointer     bool   `json:"pointer,omitempty" yaml:"pointer,omitempty"`

	Named    string `json:"named,omitempty" yaml:"named,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Key returns the dependency type key.
func (f FieldSpec) Key() string {
	if f.TypePackage == "" {
		return f.TypeName
	}
	return f.TypePackage + "." + f.TypeName
}

// MethodSpec describes one route or interceptor method.
type MethodSpec struct {
	Name   string   `json:"name" yaml:"name"`
	Method string   `json:"method" yaml:"method"`
	Paths  []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Suffix string   `json:"suffix,omitempty" yaml:"suffix,omitempty"`
	Line   int      `json:"line,omitempty" yaml:"line,omitempty"`
}

// Format is a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the encoding from a file name.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// DecodeManifest reads a manifest in the given format.
func DecodeManifest(r io.Reader, format Format) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.New(errors.CodeManifestParse).Wrap(err)
	}
	m := &Manifest{}
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, m)
	default:
		err = json.Unmarshal(data, m)
	}
	if err != nil {
		return nil, errors.New(errors.CodeManifestParse).Wrap(err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode writes the manifest in the given format.
func (m *Manifest) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
}

// LoadManifest reads a manifest file; the format follows the extension.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.CodeManifestParse).
			WithDetail("cannot open " + path).
			WithSuggestion("Run 'blade scan' to write the manifest").
			Wrap(err)
	}
	defer f.Close()
	return DecodeManifest(f, FormatFor(path))
}

// WriteFile writes the manifest; the format follows the extension.
func (m *Manifest) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := m.Encode(&buf, FormatFor(path)); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// GetObjectAPI is the subset of the S3 client used to fetch manifests.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadManifestS3 fetches a manifest object from S3.
func LoadManifestS3(ctx context.Context, client GetObjectAPI, bucket, key string) (*Manifest, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New(errors.CodeManifestParse).
			WithDetailf("s3://%s/%s", bucket, key).
			Wrap(err)
	}
	defer out.Body.Close()
	return DecodeManifest(out.Body, FormatFor(key))
}

// ParseS3URL splits an s3://bucket/key URL.
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}

// Validate checks that every spec names known markers, scopes and methods.
func (m *Manifest) Validate() error {
	for _, t := range m.Types {
		if t.Package == "" || t.Name == "" {
			return errors.New(errors.CodeManifestParse).
				WithDetailf("type %q in package %q is incomplete", t.Name, t.Package)
		}
		for _, mk := range t.Markers {
			if _, ok := ParseMarker(mk); !ok {
				return errors.New(errors.CodeManifestParse).
					WithDetailf("type %s: unknown marker %q", t.Key(), mk)
			}
		}
		if _, ok := ParseScope(t.Scope); !ok {
			return errors.New(errors.CodeManifestParse).
				WithDetailf("type %s: unknown scope %q", t.Key(), t.Scope)
		}
		for _, ms := range t.Methods {
			if _, ok := web.ParseMethod(ms.Method); !ok {
				return errors.New(errors.CodeManifestParse).
					WithDetailf("type %s method %s: unknown HTTP method %q", t.Key(), ms.Name, ms.Method)
			}
		}
	}
	return nil
}

// Placeholder stands in for instances of manifest-only types.
type Placeholder struct {
	Key    string
	fields map[string]any
}

// Field returns the value injected into a field of the placeholder.
func (p *Placeholder) Field(name string) any {
	return p.fields[name]
}

// Catalog converts the manifest into data-only type records. Instances are
// *Placeholder values and handler calls fail; the records serve route
// listing, matching and wiring checks without the application's code.
func (m *Manifest) Catalog() *Catalog {
	c := &Catalog{}
	for _, spec := range m.Types {
		c.Add(spec.Type())
	}
	return c
}

// Type converts a spec into a data-only record.
func (s TypeSpec) Type() *Type {
	key := s.Key()
	t := &Type{
		Key:           key,
		Package:       s.Package,
		Name:          s.Name,
		Namespace:     s.Namespace,
		Suffix:        s.Suffix,
		ComponentName: s.Component,
		Implements:    qualifyAll(s.Package, s.Implements),
		Aspects:       s.Aspects,
		New:           func() any { return &Placeholder{Key: key} },
	}
	for _, mk := range s.Markers {
		if m, ok := ParseMarker(mk); ok {
			t.Markers |= m
		}
	}
	t.Scope, _ = ParseScope(s.Scope)
	for _, f := range s.Fields {
		name := f.Name
		t.Deps = append(t.Deps, &Dependency{
			Field:    name,
			Key:      f.Key(),
			Name:     f.Named,
			Optional: f.Optional,
			Set: func(target, value any) error {
				p, ok := target.(*Placeholder)
				if !ok {
					return fmt.Errorf("field %s: target is %T", name, target)
				}
				if p.fields == nil {
					p.fields = make(map[string]any)
				}
				p.fields[name] = value
				return nil
			},
		})
	}
	for _, ms := range s.Methods {
		hm, _ := web.ParseMethod(ms.Method)
		name := ms.Name
		t.Methods = append(t.Methods, &Method{
			Name:       name,
			HTTPMethod: hm,
			Paths:      ms.Paths,
			Suffix:     ms.Suffix,
			Call: func(any, *web.Context) error {
				return fmt.Errorf("%s.%s has no generated binding", key, name)
			},
		})
	}
	return t
}

// qualifyAll turns bare interface names into keys in pkg.
func qualifyAll(pkg string, names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if p, _ := SplitKey(n); p == "" {
			n = pkg + "." + n
		}
		out = append(out, n)
	}
	return out
}
