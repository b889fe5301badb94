package discovery

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/web"
)

// Generator turns a Manifest into Go source declaring
//
//	func Types() []*discovery.Type
//
// with constructors, field setters and method calls bound statically.
type Generator struct {
	manifest *Manifest
	pkgName  string
}

// NewGenerator creates a generator writing package pkgName.
func NewGenerator(m *Manifest, pkgName string) *Generator {
	return &Generator{manifest: m, pkgName: pkgName}
}

// PackageNameFor derives a package name from an output file path.
func PackageNameFor(outputPath string) string {
	dir := path.Base(path.Dir(strings.ReplaceAll(outputPath, "\\", "/")))
	if dir == "." || dir == "/" || dir == "" {
		return "bladegen"
	}
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, dir)
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

type genImport struct {
	Alias string
	Path  string
}

type genType struct {
	Comment string
	Lines   []string
}

type genData struct {
	Package string
	Module  string
	Imports  []genImport
	Types    []genType
	NeedsWeb bool
}

var genTemplate = template.Must(template.New("types").Parse(`// Code generated by blade gen. DO NOT EDIT.
// Source module: {{.Module}}

package {{.Package}}

import (
	"github.com/blade-go/blade/pkg/discovery"
{{- if .NeedsWeb}}
	"github.com/blade-go/blade/pkg/web"
{{- end}}
{{range .Imports}}
	{{.Alias}} {{printf "%q" .Path}}
{{- end}}
)

// Types returns the component types discovered in {{.Module}}.
func Types() []*discovery.Type {
	return []*discovery.Type{
{{- range .Types}}
		// {{.Comment}}
{{- range .Lines}}
		{{.}}
{{- end}}
{{- end}}
	}
}
`))

// Generate returns gofmt'ed Go source.
func (g *Generator) Generate() ([]byte, error) {
	aliases := g.aliases()
	data := genData{Package: g.pkgName, Module: g.manifest.Module}

	paths := make([]string, 0, len(aliases))
	for p := range aliases {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		data.Imports = append(data.Imports, genImport{Alias: aliases[p], Path: p})
	}

	for _, spec := range g.manifest.Types {
		lines, err := g.typeLines(spec, aliases)
		if err != nil {
			return nil, err
		}
		data.Types = append(data.Types, genType{Comment: spec.Key(), Lines: lines})
		for _, m := range spec.Methods {
			if hm, _ := web.ParseMethod(m.Method); !hm.IsInterceptor() {
				data.NeedsWeb = true
			}
		}
	}

	var buf bytes.Buffer
	if err := genTemplate.Execute(&buf, data); err != nil {
		return nil, errors.New(errors.CodeGenerate).Wrap(err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.New(errors.CodeGenerate).
			WithDetail("generated source does not parse").
			Wrap(err)
	}
	return src, nil
}

// aliases assigns a unique import alias to every package referenced by the
// manifest.
func (g *Generator) aliases() map[string]string {
	used := map[string]bool{"discovery": true, "web": true}
	out := make(map[string]string)
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := out[p]; ok {
			return
		}
		base := defaultImportName(p)
		alias := base
		for i := 2; used[alias]; i++ {
			alias = base + strconv.Itoa(i)
		}
		used[alias] = true
		out[p] = alias
	}
	for _, t := range g.manifest.Types {
		add(t.Package)
	}
	for _, t := range g.manifest.Types {
		for _, f := range t.Fields {
			add(f.TypePackage)
		}
	}
	return out
}

func (g *Generator) typeLines(spec TypeSpec, aliases map[string]string) ([]string, error) {
	typ := aliases[spec.Package] + "." + spec.Name
	q := strconv.Quote

	lines := []string{fmt.Sprintf("discovery.Define(func() *%s { return &%s{} }).", typ, typ)}
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...)+".")
	}

	for _, mk := range spec.Markers {
		switch mk {
		case "controller":
			add("Controller(%s)", q(spec.Namespace))
			if spec.Suffix != "" {
				add("Suffix(%s)", q(spec.Suffix))
			}
		case "interceptor":
			add("Interceptor()")
		case "component":
			add("Component()")
		}
	}
	if spec.Component != "" {
		add("Named(%s)", q(spec.Component))
	}
	if sc, _ := ParseScope(spec.Scope); sc == Prototype {
		add("Scope(discovery.Prototype)")
	}
	if len(spec.Implements) > 0 {
		add("Implements(%s)", quoteAll(qualifyAll(spec.Package, spec.Implements)))
	}
	if len(spec.Aspects) > 0 {
		add("Aspects(%s)", quoteAll(spec.Aspects))
	}
	if spec.Decorator != "" {
		add("Decorate(%s.%s)", aliases[spec.Package], spec.Decorator)
	}

	for _, f := range spec.Fields {
		ftype := f.TypeName
		if f.TypePackage != "" {
			ftype = aliases[f.TypePackage] + "." + f.TypeName
		}
		if f.Pointer {
			ftype = "*" + ftype
		}
		dep := fmt.Sprintf("discovery.Field(%s, func(t *%s, v %s) { t.%s = v })", q(f.Name), typ, ftype, f.Name)
		if f.Named != "" {
			dep += fmt.Sprintf(".Named(%s)", q(f.Named))
		}
		if f.Optional {
			dep += ".AsOptional()"
		}
		add("Inject(%s)", dep)
	}

	for _, m := range spec.Methods {
		hm, ok := web.ParseMethod(m.Method)
		if !ok {
			return nil, errors.New(errors.CodeGenerate).
				WithDetailf("%s.%s: unknown method %q", spec.Key(), m.Name, m.Method)
		}
		call := fmt.Sprintf("(*%s).%s", typ, m.Name)
		args := q(m.Name)
		switch hm {
		case web.BEFORE:
			args += ", " + call
			add("Before(%s%s)", args, pathArgs(m.Paths))
		case web.AFTER:
			args += ", " + call
			add("After(%s%s)", args, pathArgs(m.Paths))
		default:
			add("Route(%s, web.%s, %s%s)", args, hm, call, pathArgs(m.Paths))
		}
		if m.Suffix != "" {
			add("MethodSuffix(%s)", q(m.Suffix))
		}
	}

	lines = append(lines, "Type(),")
	return lines, nil
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}

func pathArgs(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return ", " + quoteAll(paths)
}
