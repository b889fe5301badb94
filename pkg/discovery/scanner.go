package discovery

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/web"
)

const directivePrefix = "//blade:"

// Scanner reads blade directives from the Go source under a directory and
// produces a Manifest.
type Scanner struct {
	rootDir string
	module  string
}

// NewScanner creates a scanner for rootDir. The module path is read from
// rootDir/go.mod unless set with WithModule.
func NewScanner(rootDir string) *Scanner {
	return &Scanner{rootDir: rootDir}
}

// WithModule sets the module path used to compute import paths.
func (s *Scanner) WithModule(module string) *Scanner {
	s.module = module
	return s
}

// Scan walks the source tree. Directories starting with "." or "_",
// testdata and vendor are skipped, as are test files.
func (s *Scanner) Scan() (*Manifest, error) {
	module := s.module
	if module == "" {
		var err error
		if module, err = ModulePath(s.rootDir); err != nil {
			return nil, err
		}
	}

	var dirs []string
	err := filepath.WalkDir(s.rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != s.rootDir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "vendor") {
			return filepath.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	m := &Manifest{Module: module}
	for _, dir := range dirs {
		rel, err := filepath.Rel(s.rootDir, dir)
		if err != nil {
			return nil, err
		}
		importPath := module
		if rel != "." {
			importPath = path.Join(module, filepath.ToSlash(rel))
		}
		types, err := s.scanPackage(dir, importPath)
		if err != nil {
			return nil, err
		}
		m.Types = append(m.Types, types...)
	}
	return m, nil
}

// ModulePath reads the module path from dir/go.mod.
func ModulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", errors.New(errors.CodeDiscoveryFailed).
			WithDetail("cannot read go.mod in " + dir).
			Wrap(err)
	}
	mod := modfile.ModulePath(data)
	if mod == "" {
		return "", errors.New(errors.CodeDiscoveryFailed).
			WithDetail("module declaration not found in " + filepath.Join(dir, "go.mod"))
	}
	return mod, nil
}

// pkgScan accumulates one package's specs across files.
type pkgScan struct {
	importPath string
	fset       *token.FileSet
	types      []*TypeSpec
	byName     map[string]*TypeSpec
	methods    map[string][]pendingMethod
}

type pendingMethod struct {
	spec MethodSpec
	pos  token.Position
}

func (s *Scanner) scanPackage(dir, importPath string) ([]TypeSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)

	ps := &pkgScan{
		importPath: importPath,
		fset:       token.NewFileSet(),
		byName:     make(map[string]*TypeSpec),
		methods:    make(map[string][]pendingMethod),
	}
	for _, file := range files {
		if err := ps.scanFile(file); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(ps.methods))
	for name := range ps.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pending := ps.methods[name]
		t, ok := ps.byName[name]
		if !ok {
			p := pending[0].pos
			return nil, directiveError(p, "method %s.%s has a blade directive but type %s is not marked", name, pending[0].spec.Name, name)
		}
		for _, pm := range pending {
			t.Methods = append(t.Methods, pm.spec)
		}
	}

	out := make([]TypeSpec, 0, len(ps.types))
	for _, t := range ps.types {
		out = append(out, *t)
	}
	return out, nil
}

func (ps *pkgScan) scanFile(file string) error {
	f, err := parser.ParseFile(ps.fset, file, nil, parser.ParseComments)
	if err != nil {
		return errors.New(errors.CodeDirective).
			WithDetail("cannot parse " + file).
			Wrap(err)
	}
	imports := importAliases(f)

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts := spec.(*ast.TypeSpec)
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					doc = d.Doc
				}
				if err := ps.scanType(ts, doc, imports); err != nil {
					return err
				}
			}
		case *ast.FuncDecl:
			if err := ps.scanMethod(d); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ps *pkgScan) scanType(ts *ast.TypeSpec, doc *ast.CommentGroup, imports map[string]string) error {
	dirs := directives(ps.fset, doc)
	if len(dirs) == 0 {
		return nil
	}

	pos := ps.fset.Position(ts.Pos())
	spec := &TypeSpec{
		Package: ps.importPath,
		Name:    ts.Name.Name,
		File:    pos.Filename,
		Line:    pos.Line,
	}

	for _, dv := range dirs {
		switch dv.verb {
		case "controller":
			addMarker(spec, "controller")
			if len(dv.args) > 0 {
				spec.Namespace = dv.args[0]
			}
			spec.Suffix = dv.opts["suffix"]
		case "interceptor":
			addMarker(spec, "interceptor")
		case "component":
			addMarker(spec, "component")
			spec.Component = dv.opts["name"]
			if sc, ok := dv.opts["scope"]; ok {
				if _, valid := ParseScope(sc); !valid {
					return directiveError(dv.pos, "unknown scope %q", sc)
				}
				spec.Scope = sc
			}
		case "aspect":
			spec.Aspects = append(spec.Aspects, dv.args...)
		case "implements":
			for _, name := range dv.args {
				spec.Implements = append(spec.Implements, resolveName(name, ps.importPath, imports))
			}
		case "decorator":
			if len(dv.args) != 1 {
				return directiveError(dv.pos, "decorator takes one function name")
			}
			spec.Decorator = dv.args[0]
		default:
			return directiveError(dv.pos, "unknown type directive %q", dv.verb)
		}
	}
	if len(spec.Markers) == 0 {
		return directiveError(ps.fset.Position(doc.Pos()), "type %s has blade directives but no controller, interceptor or component marker", spec.Name)
	}

	if st, ok := ts.Type.(*ast.StructType); ok {
		for _, field := range st.Fields.List {
			fieldSpec, err := ps.scanField(field, imports)
			if err != nil {
				return err
			}
			if fieldSpec != nil {
				spec.Fields = append(spec.Fields, *fieldSpec)
			}
		}
	}

	if _, dup := ps.byName[spec.Name]; !dup {
		ps.types = append(ps.types, spec)
		ps.byName[spec.Name] = spec
	}
	return nil
}

func (ps *pkgScan) scanField(field *ast.Field, imports map[string]string) (*FieldSpec, error) {
	var dirs []directive
	dirs = append(dirs, directives(ps.fset, field.Doc)...)
	dirs = append(dirs, directives(ps.fset, field.Comment)...)
	if len(dirs) == 0 {
		return nil, nil
	}

	dv := dirs[0]
	if dv.verb != "inject" {
		return nil, directiveError(dv.pos, "unknown field directive %q", dv.verb)
	}
	if len(field.Names) != 1 {
		return nil, directiveError(dv.pos, "inject needs exactly one named field")
	}

	out := &FieldSpec{
		Name:  field.Names[0].Name,
		Named: dv.opts["name"],
	}
	_, out.Optional = dv.opts["optional"]

	expr := field.Type
	if star, ok := expr.(*ast.StarExpr); ok {
		out.Pointer = true
		expr = star.X
	}
	switch x := expr.(type) {
	case *ast.Ident:
		out.TypeName = x.Name
		if !isPredeclared(x.Name) {
			out.TypePackage = ps.importPath
		}
	case *ast.SelectorExpr:
		alias, ok := x.X.(*ast.Ident)
		if !ok {
			return nil, directiveError(dv.pos, "unsupported field type for %s", out.Name)
		}
		pkg, ok := imports[alias.Name]
		if !ok {
			return nil, directiveError(dv.pos, "unknown package %q for field %s", alias.Name, out.Name)
		}
		out.TypePackage = pkg
		out.TypeName = x.Sel.Name
	default:
		return nil, directiveError(dv.pos, "unsupported field type for %s", out.Name)
	}
	return out, nil
}

func (ps *pkgScan) scanMethod(fd *ast.FuncDecl) error {
	dirs := directives(ps.fset, fd.Doc)
	if len(dirs) == 0 {
		return nil
	}
	if fd.Recv == nil || len(fd.Recv.List) != 1 {
		return directiveError(dirs[0].pos, "blade directive on function %s; only methods can be routes", fd.Name.Name)
	}
	recv := receiverName(fd.Recv.List[0].Type)
	if recv == "" {
		return directiveError(dirs[0].pos, "cannot determine receiver of %s", fd.Name.Name)
	}
	if !isHandlerSignature(fd.Type) {
		return directiveError(dirs[0].pos, "%s.%s must have signature func(*web.Context) error", recv, fd.Name.Name)
	}

	for _, dv := range dirs {
		ms := MethodSpec{
			Name:   fd.Name.Name,
			Suffix: dv.opts["suffix"],
			Line:   dv.pos.Line,
		}
		switch dv.verb {
		case "route":
			if len(dv.args) == 0 {
				return directiveError(dv.pos, "route needs an HTTP method")
			}
			m, ok := web.ParseMethod(dv.args[0])
			if !ok || m.IsInterceptor() {
				return directiveError(dv.pos, "invalid HTTP method %q", dv.args[0])
			}
			ms.Method = string(m)
			ms.Paths = dv.args[1:]
		case "before":
			ms.Method = string(web.BEFORE)
			ms.Paths = dv.args
		case "after":
			ms.Method = string(web.AFTER)
			ms.Paths = dv.args
		default:
			return directiveError(dv.pos, "unknown method directive %q", dv.verb)
		}
		ps.methods[recv] = append(ps.methods[recv], pendingMethod{spec: ms, pos: dv.pos})
	}
	return nil
}

// directive is one parsed //blade: comment line.
type directive struct {
	verb string
	args []string
	opts map[string]string
	pos  token.Position
}

func directives(fset *token.FileSet, cg *ast.CommentGroup) []directive {
	if cg == nil {
		return nil
	}
	var out []directive
	for _, c := range cg.List {
		if !strings.HasPrefix(c.Text, directivePrefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(c.Text, directivePrefix))
		if len(fields) == 0 {
			continue
		}
		dv := directive{
			verb: strings.ToLower(fields[0]),
			opts: make(map[string]string),
			pos:  fset.Position(c.Pos()),
		}
		for _, f := range fields[1:] {
			if k, v, ok := strings.Cut(f, "="); ok && optionKey.MatchString(k) {
				dv.opts[k] = unquote(v)
				continue
			}
			if f == "optional" {
				dv.opts[f] = ""
				continue
			}
			dv.args = append(dv.args, unquote(f))
		}
		out = append(out, dv)
	}
	return out
}

var optionKey = regexp.MustCompile(`^(suffix|name|scope)$`)

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}

func addMarker(spec *TypeSpec, name string) {
	for _, m := range spec.Markers {
		if m == name {
			return
		}
	}
	spec.Markers = append(spec.Markers, name)
}

func receiverName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func isHandlerSignature(ft *ast.FuncType) bool {
	if ft.Params == nil || len(ft.Params.List) != 1 || len(ft.Params.List[0].Names) > 1 {
		return false
	}
	star, ok := ft.Params.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Context" {
		return false
	}
	if ft.Results == nil || len(ft.Results.List) != 1 {
		return false
	}
	id, ok := ft.Results.List[0].Type.(*ast.Ident)
	return ok && id.Name == "error"
}

// importAliases maps the local name of every import to its path.
func importAliases(f *ast.File) map[string]string {
	out := make(map[string]string)
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if imp.Name != nil {
			out[imp.Name.Name] = p
			continue
		}
		out[defaultImportName(p)] = p
	}
	return out
}

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

func defaultImportName(p string) string {
	parts := strings.Split(p, "/")
	name := parts[len(parts)-1]
	if majorVersion.MatchString(name) && len(parts) > 1 {
		name = parts[len(parts)-2]
	}
	if strings.HasPrefix(p, "gopkg.in/") {
		name, _, _ = strings.Cut(name, ".v")
	}
	return strings.ReplaceAll(name, "-", "_")
}

// resolveName turns "Repo" or "store.Repo" into a type key.
func resolveName(name, importPath string, imports map[string]string) string {
	if alias, typ, ok := strings.Cut(name, "."); ok && !strings.Contains(typ, ".") {
		if p, found := imports[alias]; found {
			return p + "." + typ
		}
		return name
	}
	return importPath + "." + name
}

var predeclared = map[string]bool{
	"any": true, "bool": true, "byte": true, "error": true, "float32": true,
	"float64": true, "int": true, "int8": true, "int16": true, "int32": true,
	"int64": true, "rune": true, "string": true, "uint": true, "uint8": true,
	"uint16": true, "uint32": true, "uint64": true, "uintptr": true,
}

func isPredeclared(name string) bool {
	return predeclared[name]
}

func directiveError(pos token.Position, format string, args ...any) error {
	return errors.New(errors.CodeDirective).
		WithDetail(fmt.Sprintf(format, args...)).
		WithLocation(pos.Filename, pos.Line, pos.Column)
}
