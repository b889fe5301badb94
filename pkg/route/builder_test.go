package route

import (
	"bytes"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/discovery"
	"github.com/blade-go/blade/pkg/ioc"
	"github.com/blade-go/blade/pkg/web"
)

type userController struct{ hits int }

func (u *userController) List(c *web.Context) error { u.hits++; return nil }
func (u *userController) Show(c *web.Context) error { u.hits++; return nil }

type authInterceptor struct{}

func (authInterceptor) Check(c *web.Context) error { return nil }
func (authInterceptor) Audit(c *web.Context) error { return nil }

type plainComponent struct{}

// inPackage moves a definition into a synthetic package so tests can
// exercise package selection.
func inPackage(t *discovery.Type, pkg string) *discovery.Type {
	t.Package = pkg
	t.Key = pkg + "." + t.Name
	return t
}

func newBuilder(types ...*discovery.Type) (*Builder, *Registry, *ioc.Container) {
	c := ioc.New()
	r := NewRegistry(nil)
	return NewBuilder(discovery.NewCatalog(types...), c, r, nil), r, c
}

func paths(es []*Entry) []string {
	var out []string
	for _, e := range es {
		out = append(out, string(e.Method)+" "+e.Path)
	}
	sort.Strings(out)
	return out
}

func TestBuildNormalizesUnderNamespace(t *testing.T) {
	users := inPackage(discovery.Define(func() *userController { return &userController{} }).
		Controller("/api").
		Route("List", web.GET, (*userController).List, "user", "/user/", "//user").
		Type(), "example.com/app/route")

	b, r, c := newBuilder(users)
	if err := b.Build(Packages{Routes: []string{"example.com/app/route"}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	handlers := r.Handlers()
	if len(handlers) != 1 || handlers[0].Path != "/api/user" {
		t.Fatalf("Handlers() = %v, want one /api/user entry", paths(handlers))
	}
	if !c.Has(users.Key) {
		t.Error("controller was not registered in the container")
	}
}

func TestBuildControllerAndInterceptor(t *testing.T) {
	users := inPackage(discovery.Define(func() *userController { return &userController{} }).
		Controller("/users").
		Suffix(".json").
		Route("List", web.GET, (*userController).List).
		Route("Show", web.GET, (*userController).Show, "/:id", "/by-id/:id").
		Route("Show", web.DELETE, (*userController).Show, "/:id").
		Type(), "example.com/app/route/v1")

	auth := inPackage(discovery.Define(func() *authInterceptor { return &authInterceptor{} }).
		Interceptor().
		Before("Check", (*authInterceptor).Check, "/users").MethodSuffix("/*").
		After("Audit", (*authInterceptor).Audit, "/").
		Type(), "example.com/app/interceptor")

	b, r, c := newBuilder(users, auth)
	err := b.Build(Packages{
		Routes:       []string{"example.com/app/route/..."},
		Interceptors: []string{"example.com/app/interceptor"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{
		"DELETE /users/:id.json",
		"GET /users.json",
		"GET /users/:id.json",
		"GET /users/by-id/:id.json",
	}
	if got := paths(r.Handlers()); !reflect.DeepEqual(got, want) {
		t.Errorf("handlers = %v, want %v", got, want)
	}
	if got, want := paths(r.Interceptors()), []string{"AFTER /", "BEFORE /users/*"}; !reflect.DeepEqual(got, want) {
		t.Errorf("interceptors = %v, want %v", got, want)
	}
	for _, e := range r.Interceptors() {
		if e.Method == web.BEFORE && e.Suffix != "/*" {
			t.Errorf("BEFORE suffix = %q, want /*", e.Suffix)
		}
	}
	if c.Len() != 2 {
		t.Errorf("container has %d components, want 2", c.Len())
	}

	plan, ok := r.Build().Match(web.GET, "/users/7.json")
	if !ok {
		t.Fatal("GET /users/7.json did not match")
	}
	if plan.Handler.Target.Name != "Show" || len(plan.Before) != 1 || len(plan.After) != 1 {
		t.Errorf("plan = handler %s, %d before, %d after", plan.Handler.Name(), len(plan.Before), len(plan.After))
	}
}

func TestBuildSkipsTypesWithoutMethods(t *testing.T) {
	empty := inPackage(discovery.Define(func() *plainComponent { return &plainComponent{} }).
		Controller("/empty").
		Type(), "example.com/app/route")

	b, r, c := newBuilder(empty)
	if err := b.Build(Packages{Routes: []string{"example.com/app/route"}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if r.Len() != 0 || c.Len() != 0 {
		t.Errorf("registry %d, container %d; want both empty", r.Len(), c.Len())
	}
	if len(b.Failures()) != 0 {
		t.Errorf("Failures() = %v, want none", b.Failures())
	}
}

func TestInvalidPathAbortsOnlyItsPackage(t *testing.T) {
	good := inPackage(discovery.Define(func() *userController { return &userController{} }).
		Controller("/good").
		Route("List", web.GET, (*userController).List).
		Type(), "example.com/app/good")

	okInBad := inPackage(discovery.Define(func() *userController { return &userController{} }).
		Controller("/fine").
		Route("List", web.GET, (*userController).List).
		Type(), "example.com/app/bad")
	okInBad.Key = "example.com/app/bad.fineController"

	broken := inPackage(discovery.Define(func() *authInterceptor { return &authInterceptor{} }).
		Controller("").
		Route("Check", web.GET, (*authInterceptor).Check, "/files/*/x").
		Type(), "example.com/app/bad")

	b, r, c := newBuilder(good, okInBad, broken)
	err := b.Build(Packages{Routes: []string{"example.com/app/good", "example.com/app/bad"}})
	if err != nil {
		t.Fatalf("Build() error = %v, want startup to continue", err)
	}

	if got := paths(r.Handlers()); !reflect.DeepEqual(got, []string{"GET /good"}) {
		t.Errorf("handlers = %v, want only the good package", got)
	}
	if c.Has(okInBad.Key) {
		t.Error("types of the aborted package were registered")
	}
	failures := b.Failures()
	if len(failures) != 1 || !errors.HasCode(failures[0], errors.CodeInvalidRoutePath) {
		t.Fatalf("Failures() = %v, want one %s", failures, errors.CodeInvalidRoutePath)
	}
}

func TestBuildBasePackage(t *testing.T) {
	users := inPackage(discovery.Define(func() *userController { return &userController{} }).
		Controller("/users").
		Route("List", web.GET, (*userController).List).
		Type(), "example.com/app/route/admin")
	auth := inPackage(discovery.Define(func() *authInterceptor { return &authInterceptor{} }).
		Interceptor().
		Before("Check", (*authInterceptor).Check, "/").
		Type(), "example.com/app/interceptor")

	routes, interceptors := Packages{Base: "example.com/app/...", Routes: []string{"example.com/app/route/..."}}.Expand()
	if !reflect.DeepEqual(routes, []string{"example.com/app/route/..."}) {
		t.Errorf("Expand() routes = %v", routes)
	}
	if !reflect.DeepEqual(interceptors, []string{"example.com/app/interceptor/..."}) {
		t.Errorf("Expand() interceptors = %v", interceptors)
	}

	b, r, _ := newBuilder(users, auth)
	if err := b.Build(Packages{Base: "example.com/app.*"}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("registry has %d entries, want 2", r.Len())
	}
}

func TestOverlappingScansRegisterOnce(t *testing.T) {
	users := inPackage(discovery.Define(func() *userController { return &userController{} }).
		Controller("/x").
		Route("List", web.GET, (*userController).List).
		Type(), "example.com/app/route")
	auth := inPackage(discovery.Define(func() *authInterceptor { return &authInterceptor{} }).
		Interceptor().
		Before("Check", (*authInterceptor).Check, "/").
		Type(), "example.com/app/interceptor/sub")

	var buf bytes.Buffer
	c := ioc.New()
	r := NewRegistry(slog.New(slog.NewTextHandler(&buf, nil)))
	b := NewBuilder(discovery.NewCatalog(users, auth), c, r, nil)

	pkgs := Packages{
		Base:         "example.com/app/...",
		Routes:       []string{"example.com/app/route"},
		Interceptors: []string{"example.com/app/interceptor/sub"},
	}
	// A second Build with the same packages must not add anything either.
	for i := 0; i < 2; i++ {
		if err := b.Build(pkgs); err != nil {
			t.Fatalf("Build() #%d error = %v", i+1, err)
		}
	}

	if n := len(r.Interceptors()); n != 1 {
		t.Errorf("Interceptors() = %d entries, want 1", n)
	}
	if n := len(r.Handlers()); n != 1 {
		t.Errorf("Handlers() = %d entries, want 1", n)
	}
	plan, ok := r.Build().Match(web.GET, "/x")
	if !ok {
		t.Fatal("GET /x did not match")
	}
	if len(plan.Before) != 1 {
		t.Errorf("BEFORE chain has %d entries, want 1", len(plan.Before))
	}
	if strings.Contains(buf.String(), "route replaced") {
		t.Errorf("rescanning the same controller logged a replacement: %s", buf.String())
	}
}

func TestDistinctInterceptorsShareAPath(t *testing.T) {
	auth := inPackage(discovery.Define(func() *authInterceptor { return &authInterceptor{} }).
		Interceptor().
		Before("Check", (*authInterceptor).Check, "/").
		Before("Audit", (*authInterceptor).Audit, "/").
		Type(), "example.com/app/interceptor")

	b, r, _ := newBuilder(auth)
	if err := b.Build(Packages{Interceptors: []string{"example.com/app/interceptor"}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if n := len(r.Interceptors()); n != 2 {
		t.Errorf("Interceptors() = %d entries, want 2", n)
	}
}

func TestNormalizePathError(t *testing.T) {
	_, err := NormalizePath("", "", "")
	if !errors.HasCode(err, errors.CodeInvalidRoutePath) {
		t.Errorf("NormalizePath(empty) error = %v, want %s", err, errors.CodeInvalidRoutePath)
	}
	got, err := NormalizePath("user", "/api", "")
	if err != nil || got != "/api/user" {
		t.Errorf("NormalizePath() = %q, %v", got, err)
	}
}
