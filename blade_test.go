package blade

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"testing"

	"github.com/blade-go/blade/internal/config"
	"github.com/blade-go/blade/internal/errors"
	"github.com/blade-go/blade/pkg/aop"
	"github.com/blade-go/blade/pkg/discovery"
	"github.com/blade-go/blade/pkg/ioc"
	"github.com/blade-go/blade/pkg/route"
	"github.com/blade-go/blade/pkg/web"
)

const testPkg = "github.com/blade-go/blade"

var errBoom = stderrors.New("boom")

type Recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *Recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, s)
}

func (r *Recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.steps
	r.steps = nil
	return out
}

type ShopController struct{ Rec *Recorder }

func (s *ShopController) List(c *web.Context) error { s.Rec.add("list"); return nil }
func (s *ShopController) Show(c *web.Context) error { s.Rec.add("show:" + c.Param("id")); return nil }
func (s *ShopController) Fail(c *web.Context) error { s.Rec.add("fail"); return errBoom }
func (s *ShopController) Stop(c *web.Context) error { s.Rec.add("stop"); c.Abort(); return nil }
func (s *ShopController) Crash(c *web.Context) error { panic("crash") }

type Guard struct{ Rec *Recorder }

func (g *Guard) Root(c *web.Context) error  { g.Rec.add("before:/"); return nil }
func (g *Guard) Admin(c *web.Context) error { g.Rec.add("before:/shop/admin"); return nil }
func (g *Guard) Audit(c *web.Context) error { g.Rec.add("after:/"); return nil }

func recorderType() *discovery.Type {
	return discovery.Define(func() *Recorder { return &Recorder{} }).Component().Type()
}

func shopType() *discovery.Type {
	return discovery.Define(func() *ShopController { return &ShopController{} }).
		Controller("/shop").
		Inject(discovery.Field("Rec", func(s *ShopController, r *Recorder) { s.Rec = r })).
		Route("List", web.GET, (*ShopController).List, "/", "/admin/items").
		Route("Show", web.GET, (*ShopController).Show, "/items/:id").
		Route("Fail", web.POST, (*ShopController).Fail, "/items").
		Route("Stop", web.GET, (*ShopController).Stop, "/stop").
		Route("Crash", web.GET, (*ShopController).Crash, "/crash").
		Type()
}

func guardType() *discovery.Type {
	return discovery.Define(func() *Guard { return &Guard{} }).
		Interceptor().
		Inject(discovery.Field("Rec", func(g *Guard, r *Recorder) { g.Rec = r })).
		Before("Root", (*Guard).Root, "/").
		Before("Admin", (*Guard).Admin, "/shop/admin").
		After("Audit", (*Guard).Audit, "/").
		Type()
}

func newApp(t *testing.T, opts ...Option) (*Blade, *Recorder) {
	t.Helper()
	opts = append([]Option{WithTypes(recorderType(), shopType(), guardType())}, opts...)
	app := New(opts...).Routes(testPkg).Interceptor(testPkg).Ioc(testPkg)
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	rec, ok := component[*Recorder](app)
	if !ok {
		t.Fatal("recorder not registered")
	}
	return app, rec
}

// component fetches a singleton by type.
func component[T any](app *Blade) (T, bool) {
	v, ok := app.Container().Lookup(discovery.KeyOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func dispatch(t *testing.T, app *Blade, m web.Method, path string) (matched bool, err error) {
	t.Helper()
	plan, ok := app.Match(m, path)
	if !ok {
		return false, nil
	}
	return true, app.Dispatch(web.NewTestContext(m, path), plan)
}

func TestDispatchOrder(t *testing.T) {
	app, rec := newApp(t)

	tests := []struct {
		method web.Method
		path   string
		want   []string
	}{
		{web.GET, "/shop", []string{"before:/", "list", "after:/"}},
		{web.GET, "/shop/admin/items", []string{"before:/", "before:/shop/admin", "list", "after:/"}},
		{web.GET, "/shop/items/9", []string{"before:/", "show:9", "after:/"}},
	}
	for _, tc := range tests {
		if ok, err := dispatch(t, app, tc.method, tc.path); !ok || err != nil {
			t.Fatalf("%s %s: matched=%v err=%v", tc.method, tc.path, ok, err)
		}
		if got := rec.take(); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s %s steps = %v, want %v", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestAfterRunsWhenHandlerFails(t *testing.T) {
	app, rec := newApp(t)

	ok, err := dispatch(t, app, web.POST, "/shop/items")
	if !ok || !stderrors.Is(err, errBoom) {
		t.Fatalf("Dispatch() = %v, want errBoom", err)
	}
	if got, want := rec.take(), []string{"before:/", "fail", "after:/"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
}

func TestAbortSkipsAfter(t *testing.T) {
	app, rec := newApp(t)

	if _, err := dispatch(t, app, web.GET, "/shop/stop"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got, want := rec.take(), []string{"before:/", "stop"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
}

func TestBeforeAbortStopsHandler(t *testing.T) {
	app, rec := newApp(t)
	app.Before("/shop", func(c *web.Context) error {
		c.Abort()
		return nil
	})

	plan, ok := app.Match(web.GET, "/shop")
	if !ok {
		t.Fatal("GET /shop did not match")
	}
	if err := app.Dispatch(web.NewTestContext(web.GET, "/shop"), plan); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got, want := rec.take(), []string{"before:/"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
	if plan.State() != route.StateDone {
		t.Errorf("State() = %s, want done", plan.State())
	}
}

func TestPanicSkipsAfter(t *testing.T) {
	app, rec := newApp(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was recovered by Dispatch")
			}
		}()
		dispatch(t, app, web.GET, "/shop/crash")
	}()
	if got, want := rec.take(), []string{"before:/"}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %v, want %v", got, want)
	}
}

func TestMatchMisses(t *testing.T) {
	app := New(WithTypes(recorderType(), shopType())).Routes(testPkg).Ioc(testPkg)
	if _, ok := app.Match(web.GET, "/shop"); ok {
		t.Error("Match() before Init should miss")
	}
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, ok := app.Match(web.GET, "/nope"); ok {
		t.Error("Match(/nope) should miss")
	}
	if _, ok := app.Match(web.PUT, "/shop"); ok {
		t.Error("PUT /shop should miss")
	}
}

func TestUnresolvedDependencyFailsInit(t *testing.T) {
	app := New(WithTypes(shopType())).Routes(testPkg)
	err := app.Init(context.Background())
	if !errors.HasCode(err, errors.CodeUnresolvedDependency) {
		t.Fatalf("Init() error = %v, want %s", err, errors.CodeUnresolvedDependency)
	}
	if app.Initialized() || app.Table() != nil {
		t.Error("failed Init published a table")
	}
}

func TestInitRetryAfterFailure(t *testing.T) {
	app := New(WithTypes(shopType(), guardType())).Routes(testPkg).Interceptor(testPkg).Ioc(testPkg)
	if err := app.Init(context.Background()); !errors.HasCode(err, errors.CodeUnresolvedDependency) {
		t.Fatalf("Init() error = %v, want %s", err, errors.CodeUnresolvedDependency)
	}

	app.Catalog().Add(recorderType())
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() retry error = %v", err)
	}
	if n := len(app.Registry().Interceptors()); n != 3 {
		t.Errorf("Interceptors() = %d entries after retry, want 3", n)
	}
	plan, ok := app.Match(web.GET, "/shop/admin/items")
	if !ok {
		t.Fatal("GET /shop/admin/items did not match")
	}
	if len(plan.Before) != 2 || len(plan.After) != 1 {
		t.Errorf("plan has %d before and %d after, want 2 and 1", len(plan.Before), len(plan.After))
	}
}

type recordingPlugin struct {
	name  string
	log   *[]string
	calls int
}

func (p *recordingPlugin) Destroy() {
	p.calls++
	*p.log = append(*p.log, p.name)
}

type otherPlugin struct{ recordingPlugin }

func TestDestroyRunsPluginsOnceInOrder(t *testing.T) {
	app, _ := newApp(t)
	var log []string
	first := &recordingPlugin{name: "first", log: &log}
	second := &otherPlugin{recordingPlugin{name: "second", log: &log}}

	k1, err := app.RegisterPlugin(first)
	if err != nil {
		t.Fatalf("RegisterPlugin() error = %v", err)
	}
	if _, err := app.RegisterPlugin(second); err != nil {
		t.Fatalf("RegisterPlugin() error = %v", err)
	}
	if _, err := app.RegisterPlugin(first); err != nil {
		t.Fatalf("RegisterPlugin(again) error = %v", err)
	}

	if p, ok := app.Plugin(k1); !ok || p != first {
		t.Errorf("Plugin(%q) = %v, %v", k1, p, ok)
	}
	if p, ok := PluginOf[*otherPlugin](app); !ok || p != second {
		t.Errorf("PluginOf() = %v, %v", p, ok)
	}

	app.Destroy()
	app.Destroy()

	if !reflect.DeepEqual(log, []string{"first", "second"}) {
		t.Errorf("destroy order = %v, want [first second]", log)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("destroy calls = %d, %d; want 1 each", first.calls, second.calls)
	}
	if app.Container().Len() != 0 {
		t.Error("container not cleared")
	}
	if _, ok := app.Match(web.GET, "/shop"); ok {
		t.Error("Match() after Destroy should miss")
	}
}

func TestProgrammaticRoutes(t *testing.T) {
	app := New()
	var got []string
	app.Get("/hello/:name", func(c *web.Context) error {
		got = append(got, "hello "+c.Param("name"))
		return nil
	}).Any("/ping", func(c *web.Context) error {
		got = append(got, "ping")
		return nil
	}).Get("/bad/*/x", func(c *web.Context) error { return nil })

	if n := len(app.Failures()); n != 1 {
		t.Fatalf("Failures() = %d, want 1", n)
	}
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	app.Post("/late", func(c *web.Context) error {
		got = append(got, "late")
		return nil
	})

	for _, r := range []struct {
		m web.Method
		p string
	}{{web.GET, "/hello/ada"}, {web.DELETE, "/ping"}, {web.POST, "/late"}} {
		if ok, err := dispatch(t, app, r.m, r.p); !ok || err != nil {
			t.Fatalf("%s %s: matched=%v err=%v", r.m, r.p, ok, err)
		}
	}
	if want := []string{"hello ada", "ping", "late"}; !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestRouteTo(t *testing.T) {
	app := New(WithTypes(recorderType())).Ioc(testPkg)
	if err := app.RouteTo("/legacy", shopType(), "List", web.GET); err != nil {
		t.Fatalf("RouteTo() error = %v", err)
	}
	if err := app.RouteTo("/x", shopType(), "Missing", web.GET); !errors.HasCode(err, errors.CodeInvalidRoutePath) {
		t.Errorf("RouteTo(missing method) error = %v", err)
	}
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if ok, err := dispatch(t, app, web.GET, "/legacy"); !ok || err != nil {
		t.Fatalf("GET /legacy: matched=%v err=%v", ok, err)
	}
}

func TestRouteToAfterInit(t *testing.T) {
	app := New(WithTypes(recorderType())).Ioc(testPkg)
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if err := app.RouteTo("/late", shopType(), "List", web.GET); err != nil {
		t.Fatalf("RouteTo() error = %v", err)
	}
	if ok, err := dispatch(t, app, web.GET, "/late"); !ok || err != nil {
		t.Fatalf("GET /late: matched=%v err=%v", ok, err)
	}
	rec, err := ioc.Get[*Recorder](app.Container())
	if err != nil {
		t.Fatalf("Get[*Recorder]() error = %v", err)
	}
	if got := rec.take(); !reflect.DeepEqual(got, []string{"list"}) {
		t.Errorf("steps = %v, want [list]", got)
	}
}

type Ledger struct{ Guard *Guard }

func (l *Ledger) List(c *web.Context) error { return nil }

func TestRouteToAfterInitUnresolved(t *testing.T) {
	app := New(WithTypes(recorderType())).Ioc(testPkg)
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ledger := discovery.Define(func() *Ledger { return &Ledger{} }).
		Controller("").
		Inject(discovery.Field("Guard", func(l *Ledger, g *Guard) { l.Guard = g })).
		Route("List", web.GET, (*Ledger).List).
		Type()
	err := app.RouteTo("/ledger", ledger, "List", web.GET)
	if !errors.HasCode(err, errors.CodeUnresolvedDependency) {
		t.Fatalf("RouteTo() error = %v, want %s", err, errors.CodeUnresolvedDependency)
	}
	if _, ok := app.Match(web.GET, "/ledger"); ok {
		t.Error("route was published despite the resolution error")
	}
	if app.Container().Has(ledger.RegistrationKey()) {
		t.Error("unresolved component was left in the container")
	}

	// The container stays usable for later routes.
	if err := app.RouteTo("/late", shopType(), "List", web.GET); err != nil {
		t.Fatalf("RouteTo() after failure error = %v", err)
	}
}

type bootstrap struct{ ran bool }

func (b *bootstrap) Init(app *Blade) error {
	b.ran = true
	app.Aspect("trace", aop.InterceptorFunc(func(inv *aop.Invocation, next func() error) error {
		inv.Args[0].(*web.Context).Set("traced", inv.Method)
		return next()
	}))
	return nil
}

func TestBootstrapAndAspects(t *testing.T) {
	boot := &bootstrap{}
	traced := discovery.Define(func() *ShopController { return &ShopController{} }).
		Controller("/traced").
		Aspects("trace").
		Inject(discovery.Field("Rec", func(s *ShopController, r *Recorder) { s.Rec = r })).
		Route("List", web.GET, (*ShopController).List).
		Type()

	app := New(WithTypes(recorderType(), traced)).App(boot).Routes(testPkg).Ioc(testPkg)
	if err := app.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !boot.ran {
		t.Fatal("bootstrap did not run")
	}

	plan, ok := app.Match(web.GET, "/traced")
	if !ok {
		t.Fatal("GET /traced did not match")
	}
	c := web.NewTestContext(web.GET, "/traced")
	if err := app.Dispatch(c, plan); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if v, _ := c.Get("traced"); v != "List" {
		t.Errorf("aspect saw method %v, want List", v)
	}
}

func TestWithConfig(t *testing.T) {
	cfg := config.New()
	cfg.BasePackage = "example.com/app/..."
	cfg.Routes = []string{"example.com/extra"}
	cfg.Ioc = []string{"example.com/app/service/..."}

	app := New(WithConfig(cfg))
	if app.Config() != cfg {
		t.Error("Config() did not return the applied config")
	}
	pkgs := app.Packages()
	if pkgs.Base != cfg.BasePackage || !reflect.DeepEqual(pkgs.Routes, cfg.Routes) {
		t.Errorf("Packages() = %+v", pkgs)
	}
}
