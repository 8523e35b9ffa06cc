package overlay

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/reactive"
	"github.com/vango-dev/stackkit/pkg/vdom"
)

func textComponent(name string) *Component {
	return &Component{
		Name: name,
		Setup: func(_ *InstanceHandle, props func() Props) RenderFunc {
			return func() *vdom.VNode {
				return vdom.Textf("%s %v", name, props()["text"])
			}
		},
	}
}

func modalComponent(name string) *Component {
	c := textComponent(name)
	c.Layout = ModalLayout
	return c
}

type harness struct {
	t      *testing.T
	reg    *Registry
	api    *API
	owner  *reactive.Owner
	stack  *Stack
	logs   *bytes.Buffer
	ctx    context.Context
	cancel context.CancelFunc
}

func newHarness(t *testing.T, comps map[string]*Component, opts ...Option) *harness {
	t.Helper()
	loaders := make(map[string]Loader, len(comps))
	for k, c := range comps {
		loaders[k] = Static(c)
	}
	return newHarnessWithLoaders(t, loaders, opts...)
}

func newHarnessWithLoaders(t *testing.T, loaders map[string]Loader, opts ...Option) *harness {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := NewRegistry(loaders, WithRegistryLogger(logger))
	api := reg.Create(append([]Option{WithLogger(logger)}, opts...)...)
	owner := reactive.NewOwner(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	h := &harness{
		t:      t,
		reg:    reg,
		api:    api,
		owner:  owner,
		stack:  api.StackProvider(owner, ProviderProps{}),
		logs:   logs,
		ctx:    ctx,
		cancel: cancel,
	}
	t.Cleanup(func() {
		cancel()
		owner.Dispose()
	})
	return h
}

// preload resolves every component so Open applies policies synchronously.
func (h *harness) preload() {
	h.t.Helper()
	if err := h.reg.Preload(h.ctx); err != nil {
		h.t.Fatalf("Preload() error = %v", err)
	}
}

func (h *harness) open(key string, props Props) OpenResult {
	h.t.Helper()
	res := h.api.UseStackController(h.owner).Open(key, props, nil)
	if _, err := res.ComponentLoad.Await(h.ctx); err != nil {
		h.t.Fatalf("ComponentLoad for %q: %v", key, err)
	}
	return res
}

func expectPanic(t *testing.T, code string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected panic %s, got %v", code, r)
		}
		if got := errors.Code(err); got != code {
			t.Errorf("panic code = %q, want %q (%v)", got, code, err)
		}
	}()
	fn()
}

func keysWithPrefix(node *vdom.VNode, prefix string) []string {
	var out []string
	for _, k := range node.ChildKeys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func TestFutureFirstSettleWins(t *testing.T) {
	f := newFuture[int]()
	if _, ok := f.Value(); ok {
		t.Fatal("pending future reported a value")
	}
	if !f.resolve(1) {
		t.Fatal("first resolve did not settle")
	}
	if f.resolve(2) || f.reject(fmt.Errorf("late")) {
		t.Fatal("second settle was accepted")
	}
	v, err := f.Await(context.Background())
	if v != 1 || err != nil {
		t.Errorf("Await() = %v, %v; want 1, nil", v, err)
	}

	pending := newFuture[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pending.Await(ctx); err != context.Canceled {
		t.Errorf("Await on canceled ctx = %v", err)
	}
}

func TestIDsStrictlyIncrease(t *testing.T) {
	h := newHarness(t, map[string]*Component{"x": textComponent("x")})
	h.preload()

	last := 0
	for i := 0; i < 5; i++ {
		res := h.open("x", nil)
		if res.ID <= last {
			t.Fatalf("open %d: id %d not above %d", i, res.ID, last)
		}
		last = res.ID
		if i%2 == 0 {
			res.Close()
		}
	}
}

func TestCloseResolvesResultOnce(t *testing.T) {
	comp := textComponent("x")
	comp.DefaultResult = "dismissed"
	h := newHarness(t, map[string]*Component{"x": comp})
	h.preload()

	res := h.open("x", Props{"a": 1})
	res.Close(map[string]any{"ok": true})

	got, ok := res.Result.Value()
	if !ok {
		t.Fatal("result not resolved after Close")
	}
	if m, _ := got.(map[string]any); m["ok"] != true {
		t.Errorf("result = %v, want {ok:true}", got)
	}

	res.Close("again")
	if again, _ := res.Result.Value(); fmt.Sprint(again) != fmt.Sprint(got) {
		t.Errorf("second Close changed result to %v", again)
	}
	if n := len(h.stack.Entries()); n != 0 {
		t.Errorf("entries after close = %d, want 0 with the identity layout", n)
	}

	def := h.open("x", nil)
	def.Close()
	if v, _ := def.Result.Value(); v != "dismissed" {
		t.Errorf("default result = %v, want dismissed", v)
	}
}

func TestCloseCurrentClosesTopmostOnly(t *testing.T) {
	h := newHarness(t, map[string]*Component{"m": modalComponent("m")})
	h.preload()

	first := h.open("m", nil)
	second := h.open("m", nil)
	h.stack.Render(nil)

	h.api.UseStackBase(h.owner).CloseCurrent()

	if !h.stack.IsPresent(first.ID) {
		t.Error("first entry closed by CloseCurrent")
	}
	if h.stack.IsPresent(second.ID) {
		t.Error("topmost entry still present")
	}
	if cur := h.stack.Current(); cur.ID != first.ID || cur.Index != 0 {
		t.Errorf("Current() = %+v, want first entry", cur)
	}
	if n := len(h.stack.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2 while the exit transition runs", n)
	}

	h.api.UseStackController(h.owner).CloseAll()
	if cur := h.stack.Current(); cur.ID != -1 || cur.Index != -1 {
		t.Errorf("Current() after CloseAll = %+v", cur)
	}
}

func TestOncePerSession(t *testing.T) {
	banner := textComponent("banner")
	banner.Config = Config{Limit: LimitOncePerSession}

	t.Run("resolved component", func(t *testing.T) {
		h := newHarness(t, map[string]*Component{"banner": banner})
		h.preload()

		first := h.open("banner", nil)
		second := h.open("banner", nil)

		v, ok := second.Result.Value()
		if !ok || v != nil {
			t.Errorf("second result = %v, %v; want nil, resolved", v, ok)
		}
		if second.ID != 0 {
			t.Errorf("refused open got id %d", second.ID)
		}
		if entries := h.stack.Entries(); len(entries) != 1 || entries[0].ID != first.ID {
			t.Errorf("entries = %+v, want only the first", entries)
		}

		first.Close()
		third := h.open("banner", nil)
		if v, ok := third.Result.Value(); !ok || v != nil {
			t.Error("open after close was admitted")
		}
	})

	t.Run("pending component", func(t *testing.T) {
		release := make(chan struct{})
		reg := NewRegistry(map[string]Loader{
			"banner": func(context.Context) (*Component, error) {
				<-release
				return banner, nil
			},
		})
		owner := reactive.NewOwner(nil)
		defer owner.Dispose()
		var external []Entry
		var lengths []int
		stack := reg.Create().StackProvider(owner, ProviderProps{
			Data: func() []Entry { return external },
			OnChange: func(v []Entry) {
				external = v
				lengths = append(lengths, len(v))
			},
		})

		first := stack.Open("banner", nil, nil)
		second := stack.Open("banner", nil, nil)
		if n := len(stack.Entries()); n != 0 {
			t.Errorf("entries while loading = %d, want 0", n)
		}

		close(release)
		if _, err := first.ComponentLoad.Await(context.Background()); err != nil {
			t.Fatal(err)
		}
		entries := stack.Entries()
		if len(entries) != 1 || entries[0].ID != first.ID {
			t.Fatalf("entries = %+v, want only the first", entries)
		}
		if v, ok := second.Result.Value(); !ok || v != nil {
			t.Errorf("second result = %v, %v; want nil", v, ok)
		}
		if _, ok := first.Result.Value(); ok {
			t.Error("admitted entry resolved early")
		}
		for _, n := range lengths {
			if n > 1 {
				t.Errorf("external data saw %d entries: %v", n, lengths)
			}
		}
	})

	t.Run("pending open closed before load", func(t *testing.T) {
		release := make(chan struct{})
		h := newHarnessWithLoaders(t, map[string]Loader{
			"banner": func(context.Context) (*Component, error) {
				<-release
				return banner, nil
			},
		})

		res := h.stack.Open("banner", nil, nil)
		if !h.stack.Close(res.ID, "gone") {
			t.Fatal("Close of a waiting open reported false")
		}
		if h.stack.Close(res.ID) {
			t.Error("second Close reported true")
		}
		close(release)
		if _, err := res.ComponentLoad.Await(h.ctx); err != nil {
			t.Fatal(err)
		}
		if n := len(h.stack.Entries()); n != 0 {
			t.Errorf("entries = %d, want canceled open left out", n)
		}
		if v, _ := res.Result.Value(); v != "gone" {
			t.Errorf("result = %v, want gone", v)
		}
	})
}

func TestDuplicateBehavior(t *testing.T) {
	tests := []struct {
		name     string
		behavior DuplicateBehavior
		opens    int
		want     int
	}{
		{"allow", DuplicateAllow, 3, 3},
		{"replace", DuplicateReplace, 3, 1},
		{"remove toggles", DuplicateRemove, 2, 0},
		{"remove toggles back", DuplicateRemove, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := textComponent("d")
			c.Config = Config{DuplicateBehavior: tt.behavior}
			h := newHarness(t, map[string]*Component{"d": c})
			h.preload()

			for i := 0; i < tt.opens; i++ {
				h.open("d", nil)
			}
			if got := len(h.stack.Entries()); got != tt.want {
				t.Errorf("entries = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDefaultConfigInheritance(t *testing.T) {
	strict := textComponent("strict")
	loose := textComponent("loose")
	loose.Config = Config{DuplicateBehavior: DuplicateAllow}

	h := newHarness(t, map[string]*Component{"strict": strict, "loose": loose},
		WithDefaultConfig(Config{DuplicateBehavior: DuplicateReplace}))
	h.preload()

	h.open("strict", nil)
	h.open("strict", nil)
	h.open("loose", nil)
	h.open("loose", nil)

	counts := map[string]int{}
	for _, e := range h.stack.Entries() {
		counts[e.Key]++
	}
	if counts["strict"] != 1 || counts["loose"] != 2 {
		t.Errorf("counts = %v, want strict:1 loose:2", counts)
	}
}

func TestBackdropDedup(t *testing.T) {
	plain := textComponent("plain")
	h := newHarness(t, map[string]*Component{
		"a":     modalComponent("a"),
		"b":     modalComponent("b"),
		"plain": plain,
	})
	h.preload()

	h.open("a", nil)
	top := h.open("b", nil)

	node := h.stack.Render(nil)
	if got := keysWithPrefix(node, "backdrop:"); len(got) != 1 || got[0] != "backdrop:darken" {
		t.Fatalf("backdrops = %v, want one darken backdrop", got)
	}
	if got := keysWithPrefix(node, "overlay:"); len(got) != 2 {
		t.Fatalf("overlays = %v, want 2", got)
	}
	backdrop := vdom.FindKey(node, "backdrop:darken")
	if !backdrop.Children[0].HasClass("show") {
		t.Error("backdrop hidden while topmost entry uses it")
	}

	p := h.open("plain", nil)
	node = h.stack.Render(nil)
	if vdom.FindKey(node, "backdrop:darken").Children[0].HasClass("show") {
		t.Error("backdrop shown while topmost entry has no backdrop")
	}
	p.Close()

	top.Close()
	node = h.stack.Render(nil)
	if !vdom.FindKey(node, "backdrop:darken").Children[0].HasClass("show") {
		t.Error("backdrop hidden while the entry below is present")
	}

	h.stack.CloseAll()
	node = h.stack.Render(nil)
	if vdom.FindKey(node, "backdrop:darken").Children[0].HasClass("show") {
		t.Error("backdrop shown with no present entry")
	}
}

func TestBackdropClickClosesCurrent(t *testing.T) {
	h := newHarness(t, map[string]*Component{"m": modalComponent("m")})
	h.preload()
	res := h.open("m", nil)

	node := h.stack.Render(nil)
	click, _ := vdom.FindKey(node, "backdrop:darken").Children[0].Props["onclick"].(func())
	if click == nil {
		t.Fatal("backdrop has no click handler")
	}
	click()
	if h.stack.IsPresent(res.ID) {
		t.Error("backdrop click did not close the current entry")
	}
}

func TestBackdropNoClose(t *testing.T) {
	sticky := modalComponent("sticky")
	sticky.Setup = func(h *InstanceHandle, _ func() Props) RenderFunc {
		h.WithBackdropProps(func() Props { return Props{"noClose": true} })
		return func() *vdom.VNode { return vdom.Text("sticky") }
	}
	h := newHarness(t, map[string]*Component{"sticky": sticky})
	h.preload()
	res := h.open("sticky", nil)

	h.stack.Render(nil)
	node := h.stack.Render(nil)
	click := vdom.FindKey(node, "backdrop:darken").Children[0].Props["onclick"].(func())
	click()
	if !h.stack.IsPresent(res.ID) {
		t.Error("noClose backdrop closed the entry")
	}
}

// recordingLayout exposes the layout handle of every mounted entry.
func recordingLayout(handles map[int]*LayoutHandle, props map[int]func() Props) *Layout {
	return &Layout{
		Name:           "recording",
		ExitTransition: true,
		Setup: func(h *LayoutHandle, p func() Props, child RenderFunc) RenderFunc {
			handles[h.ID()] = h
			if props != nil {
				props[h.ID()] = p
			}
			return child
		},
	}
}

func TestSafeToRemove(t *testing.T) {
	handles := map[int]*LayoutHandle{}
	c := textComponent("s")
	c.Layout = recordingLayout(handles, nil)
	h := newHarness(t, map[string]*Component{"s": c})
	h.preload()

	res := h.open("s", nil)
	h.stack.Render(nil)
	lh := handles[res.ID]
	if lh == nil {
		t.Fatal("layout not mounted")
	}

	expectPanic(t, "O003", lh.SafeToRemove)

	res.Close()
	if n := len(h.stack.Entries()); n != 1 {
		t.Fatalf("entries = %d before SafeToRemove", n)
	}
	lh.SafeToRemove()
	if n := len(h.stack.Entries()); n != 0 {
		t.Errorf("entries = %d after SafeToRemove", n)
	}
	if lh.Owner().IsDisposed() != true {
		t.Error("instance scope not disposed on removal")
	}

	expectPanic(t, "O004", lh.SafeToRemove)
}

func TestModalLayoutRemovesAfterDelay(t *testing.T) {
	prev := ModalExitDelay
	ModalExitDelay = time.Millisecond
	defer func() { ModalExitDelay = prev }()

	h := newHarness(t, map[string]*Component{"m": modalComponent("m")})
	h.preload()

	res := h.open("m", nil)
	h.stack.Render(nil)
	res.Close()
	h.stack.Render(nil)

	deadline := time.Now().Add(2 * time.Second)
	for !h.stack.Pending() {
		if time.Now().After(deadline) {
			t.Fatal("exit transition never finished")
		}
		time.Sleep(time.Millisecond)
	}
	if n := len(h.stack.Entries()); n != 0 {
		t.Errorf("entries = %d after exit delay", n)
	}
}

func TestModalLayoutClasses(t *testing.T) {
	h := newHarness(t, map[string]*Component{"m": modalComponent("m")})
	h.preload()

	first := h.open("m", nil)
	second := h.open("m", nil)
	node := h.stack.Render(nil)

	lower := vdom.FindKey(node, fmt.Sprintf("overlay:%d", first.ID)).Children[0]
	upper := vdom.FindKey(node, fmt.Sprintf("overlay:%d", second.ID)).Children[0]
	if !lower.HasClass("left") || lower.HasClass("show") {
		t.Errorf("lower classes = %v", lower.Props["class"])
	}
	if !upper.HasClass("show") || !upper.HasClass("right") {
		t.Errorf("upper classes on entry = %v, want show right", upper.Props["class"])
	}

	node = h.stack.Render(nil)
	upper = vdom.FindKey(node, fmt.Sprintf("overlay:%d", second.ID)).Children[0]
	if upper.HasClass("right") {
		t.Error("upper entry still entering on second render")
	}
}

func TestStaleOperationsWarn(t *testing.T) {
	var inst *InstanceHandle
	c := textComponent("s")
	c.Setup = func(h *InstanceHandle, _ func() Props) RenderFunc {
		inst = h
		return func() *vdom.VNode { return vdom.Text("s") }
	}
	h := newHarness(t, map[string]*Component{"s": c})
	h.preload()

	res := h.open("s", nil)
	h.stack.Render(nil)
	inst.Close("first")
	if v, _ := res.Result.Value(); v != "first" {
		t.Fatalf("result = %v", v)
	}

	inst.Close("second")
	inst.UpdateOwnProps(Props{"x": 1})
	if r := inst.OpenSelf(nil, nil); r.ID != 0 {
		t.Error("OpenSelf on a removed instance opened an entry")
	}
	if n := len(h.stack.Entries()); n != 0 {
		t.Errorf("entries = %d", n)
	}
	if got := strings.Count(h.logs.String(), "overlay operation after removal ignored"); got != 3 {
		t.Errorf("warnings = %d, want 3\n%s", got, h.logs.String())
	}
}

func TestUseOutsideScopePanics(t *testing.T) {
	reg := NewRegistry(nil)
	api := reg.Create()
	bare := reactive.NewOwner(nil)
	defer bare.Dispose()

	expectPanic(t, "O002", func() { api.UseStackController(bare) })
	expectPanic(t, "O002", func() { api.UseStackBase(nil) })
	expectPanic(t, "O001", func() { api.UseOverlay(bare) })
	expectPanic(t, "O001", func() { api.UseLayout(bare) })
	expectPanic(t, "O005", func() { api.UseBackdrop(bare) })
}

func TestOpenUnknownKeyPanics(t *testing.T) {
	h := newHarness(t, nil)
	expectPanic(t, "O006", func() { h.stack.Open("missing", nil, nil) })
}

func TestHandlesFromNestedScopes(t *testing.T) {
	var fromScope *InstanceHandle
	var api *API
	c := textComponent("n")
	c.Setup = func(h *InstanceHandle, _ func() Props) RenderFunc {
		nested := reactive.NewOwner(h.Owner())
		fromScope = api.UseOverlay(nested)
		return func() *vdom.VNode { return vdom.Text("n") }
	}
	h := newHarness(t, map[string]*Component{"n": c})
	api = h.api
	h.preload()

	res := h.open("n", nil)
	h.stack.Render(nil)
	if fromScope == nil || fromScope.ID() != res.ID || fromScope.Index() != 0 {
		t.Fatalf("UseOverlay from nested scope = %+v", fromScope)
	}
	fromScope.Close("nested")
	if v, _ := res.Result.Value(); v != "nested" {
		t.Errorf("result = %v", v)
	}
}

func TestRenderPanicClearsStack(t *testing.T) {
	boom := &Component{
		Name: "boom",
		Setup: func(*InstanceHandle, func() Props) RenderFunc {
			return func() *vdom.VNode { panic("render exploded") }
		},
	}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegisterer(reg))
	h := newHarness(t, map[string]*Component{"boom": boom, "ok": textComponent("ok")}, WithMetrics(metrics))
	h.preload()

	okRes := h.open("ok", nil)
	h.open("boom", nil)

	node := h.stack.Render(nil)
	if len(node.Children) != 0 {
		t.Errorf("render after panic = %d children", len(node.Children))
	}
	if n := len(h.stack.Entries()); n != 0 {
		t.Errorf("entries after panic = %d", n)
	}
	if _, ok := okRes.Result.Value(); !ok {
		t.Error("cleared entry result not resolved")
	}
	if !strings.Contains(h.logs.String(), "render exploded") {
		t.Error("panic not logged")
	}
	if got := testutil.ToFloat64(metrics.renderFailures); got != 1 {
		t.Errorf("render failures = %v", got)
	}
}

func TestRenderGuard(t *testing.T) {
	admin := textComponent("admin")
	admin.Config = Config{ValidateRenderContext: func(ctx any) bool { return ctx == "admin" }}
	h := newHarness(t, map[string]*Component{"admin": admin})
	h.preload()

	res := h.open("admin", nil)
	key := fmt.Sprintf("overlay:%d", res.ID)
	if vdom.FindKey(h.stack.Render("guest"), key) != nil {
		t.Error("guarded entry rendered for guest")
	}
	if vdom.FindKey(h.stack.Render("admin"), key) == nil {
		t.Error("guarded entry missing for admin")
	}
	if !h.stack.IsPresent(res.ID) {
		t.Error("guard closed the entry")
	}
}

func TestLoadFailureDropsEntry(t *testing.T) {
	loadErr := fmt.Errorf("chunk missing")
	h := newHarnessWithLoaders(t, map[string]Loader{
		"broken": func(context.Context) (*Component, error) { return nil, loadErr },
	})

	res := h.api.UseStackController(h.owner).Open("broken", nil, nil)
	_, err := res.ComponentLoad.Await(h.ctx)
	if errors.Code(err) != "O007" {
		t.Fatalf("ComponentLoad error = %v, want O007", err)
	}
	if n := len(h.stack.Entries()); n != 0 {
		t.Errorf("entries = %d after failed load", n)
	}
	if v, ok := res.Result.Value(); !ok || v != nil {
		t.Errorf("result = %v, %v", v, ok)
	}
	if !strings.Contains(h.logs.String(), "chunk missing") {
		t.Error("load failure not logged")
	}
}

func TestPendingEntryRendersAfterLoad(t *testing.T) {
	release := make(chan struct{})
	h := newHarnessWithLoaders(t, map[string]Loader{
		"slow": func(context.Context) (*Component, error) {
			<-release
			return textComponent("slow"), nil
		},
	})

	res := h.stack.Open("slow", Props{"text": "hi"}, nil)
	if got := keysWithPrefix(h.stack.Render(nil), "overlay:"); len(got) != 0 {
		t.Errorf("pending entry rendered: %v", got)
	}
	close(release)
	if _, err := res.ComponentLoad.Await(h.ctx); err != nil {
		t.Fatal(err)
	}
	html := vdom.HTML(h.stack.Render(nil))
	if !strings.Contains(html, "slow hi") {
		t.Errorf("render = %s", html)
	}
}

func TestBoundData(t *testing.T) {
	var external []Entry
	reg := NewRegistry(map[string]Loader{"x": Static(textComponent("x"))})
	api := reg.Create()
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	if err := reg.Preload(context.Background()); err != nil {
		t.Fatal(err)
	}

	stack := api.StackProvider(owner, ProviderProps{
		Data:     func() []Entry { return external },
		OnChange: func(v []Entry) { external = v },
	})

	res := stack.Open("x", Props{"text": "a"}, nil)
	if len(external) != 1 || external[0].ID != res.ID {
		t.Fatalf("external = %+v", external)
	}

	external = append(external, Entry{Key: "x", ID: res.ID + 1000, Props: Props{"text": "restored"}})
	html := vdom.HTML(stack.Render(nil))
	if !strings.Contains(html, "x restored") {
		t.Errorf("externally added entry not rendered: %s", html)
	}
	if next := stack.Open("x", nil, nil); next.ID <= res.ID+1000 {
		t.Errorf("id %d reused below external id %d", next.ID, res.ID+1000)
	}

	external = external[:1]
	stack.Render(nil)
	if stack.IsPresent(res.ID + 1000) {
		t.Error("externally removed entry still present")
	}
}

func TestReadOnlyData(t *testing.T) {
	fixed := []Entry{{Key: "x", ID: 1}}
	boom := &Component{
		Name: "boom",
		Setup: func(*InstanceHandle, func() Props) RenderFunc {
			return func() *vdom.VNode { panic("render exploded") }
		},
	}
	newStack := func(t *testing.T, data []Entry) *Stack {
		t.Helper()
		reg := NewRegistry(map[string]Loader{
			"x":    Static(textComponent("x")),
			"boom": Static(boom),
		})
		if err := reg.Preload(context.Background()); err != nil {
			t.Fatal(err)
		}
		owner := reactive.NewOwner(nil)
		t.Cleanup(owner.Dispose)
		return reg.Create().StackProvider(owner, ProviderProps{Data: func() []Entry { return data }})
	}

	t.Run("open is dropped", func(t *testing.T) {
		stack := newStack(t, fixed)
		res := stack.Open("x", nil, nil)
		if n := len(stack.Entries()); n != 1 {
			t.Errorf("entries = %d, want the fixed one", n)
		}
		if v, ok := res.Result.Value(); !ok || v != nil {
			t.Errorf("dropped open result = %v, %v", v, ok)
		}
	})

	t.Run("close sticks", func(t *testing.T) {
		stack := newStack(t, fixed)
		stack.Render(nil)
		if !stack.Close(1) {
			t.Fatal("Close(1) = false")
		}
		stack.Render(nil)
		if stack.IsPresent(1) {
			t.Error("entry present again after close")
		}
		if n := len(stack.Entries()); n != 0 {
			t.Errorf("entries = %d after close", n)
		}
		if stack.Close(1) {
			t.Error("second Close(1) = true")
		}
	})

	t.Run("render failure clears", func(t *testing.T) {
		stack := newStack(t, []Entry{{Key: "x", ID: 1}, {Key: "boom", ID: 2}})
		stack.Render(nil)
		if n := len(stack.Entries()); n != 0 {
			t.Errorf("entries after render failure = %d", n)
		}
		if got := stack.Snapshot().Current.ID; got != -1 {
			t.Errorf("current = %d, want none", got)
		}
	})
}

func TestUpdateOwnPropsAndLayoutProps(t *testing.T) {
	handles := map[int]*LayoutHandle{}
	layoutProps := map[int]func() Props{}
	var inst *InstanceHandle
	c := textComponent("p")
	c.Layout = recordingLayout(handles, layoutProps)
	c.Setup = func(h *InstanceHandle, props func() Props) RenderFunc {
		inst = h
		h.WithLayoutProps(func() Props { return Props{"title": props()["text"]} })
		return func() *vdom.VNode { return vdom.Textf("%v", props()["text"]) }
	}
	h := newHarness(t, map[string]*Component{"p": c})
	h.preload()

	res := h.open("p", Props{"text": "a", "keep": 1})
	h.stack.Render(nil)
	if got := layoutProps[res.ID]()["title"]; got != "a" {
		t.Fatalf("layout title = %v", got)
	}

	inst.UpdateOwnProps(Props{"text": "b"})
	e := h.stack.Entries()[0]
	if e.Props["text"] != "b" || e.Props["keep"] != 1 {
		t.Errorf("props = %v", e.Props)
	}
	html := vdom.HTML(h.stack.Render(nil))
	if !strings.Contains(html, "b") {
		t.Errorf("render = %s", html)
	}
	if got := layoutProps[res.ID]()["title"]; got != "b" {
		t.Errorf("layout title after update = %v", got)
	}

	other := inst.OpenSelf(Props{"text": "c"}, nil)
	entries := h.stack.Entries()
	if len(entries) != 2 || entries[1].ID != other.ID || entries[1].Props["keep"] != 1 {
		t.Errorf("OpenSelf entries = %+v", entries)
	}
	only := inst.OpenSelfKeyOnly(Props{"text": "d"}, nil)
	entries = h.stack.Entries()
	if _, ok := entries[2].Props["keep"]; ok || entries[2].ID != only.ID {
		t.Errorf("OpenSelfKeyOnly merged props: %+v", entries[2])
	}
}

func TestGetRelative(t *testing.T) {
	handles := map[int]*LayoutHandle{}
	c := textComponent("r")
	c.Layout = recordingLayout(handles, nil)
	h := newHarness(t, map[string]*Component{"r": c})
	h.preload()

	first := h.open("r", Props{"n": 1})
	second := h.open("r", Props{"n": 2})
	h.stack.Render(nil)

	rel, ok := handles[second.ID].GetRelative(-1)
	if !ok || rel.ID != first.ID || rel.Props["n"] != 1 || !rel.IsPresent || rel.Component != c {
		t.Errorf("GetRelative(-1) = %+v, %v", rel, ok)
	}
	if _, ok := handles[second.ID].GetRelative(1); ok {
		t.Error("GetRelative past the top found an entry")
	}
	if !handles[second.ID].IsCurrent() || handles[first.ID].IsCurrent() {
		t.Error("IsCurrent disagrees with the stack")
	}
}

func TestHooksAndOnClose(t *testing.T) {
	var opened, closed []string
	var inst *InstanceHandle
	c := textComponent("k")
	c.Setup = func(h *InstanceHandle, _ func() Props) RenderFunc {
		inst = h
		return func() *vdom.VNode { return nil }
	}
	h := newHarness(t, map[string]*Component{"k": c}, WithHooks(Hooks{
		Open:  func(key string, _ Props, openCtx any) { opened = append(opened, fmt.Sprint(key, openCtx)) },
		Close: func(key string, result any) { closed = append(closed, fmt.Sprint(key, result)) },
	}))
	h.preload()

	h.api.UseStackController(h.owner).Open("k", nil, "menu")
	h.stack.Render(nil)
	var heard any
	inst.OnClose(func(r any) { heard = r })
	inst.Close(7)

	if len(opened) != 1 || opened[0] != "kmenu" {
		t.Errorf("open hook = %v", opened)
	}
	if len(closed) != 1 || closed[0] != "k7" {
		t.Errorf("close hook = %v", closed)
	}
	if heard != 7 {
		t.Errorf("OnClose heard %v", heard)
	}
}

func TestMetrics(t *testing.T) {
	banner := textComponent("banner")
	banner.Config = Config{Limit: LimitOncePerSession}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegisterer(reg), WithNamespace("test"))
	h := newHarness(t, map[string]*Component{"banner": banner, "x": textComponent("x")}, WithMetrics(metrics))
	h.preload()

	h.open("banner", nil)
	h.open("banner", nil)
	x := h.open("x", nil)
	x.Close()

	if got := testutil.ToFloat64(metrics.opens.WithLabelValues("banner")); got != 1 {
		t.Errorf("banner opens = %v", got)
	}
	if got := testutil.ToFloat64(metrics.rejected.WithLabelValues("banner", "limit")); got != 1 {
		t.Errorf("banner rejections = %v", got)
	}
	if got := testutil.ToFloat64(metrics.present); got != 1 {
		t.Errorf("present = %v", got)
	}
}

func TestWatchAndSnapshot(t *testing.T) {
	h := newHarness(t, map[string]*Component{"x": textComponent("x")})
	h.preload()

	calls := 0
	cancel := h.stack.Watch(func() { calls++ })
	res := h.open("x", Props{"text": "w"})
	if calls == 0 {
		t.Error("watcher not notified on open")
	}

	snap := h.stack.Snapshot()
	if len(snap.Entries) != 1 || !snap.Entries[0].Present || snap.Current.ID != res.ID {
		t.Errorf("snapshot = %+v", snap)
	}

	cancel()
	before := calls
	res.Close()
	if calls != before {
		t.Error("canceled watcher still notified")
	}
}

func TestViewRenderProp(t *testing.T) {
	reg := NewRegistry(map[string]Loader{"x": Static(textComponent("x"))})
	owner := reactive.NewOwner(nil)
	defer owner.Dispose()
	if err := reg.Preload(context.Background()); err != nil {
		t.Fatal(err)
	}
	stack := reg.Create().StackProvider(owner, ProviderProps{
		Children: func(renderOverlays func(any) *vdom.VNode) *vdom.VNode {
			return vdom.Div(vdom.Class("app"), vdom.Text("page"), renderOverlays(nil))
		},
	})
	stack.Open("x", Props{"text": "over"}, nil)

	html := vdom.HTML(stack.View())
	if !strings.HasPrefix(html, `<div class="app">page`) || !strings.Contains(html, "x over") {
		t.Errorf("View() = %s", html)
	}
}

func TestProviderDisposeResolvesResults(t *testing.T) {
	h := newHarness(t, map[string]*Component{"x": textComponent("x")})
	h.preload()
	res := h.open("x", nil)

	h.owner.Dispose()
	if v, ok := res.Result.Value(); !ok || v != nil {
		t.Errorf("result after dispose = %v, %v", v, ok)
	}
}
