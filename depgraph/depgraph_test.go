package depgraph

import (
	"strings"
	"testing"
)

// fakeMembership is a minimal in-memory RunlevelMembership for tests.
type fakeMembership struct {
	levels    map[string][]string
	hotplug   map[string]bool
	states    map[string]ServiceState
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{
		levels:  make(map[string][]string),
		hotplug: make(map[string]bool),
		states:  make(map[string]ServiceState),
	}
}

func (f *fakeMembership) InRunlevel(service, runlevel string) bool {
	for _, s := range f.levels[runlevel] {
		if s == service {
			return true
		}
	}
	return false
}

func (f *fakeMembership) Hotplugged(service string) bool { return f.hotplug[service] }
func (f *fakeMembership) State(service string) ServiceState {
	if s, ok := f.states[service]; ok {
		return s
	}
	return StateStopped
}
func (f *fakeMembership) Members(runlevel string) []string   { return f.levels[runlevel] }
func (f *fakeMembership) HotplugMembers() []string {
	var out []string
	for svc, on := range f.hotplug {
		if on {
			out = append(out, svc)
		}
	}
	sortStrings(out)
	return out
}

func loadAndBuild(t *testing.T, src string) *Tree {
	t.Helper()
	decls, err := LoadDeclarations(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Build(decls)
	if err != nil {
		t.Fatal(err)
	}
	return res.Tree
}

func TestLoadDeclarationsParsesRelations(t *testing.T) {
	src := `
depinfo_0_service='net'
depinfo_1_service='dns'
depinfo_1_need_0='net'
depinfo_2_service='web'
depinfo_2_need_0='dns'
depinfo_2_keywords='notimeout'
`
	tree := loadAndBuild(t, src)
	if tree.get("dns") == nil || tree.get("web") == nil || tree.get("net") == nil {
		t.Fatalf("missing services: %+v", tree.Services)
	}
	if got := tree.get("dns").Relations[RelNeed]; len(got) != 1 || got[0] != "net" {
		t.Fatalf("dns need = %v", got)
	}
	if !tree.get("web").HasKeyword(KeywordNoTimeout) {
		t.Fatalf("expected web to carry notimeout keyword")
	}
}

func TestBuildComputesBackEdges(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='net'
depinfo_1_service='dns'
depinfo_1_need_0='net'
`)
	back := tree.get("net").Relations[RelNeedsMe]
	if len(back) != 1 || back[0] != "dns" {
		t.Fatalf("net needsme = %v", back)
	}
}

func TestBuildRejectsSelfLoop(t *testing.T) {
	decls, err := LoadDeclarations(strings.NewReader(`
depinfo_0_service='web'
depinfo_0_need_0='web'
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(decls); err == nil {
		t.Fatal("expected self-loop rejection")
	}
}

func TestBuildCollectsMissingDependencyWarning(t *testing.T) {
	decls, err := LoadDeclarations(strings.NewReader(`
depinfo_0_service='web'
depinfo_0_need_0='ghost'
`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := Build(decls)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", res.Warnings)
	}
	// placeholder node still inserted so lookups succeed.
	if res.Tree.get("ghost") == nil {
		t.Fatal("expected placeholder node for missing dependency")
	}
}

func TestDuplicateProvideDedupedSilently(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='svcA'
depinfo_0_provide_0='logger'
depinfo_0_provide_1='logger'
`)
	if got := tree.get("svcA").Relations[RelProvide]; len(got) != 1 {
		t.Fatalf("expected deduped provide, got %v", got)
	}
}

func TestOrderHappyPathChain(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='net'
depinfo_1_service='dns'
depinfo_1_need_0='net'
depinfo_2_service='web'
depinfo_2_need_0='dns'
`)
	rm := newFakeMembership()
	rm.levels["default"] = []string{"web"}

	order := Order(tree, "default", "boot", rm, Options{Start: true})
	idx := indexMap(order)
	if !(idx["net"] < idx["dns"] && idx["dns"] < idx["web"]) {
		t.Fatalf("expected net < dns < web, got %v", order)
	}
}

func TestOrderReversesForStop(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='net'
depinfo_1_service='dns'
depinfo_1_need_0='net'
depinfo_2_service='web'
depinfo_2_need_0='dns'
`)
	rm := newFakeMembership()
	rm.levels["default"] = []string{"web"}
	rm.states["net"] = StateStarted
	rm.states["dns"] = StateStarted
	rm.states["web"] = StateStarted

	order := Order(tree, "default", "boot", rm, Options{Stop: true})
	idx := indexMap(order)
	if !(idx["web"] < idx["dns"] && idx["dns"] < idx["net"]) {
		t.Fatalf("expected web < dns < net on stop, got %v", order)
	}
}

func TestProviderAmbiguityResolvesToEmpty(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='logger_A'
depinfo_0_provide_0='logger'
depinfo_1_service='logger_B'
depinfo_1_provide_0='logger'
depinfo_2_service='web'
depinfo_2_need_0='logger'
`)
	rm := newFakeMembership()
	rm.levels["default"] = []string{"web"}

	order := Order(tree, "default", "boot", rm, Options{Start: true, Trace: true})
	for _, s := range order {
		if s == "logger_A" || s == "logger_B" {
			t.Fatalf("ambiguous provider should not be scheduled, got %v", order)
		}
	}
	if _, ok := indexMap(order)["web"]; !ok {
		t.Fatal("web should still be ordered despite unresolved provider")
	}
}

func TestProviderSelfCycleResolvesToEmpty(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='X'
depinfo_0_provide_0='Y'
depinfo_1_service='Y'
depinfo_1_provide_0='X'
`)
	rm := newFakeMembership()
	got := ResolveProvider(tree, "Y", "default", "boot", rm, false, false)
	if len(got) != 0 {
		t.Fatalf("expected no provider from a provider cycle, got %v", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	tree := loadAndBuild(t, `
depinfo_0_service='net'
depinfo_1_service='dns'
depinfo_1_need_0='net'
depinfo_1_provide_0='resolver'
`)
	dir := t.TempDir()
	path := dir + "/deptree"
	if err := WriteCache(tree, path); err != nil {
		t.Fatal(err)
	}
	res, err := LoadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	for name, svc := range tree.Services {
		got, ok := res.Tree.Services[name]
		if !ok {
			t.Fatalf("reloaded tree missing %q", name)
		}
		for rt, targets := range svc.Relations {
			if joinSpace(got.Relations[rt]) != joinSpace(targets) {
				t.Fatalf("%s relation %s: got %v want %v", name, rt, got.Relations[rt], targets)
			}
		}
	}
}

func TestStaleMissingCacheIsStale(t *testing.T) {
	dir := t.TempDir()
	stale, err := Stale(dir+"/deptree", dir, dir, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !stale {
		t.Fatal("expected missing cache to be stale")
	}
}

func indexMap(order []string) map[string]int {
	m := make(map[string]int)
	for i, s := range order {
		m[s] = i
	}
	if _, ok := m[""]; !ok {
		m[""] = -1
	}
	return m
}
