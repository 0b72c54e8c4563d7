package depgraph

// RunlevelMembership answers "is service S a member of runlevel R" for the
// two levels provider resolution cares about (the current level and the
// boot level), and "is S hotplugged / started / starting / stopped".
// rclevel and statestore supply the concrete implementation; depgraph only
// needs this narrow view to resolve providers.
type RunlevelMembership interface {
	InRunlevel(service, runlevel string) bool
	Hotplugged(service string) bool
	State(service string) ServiceState
	Members(runlevel string) []string
	HotplugMembers() []string
}

// ServiceState is the subset of statestore's primary state enum that
// provider resolution distinguishes between.
type ServiceState int

const (
	StateStopped ServiceState = iota
	StateStarting
	StateStarted
	StateStopping
)

// probe is one (where, what) entry in the resolution sequence of §4.2.4.
type probe struct {
	runlevel string // "" means "any runlevel" (check Hotplugged or global state instead)
	hotplug  bool
	state    ServiceState
}

// ResolveProvider implements the single-provider-or-nothing algorithm of
// §4.2.4: given the declared set of candidate providers for an alias, the
// current runlevel, the boot runlevel, and whether this resolution is for
// a stop walk, return the concrete provider(s) to act on.
//
// Stopping returns every candidate (the caller iterates and stops them
// all). Starting walks probes.
func ResolveProvider(t *Tree, alias, runlevel, bootlevel string, rm RunlevelMembership, strict, stopping bool) []string {
	candidates := t.get(alias)
	if candidates == nil {
		return nil
	}
	providers := candidates.Relations[RelProvidedBy]
	if len(providers) == 0 {
		return nil
	}

	if stopping {
		return append([]string(nil), providers...)
	}

	// A candidate that is itself provided by alias forms a provide cycle;
	// such an alias resolves to no provider.
	for _, p := range providers {
		if ps := t.get(p); ps != nil {
			for _, back := range ps.Relations[RelProvidedBy] {
				if back == alias {
					return nil
				}
			}
		}
	}

	if strict {
		if m := intersectRunlevel(providers, rm, runlevel, bootlevel); len(m) > 0 {
			return m
		}
		return nil
	}

	probes := []probe{
		{runlevel: runlevel, state: StateStarted},
		{runlevel: runlevel, state: StateStarting},
		{runlevel: runlevel, state: StateStopped},
		{hotplug: true, state: StateStarted},
		{hotplug: true, state: StateStarting},
		{runlevel: bootlevel, state: StateStarted},
		{runlevel: bootlevel, state: StateStarting},
		{hotplug: true, state: StateStopped},
		{state: StateStarted}, // "anywhere"
		{state: StateStarting},
		{runlevel: runlevel, state: StateStopped},
		{runlevel: bootlevel, state: StateStopped},
	}

	for _, p := range probes {
		m := matchProbe(providers, rm, p)
		switch len(m) {
		case 0:
			continue
		case 1:
			return m
		default:
			return nil // ambiguous: resolve to "no provider", don't guess
		}
	}

	// final fallback of §4.2.4 step 3: "all providers" — still subject to
	// the single-match rule.
	if len(providers) == 1 {
		return providers
	}
	return nil
}

func matchProbe(providers []string, rm RunlevelMembership, p probe) []string {
	var out []string
	for _, name := range providers {
		if p.hotplug {
			if rm.Hotplugged(name) && rm.State(name) == p.state {
				out = append(out, name)
			}
			continue
		}
		if p.runlevel != "" {
			if rm.InRunlevel(name, p.runlevel) && rm.State(name) == p.state {
				out = append(out, name)
			}
			continue
		}
		// "anywhere": state match regardless of runlevel membership.
		if rm.State(name) == p.state {
			out = append(out, name)
		}
	}
	return out
}

func intersectRunlevel(providers []string, rm RunlevelMembership, runlevel, bootlevel string) []string {
	var out []string
	for _, name := range providers {
		if rm.InRunlevel(name, runlevel) || rm.InRunlevel(name, bootlevel) {
			out = append(out, name)
		}
	}
	return out
}
