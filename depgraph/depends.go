package depgraph

// Options controls one depends()/order() traversal per §4.2.5.
type Options struct {
	Trace  bool // follow transitively; without it, only direct targets are emitted
	Strict bool // filter out services not in the current or boot runlevel
	Start  bool // this walk is computing a start order
	Stop   bool // this walk is computing a stop order (affects provider resolution)
}

// Depends implements depends(types, services, runlevel, options) → ordered
// sequence from §4.2.5: a DFS from each input service following the given
// relation types, emitting services in topological (post-)order so that a
// service is emitted only after everything it follows.
func Depends(t *Tree, types []RelType, services []string, runlevel, bootlevel string, rm RunlevelMembership, opts Options) []string {
	visited := make(map[string]bool)
	var order []string

	inLevel := func(name string) bool {
		if !opts.Strict {
			return true
		}
		return rm.InRunlevel(name, runlevel) || rm.InRunlevel(name, bootlevel)
	}

	var visit func(name string, depth int)
	visit = func(name string, depth int) {
		if visited[name] {
			return // cycle guard / dedup: first emission wins, re-entry is a no-op
		}
		visited[name] = true
		svc := t.get(name)
		if svc == nil {
			return
		}

		for _, rt := range types {
			for _, target := range svc.Relations[rt] {
				for _, resolved := range resolveTraversalTarget(t, target, runlevel, bootlevel, rm, opts) {
					if opts.Trace || depth == 0 {
						visit(resolved, depth+1)
					} else if !visited[resolved] {
						visited[resolved] = true
						if inLevel(resolved) {
							order = append(order, resolved)
						}
					}
				}
			}
		}

		if inLevel(name) {
			order = append(order, name)
		}
	}

	for _, s := range services {
		visit(s, 0)
	}

	propagateProviderOrdering(t, &order, visited, inLevel)
	return order
}

// resolveTraversalTarget turns a declared relation target into zero or more
// concrete service names to traverse: real services pass through
// unchanged; alias/placeholder names run through provider resolution.
func resolveTraversalTarget(t *Tree, target, runlevel, bootlevel string, rm RunlevelMembership, opts Options) []string {
	svc := t.get(target)
	if svc == nil {
		return nil
	}
	if !svc.Placeholder {
		return []string{target}
	}
	return ResolveProvider(t, target, runlevel, bootlevel, rm, opts.Strict, opts.Stop)
}

// propagateProviderOrdering is the second pass of §4.2.5: for every service
// already ordered, if it `provide`s a concrete (non-placeholder) service
// that hasn't been visited yet, that provided service is appended too, so
// dependants reached only through an alias still see their real provider
// ordered relative to it.
func propagateProviderOrdering(t *Tree, order *[]string, visited map[string]bool, inLevel func(string) bool) {
	for _, name := range append([]string(nil), *order...) {
		svc := t.get(name)
		if svc == nil {
			continue
		}
		for _, provided := range svc.Relations[RelProvide] {
			target := t.get(provided)
			if target == nil || target.Placeholder || visited[provided] {
				continue
			}
			visited[provided] = true
			if inLevel(provided) {
				*order = append(*order, provided)
			}
		}
	}
}
