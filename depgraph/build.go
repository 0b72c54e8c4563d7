package depgraph

import "fmt"

// BuildResult carries a built Tree alongside the non-fatal problems found
// while building it (missing `need` targets). Those do not abort the
// build — the caller gets a usable tree and surfaces the warnings — but a
// self-referential relation is fatal and returned as err instead.
type BuildResult struct {
	Tree     *Tree
	Warnings []error
}

// Build runs the five phases of §4.2.3 over a set of raw per-service
// declarations (as produced by LoadDeclarations or by a reloaded cache) and
// returns the finished, sorted dependency tree.
func Build(decls []*rawDecl) (*BuildResult, error) {
	t := newTree()

	// Phase 1: collect raw declarations per service.
	for _, d := range decls {
		if d.name == "" {
			continue
		}
		svc := t.getOrCreate(d.name)
		svc.Placeholder = false
		for k := range d.keywords {
			svc.Keywords[k] = struct{}{}
		}
		for rt, targets := range d.relations {
			for _, target := range targets {
				if isForward(rt) && target == d.name {
					return nil, fmt.Errorf("%w: service %q needs itself via %q", ErrBrokenDependency, d.name, rt)
				}
				svc.addRelation(rt, target)
			}
		}
	}

	// Phase 2: insert placeholder nodes for every provide target not
	// otherwise declared, so traversal lookups always succeed.
	for _, svc := range t.Services {
		for _, target := range svc.Relations[RelProvide] {
			t.getOrCreate(target)
		}
	}

	// Phase 3: compute back-edges; collect (not abort on) missing `need`.
	var warnings []error
	names := make([]string, 0, len(t.Services))
	for name := range t.Services {
		names = append(names, name)
	}
	for _, name := range names {
		svc := t.Services[name]
		for _, rt := range forwardRelations {
			inv, ok := inverseOf[rt]
			if !ok {
				continue
			}
			for _, target := range svc.Relations[rt] {
				targetSvc, known := t.Services[target]
				if !known {
					if rt == RelNeed {
						warnings = append(warnings, fmt.Errorf("%w: %q needs unknown service %q", ErrMissingDependency, name, target))
					}
					targetSvc = t.getOrCreate(target)
				}
				targetSvc.addRelation(inv, name)
			}
		}
	}

	// Phase 4: stable, locale-insensitive sort of every relation's targets.
	for _, svc := range t.Services {
		svc.sortRelations()
	}

	return &BuildResult{Tree: t, Warnings: warnings}, nil
}

func isForward(rt RelType) bool {
	for _, f := range forwardRelations {
		if f == rt {
			return true
		}
	}
	return false
}
