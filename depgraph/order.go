package depgraph

// Reserved runlevel names from §3.5.
const (
	LevelSysinit    = "sysinit"
	LevelBoot       = "boot"
	LevelDefault    = "default"
	LevelSingle     = "single"
	LevelShutdown   = "shutdown"
	LevelReboot     = "reboot"
	LevelNoNetwork  = "nonetwork"
)

// startTypes are the forward relations a start-direction traversal
// follows: a service is ordered after everything it needs, uses, or must
// come after.
var startTypes = []RelType{RelNeed, RelUse, RelAfter}

// Order computes the full ordering for a runlevel transition (§4.2.5's
// closing paragraph): the union of runlevel membership, hotplugged
// services (always), the sysinit level's members (unless the target is
// shutdown or sysinit) and the boot level's members (unless the target is
// shutdown, sysinit, single or the boot level itself), run through Depends
// over the start relation types and reversed for a stop.
func Order(t *Tree, runlevel, bootlevel string, rm RunlevelMembership, opts Options) []string {
	services := unionMembership(runlevel, bootlevel, rm)
	ordered := Depends(t, startTypes, services, runlevel, bootlevel, rm, opts)
	if opts.Stop {
		reverse(ordered)
	}
	return ordered
}

func unionMembership(runlevel, bootlevel string, rm RunlevelMembership) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	add(rm.Members(runlevel))

	if runlevel != LevelShutdown && runlevel != LevelSysinit {
		add(rm.Members(LevelSysinit))
		if runlevel != LevelSingle {
			if runlevel != bootlevel {
				add(rm.Members(bootlevel))
			}
		}
	}
	add(rm.HotplugMembers())
	return out
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
