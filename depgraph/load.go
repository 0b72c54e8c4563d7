package depgraph

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// depinfoLine matches "depinfo_<i>_service='name'" or
// "depinfo_<i>_<type>_<j>='target'", tolerating arbitrary leading/trailing
// whitespace around the '=' the way shell variable assignments do.
var depinfoLine = regexp.MustCompile(`^\s*depinfo_(\d+)_([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*?)\s*$`)

// rawDecl accumulates the fields seen for one depinfo_<i> block before it
// is folded into a Service.
type rawDecl struct {
	index     int
	name      string
	relations map[RelType][]string
	keywords  map[Keyword]struct{}
}

// LoadDeclarations parses the flat key/value stream produced by the shell
// helper (§4.2.1) into one raw declaration per service, in ascending index
// order. Unknown relation types are preserved verbatim so
// a forward-compatible helper can add new ones without breaking the parser.
func LoadDeclarations(r io.Reader) ([]*rawDecl, error) {
	byIndex := make(map[int]*rawDecl)
	var order []int

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := depinfoLine.FindStringSubmatch(line)
		if m == nil {
			continue // tolerate blank/garbage lines between assignments
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		field := m[2]
		value := unquote(m[3])

		decl, ok := byIndex[idx]
		if !ok {
			decl = &rawDecl{
				index:     idx,
				relations: make(map[RelType][]string),
				keywords:  make(map[Keyword]struct{}),
			}
			byIndex[idx] = decl
			order = append(order, idx)
		}

		if field == "service" {
			decl.name = value
			continue
		}
		if field == "keywords" {
			for _, k := range strings.Fields(value) {
				decl.keywords[Keyword(k)] = struct{}{}
			}
			continue
		}
		// field is "<type>_<j>"; split off the trailing ordinal.
		relType, ok := splitRelField(field)
		if !ok {
			continue
		}
		if value != "" {
			decl.relations[relType] = append(decl.relations[relType], value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading depinfo stream: %w", err)
	}

	sort.Ints(order)
	decls := make([]*rawDecl, 0, len(order))
	for _, idx := range order {
		decls = append(decls, byIndex[idx])
	}
	return decls, nil
}

// splitRelField splits "need_0" into (RelNeed, true). The ordinal itself is
// discardable — ordering is re-derived at sort time (phase 4) — but its
// presence is what distinguishes a relation field from an unknown flag.
func splitRelField(field string) (RelType, bool) {
	us := strings.LastIndexByte(field, '_')
	if us <= 0 {
		return "", false
	}
	if _, err := strconv.Atoi(field[us+1:]); err != nil {
		return "", false
	}
	return RelType(field[:us]), true
}

// unquote strips a single layer of matching single or double quotes, the
// shell helper's usual quoting, tolerating an unquoted bare value too.
func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '\'' && v[len(v)-1] == '\'') || (v[0] == '"' && v[len(v)-1] == '"') {
			return v[1 : len(v)-1]
		}
	}
	return v
}
