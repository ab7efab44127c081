package store

import (
	"strconv"
	"strings"
)

// splitPath breaks a dotted field path into segments. A segment that
// parses as a non-negative integer addresses an array element.
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

func asIndex(seg string) (int, bool) {
	n, err := strconv.Atoi(seg)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// navigate walks all but the last segment of path, creating intermediate
// maps as needed, and returns the container holding the final segment
// along with that segment. The container is either map[string]any or
// []any; callers type-switch to mutate it.
func navigate(root map[string]any, path string, create bool) (container any, lastSeg string, ok bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, "", false
	}

	var cur any = root
	for i := 0; i < len(segs)-1; i++ {
		seg := segs[i]

		switch c := cur.(type) {
		case map[string]any:
			next, exists := c[seg]
			if !exists {
				if !create {
					return nil, "", false
				}
				// Look ahead: if the next segment is numeric, this
				// container should be an array.
				if _, isIdx := asIndex(segs[i+1]); isIdx {
					next = []any{}
				} else {
					next = map[string]any{}
				}
				c[seg] = next
			}
			cur = next
		case []any:
			idx, isIdx := asIndex(seg)
			if !isIdx || idx >= len(c) {
				return nil, "", false
			}
			cur = c[idx]
		default:
			return nil, "", false
		}
	}

	return cur, segs[len(segs)-1], true
}

// getAt returns the value at a dotted path, or nil/false if absent.
func getAt(root map[string]any, path string) (any, bool) {
	container, last, ok := navigate(root, path, false)
	if !ok {
		return nil, false
	}
	switch c := container.(type) {
	case map[string]any:
		v, exists := c[last]
		return v, exists
	case []any:
		idx, isIdx := asIndex(last)
		if !isIdx || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	}
	return nil, false
}

func setAt(root map[string]any, path string, value any) {
	container, last, ok := navigate(root, path, true)
	if !ok {
		return
	}
	switch c := container.(type) {
	case map[string]any:
		c[last] = value
	case []any:
		idx, isIdx := asIndex(last)
		if isIdx && idx < len(c) {
			c[idx] = value
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func incAt(root map[string]any, path string, delta float64) {
	cur, ok := getAt(root, path)
	base := 0.0
	if ok {
		if f, isNum := toFloat(cur); isNum {
			base = f
		}
	}
	setAt(root, path, base+delta)
}

func maxAt(root map[string]any, path string, candidate float64) {
	cur, ok := getAt(root, path)
	if !ok {
		setAt(root, path, candidate)
		return
	}
	f, isNum := toFloat(cur)
	if !isNum || candidate > f {
		setAt(root, path, candidate)
	}
}

func minAt(root map[string]any, path string, candidate float64) {
	cur, ok := getAt(root, path)
	if !ok {
		setAt(root, path, candidate)
		return
	}
	f, isNum := toFloat(cur)
	if !isNum || candidate < f {
		setAt(root, path, candidate)
	}
}

func pushAt(root map[string]any, path string, value any) {
	container, last, ok := navigate(root, path, true)
	if !ok {
		return
	}
	m, isMap := container.(map[string]any)
	if !isMap {
		return
	}
	arr, _ := m[last].([]any)
	m[last] = append(arr, value)
}

// scalarEq is the PullMatch spelling for pulling a plain scalar element
// (a string/number array, not an array of subdocuments) by value, e.g.
// PullMatch{scalarEq: "user-123"} against a []string field.
const scalarEq = "$eq"

func matchesPull(elem any, match PullMatch) bool {
	if want, ok := match[scalarEq]; ok && len(match) == 1 {
		if wf, wok := toFloat(want); wok {
			gf, gok := toFloat(elem)
			return gok && gf == wf
		}
		return elem == want
	}

	m, ok := elem.(map[string]any)
	if !ok {
		return false
	}
	for k, want := range match {
		got, exists := m[k]
		if !exists {
			return false
		}
		if wf, wok := toFloat(want); wok {
			if gf, gok := toFloat(got); !gok || gf != wf {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

func pullAt(root map[string]any, path string, match PullMatch) {
	container, last, ok := navigate(root, path, false)
	if !ok {
		return
	}
	m, isMap := container.(map[string]any)
	if !isMap {
		return
	}
	arr, isArr := m[last].([]any)
	if !isArr {
		return
	}
	dst := arr[:0]
	for _, elem := range arr {
		if matchesPull(elem, match) {
			continue
		}
		dst = append(dst, elem)
	}
	m[last] = dst
}

// ApplyPatch mutates doc in place according to p, returning the set of
// dotted paths that were touched (the Set/Inc/Max/Min/Push/Pull keys,
// verbatim, as the fan-out dispatcher matches against the same paths a
// caller specified).
func ApplyPatch(doc map[string]any, p Patch) []string {
	var touched []string

	for path, v := range p.Set {
		setAt(doc, path, v)
		touched = append(touched, path)
	}
	for path, delta := range p.Inc {
		incAt(doc, path, delta)
		touched = append(touched, path)
	}
	for path, candidate := range p.Max {
		maxAt(doc, path, candidate)
		touched = append(touched, path)
	}
	for path, candidate := range p.Min {
		minAt(doc, path, candidate)
		touched = append(touched, path)
	}
	for path, v := range p.Push {
		pushAt(doc, path, v)
		touched = append(touched, path)
	}
	for path, match := range p.Pull {
		pullAt(doc, path, match)
		touched = append(touched, path)
	}

	return touched
}
