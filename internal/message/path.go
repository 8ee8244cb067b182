package message

import "strings"

// QualifyPath rewrites every simple segment of a slash-separated element
// path to the Clark form "{ns}segment". Segments that are empty or "*", or
// that contain ':', '.', '=', '}' or '[' are left alone, so "." steps,
// prefixed names, predicates and already-qualified names pass through.
// An empty namespace returns path unchanged.
func QualifyPath(path, ns string) string {
	if ns == "" {
		return path
	}

	segs := strings.Split(path, "/")
	for i, seg := range segs {
		segs[i] = qualifySegment(seg, ns)
	}
	return strings.Join(segs, "/")
}

func qualifySegment(seg, ns string) string {
	if ns == "" || seg == "" || seg == "*" || strings.ContainsAny(seg, ":.=}[") {
		return seg
	}
	return "{" + ns + "}" + seg
}
