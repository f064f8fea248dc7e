package obs

import "strings"

// CanonicalPath collapses resource identifiers so metric labels stay bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" && parts[1] == "members" && parts[2] != "stats" {
		parts[2] = ":id"
		return "/" + strings.Join(parts, "/")
	}
	if len(parts) == 3 && parts[0] == "v1" && parts[1] == "associations" {
		parts[2] = ":id"
		return "/" + strings.Join(parts, "/")
	}
	return path
}
