package events

import "strings"

// LastPathSegment returns the part of path after its last '/'. A path with no
// '/' or ending in '/' is returned unchanged; an empty path has no segment.
func LastPathSegment(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	i := strings.LastIndexByte(path, '/')
	if i == -1 || i == len(path)-1 {
		return path, true
	}
	return path[i+1:], true
}
