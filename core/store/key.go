package store

import "strings"

// Namespace modes.
const (
	NamespaceNone      = "none"
	NamespaceContainer = "container"
)

// Key composes a store key. Without a namespace it is "group:name".
func Key(namespace, group, name string) string {
	if namespace == "" {
		return group + ":" + name
	}
	return namespace + ":" + group + ":" + name
}

// Namespace resolves a namespace mode. "none" or empty yields no namespace,
// "container" yields the container name and anything else is used literally.
func Namespace(mode, containerName string) string {
	switch strings.ToLower(mode) {
	case "", NamespaceNone:
		return ""
	case NamespaceContainer:
		return containerName
	default:
		return mode
	}
}

// Prefix returns the key prefix shared by every record of a namespace.
func Prefix(namespace string) string {
	if namespace == "" {
		return ""
	}
	return namespace + ":"
}

// RecordKey strips the namespace from a store key, returning "group:name".
// ok is false for keys of other namespaces. Record names never contain ':',
// so a remainder with more than one separator belongs to a namespace that
// shares the prefix, or to some namespace when namespace is empty.
func RecordKey(namespace, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, Prefix(namespace))
	if !ok || strings.Count(rest, ":") != 1 {
		return "", false
	}
	return rest, true
}
