package instrumentation

import "strings"

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// Method names reach the metrics layer straight from user input (jmap_call,
// the call command), so they are normalised before being used as labels.

// MethodOther is the label recorded for method names that do not look like
// a JMAP method.
const MethodOther = "other"

// knownVerbs are the method verbs defined by RFC 8620 and RFC 8621.
var knownVerbs = map[string]bool{
	"get":          true,
	"changes":      true,
	"set":          true,
	"copy":         true,
	"query":        true,
	"queryChanges": true,
	"import":       true,
	"parse":        true,
	"echo":         true,
	"lookup":       true,
}

// ExtractUserDomain extracts the domain part from an email address.
// JMAP session usernames are usually email addresses.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// NormalizeMethodName returns name when it has the shape Type/verb with a
// standard verb, and MethodOther otherwise.
//
//	NormalizeMethodName("Email/query")  // "Email/query"
//	NormalizeMethodName("Foo/bar")      // "other"
func NormalizeMethodName(name string) string {
	typ, verb, ok := strings.Cut(name, "/")
	if !ok || typ == "" || !knownVerbs[verb] {
		return MethodOther
	}
	for _, r := range typ {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z') {
			return MethodOther
		}
	}
	return name
}
