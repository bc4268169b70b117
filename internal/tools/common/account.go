package common

import (
	"github.com/Nemolo/jmap-client/internal/server"
)

// Argument names shared by the JMAP tools.
const (
	ArgAccountID = "accountId"
	ArgMethod    = "method"
	ArgCalls     = "calls"
)

// GetAccountFromArgs returns the accountId argument. An empty result means
// the call goes to the session's first account.
func GetAccountFromArgs(args map[string]any) string {
	if id, ok := args[ArgAccountID].(string); ok {
		return id
	}
	return ""
}

// GetMethodsFromArgs returns the JMAP method names a generic tool call will
// send: the "method" argument, or the method of every entry in "calls".
// Entries that are not [name, args, callId] arrays are skipped.
func GetMethodsFromArgs(args map[string]any) []string {
	if method, ok := args[ArgMethod].(string); ok && method != "" {
		return []string{method}
	}

	calls, ok := args[ArgCalls].([]any)
	if !ok {
		return nil
	}

	var methods []string
	for _, call := range calls {
		triple, ok := call.([]any)
		if !ok || len(triple) == 0 {
			continue
		}
		if name, ok := triple[0].(string); ok && name != "" {
			methods = append(methods, name)
		}
	}
	return methods
}

// GetUsername returns the username of the loaded session, or "" when no
// session has been fetched yet. It never triggers a fetch.
func GetUsername(sc *server.ServerContext) string {
	s, err := sc.Client().Session()
	if err != nil {
		return ""
	}
	return s.Username
}
