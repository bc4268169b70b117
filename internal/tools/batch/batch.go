package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Nemolo/jmap-client/internal/jmap"
)

// Status values of a Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one method call in a multi-call request.
type Result struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Status string          `json:"status"` // "success" or "error"
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a multi-call request
type BatchResult struct {
	Total        int      `json:"total"`
	Successful   int      `json:"successful"`
	Failed       int      `json:"failed"`
	SessionState string   `json:"sessionState,omitempty"`
	Results      []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that can be either a single string or an array of strings.
// A string holding a JSON array is accepted as well.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if trimmed := strings.TrimSpace(v); strings.HasPrefix(trimmed, "[") {
			var items []any
			if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
				return nil, fmt.Errorf("%s is not a valid JSON array: %w", paramName, err)
			}
			return ParseStringOrArray(items, paramName)
		}
		result = []string{v}
	case []string:
		return ParseStringOrArray(toAnySlice(v), paramName)
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// ParseCalls turns a list of [name, arguments, callId] triples into
// invocations. The call id may be omitted; a random one is generated.
// Arguments may be omitted or null and are then sent as an empty object.
func ParseCalls(param any) ([]jmap.Invocation, error) {
	items, ok := param.([]any)
	if !ok {
		if param == nil {
			return nil, fmt.Errorf("calls is required")
		}
		return nil, fmt.Errorf("calls must be an array of [method, arguments, callId] arrays")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("calls cannot be empty")
	}

	calls := make([]jmap.Invocation, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		triple, ok := item.([]any)
		if !ok || len(triple) == 0 || len(triple) > 3 {
			return nil, fmt.Errorf("calls[%d] must be a [method, arguments, callId] array", i)
		}

		name, ok := triple[0].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("calls[%d]: method must be a non-empty string", i)
		}

		var args any = map[string]any{}
		if len(triple) > 1 && triple[1] != nil {
			if _, ok := triple[1].(map[string]any); !ok {
				return nil, fmt.Errorf("calls[%d]: arguments must be an object", i)
			}
			args = triple[1]
		}

		callID := ""
		if len(triple) > 2 {
			if callID, ok = triple[2].(string); !ok {
				return nil, fmt.Errorf("calls[%d]: callId must be a string", i)
			}
		}
		if callID == "" {
			callID = uuid.NewString()
		}
		if seen[callID] {
			return nil, fmt.Errorf("calls[%d]: duplicate callId %q", i, callID)
		}
		seen[callID] = true

		inv, err := jmap.NewInvocation(name, args, callID)
		if err != nil {
			return nil, fmt.Errorf("calls[%d]: %w", i, err)
		}
		calls = append(calls, inv)
	}

	return calls, nil
}

// FromResponse builds one Result per method response. Error responses are
// attributed to the method of the call with the same call id.
func FromResponse(calls []jmap.Invocation, resp *jmap.Response) []Result {
	if resp == nil {
		return []Result{}
	}

	methodByID := make(map[string]string, len(calls))
	for _, c := range calls {
		methodByID[c.CallID] = c.Name
	}

	results := make([]Result, 0, len(resp.MethodResponses))
	for _, inv := range resp.MethodResponses {
		if inv.IsError() {
			method := methodByID[inv.CallID]
			me := &jmap.MethodError{Method: method}
			_ = json.Unmarshal(inv.Arguments, me)
			results = append(results, Result{
				ID:     inv.CallID,
				Method: method,
				Status: StatusError,
				Result: inv.Arguments,
				Error:  me.Error(),
			})
			continue
		}
		results = append(results, NewSuccessResult(inv.CallID, inv.Name, inv.Arguments))
	}
	return results
}

// coreMethodPrefix marks methods that take no accountId.
const coreMethodPrefix = "Core/"

// WithDefaultAccount sets accountId on every call that lacks one, except
// Core methods. Call ids are kept.
func WithDefaultAccount(calls []jmap.Invocation, accountID string) ([]jmap.Invocation, error) {
	out := make([]jmap.Invocation, len(calls))
	for i, call := range calls {
		out[i] = call
		if strings.HasPrefix(call.Name, coreMethodPrefix) {
			continue
		}

		var args jmap.Arguments
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return nil, fmt.Errorf("call %s: %w", call.CallID, err)
		}
		if args.Account() != "" {
			continue
		}

		inv, err := jmap.NewInvocation(call.Name, args.WithAccount(accountID), call.CallID)
		if err != nil {
			return nil, err
		}
		out[i] = inv
	}
	return out, nil
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(results []Result, sessionState string) string {
	br := BatchResult{
		Total:        len(results),
		SessionState: sessionState,
		Results:      results,
	}

	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}

	jsonBytes, _ := json.MarshalIndent(br, "", "  ")
	return string(jsonBytes)
}

// NewSuccessResult creates a success result
func NewSuccessResult(id, method string, result json.RawMessage) Result {
	return Result{
		ID:     id,
		Method: method,
		Status: StatusSuccess,
		Result: result,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id, method string, err error) Result {
	return Result{
		ID:     id,
		Method: method,
		Status: StatusError,
		Error:  err.Error(),
	}
}
