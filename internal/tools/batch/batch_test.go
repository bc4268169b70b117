package batch

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nemolo/jmap-client/internal/jmap"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr string
	}{
		{
			name:  "single string",
			input: "test123",
			want:  []string{"test123"},
		},
		{
			name:  "array of strings",
			input: []any{"id1", "id2", "id3"},
			want:  []string{"id1", "id2", "id3"},
		},
		{
			name:  "string slice",
			input: []string{"id1", "id2"},
			want:  []string{"id1", "id2"},
		},
		{
			name:  "JSON string array",
			input: `["id1", "id2", "id3"]`,
			want:  []string{"id1", "id2", "id3"},
		},
		{
			name:    "invalid JSON string array",
			input:   `["id1", `,
			wantErr: "testParam is not a valid JSON array",
		},
		{
			name:    "nil input",
			input:   nil,
			wantErr: "testParam is required",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: "testParam cannot be empty",
		},
		{
			name:    "empty array",
			input:   []any{},
			wantErr: "testParam cannot be empty",
		},
		{
			name:    "array with non-string",
			input:   []any{"id1", 123, "id3"},
			wantErr: "testParam[1] must be a string",
		},
		{
			name:    "array with empty string",
			input:   []any{"id1", "", "id3"},
			wantErr: "testParam[1] cannot be empty",
		},
		{
			name:    "invalid type",
			input:   123,
			wantErr: "testParam must be a string or array of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "testParam")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCalls(t *testing.T) {
	calls, err := ParseCalls([]any{
		[]any{"Email/query", map[string]any{"limit": float64(10)}, "q"},
		[]any{"Mailbox/get", nil, "m"},
		[]any{"Thread/get"},
	})
	require.NoError(t, err)
	require.Len(t, calls, 3)

	assert.Equal(t, "Email/query", calls[0].Name)
	assert.Equal(t, "q", calls[0].CallID)
	assert.JSONEq(t, `{"limit": 10}`, string(calls[0].Arguments))

	assert.Equal(t, "m", calls[1].CallID)
	assert.JSONEq(t, `{}`, string(calls[1].Arguments), "null arguments are sent as an empty object")

	assert.Equal(t, "Thread/get", calls[2].Name)
	_, err = uuid.Parse(calls[2].CallID)
	assert.NoError(t, err, "a missing call id is generated")
}

func TestParseCalls_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantErr string
	}{
		{name: "nil", input: nil, wantErr: "calls is required"},
		{name: "not an array", input: "Email/get", wantErr: "calls must be an array"},
		{name: "empty", input: []any{}, wantErr: "calls cannot be empty"},
		{name: "entry not an array", input: []any{"Email/get"}, wantErr: "calls[0] must be a [method, arguments, callId] array"},
		{name: "too long", input: []any{[]any{"Email/get", map[string]any{}, "a", "b"}}, wantErr: "calls[0] must be"},
		{name: "method not a string", input: []any{[]any{1}}, wantErr: "calls[0]: method must be a non-empty string"},
		{name: "arguments not an object", input: []any{[]any{"Email/get", []any{}}}, wantErr: "calls[0]: arguments must be an object"},
		{name: "call id not a string", input: []any{[]any{"Email/get", nil, 7}}, wantErr: "calls[0]: callId must be a string"},
		{
			name: "duplicate call id",
			input: []any{
				[]any{"Email/get", nil, "a"},
				[]any{"Thread/get", nil, "a"},
			},
			wantErr: `calls[1]: duplicate callId "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCalls(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromResponse(t *testing.T) {
	calls := []jmap.Invocation{
		{Name: "Email/query", Arguments: json.RawMessage(`{}`), CallID: "q"},
		{Name: "Email/get", Arguments: json.RawMessage(`{}`), CallID: "g"},
	}
	resp := &jmap.Response{
		MethodResponses: []jmap.Invocation{
			{Name: "Email/query", Arguments: json.RawMessage(`{"ids":["e1"]}`), CallID: "q"},
			{Name: "error", Arguments: json.RawMessage(`{"type":"invalidResultReference"}`), CallID: "g"},
		},
		SessionState: "s1",
	}

	results := FromResponse(calls, resp)
	require.Len(t, results, 2)

	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, "Email/query", results[0].Method)
	assert.JSONEq(t, `{"ids":["e1"]}`, string(results[0].Result))

	assert.Equal(t, StatusError, results[1].Status)
	assert.Equal(t, "Email/get", results[1].Method, "error responses carry the method that was called")
	assert.Equal(t, "jmap Email/get: invalidResultReference", results[1].Error)
	assert.JSONEq(t, `{"type":"invalidResultReference"}`, string(results[1].Result))
}

func TestFromResponse_Nil(t *testing.T) {
	assert.Empty(t, FromResponse(nil, nil))
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		NewSuccessResult("a", "Mailbox/get", json.RawMessage(`{"list":[]}`)),
		NewErrorResult("b", "Email/get", errors.New("boom")),
		NewSuccessResult("c", "Thread/get", nil),
	}

	var br BatchResult
	require.NoError(t, json.Unmarshal([]byte(FormatResults(results, "s9")), &br))

	assert.Equal(t, 3, br.Total)
	assert.Equal(t, 2, br.Successful)
	assert.Equal(t, 1, br.Failed)
	assert.Equal(t, "s9", br.SessionState)
	require.Len(t, br.Results, 3)
	assert.Equal(t, "boom", br.Results[1].Error)
	assert.Equal(t, "Email/get", br.Results[1].Method)
}

func TestWithDefaultAccount(t *testing.T) {
	mk := func(method string, args any, id string) jmap.Invocation {
		inv, err := jmap.NewInvocation(method, args, id)
		require.NoError(t, err)
		return inv
	}

	calls := []jmap.Invocation{
		mk(jmap.MethodMailboxGet, map[string]any{}, "a"),
		mk(jmap.MethodEmailGet, map[string]any{"accountId": "u2"}, "b"),
		mk("Core/echo", map[string]any{"x": 1}, "c"),
	}

	out, err := WithDefaultAccount(calls, "u1")
	require.NoError(t, err)
	require.Len(t, out, 3)

	var args jmap.Arguments
	require.NoError(t, json.Unmarshal(out[0].Arguments, &args))
	assert.Equal(t, "u1", args.Account())
	require.NoError(t, json.Unmarshal(out[1].Arguments, &args))
	assert.Equal(t, "u2", args.Account())
	assert.JSONEq(t, `{"x": 1}`, string(out[2].Arguments))

	for i := range out {
		assert.Equal(t, calls[i].CallID, out[i].CallID)
	}
}
