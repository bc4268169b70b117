// Package batch provides helpers for tools that send several JMAP method
// calls in one request.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Parsing [method, arguments, callId] triples into invocations
//   - Summarising a response per call id, attributing error responses to
//     the method that caused them
package batch
