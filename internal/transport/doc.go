// Package transport provides the HTTP implementation of jmap.Transport.
//
// Every round trip goes through an otelhttp transport, so JMAP requests show
// up as client spans when tracing is enabled. Responses with a non-2xx
// status or a body that is not JSON fail with a *TransportError. Nothing is
// retried.
package transport
