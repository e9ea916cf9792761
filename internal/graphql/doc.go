// Package graphql executes PeerBoard's named queries against the proxy's
// GraphQL query service.
//
// [Client] implements poller.Executor. Each named query maps to a fixed
// document (see [Document]); bound query parameters are sent as GraphQL
// variables. The payload of the query's result field is returned raw, and
// failures are reported as *poller.TransportError or *poller.ServiceError.
package graphql
