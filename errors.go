package peerboard

import "github.com/jpalmerr/peerboard/poller"

// Errors returned by resources and views.
var (
	ErrPollerStopped     = poller.ErrPollerStopped
	ErrViewClosed        = poller.ErrRegistryClosed
	ErrDuplicateResource = poller.ErrDuplicateResource
	ErrUnknownResource   = poller.ErrUnknownResource
)

// TransportError reports that the query service could not be reached.
type TransportError = poller.TransportError

// ServiceError reports a structured failure from the query service.
type ServiceError = poller.ServiceError
