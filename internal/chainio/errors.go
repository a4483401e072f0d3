package chainio

import "errors"

// ErrNoReachableEndpoint is returned when every endpoint in a network's
// ordered fallback list has failed.
var ErrNoReachableEndpoint = errors.New("no reachable endpoint")
