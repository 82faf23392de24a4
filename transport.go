package uciengine

import "github.com/wagiedev/uci-engine-go/internal/config"

// Transport is a line-oriented connection to one engine.
// Implement this to drive something other than a local child process,
// or to script an engine in tests. Inject it with WithTransportFactory.
type Transport = config.Transport

// TransportFactory creates the Transport for each new engine session.
type TransportFactory = config.TransportFactory
