package reader

import "go.uber.org/zap"

// Options controls optional Reader behavior (§6).
type Options struct {
	// ReadDebugNames enables decoding of the "name" custom section into
	// Handler.OnNameSection events. When false, that section is delivered
	// through OnCustomSection like any other unrecognized custom section.
	ReadDebugNames bool

	// Logger is an optional logger. The Reader writes nothing
	// to it; errors are always returned values, never logged.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
