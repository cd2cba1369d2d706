// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import "go.uber.org/zap"

// Options carries per-call settings into decoders.
type Options struct {
	Logger *zap.Logger
}

type Opt func(*Options)

// WithLogger attaches a diagnostic logger to a decode call.
func WithLogger(logger *zap.Logger) Opt {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// ResolveOptions applies opts over the defaults (a no-op logger).
func ResolveOptions(opts ...Opt) *Options {
	o := &Options{
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
