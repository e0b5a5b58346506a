package exchange

import (
	"time"

	"strongbridge/pkg/core"
)

type Option func(*Options)

type Options struct {
	Limit     int
	StartTime time.Time
	EndTime   time.Time
	// AccountID overrides the session's default account.
	AccountID string
	// Params are passed to the venue unchanged.
	Params core.Params
}

func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func WithTimeRange(start, end time.Time) Option {
	return func(o *Options) {
		o.StartTime = start
		o.EndTime = end
	}
}

func WithAccount(accountID string) Option {
	return func(o *Options) {
		o.AccountID = accountID
	}
}

func WithParams(params core.Params) Option {
	return func(o *Options) {
		if o.Params == nil {
			o.Params = make(core.Params, len(params))
		}
		for k, v := range params {
			o.Params[k] = v
		}
	}
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// InRange reports whether t falls inside the option's time range. Zero
// bounds are open.
func (o *Options) InRange(t time.Time) bool {
	if !o.StartTime.IsZero() && t.Before(o.StartTime) {
		return false
	}
	if !o.EndTime.IsZero() && t.After(o.EndTime) {
		return false
	}
	return true
}
