package regions

import "net/http"

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath    string
	CountryParam string
	Guard        GuardFunc

	// Regions overrides the embedded dataset. Keys are country names,
	// values their states in display order.
	Regions map[string][]string
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:    "/api/getStates",
		CountryParam: "country",
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/getStates"
	}
	if opts.CountryParam == "" {
		opts.CountryParam = "country"
	}
	if opts.Regions != nil {
		opts.Regions = cloneRegions(opts.Regions)
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithCountryParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.CountryParam = name
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithRegions(regions map[string][]string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		if regions == nil {
			o.Regions = nil
			return
		}
		o.Regions = cloneRegions(regions)
	}
}

func cloneRegions(regions map[string][]string) map[string][]string {
	out := make(map[string][]string, len(regions))
	for country, states := range regions {
		out[country] = append([]string{}, states...)
	}
	return out
}
