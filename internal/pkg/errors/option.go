package errors

// GetOpts - iterate the inbound Options and return a struct.
func GetOpts(opt ...Option) Options {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// Option - how Options are passed as arguments.
type Option func(*Options)

// Options - how Options are represented.
type Options struct {
	withErrWrapped  error
	withTranslation string
}

func getDefaultOptions() Options {
	return Options{}
}

// WithWrap allows an optional error to be wrapped and included in the error.
func WithWrap(e error) Option {
	return func(o *Options) {
		o.withErrWrapped = e
	}
}

// WithTranslation overrides the Code's default translation code.
func WithTranslation(code string) Option {
	return func(o *Options) {
		o.withTranslation = code
	}
}
