package softtoken

import "golang.org/x/crypto/bcrypt"

// getOpts - iterate the inbound Options and return a struct.
func getOpts(opt ...Option) options {
	opts := options{
		bcryptCost: bcrypt.DefaultCost,
		scryptN:    1 << 15,
	}
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// Option - how Options are passed as arguments.
type Option func(*options)

type options struct {
	bcryptCost int
	scryptN    int
}

// WithBcryptCost sets the cost of the PIN verifier.
func WithBcryptCost(cost int) Option {
	return func(o *options) {
		o.bcryptCost = cost
	}
}

// WithScryptN sets the scrypt CPU/memory cost of the PIN key derivation.
// It must be a power of two.
func WithScryptN(n int) Option {
	return func(o *options) {
		o.scryptN = n
	}
}
