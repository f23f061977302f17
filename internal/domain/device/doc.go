// Package device defines the contracts implemented by token backends. Raw key
// handles never leave a Device; callers refer to keys by ID.
package device
