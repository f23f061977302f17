// Package errors implements the closed error taxonomy of the signer. Every
// failure crossing a service boundary is an *Err carrying a Code, which maps
// to a Kind, a fault code and a default translation code.
package errors
