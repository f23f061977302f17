package registry

import "maps"

type state struct {
	tokens       map[string]Token
	keys         map[string]Key
	certs        map[string]Cert
	certRequests map[string]CertRequest
	// certByHash indexes every certificate by hash. Hashes are unique.
	certByHash map[string]string
}

func newState() *state {
	return &state{
		tokens:       make(map[string]Token),
		keys:         make(map[string]Key),
		certs:        make(map[string]Cert),
		certRequests: make(map[string]CertRequest),
		certByHash:   make(map[string]string),
	}
}

func (s *state) clone() *state {
	return &state{
		tokens:       maps.Clone(s.tokens),
		keys:         maps.Clone(s.keys),
		certs:        maps.Clone(s.certs),
		certRequests: maps.Clone(s.certRequests),
		certByHash:   maps.Clone(s.certByHash),
	}
}
