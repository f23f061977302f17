package cryptography

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"strconv"
	"strings"
)

var dnAttributeOIDs = map[string]asn1.ObjectIdentifier{
	"CN":           {2, 5, 4, 3},
	"SERIALNUMBER": {2, 5, 4, 5},
	"C":            {2, 5, 4, 6},
	"L":            {2, 5, 4, 7},
	"ST":           {2, 5, 4, 8},
	"STREET":       {2, 5, 4, 9},
	"O":            {2, 5, 4, 10},
	"OU":           {2, 5, 4, 11},
	"E":            {1, 2, 840, 113549, 1, 9, 1},
	"EMAILADDRESS": {1, 2, 840, 113549, 1, 9, 1},
	"DC":           {0, 9, 2342, 19200300, 100, 1, 25},
	"UID":          {0, 9, 2342, 19200300, 100, 1, 1},
}

// ParseDistinguishedName parses "CN=a, O=b" into an RDN sequence kept in
// the written order. Backslash escapes a separator; dotted OIDs are accepted
// as attribute types.
func ParseDistinguishedName(dn string) (pkix.RDNSequence, error) {
	parts, err := splitDN(dn)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty distinguished name")
	}

	seq := make(pkix.RDNSequence, 0, len(parts))
	for _, part := range parts {
		typ, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid attribute %q in %q", part, dn)
		}
		typ = strings.TrimSpace(typ)
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("empty value for %s in %q", typ, dn)
		}
		oid, err := attributeOID(typ)
		if err != nil {
			return nil, err
		}
		seq = append(seq, pkix.RelativeDistinguishedNameSET{{Type: oid, Value: value}})
	}
	return seq, nil
}

// MarshalDistinguishedName returns the DER encoding used as RawSubject.
func MarshalDistinguishedName(dn string) ([]byte, error) {
	seq, err := ParseDistinguishedName(dn)
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(seq)
}

func attributeOID(typ string) (asn1.ObjectIdentifier, error) {
	if oid, ok := dnAttributeOIDs[strings.ToUpper(typ)]; ok {
		return oid, nil
	}
	var oid asn1.ObjectIdentifier
	for _, arc := range strings.Split(typ, ".") {
		n, err := strconv.Atoi(arc)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("unknown attribute type %q", typ)
		}
		oid = append(oid, n)
	}
	if len(oid) < 2 {
		return nil, fmt.Errorf("unknown attribute type %q", typ)
	}
	return oid, nil
}

func splitDN(dn string) ([]string, error) {
	var (
		parts   []string
		current strings.Builder
		escaped bool
	)
	for _, r := range dn {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',' || r == ';':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("dangling escape in %q", dn)
	}
	if s := strings.TrimSpace(current.String()); s != "" || len(parts) > 0 {
		parts = append(parts, current.String())
	}
	return parts, nil
}
