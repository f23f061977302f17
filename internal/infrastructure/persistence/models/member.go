package models

import "github.com/MGTheTrain/crypto-signer/internal/domain/signer"

// memberColumn encodes an optional member identifier as its string form.
func memberColumn(m *signer.MemberID) string {
	if m == nil {
		return ""
	}
	return m.String()
}

// parseMemberColumn is the inverse of memberColumn. Unparseable values read
// back as no member.
func parseMemberColumn(s string) *signer.MemberID {
	if s == "" {
		return nil
	}
	m, err := signer.ParseMemberID(s)
	if err != nil {
		return nil
	}
	return &m
}
