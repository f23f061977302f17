package signer

import (
	"fmt"
	"strings"
)

// MemberID identifies a federation member, optionally narrowed to one of its
// subsystems.
type MemberID struct {
	XRoadInstance string `json:"xroadInstance" validate:"required"`
	MemberClass   string `json:"memberClass" validate:"required"`
	MemberCode    string `json:"memberCode" validate:"required"`
	SubsystemCode string `json:"subsystemCode,omitempty"`
}

// String renders INSTANCE/CLASS/CODE[/SUBSYSTEM].
func (m MemberID) String() string {
	parts := []string{m.XRoadInstance, m.MemberClass, m.MemberCode}
	if m.SubsystemCode != "" {
		parts = append(parts, m.SubsystemCode)
	}
	return strings.Join(parts, "/")
}

// IsSubsystem reports whether the identifier names a subsystem.
func (m MemberID) IsSubsystem() bool {
	return m.SubsystemCode != ""
}

// Validate for validating MemberID struct
func (m *MemberID) Validate() error {
	if err := validateStruct(m); err != nil {
		return err
	}
	for _, part := range []string{m.XRoadInstance, m.MemberClass, m.MemberCode, m.SubsystemCode} {
		if strings.Contains(part, "/") {
			return fmt.Errorf("validation failed: member id part %q contains '/'", part)
		}
	}
	return nil
}

// ParseMemberID parses the string form produced by MemberID.String.
func ParseMemberID(s string) (MemberID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 && len(parts) != 4 {
		return MemberID{}, fmt.Errorf("invalid member id %q", s)
	}
	m := MemberID{XRoadInstance: parts[0], MemberClass: parts[1], MemberCode: parts[2]}
	if len(parts) == 4 {
		m.SubsystemCode = parts[3]
	}
	if err := m.Validate(); err != nil {
		return MemberID{}, fmt.Errorf("invalid member id %q: %w", s, err)
	}
	return m, nil
}
