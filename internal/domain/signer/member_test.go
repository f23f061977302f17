//go:build unit
// +build unit

package signer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberID_String(t *testing.T) {
	member := MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "1234"}
	assert.Equal(t, "EE/GOV/1234", member.String())
	assert.False(t, member.IsSubsystem())

	member.SubsystemCode = "registry"
	assert.Equal(t, "EE/GOV/1234/registry", member.String())
	assert.True(t, member.IsSubsystem())
}

func TestParseMemberID(t *testing.T) {
	tests := []struct {
		in      string
		want    MemberID
		wantErr bool
	}{
		{in: "EE/GOV/1234", want: MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "1234"}},
		{in: "EE/GOV/1234/sub", want: MemberID{XRoadInstance: "EE", MemberClass: "GOV", MemberCode: "1234", SubsystemCode: "sub"}},
		{in: "EE/GOV", wantErr: true},
		{in: "EE//1234", wantErr: true},
		{in: "EE/GOV/1234/sub/extra", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMemberID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}
