package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/infrastructure/registry"
	signererrors "github.com/MGTheTrain/crypto-signer/internal/pkg/errors"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// memberService implements the MemberService interface
type memberService struct {
	registry *registry.Registry
	logger   logger.Logger
}

// NewMemberService creates a new memberService instance
func NewMemberService(registry *registry.Registry, logger logger.Logger) (signer.MemberService, error) {
	return &memberService{
		registry: registry,
		logger:   logger,
	}, nil
}

type signingCandidate struct {
	cert registry.Cert
	key  registry.Key
}

// GetMemberSigningInfo picks the signing certificate of a member. Among the
// active certificates on signing-capable keys of active tokens it prefers
// the most recently activated one, then the lowest certificate ID.
func (s *memberService) GetMemberSigningInfo(_ context.Context, memberID signer.MemberID) (*signer.MemberSigningInfo, error) {
	const op = "MemberService.GetMemberSigningInfo"

	if err := memberID.Validate(); err != nil {
		return nil, invalidParameter(op, err)
	}

	snap := s.registry.Snapshot()
	var (
		candidates   []signingCandidate
		tokenBlocked bool
	)
	for _, c := range snap.Certs() {
		if c.MemberID == nil || *c.MemberID != memberID || !c.Active {
			continue
		}
		k, ok := snap.Key(c.KeyID)
		if !ok {
			continue
		}
		info := signer.KeyInfo{Usage: k.Usage}
		if !info.CanSign() {
			continue
		}
		t, ok := snap.Token(k.TokenID)
		if !ok {
			continue
		}
		if !t.Available || t.State != signer.TokenStateActive || !k.Available {
			tokenBlocked = true
			continue
		}
		candidates = append(candidates, signingCandidate{cert: c, key: k})
	}

	if len(candidates) == 0 {
		if tokenBlocked {
			return nil, signererrors.New(signererrors.CertNotFound, op,
				fmt.Sprintf("Signing key for member '%s' is on a token that is not active", memberID),
				signererrors.WithTranslation(signererrors.TranslationMemberTokenNotActive))
		}
		return nil, signererrors.New(signererrors.CertNotFound, op,
			fmt.Sprintf("Member '%s' has no suitable certificates", memberID),
			signererrors.WithTranslation(signererrors.TranslationMemberHasNoCert))
	}

	slices.SortFunc(candidates, func(a, b signingCandidate) int {
		if c := b.cert.ActivatedAt.Compare(a.cert.ActivatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.cert.ID, b.cert.ID)
	})
	best := candidates[0]

	return &signer.MemberSigningInfo{
		KeyID:         best.key.ID,
		CertID:        best.cert.ID,
		Cert:          best.cert.DER,
		CertHash:      best.cert.Hash,
		SignMechanism: best.key.SignMechanism,
	}, nil
}
