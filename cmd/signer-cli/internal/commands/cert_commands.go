package commands

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-signer/internal/app"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// RegenerateCertRequestCmd re-encodes a stored certificate request
func (h *Handler) RegenerateCertRequestCmd(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		csr, err := s.Certs.RegenerateCertRequest(ctx, args[0], signer.CertRequestFormat(format))
		if err != nil {
			return err
		}
		return writeOutput(cmd, csr.Bytes)
	})
}

// DeleteCertRequestCmd deletes a certificate request
func (h *Handler) DeleteCertRequestCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Certs.DeleteCertRequest(ctx, args[0])
	})
}

// ImportCertCmd attaches a DER or PEM certificate to the key holding its public key
func (h *Handler) ImportCertCmd(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	member, err := memberFlag(cmd)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		keyID, err := s.Certs.ImportCert(ctx, data, signer.CertStatus(status), member)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Certificate imported to key %s\n", keyID)
		return nil
	})
}

// ActivateCertCmd activates or, with --deactivate, deactivates a certificate
func (h *Handler) ActivateCertCmd(cmd *cobra.Command, args []string) error {
	deactivate, _ := cmd.Flags().GetBool("deactivate")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if deactivate {
			return s.Certs.DeactivateCert(ctx, args[0])
		}
		return s.Certs.ActivateCert(ctx, args[0])
	})
}

// SetCertStatusCmd sets the registration status of a certificate
func (h *Handler) SetCertStatusCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Certs.SetCertStatus(ctx, args[0], signer.CertStatus(args[1]))
	})
}

// DeleteCertCmd deletes a certificate
func (h *Handler) DeleteCertCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Certs.DeleteCert(ctx, args[0])
	})
}

// CertByHashCmd prints the active certificate with a hash and the token and key holding it
func (h *Handler) CertByHashCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		cert, err := s.Certs.GetCertForHash(ctx, args[0])
		if err != nil {
			return err
		}
		pair, err := s.Certs.GetTokenAndKeyIDForCertHash(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, struct {
			Certificate *signer.CertificateInfo `json:"certificate"`
			TokenID     string                  `json:"tokenId"`
			KeyID       string                  `json:"keyId"`
		}{cert, pair.Token.ID, pair.KeyID})
	})
}

// MemberCertsCmd prints all certificates of a member
func (h *Handler) MemberCertsCmd(cmd *cobra.Command, args []string) error {
	member, err := signer.ParseMemberID(args[0])
	if err != nil {
		return err
	}
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		certs, err := s.Certs.GetMemberCerts(ctx, member)
		if err != nil {
			return err
		}
		return printJSON(cmd, certs)
	})
}

// MemberSigningInfoCmd prints the key and certificate a member signs with
func (h *Handler) MemberSigningInfoCmd(cmd *cobra.Command, args []string) error {
	member, err := signer.ParseMemberID(args[0])
	if err != nil {
		return err
	}
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		info, err := s.Members.GetMemberSigningInfo(ctx, member)
		if err != nil {
			return err
		}
		return printJSON(cmd, struct {
			KeyID         string `json:"keyId"`
			CertID        string `json:"certId"`
			CertHash      string `json:"certHash"`
			SignMechanism string `json:"signMechanism"`
			Cert          string `json:"cert"`
		}{info.KeyID, info.CertID, info.CertHash, info.SignMechanism, hex.EncodeToString(info.Cert)})
	})
}

func newCertRequestCommands(h *Handler) *cobra.Command {
	csrsCmd := &cobra.Command{
		Use:   "csrs",
		Short: "Manage certificate signing requests",
	}

	regenerateCmd := &cobra.Command{
		Use:   "regenerate <csr-id>",
		Short: "Write a stored request again in the given format",
		Args:  cobra.ExactArgs(1),
		RunE:  h.RegenerateCertRequestCmd,
	}
	regenerateCmd.Flags().String("format", string(signer.CertRequestFormatPEM), "PEM or DER")
	regenerateCmd.Flags().String("out", "", "Path of the request file (stdout when empty)")
	csrsCmd.AddCommand(regenerateCmd)

	csrsCmd.AddCommand(&cobra.Command{
		Use:   "delete <csr-id>",
		Short: "Delete a certificate request",
		Args:  cobra.ExactArgs(1),
		RunE:  h.DeleteCertRequestCmd,
	})

	return csrsCmd
}

func newCertCommands(h *Handler) *cobra.Command {
	certsCmd := &cobra.Command{
		Use:   "certs",
		Short: "Manage certificates",
	}

	importCmd := &cobra.Command{
		Use:   "import <cert-file>",
		Short: "Import a DER or PEM certificate",
		Args:  cobra.ExactArgs(1),
		RunE:  h.ImportCertCmd,
	}
	importCmd.Flags().String("status", string(signer.CertStatusRegistered), "Initial registration status")
	importCmd.Flags().String("member", "", "Member id INSTANCE/CLASS/CODE[/SUBSYSTEM] of signing certificates")
	certsCmd.AddCommand(importCmd)

	activateCmd := &cobra.Command{
		Use:   "activate <cert-id>",
		Short: "Activate a certificate",
		Args:  cobra.ExactArgs(1),
		RunE:  h.ActivateCertCmd,
	}
	activateCmd.Flags().Bool("deactivate", false, "Deactivate instead")
	certsCmd.AddCommand(activateCmd)

	certsCmd.AddCommand(&cobra.Command{
		Use:   "set-status <cert-id> <status>",
		Short: "Set the registration status of a certificate",
		Args:  cobra.ExactArgs(2),
		RunE:  h.SetCertStatusCmd,
	})

	certsCmd.AddCommand(&cobra.Command{
		Use:   "delete <cert-id>",
		Short: "Delete a certificate",
		Args:  cobra.ExactArgs(1),
		RunE:  h.DeleteCertCmd,
	})

	certsCmd.AddCommand(&cobra.Command{
		Use:   "by-hash <sha256-hex>",
		Short: "Show the active certificate with a hash",
		Args:  cobra.ExactArgs(1),
		RunE:  h.CertByHashCmd,
	})

	return certsCmd
}

func newMemberCommands(h *Handler) *cobra.Command {
	membersCmd := &cobra.Command{
		Use:   "members",
		Short: "Query member certificates",
	}

	membersCmd.AddCommand(&cobra.Command{
		Use:   "certs <member-id>",
		Short: "List the certificates of a member",
		Args:  cobra.ExactArgs(1),
		RunE:  h.MemberCertsCmd,
	})

	membersCmd.AddCommand(&cobra.Command{
		Use:   "signing-info <member-id>",
		Short: "Show the key and certificate a member signs with",
		Args:  cobra.ExactArgs(1),
		RunE:  h.MemberSigningInfoCmd,
	})

	return membersCmd
}
