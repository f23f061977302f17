package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-signer/internal/app"
	"github.com/MGTheTrain/crypto-signer/internal/domain/cryptoalg"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
)

// FindKeyCmd looks a key up by token and key friendly name
func (h *Handler) FindKeyCmd(cmd *cobra.Command, _ []string) error {
	tokenName, _ := cmd.Flags().GetString("token-name")
	keyName, _ := cmd.Flags().GetString("key-name")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		key, err := s.Keys.FindKey(ctx, tokenName, keyName)
		if err != nil {
			return err
		}
		return printJSON(cmd, key)
	})
}

// SetKeyNameCmd renames a key
func (h *Handler) SetKeyNameCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Keys.SetKeyFriendlyName(ctx, args[0], args[1])
	})
}

// DeleteKeyCmd deletes a key from its token
func (h *Handler) DeleteKeyCmd(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := h.activateForKey(ctx, cmd, s, args[0]); err != nil {
			return err
		}
		if err := s.Keys.DeleteKey(ctx, args[0], force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Key %s deleted\n", args[0])
		return nil
	})
}

// SignCmd hashes the input file with the algorithm's digest and signs it
func (h *Handler) SignCmd(cmd *cobra.Command, args []string) error {
	algorithmID, _ := cmd.Flags().GetString("algorithm")
	inputFile, _ := cmd.Flags().GetString("input-file")

	alg, ok := cryptoalg.SignAlgorithmByID(algorithmID)
	if !ok {
		return fmt.Errorf("unknown sign algorithm id: %s", algorithmID)
	}
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputFile, err)
	}
	hasher := alg.Hash.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := h.activateForKey(ctx, cmd, s, args[0]); err != nil {
			return err
		}
		signature, err := s.Signing.Sign(ctx, args[0], algorithmID, digest)
		if err != nil {
			return err
		}
		return writeOutput(cmd, signature)
	})
}

// GenerateCertRequestCmd creates a PKCS#10 request for a key
func (h *Handler) GenerateCertRequestCmd(cmd *cobra.Command, args []string) error {
	usage, _ := cmd.Flags().GetString("usage")
	subject, _ := cmd.Flags().GetString("subject")
	format, _ := cmd.Flags().GetString("format")
	member, err := memberFlag(cmd)
	if err != nil {
		return err
	}

	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := h.activateForKey(ctx, cmd, s, args[0]); err != nil {
			return err
		}
		csr, err := s.Certs.GenerateCertRequest(ctx, signer.CertRequestParams{
			KeyID:       args[0],
			MemberID:    member,
			Usage:       signer.KeyUsage(usage),
			SubjectName: subject,
			Format:      signer.CertRequestFormat(format),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Certificate request %s created\n", csr.ID)
		return writeOutput(cmd, csr.Bytes)
	})
}

// GenerateSelfSignedCertCmd creates and attaches a self-signed certificate
func (h *Handler) GenerateSelfSignedCertCmd(cmd *cobra.Command, args []string) error {
	usage, _ := cmd.Flags().GetString("usage")
	subject, _ := cmd.Flags().GetString("subject")
	validity, _ := cmd.Flags().GetDuration("validity")
	member, err := memberFlag(cmd)
	if err != nil {
		return err
	}

	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := h.activateForKey(ctx, cmd, s, args[0]); err != nil {
			return err
		}
		now := time.Now()
		der, err := s.Certs.GenerateSelfSignedCert(ctx, signer.SelfSignedCertParams{
			KeyID:       args[0],
			MemberID:    member,
			Usage:       signer.KeyUsage(usage),
			SubjectName: subject,
			NotBefore:   now,
			NotAfter:    now.Add(validity),
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd, der)
	})
}

func newKeyCommands(h *Handler) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage keys and sign with them",
	}

	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Find a key by token and key friendly name",
		Args:  cobra.NoArgs,
		RunE:  h.FindKeyCmd,
	}
	findCmd.Flags().String("token-name", "", "Friendly name of the token")
	findCmd.Flags().String("key-name", "", "Friendly name of the key")
	_ = findCmd.MarkFlagRequired("token-name")
	_ = findCmd.MarkFlagRequired("key-name")
	keysCmd.AddCommand(findCmd)

	keysCmd.AddCommand(&cobra.Command{
		Use:   "set-name <key-id> <name>",
		Short: "Set the friendly name of a key",
		Args:  cobra.ExactArgs(2),
		RunE:  h.SetKeyNameCmd,
	})

	deleteCmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete a key from its token",
		Args:  cobra.ExactArgs(1),
		RunE:  h.DeleteKeyCmd,
	}
	deleteCmd.Flags().Bool("force", false, "Also delete active certificates of the key")
	addPinFlag(deleteCmd)
	keysCmd.AddCommand(deleteCmd)

	signCmd := &cobra.Command{
		Use:   "sign <key-id>",
		Short: "Sign a file",
		Args:  cobra.ExactArgs(1),
		RunE:  h.SignCmd,
	}
	signCmd.Flags().String("algorithm", "SHA256withRSA", "Sign algorithm id")
	signCmd.Flags().String("input-file", "", "Path to the file to sign")
	signCmd.Flags().String("out", "", "Path of the signature file (stdout when empty)")
	_ = signCmd.MarkFlagRequired("input-file")
	addPinFlag(signCmd)
	keysCmd.AddCommand(signCmd)

	csrCmd := &cobra.Command{
		Use:   "csr <key-id>",
		Short: "Generate a certificate signing request",
		Args:  cobra.ExactArgs(1),
		RunE:  h.GenerateCertRequestCmd,
	}
	csrCmd.Flags().String("usage", string(signer.KeyUsageSigning), "SIGNING or AUTHENTICATION")
	csrCmd.Flags().String("subject", "", "Subject distinguished name, e.g. CN=foo,O=bar")
	csrCmd.Flags().String("format", string(signer.CertRequestFormatPEM), "PEM or DER")
	csrCmd.Flags().String("member", "", "Member id INSTANCE/CLASS/CODE[/SUBSYSTEM] for signing requests")
	csrCmd.Flags().String("out", "", "Path of the request file (stdout when empty)")
	_ = csrCmd.MarkFlagRequired("subject")
	addPinFlag(csrCmd)
	keysCmd.AddCommand(csrCmd)

	selfSignedCmd := &cobra.Command{
		Use:   "self-signed <key-id>",
		Short: "Create a self-signed certificate for a key",
		Args:  cobra.ExactArgs(1),
		RunE:  h.GenerateSelfSignedCertCmd,
	}
	selfSignedCmd.Flags().String("usage", string(signer.KeyUsageSigning), "SIGNING or AUTHENTICATION")
	selfSignedCmd.Flags().String("subject", "", "Subject distinguished name")
	selfSignedCmd.Flags().Duration("validity", 365*24*time.Hour, "Certificate lifetime")
	selfSignedCmd.Flags().String("member", "", "Member id INSTANCE/CLASS/CODE[/SUBSYSTEM]")
	selfSignedCmd.Flags().String("out", "", "Path of the DER certificate (stdout when empty)")
	_ = selfSignedCmd.MarkFlagRequired("subject")
	addPinFlag(selfSignedCmd)
	keysCmd.AddCommand(selfSignedCmd)

	return keysCmd
}
