package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-signer/internal/app"
)

// SetOcspResponseCmd caches the DER OCSP response in a file under a certificate hash
func (h *Handler) SetOcspResponseCmd(cmd *cobra.Command, args []string) error {
	response, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[1], err)
	}
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Ocsp.SetOcspResponses(ctx, []string{args[0]}, [][]byte{response})
	})
}

// GetOcspResponsesCmd prints the cached responses, base64 encoded, by hash.
// Unknown or expired hashes map to null.
func (h *Handler) GetOcspResponsesCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		responses, err := s.Ocsp.GetOcspResponses(ctx, args)
		if err != nil {
			return err
		}
		out := make(map[string]*string, len(args))
		for i, hash := range args {
			if responses[i] == nil {
				out[hash] = nil
				continue
			}
			encoded := base64.StdEncoding.EncodeToString(responses[i])
			out[hash] = &encoded
		}
		return printJSON(cmd, out)
	})
}

// PurgeOcspCmd drops expired responses
func (h *Handler) PurgeOcspCmd(cmd *cobra.Command, _ []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Ocsp.PurgeExpired(ctx)
	})
}

func newOcspCommands(h *Handler) *cobra.Command {
	ocspCmd := &cobra.Command{
		Use:   "ocsp",
		Short: "Manage the OCSP response cache",
	}

	ocspCmd.AddCommand(&cobra.Command{
		Use:   "set <cert-hash> <response-file>",
		Short: "Cache a DER OCSP response",
		Args:  cobra.ExactArgs(2),
		RunE:  h.SetOcspResponseCmd,
	})

	ocspCmd.AddCommand(&cobra.Command{
		Use:   "get <cert-hash>...",
		Short: "Print cached OCSP responses",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.GetOcspResponsesCmd,
	})

	ocspCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Drop expired OCSP responses",
		Args:  cobra.NoArgs,
		RunE:  h.PurgeOcspCmd,
	})

	return ocspCmd
}
