package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-signer/internal/app"
)

// ListTokensCmd prints all tokens with their keys
func (h *Handler) ListTokensCmd(cmd *cobra.Command, _ []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		tokens, err := s.Tokens.ListTokens(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, tokens)
	})
}

// GetTokenCmd prints one token
func (h *Handler) GetTokenCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		token, err := s.Tokens.GetToken(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, token)
	})
}

// InitSoftwareTokenCmd sets the PIN of the software token
func (h *Handler) InitSoftwareTokenCmd(cmd *cobra.Command, _ []string) error {
	pin, _ := cmd.Flags().GetString("pin")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := s.Tokens.InitSoftwareToken(ctx, pin); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Software token initialized")
		return nil
	})
}

// CheckPinCmd activates a token to verify its PIN
func (h *Handler) CheckPinCmd(cmd *cobra.Command, args []string) error {
	pin, _ := cmd.Flags().GetString("pin")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := s.Tokens.ActivateToken(ctx, args[0], pin); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PIN of token %s accepted\n", args[0])
		return nil
	})
}

// UpdatePinCmd changes the PIN of a token
func (h *Handler) UpdatePinCmd(cmd *cobra.Command, args []string) error {
	oldPin, _ := cmd.Flags().GetString("old-pin")
	newPin, _ := cmd.Flags().GetString("new-pin")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := s.Tokens.UpdateTokenPin(ctx, args[0], oldPin, newPin); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PIN of token %s updated\n", args[0])
		return nil
	})
}

// SetTokenNameCmd renames a token
func (h *Handler) SetTokenNameCmd(cmd *cobra.Command, args []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		return s.Tokens.SetTokenFriendlyName(ctx, args[0], args[1])
	})
}

// GenerateKeyCmd generates a key on a token
func (h *Handler) GenerateKeyCmd(cmd *cobra.Command, args []string) error {
	label, _ := cmd.Flags().GetString("label")
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		if err := h.activate(ctx, cmd, s, args[0]); err != nil {
			return err
		}
		key, err := s.Keys.GenerateKey(ctx, args[0], label)
		if err != nil {
			return err
		}
		return printJSON(cmd, key)
	})
}

// HSMOperationalCmd reports whether every hardware token is usable
func (h *Handler) HSMOperationalCmd(cmd *cobra.Command, _ []string) error {
	return h.withSigner(cmd, func(ctx context.Context, s *app.Signer) error {
		ok, err := s.Tokens.IsHSMOperational(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]bool{"operational": ok})
	})
}

func newTokenCommands(h *Handler) *cobra.Command {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Manage tokens",
	}

	tokensCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tokens with their keys, certificates and requests",
		Args:  cobra.NoArgs,
		RunE:  h.ListTokensCmd,
	})

	tokensCmd.AddCommand(&cobra.Command{
		Use:   "get <token-id>",
		Short: "Show one token",
		Args:  cobra.ExactArgs(1),
		RunE:  h.GetTokenCmd,
	})

	initCmd := &cobra.Command{
		Use:   "init-software",
		Short: "Initialize the software token with a PIN",
		Args:  cobra.NoArgs,
		RunE:  h.InitSoftwareTokenCmd,
	}
	initCmd.Flags().String("pin", "", "PIN of the software token")
	_ = initCmd.MarkFlagRequired("pin")
	tokensCmd.AddCommand(initCmd)

	checkPinCmd := &cobra.Command{
		Use:   "check-pin <token-id>",
		Short: "Log a token in to verify its PIN",
		Args:  cobra.ExactArgs(1),
		RunE:  h.CheckPinCmd,
	}
	checkPinCmd.Flags().String("pin", "", "PIN of the token")
	_ = checkPinCmd.MarkFlagRequired("pin")
	tokensCmd.AddCommand(checkPinCmd)

	updatePinCmd := &cobra.Command{
		Use:   "update-pin <token-id>",
		Short: "Change the PIN of a token",
		Args:  cobra.ExactArgs(1),
		RunE:  h.UpdatePinCmd,
	}
	updatePinCmd.Flags().String("old-pin", "", "Current PIN")
	updatePinCmd.Flags().String("new-pin", "", "New PIN")
	_ = updatePinCmd.MarkFlagRequired("old-pin")
	_ = updatePinCmd.MarkFlagRequired("new-pin")
	tokensCmd.AddCommand(updatePinCmd)

	tokensCmd.AddCommand(&cobra.Command{
		Use:   "set-name <token-id> <name>",
		Short: "Set the friendly name of a token",
		Args:  cobra.ExactArgs(2),
		RunE:  h.SetTokenNameCmd,
	})

	generateKeyCmd := &cobra.Command{
		Use:   "generate-key <token-id>",
		Short: "Generate a key on a token",
		Args:  cobra.ExactArgs(1),
		RunE:  h.GenerateKeyCmd,
	}
	generateKeyCmd.Flags().String("label", "", "Label of the new key")
	addPinFlag(generateKeyCmd)
	tokensCmd.AddCommand(generateKeyCmd)

	tokensCmd.AddCommand(&cobra.Command{
		Use:   "hsm-operational",
		Short: "Report whether every available hardware token answers status queries",
		Args:  cobra.NoArgs,
		RunE:  h.HSMOperationalCmd,
	})

	return tokensCmd
}
