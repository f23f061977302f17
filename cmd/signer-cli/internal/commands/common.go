package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MGTheTrain/crypto-signer/internal/app"
	"github.com/MGTheTrain/crypto-signer/internal/bootstrap"
	"github.com/MGTheTrain/crypto-signer/internal/domain/signer"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/config"
	"github.com/MGTheTrain/crypto-signer/internal/pkg/logger"
)

// Opener starts a signer and returns it with the function releasing it.
type Opener func(ctx context.Context) (*app.Signer, func() error, error)

// RuntimeOpener opens the signer described by the configuration file at
// *configPath. The pointer is read when a command runs so flag parsing has
// already happened.
func RuntimeOpener(configPath *string) Opener {
	return func(ctx context.Context) (*app.Signer, func() error, error) {
		cfg, err := config.InitializeSignerConfig(*configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize config: %w", err)
		}
		log, err := logger.GetLogger()
		if err != nil {
			return nil, nil, err
		}
		rt, err := bootstrap.New(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return rt.Signer, rt.Close, nil
	}
}

// Handler runs commands against a signer obtained from its Opener.
type Handler struct {
	open   Opener
	logger logger.Logger
}

// NewHandler creates a Handler with a console logger.
func NewHandler(open Opener) (*Handler, error) {
	loggerInstance, err := setupLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return &Handler{open: open, logger: loggerInstance}, nil
}

func setupLogger() (logger.Logger, error) {
	settings := &config.LoggerSettings{
		LogLevel: config.LogLevelError,
		LogType:  config.LogTypeConsole,
	}

	if err := logger.InitLogger(settings); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	loggerInstance, err := logger.GetLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get logger instance: %w", err)
	}

	return loggerInstance, nil
}

// withSigner opens the signer, runs fn and releases the signer.
func (h *Handler) withSigner(cmd *cobra.Command, fn func(ctx context.Context, s *app.Signer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, release, err := h.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			h.logger.Warn("Failed to release signer: ", err)
		}
	}()
	return fn(ctx, s)
}

// activate logs tokenID in when the command carries --pin.
func (h *Handler) activate(ctx context.Context, cmd *cobra.Command, s *app.Signer, tokenID string) error {
	pin, _ := cmd.Flags().GetString("pin")
	if pin == "" {
		return nil
	}
	return s.Tokens.ActivateToken(ctx, tokenID, pin)
}

// activateForKey logs in the token holding keyID when the command carries --pin.
func (h *Handler) activateForKey(ctx context.Context, cmd *cobra.Command, s *app.Signer, keyID string) error {
	pin, _ := cmd.Flags().GetString("pin")
	if pin == "" {
		return nil
	}
	token, err := s.Tokens.GetTokenForKeyID(ctx, keyID)
	if err != nil {
		return err
	}
	return s.Tokens.ActivateToken(ctx, token.ID, pin)
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output to JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// writeOutput writes data to the --out file, or to stdout when unset.
func writeOutput(cmd *cobra.Command, data []byte) error {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// memberFlag parses the optional --member flag.
func memberFlag(cmd *cobra.Command) (*signer.MemberID, error) {
	raw, _ := cmd.Flags().GetString("member")
	if raw == "" {
		return nil, nil
	}
	member, err := signer.ParseMemberID(raw)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func addPinFlag(cmd *cobra.Command) {
	cmd.Flags().String("pin", "", "PIN used to activate the token for this command")
}

// InitCommands registers all command groups with the root command.
func InitCommands(rootCmd *cobra.Command, h *Handler) {
	rootCmd.AddCommand(
		newTokenCommands(h),
		newKeyCommands(h),
		newCertRequestCommands(h),
		newCertCommands(h),
		newMemberCommands(h),
		newOcspCommands(h),
	)
}
