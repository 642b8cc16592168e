package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/spf13/cobra"

	"github.com/vrsleep/vrsleep/internal/domain"
)

func newLoginCmd(app *app) *cobra.Command {
	var (
		username      string
		password      string
		totpSecretRef string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with username and password",
		Long:  "Log in to VRChat. When the account demands a second factor and --totp-secret-ref names a stored TOTP secret, the code is generated locally and verified in the same run; otherwise finish with `vrsleep verify`.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			if password == "" {
				var err error
				password, err = readLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			result, err := app.auth.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}

			if !result.PendingTwoFactor() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", result.User.DisplayName)
				return nil
			}

			if totpSecretRef != "" && methodOffered(result.TwoFactorMethods, domain.TwoFactorTOTP) {
				return verifyWithStoredSecret(cmd, app, totpSecretRef)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Two-factor verification required (%s). Run: vrsleep verify <kind> <code>\n", strings.Join(result.TwoFactorMethods, ", "))
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "VRChat username or email")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&totpSecretRef, "totp-secret-ref", "", "Secret-store key holding the base32 TOTP secret, for unattended 2FA")

	return cmd
}

func newVerifyCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <kind> <code>",
		Short: "Complete a pending two-factor login",
		Long:  "Complete a pending two-factor login. Kind is one of: totp, otp (recovery code), emailotp.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.auth.VerifyTwoFactor(cmd.Context(), domain.TwoFactorKind(args[0]), args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName)
			return nil
		},
	}
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and discard stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.auth.Logout(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func verifyWithStoredSecret(cmd *cobra.Command, app *app, secretRef string) error {
	secret, err := app.secretStore.Get(cmd.Context(), secretRef)
	if err != nil {
		return fmt.Errorf("read totp secret %q: %w", secretRef, err)
	}

	code, err := totp.GenerateCode(strings.TrimSpace(secret), time.Now())
	if err != nil {
		return fmt.Errorf("generate totp code: %w", err)
	}

	user, err := app.auth.VerifyTwoFactor(cmd.Context(), domain.TwoFactorTOTP, code)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.DisplayName)
	return nil
}

func methodOffered(methods []string, kind domain.TwoFactorKind) bool {
	for _, m := range methods {
		if m == string(kind) {
			return true
		}
	}
	return false
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
