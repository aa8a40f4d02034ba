package main

import (
	"fmt"

	"github.com/amirphl/telecall/app/dto"
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue API tokens",
	}

	var adminID uint
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Issue an admin access and refresh token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.close()

			tokens, err := newTokenService(rt.cfg.JWT)
			if err != nil {
				return fmt.Errorf("failed to initialize token service: %w", err)
			}

			access, refresh, err := tokens.GenerateAdminTokens(adminID)
			if err != nil {
				return fmt.Errorf("failed to generate tokens: %w", err)
			}

			rt.logger.Info("admin token issued", "admin_id", adminID)
			return printJSON(cmd.OutOrStdout(), dto.AdminTokenResponse{
				AccessToken:  access,
				RefreshToken: refresh,
				TokenType:    "Bearer",
			})
		},
	}
	admin.Flags().UintVar(&adminID, "admin-id", 0, "Admin id embedded in the token")
	_ = admin.MarkFlagRequired("admin-id")

	cmd.AddCommand(admin)
	return cmd
}
