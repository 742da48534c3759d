package main

import (
	"context"
	"fmt"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/repository"
	"github.com/OscarR093/reportesMtto/internal/mtto/service"
	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crea o actualiza las tablas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := initDatabase(cfg.Database, false)
			if err != nil {
				return err
			}
			if err := repository.AutoMigrate(db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d tables\n", len(repository.AllModels()))
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Crea o promueve una cuenta super_admin con contraseña local",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := initDatabase(cfg.Database, false)
			if err != nil {
				return err
			}
			if err := repository.AutoMigrate(db); err != nil {
				return err
			}

			logger := zap.NewNop()
			svc := service.NewServices(repository.NewRepositories(db), nil, cfg, sse.NewHub(logger), logger)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			user, err := svc.Auth.EnsureSuperAdmin(ctx, email, name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "super_admin %s (%s) listo\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "correo de la cuenta")
	cmd.Flags().StringVar(&name, "name", "", "nombre visible")
	cmd.Flags().StringVar(&password, "password", "", "contraseña (mínimo 8 caracteres)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}
