package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"salesbot/models"
	"salesbot/store"
)

var setupDBCmd = &cobra.Command{
	Use:   "setup-db",
	Short: "Create the database tables",
	RunE:  runSetupDB,
}

func runSetupDB(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.Setup(ctx); err != nil {
		return err
	}

	// The bot only serves whitelisted guilds; admit the configured one.
	err = st.Whitelist.Upsert(ctx, &models.GuildWhitelist{
		GuildID:  cfg.GuildID,
		IsActive: true,
	})
	if err != nil {
		return err
	}

	fmt.Println("database schema applied")
	return nil
}
