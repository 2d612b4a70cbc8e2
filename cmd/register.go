package cmd

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/cobra"

	"salesbot/discord"
)

var registerCmd = &cobra.Command{
	Use:   "register-commands",
	Short: "Register the slash commands with the configured guild",
	RunE:  runRegister,
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if err := discord.RegisterCommands(session, cfg.DiscordAppID, cfg.GuildID); err != nil {
		return err
	}
	fmt.Println("slash commands registered")
	return nil
}
