package main

import (
	"os"

	"github.com/aretw0/libris/internal/cli"
	"github.com/aretw0/libris/internal/presentation/tui"
	"github.com/aretw0/libris/pkg/runner"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Runs one chat against the engine on stdin/stdout.

Type text to answer prompts, "#n" to press the n-th button of the last
menu, or "!tag" to send a raw button tag. With --json, each input line
is an event object and each output line is an array of replies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			chatID, _ := cmd.Flags().GetString("chat-id")
			jsonMode, _ := cmd.Flags().GetBool("json")
			imageDir, _ := cmd.Flags().GetString("images")

			ctx := cmd.Context()
			app, err := cli.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Worker != nil {
				go func() { _ = app.Worker.Run(ctx) }()
			}

			var handler runner.IOHandler
			if jsonMode {
				handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
			} else {
				var thOpts []runner.TextHandlerOption
				if tui.IsTerminal(os.Stdout) {
					tui.PrintBanner(os.Stdout)
					thOpts = append(thOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
				}
				if imageDir != "" {
					thOpts = append(thOpts, runner.WithImageDir(imageDir))
				}
				handler = runner.NewTextHandler(os.Stdin, os.Stdout, thOpts...)
			}

			r := runner.NewRunner(
				runner.WithLogger(app.Logger),
				runner.WithInputHandler(handler),
				runner.WithChatID(chatID),
			)
			return r.Run(ctx, app.Engine)
		},
	}
	cmd.Flags().String("chat-id", runner.DefaultChatID, "Chat identity to converse as")
	cmd.Flags().Bool("json", false, "Exchange JSON Lines instead of text")
	cmd.Flags().String("images", "", "Directory to save QR images into")
	return cmd
}
