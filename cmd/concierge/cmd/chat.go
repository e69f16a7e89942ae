package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/concierge/internal/client"
	"github.com/zhouzirui/concierge/internal/config"
	"github.com/zhouzirui/concierge/internal/console"
	"github.com/zhouzirui/concierge/internal/controller"
	"github.com/zhouzirui/concierge/internal/model/persona"
)

var noColor bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session in the terminal",
	Long: `Start an interactive chat session.

Messages are sent to the answering service at client.ask_url (over HTTP, or a
websocket when client.transport is "ws"). /draft asks the drafting service at
client.draft_url for an email summarising the conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		quietLogs()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mode, ok := persona.ParseMode(cfg.Client.Mode)
		if !ok {
			return fmt.Errorf("%w: unknown mode %q", config.ErrInvalidConfig, cfg.Client.Mode)
		}

		asker, closeAsker := newAsker(cfg.Client)
		defer closeAsker()
		drafter := client.New(cfg.Client.DraftURL, cfg.Client.RequestTimeout)

		personas := persona.NewMemoryStore(persona.Seed())
		con := console.New(console.Options{
			In:       cmd.InOrStdin(),
			Out:      cmd.OutOrStdout(),
			Personas: personas,
			Sender:   cfg.Client.Sender,
			Color:    !noColor && isatty.IsTerminal(os.Stdout.Fd()),
		})
		ctl := controller.New(controller.Options{
			Asker:       asker,
			Drafter:     drafter,
			Personas:    personas,
			Observer:    con,
			Greeting:    cfg.Client.Greeting,
			NoticeDelay: cfg.Client.NoticeDelay,
		})
		defer ctl.Close()
		if err := ctl.SetMode(mode); err != nil {
			return err
		}

		return con.Run(ctx, ctl)
	},
}

func newAsker(c config.ClientConfig) (client.Asker, func()) {
	if c.Transport == config.TransportWS {
		ws := client.NewWSAsker(c.WSURL(), c.RequestTimeout)
		log.Printf("[chat] asking over websocket %s", c.WSURL())
		return ws, func() { _ = ws.Close() }
	}
	log.Printf("[chat] asking over http %s", c.AskURL)
	return client.New(c.AskURL, c.RequestTimeout), func() {}
}

func init() {
	chatCmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	rootCmd.AddCommand(chatCmd)
}
