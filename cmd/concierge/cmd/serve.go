package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/concierge/internal/config"
	"github.com/zhouzirui/concierge/internal/handler"
	"github.com/zhouzirui/concierge/internal/model/persona"
	"github.com/zhouzirui/concierge/internal/service/ai"
	"github.com/zhouzirui/concierge/internal/service/mail"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference answering and drafting backend",
	Long: `Run the reference backend.

POST /ask, GET /ws and POST /process_and_email are served on server.addr
(default :8000) and again on server.draft_addr (default :8081), matching the
default client.ask_url and client.draft_url. Set draft_addr to "" to serve on
one port only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		personaStore := persona.NewMemoryStore(persona.Seed())

		var chatModel model.ChatModel
		if cfg.AI.Enabled() {
			m, err := cfg.AI.NewChatModel(ctx)
			if err != nil {
				log.Printf("warning: failed to initialize chat model: %v", err)
				log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
			} else {
				chatModel = m
				log.Println("AI chat model initialized successfully")
			}
		} else {
			log.Println("Ark 凭证未配置，使用规则回复")
		}

		aiService, err := ai.NewService(ctx, personaStore, chatModel)
		if err != nil {
			return err
		}

		composer, err := mail.NewComposer(ctx, chatModel, mail.Config{
			DefaultRecipient: cfg.Mail.DefaultRecipient,
			HistoryLimit:     cfg.Mail.HistoryLimit,
			LLMEnabled:       cfg.Mail.LLMEnabled,
		})
		if err != nil {
			return err
		}
		if composer.Enabled() {
			log.Println("Mail summariser enabled")
		} else {
			log.Println("Mail summariser using transcript fallback")
		}

		router := handler.NewRouter(personaStore, aiService, composer)
		return startServers(ctx, cfg.Server, router)
	},
}

func startServers(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addrs := []string{serverCfg.Addr}
	if serverCfg.DraftAddr != "" && serverCfg.DraftAddr != serverCfg.Addr {
		addrs = append(addrs, serverCfg.DraftAddr)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		g.Go(func() error {
			log.Printf("concierge backend listening on %s", srv.Addr)
			return runServer(ctx, srv)
		})
	}
	return g.Wait()
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
