package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/cli/config"
	httpctrl "github.com/unread-lab/catchup/pkg/controller/http"
	"github.com/unread-lab/catchup/pkg/service/queue"
	"github.com/unread-lab/catchup/pkg/service/summary"
	"github.com/unread-lab/catchup/pkg/service/worker"
	"github.com/unread-lab/catchup/pkg/usecase"
	"github.com/unread-lab/catchup/pkg/utils/errutil"
	"github.com/unread-lab/catchup/pkg/utils/logging"
	"github.com/unread-lab/catchup/pkg/utils/safe"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func cmdServe() *cli.Command {
	var addr string
	var pollInterval time.Duration
	var queueSize int
	var noAcknowledge bool
	var skipHistory bool
	var mmCfg config.Mattermost
	var storageCfg config.Storage
	var llmCfg config.LLM
	var tmplCfg config.Templates
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP address of the read-only status API (empty disables)",
			Sources:     cli.EnvVars("CATCHUP_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "poll-interval",
			Usage:       "Gap between unread-channel polls",
			Value:       worker.DefaultPollInterval,
			Sources:     cli.EnvVars("CATCHUP_POLL_INTERVAL"),
			Destination: &pollInterval,
		},
		&cli.IntFlag{
			Name:        "queue-size",
			Usage:       "Capacity of the summary delivery queue",
			Value:       queue.DefaultCapacity,
			Sources:     cli.EnvVars("CATCHUP_QUEUE_SIZE"),
			Destination: &queueSize,
		},
		&cli.BoolFlag{
			Name:        "no-acknowledge",
			Usage:       "Never mark processed channels as viewed on the server",
			Sources:     cli.EnvVars("CATCHUP_NO_ACKNOWLEDGE"),
			Destination: &noAcknowledge,
		},
		&cli.BoolFlag{
			Name:        "skip-history",
			Usage:       "Do not publish previously stored summaries on startup",
			Sources:     cli.EnvVars("CATCHUP_SKIP_HISTORY"),
			Destination: &skipHistory,
		},
	}
	flags = append(flags, mmCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)
	flags = append(flags, tmplCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the unread-channel summarization pipeline",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("serve configuration",
				"mattermost", mmCfg,
				"storage", storageCfg,
				"llm", llmCfg,
			)

			sentryClose, err := sentryCfg.Configure(c.Root().Version)
			if err != nil {
				return goerr.Wrap(err, "failed to configure error monitoring")
			}
			defer sentryClose()

			repo, err := storageCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize storage")
			}
			defer safe.Close(ctx, repo)

			templates, err := tmplCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load prompt templates")
			}

			chat, err := mmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to connect to Mattermost")
			}
			defer safe.Close(ctx, chat)

			generator, err := llmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize LLM backend")
			}

			engine := summary.NewEngine(generator,
				summary.WithTemplates(templates),
				summary.WithMaxRetries(llmCfg.MaxRetries()),
				summary.WithRequestInterval(llmCfg.RequestInterval()),
			)
			defer safe.Close(ctx, engine)

			q := queue.New(queueSize)
			defer q.Close()

			uc := usecase.New(chat, repo, engine, q,
				usecase.WithAcknowledge(!noAcknowledge))

			if !skipHistory {
				if err := uc.LoadStoredSummaries(ctx); err != nil {
					errutil.Handle(ctx, err, "failed to load stored summaries")
				}
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			poller := worker.New(uc, pollInterval)
			if err := poller.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start poller")
			}
			defer poller.Stop()

			eg, ctx := errgroup.WithContext(ctx)

			var httpServer *http.Server
			if addr != "" {
				srv := httpctrl.New(repo,
					httpctrl.WithQueue(q),
					httpctrl.WithPoller(poller),
				)
				httpServer = &http.Server{
					Addr:              addr,
					Handler:           srv,
					ReadHeaderTimeout: 10 * time.Second,
				}
				eg.Go(func() error {
					logging.Default().Info("HTTP server starting", "addr", addr)
					if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return goerr.Wrap(err, "HTTP server failed")
					}
					return nil
				})
			}

			eg.Go(func() error {
				<-ctx.Done()
				if httpServer != nil {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := httpServer.Shutdown(shutdownCtx); err != nil {
						return goerr.Wrap(err, "HTTP server shutdown failed")
					}
				}
				return nil
			})

			if err := eg.Wait(); err != nil {
				return err
			}

			logging.Default().Info("catchup stopped")
			return nil
		},
	}
}
