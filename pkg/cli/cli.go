package cli

import (
	"context"

	"github.com/unread-lab/catchup/pkg/cli/config"
	"github.com/unread-lab/catchup/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var fileCfg config.File
	var closer func()

	flags := loggerCfg.Flags()
	flags = append(flags, fileCfg.Flags()...)

	app := &cli.Command{
		Name:    "catchup",
		Usage:   "Summarize unread Mattermost channels with an LLM",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closer = f

			if err := fileCfg.Apply(); err != nil {
				return ctx, err
			}

			logging.Default().Info("Starting catchup", "version", version, "logger", loggerCfg)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if closer != nil {
				closer()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdShow(),
			cmdValidate(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}
