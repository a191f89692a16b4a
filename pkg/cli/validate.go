package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/cli/config"
	"github.com/unread-lab/catchup/pkg/utils/logging"
	"github.com/unread-lab/catchup/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdValidate() *cli.Command {
	var mmCfg config.Mattermost
	var tmplCfg config.Templates

	var flags []cli.Flag
	flags = append(flags, mmCfg.Flags()...)
	flags = append(flags, tmplCfg.Flags()...)

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate configuration, prompt templates and the Mattermost credential",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if _, err := tmplCfg.Configure(); err != nil {
				return goerr.Wrap(err, "prompt template validation failed")
			}
			logger.Info("Prompt templates validated")

			if err := mmCfg.Validate(); err != nil {
				return goerr.Wrap(err, "Mattermost configuration validation failed")
			}

			chat, err := mmCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "Mattermost authentication failed")
			}
			defer safe.Close(ctx, chat)

			me, err := chat.Me(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to query authenticated user")
			}
			logger.Info("Mattermost credential validated", "user", me.Username)

			return nil
		},
	}
}
