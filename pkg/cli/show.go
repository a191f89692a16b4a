package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/unread-lab/catchup/pkg/cli/config"
	"github.com/unread-lab/catchup/pkg/domain/types"
	"github.com/unread-lab/catchup/pkg/repository/storagekey"
	"github.com/unread-lab/catchup/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

func cmdShow() *cli.Command {
	var storageCfg config.Storage

	return &cli.Command{
		Name:      "show",
		Usage:     "Print stored channel summaries",
		ArgsUsage: "[channel name]",
		Flags:     storageCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			repo, err := storageCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize storage")
			}
			defer safe.Close(ctx, repo)

			title := color.New(color.FgCyan, color.Bold)
			meta := color.New(color.Faint)

			if channel := c.Args().First(); channel != "" {
				stored, err := repo.Transcript().ReadLatestSummary(ctx, channel)
				if err != nil {
					if errors.Is(err, types.ErrNotFound) {
						return goerr.New("no summary stored for channel",
							goerr.V(types.ChannelNameKey, channel))
					}
					return goerr.Wrap(err, "failed to read summary")
				}

				title.Println(channel)
				meta.Printf("saved at %s\n\n", stored.SavedAt.Local().Format("2006-01-02 15:04"))
				fmt.Println(stored.Text)
				return nil
			}

			summaries, err := repo.Transcript().ListSummaries(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to list summaries")
			}
			if len(summaries) == 0 {
				fmt.Println("no summaries stored yet")
				return nil
			}

			for i, s := range summaries {
				if i > 0 {
					fmt.Println()
				}
				name, err := storagekey.Decode(s.ChannelKey)
				if err != nil {
					name = s.ChannelKey
				}
				title.Println(name)
				meta.Printf("saved at %s\n\n", s.SavedAt.Local().Format("2006-01-02 15:04"))
				fmt.Println(s.Text)
			}
			return nil
		},
	}
}
