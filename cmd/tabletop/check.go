package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-tabletop/internal/config"
	"github.com/teslashibe/go-tabletop/internal/log"
	"github.com/teslashibe/go-tabletop/pkg/tabletop"
	"github.com/teslashibe/go-tabletop/pkg/voice"
	"github.com/teslashibe/go-tabletop/pkg/voice/ffmpeg"
)

const checkTimeout = 15 * time.Second

type check struct {
	name string
	run  func(ctx context.Context, cfg config.Config) error
}

var checks = []check{
	{"ffmpeg", checkFFmpeg},
	{"openai", checkOpenAI},
	{"elevenlabs", checkElevenLabs},
	{"discord", checkDiscord},
}

func newCheckCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and upstream connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			failed := 0
			for _, c := range checks {
				ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
				err := c.run(ctx, cfg)
				cancel()

				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %-10s %v\n", c.name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s\n", c.name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
}

func checkFFmpeg(_ context.Context, cfg config.Config) error {
	return ffmpeg.NewEncoder(ffmpeg.WithPath(cfg.FFmpegPath)).Check()
}

func checkOpenAI(ctx context.Context, cfg config.Config) error {
	client, err := tabletop.NewInferenceClient(cfg, log.L())
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Health(ctx)
}

func checkElevenLabs(ctx context.Context, cfg config.Config) error {
	client, err := tabletop.NewSpeechClient(cfg, log.L())
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Health(ctx)
}

// checkDiscord logs in and resolves the voice channel without joining it.
func checkDiscord(ctx context.Context, cfg config.Config) error {
	d, err := voice.NewDiscord(cfg.DiscordToken, log.Component("check"))
	if err != nil {
		return err
	}
	if err := d.Open(); err != nil {
		return err
	}
	defer d.Close()

	ch, err := d.Channel(ctx, cfg.VoiceChannelID)
	if err != nil {
		return err
	}
	if !ch.Voice || !ch.Joinable {
		return errors.New("channel " + ch.ID + " is not a joinable voice channel")
	}
	return nil
}
