// Command bot connects one or more automated players to a tiles server. Each
// bot plays a legal move on every one of its turns. Useful for load tests
// and for filling a lobby during manual testing.
//
//	go run ./cmd/bot --addr localhost:30020 4
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/tiles-server/game/config"
	"github.com/wricardo/tiles-server/game/engine"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:      "bot",
		Usage:     "connect automated players to a tiles server",
		ArgsUsage: "[count]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "localhost:30020",
				Usage:   "game server address",
				Sources: cli.EnvVars("TILES_BOT_ADDR"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory of rule presets, empty for built-ins only",
				Sources: cli.EnvVars("TILES_CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "preset",
				Usage:   "preset the server runs, for the board size",
				Sources: cli.EnvVars("TILES_PRESET"),
			},
			&cli.DurationFlag{
				Name:  "think",
				Value: 200 * time.Millisecond,
				Usage: "delay before each move",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("debug") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}

			count := 1
			if arg := cmd.Args().First(); arg != "" {
				n, err := strconv.Atoi(arg)
				if err != nil || n < 1 {
					return fmt.Errorf("invalid bot count %q", arg)
				}
				count = n
			}

			rules, err := resolveRules(cmd.String("config-dir"), cmd.String("preset"))
			if err != nil {
				return err
			}
			return run(ctx, cmd.String("addr"), rules, count, cmd.Duration("think"))
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("bot failed")
	}
}

func resolveRules(dir, preset string) (*engine.Rules, error) {
	configs, err := config.NewManager(dir)
	if err != nil {
		return nil, err
	}
	if preset == "" {
		return configs.GetDefault(), nil
	}
	return configs.LoadConfig(preset)
}

// run connects count bots and plays until ctx ends or one of them fails
func run(ctx context.Context, addr string, rules *engine.Rules, count int, think time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	var dialer net.Dialer

	for i := 0; i < count; i++ {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect to %s: %w", addr, err)
		}
		bot := NewBot(conn, rules, rand.New(rand.NewPCG(uint64(i), uint64(time.Now().UnixNano()))), think)
		g.Go(func() error { return bot.Play(ctx) })
	}

	log.Info().Int("bots", count).Str("addr", addr).Str("rules", rules.Name).Msg("bots connected")
	return g.Wait()
}
