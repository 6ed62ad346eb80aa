// cmswatch is a small terminal companion for the CMS backend: log in, punch
// in or out, and tail realtime notifications.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	cmsclient "github.com/manas-swain-001/cms-client"
	"github.com/manas-swain-001/cms-client/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var client *cmsclient.Client

	app := &cli.Command{
		Name:  "cmswatch",
		Usage: "Command-line companion for the CMS HR backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "API base URL",
				Sources: cli.EnvVars("CMS_API_BASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "log every request",
				Sources: cli.EnvVars("CMS_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := cmsclient.LoadConfig()
			if err != nil {
				return ctx, err
			}
			if v := cmd.String("base-url"); v != "" {
				cfg.BaseURL = v
			}
			cfg.Debug = cfg.Debug || cmd.Bool("debug")

			zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
			client, err = cmsclient.New(cfg, cmsclient.WithLogger(logger.FromZerolog(zl)))
			return ctx, err
		},
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Authenticate and persist the session",
				ArgsUsage: "<email> <password>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 2 {
						return fmt.Errorf("usage: cmswatch login <email> <password>")
					}
					user, err := client.Login(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Printf("logged in as %s (%s)\n", user.Name, user.Role)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Disconnect and clear the persisted session",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client.Logout()
					fmt.Println("logged out")
					return nil
				},
			},
			{
				Name:  "punch",
				Usage: "Record attendance",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "out", Usage: "punch out instead of in"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					punch := client.PunchIn
					if cmd.Bool("out") {
						punch = client.PunchOut
					}
					rec, err := punch(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("punched %s at %s\n", rec.Direction, rec.Time)
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "Tail realtime notifications until interrupted",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if !client.IsLoggedIn() {
						return fmt.Errorf("not logged in, run cmswatch login first")
					}
					if _, err := client.Realtime().Init(ctx); err != nil {
						return fmt.Errorf("connecting realtime channel: %w", err)
					}

					n := client.Notifications()
					cancelChange := n.OnChange(func() {
						items := n.All()
						if len(items) == 0 {
							return
						}
						latest := items[0]
						fmt.Printf("[%s] %s: %s (%d unread)\n",
							latest.Type, latest.Title, latest.Message, n.UnreadCount())
					})
					defer cancelChange()

					n.Start()
					defer n.Stop()

					<-ctx.Done()
					return nil
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
