package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tillberg/autorestart"

	"github.com/soyeahso/kirpich/internal/command"
	"github.com/soyeahso/kirpich/internal/config"
	"github.com/soyeahso/kirpich/internal/gateway"
	"github.com/soyeahso/kirpich/internal/hooks"
	"github.com/soyeahso/kirpich/internal/logging"
	"github.com/soyeahso/kirpich/internal/menu"
	"github.com/soyeahso/kirpich/internal/remote"
	"github.com/soyeahso/kirpich/internal/session"
)

func newRunCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the command gateway and the local bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Bridge.Port = port
			}
			if bind != "" {
				cfg.Bridge.Bind = bind
			}

			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log = logging.NewConsole(cfg.Logging.ConsoleStyle, level)

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating directories: %w", err)
			}

			if cfg.Dev.AutoRestart {
				log.Info().Msg("auto restart on binary change enabled")
				go autorestart.RestartOnChange()
			}

			// Block until SIGINT/SIGTERM or a Quit from the menu
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, quit := context.WithCancel(ctx)
			defer quit()

			db, err := openStore(cfg.Cache, log)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			hookMgr := hooks.NewManager(log)
			defer hookMgr.Wait()

			sess := session.New(session.WithLogger(log))
			surface := gateway.NewSurface(log)

			opts := append(attachStore(ctx, db, cfg.Cache, hookMgr),
				command.WithSession(sess),
				command.WithHooks(hookMgr),
				command.WithChatsObserver(surface.ChatsUpdated),
				command.WithLogger(log),
			)
			commands := command.New(newRemote(cfg.Remote, log), surface, opts...)
			if err := commands.Restore(ctx); err != nil {
				log.Warn().Err(err).Msg("restoring chat snapshot")
			}

			if cfg.Remote.Mode == "http" && cfg.Remote.RealtimeEnabled() {
				sub := remote.NewSubscriber(cfg.Remote.BaseURL, sess.CurrentToken, commands.Receive, log,
					remote.WithSelf(sess.UserID))
				hookMgr.On(hooks.EventLoginSucceeded, "realtime", func(context.Context, hooks.Payload) error {
					sub.Start(ctx)
					return nil
				})
				hookMgr.On(hooks.EventSessionReset, "realtime", func(context.Context, hooks.Payload) error {
					sub.Stop()
					return nil
				})
				defer sub.Stop()
			}

			dispatcher := menu.NewDispatcher(surface, surface, quit, log)

			srv := gateway.New(cfg.Bridge, log,
				gateway.WithCommands(commands),
				gateway.WithSurface(surface),
				gateway.WithMenu(dispatcher),
				gateway.WithHooks(hookMgr),
			)

			if auth := srv.Auth(); auth.Generated {
				fmt.Fprintf(cmd.ErrOrStderr(), "Bridge token (generated for this run): %s\n", auth.Token)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override bridge port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (auto, lan, loopback, custom)")

	return cmd
}
