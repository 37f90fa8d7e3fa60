package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/kirpich/internal/config"
	"github.com/soyeahso/kirpich/internal/gateway"
)

func newMenuCmd() *cobra.Command {
	var (
		addr     string
		token    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "menu <id>",
		Short: "Trigger a host menu item on a running bridge",
		Long: "Sends a menu identifier (show, hide, quit, settings, reload, toggleDevtools) " +
			"to a running `kirpich run` as if it came from the tray or app menu.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			auth := gateway.ConnectAuth{Token: token, Password: password}
			if auth.Token == "" && auth.Password == "" {
				resolved := gateway.ResolveAuth(cfg.Bridge.Auth)
				if resolved.Generated {
					return errors.New("bridge token is generated per run; pass it with --token")
				}
				auth = gateway.ConnectAuth{Token: resolved.Token, Password: resolved.Password}
			}

			if addr == "" {
				addr = dialAddr(cfg.Bridge)
			}
			scheme := "ws"
			if cfg.Bridge.TLS.Enabled {
				scheme = "wss"
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			conn, err := gateway.Dial(ctx, scheme+"://"+addr+"/ws", auth)
			if err != nil {
				return err
			}
			defer conn.Close()

			var res struct {
				Handled bool `json:"handled"`
			}
			if err := conn.Call(ctx, "menu.dispatch", map[string]string{"id": args[0]}, &res); err != nil {
				return err
			}
			if !res.Handled {
				return fmt.Errorf("menu item %q not recognized", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "bridge host:port (default from config)")
	cmd.Flags().StringVar(&token, "token", "", "bridge token")
	cmd.Flags().StringVar(&password, "password", "", "bridge password")
	return cmd
}

// dialAddr is where a local client reaches the bridge for the configured
// bind mode.
func dialAddr(cfg config.BridgeConfig) string {
	host := "127.0.0.1"
	if cfg.Bind == "custom" && cfg.CustomBindHost != "" && cfg.CustomBindHost != "0.0.0.0" {
		host = cfg.CustomBindHost
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}
