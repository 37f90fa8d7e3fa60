package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/soyeahso/kirpich/internal/config"
	"github.com/soyeahso/kirpich/internal/gateway"
	"github.com/soyeahso/kirpich/internal/store"
	"github.com/soyeahso/kirpich/internal/version"
)

func newStatusCmd() *cobra.Command {
	var auditLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Kirpich status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Kirpich %s (commit %s)\n\n", version.Version, version.Short())

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Remote:  mode=%s url=%s realtime=%v\n",
				cfg.Remote.Mode, cfg.Remote.BaseURL, cfg.Remote.RealtimeEnabled())
			fmt.Fprintf(out, "Bridge:  port=%d bind=%s auth=%s tls=%v\n",
				cfg.Bridge.Port, cfg.Bridge.Bind, cfg.Bridge.Auth.Mode, cfg.Bridge.TLS.Enabled)
			fmt.Fprintf(out, "Store:   %s\n", describeStore(cfg.Cache))
			fmt.Fprintf(out, "Running: %s\n", probeBridge(cmd.Context(), cfg.Bridge))

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			if auditLimit > 0 && cfg.Cache.Store == "sqlite" {
				return printAudit(cmd.Context(), out, cfg.Cache, auditLimit)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&auditLimit, "audit", 0, "also show the N most recent audit log entries")
	return cmd
}

func describeStore(cfg config.CacheConfig) string {
	if cfg.Store != "sqlite" {
		return cfg.Store
	}
	path := cfg.Path
	if path == "" {
		path = paths.Database()
	}
	return fmt.Sprintf("sqlite path=%s auditDays=%d", path, cfg.AuditRetentionDays)
}

// probeBridge asks a local bridge for its public health endpoint.
func probeBridge(ctx context.Context, cfg config.BridgeConfig) string {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	scheme := "http"
	if cfg.TLS.Enabled {
		scheme = "https"
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", scheme+"://"+dialAddr(cfg)+"/health", nil)
	if err != nil {
		return "unknown"
	}
	resp, err := client.Do(req)
	if err != nil {
		return "no"
	}
	defer resp.Body.Close()

	var health gateway.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || health.Status != "ok" {
		return fmt.Sprintf("unhealthy (HTTP %d)", resp.StatusCode)
	}
	return "yes"
}

func printAudit(ctx context.Context, out io.Writer, cfg config.CacheConfig, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := store.NewAuditLog(db).Recent(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nRecent events (%d):\n", len(entries))
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Time", "Event", "Data"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, e := range entries {
		data := ""
		if len(e.Data) > 0 {
			raw, _ := json.Marshal(e.Data)
			data = string(raw)
		}
		table.Append([]string{e.CreatedAt.Local().Format(time.DateTime), e.Event, data})
	}
	table.Render()
	return nil
}
