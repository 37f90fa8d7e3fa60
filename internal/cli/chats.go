package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/soyeahso/kirpich/internal/domain"
)

func credentialFlags(cmd *cobra.Command, creds *domain.Credentials) {
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email (default $KIRPICH_EMAIL)")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (default $KIRPICH_PASSWORD)")
}

func newChatsCmd() *cobra.Command {
	var (
		creds  domain.Credentials
		signIn bool
	)

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats with their last message and unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gw, err := newOneShot(ctx)
			if err != nil {
				return err
			}
			defer gw.Close()

			if signIn {
				if err := gw.login(ctx, creds); err != nil {
					return err
				}
			}

			chats, err := gw.GetChats(ctx)
			if err != nil {
				return err
			}
			renderChats(cmd.OutOrStdout(), chats)
			return nil
		},
	}

	credentialFlags(cmd, &creds)
	cmd.Flags().BoolVar(&signIn, "login", false, "sign in before listing")
	return cmd
}

// renderChats prints chats as a table, most recent first.
func renderChats(w io.Writer, chats []domain.ChatSummary) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "No chats.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Unread", "Last message"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, c := range chats {
		table.Append([]string{c.ID, c.Title, strconv.Itoa(c.UnreadCount), preview(c.Preview(), 60)})
	}
	table.Render()
}

func preview(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func newSendCmd() *cobra.Command {
	var creds domain.Credentials

	cmd := &cobra.Command{
		Use:   "send <chatId> <message...>",
		Short: "Sign in and send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gw, err := newOneShot(ctx)
			if err != nil {
				return err
			}
			defer gw.Close()

			if err := gw.login(ctx, creds); err != nil {
				return err
			}

			receipt, err := gw.SendMessage(ctx, domain.OutboundMessage{
				ChatID: args[0],
				Body:   strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), receipt.MessageID)
			return nil
		},
	}

	credentialFlags(cmd, &creds)
	return cmd
}

func newUploadCmd() *cobra.Command {
	var (
		creds domain.Credentials
		name  string
	)

	cmd := &cobra.Command{
		Use:   "upload <chatId> <file>",
		Short: "Sign in and upload a file to a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(args[1])
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gw, err := newOneShot(ctx)
			if err != nil {
				return err
			}
			defer gw.Close()

			if err := gw.login(ctx, creds); err != nil {
				return err
			}

			log.Debug().Str("file", name).Str("type", mimetype.Detect(data).String()).Int("size", len(data)).Msg("uploading")
			ref, err := gw.UploadMedia(ctx, domain.MediaAsset{ChatID: args[0], FileName: name, Bytes: data})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ref.URL)
			return nil
		},
	}

	credentialFlags(cmd, &creds)
	cmd.Flags().StringVar(&name, "name", "", "file name sent to the backend (default: base name of <file>)")
	return cmd
}
