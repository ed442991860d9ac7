package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/LanXuage/astrascan/channel"
	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/config"
	"github.com/LanXuage/astrascan/probe"
	"github.com/LanXuage/astrascan/store"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	verifyCmd = &cobra.Command{
		Use:   "verify <playlist file or url>",
		Short: "Check the channels of an existing playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := common.GetLogger()
			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}
			client := probe.NewHTTPClient(probe.ClientOptions{
				Timeout:  cfg.ChannelTimeout,
				PoolSize: cfg.PoolSize,
			})
			defer client.CloseIdle()
			content, err := readPlaylist(cmd.Context(), client, args[0], cfg)
			if err != nil {
				return err
			}
			if !channel.IsPlaylist(content) {
				return fmt.Errorf("%s is not an extended playlist", args[0])
			}
			entries := channel.Parse(content)
			logger.Debug("runE", zap.Int("entries", len(entries)))
			verifier, err := channel.NewVerifier(client, cfg.ChannelWorkers, cfg.ChannelTimeout)
			if err != nil {
				return err
			}
			defer verifier.Close()
			working := verifier.Verify(cmd.Context(), entries)
			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Channel", "URL")
			for _, e := range working {
				_ = table.Append([]string{e.Name(), e.URL})
			}
			if err := table.Render(); err != nil {
				return err
			}
			if output, _ := cmd.Flags().GetString("output"); output != "" {
				added, err := store.New(store.Paths{Channels: output}).AppendChannels(working)
				if err != nil {
					return err
				}
				logger.Info("Saved channels", zap.String("path", output), zap.Int("new", added))
			}
			fmt.Println(common.MsgServerVerified(args[0], len(entries), len(working)))
			return nil
		},
	}
)

func readPlaylist(ctx context.Context, client probe.Client, src string, cfg config.ScanConfig) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return client.GetText(ctx, src, cfg.PlaylistTimeout)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringP("output", "o", "", "append working channels to this playlist")
}
