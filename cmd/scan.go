package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/config"
	"github.com/LanXuage/astrascan/metrics"
	"github.com/LanXuage/astrascan/probe"
	"github.com/LanXuage/astrascan/progress"
	"github.com/LanXuage/astrascan/scanner"
	"github.com/LanXuage/astrascan/store"
	"github.com/LanXuage/astrascan/target"
	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const PROGRESS_TEMPLATE = `{{counters . }} {{bar . }} {{percent . }} {{etime . }} servers: {{string . "servers"}} channels: {{string . "channels"}}`

// hostSource takes addresses from the command line and ports from the
// port file or its override.
type hostSource struct {
	target.FileSource
	hosts []string
}

func (s hostSource) Addresses() ([]string, error) {
	ret := []string{}
	for _, host := range s.hosts {
		tmp, err := ParseAddr(host)
		if err != nil {
			return nil, err
		}
		ret = append(ret, tmp...)
	}
	return ret, nil
}

var (
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan for Astra servers and harvest their channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := common.GetLogger()
			cfg, err := config.FromViper(viper.GetViper())
			if err != nil {
				return err
			}
			logger.Debug("runE", zap.String("config", common.ToJSON(cfg)))

			portSpecs, _ := cmd.Flags().GetStringArray("port")
			portOverride, err := ParsePorts(portSpecs)
			if err != nil {
				return err
			}
			addressFile, _ := cmd.Flags().GetString("addresses")
			portFile, _ := cmd.Flags().GetString("ports-file")
			var source target.Source = target.FileSource{
				AddressPath:  addressFile,
				PortPath:     portFile,
				PortOverride: portOverride,
			}
			if hosts, _ := cmd.Flags().GetStringArray("host"); len(hosts) != 0 {
				source = hostSource{FileSource: source.(target.FileSource), hosts: hosts}
			}

			outputDir, _ := cmd.Flags().GetString("output-dir")
			client := probe.NewHTTPClient(probe.ClientOptions{
				Timeout:  cfg.ConnectionTimeout,
				PoolSize: cfg.PoolSize,
			})
			defer client.CloseIdle()
			opts := []scanner.Option{
				scanner.WithSource(source),
				scanner.WithClient(client),
				scanner.WithStore(store.New(store.DefaultPaths(outputDir))),
				scanner.WithOnHit(func(server target.Server) {
					fmt.Printf("%-21s\t%-2s\t%s\n", server.Key(), server.Country, server.Service)
				}),
			}

			if path, _ := cmd.Flags().GetString("geoip"); path != "" {
				geo, err := common.OpenGeoIP(path)
				if err != nil {
					return fmt.Errorf("open geoip database: %w", err)
				}
				defer geo.Close()
				opts = append(opts, scanner.WithLocator(geo))
			}

			if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
				recorder := metrics.NewPrometheus()
				mux := http.NewServeMux()
				mux.Handle("/metrics", recorder.Handler())
				srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
					}
				}()
				defer srv.Close()
				opts = append(opts, scanner.WithMetrics(recorder))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				// a second signal kills the process
				stop()
			}()

			s := scanner.New(cfg, opts...)
			task, err := s.Start(ctx)
			if err != nil {
				return err
			}
			if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
				bar := pb.New64(task.Progress().Total)
				bar.SetTemplate(PROGRESS_TEMPLATE)
				bar.SetWriter(os.Stderr)
				bar.Start()
				task.Watch(500*time.Millisecond, func(snap progress.Snapshot) {
					bar.SetCurrent(snap.Checked)
					bar.Set("servers", snap.Servers)
					bar.Set("channels", snap.Channels)
				})
				bar.Finish()
			}
			report, err := task.Wait()
			if err != nil {
				return err
			}
			fmt.Println(common.MsgScanCompleted(report.Progress.Elapsed()))
			fmt.Println(common.MsgTotalChecked(report.Progress.Checked))
			fmt.Println(common.MsgServersFound(report.Progress.Servers))
			fmt.Println(common.MsgChannelsFound(report.Progress.Channels))
			return nil
		},
	}
)

func bindScannerFlag(key, flag string) {
	if err := viper.BindPFlag("scanner."+key, scanCmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)
	d := config.Default()
	flags := scanCmd.Flags()
	flags.StringP("addresses", "a", constant.DEFAULT_ADDRESS_FILE, "address list file")
	flags.StringP("ports-file", "P", constant.DEFAULT_PORT_FILE, "port list file")
	flags.StringArrayP("host", "h", []string{}, "host, range or cidr to scan instead of the address file")
	flags.StringArrayP("port", "p", []string{}, "port or port range to scan instead of the port file")
	flags.StringP("output-dir", "o", ".", "directory for found servers, channels and summary")
	flags.String("geoip", "", "GeoLite2 country database to annotate servers")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")
	flags.Bool("progress", true, "show a progress bar")

	flags.IntP("max-concurrency", "m", d.MaxConcurrency, "max in-flight fingerprint probes")
	flags.IntP("workers", "w", d.Workers, "playlist harvest workers")
	flags.Int("channel-workers", d.ChannelWorkers, "channel check workers")
	flags.IntP("batch-size", "b", d.BatchSize, "targets dispatched per batch")
	flags.DurationP("timeout", "T", d.ConnectionTimeout, "fingerprint probe timeout")
	flags.Duration("playlist-timeout", d.PlaylistTimeout, "playlist fetch timeout")
	flags.Duration("channel-timeout", d.ChannelTimeout, "channel check timeout")
	flags.Int("pool-size", d.PoolSize, "idle connections kept per host")
	flags.Duration("dispatch-delay", d.DispatchDelay, "pause between two dispatches")
	flags.Duration("batch-pause", d.BatchPause, "pause between two batches")
	flags.StringP("signature", "s", d.Signature, "Server header substring identifying a hit")
	flags.Bool("wait-harvests", d.WaitHarvests, "wait for playlist harvests before finishing")

	bindScannerFlag("max_concurrency", "max-concurrency")
	bindScannerFlag("workers", "workers")
	bindScannerFlag("channel_workers", "channel-workers")
	bindScannerFlag("batch_size", "batch-size")
	bindScannerFlag("connection_timeout", "timeout")
	bindScannerFlag("playlist_timeout", "playlist-timeout")
	bindScannerFlag("channel_timeout", "channel-timeout")
	bindScannerFlag("pool_size", "pool-size")
	bindScannerFlag("dispatch_delay", "dispatch-delay")
	bindScannerFlag("batch_pause", "batch-pause")
	bindScannerFlag("signature", "signature")
	bindScannerFlag("wait_harvests", "wait-harvests")
}
