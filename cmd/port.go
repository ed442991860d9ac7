package cmd

import (
	"os"
	"strconv"

	"github.com/LanXuage/astrascan/common"
	"github.com/LanXuage/astrascan/common/constant"
	"github.com/LanXuage/astrascan/common/ports"
	"github.com/LanXuage/astrascan/target"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	portCmd = &cobra.Command{
		Use:   "ports",
		Short: "Show or create the port list",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := common.GetLogger()
			portFile, _ := cmd.Flags().GetString("ports-file")
			addressFile, _ := cmd.Flags().GetString("addresses")
			if create, _ := cmd.Flags().GetBool("init"); create {
				if err := ports.WriteDefault(portFile); err != nil {
					return err
				}
				logger.Info("Created port file", zap.String("path", portFile))
			}
			src := target.FileSource{AddressPath: addressFile, PortPath: portFile}
			portList, err := src.Ports()
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Input", "Path", "Entries")
			_ = table.Append([]string{"ports", portFile, strconv.Itoa(len(portList))})
			if addrs, err := src.Addresses(); err != nil {
				logger.Debug("runE", zap.Error(err))
			} else {
				_ = table.Append([]string{"addresses", addressFile, strconv.Itoa(len(addrs))})
				_ = table.Append([]string{"targets", "", strconv.Itoa(len(addrs) * len(portList))})
			}
			return table.Render()
		},
	}
)

func init() {
	rootCmd.AddCommand(portCmd)
	portCmd.Flags().StringP("addresses", "a", constant.DEFAULT_ADDRESS_FILE, "address list file")
	portCmd.Flags().StringP("ports-file", "P", constant.DEFAULT_PORT_FILE, "port list file")
	portCmd.Flags().Bool("init", false, "write the default Astra ports to the port file")
}
