package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/tui"
	"github.com/ethpandaops/suiscope/utils"
)

var browseCmd = &cobra.Command{
	Use:       "browse <checkpoints|epochs>",
	Short:     "Browse checkpoints or epochs interactively",
	Long:      "Open an interactive terminal browser for a paginated table. The first page refreshes automatically.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"checkpoints", "epochs"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBrowser(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)

	browseCmd.Flags().StringP("config", "", "", "Path to the config file, if empty string defaults will be used")
	browseCmd.Flags().Uint64P("limit", "l", 0, "Number of rows per page (0 = configured default)")
	browseCmd.Flags().StringP("cursor", "c", "", "Cursor of the first page to show (empty = latest)")
}

func runBrowser(cmd *cobra.Command, resource string) error {
	session, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer session.close()

	// log output would corrupt the terminal ui
	if utils.Config.Logging.FilePath == "" {
		logrus.StandardLogger().SetOutput(io.Discard)
	}

	opts := tableOptions(cmd)

	var table tui.Table
	var title string
	switch resource {
	case "checkpoints":
		table, err = tableview.New(services.GlobalChainService.CheckpointsDefinition(), services.GlobalQueryCache, opts, session.logger)
		title = "Checkpoints"
	case "epochs":
		table, err = tableview.New(services.GlobalChainService.EpochsDefinition(), services.GlobalQueryCache, opts, session.logger)
		title = "Epochs"
	default:
		return fmt.Errorf("unknown table %v", resource)
	}
	if err != nil {
		return fmt.Errorf("error creating %v view: %v", resource, err)
	}
	if chainId := services.GlobalChainService.GetChainIdentifier(); chainId != "" {
		title = fmt.Sprintf("%v (%v)", title, chainId)
	}

	model := tui.NewBrowserModel(session.ctx, table, title, session.logger)
	program := tea.NewProgram(model, tea.WithContext(session.ctx))
	_, err = program.Run()
	if err != nil {
		table.Close()
		return fmt.Errorf("error running browser: %v", err)
	}
	return nil
}
