package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/suiscope/rpctypes"
	"github.com/ethpandaops/suiscope/services"
	"github.com/ethpandaops/suiscope/tableview"
	"github.com/ethpandaops/suiscope/tui"
	"github.com/ethpandaops/suiscope/types"
	"github.com/ethpandaops/suiscope/utils"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "List checkpoints",
	Long:  "Load one page of checkpoints, latest first, and print it as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTable(cmd, "checkpoints")
	},
}

var epochsCmd = &cobra.Command{
	Use:   "epochs",
	Short: "List epochs",
	Long:  "Load one page of epochs, latest first, and print it as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTable(cmd, "epochs")
	},
}

func init() {
	rootCmd.AddCommand(checkpointsCmd)
	rootCmd.AddCommand(epochsCmd)

	for _, cmd := range []*cobra.Command{checkpointsCmd, epochsCmd} {
		cmd.Flags().StringP("config", "", "", "Path to the config file, if empty string defaults will be used")
		cmd.Flags().Uint64P("limit", "l", 0, "Number of rows per page (0 = configured default)")
		cmd.Flags().StringP("cursor", "c", "", "Cursor of the page to load (empty = latest)")
		cmd.Flags().DurationP("timeout", "t", 30*time.Second, "Timeout for loading the page")
	}
}

// tableSession bundles the services a command needs to load table views.
type tableSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger logrus.FieldLogger
	close  func()
}

func startSession(cmd *cobra.Command) (*tableSession, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logWriter, logger := utils.InitLogger()

	ctx, cancel := context.WithCancel(cmd.Context())
	services.InitChainService(ctx, logger)

	err = services.StartQueryCache(logger)
	if err != nil {
		cancel()
		logWriter.Dispose()
		return nil, fmt.Errorf("error starting query cache: %v", err)
	}

	err = services.GlobalChainService.StartService()
	if err != nil {
		services.StopQueryCache()
		cancel()
		logWriter.Dispose()
		return nil, fmt.Errorf("error starting chain service: %v", err)
	}

	return &tableSession{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		close: func() {
			services.GlobalChainService.StopService()
			services.StopQueryCache()
			cancel()
			logWriter.Dispose()
		},
	}, nil
}

func tableOptions(cmd *cobra.Command) tableview.Options {
	limit, _ := cmd.Flags().GetUint64("limit")
	cursor, _ := cmd.Flags().GetString("cursor")
	if limit == 0 {
		limit = utils.Config.Tables.DefaultLimit
	}
	if !utils.IsValidCursor(cursor) {
		cursor = ""
	}

	return tableview.Options{
		InitialLimit:    limit,
		InitialCursor:   cursor,
		RefetchInterval: utils.Config.Tables.RefetchInterval,
		LimitOptions:    utils.Config.Tables.LimitOptions,
		MaxLimit:        utils.Config.Tables.MaxLimit,
	}
}

func printTable(cmd *cobra.Command, resource string) error {
	session, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer session.close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(session.ctx, timeout)
	defer cancel()

	opts := tableOptions(cmd)
	opts.RefetchInterval = 0

	var view *tableview.View
	switch resource {
	case "checkpoints":
		view, err = loadView(ctx, services.GlobalChainService.CheckpointsDefinition(), opts, session.logger)
	case "epochs":
		view, err = loadView(ctx, services.GlobalChainService.EpochsDefinition(), opts, session.logger)
	default:
		return fmt.Errorf("unknown table %v", resource)
	}
	if err != nil {
		return fmt.Errorf("error loading %v: %v", resource, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderView(view, time.Now()))
	if view.Footer != nil && view.Footer.Pagination != nil && view.Footer.Pagination.HasNext {
		fmt.Fprintf(cmd.OutOrStdout(), "next page: --cursor %v\n", view.Footer.Pagination.NextCursor)
	}
	return nil
}

func loadView[T any](ctx context.Context, def *tableview.Definition[T], opts tableview.Options, logger logrus.FieldLogger) (*tableview.View, error) {
	view, err := tableview.New(def, services.GlobalQueryCache, opts, logger)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	err = view.Load(ctx)
	if err != nil {
		return nil, err
	}
	return view.Render(), nil
}

// compile time checks
var (
	_ tui.Table = (*tableview.TableView[rpctypes.Checkpoint])(nil)
	_ tui.Table = (*tableview.TableView[rpctypes.EpochInfo])(nil)
)
