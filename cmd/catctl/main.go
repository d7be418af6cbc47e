// Package main provides the CLI entry point for catctl.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catnames/catctl/internal/config"
	"github.com/catnames/catctl/internal/core"
	"github.com/catnames/catctl/internal/tui"
)

var (
	// Global flags
	cfgFile    string
	jsonOutput bool
	verbose    bool

	cfg *config.Config

	// Root command
	rootCmd = &cobra.Command{
		Use:   "catctl",
		Short: "catctl - mint and manage .cat names",
		Long: `catctl mints names on the cat name registry and manages their records.

Start the interactive TUI:
  catctl

Or use CLI commands:
  catctl wallet new --name main
  catctl switch-network
  catctl mint cats --record "Whiskers"
  catctl names list`,
		Version:       tui.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run:           runTUI,
	}

	// Networks command
	networksCmd = &cobra.Command{
		Use:   "networks",
		Short: "Network commands",
	}

	networksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List known networks",
		Run:   runNetworksList,
	}

	networksShowCmd = &cobra.Command{
		Use:   "show <chain-id>",
		Short: "Show a network by hex or decimal chain id",
		Args:  cobra.ExactArgs(1),
		Run:   runNetworksShow,
	}

	switchNetworkCmd = &cobra.Command{
		Use:   "switch-network",
		Short: "Switch the wallet to " + core.RequiredNetwork().DisplayName,
		Args:  cobra.NoArgs,
		Run:   runSwitchNetwork,
	}

	priceCmd = &cobra.Command{
		Use:   "price <name>",
		Short: "Show the mint price of a name",
		Args:  cobra.ExactArgs(1),
		Run:   runPrice,
	}

	// Names command
	namesCmd = &cobra.Command{
		Use:   "names",
		Short: "Registry listing commands",
	}

	namesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every minted name with its record and owner",
		Args:  cobra.NoArgs,
		Run:   runNamesList,
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve <name>",
		Short: "Show the record and owner of a name",
		Args:  cobra.ExactArgs(1),
		Run:   runResolve,
	}

	mintCmd = &cobra.Command{
		Use:   "mint <name>",
		Short: "Mint a name and set its record",
		Args:  cobra.ExactArgs(1),
		Run:   runMint,
	}

	// Record command
	recordCmd = &cobra.Command{
		Use:   "record",
		Short: "Record commands",
	}

	recordSetCmd = &cobra.Command{
		Use:   "set <name> <record>",
		Short: "Set the record of a name you own",
		Args:  cobra.ExactArgs(2),
		Run:   runRecordSet,
	}
)

func init() {
	// Assigned here rather than in the literal: loadConfig refers to rootCmd.
	rootCmd.PersistentPreRunE = loadConfig

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.catctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	networksCmd.AddCommand(networksListCmd, networksShowCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(switchNetworkCmd)
	rootCmd.AddCommand(priceCmd)

	namesCmd.AddCommand(namesListCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(resolveCmd)

	mintCmd.Flags().String("record", "", "Record to attach to the name")
	mintCmd.Flags().BoolP("yes", "y", false, "Approve wallet prompts without asking")
	rootCmd.AddCommand(mintCmd)

	recordSetCmd.Flags().BoolP("yes", "y", false, "Approve wallet prompts without asking")
	recordCmd.AddCommand(recordSetCmd)
	rootCmd.AddCommand(recordCmd)

	addWalletCommands(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	// The TUI sets up its own file logger.
	if cmd != rootCmd {
		setupLogging(os.Stderr, false)
	}
	return nil
}

// setupLogging points the global logger at w: console output for the CLI, JSON lines for the TUI log file.
func setupLogging(w io.Writer, jsonLines bool) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if jsonLines {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}

// openLogFile opens the TUI log file for appending.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
}

func runTUI(cmd *cobra.Command, args []string) {
	if f, err := openLogFile(cfg.LogFile); err != nil {
		setupLogging(io.Discard, true)
	} else {
		defer f.Close()
		setupLogging(f, true)
	}

	ctx := cmd.Context()
	bridge := tui.NewBridge()
	a, err := buildApp(ctx, appOptions{approver: bridge, onChange: bridge.Notify, requireWallet: false})
	exitOnErr(err)
	defer a.Close()

	log.Info().Str("version", tui.Version).Msg("Starting TUI")
	err = tui.Run(ctx, a.ctrl, bridge, tui.Options{
		TLD:            cfg.TLD,
		MarketplaceURL: cfg.MarketplaceURL,
		Contract:       cfg.Contract(),
	})
	exitOnErr(err)
}

// exitOnErr prints the user-facing message for err and exits.
func exitOnErr(err error) {
	if err == nil {
		return
	}
	log.Debug().Err(err).Msg("Command failed")
	fmt.Fprintf(os.Stderr, "Error: %s\n", core.Notice(err))
	os.Exit(1)
}
