package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var flagConfig Config

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bluespeak",
		Short: "Pair Bluetooth devices through BlueZ",
		Long: `bluespeak pairs every known but unpaired Bluetooth device, then runs a
discovery and pairs every new device it finds. PIN, passkey and
confirmation requests from the daemon are answered on the terminal.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				return s.run(ctx, cmd.OutOrStdout())
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig.Adapter, "adapter", "", "adapter to use (default: system default adapter)")
	flags.StringVar(&flagConfig.Capability, "capability", "", "agent IO capability (default: "+CapabilityDisplayYesNo+")")
	flags.StringVar(&flagConfig.AgentPath, "agent-path", "", "object path to export the agent at (default: "+string(defaultAgentPath)+")")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List devices known to the adapter",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *session) error {
					devices, err := s.listDevices()
					if err != nil {
						return err
					}
					printDevices(cmd.OutOrStdout(), devices)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "discover",
			Short: "Run one discovery and list the devices found",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *session) error {
					devices, err := s.discover(ctx)
					if err != nil {
						return err
					}
					printDevices(cmd.OutOrStdout(), devices)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "pair <address>",
			Short: "Pair one device",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *session) error {
					d, err := s.lookupDevice(args[0])
					if err != nil {
						return err
					}
					if err := s.pair(ctx, d); err != nil {
						return err
					}
					printDevice(cmd.OutOrStdout(), d)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "unpair <address>",
			Short: "Remove one device, pairing it first if needed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *session) error {
					d, err := s.lookupDevice(args[0])
					if err != nil {
						return err
					}
					if err := s.unpair(ctx, d); err != nil {
						return err
					}
					printDevice(cmd.OutOrStdout(), d)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "agent",
			Short: "Register a pairing agent and answer prompts until released",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, func(ctx context.Context, s *session) error {
					return s.serveAgent(ctx)
				})
			},
		},
	)
	return rootCmd
}

// withSession connects to BlueZ, resolves the adapter and runs fn until it
// returns or the process is interrupted.
func withSession(cmd *cobra.Command, fn func(context.Context, *session) error) error {
	fileConfig, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := fileConfig.merge(flagConfig)
	if err != nil {
		return err
	}

	bz, err := newBluez()
	if err != nil {
		return err
	}
	defer bz.close()

	ad, err := bz.resolveAdapter(cfg.Adapter)
	if err != nil {
		return err
	}
	signals, err := bz.subscribeAdapterSignals(ad.Path())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		select {
		case <-quit:
			log.Println("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	s := newSession(ad, newEventLoop(signals), bz, newTerminalPrompter(), cfg)
	return fn(ctx, s)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
