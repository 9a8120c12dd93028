package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rkotulan/wmbus-parser/pkg/wmbusparser"
)

var (
	rootCmd = &cobra.Command{
		Use:   "wmbus-parser",
		Short: "Decode wireless M-Bus water meter telegrams",
		Long:  "wmbus-parser decodes OMS/wM-Bus water meter telegrams into named attributes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
		SilenceUsage: true,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [hex]",
		Short: "Decode a single telegram, or read telegrams interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := wmbusparser.AnalyzeOptions{Driver: driverName}
			if len(args) == 0 {
				return runInteractive(cmd.Context(), opts)
			}
			return runAnalyze(opts, args[0])
		},
	}

	logLevel   string
	driverName string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level (debug, info, warn, error)")
	analyzeCmd.Flags().StringVar(&driverName, "driver", wmbusparser.DefaultDriver, "driver used to decode the telegram")
	rootCmd.AddCommand(analyzeCmd, listenCmd)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func runInteractive(ctx context.Context, opts wmbusparser.AnalyzeOptions) error {
	scanner := bufio.NewScanner(os.Stdin)
	logrus.Info("wmbus-parser analyze mode. Paste a hex telegram and press Enter (Ctrl+D to exit).")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := runAnalyze(opts, line); err != nil {
			logrus.WithError(err).Error("failed to decode telegram")
		}
	}
	return scanner.Err()
}

func runAnalyze(opts wmbusparser.AnalyzeOptions, hex string) error {
	result, err := wmbusparser.AnalyzeHex(hex, opts)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	return nil
}
