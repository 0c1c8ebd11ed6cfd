package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rushteam/mindkit/behavior"
)

var (
	truthBehaviors string
	truthOutput    string
)

var truthCmd = &cobra.Command{
	Use:   "truth",
	Short: "Write the ground-truth file of a dev/test behaviors.tsv",
	Long: `Write one "<line_no> [l1,l2,...]" line per impression row of behaviors.tsv,
the reference file used when scoring dev/test predictions.

Examples:
  mindkit truth --behaviors dev/behaviors.tsv --out dev/ref/truth.txt`,
	RunE: runTruth,
}

func init() {
	rootCmd.AddCommand(truthCmd)

	truthCmd.Flags().StringVar(&truthBehaviors, "behaviors", "", "Path to behaviors.tsv")
	truthCmd.Flags().StringVarP(&truthOutput, "out", "o", "", "Output file (stdout when empty)")
	_ = truthCmd.MarkFlagRequired("behaviors")
}

func runTruth(cmd *cobra.Command, args []string) error {
	in, err := os.Open(truthBehaviors)
	if err != nil {
		return fmt.Errorf("open behaviors: %w", err)
	}
	defer in.Close()

	if truthOutput == "" {
		_, err := behavior.WriteTruth(in, cmd.OutOrStdout())
		return err
	}

	if err := os.MkdirAll(filepath.Dir(truthOutput), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(truthOutput)
	if err != nil {
		return fmt.Errorf("create truth file: %w", err)
	}
	n, err := behavior.WriteTruth(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d lines to %s\n", n, truthOutput)
	return nil
}
