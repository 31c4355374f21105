package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

var (
	summarizeJSON   bool
	summarizeOutput string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().BoolVar(&summarizeJSON, "json", false, "print the JSON payload instead of plain text")
	summarizeCmd.Flags().StringVarP(&summarizeOutput, "output", "o", "", "write the summary to this file")
	summarizeCmd.Flags().Int("chunk-size", 1000, "maximum chunk length in characters")
	summarizeCmd.Flags().Int("concurrency", 3, "parallel chunk summarizations")
	mustBindPFlag("summarize.chunk_size", summarizeCmd.Flags().Lookup("chunk-size"))
	mustBindPFlag("summarize.concurrency", summarizeCmd.Flags().Lookup("concurrency"))
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(needs{})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	src, err := a.loader.Load(ctx, args[0])
	if err != nil {
		return err
	}

	resp, err := a.docs.SummarizeDocument(ctx, src.Name, src.Data)
	if err != nil {
		return err
	}

	if summarizeOutput != "" {
		return os.WriteFile(summarizeOutput, []byte(resp.Summary+"\n"), 0644)
	}
	return printResult(cmd, summarizeJSON, resp, resp.Summary)
}

// printResult writes v as JSON or plain as a line of text.
func printResult(cmd *cobra.Command, asJSON bool, v any, plain string) error {
	if asJSON {
		out, err := sonic.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), plain)
	return err
}
