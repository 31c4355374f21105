package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/usecases"
)

var (
	askQuestion string
	askFile     string
	askText     string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from a document or inline text",
	Example: `  docanalyzer ask -q "What is the capital of France?" --text "Paris is the capital of France."
  docanalyzer ask -q "Who signed the contract?" --file contract.pdf`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer")
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "document to answer from")
	askCmd.Flags().StringVarP(&askText, "text", "t", "", "text to answer from")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the JSON payload")
	askCmd.Flags().Int("max-tokens", 512, "joint question and context token budget")
	mustBindPFlag("qa.max_tokens", askCmd.Flags().Lookup("max-tokens"))

	_ = askCmd.MarkFlagRequired("question")
	askCmd.MarkFlagsMutuallyExclusive("file", "text")
	askCmd.MarkFlagsOneRequired("file", "text")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(askQuestion) == "" {
		return usecases.ErrEmptyQuestion
	}
	if (askFile == "") == (strings.TrimSpace(askText) == "") {
		return usecases.ErrContextChoice
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(needs{qa: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	var resp entities.QAResponse
	if askText != "" {
		resp = a.docs.AnswerFromText(ctx, askQuestion, askText)
	} else {
		src, err := a.loader.Load(ctx, askFile)
		if err != nil {
			return err
		}
		resp, err = a.docs.AnswerFromDocument(ctx, askQuestion, src.Name, src.Data)
		if err != nil {
			return err
		}
	}

	return printResult(cmd, askJSON, resp, fmt.Sprintf("%s (confidence %.3f)", resp.Answer, resp.Confidence))
}
