package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/xaenox/sentiment-bot/internal/chat"
)

var predictJSON bool

var predictCmd = &cobra.Command{
	Use:   "predict [text]",
	Short: "Classify a single text",
	Long: `Classify a single text and print the result. If no text is given as an
argument, it is read from stdin. The prediction is audited like any other.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		text := strings.Join(args, " ")
		if len(args) == 0 {
			input, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading from stdin: %w", err)
			}
			text = strings.TrimSpace(string(input))
		}

		a := mustApp(cmd.Context(), cfg, logger)
		defer shutdown(a, cfg, logger)

		result, err := a.predictor.Predict(cmd.Context(), text)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if predictJSON {
			encoded, err := sonic.ConfigStd.Marshal(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(encoded))
			return nil
		}
		fmt.Fprintln(out, chat.FormatReply(text, result))
		return nil
	},
}

func init() {
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the result as JSON")
}
