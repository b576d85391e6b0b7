package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/blixt/skillflow/client"
	"github.com/blixt/skillflow/config"
	"github.com/blixt/skillflow/httpserver"
	"github.com/blixt/skillflow/llm"
	"github.com/blixt/skillflow/llm/google"
	"github.com/blixt/skillflow/llm/openai"
	"github.com/blixt/skillflow/logging"
	"github.com/blixt/skillflow/supporttools"
	"github.com/blixt/skillflow/uistream"
	"github.com/blixt/skillflow/writer"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "skillflow",
	Short: "Customer support chat that streams UI messages",
	Long: `skillflow answers customer support questions with a language model and
streams the answer, including tool calls, as a UI message stream.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default "+config.DefaultFile+" if present)")
	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(chatCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closeLog, err := logging.New(os.Stdout, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
			if err != nil {
				return err
			}
			defer closeLog()

			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}
			logger.Info().Str("provider", provider.Company()).Str("model", cfg.Model).Msg("Using model")

			translator := uistream.New(provider,
				uistream.WithModel(cfg.Model),
				uistream.WithLogger(logger),
			)
			server := httpserver.New(translator,
				httpserver.WithCompanyContext(cfg.CompanyContext),
				httpserver.WithTools(supporttools.Box),
				httpserver.WithLogger(logger),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, cfg.ListenAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	return cmd
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.New(cfg.Model).WithAPIKey(cfg.OpenAIAPIKey).WithBaseURL(cfg.OpenAIBaseURL), nil
	case config.ProviderGoogle:
		return google.New(cfg.Model).WithGeminiAPI(cfg.GeminiAPIKey), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func chatCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Chat with a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(url)

			// The liner package makes the input prompt a lot nicer to use,
			// supporting arrow keys and common keyboard shortcuts.
			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)

			getInput := func() string {
				input, err := line.Prompt("> ")
				if err != nil || input == "exit" {
					return ""
				}
				line.AppendHistory(input)
				return input
			}

			var input string
			if len(args) > 0 {
				input = strings.Join(args, " ")
				fmt.Println(input)
			} else {
				writer.Write("How can I help?")
				fmt.Println()
				input = getInput()
			}

			var history []client.Message
			for input != "" {
				history = append(history, client.Message{Role: "user", Content: input})
				answer, err := chatTurn(cmd.Context(), c, history)
				if err != nil {
					return err
				}
				history = append(history, client.Message{Role: "assistant", Content: answer})
				if len(args) > 0 {
					return nil
				}
				input = getInput()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:3000", "server URL")
	return cmd
}

// chatTurn streams one answer to the terminal and returns its text.
func chatTurn(ctx context.Context, c *client.Client, history []client.Message) (string, error) {
	frames, err := c.Chat(ctx, history)
	if err != nil {
		return "", err
	}
	defer frames.Close()

	w := writer.New(os.Stdout)
	var answer strings.Builder
	go func() {
		defer w.Done()
		hasAddedText := false
		hasAddedTool := false
		toolNames := map[string]string{}
		for frames.Next() {
			switch frame := frames.Frame().(type) {
			case uistream.TextDelta:
				if hasAddedTool {
					fmt.Fprint(w, "\n\n")
					hasAddedTool = false
				}
				fmt.Fprint(w, frame.Delta)
				answer.WriteString(frame.Delta)
				hasAddedText = true
			case uistream.ToolInputStart:
				if hasAddedTool {
					fmt.Fprint(w, "\n")
				} else if hasAddedText {
					fmt.Fprint(w, "\n\n")
				}
				toolNames[frame.ToolCallID] = frame.ToolName
				w.SetTask(frame.ToolName)
				hasAddedTool = true
				hasAddedText = false
			case uistream.ToolInputError:
				w.SetTask("")
				fmt.Fprintf(w, "❌ %s: %s", frame.ToolName, writer.FirstLine(frame.ErrorText))
			case uistream.ToolOutputAvailable:
				w.SetTask("")
				fmt.Fprintf(w, "✅ %s", toolNames[frame.ToolCallID])
			case uistream.ToolOutputError:
				w.SetTask("")
				fmt.Fprintf(w, "❌ %s: %s", toolNames[frame.ToolCallID], writer.FirstLine(frame.ErrorText))
			case uistream.Error:
				fmt.Fprintf(w, "\n❌ %s", writer.FirstLine(frame.Error))
			}
		}
		if err := frames.Err(); err != nil {
			fmt.Fprintf(w, "\n❌ %s", writer.FirstLine(err.Error()))
		}
	}()

	fmt.Println()
	w.StartAndWait()
	fmt.Println()
	return answer.String(), nil
}
