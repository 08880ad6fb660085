package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vedika-ai/vedika-sdk-go/pkg/vedika"
)

var (
	verbose    bool
	apiBaseURL string
	wsEndpoint string
	modelID    string
	convID     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vedika",
		Short: "Vedika AI SDK CLI",
		Long:  "A command-line interface for the Vedika AI chat SDK",
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "REST API base URL")
	rootCmd.PersistentFlags().StringVar(&wsEndpoint, "endpoint", "", "WebSocket endpoint URL")
	rootCmd.PersistentFlags().StringVar(&modelID, "model", "", "Model ID for chat requests")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(conversationsCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		vedika.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

func buildConfig() *vedika.Config {
	cfg := vedika.NewConfig()
	if apiBaseURL != "" {
		cfg.APIBaseURL = apiBaseURL
	}
	if wsEndpoint != "" {
		cfg.WsEndpoint = wsEndpoint
	}
	if modelID != "" {
		cfg.ModelID = modelID
	}
	if verbose {
		cfg.DebugLevel = "DEBUG"
		cfg.DebugWebsocket = true
	}
	return cfg
}

func newClient() *vedika.Client {
	client, err := vedika.NewClient(buildConfig(), nil)
	if err != nil {
		vedika.GetGlobalLogger().WithError(err).Fatal("Failed to build client")
	}
	return client
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a chat message and stream the reply",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient()
			defer client.Close()

			done := make(chan *vedika.StreamResult, 1)

			client.OnConnectionState(vedika.NewConnectionStatusHandler(nil, nil))
			client.OnFrame(vedika.NewChunkHandler(convID, func(content string) {
				fmt.Print(content)
			}))
			client.OnStream(func(res *vedika.StreamResult) {
				select {
				case done <- res:
				default:
				}
			})

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if err := client.SendChat(ctx, args[0], convID); err != nil {
				vedika.GetGlobalLogger().WithError(err).Fatal("Chat send failed")
			}

			select {
			case res := <-done:
				fmt.Println()
				if res.Phase == vedika.StreamErrored {
					fmt.Fprintf(os.Stderr, "stream failed: %v\n", res.Err)
					os.Exit(1)
				}
				if verbose {
					fmt.Printf("(%d chunks, %d tokens)\n", res.ChunkCount, res.Tokens)
				}
			case <-ctx.Done():
				fmt.Fprintln(os.Stderr, "timed out waiting for reply")
				os.Exit(1)
			}

			if coins := client.Coins(); coins != nil {
				fmt.Printf("Credits remaining: %d/%d\n", coins.RemainingCredits, coins.TotalCredits)
			}
		},
	}

	cmd.Flags().StringVarP(&convID, "conversation", "c", "", "Conversation ID to continue")
	return cmd
}

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the device session and credit balance",
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient()
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sess, err := client.Session(ctx)
			if err != nil {
				vedika.GetGlobalLogger().WithError(err).Fatal("Session lookup failed")
			}

			fmt.Println("Device Session")
			fmt.Println("==================================================")
			fmt.Printf("Device ID: %s\n", sess.DeviceID)
			fmt.Printf("Session ID: %s\n", maskString(sess.SessionID))
			fmt.Printf("Expires At: %s\n", sess.ExpiresAt.Format(time.RFC3339))
			fmt.Printf("Credits: %d remaining of %d daily (%d used)\n",
				sess.RemainingCredits, sess.DailyCredits, sess.UsedCredits)
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available through the router",
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient()
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			models, err := client.API().ListModels(ctx)
			if err != nil {
				vedika.GetGlobalLogger().WithError(err).Fatal("Model listing failed")
			}

			fmt.Println("Available Models:")
			for _, m := range models {
				marker := ""
				if m.Default {
					marker = " (default)"
				}
				fmt.Printf("  %s%s - %s", m.ID, marker, m.Name)
				if m.Provider != "" {
					fmt.Printf(" [%s]", m.Provider)
				}
				fmt.Println()
			}
		},
	}
}

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List stored conversations",
		Run: func(cmd *cobra.Command, args []string) {
			client := newClient()
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sess, err := client.Session(ctx)
			if err != nil {
				vedika.GetGlobalLogger().WithError(err).Fatal("Session lookup failed")
			}

			convs, err := client.API().ListConversations(ctx, sess)
			if err != nil {
				vedika.GetGlobalLogger().WithError(err).Fatal("Conversation listing failed")
			}

			if len(convs) == 0 {
				fmt.Println("No conversations yet.")
				return
			}
			for _, conv := range convs {
				title := conv.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("  %s - %s\n", conv.ID, title)
			}
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := buildConfig()
			cfg.PrintConfig()

			if issues := cfg.Validate(); len(issues) > 0 {
				fmt.Println("\nConfiguration issues:")
				for _, issue := range issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
		},
	}
}

// Helper function to mask sensitive strings
func maskString(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
