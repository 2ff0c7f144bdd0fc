// Command line companion for the Imagen API: submit generations and
// follow them to completion, inspect tasks, browse history and run
// database migrations.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"imagen/client"
	"imagen/migrations"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func main() {
	var (
		baseURL string
		token   string
	)

	colors := newUI()

	root := &cobra.Command{
		Use:           "imagenctl",
		Short:         "Imagen API command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:8198", "Base URL of the Imagen API")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("IMAGEN_TOKEN"), "API token (defaults to IMAGEN_TOKEN)")

	root.AddCommand(
		generateCmd(&baseURL, &token, colors),
		statusCmd(&baseURL, &token, colors),
		historyCmd(&baseURL, &token, colors),
		migrateCmd(colors),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colors.err("[ERR]"), err)
		os.Exit(1)
	}
}

func generateCmd(baseURL, token *string, colors *ui) *cobra.Command {
	var (
		out      string
		interval time.Duration
		attempts int
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Submit a prompt and wait for the image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			if strings.TrimSpace(prompt) == "" {
				return errors.New("prompt is required")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			bar := progressbar.NewOptions(100,
				progressbar.OptionSetDescription("Generating"),
				progressbar.OptionSetWidth(18),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			p := &client.Poller{
				Client:      client.New(*baseURL, *token),
				Interval:    interval,
				MaxAttempts: attempts,
				OnProgress: func(pr client.Progress) {
					bar.Set(int(pr.Percent))
				},
			}

			task, err := p.Run(ctx, prompt)

			bar.Finish()

			if err != nil {
				return err
			}

			fmt.Printf("%s Generation complete: %s\n", colors.ok("[OK]"), task.TaskID)

			if out == "" {
				fmt.Printf("%s %d bytes of base64 image data (use --out to save)\n", colors.info("[INFO]"), len(task.ImageData.String))
				return nil
			}

			data, err := base64.StdEncoding.DecodeString(task.ImageData.String)

			if err != nil {
				return fmt.Errorf("invalid image data: %w", err)
			}

			if err := os.WriteFile(out, data, 0644); err != nil {
				return err
			}

			fmt.Printf("%s Saved image to %s\n", colors.ok("[OK]"), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "File to save the image to")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Poll interval")
	cmd.Flags().IntVar(&attempts, "attempts", 120, "Max poll attempts before giving up")

	return cmd
}

func statusCmd(baseURL, token *string, colors *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Get the status of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching task..."
			spin.Start()
			task, err := client.New(*baseURL, *token).Status(context.Background(), args[0])
			spin.Stop()

			if err != nil {
				return err
			}

			b, err := json.MarshalIndent(task, "", "  ")

			if err != nil {
				return err
			}

			fmt.Println(string(b))
			return nil
		},
	}
}

func historyCmd(baseURL, token *string, colors *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your archived generations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching history..."
			spin.Start()
			list, err := client.New(*baseURL, *token).History(context.Background())
			spin.Stop()

			if err != nil {
				return err
			}

			if len(list.History) == 0 {
				fmt.Printf("%s No archived generations\n", colors.info("[INFO]"))
				return nil
			}

			for _, rec := range list.History {
				fmt.Printf("%s %s %s\n", colors.ok(rec.TaskID), colors.dim(rec.CreatedAt.Time.Format(time.RFC3339)), rec.Prompt)
			}

			return nil
		},
	}
}

func migrateCmd(colors *ui) *cobra.Command {
	var postgresURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := pgxpool.New(ctx, postgresURL)

			if err != nil {
				return err
			}

			defer pool.Close()

			migrations.Migrate(ctx, pool)

			fmt.Printf("%s Migrations complete\n", colors.ok("[OK]"))
			return nil
		},
	}

	cmd.Flags().StringVar(&postgresURL, "postgres-url", "postgresql:///imagen", "Postgres URL to migrate")

	return cmd
}
