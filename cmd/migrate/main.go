package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nms-crm/internal/config"
	"github.com/nms-crm/internal/loaders"
	"github.com/nms-crm/internal/review"
	"github.com/nms-crm/internal/staging"
	"github.com/nms-crm/internal/table"
	"github.com/nms-crm/internal/web"
)

var debugFlag bool

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Printf("Failed to load .env: %v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "NMS CRM Migration Toolkit",
		Long:  `Transforms legacy CRM exports into import-ready CSVs for the target system`,
	}
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug tracing")

	rootCmd.AddCommand(createListCmd())
	rootCmd.AddCommand(createLoadCmd())
	rootCmd.AddCommand(createRunAllCmd())
	rootCmd.AddCommand(createReviewCmd())
	rootCmd.AddCommand(createStageCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createPingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newContext builds the shared loader context from the environment.
func newContext() *loaders.Context {
	c, err := loaders.NewContext(config.LoadPaths(), config.LoadThresholds())
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	c.Debug = debugFlag
	return c
}

func createListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available module loaders",
		Run: func(cmd *cobra.Command, args []string) {
			for _, l := range loaders.Registry() {
				fmt.Printf("%-24s %s\n", l.Key, l.Description)
			}
		},
	}
}

func createLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [module]",
		Short: "Run a single module loader",
		Long:  `Run one module loader by key; use the list command to see valid keys`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c := newContext()
			if err := loaders.RunOne(c, args[0]); err != nil {
				log.Fatalf("Load failed: %v", err)
			}
		},
	}
}

func createRunAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-all",
		Short: "Run every module loader in dependency order",
		Run: func(cmd *cobra.Command, args []string) {
			c := newContext()
			if err := loaders.Pipeline(c).Run(); err != nil {
				log.Fatalf("Pipeline failed: %v", err)
			}
		},
	}
}

func createReviewCmd() *cobra.Command {
	var approveAll bool
	var threshold int

	cmd := &cobra.Command{
		Use:   "review [csv]",
		Short: "Review fuzzy duplicate groups interactively",
		Long:  `Cluster near-duplicate names in an export and record merge decisions; decisions are cached and reused by the loaders`,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c := newContext()

			path := filepath.Join(config.LoadPaths().ExportsDir, c.Exports.Products)
			if len(args) == 1 {
				path = args[0]
			}
			stem := loaders.Stem(filepath.Base(path))

			t, err := table.Read(path)
			if err != nil {
				log.Fatalf("Failed to read %s: %v", path, err)
			}

			var provider review.ApprovalProvider = review.NewTerminalProvider(os.Stdin, os.Stdout)
			if approveAll {
				provider = review.ApproveAllProvider{}
			}

			session := review.NewSession(review.DeriveNameColumn(stem), threshold, provider)
			decisions, err := session.Run(t)
			if err != nil {
				log.Fatalf("Review failed: %v", err)
			}
			if len(decisions) == 0 {
				fmt.Println("No merge decisions recorded")
				return
			}

			if err := c.Decisions.Save(stem, decisions); err != nil {
				log.Fatalf("Failed to save decisions: %v", err)
			}
			fmt.Printf("Saved %d merge decisions to %s\n", len(decisions), c.Decisions.Path(stem))
		},
	}

	cmd.Flags().BoolVar(&approveAll, "approve-all", false, "Approve every group without prompting")
	cmd.Flags().IntVar(&threshold, "threshold", config.LoadThresholds().Cluster, "Similarity cutoff for grouping")

	return cmd
}

func createStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage",
		Short: "Load output CSVs into Postgres staging tables",
		Run: func(cmd *cobra.Command, args []string) {
			conn, err := staging.NewConnection()
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			defer conn.Close()

			exporter := staging.NewExporter(conn.DB)
			if err := exporter.StageDir(context.Background(), config.LoadPaths().OutputDir); err != nil {
				log.Fatalf("Staging failed: %v", err)
			}
		},
	}
}

func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test staging database connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			conn, err := staging.NewConnection()
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			defer conn.Close()
			fmt.Println("Database connection successful!")

			var count int
			err = conn.DB.QueryRow("SELECT COUNT(*) FROM information_schema.tables WHERE table_name LIKE 'staging_%'").Scan(&count)
			if err != nil {
				log.Printf("Error counting staging tables: %v", err)
			} else {
				fmt.Printf("Staging tables present: %d\n", count)
			}
		},
	}
}

func createServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the loader pipeline over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			c := newContext()
			server := web.NewServer(c, addr)
			if err := server.Start(); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")

	return cmd
}
