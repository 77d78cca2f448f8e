// Package cmd implements the codebase-indexer CLI: index, mcp, query,
// status, clear-index, version.
//
// Grounded on the teacher's cmd/root.go for cobra wiring and flag
// conventions; the update subcommand is dropped along with
// internal/updater — there's no SPEC_FULL.md component for release
// self-update, it belongs to distribution rather than indexing.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codebase-indexer/internal/config"
	"codebase-indexer/internal/embeddings"
	"codebase-indexer/internal/indexer"
	"codebase-indexer/internal/logging"
	"codebase-indexer/internal/mcp"
	"codebase-indexer/internal/vectorstore"
)

// These variables are set during build using ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "codebase-indexer",
	Short: "Incremental semantic code indexer",
	Long:  "Indexes a code repository into a semantic vector store using a Merkle-tree-based incremental change detector.",
}

func buildPipeline(dir string) (*indexer.Pipeline, *vectorstore.Adapter, error) {
	log := logging.Default("cli")

	if err := config.LoadFromUserConfig(); err != nil {
		log.Warn("failed to load user config", "error", err)
	}

	store, err := vectorstore.NewAdapter(log)
	if err != nil {
		return nil, nil, err
	}

	ec := embeddings.NewCachedClient(embeddings.NewClient(log), log)
	pipeline, err := indexer.New(dir, store, ec, log)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return pipeline, store, nil
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run a full or incremental indexing pass over a project, auto-detected by presence of a persisted merkle_tree.json in the index directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		pipeline, store, err := buildPipeline(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		merkleFile := filepath.Join(pipeline.IndexDir, "merkle_tree.json")
		if _, err := os.Stat(merkleFile); err == nil {
			fmt.Printf("Incrementally indexing project at: %s\n", pipeline.ProjectRoot)
			return pipeline.IncrementalIndex(context.Background())
		}

		fmt.Printf("Indexing project at: %s\n", pipeline.ProjectRoot)
		return pipeline.FullIndex(context.Background())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.Default("mcp")
		if err := config.LoadFromUserConfig(); err != nil {
			log.Warn("failed to load user config", "error", err)
		}

		store, err := vectorstore.NewAdapter(log)
		if err != nil {
			return err
		}
		defer store.Close()

		ec := embeddings.NewCachedClient(embeddings.NewClient(log), log)
		server := mcp.NewServer(store, ec, log)
		return server.Run()
	},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a natural language semantic code search",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("q")
		topK, _ := cmd.Flags().GetInt("top_k")
		dir, _ := cmd.Flags().GetString("dir")
		if topK <= 0 {
			topK = 5
		}

		pipeline, store, err := buildPipeline(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		vec, err := pipeline.EmbedForQuery(context.Background(), q)
		if err != nil {
			return err
		}

		result := store.Query(context.Background(), pipeline.Collection, vec, uint64(topK))
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report last index time, file count, and file hashes for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		pipeline, store, err := buildPipeline(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		meta, _ := indexer.ReadMetadata(pipeline.IndexDir)
		hashes, _ := indexer.ReadFileHashes(pipeline.IndexDir)

		data, _ := json.MarshalIndent(map[string]interface{}{
			"last_index_time": meta.LastIndexTime,
			"total_files":     meta.TotalFilesIndexed,
			"file_hashes":     hashes,
			"path":            pipeline.IndexDir,
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}

var clearIndexCmd = &cobra.Command{
	Use:   "clear-index",
	Short: "Delete the entire vector collection and on-disk index directory for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		pipeline, store, err := buildPipeline(dir)
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("Deleting collection: %s\n", pipeline.Collection)
		if err := store.DeleteCollection(context.Background(), pipeline.Collection); err != nil {
			return fmt.Errorf("clear-index: delete collection: %w", err)
		}
		if err := os.RemoveAll(pipeline.IndexDir); err != nil {
			return fmt.Errorf("clear-index: remove index dir: %w", err)
		}
		fmt.Println("Collection and index directory removed.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("codebase-indexer version %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build time: %s\n", BuildTime)
	},
}

func init() {
	indexCmd.Flags().String("dir", ".", "Project root directory")
	queryCmd.Flags().String("q", "", "Natural language query")
	queryCmd.Flags().Int("top_k", 5, "Maximum number of results to return")
	queryCmd.Flags().String("dir", ".", "Project root directory (must match the directory passed to 'index')")
	statusCmd.Flags().String("dir", ".", "Project root directory")
	clearIndexCmd.Flags().String("dir", ".", "Project root directory to clear")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clearIndexCmd)
	rootCmd.AddCommand(versionCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
