package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/kara-dl-go/internal/app"
	"github.com/yourusername/kara-dl-go/internal/domain"
)

func printDownloads(items []domain.DownloadItem) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tNAME\tREPOSITORY\tSTATUS\tSTARTED")
	for _, d := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.UUID,
			truncate(d.Name, 40),
			d.Repository,
			d.Status,
			d.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

var addCmd = &cobra.Command{
	Use:   "add [kid...]",
	Short: "Queue karaoke media by kid",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, _ := cmd.Flags().GetString("repository")
		name, _ := cmd.Flags().GetString("name")
		size, _ := cmd.Flags().GetInt64("size")

		items := make([]map[string]interface{}, 0, len(args))
		for _, kid := range args {
			label := name
			if label == "" || len(args) > 1 {
				label = kid
			}
			items = append(items, map[string]interface{}{
				"uuid":       uuid.New().String(),
				"name":       label,
				"kid":        kid,
				"size":       size,
				"repository": repository,
			})
		}

		var result struct {
			Count int                   `json:"count"`
			Items []domain.DownloadItem `json:"items"`
		}
		if err := client().do(http.MethodPost, "/api/v1/downloads", map[string]interface{}{"items": items}, &result); err != nil {
			return err
		}

		fmt.Printf("%d download(s) queued\n", result.Count)
		printDownloads(result.Items)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		var items []domain.DownloadItem
		if err := client().do(http.MethodGet, "/api/v1/downloads", nil, &items); err != nil {
			return err
		}
		printDownloads(items)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List downloads waiting for a worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		var items []domain.DownloadItem
		if err := client().do(http.MethodGet, "/api/v1/downloads/pending", nil, &items); err != nil {
			return err
		}
		printDownloads(items)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [uuid]",
	Short: "Get download details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var d domain.DownloadItem
		if err := client().do(http.MethodGet, "/api/v1/downloads/"+args[0], nil, &d); err != nil {
			return err
		}

		fmt.Printf("Download Details:\n")
		fmt.Printf("  UUID:       %s\n", d.UUID)
		fmt.Printf("  Name:       %s\n", d.Name)
		fmt.Printf("  KID:        %s\n", d.KID)
		fmt.Printf("  Repository: %s\n", d.Repository)
		fmt.Printf("  Size:       %d\n", d.Size)
		fmt.Printf("  Status:     %s\n", d.Status)
		fmt.Printf("  Started:    %s\n", d.StartedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [uuid] [DL_PLANNED|DL_RUNNING|DL_DONE|DL_FAILED]",
	Short: "Change the status of a download",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().do(http.MethodPut, "/api/v1/downloads/"+args[0]+"/status",
			map[string]string{"status": args[1]}, nil); err != nil {
			return err
		}
		fmt.Printf("Download %s set to %s\n", args[0], args[1])
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [uuid]",
	Short: "Put a download back in the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().do(http.MethodPost, "/api/v1/downloads/"+args[0]+"/retry", nil, nil); err != nil {
			return err
		}
		fmt.Println("Download queued for retry")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [uuid]",
	Short: "Remove a download, stopping it if running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().do(http.MethodDelete, "/api/v1/downloads/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Download deleted")
		return nil
	},
}

var emptyCmd = &cobra.Command{
	Use:   "empty",
	Short: "Remove every download from the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().do(http.MethodDelete, "/api/v1/downloads", nil, nil); err != nil {
			return err
		}
		fmt.Println("Queue emptied")
		return nil
	},
}

func printStats(stats domain.QueueStats) {
	fmt.Println("Download Statistics:")
	fmt.Printf("  Total:   %d\n", stats.Total)
	fmt.Printf("  Planned: %d\n", stats.Planned)
	fmt.Printf("  Running: %d\n", stats.Running)
	fmt.Printf("  Done:    %d\n", stats.Done)
	fmt.Printf("  Failed:  %d\n", stats.Failed)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.QueueStats
		if err := client().do(http.MethodGet, "/api/v1/downloads/stats", nil, &stats); err != nil {
			return err
		}
		printStats(stats)
		return nil
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Requeue interrupted downloads and purge finished ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.QueueStats
		if err := client().do(http.MethodPost, "/api/v1/downloads/recovery", nil, &stats); err != nil {
			return err
		}
		printStats(stats)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [repository]",
	Short: "Queue every missing (or outdated) media of a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")

		var result app.BulkResult
		req := app.BulkRequest{Repository: args[0], Mode: app.BulkMode(mode)}
		if err := client().do(http.MethodPost, "/api/v1/downloads/sync", req, &result); err != nil {
			return err
		}

		fmt.Printf("Repository %s (%s):\n", result.Repository, result.Mode)
		fmt.Printf("  Considered: %d\n", result.Considered)
		fmt.Printf("  Blocked:    %d\n", result.Blocked)
		fmt.Printf("  Skipped:    %d\n", result.Skipped)
		fmt.Printf("  Enqueued:   %d\n", result.Enqueued)
		return nil
	},
}

func init() {
	addCmd.Flags().StringP("repository", "r", "kara.moe", "Repository serving the media")
	addCmd.Flags().StringP("name", "n", "", "Display name (single kid only)")
	addCmd.Flags().Int64P("size", "s", 0, "Expected media size in bytes")
	syncCmd.Flags().StringP("mode", "m", string(app.BulkMissing), "missing or update")
}
