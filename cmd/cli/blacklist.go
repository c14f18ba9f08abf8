package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage the criteria that keep media out of repository syncs",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklist criteria",
	RunE: func(cmd *cobra.Command, args []string) error {
		var criteria []domain.BlacklistCriterion
		if err := client().do(http.MethodGet, "/api/v1/blacklist/criteria", nil, &criteria); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tVALUE")
		for _, c := range criteria {
			fmt.Fprintf(w, "%d\t%d (%s)\t%s\n", c.ID, int(c.Type), c.Type, c.Value)
		}
		w.Flush()
		return nil
	},
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add [type] [value]",
	Short: "Add a criterion (type 0 text, 1-13 tag UUID, 1002 longer than, 1003 shorter than, 1004 title contains)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("criterion type must be a number: %w", err)
		}

		var created domain.BlacklistCriterion
		body := map[string]interface{}{"type": t, "value": args[1]}
		if err := client().do(http.MethodPost, "/api/v1/blacklist/criteria", body, &created); err != nil {
			return err
		}
		fmt.Printf("Criterion %d added (%s = %s)\n", created.ID, created.Type, created.Value)
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a criterion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().do(http.MethodDelete, "/api/v1/blacklist/criteria/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Criterion removed")
		return nil
	},
}

func init() {
	blacklistCmd.AddCommand(blacklistListCmd, blacklistAddCmd, blacklistRemoveCmd)
}
