package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"video-analyzer/internal/domain/model"
)

var submitWatch bool
var listLimit int

var submitCmd = &cobra.Command{
	Use:   "submit <url>",
	Short: "Submit a video URL for analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL)
		id, err := c.Submit(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "job %d submitted\n", id)
		if !submitWatch {
			return nil
		}
		job, err := watch(cmd.Context(), c, id, pollInterval, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		job, err := newAPIClient(serverURL).Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := newAPIClient(serverURL).List(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		printTable(cmd.OutOrStdout(), jobs)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Mark a job as deleted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := newAPIClient(serverURL).Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "job %d deleted\n", id)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <id>",
	Short: "Poll a job until it completes or fails",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		job, err := watch(cmd.Context(), newAPIClient(serverURL), id, pollInterval, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), job)
	},
}

func init() {
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", false, "wait for the job to finish")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "number of jobs to show")
	for _, c := range []*cobra.Command{submitCmd, watchCmd} {
		c.Flags().DurationVar(&pollInterval, "interval", 3*time.Second, "poll interval")
	}
}

type jobGetter interface {
	Get(ctx context.Context, id int64) (*model.Job, error)
}

// watch prints each status change until the job reaches a terminal state.
func watch(ctx context.Context, c jobGetter, id int64, interval time.Duration, out io.Writer) (*model.Job, error) {
	t := time.NewTicker(interval)
	defer t.Stop()
	last := ""
	for {
		job, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		line := fmt.Sprintf("%-11s %3d%%", job.Status, job.Progress)
		if line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func printTable(out io.Writer, jobs []*model.Job) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tPLATFORM\tTITLE\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%d\t%s\t%d%%\t%s\t%s\t%s\n",
			j.ID, j.Status, j.Progress, j.Platform, shorten(j.Metadata.Title, 40), j.CreatedAt.Local().Format(time.DateTime))
	}
	_ = w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return id, nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
