package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingdong00/FLAML/pkg/models"
)

func newRunCommand() *cobra.Command {
	var wait bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "run <experiment.yaml>",
		Short: "Submit an experiment and start a search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read experiment: %w", err)
			}

			c := newClient(serverURL)
			created, err := c.createSearch(string(data))
			if err != nil {
				return err
			}

			if !wait {
				return printJSON(created)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "started %s, waiting...\n", created.ID)
			for {
				job, err := c.getJob(created.ID)
				if err != nil {
					return err
				}
				if terminal(job.Status) {
					return printJSON(job)
				}
				time.Sleep(pollInterval)
			}
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the search finishes")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "status poll interval with --wait")
	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List search jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := newClient(serverURL).listJobs()
			if err != nil {
				return err
			}
			return printJSON(jobs)
		},
	}
}

func newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one search job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := newClient(serverURL).getJob(args[0])
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}
}

func newStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id>",
		Short: "Stop a running search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(serverURL).stopJob(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stop requested for %s\n", args[0])
			return nil
		},
	}
}

func newBestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "best <job-id>",
		Short: "Show the best trial found so far",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			best, err := newClient(serverURL).bestTrial(args[0])
			if err != nil {
				return err
			}
			return printJSON(best)
		},
	}
}

func newTrialsCommand() *cobra.Command {
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "trials <job-id>",
		Short: "List a search's trials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := newClient(serverURL).trials(args[0], offset, limit)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "first trial index to return")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum trials to return")
	return cmd
}

func terminal(status string) bool {
	switch status {
	case models.JobStatusCompleted, models.JobStatusFailed, models.JobStatusStopped:
		return true
	}
	return false
}
