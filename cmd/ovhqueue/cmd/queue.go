package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect queue tasks in data/queue.json",
	}
	cmd.AddCommand(newQueueListCmd(), newQueueShowCmd())
	return cmd
}

func newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queue tasks",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			queueStore, err := openQueueStore()
			if err != nil {
				return err
			}
			tasks, err := queueStore.List(cobraCmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Fprintf(cobraCmd.OutOrStdout(), "%s\t%s\t%s\t%d/%d\n", t.ID, t.PlanCode, t.Status, t.Purchased, t.Quantity)
			}
			return nil
		},
	}
}

func newQueueShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task and its last history entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			queueStore, err := openQueueStore()
			if err != nil {
				return err
			}
			task, err := queueStore.Get(cobraCmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cobraCmd.OutOrStdout(), "id:            %s\n", task.ID)
			fmt.Fprintf(cobraCmd.OutOrStdout(), "planCode:      %s\n", task.PlanCode)
			fmt.Fprintf(cobraCmd.OutOrStdout(), "status:        %s\n", task.Status)
			fmt.Fprintf(cobraCmd.OutOrStdout(), "purchased:     %d/%d\n", task.Purchased, task.Quantity)
			fmt.Fprintf(cobraCmd.OutOrStdout(), "retryCount:    %d\n", task.RetryCount)
			fmt.Fprintf(cobraCmd.OutOrStdout(), "failureCount:  %d\n", task.FailureCount)
			if task.ErrorMessage != "" {
				fmt.Fprintf(cobraCmd.OutOrStdout(), "errorMessage:  %s\n", task.ErrorMessage)
			}

			historyStore, err := openHistoryStore()
			if err != nil {
				return err
			}
			entries, err := historyStore.List(cobraCmd.Context(), task.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cobraCmd.OutOrStdout(), "\nhistory (%d entries):\n", len(entries))
			start := 0
			if len(entries) > 10 {
				start = len(entries) - 10
			}
			for _, e := range entries[start:] {
				fmt.Fprintf(cobraCmd.OutOrStdout(), "  [%d] %s %s %s\n", e.Sequence, e.PurchaseTime.Format("2006-01-02T15:04:05"), e.Status, e.Datacenter)
			}
			return nil
		},
	}
}
