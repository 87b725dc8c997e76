package main

import (
	"voicetask/internal/bootstrap"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tasksCompleted bool

func init() {
	tasksCmd.Flags().BoolVar(&tasksCompleted, "completed", true, "Include completed tasks")
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List saved tasks, pending first",
	Long: `List the saved tasks: pending tasks first, newest first within each group.

With the default in-memory store the list only lives as long as the process;
set STORE_DRIVER to redis, nats or postgres to inspect a shared list.`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

func runTasks(cmd *cobra.Command, _ []string) error {
	return withContainer(cmd, func(c *bootstrap.Container) error {
		tasks, err := c.TaskService.List(cmd.Context(), true)
		if err != nil {
			color.Red("Failed to load tasks: %v", err)
			return err
		}
		stats, err := c.TaskService.Stats(cmd.Context())
		if err != nil {
			color.Red("Failed to load stats: %v", err)
			return err
		}

		if len(tasks) == 0 {
			color.Yellow("No tasks yet")
			return nil
		}
		for _, task := range tasks {
			if task.Completed {
				if tasksCompleted {
					color.HiBlack("  [x] %s", task.Text)
				}
				continue
			}
			color.White("  [ ] %s", task.Text)
		}
		color.Cyan("%d/%d completed", stats.Completed, stats.Total)
		return nil
	})
}
