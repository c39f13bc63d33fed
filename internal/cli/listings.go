package cli

import (
	"os"

	"github.com/spf13/cobra"

	"evald/pkg/types"
)

func newTasksCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List benchmark tasks known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.TasksResponse
			if err := newClient(cfg.Addr).getJSON(cmd.Context(), "/tasks", &resp); err != nil {
				return err
			}
			printTasks(os.Stdout, resp.Tasks)
			return nil
		},
	}
}

func newModelsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models in the daemon's registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp types.ModelsResponse
			if err := newClient(cfg.Addr).getJSON(cmd.Context(), "/models", &resp); err != nil {
				return err
			}
			printModels(os.Stdout, resp.Models)
			return nil
		},
	}
}

func newResultsCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "List stored runs, or show one run's full report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(cfg.Addr)
			if len(args) == 1 {
				var rep types.RunReport
				if err := c.getJSON(cmd.Context(), "/runs/"+args[0], &rep); err != nil {
					return err
				}
				printReport(os.Stdout, rep)
				return nil
			}
			var resp types.RunsResponse
			if err := c.getJSON(cmd.Context(), "/runs", &resp); err != nil {
				return err
			}
			printRunSummaries(os.Stdout, resp.Runs)
			return nil
		},
	}
	return cmd
}
