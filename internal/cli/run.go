package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evald/pkg/types"
)

func newRunCmd(cfg *Config) *cobra.Command {
	var req types.RunRequest
	var seed int64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit an evaluation run and wait for the report",
		Example: "  evalctl run --model llama3-8b.gguf --task mmlu_mt\n" +
			"  evalctl run --model llama3-8b.gguf --judge_model llama3-70b.gguf --task haiku --unload_lm_before_eval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(req.Tasks) == 0 {
				return fmt.Errorf("at least one --task is required")
			}
			req.Seed = seed
			c := newClient(cfg.Addr)
			info("submitting run model=%s tasks=%v unload_lm_before_eval=%v", req.Model, req.Tasks, req.UnloadLMBeforeEval)
			var rep types.RunReport
			if err := c.postJSON(cmd.Context(), "/runs", req, &rep); err != nil {
				return err
			}
			printReport(os.Stdout, rep)
			if rep.State != "done" {
				return fmt.Errorf("run %s failed: %s", rep.ID, rep.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Model, "model", "", "Model id to evaluate (daemon default when empty)")
	cmd.Flags().StringVar(&req.JudgeModel, "judge_model", "", "Judge model id for judge-metric tasks")
	cmd.Flags().StringArrayVar(&req.Tasks, "task", nil, "Task or group name (repeatable)")
	cmd.Flags().IntVar(&req.MaxSamples, "max_samples", 0, "Cap samples per task (0 = all)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for sample shuffling and synthetic datasets (0 = random)")
	cmd.Flags().IntVar(&req.MaxTokens, "max_tokens", 0, "Generation budget per sample (task setting wins)")
	cmd.Flags().Float64Var(&req.Temperature, "temperature", 0, "Sampling temperature (0 = greedy)")
	cmd.Flags().BoolVar(&req.UnloadLMBeforeEval, "unload_lm_before_eval", false,
		"Release the primary model's weights after generation, before the judge model loads (no-op on engines that cannot unload)")

	return cmd
}

func newStatusCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st types.StatusResponse
			if err := newClient(cfg.Addr).getJSON(cmd.Context(), "/status", &st); err != nil {
				return err
			}
			printStatus(os.Stdout, st)
			return nil
		},
	}
}
