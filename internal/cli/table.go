package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"evald/pkg/types"
)

func printReport(w io.Writer, rep types.RunReport) {
	fmt.Fprintf(w, "run %s  model=%s  state=%s\n", rep.ID, rep.Model, rep.State)
	if rep.JudgeModel != "" {
		fmt.Fprintf(w, "judge model: %s\n", rep.JudgeModel)
	}
	if rep.UnloadLMBeforeEval {
		fmt.Fprintf(w, "unload before eval: requested, released=%v\n", rep.PrimaryReleased)
	}
	if rep.Error != "" {
		fmt.Fprintf(w, "error: %s\n", rep.Error)
	}
	if len(rep.Scores) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tMETRIC\tSCORE\tSAMPLES\tUNPARSED")
	for _, s := range rep.Scores {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%d\t%d\n", s.Task, s.Metric, s.Score, s.Samples, s.Unparsed)
	}
	for _, g := range rep.GroupScores {
		fmt.Fprintf(tw, "%s (group)\t%s\t%.4f\t%d\t-\n", g.Task, g.Metric, g.Score, g.Samples)
	}
	tw.Flush()
}

func printTasks(w io.Writer, list []types.TaskInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tGROUP\tKIND\tMETRIC\tFEWSHOT")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", t.Name, t.Group, t.Kind, t.Metric, t.NumFewshot)
	}
	tw.Flush()
}

func printModels(w io.Writer, list []types.Model) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUANT\tPATH")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, m.Quant, m.Path)
	}
	tw.Flush()
}

func printRunSummaries(w io.Writer, list []types.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tSTATE\tUNLOAD\tSTARTED")
	for _, r := range list {
		started := ""
		if r.StartedUnix > 0 {
			started = time.Unix(r.StartedUnix, 0).Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n", r.ID, r.Model, r.State, r.UnloadLMBeforeEval, started)
	}
	tw.Flush()
}

func printStatus(w io.Writer, st types.StatusResponse) {
	fmt.Fprintf(w, "state: %s\n", st.State)
	fmt.Fprintf(w, "tasks: %d  models: %d\n", st.TasksLoaded, st.ModelsLoaded)
	fmt.Fprintf(w, "runs: %d  samples: %d  unloads: %d\n", st.RunsTotal, st.SamplesTotal, st.UnloadsTotal)
	if st.ActiveRun != nil {
		a := st.ActiveRun
		fmt.Fprintf(w, "active: %s phase=%s task=%s progress=%d/%d\n", a.ID, a.Phase, a.Task, a.SamplesDone, a.SamplesTotal)
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "last error: %s\n", st.LastError)
	}
}
