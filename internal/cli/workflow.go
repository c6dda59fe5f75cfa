package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflows.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Manage and run workflows",
	}

	cmd.AddCommand(
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowImportCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowRunCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			workflows, err := clientFn().ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "NAME", "START", "STEPS", "DESCRIPTION"}
			rows := make([][]string, len(workflows))
			for i, wf := range workflows {
				rows[i] = []string{
					wf.ID,
					wf.Name,
					wf.StartStep,
					strconv.Itoa(len(wf.Steps)),
					wf.Description,
				}
			}

			outputFn().Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowImportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var noReplace bool

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import workflow definitions from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			client := clientFn()

			imported := make([]*WorkflowResponse, 0, len(args))
			for _, path := range args {
				data, err := readInput(path)
				if err != nil {
					return err
				}

				wf, err := client.ImportWorkflow(data, !noReplace)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				imported = append(imported, wf)
				out.Success(fmt.Sprintf("Workflow imported: %s (%s)", wf.Name, wf.ID))
			}

			if out.IsJSON() {
				out.JSON(imported)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noReplace, "no-replace", false, "Fail if a workflow with the same name exists")

	return cmd
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show REF",
		Short: "Show workflow steps (REF is an ID or a name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := clientFn().GetWorkflow(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if out.IsJSON() {
				out.JSON(wf)
				return nil
			}

			out.Table([]string{"FIELD", "VALUE"}, [][]string{
				{"ID", wf.ID},
				{"Name", wf.Name},
				{"Description", wf.Description},
				{"Start", wf.StartStep},
				{"Updated", wf.UpdatedAt},
			})
			fmt.Fprintln(out.w)

			ids := make([]string, 0, len(wf.Steps))
			for id := range wf.Steps {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			rows := make([][]string, len(ids))
			for i, id := range ids {
				step := wf.Steps[id]
				rows[i] = []string{id, stepTarget(step), stepTransitions(step)}
			}
			out.Table([]string{"STEP", "TARGET", "TRANSITIONS"}, rows)
			return nil
		},
	}
}

// stepTarget описывает, что выполняет шаг.
func stepTarget(step map[string]any) string {
	if v, ok := step["prompt"].(string); ok && v != "" {
		return "prompt:" + v
	}
	if v, ok := step["agent"].(string); ok && v != "" {
		return "agent:" + v
	}
	if cond, ok := step["condition"].(map[string]any); ok {
		return fmt.Sprintf("if %v %v %v", cond["variable"], cond["operator"], cond["value"])
	}
	return "-"
}

func stepTransitions(step map[string]any) string {
	var parts []string
	for _, key := range []string{"next", "on_true", "on_false"} {
		if v, ok := step[key].(string); ok && v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	if len(parts) == 0 {
		return "end"
	}
	return strings.Join(parts, " ")
}

func newWorkflowRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		inputs     []string
		inputsFile string
	)

	cmd := &cobra.Command{
		Use:   "run REF",
		Short: "Run a workflow and print the final context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := loadValues(inputsFile, inputs)
			if err != nil {
				return err
			}

			run, err := clientFn().RunWorkflow(args[0], values)
			if err != nil {
				return err
			}

			out := outputFn()
			if out.IsJSON() {
				out.JSON(run)
			} else {
				printRun(out, run)
			}

			if run.Status != "SUCCEEDED" {
				return fmt.Errorf("workflow failed at step %s: %s", run.FailedStep, run.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&inputs, "input", nil, "Initial context value as key=value (repeatable)")
	cmd.Flags().StringVar(&inputsFile, "inputs-file", "", "JSON file with initial context (- for stdin)")

	return cmd
}

func printRun(out *Output, run *RunResponse) {
	out.Table([]string{"FIELD", "VALUE"}, [][]string{
		{"Run", run.ID},
		{"Status", run.Status},
		{"Path", strings.Join(run.Path, " -> ")},
		{"Duration", fmt.Sprintf("%dms", run.DurationMs)},
	})
	fmt.Fprintln(out.w)

	keys := make([]string, 0, len(run.Context))
	for k := range run.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, fmt.Sprint(run.Context[k])}
	}
	out.Table([]string{"KEY", "VALUE"}, rows)
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REF",
		Short: "Delete a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteWorkflow(args[0]); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Workflow deleted: %s", args[0]))
			return nil
		},
	}
}
