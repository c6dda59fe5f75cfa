package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewPromptCmd создаёт группу команд для управления prompts.
func NewPromptCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage prompts",
	}

	cmd.AddCommand(
		newPromptListCmd(clientFn, outputFn),
		newPromptSearchCmd(clientFn, outputFn),
		newPromptCreateCmd(clientFn, outputFn),
		newPromptShowCmd(clientFn, outputFn),
		newPromptUpdateCmd(clientFn, outputFn),
		newPromptDeleteCmd(clientFn, outputFn),
		newPromptRenderCmd(clientFn, outputFn),
		newPromptVersionsCmd(clientFn, outputFn),
		newPromptRollbackCmd(clientFn, outputFn),
		newPromptDiffCmd(clientFn, outputFn),
	)

	return cmd
}

var promptHeaders = []string{"ID", "NAME", "VERSION", "CATEGORY", "TAGS", "USAGE"}

func promptRow(p PromptResponse) []string {
	return []string{
		p.ID,
		p.Name,
		p.Version,
		p.Category,
		strings.Join(p.Tags, ","),
		strconv.Itoa(p.UsageCount),
	}
}

func printPrompts(out *Output, prompts []PromptResponse) {
	rows := make([][]string, len(prompts))
	for i, p := range prompts {
		rows[i] = promptRow(p)
	}
	out.Print(promptHeaders, rows, prompts)
}

func newPromptListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListPromptsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := clientFn().ListPrompts(opts)
			if err != nil {
				return err
			}

			printPrompts(outputFn(), prompts)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "Filter by category")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "Filter by tag (repeatable, all must match)")

	return cmd
}

func newPromptSearchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search prompts by name, description and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := clientFn().SearchPrompts(strings.Join(args, " "))
			if err != nil {
				return err
			}

			printPrompts(outputFn(), prompts)
			return nil
		},
	}
}

func newPromptCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		req     CreatePromptRequest
		file    string
		content string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := promptContent(cmd, content, file)
			if err != nil {
				return err
			}
			if body == nil {
				return errors.New("either --content or --file is required")
			}
			req.Content = *body

			out := outputFn()
			p, err := clientFn().CreatePrompt(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Prompt created: %s (version %s)", p.ID, p.Version))
			out.Print(promptHeaders, [][]string{promptRow(*p)}, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Prompt name (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category")
	cmd.Flags().StringVar(&req.Author, "author", "", "Author")
	cmd.Flags().StringSliceVar(&req.Tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&content, "content", "", "Template body")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read template body from file (- for stdin)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// promptContent возвращает тело шаблона из --content или --file.
// nil — ни один флаг не задан.
func promptContent(cmd *cobra.Command, content, file string) (*string, error) {
	changedContent := cmd.Flags().Changed("content")
	if changedContent && file != "" {
		return nil, errors.New("--content and --file are mutually exclusive")
	}
	if changedContent {
		return &content, nil
	}
	if file == "" {
		return nil, nil
	}

	data, err := readInput(file)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func newPromptShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show REF",
		Short: "Show prompt details (REF is an ID or a name)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := clientFn().GetPrompt(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			if out.IsJSON() {
				out.JSON(p)
				return nil
			}

			out.Table([]string{"FIELD", "VALUE"}, [][]string{
				{"ID", p.ID},
				{"Name", p.Name},
				{"Description", p.Description},
				{"Version", p.Version},
				{"Checksum", p.Checksum},
				{"Category", p.Category},
				{"Tags", strings.Join(p.Tags, ",")},
				{"Variables", strings.Join(p.Variables, ",")},
				{"Author", p.Author},
				{"Usage", strconv.Itoa(p.UsageCount)},
				{"Last used", p.LastUsedAt},
				{"Updated", p.UpdatedAt},
			})
			out.Text("\n"+p.Content, p)
			return nil
		},
	}
}

func newPromptUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		content     string
		file        string
		description string
		category    string
		author      string
		tags        []string
		note        string
	)

	cmd := &cobra.Command{
		Use:   "update REF",
		Short: "Update a prompt (a new version is created when content changes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := promptContent(cmd, content, file)
			if err != nil {
				return err
			}

			req := UpdatePromptRequest{Content: body, ChangeNote: note}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("category") {
				req.Category = &category
			}
			if cmd.Flags().Changed("author") {
				req.Author = &author
			}
			if cmd.Flags().Changed("tag") {
				req.Tags = tags
			}

			out := outputFn()
			p, err := clientFn().UpdatePrompt(args[0], req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Prompt updated: %s (version %s)", p.Name, p.Version))
			out.Print(promptHeaders, [][]string{promptRow(*p)}, p)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "New template body")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read new template body from file (- for stdin)")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&category, "category", "", "New category")
	cmd.Flags().StringVar(&author, "author", "", "Author of the change")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Replace tags (repeatable)")
	cmd.Flags().StringVar(&note, "note", "", "Change note for the new version")

	return cmd
}

func newPromptDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete REF",
		Short: "Delete a prompt (version history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeletePrompt(args[0]); err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Prompt deleted: %s", args[0]))
			return nil
		},
	}
}

func newPromptRenderCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		vars     []string
		varsFile string
	)

	cmd := &cobra.Command{
		Use:   "render REF",
		Short: "Render a prompt with variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := loadValues(varsFile, vars)
			if err != nil {
				return err
			}

			res, err := clientFn().RenderPrompt(args[0], values)
			if err != nil {
				return err
			}

			outputFn().Text(res.Output, res)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable as key=value (repeatable)")
	cmd.Flags().StringVar(&varsFile, "vars-file", "", "JSON file with variables (- for stdin)")

	return cmd
}

func newPromptVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions REF",
		Short: "List prompt versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := clientFn().ListVersions(args[0])
			if err != nil {
				return err
			}

			headers := []string{"VERSION", "CHECKSUM", "AUTHOR", "NOTE", "CREATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				rows[i] = []string{v.Version, shortChecksum(v.Checksum), v.Author, v.ChangeNote, v.CreatedAt}
			}

			outputFn().Print(headers, rows, versions)
			return nil
		},
	}
}

func newPromptRollbackCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback REF VERSION",
		Short: "Create a new version with the content of VERSION",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			p, err := clientFn().Rollback(args[0], args[1])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rolled back %s to %s, new version %s", p.Name, args[1], p.Version))
			out.Print(promptHeaders, [][]string{promptRow(*p)}, p)
			return nil
		},
	}
}

func newPromptDiffCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "diff REF FROM [TO]",
		Short: "Show unified diff between versions (TO defaults to current)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := ""
			if len(args) == 3 {
				to = args[2]
			}

			d, err := clientFn().Diff(args[0], args[1], to)
			if err != nil {
				return err
			}

			out := outputFn()
			if d.Diff == "" && !out.IsJSON() {
				out.Success(fmt.Sprintf("No differences between %s and %s", d.From, d.To))
				return nil
			}
			out.Text(d.Diff, d)
			return nil
		},
	}
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
