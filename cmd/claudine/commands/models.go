package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-vertex/internal/llm"
	"github.com/florianilch/claudine-vertex/internal/vertexclaude"
)

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "Lists the Claude models available on Vertex AI",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the model table as JSON",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(vertexclaude.Models())
			}
			return printModels(os.Stdout, vertexclaude.Models())
		},
	}
}

func printModels(w io.Writer, models []llm.Model) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREASONING\tINPUT\tCONTEXT\tMAX OUTPUT\t$/M IN\t$/M OUT")
	for _, m := range models {
		input := make([]string, len(m.Input))
		for i, modality := range m.Input {
			input[i] = string(modality)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%d\t%d\t%.2f\t%.2f\n",
			m.ID, m.Name, m.Reasoning, strings.Join(input, ","), m.ContextWindow, m.MaxTokens, m.Cost.Input, m.Cost.Output)
	}
	return tw.Flush()
}
