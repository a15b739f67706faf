// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provisio/provisio/internal/fpdesc"
	"github.com/provisio/provisio/internal/issue"
	"github.com/provisio/provisio/internal/schema"
)

func newSchemaCommand(app *App, flags *rootFlags) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect config schema descriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var spot string
	describe := &cobra.Command{
		Use:   "describe <schema.cue>",
		Short: "Validate a schema description and print its spots and identity paths",
		Args:  cobra.ExactArgs(1),
		RunE: app.run(flags, func(_ context.Context, _ *session, args []string) error {
			s, err := fpdesc.LoadSchema(args[0])
			if err != nil {
				return issue.NewErrorContext().
					WithOperation("load schema").
					WithResource(args[0]).
					WithIssue(issue.DescriptorInvalidId).
					Wrap(err).
					BuildError()
			}
			if spot != "" {
				d, err := s.Description(spot)
				if err != nil {
					return err
				}
				printDescription(app, d, 0)
				return nil
			}
			for _, root := range s.Roots() {
				printTree(app, root, 0)
			}
			return nil
		}),
	}
	describe.Flags().StringVar(&spot, "spot", "", "print only the description at this spot")
	schemaCmd.AddCommand(describe)

	return schemaCmd
}

func printTree(app *App, d *schema.Description, depth int) {
	printDescription(app, d, depth)
	for _, child := range d.Children {
		printTree(app, child, depth+1)
	}
}

func printDescription(app *App, d *schema.Description, depth int) {
	fmt.Fprintf(app.stdout, "%s%s %s %s\n",
		strings.Repeat("  ", depth), KeyStyle.Render(d.Spot), d.Spec.Name, SubtitleStyle.Render(d.String()))
}
