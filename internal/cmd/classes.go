package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annolab/emlkit/internal/store"
)

func newCmdClasses(f *Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "classes <command>",
		Short:   "Manage the annotation class registry",
		GroupID: "annotation",
	}

	cmd.AddCommand(newCmdClassesList(f))
	cmd.AddCommand(newCmdClassesAdd(f))
	cmd.AddCommand(newCmdClassesRemove(f))

	return cmd
}

func newCmdClassesList(f *Factory) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List annotation classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := f.Store()
			if err != nil {
				return err
			}
			classes, err := st.ListAnnotationClasses(all)
			if err != nil {
				return err
			}
			if len(classes) == 0 {
				fmt.Fprintln(f.Out, "No annotation classes defined.")
				return nil
			}
			for _, c := range classes {
				suffix := ""
				if c.Deleted {
					suffix = " (deleted)"
				}
				fmt.Fprintf(f.Out, "%-24s %-24s %s%s\n", c.Name, c.DisplayLabel, c.Color, suffix)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include soft-deleted classes")

	return cmd
}

func newCmdClassesAdd(f *Factory) *cobra.Command {
	var label, color, description string

	cmd := &cobra.Command{
		Use:     "add <name>",
		Short:   "Add an annotation class",
		Example: `  emlkit classes add PERSON_NAME --label "Person Name" --color "#ffcc00"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := f.Store()
			if err != nil {
				return err
			}
			c := &store.AnnotationClass{
				Name:         args[0],
				DisplayLabel: label,
				Color:        color,
				Description:  description,
			}
			if err := st.CreateAnnotationClass(c); err != nil {
				return err
			}
			fmt.Fprintf(f.Out, "Added class %s\n", c.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Display label (default the class name)")
	cmd.Flags().StringVar(&color, "color", "", "Highlight color, e.g. #ffcc00")
	cmd.Flags().StringVar(&description, "description", "", "Class description")

	return cmd
}

func newCmdClassesRemove(f *Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Soft-delete an annotation class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := f.Store()
			if err != nil {
				return err
			}
			if err := st.DeleteAnnotationClass(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(f.Out, "Removed class %s\n", args[0])
			return nil
		},
	}
}
