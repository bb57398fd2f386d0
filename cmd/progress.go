package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show completion per topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		rows, err := s.ProgressRepo().TopicSummary(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(w, "No syllabus loaded.")
			return nil
		}

		fmt.Fprintf(w, "%-28s  %9s  %9s  %9s  %7s\n", "Topic", "Complete", "Attempted", "Correct", "%")
		fmt.Fprintln(w, strings.Repeat("─", 72))
		for _, p := range rows {
			fmt.Fprintf(w, "%-28s  %4d/%-4d  %9d  %9d  %6.1f%%\n",
				truncate(p.TopicName, 28), p.Completed, p.Subtopics, p.Attempted, p.Correct, p.CompletionPercent)
		}
		return nil
	},
}

var progressResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all subtopic progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to reset progress without --yes")
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.ProgressRepo().Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
		return nil
	},
}

func init() {
	progressResetCmd.Flags().Bool("yes", false, "Confirm the reset")
	progressCmd.AddCommand(progressResetCmd)
}
