package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/bloom/internal/syllabus"
)

var syllabusCmd = &cobra.Command{
	Use:   "syllabus",
	Short: "Validate and load syllabus documents",
}

var syllabusValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a syllabus file without touching the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := syllabus.LoadFile(args[0])
		if err != nil {
			return err
		}
		topics, subtopics := doc.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d topics, %d subtopics)\n", doc.Title, topics, subtopics)
		return nil
	},
}

var syllabusLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Validate a syllabus file and replace the stored syllabus",
	Long: `Validate a syllabus file and replace the stored syllabus.

Topics and subtopics are upserted by id. Subtopics missing from the file
are removed together with their sessions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := syllabus.LoadFile(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SyllabusRepo().Load(cmd.Context(), doc.StoreTopics()); err != nil {
			return err
		}
		topics, subtopics := doc.Counts()
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %q: %d topics, %d subtopics\n", doc.Title, topics, subtopics)
		return nil
	},
}

var syllabusShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored syllabus",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		topics, err := s.SyllabusRepo().Topics(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(topics) == 0 {
			fmt.Fprintln(w, "No syllabus loaded.")
			return nil
		}
		for _, t := range topics {
			fmt.Fprintf(w, "%4d  %s\n", t.ID, t.Name)
			for _, st := range t.Subtopics {
				fmt.Fprintf(w, "      %4d  %s\n", st.ID, st.Name)
			}
		}
		return nil
	},
}

func init() {
	syllabusCmd.AddCommand(syllabusValidateCmd)
	syllabusCmd.AddCommand(syllabusLoadCmd)
	syllabusCmd.AddCommand(syllabusShowCmd)
}
