package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the exposition cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached expositions",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		rows, err := s.ExpositionRepo().List(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(w, "Exposition cache is empty.")
			return nil
		}

		fmt.Fprintf(w, "%-8s  %-19s  %-28s  %s\n", "Subtopic", "Generated", "Model", "Chars")
		fmt.Fprintln(w, strings.Repeat("─", 68))
		for _, e := range rows {
			fmt.Fprintf(w, "%-8d  %-19s  %-28s  %d\n",
				e.SubtopicID,
				e.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(e.ModelIdentifier, 28),
				len(e.Content),
			)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached exposition",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.ExpositionRepo().DeleteAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cached expositions.\n", n)
		return nil
	},
}

var cacheRmCmd = &cobra.Command{
	Use:   "rm <subtopic-id>",
	Short: "Delete the cached exposition for one subtopic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid subtopic ID %q: %w", args[0], err)
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		found, err := s.ExpositionRepo().Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no cached exposition for subtopic %d", id)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted cached exposition for subtopic %d.\n", id)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheRmCmd)
}
