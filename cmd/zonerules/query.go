package main

import (
	"fmt"
	"time"

	"github.com/aretw0/zonerules/internal/presentation/graph"
	"github.com/aretw0/zonerules/internal/presentation/tui"
	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/aretw0/zonerules/pkg/zone"
	"github.com/spf13/cobra"
)

var isTerminal = tui.IsTerminal

func newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <zone>",
		Short: "Parse a zone identifier and print its parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tz, err := zone.Parse(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", tz.ID())
			if off, fixed := tz.Offset(); fixed {
				fmt.Fprintf(out, "offset:  %s\n", off.ID())
				return nil
			}
			version := tz.Version()
			if tz.IsFloating() {
				version = "(latest)"
			}
			fmt.Fprintf(out, "group:   %s\n", tz.Group())
			fmt.Fprintf(out, "region:  %s\n", tz.Region())
			fmt.Fprintf(out, "version: %s\n", version)
			return nil
		},
	}
}

func newOffsetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offset <zone>",
		Short: "Print the offset in force in a zone at an instant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			atFlag, _ := cmd.Flags().GetString("at")
			at := time.Now()
			if atFlag != "" {
				parsed, err := time.Parse(time.RFC3339, atFlag)
				if err != nil {
					return fmt.Errorf("%w: --at must be RFC 3339, got %q", domain.ErrInvalidArgument, atFlag)
				}
				at = parsed
			}

			s, err := openService(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			off, err := s.service.Offset(cmd.Context(), args[0], at)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), off.ID())
			return nil
		},
	}
	cmd.Flags().String("at", "", "RFC 3339 instant (defaults to now)")
	return cmd
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <zone> <local date-time>",
		Short: "Classify a wall-clock time as normal, gap or overlap",
		Example: `  zonerules resolve Europe/Paris 2019-03-31T02:30
  zonerules resolve America/New_York#2024a 2024-11-03T01:30`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			local, err := domain.ParseLocalDateTime(args[1])
			if err != nil {
				return err
			}

			s, err := openService(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			info, err := s.service.Resolve(cmd.Context(), args[0], local)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s", local, tui.KindLabel(info.Kind(), styled(out)))
			for _, off := range info.ValidOffsets() {
				fmt.Fprintf(out, " %s", off.ID())
			}
			fmt.Fprintln(out)
			if t, ok := info.Transition(); ok {
				fmt.Fprintf(out, "  %s\n", t)
			}
			return nil
		},
	}
}

func newTransitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitions <zone>",
		Short: "List the transitions of a zone in a range of years",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().Year()
			from, _ := cmd.Flags().GetInt("from")
			to, _ := cmd.Flags().GetInt("to")
			format, _ := cmd.Flags().GetString("format")
			if from == 0 {
				from = year
			}
			if to == 0 {
				to = from
			}

			s, err := openService(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			start := time.Date(from, time.January, 1, 0, 0, 0, 0, time.UTC)
			end := time.Date(to+1, time.January, 1, 0, 0, 0, 0, time.UTC)
			ts, err := s.service.Transitions(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "mermaid":
				fmt.Fprint(out, graph.GenerateMermaid(args[0], ts, &graph.Overlay{At: time.Now()}))
				return nil
			case "markdown":
			default:
				return fmt.Errorf("%w: unknown format %q", domain.ErrInvalidArgument, format)
			}
			rendered, err := tui.NewRenderer(styled(out))(tui.TransitionsMarkdown(args[0], ts))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		},
	}
	cmd.Flags().Int("from", 0, "First year (defaults to the current year)")
	cmd.Flags().Int("to", 0, "Last year, inclusive (defaults to --from)")
	cmd.Flags().String("format", "markdown", "Output format: markdown or mermaid")
	return cmd
}
