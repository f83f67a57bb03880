package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"studydex/internal/engine"
	"studydex/internal/report"
	"studydex/pkg/studydex"
)

func statusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show coins, daily progress, collection size and trade availability",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(cmd *cobra.Command, _ []string, client *studydex.Client) error {
			sum, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.jsonOut {
				return printJSON(out, sum)
			}
			fmt.Fprintf(out, "date=%s coins=%s study_hours=%s daily_target=%s progress=%.0f%%\n",
				sum.Date, sum.Coins.String(), sum.StudyHours.String(),
				strconv.FormatFloat(sum.DailyTarget, 'f', -1, 64), sum.DailyProgress*100)
			fmt.Fprintf(out, "collection owned=%d favorites=%d discovered=%d/%d can_catch=%t\n",
				sum.Owned, sum.Favorites, sum.Discovered, sum.CatalogSize, sum.CanCatch)
			fmt.Fprintf(out, "trades morning=%s afternoon=%s now=%s\n",
				openOrUsed(sum.MorningTradeOpen), openOrUsed(sum.EveningTradeOpen), sum.Bucket)
			return nil
		}),
	}
}

func inventoryCmd(g *globals) *cobra.Command {
	var csvOut bool
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List owned instances, favorites first",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(cmd *cobra.Command, _ []string, client *studydex.Client) error {
			rows, err := client.Inventory(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case csvOut:
				return report.WriteInventoryCSV(out, rows)
			case g.jsonOut:
				return printJSON(out, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "no instances owned")
				return nil
			}
			for _, r := range rows {
				fmt.Fprintf(out, "instance=%s species=%d name=%q nickname=%q stage=%d favorite=%t can_evolve=%t caught_at=%s\n",
					r.InstanceID, r.SpeciesID, r.Name, r.Nickname, r.Stage, r.Favorite, r.CanEvolve, r.CaughtAt)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&csvOut, "csv", false, "emit CSV")
	return cmd
}

func dexCmd(g *globals) *cobra.Command {
	var (
		csvOut bool
		search string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "dex",
		Short: "List every species grouped by family; undiscovered ones stay hidden",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(cmd *cobra.Command, _ []string, client *studydex.Client) error {
			rows, err := client.Dex(cmd.Context())
			if err != nil {
				return err
			}
			if search != "" {
				rows = filterDex(client, rows, search, limit)
			}
			out := cmd.OutOrStdout()
			switch {
			case csvOut:
				return report.WriteDexCSV(out, rows)
			case g.jsonOut:
				return printJSON(out, rows)
			}
			for _, r := range rows {
				fmt.Fprintf(out, "#%03d name=%q types=%s stage=%d family=%d owned=%d\n",
					r.SpeciesID, r.Name, r.Types, r.Stage, r.FamilyID, r.Owned)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&csvOut, "csv", false, "emit CSV")
	cmd.Flags().StringVar(&search, "search", "", "filter by species id or (typo-tolerant) name")
	cmd.Flags().IntVar(&limit, "limit", 10, "max search results")
	return cmd
}

// filterDex keeps search hits in match order. Name searches only ever hit
// discovered species so the dex does not leak hidden names.
func filterDex(client *studydex.Client, rows []report.DexRow, query string, limit int) []report.DexRow {
	byID := make(map[int]report.DexRow, len(rows))
	for _, r := range rows {
		byID[r.SpeciesID] = r
	}
	_, numErr := strconv.Atoi(strings.TrimLeft(strings.TrimSpace(query), "#"))
	numeric := numErr == nil

	var out []report.DexRow
	for _, m := range client.Catalog().Search(query, 0) {
		r, ok := byID[m.Species.ID]
		if !ok || (!numeric && !r.Discovered) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func settingsCmd(g *globals) *cobra.Command {
	var (
		dailyTarget float64
		themeColor  string
		scale       float64
		darkMode    bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(cmd *cobra.Command, _ []string, client *studydex.Client) error {
			var patch engine.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("daily-target") {
				patch.DailyTarget = &dailyTarget
			}
			if flags.Changed("theme-color") {
				patch.ThemeColor = &themeColor
			}
			if flags.Changed("scale") {
				patch.Scale = &scale
			}
			if flags.Changed("dark-mode") {
				patch.DarkMode = &darkMode
			}
			s, err := client.UpdateSettings(cmd.Context(), patch)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"daily_target": s.DailyTarget,
					"theme_color":  s.ThemeColor,
					"scale":        s.Scale,
					"dark_mode":    s.DarkMode,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "daily_target=%s theme_color=%s scale=%s dark_mode=%t\n",
				strconv.FormatFloat(s.DailyTarget, 'f', -1, 64), s.ThemeColor,
				strconv.FormatFloat(s.Scale, 'f', -1, 64), s.DarkMode)
			return nil
		}),
	}
	cmd.Flags().Float64Var(&dailyTarget, "daily-target", 0, "daily study goal in hours")
	cmd.Flags().StringVar(&themeColor, "theme-color", "", "accent color as #rrggbb")
	cmd.Flags().Float64Var(&scale, "scale", 0, "interface scale between 0.5 and 1.5")
	cmd.Flags().BoolVar(&darkMode, "dark-mode", false, "dark theme")
	return cmd
}

func exportCmd(g *globals) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of the whole state",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(cmd *cobra.Command, _ []string, client *studydex.Client) error {
			data, err := client.Export(cmd.Context())
			if err != nil {
				return err
			}
			if outPath == "-" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			path := outPath
			if path == "" {
				path = report.BackupFileName(client.Now())
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported path=%s bytes=%d\n", path, len(data))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "backup file path; - writes to stdout")
	return cmd
}

func importCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the whole state with a JSON backup (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(g, func(cmd *cobra.Command, args []string, client *studydex.Client) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			s, err := client.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported coins=%s owned=%d discovered=%d trades=%d\n",
				s.Ledger.Coins.String(), len(s.Collection.Owned), len(s.Collection.Discovered), len(s.Trades))
			return nil
		}),
	}
}

func openOrUsed(open bool) string {
	if open {
		return "open"
	}
	return "used"
}
