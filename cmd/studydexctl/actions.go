package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"studydex/internal/engine"
	"studydex/internal/model"
	"studydex/pkg/studydex"
)

func initCmd(g *globals) *cobra.Command {
	var writeConfig string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the state store and a first-launch state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := openClient(cmd, g)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			s, err := client.Init(cmd.Context())
			if err != nil {
				return err
			}
			if writeConfig != "" {
				if err := cfg.WriteYAML(writeConfig); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized store=%s path=%s coins=%s owned=%d\n",
				cfg.StoreKind(), cfg.StorePath(), s.Ledger.Coins.String(), len(s.Collection.Owned))
			return nil
		},
	}
	cmd.Flags().StringVar(&writeConfig, "write-config", "", "also write the resolved config to this YAML file")
	return cmd
}

func logCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "log <hours>",
		Short: "Log study hours; each hour earns one coin",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(g, func(cmd *cobra.Command, args []string, client *studydex.Client) error {
			hours, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], engine.ErrInvalidHours)
			}
			s, err := client.LogStudy(cmd.Context(), hours)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"coins":             s.Ledger.Coins.String(),
					"total_study_hours": s.Ledger.TotalStudyHours.String(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged hours=%s coins=%s total_study_hours=%s\n",
				strconv.FormatFloat(hours, 'f', -1, 64), s.Ledger.Coins.String(), s.Ledger.TotalStudyHours.String())
			return nil
		}),
	}
}

func catchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "catch",
		Short: "Spend 3 coins to catch a random species",
		Args:  cobra.NoArgs,
		RunE: withClient(g, func(cmd *cobra.Command, _ []string, client *studydex.Client) error {
			res, err := client.Catch(cmd.Context())
			if err != nil {
				return err
			}
			if g.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"instance_id":   res.Instance.InstanceID,
					"species_id":    res.Species.ID,
					"name":          res.Species.Name,
					"new_discovery": res.NewDiscovery,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "caught instance=%s species=%d name=%q new=%t\n",
				res.Instance.InstanceID, res.Species.ID, res.Species.Name, res.NewDiscovery)
			return nil
		}),
	}
}

func evolveCmd(g *globals) *cobra.Command {
	var choose string
	cmd := &cobra.Command{
		Use:   "evolve <instance>",
		Short: "Spend 2 coins to evolve an instance",
		Long: `Evolve moves an instance to its next form. Species with several possible
forms list them instead; run again with --choose <id|name> to commit one.`,
		Args: cobra.ExactArgs(1),
		RunE: withClient(g, func(cmd *cobra.Command, args []string, client *studydex.Client) error {
			var (
				res engine.EvolveResult
				err error
			)
			if choose != "" {
				target, ok := client.Catalog().Lookup(choose)
				if !ok {
					return fmt.Errorf("%q: %w", choose, engine.ErrInvalidTarget)
				}
				res, err = client.ConfirmEvolution(cmd.Context(), args[0], target.ID)
			} else {
				res, err = client.Evolve(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Pending {
				if g.jsonOut {
					return printJSON(out, map[string]any{"pending": true, "options": speciesSummaries(res.Options)})
				}
				fmt.Fprintf(out, "%s can evolve into %d forms; choose one with --choose:\n", res.From.Name, len(res.Options))
				for _, o := range res.Options {
					fmt.Fprintf(out, "  species=%d name=%q types=%s\n", o.ID, o.Name, strings.Join(o.Types, "/"))
				}
				return nil
			}
			if g.jsonOut {
				return printJSON(out, map[string]any{
					"instance_id": res.InstanceID,
					"from":        res.From.ID,
					"to":          res.To.ID,
					"coins":       res.State.Ledger.Coins.String(),
				})
			}
			fmt.Fprintf(out, "evolved instance=%s from=%q to=%q coins=%s\n",
				res.InstanceID, res.From.Name, res.To.Name, res.State.Ledger.Coins.String())
			return nil
		}),
	}
	cmd.Flags().StringVar(&choose, "choose", "", "evolution target (species id or name) for branching species")
	return cmd
}

func tradeCmd(g *globals) *cobra.Command {
	var (
		dryRun bool
		yes    bool
	)
	cmd := &cobra.Command{
		Use:   "trade <instance>",
		Short: "Trade an instance away for 1 coin (once per half-day)",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(g, func(cmd *cobra.Command, args []string, client *studydex.Client) error {
			out := cmd.OutOrStdout()
			inst, err := client.CheckTrade(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			name := speciesName(client, inst.SpeciesID)
			if dryRun {
				fmt.Fprintf(out, "trade available instance=%s name=%q\n", inst.InstanceID, name)
				return nil
			}
			if !yes {
				fmt.Fprintf(out, "Trade %s for 1 coin? This cannot be undone. [y/N] ", name)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Fprintln(out, "trade cancelled")
					return nil
				}
			}

			res, err := client.Trade(cmd.Context(), inst.InstanceID)
			if err != nil {
				return err
			}
			if g.jsonOut {
				return printJSON(out, map[string]any{
					"instance_id": res.Instance.InstanceID,
					"species_id":  res.Instance.SpeciesID,
					"bucket":      res.Bucket.String(),
				})
			}
			fmt.Fprintf(out, "traded instance=%s name=%q bucket=%s\n", res.Instance.InstanceID, name, res.Bucket)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only check whether the trade would be accepted")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func favoriteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <instance>",
		Short: "Toggle the favorite flag of an instance",
		Args:  cobra.ExactArgs(1),
		RunE: withClient(g, func(cmd *cobra.Command, args []string, client *studydex.Client) error {
			inst, err := client.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "instance=%s favorite=%t\n", inst.InstanceID, inst.IsFavorite)
			return nil
		}),
	}
}

func nicknameCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "nickname <instance> [name]",
		Short: "Set or clear the nickname of an instance",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withClient(g, func(cmd *cobra.Command, args []string, client *studydex.Client) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			inst, err := client.SetNickname(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "instance=%s nickname=%q\n", inst.InstanceID, inst.Nickname)
			return nil
		}),
	}
}

type speciesSummary struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

func speciesSummaries(list []model.Species) []speciesSummary {
	out := make([]speciesSummary, 0, len(list))
	for _, s := range list {
		out = append(out, speciesSummary{ID: s.ID, Name: s.Name, Types: s.Types})
	}
	return out
}

func speciesName(client *studydex.Client, id int) string {
	if s, ok := client.Catalog().Get(id); ok {
		return s.Name
	}
	return fmt.Sprintf("#%d", id)
}
