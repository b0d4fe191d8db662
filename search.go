package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yowlens/lens/detect"
	"github.com/yowlens/lens/models"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <image>",
	Short: "Find catalog matches for every garment in a photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "matches to show per garment")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	img, err := detect.DecodeImage(f, cfg.Detector.MaxDimension)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := cfg.Ranking.LensOptions()
	if searchLimit > 0 {
		opts.Ranking.FinalLimit = searchLimit
	}
	groups, err := a.lens.SearchImage(ctx, img, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Analyzing: %s\nDetected %d items\n", args[0], len(groups))
	printGroups(cmd.OutOrStdout(), groups)
	return nil
}

func orDash(s string) string {
	if models.IsNoSignal(s) {
		return "-"
	}
	return s
}

// matchMarker flags strong and decent matches.
func matchMarker(score float64) string {
	switch {
	case score > 0.60:
		return "**"
	case score > 0.50:
		return "* "
	default:
		return "  "
	}
}

func printGroups(w io.Writer, groups []models.ResultGroup) {
	rule := strings.Repeat("=", 70)
	for _, g := range groups {
		item := g.DetectedItem
		fmt.Fprintf(w, "\n%s\n%s: %s\n", rule, strings.ToUpper(orDash(item.Category)), orDash(item.Label))
		fmt.Fprintf(w, "   Color: %s\n", orDash(item.Color))
		fmt.Fprintf(w, "   Pattern: %s | Texture: %s\n", orDash(item.Pattern), orDash(item.Texture))
		if len(item.DistinctiveFeatures) > 0 {
			fmt.Fprintf(w, "   Features: %s\n", strings.Join(item.DistinctiveFeatures, ", "))
		}
		if len(item.StyleKeywords) > 0 {
			fmt.Fprintf(w, "   Style: %s\n", strings.Join(item.StyleKeywords, ", "))
		}
		fmt.Fprintf(w, "   Query: %q\n", g.TextQuery)
		fmt.Fprintf(w, "   Filter: %s", g.FilterUsed)
		if g.FilteredOut > 0 {
			fmt.Fprintf(w, " (%d removed)", g.FilteredOut)
		}
		fmt.Fprintln(w)

		if len(g.Products) == 0 {
			fmt.Fprintf(w, "   No %s products\n", orDash(item.Category))
			continue
		}
		fmt.Fprintf(w, "\n   Top %d of %d matches:\n\n", len(g.Products), g.TotalMatches)
		for i, p := range g.Products {
			boost := ""
			if p.FeatureBoost > 0 {
				boost = fmt.Sprintf(" +%.2f", p.FeatureBoost)
				if n := min(2, len(p.MatchedFeatures)); n > 0 {
					boost += " [" + strings.Join(p.MatchedFeatures[:n], ", ") + "]"
				}
			}
			name := []rune(p.Name)
			if len(name) > 44 {
				name = append(name[:44], []rune("...")...)
			}
			fmt.Fprintf(w, "   %d. %s [%.3f] %s\n", i+1, matchMarker(p.SimilarityScore), p.SimilarityScore, string(name))
			fmt.Fprintf(w, "      V:%.2f T:%.2f C:%.2f%s\n", p.VisualScore, p.TextScore, p.ColorScore, boost)
			fmt.Fprintf(w, "      %s | %s | $%.2f\n\n", orDash(p.Brand), orDash(p.Color), p.Price)
		}
	}
}
