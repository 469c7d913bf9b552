package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/UnknownOlympus/geoplaces/internal/service"
	"github.com/UnknownOlympus/geoplaces/internal/source"
	"github.com/spf13/cobra"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Resolve the geotags of downloaded posts and print the place breakdown",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		posts, _ := cmd.Flags().GetString("posts")
		radius, _ := cmd.Flags().GetUint32("radius")
		asJSON, _ := cmd.Flags().GetBool("json")
		if radius == 0 {
			radius = cfg.Radius
		}

		coords, stats, err := source.Read(posts, radius, logger)
		if errors.Is(err, source.ErrNoGeotags) {
			logger.WarnContext(ctx, "Nothing to resolve", "posts", stats.Posts, "error", err)
			fmt.Fprintln(os.Stderr, "No pictures with location info.")
			return nil
		}
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Posts read",
			"posts", stats.Posts, "pictures", stats.Pictures, "geotagged", stats.Geotagged)

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		if err = a.purgeStaleCache(); err != nil {
			return err
		}

		provider, err := a.provider(promptChooser(os.Stdin, os.Stderr))
		if errors.Is(err, geocoding.ErrNoProviders) {
			fmt.Fprintln(os.Stderr, "No geocoder is configured, location features are disabled.")
			return nil
		}
		if err != nil {
			return err
		}

		repo, closeRepo, err := a.openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeRepo()

		svc := service.NewLocationService(logger, provider, repo, a.metrics)
		result, err := svc.Analyze(ctx, coords)
		if errors.Is(err, service.ErrNoPlaces) {
			fmt.Fprintln(os.Stderr, "No places found.")
			return nil
		}
		if err != nil {
			return err
		}

		if asJSON {
			return writeJSON(os.Stdout, result)
		}
		writeTiers(os.Stdout, result)

		return nil
	},
}

func init() {
	placesCmd.Flags().String("posts", ".", "Post JSON file or profile directory")
	placesCmd.Flags().Uint32("radius", 0, "Search radius in meters (default from configuration)")
	placesCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	return nil
}

// writeTiers prints every tier as a table of label, count and percentage.
func writeTiers(w io.Writer, result *service.Result) {
	fmt.Fprintf(w, "Places: %d (from %d coordinates, provider %s)\n",
		len(result.Places), result.Coordinates, result.Provider)

	for _, tier := range result.Tiers {
		fmt.Fprintf(w, "\n%s\n", tier.Name)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, group := range tier.Groups {
			fmt.Fprintf(tw, "  %s\t%d\t%.1f %%\n", group.Label, group.Count, group.Percentage)
		}
		if tier.Unknown > 0 {
			fmt.Fprintf(tw, "  (unknown)\t%d\t\n", tier.Unknown)
		}
		tw.Flush()
	}
}
