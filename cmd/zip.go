package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/VIDA-NYU/openclean-geo/internal/dataset"
	"github.com/VIDA-NYU/openclean-geo/pkg/zipcode"
)

var zipCmd = &cobra.Command{
	Use:   "zip",
	Short: "ZIP code gazetteer operations",
}

var zipLookupJSON bool

var zipLookupCmd = &cobra.Command{
	Use:   "lookup <zip>...",
	Short: "Look up ZIP code records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("zip"); err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		search := zipcode.NewSearch(store)
		var records []zipcode.Record
		var missing []string

		for _, arg := range args {
			rec, err := search.ByZip(ctx, arg)
			switch {
			case eris.Is(err, zipcode.ErrNotFound):
				missing = append(missing, arg)
			case err != nil:
				return err
			default:
				records = append(records, *rec)
			}
		}

		if zipLookupJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(records); err != nil {
				return eris.Wrap(err, "zip lookup: encode records")
			}
		} else {
			for i := range records {
				printRecord(&records[i])
			}
		}

		if len(missing) > 0 {
			return eris.Errorf("zip lookup: not found: %s", strings.Join(missing, ", "))
		}
		return nil
	},
}

var (
	zipLoadGazetteer string
	zipLoadPlaces    string
	zipLoadShapefile string
	zipLoadFetch     bool
	zipLoadYear      int
	zipLoadSource    string
)

var zipLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Build the gazetteer from Census source files",
	Long: `Merges the ZCTA Gazetteer file, an optional places crosswalk and the
ZCTA5 shapefile into the configured store. Sources can be local files or
fetched from the Census servers with --fetch.

Examples:
  # Load from local files
  openclean-geo zip load --gazetteer 2024_Gaz_zcta_national.txt \
    --places places.csv --shapefile tl_2024_us_zcta520.shp

  # Download the Census sources first
  openclean-geo zip load --fetch --places places.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("zip"); err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		opts := dataset.LoadOptions{
			GazetteerPath: zipLoadGazetteer,
			PlacesPath:    zipLoadPlaces,
			ShapefilePath: zipLoadShapefile,
			Source:        zipLoadSource,
			BatchSize:     cfg.Dataset.BatchSize,
		}

		if zipLoadFetch {
			year := zipLoadYear
			if year == 0 {
				year = cfg.Dataset.Year
			}
			zap.L().Info("fetching census sources",
				zap.Int("year", year),
				zap.Bool("ftp", cfg.Dataset.FTP),
			)
			gaz, shp, err := dataset.FetchSources(ctx, dataset.FetchOptions{
				Year:     year,
				CacheDir: cfg.Dataset.CacheDir,
				FTP:      cfg.Dataset.FTP,
			})
			if err != nil {
				return eris.Wrap(err, "zip load: fetch sources")
			}
			opts.GazetteerPath = gaz
			opts.ShapefilePath = shp
		}

		res, err := dataset.Load(ctx, store, opts)
		if err != nil {
			return eris.Wrap(err, "zip load")
		}

		fmt.Printf("Loaded %d ZIP codes (%d rows upserted, %d boundaries) in %s\n",
			res.Zips, res.Records, res.Boundaries, res.Duration.Round(time.Millisecond))
		return nil
	},
}

var zipStatusJSON bool

var zipStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gazetteer record counts and recent loads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("zip"); err != nil {
			return err
		}
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if err := store.Migrate(ctx); err != nil {
			return err
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "zip status: stats")
		}
		loads, err := store.Loads(ctx)
		if err != nil {
			return eris.Wrap(err, "zip status: loads")
		}

		if zipStatusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(map[string]any{
				"stats": stats,
				"loads": loads,
			}), "zip status: encode")
		}

		fmt.Printf("Records:         %d\n", stats.Records)
		fmt.Printf("With boundary:   %d\n", stats.WithBoundary)
		fmt.Printf("States:          %d\n", stats.States)

		if len(loads) == 0 {
			fmt.Println("\nNo loads recorded yet")
			return nil
		}

		fmt.Printf("\n%-10s %-12s %10s %-20s %s\n", "ID", "Source", "Records", "Started", "Duration")
		fmt.Println(strings.Repeat("-", 70))
		for _, l := range loads {
			id := l.ID
			if len(id) > 8 {
				id = id[:8]
			}
			fmt.Printf("%-10s %-12s %10d %-20s %s\n",
				id, l.Source, l.Records,
				l.StartedAt.Format("2006-01-02 15:04"),
				l.FinishedAt.Sub(l.StartedAt).Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	zipLookupCmd.Flags().BoolVar(&zipLookupJSON, "json", false, "print records as JSON")

	zipLoadCmd.Flags().StringVar(&zipLoadGazetteer, "gazetteer", "", "ZCTA Gazetteer file (tab-delimited)")
	zipLoadCmd.Flags().StringVar(&zipLoadPlaces, "places", "", "places crosswalk file (.csv or .xlsx)")
	zipLoadCmd.Flags().StringVar(&zipLoadShapefile, "shapefile", "", "ZCTA5 shapefile (.shp)")
	zipLoadCmd.Flags().BoolVar(&zipLoadFetch, "fetch", false, "download Gazetteer and shapefile from the Census servers")
	zipLoadCmd.Flags().IntVar(&zipLoadYear, "year", 0, "Census vintage (default from config)")
	zipLoadCmd.Flags().StringVar(&zipLoadSource, "source", "", "audit label for this load (default: files)")

	zipStatusCmd.Flags().BoolVar(&zipStatusJSON, "json", false, "print status as JSON")

	zipCmd.AddCommand(zipLookupCmd)
	zipCmd.AddCommand(zipLoadCmd)
	zipCmd.AddCommand(zipStatusCmd)
	rootCmd.AddCommand(zipCmd)
}

// printRecord writes one record in the text lookup format.
func printRecord(r *zipcode.Record) {
	fmt.Printf("%s  %s, %s", r.Zip, r.City, r.State)
	if r.Type != "" {
		fmt.Printf("  (%s)", r.Type)
	}
	fmt.Println()

	if len(r.Aliases) > 0 {
		fmt.Printf("  aliases:     %s\n", strings.Join(r.Aliases, ", "))
	}
	if r.County != "" {
		fmt.Printf("  county:      %s\n", r.County)
	}
	fmt.Printf("  coordinates: %.4f, %.4f\n", r.Latitude, r.Longitude)
	if r.Timezone != "" {
		fmt.Printf("  timezone:    %s\n", r.Timezone)
	}
	if len(r.AreaCodes) > 0 {
		fmt.Printf("  area codes:  %s\n", strings.Join(r.AreaCodes, ", "))
	}
	if r.Population > 0 {
		fmt.Printf("  population:  %d (%.0f per sqmi)\n", r.Population, r.Density)
	}
	if r.LandSqMi > 0 || r.WaterSqMi > 0 {
		fmt.Printf("  area:        %.2f sqmi land, %.2f sqmi water\n", r.LandSqMi, r.WaterSqMi)
	}
	if len(r.Boundary) > 0 {
		fmt.Printf("  boundary:    %d byte polygon\n", len(r.Boundary))
	}
}
