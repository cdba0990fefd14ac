package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"listingscraper/pkg/config"
	"listingscraper/pkg/logger"
	"listingscraper/pkg/scraper"
	"listingscraper/pkg/ui"
)

var (
	// Scrape command flags
	sourceURL      string
	listingName    string
	outputDir      string
	skipImages     bool
	delaySeconds   int
	siteName       string
	randomDelay    bool
	minDelay       int
	maxDelay       int
	metadataFormat string
	timeoutSeconds int
	userAgent      string
	relocateSource bool
	metricsFile    string
	notify         bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one listing page",
	Long: `Scrape one listing page into <output>/<name>.

--url takes either an http(s) URL or the path of an HTML file saved from a
browser. The site is worked out from the source unless --site is given; use
--site generic for pages that are neither Compass nor Zillow.

--relocate-source moves a local HTML file into the output directory instead
of copying it. The original file is gone afterwards.`,
	Example: `  # Scrape a Zillow listing
  listingscraper scrape --url https://www.zillow.com/homedetails/123 --name maple-st

  # Same thing, scrape is the default command
  listingscraper --url https://www.zillow.com/homedetails/123 --name maple-st

  # Use a page saved from the browser, keep only the details
  listingscraper scrape --url ./compass-listing.html --name elm-ave --skip-images

  # Randomize the pause between photos and write JSON details
  listingscraper scrape --url ./listing.html --name oak --random-delay --format json`,
	Args: cobra.NoArgs,
	RunE: runScrape,
}

func init() {
	addScrapeFlags(scrapeCmd.Flags())
	_ = scrapeCmd.MarkFlagRequired("url")
	_ = scrapeCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(scrapeCmd)

	// scrape is also the default command
	addScrapeFlags(rootCmd.Flags())
}

func addScrapeFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&sourceURL, "url", "u", "", "listing URL or path to a saved HTML file (required)")
	fs.StringVarP(&listingName, "name", "n", "", "name of the output directory and image prefix (required)")
	fs.StringVarP(&outputDir, "output", "o", "scraped_data", "base output directory")
	fs.BoolVar(&skipImages, "skip-images", false, "save the page and details but no photos")
	fs.IntVar(&delaySeconds, "delay", 2, "seconds to wait between photo downloads")
	fs.StringVar(&siteName, "site", "auto", "site patterns to use (auto, generic, compass, zillow)")
	fs.BoolVar(&randomDelay, "random-delay", false, "wait a random time between --min-delay and --max-delay")
	fs.IntVar(&minDelay, "min-delay", 2, "lower bound in seconds for --random-delay")
	fs.IntVar(&maxDelay, "max-delay", 7, "upper bound in seconds for --random-delay")
	fs.StringVar(&metadataFormat, "format", "text", "details file format (text, json, yaml)")
	fs.IntVar(&timeoutSeconds, "timeout", 30, "per request timeout in seconds")
	fs.StringVar(&userAgent, "user-agent", "", "User-Agent header sent with every request")
	fs.BoolVar(&relocateSource, "relocate-source", false, "move a local source file into the output directory")
	fs.StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this file")
	fs.BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

// scrapeFlagMap collects the flags the user actually set, so config file and
// environment values are only overridden on purpose.
func scrapeFlagMap(fs *pflag.FlagSet) map[string]interface{} {
	flags := make(map[string]interface{})

	for _, name := range []string{"output", "site", "format", "user-agent", "log-level", "log-file", "metrics-file"} {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"delay", "min-delay", "max-delay", "timeout"} {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			flags[name] = v
		}
	}
	for _, name := range []string{"skip-images", "random-delay", "relocate-source"} {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			flags[name] = v
		}
	}

	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	source := strings.TrimSpace(sourceURL)
	name := strings.TrimSpace(listingName)
	if source == "" || name == "" {
		return errors.New("both --url and --name are required")
	}

	flags := scrapeFlagMap(cmd.Flags())
	if quiet && !cmd.Flags().Changed("log-level") {
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.WithField("version", version)
	log.Debug("listingscraper starting")

	printer := ui.NewPrinter(os.Stdout, quiet)

	s, err := scraper.New(cfg, scraper.WithPrinter(printer), scraper.WithLogger(log))
	if err != nil {
		return err
	}

	summary, err := s.Run(cmd.Context(), source, name)
	if notify {
		sendNotification(log, name, summary, err)
	}
	if err != nil {
		fields := map[string]interface{}{"source": source, "name": name}
		if summary != nil {
			fields["dir"] = summary.Dir
		}
		log.WithError(err).WithFields(fields).Error("Scrape failed")
		return err
	}

	return nil
}

func sendNotification(log logger.Logger, name string, summary *scraper.Summary, runErr error) {
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ui.NewNotifier().NotifyResult(ctx, name, notificationDetail(summary), runErr); err != nil {
		log.WithError(err).Warn("Failed to send desktop notification")
	}
}

func notificationDetail(summary *scraper.Summary) string {
	switch {
	case summary == nil:
		return ""
	case summary.ImagesSkipped:
		return "page and details saved to " + summary.Dir
	default:
		return summary.Download.String()
	}
}
