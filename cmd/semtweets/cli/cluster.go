package cli

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/semtweets/cli/cmd/semtweets/cli/config"
	"github.com/semtweets/cli/cmd/semtweets/cli/corpus"
	"github.com/semtweets/cli/cmd/semtweets/cli/db"
	"github.com/semtweets/cli/cmd/semtweets/cli/kmeans"
	"github.com/semtweets/cli/cmd/semtweets/cli/lsi"
	"github.com/semtweets/cli/cmd/semtweets/cli/metrics"
	"github.com/semtweets/cli/cmd/semtweets/cli/pipeline"
	"github.com/semtweets/cli/cmd/semtweets/cli/report"
	"github.com/semtweets/cli/cmd/semtweets/cli/vspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// clusterFlags are the cluster command's own flags.
type clusterFlags struct {
	corpusPath string
	latent     int
	clusters   int
	iterations int
	seed       int64
	workers    int
	sample     int
	output     string
	format     string
	keywords   int
	stopwords  string
	minLength  int
	duplicates bool
	strict     bool
	noStore    bool
}

func newClusterCmd() *cobra.Command {
	var f clusterFlags

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group tweets into topics",
		Long: `Cluster the stored tweets (or a corpus file) into topics.

Steps:
  1. Build the term-document matrix and weight it by tf-idf
  2. Reduce it to --latent dimensions with a truncated SVD
  3. Run cosine K-Means with --clusters centroids for at most --iterations
     passes, stopping early once memberships no longer change
  4. Write the report, largest topic first, and store the run

--latent must not exceed the number of tweets or distinct terms, and
--clusters must not exceed the number of tweets. The centroid seed is
printed so a run can be repeated with --seed.`,
		Example: `  # Cluster the store with the defaults (500 dims, 50 topics)
  semtweets cluster

  # Small corpus file, reproducible, JSON to stdout
  semtweets cluster --corpus tweets.json --latent 50 --clusters 8 --seed 7 --format json -o -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadSettings(cmd)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return NewSilentError(err)
			}
			return runCluster(cmd, cfg, f)
		},
	}

	cmd.Flags().StringVar(&f.corpusPath, "corpus", "", "Cluster this corpus file instead of the store")
	cmd.Flags().IntVar(&f.latent, "latent", config.DefaultLatentDims, "Latent semantic dimensions")
	cmd.Flags().IntVarP(&f.clusters, "clusters", "k", config.DefaultClusters, "Number of topics")
	cmd.Flags().IntVar(&f.iterations, "iterations", config.DefaultMaxIterations, "Maximum K-Means passes")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Centroid seed (default: time-based)")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "Goroutines for cluster assignment")
	cmd.Flags().IntVar(&f.sample, "sample", 0, "Cluster a random sample of this many tweets (0 = all)")
	cmd.Flags().StringVarP(&f.output, "output", "o", config.DefaultReportPath, "Report file, - for stdout")
	cmd.Flags().StringVar(&f.format, "format", config.DefaultReportFormat, "Report format: text or json")
	cmd.Flags().IntVar(&f.keywords, "keywords", config.DefaultKeywords, "Keywords per topic (0 = none)")
	cmd.Flags().StringVar(&f.stopwords, "stopwords", "", "Stop-word file, one word per line (default: built-in English list)")
	cmd.Flags().IntVar(&f.minLength, "min-length", vspace.DefaultMinLength, "Shortest token kept")
	cmd.Flags().BoolVar(&f.duplicates, "count-duplicates", false, "Count repeated terms within a tweet")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "Fail on tweets without terms instead of zero-filling them")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "Do not record the run in the store")
	return cmd
}

// mergeClusterFlags resolves each setting: explicit flag, then config.
func mergeClusterFlags(cmd *cobra.Command, cfg *config.Config, f *clusterFlags) {
	set := cmd.Flags().Changed
	pc := cfg.Pipeline
	if !set("latent") {
		f.latent = pc.LatentDims
	}
	if !set("clusters") {
		f.clusters = pc.Clusters
	}
	if !set("iterations") {
		f.iterations = pc.MaxIterations
	}
	if !set("workers") {
		f.workers = pc.Workers
	}
	if !set("sample") {
		f.sample = pc.SampleSize
	}
	if !set("keywords") {
		f.keywords = pc.Keywords
	}
	if !set("min-length") {
		f.minLength = pc.MinLength
	}
	if !set("stopwords") {
		f.stopwords = pc.Stopwords
	}
	if !set("output") {
		f.output = cfg.Report.Path
	}
	if !set("format") {
		f.format = cfg.Report.Format
	}
}

func runCluster(cmd *cobra.Command, cfg *config.Config, f clusterFlags) error {
	w := cmd.ErrOrStderr()
	mergeClusterFlags(cmd, cfg, &f)

	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	seeded := cmd.Flags().Changed("seed")
	if !seeded && cfg.Pipeline.Seed != nil {
		f.seed = *cfg.Pipeline.Seed
		seeded = true
	}
	if !seeded {
		f.seed = time.Now().UnixNano()
	}

	// The store is optional for a corpus file but records the run when present.
	var store *sql.DB
	if f.corpusPath == "" || EnsureInitDone(cfg.DataDir) == nil {
		store, err = openStore(cfg.DataDir)
		if err != nil {
			fmt.Fprintln(w, err)
			return NewSilentError(err)
		}
		defer store.Close()
	}

	records, source, err := loadRecords(store, f.corpusPath)
	if err != nil {
		return err
	}
	if f.sample > 0 && f.sample < len(records) {
		records = corpus.Sample(records, f.sample, f.seed)
		fmt.Fprintf(w, "sampled %d tweets\n", len(records))
	}

	tok, err := buildTokenizer(f)
	if err != nil {
		return err
	}
	opts := []pipeline.Option{
		pipeline.WithTokenizer(tok),
		pipeline.WithLogger(logger),
		pipeline.WithSeed(f.seed),
		pipeline.WithWorkers(f.workers),
		pipeline.WithKeywords(f.keywords),
	}
	if f.strict {
		opts = append(opts,
			pipeline.WithDegeneratePolicy(lsi.DegenerateReject),
			pipeline.WithZeroNormPolicy(kmeans.ZeroNormReject),
		)
	}
	params := pipeline.Params{LatentDims: f.latent, Clusters: f.clusters, MaxIterations: f.iterations}

	texts := corpus.Texts(records)
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	fmt.Fprintf(w, "clustering %d tweets (%d dims, %d topics)...\n", len(texts), f.latent, f.clusters)
	start := time.Now()
	res, err := pipeline.New(opts...).Run(texts, params)
	iterations := 0
	if res != nil {
		iterations = res.Iterations
	}
	metrics.ObservePipeline(time.Since(start).Seconds(), iterations, err)
	if err != nil {
		return err
	}

	convergence := "converged"
	if !res.Converged {
		convergence = "iteration limit reached"
	}
	fmt.Fprintf(w, "%d topics over %d terms after %d iterations (%s), seed %d\n",
		len(res.Topics), res.Terms, res.Iterations, convergence, res.Seed)
	if len(res.Degenerate) > 0 {
		fmt.Fprintf(w, "warning: %d tweets had no usable terms\n", len(res.Degenerate))
	}

	rc := report.Corpus{Texts: texts, IDs: ids}
	if f.output == "-" {
		if err := report.Write(cmd.OutOrStdout(), format, res, rc); err != nil {
			return err
		}
	} else {
		if err := report.WriteFile(f.output, format, res, rc); err != nil {
			return err
		}
		fmt.Fprintf(w, "report written to %s\n", f.output)
	}

	if store != nil && !f.noStore {
		var tweetIDs []string
		if source == storeSource {
			tweetIDs = ids
		}
		runID, err := db.SaveRun(store, res, params, tweetIDs, source)
		if err != nil {
			return fmt.Errorf("store run: %w", err)
		}
		logger.Debug("run stored", zap.String("run_id", runID))
		fmt.Fprintf(w, "run %s stored\n", runID)
	}
	return nil
}

const storeSource = "store"

// loadRecords returns the tweets to cluster and a label for where they came
// from.
func loadRecords(store *sql.DB, corpusPath string) ([]corpus.Record, string, error) {
	if corpusPath != "" {
		records, err := corpus.Load(corpusPath)
		if err != nil {
			return nil, "", err
		}
		return records, "file:" + corpusPath, nil
	}
	rows, err := db.QueryTweets(store, db.TweetPageOptions{})
	if err != nil {
		return nil, "", err
	}
	records := make([]corpus.Record, len(rows))
	for i, r := range rows {
		records[i] = corpus.Record{ID: r.ID, Text: r.Text, Author: r.Author, CreatedAt: r.CreatedAt}
	}
	return records, storeSource, nil
}

func buildTokenizer(f clusterFlags) (vspace.Tokenizer, error) {
	opts := []vspace.TokenizerOption{
		vspace.WithMinLength(f.minLength),
		vspace.WithDuplicates(f.duplicates),
	}
	if f.stopwords != "" {
		words, err := vspace.LoadStopwords(f.stopwords)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vspace.WithStopwords(words))
	}
	return vspace.NewTokenizer(opts...), nil
}
