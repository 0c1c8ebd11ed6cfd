package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rushteam/mindkit/config"
	"github.com/rushteam/mindkit/core"
	"github.com/rushteam/mindkit/corpus"
	"github.com/rushteam/mindkit/dataset"
	"github.com/rushteam/mindkit/loader"
	"github.com/rushteam/mindkit/pkg/dsl"
	"github.com/rushteam/mindkit/pkg/logger"
	"github.com/rushteam/mindkit/store"
)

var (
	inspectCorpus string
	inspectMode   string
	inspectEpochs int
	inspectJSON   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load a corpus snapshot and walk its samples",
	Long: `Load the config and corpus snapshot, build the sample view for the configured
mode and iterate it batch by batch, printing corpus statistics and field shapes.

Examples:
  mindkit inspect --corpus corpus.json                  # one training epoch
  mindkit inspect -c mind.yaml --epochs 3               # three epochs, resampling before each
  mindkit inspect -c mind.yaml --mode dev --json        # dev samples, JSON report`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectCorpus, "corpus", "", "Corpus snapshot file (overrides corpus_file)")
	inspectCmd.Flags().StringVar(&inspectMode, "mode", "", "train, dev or test (overrides mode)")
	inspectCmd.Flags().IntVar(&inspectEpochs, "epochs", 1, "Number of epochs to walk in train mode")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output the report as JSON")
}

type fieldShape struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
}

type epochReport struct {
	Epoch   int `json:"epoch"`
	Batches int `json:"batches"`
	Samples int `json:"samples"`
}

type inspectReport struct {
	Mode    string        `json:"mode"`
	Stats   corpus.Stats  `json:"stats"`
	Samples int           `json:"samples"`
	Fields  []fieldShape  `json:"fields"`
	Epochs  []epochReport `json:"epochs"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if inspectCorpus != "" {
		cfg.CorpusFile = inspectCorpus
	}
	if inspectMode != "" {
		cfg.Mode = inspectMode
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if inspectEpochs <= 0 {
		return core.NewInvalidConfigError(core.ModuleConfig, "inspect: --epochs must be > 0, got %d", inspectEpochs)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	c, err := corpus.LoadJSON(cfg.CorpusFile)
	if err != nil {
		return err
	}
	if err := cfg.CheckCorpus(c); err != nil {
		return err
	}
	log.Info("corpus loaded", "corpus", c.String(), "elapsed", time.Since(start))

	report := &inspectReport{Mode: cfg.Mode, Stats: corpus.ComputeStats(c)}
	if cfg.Mode == "train" {
		err = inspectTrain(ctx, cfg, c, log, report)
	} else {
		err = inspectEval(ctx, cfg, c, report)
	}
	if err != nil {
		return err
	}
	return printReport(cmd.OutOrStdout(), report)
}

func inspectTrain(ctx context.Context, cfg *config.Config, c *core.Corpus, log *logger.Logger, report *inspectReport) error {
	if cfg.TrainFilter != "" {
		filter, err := dsl.NewBehaviorFilter(cfg.TrainFilter)
		if err != nil {
			return err
		}
		before := len(c.TrainBehaviors)
		if c, err = corpus.FilterTrain(c, filter); err != nil {
			return err
		}
		log.Info("train behaviors filtered", "filter", filter.String(), "before", before, "after", len(c.TrainBehaviors))
	}

	seed := cfg.ResolveSeed()
	opts := []dataset.TrainViewOption{
		dataset.WithSeed(seed),
		dataset.WithWorkers(cfg.Workers),
		dataset.WithChunkSize(cfg.ChunkSize),
		dataset.WithLogger(log),
	}
	if cfg.Snapshot.Enabled {
		s, err := config.BuildStore(cfg.Snapshot.Store)
		if err != nil {
			return err
		}
		defer s.Close()
		opts = append(opts, dataset.WithSnapshotter(store.NewSnapshotStore(s, cfg.Snapshot.Prefix,
			store.WithTTL(cfg.Snapshot.TTL), store.WithCache(cfg.Snapshot.CacheSize))))
	}

	view, err := dataset.NewTrainView(c, cfg.NegativeSampleNum, opts...)
	if err != nil {
		return err
	}
	l, err := loader.New[*dataset.TrainExample](view,
		loader.WithBatchSize(cfg.BatchSize), loader.WithShuffle(true), loader.WithSeed(seed))
	if err != nil {
		return err
	}

	report.Samples = view.Len()
	report.Fields = shapesOf(view.Shapes())
	return loader.RunEpochs(ctx, view, l, inspectEpochs, func(epoch int, batch []*dataset.TrainExample) error {
		if _, err := dataset.Stack(batch); err != nil {
			return err
		}
		report.record(epoch, len(batch))
		return nil
	})
}

func inspectEval(ctx context.Context, cfg *config.Config, c *core.Corpus, report *inspectReport) error {
	mode, err := dataset.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	view, err := dataset.NewEvalView(c, mode)
	if err != nil {
		return err
	}
	l, err := loader.New[*dataset.EvalExample](view, loader.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return err
	}

	report.Samples = view.Len()
	report.Fields = shapesOf(view.Shapes())
	return l.Run(ctx, 1, func(batch []*dataset.EvalExample) error {
		if _, err := dataset.Stack(batch); err != nil {
			return err
		}
		report.record(1, len(batch))
		return nil
	})
}

func (r *inspectReport) record(epoch, samples int) {
	if n := len(r.Epochs); n == 0 || r.Epochs[n-1].Epoch != epoch {
		r.Epochs = append(r.Epochs, epochReport{Epoch: epoch})
	}
	last := &r.Epochs[len(r.Epochs)-1]
	last.Batches++
	last.Samples += samples
}

func shapesOf(fields []dataset.Field) []fieldShape {
	out := make([]fieldShape, len(fields))
	for i, f := range fields {
		out[i] = fieldShape{Name: f.Name, Shape: f.Shape}
	}
	return out
}

func printReport(w io.Writer, r *inspectReport) error {
	if inspectJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	s := r.Stats
	fmt.Fprintf(w, "user_num : %d\n", s.UserNum)
	fmt.Fprintf(w, "news_num : %d\n", s.NewsNum)
	fmt.Fprintf(w, "average title word num : %.4f\n", s.AvgTitleWordNum)
	fmt.Fprintf(w, "average abstract word num : %.4f\n", s.AvgAbstractWordNum)
	fmt.Fprintf(w, "%s samples : %d\n", r.Mode, r.Samples)
	for _, f := range r.Fields {
		fmt.Fprintf(w, "  %-32s %v\n", f.Name, f.Shape)
	}
	for _, e := range r.Epochs {
		fmt.Fprintf(w, "epoch %d : %d batches, %d samples\n", e.Epoch, e.Batches, e.Samples)
	}
	return nil
}
