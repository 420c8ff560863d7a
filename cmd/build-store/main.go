// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
//                Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// build-store turns an annotated corpus into a finalized lexicon and
// its paired collocation store: flag parsing, fs.IsDir-based input
// discovery, a single run to completion with no resumption.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/czcorpus/cnc-gokit/fs"
	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/collexicon/aggregate"
	"github.com/czcorpus/collexicon/collstore"
	"github.com/czcorpus/collexicon/corpus"
	"github.com/czcorpus/collexicon/grammar"
	"github.com/czcorpus/collexicon/lexicon"
	"github.com/czcorpus/collexicon/merge"
	"github.com/czcorpus/collexicon/record"
	"github.com/rs/zerolog/log"
)

func exitWithFailure(kind record.Kind, context string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAILED: %s: %s: %s\n", kind, context, err)
	} else {
		fmt.Fprintf(os.Stderr, "FAILED: %s: %s\n", kind, context)
	}
	switch kind {
	case record.InvalidInput:
		os.Exit(2)
	case record.Precondition:
		os.Exit(3)
	case record.Corrupt:
		os.Exit(5)
	default:
		os.Exit(4)
	}
}

func inputFiles(path string) ([]string, error) {
	isDir, err := fs.IsDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect input path: %w", err)
	}
	if !isDir {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list input directory: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, filepath.Join(path, e.Name()))
		}
	}
	return out, nil
}

// forEachFile runs fn over files using up to threads goroutines,
// returning the first error encountered.
func forEachFile(files []string, threads int, fn func(path string) error) error {
	if threads < 1 {
		threads = 1
	}
	paths := make(chan string)
	errs := make(chan error, threads)
	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range paths {
				if err := fn(p); err != nil {
					select {
					case errs <- err:
					default:
					}
				}
			}
		}()
	}
	for _, p := range files {
		paths <- p
	}
	close(paths)
	wg.Wait()
	close(errs)
	return <-errs
}

func buildLexicon(files []string, threads int) (*lexicon.Builder, uint64, error) {
	b := lexicon.NewBuilder()
	var totalTokens, unknownUPoS uint64
	err := forEachFile(files, threads, func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return record.WrapError(record.Resource, "opening input file", err)
		}
		defer f.Close()
		stats, err := corpus.Read(f, func(s record.Sentence) error {
			for _, tok := range s.Tokens {
				id := b.AssignOrGet(tok.Lemma)
				b.Increment(id, tok.PoSTag(), tok.UPoS)
			}
			return nil
		})
		atomic.AddUint64(&totalTokens, uint64(stats.Tokens))
		atomic.AddUint64(&unknownUPoS, uint64(stats.UnknownUPoS))
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	if unknownUPoS > 0 {
		log.Warn().Uint64("count", unknownUPoS).Msg("tokens with a UPoS tag outside the fixed Universal POS set")
	}
	return b, totalTokens, nil
}

func runAggregation(files []string, threads, window int, agg *aggregate.Aggregator, lex *lexicon.Reader) error {
	return forEachFile(files, threads, func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return record.WrapError(record.Resource, "opening input file", err)
		}
		defer f.Close()

		batch := agg.NewBatch()
		sinceFlush := 0
		_, err = corpus.Read(f, func(s record.Sentence) error {
			ids := make([]uint32, len(s.Tokens))
			for i, tok := range s.Tokens {
				id, ok := lex.Resolve(tok.Lemma)
				if !ok {
					id = record.UnknownLemmaID
				}
				ids[i] = id
			}
			agg.Process(batch, ids, window)
			sinceFlush++
			if sinceFlush >= 2000 {
				agg.MergeBatch(batch)
				if err := agg.MaybeSpill(); err != nil {
					return err
				}
				sinceFlush = 0
			}
			return nil
		})
		if err != nil {
			return err
		}
		agg.MergeBatch(batch)
		return agg.MaybeSpill()
	})
}

func mergeShards(agg *aggregate.Aggregator, lex *lexicon.Reader, mergeOpts merge.Options, w *collstore.Writer) error {
	for shard := 0; shard < agg.NumShards(); shard++ {
		paths, err := agg.ShardRunFiles(shard)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			continue
		}
		if err := merge.MergeShard(paths, lex, mergeOpts, w.Write); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "build-store - build a lexicon and its paired collocation store from an annotated corpus\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [options]\n\nOptions:\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	indexPath := flag.String("index", "", "path to the annotated corpus file or directory")
	lexiconPath := flag.String("lexicon", "", "path to write the finalized lexicon file")
	outputPath := flag.String("output", "", "path to write the finalized collocation store")
	window := flag.Int("window", 5, "symmetric collocation window, in tokens")
	topK := flag.Int("top-k", 100, "max collocates retained per head")
	minHeadFreq := flag.Uint64("min-head-freq", 5, "minimum head lemma frequency to keep an entry")
	minCooc := flag.Uint64("min-cooc", 3, "minimum cooccurrence count to keep a collocate")
	threads := flag.Int("threads", 4, "number of concurrent reader goroutines")
	numShards := flag.Int("shards", 16, "number of pair-aggregator shards (rounded up to a power of two)")
	spillThreshold := flag.Int("spill-threshold", 2_000_000, "per-shard distinct key count that triggers a spill")
	watermark := flag.Int("watermark", 8_000_000, "global distinct key count that triggers spilling the largest shard")
	grammarConfig := flag.String("grammar", "", "path to the grammar configuration YAML (defaults built in if omitted)")
	logLevel := flag.String("log-level", "info", "set log level (debug, info, warn, error)")
	flag.Parse()

	logging.SetupLogging(logging.LoggingConf{Level: logging.LogLevel(*logLevel)})

	if *indexPath == "" || *lexiconPath == "" || *outputPath == "" {
		exitWithFailure(record.InvalidInput, "--index, --lexicon and --output are all required", nil)
	}

	var gcfg grammar.Config
	if *grammarConfig != "" {
		var err error
		gcfg, err = grammar.Load(*grammarConfig)
		if err != nil {
			var rerr *record.Error
			if errors.As(err, &rerr) {
				exitWithFailure(rerr.Kind, "loading grammar configuration", err)
			}
			exitWithFailure(record.Precondition, "loading grammar configuration", err)
		}
	} else {
		gcfg = grammar.Default()
	}

	files, err := inputFiles(*indexPath)
	if err != nil {
		exitWithFailure(record.Resource, "discovering input files", err)
	}
	if len(files) == 0 {
		exitWithFailure(record.InvalidInput, "no input files found at "+*indexPath, nil)
	}

	log.Info().Int("numFiles", len(files)).Msg("building lexicon")
	builder, totalTokens, err := buildLexicon(files, *threads)
	if err != nil {
		var rerr *record.Error
		if errors.As(err, &rerr) {
			exitWithFailure(rerr.Kind, "building lexicon", err)
		}
		exitWithFailure(record.Resource, "building lexicon", err)
	}

	fingerprint := collstore.NewBuildFingerprint(gcfg.Fingerprint())

	if err := builder.Finalize(*lexiconPath, fingerprint); err != nil {
		exitWithFailure(record.Resource, "finalizing lexicon", err)
	}
	log.Info().Int("numLemmas", builder.NumLemmas()).Str("path", *lexiconPath).Msg("lexicon finalized")

	lex, err := lexicon.Open(*lexiconPath)
	if err != nil {
		exitWithFailure(record.Resource, "reopening finalized lexicon", err)
	}
	defer lex.Close()

	runDir, err := os.MkdirTemp("", "build-store-runs-*")
	if err != nil {
		exitWithFailure(record.Resource, "creating run directory", err)
	}
	defer os.RemoveAll(runDir)

	agg, err := aggregate.New(aggregate.Options{
		NumShards:      *numShards,
		SpillThreshold: *spillThreshold,
		Watermark:      *watermark,
		RunDir:         runDir,
	})
	if err != nil {
		exitWithFailure(record.Resource, "creating pair aggregator", err)
	}

	log.Info().Int("numShards", agg.NumShards()).Msg("aggregating collocate pairs")
	if err := runAggregation(files, *threads, *window, agg, lex); err != nil {
		var rerr *record.Error
		if errors.As(err, &rerr) {
			exitWithFailure(rerr.Kind, "aggregating pairs", err)
		}
		exitWithFailure(record.Resource, "aggregating pairs", err)
	}
	if err := agg.Finish(); err != nil {
		exitWithFailure(record.Resource, "flushing pair aggregator", err)
	}

	w, err := collstore.Create(*outputPath, collstore.BuildParams{
		Window:             uint32(*window),
		TopK:               uint32(*topK),
		TotalCorpusTokens:  totalTokens,
		LexiconFingerprint: fingerprint,
	})
	if err != nil {
		exitWithFailure(record.Resource, "creating store writer", err)
	}

	mergeOpts := merge.Options{MinHeadFreq: *minHeadFreq, MinCoocc: *minCooc, TopK: *topK}
	log.Info().Msg("merging shards and writing store")
	if err := mergeShards(agg, lex, mergeOpts, w); err != nil {
		var rerr *record.Error
		if errors.As(err, &rerr) {
			exitWithFailure(rerr.Kind, "merging shards", err)
		}
		exitWithFailure(record.Resource, "merging shards", err)
	}

	if err := w.Close(); err != nil {
		exitWithFailure(record.Resource, "finalizing store", err)
	}

	log.Info().Str("path", *outputPath).Msg("collocation store built")
	fmt.Fprintf(os.Stderr, "OK: store written to %s\n", *outputPath)
}
