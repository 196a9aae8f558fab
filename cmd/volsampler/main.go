package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"volsampler/internal/logging"
	"volsampler/pkg/config"
	"volsampler/pkg/imageio"
	"volsampler/pkg/sample"
	"volsampler/pkg/visualization"
	"volsampler/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "volsampler.yaml", "YAML or TOML configuration file")
	initConfig := flag.Bool("init", false, "Write a default configuration file to -config and exit")
	split := flag.String("split", "train", "Sample ids to use: train, test or all")
	numSamples := flag.Int("n", 10, "Number of random samples to draw")
	seed := flag.Int64("seed", 0, "Override the configured random seed (0 keeps it)")
	dumpDir := flag.String("dump", "", "Directory to save slices of the drawn samples")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Logging.Verbose = true
	}
	cfg.Logging.SetLogger()
	defer logging.Shutdown()
	if *seed != 0 {
		cfg.Params.Seed = *seed
	}

	var ids []int
	switch *split {
	case "train":
		ids = cfg.Train
	case "test":
		ids = cfg.Test
	case "all":
		ids = cfg.SampleIDs()
	default:
		flag.Usage()
		os.Exit(1)
	}
	if len(ids) == 0 {
		log.Fatalf("No sample ids configured for split %q", *split)
	}

	startTime := time.Now()
	samples, err := sample.Build(cfg, ids, &cfg.Network, imageio.NewReader())
	if err != nil {
		log.Fatalf("Failed to build samples: %v", err)
	}
	logging.Infof("samples %v ready in %.2f seconds\n", ids, time.Since(startTime).Seconds())

	startTime = time.Now()
	for i := 0; i < *numSamples; i++ {
		s, err := samples.GetRandomSample()
		if err != nil {
			log.Fatalf("Failed to draw sample %d: %v", i, err)
		}
		report(i, s)

		if *dumpDir != "" {
			dir := filepath.Join(*dumpDir, fmt.Sprintf("sample_%03d", i))
			if err := visualization.DumpSample(s, dir); err != nil {
				logging.Warningf("failed to save sample %d: %v\n", i, err)
			}
		}
	}
	elapsed := time.Since(startTime)
	if *numSamples > 0 {
		fmt.Printf("\nDrew %d samples in %.3f seconds (%.2f ms/sample)\n",
			*numSamples, elapsed.Seconds(), 1000*elapsed.Seconds()/float64(*numSamples))
	}
}

// report prints the shape and value statistics of every array of a sample.
func report(i int, s *sample.Sample) {
	fmt.Printf("Sample %d: deviation %v, transform %v\n", i, s.Deviation, s.Transform)
	show := func(kind string, arrays map[string]*volume.Array4) {
		names := make([]string, 0, len(arrays))
		for name := range arrays {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			arr := arrays[name]
			if arr == nil {
				fmt.Printf("  %-7s %-12s none\n", kind, name)
				continue
			}
			data := make([]float64, len(arr.Data))
			for j, v := range arr.Data {
				data[j] = float64(v)
			}
			mean, std := stat.MeanStdDev(data, nil)
			fmt.Printf("  %-7s %-12s %v mean %.4f std %.4f\n", kind, name, arr.Dims(), mean, std)
		}
	}
	show("input", s.Inputs)
	show("output", s.Outputs)
	show("mask", s.Masks)
}
