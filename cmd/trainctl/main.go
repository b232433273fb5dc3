// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config mirrors the optional trainctl.yaml file. Flags override it.
type Config struct {
	Trees        int    `yaml:"trees"`
	MaxDepth     int    `yaml:"max_depth"`
	Seed         int64  `yaml:"seed"`
	ModelVersion string `yaml:"model_version"`
	OutputDir    string `yaml:"output_dir"`
}

var config = Config{
	Trees:        100,
	MaxDepth:     3,
	Seed:         42,
	ModelVersion: "1.0.0",
	OutputDir:    ".",
}

var (
	flagTrees    int
	flagMaxDepth int
	flagSeed     int64
	flagVersion  string
	flagOutDir   string

	rootCmd = &cobra.Command{
		Use:   "trainctl",
		Short: "Train and publish integrity-verified classifier artifacts",
		Long: `Trainctl trains a random forest on the bundled iris dataset and
writes the model artifact alongside metadata carrying its content digest,
ready for the predictor service to verify and serve.`,
	}

	trainCmd = &cobra.Command{
		Use:   "train",
		Short: "Train the iris classifier and write the artifact bundle",
		Run:   runTrainCommand,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		configPath := "trainctl.yaml"
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Fatalf("Error reading trainctl.yaml: %v", err)
			}
			return
		}
		if err := yaml.Unmarshal(yamlFile, &config); err != nil {
			log.Fatalf("Error parsing trainctl.yaml: %v", err)
		}
		log.Println("Configuration loaded successfully.")
	}

	trainCmd.Flags().IntVar(&flagTrees, "trees", 0, "Number of trees in the forest (overrides config)")
	trainCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "Maximum tree depth (overrides config)")
	trainCmd.Flags().Int64Var(&flagSeed, "seed", 0, "Random seed for reproducible training (overrides config)")
	trainCmd.Flags().StringVar(&flagVersion, "model-version", "", "Version string recorded in the metadata")
	trainCmd.Flags().StringVar(&flagOutDir, "out-dir", "", "Directory to write the artifact bundle into")

	rootCmd.AddCommand(trainCmd)
}
