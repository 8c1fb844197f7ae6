package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/maskrcnn-prep/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("maskprep %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}
	if len(os.Args) != 3 {
		printUsage()
		os.Exit(2)
	}

	logger, err := logging.New(os.Getenv("MASKPREP_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "maskprep: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debugw("starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)
	if err := run(os.Args[1], os.Args[2], os.Stdout, logger); err != nil {
		logger.Errorw("preparing sample failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("maskprep - prepare one Mask R-CNN training sample")
	fmt.Println()
	fmt.Println("Usage: maskprep <image> <annotation.json>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("The annotation file holds the class list and one polygon per instance:")
	fmt.Println(`  {"classes": ["car", "van"],`)
	fmt.Println(`   "instances": [{"class": "car", "polygon": [x1, y1, x2, y2, x3, y3]}]}`)
	fmt.Println()
	fmt.Println("Environment variables (a .env file in the working directory is read too):")
	fmt.Println("  MASKPREP_LOG_LEVEL=debug           Log level (debug, info, warn, error)")
	fmt.Println("  MASKPREP_IMAGE_MIN_DIM=800         Short side target")
	fmt.Println("  MASKPREP_IMAGE_MAX_DIM=1024        Long side limit and canvas size")
	fmt.Println("  MASKPREP_ANCHOR_IOU_LOW=0.5        Best IoU below which an anchor is negative")
	fmt.Println("  MASKPREP_MEAN_PIXEL=#7c7568        Mean pixel, hex or r,g,b")
	fmt.Println("  MASKPREP_SEED=0                    Sampling seed")
	fmt.Println()
	fmt.Println("A JSON summary of the sample is written to stdout.")
}
