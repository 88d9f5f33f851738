package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("cv-ninja %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	case "--help", "-h", "help":
		usage()
	case "predict":
		os.Exit(runPredict(os.Args[2:]))
	case "convert":
		os.Exit(runConvert(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("cv-ninja - computer vision annotation toolkit")
	fmt.Println()
	fmt.Println("Usage: cv-ninja <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  predict image <path>             Predict on a single image")
	fmt.Println("  predict batch <dir>              Predict on every image in a directory")
	fmt.Println("  convert voc-to-labelstudio <in-dir> <out-file>")
	fmt.Println("                                   Convert Pascal VOC XML to Label Studio tasks")
	fmt.Println("  convert labelme-to-labelstudio <in-dir> <out-file>")
	fmt.Println("                                   Convert LabelMe JSON to Label Studio tasks")
	fmt.Println("  version                          Print version information")
	fmt.Println()
	fmt.Println("Credentials come from flags, a YAML endpoint profile, or a .env file")
	fmt.Println("(PREDICTION_API_URL, PREDICTION_API_KEY, PREDICTION_IAM_URL, ...).")
	fmt.Println("Run 'cv-ninja predict image -h' for the full flag list.")
}

// newLogger builds the CLI logger. Log output goes to stderr so piped
// command output stays clean.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than failing the run.
		return zap.NewNop()
	}
	return log
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return 1
}
