package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ironsheep/tissue-mask-mcp/internal/config"
	"github.com/ironsheep/tissue-mask-mcp/internal/dataset"
	"github.com/ironsheep/tissue-mask-mcp/internal/imaging"
	"github.com/ironsheep/tissue-mask-mcp/internal/mask"
	"github.com/ironsheep/tissue-mask-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Logging goes to stderr; stdout carries the MCP protocol
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version":
		printVersion()
		return
	case "help":
		printHelp()
		return
	}
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v":
			printVersion()
			return
		case "--help", "-h":
			printHelp()
			return
		}
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "detect":
		err = runDetect(args)
	case "info":
		err = runInfo(args)
	case "mask":
		err = runMask(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printHelp()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func printVersion() {
	fmt.Printf("%s %s\n", server.Name, Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
}

func printHelp() {
	fmt.Println("tissue-mask-mcp - MCP server for spatial biology tissue masks")
	fmt.Println()
	fmt.Println("Usage: tissue-mask-mcp [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                  Run the MCP server on stdin/stdout (default)")
	fmt.Println("  detect <path>          Print the detected modality of a dataset")
	fmt.Println("  info <path>            Print dataset metadata as JSON")
	fmt.Println("  mask <path> --out FILE Generate a tissue mask and save it (.png, .tif)")
	fmt.Println("  version                Print version information")
	fmt.Println()
	fmt.Println("Common options:")
	fmt.Println("  --config FILE          YAML configuration file")
	fmt.Println("  --hint MODALITY        visium, xenium, phenocycler or ometiff")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %s=debug    Enable debug logging\n", config.LogLevelEnv)
	fmt.Println()
	fmt.Println("Configure the server in your MCP client (e.g., Claude Desktop).")
}

// commonFlags registers --config and --hint on fs.
func commonFlags(fs *flag.FlagSet) (cfgPath, hint *string) {
	cfgPath = fs.String("config", "", "YAML configuration file")
	hint = fs.String("hint", "", "dataset modality")
	return cfgPath, hint
}

// parsePath parses fs and returns its single positional path argument.
func parsePath(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one dataset path, got %d arguments", fs.NArg())
	}
	return fs.Arg(0), nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if cfg.Debug() {
		log.Printf("Tissue Mask MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	defer srv.Close()
	return srv.Run()
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	_, hint := commonFlags(fs)
	path, err := parsePath(fs, args)
	if err != nil {
		return err
	}
	m, err := dataset.DetectModality(path, *hint)
	if err != nil {
		return err
	}
	fmt.Println(m)
	return nil
}

func openDataset(fs *flag.FlagSet, args []string) (dataset.Dataset, error) {
	cfgPath, hint := commonFlags(fs)
	path, err := parsePath(fs, args)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, err
	}
	return dataset.Open(path, *hint, cfg)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	ds, err := openDataset(fs, args)
	if err != nil {
		return err
	}
	valid, msg := ds.Validate()
	info := map[string]interface{}{
		"modality":             ds.Modality(),
		"path":                 ds.Path(),
		"resolution_um_per_px": ds.Resolution(),
		"channels":             ds.Channels(),
		"metadata":             ds.Metadata(),
		"warnings":             ds.Warnings(),
		"valid":                valid,
		"message":              msg,
	}
	if h, w, dtype, err := dataset.ImageShape(ds); err == nil {
		info["shape"] = []int{h, w}
		info["dtype"] = dtype
	} else {
		log.Printf("WARNING [%s %s]: %v", ds.Modality(), ds.Path(), err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func runMask(args []string) error {
	fs := flag.NewFlagSet("mask", flag.ExitOnError)
	out := fs.String("out", "", "output mask file (.png, .tif or .tiff)")
	method := fs.String("method", "auto", "mask method")
	channel := fs.Int("channel", dataset.DefaultChannel, "channel index")
	threshold := fs.Int("threshold", -1, "fixed threshold (negative selects the method default)")

	// flags must precede the path; fs.Parse stops at the first positional
	ds, err := openDataset(fs, args)
	if err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("--out is required")
	}

	m, err := mask.ParseMethod(*method)
	if err != nil {
		return err
	}
	cfg, err := config.Load(fs.Lookup("config").Value.String())
	if err != nil {
		return err
	}
	opts := mask.DefaultOptions(cfg).WithMethod(m)
	opts.Channel = *channel
	if *threshold >= 0 {
		opts.Threshold = threshold
	}

	res, err := ds.GenerateMask(opts)
	if err != nil {
		return err
	}
	if err := mask.Save(*out, res.Mask); err != nil {
		return err
	}
	b := res.Mask.Bounds()
	fmt.Printf("%s mask %dx%d, %d foreground pixels -> %s\n",
		res.Method, b.Dx(), b.Dy(), imaging.CountForeground(res.Mask), *out)
	if res.Fallback != "" {
		log.Printf("WARNING [%s %s]: %s", ds.Modality(), ds.Path(), res.Fallback)
	}
	return nil
}
