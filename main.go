package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Garcia6l20/amake-go/internal/amake"
	"github.com/Garcia6l20/amake-go/internal/config"
	"github.com/Garcia6l20/amake-go/internal/console"
	"github.com/Garcia6l20/amake-go/internal/diag"
	"github.com/Garcia6l20/amake-go/internal/executor"
	"github.com/Garcia6l20/amake-go/internal/testreport"
)

const usageText = `Usage: amake-go [flags] <command> [args...]

Build commands:
  configure        Configure the project for the selected toolchain
  build            Build targets (all by default)
  run              Build and run an executable target
  test             Build and run tests, then summarize the JUnit report
  clean            Remove build outputs
  scan-toolchains  Rescan the machine for available toolchains

Listing commands:
  targets          List buildable targets
  toolchains       List available toolchains
  tests            List runnable test cases
  options          List build options and current values
  buildfiles       List build definition files

Flags:
`

// exitCancelled mirrors the shell convention for interrupted commands.
const exitCancelled = 130

func main() {
	var (
		flagDir       string
		flagSettings  string
		flagToolchain string
		flagVerbosity string
		flagVerbose   bool
		flagNoColor   bool
	)

	flag.StringVar(&flagDir, "C", "", "Change to directory before doing anything")
	flag.StringVar(&flagSettings, "settings", "", "Path to settings file (default: amake.toml)")
	flag.StringVar(&flagToolchain, "toolchain", "", "Toolchain to build with (overrides settings)")
	flag.StringVar(&flagVerbosity, "verbosity", "", "Log verbosity: trace, debug, info, warn, error")
	flag.BoolVar(&flagVerbose, "verbose", false, "Shorthand for -verbosity debug")
	flag.BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flagDir != "" {
		if err := os.Chdir(flagDir); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	}

	settings, err := config.Load(flagSettings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	merged := config.MergeWithDefaults(settings)
	if flagToolchain != "" {
		merged.Toolchain = flagToolchain
	}
	if flagVerbose && flagVerbosity == "" {
		flagVerbosity = "debug"
	}
	if flagVerbosity != "" {
		merged.Verbosity = flagVerbosity
	}

	colors := console.NewColors(!flagNoColor && console.IsColorEnabled())
	log := console.NewChannel(os.Stdout, colors, console.ParseLevel(merged.Verbosity))

	if result := config.Validate(&merged); !result.Valid {
		for _, e := range result.Errors {
			log.Error("settings: %s: %s", e.Field, e.Message)
		}
		os.Exit(1)
	} else {
		for _, w := range result.Warnings {
			log.Warn("settings: %s: %s", w.Field, w.Message)
		}
	}

	verb := flag.Arg(0)
	if verb == "" {
		verb = "build"
	}
	args := flag.Args()
	if len(args) > 0 {
		args = args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(dispatch(ctx, log, colors, &merged, verb, args))
}

// dispatch runs one command and returns the process exit code.
func dispatch(ctx context.Context, log *console.Channel, colors *console.Colors, settings *config.Settings, verb string, args []string) int {
	switch verb {
	case "configure", "build", "run", "test", "clean", "scan-toolchains":
		return runTool(ctx, log, colors, settings, verb, args)
	case "targets", "toolchains", "tests", "options", "buildfiles":
		return runListing(ctx, log, settings, verb)
	default:
		log.Error("unknown command %q, run with -h for usage", verb)
		return 2
	}
}

// runTool streams one tool invocation through the executor and maps its
// outcome to an exit code.
func runTool(ctx context.Context, log *console.Channel, colors *console.Colors, settings *config.Settings, verb string, args []string) int {
	coll := diag.NewMemoryCollection()
	sink := diag.NewSink(coll, settings.Diagnostics.Include)

	bars := console.NewBarRenderer(os.Stdout, colors, console.IsTTY(os.Stdout.Fd()))
	exe := executor.New(log, bars)

	name, argv := settings.Command(toolVerb(verb), args...)
	res, err := exe.Run(ctx, name, argv, executor.Options{
		Label:       verb,
		Env:         settings.Env,
		Cancellable: true,
		Diagnostics: sink,
	})

	reportDiagnostics(log, coll)

	if err != nil {
		if res.Cancelled {
			return exitCancelled
		}
		if res.ExitCode > 0 {
			return res.ExitCode
		}
		// Spawn or wait failure, not a tool exit; the executor only logs
		// tool failures itself.
		log.Error("%v", err)
		return 1
	}

	if verb == "test" && settings.Test.ReportPath != "" {
		summarizeTests(log, settings.Test.ReportPath)
	}
	return 0
}

// toolVerb maps a CLI command to the verb amake expects.
func toolVerb(verb string) string {
	if verb == "build" {
		return "code"
	}
	return verb
}

// reportDiagnostics prints collected diagnostics grouped by file, so a
// terminal user sees what an editor would show inline.
func reportDiagnostics(log *console.Channel, coll *diag.MemoryCollection) {
	for _, file := range coll.Files() {
		for _, entry := range coll.Get(file) {
			switch {
			case entry.Severity <= diag.SeverityError:
				log.Error("%s: %s", file, entry.Message)
			case entry.Severity == diag.SeverityWarning:
				log.Warn("%s: %s", file, entry.Message)
			default:
				log.Info("%s: %s", file, entry.Message)
			}
		}
	}
}

func summarizeTests(log *console.Channel, reportPath string) {
	sum, err := testreport.FromFile(reportPath)
	if err != nil {
		log.Warn("%v", err)
		return
	}
	if sum.Ok() {
		log.Info("%s", sum)
	} else {
		log.Error("%s", sum)
	}
}

// runListing answers a listing command from the discovery client.
func runListing(ctx context.Context, log *console.Channel, settings *config.Settings, verb string) int {
	client := amake.NewClient(settings, "")

	var err error
	switch verb {
	case "targets":
		var targets []amake.Target
		if targets, err = client.Targets(ctx); err == nil {
			for _, t := range targets {
				if t.Type != "" {
					log.AppendLine(fmt.Sprintf("%s (%s)", t.Name, t.Type))
				} else {
					log.AppendLine(t.Name)
				}
			}
		}
	case "toolchains":
		var toolchains []amake.Toolchain
		if toolchains, err = client.Toolchains(ctx); err == nil {
			for _, tc := range toolchains {
				line := tc.Name
				if tc.Version != "" {
					line += " " + tc.Version
				}
				log.AppendLine(line)
			}
		}
	case "tests":
		var tests []amake.Test
		if tests, err = client.Tests(ctx); err == nil {
			for _, tc := range tests {
				log.AppendLine(tc.Name)
			}
		}
	case "options":
		var opts []amake.Option
		if opts, err = client.Options(ctx); err == nil {
			for _, o := range opts {
				log.AppendLine(fmt.Sprintf("%s=%s", o.Name, o.Value))
			}
		}
	case "buildfiles":
		var files []string
		if files, err = client.BuildFiles(ctx); err == nil {
			for _, f := range files {
				log.AppendLine(f)
			}
		}
	}

	if err != nil {
		log.Error("%v", err)
		return 1
	}
	return 0
}
