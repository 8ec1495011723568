package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhatthm/docharvest/internal/app/cli"
	"github.com/nhatthm/docharvest/internal/config"
)

const long = `Crawl university websites from seed urls and harvest the PDF documents they link
to. Documents are downloaded into <data-dir>/raw, then filed by category into
<data-dir>/organized/{syllabus,question_papers,educational_materials}.

Seeds are read from the arguments, from --file (a txt, json or csv file, or a
directory of such files) or from stdin, in that order. Only http and https
urls are crawled.

One json result per seed is printed to stdout. Progress is saved to
<data-dir>/progress.json after every seed and the final report to
<data-dir>/final_report.json.`

const example = `  Harvest the seeds of a file with 8 workers:
    docharvest -p 8 -f seeds.csv

  Harvest a site down to depth 2, rendering pages with a browser first:
    docharvest -d 2 --dynamic https://univ.example/exams

  Harvest seeds piped from another process, with all the log messages:
    cat seeds.txt | docharvest -vvv`

// options holds the flags that are not settings.
type options struct {
	inputFile  string
	configFile string
	noPretty   bool
	jsonLogs   bool
	summary    bool
	dynamic    bool
	verbosity  int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command and returns the exit code.
func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	code := cli.CodeOK

	cmd := newRootCmd(stdin, stdout, stderr, &code)
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, err)

		return int(cli.CodeErrBadArgs)
	}

	return int(code)
}

// newRootCmd creates the root command. The exit code of the harvest is written to code.
func newRootCmd(stdin *os.File, stdout, stderr io.Writer, code *cli.ExitCode) *cobra.Command {
	opts := &options{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:           "docharvest [flags] [url ...]",
		Short:         "Harvest PDF documents from university websites",
		Long:          long,
		Example:       example,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd, opts)
			if err != nil {
				_, _ = fmt.Fprintln(stderr, err.Error())
				*code = cli.CodeErrConfig

				return nil
			}

			cfg := cli.Config{
				OutWriter:      stdout,
				ErrWriter:      stderr,
				Settings:       settings,
				PrettyOutput:   !opts.noPretty,
				VerbosityLevel: verbosityLevel(opts.verbosity),
				JSONLogs:       opts.jsonLogs,
				Summary:        opts.summary,
			}

			*code = cli.Run(cfg, args, opts.inputFile, pipeFromStdIn(stdin))

			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.inputFile, "file", "f", "", "path to a txt, json or csv file, or a directory of such files, listing the seed urls")
	f.StringVarP(&opts.configFile, "config", "c", "", "path to a yaml configuration file")
	f.IntP("depth", "d", defaults.Crawl.MaxDepth, "maximum crawl depth, the seed is at depth 0")
	f.IntP("parallel", "p", defaults.Crawl.Workers, "number of pages visited in parallel")
	f.DurationP("timeout", "t", defaults.Fetch.Timeout, `timeout of a request, in the form "1m30s"`)
	f.StringSlice("backend", defaults.Fetch.Backends, "page fetch backends tried in order: http, chrome, stealth")
	f.BoolVar(&opts.dynamic, "dynamic", false, "render pages with a browser first, shorthand for --backend=chrome,stealth,http")
	f.String("data-dir", defaults.Storage.DataDir, "directory receiving the documents and the reports")
	f.String("catalog", "", "path to a sqlite catalog of the harvested documents")
	f.String("metrics-file", "", "path to a prometheus text file written at the end")
	f.BoolVar(&opts.noPretty, "no-pretty", false, "disable pretty output")
	f.BoolVar(&opts.jsonLogs, "json-logs", false, "write log messages as json lines")
	f.BoolVar(&opts.summary, "summary", false, "write a summary to stderr at the end")
	f.CountVarP(&opts.verbosity, "verbose", "v", "print out the error log messages, -vv adds info and -vvv debug messages")

	return cmd
}

// loadSettings reads the configuration file, the environment and the flags, in that order of precedence.
func loadSettings(cmd *cobra.Command, opts *options) (*config.Config, error) {
	settings := config.Default()

	if opts.configFile != "" {
		var err error

		if settings, err = config.Load(opts.configFile); err != nil {
			return nil, err
		}
	}

	settings.ApplyEnv()

	f := cmd.Flags()

	if f.Changed("depth") {
		settings.Crawl.MaxDepth, _ = f.GetInt("depth") // nolint: errcheck // Flag is defined.
	}

	if f.Changed("parallel") {
		settings.Crawl.Workers, _ = f.GetInt("parallel") // nolint: errcheck // Flag is defined.
	}

	if f.Changed("timeout") {
		settings.Fetch.Timeout, _ = f.GetDuration("timeout") // nolint: errcheck // Flag is defined.
	}

	if f.Changed("backend") {
		settings.Fetch.Backends, _ = f.GetStringSlice("backend") // nolint: errcheck // Flag is defined.
	} else if opts.dynamic {
		settings.Fetch.Backends = []string{config.BackendChrome, config.BackendStealth, config.BackendHTTP}
	}

	if f.Changed("data-dir") {
		settings.Storage.DataDir, _ = f.GetString("data-dir") // nolint: errcheck // Flag is defined.
	}

	if f.Changed("catalog") {
		settings.Storage.Catalog, _ = f.GetString("catalog") // nolint: errcheck // Flag is defined.
	}

	if f.Changed("metrics-file") {
		settings.Storage.MetricsFile, _ = f.GetString("metrics-file") // nolint: errcheck // Flag is defined.
	}

	return &settings, nil
}

func verbosityLevel(count int) cli.VerbosityLevel {
	switch {
	case count <= 0:
		return cli.VerbosityLevelSilent
	case count == 1:
		return cli.VerbosityLevelError
	case count == 2: // nolint: gomnd // -vv
		return cli.VerbosityLevelInfo
	default:
		return cli.VerbosityLevelDebug
	}
}

// Detect if stdin is piped from another process.
func pipeFromStdIn(in *os.File) io.ReadCloser {
	if in == nil {
		return nil
	}

	fi, err := in.Stat()
	if err != nil {
		// Just ignore because we do not know if it is a pipe or not.
		return nil
	}

	if (fi.Mode() & os.ModeNamedPipe) != 0 {
		return io.NopCloser(in)
	}

	return nil
}
