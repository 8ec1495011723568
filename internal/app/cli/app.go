package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bool64/ctxd"

	"github.com/nhatthm/docharvest/internal/config"
	"github.com/nhatthm/docharvest/internal/footprint"
	"github.com/nhatthm/docharvest/internal/logger"
	"github.com/nhatthm/docharvest/internal/seed"
)

const (
	// CodeOK indicates that the program exited with success.
	CodeOK = ExitCode(iota)
	// CodeErrOperationCanceled indicates that the program has been terminated and operation is canceled.
	CodeErrOperationCanceled
	// CodeErrNoInputSource indicates that the program has no input source.
	CodeErrNoInputSource
	// CodeErrOpenInputSource indicates that the program could not open input file.
	CodeErrOpenInputSource
	// CodeErrUnsupportedInputSource indicates that the program could not use the input source.
	CodeErrUnsupportedInputSource
	// CodeErrBadArgs indicates that the provided arguments are invalid.
	CodeErrBadArgs
	// CodeErrOutput indicates that the program could not write to output.
	CodeErrOutput
	// CodeErrConfig indicates that the configuration is invalid or a component could not be set up.
	CodeErrConfig
)

const (
	// Limitation for number of workers to avoid resource saturation.
	maxNumWorkers = 24
	// publisherBufferSize is the number of seeds published ahead of the harvest.
	publisherBufferSize = 2
)

// ExitCode is the exit code of the program.
type ExitCode int

// Run runs the program to harvest documents from seed urls.
//
// It will take only the first valid source as an input. The source types are:
// - []string: A list of URLs.
// - string: A path to a txt, json or csv file, or to a directory of such files.
// - io.ReadCloser: A reader that contains a list of URLs, one on each line.
// - io.Reader: A reader that contains a list of URLs, one on each line.
//
// Only absolute http and https URLs are harvested, the others are skipped.
func Run(cfg Config, inputSources ...any) ExitCode {
	settings := config.Default()
	if cfg.Settings != nil {
		settings = *cfg.Settings
	}

	log := initLogger(cfg.VerbosityLevel, cfg.JSONLogs, cfg.ErrWriter)
	loader := seed.NewLoader(seed.WithLogger(log))

	// Configure input source.
	candidates, code, err := initInputSource(loader, inputSources...)
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return code
	}

	if code, err := validateSettings(settings); err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return code
	}

	seeds := loader.Filter(context.Background(), candidates)
	if len(seeds) == 0 {
		_, _ = fmt.Fprintln(cfg.ErrWriter, "no input source")

		return CodeErrNoInputSource
	}

	h, err := newHarvester(settings, log)
	if err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		return CodeErrConfig
	}

	// Configure resultWriter.
	var writeResult resultWriter

	if cfg.VerbosityLevel > VerbosityLevelSilent {
		// When the verbosity level is not silent, the log messages will be printed to the output randomly.
		// And the application cannot guarantee the prettified output to human users because stdout and stderr are visualized on the same screen.
		// This is not a problem to machines because the log messages are sent to stderr which is another file descriptor.
		//
		// Therefore, we will buffer the output and send at once when all the seeds are processed.
		writeResult = bufferedJSONResultWriter(cfg.OutWriter, cfg.PrettyOutput, log)
	} else {
		// When the verbosity level is silent, there is no log messages to print. It would be great to see the progress of the program rather than waiting till
		// the end. Therefore, the program could print out the result as soon as it is ready.
		writeResult = unbufferedJSONResultWriter(cfg.OutWriter, cfg.ErrWriter, cfg.PrettyOutput)
	}

	publishSource := bufferedSourcePublisher(publisherBufferSize, log)
	debug := cfg.VerbosityLevel >= VerbosityLevelDebug

	code = doHarvest(h, publishSource, writeResult, seeds, debug, log)

	if err := h.close(context.Background()); err != nil {
		_, _ = fmt.Fprintln(cfg.ErrWriter, err.Error())

		if code == CodeOK {
			code = CodeErrOutput
		}
	}

	if cfg.Summary {
		_ = h.tracker.WriteSummary(cfg.ErrWriter) // nolint: errcheck
	}

	return code
}

// initLogger returns a new logger.
//
// If the verbosity level is silent, all the log messages will be discarded by sending them to io.Discard.
// Otherwise, the logger will write to the stderr writer.
//
// Then the verbosity level is
// - VerbosityLevelError, the log level will be set to logger.ErrorLevel.
// - VerbosityLevelInfo, the log level will be set to logger.InfoLevel.
// - VerbosityLevelDebug, the log level will be set to logger.DebugLevel.
func initLogger(level VerbosityLevel, jsonLogs bool, errWriter io.Writer) ctxd.Logger {
	logCfg := logger.Config{
		Output: io.Discard,
		Level:  logger.ErrorLevel,
		JSON:   jsonLogs,
	}

	if level > VerbosityLevelSilent {
		logCfg.Output = errWriter
	}

	switch {
	case level >= VerbosityLevelDebug:
		logCfg.Level = logger.DebugLevel
	case level == VerbosityLevelInfo:
		logCfg.Level = logger.InfoLevel
	}

	return logger.NewLogger(logCfg)
}

// initInputSource returns the seed candidates of the first valid input source.
//
// It accepts a list of input sources. The source types are:
// - []string: A list of URLs. If the list is empty, it is ignored.
// - string: A path to a file or a directory of seed files. If the path is empty, it is ignored.
// - io.ReadCloser: A reader that contains a list of URLs, one on each line. It is closed once read.
// - io.Reader: A reader that contains a list of URLs, one on each line.
//
// nolint: cyclop,goerr113 // Error will be printed out.
func initInputSource(loader *seed.Loader, sources ...any) ([]string, ExitCode, error) {
	ctx := context.Background()

	for _, source := range sources {
		switch s := source.(type) {
		case nil:
			continue

		case []string:
			if len(s) == 0 {
				continue
			}

			return s, CodeOK, nil

		case string:
			if len(s) == 0 {
				continue
			}

			candidates, err := loader.Load(ctx, s)
			if err != nil {
				return nil, CodeErrOpenInputSource, err
			}

			return candidates, CodeOK, nil

		case io.ReadCloser:
			defer s.Close() // nolint: errcheck

			candidates, err := loader.LoadReader(ctx, s)
			if err != nil {
				return nil, CodeErrOpenInputSource, err
			}

			return candidates, CodeOK, nil

		case io.Reader:
			candidates, err := loader.LoadReader(ctx, s)
			if err != nil {
				return nil, CodeErrOpenInputSource, err
			}

			return candidates, CodeOK, nil

		default:
			return nil, CodeErrUnsupportedInputSource, fmt.Errorf("unsupported input source: %T", s)
		}
	}

	return nil, CodeErrNoInputSource, errors.New("no input source")
}

// validateSettings checks the number of workers like the arguments, then the rest of the configuration.
//
// nolint: goerr113 // Error will be printed out.
func validateSettings(s config.Config) (ExitCode, error) {
	if s.Crawl.Workers < 1 {
		return CodeErrBadArgs, errors.New(`number of workers must be greater than 0`)
	} else if s.Crawl.Workers > maxNumWorkers {
		return CodeErrBadArgs, fmt.Errorf(`maximum workers is %d`, maxNumWorkers)
	}

	if err := s.Validate(); err != nil {
		return CodeErrConfig, fmt.Errorf("invalid configuration: %w", err)
	}

	return CodeOK, nil
}

// doHarvest harvests the seeds one after another and prints the result to the output writer.
//
// In case of SIGINT or SIGTERM, the harvest will be gracefully stopped and the function will return CodeErrOperationCanceled.
// In case of output error, the function will return CodeErrOutput.
//
// The result will be channeled to the result writer for writing to the output.
func doHarvest(h *harvester, publishSource sourcePublisher, writeResult resultWriter, seeds []string, debug bool, log ctxd.Logger) ExitCode {
	ctx, cancel := context.WithCancel(context.Background())

	if debug {
		go footprint.Track(ctx, log, footprint.DefaultInterval, h.probe)
	}

	code := CodeOK
	codeMu := &sync.Mutex{}
	sigs := make(chan os.Signal, 1)

	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var wg sync.WaitGroup

	wg.Add(2) // nolint: gomnd // WaitGroup is used to wait for goroutines to finish.

	go func() { // Watch for termination to cancel the context in order to signal the harvest to stop.
		defer wg.Done()

		select {
		case <-sigs:
			codeMu.Lock()
			code = CodeErrOperationCanceled
			codeMu.Unlock()

			cancel()
		case <-ctx.Done():
			return
		}
	}()

	go func() {
		defer wg.Done()
		defer cancel()

		seedsCh := publishSource(ctx, seeds)
		results := make(chan seedResult)

		go func() {
			defer close(results)

			for s := range seedsCh {
				if ctx.Err() != nil {
					return
				}

				results <- h.harvest(ctx, s)
			}
		}()

		wCode := writeResult(results)

		// The writer stops early on output errors. Stop the harvest and let it finish before the harvester is closed.
		cancel()

		for range results { // nolint: revive // Drain.
		}

		codeMu.Lock()
		defer codeMu.Unlock()

		if wCode != CodeOK && code != CodeErrOperationCanceled {
			code = wCode
		}
	}()

	wg.Wait()

	return code
}
