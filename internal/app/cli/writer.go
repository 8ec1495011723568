package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bool64/ctxd"
)

const jsonIndent = "  "

// resultWriter is a function that writes the results of the harvest to a writer.
type resultWriter func(results <-chan seedResult) ExitCode

// nolint: tagliatelle
type harvestResult struct {
	StartURL     string  `json:"start_url"`
	NumVisited   int     `json:"visited_num"`
	NumDocuments int     `json:"documents_num"`
	NumErrors    int     `json:"errors_num"`
	Success      bool    `json:"success"`
	Error        *string `json:"error"`
}

// bufferedJSONResultWriter creates a new result writer that writes the harvested results to memory and then the output at the end of the process.
//
// In case of error while writing to the output, the error will be logged and the process will stop with exit code CodeErrOutput.
func bufferedJSONResultWriter(out io.Writer, pretty bool, log ctxd.Logger) resultWriter {
	return func(results <-chan seedResult) (code ExitCode) {
		code = CodeOK
		ctx := context.Background()
		buf := make([]harvestResult, 0)

		defer func() {
			enc := json.NewEncoder(out)

			if pretty {
				enc.SetIndent("", jsonIndent)
			}

			if err := enc.Encode(buf); err != nil {
				code = CodeErrOutput

				log.Error(ctx, "failed to encode report", "error", err)
			}
		}()

		for r := range results {
			log.Debug(ctx, "received result", "result.url", r.URL, "result.documents", len(r.Documents))

			buf = append(buf, toHarvestResult(r))
		}

		return code
	}
}

// unbufferedJSONResultWriter creates a new result writer that writes the harvested results to output.
//
// In case of error while writing to the output, the error will be printed to the error output and the process will stop with exit code CodeErrOutput.
func unbufferedJSONResultWriter(out, outErr io.Writer, pretty bool) resultWriter {
	return func(results <-chan seedResult) (code ExitCode) {
		writeErr := func(format string, args ...interface{}) {
			code = CodeErrOutput
			_, _ = fmt.Fprintf(outErr, format, args...)
		}

		buf := new(bytes.Buffer)
		enc := json.NewEncoder(buf)
		join := ""

		newL, startIndent, joinTmpl := "", "", ","

		if pretty {
			newL, startIndent = "\n", jsonIndent
			joinTmpl = ",\n" + startIndent

			enc.SetIndent(jsonIndent, jsonIndent)
		}

		if _, err := fmt.Fprint(out, "[", newL, startIndent); err != nil {
			writeErr("could not write [ to output: %s\n", err)

			return
		}

		defer func() {
			if code != CodeOK {
				return
			}

			if _, err := fmt.Fprint(out, newL, "]\n"); err != nil {
				writeErr("could not write ] to output: %s\n", err)
			}
		}()

		for result := range results {
			buf.Reset()

			if err := enc.Encode(toHarvestResult(result)); err != nil { // This should not happen.
				writeErr("could not encode %q report: %s", result.URL, err.Error())

				return
			}

			if _, err := fmt.Fprint(out, join, strings.Trim(buf.String(), "\r\n")); err != nil {
				writeErr("could not write %q report: %s", result.URL, err.Error())

				return
			}

			join = joinTmpl
		}

		return CodeOK
	}
}

// toHarvestResult converts a seedResult to harvestResult for output.
func toHarvestResult(r seedResult) harvestResult {
	result := harvestResult{
		StartURL:     r.URL,
		NumVisited:   len(r.Result.Visited),
		NumDocuments: len(r.Documents),
		NumErrors:    len(r.Result.Errors),
		Success:      r.Err == nil,
	}

	if r.Err != nil {
		err := r.Err.Error()
		result.Error = &err
	}

	return result
}
