package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mohit83k/aaabridge/internal/model"
)

// errFailed marks a failure already reported in the printed envelope.
var errFailed = errors.New("operation failed")

func render(w io.Writer, v any) error {
	switch strings.ToLower(outputFormat) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case "json", "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return fmt.Errorf("unknown output format %q", outputFormat)
}

// printResult writes the envelope and turns a failed result into a
// non-zero exit.
func printResult(w io.Writer, res model.Result) error {
	if err := render(w, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", errFailed, res.Message)
	}
	return nil
}
