package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/compose-network/mediactl/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"

	flagName = "output"
)

// TextRenderer is implemented by results with a human-readable form.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

func ParseFormat(value string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(value))); format {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return format, nil
	default:
		return "", domain.Configurationf("unknown output format %q (text, json, yaml)", value)
	}
}

// AddFlag declares the --output flag on cmd.
func AddFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(flagName, "o", string(FormatText), "Output format (text, json, yaml)")
}

// FromFlags reads the --output flag declared by AddFlag.
func FromFlags(cmd *cobra.Command) (Format, error) {
	value, err := cmd.Flags().GetString(flagName)
	if err != nil {
		return "", err
	}
	return ParseFormat(value)
}

// Render writes value to w in the requested format.
func Render(w io.Writer, format Format, value any) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(value); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return encoder.Close()
	default:
		if renderer, ok := value.(TextRenderer); ok {
			return renderer.RenderText(w)
		}
		_, err := fmt.Fprintf(w, "%+v\n", value)
		return err
	}
}
