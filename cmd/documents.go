package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/document"
	"github.com/MimeLyc/doc-translator/pkg/file"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

// documentFlags are the document options shared by parse, apply and translate.
type documentFlags struct {
	format               string
	ignoreKeys           []string
	delimiter            string
	replacementDelimiter string
	skipHeader           bool
	splitLines           bool
	includeMetadata      bool
}

func (f *documentFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "", "Document format: json, csv, text or subtitle (default: from extension)")
	flags.StringSliceVar(&f.ignoreKeys, "ignore-key", nil, "JSON keys whose string values are not translated")
	flags.StringVar(&f.delimiter, "delimiter", "", "CSV field delimiter (default: , or tab for .tsv)")
	flags.StringVar(&f.replacementDelimiter, "replacement-delimiter", "", "Replaces the delimiter inside translated CSV fields")
	flags.BoolVar(&f.skipHeader, "skip-header", false, "Do not translate the first CSV row")
	flags.BoolVar(&f.splitLines, "split-lines", false, "Translate plain text line by line")
	flags.BoolVar(&f.includeMetadata, "include-metadata", false, "Also translate WebVTT NOTE blocks")
}

func (f *documentFlags) options(path string) document.Options {
	opts := document.Options{
		Format:               document.Format(f.format),
		IgnoreKeys:           f.ignoreKeys,
		Delimiter:            f.delimiter,
		ReplacementDelimiter: f.replacementDelimiter,
		SkipHeader:           f.skipHeader,
		SplitLines:           f.splitLines,
	}
	if f.includeMetadata {
		exclude := false
		opts.ExcludeMetadata = &exclude
	}
	if opts.Format == "" {
		opts.Format = formatFromPath(path)
	}
	if opts.Format == document.FormatCSV && opts.Delimiter == "" && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = "\t"
	}
	return opts
}

func formatFromPath(path string) document.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return document.FormatJSON
	case ".csv", ".tsv":
		return document.FormatCSV
	case ".srt", ".vtt":
		return document.FormatSubtitle
	default:
		return document.FormatText
	}
}

func newParseCmd() *cobra.Command {
	var flags documentFlags
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "List the translatable units of a document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			units, err := document.Parse(content, flags.options(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), units)
		},
	}
	flags.register(cmd)
	return cmd
}

func newApplyCmd() *cobra.Command {
	var (
		flags     documentFlags
		unitsPath string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Merge translated units into a document",
		Long: `Merge translated units into a document.

--units points to a JSON array of translated units as produced by the
translate endpoint. The merged document is written to --output or stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readInput(args[0])
			if err != nil {
				return err
			}
			raw, err := readInput(unitsPath)
			if err != nil {
				return err
			}
			var units []document.TranslatedUnit
			if err := json.Unmarshal([]byte(raw), &units); err != nil {
				return apperr.Wrap(err, apperr.KindParse, "invalid units file %s", unitsPath)
			}
			merged, err := document.Apply(content, units, flags.options(args[0]))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, merged)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&unitsPath, "units", "", "JSON file with translated units")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("units")
	return cmd
}

func newTranslateCmd() *cobra.Command {
	var (
		flags  documentFlags
		req    config.TranslationConfig
		output string
	)
	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Parse, translate and apply a document in one step",
		Long: `Parse, translate and apply a document in one step.

Provider settings default to the environment and the runtime settings file.
The result is written next to the input with the target language inserted
before the extension (app.json -> app.fr.json) unless --output is given.
Units that fail keep their source text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := readInput(path)
			if err != nil {
				return err
			}
			opts := flags.options(path)
			units, err := document.Parse(content, opts)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, store, err := openService(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			absPath, err := filepath.Abs(path)
			if err != nil {
				absPath = path
			}
			res, err := svc.TranslateTextArray(cmd.Context(), req, units, absPath)
			if err != nil {
				return err
			}
			merged, err := document.Apply(content, res.TranslatedUnits, opts)
			if err != nil {
				return err
			}

			if output == "" && path != "-" {
				target := req.TargetLanguage
				if target == "" {
					target = svc.Defaults().TargetLanguage
				}
				output = file.WithLanguage(path, target)
			}
			if err := writeOutput(cmd.OutOrStdout(), output, merged); err != nil {
				return err
			}
			if !res.Success {
				log.Warn("%s: %s", path, res.Message)
				return nil
			}
			log.Info("%s: %s", path, res.Message)
			return nil
		},
	}
	flags.register(cmd)
	f := cmd.Flags()
	f.StringVar(&req.Provider, "provider", "", "LLM provider")
	f.StringVar(&req.APIURL, "api-url", "", "Provider endpoint URL")
	f.StringVar(&req.Model, "model", "", "Model name")
	f.StringVar(&req.SourceLanguage, "source", "", "Source language tag or auto")
	f.StringVarP(&req.TargetLanguage, "target", "t", "", "Target language tag")
	f.StringVar(&req.PromptTemplate, "prompt", "", "Prompt template")
	f.IntVar(&req.ChunkSize, "chunk-size", 0, "Texts per provider call")
	f.IntVar(&req.Concurrency, "concurrency", 0, "Parallel provider calls")
	f.StringVarP(&output, "output", "o", "", "Output file, - for stdout")
	return cmd
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// writeOutput writes content to path, or to stdout when path is empty or "-".
func writeOutput(stdout io.Writer, path, content string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
