package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/service"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached translations",
	}
	cmd.AddCommand(
		newCacheExportCmd(),
		newCacheImportCmd(),
		newCacheListCmd(),
		newCacheDeleteCmd(),
	)
	return cmd
}

// withService opens the configured store for the duration of fn.
func withService(fn func(svc *service.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, store, err := openService(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close store: %v", err)
		}
	}()
	return fn(svc)
}

func newCacheExportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export successful translations as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(func(svc *service.Service) error {
				data, err := svc.ExportTranslations(cmd.Context(), format)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), output, string(data))
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", service.FormatJSON, "json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newCacheImportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import translations exported by cache export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			if format == "" {
				format = formatOfExport(args[0])
			}
			return withService(func(svc *service.Service) error {
				res, err := svc.ImportTranslations(cmd.Context(), []byte(data), format)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", res.Imported, res.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from extension)")
	return cmd
}

func formatOfExport(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return service.FormatYAML
	default:
		return service.FormatJSON
	}
}

func newCacheListCmd() *cobra.Command {
	var (
		q         persistence.Query
		failed    bool
		succeeded bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached translations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case failed && succeeded:
				return fmt.Errorf("--failed and --success are mutually exclusive")
			case failed:
				v := false
				q.Success = &v
			case succeeded:
				v := true
				q.Success = &v
			}
			return withService(func(svc *service.Service) error {
				page, err := svc.GetTranslations(cmd.Context(), q)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), page)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tOK\tSOURCE\tTARGET\tMODEL")
				for _, e := range page.Items {
					fmt.Fprintf(tw, "%d\t%t\t%s\t%s\t%s\n", e.ID, e.Success, clip(e.Source, 40), clip(e.Target, 40), e.Model)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d of %d entries\n", page.Page, len(page.Items), page.Total)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 1, "Page number")
	f.IntVar(&q.PageSize, "size", 20, "Entries per page")
	f.StringVar(&q.Search, "search", "", "Substring of source or target")
	f.BoolVar(&failed, "failed", false, "Only failed entries")
	f.BoolVar(&succeeded, "success", false, "Only successful entries")
	f.BoolVar(&asJSON, "json", false, "Print the page as JSON")
	return cmd
}

func newCacheDeleteCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete cached translations and their history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("pass either ids or --all")
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", arg)
				}
				ids = append(ids, id)
			}
			return withService(func(svc *service.Service) error {
				var (
					n   int64
					err error
				)
				if all {
					n, err = svc.DeleteAllTranslations(cmd.Context())
				} else {
					n, err = svc.DeleteTranslations(cmd.Context(), ids)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Delete every cached translation")
	return cmd
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
