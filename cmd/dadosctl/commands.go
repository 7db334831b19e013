package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dados/internal/core"
	"github.com/JonMunkholm/dados/internal/export"
	"github.com/JonMunkholm/dados/internal/service"
	"github.com/JonMunkholm/dados/internal/source"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest SOURCE",
	Short: "Replace the table with a CSV file, stdin (-) or s3://bucket/key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opener := source.NewOpener(cfg.Source, cmd.InOrStdin())

		rc, name, err := opener.Open(ctx, args[0])
		if err != nil {
			return err
		}
		defer rc.Close()

		res, err := svc.Ingest(ctx, session, rc, name)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

var (
	exportFormat  string
	exportFilters []string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the filtered table as xlsx or pdf",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := parseFilters(exportFilters)
		if err != nil {
			return err
		}

		artifact, err := svc.Export(cmd.Context(), session, exportFormat, spec)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = artifact.Filename
		}
		if out == "-" {
			_, err = cmd.OutOrStdout().Write(artifact.Data)
			return err
		}
		if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", filepath.Clean(out), artifact.Size())
		return nil
	},
}

var (
	sendTo      []string
	sendSubject string
	sendBody    string
	sendFormat  string
	sendFilters []string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Mail the filtered export as an attachment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := parseFilters(sendFilters)
		if err != nil {
			return err
		}

		err = svc.Email(cmd.Context(), session, service.EmailRequest{
			To:      sendTo,
			Subject: sendSubject,
			Body:    sendBody,
			Format:  sendFormat,
			Filter:  spec,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "sent %s export to %s\n", sendFormat, strings.Join(sendTo, ", "))
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the dados table if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.EnsureSchema(cmd.Context(), session); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "schema ready")
		return nil
	},
}

func init() {
	formats := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		formats[i] = string(f)
	}
	formatHelp := "export format (" + strings.Join(formats, ", ") + ")"

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatXLSX), formatHelp)
	exportCmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "column=value constraint, repeatable")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path, - for stdout (default: artifact name)")

	sendCmd.Flags().StringSliceVar(&sendTo, "to", nil, "recipient address, repeatable or comma-separated")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "mail subject")
	sendCmd.Flags().StringVar(&sendBody, "body", "", "mail body text")
	sendCmd.Flags().StringVarP(&sendFormat, "format", "f", string(export.FormatXLSX), formatHelp)
	sendCmd.Flags().StringArrayVar(&sendFilters, "filter", nil, "column=value constraint, repeatable")
	_ = sendCmd.MarkFlagRequired("to")
}

// parseFilters turns column=value flags into a FilterSpec.
func parseFilters(flags []string) (core.FilterSpec, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	spec := make(core.FilterSpec, len(flags))
	for _, f := range flags {
		col, val, ok := strings.Cut(f, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid filter %q: want column=value", f)
		}
		spec[col] = val
	}
	if err := core.ValidateFilter(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// readsStdin reports whether cmd will consume standard input as data.
func readsStdin(cmd *cobra.Command, args []string) bool {
	return cmd == ingestCmd && len(args) == 1 && strings.TrimSpace(args[0]) == "-"
}
