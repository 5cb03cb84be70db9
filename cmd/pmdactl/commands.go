package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/pmdakit/errors"
	"github.com/kbukum/pmdakit/filter"
	"github.com/kbukum/pmdakit/logger"
	"github.com/kbukum/pmdakit/model"
	"github.com/kbukum/pmdakit/pmda"
	"github.com/kbukum/pmdakit/version"
	"github.com/kbukum/pmdakit/wire"
)

func newGetCmd(a *app) *cobra.Command {
	var typ model.Type
	cmd := &cobra.Command{
		Use:   "get <service> <id>",
		Short: "Fetch one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.pmda()
			if err != nil {
				return err
			}
			m, err := client.Get(cmd.Context(), args[0], args[1], pmda.WithType(typ))
			if err != nil {
				return err
			}
			return printModel(cmd.OutOrStdout(), m)
		},
	}
	typeFlags(cmd, &typ)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		typ      model.Type
		text     string
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list <service>",
		Short: "List resources, optionally filtered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.pmda()
			if err != nil {
				return err
			}
			opts := []pmda.CallOption{pmda.WithType(typ)}
			if cmd.Flags().Changed("page-size") {
				opts = append(opts, pmda.WithPageSize(pageSize))
			}

			var it *pmda.Iterator
			if text != "" {
				expr, err := filter.Parse(text)
				if err != nil {
					return err
				}
				it = client.FilteredList(cmd.Context(), args[0], expr, opts...)
			} else {
				it = client.List(cmd.Context(), args[0], opts...)
			}
			defer func() { _ = it.Close() }()

			count := 0
			for {
				m, ok, err := it.Next(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				if err := printModel(cmd.OutOrStdout(), m); err != nil {
					return err
				}
				count++
			}
			logger.Info("list completed", logger.Fields(logger.FieldService, args[0], logger.FieldCount, count))
			return nil
		},
	}
	typeFlags(cmd, &typ)
	cmd.Flags().StringVarP(&text, "filter", "f", "", `filter text, e.g. 'Device.Name ENDS_WITH "_router"'`)
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "request resources in pages of this size")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		typ  model.Type
		sets []string
	)
	cmd := &cobra.Command{
		Use:   "update <service> <id>",
		Short: "Change attributes of one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildPatch(typ, sets)
			if err != nil {
				return err
			}
			client, err := a.pmda()
			if err != nil {
				return err
			}
			if err := client.Update(cmd.Context(), args[0], args[1], m); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "updated %s/%s\n", args[0], args[1])
			return err
		},
	}
	typeFlags(cmd, &typ)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "attribute assignment name=value (repeatable); value null clears it")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <service> <id>",
		Short: "Remove one resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.pmda()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return err
		},
	}
}

func newRenderCmd() *cobra.Command {
	var (
		text   string
		asXML  bool
		indent int
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Parse a filter and print its canonical text or FilterSelect document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expr, err := filter.Parse(text)
			if err != nil {
				return err
			}
			out := expr.Render()
			if asXML {
				doc, err := (&wire.XMLCodec{Indent: indent}).MarshalFilter(expr)
				if err != nil {
					return err
				}
				out = strings.TrimRight(string(doc), "\n")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&text, "filter", "f", "", "filter text")
	cmd.Flags().BoolVar(&asXML, "xml", false, "print the FilterSelect XML body")
	cmd.Flags().IntVar(&indent, "indent", 2, "XML indentation")
	_ = cmd.MarkFlagRequired("filter")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return err
		},
	}
}

func typeFlags(cmd *cobra.Command, typ *model.Type) {
	cmd.Flags().StringVar(&typ.Name, "type", "", "resource type name, e.g. ManageableDevice")
	cmd.Flags().StringVar(&typ.Version, "version", "", "resource type version, e.g. 1.0.0")
}

// buildPatch turns name=value assignments into a model. Values are sent
// as strings; the literal null clears the attribute.
func buildPatch(typ model.Type, sets []string) (*model.Model, error) {
	attrs := make([]model.Attribute, 0, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.InvalidInput("set", fmt.Sprintf("expected name=value, got %q", s))
		}
		v := model.String(value)
		if value == "null" {
			v = model.Null()
		}
		attrs = append(attrs, model.Attr(name, v))
	}
	return model.Build(typ.Name, typ.Version, attrs...)
}

func printModel(w io.Writer, m *model.Model) error {
	_, err := fmt.Fprintln(w, m.Dump())
	return err
}
