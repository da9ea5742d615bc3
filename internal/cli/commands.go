package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"slices"

	"github.com/spf13/cobra"

	"github.com/logicossoftware/go-opc"
)

func newLsCmd(lo *loadOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls FILE",
		Short: "List container entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadPackage(cmd, lo, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range m.Entries {
				typ, ok := m.ContentType(e.Path)
				if !ok || e.IsDirectory {
					typ = "-"
				}
				fmt.Fprintf(w, "%-8s %10d %10d  %s  %s  %s\n",
					e.CompressionMethod, e.UncompressedSize, e.CompressedSize,
					e.LastModified.Format("2006-01-02 15:04"), e.Path, typ)
			}
			return nil
		},
	}
}

func newRelsCmd(lo *loadOptions) *cobra.Command {
	var relType string
	cmd := &cobra.Command{
		Use:   "rels FILE",
		Short: "Print the resolved relationship index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadPackage(cmd, lo, args[0])
			if err != nil {
				return err
			}
			rels := m.AllRelationships()
			if relType != "" {
				rels = m.RelationshipsOfType(relType)
			}
			w := cmd.OutOrStdout()
			for _, ir := range rels {
				owner := ir.Owner
				if owner == "" {
					owner = "/"
				}
				status := ""
				if ir.External() {
					status = " [external]"
				} else if _, ok := m.Entry(ir.ResolvedTarget); !ok {
					status = " [dangling]"
				}
				fmt.Fprintf(w, "%s#%s  %s  -> %s%s\n", owner, ir.ID, path.Base(ir.Type), ir.ResolvedTarget, status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&relType, "type", "t", "", "only relationships whose type ends with this suffix (e.g. /image)")
	return cmd
}

func newCatCmd(lo *loadOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat FILE PART",
		Short: "Print the decoded text of an XML part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadPackage(cmd, lo, args[0])
			if err != nil {
				return err
			}
			part, ok := m.XMLDocuments[args[1]]
			if !ok {
				if _, exists := m.Entry(args[1]); exists {
					return fmt.Errorf("part %s is not an XML part", args[1])
				}
				return fmt.Errorf("part %s not found", args[1])
			}
			if part.Err != nil {
				loggerFromContext(cmd.Context()).Warn(opc.UserMessage(part.Err))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), part.Text)
			return err
		},
	}
}

func newRefsCmd(lo *loadOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refs FILE",
		Short: "Register relationship references and print them by target part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return &openError{err: err}
			}
			logger := loggerFromContext(cmd.Context())
			ws := opc.NewWorkspace(lo.readOptions(logger)...)
			m, err := ws.Load(data)
			if err != nil {
				return &openError{err: err}
			}
			n := opc.RegisterRelationshipReferences(m, ws.References())
			logger.Debug("references registered", "count", n)

			var targets []string
			for _, ir := range m.AllRelationships() {
				if !slices.Contains(targets, ir.ResolvedTarget) {
					targets = append(targets, ir.ResolvedTarget)
				}
			}
			slices.Sort(targets)

			w := cmd.OutOrStdout()
			for _, target := range targets {
				sources := ws.References().ReferencesTo(target, "", "")
				if len(sources) == 0 {
					continue
				}
				fmt.Fprintln(w, target)
				for _, s := range sources {
					fmt.Fprintf(w, "  <- %s %s=%q (%s)\n", s.Path, s.Attribute, s.Value, s.Label)
				}
			}
			return nil
		},
	}
}

func newManifestCmd(lo *loadOptions) *cobra.Command {
	var (
		output string
		comp   string
	)
	cmd := &cobra.Command{
		Use:   "manifest FILE",
		Short: "Export a manifest of parts and relationships",
		Long: `Export a manifest of parts and relationships.

Without --output the manifest is printed as indented JSON. With --output it is
written in framed binary form, compressed with --compression.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opc.ParseCompression(comp)
			if err != nil {
				return err
			}
			m, err := loadPackage(cmd, lo, args[0])
			if err != nil {
				return err
			}
			man := opc.BuildManifest(m)
			if output == "" {
				b, err := json.MarshalIndent(man, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return err
			}
			var buf bytes.Buffer
			if err := opc.EncodeManifest(&buf, man, c); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("manifest written", "path", output, "compression", c, "bytes", buf.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the framed manifest to this file")
	cmd.Flags().StringVarP(&comp, "compression", "c", opc.CompZSTD.String(), "none, zip, zstd, lz4 or br")
	return cmd
}
