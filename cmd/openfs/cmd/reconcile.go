package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openfs/openfs/internal/backend"
	"github.com/openfs/openfs/internal/index"
)

func newReconcileCmd() *cobra.Command {
	var apply bool

	c := &cobra.Command{
		Use:   "reconcile PATH",
		Short: "Classify files under a namespace path against the last saved index state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			doc, v, err := openVFS(cmd.Context())
			if err != nil {
				return err
			}
			defer v.Shutdown()

			mc, ok := mountByPrefix(doc, path)
			if !ok {
				return fmt.Errorf("no mount covers %q", path)
			}

			b, rel, ok := backendForMount(v, mc.Path, path)
			if !ok {
				return fmt.Errorf("mount %q not found among built mounts", mc.Path)
			}

			statePath := filepath.Join(".openfs-state", mc.Collection+".json")
			st, err := index.Load(statePath)
			if err != nil {
				return err
			}

			var current []index.FileInfo
			if err := walkFiles(cmd.Context(), b, rel, &current); err != nil {
				return err
			}

			result := index.Reconcile(st, current)
			out := cmd.OutOrStdout()
			for _, a := range result.Actions {
				fmt.Fprintf(out, "%-20s %s\n", a.Kind, a.Path)
			}
			fmt.Fprintln(out, "---")
			for kind, n := range result.Counts {
				fmt.Fprintf(out, "%-20s %d\n", kind, n)
			}

			if apply {
				for _, a := range result.Actions {
					switch a.Kind {
					case index.ActionIndex, index.ActionReindex:
						st.Files[a.Path] = index.FileState{}
					case index.ActionRemoveOrphan:
						delete(st.Files, a.Path)
					}
				}
				return index.Save(statePath, st)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&apply, "apply", false, "persist the reconciled state afterward")
	return c
}

// walkFiles recursively collects every file under dir into out.
func walkFiles(ctx context.Context, b backend.Backend, dir string, out *[]index.FileInfo) error {
	entries, err := b.List(ctx, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		full := joinRelative(dir, e.Name)
		if e.IsDir {
			if err := walkFiles(ctx, b, full, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, index.FileInfo{
			Path:     full,
			Size:     e.Size,
			Mtime:    e.Modified.UnixNano(),
			HasMtime: e.HasMod,
		})
	}
	return nil
}

func joinRelative(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
