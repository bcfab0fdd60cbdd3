package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexka/ragboot/internal/config"
	"github.com/lexka/ragboot/internal/index"
)

// restoreFlags holds flag values for the `ragboot restore` command.
type restoreFlags struct {
	force  bool
	dryRun bool
}

type restoreFlagsKey struct{}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the index from the configured bundle",
	Long: `Run only the restore step of the bootstrap. By default this is a no-op
when the index is already complete; --force discards the existing index
and restores from the bundle unconditionally.`,
	RunE: runRestore,
}

func init() {
	var f restoreFlags
	restoreCmd.Flags().BoolVar(&f.force, "force", false, "Restore even when the index is already complete")
	restoreCmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would happen without downloading or deleting anything")
	restoreCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(context.WithValue(cmd.Context(), restoreFlagsKey{}, f))
		return nil
	}
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.Context().Value(restoreFlagsKey{}).(restoreFlags)
	if !ok {
		return fmt.Errorf("internal error: restore flags missing")
	}

	st, err := config.Resolve()
	if err != nil {
		return err
	}

	printSection("ragboot restore")
	if f.dryRun {
		return restoreDryRun(st, f.force)
	}

	restored, err := index.EnsureReady(cmd.Context(), st.Index, st.BundleURL, f.force)
	if err != nil {
		return err
	}
	if restored {
		printOK("", fmt.Sprintf("index restored into %s", st.Index.IndexDir))
	} else {
		printSkip("", "index already complete — nothing to do")
	}
	return nil
}

// restoreDryRun reports the decision EnsureReady would take without touching
// the network or the volume.
func restoreDryRun(st *config.Settings, force bool) error {
	complete := st.Index.Complete()
	switch {
	case complete && !force:
		printSkip("", "index is complete — restore would be skipped")
	case st.BundleURL == "":
		printErr("", "restore is needed but INDEX_BUNDLE_URL is not set — would fail")
	default:
		printInfo("", fmt.Sprintf("would delete %s and restore from %s", st.Index.IndexDir, st.BundleURL))
	}
	printInfo("", fmt.Sprintf("detected layout: %s", index.DetectLayout(st.Index)))
	return nil
}
