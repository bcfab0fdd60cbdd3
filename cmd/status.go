package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexka/ragboot/internal/config"
	"github.com/lexka/ragboot/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report index artifacts and detected layout",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	st, err := config.Resolve()
	if err != nil {
		return err
	}

	printSection("Index Health")
	var present, missing int
	for _, a := range st.Index.Artifacts() {
		info, statErr := os.Stat(a.Path)
		switch {
		case statErr == nil && info.IsDir() == a.Dir:
			printOK(a.Name, a.Path)
			present++
		case statErr == nil:
			// Exists but is the wrong kind; counts as missing.
			printErr(a.Name, fmt.Sprintf("%s exists but is not a %s", a.Path, kindWord(a.Dir)))
			missing++
		default:
			printMiss(a.Name, a.Path)
			missing++
		}
	}

	fmt.Println()
	printInfo("", fmt.Sprintf("data root:  %s", st.Index.DataDir))
	printInfo("", fmt.Sprintf("index root: %s", st.Index.IndexDir))
	printInfo("", fmt.Sprintf("layout:     %s", index.DetectLayout(st.Index)))
	if st.BundleURL == "" {
		printWarn("", "INDEX_BUNDLE_URL is not set — a restore would fail")
	} else {
		printInfo("", fmt.Sprintf("bundle:     %s", st.BundleURL))
	}

	fmt.Printf("\n  %d present / %d missing  (total: 3 artifacts)\n", present, missing)
	if missing > 0 {
		return fmt.Errorf("index is incomplete (run 'ragboot restore')")
	}
	return nil
}

func kindWord(dir bool) string {
	if dir {
		return "directory"
	}
	return "file"
}
