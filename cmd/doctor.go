package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexka/ragboot/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that ragboot's environment is correctly configured before a
deploy. Run this command when something seems wrong, or before filing a
bug report.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("ragboot doctor")
	fmt.Println()

	// ── Check 1: settings resolve ─────────────────────────────────────────
	fmt.Println("[ settings ]")
	st, resolveErr := config.Resolve()
	if resolveErr != nil {
		failD("cannot resolve settings: %v", resolveErr)
	} else {
		printOK("", fmt.Sprintf("data root %s, index root %s, port %d",
			st.Index.DataDir, st.Index.IndexDir, st.Port))
	}
	fmt.Println()

	// ── Check 2: data root writable ───────────────────────────────────────
	fmt.Println("[ data root ]")
	if resolveErr == nil {
		if err := checkDirWritable(st.Index.DataDir); err != nil {
			failD("data root %s is not writable: %v", st.Index.DataDir, err)
		} else {
			printOK("", fmt.Sprintf("%s is writable", st.Index.DataDir))
		}
	} else {
		printWarn("", "skipped (settings not resolved)")
	}
	fmt.Println()

	// ── Check 3: bundle URL ───────────────────────────────────────────────
	fmt.Println("[ bundle URL ]")
	if resolveErr == nil {
		switch {
		case st.BundleURL == "":
			if st.Index.Complete() {
				printWarn("", "INDEX_BUNDLE_URL is not set — fine while the index stays complete, but a restore would fail")
			} else {
				failD("INDEX_BUNDLE_URL is not set and the index is incomplete — the next bootstrap will fail")
			}
		case supportedBundleScheme(st.BundleURL):
			printOK("", st.BundleURL)
		default:
			failD("unsupported bundle URL scheme: %s (expected http://, https:// or gs://)", st.BundleURL)
		}
	} else {
		printWarn("", "skipped (settings not resolved)")
	}
	fmt.Println()

	// ── Check 4: application command ──────────────────────────────────────
	fmt.Println("[ application ]")
	fileCfg, loadErr := config.LoadFile(config.FileConfigName)
	if loadErr != nil {
		failD("cannot load %s: %v", config.FileConfigName, loadErr)
	} else if _, err := exec.LookPath(fileCfg.App.Command); err != nil {
		failD("%s is not installed or not on PATH — the serve handoff will fail", fileCfg.App.Command)
	} else {
		printOK("", fmt.Sprintf("%s found on PATH", fileCfg.App.Command))
	}
	fmt.Println()

	// ── Summary ───────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. ragboot is ready.")
	} else {
		fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// checkDirWritable creates the directory if needed and probes it with a
// throwaway file.
func checkDirWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".ragboot-doctor-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}

func supportedBundleScheme(url string) bool {
	return strings.HasPrefix(url, "http://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "gs://")
}
