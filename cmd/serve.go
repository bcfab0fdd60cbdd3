package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lexka/ragboot/internal/config"
	"github.com/lexka/ragboot/internal/index"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ensure the index is ready, then launch the application server",
	Long: `Resolve the index location from the environment, restore the index from
the configured bundle if it is missing or incomplete, and exec the
application server with the resolved paths in its environment. An
incomplete index is never served: any restore failure aborts the launch.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	st, err := config.Resolve()
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadFile(config.FileConfigName)
	if err != nil {
		return err
	}

	printSection("ragboot serve")
	restored, err := index.EnsureReady(cmd.Context(), st.Index, st.BundleURL, false)
	if err != nil {
		return err
	}
	if restored {
		printOK("", fmt.Sprintf("index restored from bundle into %s", st.Index.IndexDir))
	} else {
		printOK("", fmt.Sprintf("index already complete at %s — restore skipped", st.Index.IndexDir))
	}

	return launchApp(st, fileCfg)
}

// launchApp starts the application server and blocks until it exits. The
// child's exit code becomes ragboot's exit code.
func launchApp(st *config.Settings, fc *config.FileConfig) error {
	args := append([]string{}, fc.App.Args...)
	if fc.App.Command == "streamlit" {
		args = append(args,
			"--server.port", strconv.Itoa(st.Port),
			"--server.address", fc.App.Bind,
		)
	}

	printInfo("", fmt.Sprintf("launching %s on %s:%d", fc.App.Command, fc.App.Bind, st.Port))

	c := exec.Command(fc.App.Command, args...)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = childEnv(st, fc)

	if err := c.Run(); err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.ExitCode())
		}
		return fmt.Errorf("cannot launch %s: %w", fc.App.Command, err)
	}
	return nil
}

// childEnv builds the child process environment: the inherited environment
// plus the resolved paths, so the application reads the same locations the
// bootstrap prepared. Later entries win on duplicate keys.
func childEnv(st *config.Settings, fc *config.FileConfig) []string {
	env := os.Environ()
	env = append(env,
		config.EnvDataDir+"="+st.Index.DataDir,
		config.EnvIndexDir+"="+st.Index.IndexDir,
		config.EnvChromaDir+"="+st.Index.ChromaDir,
		config.EnvBM25Path+"="+st.Index.BM25Path,
		config.EnvMetaPath+"="+st.Index.MetaPath,
		config.EnvPort+"="+strconv.Itoa(st.Port),
	)

	extra := make([]string, 0, len(fc.Env))
	for k, v := range fc.Env {
		extra = append(extra, k+"="+v)
	}
	sort.Strings(extra)
	return append(env, extra...)
}
