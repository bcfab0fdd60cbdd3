package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lexka/ragboot/internal/index"
)

// Defaults rooted at the persistent disk mounted on deploy hosts.
const (
	DefaultDataDir = "/var/data"
	DefaultPort    = 8501
)

// Environment variables recognized by ragboot. Each is optional;
// INDEX_BUNDLE_URL is required only when a restore is triggered.
const (
	EnvDataDir   = "DATA_DIR"
	EnvIndexDir  = "INDEX_DIR"
	EnvChromaDir = "CHROMA_DIR"
	EnvBM25Path  = "BM25_PATH"
	EnvMetaPath  = "META_PATH"
	EnvBundleURL = "INDEX_BUNDLE_URL"
	EnvPort      = "PORT"
)

// Settings is the resolved run configuration. It is built once per run and
// passed by value to whatever needs it; ragboot never mutates its own
// process environment.
type Settings struct {
	Index     index.Location
	BundleURL string
	Port      int
}

// Resolve derives Settings from the process environment with a dotenv
// fallback. Unset path variables fall back to paths computed from the
// resolved data root and index root.
func Resolve() (*Settings, error) {
	dataDir, err := lookup(EnvDataDir, DefaultDataDir)
	if err != nil {
		return nil, err
	}
	indexDir, err := lookup(EnvIndexDir, filepath.Join(dataDir, "index"))
	if err != nil {
		return nil, err
	}
	chromaDir, err := lookup(EnvChromaDir, filepath.Join(indexDir, "chroma"))
	if err != nil {
		return nil, err
	}
	bm25Path, err := lookup(EnvBM25Path, filepath.Join(indexDir, "bm25.pkl"))
	if err != nil {
		return nil, err
	}
	metaPath, err := lookup(EnvMetaPath, filepath.Join(indexDir, "meta.pkl"))
	if err != nil {
		return nil, err
	}
	bundleURL, err := lookup(EnvBundleURL, "")
	if err != nil {
		return nil, err
	}
	portStr, err := lookup(EnvPort, strconv.Itoa(DefaultPort))
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid %s %q: expected a port number", EnvPort, portStr)
	}

	return &Settings{
		Index: index.Location{
			DataDir:   dataDir,
			IndexDir:  indexDir,
			ChromaDir: chromaDir,
			BM25Path:  bm25Path,
			MetaPath:  metaPath,
		},
		BundleURL: bundleURL,
		Port:      port,
	}, nil
}

// lookup returns the effective value for key, falling back to def when the
// key is unset in both the environment and the dotenv file.
func lookup(key, def string) (string, error) {
	v, err := GetConfigValue(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

// FileConfigName is the optional per-deployment config file, looked up in
// the working directory the way the application's own files are.
const FileConfigName = "ragboot.yaml"

// AppConfig describes the downstream application server process.
type AppConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Bind    string   `yaml:"bind"`
}

// FileConfig is the in-memory representation of ragboot.yaml.
type FileConfig struct {
	App AppConfig         `yaml:"app"`
	Env map[string]string `yaml:"env,omitempty"`
}

// DefaultFileConfig returns the configuration used when no ragboot.yaml is
// present: the Streamlit app exactly as the original deployment ran it.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		App: AppConfig{
			Command: "streamlit",
			Args:    []string{"run", "src/app.py"},
			Bind:    "0.0.0.0",
		},
	}
}

// LoadFile reads and parses ragboot.yaml from path. A missing file is not an
// error; defaults are returned. Fields left empty in the file keep their
// defaults.
func LoadFile(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if cfg.App.Command == "" {
		cfg.App.Command = "streamlit"
	}
	if cfg.App.Bind == "" {
		cfg.App.Bind = "0.0.0.0"
	}
	return cfg, nil
}
