package node

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"etomic.dev/swap/swap"
)

type Config struct {
	Network      string `json:"network"`
	DataDir      string `json:"data_dir"`
	ProgramID    string `json:"program_id"`
	LogLevel     string `json:"log_level"`
	KeystorePath string `json:"keystore_path"`
	// DefaultFunding is the rent paid into a new data vault when a payment
	// does not name one.
	DefaultFunding uint64 `json:"default_funding"`
	// AllowCredit enables the faucet; it is refused on mainnet.
	AllowCredit bool `json:"allow_credit"`
	// RefundMaxWaitSeconds bounds how long a waiting refund keeps retrying.
	RefundMaxWaitSeconds uint64 `json:"refund_max_wait_seconds"`
}

var allowedLogLevels = map[string]struct{}{
	"trace":    {},
	"debug":    {},
	"info":     {},
	"warn":     {},
	"error":    {},
	"critical": {},
	"off":      {},
}

// DevnetProgramID is the engine identity used when none is configured.
const DevnetProgramID = "11111111111111111111111111111112"

// minFunding covers the data vault's stored record.
const minFunding = 890880

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".etomic-swap"
	}
	return filepath.Join(home, ".etomic-swap")
}

func DefaultConfig() Config {
	dataDir := DefaultDataDir()
	return Config{
		Network:              "devnet",
		DataDir:              dataDir,
		ProgramID:            DevnetProgramID,
		LogLevel:             "info",
		KeystorePath:         filepath.Join(dataDir, "keystore.json"),
		DefaultFunding:       minFunding,
		AllowCredit:          true,
		RefundMaxWaitSeconds: 3600,
	}
}

// LoadConfig reads a JSON config file over DefaultConfig. Fields absent
// from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := readFileByPath(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config json: %w", err)
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if strings.ContainsAny(cfg.Network, `/\`) || cfg.Network == "." || cfg.Network == ".." {
		return fmt.Errorf("invalid network %q", cfg.Network)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	pid, err := swap.ParseIdentity(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if pid.IsZero() {
		return errors.New("program_id must be nonzero")
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.DefaultFunding < minFunding {
		return fmt.Errorf("default_funding must be >= %d", minFunding)
	}
	if cfg.AllowCredit && cfg.Network == "mainnet" {
		return errors.New("allow_credit is not permitted on mainnet")
	}
	if cfg.RefundMaxWaitSeconds == 0 {
		return errors.New("refund_max_wait_seconds must be > 0")
	}
	return nil
}

func (cfg Config) programID() swap.Identity {
	// ValidateConfig has already accepted the value.
	id, _ := swap.ParseIdentity(cfg.ProgramID)
	return id
}

// WriteConfig stores cfg as indented JSON at path.
func WriteConfig(path string, cfg Config, overwrite bool) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(b, '\n'), overwrite)
}
