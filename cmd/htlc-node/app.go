package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"etomic.dev/swap/crypto"
	"etomic.dev/swap/node"

	cli "github.com/urfave/cli"
)

// GitRevision is set with build
var GitRevision = "unknownVersion"

var kdfParams = crypto.DefaultKDFParams

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func run(args []string, stdout, stderr io.Writer) int {
	app := getApp(stdout, stderr)
	if err := app.Run(args); err != nil {
		var ce *configError
		if errors.As(err, &ce) {
			_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", ce.err)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func getApp(stdout, stderr io.Writer) *cli.App {
	defaults := node.DefaultConfig()

	app := cli.NewApp()
	app.Name = "htlc-node"
	app.Usage = "hash time locked swaps against a local ledger"
	app.Version = GitRevision
	app.Writer = stdout
	app.ErrWriter = stderr

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to a JSON config file (defaults apply when unset)",
		},
		cli.StringFlag{
			Name:  "datadir",
			Value: defaults.DataDir,
			Usage: "node data directory",
		},
		cli.StringFlag{
			Name:  "network",
			Value: defaults.Network,
			Usage: "network name (devnet/testnet/mainnet)",
		},
		cli.StringFlag{
			Name:  "program-id",
			Usage: "engine identity (base58)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: defaults.LogLevel,
			Usage: "log level: trace|debug|info|warn|error|critical|off",
		},
		cli.StringFlag{
			Name:  "keystore",
			Usage: "keystore path (default <datadir>/keystore.json)",
		},
		cli.StringFlag{
			Name:   "passphrase",
			Usage:  "keystore passphrase",
			EnvVar: "HTLC_PASSPHRASE",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "init",
			Usage:  "write the effective config and create the ledger",
			Action: initCmd,
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "overwrite", Usage: "replace an existing config file"},
			},
		},
		{
			Name:   "keygen",
			Usage:  "generate an identity and seal it into the keystore",
			Action: keygenCmd,
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "overwrite", Usage: "replace an existing keystore"},
			},
		},
		{
			Name:   "whoami",
			Usage:  "print the identity held in the keystore",
			Action: whoamiCmd,
		},
		{
			Name:   "credit",
			Usage:  "faucet: add balance to an identity (devnet only)",
			Action: creditCmd,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "id", Usage: "identity to credit (default: keystore identity)"},
				cli.StringFlag{Name: "asset", Usage: "asset class (default: native)"},
				cli.Uint64Flag{Name: "amount", Usage: "amount to credit"},
			},
		},
		{
			Name:   "balance",
			Usage:  "print an identity's balance",
			Action: balanceCmd,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "id", Usage: "identity (default: keystore identity)"},
				cli.StringFlag{Name: "asset", Usage: "asset class (default: native)"},
			},
		},
		{
			Name:   "pay",
			Usage:  "escrow a payment to a receiver",
			Action: payCmd,
			Flags: append(termFlags("receiver", "secret-hash"),
				cli.Uint64Flag{Name: "funding", Usage: "data vault rent (default: config default_funding)"},
			),
		},
		{
			Name:   "spend",
			Usage:  "claim an escrow by disclosing its secret",
			Action: spendCmd,
			Flags: append(termFlags("sender", ""),
				cli.StringFlag{Name: "secret", Usage: "32-byte secret (hex)"},
			),
		},
		{
			Name:   "refund",
			Usage:  "reclaim an escrow after its lock time",
			Action: refundCmd,
			Flags: append(termFlags("receiver", "secret-hash"),
				cli.BoolFlag{Name: "wait", Usage: "retry until the lock time passes"},
			),
		},
		{
			Name:   "show",
			Usage:  "print the payment record of a swap",
			Action: showCmd,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "secret-hash", Usage: "sha256 of the secret (hex)"},
				cli.Uint64Flag{Name: "lock-time", Usage: "lock time (unix seconds)"},
			},
		},
		{
			Name:   "secret",
			Usage:  "print the secret disclosed for a secret hash",
			Action: secretCmd,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "secret-hash", Usage: "sha256 of the secret (hex)"},
			},
		},
		{
			Name:   "journal",
			Usage:  "print accepted operations",
			Action: journalCmd,
			Flags: []cli.Flag{
				cli.Uint64Flag{Name: "after", Usage: "print entries with seq greater than this"},
			},
		},
	}
	return app
}

// termFlags returns the swap term flags. counterparty names the party not
// held by the caller's key.
func termFlags(counterparty, hashFlag string) []cli.Flag {
	flags := []cli.Flag{
		cli.StringFlag{Name: counterparty, Usage: counterparty + " identity (base58)"},
		cli.Uint64Flag{Name: "lock-time", Usage: "lock time (unix seconds)"},
		cli.Uint64Flag{Name: "amount", Usage: "escrowed amount"},
		cli.StringFlag{Name: "asset", Usage: "asset class (default: native)"},
	}
	if hashFlag != "" {
		flags = append(flags, cli.StringFlag{Name: hashFlag, Usage: "sha256 of the secret (hex)"})
	}
	return flags
}

// loadConfig resolves the effective config: file (or defaults), then any
// global flag set explicitly.
func loadConfig(c *cli.Context) (node.Config, error) {
	cfg := node.DefaultConfig()
	if path := c.GlobalString("config"); path != "" {
		loaded, err := node.LoadConfig(path)
		if err != nil {
			return cfg, &configError{err}
		}
		cfg = loaded
	}
	keystoreFromDir := !c.GlobalIsSet("keystore") && cfg.KeystorePath == node.DefaultConfig().KeystorePath
	if c.GlobalIsSet("datadir") {
		cfg.DataDir = c.GlobalString("datadir")
	}
	if c.GlobalIsSet("network") {
		cfg.Network = c.GlobalString("network")
	}
	if c.GlobalIsSet("log-level") {
		cfg.LogLevel = c.GlobalString("log-level")
	}
	if v := c.GlobalString("program-id"); v != "" {
		cfg.ProgramID = v
	}
	if v := c.GlobalString("keystore"); v != "" {
		cfg.KeystorePath = v
	} else if keystoreFromDir {
		cfg.KeystorePath = filepath.Join(cfg.DataDir, "keystore.json")
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := node.ValidateConfig(cfg); err != nil {
		return cfg, &configError{err}
	}
	return cfg, nil
}

// openNode opens the ledger with logging on the app's error writer.
func openNode(c *cli.Context) (*node.Node, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logging, err := node.NewLogging(c.App.ErrWriter, cfg.LogLevel)
	if err != nil {
		return nil, &configError{err}
	}
	return node.Open(cfg, logging)
}

func openKey(c *cli.Context, cfg node.Config) (*node.Key, error) {
	pass := c.GlobalString("passphrase")
	if pass == "" {
		return nil, errors.New("passphrase required (--passphrase or HTLC_PASSPHRASE)")
	}
	return node.OpenKeystore(cfg.KeystorePath, []byte(pass))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
