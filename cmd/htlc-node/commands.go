package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"etomic.dev/swap/node"
	"etomic.dev/swap/swap"

	cli "github.com/urfave/cli"
)

type effectView struct {
	Op         string        `json:"op"`
	Caller     swap.Identity `json:"caller"`
	DataVault  swap.Identity `json:"data_vault"`
	FundsVault swap.Identity `json:"funds_vault"`
	State      string        `json:"state"`
	LockTime   uint64        `json:"lock_time"`
	Secret     *node.Hash    `json:"secret,omitempty"`
}

func viewEffect(e *swap.Effect) effectView {
	v := effectView{
		Op:         swap.TagName(e.Tag),
		Caller:     e.Caller,
		DataVault:  e.DataVault,
		FundsVault: e.FundsVault,
		State:      e.Record.State.String(),
		LockTime:   e.Record.LockTime,
	}
	if e.Secret != nil {
		s := node.Hash(*e.Secret)
		v.Secret = &s
	}
	return v
}

type journalView struct {
	Seq       uint64         `json:"seq"`
	Time      uint64         `json:"time"`
	Op        string         `json:"op"`
	Caller    swap.Identity  `json:"caller"`
	DataVault swap.Identity  `json:"data_vault"`
	State     string         `json:"state"`
	Movements []movementView `json:"movements"`
}

type movementView struct {
	From   swap.Identity `json:"from"`
	To     swap.Identity `json:"to"`
	Asset  swap.Identity `json:"asset"`
	Amount uint64        `json:"amount"`
}

func initCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	path := c.GlobalString("config")
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}
	if err := node.WriteConfig(path, cfg, c.Bool("overwrite")); err != nil {
		return err
	}
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.Close()
	return writeJSON(c.App.Writer, map[string]string{
		"config":     path,
		"ledger":     n.Store().Dir(),
		"program_id": n.ProgramID().String(),
	})
}

func keygenCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	pass := c.GlobalString("passphrase")
	if pass == "" {
		return errors.New("passphrase required (--passphrase or HTLC_PASSPHRASE)")
	}
	k, err := node.GenerateKey()
	if err != nil {
		return err
	}
	ks, err := node.SealKey(k, []byte(pass), kdfParams)
	if err != nil {
		return err
	}
	if err := node.WriteKeystore(cfg.KeystorePath, ks, c.Bool("overwrite")); err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]string{
		"identity": k.Identity().String(),
		"keystore": cfg.KeystorePath,
	})
}

func whoamiCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ks, err := node.ReadKeystore(cfg.KeystorePath)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]string{"identity": ks.Identity.String()})
}

// identityOrSelf parses the named flag, falling back to the keystore
// identity when it is unset.
func identityOrSelf(c *cli.Context, cfg node.Config, name string) (swap.Identity, error) {
	if v := c.String(name); v != "" {
		return parseIdentity(v, name)
	}
	ks, err := node.ReadKeystore(cfg.KeystorePath)
	if err != nil {
		return swap.Identity{}, fmt.Errorf("--%s not set and keystore unreadable: %w", name, err)
	}
	return ks.Identity, nil
}

func creditCmd(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.Close()
	id, err := identityOrSelf(c, n.Config(), "id")
	if err != nil {
		return err
	}
	asset, err := optionalIdentity(c, "asset")
	if err != nil {
		return err
	}
	if err := n.Credit(id, asset, c.Uint64("amount")); err != nil {
		return err
	}
	return printBalance(c, n, id, asset)
}

func balanceCmd(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.Close()
	id, err := identityOrSelf(c, n.Config(), "id")
	if err != nil {
		return err
	}
	asset, err := optionalIdentity(c, "asset")
	if err != nil {
		return err
	}
	return printBalance(c, n, id, asset)
}

func printBalance(c *cli.Context, n *node.Node, id, asset swap.Identity) error {
	bal, err := n.Store().Balance(id, asset)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, struct {
		ID      swap.Identity `json:"id"`
		Asset   swap.Identity `json:"asset"`
		Balance uint64        `json:"balance"`
	}{id, asset, bal})
}

// baseTerms fills the amount, lock time and asset shared by every swap
// command.
func baseTerms(c *cli.Context) (node.SwapTerms, error) {
	asset, err := optionalIdentity(c, "asset")
	if err != nil {
		return node.SwapTerms{}, err
	}
	return node.SwapTerms{
		LockTime:   c.Uint64("lock-time"),
		Amount:     c.Uint64("amount"),
		AssetClass: asset,
	}, nil
}

func payCmd(c *cli.Context) error {
	n, key, err := openNodeAndKey(c)
	if err != nil {
		return err
	}
	defer n.Close()
	t, err := baseTerms(c)
	if err != nil {
		return err
	}
	if t.Receiver, err = requiredIdentity(c, "receiver"); err != nil {
		return err
	}
	if t.SecretHash, err = requiredHash(c, "secret-hash"); err != nil {
		return err
	}
	t.Sender = key.Identity()
	eff, err := n.Pay(key, t, c.Uint64("funding"))
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, viewEffect(eff))
}

func spendCmd(c *cli.Context) error {
	n, key, err := openNodeAndKey(c)
	if err != nil {
		return err
	}
	defer n.Close()
	t, err := baseTerms(c)
	if err != nil {
		return err
	}
	if t.Sender, err = requiredIdentity(c, "sender"); err != nil {
		return err
	}
	secret, err := requiredHash(c, "secret")
	if err != nil {
		return err
	}
	t.Receiver = key.Identity()
	t.SecretHash = node.Hash(swap.SecretHash(secret))
	eff, err := n.Spend(key, t, secret)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, viewEffect(eff))
}

func refundCmd(c *cli.Context) error {
	n, key, err := openNodeAndKey(c)
	if err != nil {
		return err
	}
	defer n.Close()
	t, err := baseTerms(c)
	if err != nil {
		return err
	}
	if t.Receiver, err = requiredIdentity(c, "receiver"); err != nil {
		return err
	}
	if t.SecretHash, err = requiredHash(c, "secret-hash"); err != nil {
		return err
	}
	t.Sender = key.Identity()

	var eff *swap.Effect
	if c.Bool("wait") {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		policy := node.DefaultRefundPolicy
		policy.MaxWait = time.Duration(n.Config().RefundMaxWaitSeconds) * time.Second // #nosec G115 -- validated config value.
		eff, err = n.RefundWhenExpired(ctx, key, t, policy)
	} else {
		eff, err = n.Refund(key, t)
	}
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, viewEffect(eff))
}

func showCmd(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.Close()
	sh, err := requiredHash(c, "secret-hash")
	if err != nil {
		return err
	}
	rec, accts, ok, err := n.Status(node.SwapTerms{SecretHash: sh, LockTime: c.Uint64("lock-time")})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no payment record at %s", accts.DataVault)
	}
	return writeJSON(c.App.Writer, struct {
		DataVault  swap.Identity `json:"data_vault"`
		FundsVault swap.Identity `json:"funds_vault"`
		Commitment node.Hash     `json:"commitment"`
		LockTime   uint64        `json:"lock_time"`
		State      string        `json:"state"`
	}{accts.DataVault, accts.FundsVault, node.Hash(rec.Commitment), rec.LockTime, rec.State.String()})
}

func secretCmd(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.Close()
	sh, err := requiredHash(c, "secret-hash")
	if err != nil {
		return err
	}
	secret, ok, err := n.DisclosedSecret(sh)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no secret disclosed for %s", sh)
	}
	return writeJSON(c.App.Writer, map[string]node.Hash{"secret_hash": sh, "secret": secret})
}

func journalCmd(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.Close()
	entries, err := n.Store().LoadJournal(c.Uint64("after"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		v := journalView{
			Seq:       e.Seq,
			Time:      e.Time,
			Op:        swap.TagName(e.Tag),
			Caller:    e.Caller,
			DataVault: e.DataVault,
			State:     e.State.String(),
			Movements: make([]movementView, 0, len(e.Movements)),
		}
		for _, m := range e.Movements {
			v.Movements = append(v.Movements, movementView{From: m.From, To: m.To, Asset: m.Asset, Amount: m.Amount})
		}
		if err := writeJSON(c.App.Writer, v); err != nil {
			return err
		}
	}
	return nil
}

func openNodeAndKey(c *cli.Context) (*node.Node, *node.Key, error) {
	n, err := openNode(c)
	if err != nil {
		return nil, nil, err
	}
	key, err := openKey(c, n.Config())
	if err != nil {
		_ = n.Close()
		return nil, nil, err
	}
	return n, key, nil
}

func parseIdentity(s, name string) (swap.Identity, error) {
	id, err := swap.ParseIdentity(s)
	if err != nil {
		return id, fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}

func requiredIdentity(c *cli.Context, name string) (swap.Identity, error) {
	v := c.String(name)
	if v == "" {
		return swap.Identity{}, fmt.Errorf("--%s is required", name)
	}
	return parseIdentity(v, name)
}

func optionalIdentity(c *cli.Context, name string) (swap.Identity, error) {
	v := c.String(name)
	if v == "" {
		return swap.NativeAsset, nil
	}
	return parseIdentity(v, name)
}

func requiredHash(c *cli.Context, name string) (node.Hash, error) {
	v := c.String(name)
	if v == "" {
		return node.Hash{}, fmt.Errorf("--%s is required", name)
	}
	h, err := node.ParseHash(v)
	if err != nil {
		return h, fmt.Errorf("--%s: %w", name, err)
	}
	return h, nil
}
