package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/catnames/catctl/internal/core"
	"github.com/catnames/catctl/internal/listing"
	"github.com/catnames/catctl/internal/metrics"
	"github.com/catnames/catctl/internal/registry"
	"github.com/catnames/catctl/internal/wallet"
)

// passwordEnv supplies the keystore password to non-interactive runs.
const passwordEnv = "CATCTL_PASSWORD"

type appOptions struct {
	approver wallet.Approver
	onChange func()
	// requireWallet fails instead of falling back to a read-only registry.
	requireWallet bool
}

// app is everything a command needs, wired from the loaded config.
type app struct {
	ctrl     *core.Controller
	registry *registry.Client
	provider *wallet.LocalProvider
	readOnly *registry.ReadOnlyConn
}

func buildApp(ctx context.Context, opts appOptions) (*app, error) {
	a := &app{}

	var provider wallet.Provider
	var conn registry.Conn
	key, err := unlockWallet()
	switch {
	case err == nil:
		chains, err := wallet.OpenChainStore(cfg.ChainStore)
		if err != nil {
			return nil, err
		}
		a.provider = wallet.NewLocalProvider(key, opts.approver, chains)
		provider, conn = a.provider, a.provider
		log.Debug().Str("account", key.Address().Hex()).Str("chain", chains.Current().ChainID).Msg("Wallet unlocked")
	case errors.Is(err, core.ErrNoProvider) && !opts.requireWallet:
		log.Info().Msg("No keystore selected, running without a wallet")
		a.readOnly = registry.NewReadOnlyConn(core.RequiredNetwork().RPCURL)
		conn = a.readOnly
	default:
		return nil, err
	}

	client, err := registry.New(cfg.Contract(), conn)
	if err != nil {
		return nil, err
	}
	a.registry = client

	rec, err := newRecorder(ctx)
	if err != nil {
		return nil, err
	}

	a.ctrl = core.NewController(
		wallet.NewManager(provider),
		client,
		listing.New(client, listing.WithConcurrency(cfg.FetchConcurrency)),
		core.Options{
			RefreshDelay: cfg.RefreshDelay,
			Metrics:      rec,
			OnChange:     opts.onChange,
		},
	)
	return a, nil
}

// newRecorder registers the collectors and, when metrics_addr is set, serves them until ctx is done.
func newRecorder(ctx context.Context) (*metrics.Recorder, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, err
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}
	return rec, nil
}

// ready loads the session, asks the wallet for an account when none is connected and
// checks the required network.
func (a *app) ready(ctx context.Context) error {
	if err := a.ctrl.RefreshSession(ctx); err != nil {
		return err
	}
	if !a.ctrl.Session().Connected() {
		if err := a.ctrl.ConnectWallet(ctx); err != nil {
			return err
		}
	}
	if !a.ctrl.Session().OnTargetNetwork() {
		return errors.Wrap(core.ErrWrongNetwork, "run `catctl switch-network`")
	}
	return nil
}

func (a *app) Close() {
	if a.provider != nil {
		a.provider.Close()
	}
	if a.readOnly != nil {
		a.readOnly.Close()
	}
}

// readOnlyRegistry reads the registry on the required network without a wallet.
func readOnlyRegistry() (*registry.Client, *registry.ReadOnlyConn, error) {
	conn := registry.NewReadOnlyConn(core.RequiredNetwork().RPCURL)
	client, err := registry.New(cfg.Contract(), conn)
	if err != nil {
		return nil, nil, err
	}
	return client, conn, nil
}

// unlockWallet decrypts the selected keystore. It returns core.ErrNoProvider when none is selected.
func unlockWallet() (*wallet.Keypair, error) {
	if cfg.Keystore == "" {
		return nil, core.ErrNoProvider
	}
	ks, err := wallet.LoadKeystore(cfg.Keystore)
	if err != nil {
		return nil, err
	}
	password, err := readPassword(fmt.Sprintf("Password for %s: ", ks.AccountAddress().Hex()))
	if err != nil {
		return nil, err
	}
	return wallet.DecryptKeystore(ks, password)
}

func readPassword(prompt string) (string, error) {
	if p, ok := os.LookupEnv(passwordEnv); ok {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.Errorf("stdin is not a terminal, set %s", passwordEnv)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func approverFor(yes bool) wallet.Approver {
	if yes {
		return wallet.AutoApprover{Allow: true}
	}
	return wallet.NewTerminalApprover()
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
