package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/catnames/catctl/internal/core"
	"github.com/catnames/catctl/internal/listing"
)

func runNetworksList(cmd *cobra.Command, args []string) {
	networks := core.ListNetworks()

	if jsonOutput {
		type networkJSON struct {
			ChainID     string              `json:"chain_id"`
			Name        string              `json:"name"`
			RPCURL      string              `json:"rpc_url,omitempty"`
			Currency    core.NativeCurrency `json:"native_currency"`
			ExplorerURL string              `json:"explorer_url,omitempty"`
			Required    bool                `json:"required"`
		}

		out := make([]networkJSON, len(networks))
		for i, n := range networks {
			out[i] = networkJSON{
				ChainID:     n.ChainID,
				Name:        n.DisplayName,
				RPCURL:      n.RPCURL,
				Currency:    n.NativeCurrency,
				ExplorerURL: n.ExplorerURL,
				Required:    n.ChainID == core.RequiredChainID,
			}
		}
		printJSON(out)
		return
	}

	fmt.Println("Known Networks:")
	fmt.Println()
	fmt.Printf("  %-10s %-24s %s\n", "CHAIN ID", "NAME", "CURRENCY")
	fmt.Println("  " + strings.Repeat("-", 46))
	for _, n := range networks {
		marker := " "
		if n.ChainID == core.RequiredChainID {
			marker = "*"
		}
		fmt.Printf("%s %-10s %-24s %s\n", marker, n.ChainID, n.DisplayName, n.NativeCurrency.Symbol)
	}
	fmt.Println()
	fmt.Println("* required for minting")
}

func runNetworksShow(cmd *cobra.Command, args []string) {
	n, err := core.GetNetwork(args[0])
	exitOnErr(err)

	if jsonOutput {
		printJSON(map[string]any{
			"chain_id":        n.ChainID,
			"name":            n.DisplayName,
			"rpc_url":         n.RPCURL,
			"native_currency": n.NativeCurrency,
			"explorer_url":    n.ExplorerURL,
			"required":        n.ChainID == core.RequiredChainID,
		})
		return
	}
	fmt.Printf("Chain ID:  %s (%s)\n", n.ChainID, n.ChainIDBig())
	fmt.Printf("Name:      %s\n", n.DisplayName)
	fmt.Printf("Currency:  %s (%s, %d decimals)\n", n.NativeCurrency.Symbol, n.NativeCurrency.Name, n.NativeCurrency.Decimals)
	if n.RPCURL != "" {
		fmt.Printf("RPC:       %s\n", n.RPCURL)
	}
	if n.ExplorerURL != "" {
		fmt.Printf("Explorer:  %s\n", n.ExplorerURL)
	}
	if n.ChainID == core.RequiredChainID {
		fmt.Println("Required for minting.")
	}
}

func runPrice(cmd *cobra.Command, args []string) {
	name := args[0]
	exitOnErr(core.ValidateName(name))
	price := core.PriceFor(name)
	symbol := core.RequiredNetwork().NativeCurrency.Symbol

	if jsonOutput {
		printJSON(map[string]any{
			"name":   core.FullName(name, cfg.TLD),
			"length": core.NameLength(name),
			"price":  price.String(),
			"wei":    core.PriceWei(name).String(),
			"symbol": symbol,
		})
		return
	}
	fmt.Printf("%s  %s %s\n", core.FullName(name, cfg.TLD), price, symbol)
}

func runNamesList(cmd *cobra.Command, args []string) {
	client, conn, err := readOnlyRegistry()
	exitOnErr(err)
	defer conn.Close()

	cache := listing.New(client, listing.WithConcurrency(cfg.FetchConcurrency))
	snap, err := cache.Refresh(cmd.Context())
	exitOnErr(err)

	if jsonOutput {
		printJSON(snap)
		return
	}
	if snap.Len() == 0 {
		fmt.Println("No names minted yet.")
		return
	}

	width := 4
	for _, e := range snap.Entries {
		width = max(width, len(core.FullName(e.Name, cfg.TLD)))
	}
	fmt.Printf("%-*s  %-42s  %s\n", width, "NAME", "OWNER", "RECORD")
	for _, e := range snap.Entries {
		fmt.Printf("%-*s  %-42s  %s\n", width, core.FullName(e.Name, cfg.TLD), e.Owner.Hex(), e.Record)
	}
}

func runResolve(cmd *cobra.Command, args []string) {
	name := args[0]
	client, conn, err := readOnlyRegistry()
	exitOnErr(err)
	defer conn.Close()

	ctx := cmd.Context()
	owner, err := client.GetOwner(ctx, name)
	exitOnErr(err)
	if owner == (common.Address{}) {
		fmt.Fprintf(os.Stderr, "%s is not minted.\n", core.FullName(name, cfg.TLD))
		os.Exit(1)
	}
	record, err := client.GetRecord(ctx, name)
	exitOnErr(err)

	if jsonOutput {
		printJSON(map[string]string{
			"name":   core.FullName(name, cfg.TLD),
			"owner":  owner.Hex(),
			"record": record,
		})
		return
	}
	fmt.Printf("Name:   %s\n", core.FullName(name, cfg.TLD))
	fmt.Printf("Owner:  %s\n", owner.Hex())
	fmt.Printf("Record: %s\n", record)
}

func runMint(cmd *cobra.Command, args []string) {
	name := args[0]
	record, _ := cmd.Flags().GetString("record")
	yes, _ := cmd.Flags().GetBool("yes")

	// Invalid names never reach the wallet.
	exitOnErr(core.ValidateName(name))

	ctx := cmd.Context()
	a, err := buildApp(ctx, appOptions{approver: approverFor(yes), requireWallet: true})
	exitOnErr(err)
	defer a.Close()
	exitOnErr(a.ready(ctx))

	a.ctrl.SetName(name)
	a.ctrl.SetRecord(record)
	full := core.FullName(name, cfg.TLD)
	if !jsonOutput {
		fmt.Printf("Minting %s for %s %s...\n", full, core.PriceFor(name), core.RequiredNetwork().NativeCurrency.Symbol)
	}

	res, err := a.ctrl.MintDomain(ctx)
	if jsonOutput {
		printJSON(map[string]any{
			"name":   full,
			"price":  res.Price.String(),
			"stage":  res.Stage.String(),
			"mint":   res.Register,
			"record": res.Record,
		})
	} else {
		if res.Register.Hash != "" {
			fmt.Printf("Mint tx:   %s\n", core.TxURL(res.Register.Hash))
		}
		if res.Record.Hash != "" {
			fmt.Printf("Record tx: %s\n", core.TxURL(res.Record.Hash))
		}
	}
	if res.Stage == core.StageMintedWithoutRecord {
		fmt.Fprintf(os.Stderr, "%s was minted but its record was not set. Retry with: catctl record set %s %q\n", full, name, record)
	}
	exitOnErr(err)

	if !jsonOutput {
		fmt.Printf("Minted %s.\n", full)
	}
}

func runRecordSet(cmd *cobra.Command, args []string) {
	name, record := args[0], args[1]
	yes, _ := cmd.Flags().GetBool("yes")

	ctx := cmd.Context()
	a, err := buildApp(ctx, appOptions{approver: approverFor(yes), requireWallet: true})
	exitOnErr(err)
	defer a.Close()
	exitOnErr(a.ready(ctx))

	exitOnErr(a.ctrl.EditRecord(name))
	a.ctrl.SetRecord(record)
	out, err := a.ctrl.UpdateDomain(ctx)
	if jsonOutput {
		printJSON(out)
	} else if out.Hash != "" {
		fmt.Printf("Record tx: %s\n", core.TxURL(out.Hash))
	}
	exitOnErr(err)

	if !jsonOutput {
		fmt.Printf("Record of %s set to %q.\n", core.FullName(name, cfg.TLD), record)
	}
}

func runSwitchNetwork(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a, err := buildApp(ctx, appOptions{approver: approverFor(false), requireWallet: true})
	exitOnErr(err)
	defer a.Close()

	exitOnErr(a.ctrl.RefreshSession(ctx))
	if a.ctrl.Session().OnTargetNetwork() {
		fmt.Printf("Wallet is already on %s.\n", core.RequiredNetwork().DisplayName)
		return
	}
	exitOnErr(a.ctrl.SwitchNetwork(ctx))
	fmt.Printf("Wallet is now on %s.\n", a.ctrl.Session().NetworkLabel())
}
