package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catnames/catctl/internal/config"
	"github.com/catnames/catctl/internal/wallet"
)

const minPasswordLength = 8

func addWalletCommands(root *cobra.Command) {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Local wallet (keystore) commands",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a key and save it as an encrypted keystore",
		Args:  cobra.NoArgs,
		Run:   runWalletNew,
	}
	newCmd.Flags().String("name", "", "Label used in the keystore filename")
	newCmd.Flags().Bool("light", false, "Use light scrypt parameters (faster, weaker)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List keystores in the wallet directory",
		Args:  cobra.NoArgs,
		Run:   runWalletList,
	}

	useCmd := &cobra.Command{
		Use:   "use <keystore|address>",
		Short: "Select the keystore catctl signs with",
		Args:  cobra.ExactArgs(1),
		Run:   runWalletUse,
	}

	walletCmd.AddCommand(newCmd, listCmd, useCmd)
	root.AddCommand(walletCmd)
}

func runWalletNew(cmd *cobra.Command, args []string) {
	label, _ := cmd.Flags().GetString("name")
	light, _ := cmd.Flags().GetBool("light")

	password, err := readNewPassword()
	exitOnErr(err)

	kp, err := wallet.GenerateKeypair()
	exitOnErr(err)

	var ks *wallet.Keystore
	if light {
		ks, err = wallet.CreateKeystoreLight(kp, password)
	} else {
		fmt.Fprintln(os.Stderr, "Encrypting keystore (this takes a few seconds)...")
		ks, err = wallet.CreateKeystore(kp, password)
	}
	exitOnErr(err)

	path := filepath.Join(cfg.WalletDir, wallet.KeystoreFilename(label, kp.Address(), time.Now()))
	exitOnErr(wallet.SaveKeystore(ks, path))
	log.Info().Str("address", kp.Address().Hex()).Str("path", path).Msg("Keystore created")

	selected := false
	if cfg.Keystore == "" {
		exitOnErr(cfg.Persist(config.KeyKeystore, path))
		selected = true
	}

	if jsonOutput {
		printJSON(map[string]any{
			"address":  kp.Address().Hex(),
			"path":     path,
			"selected": selected,
		})
		return
	}
	fmt.Printf("Address:  %s\n", kp.Address().Hex())
	fmt.Printf("Keystore: %s\n", path)
	if selected {
		fmt.Println("Selected as the active wallet.")
	} else {
		fmt.Printf("Select it with: catctl wallet use %s\n", filepath.Base(path))
	}
	fmt.Println("Fund it with test MATIC before minting.")
}

func runWalletList(cmd *cobra.Command, args []string) {
	list, err := wallet.ListKeystores(cfg.WalletDir)
	exitOnErr(err)

	if jsonOutput {
		type keystoreJSON struct {
			wallet.KeystoreInfo
			Selected bool `json:"selected"`
		}
		out := make([]keystoreJSON, len(list))
		for i, k := range list {
			out[i] = keystoreJSON{KeystoreInfo: k, Selected: k.Path == cfg.Keystore}
		}
		printJSON(out)
		return
	}

	if len(list) == 0 {
		fmt.Printf("No keystores in %s. Create one with: catctl wallet new\n", cfg.WalletDir)
		return
	}
	for _, k := range list {
		marker := " "
		if k.Path == cfg.Keystore {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, k.Address, k.Filename)
	}
}

func runWalletUse(cmd *cobra.Command, args []string) {
	list, err := wallet.ListKeystores(cfg.WalletDir)
	exitOnErr(err)

	k, err := findKeystore(list, args[0])
	exitOnErr(err)
	exitOnErr(cfg.Persist(config.KeyKeystore, k.Path))
	fmt.Printf("Using %s (%s)\n", k.Address, k.Filename)
}

// findKeystore matches ref against a filename, a path or an address.
func findKeystore(list []wallet.KeystoreInfo, ref string) (wallet.KeystoreInfo, error) {
	if abs, err := filepath.Abs(ref); err == nil {
		for _, k := range list {
			if p, _ := filepath.Abs(k.Path); p == abs {
				return k, nil
			}
		}
	}
	var matches []wallet.KeystoreInfo
	for _, k := range list {
		if k.Filename == ref || strings.EqualFold(k.Address, ref) {
			matches = append(matches, k)
		}
	}
	switch len(matches) {
	case 0:
		return wallet.KeystoreInfo{}, errors.Errorf("no keystore matches %q", ref)
	case 1:
		return matches[0], nil
	}
	return wallet.KeystoreInfo{}, errors.Errorf("%d keystores match %q, use the filename", len(matches), ref)
}

func readNewPassword() (string, error) {
	if p, ok := os.LookupEnv(passwordEnv); ok {
		if len(p) < minPasswordLength {
			return "", errors.Errorf("password must be at least %d characters", minPasswordLength)
		}
		return p, nil
	}
	password, err := readPassword("New password: ")
	if err != nil {
		return "", err
	}
	if len(password) < minPasswordLength {
		return "", errors.Errorf("password must be at least %d characters", minPasswordLength)
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if confirm != password {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}
