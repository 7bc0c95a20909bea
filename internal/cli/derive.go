package cli

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/cypherock/x1wallet/pkg/btcsigner"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/evmsigner"
	"github.com/spf13/cobra"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive addresses from a mnemonic",
	Long: `Derive addresses from a BIP-39 mnemonic using a BIP-44 path, the same
derivation pkg/flow's get_xpubs/get_public_key handlers run on-device.

Default derivation path is m/44'/60'/0'/0 (Ethereum); pass --chain btc for
m/84'/0'/0'/0 (native segwit Bitcoin).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		basePath, _ := cmd.Flags().GetString("path")
		count, _ := cmd.Flags().GetInt("count")
		showPrivate, _ := cmd.Flags().GetBool("private")
		chain, _ := cmd.Flags().GetString("chain")
		if chain == "btc" && !cmd.Flags().Changed("path") {
			basePath = "m/84'/0'/0'/0"
		}

		if mnemonic == "" {
			return fmt.Errorf("mnemonic phrase is required")
		}
		if !cryptokit.ValidateMnemonic(mnemonic) {
			return fmt.Errorf("invalid mnemonic phrase")
		}

		seed, err := cryptokit.SeedFromMnemonic(mnemonic, "")
		if err != nil {
			return fmt.Errorf("failed to derive seed: %w", err)
		}

		fmt.Printf("Derivation Path: %s\n", basePath)
		fmt.Printf("Deriving %d address(es) for %s:\n\n", count, chain)

		for i := 0; i < count; i++ {
			pathWithIndex := fmt.Sprintf("%s/%d", basePath, i)
			path, err := parseDerivationPath(pathWithIndex)
			if err != nil {
				return fmt.Errorf("failed to parse derivation path %s: %w", pathWithIndex, err)
			}

			fmt.Printf("Index %d:\n", i)
			fmt.Printf("  Path:    %s\n", pathWithIndex)

			switch chain {
			case "btc":
				if err := btcsigner.ValidateDerivationPath(path, btcsigner.PurposeNativeSegwit); err != nil {
					return fmt.Errorf("invalid bitcoin path %s: %w", pathWithIndex, err)
				}
				addr, err := btcsigner.DeriveAddress(seed, path, btcsigner.MainnetParams)
				if err != nil {
					return fmt.Errorf("failed to derive address for path %s: %w", pathWithIndex, err)
				}
				fmt.Printf("  Address: %s\n", addr)
			default:
				if err := evmsigner.ValidateDerivationPath(path); err != nil {
					return fmt.Errorf("invalid evm path %s: %w", pathWithIndex, err)
				}
				addr, err := evmsigner.DeriveAddress(seed, path)
				if err != nil {
					return fmt.Errorf("failed to derive address for path %s: %w", pathWithIndex, err)
				}
				fmt.Printf("  Address: 0x%s\n", hex.EncodeToString(addr[:]))
			}

			if showPrivate {
				master, err := cryptokit.NewMasterNode(seed)
				if err != nil {
					return fmt.Errorf("failed to derive master node: %w", err)
				}
				node, err := master.DerivePath(path)
				if err != nil {
					return fmt.Errorf("failed to derive node for path %s: %w", pathWithIndex, err)
				}
				priv, err := node.ECPrivateKey()
				if err != nil {
					return fmt.Errorf("failed to derive private key for path %s: %w", pathWithIndex, err)
				}
				fmt.Printf("  Private: %064x\n", priv.D)
			}
			fmt.Println()
		}

		if showPrivate {
			fmt.Printf("WARNING: Private keys are shown above.\n")
			fmt.Printf("Keep them secure and never share them.\n")
		}

		return nil
	},
}

func init() {
	deriveCmd.Flags().StringP("mnemonic", "m", "", "Mnemonic phrase (required)")
	deriveCmd.Flags().StringP("path", "p", "m/44'/60'/0'/0", "Base derivation path")
	deriveCmd.Flags().StringP("chain", "c", "evm", "Target chain: evm or btc")
	deriveCmd.Flags().IntP("count", "n", 1, "Number of addresses to derive")
	deriveCmd.Flags().Bool("private", false, "Show private keys (use with caution)")

	deriveCmd.MarkFlagRequired("mnemonic")
	rootCmd.AddCommand(deriveCmd)
}

// parseDerivationPath parses a "m/44'/60'/0'/0/0" style path into BIP-32
// indices, hardened levels marked with a trailing ' or h.
func parseDerivationPath(path string) ([]uint32, error) {
	segments := strings.Split(path, "/")
	if len(segments) == 0 {
		return nil, fmt.Errorf("empty derivation path")
	}
	if segments[0] == "m" {
		segments = segments[1:]
	}

	indices := make([]uint32, 0, len(segments))
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("empty path segment in %q", path)
		}
		hardened := false
		if strings.HasSuffix(seg, "'") || strings.HasSuffix(seg, "h") || strings.HasSuffix(seg, "H") {
			hardened = true
			seg = seg[:len(seg)-1]
		}
		n, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", seg, err)
		}
		index := uint32(n)
		if hardened {
			index += cryptokit.HardenedOffset
		}
		indices = append(indices, index)
	}
	return indices, nil
}
