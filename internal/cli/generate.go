package cli

import (
	"fmt"
	"strings"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new mnemonic phrase",
	Long: `Generate a new cryptographically secure BIP-39 mnemonic phrase.

This mirrors the entropy a card produces for a fresh wallet; real firmware
never prints it to a terminal, so treat this command as a simulator-only
convenience for deriving test vectors.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bits, _ := cmd.Flags().GetInt("bits")

		if bits != 128 && bits != 160 && bits != 192 && bits != 224 && bits != 256 {
			return fmt.Errorf("invalid entropy bits: %d (must be 128, 160, 192, 224, or 256)", bits)
		}

		mnemonic, err := cryptokit.NewMnemonic(bits)
		if err != nil {
			return fmt.Errorf("failed to generate mnemonic: %w", err)
		}

		fmt.Printf("Generated mnemonic phrase:\n%s\n", mnemonic)
		fmt.Printf("\nEntropy: %d bits\n", bits)
		fmt.Printf("Words: %d\n", len(strings.Fields(mnemonic)))

		fmt.Printf("\nSECURITY WARNING:\n")
		fmt.Printf("Store this mnemonic phrase safely and securely.\n")
		fmt.Printf("Anyone with access to this phrase can control the derived wallets.\n")

		return nil
	},
}

func init() {
	generateCmd.Flags().IntP("bits", "b", 256, "Entropy bits (128, 160, 192, 224, or 256)")
	rootCmd.AddCommand(generateCmd)
}
