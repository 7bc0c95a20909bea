package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cypherock/x1wallet/internal/config"
	"github.com/cypherock/x1wallet/pkg/btcsigner"
	"github.com/cypherock/x1wallet/pkg/consent"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/evmsigner"
	"github.com/cypherock/x1wallet/pkg/flow"
	"github.com/cypherock/x1wallet/pkg/hostproto"
	"github.com/cypherock/x1wallet/pkg/store"
)

// terminalConsent renders prompts to stdout and reads a y/n answer from
// stdin, a host stand-in for the LVGL screens spec §1 excludes from this
// module's scope.
type terminalConsent struct {
	reader  *bufio.Reader
	autoYes bool
}

func (t *terminalConsent) Confirm(ctx context.Context, p consent.Prompt) (consent.Outcome, error) {
	fmt.Printf("\n--- %s ---\n", p.Title)
	for _, line := range p.Lines {
		fmt.Println(line)
	}
	if p.Amount != "" {
		fmt.Printf("Amount: %s\n", p.Amount)
	}
	if p.Fee != "" {
		fmt.Printf("Fee: %s\n", p.Fee)
	}
	if p.BlindSign {
		fmt.Println("WARNING: blind signing an unverified contract call")
	}
	if t.autoYes {
		fmt.Println("[auto-confirmed]")
		return consent.Confirmed, nil
	}
	fmt.Print("Confirm? [y/N]: ")
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return consent.Aborted, nil
	}
	if strings.EqualFold(strings.TrimSpace(line), "y") {
		return consent.Confirmed, nil
	}
	return consent.Rejected, nil
}

func (t *terminalConsent) ShowStatus(msg string) {
	fmt.Println(msg)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Dispatch one hex-encoded host query through the flow orchestrator",
	Long: `simulate wires pkg/flow's Orchestrator with the Bitcoin, EVM, and
Manager family apps against a store seeded from --mnemonic, the same
components real firmware assembles around its host-link loop, minus the
USB/NFC framing (pkg/transport) this binary has no hardware to drive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, _ := cmd.Flags().GetString("mnemonic")
		queryHex, _ := cmd.Flags().GetString("query")
		autoYes, _ := cmd.Flags().GetBool("yes")

		if mnemonic == "" || queryHex == "" {
			return fmt.Errorf("--mnemonic and --query are required")
		}
		if !cryptokit.ValidateMnemonic(mnemonic) {
			return fmt.Errorf("invalid mnemonic phrase")
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(queryHex, "0x"))
		if err != nil {
			return fmt.Errorf("invalid --query hex: %w", err)
		}

		st, err := store.Open("")
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer st.Close()

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("loading device config: %w", err)
		}
		if err := st.Put(store.KindDeviceConfig, "", cfg); err != nil {
			return fmt.Errorf("seeding device config: %w", err)
		}

		seed, err := cryptokit.SeedFromMnemonic(mnemonic, "")
		if err != nil {
			return fmt.Errorf("deriving seed: %w", err)
		}
		seedProvider := func(ctx context.Context) ([]byte, func(), error) {
			return seed, func() {}, nil
		}

		uc := &terminalConsent{reader: bufio.NewReader(cmd.InOrStdin()), autoYes: autoYes}
		orch := flow.New(uc)
		orch.Register(hostproto.FamilyBitcoin, &flow.BitcoinApp{Seed: seedProvider, Params: btcsigner.MainnetParams})
		orch.Register(hostproto.FamilyEvm, &flow.EvmApp{Seed: seedProvider, Decimals: 18})
		orch.Register(hostproto.FamilyManager, &flow.ManagerApp{Store: st, FirmwareVersion: version})

		result := orch.Dispatch(cmd.Context(), raw)
		if result.IsError {
			return fmt.Errorf("app error: kind=%d sub_kind=%d", result.Kind, result.SubKind)
		}
		fmt.Printf("result: %s\n", hex.EncodeToString(result.Body))
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringP("mnemonic", "m", "", "Mnemonic phrase unlocking the simulated wallet (required)")
	simulateCmd.Flags().StringP("query", "q", "", "Hex-encoded hostproto.Query bytes (required)")
	simulateCmd.Flags().Bool("yes", false, "Auto-confirm every consent prompt instead of reading from stdin")

	simulateCmd.MarkFlagRequired("mnemonic")
	simulateCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(simulateCmd)
}
