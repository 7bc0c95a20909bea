package flow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cypherock/x1wallet/pkg/consent"
	"github.com/cypherock/x1wallet/pkg/evmsigner"
	"github.com/cypherock/x1wallet/pkg/hostproto"
)

const (
	evmKindSignTxn byte = 1
	evmKindSignMsg byte = 2
)

const (
	msgTypePersonalSign byte = 1
	msgTypeEthSign      byte = 2
	msgTypeSignTyped    byte = 3
)

// EvmApp implements the EVM family's flow handler (spec §6 "EVM family:
// sign_txn, sign_msg").
type EvmApp struct {
	Seed     SeedProvider
	Decimals uint8
}

func (a *EvmApp) Handle(ctx context.Context, uc consent.UserConsent, body []byte) ([]byte, error) {
	if len(body) < 1 {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	switch body[0] {
	case evmKindSignTxn:
		return a.handleSignTxn(ctx, uc, body[1:])
	case evmKindSignMsg:
		return a.handleSignMsg(ctx, uc, body[1:])
	default:
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
}

func (a *EvmApp) seed(ctx context.Context) ([]byte, func(), error) {
	if a.Seed == nil {
		return nil, nil, ErrCardSeedUnavailable
	}
	return a.Seed(ctx)
}

func (a *EvmApp) handleSignTxn(ctx context.Context, uc consent.UserConsent, body []byte) ([]byte, error) {
	path, body, err := takePath(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	chainID, body, err := takeUint64(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	rawTx, body, err := takeBlob16(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	whitelist, _, err := decodeWhitelist(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}

	tx, err := evmsigner.DecodeTransaction(rawTx, chainID)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidData, 0)
	}
	if err := evmsigner.ValidateTransaction(tx, whitelist); err != nil {
		return nil, NewAppError(hostproto.ErrInvalidData, 0)
	}

	class, call, err := evmsigner.ClassifyPayload(tx.Data)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidData, 0)
	}
	prompt := consent.Prompt{Title: "Confirm transaction", Fee: evmsigner.FormatAmount(evmsigner.Fee(tx), a.Decimals)}
	if class == evmsigner.PayloadBlindSign {
		prompt.BlindSign = true
		prompt.Lines = append(prompt.Lines, "unverified contract call")
	} else if call != nil {
		prompt.Lines = append(prompt.Lines, fmt.Sprintf("call %s", call.Title))
	}
	if err := consent.AwaitUserConfirm(ctx, uc, prompt); err != nil {
		return nil, NewAppError(hostproto.ErrUserRejection, 0)
	}

	digest := evmsigner.SigningDigest(tx)

	seed, cleanup, err := a.seed(ctx)
	if err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	defer cleanup()

	sig, err := evmsigner.SignDigest(seed, path, digest)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	return sig[:], nil
}

func (a *EvmApp) handleSignMsg(ctx context.Context, uc consent.UserConsent, body []byte) ([]byte, error) {
	path, body, err := takePath(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	if len(body) < 1 {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	msgType := body[0]
	payload, _, err := takeBlob16(body[1:])
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}

	var digest [32]byte
	prompt := consent.Prompt{Title: "Confirm signature request"}
	switch msgType {
	case msgTypePersonalSign:
		digest = evmsigner.PersonalSignDigest(payload)
		prompt.Lines = []string{string(payload)}
	case msgTypeEthSign:
		digest, err = evmsigner.EthSignDigest(payload)
		if err != nil {
			return nil, NewAppError(hostproto.ErrInvalidData, 0)
		}
		prompt.Lines = []string{"raw hash signing (unsafe)"}
	case msgTypeSignTyped:
		var td evmsigner.TypedData
		if err := json.Unmarshal(payload, &td); err != nil {
			return nil, NewAppError(hostproto.ErrInvalidData, 0)
		}
		digest, err = evmsigner.HashTypedData(td)
		if err != nil {
			return nil, NewAppError(hostproto.ErrInvalidData, 0)
		}
		prompt.Lines = []string{"typed data: " + td.PrimaryType}
	default:
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}

	if err := consent.AwaitUserConfirm(ctx, uc, prompt); err != nil {
		return nil, NewAppError(hostproto.ErrUserRejection, 0)
	}

	seed, cleanup, err := a.seed(ctx)
	if err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	defer cleanup()

	sig, err := evmsigner.SignDigest(seed, path, digest)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	return sig[:], nil
}

func decodeWhitelist(b []byte) ([]evmsigner.WhitelistedToken, []byte, error) {
	if len(b) < 1 {
		return nil, nil, ErrMalformedBody
	}
	n := int(b[0])
	b = b[1:]
	tokens := make([]evmsigner.WhitelistedToken, n)
	for i := 0; i < n; i++ {
		if len(b) < 21 {
			return nil, nil, ErrMalformedBody
		}
		copy(tokens[i].Address[:], b[:20])
		tokens[i].Decimals = b[20]
		b = b[21:]
		var symbol []byte
		var err error
		symbol, b, err = takeBlob16(b)
		if err != nil {
			return nil, nil, err
		}
		tokens[i].Symbol = string(symbol)
	}
	return tokens, b, nil
}
