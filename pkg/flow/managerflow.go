package flow

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"

	"github.com/cypherock/x1wallet/pkg/cardsession"
	"github.com/cypherock/x1wallet/pkg/consent"
	"github.com/cypherock/x1wallet/pkg/hostproto"
	"github.com/cypherock/x1wallet/pkg/store"
)

const (
	managerKindAuthCard      byte = 1
	managerKindGetDeviceInfo byte = 2
	managerKindExportLogs    byte = 3
)

const (
	authStepInitiate  byte = 1
	authStepChallenge byte = 2
	authStepResult    byte = 3
)

// DeviceIdentity signs the device's half of the card-authentication
// handshake with the device's own identity key (spec §4.5's pairing
// signature, reused here as the card-authenticity proof get_device_info's
// callers rely on before trusting a newly selected card).
type DeviceIdentity interface {
	KeyID() [8]byte
	Sign(data []byte) ([]byte, error)
}

// ManagerApp implements the Manager family's flow handler (spec §6
// "Manager: auth_card, get_device_info, export_logs").
type ManagerApp struct {
	Store               *store.Store
	Session             *cardsession.Session
	Identity            DeviceIdentity
	VerifyCardSignature func(cardsession.PairingResponse) bool
	FirmwareVersion     string
	ExportLogs          func() ([]byte, error)

	pendingPriv *ecdh.PrivateKey
}

func (a *ManagerApp) Handle(ctx context.Context, uc consent.UserConsent, body []byte) ([]byte, error) {
	if len(body) < 1 {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	switch body[0] {
	case managerKindAuthCard:
		return a.handleAuthCard(ctx, body[1:])
	case managerKindGetDeviceInfo:
		return a.handleGetDeviceInfo()
	case managerKindExportLogs:
		return a.handleExportLogs()
	default:
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
}

func (a *ManagerApp) handleAuthCard(ctx context.Context, body []byte) ([]byte, error) {
	if len(body) < 1 {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	switch body[0] {
	case authStepInitiate:
		return a.authInitiate()
	case authStepChallenge:
		return a.authChallenge(body[1:])
	case authStepResult:
		return a.authResult()
	default:
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
}

// authInitiate draws the device's ephemeral pairing keypair and returns a
// PairingRequest for the card to answer, the device side of spec §4.5's
// handshake kicked off before any family-specific app runs.
func (a *ManagerApp) authInitiate() ([]byte, error) {
	priv, err := cardsession.GenerateEphemeralKeypair()
	if err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	a.pendingPriv = priv

	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	pubBytes := priv.PublicKey().Bytes()

	req := cardsession.PairingRequest{Nonce: nonce, PublicKey: pubBytes}
	if a.Identity != nil {
		req.DeviceKeyID = a.Identity.KeyID()
		sig, err := a.Identity.Sign(append(append([]byte{}, req.DeviceKeyID[:]...), append(req.Nonce[:], pubBytes...)...))
		if err != nil {
			return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
		}
		req.Signature = sig
	}

	resp := append([]byte{}, req.DeviceKeyID[:]...)
	resp = append(resp, req.Nonce[:]...)
	resp = putBlob16(resp, req.PublicKey)
	resp = putBlob16(resp, req.Signature)
	return resp, nil
}

// authChallenge accepts the card's PairingResponse, completes the pairing
// (spec §4.5 "the pair is persisted only on mutual verification") and
// opens a session keyed off a fresh random nonce drawn by the device.
func (a *ManagerApp) authChallenge(body []byte) ([]byte, error) {
	if a.pendingPriv == nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	if len(body) < 8 {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	var resp cardsession.PairingResponse
	copy(resp.CardKeyID[:], body[:8])
	body = body[8:]
	var err error
	resp.PublicKey, body, err = takeBlob16(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}
	resp.Signature, _, err = takeBlob16(body)
	if err != nil {
		return nil, NewAppError(hostproto.ErrInvalidRequest, 0)
	}

	verify := a.VerifyCardSignature
	if verify == nil {
		verify = func(cardsession.PairingResponse) bool { return true }
	}
	if err := a.Session.CompletePairing(a.pendingPriv, resp, verify); err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	var sessionNonce [16]byte
	if _, err := rand.Read(sessionNonce[:]); err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	if err := a.Session.OpenSession(sessionNonce[:]); err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	a.pendingPriv = nil
	return []byte{1}, nil
}

func (a *ManagerApp) authResult() ([]byte, error) {
	if a.Session != nil && a.Session.State() == cardsession.StateSessionOpen {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (a *ManagerApp) handleGetDeviceInfo() ([]byte, error) {
	if a.Store == nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	var cfg store.DeviceConfig
	if err := a.Store.Get(store.KindDeviceConfig, "", &cfg); err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}

	resp := []byte{}
	resp = append(resp, boolByte(cfg.DisplayRotated), boolByte(cfg.PassphraseEnabled), boolByte(cfg.LoggingEnabled))
	resp = append(resp, cfg.FamilyID[:]...)
	resp = putBlob16(resp, []byte(a.FirmwareVersion))
	return resp, nil
}

func (a *ManagerApp) handleExportLogs() ([]byte, error) {
	if a.ExportLogs == nil {
		return nil, NewAppError(hostproto.ErrAppNotSupported, 0)
	}
	logs, err := a.ExportLogs()
	if err != nil {
		return nil, NewAppError(hostproto.ErrDeviceCorrupt, 0)
	}
	return logs, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
