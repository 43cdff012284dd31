package auth

import (
	"encoding/base64"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ed25519"
)

// DecodeSignature accepts base58 (wallet adapters) or base64 encoded signatures.
func DecodeSignature(sig string) ([]byte, bool) {
	if b, err := base58.Decode(sig); err == nil && len(b) == ed25519.SignatureSize {
		return b, true
	}
	if b, err := base64.StdEncoding.DecodeString(sig); err == nil && len(b) == ed25519.SignatureSize {
		return b, true
	}
	return nil, false
}

// VerifyWalletSignature checks an ed25519 signature over the exact message
// bytes against the base58 wallet public key.
func VerifyWalletSignature(wallet, message, signature string) bool {
	pub, err := base58.Decode(wallet)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, ok := DecodeSignature(signature)
	if !ok {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig)
}
