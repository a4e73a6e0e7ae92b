package sendgrid

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Header names of the signed event webhook.
const (
	SignatureHeader = "X-Twilio-Email-Event-Webhook-Signature"
	TimestampHeader = "X-Twilio-Email-Event-Webhook-Timestamp"
)

var (
	ErrMissingSignature = errors.New("sendgrid: missing webhook signature headers")
	ErrBadSignature     = errors.New("sendgrid: webhook signature mismatch")
)

// Verifier checks the ECDSA signature SendGrid attaches to event webhook
// posts. Without a key it only requires that both headers are present.
type Verifier struct {
	key *ecdsa.PublicKey
}

// NewVerifier parses the verification key shown in the SendGrid console:
// base64 DER, or PEM. An empty key yields a header-presence-only verifier.
func NewVerifier(publicKey string) (*Verifier, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return &Verifier{}, nil
	}

	var der []byte
	if block, _ := pem.Decode([]byte(publicKey)); block != nil {
		der = block.Bytes
	} else {
		b, err := base64.StdEncoding.DecodeString(publicKey)
		if err != nil {
			return nil, fmt.Errorf("sendgrid: decode public key: %w", err)
		}
		der = b
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: parse public key: %w", err)
	}
	ec, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("sendgrid: public key is not ECDSA")
	}
	return &Verifier{key: ec}, nil
}

// Enforcing reports whether signatures are cryptographically checked.
func (v *Verifier) Enforcing() bool { return v.key != nil }

// Verify checks signature over timestamp+payload.
func (v *Verifier) Verify(signature, timestamp string, payload []byte) error {
	if signature == "" || timestamp == "" {
		return ErrMissingSignature
	}
	if v.key == nil {
		return nil
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}
	h := sha256.New()
	h.Write([]byte(timestamp))
	h.Write(payload)
	if !ecdsa.VerifyASN1(v.key, h.Sum(nil), sig) {
		return ErrBadSignature
	}
	return nil
}

// VerifyRequest reads the signature headers from r.
func (v *Verifier) VerifyRequest(r *http.Request, payload []byte) error {
	return v.Verify(r.Header.Get(SignatureHeader), r.Header.Get(TimestampHeader), payload)
}
