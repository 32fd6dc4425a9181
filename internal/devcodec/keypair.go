package devcodec

// KeyPair is the development signing identity. The public key is derived
// from the secret by domain-separated hashing and "signatures" are keyed
// hashes. This is NOT cryptography; it exists so sessions, tests, and
// dev-mode nodes can exercise the full publish handshake without a real
// signing backend.
type KeyPair struct {
	public string
	secret string
}

// NewKeyPair derives a deterministic dev key pair from a secret seed.
// The same seed always yields the same public key.
func NewKeyPair(seed string) KeyPair {
	return KeyPair{
		public: hashWithDomain(domainAuthor, []byte(seed)),
		secret: seed,
	}
}

// PublicKey returns the derived public key in hex form.
func (k KeyPair) PublicKey() string {
	return k.public
}

func (k KeyPair) sign(payload []byte) string {
	msg := make([]byte, 0, len(k.secret)+1+len(payload))
	msg = append(msg, k.secret...)
	msg = append(msg, 0x00)
	msg = append(msg, payload...)
	return hashWithDomain(domainSignature, msg)
}
