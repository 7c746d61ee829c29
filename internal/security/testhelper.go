package security

// NewTestTokenProvider returns a TokenProvider over a fresh ephemeral key pair.
// For unit tests in this and other packages; never wired into a server.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := EphemeralKeyPair()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience"), nil
}
