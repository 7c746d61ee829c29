package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pemPair generates a key and returns its PKCS#8 private and PKIX public PEM encodings.
func pemPair(t *testing.T, alg string) (privatePEM, publicPEM string) {
	t.Helper()
	var key crypto.Signer
	var err error
	switch alg {
	case "RS256":
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case "ES256":
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	if err != nil {
		t.Fatalf("generate %s key: %v", alg, err)
	}
	priv, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		t.Fatal(err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: priv})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub}))
}

func TestLoadPEM(t *testing.T) {
	privatePEM, _ := pemPair(t, "ES256")
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, []byte(privatePEM), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"inline", privatePEM, false},
		{"file path", path, false},
		{"empty", "", true},
		{"whitespace", "   \n\t", true},
		{"missing file", filepath.Join(dir, "missing.pem"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := LoadPEM(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadPEM err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !strings.Contains(string(b), "-----BEGIN") {
				t.Error("LoadPEM did not return PEM content")
			}
		})
	}
}

func TestParseKeys(t *testing.T) {
	for _, alg := range []string{"RS256", "ES256"} {
		t.Run(alg, func(t *testing.T) {
			privatePEM, publicPEM := pemPair(t, alg)

			escaped := strings.ReplaceAll(strings.TrimSpace(privatePEM), "\n", `\n`)
			signer, err := ParsePrivateKey(escaped)
			if err != nil {
				t.Fatalf("ParsePrivateKey with literal \\n: %v", err)
			}
			if KeyAlg(signer.Public()) != alg {
				t.Errorf("KeyAlg(private) = %q, want %s", KeyAlg(signer.Public()), alg)
			}
			pub, err := ParsePublicKey(publicPEM)
			if err != nil {
				t.Fatalf("ParsePublicKey: %v", err)
			}
			if KeyAlg(pub) != alg {
				t.Errorf("KeyAlg(public) = %q, want %s", KeyAlg(pub), alg)
			}
			if _, err := ParsePublicKey(privatePEM); err != ErrInvalidKey {
				t.Errorf("ParsePublicKey(private key) = %v, want ErrInvalidKey", err)
			}
		})
	}
	if KeyAlg(nil) != "" {
		t.Error("KeyAlg(nil) should be empty")
	}
}

func TestParseKeys_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not pem", "-----BEGIN garbage"},
		{"unknown block type", "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePrivateKey(tt.in); err == nil {
				t.Error("ParsePrivateKey should fail")
			}
			if _, err := ParsePublicKey(tt.in); err == nil {
				t.Error("ParsePublicKey should fail")
			}
		})
	}
}

func TestLoadKeyPair(t *testing.T) {
	privatePEM, publicPEM := pemPair(t, "RS256")
	signer, pub, err := LoadKeyPair(privatePEM, publicPEM, false)
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	if signer == nil || KeyAlg(pub) != "RS256" {
		t.Errorf("LoadKeyPair returned %T / %q", signer, KeyAlg(pub))
	}

	if _, _, err := LoadKeyPair("", "", false); err == nil {
		t.Error("LoadKeyPair without keys and without ephemeral fallback should fail")
	}
	signer, pub, err = LoadKeyPair("", "", true)
	if err != nil {
		t.Fatalf("LoadKeyPair ephemeral: %v", err)
	}
	if KeyAlg(pub) != "ES256" || KeyAlg(signer.Public()) != "ES256" {
		t.Error("ephemeral key pair should be ES256")
	}

	if _, _, err := LoadKeyPair(privatePEM, "", true); err == nil {
		t.Error("LoadKeyPair with only a private key should fail")
	}
}
