// Package keygen generates a development RSA transport keypair. The public
// half is what a backend stub serves from its public-key endpoint; the
// private half lets it decrypt the X-Encrypted-Key header.
package keygen

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func New() *cobra.Command {
	var outDir string
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a development RSA transport keypair",
		Run: func(cmd *cobra.Command, args []string) {
			if err := generateKeypair(outDir, bits); err != nil {
				log.Fatal().Err(err).Msg("Failed to generate keypair")
			}
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "keys", "Output directory for the keypair")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size in bits")

	return cmd
}

func generateKeypair(outDir string, bits int) error {
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return err
	}

	log.Info().Int("bits", bits).Msg("Generating RSA keypair...")
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	privPath := filepath.Join(outDir, "transport.key")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return err
	}
	pubPath := filepath.Join(outDir, "transport.pub")
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return err
	}

	log.Info().Str("private", privPath).Str("public", pubPath).Msg("Keypair written")
	return nil
}
