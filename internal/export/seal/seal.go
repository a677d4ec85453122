// Package seal encrypts produced export files to one or more age X25519
// recipients so they can leave the examiner machine.
package seal

import (
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// Ext is appended to sealed file names.
const Ext = ".age"

// ValidateRecipient checks that key is an age X25519 public key.
func ValidateRecipient(key string) error {
	if !strings.HasPrefix(key, "age1") {
		return fmt.Errorf("age public key must start with 'age1'")
	}
	if _, err := age.ParseX25519Recipient(key); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ParseRecipients parses every key, trimming surrounding space.
func ParseRecipients(keys []string) ([]age.Recipient, error) {
	out := make([]age.Recipient, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if err := ValidateRecipient(k); err != nil {
			return nil, err
		}
		r, err := age.ParseX25519Recipient(k)
		if err != nil {
			return nil, fmt.Errorf("invalid age public key: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// File encrypts path into path+Ext. When removePlain is set the original is
// deleted once the sealed copy is complete.
func File(path string, recipients []age.Recipient, removePlain bool) (string, error) {
	if len(recipients) == 0 {
		return "", fmt.Errorf("no age recipients")
	}
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	sealed := path + Ext
	out, err := os.OpenFile(sealed, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", sealed, err)
	}

	if err := encrypt(out, in, recipients); err != nil {
		out.Close()
		os.Remove(sealed)
		return "", fmt.Errorf("seal %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", sealed, err)
	}

	if removePlain {
		in.Close()
		if err := os.Remove(path); err != nil {
			return sealed, fmt.Errorf("remove plaintext %s: %w", path, err)
		}
	}
	return sealed, nil
}

func encrypt(dst io.Writer, src io.Reader, recipients []age.Recipient) error {
	w, err := age.Encrypt(dst, recipients...)
	if err != nil {
		return fmt.Errorf("failed to create age encryption writer: %w", err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

// Files seals every path and returns the sealed names in order. It stops at
// the first failure.
func Files(paths []string, recipients []age.Recipient, removePlain bool) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		sealed, err := File(p, recipients, removePlain)
		if err != nil {
			return out, err
		}
		out = append(out, sealed)
	}
	return out, nil
}
