package daemon

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrCreateToken returns the persisted daemon token, generating and
// writing one on first use. The token file stays at mode 0600.
func LoadOrCreateToken(tokenPath string) (string, error) {
	data, err := os.ReadFile(tokenPath)
	if err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			_ = os.Chmod(tokenPath, 0o600)
			return token, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(tokenPath, []byte(token+"\n"), 0o600); err != nil {
		return "", err
	}
	return token, nil
}
