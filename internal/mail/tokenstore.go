package mail

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/oauth2"

	"github.com/yonca-ai/yonca/internal/tools"
)

const (
	tokenExt = ".tok"
	saltLen  = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// TokenStore persists OAuth tokens as encrypted blobs, one file per
// account. The envelope is argon2id key derivation over a per-file salt
// plus XChaCha20-Poly1305: salt || nonce || ciphertext.
type TokenStore struct {
	dir        string
	passphrase []byte
}

func NewTokenStore(dir, passphrase string) *TokenStore {
	return &TokenStore{dir: dir, passphrase: []byte(passphrase)}
}

func accountFile(account string) (string, error) {
	account = strings.ToLower(strings.TrimSpace(account))
	if account == "" {
		return "", tools.Validationf("account name is required")
	}
	if strings.ContainsAny(account, "/\\") {
		return "", tools.Validationf("invalid account name %q", account)
	}
	return account + tokenExt, nil
}

func (s *TokenStore) Save(account string, tok *oauth2.Token) error {
	name, err := accountFile(account)
	if err != nil {
		return err
	}
	plain, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	aead, err := s.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	blob := append(salt, nonce...)
	blob = aead.Seal(blob, nonce, plain, nil)

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), blob, 0o600); err != nil {
		return fmt.Errorf("writing token for %s: %w", account, err)
	}
	return nil
}

func (s *TokenStore) Load(account string) (*oauth2.Token, error) {
	name, err := accountFile(account)
	if err != nil {
		return nil, err
	}
	blob, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, tools.NotFoundf("no stored token for account '%s'", account)
	}
	if err != nil {
		return nil, fmt.Errorf("reading token for %s: %w", account, err)
	}
	if len(blob) < saltLen+chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("token file for %s is truncated", account)
	}

	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	ciphertext := blob[saltLen+chacha20poly1305.NonceSizeX:]

	aead, err := s.aead(salt)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, tools.Authorizationf("cannot decrypt token for account '%s': wrong passphrase or corrupt file", account)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(plain, &tok); err != nil {
		return nil, fmt.Errorf("decoding token for %s: %w", account, err)
	}
	return &tok, nil
}

func (s *TokenStore) Delete(account string) error {
	name, err := accountFile(account)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token for %s: %w", account, err)
	}
	return nil
}

// Accounts lists the accounts with a stored token, sorted by name.
func (s *TokenStore) Accounts() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing token directory: %w", err)
	}

	var accounts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), tokenExt) {
			continue
		}
		accounts = append(accounts, strings.TrimSuffix(e.Name(), tokenExt))
	}
	sort.Strings(accounts)
	return accounts, nil
}

func (s *TokenStore) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	c, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	return c, nil
}
