package credential

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/molted-work/molted-cli/internal/config"
	clierr "github.com/molted-work/molted-cli/internal/errors"
	"github.com/molted-work/molted-cli/internal/store"
)

var privateKeyPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Account is a wallet derived from a private key. Only the address is kept;
// the key is dropped once derivation finishes.
type Account struct {
	address common.Address
}

func (a *Account) Address() common.Address {
	return a.address
}

// ShortAddress renders the address as 0x1234...abcd.
func (a *Account) ShortAddress() string {
	return TruncateAddress(a.address.Hex())
}

// Credential is the authentication material for one invocation.
type Credential struct {
	APIKey  string
	Account *Account
}

func (c Credential) HasAccount() bool {
	return c.Account != nil
}

// Lookup reads persisted credentials. *store.Store satisfies it.
type Lookup interface {
	Get(name string) (string, bool, error)
}

// Inputs are the already-layered sources from config.Settings.
type Inputs struct {
	APIKey       string
	APIKeySource string

	PrivateKey           string
	PrivateKeySource     string
	PrivateKeyFile       string
	KeystorePath         string
	KeystorePassword     string
	KeystorePasswordFile string
}

func InputsFromSettings(s config.Settings) Inputs {
	return Inputs{
		APIKey:               s.APIKey,
		APIKeySource:         s.APIKeySource,
		PrivateKey:           s.PrivateKey,
		PrivateKeySource:     s.PrivateKeySource,
		PrivateKeyFile:       s.PrivateKeyFile,
		KeystorePath:         s.KeystorePath,
		KeystorePassword:     s.KeystorePassword,
		KeystorePasswordFile: s.KeystorePasswordFile,
	}
}

// Resolver turns Inputs plus the credential store into a Credential.
type Resolver struct {
	store Lookup
	log   zerolog.Logger
}

func NewResolver(st Lookup, log zerolog.Logger) *Resolver {
	return &Resolver{store: st, log: log}
}

// Resolve requires an API key and derives the wallet account when one is
// configured.
func (r *Resolver) Resolve(in Inputs) (Credential, error) {
	apiKey, source, err := r.apiKey(in)
	if err != nil {
		return Credential{}, err
	}
	if apiKey == "" {
		return Credential{}, clierr.Auth(clierr.AuthMissingAPIKey, "no API key configured: run `molted auth login` or set MOLTED_API_KEY")
	}
	r.log.Debug().Str("source", source).Msg("api key resolved")

	account, err := r.ResolveAccount(in)
	if err != nil {
		return Credential{}, err
	}
	return Credential{APIKey: apiKey, Account: account}, nil
}

// ResolveAccount derives the wallet account alone. It returns nil, nil when
// no private key source is configured.
func (r *Resolver) ResolveAccount(in Inputs) (*Account, error) {
	if v := strings.TrimSpace(in.PrivateKey); v != "" {
		r.log.Debug().Str("source", sourceOr(in.PrivateKeySource, "settings")).Msg("private key resolved")
		return DeriveAccount(v)
	}
	if r.store != nil {
		v, ok, err := r.store.Get(store.NamePrivateKey)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "read credential store", err)
		}
		if ok && strings.TrimSpace(v) != "" {
			r.log.Debug().Str("source", "store").Msg("private key resolved")
			return DeriveAccount(strings.TrimSpace(v))
		}
	}
	if path := strings.TrimSpace(in.PrivateKeyFile); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "read private key file", err)
		}
		r.log.Debug().Str("source", "file").Msg("private key resolved")
		return DeriveAccount(strings.TrimSpace(string(buf)))
	}
	if path := strings.TrimSpace(in.KeystorePath); path != "" {
		r.log.Debug().Str("source", "keystore").Msg("private key resolved")
		return loadKeystore(path, in.KeystorePassword, in.KeystorePasswordFile)
	}
	return nil, nil
}

func (r *Resolver) apiKey(in Inputs) (string, string, error) {
	if v := strings.TrimSpace(in.APIKey); v != "" {
		return v, sourceOr(in.APIKeySource, "settings"), nil
	}
	if r.store == nil {
		return "", "", nil
	}
	v, ok, err := r.store.Get(store.NameAPIKey)
	if err != nil {
		return "", "", clierr.Wrap(clierr.CodeInternal, "read credential store", err)
	}
	if !ok {
		return "", "", nil
	}
	return strings.TrimSpace(v), "store", nil
}

// ValidatePrivateKey checks the 0x-prefixed 64 hex digit shape.
func ValidatePrivateKey(key string) error {
	if !privateKeyPattern.MatchString(key) {
		return clierr.Auth(clierr.AuthInvalidPrivateKey, "invalid private key: expected 0x followed by 64 hex characters")
	}
	return nil
}

// DeriveAccount maps a private key to its EVM account. The shape check runs
// first; a key that passes it but is not a valid secp256k1 scalar is still
// rejected rather than yielding an address.
func DeriveAccount(key string) (*Account, error) {
	if err := ValidatePrivateKey(key); err != nil {
		return nil, err
	}
	pk, err := crypto.HexToECDSA(key[2:])
	if err != nil {
		return nil, &clierr.Error{
			Code:    clierr.CodeAuth,
			Kind:    clierr.KindAuth,
			Auth:    clierr.AuthInvalidPrivateKey,
			Message: "invalid private key",
			Cause:   err,
		}
	}
	return accountFromKey(pk), nil
}

func accountFromKey(pk *ecdsa.PrivateKey) *Account {
	return &Account{address: crypto.PubkeyToAddress(pk.PublicKey)}
}

func loadKeystore(path, password, passwordFile string) (*Account, error) {
	if strings.TrimSpace(password) == "" && strings.TrimSpace(passwordFile) != "" {
		buf, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "read keystore password file", err)
		}
		password = strings.TrimSpace(string(buf))
	}
	if strings.TrimSpace(password) == "" {
		return nil, clierr.Auth(clierr.AuthInvalidPrivateKey, "keystore password is required: set MOLTED_KEYSTORE_PASSWORD or MOLTED_KEYSTORE_PASSWORD_FILE")
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "read keystore file", err)
	}
	key, err := keystore.DecryptKey(buf, password)
	if err != nil {
		return nil, &clierr.Error{
			Code:    clierr.CodeAuth,
			Kind:    clierr.KindAuth,
			Auth:    clierr.AuthInvalidPrivateKey,
			Message: "decrypt keystore",
			Cause:   err,
		}
	}
	return accountFromKey(key.PrivateKey), nil
}

// TruncateAddress shortens a hex address for display.
func TruncateAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return fmt.Sprintf("%s...%s", addr[:6], addr[len(addr)-4:])
}

func sourceOr(source, fallback string) string {
	if strings.TrimSpace(source) == "" {
		return fallback
	}
	return source
}
