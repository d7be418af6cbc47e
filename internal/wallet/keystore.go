package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

// Keypair holds a secp256k1 key. The private key is never logged.
type Keypair struct {
	privateKey *ecdsa.PrivateKey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate keypair")
	}
	return &Keypair{privateKey: key}, nil
}

// KeypairFromBytes wraps raw private key bytes, as returned by DecryptKeystore.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	return &Keypair{privateKey: key}, nil
}

// Address returns the account address.
func (k *Keypair) Address() common.Address {
	return crypto.PubkeyToAddress(k.privateKey.PublicKey)
}

// PrivateKey returns the underlying key.
func (k *Keypair) PrivateKey() *ecdsa.PrivateKey {
	return k.privateKey
}

// Keystore is an Ethereum keystore v3 document.
type Keystore struct {
	Version int           `json:"version"`
	ID      string        `json:"id"`
	Address string        `json:"address"`
	Crypto  KeystoreCrypt `json:"crypto"`
}

// KeystoreCrypt is the crypto section of a keystore v3 document.
type KeystoreCrypt struct {
	Cipher       string `json:"cipher"`
	CipherText   string `json:"ciphertext"`
	CipherParams struct {
		IV string `json:"iv"`
	} `json:"cipherparams"`
	KDF       string       `json:"kdf"`
	KDFParams ScryptParams `json:"kdfparams"`
	MAC       string       `json:"mac"`
}

// ScryptParams are the scrypt KDF parameters.
type ScryptParams struct {
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
}

// Standard and light scrypt parameters, matching go-ethereum.
var (
	StandardScrypt = ScryptParams{N: 1 << 18, R: 8, P: 1, DKLen: 32}
	LightScrypt    = ScryptParams{N: 1 << 12, R: 8, P: 6, DKLen: 32}
)

// CreateKeystore encrypts kp with the standard scrypt parameters.
func CreateKeystore(kp *Keypair, password string) (*Keystore, error) {
	return encryptKey(kp, password, StandardScrypt)
}

// CreateKeystoreLight encrypts kp with the light scrypt parameters.
func CreateKeystoreLight(kp *Keypair, password string) (*Keystore, error) {
	return encryptKey(kp, password, LightScrypt)
}

func encryptKey(kp *Keypair, password string, params ScryptParams) (*Keystore, error) {
	salt := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Wrap(err, "failed to generate IV")
	}

	derived, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, params.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}

	plain := crypto.FromECDSA(kp.privateKey)
	ciphertext, err := aesCTR(derived[:16], iv, plain)
	if err != nil {
		return nil, err
	}
	mac := crypto.Keccak256(derived[16:32], ciphertext)

	params.Salt = hex.EncodeToString(salt)
	ks := &Keystore{
		Version: 3,
		ID:      uuid.NewString(),
		Address: strings.ToLower(strings.TrimPrefix(kp.Address().Hex(), "0x")),
	}
	ks.Crypto.Cipher = "aes-128-ctr"
	ks.Crypto.CipherText = hex.EncodeToString(ciphertext)
	ks.Crypto.CipherParams.IV = hex.EncodeToString(iv)
	ks.Crypto.KDF = "scrypt"
	ks.Crypto.KDFParams = params
	ks.Crypto.MAC = hex.EncodeToString(mac)
	return ks, nil
}

// DecryptKeystore returns the keypair sealed in ks.
func DecryptKeystore(ks *Keystore, password string) (*Keypair, error) {
	c := ks.Crypto
	if c.KDF != "scrypt" || c.Cipher != "aes-128-ctr" {
		return nil, errors.Errorf("unsupported keystore: kdf=%s cipher=%s", c.KDF, c.Cipher)
	}

	salt, err := hex.DecodeString(c.KDFParams.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "invalid salt")
	}
	ciphertext, err := hex.DecodeString(c.CipherText)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ciphertext")
	}
	iv, err := hex.DecodeString(c.CipherParams.IV)
	if err != nil {
		return nil, errors.Wrap(err, "invalid IV")
	}
	mac, err := hex.DecodeString(c.MAC)
	if err != nil {
		return nil, errors.Wrap(err, "invalid MAC")
	}

	p := c.KDFParams
	derived, err := scrypt.Key([]byte(password), salt, p.N, p.R, p.P, p.DKLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key")
	}
	if subtle.ConstantTimeCompare(mac, crypto.Keccak256(derived[16:32], ciphertext)) != 1 {
		return nil, errors.New("incorrect password or corrupted keystore")
	}

	plain, err := aesCTR(derived[:16], iv, ciphertext)
	if err != nil {
		return nil, err
	}
	return KeypairFromBytes(plain)
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

// AccountAddress returns the checksummed address recorded in ks.
func (ks *Keystore) AccountAddress() common.Address {
	return common.HexToAddress(ks.Address)
}

// SaveKeystore writes ks to path with owner-only permissions.
func SaveKeystore(ks *Keystore, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.Wrap(err, "failed to create wallet directory")
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal keystore")
	}
	return errors.Wrap(os.WriteFile(path, data, 0600), "failed to write keystore")
}

// LoadKeystore reads a keystore file without decrypting it.
func LoadKeystore(path string) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keystore")
	}
	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, errors.Wrap(err, "failed to parse keystore")
	}
	if ks.Version != 3 || ks.Address == "" || ks.Crypto.CipherText == "" {
		return nil, errors.Errorf("%s is not a keystore v3 file", path)
	}
	return &ks, nil
}

// KeystoreFilename returns "UTC--<timestamp>--<label>--<address>.json".
func KeystoreFilename(label string, addr common.Address, now time.Time) string {
	label = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(label))
	if label == "" {
		label = "wallet"
	}
	return fmt.Sprintf("UTC--%s--%s--%s.json",
		now.UTC().Format("2006-01-02T15-04-05.000000000Z"),
		label,
		strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")))
}

// KeystoreInfo describes a keystore file on disk.
type KeystoreInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// ListKeystores returns the valid keystore files in dir, oldest first. A missing dir is empty.
func ListKeystores(dir string) ([]KeystoreInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []KeystoreInfo{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read wallet directory")
	}

	out := []KeystoreInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ks, err := LoadKeystore(path)
		if err != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, KeystoreInfo{
			Filename:  e.Name(),
			Path:      path,
			Address:   ks.AccountAddress().Hex(),
			CreatedAt: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}
