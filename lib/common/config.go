package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/sDB/lib/crypt"
	"github.com/ValentinKolb/sDB/lib/serializer"
)

// Defaults for the store configuration
const (
	DefaultFileName  = "data"
	DefaultSignature = "SOLITUM_DATABASE"
	DefaultFileMode  = os.FileMode(0o600)
	FileExtension    = ".sdb"
)

// --------------------------------------------------------------------------
// Store configuration struct
// --------------------------------------------------------------------------

// StoreConfig holds all configuration parameters of a store.
type StoreConfig struct {
	// Dir is the directory holding the store file (created if absent)
	Dir string
	// Secret is used to derive the encryption key, it is never persisted
	Secret []byte
	// FileName is the base name of the store file (without extension)
	FileName string
	// Signature is the format magic written to and expected in every file
	Signature string
	// KDF selects the key derivation (crypt.KDFLegacy or crypt.KDFHKDF)
	KDF string
	// FileMode is the permission of the store file
	FileMode os.FileMode
	// Serializer converts the document tree to bytes (nil = BSON)
	Serializer serializer.IDocSerializer
}

// DefaultStoreConfig returns a configuration with all defaults applied
func DefaultStoreConfig(dir string, secret []byte) StoreConfig {
	return StoreConfig{Dir: dir, Secret: secret}.WithDefaults()
}

// WithDefaults returns a copy of c with every unset field replaced by its default
func (c StoreConfig) WithDefaults() StoreConfig {
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	if c.Signature == "" {
		c.Signature = DefaultSignature
	}
	if c.KDF == "" {
		c.KDF = crypt.KDFLegacy
	}
	if c.FileMode == 0 {
		c.FileMode = DefaultFileMode
	}
	if c.Serializer == nil {
		c.Serializer = serializer.NewBSONSerializer()
	}
	return c
}

// Validate checks that the configuration can be used to open a store
func (c StoreConfig) Validate() error {
	var errs []error
	if c.Dir == "" {
		errs = append(errs, errors.New("directory is required"))
	}
	if len(c.Secret) == 0 {
		errs = append(errs, errors.New("secret is required"))
	}
	if c.FileName == "" || strings.ContainsAny(c.FileName, `/\`) || c.FileName == "." || c.FileName == ".." {
		errs = append(errs, fmt.Errorf("invalid file name %q", c.FileName))
	}
	if c.Signature == "" {
		errs = append(errs, errors.New("signature is required"))
	}
	if _, err := crypt.KeyFunc(c.KDF); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// FilePath returns the path of the store file
func (c StoreConfig) FilePath() string {
	return filepath.Join(c.Dir, c.FileName+FileExtension)
}

// LockPath returns the path of the lock file guarding the store file
func (c StoreConfig) LockPath() string {
	return c.FilePath() + ".lock"
}

// String returns a formatted string representation of the configuration
func (c StoreConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Storage")
	addField("Directory", c.Dir)
	addField("File", c.FilePath())
	addField("File Mode", fmt.Sprintf("%#o", c.FileMode))

	addSection("Format")
	addField("Signature", c.Signature)
	addField("Key Derivation", c.KDF)

	secret := "<unset>"
	if len(c.Secret) > 0 {
		secret = fmt.Sprintf("<%d bytes>", len(c.Secret))
	}
	addField("Secret", secret)

	return sb.String()
}
