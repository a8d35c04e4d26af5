package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/serializer"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/ValentinKolb/sDB/lib/store/fstore"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cli")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the flags describing the store file to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "dir"
	cmd.PersistentFlags().String(key, "db", WrapString("Directory holding the store file (created if absent)"))

	key = "secret"
	cmd.PersistentFlags().String(key, "", WrapString("Secret used to derive the encryption key (required, prefer SDB_SECRET over the flag)"))

	key = "file-name"
	cmd.PersistentFlags().String(key, common.DefaultFileName, WrapString("Base name of the store file, the extension .sdb is appended"))

	key = "signature"
	cmd.PersistentFlags().String(key, common.DefaultSignature, WrapString("Format signature written to and expected in the store file"))

	key = "kdf"
	cmd.PersistentFlags().String(key, "legacy", WrapString("Key derivation to use (legacy, hkdf). Stores written with one cannot be opened with the other"))

	key = "serializer"
	cmd.PersistentFlags().String(key, "bson", WrapString("Serializer for the document tree inside the encrypted payload (bson, json). json rejects binary, date and non-finite number values"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("sdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// PrepareCommand binds the flags of cmd to viper and initializes the loggers
func PrepareCommand(cmd *cobra.Command, _ []string) error {
	if err := BindCommandFlags(cmd); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IDocSerializer, error) {
	switch viper.GetString("serializer") {
	case "bson", "":
		return serializer.NewBSONSerializer(), nil
	case "json":
		return serializer.NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() (common.StoreConfig, error) {
	s, err := GetSerializer()
	if err != nil {
		return common.StoreConfig{}, err
	}

	config := common.StoreConfig{
		Dir:        viper.GetString("dir"),
		Secret:     []byte(viper.GetString("secret")),
		FileName:   viper.GetString("file-name"),
		Signature:  viper.GetString("signature"),
		KDF:        viper.GetString("kdf"),
		Serializer: s,
	}.WithDefaults()

	return config, config.Validate()
}

// OpenStore opens the store described by the configuration
func OpenStore() (store.IStore, error) {
	config, err := GetStoreConfig()
	if err != nil {
		return nil, err
	}
	Logger.Debugf("opening store with configuration:%s", config)
	return fstore.Open(config)
}

// ParseDocument parses a JSON object given on the command line into a document.
// Integral numbers become int64, all other numbers float64.
func ParseDocument(text string) (store.Document, error) {
	doc, err := serializer.NewJSONSerializer().Deserialize([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	return doc, nil
}

// HashID returns the hex encoded SHA-256 of the string value of field,
// which gives content addressed ids for scraped entries.
func HashID(doc store.Document, field string) (string, error) {
	v, ok := doc[field]
	if !ok {
		return "", fmt.Errorf("field %q not found in document", field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is a %T, not a string", field, v)
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:]), nil
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// Success formats a status line for a successful operation
func Success(format string, a ...any) string {
	return color.GreenString("✓") + " " + fmt.Sprintf(format, a...)
}

// Failure formats a status line for a failed or negative result
func Failure(format string, a ...any) string {
	return color.RedString("✗") + " " + fmt.Sprintf(format, a...)
}

// Hint formats a follow-up hint
func Hint(format string, a ...any) string {
	return color.CyanString("→") + " " + fmt.Sprintf(format, a...)
}
