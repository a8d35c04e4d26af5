package fstore

import (
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/container"
	"github.com/ValentinKolb/sDB/lib/crypt"
	"github.com/ValentinKolb/sDB/lib/serializer"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, config common.StoreConfig) store.IStore {
	t.Helper()
	s, err := Open(config)
	require.NoError(t, err)
	return s
}

// writeTree writes an arbitrary tree to the store file of config, bypassing the store
func writeTree(t *testing.T, config common.StoreConfig, tree map[string]any) {
	t.Helper()
	config = config.WithDefaults()

	plaintext, err := config.Serializer.Serialize(tree)
	require.NoError(t, err)

	engine, err := crypt.New(crypt.DeriveKey(config.Secret))
	require.NoError(t, err)
	iv, ciphertext, err := engine.Encrypt(plaintext)
	require.NoError(t, err)

	content, err := container.Encode(container.Container{
		Signature: []byte(config.Signature),
		IV:        iv,
		Data:      ciphertext,
	})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(config.Dir, 0o755))
	require.NoError(t, os.WriteFile(config.FilePath(), content, 0o600))
}

func TestOpenCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	config := common.DefaultStoreConfig(dir, []byte("k"))

	s := openStore(t, config)
	defer s.Close()

	path := filepath.Join(dir, "data.sdb")
	content, err := os.ReadFile(path)
	require.NoError(t, err, "empty store must be written on open")

	_, err = hex.DecodeString(string(content))
	assert.NoError(t, err, "file content must be hex text")

	if runtime.GOOS != "windows" {
		stat, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
	}

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestOpenInvalidConfig(t *testing.T) {
	_, err := Open(common.StoreConfig{Dir: t.TempDir()})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = Open(common.StoreConfig{Secret: []byte("k")})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = Open(common.StoreConfig{Dir: t.TempDir(), Secret: []byte("k"), KDF: "rot13"})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestRoundTrip(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))
	ts := time.Date(2023, 11, 2, 8, 15, 30, 250000000, time.UTC)

	docs := map[string]store.Document{
		"1": {
			"name":    "Alice",
			"subs":    10,
			"ratio":   0.25,
			"active":  true,
			"deleted": nil,
			"seen":    ts,
			"raw":     []byte("\x00\xffbinary"),
			"tags":    []any{"a", 1, []any{"nested"}},
			"meta":    map[string]any{"lang": "de", "inner": map[string]any{"depth": 2}},
		},
		"2": {"name": "Bob"},
	}

	s := openStore(t, config)
	for id, doc := range docs {
		require.NoError(t, s.Set("users", id, doc))
	}
	require.NoError(t, s.Set("posts", "p", store.Document{"title": "hello"}))
	before, err := s.All("users")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openStore(t, config)
	defer s.Close()

	after, err := s.All("users")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	doc, err := s.Get("users", "1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), doc["subs"])
	assert.True(t, ts.Equal(doc["seen"].(time.Time)))

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "users"}, names)
}

func TestRoundTripJSON(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))
	config.Serializer = serializer.NewJSONSerializer()

	s := openStore(t, config)
	require.NoError(t, s.Set("c", "1", store.Document{"n": 1, "f": 1.5, "whole": 2.0, "l": []any{"x"}}))

	// values JSON cannot hold are rejected and leave the document untouched
	rejected := []store.Document{
		{"b": []byte{1, 2}},
		{"t": time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC)},
		{"nan": math.NaN()},
		{"inf": math.Inf(-1)},
		{"n": 2, "nested": map[string]any{"b": []byte{1}}},
	}
	for _, fields := range rejected {
		err := s.Set("c", "1", fields)
		assert.True(t, errors.Is(err, store.ErrInvalidDocument), "expected ErrInvalidDocument for %v, got %v", fields, err)
		err = s.Set("other", "1", fields)
		assert.True(t, errors.Is(err, store.ErrInvalidDocument), "expected ErrInvalidDocument for %v, got %v", fields, err)
	}

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names)

	require.NoError(t, s.Set("c", "2", store.Document{"y": 1}))
	require.NoError(t, s.Close())

	s = openStore(t, config)
	defer s.Close()

	doc, err := s.Get("c", "1")
	require.NoError(t, err)
	assert.Equal(t, store.Document{"n": int64(1), "f": 1.5, "whole": 2.0, "l": []any{"x"}}, doc)

	doc, err = s.Get("c", "2")
	require.NoError(t, err)
	assert.Equal(t, store.Document{"y": int64(1)}, doc)
}

func TestNULNamesRejected(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)
	assert.ErrorIs(t, s.Set("bad\x00name", "1", store.Document{"a": 1}), store.ErrInvalidArgument)
	assert.ErrorIs(t, s.Set("c", "bad\x00id", store.Document{"a": 1}), store.ErrInvalidArgument)
	_, err := s.Find("bad\x00name", store.Document{})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	require.NoError(t, s.Set("good", "1", store.Document{"a": 1}))
	require.NoError(t, s.Close())

	s = openStore(t, config)
	defer s.Close()

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, names)

	doc, err := s.Get("good", "1")
	require.NoError(t, err)
	assert.Equal(t, store.Document{"a": int64(1)}, doc)
}

// failingSerializer fails to serialize any tree that holds a document with a "fail" field
type failingSerializer struct {
	serializer.IDocSerializer
}

func (f failingSerializer) Serialize(tree map[string]any) ([]byte, error) {
	for _, docs := range tree {
		for _, doc := range docs.(map[string]any) {
			if _, ok := doc.(map[string]any)["fail"]; ok {
				return nil, errors.New("cannot serialize")
			}
		}
	}
	return f.IDocSerializer.Serialize(tree)
}

func TestEncodeFailureRollsBack(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))
	config.Serializer = failingSerializer{serializer.NewBSONSerializer()}

	s := openStore(t, config)
	require.NoError(t, s.Set("c", "1", store.Document{"a": 1}))

	// new collection, new document and merge into an existing document
	for _, target := range [][2]string{{"new", "1"}, {"c", "2"}, {"c", "1"}} {
		err := s.Set(target[0], target[1], store.Document{"fail": true, "a": 2})
		assert.ErrorIs(t, err, store.ErrInternalError)
	}

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names)

	all, err := s.All("c")
	require.NoError(t, err)
	assert.Equal(t, map[string]store.Document{"1": {"a": int64(1)}}, all)

	require.NoError(t, s.Set("c", "3", store.Document{"b": 1}))
	require.NoError(t, s.Close())

	s = openStore(t, config)
	defer s.Close()

	all, err = s.All("c")
	require.NoError(t, err)
	assert.Equal(t, map[string]store.Document{"1": {"a": int64(1)}, "3": {"b": int64(1)}}, all)
}

func TestFileFormat(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)
	require.NoError(t, s.Set("u", "1", store.Document{"name": "Alice"}))
	require.NoError(t, s.Close())

	content, err := os.ReadFile(config.FilePath())
	require.NoError(t, err)

	c, err := container.Decode(content)
	require.NoError(t, err)
	assert.Equal(t, []byte(common.DefaultSignature), c.Signature)
	assert.Len(t, c.IV, crypt.IVSize)

	engine, err := crypt.New(crypt.DeriveKey([]byte("k")))
	require.NoError(t, err)
	plaintext, err := engine.Decrypt(c.Data, c.IV)
	require.NoError(t, err)

	tree, err := serializer.NewBSONSerializer().Deserialize(plaintext)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"u": map[string]any{"1": map[string]any{"name": "Alice"}}}, tree)
}

func TestFreshIVPerWrite(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)
	defer s.Close()

	read := func() container.Container {
		content, err := os.ReadFile(config.FilePath())
		require.NoError(t, err)
		c, err := container.Decode(content)
		require.NoError(t, err)
		return c
	}

	require.NoError(t, s.Set("c", "1", store.Document{"v": 1}))
	first := read()
	require.NoError(t, s.Set("c", "1", store.Document{"v": 1}))
	second := read()

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Data, second.Data)
}

func TestSignatureMismatch(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)
	require.NoError(t, s.Set("c", "1", store.Document{"v": 1}))
	require.NoError(t, s.Close())

	content, err := os.ReadFile(config.FilePath())
	require.NoError(t, err)
	c, err := container.Decode(content)
	require.NoError(t, err)
	c.Signature[0] ^= 0xff
	content, err = container.Encode(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(config.FilePath(), content, 0o600))

	_, err = Open(config)
	assert.ErrorIs(t, err, store.ErrSignatureMismatch)

	// the signature is checked before the secret is used
	wrong := config
	wrong.Secret = []byte("other")
	_, err = Open(wrong)
	assert.ErrorIs(t, err, store.ErrSignatureMismatch)

	// a custom signature is a different format
	custom := config
	custom.Signature = "OTHER_FORMAT"
	_, err = Open(custom)
	assert.ErrorIs(t, err, store.ErrSignatureMismatch)
}

func TestWrongSecret(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("s1"))

	s := openStore(t, config)
	require.NoError(t, s.Set("c", "1", store.Document{"secret": "value", "n": 42}))
	require.NoError(t, s.Close())

	wrong := config
	wrong.Secret = []byte("s2")
	_, err := Open(wrong)
	require.Error(t, err)
	assert.True(t,
		errors.Is(err, store.ErrDecryptionFailure) || errors.Is(err, store.ErrMalformedDocumentData),
		"unexpected error %v", err)

	// the failed open must not hold the lock
	s = openStore(t, config)
	defer s.Close()
	doc, err := s.Get("c", "1")
	require.NoError(t, err)
	assert.Equal(t, "value", doc["secret"])
}

func TestKDFMismatch(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))
	config.KDF = crypt.KDFHKDF

	s := openStore(t, config)
	require.NoError(t, s.Set("c", "1", store.Document{"v": "x"}))
	require.NoError(t, s.Close())

	legacy := config
	legacy.KDF = crypt.KDFLegacy
	_, err := Open(legacy)
	assert.Error(t, err)

	s = openStore(t, config)
	defer s.Close()
	exists, err := s.Exists("c", "1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMalformedContainer(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))
	require.NoError(t, os.WriteFile(config.FilePath(), []byte("not hex at all"), 0o600))

	_, err := Open(config)
	assert.ErrorIs(t, err, store.ErrMalformedContainer)

	require.NoError(t, os.WriteFile(config.FilePath(), []byte(strings.Repeat("ab", 20)), 0o600))
	_, err = Open(config)
	assert.ErrorIs(t, err, store.ErrMalformedContainer)
}

func TestMalformedTree(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	writeTree(t, config, map[string]any{"c": "not a collection"})
	_, err := Open(config)
	assert.ErrorIs(t, err, store.ErrMalformedDocumentData)

	writeTree(t, config, map[string]any{"c": map[string]any{"1": int64(5)}})
	_, err = Open(config)
	assert.ErrorIs(t, err, store.ErrMalformedDocumentData)
}

func TestEmptyCollectionsPrunedOnLoad(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))
	writeTree(t, config, map[string]any{
		"empty": map[string]any{},
		"full":  map[string]any{"1": map[string]any{"v": int64(1)}},
	})

	s := openStore(t, config)
	defer s.Close()

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"full"}, names)
}

func TestLockExclusion(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)

	_, err := Open(config)
	assert.ErrorIs(t, err, store.ErrStoreLocked)

	// a different file in the same directory is independent
	other := config
	other.FileName = "other"
	s2 := openStore(t, other)
	require.NoError(t, s2.Close())

	require.NoError(t, s.Close())

	s = openStore(t, config)
	require.NoError(t, s.Close())
}

func TestInfo(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)
	defer s.Close()

	require.NoError(t, s.Set("c", "1", store.Document{"v": strings.Repeat("x", 100)}))

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, config.FilePath(), info.Path)
	assert.Equal(t, 1, info.Collections)
	assert.Equal(t, 1, info.Documents)
	assert.Greater(t, info.FileSizeBytes, int64(200))
	assert.Equal(t, int64(1), info.DocumentSizes.Count)
	assert.False(t, info.LastPersist.IsZero())
	assert.Len(t, info.Checksum, 16)

	// every write uses a fresh IV, so the checksum changes even for identical content
	require.NoError(t, s.Set("c", "1", store.Document{"v": strings.Repeat("x", 100)}))
	next, err := s.Info()
	require.NoError(t, err)
	assert.NotEqual(t, info.Checksum, next.Checksum)
}

func TestInfoMissingFile(t *testing.T) {
	config := common.DefaultStoreConfig(t.TempDir(), []byte("k"))

	s := openStore(t, config)
	defer s.Close()

	require.NoError(t, os.Remove(config.FilePath()))

	_, err := s.Info()
	assert.ErrorIs(t, err, store.ErrIO)

	// the next write recreates the file
	require.NoError(t, s.Set("c", "1", store.Document{"v": 1}))
	_, err = s.Info()
	assert.NoError(t, err)
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}

	dir := t.TempDir()
	config := common.DefaultStoreConfig(dir, []byte("k"))

	s := openStore(t, config)
	defer s.Close()

	require.NoError(t, os.Chmod(dir, 0o500))
	defer os.Chmod(dir, 0o700)

	err := s.Set("c", "1", store.Document{"v": 1})
	assert.ErrorIs(t, err, store.ErrIO)

	exists, err := s.Exists("c", "1")
	require.NoError(t, err)
	assert.True(t, exists)
}
