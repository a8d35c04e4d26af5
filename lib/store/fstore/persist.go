package fstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/sDB/lib/container"
	"github.com/ValentinKolb/sDB/lib/serializer"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/ValentinKolb/sDB/lib/store/fstore/internal"
	"github.com/VictoriaMetrics/metrics"
)

var (
	persistCounter      = metrics.NewCounter("sdb_persist_total")
	persistErrorCounter = metrics.NewCounter("sdb_persist_errors_total")
	persistBytesCounter = metrics.NewCounter("sdb_persist_bytes_total")
	persistDuration     = metrics.NewHistogram("sdb_persist_duration_seconds")
	loadDuration        = metrics.NewHistogram("sdb_load_duration_seconds")
	findCounter         = metrics.NewCounter("sdb_find_total")
)

// --------------------------------------------------------------------------
// Persist
// --------------------------------------------------------------------------

// persist writes the complete tree to disk. The caller must hold the write lock.
func (s *storeImpl) persist() error {
	start := time.Now()
	defer persistDuration.UpdateDuration(start)

	content, err := s.encode()
	if err != nil {
		persistErrorCounter.Inc()
		return err
	}

	if err := writeFile(s.path, content, s.config.FileMode); err != nil {
		persistErrorCounter.Inc()
		Logger.Errorf("failed to persist store %s: %v", s.path, err)
		return store.WrapError(store.RetCIOError, "write store file", err)
	}

	persistCounter.Inc()
	persistBytesCounter.Add(len(content))
	s.lastPersist = time.Now()
	Logger.Debugf("persisted %d bytes to %s in %s", len(content), s.path, time.Since(start))
	return nil
}

// encode serializes, encrypts and wraps the tree into the file content
func (s *storeImpl) encode() ([]byte, error) {
	tree := make(map[string]any, len(s.data))
	for name, c := range s.data {
		docs := make(map[string]any, len(c))
		for id, doc := range c {
			docs[id] = doc
		}
		tree[name] = docs
	}

	plaintext, err := s.serializer.Serialize(tree)
	if errors.Is(err, serializer.ErrUnsupportedValue) {
		return nil, store.WrapError(store.RetCInvalidDocument, "serialize document tree", err)
	}
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "serialize document tree", err)
	}

	iv, ciphertext, err := s.engine.Encrypt(plaintext)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "encrypt document tree", err)
	}

	content, err := container.Encode(container.Container{
		Signature: s.signature,
		IV:        iv,
		Data:      ciphertext,
	})
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "encode container", err)
	}
	return content, nil
}

// writeFile atomically replaces path with data: write to a temp file in the
// same directory, fsync, set the mode and rename over the target.
func writeFile(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	success = true
	return nil
}

// --------------------------------------------------------------------------
// Load
// --------------------------------------------------------------------------

// load reads the store file and replaces the in-memory tree
func (s *storeImpl) load() error {
	start := time.Now()
	defer loadDuration.UpdateDuration(start)

	content, err := os.ReadFile(s.path)
	if err != nil {
		return store.WrapError(store.RetCIOError, "read store file", err)
	}

	c, err := container.Decode(content)
	if err != nil {
		return store.WrapError(store.RetCMalformedContainer, s.path, err)
	}

	if !bytes.Equal(c.Signature, s.signature) {
		return store.NewError(store.RetCSignatureMismatch, fmt.Sprintf("%s: file signature %q does not match %q", s.path, c.Signature, s.signature))
	}

	plaintext, err := s.engine.Decrypt(c.Data, c.IV)
	if err != nil {
		return store.WrapError(store.RetCDecryptionFailure, s.path, err)
	}

	tree, err := s.serializer.Deserialize(plaintext)
	if err != nil {
		return store.WrapError(store.RetCMalformedDocumentData, s.path, err)
	}

	data, err := adoptTree(tree)
	if err != nil {
		return store.WrapError(store.RetCMalformedDocumentData, s.path, err)
	}

	s.data = data
	return nil
}

// adoptTree checks the shape collection → id → document and normalizes every document.
// Empty collections are dropped.
func adoptTree(tree map[string]any) (map[string]documents, error) {
	data := make(map[string]documents, len(tree))
	for name, v := range tree {
		docs, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("collection %q is a %T, not a mapping", name, v)
		}
		if len(docs) == 0 {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("empty collection name")
		}

		c := make(documents, len(docs))
		for id, d := range docs {
			doc, ok := d.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("document %q in collection %q is a %T, not a mapping", id, name, d)
			}
			if id == "" {
				return nil, fmt.Errorf("empty document id in collection %q", name)
			}
			normalized, err := internal.NormalizeDocument(doc)
			if err != nil {
				return nil, fmt.Errorf("document %q in collection %q: %w", id, name, err)
			}
			c[id] = normalized
		}
		data[name] = c
	}
	return data, nil
}
