package fstore

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/crypt"
	"github.com/ValentinKolb/sDB/lib/serializer"
	"github.com/ValentinKolb/sDB/lib/store"
	"github.com/ValentinKolb/sDB/lib/store/fstore/internal"
	"github.com/ValentinKolb/sDB/lib/util"
	"github.com/cespare/xxhash/v2"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// documents maps document ids to normalized documents
type documents map[string]map[string]any

type storeImpl struct {
	mu sync.RWMutex

	config     common.StoreConfig
	path       string
	signature  []byte
	engine     *crypt.Engine
	serializer serializer.IDocSerializer
	lock       *fileLock

	data        map[string]documents
	lastPersist time.Time
	closed      bool
}

// Open opens the store described by config.
//
// The directory is created if needed. If the store file exists it is loaded before
// Open returns, otherwise an empty store is written immediately. On any failure no
// store is returned and all acquired resources are released.
func Open(config common.StoreConfig) (store.IStore, error) {
	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return nil, store.WrapError(store.RetCInvalidArgument, "invalid store configuration", err)
	}

	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, store.WrapError(store.RetCIOError, "create store directory", err)
	}

	derive, err := crypt.KeyFunc(config.KDF)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidArgument, "key derivation", err)
	}
	key, err := derive(config.Secret)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "derive key", err)
	}
	engine, err := crypt.New(key)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "create cipher", err)
	}

	lock, err := acquireLock(config)
	if err != nil {
		engine.Clear()
		return nil, err
	}

	s := &storeImpl{
		config:     config,
		path:       config.FilePath(),
		signature:  []byte(config.Signature),
		engine:     engine,
		serializer: config.Serializer,
		lock:       lock,
		data:       make(map[string]documents),
	}

	if err := s.init(); err != nil {
		engine.Clear()
		_ = lock.release()
		return nil, err
	}

	return s, nil
}

// init loads the store file or creates it if it does not exist yet
func (s *storeImpl) init() error {
	_, err := os.Stat(s.path)
	switch {
	case err == nil:
		Logger.Infof("loading store %s", s.path)
		return s.load()
	case errors.Is(err, os.ErrNotExist):
		Logger.Infof("creating empty store %s", s.path)
		return s.persist()
	default:
		return store.WrapError(store.RetCIOError, "stat store file", err)
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Exists(collection, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(collection, id); err != nil {
		return false, err
	}

	c, ok := s.data[collection]
	if !ok {
		return false, nil
	}
	_, ok = c[id]
	return ok, nil
}

func (s *storeImpl) Set(collectionName, id string, fields store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(collectionName, id); err != nil {
		return err
	}

	normalized, err := internal.NormalizeDocument(fields)
	if err != nil {
		return store.WrapError(store.RetCInvalidDocument, fmt.Sprintf("document %s/%s", collectionName, id), err)
	}

	c, hadCollection := s.data[collectionName]
	if !hadCollection {
		c = make(documents)
		s.data[collectionName] = c
	}

	previous, hadDocument := c[id]
	merged := make(map[string]any, len(previous)+len(normalized))
	for k, v := range previous {
		merged[k] = v
	}
	for k, v := range normalized {
		merged[k] = v
	}
	c[id] = merged

	if err := s.persist(); err != nil {
		// on i/o errors memory keeps the change, anything else could never be written
		if !errors.Is(err, store.ErrIO) {
			switch {
			case !hadCollection:
				delete(s.data, collectionName)
			case !hadDocument:
				delete(c, id)
			default:
				c[id] = previous
			}
		}
		return err
	}
	return nil
}

func (s *storeImpl) Get(collection, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.lookup(collection, id)
	if err != nil {
		return nil, err
	}
	return internal.CloneDocument(doc), nil
}

func (s *storeImpl) All(collection string) (map[string]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(collection, "-"); err != nil {
		return nil, err
	}

	c := s.data[collection]
	out := make(map[string]store.Document, len(c))
	for id, doc := range c {
		out[id] = internal.CloneDocument(doc)
	}
	return out, nil
}

func (s *storeImpl) Delete(collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(collection, id); err != nil {
		return err
	}

	c := s.data[collection]
	removed := c[id]
	if len(c) == 1 {
		delete(s.data, collection)
	} else {
		delete(c, id)
	}

	if err := s.persist(); err != nil {
		if !errors.Is(err, store.ErrIO) {
			c[id] = removed
			s.data[collection] = c
		}
		return err
	}
	return nil
}

func (s *storeImpl) Find(collection string, pattern store.Document) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(collection, "-"); err != nil {
		return nil, err
	}

	normalized, err := internal.NormalizeDocument(pattern)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidDocument, "pattern", err)
	}
	findCounter.Inc()

	ids := make([]string, 0)
	for id, doc := range s.data[collection] {
		if internal.Match(doc, normalized) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *storeImpl) Collections() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrStoreClosed
	}

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *storeImpl) Info() (store.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.Info{}, store.ErrStoreClosed
	}

	info := store.Info{
		Path:        s.path,
		Collections: len(s.data),
		LastPersist: s.lastPersist,
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		Logger.Warningf("failed to read store file %s: %v", s.path, err)
		return store.Info{}, store.WrapError(store.RetCIOError, "read store file", err)
	}
	info.FileSizeBytes = int64(len(content))
	info.Checksum = fmt.Sprintf("%016x", xxhash.Sum64(content))

	sizes := util.NewSizeHistogram()
	for _, c := range s.data {
		info.Documents += len(c)
		for _, doc := range c {
			if b, err := s.serializer.Serialize(doc); err == nil {
				sizes.AddSample(len(b))
			}
		}
	}
	info.DocumentSizes = sizes.Summary()

	return info, nil
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	s.closed = true
	s.data = nil
	s.engine.Clear()

	if err := s.lock.release(); err != nil {
		return store.WrapError(store.RetCIOError, "release store lock", err)
	}
	Logger.Infof("closed store %s", s.path)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// check validates the arguments of an operation and the store state
func (s *storeImpl) check(collection, id string) error {
	if s.closed {
		return store.ErrStoreClosed
	}
	if collection == "" {
		return store.NewError(store.RetCInvalidArgument, "collection name must not be empty")
	}
	if id == "" {
		return store.NewError(store.RetCInvalidArgument, "document id must not be empty")
	}
	if strings.IndexByte(collection, 0) >= 0 {
		return store.NewError(store.RetCInvalidArgument, "collection name must not contain NUL bytes")
	}
	if strings.IndexByte(id, 0) >= 0 {
		return store.NewError(store.RetCInvalidArgument, "document id must not contain NUL bytes")
	}
	return nil
}

// lookup returns the internal document or the matching not-found error
func (s *storeImpl) lookup(collection, id string) (map[string]any, error) {
	if err := s.check(collection, id); err != nil {
		return nil, err
	}

	c, ok := s.data[collection]
	if !ok {
		return nil, store.NewError(store.RetCCollectionNotFound, fmt.Sprintf("collection %q not found", collection))
	}
	doc, ok := c[id]
	if !ok {
		return nil, store.NewError(store.RetCDocumentNotFound, fmt.Sprintf("document %q not found in collection %q", id, collection))
	}
	return doc, nil
}
