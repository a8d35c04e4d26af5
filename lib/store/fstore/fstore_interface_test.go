package fstore

import (
	"testing"

	"github.com/ValentinKolb/sDB/lib/common"
	"github.com/ValentinKolb/sDB/lib/serializer"
	"github.com/ValentinKolb/sDB/lib/store"
	storetesting "github.com/ValentinKolb/sDB/lib/store/testing"
)

func factory(config func(dir string) common.StoreConfig) storetesting.StoreFactory {
	return func(t testing.TB) store.IStore {
		s, err := Open(config(t.TempDir()))
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		return s
	}
}

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "FileStore", factory(func(dir string) common.StoreConfig {
		return common.DefaultStoreConfig(dir, []byte("k"))
	}))

	storetesting.RunStoreTests(t, "FileStore(hkdf)", factory(func(dir string) common.StoreConfig {
		config := common.DefaultStoreConfig(dir, []byte("k"))
		config.KDF = "hkdf"
		return config
	}))
}

func Benchmark(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "FileStore", factory(func(dir string) common.StoreConfig {
		return common.DefaultStoreConfig(dir, []byte("k"))
	}))

	storetesting.RunStoreBenchmarks(b, "FileStore(json)", factory(func(dir string) common.StoreConfig {
		config := common.DefaultStoreConfig(dir, []byte("k"))
		config.Serializer = serializer.NewJSONSerializer()
		return config
	}))
}
