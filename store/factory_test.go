package store_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"ensemble/store"
)

var _ = Describe("NewBundle", func() {
	It("defaults to the memory backend", func() {
		bundle, err := store.NewBundle(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(bundle.Events).To(BeAssignableToTypeOf(&store.MemoryEventStore{}))
	})

	It("creates the sqlite directory when missing", func() {
		dir, err := os.MkdirTemp("", "factory-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		bundle, err := store.NewBundle(&store.StorageConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dir, "nested", "events.db"),
		})
		Expect(err).NotTo(HaveOccurred())
		defer bundle.Close()

		Expect(filepath.Join(dir, "nested")).To(BeADirectory())
		Expect(bundle.Events).To(BeAssignableToTypeOf(&store.SQLiteEventStore{}))
	})

	It("rejects unknown backends", func() {
		_, err := store.NewBundle(&store.StorageConfig{Backend: "redis"})
		Expect(err).To(MatchError(ContainSubstring("unknown storage backend: redis")))
	})
})
