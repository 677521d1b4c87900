package cache

import (
	"crypto/md5"
	"fmt"
	"math/rand"
	"testing"

	"github.com/zeebo/xxh3"
)

// BenchmarkCacheKeyGeneration compares the key hash against the md5 keys used before.
func BenchmarkCacheKeyGeneration(b *testing.B) {
	filePaths := make([]string, 1000)
	charset := "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789/_-."
	for i := 0; i < 1000; i++ {
		length := rand.Intn(100) + 20
		path := make([]byte, length)
		for j := range path {
			path[j] = charset[rand.Intn(len(charset))]
		}
		filePaths[i] = string(path)
	}

	b.Run("MD5", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			hash := md5.Sum([]byte(filePaths[i%1000]))
			_ = fmt.Sprintf("%x.cache", hash)
		}
	})

	b.Run("XXH3", func(b *testing.B) {
		fc := &FileCache{}
		for i := 0; i < b.N; i++ {
			_ = fc.generateCacheKey(filePaths[i%1000], "sha256")
		}
	})

	b.Run("XXH3Raw", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = fmt.Sprintf("%016x.cache", xxh3.HashString(filePaths[i%1000]))
		}
	})
}
