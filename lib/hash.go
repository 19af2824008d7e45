package lib

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Supported hash algorithm names.
const (
	AlgSHA256 = "sha256"
	AlgXXHash = "xxhash"
	AlgMD5    = "md5"
)

const (
	initialChunkSize = 1 << 20
	maxChunkSize     = 8 << 20
)

// chunkState tracks the adaptive read size for one file: reads start at 1 MiB
// and double after each full read, capped at 8 MiB. Small files cost one
// small buffer; huge files reach a large chunk quickly.
type chunkState struct {
	size      int
	bytesRead int64
}

func newChunkState() chunkState {
	return chunkState{size: initialChunkSize}
}

// grow returns the state after a read of n bytes.
func (s chunkState) grow(n int) chunkState {
	next := chunkState{size: s.size * 2, bytesRead: s.bytesRead + int64(n)}
	if next.size > maxChunkSize {
		next.size = maxChunkSize
	}
	return next
}

// Pool of chunk buffers reused across streaming hashes; buffers grow to at
// most maxChunkSize, so peak memory per concurrent hash is bounded by the
// chunk size, never the file size.
var chunkBufPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, initialChunkSize)
		return &buffer
	},
}

func newDigest(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case AlgSHA256, "":
		return sha256.New(), nil
	case AlgXXHash:
		return xxhash.New(), nil
	case AlgMD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithm)
	}
}

// ValidAlgorithm reports whether name is a supported hash algorithm.
func ValidAlgorithm(name string) bool {
	_, err := newDigest(name)
	return err == nil
}

// HashFileStreaming hashes the file at path and returns the lowercase hex
// digest. Content is streamed through adaptively sized chunks; the whole
// file is never held in memory. An I/O failure mid-stream fails only this
// file.
func HashFileStreaming(path, algorithm string, tracer *Tracer) (string, error) {
	digest, err := newDigest(algorithm)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	bufPtr := chunkBufPool.Get().(*[]byte)
	defer chunkBufPool.Put(bufPtr)

	start := time.Now()
	state := newChunkState()
	readCount := 0
	for {
		if cap(*bufPtr) < state.size {
			*bufPtr = make([]byte, state.size)
		}
		chunk := (*bufPtr)[:state.size]
		readStart := time.Now()
		n, readErr := file.Read(chunk)
		if n > 0 {
			digest.Write(chunk[:n])
			readCount++
			tracer.SlowRead(path, n, time.Since(readStart))
			state = state.grow(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}
	tracer.HashDone(path, state.bytesRead, readCount, time.Since(start))
	return hex.EncodeToString(digest.Sum(nil)), nil
}
