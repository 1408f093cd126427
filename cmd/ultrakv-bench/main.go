// Command ultrakv-bench drives a simple Put/Get/Delete workload against an
// UltraKV database file and reports throughput. It is not part of the
// core engine; it exists to exercise the library end to end from the
// command line.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/trueai-org/ultrakv/internal/codec"
	"github.com/trueai-org/ultrakv/pkg/options"
	"github.com/trueai-org/ultrakv/pkg/ultrakv"
)

func main() {
	var (
		path        = pflag.StringP("path", "p", "ultrakv-bench.ukv", "database file path")
		count       = pflag.IntP("count", "n", 100_000, "number of keys to write")
		valueSize   = pflag.IntP("value-size", "v", 128, "value size in bytes")
		compression = pflag.String("compression", "none", "compression kind: none|gzip|deflate|brotli|lz4|zstd|snappy|lzma")
		clear       = pflag.Bool("clear", false, "clear the database before writing")
	)
	pflag.Parse()

	kind, err := parseCompression(*compression)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := ultrakv.Open(context.Background(), "ultrakv-bench",
		options.WithPath(*path),
		options.WithCodec(kind, codec.EncryptionNone, nil),
	)
	if err != nil {
		logger.Sugar().Fatalw("failed to open database", "error", err)
	}
	defer db.Close()

	if *clear {
		if err := db.Clear(); err != nil {
			logger.Sugar().Fatalw("failed to clear database", "error", err)
		}
	}

	value := make([]byte, *valueSize)
	rand.New(rand.NewSource(1)).Read(value)

	start := time.Now()
	for i := 0; i < *count; i++ {
		key := fmt.Sprintf("bench-key-%09d", i)
		if err := db.Put(key, value); err != nil {
			logger.Sugar().Fatalw("put failed", "key", key, "error", err)
		}
	}
	writeElapsed := time.Since(start)

	start = time.Now()
	for i := 0; i < *count; i++ {
		key := fmt.Sprintf("bench-key-%09d", i)
		if _, ok := db.Get(key); !ok {
			logger.Sugar().Fatalw("unexpected miss", "key", key)
		}
	}
	readElapsed := time.Since(start)

	stats, err := db.Stats()
	if err != nil {
		logger.Sugar().Fatalw("failed to read stats", "error", err)
	}

	fmt.Printf("wrote %d keys in %s (%.0f ops/s)\n", *count, writeElapsed, float64(*count)/writeElapsed.Seconds())
	fmt.Printf("read  %d keys in %s (%.0f ops/s)\n", *count, readElapsed, float64(*count)/readElapsed.Seconds())
	fmt.Printf("file size: %d bytes, active entries: %d, fragmentation: %.2f\n",
		stats.FileSize, stats.ActiveEntries, stats.Fragmentation)
}

func parseCompression(name string) (codec.CompressionKind, error) {
	switch name {
	case "none":
		return codec.CompressionNone, nil
	case "gzip":
		return codec.CompressionGzip, nil
	case "deflate":
		return codec.CompressionDeflate, nil
	case "brotli":
		return codec.CompressionBrotli, nil
	case "lz4":
		return codec.CompressionLZ4, nil
	case "zstd":
		return codec.CompressionZstd, nil
	case "snappy":
		return codec.CompressionSnappy, nil
	case "lzma":
		return codec.CompressionLZMA, nil
	default:
		return 0, fmt.Errorf("unknown compression kind %q", name)
	}
}
