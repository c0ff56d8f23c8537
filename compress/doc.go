// Package compress provides compression and decompression codecs for .m8
// section payloads.
//
// A .m8 writer (package m8) may compress a section's payload before
// writing it when the section type is compressible and the payload is at
// least a fixed size threshold (256 bytes).
// Four algorithms are supported:
//   - None: no compression (fastest, largest)
//   - Zstd: best compression ratio, moderate speed — good for cold storage
//   - S2: balanced compression and speed
//   - LZ4: fastest decompression, moderate compression ratio
//
// The package defines three interfaces — Compressor, Decompressor, and the
// Codec that embeds both — and a factory, CreateCodec, that resolves a
// format.CompressionType to a concrete implementation.
package compress
