package benchmark

import (
	"bufio"
	"fmt"
	"strings"
	"testing"

	"github.com/yndnr/pedis-go/internal/protocol/resp"
)

// BenchmarkDecode benchmarks decoding one SET frame by payload size.
func BenchmarkDecode(b *testing.B) {
	for _, size := range []int{16, 1024, 64 * 1024} {
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			frame := resp.EncodeCommand("SET", "key:001", strings.Repeat("v", size))

			b.SetBytes(int64(len(frame)))
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := resp.Decode(frame); err != nil {
					b.Fatalf("Decode failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkReadCommandPipelined benchmarks the stream reader over a
// pipelined batch of commands.
func BenchmarkReadCommandPipelined(b *testing.B) {
	const batch = 100

	var sb strings.Builder
	for i := 0; i < batch; i++ {
		sb.WriteString(resp.EncodeCommand("HSET", "user:42", fmt.Sprintf("field%d", i), "value"))
	}
	stream := sb.String()

	b.SetBytes(int64(len(stream)))
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		br := bufio.NewReader(strings.NewReader(stream))
		for j := 0; j < batch; j++ {
			if _, err := resp.ReadCommand(br); err != nil {
				b.Fatalf("ReadCommand failed: %v", err)
			}
		}
	}
}
