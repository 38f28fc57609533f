package queue

import "testing"

func TestGetBuffer_SizeBuckets(t *testing.T) {
	tests := []struct {
		name        string
		requestSize int64
		expectCap   int
	}{
		{"128KB bucket - exact", 128 * 1024, 128 * 1024},
		{"128KB bucket - smaller", 65 * 1024, 128 * 1024},
		{"256KB bucket - exact", 256 * 1024, 256 * 1024},
		{"256KB bucket - smaller", 200 * 1024, 256 * 1024},
		{"512KB bucket - smaller", 400 * 1024, 512 * 1024},
		{"1MB bucket - exact", 1024 * 1024, 1024 * 1024},
		{"1MB bucket - smaller", 800 * 1024, 1024 * 1024},
		{"4MB bucket - smaller", 3 * 1024 * 1024, 4 * 1024 * 1024},
		{"8MB bucket - exact", 8 * 1024 * 1024, 8 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := GetBuffer(tt.requestSize)
			if len(buf) != 0 {
				t.Errorf("GetBuffer(%d) returned len=%d, want 0", tt.requestSize, len(buf))
			}
			if cap(buf) != tt.expectCap {
				t.Errorf("GetBuffer(%d) returned cap=%d, want %d", tt.requestSize, cap(buf), tt.expectCap)
			}
			PutBuffer(buf)
		})
	}
}

func TestGetBuffer_Oversized(t *testing.T) {
	const big = 32 * 1024 * 1024
	buf := GetBuffer(big)
	if cap(buf) != big {
		t.Errorf("expected exact oversized allocation of %d, got cap=%d", big, cap(buf))
	}
	PutBuffer(buf) // must not panic even though it won't be pooled
}

func TestGetBuffer_AppendGrowsFromZero(t *testing.T) {
	buf := GetBuffer(128 * 1024)
	buf = append(buf, []byte("hello")...)
	if string(buf) != "hello" {
		t.Errorf("got %q, want %q", buf, "hello")
	}
	PutBuffer(buf)
}

func TestBufferPool_Reuse(t *testing.T) {
	buf1 := GetBuffer(128 * 1024)
	buf1 = append(buf1, make([]byte, 128*1024)...)
	ptr1 := &buf1[0]
	PutBuffer(buf1)

	buf2 := GetBuffer(128 * 1024)
	buf2 = append(buf2, make([]byte, 128*1024)...)
	ptr2 := &buf2[0]
	PutBuffer(buf2)

	if ptr1 == ptr2 {
		t.Log("buffer was reused from pool")
	} else {
		t.Log("buffer was not reused (sync.Pool GC behavior)")
	}
}

func TestPutBuffer_NonStandardCap(t *testing.T) {
	buf := make([]byte, 0, 100*1024) // 100KB - not a standard bucket
	PutBuffer(buf)                   // must not panic
}

func BenchmarkGetBuffer_128KB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := GetBuffer(128 * 1024)
		PutBuffer(buf)
	}
}

func BenchmarkGetBuffer_1MB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buf := GetBuffer(1024 * 1024)
		PutBuffer(buf)
	}
}

func BenchmarkMakeBuffer_128KB(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = make([]byte, 0, 128*1024)
	}
}
