//go:build linux && cgo && amd64

package ioring

/*
#include <stdint.h>

// x86-64 store fence: ensures all prior stores are globally visible
// before any subsequent store becomes visible to another observer
// (here, the kernel reading the submission ring).
static inline void sfence_impl(void) {
    __asm__ __volatile__("sfence" ::: "memory");
}
*/
import "C"

// sfence issues a store fence so the SQE payload written into the
// shared submission ring is visible to the kernel before the tail
// index that publishes it is updated.
func sfence() {
	C.sfence_impl()
}
