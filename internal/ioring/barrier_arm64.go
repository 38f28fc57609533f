//go:build linux && cgo && arm64

package ioring

/*
#include <stdint.h>

// arm64 store-store barrier: the DMB ST variant orders prior stores
// ahead of subsequent ones without waiting on loads, the same
// publish-before-tail-update guarantee sfence gives on amd64.
static inline void sfence_impl(void) {
    __asm__ __volatile__("dmb st" ::: "memory");
}
*/
import "C"

// sfence issues a store fence so the SQE payload written into the
// shared submission ring is visible to the kernel before the tail
// index that publishes it is updated.
func sfence() {
	C.sfence_impl()
}
