//go:build parklock_check

package mutex

import "github.com/moontrade/parklock/pkg/ilist"

// Checked reports whether wait list invariants are verified on every
// mutation. Enabled with the parklock_check build tag.
const Checked = true

// maxCheckedWaiters bounds the validation walk.
const maxCheckedWaiters = 1 << 20

func checkList(h *ilist.Head) {
	if err := h.Validate(maxCheckedWaiters); err != nil {
		panic(err)
	}
}
