package vouchers

import (
	"fmt"
	"strconv"
	"strings"
)

// VoucherID identifies a voucher either by its database id or by its index
// among the vouchers committed in the current edit session. The zero value is
// not a valid id.
type VoucherID struct {
	persisted int64
	pending   int
}

// Persisted wraps a stored service_bookings id.
func Persisted(id int64) VoucherID {
	return VoucherID{persisted: id}
}

// Pending wraps a session-local index (1, 2, ...).
func Pending(index int) VoucherID {
	return VoucherID{pending: index}
}

// IsPending is true for vouchers that exist only in the edit session.
func (v VoucherID) IsPending() bool {
	return v.pending > 0
}

// IsZero reports an unset id.
func (v VoucherID) IsZero() bool {
	return v.persisted == 0 && v.pending == 0
}

// PersistedID returns the database id when the voucher is stored.
func (v VoucherID) PersistedID() (int64, bool) {
	if v.persisted > 0 {
		return v.persisted, true
	}
	return 0, false
}

// PendingIndex returns the session index when the voucher is not stored yet.
func (v VoucherID) PendingIndex() (int, bool) {
	if v.pending > 0 {
		return v.pending, true
	}
	return 0, false
}

const pendingPrefix = "pending-"

func (v VoucherID) String() string {
	if v.IsPending() {
		return pendingPrefix + strconv.Itoa(v.pending)
	}
	return strconv.FormatInt(v.persisted, 10)
}

// MarshalText renders "12" for stored vouchers and "pending-1" for session ones.
func (v VoucherID) MarshalText() ([]byte, error) {
	if v.IsZero() {
		return nil, fmt.Errorf("cannot marshal empty voucher id")
	}
	return []byte(v.String()), nil
}

func (v *VoucherID) UnmarshalText(text []byte) error {
	parsed, err := ParseVoucherID(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVoucherID is the inverse of String.
func ParseVoucherID(s string) (VoucherID, error) {
	if strings.HasPrefix(s, pendingPrefix) {
		index, err := strconv.Atoi(strings.TrimPrefix(s, pendingPrefix))
		if err != nil || index <= 0 {
			return VoucherID{}, fmt.Errorf("invalid pending voucher id %q", s)
		}
		return Pending(index), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return VoucherID{}, fmt.Errorf("invalid voucher id %q", s)
	}
	return Persisted(id), nil
}

// less orders stored vouchers by id, then session vouchers by index.
func (v VoucherID) less(o VoucherID) bool {
	if v.IsPending() != o.IsPending() {
		return !v.IsPending()
	}
	if v.IsPending() {
		return v.pending < o.pending
	}
	return v.persisted < o.persisted
}
