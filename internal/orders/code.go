package orders

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// GenerateCode membentuk order code PREFIX-YYYYMMDD-NNNN. Suffix 4 digit
// diambil dari crypto/rand; tabrakan ditangani caller lewat retry pada
// unique index order_code.
func GenerateCode(prefix string, now time.Time) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// fallback: pakai nanosecond clock
		binary.BigEndian.PutUint64(b[:], uint64(now.UnixNano()))
	}
	n := binary.BigEndian.Uint64(b[:]) % 10000
	return fmt.Sprintf("%s-%s-%04d", prefix, now.Format("20060102"), n)
}
