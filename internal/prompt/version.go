package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Checksum возвращает sha256 содержимого в hex.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// NextVersion увеличивает последний сегмент версии на единицу.
//
//	"1.0.3" → "1.0.4"
//	"2.9"   → "2.10"
func NextVersion(version string) (string, error) {
	parts := strings.Split(version, ".")
	last := parts[len(parts)-1]

	n, err := strconv.Atoi(last)
	if err != nil || n < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}

	parts[len(parts)-1] = strconv.Itoa(n + 1)
	return strings.Join(parts, "."), nil
}

// CompareVersions сравнивает версии по сегментам.
// Числовые сегменты сравниваются как числа, остальные как строки.
// Возвращает -1, 0 или 1.
func CompareVersions(a, b string) int {
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")

	for i := 0; i < len(pa) || i < len(pb); i++ {
		var sa, sb string
		if i < len(pa) {
			sa = pa[i]
		}
		if i < len(pb) {
			sb = pb[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(a, b string) int {
	na, errA := strconv.Atoi(orZero(a))
	nb, errB := strconv.Atoi(orZero(b))
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
