package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ComputeSnapshotID computes a deterministic snapshot identifier using SHA256.
// Formula: SHA256(cik|quarter_end|filing_date|total_value)
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotID(cik string, quarterEnd, filingDate time.Time, totalValueThousands int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		cik,
		quarterEnd.UTC().Format("2006-01-02"),
		filingDate.UTC().Format("2006-01-02"),
		totalValueThousands,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeReportID computes a short deterministic identifier for one analysis
// run: the quarter plus the sorted set of fund CIKs that went into it. Two
// runs over the same inputs share an ID. Returns the first 12 hex characters.
func ComputeReportID(quarter time.Time, ciks []string) string {
	sorted := make([]string, len(ciks))
	copy(sorted, ciks)
	sort.Strings(sorted)

	data := quarter.UTC().Format("2006-01-02") + "|" + strings.Join(sorted, "|")
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:12]
}
