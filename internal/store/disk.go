package store

import "os"

// diskUsageBytes returns the combined size in bytes of the given files.
// Missing paths contribute 0 (the WAL sidecar may not exist yet).
func diskUsageBytes(paths ...string) int64 {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			total += info.Size()
		}
	}
	return total
}
