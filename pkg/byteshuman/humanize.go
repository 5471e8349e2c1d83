// Formats byte amounts into human readable format using binary (1024-based) units
package byteshuman

import (
	"fmt"
)

const (
	B   = 1
	KiB = 1024 * B
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
	PiB = 1024 * TiB
	EiB = 1024 * PiB
)

var units = []struct {
	size   uint64
	suffix string
}{
	{EiB, "EiB"},
	{PiB, "PiB"},
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

// "1536" => "1.50 KiB". amounts under one KiB are printed as integers
func Humanize(num uint64) string {
	for _, unit := range units {
		if num >= unit.size {
			return fmt.Sprintf("%.02f %s", float64(num)/float64(unit.size), unit.suffix)
		}
	}

	return fmt.Sprintf("%d B", num)
}
