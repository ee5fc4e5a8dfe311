package reader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// CDParanoia reads the TOC printed by "cdparanoia -Q".
type CDParanoia struct {
	tool
}

// NewCDParanoia returns a reader running cdparanoia from PATH.
func NewCDParanoia() *CDParanoia {
	return &CDParanoia{tool{binary: "cdparanoia"}}
}

// TrackOffsets implements Reader.
func (r *CDParanoia) TrackOffsets(ctx context.Context, sudo bool, device string) ([]int, error) {
	args := []string{"-Q"}
	if device != "" {
		args = append(args, "-d", device)
	}
	out, err := r.exec(ctx, sudo, args...)
	if err != nil {
		return nil, err
	}
	return parseParanoiaTOC(out), nil
}

// parseParanoiaTOC turns the track table into offsets shifted by the 150
// frame lead-in, followed by the disc length from the TOTAL line.
//
//	  1.    16503 [03:40.03]        0 [00:00.00]    no   no  2
//	TOTAL  221840 [49:17.65]    (audio only)
func parseParanoiaTOC(out string) []int {
	values := []int{}
	next := 1
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, fmt.Sprintf("%3d.", next)) {
			fields := strings.Fields(line)
			if len(fields) < 4 {
				continue
			}
			begin, _ := strconv.Atoi(fields[3])
			values = append(values, begin+150)
			next++
			continue
		}
		if rest, ok := strings.CutPrefix(line, "TOTAL"); ok {
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				continue
			}
			total, _ := strconv.Atoi(fields[0])
			values = append(values, (total+150)/75)
		}
	}
	return values
}
