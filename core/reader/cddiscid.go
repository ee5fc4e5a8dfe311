package reader

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// CDDiscID reads the TOC with cd-discid, which prints
// "discid count offset... seconds".
type CDDiscID struct {
	tool
}

// NewCDDiscID returns a reader running cd-discid from PATH.
func NewCDDiscID() *CDDiscID {
	return &CDDiscID{tool{binary: "cd-discid"}}
}

// TrackOffsets implements Reader.
func (r *CDDiscID) TrackOffsets(ctx context.Context, sudo bool, device string) ([]int, error) {
	out, err := r.exec(ctx, sudo, device)
	if err != nil {
		return nil, err
	}

	fields := strings.Fields(out)
	if len(fields) < 3 {
		return []int{}, nil
	}
	values := make([]int, 0, len(fields)-2)
	for _, f := range fields[2:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("unexpected cd-discid output %q: %w", strings.TrimSpace(out), err)
		}
		values = append(values, n)
	}
	return values, nil
}
