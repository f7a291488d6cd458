package shared

import (
	"context"
	"fmt"
	"time"
)

// SequenceGenerator hands out monotonically increasing numbers per named sequence
type SequenceGenerator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// FormatCode builds a document code like COT-202610-00042. The sequence is
// expected to be scoped by prefix and month, see MonthlySequence.
func FormatCode(prefix string, at time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, at.Format("200601"), n)
}

// MonthlySequence returns the sequence name used for codes issued in a month
func MonthlySequence(prefix string, at time.Time) string {
	return prefix + "-" + at.Format("200601")
}

// NextCode draws the next number of the monthly sequence and formats it
func NextCode(ctx context.Context, gen SequenceGenerator, prefix string, at time.Time) (string, error) {
	n, err := gen.Next(ctx, MonthlySequence(prefix, at))
	if err != nil {
		return "", err
	}
	return FormatCode(prefix, at, n), nil
}
