package engine

import "sync/atomic"

// Clock stamps the rows of one run with seqs 1, 2, 3... in emission order.
// Seqs never come from wall time, so a run repeated with the same seed and
// settings numbers its rows identically.
type Clock struct {
	issued atomic.Int64
}

func NewClock() *Clock {
	return &Clock{}
}

// Next returns the seq for one more row.
func (c *Clock) Next() int64 {
	return c.issued.Add(1)
}

// Issued is how many seqs have been handed out.
func (c *Clock) Issued() int64 {
	return c.issued.Load()
}
