package logicclient

import (
	"context"
	"sync"
)

// SetEntry is one parameter write in a batch. OK and Command are filled in
// once the entry's set command finishes.
type SetEntry struct {
	ObjID int
	Index int
	Value any

	OK      bool
	Command *Command
}

// BatchSetter writes a list of parameter values one set command at a time.
// Each set is submitted only after the previous one finished, so a batch
// never has more than one command in flight.
type BatchSetter struct {
	submitter Submitter
}

// NewBatchSetter creates a BatchSetter submitting through s.
func NewBatchSetter(s Submitter) *BatchSetter {
	return &BatchSetter{submitter: s}
}

// Run starts the batch and returns the first set command, or nil for an
// empty list. done receives the number of successful sets and the annotated
// entries. With no entries done is called before Run returns.
func (b *BatchSetter) Run(entries []SetEntry, done func(count int, entries []SetEntry)) *Command {
	if len(entries) == 0 {
		if done != nil {
			done(0, entries)
		}
		return nil
	}

	count := 0
	var next func(i int) *Command
	next = func(i int) *Command {
		e := &entries[i]
		cmd := b.submitter.Do(CmdSet, e.ObjID, e.Index, e.Value)
		e.Command = cmd
		cmd.OnComplete(func(cmd *Command) {
			e.OK = cmd.Status() == StatusSucceeded
			if e.OK {
				count++
			}
			if i+1 < len(entries) {
				next(i + 1)
				return
			}
			if done != nil {
				done(count, entries)
			}
		})
		return cmd
	}

	return next(0)
}

// SetMulti writes entries in order and waits for the last one. It returns
// the number of successful sets; entries are annotated in place. A failed set
// does not stop the batch and is not an error.
func (c *Client) SetMulti(ctx context.Context, entries []SetEntry) (int, error) {
	var (
		once   sync.Once
		result = make(chan int, 1)
	)
	NewBatchSetter(c).Run(entries, func(count int, _ []SetEntry) {
		once.Do(func() { result <- count })
	})

	select {
	case n := <-result:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
