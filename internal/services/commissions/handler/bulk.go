package handler

import (
	"context"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/status"
)

type BulkError struct {
	SubjectID int64  `json:"subject_id"`
	Code      string `json:"code"`
	Reason    string `json:"reason"`
}

// BulkResult always carries the counts, even when every item failed.
type BulkResult[T any] struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Results    []T         `json:"results"`
	Errors     []BulkError `json:"errors"`
}

// runBulk calls fn once per subject with at most limit calls in flight.
// A failing subject is recorded and never stops the others. Results and
// errors keep the input order.
func runBulk[T any](ctx context.Context, limit int, subjects []int64, fn func(ctx context.Context, idx int, subjectID int64) (T, error)) *BulkResult[T] {
	type outcome struct {
		value T
		err   error
	}
	outcomes := make([]outcome, len(subjects))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range subjects {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			v, err := fn(ctx, i, id)
			outcomes[i] = outcome{value: v, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &BulkResult[T]{
		Total:   len(subjects),
		Results: make([]T, 0, len(subjects)),
		Errors:  make([]BulkError, 0),
	}
	for i, o := range outcomes {
		if o.err != nil {
			s, _ := status.FromError(o.err)
			res.Errors = append(res.Errors, BulkError{
				SubjectID: subjects[i],
				Code:      s.Code().String(),
				Reason:    s.Message(),
			})
			continue
		}
		res.Results = append(res.Results, o.value)
	}
	res.Successful = len(res.Results)
	res.Failed = len(res.Errors)
	return res
}
