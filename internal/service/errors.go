package service

import (
	"errors"

	"appstore/internal/repository"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("concurrent modification, retry later")
	ErrQueryRejected = repository.ErrQueryRejected
)

// ListResult is a page of views together with the normalized paging window.
// Total counts the whole (possibly filtered) set.
type ListResult[T any] struct {
	Items  []T
	Total  int
	Limit  int
	Offset int
}

func newListResult[T any](items []T, total int, pq repository.PageQuery) *ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{Items: items, Total: total, Limit: pq.Limit, Offset: pq.Offset}
}

// mapRepoErr converts repository sentinels into service sentinels.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrConflict
	default:
		return err
	}
}
