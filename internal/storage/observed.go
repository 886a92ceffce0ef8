package storage

import (
	"context"
	"strings"
)

// PutObserver receives the top-level key prefix and size of each stored object.
type PutObserver func(kind string, bytes int)

// Observed wraps store so every successful Put is reported to observe.
func Observed(store Store, observe PutObserver) Store {
	if store == nil || observe == nil {
		return store
	}
	return &observed{Store: store, observe: observe}
}

type observed struct {
	Store
	observe PutObserver
}

func (o *observed) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	url, err := o.Store.Put(ctx, key, body, contentType)
	if err == nil {
		kind, _, _ := strings.Cut(strings.TrimLeft(key, "/"), "/")
		o.observe(kind, len(body))
	}
	return url, err
}
