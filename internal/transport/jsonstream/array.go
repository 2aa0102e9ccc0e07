// Package jsonstream decodes a top-level JSON array one element at a time.
package jsonstream

import (
	"errors"
	"fmt"
	"io"
	"iter"

	jsoniter "github.com/json-iterator/go"
)

const bufSize = 32 * 1024

var api = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            false,
	ValidateJsonRawMessage: true,
	UseNumber:              false,
}.Froze()

// ErrNotArray is returned when the input does not start with '['.
var ErrNotArray = errors.New("input is not a JSON array")

// Array yields the elements of the JSON array in r. Only one element is
// decoded at a time. The first decoding error is yielded once and ends the
// sequence; elements before it have already been yielded.
func Array[T any](r io.Reader) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		it := jsoniter.Parse(api, r, bufSize)

		if next := it.WhatIsNext(); next != jsoniter.ArrayValue {
			if it.Error != nil && !errors.Is(it.Error, io.EOF) {
				yield(zero, fmt.Errorf("%w: %w", ErrNotArray, it.Error))
				return
			}
			yield(zero, ErrNotArray)
			return
		}

		index := 0
		for it.ReadArray() {
			var v T
			it.ReadVal(&v)
			if it.Error != nil {
				yield(zero, fmt.Errorf("element %d: %w", index, it.Error))
				return
			}
			if !yield(v, nil) {
				return
			}
			index++
		}
		if it.Error != nil {
			yield(zero, fmt.Errorf("after element %d: %w", index, it.Error))
		}
	}
}
