package wkt2shp

import (
	"github.com/pkg/errors"
)

// Kind classifies a conversion failure.
type Kind int

const (
	KindUnclassified Kind = iota
	KindMissingInput
	KindMissingColumn
	KindParse
	KindIO
)

// Sentinels matched by errors.Is against a conversion error of the same Kind.
var (
	ErrUnclassified  = errors.New("wkt2shp: conversion failed")
	ErrMissingInput  = errors.New("wkt2shp: input file not found")
	ErrMissingColumn = errors.New("wkt2shp: geometry column not found")
	ErrParse         = errors.New("wkt2shp: invalid WKT")
	ErrIO            = errors.New("wkt2shp: write failed")
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing-input"
	case KindMissingColumn:
		return "missing-column"
	case KindParse:
		return "parse"
	case KindIO:
		return "io"
	default:
		return "unclassified"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindMissingInput:
		return ErrMissingInput
	case KindMissingColumn:
		return ErrMissingColumn
	case KindParse:
		return ErrParse
	case KindIO:
		return ErrIO
	default:
		return ErrUnclassified
	}
}

// Error is the error carried by a failed Result.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the Kind of err, or KindUnclassified if err was not produced
// by a conversion.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

func classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}
