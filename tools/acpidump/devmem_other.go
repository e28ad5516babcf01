//go:build !linux

package main

import "github.com/pkg/errors"

func openMemory(path string) (physMemory, error) {
	return nil, errors.Errorf("%s: reading physical memory is only supported on linux", path)
}
