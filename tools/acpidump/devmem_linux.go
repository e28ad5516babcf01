package main

import "walnut/kernel/mm/phys"

func openMemory(path string) (physMemory, error) {
	mem, err := phys.OpenDevMem(path)
	if err != nil {
		return nil, err
	}
	return mem, nil
}
