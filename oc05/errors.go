package oc05

import "fmt"

// BusError is returned when a register write fails on the bus.
type BusError struct {
	Op    string
	Reg   byte
	Value byte
	Err   error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("oc05: %s: write 0x%02X to reg 0x%02X: %v", e.Op, e.Value, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}
