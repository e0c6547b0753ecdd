// Package wasi defines the fixed WASI preview1 ABI surface used by bcfs:
// errno values, descriptor numbers, open and descriptor flags, seek origins,
// file types, rights and the stat records written into guest memory.
//
// The numeric values are part of an external ABI and cannot change.
package wasi
