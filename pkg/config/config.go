package config

import "time"

// Config is a read-only view over a loaded configuration file. Getters take a
// default which is returned when the key is absent.
type Config interface {
	Bool(k string, def bool) bool
	Duration(k string, def time.Duration) time.Duration
	String(k string, def string) string
	Int(k string, def int) int
	Uint16(k string, def uint16) uint16
	Float64(k string, def float64) float64
	StringSlice(k string, def []string) []string
	Unmarshal(k string, val any) error
	Contains(k string) bool
}
