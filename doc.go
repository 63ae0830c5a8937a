// Package aether is an on-device structured logging engine: callers
// submit severity-leveled records through a small set of named
// instances, each backed by its own mmap-scratch buffer, async
// flusher, day-file rotation and optional cache-dir spillover
// (package appender), gated by a per-instance severity level
// (package category) and tracked in a process-wide directory
// (package registry).
//
// This file ties those packages together behind the management
// operations a host binding layer calls: open/close, flush variants,
// catalogue queries, runtime knob setters, and the instance lifecycle
// (new_instance/get_instance/release_instance). Most of it is a thin
// dispatch layer; the packages it wires do the actual work.
package aether
