// Package codec decodes packed record metadata into field trees and encodes
// them back.
//
// # Decoding
//
// Decoder reads one field per template, in template order, at base+offset.
// Blocks read a (count, pointer) header, validate it against the pointer
// context and decode every element page re-based at the expanded pointer.
// Data references read their (size, pointer) header and, when valid, their
// contents in a second positioned read. Tag references resolve against the
// record table and are collected as "group:name" identities.
//
// Bounds violations and unresolvable strings or references never fail a
// decode; they are normalized to null values. I/O errors abort the record.
//
// # Encoding
//
// Encoder is symmetric. Tag references are re-resolved by name in the
// destination table, blocks are re-validated with their current count and
// data reference contents are clipped or zero-padded to their length.
//
// # Change sets
//
// A ChangeSet holds value snapshots keyed by field address. When one is passed
// to the decoder or encoder, fields whose snapshot matches are skipped and the
// bytes at their offset stay untouched.
package codec
