// SPDX-FileCopyrightText: © 2014 Ulrich Kunitz
//
// SPDX-License-Identifier: BSD-3-Clause

// Package flate implements the DEFLATE compressed data format described
// in RFC 1951.
//
// The core of the package are the Inflator and Deflator types. They
// process raw byte views without doing any I/O and keep their complete
// state between calls, which allows single streams to be driven with
// arbitrary input and output granularity. The Reader and Writer types
// wrap them for use with the standard io interfaces.
//
// The streams produced and consumed are raw DEFLATE streams without a
// container format. An Adler-32 trailer can be enabled in the
// configuration for integrity checking.
package flate
