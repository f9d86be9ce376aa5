// Package frame implements the delimited text framing used by the gas analyzer.
//
// Every message on the wire is ASCII text wrapped between a start-of-text (STX,
// 0x02) and an end-of-text (ETX, 0x03) control byte:
//
//	STX ' ' BODY ' ' ETX
//
// The body is a whitespace separated token list. For a reply the first token is
// the echoed command name and the second token is the error flag ("0" means
// success). Bodies are never escaped, so a body must not contain STX or ETX.
//
// Encode and Decode are pure functions. Assembler supports the Device Link
// reader: it accumulates chunks from a socket, throws away any junk preceding
// the last start marker and reports a frame once its end marker arrives.
package frame
