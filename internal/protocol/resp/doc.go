// Package resp implements the Redis serialization protocol used by respd.
//
// The server side is a resumable Decoder that turns an arbitrarily
// fragmented byte stream into Command values, and an Encoder that renders
// Reply values back onto the wire. ReadReply and WriteCommand form the
// client side used by respd-cli.
//
// Supported framing:
//   - multi-bulk requests: *<N>\r\n followed by N × $<L>\r\n<bytes>\r\n
//   - inline requests: a single line terminated by CRLF
//   - replies: + - : $ * and the legacy inline form
package resp
