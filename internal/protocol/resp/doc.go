// Package resp implements the request side of the RESP2 wire protocol
// and the reply writers used by the Redis-compatible server.
//
// A request frame is an array of bulk strings:
//
//	*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$11\r\nHello World\r\n
//
// Decode turns one fully buffered frame into a Command. Bulk payloads are
// read by their declared byte length, so a payload may itself contain
// "\r\n". ReadCommand does the same against a stream and also accepts
// inline commands ("PING\r\n").
package resp
